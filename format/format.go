// Package format provides the pluggable string-format collaborator used by
// the format vocabulary. The engine only dispatches: it selects the first
// registered Checker that supports the requested format name and honors the
// global assert-vs-annotate mode; everything format-specific lives here.
package format

import (
	"fmt"
	"net"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Checker validates values against one or more named formats.
type Checker interface {
	// Supports reports whether the checker knows the given format name.
	Supports(name string) bool
	// AppliesTo reports whether the format is defined for the value's type.
	// Formats are no-ops for types they do not cover (a number is never an
	// invalid "email").
	AppliesTo(name string, v any) bool
	// Validate checks the value and may return a replacement (cast) value.
	Validate(name string, v any) (any, error)
}

// Default returns the built-in checker set.
func Default() []Checker { return []Checker{builtin{}} }

type builtin struct{}

type checkFn func(s string) (any, error)

var builtinFormats = map[string]checkFn{
	"date-time":     checkDateTime,
	"date":          checkDate,
	"time":          checkTime,
	"duration":      checkDuration,
	"email":         checkEmail,
	"hostname":      checkHostname,
	"ipv4":          checkIPv4,
	"ipv6":          checkIPv6,
	"uuid":          checkUUID,
	"uri":           checkURI,
	"uri-reference": checkURIReference,
	"json-pointer":  checkJSONPointer,
	"regex":         checkRegex,
}

func (builtin) Supports(name string) bool {
	_, ok := builtinFormats[name]
	return ok
}

// AppliesTo: every built-in format is string-only.
func (builtin) AppliesTo(name string, v any) bool {
	if _, ok := builtinFormats[name]; !ok {
		return false
	}
	_, ok := v.(string)
	return ok
}

func (b builtin) Validate(name string, v any) (any, error) {
	fn, ok := builtinFormats[name]
	if !ok {
		return v, fmt.Errorf("format: unsupported format %q", name)
	}
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	return fn(s)
}

func checkDateTime(s string) (any, error) {
	if _, err := time.Parse(time.RFC3339, s); err != nil {
		return s, fmt.Errorf("not a valid RFC 3339 date-time: %w", err)
	}
	return s, nil
}

func checkDate(s string) (any, error) {
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return s, fmt.Errorf("not a valid full-date: %w", err)
	}
	return s, nil
}

func checkTime(s string) (any, error) {
	if _, err := time.Parse("15:04:05Z07:00", s); err != nil {
		if _, err2 := time.Parse("15:04:05", s); err2 != nil {
			return s, fmt.Errorf("not a valid full-time: %w", err)
		}
	}
	return s, nil
}

var durationRe = regexp.MustCompile(`^P(\d+W|(\d+Y)?(\d+M)?(\d+D)?(T(\d+H)?(\d+M)?(\d+(\.\d+)?S)?)?)$`)

func checkDuration(s string) (any, error) {
	if s == "P" || strings.HasSuffix(s, "T") || !durationRe.MatchString(s) {
		return s, fmt.Errorf("not a valid ISO 8601 duration")
	}
	return s, nil
}

func checkEmail(s string) (any, error) {
	a, err := mail.ParseAddress(s)
	if err != nil {
		return s, fmt.Errorf("not a valid email address: %w", err)
	}
	if a.Address != s {
		return s, fmt.Errorf("not a bare email address")
	}
	return s, nil
}

var hostnameRe = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

func checkHostname(s string) (any, error) {
	if len(s) > 253 || !hostnameRe.MatchString(s) {
		return s, fmt.Errorf("not a valid hostname")
	}
	return s, nil
}

func checkIPv4(s string) (any, error) {
	ip := net.ParseIP(s)
	if ip == nil || ip.To4() == nil || strings.Contains(s, ":") {
		return s, fmt.Errorf("not a valid IPv4 address")
	}
	return s, nil
}

func checkIPv6(s string) (any, error) {
	ip := net.ParseIP(s)
	if ip == nil || !strings.Contains(s, ":") {
		return s, fmt.Errorf("not a valid IPv6 address")
	}
	return s, nil
}

var uuidRe = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

func checkUUID(s string) (any, error) {
	if !uuidRe.MatchString(s) {
		return s, fmt.Errorf("not a valid UUID")
	}
	return s, nil
}

func checkURI(s string) (any, error) {
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() {
		return s, fmt.Errorf("not a valid absolute URI")
	}
	return s, nil
}

func checkURIReference(s string) (any, error) {
	if _, err := url.Parse(s); err != nil {
		return s, fmt.Errorf("not a valid URI reference: %w", err)
	}
	return s, nil
}

func checkJSONPointer(s string) (any, error) {
	if s == "" {
		return s, nil
	}
	if !strings.HasPrefix(s, "/") {
		return s, fmt.Errorf("not a valid JSON Pointer")
	}
	for _, part := range strings.Split(s[1:], "/") {
		for i := 0; i < len(part); i++ {
			if part[i] != '~' {
				continue
			}
			if i+1 >= len(part) || (part[i+1] != '0' && part[i+1] != '1') {
				return s, fmt.Errorf("not a valid JSON Pointer: bad escape")
			}
		}
	}
	return s, nil
}

func checkRegex(s string) (any, error) {
	if _, err := regexp.Compile(s); err != nil {
		return s, fmt.Errorf("not a valid regular expression: %w", err)
	}
	return s, nil
}
