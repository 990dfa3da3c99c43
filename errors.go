package skematic

import (
	"errors"
	"fmt"
	"strings"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	CodeInvalidType         = "invalid_type"
	CodeRequired            = "required"
	CodeDependentRequired   = "dependent_required"
	CodeInvalidEnum         = "invalid_enum"
	CodeInvalidConst        = "invalid_const"
	CodeTooSmall            = "too_small"
	CodeTooBig              = "too_big"
	CodeTooShort            = "too_short"
	CodeTooLong             = "too_long"
	CodeTooFewItems         = "too_few_items"
	CodeTooManyItems        = "too_many_items"
	CodeTooFewProperties    = "too_few_properties"
	CodeTooManyProperties   = "too_many_properties"
	CodePattern             = "pattern"
	CodeMultipleOf          = "multiple_of"
	CodeArithmetic          = "arithmetic_error"
	CodeUniqueItems         = "unique_items"
	CodeInvalidFormat       = "invalid_format"
	CodePropertyName        = "property_name"
	CodeInvalidProperty     = "invalid_property"
	CodeInvalidItem         = "invalid_item"
	CodeAdditionalProperty  = "additional_property"
	CodeUnevaluatedProperty = "unevaluated_property"
	CodeUnevaluatedItem     = "unevaluated_item"
	CodeContainsTooFew      = "contains_too_few"
	CodeContainsTooMany     = "contains_too_many"
	CodeAllOf               = "all_of"
	CodeAnyOf               = "any_of"
	CodeOneOfNoMatch        = "one_of_no_match"
	CodeOneOfManyMatch      = "one_of_many_match"
	CodeNot                 = "not"
	CodeConditional         = "conditional"
	CodeDependentSchema     = "dependent_schema"
	CodeRefFailed           = "ref_failed"
	CodeAlwaysReject        = "always_reject"
	CodeParseError          = "parse_error"
)

// Issue represents a single validation error node.
type Issue struct {
	Path    string // JSON Pointer into the instance (for example: /items/2/price).
	Keyword string // Keyword that produced the issue ("oneOf", "required", ...).
	Code    string // One of the codes listed above.
	Message string
	Hint    string // Optional: remediation hints, format names, etc.
	Cause   error  // Optional: underlying error.
	// SchemaPath records the evaluation path through the schema (keywords
	// traversed, refs included), which may differ from the schema location.
	SchemaPath string
	// InstanceFragment is an optional snippet of the offending instance value.
	// Because it can be expensive to produce, it is best-effort.
	InstanceFragment string
	// Params carries structured parameters (e.g., {"min":1, "max":10, "got":42})
	// for i18n and observability.
	Params map[string]any
	// Nested holds sub-errors: combinator branches carry the rejected
	// sub-validations, object/array keywords carry per-key failures.
	Nested Issues
}

// Issues is a collection of validation errors that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. invalid_type at /path
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// Walk visits every issue in the tree depth-first, parents before children.
func (iss Issues) Walk(fn func(depth int, it Issue)) {
	walkIssues(iss, 0, fn)
}

func walkIssues(iss Issues, depth int, fn func(int, Issue)) {
	for _, it := range iss {
		fn(depth, it)
		if len(it.Nested) > 0 {
			walkIssues(it.Nested, depth+1, fn)
		}
	}
}

// BuildError reports a malformed schema. It is fatal to compilation and is
// never partially recovered from.
type BuildError struct {
	Keyword  string
	Location Location
	Msg      string
	Cause    error
}

func (e *BuildError) Error() string {
	b := &strings.Builder{}
	b.WriteString("skematic: build error")
	if e.Keyword != "" {
		fmt.Fprintf(b, " at keyword %q", e.Keyword)
	}
	if e.Location != (Location{}) {
		fmt.Fprintf(b, " (%s)", e.Location)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *BuildError) Unwrap() error { return e.Cause }

func buildErrf(loc Location, keyword, format string, args ...any) *BuildError {
	return &BuildError{Keyword: keyword, Location: loc, Msg: fmt.Sprintf(format, args...)}
}

var errEmptyRef = errors.New("skematic: empty reference")
