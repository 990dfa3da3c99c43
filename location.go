package skematic

import (
	"strconv"
	"strings"
)

// Location uniquely addresses one compiled schema node: a base identifier
// (document URI or synthetic root id) plus a JSON Pointer from that base.
// Locations are created once during compilation and never mutated.
type Location struct {
	Base string // document URI or synthetic root id
	Ptr  string // JSON Pointer within the base; "" is the resource root
}

// Key renders the canonical table key for this location.
func (l Location) Key() string { return l.Base + "#" + l.Ptr }

func (l Location) String() string { return l.Key() }

// Child derives the location of a nested schema node by appending pointer
// segments (keyword names, property names, array indices as strings).
func (l Location) Child(segs ...string) Location {
	ptr := l.Ptr
	for _, s := range segs {
		ptr += "/" + escapePointerSegment(s)
	}
	return Location{Base: l.Base, Ptr: ptr}
}

// ChildIndex derives the location of the i-th nested schema under a keyword.
func (l Location) ChildIndex(keyword string, i int) Location {
	return l.Child(keyword, strconv.Itoa(i))
}

// escapePointerSegment escapes '~' -> '~0' and '/' -> '~1' per RFC 6901.
func escapePointerSegment(s string) string {
	if !strings.ContainsAny(s, "~/") {
		return s
	}
	return strings.ReplaceAll(strings.ReplaceAll(s, "~", "~0"), "/", "~1")
}

func unescapePointerSegment(s string) string {
	if !strings.Contains(s, "~") {
		return s
	}
	return strings.ReplaceAll(strings.ReplaceAll(s, "~1", "/"), "~0", "~")
}

// splitPointer breaks a JSON Pointer into unescaped segments. The empty
// pointer yields no segments.
func splitPointer(ptr string) []string {
	if ptr == "" {
		return nil
	}
	raw := strings.Split(strings.TrimPrefix(ptr, "/"), "/")
	out := make([]string, len(raw))
	for i, s := range raw {
		out[i] = unescapePointerSegment(s)
	}
	return out
}

// RefKind distinguishes pointer references from anchor references.
type RefKind int

const (
	RefPointer RefKind = iota // names a location by JSON Pointer
	RefAnchor                 // names a location by a declared anchor name
)

// Ref is the compiled form of a $ref/$dynamicRef value: a target within a
// base, resolved either by pointer or by anchor name. Dynamic marks
// $dynamicRef entries whose target must be re-resolved against the runtime
// dynamic scope chain.
type Ref struct {
	Kind    RefKind
	Base    string
	Ptr     string // pointer target (Kind == RefPointer)
	Anchor  string // anchor name (Kind == RefAnchor)
	Dynamic bool
}

// Target returns the lexical location the reference names. For anchor
// references the pointer is unknown until the anchor table is consulted.
func (r Ref) Target() Location { return Location{Base: r.Base, Ptr: r.Ptr} }

func (r Ref) String() string {
	if r.Kind == RefAnchor {
		return r.Base + "#" + r.Anchor
	}
	return r.Base + "#" + r.Ptr
}

// parseRef interprets a raw reference string relative to the given base.
// Fragments beginning with '/' are pointers; any other non-empty fragment
// is an anchor name. A missing fragment targets the resource root.
func parseRef(raw, base string) (Ref, error) {
	if raw == "" {
		return Ref{}, errEmptyRef
	}
	doc, frag, hasFrag := strings.Cut(raw, "#")
	tgt := base
	if doc != "" {
		tgt = resolveBase(base, doc)
	}
	if !hasFrag || frag == "" {
		return Ref{Kind: RefPointer, Base: tgt, Ptr: ""}, nil
	}
	if strings.HasPrefix(frag, "/") {
		return Ref{Kind: RefPointer, Base: tgt, Ptr: frag}, nil
	}
	return Ref{Kind: RefAnchor, Base: tgt, Anchor: frag}, nil
}

// resolveBase resolves a (possibly relative) document identifier against the
// current base. Absolute identifiers (scheme present) win outright; relative
// ones replace the last path segment of the base, mirroring RFC 3986 merge
// for the subset of identifiers schema documents use in practice.
func resolveBase(base, id string) string {
	if strings.Contains(id, "://") || strings.HasPrefix(id, "urn:") {
		return id
	}
	if base == "" {
		return id
	}
	if strings.HasPrefix(id, "/") {
		if i := strings.Index(base, "://"); i >= 0 {
			if j := strings.Index(base[i+3:], "/"); j >= 0 {
				return base[:i+3+j] + id
			}
			return base + id
		}
		return id
	}
	if i := strings.LastIndex(base, "/"); i >= 0 {
		return base[:i+1] + id
	}
	return id
}
