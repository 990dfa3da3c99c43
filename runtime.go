package skematic

import (
	"strconv"
	"strings"

	"github.com/reoring/skematic/i18n"
)

// Schema is a compiled validator graph: a table of validator lists keyed by
// schema location. It is read-only after compilation and may be shared
// freely across concurrent validations.
type Schema struct {
	root       Location
	table      map[string]*unit
	anchors    map[string]Location
	dynAnchors map[string]Location
}

// Root returns the location of the root schema node.
func (s *Schema) Root() Location { return s.root }

func (s *Schema) lookup(loc Location) *unit { return s.table[loc.Key()] }

// evalCtx threads per-validation state through the validator graph: the
// current instance path, the evaluation path through the schema, the
// evaluated key/index sets at the current object/array level, and the stack
// of bases entered dynamically (for $dynamicRef resolution).
//
// Combinators create a detached copy to try a branch speculatively and merge
// it back into the parent only on acceptance; a rejected branch's evaluated
// sets never leak.
type evalCtx struct {
	s   *Schema
	opt ValidateOpt

	path       []string // instance pointer segments
	schemaPath []string // evaluation path segments (keywords traversed)

	props map[string]struct{} // evaluated object keys at this level
	items map[int]struct{}    // evaluated array indices at this level

	dyn []string // dynamic scope chain, innermost last
}

func newEvalCtx(s *Schema, opt ValidateOpt) *evalCtx {
	return &evalCtx{s: s, opt: opt}
}

// detach returns a branch copy: same instance level, cloned evaluated sets.
func (e *evalCtx) detach(segs ...string) *evalCtx {
	c := *e
	c.schemaPath = appendPath(e.schemaPath, segs...)
	c.props = cloneStrSet(e.props)
	c.items = cloneIntSet(e.items)
	c.dyn = append([]string(nil), e.dyn...)
	return &c
}

// merge folds an accepted branch's evaluated sets back into the parent.
func (e *evalCtx) merge(b *evalCtx) {
	for k := range b.props {
		e.markProp(k)
	}
	for i := range b.items {
		e.markItem(i)
	}
}

// child returns the context for a nested instance value: path extended,
// fresh evaluated sets for the new level.
func (e *evalCtx) child(seg string, kwSegs ...string) *evalCtx {
	c := *e
	c.path = appendPath(e.path, seg)
	c.schemaPath = appendPath(e.schemaPath, kwSegs...)
	c.props = nil
	c.items = nil
	c.dyn = append([]string(nil), e.dyn...)
	return &c
}

func (e *evalCtx) markProp(k string) {
	if e.props == nil {
		e.props = map[string]struct{}{}
	}
	e.props[k] = struct{}{}
}

func (e *evalCtx) markItem(i int) {
	if e.items == nil {
		e.items = map[int]struct{}{}
	}
	e.items[i] = struct{}{}
}

func (e *evalCtx) hasProp(k string) bool { _, ok := e.props[k]; return ok }
func (e *evalCtx) hasItem(i int) bool    { _, ok := e.items[i]; return ok }

// validateAt executes the ordered validator list registered for loc by
// folding over it; a rejection from any entry short-circuits the fold for
// this schema node. Coerced values from one entry feed the next.
func (e *evalCtx) validateAt(loc Location, v any) (any, Issues) {
	u := e.s.lookup(loc)
	if u == nil {
		return v, Issues{e.issue("", CodeParseError, map[string]any{"location": loc.String()}, v)}
	}
	// entering a new base extends the dynamic scope chain
	if len(e.dyn) == 0 || e.dyn[len(e.dyn)-1] != u.loc.Base {
		e.dyn = append(e.dyn, u.loc.Base)
		defer func() { e.dyn = e.dyn[:len(e.dyn)-1] }()
	}
	if u.boolean != nil {
		if *u.boolean {
			return v, nil
		}
		return v, Issues{e.issue("", CodeAlwaysReject, nil, v)}
	}
	out := v
	for _, en := range u.entries {
		nv, iss := en.vocab.execute(e, en.rec, out)
		if len(iss) > 0 {
			return v, iss
		}
		out = nv
	}
	return out, nil
}

// resolveDynamic re-resolves a dynamic anchor against the current dynamic
// scope chain, innermost scope first, falling back to the lexical target.
func (e *evalCtx) resolveDynamic(anchor string, fallback Location) Location {
	for i := len(e.dyn) - 1; i >= 0; i-- {
		if t, ok := e.s.dynAnchors[e.dyn[i]+"#"+anchor]; ok {
			return t
		}
	}
	return fallback
}

// issue builds an Issue at the current instance and evaluation paths.
func (e *evalCtx) issue(keyword, code string, params map[string]any, v any) Issue {
	return Issue{
		Path:             renderPointer(e.path),
		Keyword:          keyword,
		Code:             code,
		Message:          i18n.T(code, params),
		SchemaPath:       renderPointer(e.schemaPath),
		InstanceFragment: instanceFragment(v),
		Params:           params,
	}
}

func (e *evalCtx) nestedIssue(keyword, code string, params map[string]any, v any, nested Issues) Issue {
	it := e.issue(keyword, code, params, v)
	it.Nested = nested
	return it
}

func appendPath(base []string, segs ...string) []string {
	out := make([]string, 0, len(base)+len(segs))
	out = append(out, base...)
	out = append(out, segs...)
	return out
}

func renderPointer(segs []string) string {
	if len(segs) == 0 {
		return "/"
	}
	b := &strings.Builder{}
	for _, s := range segs {
		b.WriteString("/")
		b.WriteString(escapePointerSegment(s))
	}
	return b.String()
}

func cloneStrSet(m map[string]struct{}) map[string]struct{} {
	if m == nil {
		return nil
	}
	out := make(map[string]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}

func cloneIntSet(m map[int]struct{}) map[int]struct{} {
	if m == nil {
		return nil
	}
	out := make(map[int]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}

func indexSeg(i int) string { return strconv.Itoa(i) }
