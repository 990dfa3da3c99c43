package skematic

import (
	"context"
	"strings"
)

// Compile builds the validator graph for a raw schema document (a JSON-like
// value tree: nil, bool, json.Number/float64/int64, string, []any,
// map[string]any; or a bare bool). A malformed schema fails with *BuildError.
func Compile(doc any, opt CompileOpt) (*Schema, error) {
	return compileRoot(doc, opt)
}

// CompileJSON decodes a JSON schema document and compiles it.
func CompileJSON(b []byte, opt CompileOpt) (*Schema, error) {
	doc, err := DocumentFromJSON(b)
	if err != nil {
		return nil, err
	}
	return Compile(doc, opt)
}

// CompileYAML decodes a YAML schema document and compiles it.
func CompileYAML(b []byte, opt CompileOpt) (*Schema, error) {
	doc, err := DocumentFromYAML(b)
	if err != nil {
		return nil, err
	}
	return Compile(doc, opt)
}

// Validate checks an instance against the compiled schema. On acceptance it
// returns the (possibly coerced) instance; on rejection the error is an
// Issues tree. Concurrent validations of the same Schema are independent.
//
// The engine defines no suspension points; ctx is accepted for API symmetry
// and reserved for collaborator implementations that need it.
func (s *Schema) Validate(ctx context.Context, v any, opt ValidateOpt) (any, error) {
	_ = ctx
	e := newEvalCtx(s, opt)
	out, iss := e.validateAt(s.root, v)
	if len(iss) > 0 {
		return nil, iss
	}
	return out, nil
}

// ValidateJSON decodes a JSON instance and validates it.
func (s *Schema) ValidateJSON(ctx context.Context, b []byte, opt ValidateOpt) (any, error) {
	v, err := DocumentFromJSON(b)
	if err != nil {
		return nil, err
	}
	return s.Validate(ctx, v, opt)
}

// FormatIssues renders an issue tree into display lines, one per issue,
// indented by nesting depth. Formatting dispatches per keyword to the owning
// vocabulary; combinator formatters flatten their branches' sub-errors so
// consumers see the full tree.
func FormatIssues(iss Issues) []string {
	reg := defaultRegistry()
	var out []string
	iss.Walk(func(depth int, it Issue) {
		v := reg.byKeyword[it.Keyword]
		var line string
		if v != nil {
			line = v.formatError(it)
		} else {
			line = it.Path + ": " + it.Message
		}
		out = append(out, strings.Repeat("  ", depth)+line)
	})
	return out
}
