package skematic

// formatRec carries the requested format name; dispatch happens at run time
// against the caller-supplied checker set.
type formatRec struct {
	name string
}

func (*formatRec) keyword() string { return "format" }

// formatVocab dispatches to the first registered checker supporting the
// format name, honoring the global assert-vs-annotate mode.
type formatVocab struct{}

func (formatVocab) name() string  { return "format" }
func (formatVocab) priority() int { return 30 }

func (formatVocab) rules() []keywordRule {
	return []keywordRule{
		{keyword: "format", kind: ruleTake, guard: guardString, compile: compileFormat},
		{kind: ruleIgnoreRest},
	}
}

func (formatVocab) init(ns *nodeState) any { return (*formatRec)(nil) }

func compileFormat(b *builder, ns *nodeState, acc any, v any) (any, error) {
	return &formatRec{name: v.(string)}, nil
}

func (formatVocab) finalize(b *builder, ns *nodeState, acc any) ([]record, error) {
	r, _ := acc.(*formatRec)
	if r == nil {
		return nil, nil
	}
	return []record{r}, nil
}

func (formatVocab) execute(e *evalCtx, rec record, v any) (any, Issues) {
	r := rec.(*formatRec)
	if !e.opt.StrictFormat {
		// annotate-only mode
		return v, nil
	}
	for _, c := range e.opt.checkers() {
		if !c.Supports(r.name) {
			continue
		}
		if !c.AppliesTo(r.name, v) {
			return v, nil
		}
		out, err := c.Validate(r.name, v)
		if err != nil {
			return v, Issues{e.issue("format", CodeInvalidFormat, map[string]any{"format": r.name}, v)}
		}
		if e.opt.Cast {
			return out, nil
		}
		return v, nil
	}
	// no checker claims the format: annotation only
	return v, nil
}

func (formatVocab) formatError(it Issue) string {
	return it.Path + ": " + it.Message
}
