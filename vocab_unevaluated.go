package skematic

// unevaluatedRec merges unevaluatedProperties/unevaluatedItems for one
// schema node.
type unevaluatedRec struct {
	props *Location
	items *Location
}

func (*unevaluatedRec) keyword() string { return "unevaluatedProperties" }

// unevaluatedVocab runs last at every schema node (highest priority number):
// it must observe the evaluated sets accumulated by every other keyword at
// the same level, including annotations merged in from $ref targets and
// combinator branches.
type unevaluatedVocab struct{}

func (unevaluatedVocab) name() string  { return "unevaluated" }
func (unevaluatedVocab) priority() int { return 100 }

func (unevaluatedVocab) rules() []keywordRule {
	return []keywordRule{
		{keyword: "unevaluatedProperties", kind: ruleTake, guard: guardSchema, compile: compileUnevaluated("unevaluatedProperties")},
		{keyword: "unevaluatedItems", kind: ruleTake, guard: guardSchema, compile: compileUnevaluated("unevaluatedItems")},
		{kind: ruleIgnoreRest},
	}
}

func (unevaluatedVocab) init(ns *nodeState) any { return &unevaluatedRec{} }

func compileUnevaluated(kw string) func(b *builder, ns *nodeState, acc any, v any) (any, error) {
	return func(b *builder, ns *nodeState, acc any, v any) (any, error) {
		r := acc.(*unevaluatedRec)
		loc := ns.loc.Child(kw)
		b.stage(v, loc)
		if kw == "unevaluatedProperties" {
			r.props = &loc
		} else {
			r.items = &loc
		}
		return r, nil
	}
}

func (unevaluatedVocab) finalize(b *builder, ns *nodeState, acc any) ([]record, error) {
	r := acc.(*unevaluatedRec)
	if r.props == nil && r.items == nil {
		return nil, nil
	}
	return []record{r}, nil
}

func (unevaluatedVocab) execute(e *evalCtx, rec record, v any) (any, Issues) {
	r := rec.(*unevaluatedRec)
	out := v
	var iss Issues
	if m, ok := out.(map[string]any); ok && r.props != nil {
		cp := make(map[string]any, len(m))
		for k, val := range m {
			cp[k] = val
		}
		for _, k := range sortedKeys(m) {
			if e.hasProp(k) {
				continue
			}
			c := e.child(k, "unevaluatedProperties")
			nv, i2 := c.validateAt(*r.props, cp[k])
			if len(i2) > 0 {
				iss = AppendIssues(iss, e.nestedIssue("unevaluatedProperties", CodeUnevaluatedProperty, map[string]any{"key": k}, v, i2))
				if e.opt.FailFast {
					return v, iss
				}
				continue
			}
			cp[k] = nv
			e.markProp(k)
		}
		if len(iss) == 0 {
			out = cp
		}
	}
	if arr, ok := out.([]any); ok && r.items != nil {
		cp := make([]any, len(arr))
		copy(cp, arr)
		for i, el := range cp {
			if e.hasItem(i) {
				continue
			}
			c := e.child(indexSeg(i), "unevaluatedItems")
			nv, i2 := c.validateAt(*r.items, el)
			if len(i2) > 0 {
				iss = AppendIssues(iss, e.nestedIssue("unevaluatedItems", CodeUnevaluatedItem, map[string]any{"index": i}, v, i2))
				if e.opt.FailFast {
					return v, iss
				}
				continue
			}
			cp[i] = nv
			e.markItem(i)
		}
		if len(iss) == 0 {
			out = cp
		}
	}
	if len(iss) > 0 {
		return v, iss
	}
	return out, nil
}

func (unevaluatedVocab) formatError(it Issue) string {
	return it.Path + ": " + it.Message
}
