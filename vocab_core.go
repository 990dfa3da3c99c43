package skematic

import (
	"fmt"
	"sort"
)

// refRecord is the compiled form of $ref/$dynamicRef. The target location is
// filled in lazily during builder.finish; dynamic entries re-resolve their
// anchor against the runtime dynamic scope chain.
type refRecord struct {
	kw       string
	ref      Ref
	at       Location
	target   Location
	anchor   string
	dynamic  bool
	resolved bool
}

func (r *refRecord) keyword() string { return r.kw }

type coreAcc struct {
	refs []*refRecord
}

// coreVocab owns the reference and identity keywords. It runs first so that
// reference-following precedes structural assertions.
type coreVocab struct{}

func (coreVocab) name() string  { return "core" }
func (coreVocab) priority() int { return 0 }

func (coreVocab) rules() []keywordRule {
	return []keywordRule{
		{keyword: "$ref", kind: ruleTake, guard: guardString, compile: compileRef("$ref")},
		{keyword: "$dynamicRef", kind: ruleTake, guard: guardString, compile: compileRef("$dynamicRef")},
		{keyword: "$defs", kind: ruleTake, guard: guardObject, compile: compileDefs},
		// identity keywords are registered by the builder's resource scan;
		// the dispatch loop only needs to claim them.
		{keyword: "$id", kind: ruleConsume},
		{keyword: "$anchor", kind: ruleConsume},
		{keyword: "$dynamicAnchor", kind: ruleConsume},
		{keyword: "$schema", kind: ruleConsume},
		{keyword: "$vocabulary", kind: ruleConsume},
		{keyword: "$comment", kind: ruleConsume},
		{kind: ruleIgnoreRest},
	}
}

func (coreVocab) init(ns *nodeState) any { return &coreAcc{} }

func compileRef(kw string) func(b *builder, ns *nodeState, acc any, v any) (any, error) {
	return func(b *builder, ns *nodeState, acc any, v any) (any, error) {
		ref, err := parseRef(v.(string), ns.loc.Base)
		if err != nil {
			return acc, err
		}
		r := &refRecord{kw: kw, ref: ref, at: ns.loc}
		b.refs = append(b.refs, r)
		a := acc.(*coreAcc)
		a.refs = append(a.refs, r)
		return a, nil
	}
}

func compileDefs(b *builder, ns *nodeState, acc any, v any) (any, error) {
	defs := v.(map[string]any)
	for _, name := range sortedKeys(defs) {
		b.stage(defs[name], ns.loc.Child("$defs", name))
	}
	return acc, nil
}

func (coreVocab) finalize(b *builder, ns *nodeState, acc any) ([]record, error) {
	a := acc.(*coreAcc)
	if len(a.refs) == 0 {
		return nil, nil
	}
	recs := make([]record, len(a.refs))
	for i, r := range a.refs {
		recs[i] = r
	}
	return recs, nil
}

func (coreVocab) execute(e *evalCtx, rec record, v any) (any, Issues) {
	r := rec.(*refRecord)
	target := r.target
	if r.dynamic {
		target = e.resolveDynamic(r.anchor, r.target)
	}
	sub := e.detach(r.kw)
	out, iss := sub.validateAt(target, v)
	if len(iss) > 0 {
		return v, Issues{e.nestedIssue(r.kw, CodeRefFailed, map[string]any{"target": target.String()}, v, iss)}
	}
	e.merge(sub)
	return out, nil
}

func (coreVocab) formatError(it Issue) string {
	return it.Path + ": " + it.Message
}

// ---- shared guards and helpers ----

func guardString(v any) error {
	if _, ok := v.(string); !ok {
		return fmt.Errorf("must be a string, got %T", v)
	}
	return nil
}

func guardObject(v any) error {
	if _, ok := v.(map[string]any); !ok {
		return fmt.Errorf("must be an object, got %T", v)
	}
	return nil
}

func guardNonEmptyArray(v any) error {
	arr, ok := v.([]any)
	if !ok {
		return fmt.Errorf("must be an array, got %T", v)
	}
	if len(arr) == 0 {
		return fmt.Errorf("must be a non-empty array")
	}
	return nil
}

func guardStringArray(v any) error {
	arr, ok := v.([]any)
	if !ok {
		return fmt.Errorf("must be an array, got %T", v)
	}
	for i, el := range arr {
		if _, ok := el.(string); !ok {
			return fmt.Errorf("element %d must be a string, got %T", i, el)
		}
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
