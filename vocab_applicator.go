package skematic

import (
	"fmt"
	"sort"
	"strconv"
)

// schemaListRec backs the branch combinators (allOf/anyOf/oneOf).
type schemaListRec struct {
	kw   string
	subs []Location
}

func (r *schemaListRec) keyword() string { return r.kw }

type notRec struct{ sub Location }

func (*notRec) keyword() string { return "not" }

// condRec merges if/then/else into one record; the keywords are only
// meaningful together.
type condRec struct {
	ifLoc   Location
	thenLoc *Location
	elseLoc *Location
}

func (*condRec) keyword() string { return "if" }

type patternProp struct {
	src string
	re  Matcher
	loc Location
}

// objShapeRec merges properties/patternProperties/additionalProperties:
// evaluating one requires knowing what the others already claimed.
type objShapeRec struct {
	props      map[string]Location
	propNames  []string // sorted, for deterministic iteration
	patterns   []patternProp
	additional *Location
}

func (*objShapeRec) keyword() string { return "properties" }

type propNamesRec struct{ sub Location }

func (*propNamesRec) keyword() string { return "propertyNames" }

// arrayRec merges prefixItems/items.
type arrayRec struct {
	prefix []Location
	items  *Location
}

func (*arrayRec) keyword() string { return "items" }

// containsRec merges contains/minContains/maxContains. max < 0 means no
// upper bound.
type containsRec struct {
	sub Location
	min int64
	max int64
}

func (*containsRec) keyword() string { return "contains" }

type depSchemasRec struct {
	keys []string
	locs map[string]Location
}

func (*depSchemasRec) keyword() string { return "dependentSchemas" }

type applicatorAcc struct {
	allOf, anyOf, oneOf []Location
	not                 *Location
	ifLoc               *Location
	thenLoc, elseLoc    *Location
	props               map[string]Location
	patterns            []patternProp
	additional          *Location
	propNames           *Location
	prefix              []Location
	items               *Location
	contains            *Location
	minContains         *int64
	maxContains         *int64
	depSchemas          map[string]Location
}

// applicatorVocab owns the combinators and the object/array composition
// keywords.
type applicatorVocab struct{}

func (applicatorVocab) name() string  { return "applicator" }
func (applicatorVocab) priority() int { return 10 }

func (applicatorVocab) rules() []keywordRule {
	return []keywordRule{
		{keyword: "allOf", kind: ruleTake, guard: guardNonEmptyArray, compile: compileBranchList("allOf")},
		{keyword: "anyOf", kind: ruleTake, guard: guardNonEmptyArray, compile: compileBranchList("anyOf")},
		{keyword: "oneOf", kind: ruleTake, guard: guardNonEmptyArray, compile: compileBranchList("oneOf")},
		{keyword: "not", kind: ruleTake, guard: guardSchema, compile: compileSingleSub("not")},
		{keyword: "if", kind: ruleTake, guard: guardSchema, compile: compileSingleSub("if")},
		{keyword: "then", kind: ruleTake, guard: guardSchema, compile: compileSingleSub("then")},
		{keyword: "else", kind: ruleTake, guard: guardSchema, compile: compileSingleSub("else")},
		{keyword: "properties", kind: ruleTake, guard: guardObject, compile: compileProperties},
		{keyword: "patternProperties", kind: ruleTake, guard: guardObject, compile: compilePatternProperties},
		{keyword: "additionalProperties", kind: ruleTake, guard: guardSchema, compile: compileSingleSub("additionalProperties")},
		{keyword: "propertyNames", kind: ruleTake, guard: guardSchema, compile: compileSingleSub("propertyNames")},
		{keyword: "prefixItems", kind: ruleTake, guard: guardNonEmptyArray, compile: compilePrefixItems},
		{keyword: "items", kind: ruleTake, guard: guardSchema, compile: compileSingleSub("items")},
		{keyword: "contains", kind: ruleTake, guard: guardSchema, compile: compileSingleSub("contains")},
		{keyword: "minContains", kind: ruleTake, guard: guardNonNegInt, compile: compileContainsBound("minContains")},
		{keyword: "maxContains", kind: ruleTake, guard: guardNonNegInt, compile: compileContainsBound("maxContains")},
		{keyword: "dependentSchemas", kind: ruleTake, guard: guardObject, compile: compileDependentSchemas},
		{kind: ruleIgnoreRest},
	}
}

func (applicatorVocab) init(ns *nodeState) any { return &applicatorAcc{} }

func compileBranchList(kw string) func(b *builder, ns *nodeState, acc any, v any) (any, error) {
	return func(b *builder, ns *nodeState, acc any, v any) (any, error) {
		a := acc.(*applicatorAcc)
		arr := v.([]any)
		subs := make([]Location, len(arr))
		for i, el := range arr {
			if err := guardSchema(el); err != nil {
				return a, fmt.Errorf("element %d: %v", i, err)
			}
			loc := ns.loc.ChildIndex(kw, i)
			b.stage(el, loc)
			subs[i] = loc
		}
		switch kw {
		case "allOf":
			a.allOf = subs
		case "anyOf":
			a.anyOf = subs
		case "oneOf":
			a.oneOf = subs
		}
		return a, nil
	}
}

func compileSingleSub(kw string) func(b *builder, ns *nodeState, acc any, v any) (any, error) {
	return func(b *builder, ns *nodeState, acc any, v any) (any, error) {
		a := acc.(*applicatorAcc)
		loc := ns.loc.Child(kw)
		b.stage(v, loc)
		switch kw {
		case "not":
			a.not = &loc
		case "if":
			a.ifLoc = &loc
		case "then":
			a.thenLoc = &loc
		case "else":
			a.elseLoc = &loc
		case "additionalProperties":
			a.additional = &loc
		case "propertyNames":
			a.propNames = &loc
		case "items":
			a.items = &loc
		case "contains":
			a.contains = &loc
		}
		return a, nil
	}
}

func compileProperties(b *builder, ns *nodeState, acc any, v any) (any, error) {
	a := acc.(*applicatorAcc)
	m := v.(map[string]any)
	a.props = make(map[string]Location, len(m))
	for _, name := range sortedKeys(m) {
		if err := guardSchema(m[name]); err != nil {
			return a, fmt.Errorf("property %q: %v", name, err)
		}
		loc := ns.loc.Child("properties", name)
		b.stage(m[name], loc)
		a.props[name] = loc
	}
	return a, nil
}

func compilePatternProperties(b *builder, ns *nodeState, acc any, v any) (any, error) {
	a := acc.(*applicatorAcc)
	m := v.(map[string]any)
	for _, src := range sortedKeys(m) {
		if err := guardSchema(m[src]); err != nil {
			return a, fmt.Errorf("pattern %q: %v", src, err)
		}
		re, err := b.opt.regexp()(src)
		if err != nil {
			return a, fmt.Errorf("invalid pattern %q: %v", src, err)
		}
		loc := ns.loc.Child("patternProperties", src)
		b.stage(m[src], loc)
		a.patterns = append(a.patterns, patternProp{src: src, re: re, loc: loc})
	}
	return a, nil
}

func compilePrefixItems(b *builder, ns *nodeState, acc any, v any) (any, error) {
	a := acc.(*applicatorAcc)
	arr := v.([]any)
	a.prefix = make([]Location, len(arr))
	for i, el := range arr {
		if err := guardSchema(el); err != nil {
			return a, fmt.Errorf("element %d: %v", i, err)
		}
		loc := ns.loc.ChildIndex("prefixItems", i)
		b.stage(el, loc)
		a.prefix[i] = loc
	}
	return a, nil
}

func compileContainsBound(kw string) func(b *builder, ns *nodeState, acc any, v any) (any, error) {
	return func(b *builder, ns *nodeState, acc any, v any) (any, error) {
		a := acc.(*applicatorAcc)
		n, _ := toInt64(v)
		if kw == "minContains" {
			a.minContains = &n
		} else {
			a.maxContains = &n
		}
		return a, nil
	}
}

func compileDependentSchemas(b *builder, ns *nodeState, acc any, v any) (any, error) {
	a := acc.(*applicatorAcc)
	m := v.(map[string]any)
	a.depSchemas = make(map[string]Location, len(m))
	for _, key := range sortedKeys(m) {
		if err := guardSchema(m[key]); err != nil {
			return a, fmt.Errorf("dependency %q: %v", key, err)
		}
		loc := ns.loc.Child("dependentSchemas", key)
		b.stage(m[key], loc)
		a.depSchemas[key] = loc
	}
	return a, nil
}

// finalize fixes the deterministic ordering of competing sub-validators:
// oneOf, anyOf, allOf, not, if/then/else, dependentSchemas, object shape,
// propertyNames, array shape, contains.
func (applicatorVocab) finalize(b *builder, ns *nodeState, acc any) ([]record, error) {
	a := acc.(*applicatorAcc)
	var recs []record
	if len(a.oneOf) > 0 {
		recs = append(recs, &schemaListRec{kw: "oneOf", subs: a.oneOf})
	}
	if len(a.anyOf) > 0 {
		recs = append(recs, &schemaListRec{kw: "anyOf", subs: a.anyOf})
	}
	if len(a.allOf) > 0 {
		recs = append(recs, &schemaListRec{kw: "allOf", subs: a.allOf})
	}
	if a.not != nil {
		recs = append(recs, &notRec{sub: *a.not})
	}
	if a.ifLoc != nil {
		recs = append(recs, &condRec{ifLoc: *a.ifLoc, thenLoc: a.thenLoc, elseLoc: a.elseLoc})
	}
	if a.depSchemas != nil {
		keys := make([]string, 0, len(a.depSchemas))
		for k := range a.depSchemas {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		recs = append(recs, &depSchemasRec{keys: keys, locs: a.depSchemas})
	}
	if a.props != nil || a.patterns != nil || a.additional != nil {
		names := make([]string, 0, len(a.props))
		for k := range a.props {
			names = append(names, k)
		}
		sort.Strings(names)
		recs = append(recs, &objShapeRec{props: a.props, propNames: names, patterns: a.patterns, additional: a.additional})
	}
	if a.propNames != nil {
		recs = append(recs, &propNamesRec{sub: *a.propNames})
	}
	if a.prefix != nil || a.items != nil {
		recs = append(recs, &arrayRec{prefix: a.prefix, items: a.items})
	}
	if a.contains != nil {
		cr := &containsRec{sub: *a.contains, min: 1, max: -1}
		if a.minContains != nil {
			cr.min = *a.minContains
		}
		if a.maxContains != nil {
			cr.max = *a.maxContains
		}
		recs = append(recs, cr)
	}
	return recs, nil
}

func (av applicatorVocab) execute(e *evalCtx, rec record, v any) (any, Issues) {
	switch r := rec.(type) {
	case *schemaListRec:
		return av.execBranches(e, r, v)
	case *notRec:
		return av.execNot(e, r, v)
	case *condRec:
		return av.execCond(e, r, v)
	case *depSchemasRec:
		return av.execDepSchemas(e, r, v)
	case *objShapeRec:
		return av.execObjShape(e, r, v)
	case *propNamesRec:
		return av.execPropNames(e, r, v)
	case *arrayRec:
		return av.execArray(e, r, v)
	case *containsRec:
		return av.execContains(e, r, v)
	}
	return v, nil
}

// execBranches validates every sub-schema against the original instance in a
// detached context. allOf requires all to accept, anyOf at least one, oneOf
// exactly one; two-or-more oneOf acceptances is a distinct over-match error
// identifying the matching branches.
func (applicatorVocab) execBranches(e *evalCtx, r *schemaListRec, v any) (any, Issues) {
	var accepted []int
	var firstOut any
	var acceptedCtxs []*evalCtx
	var rejections Issues
	for i, sub := range r.subs {
		det := e.detach(r.kw, indexSeg(i))
		out, iss := det.validateAt(sub, v)
		if len(iss) == 0 {
			if len(accepted) == 0 {
				firstOut = out
			}
			accepted = append(accepted, i)
			acceptedCtxs = append(acceptedCtxs, det)
			if r.kw == "anyOf" {
				// first accepting branch wins; later branches are not tried
				e.merge(det)
				return out, nil
			}
		} else {
			rejections = append(rejections, e.nestedIssue(r.kw, branchCode(r.kw), map[string]any{"branch": i}, v, iss))
		}
	}
	switch r.kw {
	case "allOf":
		if len(rejections) > 0 {
			return v, Issues{e.nestedIssue("allOf", CodeAllOf, nil, v, rejections)}
		}
		for _, det := range acceptedCtxs {
			e.merge(det)
		}
		return firstOut, nil
	case "anyOf":
		return v, Issues{e.nestedIssue("anyOf", CodeAnyOf, nil, v, rejections)}
	default: // oneOf
		switch len(accepted) {
		case 1:
			e.merge(acceptedCtxs[0])
			return firstOut, nil
		case 0:
			return v, Issues{e.nestedIssue("oneOf", CodeOneOfNoMatch, nil, v, rejections)}
		default:
			branches := make([]string, len(accepted))
			for i, idx := range accepted {
				branches[i] = r.subs[idx].String()
			}
			return v, Issues{e.issue("oneOf", CodeOneOfManyMatch, map[string]any{"branches": branches}, v)}
		}
	}
}

func branchCode(kw string) string {
	switch kw {
	case "allOf":
		return CodeAllOf
	case "anyOf":
		return CodeAnyOf
	default:
		return CodeOneOfNoMatch
	}
}

func (applicatorVocab) execNot(e *evalCtx, r *notRec, v any) (any, Issues) {
	det := e.detach("not")
	if _, iss := det.validateAt(r.sub, v); len(iss) == 0 {
		return v, Issues{e.issue("not", CodeNot, nil, v)}
	}
	// the accepted instance is the original; no coercion path through not
	return v, nil
}

// execCond validates the if branch in a detached context; its annotations are
// merged back only when the branch decides "then".
func (applicatorVocab) execCond(e *evalCtx, r *condRec, v any) (any, Issues) {
	det := e.detach("if")
	ifOut, ifIss := det.validateAt(r.ifLoc, v)
	if len(ifIss) == 0 {
		e.merge(det)
		if r.thenLoc == nil {
			return ifOut, nil
		}
		sub := e.detach("then")
		out, iss := sub.validateAt(*r.thenLoc, ifOut)
		if len(iss) > 0 {
			return v, Issues{e.nestedIssue("then", CodeConditional, nil, v, iss)}
		}
		e.merge(sub)
		return out, nil
	}
	if r.elseLoc == nil {
		return v, nil
	}
	sub := e.detach("else")
	out, iss := sub.validateAt(*r.elseLoc, v)
	if len(iss) > 0 {
		return v, Issues{e.nestedIssue("else", CodeConditional, nil, v, iss)}
	}
	e.merge(sub)
	return out, nil
}

func (applicatorVocab) execDepSchemas(e *evalCtx, r *depSchemasRec, v any) (any, Issues) {
	m, ok := v.(map[string]any)
	if !ok {
		return v, nil
	}
	out := v
	var iss Issues
	for _, key := range r.keys {
		if _, present := m[key]; !present {
			continue
		}
		sub := e.detach("dependentSchemas", key)
		nv, i2 := sub.validateAt(r.locs[key], out)
		if len(i2) > 0 {
			iss = AppendIssues(iss, e.nestedIssue("dependentSchemas", CodeDependentSchema, map[string]any{"key": key}, v, i2))
			if e.opt.FailFast {
				return v, iss
			}
			continue
		}
		e.merge(sub)
		out = nv
	}
	if len(iss) > 0 {
		return v, iss
	}
	return out, nil
}

// execObjShape applies, per instance key, the exact name match, every
// matching pattern, and additionalProperties only when neither applied; the
// value threads through the checks in that order so an earlier cast feeds
// the next check (first-sibling-wins). Keys any check touched are recorded
// as evaluated.
func (applicatorVocab) execObjShape(e *evalCtx, r *objShapeRec, v any) (any, Issues) {
	m, ok := v.(map[string]any)
	if !ok {
		return v, nil
	}
	out := make(map[string]any, len(m))
	for k, val := range m {
		out[k] = val
	}
	var iss Issues
	for _, k := range sortedKeys(m) {
		val := out[k]
		evaluated := false
		failed := false
		if loc, named := r.props[k]; named {
			c := e.child(k, "properties", k)
			nv, i2 := c.validateAt(loc, val)
			if len(i2) > 0 {
				iss = AppendIssues(iss, e.nestedIssue("properties", CodeInvalidProperty, map[string]any{"key": k}, v, i2))
				failed = true
			} else {
				val = nv
			}
			evaluated = true
		}
		if !failed {
			for _, pp := range r.patterns {
				if !pp.re.MatchString(k) {
					continue
				}
				c := e.child(k, "patternProperties", pp.src)
				nv, i2 := c.validateAt(pp.loc, val)
				if len(i2) > 0 {
					iss = AppendIssues(iss, e.nestedIssue("patternProperties", CodeInvalidProperty, map[string]any{"key": k, "pattern": pp.src}, v, i2))
					failed = true
					break
				}
				val = nv
				evaluated = true
			}
		}
		if !failed && !evaluated && r.additional != nil {
			c := e.child(k, "additionalProperties")
			nv, i2 := c.validateAt(*r.additional, val)
			if len(i2) > 0 {
				iss = AppendIssues(iss, e.nestedIssue("additionalProperties", CodeAdditionalProperty, map[string]any{"key": k}, v, i2))
				failed = true
			} else {
				val = nv
				evaluated = true
			}
		}
		if evaluated && !failed {
			e.markProp(k)
			out[k] = val
		}
		if failed && e.opt.FailFast {
			return v, iss
		}
	}
	if len(iss) > 0 {
		return v, iss
	}
	return out, nil
}

func (applicatorVocab) execPropNames(e *evalCtx, r *propNamesRec, v any) (any, Issues) {
	m, ok := v.(map[string]any)
	if !ok {
		return v, nil
	}
	var iss Issues
	for _, k := range sortedKeys(m) {
		det := e.detach("propertyNames")
		if _, i2 := det.validateAt(r.sub, k); len(i2) > 0 {
			iss = AppendIssues(iss, e.nestedIssue("propertyNames", CodePropertyName, map[string]any{"key": k}, v, i2))
			if e.opt.FailFast {
				return v, iss
			}
		}
	}
	if len(iss) > 0 {
		return v, iss
	}
	// the instance itself is unchanged regardless of per-key outcomes
	return v, nil
}

// execArray pairs each index with prefixItems[index] while one exists, then
// falls back to items; indices without a schema pass through unevaluated.
func (applicatorVocab) execArray(e *evalCtx, r *arrayRec, v any) (any, Issues) {
	arr, ok := v.([]any)
	if !ok {
		return v, nil
	}
	out := make([]any, len(arr))
	copy(out, arr)
	var iss Issues
	for i, el := range out {
		var loc Location
		var kwSegs []string
		switch {
		case i < len(r.prefix):
			loc = r.prefix[i]
			kwSegs = []string{"prefixItems", strconv.Itoa(i)}
		case r.items != nil:
			loc = *r.items
			kwSegs = []string{"items"}
		default:
			continue
		}
		c := e.child(indexSeg(i), kwSegs...)
		nv, i2 := c.validateAt(loc, el)
		if len(i2) > 0 {
			iss = AppendIssues(iss, e.nestedIssue(kwSegs[0], CodeInvalidItem, map[string]any{"index": i}, v, i2))
			if e.opt.FailFast {
				return v, iss
			}
			continue
		}
		out[i] = nv
		e.markItem(i)
	}
	if len(iss) > 0 {
		return v, iss
	}
	return out, nil
}

// execContains scans every item, counting acceptances without rejecting on
// per-item mismatch, and checks the count against [min, max].
func (applicatorVocab) execContains(e *evalCtx, r *containsRec, v any) (any, Issues) {
	arr, ok := v.([]any)
	if !ok {
		return v, nil
	}
	var count int64
	var matched []int
	for i, el := range arr {
		c := e.child(indexSeg(i), "contains")
		if _, i2 := c.validateAt(r.sub, el); len(i2) == 0 {
			count++
			matched = append(matched, i)
		}
	}
	if count < r.min {
		return v, Issues{e.issue("contains", CodeContainsTooFew, map[string]any{"limit": r.min, "got": count}, v)}
	}
	if r.max >= 0 && count > r.max {
		return v, Issues{e.issue("contains", CodeContainsTooMany, map[string]any{"limit": r.max, "got": count}, v)}
	}
	for _, i := range matched {
		e.markItem(i)
	}
	return v, nil
}

func (applicatorVocab) formatError(it Issue) string {
	if it.Code == CodeOneOfManyMatch {
		return fmt.Sprintf("%s: %s (branches %v)", it.Path, it.Message, it.Params["branches"])
	}
	return it.Path + ": " + it.Message
}
