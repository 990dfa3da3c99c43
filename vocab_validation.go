package skematic

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/cockroachdb/apd/v3"
	"github.com/reoring/skematic/internal/num"
)

// assertRec is the validation vocabulary's single compact record: all
// assertion keywords present at a schema node, finalized together.
type assertRec struct {
	types []string
	enum  []any
	konst *any

	min, max, exclMin, exclMax any // nil when absent
	multipleOf                 any

	minLen, maxLen *int64
	pattern        *patternMatch

	minItems, maxItems *int64
	uniqueItems        bool

	minProps, maxProps *int64
	required           []string
	depRequired        map[string][]string
	depRequiredKeys    []string
}

func (*assertRec) keyword() string { return "type" }

type patternMatch struct {
	src string
	re  Matcher
}

// validationVocab owns the assertion keywords.
type validationVocab struct{}

func (validationVocab) name() string  { return "validation" }
func (validationVocab) priority() int { return 20 }

func (validationVocab) rules() []keywordRule {
	return []keywordRule{
		{keyword: "type", kind: ruleTake, guard: guardType, compile: compileAssert("type")},
		{keyword: "enum", kind: ruleTake, guard: guardNonEmptyArray, compile: compileAssert("enum")},
		{keyword: "const", kind: ruleTake, compile: compileAssert("const")},
		{keyword: "minimum", kind: ruleTake, guard: guardNumber, compile: compileAssert("minimum")},
		{keyword: "maximum", kind: ruleTake, guard: guardNumber, compile: compileAssert("maximum")},
		{keyword: "exclusiveMinimum", kind: ruleTake, guard: guardNumber, compile: compileAssert("exclusiveMinimum")},
		{keyword: "exclusiveMaximum", kind: ruleTake, guard: guardNumber, compile: compileAssert("exclusiveMaximum")},
		{keyword: "multipleOf", kind: ruleTake, guard: guardNonZeroNumber, compile: compileAssert("multipleOf")},
		{keyword: "minLength", kind: ruleTake, guard: guardNonNegInt, compile: compileAssert("minLength")},
		{keyword: "maxLength", kind: ruleTake, guard: guardNonNegInt, compile: compileAssert("maxLength")},
		{keyword: "pattern", kind: ruleTake, guard: guardString, compile: compilePattern},
		{keyword: "minItems", kind: ruleTake, guard: guardNonNegInt, compile: compileAssert("minItems")},
		{keyword: "maxItems", kind: ruleTake, guard: guardNonNegInt, compile: compileAssert("maxItems")},
		{keyword: "uniqueItems", kind: ruleTake, guard: guardBool, compile: compileAssert("uniqueItems")},
		{keyword: "minProperties", kind: ruleTake, guard: guardNonNegInt, compile: compileAssert("minProperties")},
		{keyword: "maxProperties", kind: ruleTake, guard: guardNonNegInt, compile: compileAssert("maxProperties")},
		{keyword: "required", kind: ruleTake, guard: guardStringArray, compile: compileAssert("required")},
		{keyword: "dependentRequired", kind: ruleTake, guard: guardDependentRequired, compile: compileAssert("dependentRequired")},
		{kind: ruleIgnoreRest},
	}
}

func (validationVocab) init(ns *nodeState) any { return &assertRec{} }

func compileAssert(kw string) func(b *builder, ns *nodeState, acc any, v any) (any, error) {
	return func(b *builder, ns *nodeState, acc any, v any) (any, error) {
		r := acc.(*assertRec)
		switch kw {
		case "type":
			switch t := v.(type) {
			case string:
				r.types = []string{t}
			case []any:
				for _, el := range t {
					r.types = append(r.types, el.(string))
				}
			}
		case "enum":
			r.enum = v.([]any)
		case "const":
			r.konst = &v
		case "minimum":
			r.min = v
		case "maximum":
			r.max = v
		case "exclusiveMinimum":
			r.exclMin = v
		case "exclusiveMaximum":
			r.exclMax = v
		case "multipleOf":
			r.multipleOf = v
		case "minLength":
			n, _ := toInt64(v)
			r.minLen = &n
		case "maxLength":
			n, _ := toInt64(v)
			r.maxLen = &n
		case "minItems":
			n, _ := toInt64(v)
			r.minItems = &n
		case "maxItems":
			n, _ := toInt64(v)
			r.maxItems = &n
		case "uniqueItems":
			r.uniqueItems = v.(bool)
		case "minProperties":
			n, _ := toInt64(v)
			r.minProps = &n
		case "maxProperties":
			n, _ := toInt64(v)
			r.maxProps = &n
		case "required":
			for _, el := range v.([]any) {
				r.required = append(r.required, el.(string))
			}
			sort.Strings(r.required)
		case "dependentRequired":
			m := v.(map[string]any)
			r.depRequired = make(map[string][]string, len(m))
			for _, k := range sortedKeys(m) {
				var deps []string
				for _, el := range m[k].([]any) {
					deps = append(deps, el.(string))
				}
				r.depRequired[k] = deps
				r.depRequiredKeys = append(r.depRequiredKeys, k)
			}
		}
		return r, nil
	}
}

func compilePattern(b *builder, ns *nodeState, acc any, v any) (any, error) {
	r := acc.(*assertRec)
	src := v.(string)
	re, err := b.opt.regexp()(src)
	if err != nil {
		return r, fmt.Errorf("invalid pattern %q: %v", src, err)
	}
	r.pattern = &patternMatch{src: src, re: re}
	return r, nil
}

func (validationVocab) finalize(b *builder, ns *nodeState, acc any) ([]record, error) {
	r := acc.(*assertRec)
	if isEmptyAssert(r) {
		return nil, nil
	}
	return []record{r}, nil
}

func isEmptyAssert(r *assertRec) bool {
	return r.types == nil && r.enum == nil && r.konst == nil &&
		r.min == nil && r.max == nil && r.exclMin == nil && r.exclMax == nil &&
		r.multipleOf == nil && r.minLen == nil && r.maxLen == nil && r.pattern == nil &&
		r.minItems == nil && r.maxItems == nil && !r.uniqueItems &&
		r.minProps == nil && r.maxProps == nil && r.required == nil && r.depRequired == nil
}

func (validationVocab) execute(e *evalCtx, rec record, v any) (any, Issues) {
	r := rec.(*assertRec)
	out := v
	var iss Issues

	if len(r.types) > 0 {
		nv, it := checkType(e, r.types, v)
		if it != nil {
			return v, Issues{*it}
		}
		out = nv
	}

	if r.enum != nil {
		ok := false
		for _, allowed := range r.enum {
			if equalValue(out, allowed) {
				ok = true
				break
			}
		}
		if !ok {
			iss = AppendIssues(iss, e.issue("enum", CodeInvalidEnum, nil, v))
		}
	}
	if r.konst != nil && !equalValue(out, *r.konst) {
		iss = AppendIssues(iss, e.issue("const", CodeInvalidConst, nil, v))
	}
	if len(iss) > 0 && e.opt.FailFast {
		return v, iss
	}

	if num.IsNumber(out) {
		iss = AppendIssues(iss, checkNumeric(e, r, out)...)
	}
	if s, ok := out.(string); ok {
		iss = AppendIssues(iss, checkString(e, r, s)...)
	}
	if arr, ok := out.([]any); ok {
		iss = AppendIssues(iss, checkArray(e, r, arr)...)
	}
	if m, ok := out.(map[string]any); ok {
		iss = AppendIssues(iss, checkObject(e, r, m)...)
	}

	if len(iss) > 0 {
		return v, iss
	}
	return out, nil
}

// checkType verifies the instance against the allowed type names and applies
// the lossless integer coercion when cast mode is on: a whole-number float
// or fraction-free decimal under "integer" becomes a native int64.
func checkType(e *evalCtx, types []string, v any) (any, *Issue) {
	for _, t := range types {
		switch t {
		case "null":
			if v == nil {
				return v, nil
			}
		case "boolean":
			if _, ok := v.(bool); ok {
				return v, nil
			}
		case "string":
			if _, ok := v.(string); ok {
				return v, nil
			}
		case "array":
			if _, ok := v.([]any); ok {
				return v, nil
			}
		case "object":
			if _, ok := v.(map[string]any); ok {
				return v, nil
			}
		case "number":
			if num.IsNumber(v) {
				return v, nil
			}
		case "integer":
			if num.IsIntegral(v) {
				if e.opt.Cast {
					if i, ok := num.ToInt64(v); ok {
						return i, nil
					}
				}
				return v, nil
			}
		}
	}
	it := e.issue("type", CodeInvalidType, map[string]any{"want": types, "got": typeNameOf(v)}, v)
	return v, &it
}

func checkNumeric(e *evalCtx, r *assertRec, v any) Issues {
	var iss Issues
	if r.min != nil {
		if c, err := num.Compare(v, r.min); err == nil && c < 0 {
			iss = AppendIssues(iss, e.issue("minimum", CodeTooSmall, map[string]any{"limit": r.min, "got": v}, v))
		}
	}
	if r.exclMin != nil {
		if c, err := num.Compare(v, r.exclMin); err == nil && c <= 0 {
			iss = AppendIssues(iss, e.issue("exclusiveMinimum", CodeTooSmall, map[string]any{"limit": r.exclMin, "got": v}, v))
		}
	}
	if r.max != nil {
		if c, err := num.Compare(v, r.max); err == nil && c > 0 {
			iss = AppendIssues(iss, e.issue("maximum", CodeTooBig, map[string]any{"limit": r.max, "got": v}, v))
		}
	}
	if r.exclMax != nil {
		if c, err := num.Compare(v, r.exclMax); err == nil && c >= 0 {
			iss = AppendIssues(iss, e.issue("exclusiveMaximum", CodeTooBig, map[string]any{"limit": r.exclMax, "got": v}, v))
		}
	}
	if r.multipleOf != nil {
		ok, err := num.MultipleOf(v, r.multipleOf)
		switch {
		case errors.Is(err, num.ErrNonFinite):
			// caught at the keyword boundary and converted rather than
			// propagating (the documented numeric edge case)
			iss = AppendIssues(iss, e.issue("multipleOf", CodeArithmetic, map[string]any{"divisor": r.multipleOf}, v))
		case err == nil && !ok:
			iss = AppendIssues(iss, e.issue("multipleOf", CodeMultipleOf, map[string]any{"divisor": r.multipleOf}, v))
		}
	}
	return iss
}

func checkString(e *evalCtx, r *assertRec, s string) Issues {
	var iss Issues
	n := int64(utf8.RuneCountInString(s))
	if r.minLen != nil && n < *r.minLen {
		iss = AppendIssues(iss, e.issue("minLength", CodeTooShort, map[string]any{"limit": *r.minLen, "got": n}, s))
	}
	if r.maxLen != nil && n > *r.maxLen {
		iss = AppendIssues(iss, e.issue("maxLength", CodeTooLong, map[string]any{"limit": *r.maxLen, "got": n}, s))
	}
	if r.pattern != nil && !r.pattern.re.MatchString(s) {
		iss = AppendIssues(iss, e.issue("pattern", CodePattern, map[string]any{"pattern": r.pattern.src}, s))
	}
	return iss
}

func checkArray(e *evalCtx, r *assertRec, arr []any) Issues {
	var iss Issues
	n := int64(len(arr))
	if r.minItems != nil && n < *r.minItems {
		iss = AppendIssues(iss, e.issue("minItems", CodeTooFewItems, map[string]any{"limit": *r.minItems, "got": n}, arr))
	}
	if r.maxItems != nil && n > *r.maxItems {
		iss = AppendIssues(iss, e.issue("maxItems", CodeTooManyItems, map[string]any{"limit": *r.maxItems, "got": n}, arr))
	}
	if r.uniqueItems {
	outer:
		for i := 1; i < len(arr); i++ {
			for j := 0; j < i; j++ {
				if equalValue(arr[i], arr[j]) {
					iss = AppendIssues(iss, e.issue("uniqueItems", CodeUniqueItems, map[string]any{"first": j, "second": i}, arr))
					break outer
				}
			}
		}
	}
	return iss
}

func checkObject(e *evalCtx, r *assertRec, m map[string]any) Issues {
	var iss Issues
	n := int64(len(m))
	if r.minProps != nil && n < *r.minProps {
		iss = AppendIssues(iss, e.issue("minProperties", CodeTooFewProperties, map[string]any{"limit": *r.minProps, "got": n}, m))
	}
	if r.maxProps != nil && n > *r.maxProps {
		iss = AppendIssues(iss, e.issue("maxProperties", CodeTooManyProperties, map[string]any{"limit": *r.maxProps, "got": n}, m))
	}
	for _, k := range r.required {
		if _, ok := m[k]; !ok {
			iss = AppendIssues(iss, e.issue("required", CodeRequired, map[string]any{"key": k}, m))
			if e.opt.FailFast {
				return iss
			}
		}
	}
	for _, k := range r.depRequiredKeys {
		if _, present := m[k]; !present {
			continue
		}
		for _, dep := range r.depRequired[k] {
			if _, ok := m[dep]; !ok {
				iss = AppendIssues(iss, e.issue("dependentRequired", CodeDependentRequired, map[string]any{"key": dep, "when": k}, m))
			}
		}
	}
	return iss
}

func (validationVocab) formatError(it Issue) string {
	return it.Path + ": " + it.Message
}

// equalValue is deep JSON equality with exact cross-representation numeric
// comparison.
func equalValue(a, b any) bool {
	if num.IsNumber(a) && num.IsNumber(b) {
		return num.Equal(a, b)
	}
	switch ta := a.(type) {
	case map[string]any:
		tb, ok := b.(map[string]any)
		if !ok || len(ta) != len(tb) {
			return false
		}
		for k, va := range ta {
			vb, ok := tb[k]
			if !ok || !equalValue(va, vb) {
				return false
			}
		}
		return true
	case []any:
		tb, ok := b.([]any)
		if !ok || len(ta) != len(tb) {
			return false
		}
		for i := range ta {
			if !equalValue(ta[i], tb[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func typeNameOf(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case int, int32, int64, float64, json.Number, *apd.Decimal:
		if num.IsIntegral(t) {
			return "integer"
		}
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// ---- shape guards shared with the applicator vocabulary ----

func guardSchema(v any) error {
	switch v.(type) {
	case map[string]any, bool:
		return nil
	default:
		return fmt.Errorf("must be a schema (object or boolean), got %T", v)
	}
}

func guardBool(v any) error {
	if _, ok := v.(bool); !ok {
		return fmt.Errorf("must be a boolean, got %T", v)
	}
	return nil
}

func guardNumber(v any) error {
	if !num.IsNumber(v) {
		return fmt.Errorf("must be a number, got %T", v)
	}
	return nil
}

func guardNonZeroNumber(v any) error {
	if err := guardNumber(v); err != nil {
		return err
	}
	if num.Equal(v, int64(0)) {
		return fmt.Errorf("must not be zero")
	}
	return nil
}

func guardNonNegInt(v any) error {
	n, ok := toInt64(v)
	if !ok {
		return fmt.Errorf("must be a non-negative integer, got %T", v)
	}
	if n < 0 {
		return fmt.Errorf("must be a non-negative integer, got %d", n)
	}
	return nil
}

func guardType(v any) error {
	switch t := v.(type) {
	case string:
		return guardTypeName(t)
	case []any:
		if len(t) == 0 {
			return fmt.Errorf("must be a non-empty array or string")
		}
		for _, el := range t {
			s, ok := el.(string)
			if !ok {
				return fmt.Errorf("type entries must be strings, got %T", el)
			}
			if err := guardTypeName(s); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("must be a string or array of strings, got %T", v)
	}
}

func guardTypeName(s string) error {
	switch s {
	case "null", "boolean", "string", "number", "integer", "array", "object":
		return nil
	default:
		return fmt.Errorf("unknown type %q", s)
	}
}

func guardDependentRequired(v any) error {
	m, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("must be an object, got %T", v)
	}
	for k, val := range m {
		if err := guardStringArray(val); err != nil {
			return fmt.Errorf("dependency %q: %v", k, err)
		}
	}
	return nil
}

// toInt64 interprets a raw schema value as an integer regardless of the
// front-end's numeric representation.
func toInt64(v any) (int64, bool) {
	return num.ToInt64(v)
}
