package skematic_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/reoring/skematic"
)

func TestPatternAndAdditionalProperties(t *testing.T) {
	ctx := context.Background()
	s := mustCompile(t, map[string]any{
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
		},
		"patternProperties": map[string]any{
			"^x-": map[string]any{"type": "integer"},
		},
		"additionalProperties": false,
	})

	ok := map[string]any{"name": "a", "x-count": 3}
	if _, err := s.Validate(ctx, ok, skematic.ValidateOpt{}); err != nil {
		t.Fatalf("named and pattern-matched keys should pass: %v", err)
	}

	iss := mustIssues(t, errOf(s.Validate(ctx, map[string]any{"other": 1}, skematic.ValidateOpt{})))
	it, okc := findCode(iss, skematic.CodeAdditionalProperty)
	if !okc {
		t.Fatalf("expected additional_property, got %v", iss)
	}
	if it.Params["key"] != "other" {
		t.Errorf("rejected key = %v, want other", it.Params["key"])
	}

	iss = mustIssues(t, errOf(s.Validate(ctx, map[string]any{"x-count": "nope"}, skematic.ValidateOpt{})))
	if _, okc := findCode(iss, skematic.CodeInvalidProperty); !okc {
		t.Fatalf("pattern-matched key with bad value should fail: %v", iss)
	}
}

func TestSiblingCastThreading(t *testing.T) {
	ctx := context.Background()
	// the exact-name schema casts first; the pattern schema then sees the
	// already-cast value
	s := mustCompile(t, map[string]any{
		"properties": map[string]any{
			"n": map[string]any{"type": "integer"},
		},
		"patternProperties": map[string]any{
			"^n$": map[string]any{"minimum": 0},
		},
	})

	out, err := s.Validate(ctx, map[string]any{"n": json.Number("4")}, skematic.ValidateOpt{Cast: true})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got, ok := out.(map[string]any)["n"].(int64); !ok || got != 4 {
		t.Fatalf("threaded cast = %#v, want int64(4)", out.(map[string]any)["n"])
	}
}

func TestPropertyNames(t *testing.T) {
	ctx := context.Background()
	s := mustCompile(t, map[string]any{
		"propertyNames": map[string]any{"pattern": "^[a-z]+$"},
	})

	if _, err := s.Validate(ctx, map[string]any{"abc": 1}, skematic.ValidateOpt{}); err != nil {
		t.Fatalf("should pass: %v", err)
	}
	iss := mustIssues(t, errOf(s.Validate(ctx, map[string]any{"Bad-Key": 1}, skematic.ValidateOpt{})))
	it, ok := findCode(iss, skematic.CodePropertyName)
	if !ok {
		t.Fatalf("expected property_name, got %v", iss)
	}
	if it.Params["key"] != "Bad-Key" {
		t.Errorf("offending key = %v, want Bad-Key", it.Params["key"])
	}
}

func TestPrefixItemsAndItems(t *testing.T) {
	ctx := context.Background()
	s := mustCompile(t, map[string]any{
		"prefixItems": []any{map[string]any{"type": "string"}},
		"items":       map[string]any{"type": "number"},
	})

	if _, err := s.Validate(ctx, []any{"head", 1, 2}, skematic.ValidateOpt{}); err != nil {
		t.Fatalf("should pass: %v", err)
	}
	iss := mustIssues(t, errOf(s.Validate(ctx, []any{"head", "tail"}, skematic.ValidateOpt{})))
	it, ok := findCode(iss, skematic.CodeInvalidItem)
	if !ok {
		t.Fatalf("expected invalid_item, got %v", iss)
	}
	if it.Params["index"] != 1 {
		t.Errorf("failing index = %v, want 1", it.Params["index"])
	}
}

func TestContainsCounting(t *testing.T) {
	ctx := context.Background()
	s := mustCompile(t, map[string]any{
		"contains":    map[string]any{"type": "number"},
		"minContains": 2,
		"maxContains": 3,
	})

	if _, err := s.Validate(ctx, []any{1, "a", 2}, skematic.ValidateOpt{}); err != nil {
		t.Fatalf("two matches within [2,3] should pass: %v", err)
	}
	iss := mustIssues(t, errOf(s.Validate(ctx, []any{1, "a", 2, 3, 4}, skematic.ValidateOpt{})))
	if _, ok := findCode(iss, skematic.CodeContainsTooMany); !ok {
		t.Fatalf("four matches should exceed maxContains 3: %v", iss)
	}
	iss = mustIssues(t, errOf(s.Validate(ctx, []any{"a", 1}, skematic.ValidateOpt{})))
	if _, ok := findCode(iss, skematic.CodeContainsTooFew); !ok {
		t.Fatalf("one match should miss minContains 2: %v", iss)
	}
}

func TestContainsDefaultsToAtLeastOne(t *testing.T) {
	ctx := context.Background()
	s := mustCompile(t, map[string]any{
		"contains": map[string]any{"const": "needle"},
	})

	if _, err := s.Validate(ctx, []any{"hay", "needle"}, skematic.ValidateOpt{}); err != nil {
		t.Fatalf("should pass: %v", err)
	}
	mustIssues(t, errOf(s.Validate(ctx, []any{"hay"}, skematic.ValidateOpt{})))
}

func TestUnevaluatedProperties(t *testing.T) {
	ctx := context.Background()
	s := mustCompile(t, map[string]any{
		"properties":            map[string]any{"a": true},
		"unevaluatedProperties": false,
	})

	if _, err := s.Validate(ctx, map[string]any{"a": 1}, skematic.ValidateOpt{}); err != nil {
		t.Fatalf("evaluated key should pass: %v", err)
	}
	iss := mustIssues(t, errOf(s.Validate(ctx, map[string]any{"a": 1, "b": 2}, skematic.ValidateOpt{})))
	it, ok := findCode(iss, skematic.CodeUnevaluatedProperty)
	if !ok {
		t.Fatalf("expected unevaluated_property, got %v", iss)
	}
	if it.Params["key"] != "b" {
		t.Errorf("unevaluated key = %v, want b", it.Params["key"])
	}
}

func TestUnevaluatedPropertiesSeesCombinatorAnnotations(t *testing.T) {
	ctx := context.Background()
	s := mustCompile(t, map[string]any{
		"allOf": []any{
			map[string]any{"properties": map[string]any{"a": true}},
			map[string]any{"properties": map[string]any{"b": true}},
		},
		"unevaluatedProperties": false,
	})

	if _, err := s.Validate(ctx, map[string]any{"a": 1, "b": 2}, skematic.ValidateOpt{}); err != nil {
		t.Fatalf("keys evaluated across allOf branches should pass: %v", err)
	}
	mustIssues(t, errOf(s.Validate(ctx, map[string]any{"a": 1, "c": 3}, skematic.ValidateOpt{})))
}

func TestUnevaluatedPropertiesSchema(t *testing.T) {
	ctx := context.Background()
	// a non-boolean unevaluatedProperties schema validates the leftovers
	s := mustCompile(t, map[string]any{
		"properties":            map[string]any{"a": true},
		"unevaluatedProperties": map[string]any{"type": "string"},
	})

	if _, err := s.Validate(ctx, map[string]any{"a": 1, "b": "ok"}, skematic.ValidateOpt{}); err != nil {
		t.Fatalf("string leftovers should pass: %v", err)
	}
	mustIssues(t, errOf(s.Validate(ctx, map[string]any{"a": 1, "b": 2}, skematic.ValidateOpt{})))
}

func TestUnevaluatedItems(t *testing.T) {
	ctx := context.Background()
	s := mustCompile(t, map[string]any{
		"prefixItems":      []any{true},
		"unevaluatedItems": false,
	})

	if _, err := s.Validate(ctx, []any{1}, skematic.ValidateOpt{}); err != nil {
		t.Fatalf("fully evaluated array should pass: %v", err)
	}
	iss := mustIssues(t, errOf(s.Validate(ctx, []any{1, 2}, skematic.ValidateOpt{})))
	it, ok := findCode(iss, skematic.CodeUnevaluatedItem)
	if !ok {
		t.Fatalf("expected unevaluated_item, got %v", iss)
	}
	if it.Params["index"] != 1 {
		t.Errorf("unevaluated index = %v, want 1", it.Params["index"])
	}
}

func TestContainsMarksMatchedItemsEvaluated(t *testing.T) {
	ctx := context.Background()
	s := mustCompile(t, map[string]any{
		"contains":         map[string]any{"type": "number"},
		"unevaluatedItems": false,
	})

	if _, err := s.Validate(ctx, []any{1, 2}, skematic.ValidateOpt{}); err != nil {
		t.Fatalf("matched items count as evaluated: %v", err)
	}
	mustIssues(t, errOf(s.Validate(ctx, []any{1, "x"}, skematic.ValidateOpt{})))
}
