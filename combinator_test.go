package skematic_test

import (
	"context"
	"testing"

	"github.com/reoring/skematic"
)

func TestAllOf(t *testing.T) {
	ctx := context.Background()
	s := mustCompile(t, map[string]any{
		"allOf": []any{
			map[string]any{"type": "object", "required": []any{"a"}},
			map[string]any{"required": []any{"b"}},
		},
	})

	if _, err := s.Validate(ctx, map[string]any{"a": 1, "b": 2}, skematic.ValidateOpt{}); err != nil {
		t.Fatalf("both branches satisfied, should pass: %v", err)
	}
	iss := mustIssues(t, errOf(s.Validate(ctx, map[string]any{"a": 1}, skematic.ValidateOpt{})))
	if _, ok := findCode(iss, skematic.CodeAllOf); !ok {
		t.Fatalf("expected all_of, got %v", iss)
	}
	if _, ok := findCode(iss, skematic.CodeRequired); !ok {
		t.Fatalf("branch rejection should carry the nested required issue: %v", iss)
	}
}

func TestAnyOfCommitsFirstAcceptingBranch(t *testing.T) {
	ctx := context.Background()
	s := mustCompile(t, map[string]any{
		"anyOf": []any{
			map[string]any{"type": "integer"},
			map[string]any{"type": "number"},
		},
	})

	// both branches would accept 2.0; the first one decides the result
	out, err := s.Validate(ctx, float64(2.0), skematic.ValidateOpt{Cast: true})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got, ok := out.(int64); !ok || got != 2 {
		t.Fatalf("first branch's coercion should win, got %#v", out)
	}

	iss := mustIssues(t, errOf(s.Validate(ctx, "x", skematic.ValidateOpt{})))
	if _, ok := findCode(iss, skematic.CodeAnyOf); !ok {
		t.Fatalf("expected any_of, got %v", iss)
	}
}

func TestOneOfExclusivity(t *testing.T) {
	ctx := context.Background()
	s := mustCompile(t, map[string]any{
		"oneOf": []any{
			map[string]any{"type": "string"},
			map[string]any{"type": "number"},
		},
	})

	if _, err := s.Validate(ctx, "x", skematic.ValidateOpt{}); err != nil {
		t.Fatalf("exactly one branch matches, should pass: %v", err)
	}
	iss := mustIssues(t, errOf(s.Validate(ctx, true, skematic.ValidateOpt{})))
	if _, ok := findCode(iss, skematic.CodeOneOfNoMatch); !ok {
		t.Fatalf("expected one_of_no_match, got %v", iss)
	}
}

func TestOneOfOverMatchNamesBranches(t *testing.T) {
	ctx := context.Background()
	s := mustCompile(t, map[string]any{
		"oneOf": []any{
			map[string]any{"type": "string"},
			map[string]any{"minLength": 1},
		},
	})

	iss := mustIssues(t, errOf(s.Validate(ctx, "a", skematic.ValidateOpt{})))
	it, ok := findCode(iss, skematic.CodeOneOfManyMatch)
	if !ok {
		t.Fatalf("expected one_of_many_match, got %v", iss)
	}
	branches, ok := it.Params["branches"].([]string)
	if !ok || len(branches) != 2 {
		t.Fatalf("over-match should name both matching branches, got %v", it.Params["branches"])
	}
}

func TestNot(t *testing.T) {
	ctx := context.Background()
	s := mustCompile(t, map[string]any{"not": map[string]any{"type": "string"}})

	if _, err := s.Validate(ctx, 5, skematic.ValidateOpt{}); err != nil {
		t.Fatalf("non-string should pass: %v", err)
	}
	iss := mustIssues(t, errOf(s.Validate(ctx, "x", skematic.ValidateOpt{})))
	if _, ok := findCode(iss, skematic.CodeNot); !ok {
		t.Fatalf("expected not, got %v", iss)
	}
}

func TestConditional(t *testing.T) {
	ctx := context.Background()
	s := mustCompile(t, map[string]any{
		"if": map[string]any{
			"properties": map[string]any{"kind": map[string]any{"const": "card"}},
			"required":   []any{"kind"},
		},
		"then": map[string]any{"required": []any{"number"}},
		"else": map[string]any{"required": []any{"iban"}},
	})

	cases := []struct {
		name string
		inst map[string]any
		ok   bool
	}{
		{"then satisfied", map[string]any{"kind": "card", "number": "4111"}, true},
		{"then violated", map[string]any{"kind": "card"}, false},
		{"else satisfied", map[string]any{"kind": "sepa", "iban": "DE89"}, true},
		{"else violated", map[string]any{"kind": "sepa"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Validate(ctx, tc.inst, skematic.ValidateOpt{})
			if tc.ok && err != nil {
				t.Fatalf("should pass: %v", err)
			}
			if !tc.ok {
				iss := mustIssues(t, err)
				if _, ok := findCode(iss, skematic.CodeConditional); !ok {
					t.Fatalf("expected conditional, got %v", iss)
				}
			}
		})
	}
}

func TestConditionalHalvesAreOptional(t *testing.T) {
	ctx := context.Background()
	// no else: instances failing the condition pass outright
	s := mustCompile(t, map[string]any{
		"if":   map[string]any{"type": "string"},
		"then": map[string]any{"minLength": 2},
	})

	if _, err := s.Validate(ctx, 5, skematic.ValidateOpt{}); err != nil {
		t.Fatalf("non-string should pass without else: %v", err)
	}
	if _, err := s.Validate(ctx, "ab", skematic.ValidateOpt{}); err != nil {
		t.Fatalf("should pass: %v", err)
	}
	mustIssues(t, errOf(s.Validate(ctx, "a", skematic.ValidateOpt{})))
}

func TestDependentSchemas(t *testing.T) {
	ctx := context.Background()
	s := mustCompile(t, map[string]any{
		"dependentSchemas": map[string]any{
			"credit": map[string]any{"required": []any{"billing"}},
		},
	})

	if _, err := s.Validate(ctx, map[string]any{"credit": 1, "billing": 2}, skematic.ValidateOpt{}); err != nil {
		t.Fatalf("dependency satisfied, should pass: %v", err)
	}
	if _, err := s.Validate(ctx, map[string]any{"x": 1}, skematic.ValidateOpt{}); err != nil {
		t.Fatalf("absent trigger key, should pass: %v", err)
	}
	iss := mustIssues(t, errOf(s.Validate(ctx, map[string]any{"credit": 1}, skematic.ValidateOpt{})))
	it, ok := findCode(iss, skematic.CodeDependentSchema)
	if !ok {
		t.Fatalf("expected dependent_schema, got %v", iss)
	}
	if it.Params["key"] != "credit" {
		t.Errorf("trigger key = %v, want credit", it.Params["key"])
	}
}

func TestRejectedBranchLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	// the failing anyOf branch evaluates "a"; its annotation must not leak
	// into the unevaluatedProperties check
	s := mustCompile(t, map[string]any{
		"anyOf": []any{
			map[string]any{
				"properties": map[string]any{"a": map[string]any{"type": "string"}},
			},
			map[string]any{"type": "object"},
		},
		"unevaluatedProperties": false,
	})

	iss := mustIssues(t, errOf(s.Validate(ctx, map[string]any{"a": 1}, skematic.ValidateOpt{})))
	it, ok := findCode(iss, skematic.CodeUnevaluatedProperty)
	if !ok {
		t.Fatalf("expected unevaluated_property, got %v", iss)
	}
	if it.Params["key"] != "a" {
		t.Errorf("leaked key = %v, want a", it.Params["key"])
	}
}
