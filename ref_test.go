package skematic_test

import (
	"context"
	"testing"

	"github.com/reoring/skematic"
)

func TestRefPointer(t *testing.T) {
	ctx := context.Background()
	s := mustCompile(t, map[string]any{
		"$defs": map[string]any{
			"name": map[string]any{"type": "string", "minLength": 1},
		},
		"$ref": "#/$defs/name",
	})

	if _, err := s.Validate(ctx, "alice", skematic.ValidateOpt{}); err != nil {
		t.Fatalf("should pass: %v", err)
	}
	iss := mustIssues(t, errOf(s.Validate(ctx, 5, skematic.ValidateOpt{})))
	it, ok := findCode(iss, skematic.CodeRefFailed)
	if !ok {
		t.Fatalf("expected ref_failed, got %v", iss)
	}
	if _, ok := findCode(it.Nested, skematic.CodeInvalidType); !ok {
		t.Fatalf("ref failure should nest the target's issues: %v", it.Nested)
	}
}

func TestRefAnchor(t *testing.T) {
	ctx := context.Background()
	s := mustCompile(t, map[string]any{
		"$defs": map[string]any{
			"id": map[string]any{"$anchor": "ident", "type": "string"},
		},
		"$ref": "#ident",
	})

	if _, err := s.Validate(ctx, "x", skematic.ValidateOpt{}); err != nil {
		t.Fatalf("anchor reference should resolve: %v", err)
	}
	mustIssues(t, errOf(s.Validate(ctx, 1, skematic.ValidateOpt{})))
}

func TestSelfReferentialSchema(t *testing.T) {
	ctx := context.Background()
	s := mustCompile(t, map[string]any{
		"$defs": map[string]any{
			"node": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"val":  map[string]any{"type": "integer"},
					"next": map[string]any{"$ref": "#/$defs/node"},
				},
				"required": []any{"val"},
			},
		},
		"$ref": "#/$defs/node",
	})

	inst := map[string]any{
		"val": 1,
		"next": map[string]any{
			"val": 2,
			"next": map[string]any{"val": 3},
		},
	}
	if _, err := s.Validate(ctx, inst, skematic.ValidateOpt{}); err != nil {
		t.Fatalf("recursive instance should pass: %v", err)
	}

	bad := map[string]any{"val": 1, "next": map[string]any{}}
	iss := mustIssues(t, errOf(s.Validate(ctx, bad, skematic.ValidateOpt{})))
	it, ok := findCode(iss, skematic.CodeRequired)
	if !ok {
		t.Fatalf("expected nested required, got %v", iss)
	}
	if it.Path != "/next" {
		t.Errorf("issue path = %q, want /next", it.Path)
	}
}

func TestRefMergesAnnotations(t *testing.T) {
	ctx := context.Background()
	// keys evaluated inside the referenced schema count at the referencing node
	s := mustCompile(t, map[string]any{
		"$defs": map[string]any{
			"base": map[string]any{
				"properties": map[string]any{"a": true},
			},
		},
		"$ref":                  "#/$defs/base",
		"unevaluatedProperties": false,
	})

	if _, err := s.Validate(ctx, map[string]any{"a": 1}, skematic.ValidateOpt{}); err != nil {
		t.Fatalf("key evaluated through the ref should pass: %v", err)
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

func TestExternalRefThroughLoader(t *testing.T) {
	ctx := context.Background()
	loader := skematic.MapLoader{
		"mem://types": map[string]any{
			"$defs": map[string]any{
				"port": map[string]any{"type": "integer", "minimum": 1, "maximum": 65535},
			},
		},
	}
	s, err := skematic.Compile(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"port": map[string]any{"$ref": "mem://types#/$defs/port"},
		},
	}, skematic.CompileOpt{Loader: loader})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	if _, err := s.Validate(ctx, map[string]any{"port": 8080}, skematic.ValidateOpt{}); err != nil {
		t.Fatalf("should pass: %v", err)
	}
	iss := mustIssues(t, errOf(s.Validate(ctx, map[string]any{"port": 0}, skematic.ValidateOpt{})))
	if _, ok := findCode(iss, skematic.CodeTooSmall); !ok {
		t.Fatalf("expected too_small from the external schema, got %v", iss)
	}
}

func TestEmbeddedResource(t *testing.T) {
	ctx := context.Background()
	s := mustCompile(t, map[string]any{
		"$id": "mem://root",
		"$defs": map[string]any{
			"sub": map[string]any{
				"$id":  "mem://embedded",
				"type": "string",
			},
		},
		"$ref": "mem://embedded",
	})

	if _, err := s.Validate(ctx, "x", skematic.ValidateOpt{}); err != nil {
		t.Fatalf("embedded resource should resolve by its own base: %v", err)
	}
	mustIssues(t, errOf(s.Validate(ctx, 1, skematic.ValidateOpt{})))
}

func TestDynamicRefPrefersInnermostScope(t *testing.T) {
	ctx := context.Background()
	inner := map[string]any{
		"$id": "mem://inner",
		"$defs": map[string]any{
			"it": map[string]any{"$dynamicAnchor": "items", "type": "number"},
		},
		"type":  "array",
		"items": map[string]any{"$dynamicRef": "#items"},
	}
	outer := map[string]any{
		"$id": "mem://outer",
		"$defs": map[string]any{
			"it": map[string]any{"$dynamicAnchor": "items", "type": "string"},
		},
		"$ref": "mem://inner",
	}

	s, err := skematic.Compile(outer, skematic.CompileOpt{Loader: skematic.MapLoader{"mem://inner": inner}})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	// both bases declare the anchor; the innermost dynamic scope (the base
	// entered last) wins, so items validate as numbers, not strings
	if _, err := s.Validate(ctx, []any{1, 2}, skematic.ValidateOpt{}); err != nil {
		t.Fatalf("innermost anchor should decide: %v", err)
	}
	mustIssues(t, errOf(s.Validate(ctx, []any{"a"}, skematic.ValidateOpt{})))
}

func TestDynamicRefDowngradesWithoutDynamicAnchor(t *testing.T) {
	ctx := context.Background()
	// the target declares a plain $anchor, so $dynamicRef behaves statically
	s := mustCompile(t, map[string]any{
		"$defs": map[string]any{
			"it": map[string]any{"$anchor": "items", "type": "number"},
		},
		"$dynamicRef": "#items",
	})

	if _, err := s.Validate(ctx, 1, skematic.ValidateOpt{}); err != nil {
		t.Fatalf("should pass: %v", err)
	}
	mustIssues(t, errOf(s.Validate(ctx, "x", skematic.ValidateOpt{})))
}
