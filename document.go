package skematic

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	gojson "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// DocumentFromJSON decodes schema documents or instances from JSON bytes
// into the engine's JSON-like value tree. Numbers are preserved as
// json.Number so the numeric kernel can compare them exactly.
func DocumentFromJSON(b []byte) (any, error) {
	dec := gojson.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("skematic: invalid JSON document: %w", err)
	}
	// reject trailing garbage
	if err := dec.Decode(new(any)); err != io.EOF {
		return nil, errors.New("skematic: trailing data after JSON document")
	}
	return v, nil
}

// DocumentFromYAML decodes the first YAML document into the engine's
// JSON-like value tree. Mapping keys are stringified; yaml's native ints
// survive as int64 so they stay lossless.
func DocumentFromYAML(b []byte) (any, error) {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	var node any
	if err := dec.Decode(&node); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("skematic: empty YAML document")
		}
		return nil, fmt.Errorf("skematic: invalid YAML document: %w", err)
	}
	return normalizeYAML(node), nil
}

// DocumentsFromYAML decodes every document of a multi-document YAML stream.
func DocumentsFromYAML(b []byte) ([]any, error) {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	var out []any
	for {
		var node any
		if err := dec.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("skematic: invalid YAML document: %w", err)
		}
		out = append(out, normalizeYAML(node))
	}
	return out, nil
}

// normalizeYAML converts yaml.v3 decoding output (map[string]any with
// arbitrary key types on older inputs, int for integers) into the tree shape
// the builder and runtime expect.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeYAML(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeYAML(val)
		}
		return out
	case int:
		return int64(t)
	default:
		return v
	}
}

// instanceFragment renders a short JSON excerpt of an instance value for
// issue reporting. Best-effort; failures produce an empty excerpt.
func instanceFragment(v any) string {
	b, err := gojson.Marshal(v)
	if err != nil {
		return ""
	}
	const maxLen = 60
	if len(b) > maxLen {
		return string(b[:maxLen]) + "..."
	}
	return string(b)
}
