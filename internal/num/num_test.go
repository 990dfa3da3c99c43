package num_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/reoring/skematic/internal/num"
)

func TestIsNumber(t *testing.T) {
	for _, v := range []any{1, int32(1), int64(1), 1.5, json.Number("0.1"), apd.New(3, 0)} {
		if !num.IsNumber(v) {
			t.Errorf("IsNumber(%#v) = false", v)
		}
	}
	for _, v := range []any{"1", true, nil, []any{1}, json.Number("abc")} {
		if num.IsNumber(v) {
			t.Errorf("IsNumber(%#v) = true", v)
		}
	}
}

func TestIsIntegral(t *testing.T) {
	cases := []struct {
		v    any
		want bool
	}{
		{int64(3), true},
		{float64(2.0), true},
		{float64(3.5), false},
		{json.Number("7"), true},
		{json.Number("2.0"), true},
		{json.Number("1e2"), true},
		{json.Number("0.1"), false},
		{"3", false},
	}
	for _, tc := range cases {
		if got := num.IsIntegral(tc.v); got != tc.want {
			t.Errorf("IsIntegral(%#v) = %v, want %v", tc.v, got, tc.want)
		}
	}
}

func TestToInt64(t *testing.T) {
	cases := []struct {
		v    any
		want int64
		ok   bool
	}{
		{int64(5), 5, true},
		{3, 3, true},
		{float64(2.0), 2, true},
		{json.Number("2.0"), 2, true},
		{json.Number("1e3"), 1000, true},
		{float64(3.5), 0, false},
		{"2", 0, false},
	}
	for _, tc := range cases {
		got, ok := num.ToInt64(tc.v)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ToInt64(%#v) = (%d, %v), want (%d, %v)", tc.v, got, ok, tc.want, tc.ok)
		}
	}
}

func TestCompareAcrossRepresentations(t *testing.T) {
	cases := []struct {
		a, b any
		want int
	}{
		{int64(1), json.Number("1.0"), 0},
		{float64(0.5), json.Number("0.5"), 0},
		{json.Number("0.1"), float64(0.2), -1},
		{int64(10), 2, 1},
	}
	for _, tc := range cases {
		got, err := num.Compare(tc.a, tc.b)
		if err != nil {
			t.Fatalf("Compare(%#v, %#v): %v", tc.a, tc.b, err)
		}
		if got != tc.want {
			t.Errorf("Compare(%#v, %#v) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
	if _, err := num.Compare("x", 1); err == nil {
		t.Error("Compare on a non-number should fail")
	}
}

func TestEqual(t *testing.T) {
	if !num.Equal(json.Number("1.00"), int64(1)) {
		t.Error("1.00 should equal 1")
	}
	if num.Equal(json.Number("1.01"), int64(1)) {
		t.Error("1.01 should not equal 1")
	}
}

func TestMultipleOf(t *testing.T) {
	cases := []struct {
		v, m any
		want bool
	}{
		{int64(10), int64(5), true},
		{int64(10), int64(3), false},
		// decimal arithmetic keeps these exact; binary floats would not
		{json.Number("0.3"), json.Number("0.1"), true},
		{json.Number("0.35"), json.Number("0.1"), false},
		{float64(7.5), float64(0.5), true},
	}
	for _, tc := range cases {
		got, err := num.MultipleOf(tc.v, tc.m)
		if err != nil {
			t.Fatalf("MultipleOf(%#v, %#v): %v", tc.v, tc.m, err)
		}
		if got != tc.want {
			t.Errorf("MultipleOf(%#v, %#v) = %v, want %v", tc.v, tc.m, got, tc.want)
		}
	}
}

func TestMultipleOfZeroDivisor(t *testing.T) {
	_, err := num.MultipleOf(int64(1), int64(0))
	if !errors.Is(err, num.ErrNonFinite) {
		t.Fatalf("zero divisor error = %v, want ErrNonFinite", err)
	}
}
