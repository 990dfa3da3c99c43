// Package num is the numeric kernel shared by the validation vocabulary.
// Instances may carry native Go numbers, json.Number (preserved by the JSON
// front-end), or *apd.Decimal from the arbitrary-precision collaborator;
// comparisons are exact regardless of representation.
package num

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// ErrNonFinite reports a non-finite intermediate result (the multipleOf
// division edge case); callers convert it into an arithmetic validation
// error rather than letting it propagate.
var ErrNonFinite = errors.New("num: non-finite result")

var decCtx = apd.BaseContext.WithPrecision(50)

// IsNumber reports whether v is any supported numeric representation.
func IsNumber(v any) bool {
	switch t := v.(type) {
	case int, int32, int64, float64, *apd.Decimal:
		return true
	case json.Number:
		_, _, err := apd.NewFromString(t.String())
		return err == nil
	default:
		return false
	}
}

// IsIntegral reports whether v is a number with no fractional part.
func IsIntegral(v any) bool {
	d, ok := toDecimal(v)
	if !ok {
		return false
	}
	return isIntegralDec(d)
}

func isIntegralDec(d *apd.Decimal) bool {
	if d.Form != apd.Finite {
		return false
	}
	var r apd.Decimal
	r.Set(d)
	r.Reduce(&r)
	return r.Exponent >= 0
}

// ToInt64 losslessly converts a fraction-free number to int64.
func ToInt64(v any) (int64, bool) {
	if i, ok := v.(int64); ok {
		return i, true
	}
	if i, ok := v.(int); ok {
		return int64(i), true
	}
	d, ok := toDecimal(v)
	if !ok || !isIntegralDec(d) {
		return 0, false
	}
	i, err := d.Int64()
	if err != nil {
		return 0, false
	}
	return i, true
}

// Compare compares two numbers exactly: -1, 0, or +1.
func Compare(a, b any) (int, error) {
	da, ok := toDecimal(a)
	if !ok {
		return 0, fmt.Errorf("num: not a number: %T", a)
	}
	db, ok := toDecimal(b)
	if !ok {
		return 0, fmt.Errorf("num: not a number: %T", b)
	}
	return da.Cmp(db), nil
}

// Equal reports exact numeric equality across representations.
func Equal(a, b any) bool {
	c, err := Compare(a, b)
	return err == nil && c == 0
}

// MultipleOf reports whether v is an integer multiple of m. A non-finite
// quotient surfaces as ErrNonFinite.
func MultipleOf(v, m any) (bool, error) {
	dv, ok := toDecimal(v)
	if !ok {
		return false, fmt.Errorf("num: not a number: %T", v)
	}
	dm, ok := toDecimal(m)
	if !ok {
		return false, fmt.Errorf("num: not a number: %T", m)
	}
	if dm.IsZero() {
		return false, ErrNonFinite
	}
	var q apd.Decimal
	if _, err := decCtx.Quo(&q, dv, dm); err != nil {
		return false, ErrNonFinite
	}
	if q.Form != apd.Finite {
		return false, ErrNonFinite
	}
	return isIntegralDec(&q), nil
}

func toDecimal(v any) (*apd.Decimal, bool) {
	switch t := v.(type) {
	case *apd.Decimal:
		return t, true
	case int:
		return apd.New(int64(t), 0), true
	case int32:
		return apd.New(int64(t), 0), true
	case int64:
		return apd.New(t, 0), true
	case float64:
		var d apd.Decimal
		if _, err := d.SetFloat64(t); err != nil {
			return nil, false
		}
		return &d, true
	case json.Number:
		d, _, err := apd.NewFromString(t.String())
		if err != nil {
			return nil, false
		}
		return d, true
	default:
		return nil, false
	}
}
