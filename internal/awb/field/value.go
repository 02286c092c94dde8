package field

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Type is the coercion applied to a field's XML text.
type Type int

const (
	// TypeFloat is a 64-bit float.
	TypeFloat Type = iota

	// TypeInt is a signed integer.
	TypeInt

	// TypeBool is a boolean stored on the wire as "0"/"1".
	TypeBool

	// TypeString is raw text, surrounding whitespace stripped.
	TypeString
)

func (t Type) valid() bool {
	return t >= TypeFloat && t <= TypeString
}

func (t Type) String() string {
	switch t {
	case TypeFloat:
		return "float"
	case TypeInt:
		return "int"
	case TypeBool:
		return "bool"
	case TypeString:
		return "string"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// Parse coerces raw XML text into the type's Go representation
// (float64, int, bool or string).
func (t Type) Parse(s string) (any, error) {
	s = strings.TrimSpace(s)
	switch t {
	case TypeFloat:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("not a float: %q", s)
		}
		return v, nil
	case TypeInt:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", s)
		}
		return int(v), nil
	case TypeBool:
		switch strings.ToLower(s) {
		case "0", "false":
			return false, nil
		case "1", "true":
			return true, nil
		}
		return nil, fmt.Errorf("not a boolean flag: %q", s)
	case TypeString:
		return s, nil
	default:
		return nil, fmt.Errorf("unknown type %d", int(t))
	}
}

// Canonical renders a value in the deterministic textual form the consuming
// tool expects. The same rendering is used both to detect "no change" and to
// build replacement text, so it must be stable for a given value.
//
// A nil value renders as the type's zero value ("0" for numerics and flags,
// "" for strings).
func (t Type) Canonical(v any) string {
	switch t {
	case TypeFloat:
		f, ok := v.(float64)
		if !ok {
			return "0"
		}
		return CanonicalFloat(f)
	case TypeInt:
		switch n := v.(type) {
		case int:
			return strconv.Itoa(n)
		case int64:
			return strconv.FormatInt(n, 10)
		}
		return "0"
	case TypeBool:
		b, ok := v.(bool)
		if !ok || !b {
			return "0"
		}
		return "1"
	case TypeString:
		s, _ := v.(string)
		return s
	default:
		return ""
	}
}

// CanonicalFloat renders f with the minimal decimal representation that
// round-trips exactly. Mathematically integral values carry no decimal point
// ("1", "0", "-3", "1000000") and never use exponent form; only tiny
// magnitudes below 1 may render exponentially, when that is strictly shorter
// than the fixed form (e.g. "1e-07"). Non-finite values render as "0": the
// wire format has no way to express them.
func CanonicalFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "0"
	}
	if f == 0 {
		// Collapses negative zero.
		return "0"
	}
	fixed := strconv.FormatFloat(f, 'f', -1, 64)
	if math.Abs(f) >= 1 {
		return fixed
	}
	compact := strconv.FormatFloat(f, 'g', -1, 64)
	if len(compact) < len(fixed) {
		return compact
	}
	return fixed
}
