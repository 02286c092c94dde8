package field

import (
	"math"
	"testing"
)

func TestParseFloat(t *testing.T) {
	v, err := TypeFloat.Parse(" 0.578 ")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if v.(float64) != 0.578 {
		t.Errorf("Parse = %v, want 0.578", v)
	}

	if _, err := TypeFloat.Parse("abc"); err == nil {
		t.Error("Parse accepted non-numeric text")
	}
}

func TestParseBool(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"0", false},
		{"1", true},
		{"false", false},
		{"true", true},
		{"TRUE", true},
	}
	for _, tc := range cases {
		v, err := TypeBool.Parse(tc.in)
		if err != nil {
			t.Errorf("Parse(%q): %v", tc.in, err)
			continue
		}
		if v.(bool) != tc.want {
			t.Errorf("Parse(%q) = %v, want %v", tc.in, v, tc.want)
		}
	}

	if _, err := TypeBool.Parse("yes"); err == nil {
		t.Error("Parse accepted a non-flag value")
	}
}

func TestCanonicalFloat(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{1, "1"},
		{-3, "-3"},
		{1.5, "1.5"},
		{0.578, "0.578"},
		{0.1 + 0.2, "0.30000000000000004"},
		{1e-7, "1e-07"},
		{100000, "100000"},
		{1e6, "1000000"},
		{1.2e7, "12000000"},
		{1e12, "1000000000000"},
		{math.NaN(), "0"},
		{math.Inf(1), "0"},
	}
	for _, tc := range cases {
		if got := CanonicalFloat(tc.in); got != tc.want {
			t.Errorf("CanonicalFloat(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// Canonical text must round-trip through Parse back to the same value, and
// rendering must be stable. The writer relies on both properties to decide
// "no change".
func TestCanonicalRoundTrip(t *testing.T) {
	for _, f := range []float64{0, 1, -1, 0.578, 0.598, 123.456, 1e-9, 1e12, 0.1} {
		text := TypeFloat.Canonical(f)
		back, err := TypeFloat.Parse(text)
		if err != nil {
			t.Fatalf("Parse(%q): %v", text, err)
		}
		if back.(float64) != f {
			t.Errorf("round trip %v -> %q -> %v", f, text, back)
		}
		if again := TypeFloat.Canonical(back); again != text {
			t.Errorf("rendering not stable: %q then %q", text, again)
		}
	}
}

func TestCanonicalNilAndMistyped(t *testing.T) {
	if got := TypeFloat.Canonical(nil); got != "0" {
		t.Errorf("float nil = %q, want 0", got)
	}
	if got := TypeInt.Canonical(nil); got != "0" {
		t.Errorf("int nil = %q, want 0", got)
	}
	if got := TypeBool.Canonical(nil); got != "0" {
		t.Errorf("bool nil = %q, want 0", got)
	}
	if got := TypeString.Canonical(nil); got != "" {
		t.Errorf("string nil = %q, want empty", got)
	}
	if got := TypeBool.Canonical(true); got != "1" {
		t.Errorf("bool true = %q, want 1", got)
	}
	if got := TypeInt.Canonical(int64(7)); got != "7" {
		t.Errorf("int64 = %q, want 7", got)
	}
}
