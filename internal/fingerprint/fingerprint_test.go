package fingerprint

import "testing"

func TestSumDeterministic(t *testing.T) {
	v := Map{
		{Key: "title", Value: String("Power Up")},
		{Key: "steps", Value: Sequence{String("a"), Int(2)}},
	}

	if Sum(v) != Sum(v) {
		t.Error("repeated Sum over the same value differs")
	}
}

func TestMapFieldOrderIrrelevant(t *testing.T) {
	a := Map{
		{Key: "title", Value: String("T")},
		{Key: "objective", Value: String("O")},
	}
	b := Map{
		{Key: "objective", Value: String("O")},
		{Key: "title", Value: String("T")},
	}

	if Sum(a) != Sum(b) {
		t.Error("structurally equal maps built in different orders digest differently")
	}
}

func TestSequenceOrderSignificant(t *testing.T) {
	a := Sequence{String("first"), String("second")}
	b := Sequence{String("second"), String("first")}

	if Sum(a) == Sum(b) {
		t.Error("reordered sequences should digest differently")
	}
}

func TestNoConcatenationAmbiguity(t *testing.T) {
	a := Sequence{String("ab")}
	b := Sequence{String("a"), String("b")}

	if Sum(a) == Sum(b) {
		t.Error("[ab] and [a b] should digest differently")
	}
}

func TestStringIntDistinct(t *testing.T) {
	if Sum(String("1")) == Sum(Int(1)) {
		t.Error(`"1" and 1 should digest differently`)
	}
}

func TestNilAndEmptyDistinct(t *testing.T) {
	a := Map{{Key: "objective", Value: nil}}
	b := Map{{Key: "objective", Value: String("")}}

	if Sum(a) == Sum(b) {
		t.Error("absent and empty field values should digest differently")
	}
}

// Cosmetic spacing edits register as content changes; the engine applies
// no normalization beyond declaration-time trimming.
func TestWhitespaceSignificant(t *testing.T) {
	if Sum(String("press  button")) == Sum(String("press button")) {
		t.Error("interior whitespace change should alter the digest")
	}
}

func TestCanonicalStable(t *testing.T) {
	v := Map{
		{Key: "b", Value: Int(2)},
		{Key: "a", Value: Strings([]string{"x", "y"})},
	}

	want := "m2:k1:al2:s1:xs1:yk1:bi2;"
	if got := string(Canonical(v)); got != want {
		t.Errorf("Canonical = %q, want %q", got, want)
	}
}
