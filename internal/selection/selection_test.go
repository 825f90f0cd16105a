package selection

import (
	"strings"
	"testing"

	"atp/internal/numbering"
)

// The declared test population used throughout: sections 3, 5, and 7
// with gaps, mirroring scripts that skip and reserve identifiers.
var population = []numbering.ID{
	{1, 1},
	{3, 1}, {3, 3}, {3, 4}, {3, 5}, {3, 7},
	{5, 1}, {5, 3},
	{7, 1}, {7, 3},
}

func matchAll(t *testing.T, query string) []string {
	t.Helper()
	q, err := Parse(query, 2)
	if err != nil {
		t.Fatalf("Parse(%q): %v", query, err)
	}
	var got []string
	for _, id := range population {
		if q.Match(id) {
			got = append(got, id.String())
		}
	}
	return got
}

func expect(t *testing.T, query string, want ...string) {
	t.Helper()
	got := matchAll(t, query)
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("query %q selected %v, want %v", query, got, want)
	}
}

func TestEmptyQueryMatchesAll(t *testing.T) {
	got := matchAll(t, "")
	if len(got) != len(population) {
		t.Errorf("empty query selected %d tests, want %d", len(got), len(population))
	}
}

func TestSingleID(t *testing.T) {
	expect(t, "3.3", "3.3")
	expect(t, "3.2") // nonexistent: empty, no error
}

func TestSectionPrefix(t *testing.T) {
	expect(t, "7", "7.1", "7.3")
	expect(t, "2") // nonexistent section
}

func TestRangeWithinSection(t *testing.T) {
	expect(t, "3.3-3.5", "3.3", "3.4", "3.5")
	expect(t, "3.4-3.6", "3.4", "3.5")
	expect(t, "3.2-3.4", "3.3", "3.4")
	expect(t, "3-3.3", "3.1", "3.3")
}

func TestRangeSpanningSections(t *testing.T) {
	expect(t, "3.7-5.1", "3.7", "5.1")
	expect(t, "3.7-5", "3.7", "5.1", "5.3")
	expect(t, "5-7.1", "5.1", "5.3", "7.1")
	expect(t, "5-7", "5.1", "5.3", "7.1", "7.3")
}

// Out-of-range bounds clamp silently rather than erroring.
func TestRangeClamping(t *testing.T) {
	expect(t, "5-99", "5.1", "5.3", "7.1", "7.3")
	expect(t, "4-6", "5.1", "5.3")
	expect(t, "3.6-6", "3.7", "5.1", "5.3")
}

func TestMultipleTerms(t *testing.T) {
	expect(t, "1 3.3-3.4 7", "1.1", "3.3", "3.4", "7.1", "7.3")
}

func TestHyphenSpacing(t *testing.T) {
	for _, q := range []string{"3.3-3.5", "3.3 -3.5", "3.3- 3.5", "3.3 - 3.5"} {
		expect(t, q, "3.3", "3.4", "3.5")
	}
}

func TestInvalidRanges(t *testing.T) {
	cases := []string{
		"1-1", "2-1", "1.1-1.1", "1.3-1.2", "2.1-1.1",
		"1.1-1", "2.1-1", "2-1.1",
		"-1", "1-", "1-2-3",
	}
	for _, q := range cases {
		if _, err := Parse(q, 2); err == nil {
			t.Errorf("Parse(%q) should fail", q)
		}
	}
}

func TestInvalidIDs(t *testing.T) {
	cases := []string{"foo", "1.spam", "0.1", "1.2.3"}
	for _, q := range cases {
		if _, err := Parse(q, 2); err == nil {
			t.Errorf("Parse(%q) should fail", q)
		}
	}
}

func TestValidMixedWidthRanges(t *testing.T) {
	// A section start may range into one of its own tests, like 3-3.3.
	for _, q := range []string{"1-2.1", "1.1-2", "3-3.3", "1-1.1"} {
		if _, err := Parse(q, 2); err != nil {
			t.Errorf("Parse(%q): %v", q, err)
		}
	}
}

func TestFilterIDs(t *testing.T) {
	q, err := Parse("3", 2)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	got, err := q.FilterIDs([]string{"1.1", "3.1", "3.7", "5.1"})
	if err != nil {
		t.Fatalf("FilterIDs: %v", err)
	}
	if strings.Join(got, " ") != "3.1 3.7" {
		t.Errorf("FilterIDs = %v", got)
	}
}
