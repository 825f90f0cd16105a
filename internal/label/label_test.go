package label

import (
	"testing"

	"atp/internal/errors"
)

func TestBindAndResolve(t *testing.T) {
	tab := NewTable()
	if err := tab.Bind("power_up", "4.2"); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	got, err := tab.Resolve("power_up")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "4.2" {
		t.Errorf("Resolve = %q, want 4.2", got)
	}
}

func TestBindDuplicate(t *testing.T) {
	tab := NewTable()
	if err := tab.Bind("x", "1"); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	err := tab.Bind("x", "2")
	if !errors.Is(err, errors.DuplicateLabel) {
		t.Errorf("duplicate Bind error = %v, want DUPLICATE_LABEL", err)
	}
}

func TestBindInvalid(t *testing.T) {
	cases := []string{"", "2fast", "has space", "dot.ted", "dash-ed"}
	for _, label := range cases {
		tab := NewTable()
		if err := tab.Bind(label, "1"); !errors.Is(err, errors.InvalidLabel) {
			t.Errorf("Bind(%q) error = %v, want INVALID_LABEL", label, err)
		}
	}
}

func TestBindCaseSensitive(t *testing.T) {
	tab := NewTable()
	if err := tab.Bind("Setup", "1"); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := tab.Bind("setup", "2"); err != nil {
		t.Errorf("Bind with different case should succeed, got %v", err)
	}
}

func TestResolveUndefined(t *testing.T) {
	tab := NewTable()
	_, err := tab.Resolve("missing")
	if !errors.Is(err, errors.UndefinedLabel) {
		t.Errorf("Resolve error = %v, want UNDEFINED_LABEL", err)
	}
}

func TestParseTemplate(t *testing.T) {
	tpl, err := Parse("see $alpha and ${beta}, costs $$5")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	refs := tpl.Refs()
	if len(refs) != 2 || refs[0] != "alpha" || refs[1] != "beta" {
		t.Errorf("Refs = %v, want [alpha beta]", refs)
	}

	tab := NewTable()
	tab.Bind("alpha", "1.1") //nolint:errcheck
	tab.Bind("beta", "2.3")  //nolint:errcheck

	got, faults := tpl.Resolve(tab)
	if faults != nil {
		t.Fatalf("Resolve faults: %v", faults)
	}
	if got != "see 1.1 and 2.3, costs $5" {
		t.Errorf("Resolve = %q", got)
	}
}

func TestParseInvalidPlaceholder(t *testing.T) {
	cases := []string{"$", "price $5", "open ${name", "${not valid}", "end $"}
	for _, raw := range cases {
		if _, err := Parse(raw); !errors.Is(err, errors.InvalidLabel) {
			t.Errorf("Parse(%q) error = %v, want INVALID_LABEL", raw, err)
		}
	}
}

func TestResolveCollectsAllUndefined(t *testing.T) {
	tpl, err := Parse("$one then $two then $three")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	tab := NewTable()
	tab.Bind("two", "2") //nolint:errcheck

	_, faults := tpl.Resolve(tab)
	if len(faults) != 2 {
		t.Fatalf("Resolve faults = %d, want 2", len(faults))
	}
}

func TestResolveIdempotentOutput(t *testing.T) {
	tpl, err := Parse("verify $$ escapes survive: $$target")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	got, faults := tpl.Resolve(NewTable())
	if faults != nil {
		t.Fatalf("Resolve faults: %v", faults)
	}
	// Resolved output must not parse as containing references again.
	if got != "verify $ escapes survive: $target" {
		t.Errorf("Resolve = %q", got)
	}
}
