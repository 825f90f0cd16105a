// Package numbering manages the numeric identifiers assigned to tests
// and sections.
//
// An Allocator owns all numbering state for one pipeline invocation.
// Identities are issued in declaration order and never reused within a
// run; skipping advances the counter without emitting, leaving an
// intentional, reproducible gap.
package numbering

import (
	"fmt"
	"strings"

	"atp/internal/errors"
)

// Allocator issues hierarchical identities in declaration order
type Allocator struct {
	current []int
	open    int // number of currently open section levels
	started bool
	titles  map[string]string
}

// NewAllocator creates an allocator with the default depth of one
func NewAllocator() *Allocator {
	return &Allocator{
		current: make([]int, 1),
		titles:  make(map[string]string),
	}
}

// Depth returns the configured identifier depth
func (a *Allocator) Depth() int {
	return len(a.current)
}

// InSetup reports whether any section or identity has been issued.
// Setup-only directives are rejected once numbering has started.
func (a *Allocator) InSetup() bool {
	return !a.started
}

// SetDepth configures the number of fields in test identifiers.
// Changing the depth after any section or identity has been issued is a
// configuration error: identities assigned so far would become ambiguous.
func (a *Allocator) SetDepth(depth int) error {
	if a.started {
		return errors.New(errors.Configuration,
			"identifier depth cannot change after tests or sections are created").
			WithRemedy("Set the identifier depth once, before any tests or sections.")
	}
	if depth < 1 {
		return errors.New(errors.Configuration,
			fmt.Sprintf("invalid identifier depth: %d", depth)).
			WithRemedy("Select an identifier depth greater than zero.")
	}
	a.current = make([]int, depth)
	return nil
}

// OpenSection enters the next sub-section at the current nesting level.
// A number greater than zero jumps the section counter forward to that
// value; it must be a strict jump forward. A non-blank title is recorded
// for the section path.
func (a *Allocator) OpenSection(number int, title string) error {
	if len(a.current) == 1 {
		return errors.New(errors.Depth, "no section levels available").
			WithRemedy("Increase the identifier depth to divide tests into sections.")
	}
	level := a.open
	if level > len(a.current)-2 {
		return errors.New(errors.Depth,
			fmt.Sprintf("cannot open a section %d levels deep with identifier depth %d",
				level+1, len(a.current)))
	}

	switch {
	case number == 0:
		a.current[level]++
	case number <= a.current[level]:
		return errors.New(errors.Configuration,
			fmt.Sprintf("invalid section number: %d", number)).
			WithRemedy(fmt.Sprintf("Level %d section numbers must be greater than %d.",
				level+1, a.current[level]))
	default:
		a.current[level] = number
	}

	// Reset all deeper levels for the new section.
	for i := level + 1; i < len(a.current); i++ {
		a.current[i] = 0
	}

	a.open++
	a.started = true

	if t := strings.TrimSpace(title); t != "" {
		a.titles[ID(a.current[:a.open]).String()] = t
	}
	return nil
}

// CloseSection leaves the innermost open section, resuming the parent
// level's counting.
func (a *Allocator) CloseSection() error {
	if a.open == 0 {
		return errors.New(errors.Configuration, "no open section to close")
	}
	a.open--
	return nil
}

// Next allocates the identity for the next test. Levels left at zero by a
// new section are initialized to one, so the first test of section 2
// becomes 2.1 rather than 2.0.
func (a *Allocator) Next() ID {
	a.current[len(a.current)-1]++
	for i := range a.current {
		if a.current[i] == 0 {
			a.current[i] = 1
		}
	}
	a.started = true
	return ID(a.current).Clone()
}

// Skip advances the test counter without emitting an identity, producing
// an intentional gap. A next value greater than zero reserves everything
// up to it: the following allocate yields exactly next.
func (a *Allocator) Skip(next int) error {
	// Advance normally; this also initializes zeroed levels so the
	// forward-jump validation below compares against a real number.
	a.Next()

	if next != 0 {
		last := a.current[len(a.current)-1]
		if next <= last {
			return errors.New(errors.Configuration,
				fmt.Sprintf("invalid skip target: %d", next)).
				WithRemedy(fmt.Sprintf("Select a test number greater than %d.", last))
		}
		// Next() increments before returning, so parking one short of
		// the target makes the following allocate yield the target.
		a.current[len(a.current)-1] = next - 1
	}
	return nil
}

// SectionTitle returns the recorded title for a section path, if any
func (a *Allocator) SectionTitle(section ID) (string, bool) {
	t, ok := a.titles[section.String()]
	return t, ok
}

// SectionTitles returns all recorded section titles keyed by dotted path
func (a *Allocator) SectionTitles() map[string]string {
	out := make(map[string]string, len(a.titles))
	for k, v := range a.titles {
		out[k] = v
	}
	return out
}
