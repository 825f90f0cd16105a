// Package label implements symbolic names bound to test and procedure
// step identities, and the placeholder templates that reference them.
//
// Labels are declared while tests are declared, but placeholders may
// reference labels bound later in the script, so resolution is deferred
// until every declaration has completed.
package label

import (
	"fmt"
	"regexp"

	"atp/internal/errors"
)

// Tests and procedure steps share one label namespace; a label is a
// letter or underscore followed by letters, digits, or underscores.
var validLabel = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Table stores rendered target identities keyed by label
type Table struct {
	targets map[string]string
}

// NewTable creates an empty label table
func NewTable() *Table {
	return &Table{targets: make(map[string]string)}
}

// Bind assigns a rendered identity to a label. Labels are declared once;
// comparison is case-sensitive with no trimming.
func (t *Table) Bind(label, target string) error {
	if !validLabel.MatchString(label) {
		return errors.New(errors.InvalidLabel,
			fmt.Sprintf("invalid label: %q", label)).
			WithRemedy("Labels must start with a letter or underscore, followed by letters, digits, or underscores.")
	}
	if _, ok := t.targets[label]; ok {
		return errors.New(errors.DuplicateLabel,
			fmt.Sprintf("duplicate label: %q", label)).
			WithRemedy("Assign each label to exactly one test or procedure step.")
	}
	t.targets[label] = target
	return nil
}

// Resolve returns the rendered identity bound to a label
func (t *Table) Resolve(label string) (string, error) {
	target, ok := t.targets[label]
	if !ok {
		return "", errors.New(errors.UndefinedLabel,
			fmt.Sprintf("undefined label: %q", label)).
			WithRemedy("Bind the label to a test or procedure step somewhere in the script.")
	}
	return target, nil
}

// Len returns the number of bound labels
func (t *Table) Len() int {
	return len(t.targets)
}

// Bindings returns a copy of all label bindings
func (t *Table) Bindings() map[string]string {
	out := make(map[string]string, len(t.targets))
	for k, v := range t.targets {
		out[k] = v
	}
	return out
}
