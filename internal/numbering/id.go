package numbering

import (
	"fmt"
	"strconv"
	"strings"

	"atp/internal/errors"
)

// ID is an immutable hierarchical numeric path assigned to a test or
// section. All test identities share the configured depth; section
// identities are shorter prefixes.
type ID []int

// String renders the ID as a dot-joined path, e.g. "2.1.3"
func (id ID) String() string {
	parts := make([]string, len(id))
	for i, n := range id {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// Clone returns an independent copy of the ID
func (id ID) Clone() ID {
	out := make(ID, len(id))
	copy(out, id)
	return out
}

// Equal reports whether two IDs are identical
func (id ID) Equal(other ID) bool {
	if len(id) != len(other) {
		return false
	}
	for i := range id {
		if id[i] != other[i] {
			return false
		}
	}
	return true
}

// Compare orders IDs in path order: element-wise numeric comparison, with
// a shorter ID sorting before any ID it prefixes.
func (id ID) Compare(other ID) int {
	n := len(id)
	if len(other) < n {
		n = len(other)
	}
	for i := 0; i < n; i++ {
		switch {
		case id[i] < other[i]:
			return -1
		case id[i] > other[i]:
			return 1
		}
	}
	switch {
	case len(id) < len(other):
		return -1
	case len(id) > len(other):
		return 1
	}
	return 0
}

// HasPrefix reports whether the ID is contained in the given section prefix
func (id ID) HasPrefix(prefix ID) bool {
	if len(prefix) > len(id) {
		return false
	}
	for i := range prefix {
		if id[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Parse converts a dotted identifier string like "2.1.3" into an ID.
// Every field must be a positive integer; leading zeros are accepted.
func Parse(s string) (ID, error) {
	fields := strings.Split(s, ".")
	id := make(ID, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, errors.New(errors.Configuration,
				fmt.Sprintf("invalid identifier %q", s)).
				WithRemedy("Identifiers are dot-separated positive integers, like 4.2.3.")
		}
		if n < 1 {
			return nil, errors.New(errors.Configuration,
				fmt.Sprintf("invalid identifier %q: fields must be greater than zero", s))
		}
		id = append(id, n)
	}
	return id, nil
}
