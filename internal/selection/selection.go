// Package selection filters tests by identifier ranges and prefixes.
//
// A query is a space-separated list of terms. Each term is a dotted
// identifier, a section prefix (shorter than the configured depth,
// expanding to everything it contains), or an inclusive range of the
// two forms joined by a hyphen. Bounds that match nothing clamp
// silently; they are never an error.
package selection

import (
	"fmt"
	"regexp"
	"strings"

	"atp/internal/errors"
	"atp/internal/numbering"
)

// Term is one parsed query term. End is nil for a single id or prefix.
type Term struct {
	Start numbering.ID
	End   numbering.ID
}

// Query is a parsed selection. An empty query selects everything.
type Query []Term

var hyphenSpacing = regexp.MustCompile(`\s*-\s*`)

// Parse converts a query string like "1 3.2-5 7" into a Query. Each
// identifier must fit within the configured depth; a range's end must be
// strictly after its start.
func Parse(s string, depth int) (Query, error) {
	var query Query
	normalized := hyphenSpacing.ReplaceAllString(s, "-")

	for _, term := range strings.Fields(normalized) {
		parts := strings.Split(term, "-")
		if len(parts) > 2 {
			return nil, errors.New(errors.Configuration,
				fmt.Sprintf("invalid range %q", term)).
				WithRemedy("A range is two identifiers joined by one hyphen, like 3.2-5.1.")
		}

		ids := make([]numbering.ID, len(parts))
		for i, part := range parts {
			id, err := numbering.Parse(part)
			if err != nil {
				return nil, err
			}
			if len(id) > depth {
				return nil, errors.New(errors.Configuration,
					fmt.Sprintf("identifier %q has more than %d field(s)", part, depth))
			}
			ids[i] = id
		}

		if len(ids) == 1 {
			query = append(query, Term{Start: ids[0]})
			continue
		}

		if !strictlyAfter(ids[0], ids[1]) {
			return nil, errors.New(errors.Configuration,
				fmt.Sprintf("invalid range %q: end does not follow start", term)).
				WithRemedy("The end of a range must identify a test or section after its start.")
		}
		query = append(query, Term{Start: ids[0], End: ids[1]})
	}

	return query, nil
}

// strictlyAfter reports whether end names a test or section strictly
// after start. When the common prefix is equal the range is valid only
// if end descends into the start section, like 3-3.3; equal or
// backwards bounds like 1-1 and 1.1-1 do not qualify.
func strictlyAfter(start, end numbering.ID) bool {
	n := len(start)
	if len(end) < n {
		n = len(end)
	}
	for i := 0; i < n; i++ {
		switch {
		case end[i] > start[i]:
			return true
		case end[i] < start[i]:
			return false
		}
	}
	return len(end) > len(start)
}

// boundCompare compares an identity against a range bound over the
// bound's length only, so a section prefix bound contains every test
// within the section.
func boundCompare(id, bound numbering.ID) int {
	for i := range bound {
		if i >= len(id) {
			return -1
		}
		switch {
		case id[i] < bound[i]:
			return -1
		case id[i] > bound[i]:
			return 1
		}
	}
	return 0
}

// Match reports whether an identity is selected. An empty query matches
// every identity.
func (q Query) Match(id numbering.ID) bool {
	if len(q) == 0 {
		return true
	}
	for _, term := range q {
		if term.End == nil {
			if len(term.Start) == len(id) {
				if id.Equal(term.Start) {
					return true
				}
			} else if id.HasPrefix(term.Start) {
				return true
			}
			continue
		}
		if boundCompare(id, term.Start) >= 0 && boundCompare(id, term.End) <= 0 {
			return true
		}
	}
	return false
}

// FilterIDs returns the subset of dotted identifier strings matching the
// query, preserving input order.
func (q Query) FilterIDs(ids []string) ([]string, error) {
	var out []string
	for _, s := range ids {
		id, err := numbering.Parse(s)
		if err != nil {
			return nil, err
		}
		if q.Match(id) {
			out = append(out, s)
		}
	}
	return out, nil
}
