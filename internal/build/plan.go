package build

import (
	"atp/internal/content"
	"atp/internal/errors"
	"atp/internal/label"
)

// Plan is the immutable intermediate representation produced by the
// declaration phase: every test in declaration order plus the fully
// populated label table.
type Plan struct {
	Depth         int
	Tests         []content.Test
	Labels        *label.Table
	SectionTitles map[string]string
}

// Result is the output of the resolve pass: placeholder-free tests in
// declaration order with a fingerprint for every identity.
type Result struct {
	Depth         int
	Tests         []content.ResolvedTest
	Fingerprints  map[string]string
	Labels        map[string]string
	SectionTitles map[string]string
}

// Test returns the resolved test with the given printable identity
func (r *Result) Test(id string) (*content.ResolvedTest, bool) {
	for i := range r.Tests {
		if r.Tests[i].ID == id {
			return &r.Tests[i], true
		}
	}
	return nil, false
}

// IDs returns every resolved identity in declaration order
func (r *Result) IDs() []string {
	ids := make([]string, len(r.Tests))
	for i := range r.Tests {
		ids[i] = r.Tests[i].ID
	}
	return ids
}

// Resolve performs the single global substitution pass over every
// declared test. It runs strictly after declaration completes, so
// forward references resolve like any other. Every unresolvable
// placeholder in the run is collected into one ResolveError rather than
// failing at the first fault.
func (p *Plan) Resolve() (*Result, error) {
	result := &Result{
		Depth:         p.Depth,
		Tests:         make([]content.ResolvedTest, 0, len(p.Tests)),
		Fingerprints:  make(map[string]string, len(p.Tests)),
		Labels:        p.Labels.Bindings(),
		SectionTitles: p.SectionTitles,
	}

	var faults []*errors.ScriptError
	collect := func(fs []*errors.ScriptError, test *content.Test, field string, item int) {
		for _, f := range fs {
			f.WithField("field", field)
			if item > 0 {
				f.WithField("item", item)
			}
			f.WithField("test", test.ID.String())
			faults = append(faults, f)
		}
	}

	for i := range p.Tests {
		test := &p.Tests[i]
		resolved := content.ResolvedTest{
			ID:         test.ID.String(),
			Title:      test.Title,
			References: test.References,
			Equipment:  test.Equipment,
			Fields:     test.Fields,
			Signatures: test.Signatures,
			Project:    test.Project,
		}

		if test.Objective != nil {
			text, fs := test.Objective.Resolve(p.Labels)
			if fs != nil {
				collect(fs, test, "objective", 0)
			}
			resolved.Objective = text
		}

		for j, tpl := range test.Preconditions {
			text, fs := tpl.Resolve(p.Labels)
			if fs != nil {
				collect(fs, test, "precondition", j+1)
			}
			resolved.Preconditions = append(resolved.Preconditions, text)
		}

		for j, step := range test.Procedure {
			text, fs := step.Text.Resolve(p.Labels)
			if fs != nil {
				collect(fs, test, "procedure step", j+1)
			}
			resolved.Procedure = append(resolved.Procedure, content.ResolvedStep{
				Text:   text,
				Fields: step.Fields,
			})
		}

		result.Tests = append(result.Tests, resolved)
	}

	if len(faults) > 0 {
		return nil, &errors.ResolveError{Faults: faults}
	}

	for i := range result.Tests {
		result.Fingerprints[result.Tests[i].ID] = result.Tests[i].Fingerprint()
	}
	return result, nil
}
