// Package content defines the immutable test procedure model.
//
// Declared tests hold placeholder templates produced while the script is
// processed; resolved tests are placeholder-free and carry everything the
// rendering collaborator needs.
package content

import (
	"fmt"
	"strings"

	"atp/internal/errors"
	"atp/internal/fingerprint"
	"atp/internal/label"
	"atp/internal/numbering"
)

// FieldDef is a project-wide data entry field applied to tests
type FieldDef struct {
	Name   string `json:"name"`
	Title  string `json:"title"`
	Length int    `json:"length"`
}

// StepField is a data entry field attached to a single procedure step
type StepField struct {
	Title  string `json:"title"`
	Length int    `json:"length"`
	Suffix string `json:"suffix,omitempty"`
}

// ProjectInfo is the project metadata applied to a test's headers.
// Each test captures its own copy at declaration because the project
// information may change for later tests.
type ProjectInfo struct {
	Project string `json:"project,omitempty"`
	System  string `json:"system,omitempty"`
}

// ReferenceCategory groups reference strings under a declared category
type ReferenceCategory struct {
	Label string   `json:"label"`
	Title string   `json:"title"`
	Items []string `json:"items"`
}

// Step is a declared procedure step; Text may contain label references
type Step struct {
	Text   label.Template
	Fields []StepField
}

// Test is a single declared test procedure: the declare-phase
// intermediate representation before label resolution.
type Test struct {
	ID            numbering.ID
	Title         string
	Objective     label.Template // nil if omitted
	References    []ReferenceCategory
	Equipment     []string
	Preconditions []label.Template
	Procedure     []Step
	Fields        []FieldDef
	Signatures    []string
	Project       ProjectInfo
}

// ResolvedStep is a procedure step with all placeholders substituted
type ResolvedStep struct {
	Text   string      `json:"text"`
	Fields []StepField `json:"fields,omitempty"`
}

// ResolvedTest is the placeholder-free content tree for one test,
// ordered and ready for the rendering handoff.
type ResolvedTest struct {
	ID            string              `json:"id"`
	Title         string              `json:"title"`
	Objective     string              `json:"objective,omitempty"`
	References    []ReferenceCategory `json:"references,omitempty"`
	Equipment     []string            `json:"equipment,omitempty"`
	Preconditions []string            `json:"preconditions,omitempty"`
	Procedure     []ResolvedStep      `json:"procedure,omitempty"`
	Fields        []FieldDef          `json:"fields,omitempty"`
	Signatures    []string            `json:"signatures,omitempty"`
	Project       ProjectInfo         `json:"project"`
}

// Fingerprint digests everything affecting the test's rendered output
func (t *ResolvedTest) Fingerprint() string {
	refs := make(fingerprint.Sequence, len(t.References))
	for i, cat := range t.References {
		refs[i] = fingerprint.Map{
			{Key: "label", Value: fingerprint.String(cat.Label)},
			{Key: "title", Value: fingerprint.String(cat.Title)},
			{Key: "items", Value: fingerprint.Strings(cat.Items)},
		}
	}

	steps := make(fingerprint.Sequence, len(t.Procedure))
	for i, step := range t.Procedure {
		fields := make(fingerprint.Sequence, len(step.Fields))
		for j, f := range step.Fields {
			fields[j] = fingerprint.Map{
				{Key: "title", Value: fingerprint.String(f.Title)},
				{Key: "length", Value: fingerprint.Int(f.Length)},
				{Key: "suffix", Value: fingerprint.String(f.Suffix)},
			}
		}
		steps[i] = fingerprint.Map{
			{Key: "text", Value: fingerprint.String(step.Text)},
			{Key: "fields", Value: fields},
		}
	}

	fields := make(fingerprint.Sequence, len(t.Fields))
	for i, f := range t.Fields {
		fields[i] = fingerprint.Map{
			{Key: "name", Value: fingerprint.String(f.Name)},
			{Key: "title", Value: fingerprint.String(f.Title)},
			{Key: "length", Value: fingerprint.Int(f.Length)},
		}
	}

	var objective fingerprint.Value
	if t.Objective != "" {
		objective = fingerprint.String(t.Objective)
	}

	return fingerprint.Sum(fingerprint.Map{
		{Key: "id", Value: fingerprint.String(t.ID)},
		{Key: "title", Value: fingerprint.String(t.Title)},
		{Key: "objective", Value: objective},
		{Key: "references", Value: refs},
		{Key: "equipment", Value: fingerprint.Strings(t.Equipment)},
		{Key: "preconditions", Value: fingerprint.Strings(t.Preconditions)},
		{Key: "procedure", Value: steps},
		{Key: "fields", Value: fields},
		{Key: "signatures", Value: fingerprint.Strings(t.Signatures)},
		{Key: "project", Value: fingerprint.Map{
			{Key: "project", Value: fingerprint.String(t.Project.Project)},
			{Key: "system", Value: fingerprint.String(t.Project.System)},
		}},
	})
}

// NonemptyString trims a string and rejects empty or blank values, naming
// the offending parameter.
func NonemptyString(name, s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", errors.New(errors.Configuration,
			fmt.Sprintf("%s cannot be empty", name)).
			WithRemedy(fmt.Sprintf("Add content to the %s string, or remove it altogether.", name))
	}
	return trimmed, nil
}

// ValidateFieldLength rejects data entry field lengths less than one
func ValidateFieldLength(length int) (int, error) {
	if length < 1 {
		return 0, errors.New(errors.Configuration,
			fmt.Sprintf("invalid field length: %d", length)).
			WithRemedy("Field length must be greater than zero.")
	}
	return length, nil
}
