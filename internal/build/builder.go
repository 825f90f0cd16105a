// Package build implements the two-phase pipeline that turns declarative
// test specifications into resolved, fingerprinted procedures.
//
// A Builder owns all numbering and label state for one invocation; there
// is no process-wide state, so repeated invocations never leak state
// between runs. Declaration produces an immutable Plan, and resolving
// the plan is a pure pass performed strictly after every declaration has
// completed, which is what allows placeholders to reference labels bound
// later in the script.
package build

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"atp/internal/content"
	"atp/internal/errors"
	"atp/internal/label"
	"atp/internal/numbering"
)

// StepDecl is the raw input for one procedure step
type StepDecl struct {
	Text   string
	Label  string
	Fields []content.StepField
}

// TestDecl is the raw input for one test declaration
type TestDecl struct {
	Title         string
	Label         string
	Objective     string
	References    map[string][]string
	Equipment     []string
	Preconditions []string
	Procedure     []StepDecl
	IncludeFields []string
	ExcludeFields []string
	ActiveFields  []string
}

// Builder accumulates declarations for a single pipeline invocation
type Builder struct {
	alloc      *numbering.Allocator
	labels     *label.Table
	fields     []content.FieldDef
	fieldIndex map[string]int
	refTitles  map[string]string
	refOrder   []string
	signatures []string
	project    content.ProjectInfo
	tests      []content.Test
}

// NewBuilder creates an empty builder with the default identifier depth
func NewBuilder() *Builder {
	return &Builder{
		alloc:      numbering.NewAllocator(),
		labels:     label.NewTable(),
		fieldIndex: make(map[string]int),
		refTitles:  make(map[string]string),
	}
}

// setupOnly rejects setup directives once tests or sections exist
func (b *Builder) setupOnly(directive string) error {
	if !b.alloc.InSetup() {
		return errors.New(errors.Configuration,
			fmt.Sprintf("%s can only be used in the setup area", directive)).
			WithRemedy("Move this directive before any tests or sections.")
	}
	return nil
}

// SetDepth configures the number of identifier fields; setup only
func (b *Builder) SetDepth(depth int) error {
	return b.alloc.SetDepth(depth)
}

// Depth returns the configured identifier depth
func (b *Builder) Depth() int {
	return b.alloc.Depth()
}

// AddField declares a project-wide data entry field; setup only
func (b *Builder) AddField(name, title string, length int) error {
	if err := b.setupOnly("field declaration"); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = title
	}
	title, err := content.NonemptyString("field title", title)
	if err != nil {
		return err
	}
	length, err = content.ValidateFieldLength(length)
	if err != nil {
		return err
	}
	if _, ok := b.fieldIndex[name]; ok {
		return errors.New(errors.Configuration,
			fmt.Sprintf("duplicate field name: %q", name))
	}
	b.fieldIndex[name] = len(b.fields)
	b.fields = append(b.fields, content.FieldDef{Name: name, Title: title, Length: length})
	return nil
}

// AddSignature declares a signature line applied to every test; setup only
func (b *Builder) AddSignature(title string) error {
	if err := b.setupOnly("signature declaration"); err != nil {
		return err
	}
	title, err := content.NonemptyString("signature title", title)
	if err != nil {
		return err
	}
	b.signatures = append(b.signatures, title)
	return nil
}

// AddReferenceCategory declares a reference category; setup only.
// Categories are listed in output in declaration order.
func (b *Builder) AddReferenceCategory(catLabel, title string) error {
	if err := b.setupOnly("reference category declaration"); err != nil {
		return err
	}
	catLabel, err := content.NonemptyString("reference category label", catLabel)
	if err != nil {
		return err
	}
	title, err = content.NonemptyString("reference category title", title)
	if err != nil {
		return err
	}
	if _, ok := b.refTitles[catLabel]; ok {
		return errors.New(errors.Configuration,
			fmt.Sprintf("duplicate reference category: %q", catLabel))
	}
	b.refTitles[catLabel] = title
	b.refOrder = append(b.refOrder, catLabel)
	return nil
}

// SetProjectInfo assigns project metadata. May be used at any point;
// each subsequent test captures the values in effect when it is declared.
func (b *Builder) SetProjectInfo(project, system string) error {
	if p := strings.TrimSpace(project); p != "" {
		b.project.Project = p
	}
	if s := strings.TrimSpace(system); s != "" {
		b.project.System = s
	}
	return nil
}

// OpenSection enters the next sub-section; see numbering.Allocator
func (b *Builder) OpenSection(number int, title string) error {
	return b.alloc.OpenSection(number, title)
}

// CloseSection leaves the innermost open section
func (b *Builder) CloseSection() error {
	return b.alloc.CloseSection()
}

// Skip advances the test counter without declaring a test
func (b *Builder) Skip(next int) error {
	return b.alloc.Skip(next)
}

// AddTest declares a single test procedure, allocating its identity and
// binding any labels. Declaration errors are fatal and carry the test's
// identity and title so the fault can be located.
func (b *Builder) AddTest(decl TestDecl) (numbering.ID, error) {
	id := b.alloc.Next()

	test, err := b.buildTest(id, decl)
	if err != nil {
		err = decorate(err, "test", id.String())
		if t := strings.TrimSpace(decl.Title); t != "" {
			err = decorate(err, "title", t)
		}
		return nil, err
	}

	b.tests = append(b.tests, *test)
	return id, nil
}

func (b *Builder) buildTest(id numbering.ID, decl TestDecl) (*content.Test, error) {
	title, err := content.NonemptyString("title", decl.Title)
	if err != nil {
		return nil, err
	}

	if decl.Label != "" {
		if err := b.labels.Bind(decl.Label, id.String()); err != nil {
			return nil, err
		}
	}

	var objective label.Template
	if strings.TrimSpace(decl.Objective) != "" {
		objective, err = label.Parse(strings.TrimSpace(decl.Objective))
		if err != nil {
			return nil, decorate(err, "field", "objective")
		}
	}

	references, err := b.buildReferences(decl.References)
	if err != nil {
		return nil, err
	}

	equipment, err := stringList("equipment", decl.Equipment)
	if err != nil {
		return nil, err
	}

	preconditions := make([]label.Template, 0, len(decl.Preconditions))
	for i, raw := range decl.Preconditions {
		text, err := content.NonemptyString("precondition", raw)
		if err != nil {
			return nil, decorate(err, "precondition item", i+1)
		}
		tpl, err := label.Parse(text)
		if err != nil {
			return nil, decorate(err, "precondition item", i+1)
		}
		preconditions = append(preconditions, tpl)
	}

	procedure, err := b.buildProcedure(decl.Procedure)
	if err != nil {
		return nil, err
	}

	fields, err := b.activeFields(decl)
	if err != nil {
		return nil, err
	}

	signatures := make([]string, len(b.signatures))
	copy(signatures, b.signatures)

	return &content.Test{
		ID:            id,
		Title:         title,
		Objective:     objective,
		References:    references,
		Equipment:     equipment,
		Preconditions: preconditions,
		Procedure:     procedure,
		Fields:        fields,
		Signatures:    signatures,
		// Copied so later SetProjectInfo calls leave this test unaffected.
		Project: b.project,
	}, nil
}

func (b *Builder) buildReferences(refs map[string][]string) ([]content.ReferenceCategory, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	for catLabel := range refs {
		if _, ok := b.refTitles[catLabel]; !ok {
			return nil, errors.New(errors.Configuration,
				fmt.Sprintf("invalid reference category: %q", catLabel)).
				WithRemedy("Declare the category in setup before referencing it.")
		}
	}

	// Declaration order of the categories fixes the output order.
	var out []content.ReferenceCategory
	for _, catLabel := range b.refOrder {
		items, ok := refs[catLabel]
		if !ok {
			continue
		}
		var validated []string
		for _, item := range items {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			for _, seen := range validated {
				if seen == item {
					return nil, errors.New(errors.Configuration,
						fmt.Sprintf("duplicate reference: %q", item)).
						WithField("reference category", catLabel).
						WithRemedy("Ensure all references within a category are unique.")
				}
			}
			validated = append(validated, item)
		}
		out = append(out, content.ReferenceCategory{
			Label: catLabel,
			Title: b.refTitles[catLabel],
			Items: validated,
		})
	}
	return out, nil
}

func (b *Builder) buildProcedure(steps []StepDecl) ([]content.Step, error) {
	out := make([]content.Step, 0, len(steps))
	for i, decl := range steps {
		num := i + 1

		text, err := content.NonemptyString("procedure step text", decl.Text)
		if err != nil {
			return nil, decorate(err, "procedure step", num)
		}
		tpl, err := label.Parse(text)
		if err != nil {
			return nil, decorate(err, "procedure step", num)
		}

		fields := make([]content.StepField, 0, len(decl.Fields))
		for j, f := range decl.Fields {
			title, err := content.NonemptyString("procedure step field title", f.Title)
			if err != nil {
				return nil, decorate(decorate(err, "field", j+1), "procedure step", num)
			}
			length, err := content.ValidateFieldLength(f.Length)
			if err != nil {
				return nil, decorate(decorate(err, "field", j+1), "procedure step", num)
			}
			fields = append(fields, content.StepField{
				Title:  title,
				Length: length,
				Suffix: strings.TrimSpace(f.Suffix),
			})
		}

		// Step labels resolve to the bare step number within this test.
		if decl.Label != "" {
			if err := b.labels.Bind(decl.Label, strconv.Itoa(num)); err != nil {
				return nil, decorate(err, "procedure step", num)
			}
		}

		out = append(out, content.Step{Text: tpl, Fields: fields})
	}
	return out, nil
}

// activeFields resolves which project-wide fields apply to a test: all
// declared fields by default, replaced wholesale by ActiveFields, then
// adjusted by IncludeFields and ExcludeFields.
func (b *Builder) activeFields(decl TestDecl) ([]content.FieldDef, error) {
	active := make(map[string]bool, len(b.fields))
	if decl.ActiveFields != nil {
		for _, name := range decl.ActiveFields {
			if _, ok := b.fieldIndex[name]; !ok {
				return nil, unknownField(name)
			}
			active[name] = true
		}
	} else {
		for _, f := range b.fields {
			active[f.Name] = true
		}
	}
	for _, name := range decl.IncludeFields {
		if _, ok := b.fieldIndex[name]; !ok {
			return nil, unknownField(name)
		}
		active[name] = true
	}
	for _, name := range decl.ExcludeFields {
		if _, ok := b.fieldIndex[name]; !ok {
			return nil, unknownField(name)
		}
		delete(active, name)
	}

	var out []content.FieldDef
	for _, f := range b.fields {
		if active[f.Name] {
			out = append(out, f)
		}
	}
	return out, nil
}

func unknownField(name string) error {
	return errors.New(errors.Configuration,
		fmt.Sprintf("unknown field name: %q", name)).
		WithRemedy("Declare the field in setup before selecting it.")
}

func stringList(name string, items []string) ([]string, error) {
	out := make([]string, 0, len(items))
	for i, raw := range items {
		s, err := content.NonemptyString(name+" list item", raw)
		if err != nil {
			return nil, decorate(err, name+" item", i+1)
		}
		out = append(out, s)
	}
	return out, nil
}

// decorate appends a context field when the error is a ScriptError
func decorate(err error, key string, value interface{}) error {
	var se *errors.ScriptError
	if stderrors.As(err, &se) {
		return se.WithField(key, value)
	}
	return err
}

// Freeze completes the declaration phase, yielding the immutable
// intermediate representation consumed by the resolve pass.
func (b *Builder) Freeze() *Plan {
	tests := make([]content.Test, len(b.tests))
	copy(tests, b.tests)
	return &Plan{
		Depth:         b.alloc.Depth(),
		Tests:         tests,
		Labels:        b.labels,
		SectionTitles: b.alloc.SectionTitles(),
	}
}
