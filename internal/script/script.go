// Package script loads declarative YAML test specifications and replays
// them onto a build.Builder.
//
// Documents are processed in sorted file order so a specification split
// across files declares tests in a stable, predictable sequence. Unknown
// keys are rejected: a typo in a specification must fail loudly rather
// than silently dropping content.
package script

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"atp/internal/build"
	"atp/internal/content"
	"atp/internal/errors"
	"atp/internal/logging"
)

type document struct {
	Setup *setupSection `yaml:"setup"`
	Tests []entry       `yaml:"tests"`
}

type setupSection struct {
	IDDepth             int          `yaml:"idDepth"`
	Project             *projectNode `yaml:"project"`
	Fields              []fieldNode  `yaml:"fields"`
	Signatures          []string     `yaml:"signatures"`
	ReferenceCategories []refCatNode `yaml:"referenceCategories"`
}

type projectNode struct {
	Name   string `yaml:"name"`
	System string `yaml:"system"`
}

type fieldNode struct {
	Name   string `yaml:"name"`
	Title  string `yaml:"title"`
	Length int    `yaml:"length"`
}

type refCatNode struct {
	Label string `yaml:"label"`
	Title string `yaml:"title"`
}

// entry is one item of the tests list: exactly one of the variants
type entry struct {
	Section    *sectionNode `yaml:"section"`
	EndSection bool         `yaml:"endSection"`
	Skip       *skipNode    `yaml:"skip"`
	Test       *testNode    `yaml:"test"`
}

type sectionNode struct {
	Number int    `yaml:"number"`
	Title  string `yaml:"title"`
}

type skipNode struct {
	Next int `yaml:"next"`
}

type testNode struct {
	Title         string              `yaml:"title"`
	Label         string              `yaml:"label"`
	Objective     string              `yaml:"objective"`
	References    map[string][]string `yaml:"references"`
	Equipment     []string            `yaml:"equipment"`
	Preconditions []string            `yaml:"preconditions"`
	Procedure     []stepNode          `yaml:"procedure"`
	IncludeFields []string            `yaml:"includeFields"`
	ExcludeFields []string            `yaml:"excludeFields"`
	ActiveFields  []string            `yaml:"activeFields"`
}

// stepNode accepts either a bare instruction string or a mapping with
// text, label, and data entry fields.
type stepNode struct {
	Text   string
	Label  string
	Fields []stepFieldNode
}

type stepFieldNode struct {
	Title  string `yaml:"title"`
	Length int    `yaml:"length"`
	Suffix string `yaml:"suffix"`
}

var stepKeys = map[string]bool{"text": true, "label": true, "fields": true}

// UnmarshalYAML implements the string-or-mapping step form
func (s *stepNode) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&s.Text)
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: a procedure step must be a string or a mapping", node.Line)
	}

	// node.Decode does not inherit strict decoding; check keys here.
	for i := 0; i < len(node.Content); i += 2 {
		if key := node.Content[i].Value; !stepKeys[key] {
			return fmt.Errorf("line %d: unknown procedure step key %q", node.Content[i].Line, key)
		}
	}

	var m struct {
		Text   string          `yaml:"text"`
		Label  string          `yaml:"label"`
		Fields []stepFieldNode `yaml:"fields"`
	}
	if err := node.Decode(&m); err != nil {
		return err
	}
	s.Text = m.Text
	s.Label = m.Label
	s.Fields = m.Fields
	return nil
}

// Loader replays specification documents onto a builder
type Loader struct {
	logger *logging.Logger
}

// NewLoader creates a document loader
func NewLoader(logger *logging.Logger) *Loader {
	return &Loader{logger: logger}
}

// LoadGlob loads every document matching the pattern, in sorted order
func (l *Loader) LoadGlob(b *build.Builder, pattern string) error {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return errors.Wrap(errors.Configuration,
			fmt.Sprintf("invalid script pattern %q", pattern), err)
	}
	if len(paths) == 0 {
		return errors.New(errors.Configuration,
			fmt.Sprintf("no test specifications match %q", pattern)).
			WithRemedy("Create a specification document or adjust the scripts setting.")
	}
	return l.LoadFiles(b, paths)
}

// LoadFiles loads the given documents in sorted order
func (l *Loader) LoadFiles(b *build.Builder, paths []string) error {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	for _, path := range sorted {
		if err := l.loadFile(b, path); err != nil {
			return decorate(err, "document", path)
		}
	}
	return nil
}

func (l *Loader) loadFile(b *build.Builder, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(errors.Configuration, "cannot open specification", err)
	}
	defer f.Close() //nolint:errcheck // Read-only file

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	// A file may hold several "---" separated documents; apply each in order.
	entries := 0
	for {
		var doc document
		if err := dec.Decode(&doc); err != nil {
			if stderrors.Is(err, io.EOF) {
				break
			}
			return errors.Wrap(errors.Configuration, "cannot parse specification", err)
		}
		entries += len(doc.Tests)
		if err := applyDocument(b, &doc); err != nil {
			return err
		}
	}

	l.logger.Debug("Loaded specification document", map[string]interface{}{
		"path":    path,
		"entries": entries,
	})
	return nil
}

func applyDocument(b *build.Builder, doc *document) error {
	if doc.Setup != nil {
		if err := applySetup(b, doc.Setup); err != nil {
			return err
		}
	}

	for i, e := range doc.Tests {
		if err := applyEntry(b, e); err != nil {
			return decorate(err, "entry", i+1)
		}
	}
	return nil
}

func applySetup(b *build.Builder, setup *setupSection) error {
	if setup.IDDepth != 0 {
		if err := b.SetDepth(setup.IDDepth); err != nil {
			return err
		}
	}
	if setup.Project != nil {
		if err := b.SetProjectInfo(setup.Project.Name, setup.Project.System); err != nil {
			return err
		}
	}
	for _, f := range setup.Fields {
		if err := b.AddField(f.Name, f.Title, f.Length); err != nil {
			return err
		}
	}
	for _, s := range setup.Signatures {
		if err := b.AddSignature(s); err != nil {
			return err
		}
	}
	for _, c := range setup.ReferenceCategories {
		if err := b.AddReferenceCategory(c.Label, c.Title); err != nil {
			return err
		}
	}
	return nil
}

func applyEntry(b *build.Builder, e entry) error {
	variants := 0
	if e.Section != nil {
		variants++
	}
	if e.EndSection {
		variants++
	}
	if e.Skip != nil {
		variants++
	}
	if e.Test != nil {
		variants++
	}
	if variants != 1 {
		return errors.New(errors.Configuration,
			"each tests entry must be exactly one of section, endSection, skip, or test")
	}

	switch {
	case e.Section != nil:
		return b.OpenSection(e.Section.Number, e.Section.Title)
	case e.EndSection:
		return b.CloseSection()
	case e.Skip != nil:
		return b.Skip(e.Skip.Next)
	default:
		_, err := b.AddTest(declFromNode(e.Test))
		return err
	}
}

func declFromNode(n *testNode) build.TestDecl {
	steps := make([]build.StepDecl, len(n.Procedure))
	for i, s := range n.Procedure {
		fields := make([]content.StepField, len(s.Fields))
		for j, f := range s.Fields {
			fields[j] = content.StepField{Title: f.Title, Length: f.Length, Suffix: f.Suffix}
		}
		steps[i] = build.StepDecl{Text: s.Text, Label: s.Label, Fields: fields}
	}

	return build.TestDecl{
		Title:         n.Title,
		Label:         n.Label,
		Objective:     n.Objective,
		References:    n.References,
		Equipment:     n.Equipment,
		Preconditions: n.Preconditions,
		Procedure:     steps,
		IncludeFields: n.IncludeFields,
		ExcludeFields: n.ExcludeFields,
		ActiveFields:  n.ActiveFields,
	}
}

func decorate(err error, key string, value interface{}) error {
	var se *errors.ScriptError
	if stderrors.As(err, &se) {
		return se.WithField(key, value)
	}
	return err
}
