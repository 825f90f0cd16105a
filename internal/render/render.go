// Package render emits resolved test procedures as deterministic JSON
// documents, one file per test plus a manifest describing the run.
//
// Identical resolved content produces byte-identical files: keys come
// from fixed struct tags, HTML escaping is disabled, and empty optional
// sections are omitted. Downstream formatters consume these documents to
// produce printable output.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"atp/internal/build"
	"atp/internal/content"
	"atp/internal/errors"
	"atp/internal/logging"
)

// Format selects the document encoding
type Format string

const (
	// FormatJSON emits canonical JSON documents
	FormatJSON Format = "json"
	// FormatYAML emits YAML documents
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatYAML:
		return Format(s), nil
	case "":
		return FormatJSON, nil
	}
	return "", errors.New(errors.Configuration,
		fmt.Sprintf("unknown output format %q", s)).
		WithRemedy("Supported formats: json, yaml.")
}

// Document is the rendered form of one test procedure
type Document struct {
	Version string               `json:"version"`
	Section string               `json:"section,omitempty"`
	Test    content.ResolvedTest `json:"test"`
}

// ManifestEntry summarizes one rendered test in the manifest
type ManifestEntry struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Fingerprint string `json:"fingerprint"`
	Changed     bool   `json:"changed,omitempty"`
	File        string `json:"file"`
}

// Manifest indexes a rendered document set
type Manifest struct {
	Version       string            `json:"version"`
	SectionTitles map[string]string `json:"sectionTitles,omitempty"`
	Tests         []ManifestEntry   `json:"tests"`
}

// Renderer writes document sets for one build outcome
type Renderer struct {
	outDir string
	stamp  string
	format Format
	logger *logging.Logger
}

// NewRenderer creates a renderer targeting the given output directory.
// The stamp is the version string placed on every document, typically
// vcs.Revision.Stamp().
func NewRenderer(outDir, stamp string, format Format, logger *logging.Logger) *Renderer {
	if format == "" {
		format = FormatJSON
	}
	return &Renderer{outDir: outDir, stamp: stamp, format: format, logger: logger}
}

// Render writes one document per identity in ids, plus the manifest.
// The id list is taken literally: a selection that matched nothing
// renders nothing, and callers wanting every test pass result.IDs().
// The manifest always covers the full result so a narrowed render still
// indexes the whole procedure set.
func (r *Renderer) Render(result *build.Result, ids []string, changed map[string]bool) error {
	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return errors.Wrap(errors.StoreWrite, "cannot create output directory", err)
	}

	selected := make(map[string]bool, len(ids))
	for _, id := range ids {
		selected[id] = true
	}

	manifest := Manifest{
		Version:       r.stamp,
		SectionTitles: result.SectionTitles,
	}

	written := 0
	for i := range result.Tests {
		test := &result.Tests[i]
		file := test.ID + "." + string(r.format)
		manifest.Tests = append(manifest.Tests, ManifestEntry{
			ID:          test.ID,
			Title:       test.Title,
			Fingerprint: result.Fingerprints[test.ID],
			Changed:     changed[test.ID],
			File:        file,
		})

		if !selected[test.ID] {
			continue
		}
		doc := Document{
			Version: r.stamp,
			Section: sectionTitle(result, test.ID),
			Test:    *test,
		}
		if err := r.writeDoc(file, doc); err != nil {
			return err
		}
		written++
	}

	// The manifest is always JSON so tooling can rely on one index shape.
	if err := r.writeDoc("manifest.json", manifest); err != nil {
		return err
	}

	r.logger.Info("Rendered documents", map[string]interface{}{
		"outputDir": r.outDir,
		"documents": written,
	})
	return nil
}

// sectionTitle returns the title of the test's innermost enclosing
// section, or empty when the test sits at the top level.
func sectionTitle(result *build.Result, id string) string {
	dot := -1
	for i := len(id) - 1; i >= 0; i-- {
		if id[i] == '.' {
			dot = i
			break
		}
	}
	if dot < 0 {
		return ""
	}
	return result.SectionTitles[id[:dot]]
}

// Encode produces the canonical document bytes: two-space indent, no
// HTML escaping, trailing newline.
func Encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Renderer) writeDoc(name string, v interface{}) error {
	var (
		data []byte
		err  error
	)
	if filepath.Ext(name) == ".yaml" {
		data, err = yaml.Marshal(v)
	} else {
		data, err = Encode(v)
	}
	if err != nil {
		return errors.Wrap(errors.StoreWrite,
			fmt.Sprintf("cannot encode %s", name), err)
	}

	// Write-then-rename so a failed render never leaves a torn document.
	tmp, err := os.CreateTemp(r.outDir, ".render-*")
	if err != nil {
		return errors.Wrap(errors.StoreWrite, "cannot create temporary file", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()           //nolint:errcheck // Best effort cleanup
		os.Remove(tmp.Name()) //nolint:errcheck // Best effort cleanup
		return errors.Wrap(errors.StoreWrite,
			fmt.Sprintf("cannot write %s", name), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck // Best effort cleanup
		return errors.Wrap(errors.StoreWrite,
			fmt.Sprintf("cannot write %s", name), err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(r.outDir, name)); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck // Best effort cleanup
		return errors.Wrap(errors.StoreWrite,
			fmt.Sprintf("cannot replace %s", name), err)
	}
	return nil
}
