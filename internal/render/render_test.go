package render

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"atp/internal/build"
	"atp/internal/logging"
)

func testResult(t *testing.T) *build.Result {
	t.Helper()
	b := build.NewBuilder()
	if err := b.SetDepth(2); err != nil {
		t.Fatalf("SetDepth: %v", err)
	}
	if err := b.OpenSection(0, "Startup"); err != nil {
		t.Fatalf("OpenSection: %v", err)
	}
	for _, title := range []string{"Power Up", "Self Test"} {
		if _, err := b.AddTest(build.TestDecl{
			Title:     title,
			Procedure: []build.StepDecl{{Text: "Do the thing."}},
		}); err != nil {
			t.Fatalf("AddTest: %v", err)
		}
	}

	result, err := b.Freeze().Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return result
}

func testRenderer(dir string) *Renderer {
	return NewRenderer(dir, "ab12cd3", FormatJSON,
		logging.NewLogger(logging.Config{Output: io.Discard}))
}

func TestRenderWritesDocumentsAndManifest(t *testing.T) {
	dir := t.TempDir()
	result := testResult(t)

	if err := testRenderer(dir).Render(result, result.IDs(), map[string]bool{"1.2": true}); err != nil {
		t.Fatalf("Render: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "1.1.json"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if doc.Version != "ab12cd3" || doc.Section != "Startup" || doc.Test.Title != "Power Up" {
		t.Errorf("document = %+v", doc)
	}

	data, err = os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		t.Fatalf("ReadFile manifest: %v", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("Unmarshal manifest: %v", err)
	}
	if len(manifest.Tests) != 2 {
		t.Fatalf("manifest tests = %+v", manifest.Tests)
	}
	if manifest.Tests[0].Changed || !manifest.Tests[1].Changed {
		t.Errorf("changed flags = %+v", manifest.Tests)
	}
	if manifest.Tests[0].Fingerprint == "" {
		t.Error("manifest entry missing fingerprint")
	}
}

// Narrowing the rendered set skips document files but the manifest still
// indexes every test.
func TestRenderSelectedSubset(t *testing.T) {
	dir := t.TempDir()

	if err := testRenderer(dir).Render(testResult(t), []string{"1.2"}, nil); err != nil {
		t.Fatalf("Render: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "1.1.json")); !os.IsNotExist(err) {
		t.Error("unselected document should not be written")
	}
	if _, err := os.Stat(filepath.Join(dir, "1.2.json")); err != nil {
		t.Errorf("selected document missing: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		t.Fatalf("ReadFile manifest: %v", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("Unmarshal manifest: %v", err)
	}
	if len(manifest.Tests) != 2 {
		t.Errorf("manifest should cover all tests, got %+v", manifest.Tests)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	result := testResult(t)

	a, err := Encode(result.Tests[0])
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	b, err := Encode(result.Tests[0])
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("identical input should encode to identical bytes")
	}
	if a[len(a)-1] != '\n' {
		t.Error("encoded document should end with a newline")
	}
}

// A selection that matched nothing renders no documents; only the
// manifest is written.
func TestRenderEmptySelectionWritesNothing(t *testing.T) {
	dir := t.TempDir()

	if err := testRenderer(dir).Render(testResult(t), nil, nil); err != nil {
		t.Fatalf("Render: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if e.Name() != "manifest.json" {
			t.Errorf("unexpected document %s for empty selection", e.Name())
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		t.Fatalf("ReadFile manifest: %v", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("Unmarshal manifest: %v", err)
	}
	if len(manifest.Tests) != 2 {
		t.Errorf("manifest should still cover all tests, got %+v", manifest.Tests)
	}
}

func TestRenderYAMLFormat(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(dir, "ab12cd3", FormatYAML,
		logging.NewLogger(logging.Config{Output: io.Discard}))

	result := testResult(t)
	if err := r.Render(result, result.IDs(), nil); err != nil {
		t.Fatalf("Render: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "1.1.yaml")); err != nil {
		t.Errorf("YAML document missing: %v", err)
	}
	// The manifest stays JSON regardless of the document format.
	if _, err := os.Stat(filepath.Join(dir, "manifest.json")); err != nil {
		t.Errorf("manifest missing: %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(\"\") = %v, %v", f, err)
	}
	if f, err := ParseFormat("yaml"); err != nil || f != FormatYAML {
		t.Errorf("ParseFormat(yaml) = %v, %v", f, err)
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Error("unknown format should fail")
	}
}

func TestEncodeDoesNotEscapeHTML(t *testing.T) {
	data, err := Encode(map[string]string{"text": "a < b"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Contains(data, []byte("a < b")) {
		t.Errorf("HTML escaping should be disabled, got %s", data)
	}
}
