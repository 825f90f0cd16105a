package script

import (
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"atp/internal/build"
	"atp/internal/errors"
	"atp/internal/logging"
)

func testLoader() *Loader {
	return NewLoader(logging.NewLogger(logging.Config{Output: io.Discard}))
}

func writeDoc(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

const fullDoc = `
setup:
  idDepth: 2
  project:
    name: Plant
    system: Conveyor
  fields:
    - name: version
      title: Software Version
      length: 12
  signatures:
    - Tester
  referenceCategories:
    - label: C1
      title: Customer Requirements
tests:
  - section:
      title: Startup
  - test:
      title: Power Up
      label: power_up
      objective: Verify the system powers up.
      references:
        C1: [r1, r2]
      equipment:
        - Multimeter
      preconditions:
        - Panel is closed.
      procedure:
        - Apply power.
        - text: Observe the status lamp.
          label: lamp
          fields:
            - title: Voltage
              length: 4
              suffix: VDC
  - endSection: true
  - section:
      title: Shutdown
  - test:
      title: Power Down
      objective: Reverse of test $power_up.
`

func TestLoadFullDocument(t *testing.T) {
	path := writeDoc(t, t.TempDir(), "spec.yaml", fullDoc)

	b := build.NewBuilder()
	if err := testLoader().LoadFiles(b, []string{path}); err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}

	result, err := b.Freeze().Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	test, ok := result.Test("1.1")
	if !ok {
		t.Fatal("resolved test 1.1 missing")
	}
	if test.Title != "Power Up" || test.Project.Project != "Plant" {
		t.Errorf("test 1.1 = %+v", test)
	}
	if len(test.Procedure) != 2 || len(test.Procedure[1].Fields) != 1 {
		t.Errorf("procedure = %+v", test.Procedure)
	}
	if test.Procedure[1].Fields[0].Suffix != "VDC" {
		t.Errorf("step field = %+v", test.Procedure[1].Fields[0])
	}
	if len(test.References) != 1 || test.References[0].Title != "Customer Requirements" {
		t.Errorf("references = %+v", test.References)
	}
	if len(test.Fields) != 1 || len(test.Signatures) != 1 {
		t.Errorf("fields = %+v, signatures = %v", test.Fields, test.Signatures)
	}

	down, ok := result.Test("2.1")
	if !ok {
		t.Fatal("resolved test 2.1 missing")
	}
	if down.Objective != "Reverse of test 1.1." {
		t.Errorf("Objective = %q", down.Objective)
	}
}

// Documents load in sorted path order regardless of the order given, so a
// multi-file specification numbers its tests deterministically.
func TestFilesLoadInSortedOrder(t *testing.T) {
	dir := t.TempDir()
	a := writeDoc(t, dir, "10-first.yaml", "tests:\n  - test:\n      title: First\n      label: first\n")
	b := writeDoc(t, dir, "20-second.yaml", "tests:\n  - test:\n      title: Second\n      label: second\n")

	builder := build.NewBuilder()
	if err := testLoader().LoadFiles(builder, []string{b, a}); err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}

	plan := builder.Freeze()
	result, err := plan.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.Labels["first"] != "1" || result.Labels["second"] != "2" {
		t.Errorf("Labels = %v", result.Labels)
	}
}

func TestUnknownKeyRejected(t *testing.T) {
	path := writeDoc(t, t.TempDir(), "spec.yaml",
		"tests:\n  - test:\n      title: A\n      objectve: typo\n")

	err := testLoader().LoadFiles(build.NewBuilder(), []string{path})
	if !errors.Is(err, errors.Configuration) {
		t.Errorf("LoadFiles error = %v, want CONFIGURATION", err)
	}
}

func TestUnknownStepKeyRejected(t *testing.T) {
	path := writeDoc(t, t.TempDir(), "spec.yaml",
		"tests:\n  - test:\n      title: A\n      procedure:\n        - text: Step.\n          labell: typo\n")

	if err := testLoader().LoadFiles(build.NewBuilder(), []string{path}); err == nil {
		t.Error("unknown step key should fail")
	}
}

func TestEntryMustBeSingleVariant(t *testing.T) {
	path := writeDoc(t, t.TempDir(), "spec.yaml",
		"tests:\n  - test:\n      title: A\n    endSection: true\n")

	err := testLoader().LoadFiles(build.NewBuilder(), []string{path})
	if !errors.Is(err, errors.Configuration) {
		t.Errorf("LoadFiles error = %v, want CONFIGURATION", err)
	}
}

func TestSkipEntry(t *testing.T) {
	path := writeDoc(t, t.TempDir(), "spec.yaml",
		"tests:\n  - test:\n      title: A\n  - skip:\n      next: 10\n  - test:\n      title: B\n      label: b\n")

	b := build.NewBuilder()
	if err := testLoader().LoadFiles(b, []string{path}); err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}
	result, err := b.Freeze().Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.Labels["b"] != "10" {
		t.Errorf("Labels = %v, want b at 10", result.Labels)
	}
}

func TestBuilderErrorsCarryDocumentContext(t *testing.T) {
	path := writeDoc(t, t.TempDir(), "spec.yaml",
		"tests:\n  - test:\n      title: \"   \"\n")

	err := testLoader().LoadFiles(build.NewBuilder(), []string{path})
	if err == nil {
		t.Fatal("blank title should fail")
	}
	var se *errors.ScriptError
	if !stderrors.As(err, &se) {
		t.Fatalf("error = %T, want ScriptError", err)
	}
	found := map[string]bool{}
	for _, f := range se.Fields {
		found[f.Key] = true
	}
	if !found["document"] || !found["entry"] {
		t.Errorf("error fields = %+v, want document and entry context", se.Fields)
	}
}

// Every document in a multi-document file loads, in order.
func TestMultiDocumentFile(t *testing.T) {
	path := writeDoc(t, t.TempDir(), "spec.yaml",
		"tests:\n  - test:\n      title: First\n      label: first\n"+
			"---\n"+
			"tests:\n  - test:\n      title: Second\n      label: second\n")

	b := build.NewBuilder()
	if err := testLoader().LoadFiles(b, []string{path}); err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}

	result, err := b.Freeze().Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.Labels["first"] != "1" || result.Labels["second"] != "2" {
		t.Errorf("Labels = %v, want both documents applied", result.Labels)
	}
}

func TestLoadGlobNoMatches(t *testing.T) {
	err := testLoader().LoadGlob(build.NewBuilder(), filepath.Join(t.TempDir(), "*.yaml"))
	if !errors.Is(err, errors.Configuration) {
		t.Errorf("LoadGlob error = %v, want CONFIGURATION", err)
	}
}
