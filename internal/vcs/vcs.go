// Package vcs derives a version stamp for generated documents from the
// state of the enclosing git repository.
//
// Version control is optional: when git is unavailable or the working
// directory is not a repository, documents are simply stamped as drafts.
// Nothing here ever fails a build.
package vcs

import (
	"os/exec"
	"strings"
)

// DraftStamp marks documents built from uncommitted or unversioned content
const DraftStamp = "draft"

// Revision describes the repository state a build ran against
type Revision struct {
	Commit string `json:"commit,omitempty"`
	Dirty  bool   `json:"dirty"`
	Known  bool   `json:"known"`
}

// Describe inspects the repository containing dir. A missing git binary
// or a non-repository directory yields an unknown revision, not an error.
func Describe(dir string) Revision {
	commit, err := gitOutput(dir, "rev-parse", "--short", "HEAD")
	if err != nil {
		return Revision{}
	}

	status, err := gitOutput(dir, "status", "--porcelain")
	if err != nil {
		return Revision{}
	}

	return Revision{
		Commit: commit,
		Dirty:  status != "",
		Known:  true,
	}
}

// Stamp returns the version string placed on generated documents: the
// abbreviated commit for a clean checkout, DraftStamp otherwise.
func (r Revision) Stamp() string {
	if !r.Known || r.Dirty || r.Commit == "" {
		return DraftStamp
	}
	return r.Commit
}

func gitOutput(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir

	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}
