// Package lock persists label→identity bindings across runs to detect
// numbering drift.
//
// The lock file is human-readable TOML so a reviewer can inspect exactly
// which identities a script is expected to produce. A stale result is
// advisory only: drift can be an intended consequence of edits, so the
// caller decides whether to refresh the lock.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	gotoml "github.com/pelletier/go-toml/v2"

	"atp/internal/errors"
	"atp/internal/logging"
	"atp/internal/numbering"
	"atp/internal/version"
)

// Status reports whether a label's binding matches the previous run
type Status string

const (
	// StatusOK means the label is bound to the same identity as before
	StatusOK Status = "ok"
	// StatusStale means the binding changed, appeared, or disappeared
	StatusStale Status = "stale"
)

// Reason explains why a binding is stale
type Reason string

const (
	// ReasonChanged means the label now points at a different identity
	ReasonChanged Reason = "changed"
	// ReasonAdded means the label did not exist in the lock
	ReasonAdded Reason = "added"
	// ReasonRemoved means the label exists only in the lock
	ReasonRemoved Reason = "removed"
)

// Entry is the check result for one label
type Entry struct {
	Label     string `json:"label"`
	Status    Status `json:"status"`
	Reason    Reason `json:"reason,omitempty"`
	LockedID  string `json:"lockedId,omitempty"`
	CurrentID string `json:"currentId,omitempty"`
}

// Report aggregates the per-label check results
type Report struct {
	Entries []Entry `json:"entries"`
	Stale   int     `json:"stale"`
}

// OK reports whether every label matched the lock
func (r *Report) OK() bool {
	return r.Stale == 0
}

type fileData struct {
	Version int               `toml:"version"`
	Labels  map[string]string `toml:"labels"`
}

// Store is an ID lock backed by a single TOML file
type Store struct {
	path   string
	logger *logging.Logger
}

// NewStore creates a lock store at the given path
func NewStore(path string, logger *logging.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Exists reports whether a lock file is present
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads the persisted label→identity bindings from the previous
// run. A missing, corrupt, or version-mismatched lock yields an empty
// mapping, never an error.
func (s *Store) Load() map[string]string {
	var data fileData
	if _, err := toml.DecodeFile(s.path, &data); err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("ID lock unreadable, starting empty", map[string]interface{}{
				"path":  s.path,
				"error": err.Error(),
			})
		}
		return map[string]string{}
	}
	if data.Version != version.StoreVersion || data.Labels == nil {
		s.logger.Warn("ID lock version mismatch, starting empty", map[string]interface{}{
			"path": s.path,
		})
		return map[string]string{}
	}
	return data.Labels
}

// Check compares the current bindings against the lock, yielding OK or
// STALE per label. Entries are sorted by label for stable reporting.
func Check(previous, current map[string]string) *Report {
	labels := make(map[string]struct{}, len(previous)+len(current))
	for l := range previous {
		labels[l] = struct{}{}
	}
	for l := range current {
		labels[l] = struct{}{}
	}

	report := &Report{Entries: make([]Entry, 0, len(labels))}
	for l := range labels {
		prev, inPrev := previous[l]
		cur, inCur := current[l]

		entry := Entry{Label: l, LockedID: prev, CurrentID: cur}
		switch {
		case inPrev && inCur && prev == cur:
			entry.Status = StatusOK
		case inPrev && inCur:
			entry.Status = StatusStale
			entry.Reason = ReasonChanged
		case inCur:
			entry.Status = StatusStale
			entry.Reason = ReasonAdded
		default:
			entry.Status = StatusStale
			entry.Reason = ReasonRemoved
		}
		if entry.Status == StatusStale {
			report.Stale++
		}
		report.Entries = append(report.Entries, entry)
	}

	sort.Slice(report.Entries, func(i, j int) bool {
		return report.Entries[i].Label < report.Entries[j].Label
	})
	return report
}

// Save atomically replaces the lock with the current bindings, using the
// same write-then-rename discipline as the change cache.
func (s *Store) Save(current map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(errors.StoreWrite, "cannot create lock directory", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".idlock-*")
	if err != nil {
		return errors.Wrap(errors.StoreWrite, "cannot create lock temp file", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // Best effort cleanup after rename

	data := fileData{Version: version.StoreVersion, Labels: current}
	encoded, err := gotoml.Marshal(&data)
	if err != nil {
		tmp.Close() //nolint:errcheck
		return errors.Wrap(errors.StoreWrite, "cannot encode lock data", err)
	}
	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close() //nolint:errcheck
		return errors.Wrap(errors.StoreWrite, "cannot write lock data", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(errors.StoreWrite, "cannot close lock temp file", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrap(errors.StoreWrite,
			fmt.Sprintf("cannot replace ID lock %s", s.path), err)
	}
	return nil
}

// SortedIDs returns the locked identities in path order; used by status
// output to list bindings deterministically.
func SortedIDs(bindings map[string]string) []string {
	ids := make([]string, 0, len(bindings))
	for _, id := range bindings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := numbering.Parse(ids[i])
		b, errB := numbering.Parse(ids[j])
		if errA != nil || errB != nil {
			return ids[i] < ids[j]
		}
		return a.Compare(b) < 0
	})
	return ids
}
