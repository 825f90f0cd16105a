// Package cache persists per-identity content fingerprints across runs.
//
// The store is a zstd-compressed JSON mapping replaced atomically on
// save (write-then-rename), so a crash mid-write never corrupts the
// previous state. A missing or unreadable store is treated as empty and
// rebuilt from the current run; fingerprints are always recorded for all
// tests regardless of which subset a run selected for output.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"atp/internal/errors"
	"atp/internal/logging"
	"atp/internal/numbering"
	"atp/internal/version"
)

type fileData struct {
	Version int               `json:"version"`
	Tests   map[string]string `json:"tests"`
}

// Store is a change cache backed by a single file
type Store struct {
	path   string
	logger *logging.Logger
}

// NewStore creates a cache store at the given path
func NewStore(path string, logger *logging.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Load reads the persisted identity→fingerprint mapping from the
// previous run. A missing, corrupt, or version-mismatched store yields an
// empty mapping, never an error.
func (s *Store) Load() map[string]string {
	f, err := os.Open(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Cache store unreadable, starting empty", map[string]interface{}{
				"path":  s.path,
				"error": err.Error(),
			})
		}
		return map[string]string{}
	}
	defer f.Close() //nolint:errcheck // Read-only file

	dec, err := zstd.NewReader(f)
	if err != nil {
		s.logger.Warn("Cache store corrupt, starting empty", map[string]interface{}{
			"path": s.path,
		})
		return map[string]string{}
	}
	defer dec.Close()

	var data fileData
	if err := json.NewDecoder(dec.IOReadCloser()).Decode(&data); err != nil || data.Version != version.StoreVersion {
		s.logger.Warn("Cache store invalid, starting empty", map[string]interface{}{
			"path": s.path,
		})
		return map[string]string{}
	}
	if data.Tests == nil {
		return map[string]string{}
	}
	return data.Tests
}

// Compare returns the identities whose fingerprint is new or differs from
// the previous mapping, sorted in path order.
func Compare(previous, current map[string]string) []string {
	var changed []string
	for id, digest := range current {
		if prev, ok := previous[id]; !ok || prev != digest {
			changed = append(changed, id)
		}
	}
	sortIDs(changed)
	return changed
}

// Save atomically replaces the persisted mapping with the current run's
// fingerprints. Failure to write is fatal to the caller: silently losing
// change tracking would defeat the feature.
func (s *Store) Save(current map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(errors.StoreWrite, "cannot create cache directory", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".cache-*")
	if err != nil {
		return errors.Wrap(errors.StoreWrite, "cannot create cache temp file", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // Best effort cleanup after rename

	enc, err := zstd.NewWriter(tmp)
	if err != nil {
		tmp.Close() //nolint:errcheck
		return errors.Wrap(errors.StoreWrite, "cannot initialize cache compressor", err)
	}

	data := fileData{Version: version.StoreVersion, Tests: current}
	if err := json.NewEncoder(enc).Encode(&data); err != nil {
		enc.Close() //nolint:errcheck
		tmp.Close() //nolint:errcheck
		return errors.Wrap(errors.StoreWrite, "cannot encode cache data", err)
	}
	if err := enc.Close(); err != nil {
		tmp.Close() //nolint:errcheck
		return errors.Wrap(errors.StoreWrite, "cannot flush cache data", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(errors.StoreWrite, "cannot close cache temp file", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrap(errors.StoreWrite,
			fmt.Sprintf("cannot replace cache store %s", s.path), err)
	}
	return nil
}

// sortIDs orders dotted identifiers in numeric path order, falling back
// to string order for anything unparsable.
func sortIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		a, errA := numbering.Parse(ids[i])
		b, errB := numbering.Parse(ids[j])
		if errA != nil || errB != nil {
			return ids[i] < ids[j]
		}
		return a.Compare(b) < 0
	})
}
