// Package artifacts locates run image artifacts on disk. The convention is
// lookup by filename prefix: a file belongs to a run when its name starts
// with the run's id. This is deliberately not a designed storage subsystem.
package artifacts

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoArtifact is returned when a run has no matching files.
type ErrNoArtifact struct {
	RunID string
	Path  string
}

func (e *ErrNoArtifact) Error() string {
	return "no artifact for run " + e.RunID + " in " + e.Path
}

// Dir is an artifact directory handle.
type Dir struct {
	path string
}

// NewDir creates a handle for the directory at path. The directory is not
// required to exist; lookups against a missing directory behave as empty.
func NewDir(path string) *Dir {
	return &Dir{path: path}
}

// Path returns the configured directory path.
func (d *Dir) Path() string { return d.path }

// List returns the filenames (sorted, no directory component) of all
// artifacts whose name is prefixed by runID. A run with no artifacts
// yields an empty slice, not an error.
func (d *Dir) List(runID string) ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	names := make([]string, 0)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), runID) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Resolve returns the full path of the first artifact for runID, or
// *ErrNoArtifact when none matches.
func (d *Dir) Resolve(runID string) (string, error) {
	names, err := d.List(runID)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", &ErrNoArtifact{RunID: runID, Path: d.path}
	}
	return filepath.Join(d.path, names[0]), nil
}
