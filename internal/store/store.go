// Package store persists projects as JSON files. Fields this version does
// not know about survive a load/save round trip untouched, so newer project
// files can pass through older builds.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/rdyjun/lclip/internal/scene"
	"github.com/rdyjun/lclip/pkg/types"
)

// ProjectStore reads and writes project files.
type ProjectStore struct {
	logger zerolog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewProjectStore creates a store.
func NewProjectStore(logger zerolog.Logger) *ProjectStore {
	return &ProjectStore{logger: logger, now: time.Now}
}

// Load reads a project file.
func (s *ProjectStore) Load(path string) (*scene.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read project %s", path)
	}
	var p scene.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrapf(err, "failed to parse project %s", path)
	}
	return &p, nil
}

// Save writes the project atomically: a temp file in the same directory is
// renamed over the target, so a crash mid-write never corrupts the previous
// version. UpdatedAt is bumped as part of saving.
func (s *ProjectStore) Save(path string, p *scene.Project) error {
	p.UpdatedAt = s.now().UTC()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode project")
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".project-*.json")
	if err != nil {
		return errors.Wrapf(err, "failed to create temp file in %s", dir)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write project")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to flush project")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrapf(err, "failed to replace %s", path)
	}

	s.logger.Debug().Str("path", path).Msg("project saved")
	return nil
}

// StatusPath is the export status file kept next to a project file.
func StatusPath(projectPath string) string {
	ext := filepath.Ext(projectPath)
	return projectPath[:len(projectPath)-len(ext)] + ".status.json"
}

// StatusFile persists export status next to the project, implementing the
// render package's status sink.
type StatusFile struct {
	path string
}

// NewStatusFile creates a status writer for a project path.
func NewStatusFile(projectPath string) *StatusFile {
	return &StatusFile{path: StatusPath(projectPath)}
}

// WriteStatus replaces the status file. Last write wins; there is a single
// writer per export.
func (f *StatusFile) WriteStatus(status types.ExportStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := os.WriteFile(f.path, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write status %s", f.path)
	}
	return nil
}

// ReadStatus loads the last persisted status, for polling.
func (f *StatusFile) ReadStatus() (*types.ExportStatus, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read status %s", f.path)
	}
	var st types.ExportStatus
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, errors.WithStack(err)
	}
	return &st, nil
}
