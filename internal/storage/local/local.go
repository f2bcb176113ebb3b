// Package local keeps the dataset in an xlsx file on the local filesystem.
package local

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aanand-mishra/students-form/internal/apperr"
	"github.com/aanand-mishra/students-form/internal/storage/sheet"
	"github.com/aanand-mishra/students-form/internal/types"
)

// Store implements storage.Storage over a single file.
type Store struct {
	path string
	log  *slog.Logger
}

// New returns a Store for the workbook at path. The file does not need to
// exist yet; Load reports a LoadFailure until something saves it.
func New(path string, log *slog.Logger) *Store {
	return &Store{path: path, log: log}
}

// Path returns the backing file location.
func (s *Store) Path() string { return s.path }

func (s *Store) Load(ctx context.Context) (types.Dataset, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.log.ErrorContext(ctx, "error loading data", slog.String("path", s.path), slog.String("error", err.Error()))
		return types.Dataset{}, apperr.Wrap(err, apperr.CodeLoadFailed, "Error loading data")
	}

	ds, err := sheet.Decode(data)
	if err != nil {
		s.log.ErrorContext(ctx, "error decoding data", slog.String("path", s.path), slog.String("error", err.Error()))
		return types.Dataset{}, apperr.Wrap(err, apperr.CodeLoadFailed, "Error loading data")
	}
	if uids := ds.UnreadableDOB(); len(uids) > 0 {
		s.log.WarnContext(ctx, "rows with an unreadable dob cannot log in",
			slog.String("path", s.path), slog.Any("uids", uids))
	}
	return ds, nil
}

// Save writes to a temporary file next to the target and renames it over
// the target, so a crash mid-write never leaves a truncated workbook.
func (s *Store) Save(ctx context.Context, ds types.Dataset) error {
	data, err := sheet.Encode(ds)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeSaveFailed, "Error saving data")
	}

	if err := writeFile(s.path, data); err != nil {
		s.log.ErrorContext(ctx, "error saving data", slog.String("path", s.path), slog.String("error", err.Error()))
		return apperr.Wrap(err, apperr.CodeSaveFailed, "Error saving data")
	}
	s.log.DebugContext(ctx, "data saved", slog.String("path", s.path), slog.Int("records", ds.Len()))
	return nil
}

func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("writeFile: create temp: %w", err)
	}
	// Removing after a successful rename fails harmlessly.
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writeFile: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writeFile: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writeFile: rename: %w", err)
	}
	return nil
}
