// Package storage defines the contracts the rest of the application relies
// on for persistence.
//
// Handlers and the session service never talk to a file or to the remote
// contents API directly. They hold a Storage, and main.go decides which
// backend satisfies it (local.Store or remote.Store). Tests pass an in-memory
// fake.
package storage

import (
	"context"

	"github.com/aanand-mishra/students-form/internal/types"
)

// Storage is the Record Store Adapter.
//
// The whole dataset is read and written in one piece. There is no locking:
// two sessions saving at the same time can overwrite each other.
type Storage interface {
	// Load fetches and decodes the backing file. On failure it returns an
	// empty Dataset together with an apperr.CodeLoadFailed error.
	Load(ctx context.Context) (types.Dataset, error)

	// Save encodes ds and replaces the backing file with it. Failures carry
	// apperr.CodeSaveFailed (or apperr.CodeConflict when the remote store
	// rejected the version token).
	Save(ctx context.Context, ds types.Dataset) error
}

// AuditLog records every update that reached the backing store.
type AuditLog interface {
	Append(ctx context.Context, entry types.AuditEntry) (int64, error)
	List(ctx context.Context, limit int) ([]types.AuditEntry, error)
}
