// Package store persists briefs and serializes every change per client code.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/kingrea/brief-maestro/internal/brief"
	"github.com/kingrea/brief-maestro/internal/config"
)

// Summary is the listing view of a stored brief.
type Summary struct {
	Code      string       `json:"code"`
	Status    brief.Status `json:"status"`
	Archived  bool         `json:"archived"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// UpdateFunc changes a loaded brief in place and returns its new rendering.
// Returning an error abandons the update.
type UpdateFunc func(b *brief.Brief) ([]byte, error)

// Backend reads and writes whole briefs. Implementations report missing
// briefs with brief.ErrNotFound and duplicate inserts with
// brief.ErrAlreadyExists. Loaded briefs carry only populated fields.
//
// Update holds a lock that excludes every other writer of the same brief,
// including writers in other processes, from the load until the save.
type Backend interface {
	Insert(ctx context.Context, b *brief.Brief, rendered []byte) error
	Load(ctx context.Context, code string) (*brief.Brief, error)
	Update(ctx context.Context, code string, apply UpdateFunc) error
	List(ctx context.Context, includeArchived bool) ([]Summary, error)
	Close() error
}

// Open returns the backend selected by the project configuration.
func Open(cfg *config.Config) (Backend, error) {
	switch cfg.Backend() {
	case config.BackendFile:
		return NewFileBackend(cfg.BriefsDir())
	case config.BackendSQLite:
		return OpenSQLite(cfg.DatabasePath())
	default:
		return nil, fmt.Errorf("store: unknown backend %q", cfg.Backend())
	}
}
