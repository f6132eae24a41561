// Package store defines the shared document store the game is played over.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/wfunc/gombiful/models"
)

var (
	ErrNotFound = errors.New("store: document not found")
	ErrExists   = errors.New("store: document already exists")
)

// Path addresses a field inside a session document by JSON key, for
// example Path{"players", id, "score"}.
type Path []string

func P(parts ...string) Path { return Path(parts) }

func (p Path) String() string { return strings.Join(p, ".") }

// Op is one field write of a Patch.
type Op struct {
	Path   Path
	Value  any
	Delete bool
}

// Patch is an ordered list of field writes applied as one update. Writes
// below a missing parent object are dropped.
type Patch []Op

func (p Patch) Set(path Path, value any) Patch {
	return append(p, Op{Path: path, Value: value})
}

func (p Patch) Unset(path Path) Patch {
	return append(p, Op{Path: path, Delete: true})
}

// Snapshot is one delivery of a subscription: the latest document, or an
// error such as ErrNotFound once the document is gone.
type Snapshot struct {
	Session *models.GameSession
	Err     error
}

// Store is a document store with per-field updates and change
// subscriptions. Implementations are safe for concurrent use.
type Store interface {
	Get(ctx context.Context, code string) (*models.GameSession, error)
	Create(ctx context.Context, doc *models.GameSession) error
	Update(ctx context.Context, code string, patch Patch) error
	Delete(ctx context.Context, code string) error
	// Subscribe delivers the current document and then every later change
	// until ctx is done. Intermediate versions may be coalesced, the latest
	// is always delivered.
	Subscribe(ctx context.Context, code string) (<-chan Snapshot, error)
}

// Archive keeps results of finished sessions.
type Archive interface {
	SaveResult(ctx context.Context, rec *models.GormGameRecord) error
	ListResults(ctx context.Context, limit int) ([]models.GormGameRecord, error)
}
