package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/gombiful/logger"
	"github.com/wfunc/gombiful/store"
)

var (
	ErrNoSession   = errors.New("no saved session")
	ErrSessionGone = errors.New("saved session no longer exists")
)

// DefaultFreshness is how long a saved identity may be resumed.
const DefaultFreshness = 30 * time.Minute

// Resumer decides whether a cached identity can rejoin its game.
type Resumer struct {
	cache  Cache
	store  store.Store
	window time.Duration
	now    func() time.Time
}

func NewResumer(cache Cache, st store.Store, window time.Duration) *Resumer {
	if window <= 0 {
		window = DefaultFreshness
	}
	return &Resumer{cache: cache, store: st, window: window, now: time.Now}
}

// Remember saves the identity with the current time.
func (r *Resumer) Remember(role Role, roomCode, playerID, name string) error {
	return r.cache.Save(Identity{
		Role:       role,
		RoomCode:   roomCode,
		PlayerID:   playerID,
		PlayerName: name,
		Timestamp:  r.now().UnixMilli(),
	})
}

// Forget drops the saved identity.
func (r *Resumer) Forget() error {
	return r.cache.Clear()
}

// PlayerID reuses the cached id while fresh, or mints a new one.
func (r *Resumer) PlayerID() string {
	if id, ok, err := r.cache.Load(); err == nil && ok && id.PlayerID != "" && id.Fresh(r.now(), r.window) {
		return id.PlayerID
	}
	return uuid.NewString()
}

// Resume returns the cached identity if it is fresh and its game still
// has a seat for it. Stale or orphaned entries are discarded and reported
// as ErrNoSession or ErrSessionGone. Store failures leave the cache intact.
func (r *Resumer) Resume(ctx context.Context) (Identity, error) {
	id, ok, err := r.cache.Load()
	if err != nil {
		return Identity{}, err
	}
	if !ok {
		return Identity{}, ErrNoSession
	}
	if !id.Fresh(r.now(), r.window) {
		_ = r.cache.Clear()
		return Identity{}, ErrNoSession
	}

	doc, err := r.store.Get(ctx, id.RoomCode)
	if errors.Is(err, store.ErrNotFound) {
		logger.Log.Infof("Saved game %s is gone, discarding cached session", id.RoomCode)
		_ = r.cache.Clear()
		return Identity{}, ErrSessionGone
	}
	if err != nil {
		return Identity{}, fmt.Errorf("check saved session: %w", err)
	}

	switch id.Role {
	case RoleDJ:
		if doc.DJID != id.PlayerID {
			_ = r.cache.Clear()
			return Identity{}, ErrSessionGone
		}
	default:
		if _, seated := doc.Players[id.PlayerID]; !seated {
			_ = r.cache.Clear()
			return Identity{}, ErrSessionGone
		}
	}
	return id, nil
}
