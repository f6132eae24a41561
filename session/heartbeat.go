package session

import (
	"context"
	"errors"
	"time"

	"github.com/wfunc/gombiful/logger"
	"github.com/wfunc/gombiful/store"
)

const DefaultHeartbeatInterval = 10 * time.Second

// Heartbeat refreshes players.<id>.lastSeen on a fixed interval.
type Heartbeat struct {
	Store    store.Store
	RoomCode string
	PlayerID string
	Interval time.Duration
	Now      func() time.Time
}

// Beat writes lastSeen once. A player who is no longer seated is left
// alone because the write lands below a missing parent.
func (h *Heartbeat) Beat(ctx context.Context) error {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	return h.Store.Update(ctx, h.RoomCode,
		store.Patch{}.Set(store.P("players", h.PlayerID, "lastSeen"), now().UnixMilli()))
}

// Run beats immediately and then every interval until ctx ends or the
// session is deleted, in which case it returns ErrSessionGone.
func (h *Heartbeat) Run(ctx context.Context) error {
	interval := h.Interval
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := h.Beat(ctx); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrSessionGone
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Log.Warnf("Heartbeat for %s in %s failed: %v", h.PlayerID, h.RoomCode, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
