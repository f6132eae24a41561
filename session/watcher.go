package session

import (
	"context"
	"errors"
	"sync"

	"github.com/wfunc/gombiful/logger"
	"github.com/wfunc/gombiful/models"
	"github.com/wfunc/gombiful/store"
)

// Watcher follows one session document and remembers the last good copy.
// A failed delivery sets Err but never discards that copy.
type Watcher struct {
	mu   sync.RWMutex
	last *models.GameSession
	err  error
	gone bool
	done chan struct{}
}

// Watch subscribes to code. onChange, if set, runs on the watcher's
// goroutine after every delivery.
func Watch(ctx context.Context, st store.Store, code string, onChange func(*models.GameSession, error)) (*Watcher, error) {
	ch, err := st.Subscribe(ctx, code)
	if err != nil {
		return nil, err
	}
	w := &Watcher{done: make(chan struct{})}
	go func() {
		defer close(w.done)
		for snap := range ch {
			w.apply(snap)
			if onChange != nil {
				onChange(snap.Session, snap.Err)
			}
		}
	}()
	return w, nil
}

func (w *Watcher) apply(snap store.Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if snap.Err != nil {
		w.err = snap.Err
		if errors.Is(snap.Err, store.ErrNotFound) {
			w.gone = true
		} else {
			logger.Log.Warnf("Session subscription error: %v", snap.Err)
		}
		return
	}
	w.last = snap.Session
	w.err = nil
	w.gone = false
}

// State returns the last good document, or nil before the first one.
func (w *Watcher) State() *models.GameSession {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last
}

// Err returns the error of the latest delivery, if it failed.
func (w *Watcher) Err() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.err
}

// Gone reports whether the document was deleted.
func (w *Watcher) Gone() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.gone
}

// Done is closed once the subscription ends.
func (w *Watcher) Done() <-chan struct{} { return w.done }
