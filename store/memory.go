package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wfunc/gombiful/logger"
	"github.com/wfunc/gombiful/models"
)

type memoryEntry struct {
	doc     *models.GameSession
	touched time.Time
}

// MemoryStore keeps session documents in process memory.
type MemoryStore struct {
	docs map[string]*memoryEntry
	subs map[string]map[*Feed]struct{}
	mu   sync.RWMutex

	idleTimeout time.Duration
	now         func() time.Time
}

// NewMemoryStore creates a store whose idle documents are removed by Reap
// after idleTimeout. A zero timeout keeps documents forever.
func NewMemoryStore(idleTimeout time.Duration) *MemoryStore {
	return &MemoryStore{
		docs:        make(map[string]*memoryEntry),
		subs:        make(map[string]map[*Feed]struct{}),
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, code string) (*models.GameSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.docs[code]
	if !ok {
		return nil, ErrNotFound
	}
	return e.doc.Clone(), nil
}

func (s *MemoryStore) Create(ctx context.Context, doc *models.GameSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc.Normalize()
	if err := doc.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[doc.RoomCode]; exists {
		return ErrExists
	}
	s.docs[doc.RoomCode] = &memoryEntry{doc: doc.Clone(), touched: s.now()}
	s.notifyLocked(doc.RoomCode)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, code string, patch Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.docs[code]
	if !ok {
		return ErrNotFound
	}
	next, err := Apply(e.doc, patch)
	if err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return fmt.Errorf("store: update %s: %w", code, err)
	}
	e.doc = next
	e.touched = s.now()
	s.notifyLocked(code)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[code]; !ok {
		return nil
	}
	delete(s.docs, code)
	s.notifyLocked(code)
	return nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, code string) (<-chan Snapshot, error) {
	feed := NewFeed()

	s.mu.Lock()
	if s.subs[code] == nil {
		s.subs[code] = make(map[*Feed]struct{})
	}
	s.subs[code][feed] = struct{}{}
	feed.Push(s.snapshotLocked(code))
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs[code], feed)
		if len(s.subs[code]) == 0 {
			delete(s.subs, code)
		}
		s.mu.Unlock()
		feed.Close()
	}()
	return feed.C(), nil
}

// Len returns the number of stored documents.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Reap removes documents untouched for longer than the idle timeout and
// returns how many were removed.
func (s *MemoryStore) Reap(ctx context.Context) (int, error) {
	if s.idleTimeout <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.idleTimeout)

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for code, e := range s.docs {
		if e.touched.Before(cutoff) {
			delete(s.docs, code)
			s.notifyLocked(code)
			n++
		}
	}
	if n > 0 {
		logger.Log.Infow("reaped idle sessions", "count", n)
	}
	return n, ctx.Err()
}

func (s *MemoryStore) snapshotLocked(code string) Snapshot {
	e, ok := s.docs[code]
	if !ok {
		return Snapshot{Err: ErrNotFound}
	}
	return Snapshot{Session: e.doc.Clone()}
}

func (s *MemoryStore) notifyLocked(code string) {
	feeds := s.subs[code]
	if len(feeds) == 0 {
		return
	}
	for f := range feeds {
		f.Push(s.snapshotLocked(code))
	}
}
