package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/wfunc/gombiful/models"
	"github.com/wfunc/gombiful/store"
)

// InstrumentedStore records latency and failures of every store call.
// Missing documents and create collisions are not counted as failures.
type InstrumentedStore struct {
	next    store.Store
	metrics *Metrics
}

func NewInstrumentedStore(next store.Store, m *Metrics) *InstrumentedStore {
	return &InstrumentedStore{next: next, metrics: m}
}

func (s *InstrumentedStore) observe(op string, start time.Time, err error) {
	s.metrics.StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, store.ErrNotFound) && !errors.Is(err, store.ErrExists) {
		s.metrics.StoreErrors.WithLabelValues(op).Inc()
	}
}

func (s *InstrumentedStore) Get(ctx context.Context, code string) (*models.GameSession, error) {
	start := time.Now()
	doc, err := s.next.Get(ctx, code)
	s.observe("get", start, err)
	return doc, err
}

func (s *InstrumentedStore) Create(ctx context.Context, doc *models.GameSession) error {
	start := time.Now()
	err := s.next.Create(ctx, doc)
	s.observe("create", start, err)
	return err
}

func (s *InstrumentedStore) Update(ctx context.Context, code string, patch store.Patch) error {
	start := time.Now()
	err := s.next.Update(ctx, code, patch)
	s.observe("update", start, err)
	return err
}

func (s *InstrumentedStore) Delete(ctx context.Context, code string) error {
	start := time.Now()
	err := s.next.Delete(ctx, code)
	s.observe("delete", start, err)
	return err
}

func (s *InstrumentedStore) Subscribe(ctx context.Context, code string) (<-chan store.Snapshot, error) {
	start := time.Now()
	ch, err := s.next.Subscribe(ctx, code)
	s.observe("subscribe", start, err)
	return ch, err
}
