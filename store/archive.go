package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wfunc/gombiful/models"
)

// MemoryArchive keeps finished-session records in memory.
type MemoryArchive struct {
	mu      sync.Mutex
	records []models.GormGameRecord
	nextID  uint
}

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{nextID: 1}
}

func (a *MemoryArchive) SaveResult(ctx context.Context, rec *models.GormGameRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	rec.ID = a.nextID
	a.nextID++
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	a.records = append(a.records, *rec)
	return nil
}

// ListResults returns the newest records first.
func (a *MemoryArchive) ListResults(ctx context.Context, limit int) ([]models.GormGameRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	out := append([]models.GormGameRecord(nil), a.records...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
