// services/results_service.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/wfunc/gombiful/logger"
	"github.com/wfunc/gombiful/models"
	"github.com/wfunc/gombiful/store"
)

var ErrNotEnded = errors.New("game has not ended")

// ResultsService turns finished sessions into archive records.
type ResultsService struct {
	archive store.Archive
}

func NewResultsService(archive store.Archive) *ResultsService {
	return &ResultsService{archive: archive}
}

// Record archives an ended session.
func (s *ResultsService) Record(ctx context.Context, doc *models.GameSession) error {
	rec, err := BuildRecord(doc)
	if err != nil {
		return err
	}
	if err := s.archive.SaveResult(ctx, rec); err != nil {
		return err
	}
	logger.Log.Infof("Archived game %s (%d rounds, winner %q)", rec.RoomCode, rec.Rounds, rec.Winner)
	return nil
}

// Recent lists the latest archived games, newest first.
func (s *ResultsService) Recent(ctx context.Context, limit int) ([]models.GormGameRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.archive.ListResults(ctx, limit)
}

// BuildRecord summarises an ended session.
func BuildRecord(doc *models.GameSession) (*models.GormGameRecord, error) {
	if doc == nil || doc.Status != models.StatusEnded {
		return nil, ErrNotEnded
	}
	rec := &models.GormGameRecord{
		RoomCode:  doc.RoomCode,
		DJName:    doc.DJName,
		Rounds:    doc.CurrentRound,
		Standings: doc.Standings(),
		EndedAt:   time.Now(),
	}
	if doc.EndedAt != nil {
		rec.EndedAt = time.UnixMilli(*doc.EndedAt)
		if doc.StartedAt != nil && *doc.EndedAt > *doc.StartedAt {
			rec.Duration = int((*doc.EndedAt - *doc.StartedAt) / 1000)
		}
	}
	if doc.Winner != nil {
		rec.WinnerID = doc.Winner.ID
		rec.Winner = doc.Winner.Name
	}
	return rec, nil
}
