package services

import (
	"context"
	"errors"
	"testing"

	"github.com/wfunc/gombiful/models"
	"github.com/wfunc/gombiful/store"
)

func int64p(v int64) *int64 { return &v }

func endedSession() *models.GameSession {
	return &models.GameSession{
		RoomCode:     "ABCD-EFGH",
		Status:       models.StatusEnded,
		DJID:         "dj",
		DJName:       "Disco",
		CurrentRound: 7,
		StartedAt:    int64p(1_000),
		EndedAt:      int64p(91_000),
		Players: map[string]*models.Player{
			"a": {Name: "Ann", Score: 10, JoinedAt: 5},
			"b": {Name: "Bob", Score: 4, JoinedAt: 3},
		},
		Winner: &models.Winner{ID: "a", Player: models.Player{Name: "Ann", Score: 10}},
	}
}

func TestBuildRecord(t *testing.T) {
	rec, err := BuildRecord(endedSession())
	if err != nil {
		t.Fatalf("BuildRecord: %v", err)
	}
	if rec.Duration != 90 {
		t.Errorf("Duration = %d, want 90", rec.Duration)
	}
	if rec.WinnerID != "a" || rec.Winner != "Ann" {
		t.Errorf("winner = %s/%s", rec.WinnerID, rec.Winner)
	}
	if rec.Rounds != 7 || rec.DJName != "Disco" {
		t.Errorf("rounds/dj = %d/%s", rec.Rounds, rec.DJName)
	}
	if len(rec.Standings) != 2 || rec.Standings[0].PlayerID != "a" {
		t.Errorf("standings = %+v", rec.Standings)
	}
	if rec.EndedAt.UnixMilli() != 91_000 {
		t.Errorf("EndedAt = %v", rec.EndedAt)
	}
}

func TestBuildRecordRequiresEnded(t *testing.T) {
	doc := endedSession()
	doc.Status = models.StatusPlaying
	if _, err := BuildRecord(doc); !errors.Is(err, ErrNotEnded) {
		t.Errorf("err = %v, want ErrNotEnded", err)
	}
	if _, err := BuildRecord(nil); !errors.Is(err, ErrNotEnded) {
		t.Errorf("nil err = %v", err)
	}
}

func TestRecordAndRecent(t *testing.T) {
	archive := store.NewMemoryArchive()
	svc := NewResultsService(archive)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		doc := endedSession()
		doc.CurrentRound = i
		if err := svc.Record(ctx, doc); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	recent, err := svc.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("len = %d, want 2", len(recent))
	}
	if recent[0].Rounds != 2 {
		t.Errorf("newest first expected, got rounds %d", recent[0].Rounds)
	}
	all, _ := svc.Recent(ctx, 0)
	if len(all) != 3 {
		t.Errorf("default limit returned %d", len(all))
	}
}
