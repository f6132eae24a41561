package rules

import (
	"errors"

	"github.com/wfunc/gombiful/models"
)

var ErrInsufficientTokens = errors.New("Not enough tokens")

// NewPlayer builds the record of a freshly joined player. Every player
// starts from the same initial card.
func NewPlayer(cfg Config, name string, initial models.Song, now int64, late bool) *models.Player {
	return &models.Player{
		Name:           name,
		Timeline:       []models.Song{initial},
		Score:          1,
		Tokens:         cfg.InitialTokens,
		PlacementIndex: models.NoPlacement(),
		JoinedAt:       now,
		JoinedLate:     late,
		LastSeen:       now,
	}
}

// Spend deducts cost tokens, refusing to go below zero.
func Spend(tokens, cost int) (int, error) {
	if tokens < cost {
		return tokens, ErrInsufficientTokens
	}
	return tokens - cost, nil
}

// Commit applies a revealed result to p in place and clears its answer.
// It reports whether a streak token was granted.
func Commit(cfg Config, p *models.Player, res models.RoundResult) bool {
	granted := false
	if res.Correct && res.NewTimeline != nil {
		p.Timeline = res.NewTimeline
		p.Score = len(res.NewTimeline)
		p.CorrectStreak++
		if p.CorrectStreak >= cfg.StreakForToken && p.Tokens < cfg.MaxTokens {
			p.Tokens++
			p.CorrectStreak = 0
			granted = true
		}
	} else {
		p.CorrectStreak = 0
	}
	p.HasAnswered = false
	p.PlacementIndex = models.NoPlacement()
	return granted
}

// Winner picks the player who reached the winning score, preferring the
// highest score, then the earliest join, then the lowest id.
func Winner(cfg Config, players map[string]*models.Player) (string, bool) {
	best := ""
	for id, p := range players {
		if p.Score < cfg.WinningScore {
			continue
		}
		if best == "" || beats(id, p, best, players[best]) {
			best = id
		}
	}
	return best, best != ""
}

func beats(id string, p *models.Player, otherID string, other *models.Player) bool {
	if p.Score != other.Score {
		return p.Score > other.Score
	}
	if p.JoinedAt != other.JoinedAt {
		return p.JoinedAt < other.JoinedAt
	}
	return id < otherID
}
