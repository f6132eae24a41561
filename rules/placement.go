package rules

import (
	"fmt"

	"github.com/wfunc/gombiful/models"
)

// Verdict is the outcome of checking one placement.
type Verdict struct {
	Correct bool
	Message string
}

// Validate decides whether putting song into gap index of a sorted timeline
// keeps it in chronological order. Equal years are accepted on either side.
func Validate(timeline []models.Song, song models.Song, index int) Verdict {
	if index < 0 || index > len(timeline) {
		return Verdict{Message: "Invalid placement position"}
	}
	if index > 0 {
		prev := timeline[index-1]
		if prev.Year > song.Year {
			return Verdict{Message: fmt.Sprintf("Song is from %d, but previous card is %d", song.Year, prev.Year)}
		}
	}
	if index < len(timeline) {
		next := timeline[index]
		if song.Year > next.Year {
			return Verdict{Message: fmt.Sprintf("Song is from %d, but next card is %d", song.Year, next.Year)}
		}
	}
	return Verdict{Correct: true}
}

// Insert returns a new timeline with song placed at index. The input is
// not modified.
func Insert(timeline []models.Song, song models.Song, index int) []models.Song {
	if index < 0 {
		index = 0
	}
	if index > len(timeline) {
		index = len(timeline)
	}
	out := make([]models.Song, 0, len(timeline)+1)
	out = append(out, timeline[:index]...)
	out = append(out, song)
	out = append(out, timeline[index:]...)
	return out
}

// SortedIndex is the gap where song belongs: after every card of the same
// or an earlier year.
func SortedIndex(timeline []models.Song, song models.Song) int {
	for i, s := range timeline {
		if s.Year > song.Year {
			return i
		}
	}
	return len(timeline)
}

// AutoPlace inserts song at its chronological position.
func AutoPlace(timeline []models.Song, song models.Song) []models.Song {
	return Insert(timeline, song, SortedIndex(timeline, song))
}

// Judge scores a player's stored answer against the round's song.
func Judge(p *models.Player, song models.Song) models.RoundResult {
	switch {
	case p.PlacementIndex.IsSkip():
		return models.RoundResult{Skipped: true}
	case p.PlacementIndex.IsNone():
		return models.RoundResult{Message: "No answer"}
	}
	v := Validate(p.Timeline, song, p.PlacementIndex.Index)
	if !v.Correct {
		return models.RoundResult{Message: v.Message}
	}
	return models.RoundResult{
		Correct:     true,
		NewTimeline: Insert(p.Timeline, song, p.PlacementIndex.Index),
	}
}

// JudgeAll scores every player in the session.
func JudgeAll(players map[string]*models.Player, song models.Song) map[string]models.RoundResult {
	out := make(map[string]models.RoundResult, len(players))
	for id, p := range players {
		out[id] = Judge(p, song)
	}
	return out
}
