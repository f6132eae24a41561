// models/models.go
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Status is the lifecycle phase of a game session.
type Status string

const (
	StatusLobby     Status = "lobby"
	StatusPlaying   Status = "playing"
	StatusRevealing Status = "revealing"
	StatusEnded     Status = "ended"
)

func (s Status) Valid() bool {
	switch s {
	case StatusLobby, StatusPlaying, StatusRevealing, StatusEnded:
		return true
	}
	return false
}

// Song is one catalog entry. Year is the only field the rules look at.
type Song struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Year     int    `json:"year"`
	MediaRef string `json:"mediaRef,omitempty"`
}

// Player is the per-player record inside a session document.
type Player struct {
	Name           string    `json:"name"`
	Timeline       []Song    `json:"timeline"`
	Score          int       `json:"score"`
	Tokens         int       `json:"tokens"`
	CorrectStreak  int       `json:"correctStreak"`
	HasAnswered    bool      `json:"hasAnswered"`
	PlacementIndex Placement `json:"placementIndex"`
	JoinedAt       int64     `json:"joinedAt"`
	JoinedLate     bool      `json:"joinedLate"`
	LastSeen       int64     `json:"lastSeen"`
}

// RoundResult is the outcome computed for one player at reveal time.
type RoundResult struct {
	Correct     bool   `json:"correct"`
	Skipped     bool   `json:"skipped,omitempty"`
	NewTimeline []Song `json:"newTimeline,omitempty"`
	Message     string `json:"message,omitempty"`
}

// RevealData holds the computed results between reveal and advance.
type RevealData struct {
	Results    map[string]RoundResult `json:"results"`
	RevealedAt int64                  `json:"revealedAt"`
}

// Winner is a snapshot of the winning player, flattened next to its id.
type Winner struct {
	ID string `json:"id"`
	Player
}

// GameSession is the shared document for one room. Timestamps are
// milliseconds since the Unix epoch.
type GameSession struct {
	RoomCode          string             `json:"roomCode"`
	Status            Status             `json:"status"`
	DJID              string             `json:"djId"`
	DJName            string             `json:"djName"`
	CurrentSong       *Song              `json:"currentSong"`
	CurrentRound      int                `json:"currentRound"`
	AvailableSongs    []Song             `json:"availableSongs"`
	SharedInitialSong Song               `json:"sharedInitialSong"`
	CreatedAt         int64              `json:"createdAt"`
	StartedAt         *int64             `json:"startedAt"`
	EndedAt           *int64             `json:"endedAt"`
	Players           map[string]*Player `json:"players"`
	RevealData        *RevealData        `json:"revealData"`
	Winner            *Winner            `json:"winner"`
}

var ErrInvalidSession = errors.New("invalid game session")

// Validate checks the structural invariants of a document read from or
// about to be written to the store.
func (g *GameSession) Validate() error {
	if g == nil {
		return fmt.Errorf("%w: nil document", ErrInvalidSession)
	}
	if g.RoomCode == "" {
		return fmt.Errorf("%w: empty room code", ErrInvalidSession)
	}
	if !g.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidSession, g.Status)
	}
	if g.DJID == "" {
		return fmt.Errorf("%w: empty dj id", ErrInvalidSession)
	}
	for id, p := range g.Players {
		if p == nil {
			return fmt.Errorf("%w: player %s is null", ErrInvalidSession, id)
		}
		if p.Tokens < 0 {
			return fmt.Errorf("%w: player %s has negative tokens", ErrInvalidSession, id)
		}
		if p.HasAnswered && p.PlacementIndex.IsNone() {
			return fmt.Errorf("%w: player %s answered without a placement", ErrInvalidSession, id)
		}
		if p.Score != len(p.Timeline) {
			return fmt.Errorf("%w: player %s score %d does not match timeline length %d",
				ErrInvalidSession, id, p.Score, len(p.Timeline))
		}
		for i := 1; i < len(p.Timeline); i++ {
			if p.Timeline[i-1].Year > p.Timeline[i].Year {
				return fmt.Errorf("%w: player %s timeline out of order", ErrInvalidSession, id)
			}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (g *GameSession) Clone() *GameSession {
	if g == nil {
		return nil
	}
	data, err := json.Marshal(g)
	if err != nil {
		panic("models: clone marshal: " + err.Error())
	}
	out := new(GameSession)
	if err := json.Unmarshal(data, out); err != nil {
		panic("models: clone unmarshal: " + err.Error())
	}
	return out
}

// Normalize fills collections a decoder may leave nil.
func (g *GameSession) Normalize() {
	if g.Players == nil {
		g.Players = map[string]*Player{}
	}
	if g.AvailableSongs == nil {
		g.AvailableSongs = []Song{}
	}
}

func (g *GameSession) PlayerCount() int { return len(g.Players) }

func (g *GameSession) AnsweredCount() int {
	n := 0
	for _, p := range g.Players {
		if p.HasAnswered {
			n++
		}
	}
	return n
}

// AllAnswered reports whether every player present has answered.
func (g *GameSession) AllAnswered() bool {
	return g.AnsweredCount() == len(g.Players)
}

// Standing is one row of the leaderboard.
type Standing struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Tokens   int    `json:"tokens"`
	JoinedAt int64  `json:"joinedAt"`
}

// Standings orders players by score descending, then join time, then id.
func (g *GameSession) Standings() []Standing {
	out := make([]Standing, 0, len(g.Players))
	for id, p := range g.Players {
		out = append(out, Standing{PlayerID: id, Name: p.Name, Score: p.Score, Tokens: p.Tokens, JoinedAt: p.JoinedAt})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.JoinedAt != b.JoinedAt {
			return a.JoinedAt < b.JoinedAt
		}
		return a.PlayerID < b.PlayerID
	})
	return out
}

// ViewFor returns a copy safe to show to viewerID. The draw pool is only
// visible to the DJ, and players do not see the current song's year until
// the round is revealed.
func (g *GameSession) ViewFor(viewerID string) *GameSession {
	v := g.Clone()
	if viewerID == g.DJID {
		return v
	}
	v.AvailableSongs = []Song{}
	if v.Status == StatusPlaying && v.CurrentSong != nil {
		v.CurrentSong.Year = 0
	}
	return v
}

// ValidPlayerID rejects ids that cannot be used as a document path segment.
func ValidPlayerID(id string) bool {
	return id != "" && len(id) <= 128 && !strings.ContainsAny(id, ". \t\n")
}
