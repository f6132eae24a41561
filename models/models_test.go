package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestPlacement_JSON(t *testing.T) {
	tests := []struct {
		name string
		p    Placement
		want string
	}{
		{"none", NoPlacement(), "null"},
		{"skip", Skipped(), "-1"},
		{"gap", PlacedAt(2), "2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.p)
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != tt.want {
				t.Errorf("got %s, want %s", data, tt.want)
			}
			var back Placement
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatal(err)
			}
			if back != tt.p {
				t.Errorf("decoded %+v, want %+v", back, tt.p)
			}
		})
	}
}

func TestPlacement_RejectsBelowSkip(t *testing.T) {
	var p Placement
	if err := json.Unmarshal([]byte("-2"), &p); err == nil {
		t.Fatal("expected error for -2")
	}
}

func sessionWithPlayers() *GameSession {
	s1 := Song{ID: 1, Year: 1970}
	s2 := Song{ID: 2, Year: 1990}
	return &GameSession{
		RoomCode: "ABCD-EFGH",
		Status:   StatusPlaying,
		DJID:     "dj",
		Players: map[string]*Player{
			"b": {Name: "Bo", Timeline: []Song{s1, s2}, Score: 2, JoinedAt: 20},
			"a": {Name: "Al", Timeline: []Song{s1, s2}, Score: 2, JoinedAt: 20},
			"c": {Name: "Cy", Timeline: []Song{s1}, Score: 1, JoinedAt: 5, HasAnswered: true, PlacementIndex: PlacedAt(0)},
		},
	}
}

func TestGameSession_Validate(t *testing.T) {
	g := sessionWithPlayers()
	if err := g.Validate(); err != nil {
		t.Fatalf("valid session rejected: %v", err)
	}

	bad := g.Clone()
	bad.Players["a"].HasAnswered = true
	if err := bad.Validate(); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("answered without placement: got %v", err)
	}

	bad = g.Clone()
	bad.Players["a"].Timeline[0].Year = 2000
	if err := bad.Validate(); err == nil {
		t.Error("unsorted timeline accepted")
	}

	bad = g.Clone()
	bad.Status = "paused"
	if err := bad.Validate(); err == nil {
		t.Error("unknown status accepted")
	}
}

func TestGameSession_Standings(t *testing.T) {
	got := sessionWithPlayers().Standings()
	want := []string{"a", "b", "c"}
	for i, id := range want {
		if got[i].PlayerID != id {
			t.Fatalf("standings[%d] = %s, want %s (%+v)", i, got[i].PlayerID, id, got)
		}
	}
}

func TestGameSession_ViewFor(t *testing.T) {
	g := sessionWithPlayers()
	g.CurrentSong = &Song{ID: 9, Year: 1984}
	g.AvailableSongs = []Song{{ID: 10, Year: 2001}}

	v := g.ViewFor("a")
	if v.CurrentSong.Year != 0 || len(v.AvailableSongs) != 0 {
		t.Errorf("player view leaks answer: %+v", v)
	}
	if g.CurrentSong.Year != 1984 {
		t.Error("ViewFor mutated the original")
	}
	if dj := g.ViewFor("dj"); dj.CurrentSong.Year != 1984 || len(dj.AvailableSongs) != 1 {
		t.Error("dj view should be complete")
	}
}

func TestGameSession_AllAnswered(t *testing.T) {
	g := sessionWithPlayers()
	if g.AllAnswered() {
		t.Fatal("only one of three answered")
	}
	for _, p := range g.Players {
		p.HasAnswered = true
		p.PlacementIndex = Skipped()
	}
	if !g.AllAnswered() || g.AnsweredCount() != 3 {
		t.Error("all players answered")
	}
}
