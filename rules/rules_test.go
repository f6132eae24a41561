package rules

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/wfunc/gombiful/models"
)

func songs(years ...int) []models.Song {
	out := make([]models.Song, len(years))
	for i, y := range years {
		out[i] = models.Song{ID: i + 1, Year: y}
	}
	return out
}

func TestValidate_Table(t *testing.T) {
	tl := songs(1970, 1985, 2000)
	tests := []struct {
		name  string
		year  int
		index int
		want  bool
	}{
		{"front", 1960, 0, true},
		{"front too late", 1990, 0, false},
		{"middle", 1980, 1, true},
		{"middle before prev", 1965, 1, false},
		{"middle after next", 1990, 1, false},
		{"end", 2010, 3, true},
		{"end too early", 1999, 3, false},
		{"tie with previous", 1985, 2, true},
		{"tie with next", 1985, 1, true},
		{"negative", 1980, -1, false},
		{"past end", 1980, 4, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Validate(tl, models.Song{Year: tt.year}, tt.index)
			if v.Correct != tt.want {
				t.Errorf("Validate(%d at %d) = %v, want %v (%s)", tt.year, tt.index, v.Correct, tt.want, v.Message)
			}
			if !v.Correct && v.Message == "" {
				t.Error("incorrect verdict without message")
			}
		})
	}
}

func TestValidate_Messages(t *testing.T) {
	tl := songs(1970, 1985)
	if got := Validate(tl, models.Song{Year: 1960}, 1).Message; got != "Song is from 1960, but previous card is 1970" {
		t.Errorf("got %q", got)
	}
	if got := Validate(tl, models.Song{Year: 1990}, 1).Message; got != "Song is from 1990, but next card is 1985" {
		t.Errorf("got %q", got)
	}
}

// Every correct placement keeps the timeline sorted, and exactly the gaps
// between the sorted bounds are accepted.
func TestValidate_InsertKeepsOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for n := 0; n < 200; n++ {
		years := make([]int, rng.Intn(8))
		for i := range years {
			years[i] = 1950 + rng.Intn(60)
		}
		sort.Ints(years)
		tl := songs(years...)
		song := models.Song{ID: 99, Year: 1950 + rng.Intn(60)}
		for idx := 0; idx <= len(tl); idx++ {
			v := Validate(tl, song, idx)
			if !v.Correct {
				continue
			}
			out := Insert(tl, song, idx)
			if len(out) != len(tl)+1 {
				t.Fatalf("insert length %d", len(out))
			}
			if !sort.SliceIsSorted(out, func(i, j int) bool { return out[i].Year < out[j].Year }) {
				t.Fatalf("timeline %v not sorted after inserting %d at %d", years, song.Year, idx)
			}
		}
		if !Validate(tl, song, SortedIndex(tl, song)).Correct {
			t.Fatalf("sorted index rejected for %d in %v", song.Year, years)
		}
	}
}

func TestInsert_DoesNotAlias(t *testing.T) {
	tl := make([]models.Song, 2, 8)
	copy(tl, songs(1970, 1990))
	out := Insert(tl, models.Song{ID: 5, Year: 1980}, 1)
	out[0].Year = 1
	if tl[0].Year != 1970 {
		t.Error("Insert shares backing array with input")
	}
}

func TestJudge(t *testing.T) {
	tl := songs(1970, 1990)
	song := models.Song{ID: 7, Year: 1980}

	p := &models.Player{Timeline: tl, Score: 2, PlacementIndex: models.PlacedAt(1), HasAnswered: true}
	if r := Judge(p, song); !r.Correct || len(r.NewTimeline) != 3 {
		t.Errorf("correct placement judged %+v", r)
	}
	p.PlacementIndex = models.PlacedAt(0)
	if r := Judge(p, song); r.Correct || r.NewTimeline != nil {
		t.Errorf("wrong placement judged %+v", r)
	}
	p.PlacementIndex = models.Skipped()
	if r := Judge(p, song); r.Correct || !r.Skipped {
		t.Errorf("skip judged %+v", r)
	}
	p.PlacementIndex = models.NoPlacement()
	if r := Judge(p, song); r.Correct || r.Skipped {
		t.Errorf("no answer judged %+v", r)
	}
}

func TestCommit_StreakGrantsToken(t *testing.T) {
	cfg := Defaults()
	p := NewPlayer(cfg, "Ann", models.Song{ID: 1, Year: 1970}, 0, false)
	granted := 0
	for i := 0; i < 3; i++ {
		song := models.Song{ID: 10 + i, Year: 1980 + i}
		res := models.RoundResult{Correct: true, NewTimeline: Insert(p.Timeline, song, len(p.Timeline))}
		if Commit(cfg, p, res) {
			granted++
		}
	}
	if granted != 1 || p.Tokens != 3 || p.CorrectStreak != 0 || p.Score != 4 {
		t.Errorf("after 3 correct: granted=%d tokens=%d streak=%d score=%d", granted, p.Tokens, p.CorrectStreak, p.Score)
	}
	if p.HasAnswered || !p.PlacementIndex.IsNone() {
		t.Error("answer not cleared")
	}
}

func TestCommit_StreakKeepsCountingAtMax(t *testing.T) {
	cfg := Defaults()
	p := &models.Player{Timeline: songs(1900), Score: 1, Tokens: cfg.MaxTokens}
	for i := 0; i < 4; i++ {
		Commit(cfg, p, models.RoundResult{Correct: true, NewTimeline: append(append([]models.Song{}, p.Timeline...), models.Song{ID: 50 + i, Year: 1950 + i})})
	}
	if p.Tokens != cfg.MaxTokens || p.CorrectStreak != 4 {
		t.Fatalf("tokens=%d streak=%d", p.Tokens, p.CorrectStreak)
	}
	p.Tokens--
	Commit(cfg, p, models.RoundResult{Correct: true, NewTimeline: append(append([]models.Song{}, p.Timeline...), models.Song{ID: 99, Year: 1999})})
	if p.Tokens != cfg.MaxTokens || p.CorrectStreak != 0 {
		t.Errorf("token not granted once below max: tokens=%d streak=%d", p.Tokens, p.CorrectStreak)
	}
}

func TestCommit_MissResetsStreak(t *testing.T) {
	p := &models.Player{Timeline: songs(1900), Score: 1, CorrectStreak: 2, Tokens: 1}
	Commit(Defaults(), p, models.RoundResult{Skipped: true})
	if p.CorrectStreak != 0 || p.Score != 1 || p.Tokens != 1 {
		t.Errorf("miss: %+v", p)
	}
}

func TestSpend(t *testing.T) {
	if left, err := Spend(2, 1); err != nil || left != 1 {
		t.Errorf("Spend(2,1) = %d, %v", left, err)
	}
	if left, err := Spend(2, 3); err != ErrInsufficientTokens || left != 2 {
		t.Errorf("Spend(2,3) = %d, %v", left, err)
	}
}

func TestWinner_TieBreak(t *testing.T) {
	cfg := Defaults()
	players := map[string]*models.Player{
		"zed": {Score: 10, JoinedAt: 100},
		"amy": {Score: 10, JoinedAt: 200},
		"bob": {Score: 9, JoinedAt: 1},
	}
	for i := 0; i < 20; i++ {
		if id, ok := Winner(cfg, players); !ok || id != "zed" {
			t.Fatalf("Winner = %q, %v; want zed", id, ok)
		}
	}
	players["amy"].Score = 11
	if id, _ := Winner(cfg, players); id != "amy" {
		t.Errorf("higher score should win, got %s", id)
	}
	players["amy"].JoinedAt, players["zed"].JoinedAt, players["amy"].Score = 5, 5, 10
	if id, _ := Winner(cfg, players); id != "amy" {
		t.Errorf("id tie-break should pick amy, got %s", id)
	}
	delete(players, "amy")
	delete(players, "zed")
	if _, ok := Winner(cfg, players); ok {
		t.Error("nobody reached the winning score")
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatal(err)
	}
	c := Defaults()
	c.MaxTokens = 1
	if err := c.Validate(); err == nil {
		t.Error("max below initial accepted")
	}
}
