package game

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/gombiful/deck"
	"github.com/wfunc/gombiful/feedback"
	"github.com/wfunc/gombiful/models"
	"github.com/wfunc/gombiful/store"
)

const room = "ABCD-EFGH"

// stepClock advances one second per reading so join order is observable.
type stepClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

type mockRecorder struct {
	mu   sync.Mutex
	docs []*models.GameSession
}

func (r *mockRecorder) Record(_ context.Context, doc *models.GameSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = append(r.docs, doc)
	return nil
}

type fixture struct {
	svc    *Service
	st     *store.MemoryStore
	sounds *feedback.Recorder
	rec    *mockRecorder
	dj     *DJ
}

func newFixture(t *testing.T, settings Settings, years ...int) *fixture {
	t.Helper()
	f := &fixture{
		st:     store.NewMemoryStore(0),
		sounds: &feedback.Recorder{},
		rec:    &mockRecorder{},
	}
	clock := &stepClock{cur: time.Unix(1_700_000_000, 0)}
	f.svc = NewService(f.st, settings,
		WithDealer(deck.NewDealer(rand.New(rand.NewSource(42)))),
		WithSounds(f.sounds),
		WithRecorder(f.rec),
		WithClock(clock.Now),
	)
	t.Cleanup(f.svc.Close)

	f.dj = f.svc.DJ("dj-1")
	if err := f.dj.CreateSession(context.Background(), room, "Disco", catalogOf(years...)); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return f
}

func catalogOf(years ...int) []models.Song {
	out := make([]models.Song, len(years))
	for i, y := range years {
		out[i] = models.Song{ID: i + 1, Title: "song", Artist: "artist", Year: y}
	}
	return out
}

func sameYear(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = 2000
	}
	return out
}

func (f *fixture) doc(t *testing.T) *models.GameSession {
	t.Helper()
	doc, err := f.st.Get(context.Background(), room)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	return doc
}

func (f *fixture) join(t *testing.T, id, name string) *Player {
	t.Helper()
	p := f.svc.Player(id)
	if _, err := p.Join(context.Background(), name, room); err != nil {
		t.Fatalf("Join(%s): %v", id, err)
	}
	return p
}

func wantErr(t *testing.T, err, target error, kind Kind) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("error = %v, want %v", err, target)
	}
	if KindOf(err) != kind {
		t.Fatalf("kind = %v, want %v", KindOf(err), kind)
	}
}

func TestScenarioA_TwoPlayersPlaceAfterInitialCard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultSettings(), 1954, 1977, 2024)

	shared := f.doc(t).SharedInitialSong
	p1 := f.join(t, "p1", "Ann")
	p2 := f.join(t, "p2", "Ben")
	if err := f.dj.Start(ctx); err != nil {
		t.Fatal(err)
	}

	doc := f.doc(t)
	if doc.Status != models.StatusPlaying || doc.CurrentRound != 1 || doc.CurrentSong == nil {
		t.Fatalf("after start: %+v", doc)
	}
	if len(doc.AvailableSongs) != 1 {
		t.Fatalf("pool = %d songs, want 1", len(doc.AvailableSongs))
	}
	drawn := *doc.CurrentSong
	if drawn.ID == shared.ID {
		t.Fatal("drew the shared initial song")
	}

	for _, p := range []*Player{p1, p2} {
		if err := p.Submit(ctx, 1); err != nil {
			t.Fatal(err)
		}
	}
	results, err := f.dj.Reveal(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	wantCorrect := drawn.Year >= shared.Year
	for id, r := range results {
		if r.Correct != wantCorrect {
			t.Errorf("%s correct = %v, want %v", id, r.Correct, wantCorrect)
		}
	}
	if f.doc(t).Status != models.StatusRevealing {
		t.Fatal("reveal did not move to revealing")
	}
	// Reveal alone commits nothing.
	if got := f.doc(t).Players["p1"]; len(got.Timeline) != 1 || !got.HasAnswered {
		t.Fatalf("reveal changed player state: %+v", got)
	}

	res, err := f.dj.Advance(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.GameEnded || res.Round != 2 {
		t.Errorf("advance result %+v", res)
	}
	doc = f.doc(t)
	for _, id := range []string{"p1", "p2"} {
		p := doc.Players[id]
		wantLen := 1
		if wantCorrect {
			wantLen = 2
		}
		if len(p.Timeline) != wantLen || p.Score != wantLen {
			t.Errorf("%s timeline %v score %d", id, p.Timeline, p.Score)
		}
		if !sort.SliceIsSorted(p.Timeline, func(i, j int) bool { return p.Timeline[i].Year < p.Timeline[j].Year }) {
			t.Errorf("%s timeline not sorted", id)
		}
		if p.HasAnswered || !p.PlacementIndex.IsNone() {
			t.Errorf("%s answer not cleared", id)
		}
	}
	if doc.RevealData != nil || doc.Status != models.StatusPlaying || doc.CurrentRound != 2 {
		t.Errorf("after advance: status=%s round=%d reveal=%v", doc.Status, doc.CurrentRound, doc.RevealData)
	}
}

func TestScenarioB_SkipWithoutTokens(t *testing.T) {
	ctx := context.Background()
	s := DefaultSettings()
	s.Rules.InitialTokens = 0
	f := newFixture(t, s, 1960, 1970, 1980)
	p := f.join(t, "p1", "Ann")
	if err := f.dj.Start(ctx); err != nil {
		t.Fatal(err)
	}

	wantErr(t, p.UseSkipToken(ctx), ErrInsufficientTokens, KindPrecondition)
	me := f.doc(t).Players["p1"]
	if me.HasAnswered || !me.PlacementIndex.IsNone() || me.Tokens != 0 {
		t.Fatalf("failed skip changed state: %+v", me)
	}
}

func TestScenarioC_PoolExhausted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultSettings(), 2000, 2000)
	p := f.join(t, "p1", "Ann")
	if err := f.dj.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if len(f.doc(t).AvailableSongs) != 0 {
		t.Fatal("pool should be empty after the first draw")
	}
	if err := p.Submit(ctx, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := f.dj.Reveal(ctx, false); err != nil {
		t.Fatal(err)
	}

	res, err := f.dj.Advance(ctx)
	wantErr(t, err, ErrNoMoreSongs, KindPrecondition)
	if res == nil || !res.NoMoreSongs {
		t.Fatalf("result = %+v", res)
	}
	doc := f.doc(t)
	if doc.Players["p1"].Score != 2 {
		t.Errorf("scores not committed: %d", doc.Players["p1"].Score)
	}
	if doc.CurrentSong != nil || doc.Status != models.StatusPlaying || doc.RevealData != nil {
		t.Errorf("unexpected document: %+v", doc)
	}

	if err := p.Submit(ctx, 0); !errors.Is(err, ErrNoMoreSongs) {
		t.Errorf("Submit with no song = %v", err)
	}
	if _, err := f.dj.Reveal(ctx, true); !errors.Is(err, ErrNoMoreSongs) {
		t.Errorf("Reveal with no song = %v", err)
	}
	if err := f.dj.SkipSong(ctx); !errors.Is(err, ErrNoMoreSongs) {
		t.Errorf("SkipSong with no song = %v", err)
	}
	if err := f.dj.End(ctx); err != nil {
		t.Fatal(err)
	}
	if f.doc(t).Status != models.StatusEnded {
		t.Error("game not ended")
	}
}

func TestJoin_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultSettings(), 1960, 1970, 1980)
	p := f.join(t, "p1", "Ann")
	if err := f.dj.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := p.Submit(ctx, 0); err != nil {
		t.Fatal(err)
	}
	before := f.doc(t).Players["p1"]

	again := f.svc.Player("p1")
	res, err := again.Join(ctx, "Someone Else", "abcdefgh")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Reconnected || res.RoomCode != room {
		t.Fatalf("second join = %+v", res)
	}
	doc := f.doc(t)
	if len(doc.Players) != 1 {
		t.Fatalf("duplicate player: %d", len(doc.Players))
	}
	after := doc.Players["p1"]
	if after.Name != before.Name || !after.HasAnswered || after.JoinedAt != before.JoinedAt {
		t.Errorf("reconnect reset state: before %+v after %+v", before, after)
	}
}

func TestJoin_Failures(t *testing.T) {
	ctx := context.Background()
	s := DefaultSettings()
	s.MaxPlayers = 1
	f := newFixture(t, s, 1960, 1970, 1980)

	_, err := f.svc.Player("x").Join(ctx, "X", "ZZZZ-ZZZZ")
	wantErr(t, err, ErrSessionNotFound, KindNotFound)

	_, err = f.svc.Player("dj-1").Join(ctx, "DJ", room)
	wantErr(t, err, ErrDJCannotJoin, KindPrecondition)

	_, err = f.svc.Player("x").Join(ctx, "   ", room)
	wantErr(t, err, ErrNameRequired, KindPrecondition)

	_, err = f.svc.Player("x").Join(ctx, "X", "abc")
	wantErr(t, err, ErrInvalidRoomCode, KindPrecondition)

	_, err = f.svc.Player("a.b").Join(ctx, "X", room)
	wantErr(t, err, ErrInvalidPlayerID, KindPrecondition)

	f.join(t, "p1", "Ann")
	_, err = f.svc.Player("p2").Join(ctx, "Ben", room)
	wantErr(t, err, ErrRoomFull, KindPrecondition)

	if err := f.dj.End(ctx); err != nil {
		t.Fatal(err)
	}
	_, err = f.svc.Player("p3").Join(ctx, "Cat", room)
	wantErr(t, err, ErrGameEnded, KindPrecondition)
	_, err = f.svc.Player("p1").Join(ctx, "Ann", room)
	wantErr(t, err, ErrGameEnded, KindPrecondition)
}

func TestFairness_SharedInitialCard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultSettings(), 1950, 1960, 1970, 1980, 1990, 2000)
	shared := f.doc(t).SharedInitialSong
	for _, s := range f.doc(t).AvailableSongs {
		if s.ID == shared.ID {
			t.Fatal("shared card still in pool")
		}
	}

	f.join(t, "early", "Early")
	if err := f.dj.Start(ctx); err != nil {
		t.Fatal(err)
	}
	f.join(t, "late", "Late")

	doc := f.doc(t)
	for id, p := range doc.Players {
		if len(p.Timeline) != 1 || p.Timeline[0] != shared {
			t.Errorf("%s starts with %v, want %v", id, p.Timeline, shared)
		}
		if p.Tokens != 2 || p.Score != 1 {
			t.Errorf("%s tokens=%d score=%d", id, p.Tokens, p.Score)
		}
	}
	if doc.Players["early"].JoinedLate || !doc.Players["late"].JoinedLate {
		t.Error("joinedLate flags wrong")
	}
}

func TestDJ_RequiresOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultSettings(), 1960, 1970)
	intruder := f.svc.DJ("mallory")
	wantErr(t, intruder.Attach(ctx, room), ErrNotDJ, KindPrecondition)
	wantErr(t, intruder.Start(ctx), ErrSessionNotFound, KindNotFound)

	resumed := f.svc.DJ("dj-1")
	if err := resumed.Attach(ctx, "abcd efgh"); err != nil {
		t.Fatal(err)
	}
	if resumed.RoomCode() != room {
		t.Errorf("RoomCode = %q", resumed.RoomCode())
	}
}

func TestCreateSession_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultSettings(), 1960, 1970)

	err := f.svc.DJ("dj-2").CreateSession(ctx, room, "Other", catalogOf(1990))
	wantErr(t, err, ErrRoomExists, KindPrecondition)

	err = f.svc.DJ("dj-2").CreateSession(ctx, "WXYZ-2345", "Other", nil)
	wantErr(t, err, ErrEmptyCatalog, KindPrecondition)

	code, err := f.svc.DJ("dj-3").CreateSessionWithFreshCode(ctx, "", catalogOf(1990, 1991))
	if err != nil {
		t.Fatal(err)
	}
	doc, err := f.st.Get(ctx, code)
	if err != nil || doc.DJName != "DJ" || doc.Status != models.StatusLobby {
		t.Fatalf("fresh session %+v, %v", doc, err)
	}
}

func TestStart_Preconditions(t *testing.T) {
	ctx := context.Background()
	s := DefaultSettings()
	s.MinPlayers = 2
	f := newFixture(t, s, 1960, 1970, 1980)
	f.join(t, "p1", "Ann")
	wantErr(t, f.dj.Start(ctx), ErrTooFewPlayers, KindPrecondition)

	f.join(t, "p2", "Ben")
	if err := f.dj.Start(ctx); err != nil {
		t.Fatal(err)
	}
	wantErr(t, f.dj.Start(ctx), ErrAlreadyStarted, KindPrecondition)
}

func TestReveal_WaitsForAnswersUnlessForced(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultSettings(), 2000, 2000, 2000)
	p1 := f.join(t, "p1", "Ann")
	f.join(t, "p2", "Ben")
	if err := f.dj.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := p1.Submit(ctx, 1); err != nil {
		t.Fatal(err)
	}

	_, err := f.dj.Reveal(ctx, false)
	wantErr(t, err, ErrAwaitingAnswers, KindPrecondition)

	results, err := f.dj.Reveal(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if !results["p1"].Correct || results["p2"].Correct || results["p2"].Skipped {
		t.Errorf("forced results %+v", results)
	}
	_, err = f.dj.Reveal(ctx, true)
	wantErr(t, err, ErrNotPlaying, KindPrecondition)
}

func TestSubmit_Rules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultSettings(), 1960, 1970, 1980)
	p := f.join(t, "p1", "Ann")

	wantErr(t, p.Submit(ctx, 0), ErrNotAcceptingAnswers, KindPrecondition)
	if err := f.dj.Start(ctx); err != nil {
		t.Fatal(err)
	}
	wantErr(t, p.Submit(ctx, -1), ErrInvalidPlacement, KindPrecondition)
	if err := p.Submit(ctx, 1); err != nil {
		t.Fatal(err)
	}
	wantErr(t, p.Submit(ctx, 0), ErrAlreadyAnswered, KindPrecondition)
	wantErr(t, p.UseSkipToken(ctx), ErrAlreadyAnswered, KindPrecondition)

	stranger := f.svc.Player("nobody")
	wantErr(t, stranger.Submit(ctx, 0), ErrSessionNotFound, KindNotFound)
}

func TestUseSkipToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultSettings(), 1960, 1970, 1980)
	p := f.join(t, "p1", "Ann")
	if err := f.dj.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := p.UseSkipToken(ctx); err != nil {
		t.Fatal(err)
	}
	me := f.doc(t).Players["p1"]
	if me.Tokens != 1 || !me.HasAnswered || !me.PlacementIndex.IsSkip() {
		t.Fatalf("after skip: %+v", me)
	}
	results, err := f.dj.Reveal(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if r := results["p1"]; r.Correct || !r.Skipped {
		t.Errorf("skip scored %+v", r)
	}
}

func TestAdvance_WinnerTieBreak(t *testing.T) {
	ctx := context.Background()
	s := DefaultSettings()
	s.Rules.WinningScore = 2
	f := newFixture(t, s, sameYear(5)...)
	first := f.join(t, "zz-first", "First")
	second := f.join(t, "aa-second", "Second")
	if err := f.dj.Start(ctx); err != nil {
		t.Fatal(err)
	}
	_ = first.Submit(ctx, 0)
	_ = second.Submit(ctx, 1)
	if _, err := f.dj.Reveal(ctx, false); err != nil {
		t.Fatal(err)
	}
	res, err := f.dj.Advance(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !res.GameEnded || res.Winner == nil || res.Winner.ID != "zz-first" {
		t.Fatalf("result %+v", res)
	}

	doc := f.doc(t)
	if doc.Status != models.StatusEnded || doc.Winner == nil || doc.Winner.Name != "First" || doc.EndedAt == nil {
		t.Fatalf("ended doc %+v", doc)
	}
	if len(f.rec.docs) != 1 || f.rec.docs[0].Winner == nil {
		t.Errorf("archive got %d records", len(f.rec.docs))
	}
	events := f.sounds.Events()
	if len(events) == 0 || events[len(events)-1] != feedback.Win {
		t.Errorf("sounds = %v", events)
	}
	_, err = f.dj.Advance(ctx)
	wantErr(t, err, ErrGameEnded, KindPrecondition)
}

func TestAdvance_NoWinnerBelowThreshold(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultSettings(), sameYear(4)...)
	p := f.join(t, "p1", "Ann")
	_ = f.dj.Start(ctx)
	_ = p.Submit(ctx, 0)
	_, _ = f.dj.Reveal(ctx, false)
	res, err := f.dj.Advance(ctx)
	if err != nil || res.GameEnded {
		t.Fatalf("advance = %+v, %v", res, err)
	}
	_, err = f.dj.Advance(ctx)
	wantErr(t, err, ErrNotRevealing, KindPrecondition)
}

func TestTokens_StayInRange(t *testing.T) {
	ctx := context.Background()
	s := DefaultSettings()
	s.Rules.WinningScore = 100
	f := newFixture(t, s, sameYear(40)...)
	p := f.join(t, "p1", "Ann")
	if err := f.dj.Start(ctx); err != nil {
		t.Fatal(err)
	}

	prevTokens := 2
	for round := 0; round < 20; round++ {
		me := f.doc(t).Players["p1"]
		if round%7 == 6 && me.Tokens > 0 {
			if err := p.UseSkipToken(ctx); err != nil {
				t.Fatal(err)
			}
		} else if err := p.Submit(ctx, 0); err != nil {
			t.Fatal(err)
		}
		if _, err := f.dj.Reveal(ctx, false); err != nil {
			t.Fatal(err)
		}
		res, err := f.dj.Advance(ctx)
		if err != nil {
			t.Fatal(err)
		}
		me = f.doc(t).Players["p1"]
		if me.Tokens < 0 || me.Tokens > s.Rules.MaxTokens {
			t.Fatalf("round %d: tokens %d out of range", round, me.Tokens)
		}
		granted := len(res.TokensGranted) == 1
		if granted && me.CorrectStreak != 0 {
			t.Fatalf("round %d: streak %d after grant", round, me.CorrectStreak)
		}
		if me.Tokens > prevTokens && !granted {
			t.Fatalf("round %d: tokens grew without a grant", round)
		}
		prevTokens = me.Tokens
	}
}

func TestSkipSong_ResetsAnswers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultSettings(), 1950, 1960, 1970, 1980)
	p := f.join(t, "p1", "Ann")
	_ = f.dj.Start(ctx)
	_ = p.Submit(ctx, 0)
	before := f.doc(t)

	if err := f.dj.SkipSong(ctx); err != nil {
		t.Fatal(err)
	}
	doc := f.doc(t)
	if doc.CurrentRound != before.CurrentRound+1 || doc.CurrentSong.ID == before.CurrentSong.ID {
		t.Errorf("skip did not deal a new song: %+v", doc)
	}
	if me := doc.Players["p1"]; me.HasAnswered || me.Score != 1 {
		t.Errorf("player after skip %+v", me)
	}
	if len(doc.AvailableSongs) != len(before.AvailableSongs)-1 {
		t.Error("pool did not shrink")
	}
}

func TestPlayRound_RevealThenAdvance(t *testing.T) {
	ctx := context.Background()
	s := DefaultSettings()
	s.RevealDelay = 10 * time.Millisecond
	f := newFixture(t, s, sameYear(4)...)
	p := f.join(t, "p1", "Ann")
	_ = f.dj.Start(ctx)
	_ = p.Submit(ctx, 0)

	res, err := f.dj.PlayRound(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Round != 2 || f.doc(t).Players["p1"].Score != 2 {
		t.Errorf("PlayRound = %+v", res)
	}
}

func TestScheduleAdvance(t *testing.T) {
	ctx := context.Background()
	s := DefaultSettings()
	s.RevealDelay = 10 * time.Millisecond
	f := newFixture(t, s, sameYear(4)...)
	p := f.join(t, "p1", "Ann")
	_ = f.dj.Start(ctx)
	_ = p.Submit(ctx, 0)
	if _, err := f.dj.Reveal(ctx, false); err != nil {
		t.Fatal(err)
	}

	done := make(chan *AdvanceResult, 1)
	f.dj.ScheduleAdvance(ctx, func(res *AdvanceResult, err error) {
		if err != nil {
			t.Error(err)
		}
		done <- res
	})
	select {
	case res := <-done:
		if res == nil || res.Round != 2 {
			t.Errorf("scheduled advance = %+v", res)
		}
	case <-time.After(time.Second):
		t.Fatal("advance never ran")
	}
}

func TestLeave(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultSettings(), 1960, 1970)
	p := f.join(t, "p1", "Ann")
	if err := p.Leave(ctx); err != nil {
		t.Fatal(err)
	}
	if len(f.doc(t).Players) != 0 {
		t.Fatal("player still seated")
	}
	if err := p.Leave(ctx); err != nil {
		t.Errorf("second leave: %v", err)
	}

	if err := f.dj.Leave(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := f.st.Get(ctx, room); !errors.Is(err, store.ErrNotFound) {
		t.Error("session not deleted")
	}
}

func TestTerminate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultSettings(), 1960, 1970)
	if err := f.svc.Terminate(ctx, room); err != nil {
		t.Fatal(err)
	}
	wantErr(t, f.svc.Terminate(ctx, room), ErrGameEnded, KindPrecondition)
	wantErr(t, f.svc.Terminate(ctx, "NONE-NONE"), ErrSessionNotFound, KindNotFound)
	if len(f.rec.docs) != 1 {
		t.Errorf("archived %d", len(f.rec.docs))
	}
}
