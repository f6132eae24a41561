package game

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wfunc/gombiful/catalog"
	"github.com/wfunc/gombiful/logger"
	"github.com/wfunc/gombiful/models"
	"github.com/wfunc/gombiful/roomcode"
	"github.com/wfunc/gombiful/rules"
	"github.com/wfunc/gombiful/store"
)

// DJ drives one session. It is bound to a single caller and is not safe
// for concurrent use.
type DJ struct {
	svc      *Service
	id       string
	roomCode string
}

// AdvanceResult describes what Advance committed.
type AdvanceResult struct {
	Round         int            `json:"round"`
	GameEnded     bool           `json:"gameEnded"`
	Winner        *models.Winner `json:"winner,omitempty"`
	NoMoreSongs   bool           `json:"noMoreSongs,omitempty"`
	TokensGranted []string       `json:"tokensGranted,omitempty"`
}

func (d *DJ) ID() string       { return d.id }
func (d *DJ) RoomCode() string { return d.roomCode }

// Attach binds the controller to an existing session, for resuming.
func (d *DJ) Attach(ctx context.Context, code string) error {
	code = roomcode.Normalize(code)
	doc, err := d.svc.store.Get(ctx, code)
	if err != nil {
		return storeErr("load session", err)
	}
	if doc.DJID != d.id {
		return precondition(ErrNotDJ)
	}
	d.roomCode = code
	return nil
}

// CreateSession writes a new lobby for code, dealt from songs.
func (d *DJ) CreateSession(ctx context.Context, code, djName string, songs []models.Song) error {
	code = roomcode.Normalize(code)
	if !roomcode.Valid(code) {
		return precondition(ErrInvalidRoomCode)
	}
	if !models.ValidPlayerID(d.id) {
		return precondition(ErrInvalidPlayerID)
	}
	if err := catalog.Validate(songs); err != nil {
		return preconditionf(ErrEmptyCatalog, "%v", err)
	}
	djName = strings.TrimSpace(djName)
	if djName == "" {
		djName = "DJ"
	}

	shuffled := d.svc.dealer.Shuffle(songs)
	doc := &models.GameSession{
		RoomCode:          code,
		Status:            models.StatusLobby,
		DJID:              d.id,
		DJName:            djName,
		AvailableSongs:    shuffled[1:],
		SharedInitialSong: shuffled[0],
		CreatedAt:         d.svc.millis(),
		Players:           map[string]*models.Player{},
	}
	if err := d.svc.store.Create(ctx, doc); err != nil {
		if errors.Is(err, store.ErrExists) {
			return precondition(ErrRoomExists)
		}
		return transport("create session", err)
	}
	d.roomCode = code
	logger.Log.Infof("DJ %s created game %s with %d songs", d.id, code, len(songs))
	return nil
}

// CreateSessionWithFreshCode retries with generated codes until one is free.
func (d *DJ) CreateSessionWithFreshCode(ctx context.Context, djName string, songs []models.Song) (string, error) {
	attempts := d.svc.settings.CreateAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		code := roomcode.Generate()
		err = d.CreateSession(ctx, code, djName, songs)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, ErrRoomExists) {
			return "", err
		}
	}
	return "", err
}

func (d *DJ) load(ctx context.Context) (*models.GameSession, error) {
	if d.roomCode == "" {
		return nil, notFound(ErrSessionNotFound)
	}
	doc, err := d.svc.store.Get(ctx, d.roomCode)
	if err != nil {
		return nil, storeErr("load session", err)
	}
	if doc.DJID != d.id {
		return nil, precondition(ErrNotDJ)
	}
	return doc, nil
}

// Session returns the current document.
func (d *DJ) Session(ctx context.Context) (*models.GameSession, error) {
	return d.load(ctx)
}

// Start deals the first song and opens round 1.
func (d *DJ) Start(ctx context.Context) error {
	doc, err := d.load(ctx)
	if err != nil {
		return err
	}
	switch doc.Status {
	case models.StatusEnded:
		return precondition(ErrGameEnded)
	case models.StatusLobby:
	default:
		return precondition(ErrAlreadyStarted)
	}
	if err := d.svc.machine.Check(doc, models.StatusPlaying); err != nil {
		return transitionErr(err)
	}
	song, rest := d.svc.dealer.DrawOne(doc.AvailableSongs)
	if song == nil {
		return precondition(ErrNoMoreSongs)
	}

	patch := store.Patch{}.
		Set(store.P("status"), models.StatusPlaying).
		Set(store.P("startedAt"), d.svc.millis()).
		Set(store.P("currentSong"), song).
		Set(store.P("currentRound"), 1).
		Set(store.P("availableSongs"), rest)
	if _, err := d.svc.commit(ctx, doc, patch, "start game"); err != nil {
		return err
	}
	logger.Log.Infof("Game %s started with %d players", doc.RoomCode, len(doc.Players))
	return nil
}

// Reveal scores every player's stored answer and publishes the results.
// Without force it refuses while answers are outstanding; with force,
// missing answers count as wrong.
func (d *DJ) Reveal(ctx context.Context, force bool) (map[string]models.RoundResult, error) {
	doc, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	if err := d.checkRound(doc, models.StatusRevealing); err != nil {
		return nil, err
	}
	if !force && !doc.AllAnswered() {
		return nil, preconditionf(ErrAwaitingAnswers, "%d of %d players answered", doc.AnsweredCount(), doc.PlayerCount())
	}

	results := rules.JudgeAll(doc.Players, *doc.CurrentSong)
	patch := store.Patch{}.
		Set(store.P("status"), models.StatusRevealing).
		Set(store.P("revealData"), models.RevealData{Results: results, RevealedAt: d.svc.millis()})
	if _, err := d.svc.commit(ctx, doc, patch, "reveal results"); err != nil {
		return nil, err
	}
	return results, nil
}

// Advance commits the revealed results, then either ends the game with a
// winner or deals the next song. If the pool is empty the results are still
// committed and ErrNoMoreSongs is returned.
func (d *DJ) Advance(ctx context.Context) (*AdvanceResult, error) {
	doc, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	if doc.Status == models.StatusEnded {
		return nil, precondition(ErrGameEnded)
	}
	if doc.Status != models.StatusRevealing || doc.RevealData == nil {
		return nil, precondition(ErrNotRevealing)
	}

	cfg := d.svc.settings.Rules
	patch := store.Patch{}
	after := make(map[string]*models.Player, len(doc.Players))
	res := &AdvanceResult{Round: doc.CurrentRound}
	for id, p := range doc.Players {
		cp := *p
		after[id] = &cp
		result, ok := doc.RevealData.Results[id]
		if !ok {
			continue
		}
		if rules.Commit(cfg, &cp, result) {
			res.TokensGranted = append(res.TokensGranted, id)
		}
		patch = patch.
			Set(store.P("players", id, "timeline"), cp.Timeline).
			Set(store.P("players", id, "score"), cp.Score).
			Set(store.P("players", id, "tokens"), cp.Tokens).
			Set(store.P("players", id, "correctStreak"), cp.CorrectStreak).
			Set(store.P("players", id, "hasAnswered"), false).
			Set(store.P("players", id, "placementIndex"), models.NoPlacement())
	}

	if winnerID, ok := rules.Winner(cfg, after); ok {
		winner := &models.Winner{ID: winnerID, Player: *after[winnerID]}
		if err := d.svc.machine.Check(doc, models.StatusEnded); err != nil {
			return nil, transitionErr(err)
		}
		patch = patch.
			Set(store.P("status"), models.StatusEnded).
			Set(store.P("endedAt"), d.svc.millis()).
			Set(store.P("winner"), winner)
		next, err := d.svc.commit(ctx, doc, patch, "advance round")
		if err != nil {
			return nil, err
		}
		d.svc.archive(ctx, next)
		res.GameEnded = true
		res.Winner = winner
		return res, nil
	}

	if err := d.svc.machine.Check(doc, models.StatusPlaying); err != nil {
		return nil, transitionErr(err)
	}
	song, rest := d.svc.dealer.DrawOne(doc.AvailableSongs)
	patch = patch.
		Set(store.P("status"), models.StatusPlaying).
		Set(store.P("currentSong"), song).
		Set(store.P("availableSongs"), rest).
		Set(store.P("revealData"), nil)
	if song != nil {
		res.Round = doc.CurrentRound + 1
		patch = patch.Set(store.P("currentRound"), res.Round)
	}
	if _, err := d.svc.commit(ctx, doc, patch, "advance round"); err != nil {
		return nil, err
	}
	if song == nil {
		res.NoMoreSongs = true
		logger.Log.Warnf("Game %s ran out of songs after round %d", doc.RoomCode, doc.CurrentRound)
		return res, precondition(ErrNoMoreSongs)
	}
	return res, nil
}

// PlayRound reveals, waits the reveal delay and advances. If ctx ends
// during the wait the session stays revealed and Advance can be called later.
func (d *DJ) PlayRound(ctx context.Context, force bool) (*AdvanceResult, error) {
	if _, err := d.Reveal(ctx, force); err != nil {
		return nil, err
	}
	if err := d.svc.timers.Sleep(ctx, d.svc.settings.RevealDelay); err != nil {
		return nil, err
	}
	return d.Advance(ctx)
}

// ScheduleAdvance runs Advance after the reveal delay and hands the outcome
// to done. It returns the timer id.
func (d *DJ) ScheduleAdvance(ctx context.Context, done func(*AdvanceResult, error)) int64 {
	return d.svc.timers.After(d.svc.settings.RevealDelay, func() {
		res, err := d.Advance(ctx)
		if done != nil {
			done(res, err)
		}
	})
}

// CancelAdvance stops a scheduled advance.
func (d *DJ) CancelAdvance(id int64) bool {
	return d.svc.timers.RemoveTimer(id)
}

// SkipSong discards the current song unscored and deals another one.
func (d *DJ) SkipSong(ctx context.Context) error {
	doc, err := d.load(ctx)
	if err != nil {
		return err
	}
	if err := d.checkRound(doc, models.StatusPlaying); err != nil {
		return err
	}
	song, rest := d.svc.dealer.DrawOne(doc.AvailableSongs)
	if song == nil {
		return precondition(ErrNoMoreSongs)
	}
	patch := store.Patch{}
	for id := range doc.Players {
		patch = patch.
			Set(store.P("players", id, "hasAnswered"), false).
			Set(store.P("players", id, "placementIndex"), models.NoPlacement())
	}
	patch = patch.
		Set(store.P("currentSong"), song).
		Set(store.P("currentRound"), doc.CurrentRound+1).
		Set(store.P("availableSongs"), rest).
		Set(store.P("revealData"), nil)
	_, err = d.svc.commit(ctx, doc, patch, "skip song")
	return err
}

// End finishes the game without a winner.
func (d *DJ) End(ctx context.Context) error {
	doc, err := d.load(ctx)
	if err != nil {
		return err
	}
	return d.svc.end(ctx, doc)
}

// Leave deletes the session.
func (d *DJ) Leave(ctx context.Context) error {
	doc, err := d.load(ctx)
	if err != nil {
		if KindOf(err) == KindNotFound {
			return nil
		}
		return err
	}
	return d.leave(ctx, doc)
}

func (d *DJ) leave(ctx context.Context, doc *models.GameSession) error {
	if err := d.svc.store.Delete(ctx, doc.RoomCode); err != nil {
		return transport("delete session", err)
	}
	logger.Log.Infof("DJ %s closed game %s", d.id, doc.RoomCode)
	d.roomCode = ""
	return nil
}

// checkRound requires a PLAYING session with a song on the table.
func (d *DJ) checkRound(doc *models.GameSession, to models.Status) error {
	switch doc.Status {
	case models.StatusEnded:
		return precondition(ErrGameEnded)
	case models.StatusPlaying:
	default:
		return preconditionf(ErrNotPlaying, "game is %s", doc.Status)
	}
	if err := d.svc.machine.Check(doc, to); err != nil {
		return transitionErr(err)
	}
	return nil
}

func (r *AdvanceResult) String() string {
	switch {
	case r.GameEnded:
		return fmt.Sprintf("round %d: %s wins", r.Round, r.Winner.Name)
	case r.NoMoreSongs:
		return fmt.Sprintf("round %d: no more songs", r.Round)
	}
	return fmt.Sprintf("round %d dealt", r.Round)
}
