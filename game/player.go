package game

import (
	"context"
	"strings"

	"github.com/wfunc/gombiful/logger"
	"github.com/wfunc/gombiful/models"
	"github.com/wfunc/gombiful/roomcode"
	"github.com/wfunc/gombiful/rules"
	"github.com/wfunc/gombiful/store"
)

// Player acts for one participant. It only ever writes below
// players.<own id>.
type Player struct {
	svc      *Service
	id       string
	roomCode string
}

// JoinResult reports how a join was satisfied.
type JoinResult struct {
	RoomCode    string `json:"roomCode"`
	Reconnected bool   `json:"reconnected"`
	JoinedLate  bool   `json:"joinedLate"`
}

func (p *Player) ID() string       { return p.id }
func (p *Player) RoomCode() string { return p.roomCode }

// Join adds the player to the session, or reattaches if the id is
// already seated.
func (p *Player) Join(ctx context.Context, name, code string) (*JoinResult, error) {
	if !models.ValidPlayerID(p.id) {
		return nil, precondition(ErrInvalidPlayerID)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, precondition(ErrNameRequired)
	}
	code = roomcode.Normalize(code)
	if !roomcode.Valid(code) {
		return nil, precondition(ErrInvalidRoomCode)
	}

	doc, err := p.svc.store.Get(ctx, code)
	if err != nil {
		return nil, storeErr("load session", err)
	}
	if doc.Status == models.StatusEnded {
		return nil, precondition(ErrGameEnded)
	}
	if p.id == doc.DJID {
		return nil, precondition(ErrDJCannotJoin)
	}
	if existing, ok := doc.Players[p.id]; ok {
		p.roomCode = code
		logger.Log.Infof("Player %s reconnected to game %s", p.id, code)
		return &JoinResult{RoomCode: code, Reconnected: true, JoinedLate: existing.JoinedLate}, nil
	}
	if len(doc.Players) >= p.svc.settings.MaxPlayers {
		return nil, precondition(ErrRoomFull)
	}

	late := doc.Status != models.StatusLobby
	player := rules.NewPlayer(p.svc.settings.Rules, name, doc.SharedInitialSong, p.svc.millis(), late)
	if _, err := p.svc.commit(ctx, doc, store.Patch{}.Set(store.P("players", p.id), player), "join game"); err != nil {
		return nil, err
	}
	p.roomCode = code
	logger.Log.Infof("Player %s (%s) joined game %s", p.id, name, code)
	return &JoinResult{RoomCode: code, JoinedLate: late}, nil
}

// Attach binds the controller to a session the player is already seated
// in, without writing.
func (p *Player) Attach(ctx context.Context, code string) error {
	code = roomcode.Normalize(code)
	doc, err := p.svc.store.Get(ctx, code)
	if err != nil {
		return storeErr("load session", err)
	}
	if _, ok := doc.Players[p.id]; !ok {
		return notFound(ErrPlayerNotFound)
	}
	p.roomCode = code
	return nil
}

func (p *Player) load(ctx context.Context) (*models.GameSession, *models.Player, error) {
	if p.roomCode == "" {
		return nil, nil, notFound(ErrSessionNotFound)
	}
	doc, err := p.svc.store.Get(ctx, p.roomCode)
	if err != nil {
		return nil, nil, storeErr("load session", err)
	}
	me, ok := doc.Players[p.id]
	if !ok {
		return doc, nil, notFound(ErrPlayerNotFound)
	}
	return doc, me, nil
}

// answerable checks the player may answer the current round.
func answerable(doc *models.GameSession, me *models.Player) error {
	switch {
	case doc.Status == models.StatusEnded:
		return precondition(ErrGameEnded)
	case doc.Status != models.StatusPlaying:
		return preconditionf(ErrNotAcceptingAnswers, "game is %s", doc.Status)
	case doc.CurrentSong == nil:
		return precondition(ErrNoMoreSongs)
	case me.HasAnswered:
		return precondition(ErrAlreadyAnswered)
	}
	return nil
}

// Session returns the current document.
func (p *Player) Session(ctx context.Context) (*models.GameSession, error) {
	doc, _, err := p.load(ctx)
	return doc, err
}

// Submit records the gap the player chose for the current song.
func (p *Player) Submit(ctx context.Context, index int) error {
	if index < 0 {
		return precondition(ErrInvalidPlacement)
	}
	doc, me, err := p.load(ctx)
	if err != nil {
		return err
	}
	if err := answerable(doc, me); err != nil {
		return err
	}
	patch := store.Patch{}.
		Set(store.P("players", p.id, "hasAnswered"), true).
		Set(store.P("players", p.id, "placementIndex"), models.PlacedAt(index))
	_, err = p.svc.commit(ctx, doc, patch, "submit answer")
	return err
}

// UseSkipToken spends a token to pass on the current song.
func (p *Player) UseSkipToken(ctx context.Context) error {
	doc, me, err := p.load(ctx)
	if err != nil {
		return err
	}
	if err := answerable(doc, me); err != nil {
		return err
	}
	left, err := rules.Spend(me.Tokens, p.svc.settings.Rules.TokenCostSkip)
	if err != nil {
		return preconditionf(err, "have %d, need %d", me.Tokens, p.svc.settings.Rules.TokenCostSkip)
	}
	patch := store.Patch{}.
		Set(store.P("players", p.id, "tokens"), left).
		Set(store.P("players", p.id, "hasAnswered"), true).
		Set(store.P("players", p.id, "placementIndex"), models.Skipped())
	_, err = p.svc.commit(ctx, doc, patch, "use skip token")
	return err
}

// Leave removes the player's entry. Leaving twice is not an error.
func (p *Player) Leave(ctx context.Context) error {
	doc, _, err := p.load(ctx)
	if doc != nil && doc.DJID == p.id {
		return p.svc.DJ(p.id).leave(ctx, doc)
	}
	if err != nil {
		if KindOf(err) == KindNotFound {
			p.roomCode = ""
			return nil
		}
		return err
	}
	if _, err := p.svc.commit(ctx, doc, store.Patch{}.Unset(store.P("players", p.id)), "leave game"); err != nil {
		return err
	}
	logger.Log.Infof("Player %s left game %s", p.id, doc.RoomCode)
	p.roomCode = ""
	return nil
}
