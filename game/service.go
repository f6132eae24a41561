// Package game implements the DJ and player controllers of a multiplayer
// timeline session. Every operation is a read of the shared document
// followed by exactly one write.
package game

import (
	"context"
	"time"

	"github.com/wfunc/gombiful/deck"
	"github.com/wfunc/gombiful/feedback"
	"github.com/wfunc/gombiful/logger"
	"github.com/wfunc/gombiful/models"
	"github.com/wfunc/gombiful/rules"
	"github.com/wfunc/gombiful/state"
	"github.com/wfunc/gombiful/store"
	"github.com/wfunc/gombiful/timer"
)

// Settings are the session-level knobs on top of the scoring rules.
type Settings struct {
	Rules          rules.Config
	MinPlayers     int
	MaxPlayers     int
	RevealDelay    time.Duration
	CreateAttempts int
}

func DefaultSettings() Settings {
	return Settings{
		Rules:          rules.Defaults(),
		MinPlayers:     1,
		MaxPlayers:     8,
		RevealDelay:    5 * time.Second,
		CreateAttempts: 5,
	}
}

// Recorder archives finished sessions.
type Recorder interface {
	Record(ctx context.Context, doc *models.GameSession) error
}

type Option func(*Service)

func WithDealer(d *deck.Dealer) Option { return func(s *Service) { s.dealer = d } }

func WithTimers(m *timer.Manager) Option { return func(s *Service) { s.timers = m } }

func WithSounds(p feedback.Player) Option { return func(s *Service) { s.sounds = p } }

func WithRecorder(r Recorder) Option { return func(s *Service) { s.recorder = r } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// Service holds what DJ and Player controllers share.
type Service struct {
	store    store.Store
	dealer   *deck.Dealer
	machine  *state.Machine
	timers   *timer.Manager
	sounds   feedback.Player
	recorder Recorder
	settings Settings
	now      func() time.Time

	ownTimers bool
}

func NewService(st store.Store, settings Settings, opts ...Option) *Service {
	s := &Service{
		store:    st,
		settings: settings,
		sounds:   feedback.Nop{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dealer == nil {
		s.dealer = deck.NewDealer(nil)
	}
	if s.timers == nil {
		s.timers = timer.NewManager()
		s.ownTimers = true
	}
	s.machine = state.NewGameMachine(settings.MinPlayers)
	s.machine.OnEnter(models.StatusEnded, func(from, _ models.Status, doc *models.GameSession) {
		if doc.Winner != nil {
			s.sounds.Play(feedback.Win)
			logger.Log.Infof("Game %s won by %s (%s) with %d cards", doc.RoomCode, doc.Winner.Name, doc.Winner.ID, doc.Winner.Score)
			return
		}
		logger.Log.Infof("Game %s ended from %s", doc.RoomCode, from)
	})
	s.machine.OnEnter(models.StatusRevealing, func(_, _ models.Status, doc *models.GameSession) {
		logger.Log.Debugf("Game %s revealed round %d", doc.RoomCode, doc.CurrentRound)
	})
	return s
}

// Close stops the timer manager if the service created it.
func (s *Service) Close() {
	if s.ownTimers {
		s.timers.Stop()
	}
}

func (s *Service) Settings() Settings { return s.settings }

func (s *Service) Store() store.Store { return s.store }

// OnEnter adds a hook run after this service commits a transition into to.
func (s *Service) OnEnter(to models.Status, fn state.EnterFunc) {
	s.machine.OnEnter(to, fn)
}

// DJ returns a controller acting as djID.
func (s *Service) DJ(djID string) *DJ {
	return &DJ{svc: s, id: djID}
}

// Player returns a controller acting as playerID.
func (s *Service) Player(playerID string) *Player {
	return &Player{svc: s, id: playerID}
}

// Terminate ends a session on behalf of an operator, without the DJ check.
func (s *Service) Terminate(ctx context.Context, code string) error {
	doc, err := s.store.Get(ctx, code)
	if err != nil {
		return storeErr("load session", err)
	}
	return s.end(ctx, doc)
}

func (s *Service) millis() int64 { return s.now().UnixMilli() }

// commit writes patch and fires state hooks when the status changed. It
// returns the document as it looks after the write.
func (s *Service) commit(ctx context.Context, doc *models.GameSession, patch store.Patch, op string) (*models.GameSession, error) {
	if err := s.store.Update(ctx, doc.RoomCode, patch); err != nil {
		logger.Log.Errorf("%s on %s failed: %v", op, doc.RoomCode, err)
		return nil, storeErr(op, err)
	}
	next, err := store.Apply(doc, patch)
	if err != nil {
		logger.Log.Warnf("%s on %s: cannot mirror patch locally: %v", op, doc.RoomCode, err)
		return doc, nil
	}
	if next.Status != doc.Status {
		s.machine.Entered(doc.Status, next)
	}
	return next, nil
}

func (s *Service) end(ctx context.Context, doc *models.GameSession) error {
	if doc.Status == models.StatusEnded {
		return precondition(ErrGameEnded)
	}
	if err := s.machine.Check(doc, models.StatusEnded); err != nil {
		return transitionErr(err)
	}
	patch := store.Patch{}.
		Set(store.P("status"), models.StatusEnded).
		Set(store.P("endedAt"), s.millis())
	next, err := s.commit(ctx, doc, patch, "end game")
	if err != nil {
		return err
	}
	s.archive(ctx, next)
	return nil
}

func (s *Service) archive(ctx context.Context, doc *models.GameSession) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, doc); err != nil {
		logger.Log.Warnf("Failed to archive game %s: %v", doc.RoomCode, err)
	}
}
