// Package state describes which session status changes are legal.
package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/wfunc/gombiful/models"
)

// ErrTransitionNotAllowed is returned when no edge connects two statuses.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

var (
	ErrTooFewPlayers = errors.New("not enough players to start")
	ErrNoCurrentSong = errors.New("no more songs available")
	ErrNoRevealData  = errors.New("round has not been revealed")
)

// Guard inspects the document before a transition and vetoes it with an error.
type Guard func(doc *models.GameSession) error

// EnterFunc runs after a transition has been committed.
type EnterFunc func(from, to models.Status, doc *models.GameSession)

// Machine holds the transition table of a game session. The status itself
// lives in the shared document, so the machine only checks and notifies.
type Machine struct {
	transitions map[models.Status]map[models.Status]Guard // from -> to -> guard
	onEnter     map[models.Status][]EnterFunc
	mutex       sync.RWMutex
}

func NewMachine() *Machine {
	return &Machine{
		transitions: make(map[models.Status]map[models.Status]Guard),
		onEnter:     make(map[models.Status][]EnterFunc),
	}
}

// NewGameMachine returns the standard lobby/playing/revealing/ended table.
func NewGameMachine(minPlayers int) *Machine {
	m := NewMachine()
	m.AddTransition(models.StatusLobby, models.StatusPlaying, func(doc *models.GameSession) error {
		if len(doc.Players) < minPlayers {
			return fmt.Errorf("%w: %d of %d", ErrTooFewPlayers, len(doc.Players), minPlayers)
		}
		return nil
	})
	hasSong := func(doc *models.GameSession) error {
		if doc.CurrentSong == nil {
			return ErrNoCurrentSong
		}
		return nil
	}
	m.AddTransition(models.StatusPlaying, models.StatusRevealing, hasSong)
	m.AddTransition(models.StatusPlaying, models.StatusPlaying, hasSong)
	revealed := func(doc *models.GameSession) error {
		if doc.RevealData == nil {
			return ErrNoRevealData
		}
		return nil
	}
	m.AddTransition(models.StatusRevealing, models.StatusPlaying, revealed)
	m.AddTransition(models.StatusRevealing, models.StatusEnded, nil)
	m.AddTransition(models.StatusLobby, models.StatusEnded, nil)
	m.AddTransition(models.StatusPlaying, models.StatusEnded, nil)
	return m
}

func (sm *Machine) AddTransition(from, to models.Status, guard Guard) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if _, exists := sm.transitions[from]; !exists {
		sm.transitions[from] = make(map[models.Status]Guard)
	}
	sm.transitions[from][to] = guard
}

// OnEnter registers fn to run whenever a session enters status.
func (sm *Machine) OnEnter(status models.Status, fn EnterFunc) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	sm.onEnter[status] = append(sm.onEnter[status], fn)
}

// Check reports whether doc may move to status to.
func (sm *Machine) Check(doc *models.GameSession, to models.Status) error {
	sm.mutex.RLock()
	guards, ok := sm.transitions[doc.Status]
	var guard Guard
	if ok {
		guard, ok = guards[to]
	}
	sm.mutex.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, doc.Status, to)
	}
	if guard != nil {
		return guard(doc)
	}
	return nil
}

// Entered fires the hooks of doc's new status.
func (sm *Machine) Entered(from models.Status, doc *models.GameSession) {
	sm.mutex.RLock()
	hooks := append([]EnterFunc(nil), sm.onEnter[doc.Status]...)
	sm.mutex.RUnlock()

	for _, fn := range hooks {
		fn(from, doc.Status, doc)
	}
}

// CanTransition reports whether an edge exists regardless of guards.
func (sm *Machine) CanTransition(from, to models.Status) bool {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	_, ok := sm.transitions[from][to]
	return ok
}
