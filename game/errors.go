package game

import (
	"errors"
	"fmt"

	"github.com/wfunc/gombiful/rules"
	"github.com/wfunc/gombiful/state"
	"github.com/wfunc/gombiful/store"
)

// Kind classifies a controller failure.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindPrecondition
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPrecondition:
		return "precondition"
	case KindTransport:
		return "transport"
	}
	return "unknown"
}

// Error is returned by every controller operation.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Kind == KindTransport && e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrSessionNotFound     = errors.New("Game not found")
	ErrPlayerNotFound      = errors.New("Player not found")
	ErrGameEnded           = errors.New("Game has ended")
	ErrRoomFull            = errors.New("Game is full")
	ErrRoomExists          = errors.New("Room code already in use")
	ErrInvalidRoomCode     = errors.New("Invalid room code")
	ErrInvalidPlayerID     = errors.New("Invalid player id")
	ErrNameRequired        = errors.New("Name is required")
	ErrNotDJ               = errors.New("Only the DJ can do that")
	ErrDJCannotJoin        = errors.New("The DJ cannot join as a player")
	ErrEmptyCatalog        = errors.New("Catalog has no songs")
	ErrAlreadyStarted      = errors.New("Game already started")
	ErrNotAcceptingAnswers = errors.New("Round is not accepting answers")
	ErrAlreadyAnswered     = errors.New("Already answered this round")
	ErrInvalidPlacement    = errors.New("Invalid placement position")
	ErrAwaitingAnswers     = errors.New("Not all players have answered")
	ErrNotRevealing        = errors.New("Round has not been revealed")
	ErrNotPlaying          = errors.New("Game is not in a round")

	ErrInsufficientTokens = rules.ErrInsufficientTokens
	ErrTooFewPlayers      = state.ErrTooFewPlayers
	ErrNoMoreSongs        = state.ErrNoCurrentSong
)

func notFound(err error) *Error {
	return &Error{Kind: KindNotFound, Reason: err.Error(), Err: err}
}

func precondition(err error) *Error {
	return &Error{Kind: KindPrecondition, Reason: err.Error(), Err: err}
}

// preconditionf prefixes the sentinel's message with detail.
func preconditionf(err error, format string, args ...any) *Error {
	return &Error{Kind: KindPrecondition, Reason: err.Error() + ": " + fmt.Sprintf(format, args...), Err: err}
}

func transport(op string, err error) *Error {
	return &Error{Kind: KindTransport, Reason: op + " failed", Err: err}
}

// storeErr maps a store failure onto the controller taxonomy.
func storeErr(op string, err error) *Error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound(ErrSessionNotFound)
	}
	return transport(op, err)
}

// transitionErr maps a state machine veto.
func transitionErr(err error) *Error {
	if errors.Is(err, state.ErrTransitionNotAllowed) {
		return &Error{Kind: KindPrecondition, Reason: "Action not allowed in the current phase", Err: err}
	}
	return precondition(err)
}

// KindOf returns the kind of a controller error, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
