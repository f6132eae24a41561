// Package feedback is the fire-and-forget sound effect port.
package feedback

import (
	"sync"

	"go.uber.org/zap"
)

type Event string

const (
	Correct    Event = "correct"
	Wrong      Event = "wrong"
	CardPlace  Event = "cardPlace"
	Win        Event = "win"
	Click      Event = "click"
	Join       Event = "join"
	Disconnect Event = "disconnect"
	Tick       Event = "tick"
)

// Player plays an event. Implementations must not block.
type Player interface {
	Play(e Event)
}

// Nop discards events.
type Nop struct{}

func (Nop) Play(Event) {}

// Logger writes events to a zap logger at debug level.
type Logger struct {
	Log *zap.SugaredLogger
}

func (l Logger) Play(e Event) {
	if l.Log != nil {
		l.Log.Debugw("sound", "event", e)
	}
}

// Recorder keeps every event it is given.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Play(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
