package store

import "sync"

// Feed is a subscription channel that keeps only the newest snapshot when
// the reader falls behind.
type Feed struct {
	mu     sync.Mutex
	ch     chan Snapshot
	closed bool
}

func NewFeed() *Feed {
	return &Feed{ch: make(chan Snapshot, 1)}
}

func (f *Feed) C() <-chan Snapshot { return f.ch }

// Push replaces any undelivered snapshot with s.
func (f *Feed) Push(s Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	select {
	case <-f.ch:
	default:
	}
	f.ch <- s
}

func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.ch)
	}
}
