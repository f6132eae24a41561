// persistence/notifier.go
package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/wfunc/gombiful/logger"
	"github.com/wfunc/gombiful/store"
)

// NotifyChannel is the LISTEN channel the games trigger publishes room codes on.
const NotifyChannel = "games_changed"

// Loader re-reads a document after a change notification.
type Loader func(ctx context.Context, code string) store.Snapshot

// Notifier fans PostgreSQL change notifications out to subscription feeds.
type Notifier struct {
	listener *pq.Listener
	load     Loader

	mu    sync.Mutex
	feeds map[string]map[*store.Feed]struct{}

	done chan struct{}
	once sync.Once
}

func NewNotifier(dsn string, load Loader) (*Notifier, error) {
	l := pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Log.Warnw("listener event", "event", ev, "error", err)
		}
	})
	if err := l.Listen(NotifyChannel); err != nil {
		_ = l.Close()
		return nil, err
	}
	n := newNotifier(load)
	n.listener = l
	go n.run(l.Notify)
	return n, nil
}

func newNotifier(load Loader) *Notifier {
	return &Notifier{
		load:  load,
		feeds: make(map[string]map[*store.Feed]struct{}),
		done:  make(chan struct{}),
	}
}

func (n *Notifier) Add(code string, f *store.Feed) {
	n.mu.Lock()
	defer n.mu.Unlock()
	set, ok := n.feeds[code]
	if !ok {
		set = make(map[*store.Feed]struct{})
		n.feeds[code] = set
	}
	set[f] = struct{}{}
}

func (n *Notifier) Remove(code string, f *store.Feed) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if set, ok := n.feeds[code]; ok {
		delete(set, f)
		if len(set) == 0 {
			delete(n.feeds, code)
		}
	}
}

func (n *Notifier) run(notify <-chan *pq.Notification) {
	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()
	for {
		select {
		case note, ok := <-notify:
			if !ok {
				return
			}
			// nil after a reconnect: notifications may have been missed
			if note == nil {
				n.refreshAll()
				continue
			}
			n.refresh(note.Extra)
		case <-ping.C:
			if n.listener != nil {
				go func() {
					if err := n.listener.Ping(); err != nil {
						logger.Log.Warnw("listener ping failed", "error", err)
					}
				}()
			}
		case <-n.done:
			return
		}
	}
}

func (n *Notifier) codes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.feeds))
	for code := range n.feeds {
		out = append(out, code)
	}
	return out
}

func (n *Notifier) refreshAll() {
	for _, code := range n.codes() {
		n.refresh(code)
	}
}

func (n *Notifier) refresh(code string) {
	n.mu.Lock()
	set := n.feeds[code]
	targets := make([]*store.Feed, 0, len(set))
	for f := range set {
		targets = append(targets, f)
	}
	n.mu.Unlock()
	if len(targets) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	snap := n.load(ctx, code)
	cancel()
	for _, f := range targets {
		f.Push(snap)
	}
}

func (n *Notifier) Close() {
	n.once.Do(func() {
		close(n.done)
		if n.listener != nil {
			_ = n.listener.Close()
		}
	})
}
