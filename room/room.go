// room/room.go
package room

import (
	"context"
	"sync"
	"time"

	"github.com/wfunc/gombiful/logger"
	"github.com/wfunc/gombiful/models"
	"github.com/wfunc/gombiful/session"
	"github.com/wfunc/gombiful/store"
)

// Room is the set of connections following one session document.
type Room struct {
	Code        string
	Sessions    map[string]*session.Session // sessionID -> session
	CreatedAt   time.Time
	watcher     *session.Watcher
	cancel      context.CancelFunc
	playerMutex sync.RWMutex
}

// AddSession adds a connection to the room.
func (r *Room) AddSession(s *session.Session) {
	r.playerMutex.Lock()
	defer r.playerMutex.Unlock()
	r.Sessions[s.ID] = s
}

// RemoveSession drops a connection and returns how many remain.
func (r *Room) RemoveSession(sessionID string) int {
	r.playerMutex.Lock()
	defer r.playerMutex.Unlock()
	delete(r.Sessions, sessionID)
	return len(r.Sessions)
}

// GetSessions returns a slice of all sessions in the room (thread-safe).
func (r *Room) GetSessions() []*session.Session {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()

	sessions := make([]*session.Session, 0, len(r.Sessions))
	for _, s := range r.Sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

func (r *Room) Len() int {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()
	return len(r.Sessions)
}

// State is the last good copy of the session document.
func (r *Room) State() *models.GameSession {
	if r.watcher == nil {
		return nil
	}
	return r.watcher.State()
}

// Close stops following the document.
func (r *Room) Close() {
	if r.cancel != nil {
		r.cancel()
	}
}

// Manager 管理所有房间
type Manager struct {
	rooms       map[string]*Room
	store       store.Store
	broadcaster Broadcaster
	mutex       sync.RWMutex
}

// NewRoomManager 创建一个新的房间管理器
func NewRoomManager(st store.Store, broadcaster Broadcaster) *Manager {
	return &Manager{
		rooms:       make(map[string]*Room),
		store:       st,
		broadcaster: broadcaster,
	}
}

// SetBroadcaster replaces the broadcaster; used when the broadcaster itself
// needs the manager.
func (m *Manager) SetBroadcaster(b Broadcaster) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.broadcaster = b
}

// Attach adds s to the room for code, subscribing to the document when the
// room is first used.
func (m *Manager) Attach(code string, s *session.Session) (*Room, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if r, ok := m.rooms[code]; ok {
		r.AddSession(s)
		return r, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Room{
		Code:      code,
		Sessions:  map[string]*session.Session{s.ID: s},
		CreatedAt: time.Now(),
		cancel:    cancel,
	}
	b := m.broadcaster
	w, err := session.Watch(ctx, m.store, code, func(doc *models.GameSession, err error) {
		if b == nil {
			return
		}
		if berr := b.BroadcastState(code, doc, err); berr != nil {
			logger.Log.Debugf("Broadcast to %s: %v", code, berr)
		}
	})
	if err != nil {
		cancel()
		return nil, err
	}
	r.watcher = w
	m.rooms[code] = r
	logger.Log.Debugf("Following game %s", code)
	return r, nil
}

// Detach removes a connection and closes the room once it is empty.
func (m *Manager) Detach(code, sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	r, ok := m.rooms[code]
	if !ok {
		return
	}
	if r.RemoveSession(sessionID) == 0 {
		r.Close()
		delete(m.rooms, code)
		logger.Log.Debugf("Stopped following game %s", code)
	}
}

// RemoveRoom 从管理器中移除并关闭一个房间
func (m *Manager) RemoveRoom(code string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if room, exists := m.rooms[code]; exists {
		room.Close()
		delete(m.rooms, code)
	}
}

// GetRoom 从管理器中获取一个房间
func (m *Manager) GetRoom(code string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[code]
	return room, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// CloseAll stops every room.
func (m *Manager) CloseAll() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for code, r := range m.rooms {
		r.Close()
		delete(m.rooms, code)
	}
}
