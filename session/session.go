// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/wfunc/gombiful/network"
)

// Session is one live client connection and the identity it claimed.
type Session struct {
	ID         string
	Conn       network.Connection
	Role       Role
	PlayerID   string
	RoomCode   string
	CreatedAt  time.Time
	LastActive time.Time
	mutex      sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
	}
}

// Bind records who this connection acts for.
func (s *Session) Bind(role Role, playerID, roomCode string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.Role = role
	s.PlayerID = playerID
	s.RoomCode = roomCode
}

// Identity returns the bound role, player and room.
func (s *Session) Identity() (Role, string, string) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.Role, s.PlayerID, s.RoomCode
}

func (s *Session) Touch() {
	s.mutex.Lock()
	s.LastActive = time.Now()
	s.mutex.Unlock()
}

func (s *Session) Send(msgID uint16, data []byte) error {
	s.Touch()
	return s.Conn.Send(msgID, data)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Manager tracks live connections.
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// GetByPlayerID returns every connection bound to playerID.
func (m *Manager) GetByPlayerID(playerID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if _, id, _ := session.Identity(); id == playerID {
			result = append(result, session)
		}
	}
	return result
}
