// broadcast/broadcast.go
package broadcast

import (
	"encoding/json"
	"errors"

	"github.com/wfunc/gombiful/logger"
	"github.com/wfunc/gombiful/models"
	"github.com/wfunc/gombiful/network"
	"github.com/wfunc/gombiful/room"
	"github.com/wfunc/gombiful/session"
	"github.com/wfunc/gombiful/store"
)

var (
	ErrRoomNotFound = errors.New("room not found")
)

// Broadcaster sends to every connection of a room or of some players.
type Broadcaster interface {
	BroadcastToRoom(code string, msgID uint16, data []byte) error
	BroadcastToPlayers(playerIDs []string, msgID uint16, data []byte) error
}

// RoomBroadcaster delivers room traffic through the room and session managers.
type RoomBroadcaster struct {
	roomManager    *room.Manager
	sessionManager *session.Manager
}

func NewRoomBroadcaster(roomManager *room.Manager, sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		roomManager:    roomManager,
		sessionManager: sessionManager,
	}
}

func (b *RoomBroadcaster) BroadcastToRoom(code string, msgID uint16, data []byte) error {
	r, exists := b.roomManager.GetRoom(code)
	if !exists {
		return ErrRoomNotFound
	}
	for _, s := range r.GetSessions() {
		if err := s.Send(msgID, data); err != nil {
			logger.Log.Debugf("Send to %s failed: %v", s.ID, err)
		}
	}
	return nil
}

func (b *RoomBroadcaster) BroadcastToPlayers(playerIDs []string, msgID uint16, data []byte) error {
	for _, id := range playerIDs {
		for _, s := range b.sessionManager.GetByPlayerID(id) {
			if err := s.Send(msgID, data); err != nil {
				logger.Log.Debugf("Send to %s failed: %v", s.ID, err)
			}
		}
	}
	return nil
}

// BroadcastState sends each connection in the room its own view of doc.
func (b *RoomBroadcaster) BroadcastState(code string, doc *models.GameSession, err error) error {
	r, exists := b.roomManager.GetRoom(code)
	if !exists {
		return ErrRoomNotFound
	}
	for _, s := range r.GetSessions() {
		if serr := PushState(s, code, doc, err); serr != nil {
			logger.Log.Debugf("State push to %s failed: %v", s.ID, serr)
		}
	}
	return nil
}

// PushState sends one connection its view of doc. A nil doc with
// store.ErrNotFound tells the client the session is gone.
func PushState(s *session.Session, code string, doc *models.GameSession, err error) error {
	data, encErr := json.Marshal(StateFor(s, code, doc, err))
	if encErr != nil {
		return encErr
	}
	return s.Send(network.MsgTypeState, data)
}

// StateFor builds the push for the identity bound to s.
func StateFor(s *session.Session, code string, doc *models.GameSession, err error) network.StatePush {
	push := network.StatePush{RoomCode: code}
	switch {
	case errors.Is(err, store.ErrNotFound):
		push.Gone = true
	case err != nil:
		push.Error = err.Error()
	case doc != nil:
		_, playerID, _ := s.Identity()
		push.Session = doc.ViewFor(playerID)
		push.RemainingSongs = len(doc.AvailableSongs)
	}
	return push
}
