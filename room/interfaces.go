package room

import "github.com/wfunc/gombiful/models"

// Broadcaster fans a document change out to a room's connections.
// This is defined here to break the import cycle between room and broadcast.
type Broadcaster interface {
	BroadcastState(code string, doc *models.GameSession, err error) error
}
