package network

import "github.com/wfunc/gombiful/models"

// Message ids. Client requests are answered with MsgTypeReply; document
// changes are pushed as MsgTypeState.
const (
	MsgTypeHeartbeat = 1

	MsgTypeCreateRoom = 101
	MsgTypeJoinRoom   = 102
	MsgTypeLeaveRoom  = 103
	MsgTypeResume     = 104

	MsgTypeStartGame  = 201
	MsgTypeSubmit     = 202
	MsgTypeSkipToken  = 203
	MsgTypeReveal     = 204
	MsgTypeAdvance    = 205
	MsgTypePlayRound  = 206
	MsgTypeSkipSong   = 207
	MsgTypeEndGame    = 208

	MsgTypeState = 301
	MsgTypeReply = 302
)

// Request is the payload of every client message. Fields not used by a
// message are omitted.
type Request struct {
	Seq      int    `json:"seq,omitempty"`
	PlayerID string `json:"playerId,omitempty"`
	Name     string `json:"name,omitempty"`
	RoomCode string `json:"roomCode,omitempty"`
	Role     string `json:"role,omitempty"`
	Index    int    `json:"index,omitempty"`
	Force    bool   `json:"force,omitempty"`
}

// Reply answers one Request.
type Reply struct {
	Seq     int    `json:"seq,omitempty"`
	Op      uint16 `json:"op"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// StatePush carries the viewer's copy of the session document, or Gone
// once the session was deleted.
type StatePush struct {
	RoomCode       string              `json:"roomCode"`
	Session        *models.GameSession `json:"session,omitempty"`
	RemainingSongs int                 `json:"remainingSongs"`
	Gone           bool                `json:"gone,omitempty"`
	Error          string              `json:"error,omitempty"`
}

// OpName names a message id for logs and metrics.
func OpName(msgID uint16) string {
	switch msgID {
	case MsgTypeHeartbeat:
		return "heartbeat"
	case MsgTypeCreateRoom:
		return "create"
	case MsgTypeJoinRoom:
		return "join"
	case MsgTypeLeaveRoom:
		return "leave"
	case MsgTypeResume:
		return "resume"
	case MsgTypeStartGame:
		return "start"
	case MsgTypeSubmit:
		return "submit"
	case MsgTypeSkipToken:
		return "skip_token"
	case MsgTypeReveal:
		return "reveal"
	case MsgTypeAdvance:
		return "advance"
	case MsgTypePlayRound:
		return "play_round"
	case MsgTypeSkipSong:
		return "skip_song"
	case MsgTypeEndGame:
		return "end"
	case MsgTypeState:
		return "state"
	case MsgTypeReply:
		return "reply"
	}
	return "unknown"
}
