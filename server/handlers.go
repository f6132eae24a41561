package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"github.com/wfunc/gombiful/broadcast"
	"github.com/wfunc/gombiful/feedback"
	"github.com/wfunc/gombiful/game"
	"github.com/wfunc/gombiful/logger"
	"github.com/wfunc/gombiful/models"
	"github.com/wfunc/gombiful/network"
	"github.com/wfunc/gombiful/session"
	"github.com/wfunc/gombiful/store"
)

const requestTimeout = 10 * time.Second

var (
	errNotInGame = errors.New("Not in a game")
	errNotDJ     = errors.New("Only the DJ can do that")
	errNotPlayer = errors.New("Only players can do that")
)

// client is the per-connection state: which controller this connection
// drives and its background jobs.
type client struct {
	sess   *session.Session
	dj     *game.DJ
	player *game.Player

	mu         sync.Mutex
	stopBeat   context.CancelFunc
	advanceID  int64
	attachedTo string
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	wsConn := network.NewWSConnection(conn)
	wsConn.SetHeartbeat(s.readTimeout / 2)
	s.handleConnection(wsConn)
}

func (s *GameServer) handleConnection(wsConn network.Connection) {
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	s.monitor.IncConnectedClients()
	c := &client{sess: sess}

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.detach(c)
		s.sessionManager.Remove(sess.GetID())
		s.monitor.DecConnectedClients()
		if _, playerID, _ := sess.Identity(); playerID != "" {
			s.sounds.Play(feedback.Disconnect)
		}
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(c, packet)
		}
	}
}

func (s *GameServer) handlePacket(c *client, packet *network.Packet) {
	c.sess.Touch()
	if packet.MsgID == network.MsgTypeHeartbeat {
		return
	}

	start := time.Now()
	op := network.OpName(packet.MsgID)
	var req network.Request
	var data interface{}
	err := packet.Decode(&req)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		data, err = s.dispatch(ctx, c, packet.MsgID, &req)
		cancel()
	}
	s.monitor.ObserveMessage(op, err, time.Since(start))

	reply := network.Reply{Seq: req.Seq, Op: packet.MsgID, Success: err == nil, Data: data}
	if err != nil {
		reply.Error = err.Error()
		reply.Kind = errorKind(err)
		logger.Log.Debugf("%s from %s failed: %v", op, c.sess.GetID(), err)
	}
	if serr := network.SendJSON(c.sess.Conn, network.MsgTypeReply, reply); serr != nil {
		logger.Log.Debugf("Reply to %s failed: %v", c.sess.GetID(), serr)
	}
}

func errorKind(err error) string {
	if k := game.KindOf(err); k != 0 {
		return k.String()
	}
	if errors.Is(err, store.ErrNotFound) {
		return game.KindNotFound.String()
	}
	return game.KindPrecondition.String()
}

func (s *GameServer) dispatch(ctx context.Context, c *client, msgID uint16, req *network.Request) (interface{}, error) {
	switch msgID {
	case network.MsgTypeCreateRoom:
		return s.handleCreate(ctx, c, req)
	case network.MsgTypeJoinRoom:
		return s.handleJoin(ctx, c, req)
	case network.MsgTypeResume:
		return s.handleResume(ctx, c, req)
	case network.MsgTypeLeaveRoom:
		return nil, s.handleLeave(ctx, c)
	}

	if c.dj == nil && c.player == nil {
		return nil, errNotInGame
	}
	switch msgID {
	case network.MsgTypeSubmit:
		if c.player == nil {
			return nil, errNotPlayer
		}
		if err := c.player.Submit(ctx, req.Index); err != nil {
			return nil, err
		}
		s.monitor.Metrics().AnswersSubmitted.Inc()
		s.sounds.Play(feedback.CardPlace)
		return nil, nil
	case network.MsgTypeSkipToken:
		if c.player == nil {
			return nil, errNotPlayer
		}
		if err := c.player.UseSkipToken(ctx); err != nil {
			return nil, err
		}
		s.monitor.Metrics().AnswersSubmitted.Inc()
		return nil, nil
	}

	if c.dj == nil {
		return nil, errNotDJ
	}
	switch msgID {
	case network.MsgTypeStartGame:
		return nil, c.dj.Start(ctx)
	case network.MsgTypeReveal:
		return c.dj.Reveal(ctx, req.Force)
	case network.MsgTypeAdvance:
		s.cancelAdvance(c)
		return c.dj.Advance(ctx)
	case network.MsgTypePlayRound:
		return s.handlePlayRound(ctx, c, req.Force)
	case network.MsgTypeSkipSong:
		return nil, c.dj.SkipSong(ctx)
	case network.MsgTypeEndGame:
		s.cancelAdvance(c)
		return nil, c.dj.End(ctx)
	}
	return nil, errors.New("unknown message")
}

func (s *GameServer) handleCreate(ctx context.Context, c *client, req *network.Request) (interface{}, error) {
	djID := req.PlayerID
	if djID == "" {
		djID = uuid.New().String()
	}
	dj := s.svc.DJ(djID)

	code := req.RoomCode
	var err error
	if code != "" {
		err = dj.CreateSession(ctx, code, req.Name, s.catalog)
	} else {
		code, err = dj.CreateSessionWithFreshCode(ctx, req.Name, s.catalog)
	}
	if err != nil {
		return nil, err
	}
	s.monitor.Metrics().SessionsCreated.Inc()

	s.detach(c)
	c.dj, c.player = dj, nil
	c.sess.Bind(session.RoleDJ, djID, dj.RoomCode())
	if err := s.attach(c, dj.RoomCode()); err != nil {
		return nil, err
	}
	return map[string]string{"roomCode": dj.RoomCode(), "playerId": djID}, nil
}

func (s *GameServer) handleJoin(ctx context.Context, c *client, req *network.Request) (interface{}, error) {
	playerID := req.PlayerID
	if playerID == "" {
		playerID = uuid.New().String()
	}
	p := s.svc.Player(playerID)
	res, err := p.Join(ctx, req.Name, req.RoomCode)
	if err != nil {
		return nil, err
	}
	if !res.Reconnected {
		s.monitor.Metrics().PlayersJoined.Inc()
		s.sounds.Play(feedback.Join)
	}

	s.detach(c)
	c.player, c.dj = p, nil
	c.sess.Bind(session.RolePlayer, playerID, res.RoomCode)
	if err := s.attach(c, res.RoomCode); err != nil {
		return nil, err
	}
	return struct {
		*game.JoinResult
		PlayerID string `json:"playerId"`
	}{res, playerID}, nil
}

func (s *GameServer) handleResume(ctx context.Context, c *client, req *network.Request) (interface{}, error) {
	if req.PlayerID == "" || req.RoomCode == "" {
		return nil, errNotInGame
	}
	s.detach(c)
	switch session.Role(req.Role) {
	case session.RoleDJ:
		dj := s.svc.DJ(req.PlayerID)
		if err := dj.Attach(ctx, req.RoomCode); err != nil {
			return nil, err
		}
		c.dj, c.player = dj, nil
		c.sess.Bind(session.RoleDJ, req.PlayerID, dj.RoomCode())
		return map[string]string{"roomCode": dj.RoomCode(), "playerId": req.PlayerID}, s.attach(c, dj.RoomCode())
	default:
		p := s.svc.Player(req.PlayerID)
		if err := p.Attach(ctx, req.RoomCode); err != nil {
			return nil, err
		}
		c.player, c.dj = p, nil
		c.sess.Bind(session.RolePlayer, req.PlayerID, p.RoomCode())
		return map[string]string{"roomCode": p.RoomCode(), "playerId": req.PlayerID}, s.attach(c, p.RoomCode())
	}
}

func (s *GameServer) handleLeave(ctx context.Context, c *client) error {
	var err error
	switch {
	case c.dj != nil:
		s.cancelAdvance(c)
		err = c.dj.Leave(ctx)
	case c.player != nil:
		err = c.player.Leave(ctx)
	default:
		return errNotInGame
	}
	if err != nil {
		return err
	}
	s.detach(c)
	c.dj, c.player = nil, nil
	c.sess.Bind("", "", "")
	return nil
}

// handlePlayRound reveals now and advances after the reveal delay. The
// advance outcome arrives through the next state push.
func (s *GameServer) handlePlayRound(ctx context.Context, c *client, force bool) (interface{}, error) {
	results, err := c.dj.Reveal(ctx, force)
	if err != nil {
		return nil, err
	}
	s.cancelAdvance(c)
	dj := c.dj
	id := dj.ScheduleAdvance(context.Background(), func(res *game.AdvanceResult, err error) {
		if err != nil && !errors.Is(err, game.ErrNoMoreSongs) {
			logger.Log.Warnf("Scheduled advance in %s failed: %v", dj.RoomCode(), err)
			return
		}
		logger.Log.Debugf("Scheduled advance in %s: %s", dj.RoomCode(), res)
	})
	c.mu.Lock()
	c.advanceID = id
	c.mu.Unlock()
	return results, nil
}

func (s *GameServer) cancelAdvance(c *client) {
	c.mu.Lock()
	id := c.advanceID
	c.advanceID = 0
	c.mu.Unlock()
	if id != 0 && c.dj != nil {
		c.dj.CancelAdvance(id)
	}
}

// attach subscribes the connection to code and, for players, starts the
// lastSeen heartbeat.
func (s *GameServer) attach(c *client, code string) error {
	r, err := s.roomManager.Attach(code, c.sess)
	if err != nil {
		return err
	}
	if doc := r.State(); doc != nil {
		if err := broadcast.PushState(c.sess, code, doc, nil); err != nil {
			logger.Log.Debugf("Initial push to %s failed: %v", c.sess.GetID(), err)
		}
	}

	c.mu.Lock()
	c.attachedTo = code
	if c.player != nil {
		ctx, cancel := context.WithCancel(context.Background())
		c.stopBeat = cancel
		hb := &session.Heartbeat{
			Store:    s.store,
			RoomCode: code,
			PlayerID: c.player.ID(),
			Interval: s.heartbeat,
		}
		go func() {
			if err := hb.Run(ctx); errors.Is(err, session.ErrSessionGone) {
				logger.Log.Debugf("Heartbeat for %s stopped: game %s is gone", hb.PlayerID, code)
			}
		}()
	}
	c.mu.Unlock()

	s.monitor.SetActiveGames(s.roomManager.Count())
	return nil
}

func (s *GameServer) detach(c *client) {
	c.mu.Lock()
	code := c.attachedTo
	c.attachedTo = ""
	if c.stopBeat != nil {
		c.stopBeat()
		c.stopBeat = nil
	}
	c.mu.Unlock()
	if code == "" {
		return
	}
	s.roomManager.Detach(code, c.sess.GetID())
	s.monitor.SetActiveGames(s.roomManager.Count())
}

// Snapshot returns the current document for code, for tests and tools.
func (s *GameServer) Snapshot(ctx context.Context, code string) (*models.GameSession, error) {
	return s.store.Get(ctx, code)
}
