package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/wfunc/gombiful/broadcast"
	"github.com/wfunc/gombiful/feedback"
	"github.com/wfunc/gombiful/game"
	"github.com/wfunc/gombiful/logger"
	"github.com/wfunc/gombiful/models"
	"github.com/wfunc/gombiful/monitor"
	"github.com/wfunc/gombiful/room"
	gombiful_rpc "github.com/wfunc/gombiful/rpc"
	"github.com/wfunc/gombiful/services"
	"github.com/wfunc/gombiful/session"
	"github.com/wfunc/gombiful/store"
	"github.com/wfunc/gombiful/timer"
)

// Options wire a GameServer. Store and Catalog are required.
type Options struct {
	Addr      string
	RPCAddr   string // empty disables the admin service
	PublicURL string

	Store    store.Store
	Settings game.Settings
	Catalog  []models.Song
	Results  *services.ResultsService
	Monitor  *monitor.Monitor
	Sounds   feedback.Player
	Timers   *timer.Manager

	Heartbeat   time.Duration
	ReadTimeout time.Duration
}

type GameServer struct {
	addr           string
	publicURL      string
	upgrader       websocket.Upgrader
	store          store.Store
	svc            *game.Service
	catalog        []models.Song
	roomManager    *room.Manager
	sessionManager *session.Manager
	broadcaster    *broadcast.RoomBroadcaster
	monitor        *monitor.Monitor
	sounds         feedback.Player
	rpcServer      *gombiful_rpc.Server
	httpServer     *http.Server
	heartbeat      time.Duration
	readTimeout    time.Duration
	mutex          sync.Mutex
	shutdownChan   chan struct{}
	closeOnce      sync.Once
}

func NewGameServer(opts Options) (*GameServer, error) {
	if opts.Store == nil {
		return nil, errors.New("server: store is required")
	}
	if opts.Monitor == nil {
		opts.Monitor = monitor.NewMonitor("gombiful")
	}
	if opts.Sounds == nil {
		opts.Sounds = feedback.Logger{Log: logger.Log}
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = session.DefaultHeartbeatInterval
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 6 * opts.Heartbeat
	}

	st := store.Store(monitor.NewInstrumentedStore(opts.Store, opts.Monitor.Metrics()))

	svcOpts := []game.Option{game.WithSounds(opts.Sounds)}
	if opts.Results != nil {
		svcOpts = append(svcOpts, game.WithRecorder(opts.Results))
	}
	if opts.Timers != nil {
		svcOpts = append(svcOpts, game.WithTimers(opts.Timers))
	}

	s := &GameServer{
		addr:           opts.Addr,
		publicURL:      opts.PublicURL,
		store:          st,
		svc:            game.NewService(st, opts.Settings, svcOpts...),
		catalog:        opts.Catalog,
		sessionManager: session.NewManager(),
		monitor:        opts.Monitor,
		sounds:         opts.Sounds,
		heartbeat:      opts.Heartbeat,
		readTimeout:    opts.ReadTimeout,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	metrics := s.monitor.Metrics()
	s.svc.OnEnter(models.StatusEnded, func(_, _ models.Status, _ *models.GameSession) {
		metrics.GamesEnded.Inc()
	})
	s.svc.OnEnter(models.StatusRevealing, func(_, _ models.Status, _ *models.GameSession) {
		metrics.RoundsRevealed.Inc()
	})

	// 初始化广播器
	s.roomManager = room.NewRoomManager(st, nil)
	s.broadcaster = broadcast.NewRoomBroadcaster(s.roomManager, s.sessionManager)
	s.roomManager.SetBroadcaster(s.broadcaster)

	if opts.RPCAddr != "" {
		rpcServer, err := gombiful_rpc.NewServer(opts.RPCAddr, gombiful_rpc.NewAdminService(s.svc, opts.Results))
		if err != nil {
			return nil, err
		}
		s.rpcServer = rpcServer
	}
	return s, nil
}

// Service exposes the game service, mainly for tests and the admin API.
func (s *GameServer) Service() *game.Service { return s.svc }

// Router builds the HTTP routes.
func (s *GameServer) Router() http.Handler {
	router := httprouter.New()
	router.GET("/ws", s.handleWebSocket)
	router.GET("/healthz", s.handleHealth)
	router.Handler(http.MethodGet, "/metrics", s.monitor.Handler())
	router.GET("/rooms/:code", s.handleRoom)
	router.GET("/rooms/:code/qr", s.handleQR)
	return router
}

func (s *GameServer) Start() error {
	if s.rpcServer != nil {
		go s.rpcServer.Start()
	}

	s.mutex.Lock()
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mutex.Unlock()

	logger.Log.Infof("Game server listening on %s", s.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *GameServer) Shutdown(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		close(s.shutdownChan)
		if s.rpcServer != nil {
			s.rpcServer.Stop()
		}
		s.mutex.Lock()
		srv := s.httpServer
		s.mutex.Unlock()
		if srv != nil {
			err = srv.Shutdown(ctx)
		}
		s.roomManager.CloseAll()
		s.svc.Close()
	})
	return err
}
