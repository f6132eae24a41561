package rpc

import (
	"errors"
	"net"

	"google.golang.org/grpc"

	"github.com/wfunc/gombiful/logger"
)

// Server manages the admin gRPC listener.
type Server struct {
	listener net.Listener
	address  string
	grpc     *grpc.Server
}

// NewServer listens on addr and registers the admin service.
func NewServer(addr string, admin AdminServer) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return newServer(listener, admin), nil
}

func newServer(listener net.Listener, admin AdminServer) *Server {
	gs := grpc.NewServer(grpc.UnaryInterceptor(logUnary))
	RegisterAdminServer(gs, admin)
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		grpc:     gs,
	}
}

// Start serves until Stop is called.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	if err := s.grpc.Serve(s.listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		logger.Log.Errorf("RPC server error: %v", err)
		return
	}
	logger.Log.Info("RPC server listener closed.")
}

// Stop drains in-flight calls and closes the listener.
func (s *Server) Stop() {
	if s.grpc != nil {
		logger.Log.Info("Stopping RPC server.")
		s.grpc.GracefulStop()
	}
}

func (s *Server) Addr() string { return s.address }
