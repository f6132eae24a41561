// rpc/admin.go
package rpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/wfunc/gombiful/game"
	"github.com/wfunc/gombiful/models"
	"github.com/wfunc/gombiful/services"
	"github.com/wfunc/gombiful/store"
)

const serviceName = "gombiful.Admin"

type GetSessionRequest struct {
	RoomCode string `json:"roomCode"`
}

type GetSessionReply struct {
	Session        *models.GameSession `json:"session"`
	RemainingSongs int                 `json:"remainingSongs"`
	Standings      []models.Standing   `json:"standings"`
}

type EndSessionRequest struct {
	RoomCode string `json:"roomCode"`
}

type EndSessionReply struct {
	Ended bool `json:"ended"`
}

type ListResultsRequest struct {
	Limit int `json:"limit"`
}

type ListResultsReply struct {
	Results []models.GormGameRecord `json:"results"`
}

// AdminServer is the operator-facing side of the game service.
type AdminServer interface {
	GetSession(context.Context, *GetSessionRequest) (*GetSessionReply, error)
	EndSession(context.Context, *EndSessionRequest) (*EndSessionReply, error)
	ListResults(context.Context, *ListResultsRequest) (*ListResultsReply, error)
}

// AdminService implements AdminServer on top of the game and results services.
type AdminService struct {
	games   *game.Service
	results *services.ResultsService
}

func NewAdminService(games *game.Service, results *services.ResultsService) *AdminService {
	return &AdminService{games: games, results: results}
}

func (a *AdminService) GetSession(ctx context.Context, req *GetSessionRequest) (*GetSessionReply, error) {
	doc, err := a.games.Store().Get(ctx, req.RoomCode)
	if err != nil {
		return nil, toStatus(err)
	}
	return &GetSessionReply{
		Session:        doc,
		RemainingSongs: len(doc.AvailableSongs),
		Standings:      doc.Standings(),
	}, nil
}

func (a *AdminService) EndSession(ctx context.Context, req *EndSessionRequest) (*EndSessionReply, error) {
	if err := a.games.Terminate(ctx, req.RoomCode); err != nil {
		return nil, toStatus(err)
	}
	return &EndSessionReply{Ended: true}, nil
}

func (a *AdminService) ListResults(ctx context.Context, req *ListResultsRequest) (*ListResultsReply, error) {
	if a.results == nil {
		return nil, status.Error(codes.Unimplemented, "no results archive configured")
	}
	recs, err := a.results.Recent(ctx, req.Limit)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListResultsReply{Results: recs}, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	}
	switch game.KindOf(err) {
	case game.KindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case game.KindPrecondition:
		return status.Error(codes.FailedPrecondition, err.Error())
	case game.KindTransport:
		return status.Error(codes.Unavailable, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

func RegisterAdminServer(s grpc.ServiceRegistrar, srv AdminServer) {
	s.RegisterService(&adminServiceDesc, srv)
}

func unary[Req any](call func(AdminServer, context.Context, *Req) (interface{}, error), method string) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AdminServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + method}
			return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(AdminServer), ctx, req.(*Req))
			})
		},
	}
}

var adminServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*AdminServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(func(s AdminServer, ctx context.Context, r *GetSessionRequest) (interface{}, error) {
			return s.GetSession(ctx, r)
		}, "GetSession"),
		unary(func(s AdminServer, ctx context.Context, r *EndSessionRequest) (interface{}, error) {
			return s.EndSession(ctx, r)
		}, "EndSession"),
		unary(func(s AdminServer, ctx context.Context, r *ListResultsRequest) (interface{}, error) {
			return s.ListResults(ctx, r)
		}, "ListResults"),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gombiful/admin",
}
