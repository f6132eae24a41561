// rpc/client.go
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/wfunc/gombiful/models"
)

// AdminClient calls the admin service over a gRPC connection.
type AdminClient struct {
	cc *grpc.ClientConn
}

// Dial connects to an admin server; extra options are appended to the
// insecure transport default.
func Dial(addr string, opts ...grpc.DialOption) (*AdminClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	cc, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	return &AdminClient{cc: cc}, nil
}

func (c *AdminClient) invoke(ctx context.Context, method string, in, out interface{}) error {
	return c.cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, grpc.CallContentSubtype(CodecName))
}

func (c *AdminClient) GetSession(ctx context.Context, code string) (*GetSessionReply, error) {
	out := new(GetSessionReply)
	if err := c.invoke(ctx, "GetSession", &GetSessionRequest{RoomCode: code}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AdminClient) EndSession(ctx context.Context, code string) error {
	return c.invoke(ctx, "EndSession", &EndSessionRequest{RoomCode: code}, new(EndSessionReply))
}

func (c *AdminClient) ListResults(ctx context.Context, limit int) ([]models.GormGameRecord, error) {
	out := new(ListResultsReply)
	if err := c.invoke(ctx, "ListResults", &ListResultsRequest{Limit: limit}, out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (c *AdminClient) Close() error { return c.cc.Close() }
