package rpc

import (
	"context"
	"time"

	"google.golang.org/grpc"

	"github.com/wfunc/gombiful/logger"
)

func logUnary(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		logger.Log.Warnw("admin call failed", "method", info.FullMethod, "error", err, "elapsed", time.Since(start))
	} else {
		logger.Log.Debugw("admin call", "method", info.FullMethod, "elapsed", time.Since(start))
	}
	return resp, err
}
