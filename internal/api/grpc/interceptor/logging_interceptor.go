package interceptor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"equipment-rental-backend/internal/logger"
)

const requestIDKey = "x-request-id"

// RequestLogging returns a unary interceptor that tags the context with a
// request id and logs each call with its status code.
func RequestLogging() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		id := requestID(ctx)
		ctx = logger.WithRequestID(ctx, id)
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDKey, id))

		start := time.Now()
		resp, err := handler(ctx, req)

		args := []any{
			"grpc_method", info.FullMethod,
			"code", status.Code(err).String(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if err != nil {
			logger.WarnContext(ctx, "gRPC call failed", append(args, "error", err)...)
		} else {
			logger.DebugContext(ctx, "gRPC call", args...)
		}
		return resp, err
	}
}

// requestID reuses a well-formed id from incoming metadata or mints one.
func requestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(requestIDKey); len(ids) > 0 {
			if _, err := uuid.Parse(ids[0]); err == nil {
				return ids[0]
			}
		}
	}
	return uuid.NewString()
}
