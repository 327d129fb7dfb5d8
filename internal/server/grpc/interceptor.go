package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/qborelay/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const userIDKey ctxKey = "userID"

// userIDFromContext returns the identity set by identityInterceptor.
func userIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// identityInterceptor resolves the caller from the authorization metadata
// and stores the user id in the context.
func (s *GRPCServer) identityInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	var authorization string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.AuthorizationHeaderName)
		if len(values) > 0 {
			authorization = values[0]
		}
	}

	userID, err := s.verifier.Verify(ctx, authorization)
	if err != nil {
		s.logger.Warn(ctx, "caller rejected", "method", info.FullMethod, "error", err)
		if errors.Is(err, common.ErrRemoteTransport) {
			return nil, status.Error(codes.Unavailable, "identity provider unavailable")
		}
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}

	ctx = context.WithValue(ctx, userIDKey, userID)

	return handler(ctx, req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Info(ctx, "tool call", "method", info.FullMethod, "code", status.Code(err).String(), "duration", time.Since(start))
	return resp, err
}
