package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/qborelay/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps service errors onto gRPC codes. Unknown errors become
// Internal without leaking their text.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "company is not connected")
	case errors.Is(err, common.ErrDecryption):
		return status.Error(codes.FailedPrecondition, "stored token unavailable, reconnect the company")
	case errors.Is(err, common.ErrExportDisabled):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, common.ErrRemoteAuth):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, common.ErrRemoteTransport):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthenticated")
	case errors.Is(err, common.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	}

	s.logger.Error(ctx, "tool call failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}
