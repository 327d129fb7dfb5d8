package grpc

import (
	"context"

	"github.com/dmitrijs2005/qborelay/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func (s *GRPCServer) reply(ctx context.Context, v any) (*structpb.Struct, error) {
	out, err := toStruct(v)
	if err != nil {
		s.logger.Error(ctx, "encode reply", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func (s *GRPCServer) caller(ctx context.Context) (string, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "unauthenticated")
	}
	return userID, nil
}

// ConnectCompany returns a consent URL that binds the next company to the caller.
func (s *GRPCServer) ConnectCompany(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	url, err := s.connect.ConnectURL(userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return s.reply(ctx, map[string]any{"user_id": userID, "connect_url": url})
}

func (s *GRPCServer) ListCompanies(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	companies, err := s.connect.ListCompanies(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return s.reply(ctx, map[string]any{"user_id": userID, "companies": companies})
}

// QueryCompany expects {"realm_id": string, "sql": string}.
func (s *GRPCServer) QueryCompany(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	realmID, err := stringArg(req, "realm_id")
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	sql, err := stringArg(req, "sql")
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	data, err := s.query.QueryCompany(ctx, userID, realmID, sql)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return s.reply(ctx, map[string]any{"realm_id": realmID, "data": data})
}

// QueryAll expects {"sql": string, "limit_per_company"?: number}.
func (s *GRPCServer) QueryAll(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	sql, err := stringArg(req, "sql")
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	limit, err := intArg(req, "limit_per_company", services.DefaultLimitPerCompany)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	res, err := s.query.QueryAllCompanies(ctx, userID, sql, limit)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return s.reply(ctx, res)
}

// ExportAll runs QueryAll and answers with a download link instead of rows.
func (s *GRPCServer) ExportAll(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	sql, err := stringArg(req, "sql")
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	limit, err := intArg(req, "limit_per_company", services.DefaultLimitPerCompany)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	res, err := s.export.ExportAllCompanies(ctx, userID, sql, limit)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return s.reply(ctx, res)
}
