package client

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/qborelay/internal/common"
	pb "github.com/dmitrijs2005/qborelay/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Tools is the tool surface as seen by the CLI.
type Tools interface {
	ConnectCompany(ctx context.Context) (*structpb.Struct, error)
	ListCompanies(ctx context.Context) (*structpb.Struct, error)
	QueryCompany(ctx context.Context, realmID, sql string) (*structpb.Struct, error)
	QueryAll(ctx context.Context, sql string, limitPerCompany int) (*structpb.Struct, error)
	ExportAll(ctx context.Context, sql string, limitPerCompany int) (*structpb.Struct, error)
	Close() error
}

type GRPCClient struct {
	endpointURL string
	token       string
	conn        *grpc.ClientConn
	client      pb.ToolServiceClient
}

func withBearer(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, common.AuthorizationHeaderName, "Bearer "+token)
}

func (s *GRPCClient) bearerInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if s.token != "" {
		ctx = withBearer(ctx, s.token)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewToolClient connects to the relay at endpointURL. An empty token sends
// no authorization metadata, which a single-user server accepts.
func NewToolClient(endpointURL, token string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, token: token}
	if err := c.initGRPCClient(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) initGRPCClient(opts ...grpc.DialOption) error {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.bearerInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = pb.NewToolServiceClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) ConnectCompany(ctx context.Context) (*structpb.Struct, error) {
	res, err := s.client.ConnectCompany(ctx, &structpb.Struct{})
	return res, s.mapError(err)
}

func (s *GRPCClient) ListCompanies(ctx context.Context) (*structpb.Struct, error) {
	res, err := s.client.ListCompanies(ctx, &structpb.Struct{})
	return res, s.mapError(err)
}

func (s *GRPCClient) QueryCompany(ctx context.Context, realmID, sql string) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{"realm_id": realmID, "sql": sql})
	if err != nil {
		return nil, err
	}
	res, err := s.client.QueryCompany(ctx, in)
	return res, s.mapError(err)
}

func (s *GRPCClient) QueryAll(ctx context.Context, sql string, limitPerCompany int) (*structpb.Struct, error) {
	res, err := s.client.QueryAll(ctx, fanOutArgs(sql, limitPerCompany))
	return res, s.mapError(err)
}

func (s *GRPCClient) ExportAll(ctx context.Context, sql string, limitPerCompany int) (*structpb.Struct, error) {
	res, err := s.client.ExportAll(ctx, fanOutArgs(sql, limitPerCompany))
	return res, s.mapError(err)
}

// fanOutArgs leaves limit_per_company out when it is not positive so the
// server default applies.
func fanOutArgs(sql string, limitPerCompany int) *structpb.Struct {
	fields := map[string]*structpb.Value{"sql": structpb.NewStringValue(sql)}
	if limitPerCompany > 0 {
		fields["limit_per_company"] = structpb.NewNumberValue(float64(limitPerCompany))
	}
	return &structpb.Struct{Fields: fields}
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrRemoteRejected, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", ErrNotConnected, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidArgument, st.Message())
	case codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", ErrPrecondition, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
