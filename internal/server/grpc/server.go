package grpc

import (
	"context"
	"encoding/json"
	"net"

	"github.com/dmitrijs2005/qborelay/internal/logging"
	pb "github.com/dmitrijs2005/qborelay/internal/proto"
	"github.com/dmitrijs2005/qborelay/internal/server/auth"
	"github.com/dmitrijs2005/qborelay/internal/server/services"
	"google.golang.org/grpc"
)

// Connector is the part of services.ConnectService the tools use.
type Connector interface {
	ConnectURL(userID string) (string, error)
	ListCompanies(ctx context.Context, userID string) ([]services.CompanyInfo, error)
}

// Querier is implemented by services.QueryService.
type Querier interface {
	QueryCompany(ctx context.Context, userID, realmID, sql string) (json.RawMessage, error)
	QueryAllCompanies(ctx context.Context, userID, sql string, limitPerCompany int) (*services.FanOutResult, error)
}

// Exporter is implemented by services.ExportService.
type Exporter interface {
	ExportAllCompanies(ctx context.Context, userID, sql string, limitPerCompany int) (*services.ExportResult, error)
}

type GRPCServer struct {
	pb.UnimplementedToolServiceServer
	address  string
	verifier auth.Verifier
	connect  Connector
	query    Querier
	export   Exporter
	logger   logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, v auth.Verifier, cs Connector, qs Querier, es Exporter) *GRPCServer {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		verifier: v,
		connect:  cs,
		query:    qs,
		export:   es,
	}
}

// NewServer builds the grpc.Server with the identity interceptor and the
// tool service registered.
func (s *GRPCServer) NewServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.identityInterceptor))
	pb.RegisterToolServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
