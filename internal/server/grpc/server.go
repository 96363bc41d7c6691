// Package grpc serves valutx.v1.Vault. Messages are the api DTOs encoded
// with the JSON codec only; there is no protobuf encoding, so clients must
// call with grpc.CallContentSubtype("json") (CodecName).
package grpc

import (
	"context"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/dmitrijs2005/valutx/internal/logging"
	"github.com/dmitrijs2005/valutx/internal/server/requestctx"
	"github.com/dmitrijs2005/valutx/internal/server/services"
)

type GRPCServer struct {
	address string
	trusted requestctx.TrustedProxies
	auth    *services.AuthService
	items   *services.ItemService
	audits  *services.AuditLogService
	exports *services.ExportService
	logger  logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, trusted requestctx.TrustedProxies, as *services.AuthService,
	is *services.ItemService, als *services.AuditLogService, es *services.ExportService) *GRPCServer {
	return &GRPCServer{
		address: a,
		trusted: trusted,
		logger:  l.With("module", "grpc_server"),
		auth:    as,
		items:   is,
		audits:  als,
		exports: es,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(s.recoverInterceptor, s.clientInterceptor, s.accessTokenInterceptor),
	)
	RegisterVaultServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
