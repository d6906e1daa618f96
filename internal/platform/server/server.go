package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/ogurasousui/feedback-survey/internal/adapters/grpc/handler"
)

// Services はサーバーに登録する gRPC サービスの実装です。nil のサービスは登録しません。
type Services struct {
	Survey handler.SurveyServiceServer
	Admin  handler.AdminServiceServer
}

// Server は gRPC サーバーのライフサイクルを管理します。
type Server struct {
	listenAddr string
	grpcServer *grpc.Server
	health     *health.Server
	logger     *slog.Logger
}

// New は指定されたアドレスで待ち受ける gRPC サーバーを構築します。
func New(listenAddr string, services Services, logger *slog.Logger, opts ...grpc.ServerOption) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(UnaryLogger(logger))}, opts...)
	srv := grpc.NewServer(opts...)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	if services.Survey != nil {
		handler.RegisterSurveyServiceServer(srv, services.Survey)
		hs.SetServingStatus(handler.SurveyServiceName, healthpb.HealthCheckResponse_SERVING)
	}
	if services.Admin != nil {
		handler.RegisterAdminServiceServer(srv, services.Admin)
		hs.SetServingStatus(handler.AdminServiceName, healthpb.HealthCheckResponse_SERVING)
	}

	return &Server{
		listenAddr: listenAddr,
		grpcServer: srv,
		health:     hs,
		logger:     logger,
	}
}

// Run はサーバーを起動し、コンテキストがキャンセルされると GracefulStop します。
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.listenAddr, err)
	}

	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()

	s.logger.Info("gRPC server listening", "addr", lis.Addr().String())
	return s.Serve(lis)
}

// Serve は渡されたリスナーで待ち受けます。
func (s *Server) Serve(lis net.Listener) error {
	if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}
	return nil
}

// GracefulStop はヘルスチェックを NOT_SERVING にしてからサーバーを安全に停止します。
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
