package server

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	health "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const defaultPort = 50051

type Option func(*options)

type options struct {
	port       int
	listener   net.Listener
	logger     *zap.Logger
	reflection bool
	logging    bool
}

// WithPort sets the TCP port. Port 0 asks the kernel for a free port.
func WithPort(port int) Option {
	return func(o *options) { o.port = port }
}

// WithListener serves on lis instead of opening a TCP port. Useful with bufconn.
func WithListener(lis net.Listener) Option {
	return func(o *options) { o.listener = lis }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithReflection(enabled bool) Option {
	return func(o *options) { o.reflection = enabled }
}

// WithLogging adds LoggingInterceptor after recovery.
func WithLogging(enabled bool) Option {
	return func(o *options) { o.logging = enabled }
}

// Server wraps a grpc.Server with a health service that tracks registered services.
type Server struct {
	grpcServer   *grpc.Server
	lis          net.Listener
	logger       *zap.Logger
	healthServer *health.Server
}

// New builds a server. Handler panics are always recovered; request logging is opt-in.
func New(opts ...Option) (*Server, error) {
	o := options{port: defaultPort}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	lis, err := o.listen()
	if err != nil {
		return nil, err
	}

	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(o.interceptors()...))
	if o.reflection {
		reflection.Register(grpcServer)
	}

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	return &Server{
		grpcServer:   grpcServer,
		lis:          lis,
		logger:       o.logger.Named("grpc-server"),
		healthServer: healthServer,
	}, nil
}

func (o options) listen() (net.Listener, error) {
	if o.listener != nil {
		return o.listener, nil
	}
	if o.port < 0 || o.port > 65535 {
		return nil, fmt.Errorf("invalid port %d: must be between 0 and 65535", o.port)
	}
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", o.port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %d: %w", o.port, err)
	}
	return lis, nil
}

func (o options) interceptors() []grpc.UnaryServerInterceptor {
	chain := []grpc.UnaryServerInterceptor{RecoveryInterceptor(o.logger)}
	if o.logging {
		chain = append(chain, LoggingInterceptor(o.logger))
	}
	return chain
}

// RegisterServiceWithHealth registers a service and marks it SERVING.
func (s *Server) RegisterServiceWithHealth(serviceName string, register func(s *grpc.Server)) {
	register(s.grpcServer)
	if serviceName == "" {
		return
	}
	s.healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	s.logger.Info("registered service with health check", zap.String("service", serviceName))
}

// SetServiceHealth updates the health status of a specific service.
func (s *Server) SetServiceHealth(serviceName string, status healthpb.HealthCheckResponse_ServingStatus) {
	s.healthServer.SetServingStatus(serviceName, status)
	s.logger.Info("updated service health",
		zap.String("service", serviceName),
		zap.String("status", status.String()))
}

// Start serves in a goroutine and returns immediately.
func (s *Server) Start() {
	s.logger.Info("gRPC server starting", zap.String("addr", s.lis.Addr().String()))

	go func() {
		if err := s.grpcServer.Serve(s.lis); err != nil {
			s.logger.Error("gRPC server failed", zap.Error(err))
		}
	}()
}

// Shutdown marks every service NOT_SERVING, then drains in-flight RPCs,
// forcing a stop when ctx expires first.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("gRPC server shutting down")
	s.healthServer.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("gRPC server stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("forced shutdown due to timeout")
		s.grpcServer.Stop()
		return ctx.Err()
	}
}

// Addr returns the server's listening address.
func (s *Server) Addr() net.Addr {
	return s.lis.Addr()
}
