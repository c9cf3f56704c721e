// Package grpc runs the gRPC listener of the API server.  It carries the
// standard grpc.health.v1 service, whose status follows the backing services.
package grpc

import (
	"context"
	"fmt"
	"net"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/logging"
)

// ServiceName is the health service name reported for the toolkit.
const ServiceName = "ctk.v1.Toolkit"

const defaultGracefulTimeout = 10 * time.Second

var defaultKeepaliveParams = keepalive.ServerParameters{
	MaxConnectionIdle:     15 * time.Minute,
	MaxConnectionAgeGrace: 5 * time.Second,
	Time:                  5 * time.Minute,
	Timeout:               time.Second,
}

var defaultKeepalivePolicy = keepalive.EnforcementPolicy{
	MinTime:             5 * time.Second,
	PermitWithoutStream: true,
}

// Checker checks one backing service.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

type Option func(*serverOptions)

type serverOptions struct {
	logger          logging.Logger
	gracefulTimeout time.Duration
	reflection      bool
}

func WithLogger(l logging.Logger) Option {
	return func(o *serverOptions) { o.logger = l }
}

func WithGracefulTimeout(d time.Duration) Option {
	return func(o *serverOptions) {
		if d > 0 {
			o.gracefulTimeout = d
		}
	}
}

// WithReflection registers the reflection service, for grpcurl.
func WithReflection() Option {
	return func(o *serverOptions) { o.reflection = true }
}

type Server struct {
	grpcServer   *grpc.Server
	healthServer *health.Server
	opts         serverOptions

	mu       sync.Mutex
	listener net.Listener
}

func NewServer(opts ...Option) *Server {
	sopts := serverOptions{gracefulTimeout: defaultGracefulTimeout}
	for _, o := range opts {
		o(&sopts)
	}
	if sopts.logger == nil {
		sopts.logger = logging.NewNopLogger()
	}
	sopts.logger = sopts.logger.Named("grpc")

	gs := grpc.NewServer(
		grpc.KeepaliveParams(defaultKeepaliveParams),
		grpc.KeepaliveEnforcementPolicy(defaultKeepalivePolicy),
		grpc.ChainUnaryInterceptor(
			recoveryUnaryInterceptor(sopts.logger),
			loggingUnaryInterceptor(sopts.logger),
		),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	if sopts.reflection {
		reflection.Register(gs)
	}
	return &Server{grpcServer: gs, healthServer: hs, opts: sopts}
}

// Serve blocks serving l until Stop.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.listener != nil {
		s.mu.Unlock()
		return fmt.Errorf("grpc server already started")
	}
	s.listener = l
	s.mu.Unlock()

	s.opts.logger.Info("grpc server listening", logging.String("addr", l.Addr().String()))
	if err := s.grpcServer.Serve(l); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}

// WatchHealth runs the checkers every interval until ctx ends and flips the
// toolkit service between SERVING and NOT_SERVING.
func (s *Server) WatchHealth(ctx context.Context, interval time.Duration, checkers ...Checker) {
	if len(checkers) == 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		s.checkAll(ctx, checkers)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) checkAll(ctx context.Context, checkers []Checker) {
	st := healthpb.HealthCheckResponse_SERVING
	for _, c := range checkers {
		cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := c.Check(cctx)
		cancel()
		if err != nil {
			s.opts.logger.Warn("backend unhealthy", logging.String("component", c.Name()), logging.Err(err))
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.healthServer.SetServingStatus(ServiceName, st)
}

// Stop marks every service NOT_SERVING and drains in-flight calls, forcing
// the stop once ctx or the graceful timeout expires.
func (s *Server) Stop(ctx context.Context) {
	s.healthServer.Shutdown()

	ctx, cancel := context.WithTimeout(ctx, s.opts.gracefulTimeout)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
		s.opts.logger.Info("grpc server stopped")
	case <-ctx.Done():
		s.opts.logger.Warn("grpc graceful stop timed out, forcing stop")
		s.grpcServer.Stop()
	}
}

func (s *Server) GRPCServer() *grpc.Server { return s.grpcServer }

func recoveryUnaryInterceptor(logger logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("grpc panic recovered",
					logging.String("method", info.FullMethod),
					logging.String("panic", fmt.Sprintf("%v", r)),
					logging.String("stack", string(debug.Stack())),
				)
				err = status.Errorf(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

func loggingUnaryInterceptor(logger logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if strings.HasPrefix(info.FullMethod, "/grpc.health.v1.Health/") {
			return handler(ctx, req)
		}
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("grpc request",
			logging.String("method", info.FullMethod),
			logging.Duration("duration", time.Since(start)),
			logging.String("code", status.Code(err).String()),
		)
		return resp, err
	}
}
