// Command apiserver serves the toolkit over HTTP and exposes the gRPC
// health service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	appMol "github.com/ClairePA/ChemistryToolkit/internal/application/molecule"
	"github.com/ClairePA/ChemistryToolkit/internal/bootstrap"
	"github.com/ClairePA/ChemistryToolkit/internal/config"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/logging"
	grpcserver "github.com/ClairePA/ChemistryToolkit/internal/interfaces/grpc"
	httpserver "github.com/ClairePA/ChemistryToolkit/internal/interfaces/http"
	"github.com/ClairePA/ChemistryToolkit/internal/interfaces/http/handlers"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
)

const healthCheckInterval = 15 * time.Second

func main() {
	configPath := flag.String("config", "", "path to configuration file (env only when empty)")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides server.port)")
	grpcPort := flag.Int("grpc-port", 0, "gRPC server port (overrides server.grpc_port)")
	flag.Parse()

	if err := run(*configPath, *httpPort, *grpcPort); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, httpPort, grpcPort int) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if httpPort > 0 {
		cfg.Server.Port = httpPort
	}
	if grpcPort > 0 {
		cfg.Server.GRPCPort = grpcPort
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	logging.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector, metrics, err := bootstrap.Metrics(cfg.Metrics, "apiserver", logger)
	if err != nil {
		return err
	}
	engine, err := bootstrap.Engine(cfg.Toolkit, logger)
	if err != nil {
		return err
	}
	backends, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backends.Close(context.Background())

	svc, err := appMol.NewService(backends.ServiceDeps(engine, "apiserver", metrics, logger))
	if err != nil {
		return err
	}

	logger.Info("starting api server",
		logging.String("version", Version),
		logging.String("commit", GitCommit),
		logging.String(logging.FieldEngine, svc.Engine()),
		logging.String("http_addr", cfg.Server.Addr()),
		logging.Int("grpc_port", cfg.Server.GRPCPort),
	)

	checkers := backends.Checkers()
	httpCheckers := make([]handlers.HealthChecker, 0, len(checkers))
	grpcCheckers := make([]grpcserver.Checker, 0, len(checkers))
	for _, c := range checkers {
		httpCheckers = append(httpCheckers, c)
		grpcCheckers = append(grpcCheckers, c)
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		MoleculeHandler:  handlers.NewMoleculeHandler(svc, logger),
		HealthHandler:    handlers.NewHealthHandler(Version, svc.Engine(), httpCheckers...),
		CORSOrigins:      cfg.Server.CORSOrigins,
		MaxBodySize:      cfg.Server.MaxBodySize,
		Logger:           logger,
		MetricsCollector: collector,
		Metrics:          metrics,
		MetricsPath:      cfg.Metrics.Path,
	})
	httpSrv := httpserver.NewServer(cfg.Server, router, logger)
	grpcSrv := grpcserver.NewServer(
		grpcserver.WithLogger(logger),
		grpcserver.WithGracefulTimeout(cfg.Server.ShutdownTimeout),
	)

	httpLis, err := net.Listen("tcp", cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("http listener: %w", err)
	}
	grpcLis, err := net.Listen("tcp", net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.GRPCPort)))
	if err != nil {
		httpLis.Close()
		return fmt.Errorf("grpc listener: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpSrv.Serve(httpLis) })
	g.Go(func() error { return grpcSrv.Serve(grpcLis) })
	g.Go(func() error {
		grpcSrv.WatchHealth(gctx, healthCheckInterval, grpcCheckers...)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down servers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		grpcSrv.Stop(shutdownCtx)
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("servers stopped")
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}
