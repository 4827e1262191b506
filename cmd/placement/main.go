package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/devrev/pairdb/placement/internal/algorithm"
	"github.com/devrev/pairdb/placement/internal/config"
	"github.com/devrev/pairdb/placement/internal/health"
	"github.com/devrev/pairdb/placement/internal/metrics"
	"github.com/devrev/pairdb/placement/internal/rpc"
	"github.com/devrev/pairdb/placement/internal/server"
	"github.com/devrev/pairdb/placement/internal/service"
	"github.com/devrev/pairdb/placement/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const healthCheckInterval = 5 * time.Second

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting PairDB Placement Service",
		zap.String("membership_source", cfg.Membership.Source),
		zap.Int("replicas", cfg.HashRing.Replicas),
		zap.String("hash_function", cfg.HashRing.HashFunction),
		zap.Int("port", cfg.Server.Port),
		zap.Int("grpc_port", cfg.Server.GRPCPort))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Placement service failed", zap.Error(err))
	}
	logger.Info("Placement service stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	membership, initialNodes, err := newMembershipStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer membership.Close()
	logger.Info("Membership store initialized", zap.String("source", cfg.Membership.Source))

	hash, err := algorithm.HashFuncByName(cfg.HashRing.HashFunction)
	if err != nil {
		return err
	}
	ring, err := algorithm.NewHashRing(algorithm.Options{
		Nodes:    initialNodes,
		Replicas: cfg.HashRing.Replicas,
		Hash:     hash,
	})
	if err != nil {
		return fmt.Errorf("failed to create hash ring: %w", err)
	}

	// Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(registry)

	placementService := service.NewPlacementService(membership, ring, m, cfg.Membership.RefreshInterval, logger)
	healthChecker := health.NewHealthChecker(membership, placementService, logger)
	httpServer := server.NewServer(cfg, placementService, healthChecker, registry, logger)

	var grpcHealth *rpc.HealthServer
	var grpcListener net.Listener
	if cfg.Server.GRPCPort > 0 {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCPort)
		grpcListener, err = net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to create gRPC listener on %s: %w", addr, err)
		}
		grpcHealth = rpc.NewHealthServer(healthChecker, healthCheckInterval, logger)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return placementService.Run(gctx)
	})
	g.Go(httpServer.Start)
	if grpcHealth != nil {
		g.Go(func() error {
			return grpcHealth.Serve(grpcListener)
		})
		g.Go(func() error {
			return grpcHealth.Watch(gctx)
		})
	}

	// Graceful shutdown once a signal arrives or any component fails
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if grpcHealth != nil {
			grpcHealth.Stop(shutdownCtx)
		}
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newMembershipStore opens the configured membership source. Configured
// hash ring nodes seed the static store and the initial ring.
func newMembershipStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.MembershipStore, []string, error) {
	switch cfg.Membership.Source {
	case config.MembershipPostgres:
		s, err := store.NewPostgresMembershipStore(
			ctx,
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.Database,
			cfg.Database.User,
			cfg.Database.Password,
			cfg.Database.MaxConnections,
			cfg.Database.MinConnections,
			logger,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize postgres membership store: %w", err)
		}
		return s, nil, nil

	case config.MembershipRedis:
		s, err := store.NewRedisMembershipStore(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.Key,
			logger,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis membership store: %w", err)
		}
		return s, nil, nil

	default:
		if len(cfg.HashRing.Nodes) == 0 {
			logger.Warn("Static membership configured without nodes; ring starts empty")
		}
		return store.NewStaticMembershipStore(cfg.HashRing.Nodes), cfg.HashRing.Nodes, nil
	}
}

func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zapConfig = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zapConfig.Level = level

	return zapConfig.Build()
}
