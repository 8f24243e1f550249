// Package app wires the match runtime and gRPC lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/gammonhq/gammon.space/internal/services/match/broadcast"
	matchservice "github.com/gammonhq/gammon.space/internal/services/match/service"
	matchsqlite "github.com/gammonhq/gammon.space/internal/services/match/storage/sqlite"
	"github.com/gammonhq/gammon.space/internal/services/match/telemetry"
	"github.com/gammonhq/gammon.space/internal/services/match/worker"
)

// RuntimeConfig controls match runtime startup and dependencies.
type RuntimeConfig struct {
	Port                int
	DBPath              string
	AIQueueSize         int
	InitialClockSeconds int64
}

const (
	defaultMatchPort = 8090
	defaultMatchDB   = "data/match.db"
)

// Server hosts the match service, its AI worker, and the health gRPC surface.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	store      *matchsqlite.Store
	service    *matchservice.Service
	worker     *worker.Worker
}

// New creates a configured match server listening on the provided port.
func New(cfg RuntimeConfig) (*Server, error) {
	if cfg.Port <= 0 {
		cfg.Port = defaultMatchPort
	}
	return NewWithAddr(fmt.Sprintf(":%d", cfg.Port), cfg)
}

// NewWithAddr creates a configured match server for the provided address.
func NewWithAddr(addr string, cfg RuntimeConfig) (*Server, error) {
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultMatchDB
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	store, err := openMatchStore(cfg.DBPath)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	service := matchservice.New(store, broadcast.LogBroadcaster{}, telemetry.NewEmitter(store)).
		WithInitialClock(cfg.InitialClockSeconds)
	aiWorker := worker.New(service, cfg.AIQueueSize)
	service.SetAITrigger(aiWorker.Trigger)

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("match", grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
		store:      store,
		service:    service,
		worker:     aiWorker,
	}, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Service exposes the match orchestrator for in-process callers.
func (s *Server) Service() *matchservice.Service {
	if s == nil {
		return nil
	}
	return s.service
}

// Run creates and serves a match server until context cancellation.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	server, err := New(cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the AI worker and gRPC server until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	go s.worker.Run(workerCtx)

	log.Printf("match server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		if s.health != nil {
			s.health.Shutdown()
		}
		s.grpcServer.GracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
}

// Close releases match server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close match store: %v", err)
		}
	}
}

func openMatchStore(path string) (*matchsqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := matchsqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open match sqlite store: %w", err)
	}
	return store, nil
}
