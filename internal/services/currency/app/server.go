// Package server wires the currency runtime and gRPC lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"path/filepath"
	"strings"
	"time"

	"github.com/ithrek/syncadapter-currencies/internal/platform/config"
	currencyservice "github.com/ithrek/syncadapter-currencies/internal/services/currency/api/grpc/currency"
	currencysqlite "github.com/ithrek/syncadapter-currencies/internal/services/currency/storage/sqlite"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

type serverEnv struct {
	DBPath         string        `env:"CURRENCIES_DB_PATH"`
	HealthInterval time.Duration `env:"CURRENCIES_HEALTH_INTERVAL" envDefault:"30s"`
}

func loadServerEnv() serverEnv {
	var cfg serverEnv
	if err := config.ParseEnv(&cfg); err != nil {
		log.Printf("parse currency server env: %v", err)
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "currencies.db")
	}
	return cfg
}

// Server hosts the currency gRPC API and storage lifecycle.
type Server struct {
	listener       net.Listener
	grpcServer     *grpc.Server
	health         *health.Server
	store          *currencysqlite.Store
	healthInterval time.Duration
}

// New creates a configured currency server listening on the provided port.
func New(port int) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port))
}

// NewWithAddr creates a configured currency server for the provided address.
func NewWithAddr(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	env := loadServerEnv()
	store, err := currencysqlite.Open(env.DBPath)
	if err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("open currency sqlite store: %w", err)
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(LoggingUnaryInterceptor(log.Printf)),
		grpc.ChainStreamInterceptor(LoggingStreamInterceptor(log.Printf)),
	)
	healthServer := health.NewServer()
	currencyservice.RegisterCurrencyServiceServer(grpcServer, currencyservice.NewService(store))
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	setServingStatus(healthServer, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		listener:       listener,
		grpcServer:     grpcServer,
		health:         healthServer,
		store:          store,
		healthInterval: env.HealthInterval,
	}, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a currency server until context cancellation.
func Run(ctx context.Context, port int) error {
	server, err := New(port)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the gRPC server until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go s.watchStore(watchCtx)

	log.Printf("currency server listening at %v (db %s)", s.listener.Addr(), s.store.Path())
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

// Close releases currency server resources.
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
			log.Printf("close currency store: %v", err)
		}
	}
}

// watchStore pings the store every healthInterval and mirrors the result
// into the health server.
func (s *Server) watchStore(ctx context.Context) {
	if s.healthInterval <= 0 || s.store == nil || s.health == nil {
		return
	}
	ticker := time.NewTicker(s.healthInterval)
	defer ticker.Stop()

	serving := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		err := s.store.Ping(ctx)
		if ctx.Err() != nil {
			return
		}
		switch {
		case err != nil && serving:
			log.Printf("currency store unhealthy: %v", err)
			setServingStatus(s.health, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
			serving = false
		case err == nil && !serving:
			log.Printf("currency store healthy again")
			setServingStatus(s.health, grpc_health_v1.HealthCheckResponse_SERVING)
			serving = true
		}
	}
}

func setServingStatus(healthServer *health.Server, status grpc_health_v1.HealthCheckResponse_ServingStatus) {
	healthServer.SetServingStatus("", status)
	healthServer.SetServingStatus(currencyservice.ServiceName, status)
}
