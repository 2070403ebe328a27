package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lifedrop.org/internal/config"
	"lifedrop.org/internal/donors"
	"lifedrop.org/internal/gateway"
	"lifedrop.org/internal/httpapi"
	"lifedrop.org/internal/journal"
	"lifedrop.org/internal/migrate"
	"lifedrop.org/internal/obs"
	"lifedrop.org/internal/registration"
	"lifedrop.org/internal/session"
	"lifedrop.org/internal/stream"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	configPath := flag.String("config", os.Getenv("LIFEDROP_CONFIG"), "path to YAML config")
	flag.Parse()

	if err := run(*configPath); err != nil {
		obs.Logger().Error("lifedropd_failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := obs.NewLogger(os.Stdout, cfg.LogLevel)
	obs.SetLogger(logger)
	obs.Init()
	obs.SetBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, err := openGateway(ctx, cfg.Gateway, logger)
	if err != nil {
		return err
	}
	defer gw.close()

	sessions := session.New(gw,
		session.WithLogger(logger),
		session.WithGatewayTimeout(cfg.Gateway.Timeout),
		session.WithHub(stream.New[session.State](0)),
	)

	roster, err := loadRoster(cfg.Donors.RosterPath)
	if err != nil {
		return err
	}
	logger.Info("donor_roster_loaded", "donors", roster.Len(), "path", cfg.Donors.RosterPath)
	journals := journal.New(roster, journal.WithLogger(logger))

	probe := httpapi.ReadyProbe{Sessions: sessions, Ping: gw.ping}
	api := httpapi.New(httpapi.Options{
		Sessions: sessions,
		Journal:  journals,
		NewFlow: func() *registration.Flow {
			return registration.New(sessions,
				registration.WithSubmitDelay(cfg.Registration.SubmitDelay),
				registration.WithLogger(logger),
			)
		},
		Ready:           probe,
		Version:         version,
		Logger:          logger,
		RateBurst:       cfg.HTTP.RateBurst,
		RatePerSecond:   cfg.HTTP.RatePerSecond,
		MaxBodyBytes:    cfg.HTTP.MaxBodyBytes,
		DefaultRadiusKm: cfg.Donors.RadiusKm,
		DefaultLimit:    cfg.Donors.Limit,
	})

	restored := sessions.RestoreSession(ctx)
	logger.Info("session_restored", "authenticated", restored.IsAuthenticated)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		// SSE responses stay open.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	grpcSrv, health := httpapi.NewGRPCServer(probe)
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc %s: %w", cfg.GRPCAddr, err)
	}
	go health.Monitor(ctx, 10*time.Second)

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http_listening", "addr", cfg.HTTPAddr, "version", version)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()
	go func() {
		logger.Info("grpc_listening", "addr", cfg.GRPCAddr)
		if err := grpcSrv.Serve(grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting_down")
	case err := <-errCh:
		logger.Error("server_failed", "error", err)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	grpcSrv.GracefulStop()
	logger.Info("stopped")
	return nil
}

type openedGateway struct {
	gateway.Gateway
	ping  func(context.Context) error
	close func()
}

func openGateway(ctx context.Context, cfg config.Gateway, logger *slog.Logger) (*openedGateway, error) {
	noop := func() {}
	switch cfg.Driver {
	case config.DriverMemory:
		return &openedGateway{Gateway: gateway.NewMemory(), close: noop}, nil
	case config.DriverFile:
		g, err := gateway.OpenFile(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open data dir: %w", err)
		}
		return &openedGateway{Gateway: g, close: noop}, nil
	case config.DriverPostgres:
		g, err := gateway.OpenPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		applied, err := migrate.NewManager(g.DB(), nil).Up(ctx)
		if err != nil {
			_ = g.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		if len(applied) > 0 {
			logger.Info("migrations_applied", "names", applied)
		}
		return &openedGateway{Gateway: g, ping: g.DB().PingContext, close: func() { _ = g.Close() }}, nil
	case config.DriverRedis:
		g, err := gateway.OpenRedis(ctx, cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			return nil, err
		}
		return &openedGateway{Gateway: g, ping: g.Health, close: func() { _ = g.Close() }}, nil
	default:
		return nil, fmt.Errorf("unknown gateway driver %q", cfg.Driver)
	}
}

func loadRoster(path string) (*donors.Roster, error) {
	if path == "" {
		return donors.NewRoster(nil)
	}
	r, err := donors.LoadRosterFile(path)
	if err != nil {
		return nil, fmt.Errorf("load donor roster: %w", err)
	}
	return r, nil
}
