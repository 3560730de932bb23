package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"fieldbook/backend/internal/clock"
	"fieldbook/backend/internal/config"
	"fieldbook/backend/internal/geocode"
	"fieldbook/backend/internal/service/availability"
	"fieldbook/backend/internal/service/holds"
	"fieldbook/backend/internal/service/jobreview"
	"fieldbook/backend/internal/store/postgres"
	grpcTransport "fieldbook/backend/internal/transport/grpc"
	httpTransport "fieldbook/backend/internal/transport/http"
)

const healthCheckInterval = 15 * time.Second

func newServeCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the booking HTTP API and the gRPC health listener",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, migrateUp)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", false, "apply database migrations before serving")
	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}

func serve(parent context.Context, cfg config.Config, migrateUp bool) error {
	if parent == nil {
		parent = context.Background()
	}
	log := newLogger(cfg.LogLevel)
	log.Info("starting",
		slog.String("version", Version),
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("grpc_addr", cfg.GRPCAddr()),
		slog.String("log_level", cfg.LogLevel),
	)

	db, err := openDatabase(log, cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(log, db)

	if migrateUp {
		applied, err := postgres.Migrate(parent, db)
		if err != nil {
			log.Error("migrations failed", slog.Any("err", err))
			return err
		}
		log.Info("migrations applied", slog.Int("count", len(applied)), slog.Any("names", applied))
	}

	geocoder, err := geocode.New(cfg.Geocode.Provider, cfg.Geocode.APIKey)
	if err != nil {
		return err
	}
	bounded := geocode.NewBounded(geocoder, cfg.Geocode.Timeout, log)

	clk := clock.NewSystem()
	holdRepo := postgres.NewHoldRepo(db)
	quotes := postgres.NewQuoteRepo(db)
	policies := postgres.NewPolicyRepo(db)

	scanner := availability.NewService(quotes, policies, holdRepo, bounded, clk, log, availability.Options{
		Grid:            cfg.Booking.GridResolution,
		Padding:         cfg.Booking.Padding,
		Capacity:        cfg.Booking.Capacity,
		MaxSuggestions:  cfg.Booking.MaxSuggestions,
		ClusterRadiusKm: cfg.Booking.ClusterRadiusKm,
	})
	holdSvc := holds.NewService(holdRepo, quotes, policies, clk,
		holds.WithHoldTTL(cfg.Booking.HoldTTL),
		holds.WithGrid(cfg.Booking.GridResolution),
		holds.WithPadding(cfg.Booking.Padding),
		holds.WithCapacity(cfg.Booking.Capacity),
		holds.WithTxTimeout(cfg.Booking.TxTimeout),
		holds.WithReviewer(jobreview.NewEvaluator(cfg.ReviewMaxLoads)),
		holds.WithGeocoder(bounded),
		holds.WithLogger(log),
	)

	httpServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpTransport.NewRouter(scanner, holdSvc, httpTransport.RouterConfig{
			CORSOrigins:    cfg.CORSOrigins,
			RequestTimeout: cfg.HTTPRequestTimeout,
			Logger:         log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer, healthServer := grpcTransport.NewServer(grpcTransport.ServerConfig{
		RequestTimeout: cfg.GRPCRequestTimeout,
		Logger:         log,
	})
	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr()))
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server started", slog.String("http_addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped with error", slog.Any("err", err))
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("grpc server started", slog.String("grpc_addr", cfg.GRPCAddr()))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error("grpc server stopped with error", slog.Any("err", err))
			return err
		}
		return nil
	})
	g.Go(func() error {
		grpcTransport.WatchDatabase(gctx, healthServer, db, healthCheckInterval, log)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received")
		healthServer.Shutdown()
		shutdown(log, httpServer, grpcServer, cfg.ShutdownTimeout)
		return nil
	})

	return g.Wait()
}

func shutdown(log *slog.Logger, httpServer *http.Server, grpcServer *grpc.Server, timeout time.Duration) {
	log.Info("shutting down servers", slog.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Warn("http shutdown failed", slog.Any("err", err))
	}

	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("servers stopped")
	case <-ctx.Done():
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		grpcServer.Stop()
	}
}
