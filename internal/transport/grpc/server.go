// Package grpc exposes the standard gRPC health service so orchestrators can
// probe the booking service alongside its HTTP API.
package grpc

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// ServiceName is the health service name reported for the booking API.
const ServiceName = "fieldbook.booking.v1"

const defaultRequestTimeout = 10 * time.Second

type ServerConfig struct {
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// NewServer builds a gRPC server with the health service registered. Every
// service starts NOT_SERVING until the caller flips it.
func NewServer(cfg ServerConfig) (*grpc.Server, *health.Server) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			defaultRequestTimeoutInterceptor(cfg.RequestTimeout),
			loggingInterceptor(log.With(slog.String("component", "grpc"))),
		),
	)
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return s, hs
}

func defaultRequestTimeoutInterceptor(timeout time.Duration) grpc.UnaryServerInterceptor {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := ctx.Deadline(); ok {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return handler(ctx, req)
	}
}

func loggingInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.LogAttrs(ctx, slog.LevelDebug, "rpc",
			slog.String("method", info.FullMethod),
			slog.String("code", status.Code(err).String()),
			slog.Duration("duration", time.Since(start)),
		)
		return resp, err
	}
}
