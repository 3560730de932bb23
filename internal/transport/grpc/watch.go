package grpc

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Pinger is satisfied by *bun.DB and *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// WatchDatabase pings db every interval and mirrors the result into the
// health server until ctx is done.
func WatchDatabase(ctx context.Context, hs *health.Server, db Pinger, interval time.Duration, log *slog.Logger) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "health"))

	serving, known := false, false
	check := func() {
		pingCtx, cancel := context.WithTimeout(ctx, interval/2)
		err := db.PingContext(pingCtx)
		cancel()

		ok := err == nil
		if known && ok == serving {
			return
		}
		serving, known = ok, true
		st := healthpb.HealthCheckResponse_SERVING
		if !ok {
			st = healthpb.HealthCheckResponse_NOT_SERVING
			log.Error("database unreachable", slog.Any("err", err))
		} else {
			log.Info("database reachable")
		}
		hs.SetServingStatus("", st)
		hs.SetServingStatus(ServiceName, st)
	}

	check()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}
