package http

import (
	"log/slog"
	"net/http"
	"time"
)

type RouterConfig struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// NewRouter wires the booking endpoints behind logging, CORS and timeout middleware.
func NewRouter(scanner AvailabilityScanner, holdSvc HoldService, cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "http"))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", HealthHandler)
	mux.Handle("/v1/availability", HandleScanAvailability(scanner, log))
	mux.Handle("/v1/holds", HandleCreateHold(holdSvc, log))
	mux.Handle("/v1/holds/{id}", HandleHold(holdSvc, log))
	mux.Handle("/", NotFoundHandler())

	var h http.Handler = mux
	h = RequestTimeout(h, cfg.RequestTimeout)
	h = CORS(cfg.CORSOrigins, h)
	return RequestLogger(h, log)
}
