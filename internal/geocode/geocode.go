// Package geocode resolves service addresses to coordinates. Geocoding is
// best effort: callers get nil coordinates rather than an error when a lookup
// fails, so ranking degrades instead of the request failing.
package geocode

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fieldbook/backend/internal/domain"
)

type Geocoder interface {
	Geocode(ctx context.Context, addr domain.Address) (*domain.LatLng, error)
}

const DefaultTimeout = 2 * time.Second

// New builds the geocoder for a configured provider name.
func New(provider, apiKey string) (Geocoder, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", "none", "nop":
		return Nop{}, nil
	case "google":
		return NewGoogleMaps(apiKey)
	default:
		return nil, fmt.Errorf("unknown geocode provider %q", provider)
	}
}

// Nop never resolves anything.
type Nop struct{}

func (Nop) Geocode(context.Context, domain.Address) (*domain.LatLng, error) {
	return nil, nil
}

// Static resolves addresses from a fixed table keyed by Address.String().
type Static map[string]domain.LatLng

func (s Static) Geocode(_ context.Context, addr domain.Address) (*domain.LatLng, error) {
	ll, ok := s[addr.String()]
	if !ok {
		return nil, nil
	}
	return &ll, nil
}

// Bounded wraps a Geocoder with a per-call timeout and turns every failure
// into a nil result.
type Bounded struct {
	next    Geocoder
	timeout time.Duration
	log     *slog.Logger
}

func NewBounded(next Geocoder, timeout time.Duration, log *slog.Logger) *Bounded {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Bounded{
		next:    next,
		timeout: timeout,
		log:     log.With(slog.String("component", "geocode")),
	}
}

func (b *Bounded) Geocode(ctx context.Context, addr domain.Address) (*domain.LatLng, error) {
	if addr.Location != nil {
		ll := *addr.Location
		return &ll, nil
	}
	if b.next == nil || addr.String() == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	type result struct {
		ll  *domain.LatLng
		err error
	}
	done := make(chan result, 1)
	go func() {
		ll, err := b.next.Geocode(ctx, addr)
		done <- result{ll: ll, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			b.log.Warn("geocode failed", slog.Any("err", r.err), slog.String("city", addr.City), slog.String("state", addr.State))
			return nil, nil
		}
		return r.ll, nil
	case <-ctx.Done():
		b.log.Warn("geocode timed out", slog.Duration("timeout", b.timeout), slog.String("city", addr.City), slog.String("state", addr.State))
		return nil, nil
	}
}
