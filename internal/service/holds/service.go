// Package holds places short-lived reservations on a slot. Placement is the
// only strictly serialized operation: the capacity check and the insert run
// in one transaction under locks scoped to the local calendar days the job
// occupies.
package holds

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fieldbook/backend/internal/clock"
	"fieldbook/backend/internal/domain"
	"fieldbook/backend/internal/geocode"
	"fieldbook/backend/internal/store"
)

const (
	DefaultHoldTTL   = 15 * time.Minute
	DefaultGrid      = time.Hour
	DefaultCapacity  = 2
	DefaultTxTimeout = 10 * time.Second
)

// Reviewer annotates a hold with an advisory standard-job review.
type Reviewer interface {
	Evaluate(ctx context.Context, sig domain.JobSignals, est domain.Estimate) (domain.StandardJobReview, error)
}

type Service struct {
	repo      store.HoldRepository
	quotes    store.QuoteReader
	policies  store.PolicyReader
	clock     clock.Clock
	reviewer  Reviewer
	geocoder  geocode.Geocoder
	log       *slog.Logger
	holdTTL   time.Duration
	grid      time.Duration
	padding   time.Duration
	capacity  int
	txTimeout time.Duration
}

type Option func(*Service)

func WithHoldTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.holdTTL = ttl
		}
	}
}

func WithGrid(grid time.Duration) Option {
	return func(s *Service) {
		if grid > 0 {
			s.grid = grid
		}
	}
}

func WithPadding(padding time.Duration) Option {
	return func(s *Service) {
		if padding > 0 {
			s.padding = padding
		}
	}
}

func WithCapacity(capacity int) Option {
	return func(s *Service) {
		if capacity > 0 {
			s.capacity = capacity
		}
	}
}

func WithTxTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.txTimeout = timeout
		}
	}
}

func WithReviewer(r Reviewer) Option {
	return func(s *Service) {
		s.reviewer = r
	}
}

// WithGeocoder resolves coordinates for addresses that arrive without them.
// The geocoder is expected to bound its own latency.
func WithGeocoder(g geocode.Geocoder) Option {
	return func(s *Service) {
		if g != nil {
			s.geocoder = g
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func NewService(repo store.HoldRepository, quotes store.QuoteReader, policies store.PolicyReader, clk clock.Clock, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		quotes:    quotes,
		policies:  policies,
		clock:     clk,
		geocoder:  geocode.Nop{},
		log:       slog.Default(),
		holdTTL:   DefaultHoldTTL,
		grid:      DefaultGrid,
		padding:   store.DefaultPadding,
		capacity:  DefaultCapacity,
		txTimeout: DefaultTxTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(slog.String("component", "holds"))
	return s
}

type CreateInput struct {
	QuoteID uuid.UUID
	StartAt time.Time
	Address domain.Address
}

type Result struct {
	Hold   domain.Hold
	Review *domain.StandardJobReview
}

func (s *Service) CreateHold(ctx context.Context, in CreateInput) (Result, error) {
	if in.QuoteID == uuid.Nil {
		return Result{}, domain.NewValidationError(domain.CodeInvalidInput, "quote_id is required")
	}
	if in.StartAt.IsZero() {
		return Result{}, domain.NewValidationError(domain.CodeInvalidInput, "start_at is required")
	}

	policy, err := s.policies.GetPolicy(ctx)
	if err != nil {
		return Result{}, err
	}
	loc, err := policy.Location()
	if err != nil {
		return Result{}, err
	}
	quote, err := s.quotes.GetQuote(ctx, in.QuoteID)
	if err != nil {
		return Result{}, err
	}

	addr := in.Address
	if addr.IsZero() {
		addr = quote.Property.Address()
	}
	if !policy.ServiceArea.Allows(addr) {
		return Result{}, domain.NewValidationError(domain.CodeOutsideServiceArea, "address is outside the service area")
	}

	now := s.clock.Now()
	start := in.StartAt.In(loc)
	if err := s.validateStart(policy, loc, now, start); err != nil {
		return Result{}, err
	}

	if addr.Location == nil {
		addr.Location = s.locate(ctx, addr)
	}

	est := domain.EstimateDuration(quote.Signals())
	hold := domain.Hold{
		QuoteID:             quote.ID,
		StartAt:             start.UTC(),
		DurationMinutes:     est.DurationMinutes,
		TravelBufferMinutes: policy.TravelBufferMinutes,
		Status:              domain.HoldStatusActive,
		ExpiresAt:           now.Add(s.holdTTL),
		City:                addr.City,
		State:               addr.State,
	}
	if ll := addr.Location; ll != nil {
		lat, lng := ll.Lat, ll.Lng
		hold.Latitude, hold.Longitude = &lat, &lng
	}

	created, err := s.place(ctx, policy, loc, now, hold)
	if err != nil {
		return Result{}, err
	}

	res := Result{Hold: created}
	if s.reviewer != nil {
		review, err := s.reviewer.Evaluate(ctx, quote.Signals(), est)
		if err != nil {
			s.log.Warn("standard job review failed", slog.String("quote_id", quote.ID.String()), slog.Any("err", err))
		} else {
			res.Review = &review
		}
	}
	return res, nil
}

// locate geocodes addr for ranking. Failures leave the hold without coordinates.
func (s *Service) locate(ctx context.Context, addr domain.Address) *domain.LatLng {
	ll, err := s.geocoder.Geocode(ctx, addr)
	if err != nil {
		s.log.Warn("geocode failed, holding without coordinates", slog.Any("err", err))
		return nil
	}
	return ll
}

func (s *Service) validateStart(policy domain.Policy, loc *time.Location, now, start time.Time) error {
	switch {
	case !start.After(now):
		return domain.NewValidationError(domain.CodeStartInPast, "start_at must be in the future")
	case !policy.WithinBookingWindow(now, start):
		return domain.NewValidationError(domain.CodeOutsideBookingWindow, "start_at is outside the booking window")
	case !policy.InBusinessHours(start):
		return domain.NewValidationError(domain.CodeOutsideBusinessHours, "start_at is outside business hours")
	case policy.InQuietHours(start):
		return domain.NewValidationError(domain.CodeQuietHours, "start_at falls in quiet hours")
	case !domain.AlignedToGrid(start, loc, s.grid):
		return domain.NewValidationError(domain.CodeMisalignedStart, "start_at is not aligned to the slot grid")
	}
	return nil
}

// place runs the serialized part of CreateHold. It is detached from the
// caller's cancellation so a disconnect cannot interrupt it half way.
func (s *Service) place(ctx context.Context, policy domain.Policy, loc *time.Location, now time.Time, hold domain.Hold) (domain.Hold, error) {
	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.txTimeout)
	defer cancel()

	dayStart := domain.StartOfDay(hold.StartAt, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)
	slot := domain.Interval{Start: hold.StartAt, End: hold.EndAt()}
	// Any job this hold can collide with shares at least one of these days.
	days := domain.DayKeysSpanned(holdBlocked(hold), loc)

	var (
		created  domain.Hold
		released int
	)
	err := s.repo.InDayTransaction(txCtx, hold.QuoteID, days, func(ctx context.Context, tx store.DayTx) error {
		n, err := tx.ReleaseActiveHolds(ctx, hold.QuoteID, now)
		if err != nil {
			return err
		}
		released = n

		if policy.MaxJobsPerDay > 0 {
			count, err := tx.CountDayCommitments(ctx, dayStart, dayEnd, now)
			if err != nil {
				return err
			}
			if count >= policy.MaxJobsPerDay {
				return domain.ErrDayFull
			}
		}

		cs, err := tx.ListCommitments(ctx, slot.Start.Add(-s.padding), slot.End.Add(s.padding), now)
		if err != nil {
			return err
		}
		if domain.OverlapCount(domain.BlockedIntervals(cs), slot) >= s.capacity {
			return domain.ErrSlotFull
		}

		created, err = tx.CreateHold(ctx, hold)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrDayFull) || errors.Is(err, domain.ErrSlotFull) {
			s.log.Info("hold rejected",
				slog.String("quote_id", hold.QuoteID.String()),
				slog.Time("start_at", hold.StartAt),
				slog.String("reason", err.Error()),
			)
		}
		return domain.Hold{}, err
	}

	s.log.Info("hold created",
		slog.String("hold_id", created.ID.String()),
		slog.String("quote_id", created.QuoteID.String()),
		slog.Time("start_at", created.StartAt),
		slog.Time("expires_at", created.ExpiresAt),
		slog.Int("released", released),
	)
	return created, nil
}

func holdBlocked(h domain.Hold) domain.Interval {
	return domain.Commitment{
		StartAt:             h.StartAt,
		DurationMinutes:     h.DurationMinutes,
		TravelBufferMinutes: h.TravelBufferMinutes,
	}.Blocked()
}

// GetHandoff returns the slot parameters of a live hold for the confirmation step.
func (s *Service) GetHandoff(ctx context.Context, holdID uuid.UUID) (domain.Handoff, error) {
	if holdID == uuid.Nil {
		return domain.Handoff{}, domain.NewValidationError(domain.CodeInvalidInput, "hold_id is required")
	}
	h, err := s.repo.GetHold(ctx, holdID)
	if err != nil {
		return domain.Handoff{}, err
	}
	if h.Status == domain.HoldStatusReleased {
		return domain.Handoff{}, domain.ErrHoldReleased
	}
	if !h.Live(s.clock.Now()) {
		return domain.Handoff{}, domain.ErrHoldExpired
	}
	return h.Handoff(), nil
}

// ReleaseHold gives up a hold. Releasing twice is not an error.
func (s *Service) ReleaseHold(ctx context.Context, holdID uuid.UUID) (domain.Hold, error) {
	if holdID == uuid.Nil {
		return domain.Hold{}, domain.NewValidationError(domain.CodeInvalidInput, "hold_id is required")
	}
	h, err := s.repo.ReleaseHold(ctx, holdID, s.clock.Now())
	if err != nil {
		return domain.Hold{}, err
	}
	s.log.Info("hold released", slog.String("hold_id", h.ID.String()), slog.String("quote_id", h.QuoteID.String()))
	return h, nil
}
