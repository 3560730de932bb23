// Package availability computes bookable service windows for a quote. Scans
// take no locks; the output is a suggestion that hold placement re-validates.
package availability

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fieldbook/backend/internal/clock"
	"fieldbook/backend/internal/domain"
	"fieldbook/backend/internal/geocode"
	"fieldbook/backend/internal/store"
)

const (
	DefaultGrid            = time.Hour
	DefaultCapacity        = 2
	DefaultMaxSuggestions  = 8
	DefaultClusterRadiusKm = 25.0
)

type Options struct {
	Grid            time.Duration
	Padding         time.Duration
	Capacity        int
	MaxSuggestions  int
	ClusterRadiusKm float64
}

func (o Options) withDefaults() Options {
	if o.Grid <= 0 {
		o.Grid = DefaultGrid
	}
	if o.Padding <= 0 {
		o.Padding = store.DefaultPadding
	}
	if o.Capacity <= 0 {
		o.Capacity = DefaultCapacity
	}
	if o.MaxSuggestions <= 0 {
		o.MaxSuggestions = DefaultMaxSuggestions
	}
	if o.ClusterRadiusKm <= 0 {
		o.ClusterRadiusKm = DefaultClusterRadiusKm
	}
	return o
}

type Service struct {
	quotes      store.QuoteReader
	policies    store.PolicyReader
	commitments store.CommitmentReader
	geocoder    geocode.Geocoder
	clock       clock.Clock
	opts        Options
	log         *slog.Logger
}

func NewService(quotes store.QuoteReader, policies store.PolicyReader, commitments store.CommitmentReader, geocoder geocode.Geocoder, clk clock.Clock, log *slog.Logger, opts Options) *Service {
	if geocoder == nil {
		geocoder = geocode.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		quotes:      quotes,
		policies:    policies,
		commitments: commitments,
		geocoder:    geocoder,
		clock:       clk,
		opts:        opts.withDefaults(),
		log:         log.With(slog.String("component", "availability")),
	}
}

type ScanInput struct {
	QuoteID     uuid.UUID
	Address     domain.Address
	HorizonDays int
}

type Slot struct {
	StartAt time.Time
	EndAt   time.Time
	Reason  Reason

	score dayScore
}

type DaySlots struct {
	Date   string
	Full   bool
	Reason Reason
	Slots  []Slot
}

type ScanResult struct {
	Timezone            string
	DurationMinutes     int
	Loads               int
	TravelBufferMinutes int
	Capacity            int
	Suggestions         []Slot
	Days                []DaySlots
}

func (s *Service) Scan(ctx context.Context, in ScanInput) (ScanResult, error) {
	if in.QuoteID == uuid.Nil {
		return ScanResult{}, domain.NewValidationError(domain.CodeInvalidInput, "quote_id is required")
	}
	if in.HorizonDays < 0 {
		return ScanResult{}, domain.NewValidationError(domain.CodeInvalidInput, "horizon_days must not be negative")
	}

	policy, err := s.policies.GetPolicy(ctx)
	if err != nil {
		return ScanResult{}, err
	}
	loc, err := policy.Location()
	if err != nil {
		return ScanResult{}, err
	}

	quote, err := s.quotes.GetQuote(ctx, in.QuoteID)
	if err != nil {
		return ScanResult{}, err
	}

	addr := in.Address
	if addr.IsZero() {
		addr = quote.Property.Address()
	}
	if !policy.ServiceArea.Allows(addr) {
		return ScanResult{}, domain.NewValidationError(domain.CodeOutsideServiceArea, "address is outside the service area")
	}

	est := domain.EstimateDuration(quote.Signals())
	duration := time.Duration(est.DurationMinutes) * time.Minute
	now := s.clock.Now()

	// scanEnd never passes the booking horizon, so slots up to it are bookable.
	scanEnd := policy.BookingHorizon(now)
	if in.HorizonDays > 0 {
		if end := now.AddDate(0, 0, in.HorizonDays); end.Before(scanEnd) {
			scanEnd = end
		}
	}
	firstDay := domain.StartOfDay(now, loc)
	windowStart := firstDay.Add(-s.opts.Padding)
	windowEnd := domain.StartOfDay(scanEnd, loc).AddDate(0, 0, 1).Add(s.opts.Padding)

	target := addr.Location

	var commitments []domain.Commitment
	g, gctx := errgroup.WithContext(ctx)
	if target == nil {
		g.Go(func() error {
			ll, err := s.geocoder.Geocode(gctx, addr)
			if err != nil {
				s.log.Warn("geocode failed, ranking without coordinates", slog.Any("err", err))
				return nil
			}
			target = ll
			return nil
		})
	}
	g.Go(func() error {
		cs, err := s.commitments.ListCommitments(gctx, windowStart, windowEnd, now)
		if err != nil {
			return err
		}
		commitments = cs
		return nil
	})
	if err := g.Wait(); err != nil {
		return ScanResult{}, err
	}
	commitments = withoutOwnHolds(commitments, in.QuoteID)

	blocked := domain.BlockedIntervals(commitments)
	byDay := make(map[int32][]domain.Commitment)
	for _, c := range commitments {
		key := domain.DayKey(c.StartAt, loc)
		byDay[key] = append(byDay[key], c)
	}

	var (
		days []DaySlots
		all  []Slot
	)
	for day := firstDay; day.Before(scanEnd); day = day.AddDate(0, 0, 1) {
		if policy.IsDayOff(day) {
			continue
		}
		items := byDay[domain.DayKey(day, loc)]
		score := scoreDay(target, addr, items, s.opts.ClusterRadiusKm)
		ds := DaySlots{
			Date:   day.Format("2006-01-02"),
			Reason: score.reason(s.opts.ClusterRadiusKm),
			Slots:  []Slot{},
		}
		if policy.MaxJobsPerDay > 0 && len(items) >= policy.MaxJobsPerDay {
			ds.Full = true
			days = append(days, ds)
			continue
		}

		for _, w := range policy.WindowsOn(day) {
			for _, start := range domain.GridPoints(day, w, s.opts.Grid) {
				if !start.After(now) || start.After(scanEnd) || policy.InQuietHours(start) {
					continue
				}
				slot := domain.Interval{Start: start, End: start.Add(duration)}
				if domain.OverlapCount(blocked, slot) >= s.opts.Capacity {
					continue
				}
				ds.Slots = append(ds.Slots, Slot{StartAt: start, EndAt: slot.End, Reason: ds.Reason, score: score})
			}
		}
		sort.Slice(ds.Slots, func(i, j int) bool { return ds.Slots[i].StartAt.Before(ds.Slots[j].StartAt) })
		days = append(days, ds)
		all = append(all, ds.Slots...)
	}

	suggestions := mergeSuggestions(all, s.opts.MaxSuggestions)

	s.log.Debug(
		"availability scanned",
		slog.String("quote_id", in.QuoteID.String()),
		slog.Int("days", len(days)),
		slog.Int("slots", len(all)),
		slog.Int("suggestions", len(suggestions)),
		slog.Bool("geocoded", target != nil),
	)

	return ScanResult{
		Timezone:            loc.String(),
		DurationMinutes:     est.DurationMinutes,
		Loads:               est.Loads,
		TravelBufferMinutes: policy.TravelBufferMinutes,
		Capacity:            s.opts.Capacity,
		Suggestions:         suggestions,
		Days:                days,
	}, nil
}

// withoutOwnHolds drops the quote's active holds. Placing a new hold releases
// them first, so they never compete with the quote's own rebooking.
func withoutOwnHolds(cs []domain.Commitment, quoteID uuid.UUID) []domain.Commitment {
	out := make([]domain.Commitment, 0, len(cs))
	for _, c := range cs {
		if c.Kind == domain.CommitmentHold && c.QuoteID == quoteID {
			continue
		}
		out = append(out, c)
	}
	return out
}

// mergeSuggestions interleaves the best-ranked slots with the soonest ones,
// dropping duplicate starts, up to limit.
func mergeSuggestions(slots []Slot, limit int) []Slot {
	ranked := append([]Slot(nil), slots...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if c := ranked[i].score.compare(ranked[j].score); c != 0 {
			return c < 0
		}
		return ranked[i].StartAt.Before(ranked[j].StartAt)
	})
	soonest := append([]Slot(nil), slots...)
	sort.SliceStable(soonest, func(i, j int) bool {
		return soonest[i].StartAt.Before(soonest[j].StartAt)
	})

	out := make([]Slot, 0, limit)
	seen := make(map[int64]struct{}, limit)
	add := func(s Slot) {
		if len(out) >= limit {
			return
		}
		key := s.StartAt.UnixNano()
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	for i := 0; len(out) < limit && (i < len(ranked) || i < len(soonest)); i++ {
		if i < len(ranked) {
			add(ranked[i])
		}
		if i < len(soonest) {
			add(soonest[i])
		}
	}
	return out
}
