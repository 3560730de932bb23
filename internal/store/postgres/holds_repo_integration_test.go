package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"fieldbook/backend/internal/domain"
	"fieldbook/backend/internal/store"
	"fieldbook/backend/internal/store/postgres"
	"fieldbook/backend/internal/testutil"
)

func TestPostgresIntegration_HoldRepo(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := postgres.NewHoldRepo(db)
	quotes := postgres.NewQuoteRepo(db)
	policies := postgres.NewPolicyRepo(db)

	now := time.Now().UTC().Truncate(time.Second)
	start := now.Add(48 * time.Hour).Truncate(time.Hour)
	addr := domain.Address{Line1: "1 Main St", City: "Denver", State: "CO", PostalCode: "80203"}

	t.Run("policy is seeded", func(t *testing.T) {
		p, err := policies.GetPolicy(context.Background())
		if err != nil {
			t.Fatalf("GetPolicy error: %v", err)
		}
		if p.BookingWindowDays <= 0 {
			t.Fatalf("booking_window_days = %d, want > 0", p.BookingWindowDays)
		}
		if _, err := p.Location(); err != nil {
			t.Fatalf("Location error: %v", err)
		}
	})

	t.Run("GetQuote loads property and reports ErrNotFound", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, db)
		quoteID := testutil.InsertQuote(t, ctx, db, "few_items", addr)

		q, err := quotes.GetQuote(ctx, quoteID)
		if err != nil {
			t.Fatalf("GetQuote error: %v", err)
		}
		if q.Property == nil || q.Property.City != "Denver" {
			t.Fatalf("property not loaded: %+v", q.Property)
		}

		_, err = quotes.GetQuote(ctx, uuid.New())
		if !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("err = %v, want %v", err, store.ErrNotFound)
		}
	})

	t.Run("ListCommitments excludes expired, released and canceled", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, db)
		quoteID := testutil.InsertQuote(t, ctx, db, "few_items", addr)

		live := testutil.InsertHold(t, ctx, db, domain.Hold{
			QuoteID: quoteID, StartAt: start, DurationMinutes: 120, TravelBufferMinutes: 30,
			Status: domain.HoldStatusActive, ExpiresAt: now.Add(10 * time.Minute),
		})
		testutil.InsertHold(t, ctx, db, domain.Hold{
			QuoteID: testutil.InsertQuote(t, ctx, db, "few_items", addr), StartAt: start, DurationMinutes: 120,
			Status: domain.HoldStatusActive, ExpiresAt: now.Add(-time.Minute),
		})
		testutil.InsertHold(t, ctx, db, domain.Hold{
			QuoteID: quoteID, StartAt: start, DurationMinutes: 120,
			Status: domain.HoldStatusReleased, ExpiresAt: now.Add(10 * time.Minute),
		})
		appt := testutil.InsertAppointment(t, ctx, db, domain.Appointment{
			QuoteID: quoteID, StartAt: start.Add(time.Hour), DurationMinutes: 180,
			Status: domain.AppointmentStatusConfirmed,
		})
		testutil.InsertAppointment(t, ctx, db, domain.Appointment{
			QuoteID: quoteID, StartAt: start.Add(time.Hour), DurationMinutes: 180,
			Status: domain.AppointmentStatusCanceled,
		})

		rows, err := repo.ListCommitments(ctx, start.Add(-24*time.Hour), start.Add(24*time.Hour), now)
		if err != nil {
			t.Fatalf("ListCommitments error: %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("len(rows) = %d, want 2: %+v", len(rows), rows)
		}
		got := map[uuid.UUID]domain.CommitmentKind{}
		for _, r := range rows {
			got[r.ID] = r.Kind
		}
		if got[live] != domain.CommitmentHold || got[appt] != domain.CommitmentAppointment {
			t.Fatalf("unexpected commitments: %+v", rows)
		}
	})

	t.Run("ListCommitments selects by overlap, not by start", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, db)
		quoteID := testutil.InsertQuote(t, ctx, db, "multiple_loads", addr)

		// Started two days before the window and still running into it.
		long := testutil.InsertAppointment(t, ctx, db, domain.Appointment{
			QuoteID: quoteID, StartAt: start.Add(-48 * time.Hour), DurationMinutes: 1920 + 1920,
			TravelBufferMinutes: 30, Status: domain.AppointmentStatusConfirmed,
		})
		testutil.InsertAppointment(t, ctx, db, domain.Appointment{
			QuoteID: quoteID, StartAt: start.Add(-48 * time.Hour), DurationMinutes: 120,
			TravelBufferMinutes: 30, Status: domain.AppointmentStatusConfirmed,
		})
		hold := testutil.InsertHold(t, ctx, db, domain.Hold{
			QuoteID: quoteID, StartAt: start.Add(-26 * time.Hour), DurationMinutes: 1920,
			Status: domain.HoldStatusActive, ExpiresAt: now.Add(10 * time.Minute),
		})

		rows, err := repo.ListCommitments(ctx, start, start.Add(2*time.Hour), now)
		if err != nil {
			t.Fatalf("ListCommitments error: %v", err)
		}
		got := map[uuid.UUID]bool{}
		for _, r := range rows {
			got[r.ID] = true
		}
		if len(rows) != 2 || !got[long] || !got[hold] {
			t.Fatalf("rows = %+v, want the long appointment and the long hold", rows)
		}
	})

	t.Run("InDayTransaction locks several days", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, db)
		quoteID := testutil.InsertQuote(t, ctx, db, "few_items", addr)
		days := domain.DayKeysSpanned(domain.Interval{Start: start, End: start.Add(1950 * time.Minute)}, time.UTC)

		called := false
		err := repo.InDayTransaction(ctx, quoteID, days, func(ctx context.Context, tx store.DayTx) error {
			called = true
			return nil
		})
		if err != nil {
			t.Fatalf("InDayTransaction error: %v", err)
		}
		if !called {
			t.Fatalf("fn was not called")
		}
		if err := repo.InDayTransaction(ctx, quoteID, nil, func(context.Context, store.DayTx) error { return nil }); err == nil {
			t.Fatalf("expected an error without days to lock")
		}
	})

	t.Run("InDayTransaction releases prior hold and rolls back on error", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, db)
		quoteID := testutil.InsertQuote(t, ctx, db, "few_items", addr)
		first := testutil.InsertHold(t, ctx, db, domain.Hold{
			QuoteID: quoteID, StartAt: start, DurationMinutes: 120,
			Status: domain.HoldStatusActive, ExpiresAt: now.Add(10 * time.Minute),
		})
		days := []int32{domain.DayKey(start, time.UTC)}

		boom := errors.New("boom")
		err := repo.InDayTransaction(ctx, quoteID, days, func(ctx context.Context, tx store.DayTx) error {
			if _, err := tx.ReleaseActiveHolds(ctx, quoteID, now); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v, want %v", err, boom)
		}
		h, err := repo.GetHold(ctx, first)
		if err != nil {
			t.Fatalf("GetHold error: %v", err)
		}
		if h.Status != domain.HoldStatusActive {
			t.Fatalf("status after rollback = %s, want active", h.Status)
		}

		var created domain.Hold
		err = repo.InDayTransaction(ctx, quoteID, days, func(ctx context.Context, tx store.DayTx) error {
			n, err := tx.ReleaseActiveHolds(ctx, quoteID, now)
			if err != nil {
				return err
			}
			if n != 1 {
				t.Errorf("released = %d, want 1", n)
			}
			count, err := tx.CountDayCommitments(ctx, start.Add(-time.Hour), start.Add(time.Hour), now)
			if err != nil {
				return err
			}
			if count != 0 {
				t.Errorf("day count = %d, want 0 after release", count)
			}
			created, err = tx.CreateHold(ctx, domain.Hold{
				QuoteID: quoteID, StartAt: start.Add(time.Hour), DurationMinutes: 120,
				Status: domain.HoldStatusActive, ExpiresAt: now.Add(15 * time.Minute),
			})
			return err
		})
		if err != nil {
			t.Fatalf("InDayTransaction error: %v", err)
		}
		if created.ID == uuid.Nil {
			t.Fatalf("expected generated hold id")
		}

		h, err = repo.GetHold(ctx, first)
		if err != nil {
			t.Fatalf("GetHold error: %v", err)
		}
		if h.Status != domain.HoldStatusReleased {
			t.Fatalf("first hold status = %s, want released", h.Status)
		}
	})

	t.Run("second active hold for a quote is a conflict", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, db)
		quoteID := testutil.InsertQuote(t, ctx, db, "few_items", addr)
		testutil.InsertHold(t, ctx, db, domain.Hold{
			QuoteID: quoteID, StartAt: start, DurationMinutes: 120,
			Status: domain.HoldStatusActive, ExpiresAt: now.Add(10 * time.Minute),
		})

		err := repo.InDayTransaction(ctx, quoteID, []int32{domain.DayKey(start, time.UTC)}, func(ctx context.Context, tx store.DayTx) error {
			_, err := tx.CreateHold(ctx, domain.Hold{
				QuoteID: quoteID, StartAt: start, DurationMinutes: 120,
				Status: domain.HoldStatusActive, ExpiresAt: now.Add(10 * time.Minute),
			})
			return err
		})
		if !errors.Is(err, store.ErrConflict) {
			t.Fatalf("err = %v, want %v", err, store.ErrConflict)
		}
	})

	t.Run("ReleaseHold is idempotent and reports missing holds", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, db)
		quoteID := testutil.InsertQuote(t, ctx, db, "few_items", addr)
		id := testutil.InsertHold(t, ctx, db, domain.Hold{
			QuoteID: quoteID, StartAt: start, DurationMinutes: 120,
			Status: domain.HoldStatusActive, ExpiresAt: now.Add(10 * time.Minute),
		})

		for i := 0; i < 2; i++ {
			h, err := repo.ReleaseHold(ctx, id, now)
			if err != nil {
				t.Fatalf("ReleaseHold error: %v", err)
			}
			if h.Status != domain.HoldStatusReleased {
				t.Fatalf("status = %s, want released", h.Status)
			}
		}

		_, err := repo.ReleaseHold(ctx, uuid.New(), now)
		if !errors.Is(err, domain.ErrHoldNotFound) {
			t.Fatalf("err = %v, want %v", err, domain.ErrHoldNotFound)
		}
	})
}
