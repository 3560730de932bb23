package testutil

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"fieldbook/backend/internal/domain"
	"fieldbook/backend/internal/store/postgres"
)

const testDBLockID int64 = 48_151_624

// NewTestDB opens the integration database named by FIELDBOOK_TEST_DATABASE_URL,
// applies migrations and serializes test packages on an advisory lock. The
// test is skipped when the variable is unset.
func NewTestDB(t *testing.T) *bun.DB {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("FIELDBOOK_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("FIELDBOOK_TEST_DATABASE_URL not set")
	}

	db, err := postgres.Open(dsn, postgres.PoolConfig{MaxOpenConns: 8})
	if err != nil {
		t.Skipf("skipping Postgres integration tests: %v", err)
	}
	t.Cleanup(func() {
		_ = postgres.Close(db)
	})

	lockTestDB(t, db)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := postgres.Migrate(ctx, db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

func TruncateAll(t *testing.T, ctx context.Context, db *bun.DB) {
	t.Helper()
	_, err := db.ExecContext(ctx, `TRUNCATE holds, appointments, quotes, properties RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
}

// SetPolicy overwrites the seeded policy row.
func SetPolicy(t *testing.T, ctx context.Context, db *bun.DB, p domain.Policy) {
	t.Helper()
	p.ID = 1
	p.UpdatedAt = time.Now().UTC()
	if p.BusinessHours == nil {
		p.BusinessHours = domain.WeeklyHours{}
	}
	if p.BlackoutDates == nil {
		p.BlackoutDates = []string{}
	}
	_, err := db.NewInsert().
		Model(&p).
		On("CONFLICT (id) DO UPDATE").
		Set("timezone = EXCLUDED.timezone").
		Set("business_hours = EXCLUDED.business_hours").
		Set("quiet_hours = EXCLUDED.quiet_hours").
		Set("booking_window_days = EXCLUDED.booking_window_days").
		Set("max_jobs_per_day = EXCLUDED.max_jobs_per_day").
		Set("travel_buffer_minutes = EXCLUDED.travel_buffer_minutes").
		Set("service_area = EXCLUDED.service_area").
		Set("blackout_dates = EXCLUDED.blackout_dates").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		t.Fatalf("set policy: %v", err)
	}
}

// InsertQuote inserts a property and a quote for it and returns the quote id.
func InsertQuote(t *testing.T, ctx context.Context, db *bun.DB, size string, addr domain.Address) uuid.UUID {
	t.Helper()
	prop := domain.Property{
		ID:         uuid.New(),
		Line1:      addr.Line1,
		City:       addr.City,
		State:      addr.State,
		PostalCode: addr.PostalCode,
		CreatedAt:  time.Now().UTC(),
	}
	if addr.Location != nil {
		lat, lng := addr.Location.Lat, addr.Location.Lng
		prop.Latitude, prop.Longitude = &lat, &lng
	}
	if _, err := db.NewInsert().Model(&prop).Exec(ctx); err != nil {
		t.Fatalf("insert property: %v", err)
	}

	quote := domain.Quote{
		ID:            uuid.New(),
		PropertyID:    prop.ID,
		PerceivedSize: size,
		CreatedAt:     time.Now().UTC(),
	}
	if _, err := db.NewInsert().Model(&quote).Exec(ctx); err != nil {
		t.Fatalf("insert quote: %v", err)
	}
	return quote.ID
}

func InsertAppointment(t *testing.T, ctx context.Context, db *bun.DB, appt domain.Appointment) uuid.UUID {
	t.Helper()
	if _, err := db.NewInsert().Model(&appt).Exec(ctx); err != nil {
		t.Fatalf("insert appointment: %v", err)
	}
	return appt.ID
}

func InsertHold(t *testing.T, ctx context.Context, db *bun.DB, hold domain.Hold) uuid.UUID {
	t.Helper()
	if _, err := db.NewInsert().Model(&hold).Exec(ctx); err != nil {
		t.Fatalf("insert hold: %v", err)
	}
	return hold.ID
}

func lockTestDB(t *testing.T, db *bun.DB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := db.Conn(ctx)
	if err != nil {
		t.Fatalf("acquire lock conn: %v", err)
	}
	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock(?)`, testDBLockID); err != nil {
		_ = conn.Close()
		t.Fatalf("acquire test lock: %v", err)
	}

	t.Cleanup(func() {
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock(?)`, testDBLockID)
		_ = conn.Close()
	})
}
