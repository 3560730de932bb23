package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"fieldbook/backend/internal/domain"
	"fieldbook/backend/internal/store"
)

// dayLockNamespace is the first key of the two-key advisory lock taken per
// calendar day. The second key is the yyyymmdd day key.
const dayLockNamespace int32 = 48_151_623

type HoldRepo struct {
	db *bun.DB
}

func NewHoldRepo(db *bun.DB) *HoldRepo {
	return &HoldRepo{db: db}
}

type dayTx struct {
	tx bun.Tx
}

// InDayTransaction runs fn in one transaction holding the quote lock and a
// lock on each of dayKeys. Locks are always taken quote first, then days in
// ascending order, so two placements can never wait on each other in
// opposite order.
func (r *HoldRepo) InDayTransaction(ctx context.Context, quoteID uuid.UUID, dayKeys []int32, fn func(ctx context.Context, tx store.DayTx) error) error {
	keys := slices.Clone(dayKeys)
	slices.Sort(keys)
	keys = slices.Compact(keys)
	if len(keys) == 0 {
		return errors.New("in day transaction: no day to lock")
	}

	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockQuote(ctx, tx, quoteID); err != nil {
			return fmt.Errorf("lock quote: %w", err)
		}
		for _, key := range keys {
			if err := lockDay(ctx, tx, key); err != nil {
				return fmt.Errorf("lock day %d: %w", key, err)
			}
		}
		return fn(ctx, dayTx{tx: tx})
	})
}

func lockQuote(ctx context.Context, tx bun.Tx, quoteID uuid.UUID) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", "quote:"+quoteID.String()).Exec(ctx)
	return err
}

func lockDay(ctx context.Context, tx bun.Tx, dayKey int32) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(?::int4, ?::int4)", dayLockNamespace, dayKey).Exec(ctx)
	return err
}

// ListCommitments reads outside any lock; the result is only used for suggestions.
func (r *HoldRepo) ListCommitments(ctx context.Context, windowStart, windowEnd, now time.Time) ([]domain.Commitment, error) {
	return listCommitments(ctx, r.db, windowStart, windowEnd, now)
}

func (r *HoldRepo) GetHold(ctx context.Context, holdID uuid.UUID) (domain.Hold, error) {
	var h domain.Hold
	err := r.db.NewSelect().
		Model(&h).
		Where("id = ?", holdID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Hold{}, domain.ErrHoldNotFound
		}
		return domain.Hold{}, fmt.Errorf("get hold: %w", err)
	}
	return h, nil
}

func (r *HoldRepo) ReleaseHold(ctx context.Context, holdID uuid.UUID, now time.Time) (domain.Hold, error) {
	var out domain.Hold
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var h domain.Hold
		err := tx.NewSelect().
			Model(&h).
			Where("id = ?", holdID).
			For("UPDATE").
			Limit(1).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrHoldNotFound
			}
			return err
		}
		if h.Status == domain.HoldStatusReleased {
			out = h
			return nil
		}

		h.Status = domain.HoldStatusReleased
		h.UpdatedAt = now
		if _, err := tx.NewUpdate().
			Model(&h).
			Column("status", "updated_at").
			WherePK().
			Exec(ctx); err != nil {
			return err
		}
		out = h
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrHoldNotFound) {
			return domain.Hold{}, err
		}
		return domain.Hold{}, fmt.Errorf("release hold: %w", err)
	}
	return out, nil
}

func (t dayTx) ReleaseActiveHolds(ctx context.Context, quoteID uuid.UUID, now time.Time) (int, error) {
	res, err := t.tx.NewUpdate().
		Model((*domain.Hold)(nil)).
		Set("status = ?", domain.HoldStatusReleased).
		Set("updated_at = ?", now).
		Where("quote_id = ?", quoteID).
		Where("status = ?", domain.HoldStatusActive).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("release active holds: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

const countDayCommitmentsSQL = `
SELECT
	(SELECT count(*) FROM appointments
		WHERE status <> 'canceled' AND start_at >= ? AND start_at < ?)
	+
	(SELECT count(*) FROM holds
		WHERE status = 'active' AND expires_at > ? AND start_at >= ? AND start_at < ?)`

func (t dayTx) CountDayCommitments(ctx context.Context, dayStart, dayEnd, now time.Time) (int, error) {
	var n int
	err := t.tx.NewRaw(countDayCommitmentsSQL, dayStart, dayEnd, now, dayStart, dayEnd).Scan(ctx, &n)
	if err != nil {
		return 0, fmt.Errorf("count day commitments: %w", err)
	}
	return n, nil
}

func (t dayTx) ListCommitments(ctx context.Context, windowStart, windowEnd, now time.Time) ([]domain.Commitment, error) {
	return listCommitments(ctx, t.tx, windowStart, windowEnd, now)
}

func (t dayTx) CreateHold(ctx context.Context, hold domain.Hold) (domain.Hold, error) {
	m := hold
	_, err := t.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Hold{}, store.ErrConflict
		}
		return domain.Hold{}, fmt.Errorf("create hold: %w", err)
	}
	return m, nil
}

const listCommitmentsSQL = `
SELECT 'appointment' AS kind, a.id, a.quote_id, a.start_at, a.duration_minutes, a.travel_buffer_minutes,
	COALESCE(p.city, '') AS city, COALESCE(p.state, '') AS state, p.latitude, p.longitude
FROM appointments AS a
LEFT JOIN properties AS p ON p.id = a.property_id
WHERE a.status <> 'canceled' AND a.start_at < ?
	AND a.start_at + (a.duration_minutes + a.travel_buffer_minutes) * interval '1 minute' > ?
UNION ALL
SELECT 'hold' AS kind, h.id, h.quote_id, h.start_at, h.duration_minutes, h.travel_buffer_minutes,
	h.city, h.state, h.latitude, h.longitude
FROM holds AS h
WHERE h.status = 'active' AND h.expires_at > ? AND h.start_at < ?
	AND h.start_at + (h.duration_minutes + h.travel_buffer_minutes) * interval '1 minute' > ?
ORDER BY start_at ASC`

func listCommitments(ctx context.Context, db bun.IDB, windowStart, windowEnd, now time.Time) ([]domain.Commitment, error) {
	var rows []domain.Commitment
	err := db.NewRaw(listCommitmentsSQL, windowEnd, windowStart, now, windowEnd, windowStart).Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("list commitments: %w", err)
	}
	return rows, nil
}
