package holds

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"fieldbook/backend/internal/domain"
	"fieldbook/backend/internal/store"
)

// memStore is an in-memory HoldRepository. Transactions take the same quote
// then day locks as the postgres implementation and stage their writes until
// fn returns nil.
type memStore struct {
	mu           sync.Mutex
	keyLocks     map[string]*sync.Mutex
	holds        map[uuid.UUID]domain.Hold
	appointments []domain.Commitment

	txHook func(ctx context.Context)
	// lockedDays records the day keys of every transaction in lock order.
	lockedDays [][]int32
}

func newMemStore() *memStore {
	return &memStore{
		keyLocks: make(map[string]*sync.Mutex),
		holds:    make(map[uuid.UUID]domain.Hold),
	}
}

func (m *memStore) lock(key string) func() {
	m.mu.Lock()
	l, ok := m.keyLocks[key]
	if !ok {
		l = &sync.Mutex{}
		m.keyLocks[key] = l
	}
	m.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (m *memStore) InDayTransaction(ctx context.Context, quoteID uuid.UUID, dayKeys []int32, fn func(ctx context.Context, tx store.DayTx) error) error {
	keys := slices.Clone(dayKeys)
	slices.Sort(keys)
	keys = slices.Compact(keys)
	if len(keys) == 0 {
		return fmt.Errorf("in day transaction: no day to lock")
	}

	unlockQuote := m.lock("quote:" + quoteID.String())
	defer unlockQuote()
	for _, key := range keys {
		unlockDay := m.lock(fmt.Sprintf("day:%d", key))
		defer unlockDay()
	}

	m.mu.Lock()
	m.lockedDays = append(m.lockedDays, keys)
	m.mu.Unlock()

	if m.txHook != nil {
		m.txHook(ctx)
	}

	tx := &memTx{store: m, pending: make(map[uuid.UUID]domain.Hold)}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, h := range tx.pending {
		m.holds[id] = h
	}
	return nil
}

func (m *memStore) GetHold(ctx context.Context, holdID uuid.UUID) (domain.Hold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.holds[holdID]
	if !ok {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	return h, nil
}

func (m *memStore) ReleaseHold(ctx context.Context, holdID uuid.UUID, now time.Time) (domain.Hold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.holds[holdID]
	if !ok {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	if h.Status != domain.HoldStatusReleased {
		h.Status = domain.HoldStatusReleased
		h.UpdatedAt = now
		m.holds[holdID] = h
	}
	return h, nil
}

func (m *memStore) put(h domain.Hold) domain.Hold {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	m.holds[h.ID] = h
	return h
}

func (m *memStore) activeFor(quoteID uuid.UUID) []domain.Hold {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Hold
	for _, h := range m.holds {
		if h.QuoteID == quoteID && h.Status == domain.HoldStatusActive {
			out = append(out, h)
		}
	}
	return out
}

type memTx struct {
	store   *memStore
	pending map[uuid.UUID]domain.Hold
}

func (t *memTx) view() map[uuid.UUID]domain.Hold {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	out := make(map[uuid.UUID]domain.Hold, len(t.store.holds)+len(t.pending))
	for id, h := range t.store.holds {
		out[id] = h
	}
	for id, h := range t.pending {
		out[id] = h
	}
	return out
}

func (t *memTx) ReleaseActiveHolds(ctx context.Context, quoteID uuid.UUID, now time.Time) (int, error) {
	n := 0
	for id, h := range t.view() {
		if h.QuoteID == quoteID && h.Status == domain.HoldStatusActive {
			h.Status = domain.HoldStatusReleased
			h.UpdatedAt = now
			t.pending[id] = h
			n++
		}
	}
	return n, nil
}

func (t *memTx) commitments(now time.Time, keep func(domain.Commitment) bool) []domain.Commitment {
	var out []domain.Commitment

	t.store.mu.Lock()
	for _, c := range t.store.appointments {
		if keep(c) {
			out = append(out, c)
		}
	}
	t.store.mu.Unlock()

	for _, h := range t.view() {
		if !h.Live(now) {
			continue
		}
		c := domain.Commitment{
			Kind:                domain.CommitmentHold,
			ID:                  h.ID,
			QuoteID:             h.QuoteID,
			StartAt:             h.StartAt,
			DurationMinutes:     h.DurationMinutes,
			TravelBufferMinutes: h.TravelBufferMinutes,
			City:                h.City,
			State:               h.State,
			Latitude:            h.Latitude,
			Longitude:           h.Longitude,
		}
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func (t *memTx) CountDayCommitments(ctx context.Context, dayStart, dayEnd, now time.Time) (int, error) {
	cs := t.commitments(now, func(c domain.Commitment) bool {
		return !c.StartAt.Before(dayStart) && c.StartAt.Before(dayEnd)
	})
	return len(cs), nil
}

func (t *memTx) ListCommitments(ctx context.Context, windowStart, windowEnd, now time.Time) ([]domain.Commitment, error) {
	window := domain.Interval{Start: windowStart, End: windowEnd}
	return t.commitments(now, func(c domain.Commitment) bool {
		return c.Blocked().Overlaps(window)
	}), nil
}

func (t *memTx) CreateHold(ctx context.Context, hold domain.Hold) (domain.Hold, error) {
	for _, h := range t.view() {
		if h.QuoteID == hold.QuoteID && h.Status == domain.HoldStatusActive {
			return domain.Hold{}, store.ErrConflict
		}
	}
	if hold.ID == uuid.Nil {
		hold.ID = uuid.New()
	}
	t.pending[hold.ID] = hold
	return hold, nil
}
