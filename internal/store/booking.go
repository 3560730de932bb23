package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fieldbook/backend/internal/domain"
)

// DefaultPadding widens commitment reads around a slot or scan range so
// neighbouring jobs are available for ranking.
const DefaultPadding = 24 * time.Hour

type QuoteReader interface {
	GetQuote(ctx context.Context, quoteID uuid.UUID) (domain.Quote, error)
}

type PolicyReader interface {
	GetPolicy(ctx context.Context) (domain.Policy, error)
}

// CommitmentReader lists non-canceled appointments and live holds whose
// blocked interval, travel buffer included, overlaps [windowStart, windowEnd).
type CommitmentReader interface {
	ListCommitments(ctx context.Context, windowStart, windowEnd, now time.Time) ([]domain.Commitment, error)
}

type HoldRepository interface {
	InDayTransaction(ctx context.Context, quoteID uuid.UUID, dayKeys []int32, fn func(ctx context.Context, tx DayTx) error) error
	GetHold(ctx context.Context, holdID uuid.UUID) (domain.Hold, error)
	ReleaseHold(ctx context.Context, holdID uuid.UUID, now time.Time) (domain.Hold, error)
}
