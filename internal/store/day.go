package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fieldbook/backend/internal/domain"
)

// DayTx is the unit of work for one hold placement. Implementations hold an
// exclusive lock on the quote and on every calendar day the placement spans
// for the lifetime of the transaction. CountDayCommitments counts by start;
// ListCommitments selects by overlap like CommitmentReader.
type DayTx interface {
	ReleaseActiveHolds(ctx context.Context, quoteID uuid.UUID, now time.Time) (int, error)
	CountDayCommitments(ctx context.Context, dayStart, dayEnd, now time.Time) (int, error)
	ListCommitments(ctx context.Context, windowStart, windowEnd, now time.Time) ([]domain.Commitment, error)
	CreateHold(ctx context.Context, hold domain.Hold) (domain.Hold, error)
}
