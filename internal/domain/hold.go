package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type HoldStatus string

const (
	HoldStatusActive   HoldStatus = "active"
	HoldStatusReleased HoldStatus = "released"
)

// Hold reserves one slot for a quote until ExpiresAt. Expiry is never written
// back; readers treat a hold as live only while status is active and
// ExpiresAt is in the future.
type Hold struct {
	bun.BaseModel `bun:"table:holds"`

	ID                  uuid.UUID  `bun:"id,pk,type:uuid"`
	QuoteID             uuid.UUID  `bun:"quote_id,type:uuid,notnull"`
	StartAt             time.Time  `bun:"start_at,notnull"`
	DurationMinutes     int        `bun:"duration_minutes,notnull"`
	TravelBufferMinutes int        `bun:"travel_buffer_minutes,notnull"`
	Status              HoldStatus `bun:"status,notnull"`
	ExpiresAt           time.Time  `bun:"expires_at,notnull"`
	City                string     `bun:"city,notnull"`
	State               string     `bun:"state,notnull"`
	Latitude            *float64   `bun:"latitude"`
	Longitude           *float64   `bun:"longitude"`
	CreatedAt           time.Time  `bun:"created_at,notnull"`
	UpdatedAt           time.Time  `bun:"updated_at,notnull"`
}

func (h *Hold) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if h.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			h.ID = id
		}
		if h.CreatedAt.IsZero() {
			h.CreatedAt = now
		}
		if h.UpdatedAt.IsZero() {
			h.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		h.UpdatedAt = now
	}
	return nil
}

func (h Hold) Duration() time.Duration {
	return time.Duration(h.DurationMinutes) * time.Minute
}

func (h Hold) EndAt() time.Time {
	return h.StartAt.Add(h.Duration())
}

// Live reports whether the hold still blocks capacity at now.
func (h Hold) Live(now time.Time) bool {
	return h.Status == HoldStatusActive && h.ExpiresAt.After(now)
}

// Handoff is what the confirmation step needs to promote a hold into an appointment.
type Handoff struct {
	HoldID              uuid.UUID
	QuoteID             uuid.UUID
	StartAt             time.Time
	DurationMinutes     int
	TravelBufferMinutes int
	ExpiresAt           time.Time
}

func (h Hold) Handoff() Handoff {
	return Handoff{
		HoldID:              h.ID,
		QuoteID:             h.QuoteID,
		StartAt:             h.StartAt,
		DurationMinutes:     h.DurationMinutes,
		TravelBufferMinutes: h.TravelBufferMinutes,
		ExpiresAt:           h.ExpiresAt,
	}
}
