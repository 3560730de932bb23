package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled  AppointmentStatus = "scheduled"
	AppointmentStatusConfirmed  AppointmentStatus = "confirmed"
	AppointmentStatusInProgress AppointmentStatus = "in_progress"
	AppointmentStatusCompleted  AppointmentStatus = "completed"
	AppointmentStatusCanceled   AppointmentStatus = "canceled"
)

// Appointment is a confirmed booking. It is written by the confirmation
// workflow; this service only reads it to block time.
type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID                  uuid.UUID         `bun:"id,pk,type:uuid"`
	QuoteID             uuid.UUID         `bun:"quote_id,type:uuid,nullzero"`
	PropertyID          uuid.UUID         `bun:"property_id,type:uuid,nullzero"`
	StartAt             time.Time         `bun:"start_at,notnull"`
	DurationMinutes     int               `bun:"duration_minutes,notnull"`
	TravelBufferMinutes int               `bun:"travel_buffer_minutes,notnull"`
	Status              AppointmentStatus `bun:"status,notnull"`
	CreatedAt           time.Time         `bun:"created_at,notnull"`
	UpdatedAt           time.Time         `bun:"updated_at,notnull"`
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.Status == "" {
			a.Status = AppointmentStatusScheduled
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}
