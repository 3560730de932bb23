package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type CommitmentKind string

const (
	CommitmentAppointment CommitmentKind = "appointment"
	CommitmentHold        CommitmentKind = "hold"
)

// Commitment is a non-canceled appointment or a live hold, flattened with
// its location for blocking and ranking.
type Commitment struct {
	Kind                CommitmentKind `bun:"kind"`
	ID                  uuid.UUID      `bun:"id,type:uuid"`
	QuoteID             uuid.UUID      `bun:"quote_id,type:uuid"`
	StartAt             time.Time      `bun:"start_at"`
	DurationMinutes     int            `bun:"duration_minutes"`
	TravelBufferMinutes int            `bun:"travel_buffer_minutes"`
	City                string         `bun:"city"`
	State               string         `bun:"state"`
	Latitude            *float64       `bun:"latitude"`
	Longitude           *float64       `bun:"longitude"`
}

// Blocked is the interval the commitment occupies including travel to the next job.
func (c Commitment) Blocked() Interval {
	end := c.StartAt.Add(time.Duration(c.DurationMinutes+c.TravelBufferMinutes) * time.Minute)
	return Interval{Start: c.StartAt, End: end}
}

func (c Commitment) Location() *LatLng {
	if c.Latitude == nil || c.Longitude == nil {
		return nil
	}
	return &LatLng{Lat: *c.Latitude, Lng: *c.Longitude}
}

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// OverlapCount counts blocked intervals intersecting slot.
func OverlapCount(blocked []Interval, slot Interval) int {
	n := 0
	for _, b := range blocked {
		if b.Overlaps(slot) {
			n++
		}
	}
	return n
}

func BlockedIntervals(cs []Commitment) []Interval {
	out := make([]Interval, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Blocked())
	}
	return out
}

const earthRadiusKm = 6371.0

// DistanceKm is the great-circle distance between a and b.
func DistanceKm(a, b LatLng) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}
