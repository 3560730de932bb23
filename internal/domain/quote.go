package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Address is a service location as entered by the customer. Location is set
// when the caller (or an earlier geocode) already knows the coordinates.
type Address struct {
	Line1      string  `json:"line1"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Location   *LatLng `json:"location,omitempty"`
}

func (a Address) IsZero() bool {
	return strings.TrimSpace(a.Line1) == "" &&
		strings.TrimSpace(a.City) == "" &&
		strings.TrimSpace(a.State) == "" &&
		strings.TrimSpace(a.PostalCode) == "" &&
		a.Location == nil
}

// String renders the address on one line for geocoding.
func (a Address) String() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Line1, a.City, a.State, a.PostalCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

type Property struct {
	bun.BaseModel `bun:"table:properties"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	Line1      string    `bun:"address_line1,notnull"`
	City       string    `bun:"city,notnull"`
	State      string    `bun:"state,notnull"`
	PostalCode string    `bun:"postal_code,notnull"`
	Latitude   *float64  `bun:"latitude"`
	Longitude  *float64  `bun:"longitude"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
}

func (p *Property) Address() Address {
	if p == nil {
		return Address{}
	}
	addr := Address{
		Line1:      p.Line1,
		City:       p.City,
		State:      p.State,
		PostalCode: p.PostalCode,
	}
	if p.Latitude != nil && p.Longitude != nil {
		addr.Location = &LatLng{Lat: *p.Latitude, Lng: *p.Longitude}
	}
	return addr
}

// Quote is created upstream and is read-only here.
type Quote struct {
	bun.BaseModel `bun:"table:quotes"`

	ID            uuid.UUID `bun:"id,pk,type:uuid"`
	PropertyID    uuid.UUID `bun:"property_id,type:uuid,nullzero"`
	PerceivedSize string    `bun:"perceived_size,notnull"`
	AIPriceMax    *float64  `bun:"ai_price_max"`
	CreatedAt     time.Time `bun:"created_at,notnull"`

	Property *Property `bun:"rel:belongs-to,join:property_id=id"`
}

func (q Quote) Signals() JobSignals {
	return JobSignals{
		PerceivedSize: q.PerceivedSize,
		AIPriceMax:    q.AIPriceMax,
	}
}
