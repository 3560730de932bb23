package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"fieldbook/backend/internal/domain"
)

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

type addressRequest struct {
	Line1      string   `json:"line1"`
	City       string   `json:"city"`
	State      string   `json:"state"`
	PostalCode string   `json:"postal_code"`
	Lat        *float64 `json:"lat,omitempty"`
	Lng        *float64 `json:"lng,omitempty"`
}

func (a *addressRequest) toDomain() domain.Address {
	if a == nil {
		return domain.Address{}
	}
	addr := domain.Address{
		Line1:      a.Line1,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
	}
	if a.Lat != nil && a.Lng != nil {
		addr.Location = &domain.LatLng{Lat: *a.Lat, Lng: *a.Lng}
	}
	return addr
}
