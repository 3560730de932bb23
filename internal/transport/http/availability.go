package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"fieldbook/backend/internal/service/availability"
)

// AvailabilityScanner is the minimal interface needed to scan availability.
type AvailabilityScanner interface {
	Scan(ctx context.Context, in availability.ScanInput) (availability.ScanResult, error)
}

// HandleScanAvailability returns an HTTP handler for ranked slot suggestions.
func HandleScanAvailability(svc AvailabilityScanner, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req scanRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		quoteID, err := uuid.Parse(req.QuoteID)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidID, "invalid quote_id")
			return
		}

		res, err := svc.Scan(r.Context(), availability.ScanInput{
			QuoteID:     quoteID,
			Address:     req.Address.toDomain(),
			HorizonDays: req.HorizonDays,
		})
		if err != nil {
			writeServiceError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, newScanResponse(res))
	}
}

type scanRequest struct {
	QuoteID     string          `json:"quote_id"`
	Address     *addressRequest `json:"address,omitempty"`
	HorizonDays int             `json:"horizon_days,omitempty"`
}

type reasonResponse struct {
	Kind  string  `json:"kind"`
	Value float64 `json:"value"`
	Text  string  `json:"text"`
}

type slotResponse struct {
	StartAt time.Time      `json:"start_at"`
	EndAt   time.Time      `json:"end_at"`
	Reason  reasonResponse `json:"reason"`
}

type dayResponse struct {
	Date   string         `json:"date"`
	Full   bool           `json:"full"`
	Reason reasonResponse `json:"reason"`
	Slots  []slotResponse `json:"slots"`
}

type scanResponse struct {
	Timezone            string         `json:"timezone"`
	DurationMinutes     int            `json:"duration_minutes"`
	Loads               int            `json:"loads"`
	TravelBufferMinutes int            `json:"travel_buffer_minutes"`
	Capacity            int            `json:"capacity"`
	Suggestions         []slotResponse `json:"suggestions"`
	Days                []dayResponse  `json:"days"`
}

func newReasonResponse(r availability.Reason) reasonResponse {
	return reasonResponse{Kind: string(r.Kind), Value: r.Value, Text: r.Text}
}

func newSlotResponses(slots []availability.Slot) []slotResponse {
	out := make([]slotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotResponse{
			StartAt: s.StartAt,
			EndAt:   s.EndAt,
			Reason:  newReasonResponse(s.Reason),
		})
	}
	return out
}

func newScanResponse(res availability.ScanResult) scanResponse {
	days := make([]dayResponse, 0, len(res.Days))
	for _, d := range res.Days {
		days = append(days, dayResponse{
			Date:   d.Date,
			Full:   d.Full,
			Reason: newReasonResponse(d.Reason),
			Slots:  newSlotResponses(d.Slots),
		})
	}
	return scanResponse{
		Timezone:            res.Timezone,
		DurationMinutes:     res.DurationMinutes,
		Loads:               res.Loads,
		TravelBufferMinutes: res.TravelBufferMinutes,
		Capacity:            res.Capacity,
		Suggestions:         newSlotResponses(res.Suggestions),
		Days:                days,
	}
}
