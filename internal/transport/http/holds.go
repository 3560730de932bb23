package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"fieldbook/backend/internal/domain"
	"fieldbook/backend/internal/service/holds"
)

// HoldService is the minimal interface needed by the hold endpoints.
type HoldService interface {
	CreateHold(ctx context.Context, in holds.CreateInput) (holds.Result, error)
	GetHandoff(ctx context.Context, holdID uuid.UUID) (domain.Handoff, error)
	ReleaseHold(ctx context.Context, holdID uuid.UUID) (domain.Hold, error)
}

// HandleCreateHold returns an HTTP handler for placing holds.
func HandleCreateHold(svc HoldService, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createHoldRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		quoteID, err := uuid.Parse(req.QuoteID)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidID, "invalid quote_id")
			return
		}
		startAt, err := time.Parse(time.RFC3339, req.StartAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidStartAt, "invalid start_at format")
			return
		}

		res, err := svc.CreateHold(r.Context(), holds.CreateInput{
			QuoteID: quoteID,
			StartAt: startAt,
			Address: req.Address.toDomain(),
		})
		if err != nil {
			writeServiceError(w, log, err)
			return
		}

		writeJSON(w, http.StatusCreated, createHoldResponse{
			HoldID:              res.Hold.ID.String(),
			QuoteID:             res.Hold.QuoteID.String(),
			Status:              string(res.Hold.Status),
			StartAt:             res.Hold.StartAt,
			EndAt:               res.Hold.EndAt(),
			ExpiresAt:           res.Hold.ExpiresAt,
			DurationMinutes:     res.Hold.DurationMinutes,
			TravelBufferMinutes: res.Hold.TravelBufferMinutes,
			StandardJobReview:   res.Review,
		})
	}
}

// HandleHold returns an HTTP handler for reading (hand-off) and releasing one hold.
func HandleHold(svc HoldService, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		holdID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidID, "invalid hold id")
			return
		}

		switch r.Method {
		case http.MethodGet:
			h, err := svc.GetHandoff(r.Context(), holdID)
			if err != nil {
				writeServiceError(w, log, err)
				return
			}
			writeJSON(w, http.StatusOK, handoffResponse{
				HoldID:              h.HoldID.String(),
				QuoteID:             h.QuoteID.String(),
				StartAt:             h.StartAt,
				DurationMinutes:     h.DurationMinutes,
				TravelBufferMinutes: h.TravelBufferMinutes,
				ExpiresAt:           h.ExpiresAt,
			})
		case http.MethodDelete:
			if _, err := svc.ReleaseHold(r.Context(), holdID); err != nil {
				writeServiceError(w, log, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

type createHoldRequest struct {
	QuoteID string          `json:"quote_id"`
	StartAt string          `json:"start_at"`
	Address *addressRequest `json:"address,omitempty"`
}

type createHoldResponse struct {
	HoldID              string                    `json:"hold_id"`
	QuoteID             string                    `json:"quote_id"`
	Status              string                    `json:"status"`
	StartAt             time.Time                 `json:"start_at"`
	EndAt               time.Time                 `json:"end_at"`
	ExpiresAt           time.Time                 `json:"expires_at"`
	DurationMinutes     int                       `json:"duration_minutes"`
	TravelBufferMinutes int                       `json:"travel_buffer_minutes"`
	StandardJobReview   *domain.StandardJobReview `json:"standard_job_review,omitempty"`
}

type handoffResponse struct {
	HoldID              string    `json:"hold_id"`
	QuoteID             string    `json:"quote_id"`
	StartAt             time.Time `json:"start_at"`
	DurationMinutes     int       `json:"duration_minutes"`
	TravelBufferMinutes int       `json:"travel_buffer_minutes"`
	ExpiresAt           time.Time `json:"expires_at"`
}
