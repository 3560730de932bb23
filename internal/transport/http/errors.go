package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fieldbook/backend/internal/domain"
	"fieldbook/backend/internal/store"
)

const (
	codeMethodNotAllowed   = "method_not_allowed"
	codeNotFound           = "not_found"
	codeInvalidRequestBody = "invalid_request_body"
	codeInvalidID          = "invalid_id"
	codeInvalidStartAt     = "invalid_start_at"
	codeQuoteNotFound      = "quote_not_found"
	codeHoldNotFound       = "hold_not_found"
	codeHoldExpired        = "hold_expired"
	codeHoldReleased       = "hold_released"
	codeHoldConflict       = "hold_conflict"
	codeDayFull            = "day_full"
	codeSlotFull           = "slot_full"
	codeForbidden          = "forbidden"
	codeTimeout            = "timeout"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps service and store errors onto HTTP statuses and stable codes.
func writeServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		log.Warn("request rejected", slog.String("code", vErr.Code), slog.String("reason", vErr.Error()))
		writeError(w, http.StatusBadRequest, vErr.Code, vErr.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, codeQuoteNotFound, "quote not found")
	case errors.Is(err, domain.ErrHoldNotFound):
		writeError(w, http.StatusNotFound, codeHoldNotFound, err.Error())
	case errors.Is(err, domain.ErrHoldExpired):
		writeError(w, http.StatusGone, codeHoldExpired, err.Error())
	case errors.Is(err, domain.ErrHoldReleased):
		writeError(w, http.StatusGone, codeHoldReleased, err.Error())
	case errors.Is(err, domain.ErrDayFull):
		writeError(w, http.StatusConflict, codeDayFull, "no more jobs can be booked on this day")
	case errors.Is(err, domain.ErrSlotFull):
		writeError(w, http.StatusConflict, codeSlotFull, "this time is no longer available")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, codeHoldConflict, "another hold for this quote is being placed")
	case errors.Is(err, context.DeadlineExceeded):
		log.Error("request timed out", slog.Any("err", err))
		writeError(w, http.StatusServiceUnavailable, codeTimeout, "request timed out")
	default:
		log.Error("request failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
