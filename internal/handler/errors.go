package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/car-rental-system/internal/model"
	"github.com/mmeshcher/car-rental-system/internal/service"
)

// retryAfterSeconds: подсказка клиенту при Busy.
const retryAfterSeconds = "1"

func statusFor(code service.Code) int {
	switch code {
	case service.CodeInvalidDateRange,
		service.CodeInvalidPaymentMethod,
		service.CodeInvalidTransition,
		service.CodeActiveReservationBlocksStatusChange:
		return http.StatusBadRequest
	case service.CodeCarNotFound,
		service.CodeCustomerProfileMissing,
		service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeCarUnavailable,
		service.CodeDateRangeConflict,
		service.CodeStaleState:
		return http.StatusConflict
	case service.CodeBusy:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var e *service.Error
	if !errors.As(err, &e) {
		e = &service.Error{Code: service.CodeStorage, Message: "storage error", Err: err}
	}

	status := statusFor(e.Code)
	body := map[string]any{
		"error":   e.Code,
		"message": e.Message,
	}

	if e.Conflict != nil {
		body["conflict"] = map[string]string{
			"startDate": e.Conflict.Start.Format(model.DateLayout),
			"endDate":   e.Conflict.End.Format(model.DateLayout),
		}
		body["availableFrom"] = e.Conflict.End.Format(model.DateLayout)
	}
	if !e.BlockedUntil.IsZero() {
		body["blockedUntil"] = e.BlockedUntil.Format(model.DateLayout)
	}

	switch status {
	case http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", retryAfterSeconds)
	case http.StatusInternalServerError:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		body["message"] = "internal error"
	}

	writeJSON(w, status, body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
