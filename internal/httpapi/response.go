package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/godilite/pulse-server/internal/service"
)

type SuccessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, SuccessResponse{Status: "success", Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message, requestID string) {
	writeJSON(w, status, ErrorResponse{Status: "error", Error: ErrorPayload{Code: code, Message: message, RequestID: requestID}})
}

// mapServiceError returns the HTTP status, error code and client-safe message for err.
func mapServiceError(err error) (int, string, string) {
	switch {
	case errors.Is(err, service.ErrInvalidLimit), errors.Is(err, service.ErrInvalidRange):
		return http.StatusBadRequest, "invalid_input", err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout", "request timed out"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "canceled", "request canceled"
	case errors.Is(err, service.ErrStorageFailure):
		return http.StatusInternalServerError, "storage_failure", "database error"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}
