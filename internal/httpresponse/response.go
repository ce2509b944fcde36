// Package httpresponse writes JSON bodies and maps application errors to HTTP
// status codes for every controller.
package httpresponse

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	apperrors "fulfillment/internal/errors"
)

type ErrorResponse struct {
	TraceID      string                       `json:"traceId"`
	Status       int                          `json:"status"`
	Code         string                       `json:"code"`
	Message      string                       `json:"message"`
	Details      []apperrors.ValidationDetail `json:"details,omitempty"`
	CurrentState string                       `json:"currentState,omitempty"`
	RetryCount   *int                         `json:"retryCount,omitempty"`
	Timestamp    time.Time                    `json:"timestamp"`
}

func WriteJSON(w http.ResponseWriter, status int, data any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

// WriteError picks the status code from the error type. Unknown errors are
// logged and reported as 500 without leaking their message.
func WriteError(w http.ResponseWriter, traceID string, err error, logger *zap.Logger) {
	resp := ErrorResponse{
		TraceID:   traceID,
		Message:   err.Error(),
		Timestamp: time.Now().UTC(),
	}

	if ire, ok := apperrors.IsInvalidRequestError(err); ok {
		resp.Status, resp.Code, resp.Details = http.StatusBadRequest, "INVALID_REQUEST", ire.Details
	} else if ve, ok := apperrors.IsValidationError(err); ok {
		resp.Status, resp.Code, resp.Details = http.StatusUnprocessableEntity, "VALIDATION_ERROR", ve.Details
	} else if _, ok := apperrors.IsNotFoundError(err); ok {
		resp.Status, resp.Code = http.StatusNotFound, "NOT_FOUND"
	} else if ce, ok := apperrors.IsConflictError(err); ok {
		resp.Status, resp.Code, resp.CurrentState = http.StatusConflict, "CONFLICT", ce.CurrentState
	} else if de, ok := apperrors.IsDuplicateOperationError(err); ok {
		resp.Status, resp.Code, resp.CurrentState = http.StatusConflict, "DUPLICATE_OPERATION", de.CurrentState
	} else if tce, ok := apperrors.IsTransientCarrierError(err); ok {
		retries := tce.RetryCount
		resp.Status, resp.Code, resp.RetryCount = http.StatusBadGateway, "CARRIER_UNAVAILABLE", &retries
	} else if _, ok := apperrors.IsPaymentVerificationError(err); ok {
		resp.Status, resp.Code = http.StatusBadGateway, "PAYMENT_VERIFICATION_FAILED"
	} else {
		logger.Error("unexpected error", zap.String("traceId", traceID), zap.Error(err))
		resp.Status, resp.Code, resp.Message = http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred"
	}

	if resp.Status < http.StatusInternalServerError {
		logger.Warn("request rejected", zap.String("traceId", traceID), zap.String("code", resp.Code), zap.Error(err))
	}

	WriteJSON(w, resp.Status, resp, logger)
}
