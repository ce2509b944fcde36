package httpresponse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "fulfillment/internal/errors"
)

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid request", apperrors.NewInvalidRequestError("orderId is required"), http.StatusBadRequest, "INVALID_REQUEST"},
		{"validation", apperrors.NewValidationError("bad", apperrors.ValidationDetail{Field: "weight", Message: "x"}), http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"not found", apperrors.NewNotFoundError("order O1 not found"), http.StatusNotFound, "NOT_FOUND"},
		{"conflict", apperrors.NewConflictError("label exists", "LABEL_GENERATED"), http.StatusConflict, "CONFLICT"},
		{"duplicate", apperrors.NewDuplicateOperationError("label exists", "LABEL_GENERATED"), http.StatusConflict, "DUPLICATE_OPERATION"},
		{"carrier", apperrors.NewTransientCarrierError("carrier down", 2, errors.New("503")), http.StatusBadGateway, "CARRIER_UNAVAILABLE"},
		{"payment", apperrors.NewPaymentVerificationError("O1", "cs_1", errors.New("timeout")), http.StatusBadGateway, "PAYMENT_VERIFICATION_FAILED"},
		{"wrapped not found", fmt.Errorf("loading: %w", apperrors.NewNotFoundError("gone")), http.StatusNotFound, "NOT_FOUND"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, "trace-1", tt.err, zap.NewNop())

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "trace-1", resp.TraceID)
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
}

func TestWriteError_CarriesStateAndRetryCount(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, "t", apperrors.NewConflictError("label exists", "LABEL_GENERATED"), zap.NewNop())

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "LABEL_GENERATED", resp.CurrentState)

	rec = httptest.NewRecorder()
	WriteError(rec, "t", apperrors.NewTransientCarrierError("carrier down", 3, nil), zap.NewNop())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.RetryCount)
	assert.Equal(t, 3, *resp.RetryCount)
}

func TestWriteError_HidesInternalMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, "t", errors.New("dial tcp 10.0.0.1:3306: refused"), zap.NewNop())

	assert.NotContains(t, rec.Body.String(), "10.0.0.1")
}
