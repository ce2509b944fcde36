package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fulfillment/internal/domain"
	apperrors "fulfillment/internal/errors"
)

type mockConfirmPaymentUseCase struct {
	ConfirmPaymentFunc func(ctx context.Context, orderID, sessionID string) (*domain.PaymentOutcome, error)
}

func (m *mockConfirmPaymentUseCase) ConfirmPayment(ctx context.Context, orderID, sessionID string) (*domain.PaymentOutcome, error) {
	return m.ConfirmPaymentFunc(ctx, orderID, sessionID)
}

func post(t *testing.T, c *VerifySessionController, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/payment/verify-session", strings.NewReader(body))
	rec := httptest.NewRecorder()
	c.VerifySession(rec, req)
	return rec
}

func TestVerifySession_Confirmed(t *testing.T) {
	uc := &mockConfirmPaymentUseCase{
		ConfirmPaymentFunc: func(ctx context.Context, orderID, sessionID string) (*domain.PaymentOutcome, error) {
			assert.Equal(t, "O1", orderID)
			assert.Equal(t, "cs_1", sessionID)
			return &domain.PaymentOutcome{
				OrderID: orderID, SessionID: sessionID,
				Status:       domain.PaymentOutcomeConfirmed,
				Recorded:     domain.ConfirmationConfirmed,
				PaymentState: domain.PaymentStatePaid,
			}, nil
		},
	}

	rec := post(t, NewVerifySessionController(uc, zap.NewNop()), `{"orderId":"O1","sessionId":"cs_1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp VerifySessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "CONFIRMED", resp.Outcome)
	assert.True(t, resp.Confirmed)
	assert.NotEmpty(t, resp.TraceID)
}

func TestVerifySession_Rejected(t *testing.T) {
	uc := &mockConfirmPaymentUseCase{
		ConfirmPaymentFunc: func(ctx context.Context, orderID, sessionID string) (*domain.PaymentOutcome, error) {
			return &domain.PaymentOutcome{
				OrderID: orderID, SessionID: sessionID,
				Status:       domain.PaymentOutcomeRejected,
				Recorded:     domain.ConfirmationRejected,
				PaymentState: domain.PaymentStateUnpaid,
				Reason:       "payment status is unpaid",
			}, nil
		},
	}

	rec := post(t, NewVerifySessionController(uc, zap.NewNop()), `{"orderId":"O1","sessionId":"cs_1"}`)

	var resp VerifySessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Confirmed)
	assert.Equal(t, "payment status is unpaid", resp.Reason)
}

func TestVerifySession_MalformedBody(t *testing.T) {
	uc := &mockConfirmPaymentUseCase{}

	rec := post(t, NewVerifySessionController(uc, zap.NewNop()), `{not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifySession_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"missing ids", apperrors.NewInvalidRequestError("missing payment identifiers"), http.StatusBadRequest},
		{"unknown order", apperrors.NewNotFoundError("order O9 not found"), http.StatusNotFound},
		{"gateway down", apperrors.NewPaymentVerificationError("O1", "cs_1", errors.New("timeout")), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &mockConfirmPaymentUseCase{
				ConfirmPaymentFunc: func(ctx context.Context, orderID, sessionID string) (*domain.PaymentOutcome, error) {
					return nil, tt.err
				},
			}

			rec := post(t, NewVerifySessionController(uc, zap.NewNop()), `{"orderId":"O1","sessionId":"cs_1"}`)

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), "traceId")
		})
	}
}
