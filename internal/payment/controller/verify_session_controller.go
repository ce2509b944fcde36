package controller

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fulfillment/internal/domain"
	apperrors "fulfillment/internal/errors"
	"fulfillment/internal/httpresponse"
)

type ConfirmPaymentUseCase interface {
	ConfirmPayment(ctx context.Context, orderID, sessionID string) (*domain.PaymentOutcome, error)
}

type VerifySessionRequest struct {
	OrderID   string `json:"orderId"`
	SessionID string `json:"sessionId"`
}

type VerifySessionResponse struct {
	TraceID   string `json:"traceId"`
	OrderID   string `json:"orderId"`
	SessionID string `json:"sessionId"`
	Outcome   string `json:"outcome"`
	Recorded  string `json:"recorded"`
	Confirmed bool   `json:"confirmed"`
	Reason    string `json:"reason,omitempty"`
}

type VerifySessionController struct {
	useCase ConfirmPaymentUseCase
	logger  *zap.Logger
}

func NewVerifySessionController(useCase ConfirmPaymentUseCase, logger *zap.Logger) *VerifySessionController {
	return &VerifySessionController{
		useCase: useCase,
		logger:  logger,
	}
}

func (c *VerifySessionController) VerifySession(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req VerifySessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		httpresponse.WriteError(w, traceID, apperrors.NewInvalidRequestError("invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		}), logger)
		return
	}

	outcome, err := c.useCase.ConfirmPayment(r.Context(), req.OrderID, req.SessionID)
	if err != nil {
		httpresponse.WriteError(w, traceID, err, logger)
		return
	}

	httpresponse.WriteJSON(w, http.StatusOK, VerifySessionResponse{
		TraceID:   traceID,
		OrderID:   outcome.OrderID,
		SessionID: outcome.SessionID,
		Outcome:   string(outcome.Status),
		Recorded:  string(outcome.Recorded),
		Confirmed: outcome.IsPaid(),
		Reason:    outcome.Reason,
	}, logger)
}
