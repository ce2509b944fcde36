package controller

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "fulfillment/internal/errors"
	"fulfillment/internal/fulfillment/usecase"
	"fulfillment/internal/httpresponse"
	ordercontroller "fulfillment/internal/order/controller"
)

type ConfirmCheckoutUseCase interface {
	ConfirmCheckout(ctx context.Context, orderID, sessionID string) (*usecase.CheckoutResult, error)
}

type ConfirmCheckoutRequest struct {
	OrderID   string `json:"orderId"`
	SessionID string `json:"sessionId"`
}

type PaymentView struct {
	Outcome   string `json:"outcome"`
	Recorded  string `json:"recorded"`
	Confirmed bool   `json:"confirmed"`
	Reason    string `json:"reason,omitempty"`
}

type NotificationView struct {
	Channel string `json:"channel"`
	Sent    bool   `json:"sent"`
	Error   string `json:"error,omitempty"`
}

type CheckoutResponse struct {
	TraceID       string                           `json:"traceId"`
	View          string                           `json:"view"`
	OrderID       string                           `json:"orderId"`
	SessionID     string                           `json:"sessionId"`
	Payment       PaymentView                      `json:"payment"`
	Order         *ordercontroller.OrderDetailView `json:"order,omitempty"`
	Notified      bool                             `json:"notified"`
	Notifications []NotificationView               `json:"notifications,omitempty"`
}

type CheckoutController struct {
	useCase ConfirmCheckoutUseCase
	logger  *zap.Logger
}

func NewCheckoutController(useCase ConfirmCheckoutUseCase, logger *zap.Logger) *CheckoutController {
	return &CheckoutController{
		useCase: useCase,
		logger:  logger,
	}
}

// ConfirmCheckout handles POST /checkout/confirm, the landing page after the
// hosted payment page redirects back.
func (c *CheckoutController) ConfirmCheckout(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req ConfirmCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		httpresponse.WriteError(w, traceID, apperrors.NewInvalidRequestError("invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		}), logger)
		return
	}

	result, err := c.useCase.ConfirmCheckout(r.Context(), req.OrderID, req.SessionID)
	if err != nil {
		httpresponse.WriteError(w, traceID, err, logger)
		return
	}

	httpresponse.WriteJSON(w, http.StatusOK, newCheckoutResponse(traceID, result), logger)
}

func newCheckoutResponse(traceID string, result *usecase.CheckoutResult) CheckoutResponse {
	resp := CheckoutResponse{
		TraceID:   traceID,
		View:      string(result.View),
		OrderID:   result.OrderID,
		SessionID: result.SessionID,
		Order:     ordercontroller.NewOrderDetailView(result.Order),
		Notified:  result.Notified,
	}
	if p := result.Payment; p != nil {
		resp.Payment = PaymentView{
			Outcome:   string(p.Status),
			Recorded:  string(p.Recorded),
			Confirmed: p.IsPaid(),
			Reason:    p.Reason,
		}
	}
	for _, n := range result.Notifications {
		view := NotificationView{Channel: n.Channel, Sent: n.Sent}
		if n.Err != nil {
			view.Error = n.Err.Error()
		}
		resp.Notifications = append(resp.Notifications, view)
	}
	return resp
}
