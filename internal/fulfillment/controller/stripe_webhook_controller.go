package controller

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"

	apperrors "fulfillment/internal/errors"
	"fulfillment/internal/httpresponse"
)

const maxWebhookBody = 64 << 10

type WebhookResponse struct {
	TraceID  string `json:"traceId"`
	EventID  string `json:"eventId"`
	Received bool   `json:"received"`
	Ignored  bool   `json:"ignored,omitempty"`
	View     string `json:"view,omitempty"`
}

// StripeWebhookController feeds completed Checkout Sessions into the same
// pipeline as the landing page, so a shopper who never returns still gets a
// confirmed order.
type StripeWebhookController struct {
	useCase ConfirmCheckoutUseCase
	secret  string
	logger  *zap.Logger
}

func NewStripeWebhookController(useCase ConfirmCheckoutUseCase, secret string, logger *zap.Logger) *StripeWebhookController {
	return &StripeWebhookController{
		useCase: useCase,
		secret:  secret,
		logger:  logger,
	}
}

// HandleEvent handles POST /webhooks/stripe.
func (c *StripeWebhookController) HandleEvent(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httpresponse.WriteError(w, traceID, apperrors.NewInvalidRequestError("unreadable body"), logger)
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, r.Header.Get("Stripe-Signature"), c.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		logger.Warn("webhook signature verification failed", zap.Error(err))
		httpresponse.WriteError(w, traceID, apperrors.NewInvalidRequestError("invalid webhook signature", apperrors.ValidationDetail{
			Field:   "Stripe-Signature",
			Message: "signature does not match payload",
		}), logger)
		return
	}
	logger = logger.With(zap.String("eventId", event.ID), zap.String("eventType", string(event.Type)))

	resp := WebhookResponse{TraceID: traceID, EventID: event.ID, Received: true}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
	default:
		logger.Debug("unhandled webhook event type")
		resp.Ignored = true
		httpresponse.WriteJSON(w, http.StatusOK, resp, logger)
		return
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		httpresponse.WriteError(w, traceID, apperrors.NewInvalidRequestError("malformed checkout session payload"), logger)
		return
	}

	orderID := session.ClientReferenceID
	if orderID == "" {
		orderID = session.Metadata["order_id"]
	}
	if orderID == "" {
		// Sessions not created by the storefront are acknowledged so Stripe stops retrying.
		logger.Info("checkout session without order reference", zap.String("sessionId", session.ID))
		resp.Ignored = true
		httpresponse.WriteJSON(w, http.StatusOK, resp, logger)
		return
	}

	result, err := c.useCase.ConfirmCheckout(r.Context(), orderID, session.ID)
	if err != nil {
		// A non-2xx answer makes Stripe redeliver later.
		httpresponse.WriteError(w, traceID, err, logger)
		return
	}

	resp.View = string(result.View)
	logger.Info("checkout webhook processed", zap.String("orderId", orderID), zap.String("view", resp.View))
	httpresponse.WriteJSON(w, http.StatusOK, resp, logger)
}
