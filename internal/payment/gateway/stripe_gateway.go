// Package gateway verifies checkout sessions with the payment provider.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
	"go.uber.org/zap"
)

// Verification is the gateway's answer for one session. Reason is set when
// Confirmed is false. Pending marks a session that may still be paid: an open
// session or a completed one whose asynchronous payment has not cleared.
type Verification struct {
	Confirmed     bool
	Pending       bool
	Reason        string
	PaymentStatus string
	AmountTotal   int64
	Currency      string
}

type StripeGateway struct {
	client  session.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewStripeGateway uses the default Stripe API backend when backend is nil.
func NewStripeGateway(secretKey string, backend stripe.Backend, timeout time.Duration, logger *zap.Logger) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}
	if backend == nil {
		backend = stripe.GetBackend(stripe.APIBackend)
	}
	return &StripeGateway{
		client:  session.Client{B: backend, Key: secretKey},
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Verify retrieves the checkout session and decides whether it settles the
// order. Only errors about the session itself (unknown or malformed id) are a
// rejection. Transport failures, rate limiting, auth errors and 5xx are
// returned as errors so the caller can retry.
func (g *StripeGateway) Verify(ctx context.Context, orderID, sessionID string) (*Verification, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	cs, err := g.client.Get(sessionID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && rejectsSession(stripeErr) {
			g.logger.Warn("checkout session rejected by gateway",
				zap.String("orderId", orderID),
				zap.String("sessionId", sessionID),
				zap.Int("httpStatus", stripeErr.HTTPStatusCode),
				zap.String("code", string(stripeErr.Code)))
			return &Verification{Reason: fmt.Sprintf("gateway rejected session: %s", stripeErr.Msg)}, nil
		}
		return nil, fmt.Errorf("retrieving checkout session %s: %w", sessionID, err)
	}

	return evaluate(orderID, cs), nil
}

func rejectsSession(e *stripe.Error) bool {
	switch e.HTTPStatusCode {
	case http.StatusNotFound:
		return true
	case http.StatusBadRequest:
		return e.Type == stripe.ErrorTypeInvalidRequest || e.Code == stripe.ErrorCodeResourceMissing
	default:
		return false
	}
}

func evaluate(orderID string, cs *stripe.CheckoutSession) *Verification {
	v := &Verification{
		PaymentStatus: string(cs.PaymentStatus),
		AmountTotal:   cs.AmountTotal,
		Currency:      string(cs.Currency),
	}

	ref := cs.ClientReferenceID
	if ref == "" {
		ref = cs.Metadata["order_id"]
	}

	switch {
	case ref != orderID:
		v.Reason = "session does not belong to this order"
	case cs.Status == stripe.CheckoutSessionStatusOpen:
		v.Pending = true
		v.Reason = "session is still open"
	case cs.Status != stripe.CheckoutSessionStatusComplete:
		v.Reason = fmt.Sprintf("session status is %s", cs.Status)
	case cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid:
		v.Pending = true
		v.Reason = "payment is still processing"
	case cs.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid &&
		cs.PaymentStatus != stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
		v.Reason = fmt.Sprintf("payment status is %s", cs.PaymentStatus)
	default:
		v.Confirmed = true
	}
	return v
}
