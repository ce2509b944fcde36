package usecase

import (
	"context"

	"go.uber.org/zap"

	"fulfillment/internal/domain"
	"fulfillment/internal/notification"
)

// CheckoutView selects what the checkout landing page shows.
type CheckoutView string

const (
	CheckoutViewConfirmed  CheckoutView = "CONFIRMED"
	CheckoutViewProcessing CheckoutView = "PROCESSING"
	CheckoutViewFailed     CheckoutView = "FAILED"
)

type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, orderID, sessionID string) (*domain.PaymentOutcome, error)
}

type OrderLoader interface {
	LoadOrder(ctx context.Context, orderID string) (*domain.OrderDetail, error)
}

type Notifier interface {
	Dispatch(ctx context.Context, detail *domain.OrderDetail, channels []string) notification.DispatchResult
}

// CheckoutResult is the combined outcome of one checkout confirmation.
// Order is nil for FAILED and PROCESSING views and when the order could not
// be read back after payment.
type CheckoutResult struct {
	View          CheckoutView
	OrderID       string
	SessionID     string
	Payment       *domain.PaymentOutcome
	Order         *domain.OrderDetail
	Notified      bool
	Notifications []notification.ChannelOutcome
}

type ConfirmCheckoutUseCase struct {
	payments PaymentConfirmer
	orders   OrderLoader
	notifier Notifier
	channels []string
	logger   *zap.Logger
}

func NewConfirmCheckoutUseCase(payments PaymentConfirmer, orders OrderLoader, notifier Notifier, channels []string, logger *zap.Logger) *ConfirmCheckoutUseCase {
	return &ConfirmCheckoutUseCase{
		payments: payments,
		orders:   orders,
		notifier: notifier,
		channels: channels,
		logger:   logger,
	}
}

// ConfirmCheckout confirms the payment, materializes the order and sends
// notifications. Only the call that flipped the order to PAID notifies, so
// reloads and webhook replays never resend.
func (uc *ConfirmCheckoutUseCase) ConfirmCheckout(ctx context.Context, orderID, sessionID string) (*CheckoutResult, error) {
	outcome, err := uc.payments.ConfirmPayment(ctx, orderID, sessionID)
	if err != nil {
		return nil, err
	}

	result := &CheckoutResult{
		OrderID:   outcome.OrderID,
		SessionID: outcome.SessionID,
		Payment:   outcome,
	}
	logger := uc.logger.With(zap.String("orderId", outcome.OrderID), zap.String("sessionId", outcome.SessionID))

	switch {
	case outcome.Status == domain.PaymentOutcomeRejected:
		result.View = CheckoutViewFailed
		logger.Info("checkout payment rejected", zap.String("reason", outcome.Reason))
		return result, nil

	case outcome.IsPaid():
		result.View = CheckoutViewConfirmed

	case outcome.Recorded == domain.ConfirmationRejected:
		result.View = CheckoutViewFailed
		return result, nil

	default:
		// Another invocation holds the claim, or the payment has not cleared yet.
		result.View = CheckoutViewProcessing
		return result, nil
	}

	// Payment is committed from here on; nothing below may turn it into a failure.
	ctx = context.WithoutCancel(ctx)

	detail, err := uc.orders.LoadOrder(ctx, outcome.OrderID)
	if err != nil {
		logger.Error("paid order could not be materialized", zap.Error(err))
		return result, nil
	}
	result.Order = detail

	if outcome.Status != domain.PaymentOutcomeConfirmed {
		return result, nil
	}

	dispatch := uc.notifier.Dispatch(ctx, detail, uc.channels)
	result.Notified = true
	result.Notifications = dispatch.Outcomes
	logger.Info("checkout confirmed",
		zap.Int("channels", len(dispatch.Outcomes)),
		zap.Bool("allNotificationsSent", dispatch.AllSent()))

	return result, nil
}
