package fulfillment

import (
	"go.uber.org/zap"

	"fulfillment/internal/config"
	"fulfillment/internal/fulfillment/controller"
	"fulfillment/internal/fulfillment/usecase"
)

type Module struct {
	Checkout *controller.CheckoutController
	Webhook  *controller.StripeWebhookController
}

func NewModule(
	cfg *config.Config,
	payments usecase.PaymentConfirmer,
	orders usecase.OrderLoader,
	notifier usecase.Notifier,
	logger *zap.Logger,
) *Module {
	uc := usecase.NewConfirmCheckoutUseCase(payments, orders, notifier, cfg.Notification.Channels, logger)

	return &Module{
		Checkout: controller.NewCheckoutController(uc, logger),
		Webhook:  controller.NewStripeWebhookController(uc, cfg.Stripe.WebhookSecret, logger),
	}
}
