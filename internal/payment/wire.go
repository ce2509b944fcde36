package payment

import (
	"database/sql"
	"time"

	"github.com/stripe/stripe-go/v81"
	"go.uber.org/zap"

	"fulfillment/internal/config"
	"fulfillment/internal/infrastructure/metrics"
	orderrepo "fulfillment/internal/order/repository"
	"fulfillment/internal/payment/controller"
	"fulfillment/internal/payment/gateway"
	"fulfillment/internal/payment/repository"
	"fulfillment/internal/payment/service"
	"fulfillment/internal/payment/usecase"
)

const settlementTxTimeout = 5 * time.Second

type Module struct {
	UseCase    *usecase.ConfirmPaymentUseCase
	Controller *controller.VerifySessionController
}

// NewModule wires the confirmation gate. A nil backend selects the live Stripe API.
func NewModule(
	db *sql.DB,
	cfg *config.Config,
	backend stripe.Backend,
	cache usecase.OrderCache,
	m *metrics.Metrics,
	logger *zap.Logger,
) (*Module, error) {
	gw, err := gateway.NewStripeGateway(cfg.Stripe.SecretKey, backend, cfg.Payment.GatewayTimeout, logger)
	if err != nil {
		return nil, err
	}

	orderRepo := orderrepo.NewMySQLOrderRepository(db)
	confirmationRepo := repository.NewMySQLConfirmationRepository(db)
	settlement := service.NewSettlementService(db, confirmationRepo, orderRepo, logger, settlementTxTimeout)

	uc := usecase.NewConfirmPaymentUseCase(
		orderRepo,
		confirmationRepo,
		gw,
		settlement,
		cache,
		m,
		logger,
		cfg.Payment.ClaimLease,
	)

	return &Module{
		UseCase:    uc,
		Controller: controller.NewVerifySessionController(uc, logger),
	}, nil
}
