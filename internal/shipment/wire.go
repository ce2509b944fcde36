package shipment

import (
	"database/sql"

	"go.uber.org/zap"

	"fulfillment/internal/config"
	"fulfillment/internal/infrastructure/metrics"
	"fulfillment/internal/shipment/carrier"
	"fulfillment/internal/shipment/controller"
	"fulfillment/internal/shipment/repository"
	"fulfillment/internal/shipment/usecase"
)

type Module struct {
	Dimensions *controller.DimensionsController
	Labels     *controller.LabelController
	Pickups    *controller.PickupController
	Status     *controller.StatusController
}

func NewModule(
	db *sql.DB,
	cfg *config.Config,
	orders usecase.OrderLoader,
	store usecase.ArtifactStore,
	cache usecase.OrderCache,
	validator usecase.Validator,
	m *metrics.Metrics,
	logger *zap.Logger,
) (*Module, error) {
	httpCarrier, err := carrier.NewHTTPCarrier(cfg.Carrier, logger)
	if err != nil {
		return nil, err
	}

	repo := repository.NewMySQLShipmentRepository(db)
	lease := cfg.Shipment.LabelClaimLease

	dimensionsUC := usecase.NewDimensionsUseCase(orders, repo, cache, validator, logger)
	labelUC := usecase.NewLabelUseCase(orders, repo, httpCarrier, store, cache, m, logger,
		cfg.Carrier.AccountCode, cfg.Carrier.ServiceCode, lease)
	pickupUC := usecase.NewPickupUseCase(orders, repo, httpCarrier, cache, m, logger,
		cfg.Carrier.AccountCode, lease)
	statusUC := usecase.NewStatusUseCase(orders, repo)

	return &Module{
		Dimensions: controller.NewDimensionsController(dimensionsUC, validator, logger),
		Labels:     controller.NewLabelController(labelUC, logger),
		Pickups:    controller.NewPickupController(pickupUC, logger),
		Status:     controller.NewStatusController(statusUC, logger),
	}, nil
}
