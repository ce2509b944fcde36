package order

import (
	"database/sql"

	"go.uber.org/zap"

	"fulfillment/internal/order/controller"
	orderrepo "fulfillment/internal/order/repository"
	"fulfillment/internal/order/usecase"
	shipmentrepo "fulfillment/internal/shipment/repository"
)

type Module struct {
	UseCase    *usecase.LoadOrderUseCase
	Controller *controller.OrderController
}

func NewModule(db *sql.DB, cache usecase.DetailCache, logger *zap.Logger) *Module {
	uc := usecase.NewLoadOrderUseCase(
		orderrepo.NewMySQLOrderRepository(db),
		orderrepo.NewMySQLOrderItemRepository(db),
		orderrepo.NewMySQLShippingAddressRepository(db),
		shipmentrepo.NewMySQLShipmentRepository(db),
		cache,
		logger,
	)

	return &Module{
		UseCase:    uc,
		Controller: controller.NewOrderController(uc, logger),
	}
}
