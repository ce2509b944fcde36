package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"fulfillment/internal/domain"
	apperrors "fulfillment/internal/errors"
)

type OrderRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Order, error)
}

type OrderItemRepository interface {
	FindByOrderID(ctx context.Context, orderID string) ([]domain.OrderItem, error)
}

type ShippingAddressRepository interface {
	FindByOrderID(ctx context.Context, orderID string) (*domain.ShippingAddress, error)
}

type ShipmentRepository interface {
	FindByOrderID(ctx context.Context, orderID string) (domain.Shipment, error)
}

// DetailCache is a read-through cache of materialized orders. Get returns
// (nil, nil) on a miss.
type DetailCache interface {
	Get(ctx context.Context, orderID string) (*domain.OrderDetail, error)
	Set(ctx context.Context, detail *domain.OrderDetail) error
}

type LoadOrderUseCase struct {
	orderRepo    OrderRepository
	itemRepo     OrderItemRepository
	addressRepo  ShippingAddressRepository
	shipmentRepo ShipmentRepository
	cache        DetailCache
	logger       *zap.Logger
}

func NewLoadOrderUseCase(
	orderRepo OrderRepository,
	itemRepo OrderItemRepository,
	addressRepo ShippingAddressRepository,
	shipmentRepo ShipmentRepository,
	cache DetailCache,
	logger *zap.Logger,
) *LoadOrderUseCase {
	return &LoadOrderUseCase{
		orderRepo:    orderRepo,
		itemRepo:     itemRepo,
		addressRepo:  addressRepo,
		shipmentRepo: shipmentRepo,
		cache:        cache,
		logger:       logger,
	}
}

// LoadOrder returns the order with its items, shipping address, shipment row
// and derived shipment state. Cache failures degrade to a database read.
func (uc *LoadOrderUseCase) LoadOrder(ctx context.Context, orderID string) (*domain.OrderDetail, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, apperrors.NewInvalidRequestError("orderId is required", apperrors.ValidationDetail{
			Field:   "orderId",
			Message: "orderId is required",
		})
	}
	logger := uc.logger.With(zap.String("orderId", orderID))

	cached, err := uc.cache.Get(ctx, orderID)
	if err != nil {
		logger.Warn("order cache read failed", zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	order, err := uc.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	items, err := uc.itemRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	address, err := uc.addressRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	shipment, err := uc.shipmentRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	detail := &domain.OrderDetail{
		Order:    *order,
		Items:    items,
		Address:  address,
		Shipment: shipment,
		State:    domain.DeriveShipmentState(shipment),
	}

	if err := uc.cache.Set(context.WithoutCancel(ctx), detail); err != nil {
		logger.Warn("order cache write failed", zap.Error(err))
	}

	return detail, nil
}
