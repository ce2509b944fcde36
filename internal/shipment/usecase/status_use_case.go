package usecase

import (
	"context"

	"fulfillment/internal/domain"
)

// ShipmentStatus is the operator console's view of one order's shipment.
type ShipmentStatus struct {
	OrderID         string
	State           domain.ShipmentState
	LabelInFlight   bool
	PickupInFlight  bool
	Dimensions      *domain.ShipmentDimensions
	Label           *domain.ShipmentLabel
	Pickup          *domain.PickupRequest
	LastError       *string
	RetryCount      int
	PickupLastError *string
}

type StatusUseCase struct {
	orders OrderLoader
	repo   ShipmentRepository
}

func NewStatusUseCase(orders OrderLoader, repo ShipmentRepository) *StatusUseCase {
	return &StatusUseCase{orders: orders, repo: repo}
}

func (uc *StatusUseCase) GetStatus(ctx context.Context, orderID string) (*ShipmentStatus, error) {
	orderID, err := requireOrderID(orderID)
	if err != nil {
		return nil, err
	}
	if _, err := uc.orders.LoadOrder(ctx, orderID); err != nil {
		return nil, err
	}

	s, err := uc.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	status := &ShipmentStatus{
		OrderID:         orderID,
		State:           domain.DeriveShipmentState(s),
		LabelInFlight:   s.LabelInFlight(),
		PickupInFlight:  s.PickupInFlight(),
		Dimensions:      s.Dimensions,
		LastError:       s.LastError,
		RetryCount:      s.RetryCount,
		PickupLastError: s.PickupLastError,
	}
	if s.HasActiveLabel() {
		status.Label = s.Label
		status.Pickup = s.Pickup
	}
	return status, nil
}
