package usecase

import (
	"context"
	"time"

	"fulfillment/internal/domain"
	"fulfillment/internal/shipment/carrier"
)

type ShipmentRepository interface {
	FindByOrderID(ctx context.Context, orderID string) (domain.Shipment, error)
	SetDimensions(ctx context.Context, orderID string, d domain.ShipmentDimensions) (bool, error)
	ClaimLabel(ctx context.Context, orderID, token string, at, staleBefore time.Time) (bool, error)
	CompleteLabel(ctx context.Context, orderID, token string, label domain.ShipmentLabel) (bool, error)
	FailLabel(ctx context.Context, orderID, token, message string) (int, error)
	ClearLabel(ctx context.Context, orderID, trackingNumber string, staleBefore time.Time) (bool, error)
	ClaimPickup(ctx context.Context, orderID string, at, staleBefore time.Time) (bool, error)
	CompletePickup(ctx context.Context, orderID, pickupRef string, at time.Time) (bool, error)
	FailPickup(ctx context.Context, orderID, message string) error
	ConfirmPickup(ctx context.Context, orderID string) (bool, error)
}

// OrderLoader provides the order, its items and its shipping address.
type OrderLoader interface {
	LoadOrder(ctx context.Context, orderID string) (*domain.OrderDetail, error)
}

type Carrier interface {
	CreateLabel(ctx context.Context, idempotencyKey string, req carrier.LabelRequest) (*carrier.LabelResponse, error)
	VoidLabel(ctx context.Context, trackingNumber string) error
	RequestPickup(ctx context.Context, idempotencyKey string, req carrier.PickupRequest) (*carrier.PickupResponse, error)
}

type ArtifactStore interface {
	Key(orderID, claimToken string) string
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, string, error)
	Delete(ctx context.Context, key string) error
}

type OrderCache interface {
	Invalidate(ctx context.Context, orderID string) error
}

type Metrics interface {
	LabelGeneration(result string)
	LabelCancel(voided bool)
	PickupRequest(result string)
	ObserveExternal(target, operation string, start time.Time)
}
