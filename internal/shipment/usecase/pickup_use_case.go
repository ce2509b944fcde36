package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fulfillment/internal/domain"
	apperrors "fulfillment/internal/errors"
	"fulfillment/internal/shipment/carrier"
)

type PickupUseCase struct {
	orders      OrderLoader
	repo        ShipmentRepository
	carrier     Carrier
	cache       OrderCache
	metrics     Metrics
	logger      *zap.Logger
	accountCode string
	claimLease  time.Duration
	now         func() time.Time
}

func NewPickupUseCase(
	orders OrderLoader,
	repo ShipmentRepository,
	pickupCarrier Carrier,
	cache OrderCache,
	metrics Metrics,
	logger *zap.Logger,
	accountCode string,
	claimLease time.Duration,
) *PickupUseCase {
	return &PickupUseCase{
		orders:      orders,
		repo:        repo,
		carrier:     pickupCarrier,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		accountCode: accountCode,
		claimLease:  claimLease,
		now:         time.Now,
	}
}

// RequestPickup asks the carrier to collect the labelled parcel. A second
// request while one is pending or acknowledged is a conflict.
func (uc *PickupUseCase) RequestPickup(ctx context.Context, orderID string) (*domain.PickupRequest, error) {
	orderID, err := requireOrderID(orderID)
	if err != nil {
		return nil, err
	}
	logger := uc.logger.With(zap.String("orderId", orderID))

	current, err := uc.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := checkPickupAllowed(current); err != nil {
		return nil, err
	}

	detail, err := uc.orders.LoadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if detail.Address == nil {
		return nil, apperrors.NewValidationError("order has no shipping address", apperrors.ValidationDetail{
			Field:   "shippingAddress",
			Message: "a shipping address is required to request a pickup",
		})
	}

	now := uc.now().UTC()
	claimed, err := uc.repo.ClaimPickup(ctx, orderID, now, now.Add(-uc.claimLease))
	if err != nil {
		return nil, err
	}
	if !claimed {
		latest, err := uc.repo.FindByOrderID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if err := checkPickupAllowed(latest); err != nil {
			return nil, err
		}
		return nil, apperrors.NewConflictError(
			fmt.Sprintf("a pickup request for order %s is already in progress", orderID),
			string(domain.DeriveShipmentState(latest)),
		)
	}
	invalidate(ctx, uc.cache, orderID, logger)

	trackingNumber := current.Label.TrackingNumber
	req := carrier.PickupRequest{
		AccountCode:     uc.accountCode,
		TrackingNumbers: []string{trackingNumber},
		Address:         carrierAddress(detail.Address),
		Reference:       detail.Order.OrderNumber,
	}

	// Each attempt gets its own key so a retry after a failure is not
	// answered from the carrier's record of the failed one.
	attemptKey := "pickup-" + uuid.New().String()

	start := uc.now()
	resp, err := uc.carrier.RequestPickup(ctx, attemptKey, req)
	uc.metrics.ObserveExternal("carrier", "request_pickup", start)
	if err != nil {
		cause := fmt.Errorf("carrier pickup request failed: %w", err)
		if ferr := uc.repo.FailPickup(context.WithoutCancel(ctx), orderID, cause.Error()); ferr != nil {
			logger.Error("failed to record pickup failure", zap.Error(ferr))
		}
		invalidate(ctx, uc.cache, orderID, logger)
		uc.metrics.PickupRequest("carrier_error")
		logger.Warn("pickup request failed", zap.Error(err))
		return nil, apperrors.NewTransientCarrierError("pickup request failed", 0, cause)
	}

	ok, err := uc.repo.CompletePickup(context.WithoutCancel(ctx), orderID, resp.PickupRef, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		uc.metrics.PickupRequest("claim_lost")
		return nil, apperrors.NewConflictError(
			fmt.Sprintf("pickup request for order %s was superseded", orderID),
			string(domain.ShipmentStateLabelGenerated),
		)
	}

	invalidate(ctx, uc.cache, orderID, logger)
	uc.metrics.PickupRequest("ok")
	logger.Info("pickup requested",
		zap.String("pickupRef", resp.PickupRef),
		zap.String("idempotencyKey", attemptKey),
		zap.Time("scheduledFor", resp.ScheduledFor))

	return &domain.PickupRequest{
		Requested:   true,
		RequestedAt: &now,
		CarrierRef:  resp.PickupRef,
	}, nil
}

// ConfirmPickup records the carrier's out-of-band acknowledgment.
func (uc *PickupUseCase) ConfirmPickup(ctx context.Context, orderID string) error {
	orderID, err := requireOrderID(orderID)
	if err != nil {
		return err
	}

	ok, err := uc.repo.ConfirmPickup(ctx, orderID)
	if err != nil {
		return err
	}
	if !ok {
		current, err := uc.repo.FindByOrderID(ctx, orderID)
		if err != nil {
			return err
		}
		return apperrors.NewConflictError(
			fmt.Sprintf("order %s has no pickup awaiting confirmation", orderID),
			string(domain.DeriveShipmentState(current)),
		)
	}

	invalidate(ctx, uc.cache, orderID, uc.logger)
	uc.logger.Info("pickup confirmed", zap.String("orderId", orderID))
	return nil
}

func checkPickupAllowed(s domain.Shipment) error {
	state := string(domain.DeriveShipmentState(s))
	if !s.HasActiveLabel() {
		return apperrors.NewConflictError(fmt.Sprintf("order %s has no active label to pick up", s.OrderID), state)
	}
	switch s.PickupStatus {
	case domain.PickupStatusRequested, domain.PickupStatusConfirmed:
		return apperrors.NewConflictError(fmt.Sprintf("pickup for order %s was already requested", s.OrderID), state)
	}
	return nil
}
