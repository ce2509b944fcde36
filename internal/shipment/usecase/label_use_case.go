package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fulfillment/internal/domain"
	apperrors "fulfillment/internal/errors"
)

// LabelDocument is a stored label ready to be printed.
type LabelDocument struct {
	TrackingNumber string
	ContentType    string
	Data           []byte
}

// LabelUseCase purchases and cancels carrier labels. Every purchase is a
// billable call, so nothing here retries on its own.
type LabelUseCase struct {
	orders      OrderLoader
	repo        ShipmentRepository
	carrier     Carrier
	store       ArtifactStore
	cache       OrderCache
	metrics     Metrics
	logger      *zap.Logger
	accountCode string
	serviceCode string
	claimLease  time.Duration
	now         func() time.Time
}

func NewLabelUseCase(
	orders OrderLoader,
	repo ShipmentRepository,
	labelCarrier Carrier,
	store ArtifactStore,
	cache OrderCache,
	metrics Metrics,
	logger *zap.Logger,
	accountCode, serviceCode string,
	claimLease time.Duration,
) *LabelUseCase {
	return &LabelUseCase{
		orders:      orders,
		repo:        repo,
		carrier:     labelCarrier,
		store:       store,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		accountCode: accountCode,
		serviceCode: serviceCode,
		claimLease:  claimLease,
		now:         time.Now,
	}
}

func (uc *LabelUseCase) GenerateLabel(ctx context.Context, orderID string) (*domain.ShipmentLabel, error) {
	orderID, err := requireOrderID(orderID)
	if err != nil {
		return nil, err
	}
	logger := uc.logger.With(zap.String("orderId", orderID))

	current, err := uc.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := uc.checkGeneratable(current); err != nil {
		return nil, err
	}

	detail, err := uc.orders.LoadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if detail.Address == nil {
		return nil, apperrors.NewValidationError("order has no shipping address", apperrors.ValidationDetail{
			Field:   "shippingAddress",
			Message: "a shipping address is required to generate a label",
		})
	}

	token := uuid.NewString()
	now := uc.now()
	claimed, err := uc.repo.ClaimLabel(ctx, orderID, token, now, now.Add(-uc.claimLease))
	if err != nil {
		return nil, err
	}
	if !claimed {
		current, err := uc.repo.FindByOrderID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if err := uc.checkGeneratable(current); err != nil {
			return nil, err
		}
		return nil, apperrors.NewDuplicateOperationError(
			fmt.Sprintf("label generation for order %s is already in progress", orderID),
			string(domain.DeriveShipmentState(current)),
		)
	}
	invalidate(ctx, uc.cache, orderID, logger)

	// Dimensions are frozen by the claim, so the copy read above is current.
	req := buildLabelRequest(detail, *current.Dimensions, uc.accountCode, uc.serviceCode)

	start := uc.now()
	resp, err := uc.carrier.CreateLabel(ctx, token, req)
	uc.metrics.ObserveExternal("carrier", "create_label", start)
	if err != nil {
		return nil, uc.fail(ctx, orderID, token, "carrier_error", fmt.Errorf("carrier label request failed: %w", err))
	}

	artifactKey := uc.store.Key(orderID, token)
	if err := uc.store.Put(ctx, artifactKey, resp.Document, resp.ContentType); err != nil {
		uc.voidQuietly(ctx, resp.TrackingNumber, logger)
		return nil, uc.fail(ctx, orderID, token, "storage_error", fmt.Errorf("storing label artifact failed: %w", err))
	}

	serviceCode := resp.ServiceCode
	if serviceCode == "" {
		serviceCode = uc.serviceCode
	}
	label := domain.ShipmentLabel{
		TrackingNumber: resp.TrackingNumber,
		Artifact:       domain.LabelArtifact{Key: artifactKey, ContentType: resp.ContentType},
		CarrierRef:     resp.CarrierRef,
		ServiceCode:    serviceCode,
		GeneratedAt:    uc.now().UTC(),
	}

	ok, err := uc.repo.CompleteLabel(context.WithoutCancel(ctx), orderID, token, label)
	if err != nil {
		return nil, err
	}
	if !ok {
		// The claim outlived its lease and was taken over; this purchase is orphaned.
		logger.Error("label claim lost before completion, voiding purchased label", zap.String("trackingNumber", label.TrackingNumber))
		uc.voidQuietly(ctx, label.TrackingNumber, logger)
		uc.deleteQuietly(ctx, artifactKey, logger)
		uc.metrics.LabelGeneration("claim_lost")
		return nil, apperrors.NewConflictError(
			fmt.Sprintf("label generation for order %s was superseded", orderID),
			string(domain.ShipmentStateDimensionsSet),
		)
	}

	invalidate(ctx, uc.cache, orderID, logger)
	uc.metrics.LabelGeneration("ok")
	logger.Info("label generated", zap.String("trackingNumber", label.TrackingNumber), zap.String("carrierRef", label.CarrierRef))
	return &label, nil
}

func (uc *LabelUseCase) checkGeneratable(s domain.Shipment) error {
	state := string(domain.DeriveShipmentState(s))
	if s.Dimensions == nil {
		return apperrors.NewValidationError("dimensions must be set before generating a label", apperrors.ValidationDetail{
			Field:   "dimensions",
			Message: "dimensions are required",
		})
	}
	if s.HasActiveLabel() {
		return apperrors.NewDuplicateOperationError(
			fmt.Sprintf("order %s already has an active label; cancel it first", s.OrderID),
			state,
		)
	}
	if s.LabelInFlight() && s.LabelClaimedAt != nil && uc.now().Sub(*s.LabelClaimedAt) < uc.claimLease {
		return apperrors.NewDuplicateOperationError(
			fmt.Sprintf("label generation for order %s is already in progress", s.OrderID),
			state,
		)
	}
	return nil
}

func (uc *LabelUseCase) fail(ctx context.Context, orderID, token, result string, cause error) error {
	ctx = context.WithoutCancel(ctx)
	retries, err := uc.repo.FailLabel(ctx, orderID, token, cause.Error())
	if err != nil {
		uc.logger.Error("failed to record label failure", zap.String("orderId", orderID), zap.Error(err))
	}
	invalidate(ctx, uc.cache, orderID, uc.logger)
	uc.metrics.LabelGeneration(result)
	uc.logger.Warn("label generation failed",
		zap.String("orderId", orderID),
		zap.Int("retryCount", retries),
		zap.Error(cause))
	return apperrors.NewTransientCarrierError("label generation failed", retries, cause)
}

// CancelLabel clears the active label and any pickup. Voiding upstream and
// deleting the stored document are best-effort once local state is cleared.
func (uc *LabelUseCase) CancelLabel(ctx context.Context, orderID string) error {
	orderID, err := requireOrderID(orderID)
	if err != nil {
		return err
	}
	logger := uc.logger.With(zap.String("orderId", orderID))

	current, err := uc.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	if !current.HasActiveLabel() {
		return apperrors.NewNotFoundError(fmt.Sprintf("order %s has no active label", orderID))
	}
	staleBefore := uc.now().Add(-uc.claimLease)
	if current.PickupClaimHeld(staleBefore) {
		return apperrors.NewConflictError(
			fmt.Sprintf("a pickup request for order %s is in progress", orderID),
			string(domain.DeriveShipmentState(current)),
		)
	}

	label := *current.Label
	ok, err := uc.repo.ClearLabel(ctx, orderID, label.TrackingNumber, staleBefore)
	if err != nil {
		return err
	}
	if !ok {
		latest, err := uc.repo.FindByOrderID(ctx, orderID)
		if err != nil {
			return err
		}
		if !latest.HasActiveLabel() {
			return apperrors.NewNotFoundError(fmt.Sprintf("order %s has no active label", orderID))
		}
		return apperrors.NewConflictError(
			fmt.Sprintf("label of order %s changed during cancellation", orderID),
			string(domain.DeriveShipmentState(latest)),
		)
	}
	invalidate(ctx, uc.cache, orderID, logger)

	voided := uc.voidQuietly(ctx, label.TrackingNumber, logger)
	uc.metrics.LabelCancel(voided)
	uc.deleteQuietly(ctx, label.Artifact.Key, logger)

	logger.Info("label cancelled", zap.String("trackingNumber", label.TrackingNumber), zap.Bool("voided", voided))
	return nil
}

func (uc *LabelUseCase) GetLabelArtifact(ctx context.Context, orderID string) (*LabelDocument, error) {
	orderID, err := requireOrderID(orderID)
	if err != nil {
		return nil, err
	}

	current, err := uc.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !current.HasActiveLabel() {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order %s has no active label", orderID))
	}

	data, contentType, err := uc.store.Get(ctx, current.Label.Artifact.Key)
	if err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = current.Label.Artifact.ContentType
	}

	return &LabelDocument{
		TrackingNumber: current.Label.TrackingNumber,
		ContentType:    contentType,
		Data:           data,
	}, nil
}

func (uc *LabelUseCase) voidQuietly(ctx context.Context, trackingNumber string, logger *zap.Logger) bool {
	start := uc.now()
	err := uc.carrier.VoidLabel(context.WithoutCancel(ctx), trackingNumber)
	uc.metrics.ObserveExternal("carrier", "void_label", start)
	if err != nil {
		logger.Warn("failed to void label upstream", zap.String("trackingNumber", trackingNumber), zap.Error(err))
		return false
	}
	return true
}

func (uc *LabelUseCase) deleteQuietly(ctx context.Context, key string, logger *zap.Logger) {
	if err := uc.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		logger.Warn("failed to delete label artifact", zap.String("key", key), zap.Error(err))
	}
}
