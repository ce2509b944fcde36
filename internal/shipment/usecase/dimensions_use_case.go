package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"fulfillment/internal/domain"
	apperrors "fulfillment/internal/errors"
)

type Validator interface {
	Struct(s any) error
}

// SetDimensionsCommand uses pointers so a missing field is told apart from zero.
// The lower bounds are the smallest values the shipments columns keep
// (weight in kg to 3 decimals, sides in cm to 2), so nothing positive is
// stored as zero.
type SetDimensionsCommand struct {
	OrderID string   `json:"orderId"`
	Weight  *float64 `json:"weight" validate:"required,gte=0.001,lte=10000"`
	Length  *float64 `json:"length" validate:"required,gte=0.01,lte=10000"`
	Width   *float64 `json:"width" validate:"required,gte=0.01,lte=10000"`
	Height  *float64 `json:"height" validate:"required,gte=0.01,lte=10000"`
}

type DimensionsUseCase struct {
	orders    OrderLoader
	repo      ShipmentRepository
	cache     OrderCache
	validator Validator
	logger    *zap.Logger
}

func NewDimensionsUseCase(orders OrderLoader, repo ShipmentRepository, cache OrderCache, validator Validator, logger *zap.Logger) *DimensionsUseCase {
	return &DimensionsUseCase{
		orders:    orders,
		repo:      repo,
		cache:     cache,
		validator: validator,
		logger:    logger,
	}
}

// SetDimensions records the packed parcel size. It is rejected with a conflict
// once a label is active or being generated.
func (uc *DimensionsUseCase) SetDimensions(ctx context.Context, cmd SetDimensionsCommand) error {
	orderID, err := requireOrderID(cmd.OrderID)
	if err != nil {
		return err
	}
	cmd.OrderID = orderID
	if err := uc.validator.Struct(cmd); err != nil {
		return err
	}

	if _, err := uc.orders.LoadOrder(ctx, cmd.OrderID); err != nil {
		return err
	}

	dims := domain.ShipmentDimensions{
		Weight: *cmd.Weight,
		Length: *cmd.Length,
		Width:  *cmd.Width,
		Height: *cmd.Height,
	}

	ok, err := uc.repo.SetDimensions(ctx, cmd.OrderID, dims)
	if err != nil {
		return err
	}
	if !ok {
		current, err := uc.repo.FindByOrderID(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		state := domain.DeriveShipmentState(current)
		uc.logger.Info("dimensions rejected, label present", zap.String("orderId", cmd.OrderID), zap.String("state", string(state)))
		return apperrors.NewConflictError(
			fmt.Sprintf("dimensions of order %s are frozen while a label exists; cancel the label first", cmd.OrderID),
			string(state),
		)
	}

	invalidate(ctx, uc.cache, cmd.OrderID, uc.logger)
	uc.logger.Info("dimensions set",
		zap.String("orderId", cmd.OrderID),
		zap.Float64("weight", dims.Weight),
		zap.Float64("length", dims.Length),
		zap.Float64("width", dims.Width),
		zap.Float64("height", dims.Height))
	return nil
}

func invalidate(ctx context.Context, cache OrderCache, orderID string, logger *zap.Logger) {
	if err := cache.Invalidate(context.WithoutCancel(ctx), orderID); err != nil {
		logger.Warn("failed to invalidate order cache", zap.String("orderId", orderID), zap.Error(err))
	}
}

func requireOrderID(orderID string) (string, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return "", apperrors.NewInvalidRequestError("orderId is required", apperrors.ValidationDetail{Field: "orderId", Message: "orderId is required"})
	}
	return orderID, nil
}
