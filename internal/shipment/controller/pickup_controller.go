package controller

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"fulfillment/internal/domain"
	"fulfillment/internal/httpresponse"
)

type PickupUseCase interface {
	RequestPickup(ctx context.Context, orderID string) (*domain.PickupRequest, error)
	ConfirmPickup(ctx context.Context, orderID string) error
}

type RequestPickupResponse struct {
	TraceID string      `json:"traceId"`
	OrderID string      `json:"orderId"`
	State   string      `json:"state"`
	Pickup  *PickupView `json:"pickup"`
}

type PickupController struct {
	useCase PickupUseCase
	logger  *zap.Logger
}

func NewPickupController(useCase PickupUseCase, logger *zap.Logger) *PickupController {
	return &PickupController{
		useCase: useCase,
		logger:  logger,
	}
}

// RequestPickup handles POST /shipping/pickup.
func (c *PickupController) RequestPickup(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	req, ok := decodeOrderRequest(w, r, traceID, logger)
	if !ok {
		return
	}

	pickup, err := c.useCase.RequestPickup(r.Context(), req.OrderID)
	if err != nil {
		httpresponse.WriteError(w, traceID, err, logger)
		return
	}

	httpresponse.WriteJSON(w, http.StatusOK, RequestPickupResponse{
		TraceID: traceID,
		OrderID: req.OrderID,
		State:   string(domain.ShipmentStatePickupRequested),
		Pickup:  NewPickupView(pickup),
	}, logger)
}

// ConfirmPickup handles POST /shipping/pickup/{orderId}/confirm.
func (c *PickupController) ConfirmPickup(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	orderID := chi.URLParam(r, "orderId")
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("orderId", orderID))

	if err := c.useCase.ConfirmPickup(r.Context(), orderID); err != nil {
		httpresponse.WriteError(w, traceID, err, logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
