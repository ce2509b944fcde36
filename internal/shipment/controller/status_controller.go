package controller

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"fulfillment/internal/httpresponse"
	"fulfillment/internal/shipment/usecase"
)

type StatusUseCase interface {
	GetStatus(ctx context.Context, orderID string) (*usecase.ShipmentStatus, error)
}

type ShipmentStatusResponse struct {
	TraceID         string          `json:"traceId"`
	OrderID         string          `json:"orderId"`
	State           string          `json:"state"`
	LabelInFlight   bool            `json:"labelInFlight"`
	PickupInFlight  bool            `json:"pickupInFlight"`
	Dimensions      *DimensionsView `json:"dimensions"`
	Label           *LabelView      `json:"label"`
	Pickup          *PickupView     `json:"pickup"`
	LastError       *string         `json:"lastError"`
	RetryCount      int             `json:"retryCount"`
	PickupLastError *string         `json:"pickupLastError,omitempty"`
}

type StatusController struct {
	useCase StatusUseCase
	logger  *zap.Logger
}

func NewStatusController(useCase StatusUseCase, logger *zap.Logger) *StatusController {
	return &StatusController{
		useCase: useCase,
		logger:  logger,
	}
}

// GetStatus handles GET /shipping/{orderId}.
func (c *StatusController) GetStatus(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	orderID := chi.URLParam(r, "orderId")
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("orderId", orderID))

	status, err := c.useCase.GetStatus(r.Context(), orderID)
	if err != nil {
		httpresponse.WriteError(w, traceID, err, logger)
		return
	}

	httpresponse.WriteJSON(w, http.StatusOK, ShipmentStatusResponse{
		TraceID:         traceID,
		OrderID:         status.OrderID,
		State:           string(status.State),
		LabelInFlight:   status.LabelInFlight,
		PickupInFlight:  status.PickupInFlight,
		Dimensions:      NewDimensionsView(status.Dimensions),
		Label:           NewLabelView(status.OrderID, status.Label),
		Pickup:          NewPickupView(status.Pickup),
		LastError:       status.LastError,
		RetryCount:      status.RetryCount,
		PickupLastError: status.PickupLastError,
	}, logger)
}
