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

type LoadOrderUseCase interface {
	LoadOrder(ctx context.Context, orderID string) (*domain.OrderDetail, error)
}

type OrderDetailResponse struct {
	TraceID string `json:"traceId"`
	*OrderDetailView
}

type OrderController struct {
	useCase LoadOrderUseCase
	logger  *zap.Logger
}

func NewOrderController(useCase LoadOrderUseCase, logger *zap.Logger) *OrderController {
	return &OrderController{
		useCase: useCase,
		logger:  logger,
	}
}

// GetOrder handles GET /orders/{orderId}.
func (c *OrderController) GetOrder(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	orderID := chi.URLParam(r, "orderId")
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("orderId", orderID))

	detail, err := c.useCase.LoadOrder(r.Context(), orderID)
	if err != nil {
		httpresponse.WriteError(w, traceID, err, logger)
		return
	}

	httpresponse.WriteJSON(w, http.StatusOK, OrderDetailResponse{
		TraceID:         traceID,
		OrderDetailView: NewOrderDetailView(detail),
	}, logger)
}
