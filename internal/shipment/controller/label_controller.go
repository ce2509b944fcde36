package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"fulfillment/internal/domain"
	apperrors "fulfillment/internal/errors"
	"fulfillment/internal/httpresponse"
	"fulfillment/internal/shipment/usecase"
)

type LabelUseCase interface {
	GenerateLabel(ctx context.Context, orderID string) (*domain.ShipmentLabel, error)
	CancelLabel(ctx context.Context, orderID string) error
	GetLabelArtifact(ctx context.Context, orderID string) (*usecase.LabelDocument, error)
}

type OrderRequest struct {
	OrderID string `json:"orderId"`
}

type GenerateLabelResponse struct {
	TraceID string     `json:"traceId"`
	OrderID string     `json:"orderId"`
	State   string     `json:"state"`
	Label   *LabelView `json:"label"`
}

type LabelController struct {
	useCase LabelUseCase
	logger  *zap.Logger
}

func NewLabelController(useCase LabelUseCase, logger *zap.Logger) *LabelController {
	return &LabelController{
		useCase: useCase,
		logger:  logger,
	}
}

// GenerateLabel handles POST /shipping/label.
func (c *LabelController) GenerateLabel(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	req, ok := decodeOrderRequest(w, r, traceID, logger)
	if !ok {
		return
	}

	label, err := c.useCase.GenerateLabel(r.Context(), req.OrderID)
	if err != nil {
		httpresponse.WriteError(w, traceID, err, logger)
		return
	}

	httpresponse.WriteJSON(w, http.StatusCreated, GenerateLabelResponse{
		TraceID: traceID,
		OrderID: req.OrderID,
		State:   string(domain.ShipmentStateLabelGenerated),
		Label:   NewLabelView(req.OrderID, label),
	}, logger)
}

// CancelLabel handles DELETE /shipping/label/{orderId}.
func (c *LabelController) CancelLabel(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	orderID := chi.URLParam(r, "orderId")
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("orderId", orderID))

	if err := c.useCase.CancelLabel(r.Context(), orderID); err != nil {
		httpresponse.WriteError(w, traceID, err, logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetArtifact streams the stored label document.
func (c *LabelController) GetArtifact(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	orderID := chi.URLParam(r, "orderId")
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("orderId", orderID))

	doc, err := c.useCase.GetLabelArtifact(r.Context(), orderID)
	if err != nil {
		httpresponse.WriteError(w, traceID, err, logger)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", "label-"+doc.TrackingNumber))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Data); err != nil {
		logger.Warn("failed to write label artifact", zap.Error(err))
	}
}

func decodeOrderRequest(w http.ResponseWriter, r *http.Request, traceID string, logger *zap.Logger) (OrderRequest, bool) {
	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		httpresponse.WriteError(w, traceID, apperrors.NewInvalidRequestError("invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		}), logger)
		return req, false
	}
	return req, true
}
