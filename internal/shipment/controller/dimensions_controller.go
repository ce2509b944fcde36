package controller

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "fulfillment/internal/errors"
	"fulfillment/internal/httpresponse"
	"fulfillment/internal/shipment/usecase"
)

type SetDimensionsUseCase interface {
	SetDimensions(ctx context.Context, cmd usecase.SetDimensionsCommand) error
}

type Validator interface {
	Struct(s any) error
}

// dimensionsBody keeps raw values so numeric strings such as "2.5" are accepted
// and a non-numeric value is reported per field.
type dimensionsBody struct {
	Weight json.RawMessage `json:"weight"`
	Length json.RawMessage `json:"length"`
	Width  json.RawMessage `json:"width"`
	Height json.RawMessage `json:"height"`
}

type DimensionsController struct {
	useCase   SetDimensionsUseCase
	validator Validator
	logger    *zap.Logger
}

func NewDimensionsController(useCase SetDimensionsUseCase, validator Validator, logger *zap.Logger) *DimensionsController {
	return &DimensionsController{
		useCase:   useCase,
		validator: validator,
		logger:    logger,
	}
}

// SetDimensions handles PATCH /orders/{orderId}/dimensions.
func (c *DimensionsController) SetDimensions(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	orderID := chi.URLParam(r, "orderId")
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("orderId", orderID))

	var body dimensionsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		httpresponse.WriteError(w, traceID, apperrors.NewInvalidRequestError("invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		}), logger)
		return
	}

	cmd := usecase.SetDimensionsCommand{OrderID: orderID}
	var unparsed []apperrors.ValidationDetail
	for _, f := range []struct {
		name string
		raw  json.RawMessage
		dst  **float64
	}{
		{"weight", body.Weight, &cmd.Weight},
		{"length", body.Length, &cmd.Length},
		{"width", body.Width, &cmd.Width},
		{"height", body.Height, &cmd.Height},
	} {
		v, ok := parseNumber(f.raw)
		if !ok {
			unparsed = append(unparsed, apperrors.ValidationDetail{Field: f.name, Message: f.name + " must be numeric"})
			continue
		}
		*f.dst = v
	}

	if len(unparsed) > 0 {
		httpresponse.WriteError(w, traceID, c.mergeDetails(cmd, unparsed), logger)
		return
	}

	if err := c.useCase.SetDimensions(r.Context(), cmd); err != nil {
		httpresponse.WriteError(w, traceID, err, logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// mergeDetails reports the unparsable fields together with whatever the
// remaining fields fail on, so the caller sees every problem at once.
func (c *DimensionsController) mergeDetails(cmd usecase.SetDimensionsCommand, unparsed []apperrors.ValidationDetail) error {
	skip := make(map[string]bool, len(unparsed))
	for _, d := range unparsed {
		skip[d.Field] = true
	}

	details := unparsed
	if ve, ok := apperrors.IsValidationError(c.validator.Struct(cmd)); ok {
		for _, d := range ve.Details {
			if !skip[d.Field] {
				details = append(details, d)
			}
		}
	}
	return apperrors.NewValidationError("validation failed", details...)
}

// parseNumber returns (nil, true) for an absent or null value.
func parseNumber(raw json.RawMessage) (*float64, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, true
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return &n, true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, false
	}
	return &n, true
}
