// Package carrier is the client for the shipping provider's label and pickup API.
package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"fulfillment/internal/config"
)

const maxErrorBody = 4 << 10

type Address struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type Parcel struct {
	WeightKg float64 `json:"weightKg"`
	LengthCm float64 `json:"lengthCm"`
	WidthCm  float64 `json:"widthCm"`
	HeightCm float64 `json:"heightCm"`
}

type Content struct {
	SKU         string `json:"sku"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitValue   string `json:"unitValue"`
}

type LabelRequest struct {
	Reference     string    `json:"reference"`
	AccountCode   string    `json:"accountCode"`
	ServiceCode   string    `json:"serviceCode"`
	Recipient     Address   `json:"recipient"`
	Parcel        Parcel    `json:"parcel"`
	Contents      []Content `json:"contents"`
	DeclaredValue string    `json:"declaredValue"`
	Currency      string    `json:"currency"`
}

// LabelResponse carries the label document base64-decoded into Document.
type LabelResponse struct {
	TrackingNumber string `json:"trackingNumber"`
	CarrierRef     string `json:"shipmentId"`
	ServiceCode    string `json:"serviceCode"`
	Document       []byte `json:"labelData"`
	ContentType    string `json:"labelFormat"`
}

type PickupRequest struct {
	AccountCode     string   `json:"accountCode"`
	TrackingNumbers []string `json:"trackingNumbers"`
	Address         Address  `json:"address"`
	Reference       string   `json:"reference"`
}

type PickupResponse struct {
	PickupRef    string    `json:"pickupId"`
	ScheduledFor time.Time `json:"scheduledFor"`
}

// APIError is a non-2xx carrier answer.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("carrier returned HTTP %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("carrier returned HTTP %d: %s", e.StatusCode, e.Message)
}

type HTTPCarrier struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewHTTPCarrier(cfg config.CarrierConfig, logger *zap.Logger) (*HTTPCarrier, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("carrier base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid carrier base url: %w", err)
	}

	return &HTTPCarrier{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}, nil
}

// CreateLabel purchases a label. The idempotency key lets the carrier collapse
// a resend of the same attempt into the original purchase.
func (c *HTTPCarrier) CreateLabel(ctx context.Context, idempotencyKey string, req LabelRequest) (*LabelResponse, error) {
	var resp LabelResponse
	if err := c.do(ctx, http.MethodPost, "/v1/labels", idempotencyKey, req, &resp); err != nil {
		return nil, err
	}
	if resp.TrackingNumber == "" {
		return nil, errors.New("carrier returned a label without tracking number")
	}
	if resp.ContentType == "" {
		resp.ContentType = "application/pdf"
	}
	return &resp, nil
}

func (c *HTTPCarrier) VoidLabel(ctx context.Context, trackingNumber string) error {
	path := "/v1/labels/" + url.PathEscape(trackingNumber) + "/void"
	return c.do(ctx, http.MethodPost, path, "", nil, nil)
}

func (c *HTTPCarrier) RequestPickup(ctx context.Context, idempotencyKey string, req PickupRequest) (*PickupResponse, error) {
	var resp PickupResponse
	if err := c.do(ctx, http.MethodPost, "/v1/pickups", idempotencyKey, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPCarrier) do(ctx context.Context, method, path, idempotencyKey string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding carrier request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating carrier request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling carrier %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if jsonErr := json.Unmarshal(raw, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		c.logger.Warn("carrier request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("code", apiErr.Code))
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding carrier response: %w", err)
	}
	return nil
}
