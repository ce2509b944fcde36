// Package channel delivers order notifications through the notification
// service's dispatch endpoint.
package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"fulfillment/internal/config"
)

const maxErrorBody = 4 << 10

type Message struct {
	OrderID     string `json:"orderId"`
	Channel     string `json:"channel"`
	Recipient   string `json:"recipient"`
	OrderNumber string `json:"orderNumber"`
	Total       string `json:"total"`
	Currency    string `json:"currency"`
}

type dispatchResponse struct {
	Sent  bool   `json:"sent"`
	Error string `json:"error,omitempty"`
}

// HTTPSender posts one message per call. Timeouts come from the caller's
// context so each channel can be bounded separately.
type HTTPSender struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewHTTPSender(cfg config.NotificationConfig, logger *zap.Logger) (*HTTPSender, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("notification base url is required")
	}
	return &HTTPSender{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{},
		logger:     logger,
	}, nil
}

func (s *HTTPSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/notifications/dispatch", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending %s notification: %w", msg.Channel, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("notification service returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out dispatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decoding notification response: %w", err)
	}
	if !out.Sent {
		if out.Error == "" {
			out.Error = "not sent"
		}
		return fmt.Errorf("%s notification rejected: %s", msg.Channel, out.Error)
	}

	s.logger.Debug("notification sent", zap.String("orderId", msg.OrderID), zap.String("channel", msg.Channel))
	return nil
}
