package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fulfillment/internal/config"
)

func newSender(t *testing.T, url string) *HTTPSender {
	s, err := NewHTTPSender(config.NotificationConfig{BaseURL: url}, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestHTTPSender_Send(t *testing.T) {
	var got Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/notifications/dispatch", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"sent":true}`))
	}))
	defer srv.Close()

	err := newSender(t, srv.URL+"/").Send(context.Background(), Message{
		OrderID: "O1", Channel: "invoice_email", Recipient: "jane@example.com", OrderNumber: "SF-1", Total: "42.50", Currency: "EUR",
	})

	require.NoError(t, err)
	assert.Equal(t, "invoice_email", got.Channel)
	assert.Equal(t, "42.50", got.Total)
}

func TestHTTPSender_NotSent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sent":false,"error":"mailbox full"}`))
	}))
	defer srv.Close()

	err := newSender(t, srv.URL).Send(context.Background(), Message{Channel: "invoice_email"})

	assert.ErrorContains(t, err, "mailbox full")
}

func TestHTTPSender_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := newSender(t, srv.URL).Send(context.Background(), Message{Channel: "sms"})

	assert.ErrorContains(t, err, "HTTP 500")
}

func TestHTTPSender_ContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := newSender(t, srv.URL).Send(ctx, Message{Channel: "sms"})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewHTTPSender_RequiresBaseURL(t *testing.T) {
	_, err := NewHTTPSender(config.NotificationConfig{}, zap.NewNop())
	assert.Error(t, err)
}
