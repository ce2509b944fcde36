package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"fulfillment/internal/httpresponse"
)

// Handlers lists every endpoint the router exposes.
type Handlers struct {
	VerifySession   http.HandlerFunc
	ConfirmCheckout http.HandlerFunc
	StripeWebhook   http.HandlerFunc

	GetOrder      http.HandlerFunc
	SetDimensions http.HandlerFunc

	ShipmentStatus http.HandlerFunc
	GenerateLabel  http.HandlerFunc
	LabelArtifact  http.HandlerFunc
	CancelLabel    http.HandlerFunc
	RequestPickup  http.HandlerFunc
	ConfirmPickup  http.HandlerFunc

	Metrics http.Handler
	// Ready reports whether downstream dependencies are reachable.
	Ready func(ctx context.Context) error
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func NewRouter(h Handlers, requestTimeout time.Duration, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if h.Ready != nil {
			if err := h.Ready(req.Context()); err != nil {
				httpresponse.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: err.Error()}, logger)
				return
			}
		}
		httpresponse.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"}, logger)
	})
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Post("/payment/verify-session", h.VerifySession)
		r.Post("/checkout/confirm", h.ConfirmCheckout)
		r.Post("/webhooks/stripe", h.StripeWebhook)

		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Get("/", h.GetOrder)
			r.Patch("/dimensions", h.SetDimensions)
		})

		r.Route("/shipping", func(r chi.Router) {
			r.Post("/label", h.GenerateLabel)
			r.Get("/label/{orderId}/artifact", h.LabelArtifact)
			r.Delete("/label/{orderId}", h.CancelLabel)
			r.Post("/pickup", h.RequestPickup)
			r.Post("/pickup/{orderId}/confirm", h.ConfirmPickup)
			r.Get("/{orderId}", h.ShipmentStatus)
		})
	})

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("http request",
					zap.String("requestId", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
