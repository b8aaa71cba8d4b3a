package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"orderservice/pkg/domain/service"
	"orderservice/pkg/infrastructure/metrics"
)

type Services struct {
	Checkout service.CheckoutService
	Orders   service.OrderService
	Payments service.PaymentService
	Webhooks service.WebhookReconciler
}

type Options struct {
	Logger         logrus.FieldLogger
	Metrics        *metrics.ServerMetrics
	MetricsHandler http.Handler
	// Ready reports whether dependencies are reachable. Nil means always ready.
	Ready          func(ctx context.Context) error
	RequestTimeout time.Duration
}

type handler struct {
	services       Services
	logger         logrus.FieldLogger
	metrics        *metrics.ServerMetrics
	ready          func(ctx context.Context) error
	requestTimeout time.Duration
}

func Router(services Services, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	h := &handler{
		services:       services,
		logger:         logger,
		metrics:        opts.Metrics,
		ready:          opts.Ready,
		requestTimeout: opts.RequestTimeout,
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", h.readyz).Methods(http.MethodGet)
	if opts.MetricsHandler != nil {
		r.Handle("/metrics", opts.MetricsHandler).Methods(http.MethodGet)
	}

	api := r.NewRoute().Subrouter()
	api.Use(h.metricsMiddleware, tracingMiddleware, h.timeoutMiddleware)

	api.HandleFunc("/orders", h.createOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders", h.listOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", h.getOrder).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}/status", h.updateOrderStatus).Methods(http.MethodPut)

	api.HandleFunc("/admin/orders", h.listAllOrders).Methods(http.MethodGet)
	api.HandleFunc("/admin/orders/stats", h.orderStats).Methods(http.MethodGet)

	api.HandleFunc("/payments/intent", h.createPaymentIntent).Methods(http.MethodPost)
	api.HandleFunc("/payments/checkout-session", h.createCheckoutSession).Methods(http.MethodPost)
	api.HandleFunc("/payments/status/{orderId}", h.paymentStatus).Methods(http.MethodGet)
	api.HandleFunc("/payments/webhook", h.paymentWebhook).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: errorBody{Kind: "NOT_FOUND", Message: "route not found"}})
	})

	return logMiddleware(logger, r)
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			h.logger.WithError(err).Warn("readiness check failed")
			h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
