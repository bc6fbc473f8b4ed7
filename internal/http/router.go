package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

type Handlers struct {
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Payment  *PaymentHandler
	Webhook  *WebhookHandler
	Product  *ProductHandler
}

type RouterConfig struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	SecureCookie   bool
	WebhookLimiter *RateLimiter
	Logger         *slog.Logger
}

func NewRouter(cfg RouterConfig, h Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", SessionHeader},
		ExposedHeaders:   []string{SessionHeader},
		AllowCredentials: true,
	}).Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	webhook := http.HandlerFunc(h.Webhook.Notify)
	if cfg.WebhookLimiter != nil {
		r.With(cfg.WebhookLimiter.Limit).Post("/webhooks/mercadopago", webhook)
	} else {
		r.Post("/webhooks/mercadopago", webhook)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SessionMiddleware(cfg.SecureCookie))

		// long-lived stream, kept out of the request timeout
		r.Get("/cart/events", h.Cart.Events)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
			r.Use(middleware.Compress(5))

			r.Get("/products", h.Product.ListProducts)
			r.Get("/products/{id}", h.Product.GetProduct)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.Cart.GetCart)
				r.Post("/items", h.Cart.AddItem)
				r.Delete("/items", h.Cart.RemoveItem)
				r.Post("/reconcile", h.Cart.Reconcile)
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", h.Checkout.Get)
				r.Patch("/shipping", h.Checkout.UpdateShipping)
				r.Post("/next", h.Checkout.Next)
				r.Post("/back", h.Checkout.Back)
				r.Post("/pay", h.Checkout.Pay)
			})

			r.Post("/preferences", h.Payment.CreatePreference)
			r.Post("/pending-orders", h.Payment.SavePendingOrder)
		})
	})

	return r
}

// RequestLogger logs one line per request with the chi request id.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.InfoContext(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
			)
		})
	}
}
