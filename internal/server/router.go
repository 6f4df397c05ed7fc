package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"storefront/internal/catalog"
	"storefront/internal/order"
)

func NewRouter(catalogCtrl *catalog.Controller, orders *order.Module, adminToken string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Post("/quotes", catalogCtrl.HandleQuote)

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", orders.Orders.PlaceOrder)
		r.Get("/{orderId}", orders.Orders.GetOrder)
		r.Post("/{orderId}/checkout", orders.Orders.CreateCheckout)
		r.Post("/{orderId}/transfer", orders.Orders.SubmitTransfer)
	})

	r.Post("/webhooks/stripe", orders.Webhooks.HandleStripe)

	r.Route("/admin", func(r chi.Router) {
		r.Use(RequireAdminToken(adminToken, logger))
		r.Get("/orders", orders.Admin.ListOrders)
		r.Get("/orders/{orderId}", orders.Admin.GetOrder)
		r.Patch("/orders/{orderId}/status", orders.Admin.TransitionStatus)
		r.Put("/orders/{orderId}/note", orders.Admin.UpdateNote)
	})

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("request",
				zap.String("requestId", chimw.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
