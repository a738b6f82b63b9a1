// internal/router/router.go
package router

import (
	"net/http"
	"strconv"
	"time"

	"partner-payouts/internal/handler"
	"partner-payouts/internal/metrics"
	"partner-payouts/pkg/auth"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Handlers struct {
	Invoices *handler.InvoiceHandler
	Links    *handler.LinksHandler
	Cron     *handler.CronHandler
	Plain    *handler.PlainHandler
	PayPal   *handler.PayPalWebhookHandler
	OAuth    *handler.OAuthHandler
}

func SetupRoutes(h Handlers, verifier *auth.Verifier, cronSecret string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Dashboard
		r.Group(func(r chi.Router) {
			r.Use(handler.RequireWorkspace(verifier))
			r.Get("/invoices/{invoiceId}", h.Invoices.GetInvoice)
			r.Delete("/links/bulk", h.Links.BulkDelete)
		})

		// Internal jobs
		r.Group(func(r chi.Router) {
			r.Use(handler.RequireSecret(cronSecret))
			r.Post("/cron/payouts", h.Cron.RunPayouts)
			r.Delete("/admin/partners/{partnerId}", h.Cron.DeletePartner)
		})

		// Webhooks authenticate themselves
		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/plain", h.Plain.CustomerCards)
			r.Post("/paypal", h.PayPal.HandleWebhook)
		})

		// Partner account connections
		r.Route("/oauth/{provider}", func(r chi.Router) {
			r.With(handler.RequirePartner(verifier)).Get("/start", h.OAuth.Start)
			r.Get("/callback", h.OAuth.Callback)
		})
	})

	return r
}

// LoggerMiddleware logs HTTP requests and records request metrics.
func LoggerMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			elapsed := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method).Observe(elapsed.Seconds())

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("duration", elapsed),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()))
		})
	}
}
