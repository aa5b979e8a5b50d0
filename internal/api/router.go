package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/minhngoc/codepay-backend/internal/api/handlers"
	"github.com/minhngoc/codepay-backend/internal/api/httpx"
	"github.com/minhngoc/codepay-backend/internal/auth"
	"github.com/minhngoc/codepay-backend/internal/config"
	"github.com/minhngoc/codepay-backend/internal/metrics"
	"github.com/minhngoc/codepay-backend/internal/middleware"
)

// Pinger reports database reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Cfg       config.Config
	DB        Pinger
	Tokens    *auth.TokenManager
	ClientBot *handlers.ClientBot
	AdminBot  *handlers.AdminBot
	Payments  *handlers.PaymentWebhook
	Ops       *handlers.Ops
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.RateLimit(d.Cfg.RateRPS), middleware.HTTPMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		dbStatus := "up"
		status := http.StatusOK
		if err := d.DB.Ping(ctx); err != nil {
			dbStatus = "down"
			status = http.StatusServiceUnavailable
		}
		httpx.WriteJSON(w, status, map[string]string{"status": "ok", "db": dbStatus})
	})
	r.Handle("/metrics", metrics.Handler())

	// webhook ingestion; each channel carries its own credential
	r.Route("/api", func(r chi.Router) {
		r.With(middleware.VerifyTelegramSecret(d.Cfg.ClientBotToken, "client")).
			Post("/telegram/client/webhook", d.ClientBot.Webhook)
		r.With(middleware.VerifyTelegramSecret(d.Cfg.AdminBotToken, "admin")).
			Post("/telegram/admin/webhook", d.AdminBot.Webhook)
		r.With(middleware.VerifyPaymentSignature(d.Cfg.PaymentWebhookSecret)).
			Post("/payment/webhook", d.Payments.Handle)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", d.Ops.Login)
		r.Post("/auth/refresh", d.Ops.Refresh)

		am := middleware.NewAuthMiddleware(d.Tokens)
		r.Group(func(r chi.Router) {
			r.Use(am.Auth, middleware.RequireRole("admin"))
			r.Get("/transactions", d.Ops.ListTransactions)
			r.Get("/transactions/{id}", d.Ops.GetTransaction)
			r.Post("/transactions/{id}/approve", d.Ops.Approve)
			r.Post("/transactions/{id}/reject", d.Ops.Reject)
			r.Get("/customers/{id}", d.Ops.GetCustomer)
		})
	})

	return r
}
