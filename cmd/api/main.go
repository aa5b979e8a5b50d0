package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minhngoc/codepay-backend/internal/api"
	"github.com/minhngoc/codepay-backend/internal/api/handlers"
	"github.com/minhngoc/codepay-backend/internal/auth"
	"github.com/minhngoc/codepay-backend/internal/config"
	"github.com/minhngoc/codepay-backend/internal/db"
	"github.com/minhngoc/codepay-backend/internal/gateway"
	"github.com/minhngoc/codepay-backend/internal/logger"
	"github.com/minhngoc/codepay-backend/internal/metrics"
	"github.com/minhngoc/codepay-backend/internal/repository/postgres"
	"github.com/minhngoc/codepay-backend/internal/services"
	"github.com/minhngoc/codepay-backend/internal/telegram"
	"github.com/minhngoc/codepay-backend/internal/worker"
)

// global db connection pool
var dbPool *pgxpool.Pool

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	dbPool, err = db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if os.Getenv("APP_MIGRATE") == "true" {
		if err := db.RunMigrations(ctx, dbPool); err != nil {
			log.Error("migrations", "err", err)
			os.Exit(1)
		}
	}

	store := postgres.NewStore(dbPool)
	wp := worker.NewPool(cfg.Workers)
	defer wp.Stop()

	clientBot := telegram.NewBotClient(cfg.TelegramAPIURL, cfg.ClientBotToken)
	adminBot := telegram.NewBotClient(cfg.TelegramAPIURL, cfg.AdminBotToken)
	notifier := telegram.NewNotifier(clientBot, adminBot, cfg.AdminChatID)
	gw := gateway.NewClient(cfg.GatewayAPIURL, cfg.GatewayAPIKey, cfg.WalletAddress)

	workflowSvc := services.NewWorkflowService(store, notifier, gw, wp, cfg.DefaultAmount)
	paymentSvc := services.NewPaymentService(store, notifier, wp, cfg.AmountTolerance)
	customerSvc := services.NewCustomerService(store)

	tm := auth.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, 15*time.Minute, 7*24*time.Hour)

	metrics.Init()
	r := api.NewRouter(api.Deps{
		Cfg:       cfg,
		DB:        dbPool,
		Tokens:    tm,
		ClientBot: handlers.NewClientBot(customerSvc, workflowSvc, notifier),
		AdminBot:  handlers.NewAdminBot(workflowSvc, notifier),
		Payments:  handlers.NewPaymentWebhook(paymentSvc),
		Ops:       handlers.NewOps(tm, cfg.OpsUsername, cfg.OpsPasswordHash, workflowSvc, customerSvc),
	})

	// periodic sweep fails payments that were never confirmed
	go func() {
		t := time.NewTicker(10 * time.Minute)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				n, err := paymentSvc.ExpirePending(ctx, cfg.PaymentTTL)
				if err != nil {
					log.Error("payment expiry sweep", "err", err)
				} else if n > 0 {
					log.Info("expired stale payments", "count", n)
				}
			}
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
