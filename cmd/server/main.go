// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"partner-payouts/config"
	"partner-payouts/internal/analytics"
	"partner-payouts/internal/cache"
	"partner-payouts/internal/events"
	"partner-payouts/internal/fees"
	"partner-payouts/internal/handler"
	"partner-payouts/internal/notify"
	"partner-payouts/internal/provider"
	"partner-payouts/internal/provider/connect"
	"partner-payouts/internal/provider/google"
	"partner-payouts/internal/provider/paypal"
	"partner-payouts/internal/provider/stripev2"
	"partner-payouts/internal/repository"
	"partner-payouts/internal/router"
	"partner-payouts/internal/storage"
	"partner-payouts/internal/streams"
	"partner-payouts/internal/usecase"
	"partner-payouts/internal/worker"
	"partner-payouts/pkg/auth"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const streamDrainInterval = 10 * time.Second

func main() {
	_ = godotenv.Load()

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("starting partner payouts service")

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	// Database
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		logger.Fatal("invalid database configuration", zap.Error(err))
	}
	poolCfg.MaxConns = cfg.Database.MaxConns

	dbPool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		logger.Fatal("database ping failed", zap.Error(err))
	}
	logger.Info("connected to database", zap.String("database", cfg.Database.DBName))

	// Redis
	redisClient, err := cache.NewRedisClient(cfg.Redis, logger)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()
	redisCache := cache.New(redisClient, logger)

	// Kafka
	kafkaWriter := events.NewWriter(cfg.Kafka.Brokers, logger)
	defer kafkaWriter.Close()
	publisher := events.NewPublisher(kafkaWriter, cfg.Kafka.PayoutTopic, cfg.Kafka.ReconciliationTopic, logger)

	// Repositories
	partnerRepo := repository.NewPartnerRepository(dbPool)
	payoutRepo := repository.NewPayoutRepository(dbPool)
	invoiceRepo := repository.NewInvoiceRepository(dbPool)
	workspaceRepo := repository.NewWorkspaceRepository(dbPool)
	cleanupRepo := repository.NewCleanupRepository(dbPool)
	usageRepo := repository.NewUsageRepository(dbPool)

	// Payout rails
	stablecoinRail := stripev2.NewStablecoinRail(cfg.Stripe, logger)
	connectRail := connect.NewConnectRail(cfg.Stripe.SecretKey, logger)
	paypalClient := paypal.NewClient(cfg.PayPal, redisClient, logger)
	rails := provider.NewRegistry(stablecoinRail, connectRail, paypalClient)

	calc, err := fees.NewCalculator(cfg.Fees.StablecoinPayoutFeeRate, cfg.Fees.FastACHFeeCents, cfg.Fees.FXMarkupRate)
	if err != nil {
		logger.Fatal("invalid fee configuration", zap.Error(err))
	}

	// Side-effect clients
	emailer := notify.NewEmailer(cfg.Email, cfg.AppURL, logger)
	objectStore := storage.NewR2(cfg.R2, logger)
	tinybird := analytics.NewTinybird(cfg.Tinybird, logger)
	googleConnector := google.NewConnector(cfg.Google)

	// Usecases
	settlementUC := usecase.NewSettlementUsecase(
		partnerRepo,
		payoutRepo,
		rails,
		calc,
		redisCache,
		publisher,
		emailer,
		logger,
	)
	cleanupUC := usecase.NewCleanupUsecase(
		cleanupRepo,
		redisCache,
		tinybird,
		objectStore,
		connectRail,
		publisher,
		logger,
	)
	oauthUC := usecase.NewOAuthUsecase(redisCache, partnerRepo, paypalClient, googleConnector, logger)
	supportUC := usecase.NewSupportUsecase(partnerRepo, workspaceRepo, logger)
	invoiceUC := usecase.NewInvoiceUsecase(invoiceRepo, payoutRepo)

	// Stream workers
	streamClient := streams.NewClient(redisClient)
	workers := []*worker.StreamWorker{
		worker.NewUsageWorker(streamClient, usageRepo, streamDrainInterval, logger),
		worker.NewActivityWorker(streamClient, usageRepo, streamDrainInterval, logger),
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w *worker.StreamWorker) {
			defer wg.Done()
			w.Start(workerCtx)
		}(w)
	}

	// Handlers
	handlers := router.Handlers{
		Invoices: handler.NewInvoiceHandler(invoiceUC, logger),
		Links:    handler.NewLinksHandler(cleanupUC, logger),
		Cron:     handler.NewCronHandler(settlementUC, cleanupUC, logger),
		Plain:    handler.NewPlainHandler(supportUC, cfg.Plain.WebhookSecret, logger),
		PayPal:   handler.NewPayPalWebhookHandler(paypalClient, settlementUC, logger),
		OAuth:    handler.NewOAuthHandler(oauthUC, cfg.AppURL, logger),
	}
	r := router.SetupRoutes(handlers, auth.NewVerifier(cfg.Auth.JWTSecret), cfg.Auth.CronSecret, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	logger.Info("partner payouts service started",
		zap.String("port", cfg.Server.Port),
		zap.String("environment", cfg.Server.Env))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	for _, w := range workers {
		w.Stop()
	}
	cancelWorkers()
	wg.Wait()

	logger.Info("server stopped")
}
