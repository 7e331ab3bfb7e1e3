package main

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/punchamoorthee/paycore/internal/api"
	"github.com/punchamoorthee/paycore/internal/config"
	"github.com/punchamoorthee/paycore/internal/provider/openpay"
	"github.com/punchamoorthee/paycore/internal/service"
	"github.com/punchamoorthee/paycore/internal/store"
)

func main() {
	// Best-effort: absent .env is fine in containerized deployments.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	var logger *zap.Logger
	if cfg.Env == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	st, err := store.NewStore(cfg.DBSource)
	if err != nil {
		logger.Fatal("unable to connect to database", zap.Error(err))
	}
	defer st.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       0,
	})
	mirror := store.NewEventMirror(rdb)

	rates := service.NewNormalizer(
		service.NewCachedRateSource(rdb,
			service.NewStaticRateSource(service.DefaultRates()),
			cfg.RateCacheTTL))

	screener := service.NewScreener(st)

	reversalClient := openpay.NewClient(
		cfg.OpenPayBaseURL,
		cfg.OpenPayTenantID,
		cfg.OpenPayWalletID,
		cfg.OpenPaySecret,
		cfg.OpenPayTimeout,
	)

	orch := service.NewOrchestrator(st, st, st, reversalClient, cfg.ReversalFallback, logger)

	pipeline := service.NewPipeline(st, st, st, screener, rates, orch, mirror,
		service.Thresholds{PerCurrency: cfg.AutoApproveThresholds, Default: cfg.DefaultThreshold},
		logger)

	handler := api.NewHandler(pipeline, orch, st, mirror, cfg.WebhookSecret, logger)

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", handler.HealthCheckHandler).Methods("GET")
	r.HandleFunc("/webhooks/payments", handler.WebhookHandler).Methods("POST")

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.HandleFunc("/payments/pending", handler.ListPendingHandler).Methods("GET")
	apiV1.HandleFunc("/payments/{id}", handler.GetPaymentHandler).Methods("GET")
	apiV1.HandleFunc("/payments/{id}/decision", handler.DecisionHandler).Methods("POST")
	apiV1.HandleFunc("/events/recent", handler.RecentEventsHandler).Methods("GET")
	apiV1.HandleFunc("/events/{id}", handler.GetEventHandler).Methods("GET")
	apiV1.HandleFunc("/accounts/{id}", handler.GetAccountHandler).Methods("GET")
	apiV1.HandleFunc("/accounts/{id}/transactions", handler.GetAccountTransactionsHandler).Methods("GET")

	logger.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
