package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	appadmin "github.com/mkvend/vendbot/internal/application/admin"
	appshop "github.com/mkvend/vendbot/internal/application/shop"
	"github.com/mkvend/vendbot/internal/config"
	"github.com/mkvend/vendbot/internal/domain/buyer"
	"github.com/mkvend/vendbot/internal/domain/catalog"
	"github.com/mkvend/vendbot/internal/domain/order"
	"github.com/mkvend/vendbot/internal/infrastructure/memory"
	"github.com/mkvend/vendbot/internal/infrastructure/postgres"
	"github.com/mkvend/vendbot/internal/infrastructure/yookassa"
	"github.com/mkvend/vendbot/internal/pkg/logging"
	"github.com/mkvend/vendbot/internal/presentation/httpapi"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet.
		println(err.Error())
		os.Exit(1)
	}

	logger := logging.MustNewLogger(cfg.ServiceName, cfg.Env)
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		catalogRepo catalog.Repository
		orderRepo   order.Repository
		buyerRepo   buyer.Repository
		settler     appshop.Settler
	)
	if cfg.DatabaseDSN != "" {
		store, err := postgres.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			logger.Fatal("store_open_failed", zap.Error(err))
		}
		defer func() { _ = store.Close() }()
		catalogRepo = store.Catalog
		orderRepo = store.Orders
		buyerRepo = store.Buyers
		settler = store.Settler
		logger.Info("record_store_ready", zap.String("backend", "postgres"))
	} else {
		catalogStore := memory.NewCatalogRepository()
		orderStore := memory.NewOrderRepository()
		catalogRepo = catalogStore
		orderRepo = orderStore
		buyerRepo = memory.NewBuyerRepository()
		settler = memory.NewSettler(catalogStore, orderStore)
		logger.Info("record_store_ready", zap.String("backend", "memory"))
	}

	gateway := yookassa.New(yookassa.Config{
		ShopID:    cfg.GatewayShopID,
		SecretKey: cfg.GatewaySecretKey,
		BaseURL:   cfg.GatewayBaseURL,
		ReturnURL: cfg.GatewayReturnURL,
		Timeout:   cfg.GatewayTimeout,
	})

	shopMetrics := &appshop.Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "usecase_requests_total",
			Help: "Total number of use case invocations.",
		}, []string{"use_case", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "usecase_duration_seconds",
			Help:    "Duration of use case execution in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"use_case"}),
	}
	httpMetrics := &httpapi.Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	prometheus.MustRegister(shopMetrics.Requests, shopMetrics.Duration, httpMetrics.Requests, httpMetrics.Duration)

	shopService := appshop.NewService(catalogRepo, orderRepo, buyerRepo, gateway, settler, logger, shopMetrics)
	adminService := appadmin.NewService(catalogRepo, orderRepo, cfg.AdminID, logger)
	handler := httpapi.NewHandler(shopService, adminService, logger, httpMetrics)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	go func() {
		logger.Info("http_server_start", zap.String("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		logger.Info("http_server_stopped")
	}
}
