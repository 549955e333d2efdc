package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/evergreenattire/checkout/internal/health"
	"github.com/evergreenattire/checkout/internal/messaging/kafka"
	"github.com/evergreenattire/checkout/internal/service/cart"
	"github.com/evergreenattire/checkout/internal/service/checkout"
	"github.com/evergreenattire/checkout/internal/service/claim"
	"github.com/evergreenattire/checkout/internal/service/whatsapp"
	transport "github.com/evergreenattire/checkout/internal/transport/http"
	"github.com/evergreenattire/checkout/internal/version"
)

// Run собирает сервис из конфигурации и блокируется до отмены контекста.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		logger.WithField("level", cfg.LogLevel).Warn("unknown log level, keeping default")
	}

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}()

	// Kafka producer опционален: без брокеров события просто не публикуются.
	var producer *kafka.Producer
	if cfg.UsesKafka() {
		p, err := kafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		} else {
			producer = p
			logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer initialized")
		}
	}

	composer := whatsapp.NewComposer(cfg.WhatsAppPhone)
	engine := claim.NewEngine(deps.Offers, deps.Products, deps.Carts,
		logger.WithField("component", "claim"))
	cartSvc := cart.NewService(deps.Carts, deps.Products,
		logger.WithField("component", "cart"))

	var orchestrator *checkout.Orchestrator
	if producer != nil {
		orchestrator = checkout.NewOrchestratorWithKafka(
			deps.Orders, deps.Carts, deps.Products, deps.Timeline,
			engine, composer, producer, logger.WithField("component", "checkout"))
	} else {
		orchestrator = checkout.NewOrchestrator(
			deps.Orders, deps.Carts, deps.Products, deps.Timeline,
			engine, composer, logger.WithField("component", "checkout"))
	}

	api := transport.NewAPI(cartSvc, orchestrator, deps.Offers, deps.Orders, deps.Timeline,
		logger.WithField("component", "http"))

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	if deps.Store != nil {
		healthHandler.RegisterChecker("postgres", healthcheck.NewSimpleChecker("postgres", func() error {
			checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return deps.Store.Ping(checkCtx)
		}))
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	handler := transport.WithRecover(logger.WithField("component", "http"),
		transport.WithLogging(logger.WithField("component", "http"), api.NewRouter()))
	apiSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: handler}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		closeProducer(producer, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		closeProducer(producer, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}

func closeProducer(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
