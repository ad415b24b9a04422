package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appCatalog "github.com/minicommerce/stocksync/internal/application/catalog"
	appStock "github.com/minicommerce/stocksync/internal/application/stock"
	"github.com/minicommerce/stocksync/internal/config"
	domcatalog "github.com/minicommerce/stocksync/internal/domain/catalog"
	dombus "github.com/minicommerce/stocksync/internal/domain/eventbus"
	domstock "github.com/minicommerce/stocksync/internal/domain/stock"
	"github.com/minicommerce/stocksync/internal/infrastructure/eventbus"
	"github.com/minicommerce/stocksync/internal/infrastructure/httpapi"
	"github.com/minicommerce/stocksync/internal/infrastructure/id"
	"github.com/minicommerce/stocksync/internal/infrastructure/kafka"
	"github.com/minicommerce/stocksync/internal/infrastructure/memory"
	"github.com/minicommerce/stocksync/internal/infrastructure/mongodb"
	"github.com/minicommerce/stocksync/internal/infrastructure/observability/oteltrace"
	"github.com/minicommerce/stocksync/internal/infrastructure/observability/prometrics"
	"github.com/minicommerce/stocksync/internal/infrastructure/observability/telemetry"
	"github.com/minicommerce/stocksync/internal/infrastructure/observability/zaplogger"
	"github.com/minicommerce/stocksync/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		stdlog.Fatalf("load config: %v", err)
	}

	logger := zaplogger.New(
		observability.F("service", cfg.ServiceName),
		observability.F("env", cfg.Env),
	)
	tel := telemetry.New(
		oteltrace.New(cfg.ServiceName),
		logger,
		prometrics.New(cfg.ServiceName, prometheus.DefaultRegisterer),
	)
	log := tel.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage backends.
	var (
		stockRepo   domstock.Repository
		productRepo domcatalog.Repository
		mongoClient *mongo.Client
	)
	switch cfg.Storage {
	case config.StorageMongo:
		connectCtx, cancel := context.WithTimeout(ctx, cfg.Mongo.Timeout)
		mongoClient, err = mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err == nil {
			err = mongoClient.Ping(connectCtx, nil)
		}
		if err != nil {
			cancel()
			log.Error("mongo_connect_failed", observability.F("error", err.Error()))
			os.Exit(1)
		}
		db := mongoClient.Database(cfg.Mongo.Database)
		stockRepo, err = mongodb.NewStockRepository(connectCtx, db)
		if err == nil {
			productRepo, err = mongodb.NewProductRepository(connectCtx, db)
		}
		cancel()
		if err != nil {
			log.Error("mongo_setup_failed", observability.F("error", err.Error()))
			os.Exit(1)
		}
	default:
		stockRepo = memory.NewStockRepository()
		productRepo = memory.NewProductRepository()
	}

	// Transport: a brokered channel when configured, the in-process bus
	// otherwise.
	var (
		publisher  dombus.Publisher
		subscriber dombus.Subscriber
		bus        *eventbus.Bus
		consumer   *kafka.Consumer
	)
	switch cfg.Transport {
	case config.TransportKafka:
		kcfg := kafka.Config{
			Brokers:            cfg.Kafka.Brokers,
			GroupID:            cfg.Kafka.GroupID,
			StockTopic:         cfg.Kafka.StockTopic,
			ProductTopic:       cfg.Kafka.ProductTopic,
			PublishMaxAttempts: cfg.PublishMaxAttempts,
			PublishBackoff:     cfg.PublishBackoff,
			CommitInterval:     cfg.Kafka.CommitInterval,
		}
		kafkaPublisher, err := kafka.NewPublisher(kcfg, log)
		if err != nil {
			log.Error("kafka_publisher_failed", observability.F("error", err.Error()))
			os.Exit(1)
		}
		defer func() { _ = kafkaPublisher.Close() }()
		consumer, err = kafka.NewConsumer(kcfg, log)
		if err != nil {
			log.Error("kafka_consumer_failed", observability.F("error", err.Error()))
			os.Exit(1)
		}
		publisher, subscriber = kafkaPublisher, consumer
	default:
		bus = eventbus.NewBus(log)
		publisher, subscriber = bus, bus
	}

	engine := appStock.NewEngine(stockRepo, publisher, appStock.EngineConfig{
		LowStockThreshold: cfg.LowStockThreshold,
		MaxRetries:        cfg.MutationMaxRetries,
		StorageTimeout:    cfg.StorageTimeout,
		PublishTimeout:    cfg.PublishTimeout,
	}, tel)
	catalogService := appCatalog.NewService(productRepo, id.NewUUIDGenerator(), publisher, tel)
	projector := appCatalog.NewProjector(productRepo, tel)

	appStock.NewWorker(subscriber, engine, tel).Start()
	appCatalog.NewWorker(subscriber, projector, tel).Start()

	// Transport starts after subscriptions are in place.
	if bus != nil {
		bus.Start(ctx)
	}
	if consumer != nil {
		consumer.Start(ctx)
	}

	handler := httpapi.NewHandler(engine, catalogService)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		log.Info("http_server_start", observability.F("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http_server_error", observability.F("error", err.Error()))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http_server_shutdown_error", observability.F("error", err.Error()))
	} else {
		log.Info("http_server_stopped")
	}

	if bus != nil {
		bus.Stop(shutdownCtx)
	}
	if consumer != nil {
		consumer.Stop(shutdownCtx)
	}
	if mongoClient != nil {
		if err := mongoClient.Disconnect(shutdownCtx); err != nil {
			log.Error("mongo_disconnect_error", observability.F("error", err.Error()))
		}
	}
}
