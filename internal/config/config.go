package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/minicommerce/stocksync/internal/domain/stock"
)

// Transport and storage backends selectable at startup.
const (
	TransportMemory = "memory"
	TransportKafka  = "kafka"

	StorageMemory = "memory"
	StorageMongo  = "mongo"
)

type Config struct {
	ServiceName string
	Env         string
	HTTPAddr    string

	Transport string
	Storage   string

	Kafka KafkaConfig
	Mongo MongoConfig

	// LowStockThreshold is the single authoritative boundary between
	// LOW_STOCK and IN_STOCK, shared by the engine and everything derived
	// from its events.
	LowStockThreshold int

	// Engine bounds.
	MutationMaxRetries int
	StorageTimeout     time.Duration

	// Publisher bounds.
	PublishMaxAttempts int
	PublishBackoff     time.Duration
	PublishTimeout     time.Duration
}

type KafkaConfig struct {
	Brokers        []string
	GroupID        string
	StockTopic     string
	ProductTopic   string
	CommitInterval time.Duration
}

type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// FromEnv builds the configuration from environment variables, applying
// defaults suitable for a local in-process run.
func FromEnv() (Config, error) {
	cfg := Config{
		ServiceName: getenvDefault("SERVICE_NAME", "stocksync"),
		Env:         getenvDefault("ENV", "dev"),
		HTTPAddr:    getenvDefault("HTTP_ADDR", ":8080"),
		Transport:   getenvDefault("TRANSPORT", TransportMemory),
		Storage:     getenvDefault("STORAGE", StorageMemory),
		Kafka: KafkaConfig{
			Brokers:        splitList(getenvDefault("KAFKA_BROKERS", "localhost:9092")),
			GroupID:        getenvDefault("KAFKA_GROUP_ID", "stocksync"),
			StockTopic:     getenvDefault("KAFKA_STOCK_TOPIC", "inventory-events"),
			ProductTopic:   getenvDefault("KAFKA_PRODUCT_TOPIC", "product-events"),
			CommitInterval: time.Second,
		},
		Mongo: MongoConfig{
			URI:      getenvDefault("MONGO_URI", "mongodb://localhost:27017"),
			Database: getenvDefault("MONGO_DATABASE", "stocksync"),
			Timeout:  10 * time.Second,
		},
		LowStockThreshold:  stock.DefaultLowStockThreshold,
		MutationMaxRetries: 5,
		StorageTimeout:     3 * time.Second,
		PublishMaxAttempts: 4,
		PublishBackoff:     100 * time.Millisecond,
		PublishTimeout:     2 * time.Second,
	}

	var err error
	if cfg.LowStockThreshold, err = getenvInt("LOW_STOCK_THRESHOLD", cfg.LowStockThreshold); err != nil {
		return Config{}, err
	}
	if cfg.MutationMaxRetries, err = getenvInt("MUTATION_MAX_RETRIES", cfg.MutationMaxRetries); err != nil {
		return Config{}, err
	}
	if cfg.PublishMaxAttempts, err = getenvInt("PUBLISH_MAX_ATTEMPTS", cfg.PublishMaxAttempts); err != nil {
		return Config{}, err
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Transport {
	case TransportMemory, TransportKafka:
	default:
		return fmt.Errorf("config: unknown transport %q", c.Transport)
	}
	switch c.Storage {
	case StorageMemory, StorageMongo:
	default:
		return fmt.Errorf("config: unknown storage %q", c.Storage)
	}
	if c.LowStockThreshold < 0 {
		return fmt.Errorf("config: low stock threshold must not be negative")
	}
	if c.MutationMaxRetries < 1 {
		return fmt.Errorf("config: mutation max retries must be at least 1")
	}
	if c.PublishMaxAttempts < 1 {
		return fmt.Errorf("config: publish max attempts must be at least 1")
	}
	if c.Transport == TransportKafka && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka transport requires brokers")
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
