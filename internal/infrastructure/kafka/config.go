package kafka

import (
	"fmt"
	"strings"
	"time"
)

// Config describes the brokered transport. Topics carry JSON messages keyed
// by product id; the hash balancer pins a product to one partition, which is
// what gives consumers per-product delivery order.
type Config struct {
	Brokers      []string
	GroupID      string
	StockTopic   string
	ProductTopic string

	// Publisher retry budget for transient transport failures.
	PublishMaxAttempts int
	PublishBackoff     time.Duration

	CommitInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.GroupID == "" {
		c.GroupID = "stocksync"
	}
	if c.StockTopic == "" {
		c.StockTopic = "inventory-events"
	}
	if c.ProductTopic == "" {
		c.ProductTopic = "product-events"
	}
	if c.PublishMaxAttempts <= 0 {
		c.PublishMaxAttempts = 4
	}
	if c.PublishBackoff <= 0 {
		c.PublishBackoff = 100 * time.Millisecond
	}
	if c.CommitInterval <= 0 {
		c.CommitInterval = time.Second
	}
	return c
}

func (c Config) validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka: brokers cannot be empty")
	}
	for i, broker := range c.Brokers {
		if !strings.Contains(broker, ":") {
			return fmt.Errorf("kafka: broker[%d] must be in host:port form", i)
		}
	}
	return nil
}
