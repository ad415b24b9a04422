package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	domcatalog "github.com/minicommerce/stocksync/internal/domain/catalog"
	domstock "github.com/minicommerce/stocksync/internal/domain/stock"
)

// Wire schema. Timestamps travel as epoch seconds plus nanos so consumers in
// other languages do not have to parse RFC 3339.
type wireTimestamp struct {
	Seconds int64 `json:"seconds"`
	Nanos   int32 `json:"nanos"`
}

func toWireTimestamp(t time.Time) wireTimestamp {
	return wireTimestamp{Seconds: t.Unix(), Nanos: int32(t.Nanosecond())}
}

func (ts wireTimestamp) Time() time.Time {
	return time.Unix(ts.Seconds, int64(ts.Nanos)).UTC()
}

type stockChangedMessage struct {
	ProductID         string        `json:"product_id"`
	SKU               string        `json:"sku"`
	AvailableQuantity int32         `json:"available_quantity"`
	InventoryStatus   string        `json:"inventory_status"`
	InStock           bool          `json:"in_stock"`
	Version           int64         `json:"version"`
	Timestamp         wireTimestamp `json:"timestamp"`
}

type productCreatedMessage struct {
	ProductID string        `json:"product_id"`
	SKU       string        `json:"sku"`
	Name      string        `json:"name"`
	Timestamp wireTimestamp `json:"timestamp"`
}

func encodeStockChanged(e domstock.StockChangedEvent) ([]byte, error) {
	return json.Marshal(stockChangedMessage{
		ProductID:         e.ProductID,
		SKU:               e.SKU,
		AvailableQuantity: int32(e.AvailableQuantity),
		InventoryStatus:   string(e.Status),
		InStock:           e.InStock,
		Version:           e.Version,
		Timestamp:         toWireTimestamp(e.OccurredAt),
	})
}

func decodeStockChanged(value []byte) (domstock.StockChangedEvent, error) {
	var msg stockChangedMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		return domstock.StockChangedEvent{}, fmt.Errorf("kafka: decode stock.changed: %w", err)
	}
	return domstock.StockChangedEvent{
		ProductID:         msg.ProductID,
		SKU:               msg.SKU,
		AvailableQuantity: int(msg.AvailableQuantity),
		Status:            domstock.ParseStatus(msg.InventoryStatus),
		InStock:           msg.InStock,
		Version:           msg.Version,
		OccurredAt:        msg.Timestamp.Time(),
	}, nil
}

func encodeProductCreated(e domcatalog.ProductCreatedEvent) ([]byte, error) {
	return json.Marshal(productCreatedMessage{
		ProductID: e.ProductID,
		SKU:       e.SKU,
		Name:      e.Name,
		Timestamp: toWireTimestamp(e.OccurredAt),
	})
}

func decodeProductCreated(value []byte) (domcatalog.ProductCreatedEvent, error) {
	var msg productCreatedMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		return domcatalog.ProductCreatedEvent{}, fmt.Errorf("kafka: decode product.created: %w", err)
	}
	return domcatalog.ProductCreatedEvent{
		ProductID:  msg.ProductID,
		SKU:        msg.SKU,
		Name:       msg.Name,
		OccurredAt: msg.Timestamp.Time(),
	}, nil
}
