package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	domstock "github.com/minicommerce/stocksync/internal/domain/stock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const stockCollection = "inventory"

type stockDocument struct {
	ProductID         string    `bson:"_id"`
	SKU               string    `bson:"sku"`
	AvailableQuantity int       `bson:"available_quantity"`
	ReservedQuantity  int       `bson:"reserved_quantity"`
	Status            string    `bson:"status"`
	InStock           bool      `bson:"in_stock"`
	Version           int64     `bson:"version"`
	CreatedAt         time.Time `bson:"created_at"`
	UpdatedAt         time.Time `bson:"updated_at"`
}

// StockRepository stores aggregates one document per product. Optimistic
// concurrency is a filtered update on {_id, version}: MongoDB applies the
// filter and the write atomically per document, which is exactly the per-key
// compare-and-swap the engine needs.
type StockRepository struct {
	collection *mongo.Collection
}

func NewStockRepository(ctx context.Context, db *mongo.Database) (*StockRepository, error) {
	collection := db.Collection(stockCollection)

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "sku", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("mongodb: ensure sku index: %w", err)
	}

	return &StockRepository{collection: collection}, nil
}

func (r *StockRepository) Get(ctx context.Context, productID string) (*domstock.Aggregate, error) {
	var doc stockDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": productID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domstock.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb: find aggregate: %w", err)
	}
	return doc.toAggregate(), nil
}

func (r *StockRepository) Create(ctx context.Context, a *domstock.Aggregate) error {
	_, err := r.collection.InsertOne(ctx, fromAggregate(a))
	if mongo.IsDuplicateKeyError(err) {
		return domstock.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("mongodb: insert aggregate: %w", err)
	}
	return nil
}

func (r *StockRepository) Update(ctx context.Context, a *domstock.Aggregate, expectedVersion int64) error {
	res, err := r.collection.ReplaceOne(ctx,
		bson.M{"_id": a.ProductID, "version": expectedVersion},
		fromAggregate(a),
	)
	if err != nil {
		return fmt.Errorf("mongodb: update aggregate: %w", err)
	}
	if res.MatchedCount == 0 {
		// Distinguish a missing document from a lost race.
		n, err := r.collection.CountDocuments(ctx, bson.M{"_id": a.ProductID})
		if err != nil {
			return fmt.Errorf("mongodb: update aggregate: %w", err)
		}
		if n == 0 {
			return domstock.ErrNotFound
		}
		return domstock.ErrVersionConflict
	}
	return nil
}

func (r *StockRepository) ListBelow(ctx context.Context, threshold int) ([]*domstock.Aggregate, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"available_quantity": bson.M{"$lte": threshold}})
	if err != nil {
		return nil, fmt.Errorf("mongodb: list low stock: %w", err)
	}
	defer cursor.Close(ctx)

	var out []*domstock.Aggregate
	for cursor.Next(ctx) {
		var doc stockDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongodb: decode aggregate: %w", err)
		}
		out = append(out, doc.toAggregate())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("mongodb: list low stock: %w", err)
	}
	return out, nil
}

func fromAggregate(a *domstock.Aggregate) stockDocument {
	return stockDocument{
		ProductID:         a.ProductID,
		SKU:               a.SKU,
		AvailableQuantity: a.AvailableQuantity,
		ReservedQuantity:  a.ReservedQuantity,
		Status:            string(a.Status),
		InStock:           a.InStock,
		Version:           a.Version,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

func (d stockDocument) toAggregate() *domstock.Aggregate {
	return &domstock.Aggregate{
		ProductID:         d.ProductID,
		SKU:               d.SKU,
		AvailableQuantity: d.AvailableQuantity,
		ReservedQuantity:  d.ReservedQuantity,
		Status:            domstock.ParseStatus(d.Status),
		InStock:           d.InStock,
		Version:           d.Version,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}
