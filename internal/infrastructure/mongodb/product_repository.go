package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	domcatalog "github.com/minicommerce/stocksync/internal/domain/catalog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const productCollection = "products"

type productDocument struct {
	ProductID          string    `bson:"_id"`
	SKU                string    `bson:"sku"`
	Name               string    `bson:"name"`
	AvailableQuantity  int       `bson:"available_quantity"`
	InventoryStatus    string    `bson:"inventory_status"`
	InStock            bool      `bson:"in_stock"`
	SyncState          string    `bson:"sync_state"`
	LastAppliedVersion int64     `bson:"last_applied_version"`
	InventoryUpdatedAt time.Time `bson:"inventory_updated_at"`
	CreatedAt          time.Time `bson:"created_at"`
	UpdatedAt          time.Time `bson:"updated_at"`
}

// ProductRepository stores catalog products with their cached inventory view.
type ProductRepository struct {
	collection *mongo.Collection
}

func NewProductRepository(ctx context.Context, db *mongo.Database) (*ProductRepository, error) {
	collection := db.Collection(productCollection)

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "sku", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("mongodb: ensure sku index: %w", err)
	}

	return &ProductRepository{collection: collection}, nil
}

func (r *ProductRepository) Get(ctx context.Context, productID string) (*domcatalog.Product, error) {
	return r.findOne(ctx, bson.M{"_id": productID})
}

func (r *ProductRepository) GetBySKU(ctx context.Context, sku string) (*domcatalog.Product, error) {
	return r.findOne(ctx, bson.M{"sku": sku})
}

func (r *ProductRepository) findOne(ctx context.Context, filter bson.M) (*domcatalog.Product, error) {
	var doc productDocument
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domcatalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb: find product: %w", err)
	}
	return doc.toProduct(), nil
}

func (r *ProductRepository) Create(ctx context.Context, p *domcatalog.Product) error {
	_, err := r.collection.InsertOne(ctx, fromProduct(p))
	if mongo.IsDuplicateKeyError(err) {
		return domcatalog.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("mongodb: insert product: %w", err)
	}
	return nil
}

func (r *ProductRepository) Save(ctx context.Context, p *domcatalog.Product) error {
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": p.ID}, fromProduct(p))
	if err != nil {
		return fmt.Errorf("mongodb: save product: %w", err)
	}
	if res.MatchedCount == 0 {
		return domcatalog.ErrNotFound
	}
	return nil
}

func fromProduct(p *domcatalog.Product) productDocument {
	return productDocument{
		ProductID:          p.ID,
		SKU:                p.SKU,
		Name:               p.Name,
		AvailableQuantity:  p.AvailableQuantity,
		InventoryStatus:    p.InventoryStatus,
		InStock:            p.InStock,
		SyncState:          string(p.SyncState),
		LastAppliedVersion: p.LastAppliedVersion,
		InventoryUpdatedAt: p.InventoryUpdatedAt,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

func (d productDocument) toProduct() *domcatalog.Product {
	return &domcatalog.Product{
		ID:                 d.ProductID,
		SKU:                d.SKU,
		Name:               d.Name,
		AvailableQuantity:  d.AvailableQuantity,
		InventoryStatus:    d.InventoryStatus,
		InStock:            d.InStock,
		SyncState:          domcatalog.SyncState(d.SyncState),
		LastAppliedVersion: d.LastAppliedVersion,
		InventoryUpdatedAt: d.InventoryUpdatedAt,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}
