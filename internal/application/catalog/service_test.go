package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"

	domcatalog "github.com/minicommerce/stocksync/internal/domain/catalog"
	dombus "github.com/minicommerce/stocksync/internal/domain/eventbus"
	"github.com/minicommerce/stocksync/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []dombus.Event
	fail   bool
}

func (p *capturePublisher) Publish(_ context.Context, e dombus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("transport unavailable")
	}
	p.events = append(p.events, e)
	return nil
}

type sequenceIDs struct{ n int }

func (g *sequenceIDs) NewID() string {
	g.n++
	return []string{"id-1", "id-2", "id-3"}[g.n-1]
}

func newTestService(t *testing.T) (*Service, *memory.ProductRepository, *capturePublisher) {
	t.Helper()
	repo := memory.NewProductRepository()
	pub := &capturePublisher{}
	return NewService(repo, &sequenceIDs{}, pub, nil), repo, pub
}

func TestCreateProduct(t *testing.T) {
	svc, _, pub := newTestService(t)

	product, err := svc.CreateProduct(context.Background(), CreateProductInput{SKU: "SKU-1", Name: "Keyboard"})
	require.NoError(t, err)
	assert.Equal(t, "id-1", product.ID)
	assert.Equal(t, domcatalog.SyncStateUnsynced, product.SyncState)

	require.Len(t, pub.events, 1)
	created, ok := pub.events[0].(domcatalog.ProductCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, "id-1", created.ProductID)
	assert.Equal(t, "SKU-1", created.SKU)
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductInput{SKU: "SKU-1", Name: "Keyboard"})
	require.NoError(t, err)

	_, err = svc.CreateProduct(ctx, CreateProductInput{SKU: "SKU-1", Name: "Another keyboard"})
	require.ErrorIs(t, err, domcatalog.ErrAlreadyExists)
}

func TestCreateProductInvalid(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateProduct(context.Background(), CreateProductInput{SKU: "", Name: "Keyboard"})
	require.ErrorIs(t, err, domcatalog.ErrInvalidSKU)

	_, err = svc.CreateProduct(context.Background(), CreateProductInput{SKU: "SKU-1", Name: ""})
	require.ErrorIs(t, err, domcatalog.ErrInvalidName)
}

func TestCreateProductPublishFailureKeepsProduct(t *testing.T) {
	svc, repo, pub := newTestService(t)
	pub.fail = true

	product, err := svc.CreateProduct(context.Background(), CreateProductInput{SKU: "SKU-1", Name: "Keyboard"})
	require.Error(t, err)
	require.NotNil(t, product)

	stored, gerr := repo.Get(context.Background(), product.ID)
	require.NoError(t, gerr)
	assert.Equal(t, "SKU-1", stored.SKU)
}

func TestGetProductBySKU(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, CreateProductInput{SKU: "SKU-1", Name: "Keyboard"})
	require.NoError(t, err)

	bySKU, err := svc.GetProductBySKU(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, bySKU.ID)

	_, err = svc.GetProductBySKU(ctx, "SKU-missing")
	require.ErrorIs(t, err, domcatalog.ErrNotFound)
}
