package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	appCatalog "github.com/minicommerce/stocksync/internal/application/catalog"
	appStock "github.com/minicommerce/stocksync/internal/application/stock"
	dombus "github.com/minicommerce/stocksync/internal/domain/eventbus"
	"github.com/minicommerce/stocksync/internal/infrastructure/id"
	"github.com/minicommerce/stocksync/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, dombus.Event) error { return nil }

func newTestRouter(t *testing.T) (http.Handler, *appStock.Engine) {
	t.Helper()
	engine := appStock.NewEngine(memory.NewStockRepository(), nopPublisher{}, appStock.EngineConfig{LowStockThreshold: 5}, nil)
	catalog := appCatalog.NewService(memory.NewProductRepository(), id.NewUUIDGenerator(), nopPublisher{}, nil)
	return NewHandler(engine, catalog).Router(), engine
}

func do(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func seedInventory(t *testing.T, engine *appStock.Engine, productID string, qty int) {
	t.Helper()
	_, err := engine.CreateForProduct(context.Background(), productID, "SKU-"+productID)
	require.NoError(t, err)
	if qty > 0 {
		_, err = engine.SetQuantity(context.Background(), productID, qty)
		require.NoError(t, err)
	}
}

func TestCreateProductEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/products", `{"sku":"SKU-1","name":"Keyboard"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "SKU-1", body["sku"])
	assert.Equal(t, "UNSYNCED", body["sync_state"])
	assert.NotEmpty(t, body["product_id"])

	rec = do(t, router, http.MethodPost, "/products", `{"sku":"SKU-1","name":"Another"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateProductRejectsBadPayload(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/products", `{"sku":"SKU-1"`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/products", `{"sku":"","name":"Keyboard"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProductEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := do(t, router, http.MethodPost, "/products", `{"sku":"SKU-1","name":"Keyboard"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	productID := decodeBody(t, rec)["product_id"].(string)

	rec = do(t, router, http.MethodGet, "/products/view?product_id="+productID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/products/view?sku=SKU-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, productID, decodeBody(t, rec)["product_id"])

	rec = do(t, router, http.MethodGet, "/products/view?product_id=missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodGet, "/products/view", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInventoryMutationEndpoints(t *testing.T) {
	router, engine := newTestRouter(t)
	seedInventory(t, engine, "prod-1", 0)

	rec := do(t, router, http.MethodPost, "/inventory/set", `{"product_id":"prod-1","quantity":100}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 100, body["available_quantity"])
	assert.Equal(t, "IN_STOCK", body["status"])

	rec = do(t, router, http.MethodPost, "/inventory/reserve", `{"product_id":"prod-1","quantity":30}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.EqualValues(t, 70, body["available_quantity"])
	assert.EqualValues(t, 30, body["reserved_quantity"])

	rec = do(t, router, http.MethodPost, "/inventory/decrement", `{"product_id":"prod-1","quantity":80}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, http.MethodPost, "/inventory/release", `{"product_id":"prod-1","quantity":30}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.EqualValues(t, 100, body["available_quantity"])
	assert.EqualValues(t, 0, body["reserved_quantity"])
}

func TestInventoryMutationErrorMapping(t *testing.T) {
	router, engine := newTestRouter(t)
	seedInventory(t, engine, "prod-1", 10)

	rec := do(t, router, http.MethodPost, "/inventory/set", `{"product_id":"missing","quantity":5}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodPost, "/inventory/set", `{"product_id":"prod-1","quantity":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/inventory/increment", `{"product_id":"prod-1","quantity":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/inventory/set", `{"quantity":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/inventory/set", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestInventoryViewAndLowStock(t *testing.T) {
	router, engine := newTestRouter(t)
	seedInventory(t, engine, "prod-1", 2)
	seedInventory(t, engine, "prod-2", 50)

	rec := do(t, router, http.MethodGet, "/inventory/view?product_id=prod-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 2, body["available_quantity"])
	assert.Equal(t, "LOW_STOCK", body["status"])

	rec = do(t, router, http.MethodGet, "/inventory/view", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/inventory/low-stock", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var low []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &low))
	require.Len(t, low, 1)
	assert.Equal(t, "prod-1", low[0]["product_id"])
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
