package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	appCatalog "github.com/minicommerce/stocksync/internal/application/catalog"
	appStock "github.com/minicommerce/stocksync/internal/application/stock"
	domcatalog "github.com/minicommerce/stocksync/internal/domain/catalog"
	domstock "github.com/minicommerce/stocksync/internal/domain/stock"
)

// Handler exposes the mutation API of the stock side and the read API of the
// catalog side. Request parsing stays here; everything else is delegated.
type Handler struct {
	engine  *appStock.Engine
	catalog *appCatalog.Service
}

func NewHandler(engine *appStock.Engine, catalog *appCatalog.Service) *Handler {
	return &Handler{engine: engine, catalog: catalog}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/products", h.method(http.MethodPost, h.handleCreateProduct))
	mux.HandleFunc("/products/view", h.method(http.MethodGet, h.handleGetProduct))

	mux.HandleFunc("/inventory/view", h.method(http.MethodGet, h.handleGetInventory))
	mux.HandleFunc("/inventory/low-stock", h.method(http.MethodGet, h.handleLowStock))
	mux.HandleFunc("/inventory/set", h.method(http.MethodPost, h.mutation(h.engine.SetQuantity)))
	mux.HandleFunc("/inventory/increment", h.method(http.MethodPost, h.mutation(h.engine.Increment)))
	mux.HandleFunc("/inventory/decrement", h.method(http.MethodPost, h.mutation(h.engine.Decrement)))
	mux.HandleFunc("/inventory/reserve", h.method(http.MethodPost, h.mutation(h.engine.Reserve)))
	mux.HandleFunc("/inventory/release", h.method(http.MethodPost, h.mutation(h.engine.Release)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}

type createProductRequest struct {
	SKU  string `json:"sku"`
	Name string `json:"name"`
}

type productResponse struct {
	ProductID          string    `json:"product_id"`
	SKU                string    `json:"sku"`
	Name               string    `json:"name"`
	AvailableQuantity  int       `json:"available_quantity"`
	InventoryStatus    string    `json:"inventory_status"`
	InStock            bool      `json:"in_stock"`
	SyncState          string    `json:"sync_state"`
	LastAppliedVersion int64     `json:"last_applied_version"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	product, err := h.catalog.CreateProduct(r.Context(), appCatalog.CreateProductInput{
		SKU:  req.SKU,
		Name: req.Name,
	})
	if err != nil && product == nil {
		writeDomainError(w, err)
		return
	}

	// A publish failure leaves the product committed; report it created.
	writeJSON(w, http.StatusCreated, toProductResponse(product))
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	var (
		product *domcatalog.Product
		err     error
	)
	switch {
	case r.URL.Query().Get("product_id") != "":
		product, err = h.catalog.GetProduct(r.Context(), r.URL.Query().Get("product_id"))
	case r.URL.Query().Get("sku") != "":
		product, err = h.catalog.GetProductBySKU(r.Context(), r.URL.Query().Get("sku"))
	default:
		writeError(w, http.StatusBadRequest, errors.New("product_id or sku is required"))
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

type inventoryResponse struct {
	ProductID         string    `json:"product_id"`
	SKU               string    `json:"sku"`
	AvailableQuantity int       `json:"available_quantity"`
	ReservedQuantity  int       `json:"reserved_quantity"`
	Status            string    `json:"status"`
	InStock           bool      `json:"in_stock"`
	Version           int64     `json:"version"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (h *Handler) handleGetInventory(w http.ResponseWriter, r *http.Request) {
	productID := r.URL.Query().Get("product_id")
	if productID == "" {
		writeError(w, http.StatusBadRequest, errors.New("product_id is required"))
		return
	}

	agg, err := h.engine.Get(r.Context(), productID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInventoryResponse(agg))
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	aggs, err := h.engine.ListLowStock(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]inventoryResponse, 0, len(aggs))
	for _, agg := range aggs {
		out = append(out, toInventoryResponse(agg))
	}
	writeJSON(w, http.StatusOK, out)
}

type mutationRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// mutation adapts an engine operation into a handler. On ErrPublishFailed
// the aggregate has committed, so the new state is returned with an error
// detail instead of a failure status.
func (h *Handler) mutation(op func(context.Context, string, int) (*domstock.Aggregate, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req mutationRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if req.ProductID == "" {
			writeError(w, http.StatusBadRequest, errors.New("product_id is required"))
			return
		}

		agg, err := op(r.Context(), req.ProductID, req.Quantity)
		if errors.Is(err, domstock.ErrPublishFailed) {
			writeJSON(w, http.StatusOK, struct {
				inventoryResponse
				Warning string `json:"warning"`
			}{toInventoryResponse(agg), "state committed but event delivery failed"})
			return
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toInventoryResponse(agg))
	}
}

func toInventoryResponse(a *domstock.Aggregate) inventoryResponse {
	return inventoryResponse{
		ProductID:         a.ProductID,
		SKU:               a.SKU,
		AvailableQuantity: a.AvailableQuantity,
		ReservedQuantity:  a.ReservedQuantity,
		Status:            string(a.Status),
		InStock:           a.InStock,
		Version:           a.Version,
		UpdatedAt:         a.UpdatedAt,
	}
}

func toProductResponse(p *domcatalog.Product) productResponse {
	return productResponse{
		ProductID:          p.ID,
		SKU:                p.SKU,
		Name:               p.Name,
		AvailableQuantity:  p.AvailableQuantity,
		InventoryStatus:    p.InventoryStatus,
		InStock:            p.InStock,
		SyncState:          string(p.SyncState),
		LastAppliedVersion: p.LastAppliedVersion,
		UpdatedAt:          p.UpdatedAt,
	}
}

func (h *Handler) method(method string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
			return
		}
		handler(w, r)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domstock.ErrNotFound),
		errors.Is(err, domcatalog.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domstock.ErrAlreadyExists),
		errors.Is(err, domcatalog.ErrAlreadyExists),
		errors.Is(err, domstock.ErrInsufficientStock),
		errors.Is(err, domstock.ErrInsufficientReserved):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, domstock.ErrInvalidQuantity),
		errors.Is(err, domstock.ErrNegativeQuantity),
		errors.Is(err, domcatalog.ErrInvalidName),
		errors.Is(err, domcatalog.ErrInvalidSKU):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domstock.ErrContention):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
