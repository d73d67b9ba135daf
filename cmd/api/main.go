package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/safar/go-order-store/internal/cache"
	"github.com/safar/go-order-store/internal/config"
	"github.com/safar/go-order-store/internal/database"
	"github.com/safar/go-order-store/internal/order"
	"github.com/safar/go-order-store/internal/store"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	slog.Info("connected to database")

	pg := store.NewPostgres(db)
	a := &api{
		db:     db,
		orders: order.NewService(pg, pg, pg, pg),
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		a.productCache = cache.NewProductCache(client, cfg.Redis.CacheTTL)
		slog.Info("product cache enabled", "addr", cfg.Redis.Addr)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/customers", a.createCustomer)
	r.Get("/customers", a.listCustomers)
	r.Get("/customers/{id}", a.getCustomer)
	r.Get("/customers/{id}/orders", a.listCustomerOrders)

	r.Post("/products", a.createProduct)
	r.Get("/products", a.listProducts)
	r.Get("/products/{id}", a.getProduct)
	r.Put("/products/{id}/stock", a.restockProduct)

	r.Post("/orders", a.placeOrder)
	r.Get("/orders/{id}", a.getOrder)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	slog.Info("server starting", "port", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

type api struct {
	db           *sql.DB
	orders       *order.Service
	productCache *cache.ProductCache
}

func (a *api) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" {
		respondError(w, http.StatusBadRequest, "name and email are required")
		return
	}

	customer, err := store.CreateCustomer(r.Context(), a.db, req.Name, req.Email)
	if err != nil {
		if database.IsUniqueViolation(err) {
			respondError(w, http.StatusConflict, "email already registered")
			return
		}
		respondStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, customer)
}

func (a *api) getCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := store.GetCustomer(r.Context(), a.db, chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, customer)
}

func (a *api) listCustomers(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	result, err := store.ListCustomers(r.Context(), a.db, page, pageSize)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (a *api) listCustomerOrders(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	result, err := store.ListOrdersByCustomerCursor(r.Context(), a.db,
		chi.URLParam(r, "id"), r.URL.Query().Get("cursor"), limit)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (a *api) createProduct(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Price string `json:"price"`
		Stock int    `json:"stock"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		respondError(w, http.StatusBadRequest, "price must be a non-negative decimal")
		return
	}
	if req.Name == "" || req.Stock < 0 {
		respondError(w, http.StatusBadRequest, "name is required and stock must be non-negative")
		return
	}

	product, err := store.CreateProduct(r.Context(), a.db, req.Name, price, req.Stock)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateProductName) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, product)
}

func (a *api) getProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	if a.productCache != nil {
		cached, err := a.productCache.Get(ctx, id)
		if err != nil {
			slog.WarnContext(ctx, "product cache read failed", "error", err)
		} else if cached != nil {
			respondJSON(w, http.StatusOK, cached)
			return
		}
	}

	product, err := store.GetProduct(ctx, a.db, id)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	if a.productCache != nil {
		if err := a.productCache.Set(ctx, product); err != nil {
			slog.WarnContext(ctx, "product cache write failed", "error", err)
		}
	}

	respondJSON(w, http.StatusOK, product)
}

func (a *api) listProducts(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("name"); name != "" {
		product, err := store.FindProductByName(r.Context(), a.db, name)
		if err != nil {
			respondStoreError(w, r, err)
			return
		}
		if product == nil {
			respondError(w, http.StatusNotFound, "product not found")
			return
		}
		respondJSON(w, http.StatusOK, product)
		return
	}

	page, pageSize := pageParams(r)
	result, err := store.ListProducts(r.Context(), a.db, page, pageSize)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (a *api) restockProduct(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Stock   int `json:"stock"`
		Version int `json:"version"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Stock < 0 {
		respondError(w, http.StatusBadRequest, "stock must be non-negative")
		return
	}

	id := chi.URLParam(r, "id")
	if err := store.RestockProduct(r.Context(), a.db, id, req.Stock, req.Version); err != nil {
		if errors.Is(err, store.ErrStaleProductVersion) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondStoreError(w, r, err)
		return
	}

	if a.productCache != nil {
		if err := a.productCache.Invalidate(r.Context(), id); err != nil {
			slog.WarnContext(r.Context(), "product cache invalidate failed", "error", err)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *api) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CustomerID string `json:"customer_id"`
		Items      []struct {
			ProductID string `json:"product_id"`
			Quantity  int    `json:"quantity"`
		} `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]order.ItemRequest, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, order.ItemRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	o, err := a.orders.PlaceOrder(r.Context(), req.CustomerID, items)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, o)
}

func (a *api) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := store.GetOrder(r.Context(), a.db, chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

// respondStoreError maps the error taxonomy onto status codes. Unknown
// errors are logged verbatim but never echoed to the client.
func respondStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, order.ErrCustomerNotFound),
		errors.Is(err, order.ErrInvalidProduct),
		errors.Is(err, order.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrInsufficientStock):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrPersistence):
		slog.ErrorContext(r.Context(), "order persistence failed", "error", err)
		respondError(w, http.StatusInternalServerError, order.ErrPersistence.Error())
	default:
		slog.ErrorContext(r.Context(), "request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
