package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/groenvelt/storefront-bff/api/middleware"
	"github.com/groenvelt/storefront-bff/internal/cart"
	"github.com/groenvelt/storefront-bff/internal/catalog"
	"github.com/groenvelt/storefront-bff/internal/delivery"
	"github.com/groenvelt/storefront-bff/internal/holiday"
	"github.com/groenvelt/storefront-bff/internal/upstream/woocommerce"
	"github.com/groenvelt/storefront-bff/pkg/config"
	"github.com/groenvelt/storefront-bff/pkg/logger"
	pkgredis "github.com/groenvelt/storefront-bff/pkg/redis"
	"github.com/groenvelt/storefront-bff/pkg/types"
)

type memoryKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: map[string]string{}}
}

func (m *memoryKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", pkgredis.Nil
	}
	return val, nil
}

func (m *memoryKV) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.(string)
	return nil
}

func (m *memoryKV) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryKV) CartKey(sessionID string) string {
	return "test:cart:" + sessionID
}

func (m *memoryKV) CacheKey(scope, id string) string {
	return "test:cache:" + scope + ":" + id
}

type quietRemote struct{}

func (quietRemote) GetCart(ctx context.Context, sess *woocommerce.CartSession) (*woocommerce.StoreCart, error) {
	return &woocommerce.StoreCart{}, nil
}

func (quietRemote) AddItem(ctx context.Context, sess *woocommerce.CartSession, productID int64, quantity int) (*woocommerce.StoreCart, error) {
	return &woocommerce.StoreCart{}, nil
}

func (quietRemote) UpdateItem(ctx context.Context, sess *woocommerce.CartSession, itemKey string, quantity int) (*woocommerce.StoreCart, error) {
	return &woocommerce.StoreCart{}, nil
}

func (quietRemote) RemoveItem(ctx context.Context, sess *woocommerce.CartSession, itemKey string) (*woocommerce.StoreCart, error) {
	return &woocommerce.StoreCart{}, nil
}

func (quietRemote) FindItemKey(ctx context.Context, sess *woocommerce.CartSession, productID int64) (string, error) {
	return "", nil
}

type fixedCatalog struct{}

func (fixedCatalog) ListProducts(ctx context.Context, q woocommerce.ProductQuery) ([]woocommerce.Product, error) {
	return []woocommerce.Product{}, nil
}

func (fixedCatalog) GetProduct(ctx context.Context, id int64) (*woocommerce.Product, error) {
	return &woocommerce.Product{ID: id, Name: "Eikenhouten tafel", Slug: "eikenhouten-tafel", Price: "10.50", StockStatus: "instock"}, nil
}

func testCartHandlers(t *testing.T) (*cart.Service, *catalog.Service, *logger.Logger) {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})

	cartCfg := config.CartConfig{SessionTTL: time.Hour, SyncTimeout: time.Second, SyncQueue: 8}
	store := cart.NewStore(newMemoryKV(), cartCfg)
	syncer := cart.NewSyncer(quietRemote{}, cartCfg, logg, nil)
	t.Cleanup(syncer.Close)
	syncer.Start()
	cartSvc := cart.NewService(store, syncer, logg)

	estimator := delivery.New(holiday.NewCalendar(nil, nil), delivery.Options{CutoffHour: 13})
	catalogSvc := catalog.NewService(fixedCatalog{}, newMemoryKV(), estimator, config.DeliveryConfig{
		CutoffHour:           13,
		DefaultLeadInStock:   1,
		DefaultLeadBackorder: 30,
	}, logg)

	return cartSvc, catalogSvc, logg
}

func decodeCartView(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope types.SuccessEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode cart response: %v", err)
	}
	view, ok := envelope.Data.(map[string]any)
	if !ok {
		t.Fatalf("unexpected payload %v", envelope.Data)
	}
	return view
}

func TestAddCartItemResolvesProductServerSide(t *testing.T) {
	cartSvc, catalogSvc, logg := testCartHandlers(t)
	sessionID := uuid.NewString()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"product_id":11,"quantity":2}`))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(middleware.WithCartSession(req.Context(), sessionID))
	rec := httptest.NewRecorder()

	AddCartItem(cartSvc, catalogSvc, logg).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	view := decodeCartView(t, rec)
	if view["subtotal"] != "21.00" {
		t.Fatalf("expected subtotal 21.00, got %v", view["subtotal"])
	}
	lines := view["lines"].([]any)
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d", len(lines))
	}
	line := lines[0].(map[string]any)
	if line["name"] != "Eikenhouten tafel" {
		t.Fatalf("client must not control the product name, got %v", line["name"])
	}
}

func TestAddCartItemRejectsZeroQuantity(t *testing.T) {
	cartSvc, catalogSvc, logg := testCartHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"product_id":11,"quantity":0}`))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(middleware.WithCartSession(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()

	AddCartItem(cartSvc, catalogSvc, logg).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUpdateCartItemRejectsMalformedProductID(t *testing.T) {
	cartSvc, _, logg := testCartHandlers(t)

	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("productID", "not-a-number")
	ctx := context.WithValue(context.Background(), chi.RouteCtxKey, routeCtx)
	ctx = middleware.WithCartSession(ctx, uuid.NewString())

	req := httptest.NewRequest(http.MethodPut, "/api/v1/cart/items/not-a-number", strings.NewReader(`{"quantity":3}`))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	UpdateCartItem(cartSvc, logg).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid id, got %d", rec.Code)
	}
}

func TestGetCartStartsEmpty(t *testing.T) {
	cartSvc, _, logg := testCartHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req = req.WithContext(middleware.WithCartSession(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()

	GetCart(cartSvc, logg).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	view := decodeCartView(t, rec)
	if view["item_count"] != float64(0) {
		t.Fatalf("expected empty cart, got %v", view["item_count"])
	}
	if view["subtotal"] != "0.00" {
		t.Fatalf("expected zero subtotal, got %v", view["subtotal"])
	}
}
