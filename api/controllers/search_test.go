package controllers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/groenvelt/storefront-bff/internal/search"
	"github.com/groenvelt/storefront-bff/pkg/config"
	"github.com/groenvelt/storefront-bff/pkg/logger"
)

func searchHandler(t *testing.T) http.HandlerFunc {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
	// Validation failures return before the cluster is contacted, so a
	// dead address is fine here.
	svc, err := search.New(config.ElasticConfig{Addresses: []string{"http://127.0.0.1:1"}, ProductIndex: "products"}, logg)
	if err != nil {
		t.Fatalf("build searcher: %v", err)
	}
	return SearchProducts(svc, logg)
}

func TestSearchRejectsMalformedMinPrice(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=tafel&min_price=goedkoop", nil)
	rec := httptest.NewRecorder()

	searchHandler(t).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric min_price, got %d", rec.Code)
	}
}

func TestSearchRejectsNegativeMaxPrice(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=tafel&max_price=-5", nil)
	rec := httptest.NewRecorder()

	searchHandler(t).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative max_price, got %d", rec.Code)
	}
}
