package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groenvelt/storefront-bff/pkg/config"
	pkgerrors "github.com/groenvelt/storefront-bff/pkg/errors"
	"github.com/groenvelt/storefront-bff/pkg/logger"
)

func testSearcher(t *testing.T, handler http.HandlerFunc) *Searcher {
	t.Helper()

	// The v8 client checks the product header on every response.
	wrapped := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		handler(w, r)
	})
	srv := httptest.NewServer(wrapped)
	t.Cleanup(srv.Close)

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	s, err := New(config.ElasticConfig{Addresses: []string{srv.URL}, ProductIndex: "products"}, logg)
	require.NoError(t, err)
	return s
}

func TestSearchProductsDecodesHitsAndFacets(t *testing.T) {
	searcher := testSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/products/_search")

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 24, body["size"], "default page size")

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"hits": {
				"total": {"value": 2},
				"hits": [
					{"_source": {"product_id": 11, "name": "Eikenhouten tafel", "slug": "eikenhouten-tafel", "price": "299.00", "category": ["tafels"]}},
					{"_source": {"product_id": 12, "name": "Eiken stoel", "slug": "eiken-stoel", "price": "89.00", "category": ["stoelen"]}}
				]
			},
			"aggregations": {
				"categories": {"buckets": [
					{"key": "tafels", "doc_count": 1},
					{"key": "stoelen", "doc_count": 1}
				]}
			}
		}`)
	})

	result, err := searcher.SearchProducts(context.Background(), Query{Term: "eiken"})
	require.NoError(t, err)

	assert.EqualValues(t, 2, result.Total)
	require.Len(t, result.Hits, 2)
	assert.EqualValues(t, 11, result.Hits[0].ProductID)
	assert.Equal(t, "eikenhouten-tafel", result.Hits[0].Slug)
	assert.EqualValues(t, 1, result.Facets["tafels"])
}

func TestSearchProductsBuildsFilters(t *testing.T) {
	var captured map[string]any
	searcher := testSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"hits": {"total": {"value": 0}, "hits": []}}`)
	})

	_, err := searcher.SearchProducts(context.Background(), Query{
		Term:     "tafel",
		Category: "tafels",
		InStock:  true,
		Page:     3,
		PerPage:  10,
	})
	require.NoError(t, err)

	assert.EqualValues(t, 20, captured["from"], "page 3 with 10 per page")
	assert.EqualValues(t, 10, captured["size"])

	boolQuery := captured["query"].(map[string]any)["bool"].(map[string]any)
	assert.Len(t, boolQuery["must"], 1)
	assert.Len(t, boolQuery["filter"], 2)
}

func TestSearchProductsBuildsPriceRangeFilter(t *testing.T) {
	var captured map[string]any
	searcher := testSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"hits": {"total": {"value": 0}, "hits": []}}`)
	})

	minPrice := decimal.RequireFromString("50")
	maxPrice := decimal.RequireFromString("300.50")
	_, err := searcher.SearchProducts(context.Background(), Query{
		Term:     "tafel",
		MinPrice: &minPrice,
		MaxPrice: &maxPrice,
	})
	require.NoError(t, err)

	filters := captured["query"].(map[string]any)["bool"].(map[string]any)["filter"].([]any)
	require.Len(t, filters, 1)
	bounds := filters[0].(map[string]any)["range"].(map[string]any)["price"].(map[string]any)
	assert.EqualValues(t, 50, bounds["gte"])
	assert.EqualValues(t, 300.5, bounds["lte"])
}

func TestSearchProductsOpenEndedPriceRange(t *testing.T) {
	var captured map[string]any
	searcher := testSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"hits": {"total": {"value": 0}, "hits": []}}`)
	})

	minPrice := decimal.RequireFromString("100")
	_, err := searcher.SearchProducts(context.Background(), Query{MinPrice: &minPrice})
	require.NoError(t, err)

	filters := captured["query"].(map[string]any)["bool"].(map[string]any)["filter"].([]any)
	require.Len(t, filters, 1)
	bounds := filters[0].(map[string]any)["range"].(map[string]any)["price"].(map[string]any)
	assert.EqualValues(t, 100, bounds["gte"])
	_, hasUpper := bounds["lte"]
	assert.False(t, hasUpper, "an absent max_price leaves the range open")
}

func TestSearchProductsMapsClusterErrors(t *testing.T) {
	searcher := testSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"error": "cluster unavailable"}`)
	})

	_, err := searcher.SearchProducts(context.Background(), Query{Term: "tafel"})
	require.Error(t, err)

	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeDependency, coded.Code())
}

func TestPing(t *testing.T) {
	searcher := testSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	require.NoError(t, searcher.Ping(context.Background()))
}
