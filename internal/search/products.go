// Package search queries the product index in Elasticsearch. The index
// is maintained by an external sync job; this package only reads.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/shopspring/decimal"

	"github.com/groenvelt/storefront-bff/pkg/config"
	pkgerrors "github.com/groenvelt/storefront-bff/pkg/errors"
	"github.com/groenvelt/storefront-bff/pkg/logger"
)

type Searcher struct {
	es    *elasticsearch.Client
	index string
	logg  *logger.Logger
}

func New(cfg config.ElasticConfig, logg *logger.Logger) (*Searcher, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}
	return &Searcher{es: es, index: cfg.ProductIndex, logg: logg}, nil
}

// Query describes a storefront product search. Nil price bounds leave
// that side of the range open.
type Query struct {
	Term     string
	Category string
	InStock  bool
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Page     int
	PerPage  int
}

// Hit is one matched product. IDs refer back to the WooCommerce catalog.
type Hit struct {
	ProductID int64    `json:"product_id"`
	Name      string   `json:"name"`
	Slug      string   `json:"slug"`
	Price     string   `json:"price"`
	Category  []string `json:"category"`
}

// Result carries the page of hits plus category facet counts.
type Result struct {
	Total  int64
	Hits   []Hit
	Facets map[string]int64
}

func (q Query) body() map[string]any {
	must := []map[string]any{}
	filter := []map[string]any{}

	if q.Term != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":  q.Term,
				"fields": []string{"name^3", "description", "category"},
			},
		})
	}
	if q.Category != "" {
		filter = append(filter, map[string]any{
			"term": map[string]any{"category.keyword": q.Category},
		})
	}
	if q.InStock {
		filter = append(filter, map[string]any{
			"term": map[string]any{"stock_status": "instock"},
		})
	}
	if q.MinPrice != nil || q.MaxPrice != nil {
		bounds := map[string]any{}
		if q.MinPrice != nil {
			bounds["gte"] = q.MinPrice.InexactFloat64()
		}
		if q.MaxPrice != nil {
			bounds["lte"] = q.MaxPrice.InexactFloat64()
		}
		filter = append(filter, map[string]any{
			"range": map[string]any{"price": bounds},
		})
	}

	perPage := q.PerPage
	if perPage <= 0 {
		perPage = 24
	}
	from := 0
	if q.Page > 1 {
		from = (q.Page - 1) * perPage
	}

	return map[string]any{
		"from": from,
		"size": perPage,
		"query": map[string]any{
			"bool": map[string]any{
				"must":   must,
				"filter": filter,
			},
		},
		"aggs": map[string]any{
			"categories": map[string]any{
				"terms": map[string]any{"field": "category.keyword", "size": 50},
			},
		},
	}
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source Hit `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations struct {
		Categories struct {
			Buckets []struct {
				Key      string `json:"key"`
				DocCount int64  `json:"doc_count"`
			} `json:"buckets"`
		} `json:"categories"`
	} `json:"aggregations"`
}

// SearchProducts runs a full-text query with facets against the
// product index.
func (s *Searcher) SearchProducts(ctx context.Context, q Query) (*Result, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(q.body()); err != nil {
		return nil, err
	}

	resp, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(s.index),
		s.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "elasticsearch search failed")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("elasticsearch returned status %d", resp.StatusCode))
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode search response")
	}

	result := &Result{
		Total:  decoded.Hits.Total.Value,
		Hits:   make([]Hit, 0, len(decoded.Hits.Hits)),
		Facets: make(map[string]int64, len(decoded.Aggregations.Categories.Buckets)),
	}
	for _, h := range decoded.Hits.Hits {
		result.Hits = append(result.Hits, h.Source)
	}
	for _, b := range decoded.Aggregations.Categories.Buckets {
		result.Facets[b.Key] = b.DocCount
	}
	return result, nil
}

// Ping checks cluster reachability for the readiness probe.
func (s *Searcher) Ping(ctx context.Context) error {
	resp, err := s.es.Ping(s.es.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return fmt.Errorf("elasticsearch ping returned status %d", resp.StatusCode)
	}
	return nil
}
