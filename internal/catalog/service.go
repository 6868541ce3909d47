// Package catalog serves the product surface: WooCommerce catalog data
// decorated with delivery estimates, cached briefly in Redis.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/groenvelt/storefront-bff/internal/delivery"
	"github.com/groenvelt/storefront-bff/internal/upstream/woocommerce"
	"github.com/groenvelt/storefront-bff/pkg/config"
	pkgerrors "github.com/groenvelt/storefront-bff/pkg/errors"
	"github.com/groenvelt/storefront-bff/pkg/logger"
	pkgredis "github.com/groenvelt/storefront-bff/pkg/redis"
)

// Meta keys the shop maintains on products for delivery promises.
const (
	metaLeadInStock   = "lead_time_days"
	metaLeadBackorder = "lead_time_backorder"
)

const productCacheTTL = 2 * time.Minute

// catalogSource is the slice of the WooCommerce client this service uses.
type catalogSource interface {
	ListProducts(ctx context.Context, q woocommerce.ProductQuery) ([]woocommerce.Product, error)
	GetProduct(ctx context.Context, id int64) (*woocommerce.Product, error)
}

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CacheKey(scope, id string) string
}

// EstimateView is the delivery promise as rendered to the storefront.
type EstimateView struct {
	Category      string `json:"category"`
	TargetDate    string `json:"target_date"`
	BackorderDate string `json:"backorder_date,omitempty"`
	ShortMessage  string `json:"short_message"`
	LongMessage   string `json:"long_message"`
}

// ProductView is a catalog product plus its delivery promise for a
// single unit.
type ProductView struct {
	ID            int64                     `json:"id"`
	Name          string                    `json:"name"`
	Slug          string                    `json:"slug"`
	Price         string                    `json:"price"`
	RegularPrice  string                    `json:"regular_price,omitempty"`
	StockStatus   string                    `json:"stock_status"`
	StockQuantity *int                      `json:"stock_quantity,omitempty"`
	Description   string                    `json:"description,omitempty"`
	ShortDesc     string                    `json:"short_description,omitempty"`
	Images        []woocommerce.ProductImage `json:"images,omitempty"`
	Categories    []woocommerce.ProductTerm  `json:"categories,omitempty"`
	Delivery      EstimateView              `json:"delivery"`
}

type Service struct {
	source    catalogSource
	cache     cacheStore
	estimator *delivery.Estimator
	cfg       config.DeliveryConfig
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(source catalogSource, cache cacheStore, estimator *delivery.Estimator, cfg config.DeliveryConfig, logg *logger.Logger) *Service {
	return &Service{
		source:    source,
		cache:     cache,
		estimator: estimator,
		cfg:       cfg,
		logg:      logg,
		now:       time.Now,
	}
}

// List returns a catalog page with per-unit delivery promises.
func (s *Service) List(ctx context.Context, q woocommerce.ProductQuery) ([]ProductView, error) {
	products, err := s.source.ListProducts(ctx, q)
	if err != nil {
		return nil, err
	}
	views := make([]ProductView, 0, len(products))
	for i := range products {
		views = append(views, s.view(&products[i], 1))
	}
	return views, nil
}

// Get returns one product. Single-product lookups are cached since the
// product page is the hottest read.
func (s *Service) Get(ctx context.Context, id int64) (*ProductView, error) {
	key := s.cache.CacheKey("product", strconv.FormatInt(id, 10))
	if raw, err := s.cache.Get(ctx, key); err == nil {
		var product woocommerce.Product
		if err := json.Unmarshal([]byte(raw), &product); err == nil {
			view := s.view(&product, 1)
			return &view, nil
		}
	} else if !errors.Is(err, pkgredis.Nil) {
		s.logg.Warn(ctx, "product cache read failed")
	}

	product, err := s.source.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(product); err == nil {
		if err := s.cache.Set(ctx, key, string(raw), productCacheTTL); err != nil {
			s.logg.Warn(ctx, "product cache write failed")
		}
	}

	view := s.view(product, 1)
	return &view, nil
}

// GetBySlug resolves a product page URL to a product.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*ProductView, error) {
	products, err := s.source.ListProducts(ctx, woocommerce.ProductQuery{Slug: slug})
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	view := s.view(&products[0], 1)
	return &view, nil
}

// Estimate computes the delivery promise for a requested quantity of a
// product, as shown on the product page quantity picker.
func (s *Service) Estimate(ctx context.Context, productID int64, quantity int) (*EstimateView, error) {
	if quantity < 1 {
		quantity = 1
	}
	product, err := s.source.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	view := s.estimate(product, quantity)
	return &view, nil
}

func (s *Service) view(product *woocommerce.Product, quantity int) ProductView {
	return ProductView{
		ID:            product.ID,
		Name:          product.Name,
		Slug:          product.Slug,
		Price:         product.Price,
		RegularPrice:  product.RegularPrice,
		StockStatus:   product.StockStatus,
		StockQuantity: product.StockQuantity,
		Description:   product.Description,
		ShortDesc:     product.ShortDesc,
		Images:        product.Images,
		Categories:    product.Categories,
		Delivery:      s.estimate(product, quantity),
	}
}

func (s *Service) estimate(product *woocommerce.Product, quantity int) EstimateView {
	leadInStock := s.cfg.DefaultLeadInStock
	if lead, ok := product.MetaInt(metaLeadInStock); ok {
		leadInStock = lead
	}
	leadBackorder := s.cfg.DefaultLeadBackorder
	if lead, ok := product.MetaInt(metaLeadBackorder); ok {
		leadBackorder = lead
	}

	est := s.estimator.GetDeliveryInfo(
		s.now(),
		delivery.StockStatus(product.StockStatus),
		quantity,
		product.StockQuantity,
		leadInStock,
		leadBackorder,
	)

	view := EstimateView{
		Category:     string(est.Category),
		TargetDate:   est.TargetDate.Format("2006-01-02"),
		ShortMessage: est.ShortMessage,
		LongMessage:  est.LongMessage,
	}
	if !est.BackorderDate.IsZero() {
		view.BackorderDate = est.BackorderDate.Format("2006-01-02")
	}
	return view
}
