// Package cart holds the session cart. Mutations apply to the local
// copy in Redis first and are pushed to the WooCommerce session cart in
// the background, so the shopper never waits on the upstream.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/groenvelt/storefront-bff/pkg/config"
	pkgerrors "github.com/groenvelt/storefront-bff/pkg/errors"
	pkgredis "github.com/groenvelt/storefront-bff/pkg/redis"
)

// Line is one product in the cart. Price is the unit price at the time
// the line was added; totals are always recomputed from the lines.
type Line struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Cart is the locally persisted session cart. Seq increases with every
// mutation so the background syncer can order racing pushes.
type Cart struct {
	SessionID string    `json:"session_id"`
	Lines     []Line    `json:"lines"`
	Seq       uint64    `json:"seq"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Subtotal is the sum of line price times quantity, recomputed on every
// call rather than stored.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// ItemCount is the total unit count across all lines.
func (c *Cart) ItemCount() int {
	count := 0
	for _, line := range c.Lines {
		count += line.Quantity
	}
	return count
}

func (c *Cart) findLine(productID int64) *Line {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return &c.Lines[i]
		}
	}
	return nil
}

// keyValueStore is the slice of the Redis client the cart store needs.
type keyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(sessionID string) string
}

// Store persists session carts in Redis.
type Store struct {
	kv  keyValueStore
	ttl time.Duration
}

func NewStore(kv keyValueStore, cfg config.CartConfig) *Store {
	return &Store{kv: kv, ttl: cfg.SessionTTL}
}

// Get loads the cart for a session. A missing key is an empty cart,
// not an error.
func (s *Store) Get(ctx context.Context, sessionID string) (*Cart, error) {
	raw, err := s.kv.Get(ctx, s.kv.CartKey(sessionID))
	if errors.Is(err, pkgredis.Nil) {
		return &Cart{SessionID: sessionID}, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	var cart Cart
	if err := json.Unmarshal([]byte(raw), &cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode cart")
	}
	cart.SessionID = sessionID
	return &cart, nil
}

// AddItem merges the line into the cart. Adding a product that is
// already present sums the quantities; name, slug and price are taken
// from the fresh line, which carries the current catalog state.
func (s *Store) AddItem(ctx context.Context, sessionID string, line Line) (*Cart, error) {
	if line.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	cart, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if existing := cart.findLine(line.ProductID); existing != nil {
		quantity := existing.Quantity + line.Quantity
		*existing = line
		existing.Quantity = quantity
	} else {
		cart.Lines = append(cart.Lines, line)
	}
	return cart, s.save(ctx, cart)
}

// UpdateQuantity sets a line to an absolute quantity. Quantities below
// one are rejected; removal is an explicit operation.
func (s *Store) UpdateQuantity(ctx context.Context, sessionID string, productID int64, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	cart, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	line := cart.findLine(productID)
	if line == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart")
	}
	line.Quantity = quantity
	return cart, s.save(ctx, cart)
}

// RemoveItem drops a line. Removing a product that is not in the cart
// is a no-op, not an error.
func (s *Store) RemoveItem(ctx context.Context, sessionID string, productID int64) (*Cart, error) {
	cart, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	kept := cart.Lines[:0]
	for _, line := range cart.Lines {
		if line.ProductID != productID {
			kept = append(kept, line)
		}
	}
	if len(kept) == len(cart.Lines) {
		return cart, nil
	}
	cart.Lines = kept
	return cart, s.save(ctx, cart)
}

// Clear empties the local cart. The upstream session cart is handled
// separately by the syncer.
func (s *Store) Clear(ctx context.Context, sessionID string) (*Cart, error) {
	cart, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(cart.Lines) == 0 {
		return cart, nil
	}
	cart.Lines = nil
	return cart, s.save(ctx, cart)
}

func (s *Store) save(ctx context.Context, cart *Cart) error {
	cart.Seq++
	cart.UpdatedAt = time.Now().UTC()

	raw, err := json.Marshal(cart)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
	}
	if err := s.kv.Set(ctx, s.kv.CartKey(cart.SessionID), string(raw), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return nil
}
