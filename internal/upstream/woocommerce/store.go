package woocommerce

import (
	"context"
	"fmt"
	"net/http"
)

// StoreCart is the Store API cart document, reduced to the fields the
// BFF consumes.
type StoreCart struct {
	Items      []StoreCartItem `json:"items"`
	ItemsCount int             `json:"items_count"`
}

// StoreCartItem is one line in the remote session cart. Key is the
// session-scoped hash WooCommerce addresses items by; ID is the product.
type StoreCartItem struct {
	Key      string `json:"key"`
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type addItemRequest struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

type updateItemRequest struct {
	Key      string `json:"key"`
	Quantity int    `json:"quantity"`
}

type removeItemRequest struct {
	Key string `json:"key"`
}

// GetCart fetches the remote session cart and captures rotated tokens.
func (c *Client) GetCart(ctx context.Context, sess *CartSession) (*StoreCart, error) {
	req, err := c.newStoreRequest(ctx, http.MethodGet, "/cart", sess, nil)
	if err != nil {
		return nil, err
	}
	var cart StoreCart
	resp, err := c.do(c.plain, req, &cart)
	sess.capture(resp)
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddItem adds quantity of a product to the remote cart.
func (c *Client) AddItem(ctx context.Context, sess *CartSession, productID int64, quantity int) (*StoreCart, error) {
	if err := c.ensureNonce(ctx, sess); err != nil {
		return nil, err
	}
	req, err := c.newStoreRequest(ctx, http.MethodPost, "/cart/add-item", sess, addItemRequest{ID: productID, Quantity: quantity})
	if err != nil {
		return nil, err
	}
	var cart StoreCart
	resp, err := c.do(c.plain, req, &cart)
	sess.capture(resp)
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// UpdateItem sets the quantity of the remote line addressed by its
// session-scoped key.
func (c *Client) UpdateItem(ctx context.Context, sess *CartSession, itemKey string, quantity int) (*StoreCart, error) {
	if err := c.ensureNonce(ctx, sess); err != nil {
		return nil, err
	}
	req, err := c.newStoreRequest(ctx, http.MethodPost, "/cart/update-item", sess, updateItemRequest{Key: itemKey, Quantity: quantity})
	if err != nil {
		return nil, err
	}
	var cart StoreCart
	resp, err := c.do(c.plain, req, &cart)
	sess.capture(resp)
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// RemoveItem deletes the remote line addressed by its session-scoped key.
func (c *Client) RemoveItem(ctx context.Context, sess *CartSession, itemKey string) (*StoreCart, error) {
	if err := c.ensureNonce(ctx, sess); err != nil {
		return nil, err
	}
	req, err := c.newStoreRequest(ctx, http.MethodPost, "/cart/remove-item", sess, removeItemRequest{Key: itemKey})
	if err != nil {
		return nil, err
	}
	var cart StoreCart
	resp, err := c.do(c.plain, req, &cart)
	sess.capture(resp)
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindItemKey resolves the session-scoped item key for a product id via
// a cart fetch. Returns empty without error when the product is not in
// the remote cart.
func (c *Client) FindItemKey(ctx context.Context, sess *CartSession, productID int64) (string, error) {
	cart, err := c.GetCart(ctx, sess)
	if err != nil {
		return "", err
	}
	for _, item := range cart.Items {
		if item.ID == productID {
			return item.Key, nil
		}
	}
	return "", nil
}

// ensureNonce preflights a cart fetch when the session has no nonce yet.
// Mutations without a nonce are rejected by the Store API.
func (c *Client) ensureNonce(ctx context.Context, sess *CartSession) error {
	if sess.HasNonce() {
		return nil
	}
	if _, err := c.GetCart(ctx, sess); err != nil {
		return fmt.Errorf("nonce preflight: %w", err)
	}
	return nil
}
