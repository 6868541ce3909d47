package woocommerce

import (
	"net/http"
	"sync"
)

// CartSession carries the rotating Store API credentials for one
// storefront session. WooCommerce binds the server-side cart to the
// Cart-Token and demands a fresh Nonce on every mutation; both rotate
// and must be replayed on the next call.
type CartSession struct {
	mu        sync.Mutex
	cartToken string
	nonce     string
}

// NewCartSession restores a session from persisted token values.
// Empty values start a fresh session.
func NewCartSession(cartToken, nonce string) *CartSession {
	return &CartSession{cartToken: cartToken, nonce: nonce}
}

// Tokens returns the current credential pair for persistence.
func (s *CartSession) Tokens() (cartToken, nonce string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartToken, s.nonce
}

// HasNonce reports whether a mutation can be attempted without a
// preflight cart fetch.
func (s *CartSession) HasNonce() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nonce != ""
}

func (s *CartSession) apply(req *http.Request) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cartToken != "" {
		req.Header.Set(cartTokenHeader, s.cartToken)
	}
	if s.nonce != "" {
		req.Header.Set(nonceHeader, s.nonce)
	}
}

func (s *CartSession) capture(resp *http.Response) {
	if s == nil || resp == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if token := resp.Header.Get(cartTokenHeader); token != "" {
		s.cartToken = token
	}
	if nonce := resp.Header.Get(nonceHeader); nonce != "" {
		s.nonce = nonce
	}
}
