// Package mollie wraps the Mollie Payments API v2 for the checkout
// hand-off. Only payment creation and status polling are needed.
package mollie

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/groenvelt/storefront-bff/pkg/config"
	pkgerrors "github.com/groenvelt/storefront-bff/pkg/errors"
)

type Client struct {
	baseURL     string
	apiKey      string
	redirectURL string
	webhookURL  string
	http        *http.Client
}

func New(cfg config.MollieConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("mollie api key is required")
	}
	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		redirectURL: cfg.RedirectURL,
		webhookURL:  cfg.WebhookURL,
		http:        &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Payment statuses Mollie reports. Only a subset matters to checkout.
const (
	StatusOpen     = "open"
	StatusPaid     = "paid"
	StatusCanceled = "canceled"
	StatusExpired  = "expired"
	StatusFailed   = "failed"
)

type Amount struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

type Payment struct {
	ID          string            `json:"id"`
	Status      string            `json:"status"`
	Amount      Amount            `json:"amount"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata"`
	Links       PaymentLinks      `json:"_links"`
}

type PaymentLinks struct {
	Checkout *Link `json:"checkout"`
}

type Link struct {
	Href string `json:"href"`
}

// CheckoutURL is the hosted payment page the shopper is redirected to.
func (p *Payment) CheckoutURL() string {
	if p.Links.Checkout == nil {
		return ""
	}
	return p.Links.Checkout.Href
}

type createPaymentRequest struct {
	Amount      Amount            `json:"amount"`
	Description string            `json:"description"`
	RedirectURL string            `json:"redirectUrl"`
	WebhookURL  string            `json:"webhookUrl,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// CreatePayment opens a payment for the given euro amount. Mollie
// expects amounts as strings with exactly two decimals.
func (c *Client) CreatePayment(ctx context.Context, amount decimal.Decimal, description string, metadata map[string]string) (*Payment, error) {
	body := createPaymentRequest{
		Amount:      Amount{Currency: "EUR", Value: amount.StringFixed(2)},
		Description: description,
		RedirectURL: c.redirectURL,
		WebhookURL:  c.webhookURL,
		Metadata:    metadata,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/payments", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doPayment(req)
}

// GetPayment polls a payment's current status.
func (c *Client) GetPayment(ctx context.Context, id string) (*Payment, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/payments/"+id, nil)
	if err != nil {
		return nil, err
	}
	return c.doPayment(req)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) doPayment(req *http.Request) (*Payment, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mollie request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("mollie returned status %d", resp.StatusCode))
	}

	var payment Payment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode mollie response")
	}
	return &payment, nil
}
