package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/groenvelt/storefront-bff/pkg/config"
	pkgerrors "github.com/groenvelt/storefront-bff/pkg/errors"
)

const (
	storeAPIPath = "/wp-json/wc/store/v1"
	restAPIPath  = "/wp-json/wc/v3"

	cartTokenHeader = "Cart-Token"
	nonceHeader     = "Nonce"
)

// Client talks to a WooCommerce installation over both API surfaces:
// the Store API (session cart) and the authenticated REST API (catalog,
// customers, orders).
type Client struct {
	baseURL        string
	consumerKey    string
	consumerSecret string

	// reads retry, cart mutations do not: a replayed add-item is not
	// idempotent against a session cart.
	retrying *http.Client
	plain    *http.Client
}

// New builds a client from configuration.
func New(cfg config.WooCommerceConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("woocommerce base url is required")
	}

	retrier := retryablehttp.NewClient()
	retrier.RetryMax = cfg.RetryMax
	retrier.HTTPClient.Timeout = cfg.Timeout
	retrier.Logger = nil

	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		consumerKey:    cfg.ConsumerKey,
		consumerSecret: cfg.ConsumerSecret,
		retrying:       retrier.StandardClient(),
		plain:          &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// do executes a request and decodes the JSON body into out when non-nil.
func (c *Client) do(client *http.Client, req *http.Request, out any) (*http.Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "woocommerce request failed")
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusNotFound {
			return resp, pkgerrors.New(pkgerrors.CodeNotFound, "woocommerce resource not found")
		}
		return resp, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("woocommerce returned status %d", resp.StatusCode))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding woocommerce response")
		}
	}
	return resp, nil
}

func (c *Client) storeURL(path string) string {
	return c.baseURL + storeAPIPath + path
}

func (c *Client) restURL(path string, query url.Values) string {
	u := c.baseURL + restAPIPath + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) newStoreRequest(ctx context.Context, method, path string, sess *CartSession, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.storeURL(path), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	sess.apply(req)
	return req, nil
}

func (c *Client) newRESTRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.restURL(path, query), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth(c.consumerKey, c.consumerSecret)
	return req, nil
}

// Ping verifies the REST API is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRESTRequest(ctx, http.MethodGet, "/products", url.Values{"per_page": {"1"}}, nil)
	if err != nil {
		return err
	}
	_, err = c.do(c.retrying, req, nil)
	return err
}
