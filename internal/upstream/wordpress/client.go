// Package wordpress talks to the WordPress REST API for editorial
// content and to the jwt-auth plugin for credential checks.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/groenvelt/storefront-bff/pkg/config"
	pkgerrors "github.com/groenvelt/storefront-bff/pkg/errors"
)

const (
	postsPath = "/wp-json/wp/v2/posts"
	pagesPath = "/wp-json/wp/v2/pages"
	authPath  = "/wp-json/jwt-auth/v1/token"
)

type Client struct {
	baseURL  string
	retrying *http.Client
	plain    *http.Client
}

func New(cfg config.WordPressConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("wordpress base url is required")
	}

	retrying := retryablehttp.NewClient()
	retrying.RetryMax = 2
	retrying.HTTPClient.Timeout = cfg.Timeout
	retrying.Logger = nil

	return &Client{
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		retrying: retrying.StandardClient(),
		plain:    &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Post is a WordPress post or page, reduced to rendered content.
type Post struct {
	ID       int64    `json:"id"`
	Slug     string   `json:"slug"`
	Date     string   `json:"date"`
	Modified string   `json:"modified"`
	Title    Rendered `json:"title"`
	Content  Rendered `json:"content"`
	Excerpt  Rendered `json:"excerpt"`
}

type Rendered struct {
	Rendered string `json:"rendered"`
}

// ListPosts returns a page of published posts.
func (c *Client) ListPosts(ctx context.Context, page, perPage int) ([]Post, error) {
	values := url.Values{}
	if page > 0 {
		values.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		values.Set("per_page", strconv.Itoa(perPage))
	}
	return c.fetchPosts(ctx, postsPath, values)
}

// GetPostBySlug fetches a single post. Returns a coded not-found error
// when no post matches the slug.
func (c *Client) GetPostBySlug(ctx context.Context, slug string) (*Post, error) {
	posts, err := c.fetchPosts(ctx, postsPath, url.Values{"slug": {slug}})
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
	}
	return &posts[0], nil
}

// GetPageBySlug fetches a static page by slug.
func (c *Client) GetPageBySlug(ctx context.Context, slug string) (*Post, error) {
	posts, err := c.fetchPosts(ctx, pagesPath, url.Values{"slug": {slug}})
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "page not found")
	}
	return &posts[0], nil
}

func (c *Client) fetchPosts(ctx context.Context, path string, values url.Values) ([]Post, error) {
	endpoint := c.baseURL + path
	if len(values) > 0 {
		endpoint += "?" + values.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.retrying.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "wordpress request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("wordpress returned status %d", resp.StatusCode))
	}

	var posts []Post
	if err := json.NewDecoder(resp.Body).Decode(&posts); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode wordpress response")
	}
	return posts, nil
}

// Identity is the account the jwt-auth plugin resolved for a
// successful credential check.
type Identity struct {
	Email       string `json:"user_email"`
	DisplayName string `json:"user_display_name"`
	Nicename    string `json:"user_nicename"`
}

// Authenticate verifies a username/password pair against WordPress.
// Invalid credentials come back as a coded unauthorized error so the
// handler can answer 401 without special-casing.
func (c *Client) Authenticate(ctx context.Context, username, password string) (*Identity, error) {
	payload, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+authPath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.plain.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "wordpress auth request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var identity Identity
		if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode auth response")
		}
		return &identity, nil
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		io.Copy(io.Discard, resp.Body)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	default:
		io.Copy(io.Discard, resp.Body)
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("wordpress auth returned status %d", resp.StatusCode))
	}
}
