package woocommerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

// Product is a WooCommerce REST catalog product, reduced to the fields
// the storefront renders.
type Product struct {
	ID            int64          `json:"id"`
	Name          string         `json:"name"`
	Slug          string         `json:"slug"`
	Price         string         `json:"price"`
	RegularPrice  string         `json:"regular_price"`
	StockStatus   string         `json:"stock_status"`
	StockQuantity *int           `json:"stock_quantity"`
	Description   string         `json:"description"`
	ShortDesc     string         `json:"short_description"`
	Images        []ProductImage `json:"images"`
	Categories    []ProductTerm  `json:"categories"`
	MetaData      []MetaData     `json:"meta_data"`
}

type ProductImage struct {
	Source string `json:"src"`
	Alt    string `json:"alt"`
}

type ProductTerm struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type MetaData struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// MetaInt reads an integer product meta value, tolerating the string
// encoding WooCommerce uses for numeric meta.
func (p Product) MetaInt(key string) (int, bool) {
	for _, m := range p.MetaData {
		if m.Key != key {
			continue
		}
		var asInt int
		if err := json.Unmarshal(m.Value, &asInt); err == nil {
			return asInt, true
		}
		var asString string
		if err := json.Unmarshal(m.Value, &asString); err == nil {
			if parsed, err := strconv.Atoi(asString); err == nil {
				return parsed, true
			}
		}
		return 0, false
	}
	return 0, false
}

// MetaBool reads a boolean product meta value ("yes"/"no" or JSON bool).
func (p Product) MetaBool(key string) bool {
	for _, m := range p.MetaData {
		if m.Key != key {
			continue
		}
		var asBool bool
		if err := json.Unmarshal(m.Value, &asBool); err == nil {
			return asBool
		}
		var asString string
		if err := json.Unmarshal(m.Value, &asString); err == nil {
			return asString == "yes" || asString == "1" || asString == "true"
		}
	}
	return false
}

// Customer is a WooCommerce customer account.
type Customer struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	Billing   any    `json:"billing,omitempty"`
	Shipping  any    `json:"shipping,omitempty"`
}

// Order is a WooCommerce order, reduced to the hand-off fields.
type Order struct {
	ID         int64           `json:"id"`
	Status     string          `json:"status"`
	Total      string          `json:"total"`
	Currency   string          `json:"currency"`
	CustomerID int64           `json:"customer_id"`
	OrderKey   string          `json:"order_key"`
	LineItems  []OrderLineItem `json:"line_items"`
	DateCreate string          `json:"date_created"`
}

type OrderLineItem struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Name      string `json:"name,omitempty"`
	Total     string `json:"total,omitempty"`
}

// OrderInput creates a pending order from a cart snapshot.
type OrderInput struct {
	CustomerID int64           `json:"customer_id,omitempty"`
	Status     string          `json:"status"`
	SetPaid    bool            `json:"set_paid"`
	LineItems  []OrderLineItem `json:"line_items"`
}

// ProductQuery filters catalog listings.
type ProductQuery struct {
	Page     int
	PerPage  int
	Search   string
	Category string
	Slug     string
}

// ListProducts returns a catalog page.
func (c *Client) ListProducts(ctx context.Context, q ProductQuery) ([]Product, error) {
	values := url.Values{}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		values.Set("per_page", strconv.Itoa(q.PerPage))
	}
	if q.Search != "" {
		values.Set("search", q.Search)
	}
	if q.Category != "" {
		values.Set("category", q.Category)
	}
	if q.Slug != "" {
		values.Set("slug", q.Slug)
	}

	req, err := c.newRESTRequest(ctx, http.MethodGet, "/products", values, nil)
	if err != nil {
		return nil, err
	}
	var products []Product
	if _, err := c.do(c.retrying, req, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct fetches a single product by id.
func (c *Client) GetProduct(ctx context.Context, id int64) (*Product, error) {
	req, err := c.newRESTRequest(ctx, http.MethodGet, "/products/"+strconv.FormatInt(id, 10), nil, nil)
	if err != nil {
		return nil, err
	}
	var product Product
	if _, err := c.do(c.retrying, req, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateOrder creates an order from the given input.
func (c *Client) CreateOrder(ctx context.Context, input OrderInput) (*Order, error) {
	req, err := c.newRESTRequest(ctx, http.MethodPost, "/orders", nil, input)
	if err != nil {
		return nil, err
	}
	var order Order
	if _, err := c.do(c.plain, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrder fetches an order by id.
func (c *Client) GetOrder(ctx context.Context, id int64) (*Order, error) {
	req, err := c.newRESTRequest(ctx, http.MethodGet, "/orders/"+strconv.FormatInt(id, 10), nil, nil)
	if err != nil {
		return nil, err
	}
	var order Order
	if _, err := c.do(c.retrying, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderStatus transitions an order to the given status.
func (c *Client) UpdateOrderStatus(ctx context.Context, id int64, status string) (*Order, error) {
	req, err := c.newRESTRequest(ctx, http.MethodPut, "/orders/"+strconv.FormatInt(id, 10), nil, map[string]string{"status": status})
	if err != nil {
		return nil, err
	}
	var order Order
	if _, err := c.do(c.plain, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrdersByCustomer returns the customer's order history.
func (c *Client) ListOrdersByCustomer(ctx context.Context, customerID int64, page, perPage int) ([]Order, error) {
	values := url.Values{"customer": {strconv.FormatInt(customerID, 10)}}
	if page > 0 {
		values.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		values.Set("per_page", strconv.Itoa(perPage))
	}
	req, err := c.newRESTRequest(ctx, http.MethodGet, "/orders", values, nil)
	if err != nil {
		return nil, err
	}
	var orders []Order
	if _, err := c.do(c.retrying, req, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetCustomerByEmail looks up a customer account by email address.
// Returns nil without error when no account matches.
func (c *Client) GetCustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	req, err := c.newRESTRequest(ctx, http.MethodGet, "/customers", url.Values{"email": {email}}, nil)
	if err != nil {
		return nil, err
	}
	var customers []Customer
	if _, err := c.do(c.retrying, req, &customers); err != nil {
		return nil, err
	}
	if len(customers) == 0 {
		return nil, nil
	}
	return &customers[0], nil
}

// GetCustomer fetches a customer account by id.
func (c *Client) GetCustomer(ctx context.Context, id int64) (*Customer, error) {
	req, err := c.newRESTRequest(ctx, http.MethodGet, "/customers/"+strconv.FormatInt(id, 10), nil, nil)
	if err != nil {
		return nil, err
	}
	var customer Customer
	if _, err := c.do(c.retrying, req, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// CreateCustomer registers a new customer account.
func (c *Client) CreateCustomer(ctx context.Context, input map[string]any) (*Customer, error) {
	req, err := c.newRESTRequest(ctx, http.MethodPost, "/customers", nil, input)
	if err != nil {
		return nil, err
	}
	var customer Customer
	if _, err := c.do(c.plain, req, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// UpdateCustomer patches an existing customer account.
func (c *Client) UpdateCustomer(ctx context.Context, id int64, input map[string]any) (*Customer, error) {
	req, err := c.newRESTRequest(ctx, http.MethodPut, "/customers/"+strconv.FormatInt(id, 10), nil, input)
	if err != nil {
		return nil, err
	}
	var customer Customer
	if _, err := c.do(c.plain, req, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}
