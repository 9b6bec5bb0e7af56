// Package client is a typed Go client for the linen operations API and an
// optimistic local mirror of an invoice being edited.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kendall-kelly/linen-ops-api/models"
)

// APIError is a non-2xx response decoded from the error envelope
type APIError struct {
	Status  int
	Code    string
	Message string
	Details json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

// IsConflict reports whether the server rejected a stale revision
func (e *APIError) IsConflict() bool {
	return e.Status == http.StatusConflict
}

// IsConflict reports whether err wraps a revision conflict
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsConflict()
}

// Client calls the API with a bearer token
type Client struct {
	baseURL    string
	token      string
	header     http.Header
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default 10s-timeout HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithHeader adds a header to every request
func WithHeader(key, value string) Option {
	return func(c *Client) { c.header.Set(key, value) }
}

// New creates a client for baseURL, e.g. "https://ops.example.com/api/v1"
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		header:     http.Header{},
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range c.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Printf("warning: failed to close response body: %v", closeErr)
		}
	}()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s %s: failed to decode response (status %d): %w", method, path, resp.StatusCode, err)
	}
	if resp.StatusCode >= 300 || !env.Success {
		apiErr := &APIError{Status: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Details = env.Error.Details
		}
		return apiErr
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s %s: failed to decode data: %w", method, path, err)
		}
	}
	return nil
}

// GetInvoice fetches an invoice with its carts and items
func (c *Client) GetInvoice(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/invoices/%d", id), nil, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// CreateCart adds an empty cart to an invoice
func (c *Client) CreateCart(ctx context.Context, invoiceID uint, name string) (*models.Cart, error) {
	var cart models.Cart
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/invoices/%d/carts", invoiceID), map[string]string{"name": name}, &cart)
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// RenameCart renames a cart if it is still at revision
func (c *Client) RenameCart(ctx context.Context, cartID, revision uint, name string) (*models.Cart, error) {
	var cart models.Cart
	body := map[string]interface{}{"revision": revision, "name": name}
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/carts/%d", cartID), body, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddItem appends a product line at the product's current price
func (c *Client) AddItem(ctx context.Context, cartID, productID uint, quantity int) (*models.CartItem, error) {
	var item models.CartItem
	body := map[string]interface{}{"product_id": productID, "quantity": quantity}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/carts/%d/items", cartID), body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItemQuantity sets an item's quantity if it is still at revision
func (c *Client) UpdateItemQuantity(ctx context.Context, itemID, revision uint, quantity int) (*models.CartItem, error) {
	var item models.CartItem
	body := map[string]interface{}{"revision": revision, "quantity": quantity}
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/items/%d", itemID), body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// RemoveItem deletes an item if it is still at revision
func (c *Client) RemoveItem(ctx context.Context, itemID, revision uint) error {
	q := url.Values{"revision": {fmt.Sprint(revision)}}
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/items/%d?%s", itemID, q.Encode()), nil, nil)
}

// ToggleNeedsInvoice flips the client's needs-invoice flag on the server
func (c *Client) ToggleNeedsInvoice(ctx context.Context, clientID uint) (*models.Client, error) {
	var client models.Client
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/clients/%d/needs-invoice", clientID), nil, &client); err != nil {
		return nil, err
	}
	return &client, nil
}
