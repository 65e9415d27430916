package storeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/normalize"
)

const maxBodySize = 8 << 20

var catalogFields = []string{"games", "items", "data"}

// TokenSource supplies the bearer token for each request. An empty token
// sends the request without an Authorization header.
type TokenSource interface {
	Token() string
}

// APIError is a non-2xx response from the store.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("store responded with status: %d", e.Status)
	}
	return fmt.Sprintf("store responded with status %d: %s", e.Status, e.Message)
}

func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	metrics    *metrics.Metrics
}

func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, m *metrics.Metrics) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		tokens:  tokens,
		metrics: m,
	}
}

type gameRequest struct {
	GameID   models.ID `json:"gameId"`
	Quantity int       `json:"quantity,omitempty"`
}

type countResponse struct {
	Count int `json:"count"`
}

func (c *Client) GetCatalog(ctx context.Context) ([]models.Game, error) {
	raw, err := c.do(ctx, "get_catalog", http.MethodGet, "/api/games", nil)
	if err != nil {
		return nil, err
	}
	games, skipped := normalize.Decode[models.Game](normalize.New(catalogFields...), raw)
	if skipped > 0 {
		logging.FromContext(ctx).Warn("catalog_records_skipped", "skipped", skipped, "decoded", len(games))
	}
	return games, nil
}

// GetWishlist returns the raw wishlist payload; its shape is not fixed.
func (c *Client) GetWishlist(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, "get_wishlist", http.MethodGet, "/api/wishlist", nil)
}

func (c *Client) ToggleWishlist(ctx context.Context, gameID models.ID) error {
	_, err := c.do(ctx, "toggle_wishlist", http.MethodPost, "/api/wishlist/toggle", gameRequest{GameID: gameID})
	return err
}

// GetCart returns the raw cart payload; its shape is not fixed.
func (c *Client) GetCart(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, "get_cart", http.MethodGet, "/api/cart", nil)
}

func (c *Client) GetCartCount(ctx context.Context) (int, error) {
	raw, err := c.do(ctx, "get_cart_count", http.MethodGet, "/api/cart/count", nil)
	if err != nil {
		return 0, err
	}
	var resp countResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	return resp.Count, nil
}

func (c *Client) AddToCart(ctx context.Context, gameID models.ID, quantity int) error {
	_, err := c.do(ctx, "add_to_cart", http.MethodPost, "/api/cart/add", gameRequest{GameID: gameID, Quantity: quantity})
	return err
}

func (c *Client) UpdateCartItem(ctx context.Context, gameID models.ID, quantity int) error {
	_, err := c.do(ctx, "update_cart_item", http.MethodPut, "/api/cart/update", gameRequest{GameID: gameID, Quantity: quantity})
	return err
}

func (c *Client) RemoveFromCart(ctx context.Context, gameID models.ID) error {
	_, err := c.do(ctx, "remove_from_cart", http.MethodDelete, "/api/cart/remove", gameRequest{GameID: gameID})
	return err
}

func (c *Client) do(ctx context.Context, op, method, path string, body any) (raw []byte, err error) {
	start := time.Now()
	defer func() { c.metrics.ObserveRemote(op, start, err) }()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err = io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	return raw, nil
}

// errorMessage pulls "message" (or "error") out of an error body.
func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
