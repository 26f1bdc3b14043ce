package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"harborbook/internal/config"
	"harborbook/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Client is the single authenticated request path to the marketplace REST
// API. Every call injects the caller's bearer token, serializes JSON and
// converts non-2xx responses into *APIError.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *zerolog.Logger

	redis    *redis.Client
	cacheTTL time.Duration
}

func NewClient(cfg config.MarketplaceConfig, logger *zerolog.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
		logger:     logger,
	}
}

// UseRedisCache enables caching of catalog GET endpoints.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// LoginResult is the response of POST /auth/login.
type LoginResult struct {
	Token    string `json:"token"`
	Role     string `json:"role"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	body := map[string]string{"email": email, "password": password}
	var out LoginResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListBoatyards(ctx context.Context, token string) ([]models.Boatyard, error) {
	var wrap struct {
		Boatyards []models.Boatyard `json:"boatyards"`
	}
	cacheKey := "catalog:boatyards"
	if c.readCache(ctx, cacheKey, &wrap) {
		return wrap.Boatyards, nil
	}
	if err := c.do(ctx, http.MethodGet, "/boatyards", token, nil, &wrap); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, wrap)
	return wrap.Boatyards, nil
}

func (c *Client) ListServices(ctx context.Context, token, boatyardID string) ([]models.MarineService, error) {
	var wrap struct {
		Services []models.MarineService `json:"services"`
	}
	cacheKey := "catalog:services:" + boatyardID
	if c.readCache(ctx, cacheKey, &wrap) {
		return wrap.Services, nil
	}
	endpoint := fmt.Sprintf("/boatyards/%s/services", url.PathEscape(boatyardID))
	if err := c.do(ctx, http.MethodGet, endpoint, token, nil, &wrap); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, wrap)
	return wrap.Services, nil
}

// ListDockSlots is never cached: slot availability windows go stale fast.
func (c *Client) ListDockSlots(ctx context.Context, token, boatyardID string) ([]models.DockSlot, error) {
	var wrap struct {
		DockSlots []models.DockSlot `json:"dockSlots"`
	}
	endpoint := fmt.Sprintf("/boatyards/%s/dock-slots", url.PathEscape(boatyardID))
	if err := c.do(ctx, http.MethodGet, endpoint, token, nil, &wrap); err != nil {
		return nil, err
	}
	return wrap.DockSlots, nil
}

func (c *Client) ListShips(ctx context.Context, token string) ([]models.Ship, error) {
	var wrap struct {
		Ships []models.Ship `json:"ships"`
	}
	if err := c.do(ctx, http.MethodGet, "/ships", token, nil, &wrap); err != nil {
		return nil, err
	}
	return wrap.Ships, nil
}

// RegisterShipRequest is the body of POST /ships.
type RegisterShipRequest struct {
	Name         string `json:"name"`
	Registration string `json:"registration"`
	ShipType     string `json:"shipType"`
}

func (c *Client) RegisterShip(ctx context.Context, token string, req RegisterShipRequest) (*models.Ship, error) {
	var out models.Ship
	if err := c.do(ctx, http.MethodPost, "/ships", token, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateBookingRequest is the body of POST /bookings. Times are ISO-8601.
type CreateBookingRequest struct {
	ShipID     string    `json:"shipId"`
	DockSlotID string    `json:"dockSlotId"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
	Type       int       `json:"type"`
	Services   []string  `json:"services"`
}

func (c *Client) CreateBooking(ctx context.Context, token string, req CreateBookingRequest) (*models.Booking, error) {
	var out models.Booking
	if err := c.do(ctx, http.MethodPost, "/bookings", token, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetBooking(ctx context.Context, token, id string) (*models.Booking, error) {
	var out models.Booking
	endpoint := fmt.Sprintf("/bookings/%s", url.PathEscape(id))
	if err := c.do(ctx, http.MethodGet, endpoint, token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePaymentRequest is the body of POST /payments. ID is a booking or
// order id depending on Type.
type CreatePaymentRequest struct {
	ID      string `json:"id"`
	Type    string `json:"type"` // Boatyard | Supplier
	Address string `json:"address"`
}

// PaymentDetails is the server-issued payment bundle: static VietQR transfer
// fields plus an optional hosted checkout URL.
type PaymentDetails struct {
	QRCode        string `json:"qrCode"`
	Bin           string `json:"bin"`
	AccountNumber string `json:"accountNumber"`
	Amount        int64  `json:"amount"`
	Description   string `json:"description"`
	CheckoutURL   string `json:"checkoutUrl"`
}

func (c *Client) CreatePayment(ctx context.Context, token string, req CreatePaymentRequest) (*PaymentDetails, error) {
	var out PaymentDetails
	if err := c.do(ctx, http.MethodPost, "/payments", token, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, endpoint, token string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var serverBody struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&serverBody); err == nil {
			if serverBody.Message != "" {
				apiErr.Message = serverBody.Message
			} else {
				apiErr.Message = serverBody.Error
			}
		}
		if c.logger != nil {
			c.logger.Warn().Str("method", method).Str("endpoint", endpoint).
				Int("status", resp.StatusCode).Str("message", apiErr.Message).
				Msg("marketplace api error")
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), out) == nil
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return
	}
	c.redis.Set(ctx, key, raw, c.cacheTTL)
}
