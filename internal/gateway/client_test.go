package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"harborbook/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(config.MarketplaceConfig{BaseURL: srv.URL, TimeoutSeconds: 5}, nil)
	return c, srv
}

func TestCreateBookingSendsBearerAndBody(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/bookings", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "BK1", "status": "Confirmed", "totalAmount": 1500000})
	}))

	start := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	booking, err := c.CreateBooking(context.Background(), "tok-123", CreateBookingRequest{
		ShipID:     "SH1",
		DockSlotID: "S1",
		StartTime:  start,
		EndTime:    start.Add(2 * time.Hour),
		Services:   []string{"SVC1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "SH1", gotBody["shipId"])
	assert.Equal(t, "S1", gotBody["dockSlotId"])
	assert.Equal(t, []any{"SVC1"}, gotBody["services"])
	assert.Equal(t, "2025-01-01T09:00:00Z", gotBody["startTime"])

	assert.Equal(t, "BK1", booking.ID)
	assert.Equal(t, "Confirmed", booking.Status)
	assert.EqualValues(t, 1500000, booking.TotalAmount)
}

func TestAPIErrorCarriesServerMessage(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Bến đã được đặt"})
	}))

	_, err := c.CreateBooking(context.Background(), "tok", CreateBookingRequest{})
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "Bến đã được đặt", apiErr.Message)
	assert.False(t, apiErr.IsAuth())
}

func TestAuthErrorDetection(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.ListShips(context.Background(), "")
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsAuth())
}

func TestNetworkFailureWrapsErrNetwork(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := NewClient(config.MarketplaceConfig{BaseURL: srv.URL, TimeoutSeconds: 1}, nil)
	srv.Close()

	_, err := c.ListBoatyards(context.Background(), "tok")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNetwork))
}

func TestCreatePaymentDecodesBundle(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/payments", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "BK1", body["id"])
		assert.Equal(t, "Boatyard", body["type"])
		_ = json.NewEncoder(w).Encode(map[string]any{
			"qrCode":        "00020101021238...",
			"bin":           "970436",
			"accountNumber": "0071000123456",
			"amount":        1500000,
			"description":   "HBBK1",
			"checkoutUrl":   "https://pay.example.com/web/abc",
		})
	}))

	details, err := c.CreatePayment(context.Background(), "tok", CreatePaymentRequest{
		ID: "BK1", Type: "Boatyard", Address: "Quận 7, TP.HCM",
	})
	require.NoError(t, err)
	assert.Equal(t, "970436", details.Bin)
	assert.EqualValues(t, 1500000, details.Amount)
	assert.Equal(t, "https://pay.example.com/web/abc", details.CheckoutURL)
}

func TestListBoatyardsUsesRedisCache(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"boatyards": []map[string]any{{"id": "B1", "name": "Cảng Sài Gòn"}},
		})
	}))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c.UseRedisCache(rdb, time.Minute)

	first, err := c.ListBoatyards(context.Background(), "tok")
	require.NoError(t, err)
	second, err := c.ListBoatyards(context.Background(), "tok")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	require.Len(t, second, 1)
	assert.Equal(t, "B1", second[0].ID)
}
