package stockapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 2*time.Second, zerolog.Nop())
}

func TestGetPrice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/price", r.URL.Path)
		assert.Equal(t, "VNM", r.URL.Query().Get("symbol"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"symbol": "VNM",
			"price": 65400,
			"change": 200,
			"pct_change": 0.31,
			"volume": 1250000,
			"source": "cafef",
			"timestamp": "2026-08-30T09:15:00Z"
		}`))
	})

	quote, err := c.GetPrice(context.Background(), "vnm")
	require.NoError(t, err)
	assert.Equal(t, "VNM", quote.Symbol)
	assert.Equal(t, 65400.0, quote.Price)
	assert.Equal(t, "cafef", quote.Source)
	assert.Equal(t, int64(1250000), quote.Volume)
	assert.False(t, quote.Timestamp.IsZero())
}

func TestGetPriceMalformedPayloads(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"null price", `{"symbol": "XYZ", "price": null}`},
		{"negative price", `{"symbol": "XYZ", "price": -5}`},
		{"error field set", `{"symbol": "XYZ", "price": 100, "error": "symbol not found"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			_, err := c.GetPrice(context.Background(), "XYZ")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedPrice)
		})
	}
}

func TestGetPriceServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	_, err := c.GetPrice(context.Background(), "VNM")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformedPrice, "transport failures must stay distinguishable")
}

func TestGetPriceRespectsContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"symbol": "VNM", "price": 1}`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.GetPrice(ctx, "VNM")
	assert.Error(t, err)
}

func TestProbe(t *testing.T) {
	healthy := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol": "VNM", "price": 100}`))
	})
	assert.NoError(t, healthy.Probe(context.Background(), "VNM"))

	garbage := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol": "VNM", "price": null}`))
	})
	assert.Error(t, garbage.Probe(context.Background(), "VNM"))
}
