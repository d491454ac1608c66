package schwab

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelgebbelay/gammawizzard/internal/condor"
	"github.com/michaelgebbelay/gammawizzard/internal/domain"
	"github.com/michaelgebbelay/gammawizzard/internal/retry"
)

func f(v float64) *float64 { return &v }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(srv *httptest.Server) *Client {
	return New(Config{
		BaseURL:       srv.URL,
		MarketDataURL: srv.URL,
		AccessToken:   "tok",
		AccountHash:   "HASH",
		Retry:         retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond},
	}, testLogger())
}

func testSpread(t *testing.T) domain.Spread {
	t.Helper()
	sp, err := condor.BuildSpread(domain.Signal{
		Underlying: "SPXW",
		SignalDate: "2024-11-14",
		Expiry:     "2024-11-15",
		InnerPut:   5895,
		InnerCall:  5900,
		Width:      5,
		Cat1:       f(0.3),
		Cat2:       f(0.7),
	})
	require.NoError(t, err)
	return sp
}

func TestGetPositions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/trader/v1/accounts/HASH", r.URL.Path)
		require.Equal(t, "positions", r.URL.Query().Get("fields"))
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{
			"securitiesAccount": {
				"positions": [
					{"longQuantity": 0, "shortQuantity": 4,
					 "instrument": {"assetType": "OPTION", "symbol": "SPXW  241115P05895000"}},
					{"longQuantity": 4, "shortQuantity": 0,
					 "instrument": {"assetType": "OPTION", "symbol": "SPXW  241115P05890000"}},
					{"longQuantity": 100, "shortQuantity": 0,
					 "instrument": {"assetType": "EQUITY", "symbol": "AAPL"}}
				]
			}
		}`))
	}))
	defer srv.Close()

	snap, err := testClient(srv).GetPositions(t.Context())
	require.NoError(t, err)

	assert.Len(t, snap, 2, "equity position excluded")
	assert.Equal(t, -4.0, snap.Qty("241115P05895000"))
	assert.Equal(t, 4.0, snap.Qty("241115P05890000"))
}

func TestGetWorkingOrders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/trader/v1/accounts/HASH/orders", r.URL.Path)
		require.NotEmpty(t, r.URL.Query().Get("fromEnteredTime"))
		require.NotEmpty(t, r.URL.Query().Get("toEnteredTime"))
		_, _ = w.Write([]byte(`[
			{"orderId": 1001, "status": "WORKING", "quantity": 4, "filledQuantity": 1,
			 "orderLegCollection": [
				{"instruction": "SELL_TO_OPEN", "instrument": {"assetType": "OPTION", "symbol": "SPXW  241115P05895000"}}
			 ]},
			{"orderId": 1002, "status": "FILLED", "quantity": 4, "filledQuantity": 4,
			 "orderLegCollection": [
				{"instruction": "SELL_TO_OPEN", "instrument": {"assetType": "OPTION", "symbol": "SPXW  241115P05895000"}}
			 ]}
		]`))
	}))
	defer srv.Close()

	window := domain.TradingDayWindow(time.Now())
	snap, err := testClient(srv).GetWorkingOrders(t.Context(), window)
	require.NoError(t, err)

	require.Len(t, snap.Orders, 1, "filled order excluded")
	wo := snap.Orders[0]
	assert.Equal(t, "1001", wo.ID)
	assert.Equal(t, 3, wo.PendingQty())
	require.Len(t, wo.Legs, 1)
	assert.Equal(t, "241115P05895000", wo.Legs[0].Canon)
	assert.Equal(t, domain.SideSellToOpen, wo.Legs[0].Side)
}

func TestPlaceComplexOrder(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/trader/v1/accounts/HASH/orders", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Location", "https://api.schwabapi.com/trader/v1/accounts/HASH/orders/12345")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	id, err := testClient(srv).PlaceComplexOrder(t.Context(), testSpread(t), 4, 2.10)
	require.NoError(t, err)
	assert.Equal(t, "12345", id)

	assert.Equal(t, "NET_CREDIT", body["orderType"])
	assert.Equal(t, "2.10", body["price"])
	assert.Equal(t, "IRON_CONDOR", body["complexOrderStrategyType"])
	assert.Equal(t, "SINGLE", body["orderStrategyType"])
	assert.Equal(t, "DAY", body["duration"])

	legs := body["orderLegCollection"].([]any)
	require.Len(t, legs, 4)
	first := legs[0].(map[string]any)
	assert.Equal(t, "BUY_TO_OPEN", first["instruction"])
	assert.Equal(t, 4.0, first["quantity"])
	instrument := first["instrument"].(map[string]any)
	assert.Equal(t, "SPXW  241115P05890000", instrument["symbol"])
	assert.Equal(t, "OPTION", instrument["assetType"])
}

func TestPlaceComplexOrderBodyID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"orderId": 777}`))
	}))
	defer srv.Close()

	id, err := testClient(srv).PlaceComplexOrder(t.Context(), testSpread(t), 1, 1.95)
	require.NoError(t, err)
	assert.Equal(t, "777", id)
}

func TestCancelOrderGoneIsOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	require.NoError(t, testClient(srv).CancelOrder(t.Context(), "999"))
}

func TestGetOrderStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/trader/v1/accounts/HASH/orders/1001", r.URL.Path)
		_, _ = w.Write([]byte(`{"orderId": 1001, "status": "FILLED", "filledQuantity": 4, "remainingQuantity": 0}`))
	}))
	defer srv.Close()

	st, err := testClient(srv).GetOrderStatus(t.Context(), "1001")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderFilled, st.State)
	assert.Equal(t, 4, st.FilledQty)
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"securitiesAccount": {"positions": []}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv).GetPositions(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(3), calls.Load())
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := testClient(srv).GetPositions(t.Context())
	require.Error(t, err)
	assert.Equal(t, int64(1), calls.Load())
}

func TestResolveAccountHash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/trader/v1/accounts/accountNumbers", r.URL.Path)
		_, _ = w.Write([]byte(`[{"accountNumber": "123", "hashValue": "ABCDEF"}]`))
	}))
	defer srv.Close()

	c := New(Config{
		BaseURL:     srv.URL,
		AccessToken: "tok",
		Retry:       retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond},
	}, testLogger())

	require.NoError(t, c.ResolveAccountHash(t.Context()))
	assert.Equal(t, "ABCDEF", c.cfg.AccountHash)
}

func TestLastPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/marketdata/v1/quotes", r.URL.Path)
		_, _ = w.Write([]byte(`{"$SPX": {"quote": {"lastPrice": 5897.5}}}`))
	}))
	defer srv.Close()

	last, err := testClient(srv).LastPrice(t.Context(), "$SPX")
	require.NoError(t, err)
	assert.Equal(t, 5897.5, last)
}
