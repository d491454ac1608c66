package gammawizard

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelgebbelay/gammawizzard/internal/domain"
	"github.com/michaelgebbelay/gammawizzard/internal/retry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastRetry() retry.Policy {
	return retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond}
}

func tradePayload() map[string]any {
	return map[string]any{
		"Trade": map[string]any{
			"Date":   "2024-11-14",
			"TDate":  "2024-11-15",
			"Limit":  5895.0,
			"CLimit": 5900.0,
			"Cat1":   0.3,
			"Cat2":   0.7,
		},
	}
}

func TestFetchParsesSignal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rapi/GetLeoCross", r.URL.Path)
		require.Equal(t, "Bearer tok123", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(tradePayload())
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Token: "tok123", Retry: fastRetry()}, testLogger())
	sig, err := c.Fetch(t.Context())
	require.NoError(t, err)

	assert.Equal(t, "SPXW", sig.Underlying)
	assert.Equal(t, "2024-11-14", sig.SignalDate)
	assert.Equal(t, "2024-11-15", sig.Expiry)
	assert.Equal(t, 5895, sig.InnerPut)
	assert.Equal(t, 5900, sig.InnerCall)
	assert.Equal(t, 5, sig.Width)
	require.NotNil(t, sig.Cat2)
	assert.True(t, sig.IsCredit())
}

func TestFetchStringNumbers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"Trade": map[string]any{
				"Date":   "2024-11-14",
				"TDate":  "2024-11-15",
				"Limit":  "5895",
				"CLimit": "5900",
				"Cat1":   "0.7",
				"Cat2":   "0.3",
			},
		})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Token: "tok", Retry: fastRetry()}, testLogger())
	sig, err := c.Fetch(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 5895, sig.InnerPut)
	assert.False(t, sig.IsCredit(), "Cat1 above Cat2 selects the debit side")
}

func TestFetchLoginFallbackOnUnauthorized(t *testing.T) {
	logins := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/goauth/authenticateFireUser":
			logins++
			var creds map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
			require.Equal(t, "user@example.com", creds["email"])
			_ = json.NewEncoder(w).Encode(map[string]string{"token": "fresh"})
		case "/rapi/GetLeoCross":
			if r.Header.Get("Authorization") != "Bearer fresh" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(tradePayload())
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(Config{
		BaseURL:  srv.URL,
		Token:    "stale",
		Email:    "user@example.com",
		Password: "secret",
		Retry:    fastRetry(),
	}, testLogger())

	sig, err := c.Fetch(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, logins)
	assert.Equal(t, 5895, sig.InnerPut)
}

func TestFetchNoTradeObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"Status": "ok"})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Token: "tok", Retry: fastRetry()}, testLogger())
	_, err := c.Fetch(t.Context())
	require.ErrorIs(t, err, domain.ErrInvalidSignal)
}

func TestFetchNestedTrade(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"Result": []any{tradePayload()},
		})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Token: "tok", Retry: fastRetry()}, testLogger())
	sig, err := c.Fetch(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "2024-11-15", sig.Expiry)
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"tok", "tok"},
		{"  tok  ", "tok"},
		{`"tok"`, "tok"},
		{"Bearer tok", "tok"},
		{`  "Bearer tok"  `, "tok"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeToken(tt.in), "input %q", tt.in)
	}
}
