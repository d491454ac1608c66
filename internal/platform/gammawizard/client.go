// Package gammawizard fetches the LeoCross trade signal from the GammaWizard
// API and maps it onto the domain signal.
package gammawizard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/michaelgebbelay/gammawizzard/internal/domain"
	"github.com/michaelgebbelay/gammawizzard/internal/retry"
)

const (
	defaultBaseURL = "https://gandalf.gammawizard.com"
	defaultRoot    = "SPXW"
	defaultWidth   = 5
)

// Config holds API settings. Token may be stale or empty; the client falls
// back to a credential login when the token is rejected.
type Config struct {
	BaseURL    string
	Token      string
	Email      string
	Password   string
	OptionRoot string
	Width      int
	Retry      retry.Policy
}

// Client implements domain.SignalSource against the LeoCross endpoint.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
	token  string
}

var _ domain.SignalSource = (*Client)(nil)

// New creates a Client.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.OptionRoot == "" {
		cfg.OptionRoot = defaultRoot
	}
	if cfg.Width <= 0 {
		cfg.Width = defaultWidth
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.Default
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger.With(slog.String("component", "gammawizard")),
		token:  sanitizeToken(cfg.Token),
	}
}

// Fetch retrieves the current LeoCross signal. A rejected or missing token
// triggers one credential login before the request is retried.
func (c *Client) Fetch(ctx context.Context) (domain.Signal, error) {
	if c.token == "" {
		if err := c.login(ctx); err != nil {
			return domain.Signal{}, err
		}
	}

	body, status, err := c.get(ctx, "/rapi/GetLeoCross")
	if err != nil {
		return domain.Signal{}, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		if err := c.login(ctx); err != nil {
			return domain.Signal{}, err
		}
		body, status, err = c.get(ctx, "/rapi/GetLeoCross")
		if err != nil {
			return domain.Signal{}, err
		}
	}
	if status != http.StatusOK {
		return domain.Signal{}, fmt.Errorf("gammawizard: fetch signal: status %d", status)
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return domain.Signal{}, fmt.Errorf("gammawizard: decode signal: %w", err)
	}
	trade, ok := findTrade(decoded)
	if !ok {
		return domain.Signal{}, fmt.Errorf("gammawizard: %w: no trade object in response", domain.ErrInvalidSignal)
	}
	return c.toSignal(trade)
}

func (c *Client) get(ctx context.Context, path string) ([]byte, int, error) {
	var body []byte
	var status int
	err := c.cfg.Retry.Do(ctx, "GET "+path, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return err
		}
		status = resp.StatusCode
		if status >= 500 {
			return fmt.Errorf("status %d", status)
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("gammawizard: %w", err)
	}
	return body, status, nil
}

func (c *Client) login(ctx context.Context) error {
	if c.cfg.Email == "" || c.cfg.Password == "" {
		return fmt.Errorf("gammawizard: login: no credentials configured")
	}
	payload, _ := json.Marshal(map[string]string{
		"email":    c.cfg.Email,
		"password": c.cfg.Password,
	})

	var token string
	err := c.cfg.Retry.Do(ctx, "login", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.cfg.BaseURL+"/goauth/authenticateFireUser", bytes.NewReader(payload))
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				return retry.Permanent(fmt.Errorf("status %d", resp.StatusCode))
			}
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		var out struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return retry.Permanent(err)
		}
		if out.Token == "" {
			return retry.Permanent(fmt.Errorf("empty token"))
		}
		token = out.Token
		return nil
	})
	if err != nil {
		return fmt.Errorf("gammawizard: login: %w", err)
	}
	c.token = sanitizeToken(token)
	c.logger.Info("token refreshed via login")
	return nil
}

// findTrade walks the decoded JSON for the first object that carries the
// trade fields; the API nests the trade at varying depths.
func findTrade(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		if _, ok := t["TDate"]; ok {
			if _, ok := t["Limit"]; ok {
				return t, true
			}
		}
		for _, child := range t {
			if m, ok := findTrade(child); ok {
				return m, true
			}
		}
	case []any:
		for _, child := range t {
			if m, ok := findTrade(child); ok {
				return m, true
			}
		}
	}
	return nil, false
}

func (c *Client) toSignal(trade map[string]any) (domain.Signal, error) {
	expiryRaw, _ := trade["TDate"].(string)
	expiry, err := parseDate(expiryRaw)
	if err != nil {
		return domain.Signal{}, fmt.Errorf("gammawizard: %w: bad TDate %q", domain.ErrInvalidSignal, expiryRaw)
	}
	innerPut, ok := toFloat(trade["Limit"])
	if !ok {
		return domain.Signal{}, fmt.Errorf("gammawizard: %w: bad Limit", domain.ErrInvalidSignal)
	}
	innerCall, ok := toFloat(trade["CLimit"])
	if !ok {
		return domain.Signal{}, fmt.Errorf("gammawizard: %w: bad CLimit", domain.ErrInvalidSignal)
	}

	sig := domain.Signal{
		Underlying: c.cfg.OptionRoot,
		SignalDate: strings.TrimSpace(str(trade["Date"])),
		Expiry:     expiry.Format("2006-01-02"),
		InnerPut:   int(math.Round(innerPut)),
		InnerCall:  int(math.Round(innerCall)),
		Width:      c.cfg.Width,
		AsOf:       time.Now().UTC(),
	}
	if v, ok := toFloat(trade["Cat1"]); ok {
		sig.Cat1 = &v
	}
	if v, ok := toFloat(trade["Cat2"]); ok {
		sig.Cat2 = &v
	}
	if err := sig.Validate(); err != nil {
		return domain.Signal{}, err
	}
	return sig, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "2006-01-02T15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

// sanitizeToken strips quotes, whitespace and a leading Bearer prefix that
// tend to sneak in through copy/paste and env files.
func sanitizeToken(tok string) string {
	tok = strings.TrimSpace(tok)
	tok = strings.Trim(tok, `"'`)
	tok = strings.TrimSpace(strings.TrimPrefix(tok, "Bearer "))
	return tok
}
