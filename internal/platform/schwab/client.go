// Package schwab implements the broker adapter against the Schwab Trader
// REST API. All calls carry bounded retry; 4xx responses other than 408 and
// 429 are permanent.
package schwab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/michaelgebbelay/gammawizzard/internal/domain"
	"github.com/michaelgebbelay/gammawizzard/internal/retry"
)

const (
	defaultBaseURL       = "https://api.schwabapi.com"
	defaultMarketDataURL = "https://api.schwabapi.com"
)

// Config holds adapter settings. AccountHash may be empty, in which case
// ResolveAccountHash fills it from the accountNumbers endpoint.
type Config struct {
	BaseURL       string
	MarketDataURL string
	AccessToken   string
	AccountHash   string
	Retry         retry.Policy
}

// Client is the Schwab Trader API client.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

var (
	_ domain.BrokerClient = (*Client)(nil)
	_ domain.QuoteReader  = (*Client)(nil)
)

// New creates a Client. The access token is expected to be fresh; token
// refresh happens outside this process.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.MarketDataURL == "" {
		cfg.MarketDataURL = defaultMarketDataURL
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.Default
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger.With(slog.String("component", "schwab")),
	}
}

// ResolveAccountHash fetches the account hash when the config left it empty.
// The Trader API addresses accounts by opaque hash, not account number.
func (c *Client) ResolveAccountHash(ctx context.Context) error {
	if c.cfg.AccountHash != "" {
		return nil
	}
	var accounts []struct {
		AccountNumber string `json:"accountNumber"`
		HashValue     string `json:"hashValue"`
	}
	if _, err := c.do(ctx, http.MethodGet, c.cfg.BaseURL+"/trader/v1/accounts/accountNumbers", nil, &accounts); err != nil {
		return fmt.Errorf("schwab: resolve account hash: %w", err)
	}
	if len(accounts) == 0 || accounts[0].HashValue == "" {
		return fmt.Errorf("schwab: resolve account hash: no accounts returned")
	}
	c.cfg.AccountHash = accounts[0].HashValue
	c.logger.Info("account hash resolved")
	return nil
}

func (c *Client) accountURL(suffix string) string {
	return c.cfg.BaseURL + "/trader/v1/accounts/" + c.cfg.AccountHash + suffix
}

// do issues one API call with retry and decodes the JSON body into out when
// out is non-nil. It returns the response headers of the final attempt.
func (c *Client) do(ctx context.Context, method, url string, body any, out any) (http.Header, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("schwab: encode body: %w", err)
		}
	}

	var header http.Header
	err := c.cfg.Retry.Do(ctx, method+" "+url, func(ctx context.Context) error {
		var rd io.Reader
		if payload != nil {
			rd = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, rd)
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrBrokerUnavailable, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return fmt.Errorf("%w: read body: %w", domain.ErrBrokerUnavailable, err)
		}
		header = resp.Header

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if out != nil && len(bytes.TrimSpace(data)) > 0 {
				if err := json.Unmarshal(data, out); err != nil {
					return retry.Permanent(fmt.Errorf("decode response: %w", err))
				}
			}
			return nil
		case resp.StatusCode == http.StatusNotFound:
			return retry.Permanent(fmt.Errorf("%w: status 404: %s", domain.ErrOrderNotFound, snippet(data)))
		case resp.StatusCode == http.StatusRequestTimeout,
			resp.StatusCode == http.StatusTooManyRequests,
			resp.StatusCode >= 500:
			return fmt.Errorf("%w: status %d: %s", domain.ErrBrokerUnavailable, resp.StatusCode, snippet(data))
		default:
			return retry.Permanent(fmt.Errorf("status %d: %s", resp.StatusCode, snippet(data)))
		}
	})
	if err != nil {
		return header, fmt.Errorf("schwab: %w", err)
	}
	return header, nil
}

func snippet(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
