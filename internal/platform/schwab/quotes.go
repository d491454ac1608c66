package schwab

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// LastPrice returns the last trade price for a symbol. Used only to decorate
// audit records; callers treat failures as non-fatal.
func (c *Client) LastPrice(ctx context.Context, symbol string) (float64, error) {
	q := url.Values{}
	q.Set("symbols", symbol)
	q.Set("fields", "quote")

	var resp map[string]struct {
		Quote struct {
			LastPrice float64 `json:"lastPrice"`
		} `json:"quote"`
	}
	if _, err := c.do(ctx, http.MethodGet, c.cfg.MarketDataURL+"/marketdata/v1/quotes?"+q.Encode(), nil, &resp); err != nil {
		return 0, fmt.Errorf("schwab: quote %s: %w", symbol, err)
	}
	for _, v := range resp {
		return v.Quote.LastPrice, nil
	}
	return 0, fmt.Errorf("schwab: quote %s: empty response", symbol)
}
