package schwab

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/michaelgebbelay/gammawizzard/internal/condor"
	"github.com/michaelgebbelay/gammawizzard/internal/domain"
)

type accountResponse struct {
	SecuritiesAccount struct {
		Positions []struct {
			LongQuantity  float64 `json:"longQuantity"`
			ShortQuantity float64 `json:"shortQuantity"`
			Instrument    struct {
				AssetType string `json:"assetType"`
				Symbol    string `json:"symbol"`
			} `json:"instrument"`
		} `json:"positions"`
	} `json:"securitiesAccount"`
}

// GetPositions returns signed option quantities keyed by canonical symbol.
// Non-option positions are ignored; a symbol that fails to parse is keyed
// raw so it can never silently alias a real leg.
func (c *Client) GetPositions(ctx context.Context) (domain.PositionSnapshot, error) {
	var resp accountResponse
	if _, err := c.do(ctx, http.MethodGet, c.accountURL("?fields=positions"), nil, &resp); err != nil {
		return nil, fmt.Errorf("schwab: get positions: %w", err)
	}

	snap := make(domain.PositionSnapshot)
	for _, p := range resp.SecuritiesAccount.Positions {
		if p.Instrument.AssetType != "OPTION" {
			continue
		}
		qty := p.LongQuantity - p.ShortQuantity
		if qty == 0 {
			continue
		}
		key, err := condor.Canon(p.Instrument.Symbol)
		if err != nil {
			c.logger.Warn("unparseable option symbol in positions",
				slog.String("symbol", p.Instrument.Symbol),
			)
			key = p.Instrument.Symbol
		}
		snap[key] += qty
	}
	return snap, nil
}
