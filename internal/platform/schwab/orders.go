package schwab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/michaelgebbelay/gammawizzard/internal/condor"
	"github.com/michaelgebbelay/gammawizzard/internal/domain"
)

// workingStatuses are the order statuses that count as live on the book.
var workingStatuses = map[string]bool{
	"WORKING":            true,
	"QUEUED":             true,
	"OPEN":               true,
	"ACCEPTED":           true,
	"PENDING_ACTIVATION": true,
}

type orderJSON struct {
	OrderID            json.Number `json:"orderId"`
	Status             string      `json:"status"`
	Quantity           float64     `json:"quantity"`
	FilledQuantity     float64     `json:"filledQuantity"`
	RemainingQuantity  float64     `json:"remainingQuantity"`
	EnteredTime        string      `json:"enteredTime"`
	OrderLegCollection []struct {
		Instruction string `json:"instruction"`
		Instrument  struct {
			AssetType string `json:"assetType"`
			Symbol    string `json:"symbol"`
		} `json:"instrument"`
	} `json:"orderLegCollection"`
}

// GetWorkingOrders lists live orders entered within the window. Orders whose
// legs are not all parseable options are skipped; they can never match a
// spread and the guard treats unknown orders as absent.
func (c *Client) GetWorkingOrders(ctx context.Context, window domain.TimeWindow) (domain.OpenOrderSnapshot, error) {
	q := url.Values{}
	q.Set("fromEnteredTime", window.From.UTC().Format("2006-01-02T15:04:05.000Z"))
	q.Set("toEnteredTime", window.To.UTC().Format("2006-01-02T15:04:05.000Z"))
	q.Set("maxResults", "200")

	var raw []orderJSON
	if _, err := c.do(ctx, http.MethodGet, c.accountURL("/orders?"+q.Encode()), nil, &raw); err != nil {
		return domain.OpenOrderSnapshot{}, fmt.Errorf("schwab: get working orders: %w", err)
	}

	var snap domain.OpenOrderSnapshot
	for _, o := range raw {
		if !workingStatuses[o.Status] {
			continue
		}
		wo := domain.WorkingOrder{
			ID:        o.OrderID.String(),
			Status:    o.Status,
			Quantity:  int(o.Quantity),
			FilledQty: int(o.FilledQuantity),
		}
		if t, err := time.Parse("2006-01-02T15:04:05-0700", o.EnteredTime); err == nil {
			wo.EnteredAt = t
		} else if t, err := time.Parse(time.RFC3339, o.EnteredTime); err == nil {
			wo.EnteredAt = t
		}
		ok := true
		for _, l := range o.OrderLegCollection {
			if l.Instrument.AssetType != "OPTION" {
				ok = false
				break
			}
			canon, err := condor.Canon(l.Instrument.Symbol)
			if err != nil {
				ok = false
				break
			}
			wo.Legs = append(wo.Legs, domain.WorkingLeg{
				Canon: canon,
				Side:  domain.LegSide(l.Instruction),
			})
		}
		if !ok {
			continue
		}
		snap.Orders = append(snap.Orders, wo)
	}
	return snap, nil
}

// PlaceComplexOrder submits a four-leg net-price order and returns the broker
// order ID, taken from the Location header or the response body.
func (c *Client) PlaceComplexOrder(ctx context.Context, spread domain.Spread, qty int, limit float64) (string, error) {
	legs := make([]map[string]any, 0, domain.NumLegs)
	for _, l := range spread.Legs {
		legs = append(legs, map[string]any{
			"instruction": string(l.Side),
			"quantity":    qty,
			"instrument": map[string]any{
				"symbol":    l.Symbol,
				"assetType": "OPTION",
			},
		})
	}
	body := map[string]any{
		"orderType":                spread.OrderType(),
		"session":                  "NORMAL",
		"price":                    fmt.Sprintf("%.2f", limit),
		"duration":                 "DAY",
		"orderStrategyType":        "SINGLE",
		"complexOrderStrategyType": "IRON_CONDOR",
		"orderLegCollection":       legs,
	}

	var resp struct {
		OrderID json.Number `json:"orderId"`
	}
	header, err := c.do(ctx, http.MethodPost, c.accountURL("/orders"), body, &resp)
	if err != nil {
		return "", fmt.Errorf("schwab: place order: %w", err)
	}

	if id := resp.OrderID.String(); id != "" && id != "0" {
		return id, nil
	}
	if loc := header.Get("Location"); loc != "" {
		parts := strings.Split(strings.TrimRight(loc, "/"), "/")
		if id := parts[len(parts)-1]; id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("schwab: place order: no order id in response")
}

// CancelOrder cancels a live order. A missing order is treated as already
// canceled.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	if _, err := c.do(ctx, http.MethodDelete, c.accountURL("/orders/"+url.PathEscape(orderID)), nil, nil); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("schwab: cancel order %s: %w", orderID, err)
	}
	return nil
}

// GetOrderStatus fetches the current lifecycle state of an order.
func (c *Client) GetOrderStatus(ctx context.Context, orderID string) (domain.OrderStatus, error) {
	var raw orderJSON
	if _, err := c.do(ctx, http.MethodGet, c.accountURL("/orders/"+url.PathEscape(orderID)), nil, &raw); err != nil {
		return domain.OrderStatus{}, fmt.Errorf("schwab: get order %s: %w", orderID, err)
	}
	return domain.OrderStatus{
		OrderID:      raw.OrderID.String(),
		State:        mapState(raw.Status),
		FilledQty:    int(raw.FilledQuantity),
		RemainingQty: int(raw.RemainingQuantity),
	}, nil
}

func mapState(status string) domain.OrderState {
	switch {
	case status == "FILLED":
		return domain.OrderFilled
	case status == "CANCELED" || status == "REPLACED":
		return domain.OrderCanceled
	case status == "REJECTED":
		return domain.OrderRejected
	case status == "EXPIRED":
		return domain.OrderExpired
	case workingStatuses[status] || status == "PENDING_CANCEL" || status == "AWAITING_UR_OUT":
		return domain.OrderWorking
	default:
		return domain.OrderUnknown
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrOrderNotFound)
}
