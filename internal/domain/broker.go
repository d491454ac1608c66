package domain

import "context"

// OrderState is the broker-side lifecycle state of one order.
type OrderState string

const (
	OrderWorking  OrderState = "working"
	OrderFilled   OrderState = "filled"
	OrderCanceled OrderState = "canceled"
	OrderRejected OrderState = "rejected"
	OrderExpired  OrderState = "expired"
	OrderUnknown  OrderState = "unknown"
)

// OrderStatus is a point-in-time view of one order.
type OrderStatus struct {
	OrderID      string
	State        OrderState
	FilledQty    int
	RemainingQty int
}

// BrokerClient is the execution capability the core consumes. All calls are
// synchronous and already wrapped with bounded retry by the adapter; the core
// treats a returned error as terminal for that step.
type BrokerClient interface {
	GetPositions(ctx context.Context) (PositionSnapshot, error)
	GetWorkingOrders(ctx context.Context, window TimeWindow) (OpenOrderSnapshot, error)
	PlaceComplexOrder(ctx context.Context, spread Spread, qty int, limit float64) (string, error)
	CancelOrder(ctx context.Context, orderID string) error
	GetOrderStatus(ctx context.Context, orderID string) (OrderStatus, error)
}

// QuoteReader is an optional capability for fetching a last trade price,
// used only to decorate audit records.
type QuoteReader interface {
	LastPrice(ctx context.Context, symbol string) (float64, error)
}

// SignalSource produces the parsed upstream signal for the current session.
type SignalSource interface {
	Fetch(ctx context.Context) (Signal, error)
}
