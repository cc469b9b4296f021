package exchange

import (
	"fmt"
	"strings"
	"time"
)

// 中文说明：
// 订单请求/结果类型。OrderRequest 只能经 NewOrderRequest 构造，
// 跨字段规则（限价单必须带价格等）在值存在之前完成校验。

type OrderType string

const (
	OrderTypeMarket       OrderType = "market"
	OrderTypeLimit        OrderType = "limit"
	OrderTypeStopMarket   OrderType = "stop_market"
	OrderTypeStopLimit    OrderType = "stop_limit"
	OrderTypeTakeProfit   OrderType = "take_profit"
	OrderTypeTrailingStop OrderType = "trailing_stop"
)

type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusRejected        OrderStatus = "rejected"
	OrderStatusExpired         OrderStatus = "expired"
)

// OrderRequest 已经通过校验的下单请求。
type OrderRequest struct {
	Asset       string    `json:"asset"`
	Side        OrderSide `json:"side"`
	Type        OrderType `json:"type"`
	Quantity    float64   `json:"quantity"`
	Price       float64   `json:"price,omitempty"`
	StopPrice   float64   `json:"stop_price,omitempty"`
	ReduceOnly  bool      `json:"reduce_only,omitempty"`
	PostOnly    bool      `json:"post_only,omitempty"`
	TimeInForce string    `json:"time_in_force"`
	Leverage    float64   `json:"leverage,omitempty"`
}

// OrderOption 调整可选字段。
type OrderOption func(*OrderRequest)

func WithPrice(price float64) OrderOption       { return func(r *OrderRequest) { r.Price = price } }
func WithStopPrice(price float64) OrderOption   { return func(r *OrderRequest) { r.StopPrice = price } }
func WithReduceOnly() OrderOption               { return func(r *OrderRequest) { r.ReduceOnly = true } }
func WithPostOnly() OrderOption                 { return func(r *OrderRequest) { r.PostOnly = true } }
func WithTimeInForce(tif string) OrderOption    { return func(r *OrderRequest) { r.TimeInForce = tif } }
func WithLeverage(leverage float64) OrderOption { return func(r *OrderRequest) { r.Leverage = leverage } }

// NewOrderRequest 构造并校验下单请求。校验失败时返回错误，值不会产生。
func NewOrderRequest(asset string, side OrderSide, typ OrderType, quantity float64, opts ...OrderOption) (OrderRequest, error) {
	req := OrderRequest{
		Asset:       strings.TrimSpace(asset),
		Side:        side,
		Type:        typ,
		Quantity:    quantity,
		TimeInForce: "GTC",
	}
	for _, opt := range opts {
		opt(&req)
	}
	if req.Asset == "" {
		return OrderRequest{}, fmt.Errorf("order: asset is required")
	}
	switch side {
	case OrderSideBuy, OrderSideSell:
	default:
		return OrderRequest{}, fmt.Errorf("order: invalid side %q", side)
	}
	switch typ {
	case OrderTypeMarket, OrderTypeLimit, OrderTypeStopMarket, OrderTypeStopLimit, OrderTypeTakeProfit, OrderTypeTrailingStop:
	default:
		return OrderRequest{}, fmt.Errorf("order: invalid type %q", typ)
	}
	if quantity <= 0 {
		return OrderRequest{}, fmt.Errorf("order: quantity must be > 0, got %.8f", quantity)
	}
	if (typ == OrderTypeLimit || typ == OrderTypeStopLimit) && req.Price <= 0 {
		return OrderRequest{}, fmt.Errorf("order: %s orders require a price", typ)
	}
	if (typ == OrderTypeStopMarket || typ == OrderTypeStopLimit) && req.StopPrice <= 0 {
		return OrderRequest{}, fmt.Errorf("order: %s orders require a stop price", typ)
	}
	if req.Price < 0 || req.StopPrice < 0 {
		return OrderRequest{}, fmt.Errorf("order: prices must not be negative")
	}
	return req, nil
}

// ExecutionQuality 成交质量指标，仅在成交后计算。
type ExecutionQuality struct {
	SlippageBps       float64 `json:"slippage_bps"`
	FillTimeSeconds   float64 `json:"fill_time_seconds"`
	PriceImpactBps    float64 `json:"price_impact_bps"`
	FilledQuantity    float64 `json:"filled_quantity"`
	RemainingQuantity float64 `json:"remaining_quantity"`
	AverageFillPrice  float64 `json:"average_fill_price"`
	FeesPaid          float64 `json:"fees_paid"`
}

// OrderResult 订单执行结果。REJECTED 必须携带非空错误信息。
type OrderResult struct {
	Request          OrderRequest      `json:"request"`
	OrderID          string            `json:"order_id"`
	Status           OrderStatus       `json:"status"`
	Timestamp        time.Time         `json:"timestamp"`
	FilledQuantity   float64           `json:"filled_quantity"`
	RemainingQty     float64           `json:"remaining_quantity"`
	AverageFillPrice float64           `json:"average_fill_price,omitempty"`
	Fees             float64           `json:"fees"`
	Quality          *ExecutionQuality `json:"execution_quality,omitempty"`
	ErrorMessage     string            `json:"error_message,omitempty"`
}

// RejectedResult 构造拒单结果；reason 为空时补默认文案以维持不变量。
func RejectedResult(req OrderRequest, reason string) *OrderResult {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "order rejected"
	}
	return &OrderResult{
		Request:      req,
		Status:       OrderStatusRejected,
		Timestamp:    time.Now().UTC(),
		RemainingQty: req.Quantity,
		ErrorMessage: reason,
	}
}

// IsTerminal 订单是否已到达终态。
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected, OrderStatusExpired:
		return true
	default:
		return false
	}
}
