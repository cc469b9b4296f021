package binance

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"zion/internal/gateway/exchange"
	"zion/internal/market"
	symbolpkg "zion/internal/pkg/symbol"
	"zion/internal/risk"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/google/uuid"
)

// Live 直连币安合约的 exchange.Service 实现。
// 行情走 Source，账户与订单走带签名的 REST 接口。
type Live struct {
	source *Source
	client *futures.Client
}

var _ exchange.Service = (*Live)(nil)

func NewLive(source *Source) (*Live, error) {
	if source == nil || source.Client() == nil {
		return nil, fmt.Errorf("binance live: source is required")
	}
	if strings.TrimSpace(source.cfg.APIKey) == "" || strings.TrimSpace(source.cfg.APISecret) == "" {
		return nil, fmt.Errorf("binance live: api credentials are required: %w", exchange.ErrFatal)
	}
	return &Live{source: source, client: source.Client()}, nil
}

func (l *Live) GetSnapshot(ctx context.Context, asset string) (*market.Snapshot, error) {
	return l.source.Snapshot(ctx, asset)
}

func (l *Live) GetPosition(ctx context.Context, asset string) (*risk.PositionRisk, error) {
	sym := symbolpkg.ToExchange(asset)
	res, err := l.client.NewGetPositionRiskService().Symbol(sym).Do(ctx)
	if err != nil {
		return nil, classifyErr(err)
	}
	for _, p := range res {
		if p == nil || !strings.EqualFold(p.Symbol, sym) {
			continue
		}
		size := parseFloat(p.PositionAmt)
		if size == 0 {
			continue
		}
		entry := parseFloat(p.EntryPrice)
		mark := parseFloat(p.MarkPrice)
		leverage := parseFloat(p.Leverage)
		pos := risk.NewPositionRisk(asset, size, entry, mark, leverage,
			parseFloat(p.UnRealizedProfit), drawdown(entry, mark, size), risk.LevelLow)
		pos.LiquidationPrice = parseFloat(p.LiquidationPrice)
		return &pos, nil
	}
	return nil, nil
}

func (l *Live) GetMetrics(ctx context.Context) (*risk.Metrics, error) {
	acct, err := l.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, classifyErr(err)
	}
	equity := parseFloat(acct.TotalMarginBalance)
	used := parseFloat(acct.TotalInitialMargin)
	metrics := &risk.Metrics{
		Timestamp:       time.Now().UTC(),
		TotalEquity:     equity,
		UsedMargin:      used,
		AvailableMargin: parseFloat(acct.AvailableBalance),
		MarginRatio:     risk.MarginRatio(used, equity),
		Positions:       make(map[string]risk.PositionRisk),
	}
	for _, p := range acct.Positions {
		if p == nil {
			continue
		}
		size := parseFloat(p.PositionAmt)
		if size == 0 {
			continue
		}
		asset := symbolpkg.Normalize(p.Symbol)
		if asset == "" {
			asset = strings.ToUpper(p.Symbol)
		}
		entry := parseFloat(p.EntryPrice)
		pos := risk.NewPositionRisk(asset, size, entry, entry, parseFloat(p.Leverage),
			parseFloat(p.UnrealizedProfit), 0, risk.LevelLow)
		metrics.Positions[asset] = pos
	}
	return metrics, nil
}

func (l *Live) SubmitOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.OrderResult, error) {
	sym := symbolpkg.ToExchange(req.Asset)
	if req.Leverage > 0 {
		svc := l.client.NewChangeLeverageService().Symbol(sym).Leverage(int(req.Leverage))
		if _, err := svc.Do(ctx); err != nil {
			return nil, classifyErr(err)
		}
	}

	svc := l.client.NewCreateOrderService().
		Symbol(sym).
		Side(toSide(req.Side)).
		Type(toOrderType(req.Type)).
		Quantity(formatQty(req.Quantity)).
		NewClientOrderID("zion-" + uuid.NewString())
	if req.Price > 0 {
		svc = svc.Price(formatQty(req.Price))
	}
	if req.StopPrice > 0 {
		svc = svc.StopPrice(formatQty(req.StopPrice))
	}
	if req.ReduceOnly {
		svc = svc.ReduceOnly(true)
	}
	// 市价单不接受 timeInForce
	if req.Type == exchange.OrderTypeLimit || req.Type == exchange.OrderTypeStopLimit {
		svc = svc.TimeInForce(futures.TimeInForceType(req.TimeInForce))
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		var apiErr *common.APIError
		if errors.As(err, &apiErr) && !isFatalCode(apiErr.Code) {
			// 交易所拒单是业务结果，不是调用失败
			return exchange.RejectedResult(req, apiErr.Message), nil
		}
		return nil, classifyErr(err)
	}

	filled := parseFloat(resp.ExecutedQuantity)
	result := &exchange.OrderResult{
		Request:          req,
		OrderID:          fmt.Sprintf("%s:%d", sym, resp.OrderID),
		Status:           fromStatus(resp.Status),
		Timestamp:        time.UnixMilli(resp.UpdateTime).UTC(),
		FilledQuantity:   filled,
		RemainingQty:     req.Quantity - filled,
		AverageFillPrice: parseFloat(resp.AvgPrice),
	}
	if result.Status == exchange.OrderStatusRejected && result.ErrorMessage == "" {
		result.ErrorMessage = "rejected by venue"
	}
	return result, nil
}

func (l *Live) GetOrderStatus(ctx context.Context, orderID string) (*exchange.OrderResult, error) {
	sym, id, err := splitOrderID(orderID)
	if err != nil {
		return nil, err
	}
	order, err := l.client.NewGetOrderService().Symbol(sym).OrderID(id).Do(ctx)
	if err != nil {
		var apiErr *common.APIError
		if errors.As(err, &apiErr) && apiErr.Code == -2013 {
			return nil, exchange.ErrOrderNotFound
		}
		return nil, classifyErr(err)
	}
	filled := parseFloat(order.ExecutedQuantity)
	qty := parseFloat(order.OrigQuantity)
	result := &exchange.OrderResult{
		OrderID:          orderID,
		Status:           fromStatus(order.Status),
		Timestamp:        time.UnixMilli(order.UpdateTime).UTC(),
		FilledQuantity:   filled,
		RemainingQty:     qty - filled,
		AverageFillPrice: parseFloat(order.AvgPrice),
	}
	if result.Status == exchange.OrderStatusRejected {
		result.ErrorMessage = "rejected by venue"
	}
	return result, nil
}

func splitOrderID(orderID string) (string, int64, error) {
	parts := strings.SplitN(orderID, ":", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("malformed order id %q", orderID)
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed order id %q: %w", orderID, err)
	}
	return parts[0], id, nil
}

func toSide(side exchange.OrderSide) futures.SideType {
	if side == exchange.OrderSideSell {
		return futures.SideTypeSell
	}
	return futures.SideTypeBuy
}

func toOrderType(t exchange.OrderType) futures.OrderType {
	switch t {
	case exchange.OrderTypeLimit:
		return futures.OrderTypeLimit
	case exchange.OrderTypeStopMarket:
		return futures.OrderTypeStopMarket
	case exchange.OrderTypeStopLimit:
		return futures.OrderTypeStop
	case exchange.OrderTypeTakeProfit:
		return futures.OrderTypeTakeProfitMarket
	case exchange.OrderTypeTrailingStop:
		return futures.OrderTypeTrailingStopMarket
	default:
		return futures.OrderTypeMarket
	}
}

func fromStatus(s futures.OrderStatusType) exchange.OrderStatus {
	switch s {
	case futures.OrderStatusTypeNew:
		return exchange.OrderStatusOpen
	case futures.OrderStatusTypePartiallyFilled:
		return exchange.OrderStatusPartiallyFilled
	case futures.OrderStatusTypeFilled:
		return exchange.OrderStatusFilled
	case futures.OrderStatusTypeCanceled:
		return exchange.OrderStatusCancelled
	case futures.OrderStatusTypeRejected:
		return exchange.OrderStatusRejected
	case futures.OrderStatusTypeExpired:
		return exchange.OrderStatusExpired
	default:
		return exchange.OrderStatusPending
	}
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// drawdown 以标记价相对开仓价的不利偏移近似持仓回撤。
func drawdown(entry, mark, size float64) float64 {
	if entry <= 0 || mark <= 0 {
		return 0
	}
	move := (mark - entry) / entry
	if size < 0 {
		move = -move
	}
	if move >= 0 {
		return 0
	}
	return -move
}

func isFatalCode(code int64) bool {
	switch code {
	case -1002, -1022, -2014, -2015:
		// 未授权 / 签名错误 / API key 无效
		return true
	default:
		return false
	}
}

func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) && isFatalCode(apiErr.Code) {
		return fmt.Errorf("%w: %v", exchange.ErrFatal, err)
	}
	return err
}
