package paper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"zion/internal/gateway/exchange"
	"zion/internal/logger"
	"zion/internal/market"
	"zion/internal/risk"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SnapshotSource 提供真实行情，paper 引擎只在成交层做模拟。
type SnapshotSource interface {
	Snapshot(ctx context.Context, asset string) (*market.Snapshot, error)
}

type Config struct {
	StartingEquity float64
	FeeRate        float64
	MaxImpactBps   float64
}

// Engine 纸面交易：对着实时订单簿模拟吃单，维护本地仓位与净值。
// 实现 exchange.Service，对周期引擎与实盘网关完全同形。
type Engine struct {
	source SnapshotSource
	cfg    Config

	mu       sync.Mutex
	cash     decimal.Decimal
	pos      *position
	orders   map[string]*exchange.OrderResult
	lastMark map[string]float64
}

type position struct {
	asset    string
	size     decimal.Decimal // 带符号，正多负空
	entry    decimal.Decimal
	leverage float64
	openedAt time.Time
}

var _ exchange.Service = (*Engine)(nil)

func NewEngine(source SnapshotSource, cfg Config) (*Engine, error) {
	if source == nil {
		return nil, fmt.Errorf("paper: snapshot source is required")
	}
	if cfg.StartingEquity <= 0 {
		return nil, fmt.Errorf("paper: starting equity must be > 0, got %.2f", cfg.StartingEquity)
	}
	if cfg.FeeRate < 0 {
		return nil, fmt.Errorf("paper: fee rate must not be negative")
	}
	if cfg.MaxImpactBps <= 0 {
		cfg.MaxImpactBps = 25
	}
	return &Engine{
		source:   source,
		cfg:      cfg,
		cash:     decimal.NewFromFloat(cfg.StartingEquity),
		orders:   make(map[string]*exchange.OrderResult),
		lastMark: make(map[string]float64),
	}, nil
}

func (e *Engine) GetSnapshot(ctx context.Context, asset string) (*market.Snapshot, error) {
	snap, err := e.source.Snapshot(ctx, asset)
	if err != nil {
		return nil, err
	}
	if px := snap.Price(); px > 0 {
		e.mu.Lock()
		e.lastMark[snap.Asset] = px
		e.mu.Unlock()
	}
	e.matchResting(snap)
	return snap, nil
}

// matchResting 用新快照重估挂单：变得可成交的限价单与触发的止损/止盈
// 在此撮合，reduce-only 挂单在仓位消失后取消。
func (e *Engine) matchResting(snap *market.Snapshot) {
	if snap == nil || snap.Book == nil {
		return
	}
	px := snap.Price()
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, res := range e.orders {
		if res.Status != exchange.OrderStatusOpen || res.Request.Asset != snap.Asset {
			continue
		}
		req := res.Request
		if req.ReduceOnly && (e.pos == nil || e.pos.asset != req.Asset || e.pos.size.IsZero()) {
			res.Status = exchange.OrderStatusCancelled
			logger.Infof("paper: cancel reduce-only order %s, no position left", id)
			continue
		}

		triggered := false
		switch req.Type {
		case exchange.OrderTypeLimit:
			triggered = marketable(snap.Book, req)
		case exchange.OrderTypeStopMarket, exchange.OrderTypeTakeProfit:
			triggered = stopTriggered(req, px)
		}
		if !triggered {
			continue
		}

		qty := req.Quantity
		if req.ReduceOnly {
			if held, _ := e.pos.size.Abs().Float64(); held < qty {
				qty = held
			}
		}
		fl, err := simulateFill(snap.Book, req.Side, qty)
		if err != nil {
			continue
		}
		fees := fl.Quantity.Mul(fl.AvgPrice).Mul(decimal.NewFromFloat(e.cfg.FeeRate))
		e.cash = e.cash.Sub(fees)
		e.applyFillLocked(req, fl)

		filledF, _ := fl.Quantity.Float64()
		avgF, _ := fl.AvgPrice.Float64()
		feesF, _ := fees.Float64()
		res.Status = exchange.OrderStatusFilled
		if filledF < req.Quantity {
			res.Status = exchange.OrderStatusPartiallyFilled
		}
		res.FilledQuantity = filledF
		res.RemainingQty = req.Quantity - filledF
		res.AverageFillPrice = avgF
		res.Fees = feesF
		res.Timestamp = time.Now().UTC()
		logger.Infof("paper: resting order %s triggered, filled %.6f @ %.4f", id, filledF, avgF)
	}
}

// stopTriggered 判定触发价是否已被穿过；方向由订单类型与买卖边共同决定。
func stopTriggered(req exchange.OrderRequest, mark float64) bool {
	if req.StopPrice <= 0 || mark <= 0 {
		return false
	}
	switch req.Type {
	case exchange.OrderTypeStopMarket:
		if req.Side == exchange.OrderSideSell {
			return mark <= req.StopPrice
		}
		return mark >= req.StopPrice
	case exchange.OrderTypeTakeProfit:
		if req.Side == exchange.OrderSideSell {
			return mark >= req.StopPrice
		}
		return mark <= req.StopPrice
	}
	return false
}

func (e *Engine) GetPosition(ctx context.Context, asset string) (*risk.PositionRisk, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pos == nil || e.pos.asset != asset {
		return nil, nil
	}
	pos := e.positionRiskLocked()
	return &pos, nil
}

func (e *Engine) GetMetrics(ctx context.Context) (*risk.Metrics, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	equity := e.cash
	positions := make(map[string]risk.PositionRisk)
	var used decimal.Decimal
	if e.pos != nil {
		equity = equity.Add(e.unrealizedLocked())
		mark := decimal.NewFromFloat(e.markLocked(e.pos.asset))
		notional := e.pos.size.Abs().Mul(mark)
		lev := e.pos.leverage
		if lev < 1 {
			lev = 1
		}
		used = notional.Div(decimal.NewFromFloat(lev))
		positions[e.pos.asset] = e.positionRiskLocked()
	}

	equityF, _ := equity.Float64()
	usedF, _ := used.Float64()
	return &risk.Metrics{
		Timestamp:       time.Now().UTC(),
		TotalEquity:     equityF,
		UsedMargin:      usedF,
		AvailableMargin: equityF - usedF,
		MarginRatio:     risk.MarginRatio(usedF, equityF),
		Positions:       positions,
	}, nil
}

func (e *Engine) SubmitOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.OrderResult, error) {
	snap, err := e.GetSnapshot(ctx, req.Asset)
	if err != nil {
		return nil, fmt.Errorf("paper: snapshot for order: %w", err)
	}
	if snap.Book == nil {
		return exchange.RejectedResult(req, "orderbook unavailable"), nil
	}

	orderID := "paper-" + uuid.NewString()

	// 非市价单不立即撮合，挂起等待轮询
	if req.Type != exchange.OrderTypeMarket {
		if req.Type == exchange.OrderTypeLimit && !marketable(snap.Book, req) {
			result := &exchange.OrderResult{
				Request:      req,
				OrderID:      orderID,
				Status:       exchange.OrderStatusOpen,
				Timestamp:    time.Now().UTC(),
				RemainingQty: req.Quantity,
			}
			e.rememberOrder(result)
			return result, nil
		}
		if req.Type != exchange.OrderTypeLimit {
			result := &exchange.OrderResult{
				Request:      req,
				OrderID:      orderID,
				Status:       exchange.OrderStatusOpen,
				Timestamp:    time.Now().UTC(),
				RemainingQty: req.Quantity,
			}
			e.rememberOrder(result)
			return result, nil
		}
	}

	mid := snap.Book.MidPrice()
	fl, err := simulateFill(snap.Book, req.Side, req.Quantity)
	if err != nil {
		result := exchange.RejectedResult(req, err.Error())
		result.OrderID = orderID
		e.rememberOrder(result)
		return result, nil
	}
	impact := impactBps(fl.AvgPrice, mid, req.Side)
	if impact > e.cfg.MaxImpactBps {
		reason := fmt.Sprintf("price impact %.1f bps exceeds limit %.1f bps", impact, e.cfg.MaxImpactBps)
		result := exchange.RejectedResult(req, reason)
		result.OrderID = orderID
		e.rememberOrder(result)
		return result, nil
	}

	e.mu.Lock()
	fees := fl.Quantity.Mul(fl.AvgPrice).Mul(decimal.NewFromFloat(e.cfg.FeeRate))
	e.cash = e.cash.Sub(fees)
	e.applyFillLocked(req, fl)
	e.mu.Unlock()

	filledF, _ := fl.Quantity.Float64()
	avgF, _ := fl.AvgPrice.Float64()
	feesF, _ := fees.Float64()
	status := exchange.OrderStatusFilled
	if filledF < req.Quantity {
		status = exchange.OrderStatusPartiallyFilled
		logger.Warnf("paper: partial fill %s %s %.6f/%.6f", req.Asset, req.Side, filledF, req.Quantity)
	}
	result := &exchange.OrderResult{
		Request:          req,
		OrderID:          orderID,
		Status:           status,
		Timestamp:        time.Now().UTC(),
		FilledQuantity:   filledF,
		RemainingQty:     req.Quantity - filledF,
		AverageFillPrice: avgF,
		Fees:             feesF,
		Quality: &exchange.ExecutionQuality{
			SlippageBps:       impact,
			PriceImpactBps:    impact,
			FilledQuantity:    filledF,
			RemainingQuantity: req.Quantity - filledF,
			AverageFillPrice:  avgF,
			FeesPaid:          feesF,
		},
	}
	e.rememberOrder(result)
	return result, nil
}

func (e *Engine) GetOrderStatus(ctx context.Context, orderID string) (*exchange.OrderResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	result, ok := e.orders[orderID]
	if !ok {
		return nil, exchange.ErrOrderNotFound
	}
	cp := *result
	return &cp, nil
}

// Liquidity 当前订单簿的流动性画像，供执行前的冲击评估。
func (e *Engine) Liquidity(ctx context.Context, asset string, side exchange.OrderSide) (*exchange.Liquidity, error) {
	snap, err := e.GetSnapshot(ctx, asset)
	if err != nil {
		return nil, err
	}
	return liquidityProfile(snap.Book, side, 10), nil
}

func (e *Engine) rememberOrder(result *exchange.OrderResult) {
	e.mu.Lock()
	e.orders[result.OrderID] = result
	e.mu.Unlock()
}

// applyFillLocked 以净头寸方式合并成交：同向加仓摊薄均价，反向先平后反。
func (e *Engine) applyFillLocked(req exchange.OrderRequest, fl fill) {
	signed := fl.Quantity
	if req.Side == exchange.OrderSideSell {
		signed = signed.Neg()
	}
	if e.pos == nil || e.pos.asset != req.Asset {
		if e.pos != nil {
			logger.Warnf("paper: replacing position %s with %s", e.pos.asset, req.Asset)
		}
		e.pos = &position{
			asset:    req.Asset,
			size:     signed,
			entry:    fl.AvgPrice,
			leverage: req.Leverage,
			openedAt: time.Now().UTC(),
		}
		return
	}

	pos := e.pos
	if req.Leverage > 0 {
		pos.leverage = req.Leverage
	}
	sameDirection := pos.size.Sign() == signed.Sign()
	if sameDirection {
		newSize := pos.size.Add(signed)
		notional := pos.size.Abs().Mul(pos.entry).Add(signed.Abs().Mul(fl.AvgPrice))
		pos.entry = notional.Div(newSize.Abs())
		pos.size = newSize
		return
	}

	closing := decimal.Min(pos.size.Abs(), signed.Abs())
	pnl := fl.AvgPrice.Sub(pos.entry).Mul(closing)
	if pos.size.Sign() < 0 {
		pnl = pnl.Neg()
	}
	e.cash = e.cash.Add(pnl)

	newSize := pos.size.Add(signed)
	if newSize.IsZero() {
		e.pos = nil
		return
	}
	if newSize.Sign() != pos.size.Sign() {
		// 反手：剩余部分以本次成交价为新开仓价
		pos.entry = fl.AvgPrice
	}
	pos.size = newSize
}

func (e *Engine) positionRiskLocked() risk.PositionRisk {
	pos := e.pos
	sizeF, _ := pos.size.Float64()
	entryF, _ := pos.entry.Float64()
	mark := e.markLocked(pos.asset)
	unrealized, _ := e.unrealizedLocked().Float64()
	return risk.NewPositionRisk(pos.asset, sizeF, entryF, mark, pos.leverage,
		unrealized, entryDrawdown(entryF, mark, sizeF), risk.LevelLow)
}

func (e *Engine) unrealizedLocked() decimal.Decimal {
	if e.pos == nil {
		return decimal.Zero
	}
	mark := e.markLocked(e.pos.asset)
	if mark <= 0 {
		return decimal.Zero
	}
	diff := decimal.NewFromFloat(mark).Sub(e.pos.entry)
	pnl := diff.Mul(e.pos.size.Abs())
	if e.pos.size.Sign() < 0 {
		pnl = pnl.Neg()
	}
	return pnl
}

func (e *Engine) markLocked(asset string) float64 {
	if px, ok := e.lastMark[asset]; ok && px > 0 {
		return px
	}
	entryF, _ := e.pos.entry.Float64()
	return entryF
}

func marketable(book *market.OrderBook, req exchange.OrderRequest) bool {
	if req.Side == exchange.OrderSideBuy {
		ask, ok := book.BestAsk()
		return ok && req.Price >= ask.Price
	}
	bid, ok := book.BestBid()
	return ok && req.Price <= bid.Price
}

func entryDrawdown(entry, mark, size float64) float64 {
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
