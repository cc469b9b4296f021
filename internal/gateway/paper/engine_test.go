package paper

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zion/internal/gateway/exchange"
	"zion/internal/market"
)

type staticSource struct {
	snap *market.Snapshot
	err  error
}

func (s *staticSource) Snapshot(ctx context.Context, asset string) (*market.Snapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.snap, nil
}

func snapWithBook(t *testing.T, bids, asks []market.BookLevel) *market.Snapshot {
	t.Helper()
	book, err := market.NewOrderBook("BTCUSDT", time.Now().UTC(), bids, asks)
	require.NoError(t, err)
	snap, err := market.NewSnapshot("BTCUSDT", time.Now().UTC())
	require.NoError(t, err)
	snap.Book = book
	return snap
}

func tightSnap(t *testing.T) *market.Snapshot {
	return snapWithBook(t,
		[]market.BookLevel{{Price: 99.99, Quantity: 5}, {Price: 99.98, Quantity: 10}},
		[]market.BookLevel{{Price: 100.01, Quantity: 5}, {Price: 100.02, Quantity: 10}},
	)
}

func newTestEngine(t *testing.T, src SnapshotSource, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(src, cfg)
	require.NoError(t, err)
	return e
}

func mustOrder(t *testing.T, side exchange.OrderSide, qty float64, opts ...exchange.OrderOption) exchange.OrderRequest {
	t.Helper()
	req, err := exchange.NewOrderRequest("BTCUSDT", side, exchange.OrderTypeMarket, qty, opts...)
	require.NoError(t, err)
	return req
}

func TestNewEngineValidation(t *testing.T) {
	src := &staticSource{}
	_, err := NewEngine(nil, Config{StartingEquity: 1000})
	assert.Error(t, err)
	_, err = NewEngine(src, Config{StartingEquity: 0})
	assert.Error(t, err)
	_, err = NewEngine(src, Config{StartingEquity: 1000, FeeRate: -0.1})
	assert.Error(t, err)
}

func TestMarketOrderFill(t *testing.T) {
	src := &staticSource{snap: tightSnap(t)}
	e := newTestEngine(t, src, Config{StartingEquity: 10000, FeeRate: 0.0004})
	ctx := context.Background()

	result, err := e.SubmitOrder(ctx, mustOrder(t, exchange.OrderSideBuy, 2, exchange.WithLeverage(3)))
	require.NoError(t, err)
	assert.Equal(t, exchange.OrderStatusFilled, result.Status)
	assert.InDelta(t, 2.0, result.FilledQuantity, 1e-9)
	assert.InDelta(t, 100.01, result.AverageFillPrice, 1e-9)
	assert.InDelta(t, 2*100.01*0.0004, result.Fees, 1e-9)
	require.NotNil(t, result.Quality)
	assert.True(t, strings.HasPrefix(result.OrderID, "paper-"))

	pos, err := e.GetPosition(ctx, "BTCUSDT")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.InDelta(t, 2.0, pos.Size, 1e-9)
	assert.InDelta(t, 100.01, pos.EntryPrice, 1e-9)
}

func TestPartialFill(t *testing.T) {
	src := &staticSource{snap: tightSnap(t)}
	e := newTestEngine(t, src, Config{StartingEquity: 100000, MaxImpactBps: 100})

	result, err := e.SubmitOrder(context.Background(), mustOrder(t, exchange.OrderSideBuy, 20))
	require.NoError(t, err)
	assert.Equal(t, exchange.OrderStatusPartiallyFilled, result.Status)
	assert.InDelta(t, 15.0, result.FilledQuantity, 1e-9)
	assert.InDelta(t, 5.0, result.RemainingQty, 1e-9)
}

func TestImpactRejection(t *testing.T) {
	// 薄簿：吃到第二档均价偏离中间价超过阈值
	snap := snapWithBook(t,
		[]market.BookLevel{{Price: 99, Quantity: 1}},
		[]market.BookLevel{{Price: 101, Quantity: 1}, {Price: 110, Quantity: 10}},
	)
	src := &staticSource{snap: snap}
	e := newTestEngine(t, src, Config{StartingEquity: 10000, MaxImpactBps: 50})

	result, err := e.SubmitOrder(context.Background(), mustOrder(t, exchange.OrderSideBuy, 5))
	require.NoError(t, err)
	assert.Equal(t, exchange.OrderStatusRejected, result.Status)
	assert.Contains(t, result.ErrorMessage, "price impact")

	// 拒单也可查询
	got, err := e.GetOrderStatus(context.Background(), result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, exchange.OrderStatusRejected, got.Status)
}

func TestNettingAndRealizedPnl(t *testing.T) {
	src := &staticSource{snap: tightSnap(t)}
	e := newTestEngine(t, src, Config{StartingEquity: 10000})
	ctx := context.Background()

	// 开多 2 @ 100.01
	_, err := e.SubmitOrder(ctx, mustOrder(t, exchange.OrderSideBuy, 2))
	require.NoError(t, err)

	// 价格上移后平仓
	src.snap = snapWithBook(t,
		[]market.BookLevel{{Price: 101.99, Quantity: 10}},
		[]market.BookLevel{{Price: 102.01, Quantity: 10}},
	)
	_, err = e.SubmitOrder(ctx, mustOrder(t, exchange.OrderSideSell, 2))
	require.NoError(t, err)

	pos, err := e.GetPosition(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Nil(t, pos)

	metrics, err := e.GetMetrics(ctx)
	require.NoError(t, err)
	// 实现盈亏 (101.99 - 100.01) * 2 = 3.96
	assert.InDelta(t, 10003.96, metrics.TotalEquity, 1e-6)
	assert.Zero(t, metrics.UsedMargin)
}

func TestFlipPosition(t *testing.T) {
	src := &staticSource{snap: tightSnap(t)}
	e := newTestEngine(t, src, Config{StartingEquity: 10000, MaxImpactBps: 100})
	ctx := context.Background()

	_, err := e.SubmitOrder(ctx, mustOrder(t, exchange.OrderSideBuy, 1))
	require.NoError(t, err)
	// 卖 3：平 1 反手空 2，新开仓价取本次成交价
	_, err = e.SubmitOrder(ctx, mustOrder(t, exchange.OrderSideSell, 3))
	require.NoError(t, err)

	pos, err := e.GetPosition(ctx, "BTCUSDT")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.InDelta(t, -2.0, pos.Size, 1e-9)
	assert.InDelta(t, 99.99, pos.EntryPrice, 1e-9)
}

func TestAveragingUp(t *testing.T) {
	src := &staticSource{snap: tightSnap(t)}
	e := newTestEngine(t, src, Config{StartingEquity: 10000})
	ctx := context.Background()

	_, err := e.SubmitOrder(ctx, mustOrder(t, exchange.OrderSideBuy, 2))
	require.NoError(t, err)

	src.snap = snapWithBook(t,
		[]market.BookLevel{{Price: 103.99, Quantity: 10}},
		[]market.BookLevel{{Price: 104.01, Quantity: 10}},
	)
	_, err = e.SubmitOrder(ctx, mustOrder(t, exchange.OrderSideBuy, 2))
	require.NoError(t, err)

	pos, err := e.GetPosition(ctx, "BTCUSDT")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.InDelta(t, 4.0, pos.Size, 1e-9)
	assert.InDelta(t, (100.01+104.01)/2, pos.EntryPrice, 1e-9)
}

func TestNonMarketableLimitRestsOpen(t *testing.T) {
	src := &staticSource{snap: tightSnap(t)}
	e := newTestEngine(t, src, Config{StartingEquity: 10000})

	req, err := exchange.NewOrderRequest("BTCUSDT", exchange.OrderSideBuy, exchange.OrderTypeLimit, 1,
		exchange.WithPrice(95))
	require.NoError(t, err)
	result, err := e.SubmitOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, exchange.OrderStatusOpen, result.Status)
	assert.InDelta(t, 1.0, result.RemainingQty, 1e-9)

	// 可继续轮询
	got, err := e.GetOrderStatus(context.Background(), result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, exchange.OrderStatusOpen, got.Status)
}

func TestMarketableLimitFills(t *testing.T) {
	src := &staticSource{snap: tightSnap(t)}
	e := newTestEngine(t, src, Config{StartingEquity: 10000})

	req, err := exchange.NewOrderRequest("BTCUSDT", exchange.OrderSideBuy, exchange.OrderTypeLimit, 1,
		exchange.WithPrice(100.05))
	require.NoError(t, err)
	result, err := e.SubmitOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, exchange.OrderStatusFilled, result.Status)
}

func TestOrderNotFound(t *testing.T) {
	src := &staticSource{snap: tightSnap(t)}
	e := newTestEngine(t, src, Config{StartingEquity: 10000})
	_, err := e.GetOrderStatus(context.Background(), "paper-missing")
	assert.ErrorIs(t, err, exchange.ErrOrderNotFound)
}

func TestSnapshotErrorPropagates(t *testing.T) {
	src := &staticSource{err: errors.New("upstream down")}
	e := newTestEngine(t, src, Config{StartingEquity: 10000})

	_, err := e.GetSnapshot(context.Background(), "BTCUSDT")
	assert.Error(t, err)
	_, err = e.SubmitOrder(context.Background(), mustOrder(t, exchange.OrderSideBuy, 1))
	assert.Error(t, err)
}

func TestMetricsWithOpenPosition(t *testing.T) {
	src := &staticSource{snap: tightSnap(t)}
	e := newTestEngine(t, src, Config{StartingEquity: 10000})
	ctx := context.Background()

	_, err := e.SubmitOrder(ctx, mustOrder(t, exchange.OrderSideBuy, 2, exchange.WithLeverage(4)))
	require.NoError(t, err)

	metrics, err := e.GetMetrics(ctx)
	require.NoError(t, err)
	require.Contains(t, metrics.Positions, "BTCUSDT")
	assert.Greater(t, metrics.UsedMargin, 0.0)
	assert.True(t, metrics.IsMarginSafe())
}

func TestRestingLimitFillsOnLaterSnapshot(t *testing.T) {
	src := &staticSource{snap: tightSnap(t)}
	e := newTestEngine(t, src, Config{StartingEquity: 10000})
	ctx := context.Background()

	req, err := exchange.NewOrderRequest("BTCUSDT", exchange.OrderSideBuy, exchange.OrderTypeLimit, 1,
		exchange.WithPrice(95))
	require.NoError(t, err)
	result, err := e.SubmitOrder(ctx, req)
	require.NoError(t, err)
	require.Equal(t, exchange.OrderStatusOpen, result.Status)

	// 价格落到限价之下，下一次快照撮合
	src.snap = snapWithBook(t,
		[]market.BookLevel{{Price: 94.97, Quantity: 10}},
		[]market.BookLevel{{Price: 94.99, Quantity: 10}},
	)
	_, err = e.GetSnapshot(ctx, "BTCUSDT")
	require.NoError(t, err)

	got, err := e.GetOrderStatus(ctx, result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, exchange.OrderStatusFilled, got.Status)
	assert.InDelta(t, 94.99, got.AverageFillPrice, 1e-9)

	pos, err := e.GetPosition(ctx, "BTCUSDT")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.InDelta(t, 1.0, pos.Size, 1e-9)
}

func TestStopLossTriggersOnLaterSnapshot(t *testing.T) {
	src := &staticSource{snap: tightSnap(t)}
	e := newTestEngine(t, src, Config{StartingEquity: 10000})
	ctx := context.Background()

	_, err := e.SubmitOrder(ctx, mustOrder(t, exchange.OrderSideBuy, 1))
	require.NoError(t, err)

	stopReq, err := exchange.NewOrderRequest("BTCUSDT", exchange.OrderSideSell, exchange.OrderTypeStopMarket, 1,
		exchange.WithStopPrice(98), exchange.WithReduceOnly())
	require.NoError(t, err)
	stop, err := e.SubmitOrder(ctx, stopReq)
	require.NoError(t, err)
	require.Equal(t, exchange.OrderStatusOpen, stop.Status)

	// 标记价未触及止损，挂单不动
	_, err = e.GetSnapshot(ctx, "BTCUSDT")
	require.NoError(t, err)
	got, err := e.GetOrderStatus(ctx, stop.OrderID)
	require.NoError(t, err)
	assert.Equal(t, exchange.OrderStatusOpen, got.Status)

	// 跌破止损价后触发，对着 bid 成交平仓
	src.snap = snapWithBook(t,
		[]market.BookLevel{{Price: 97.49, Quantity: 10}},
		[]market.BookLevel{{Price: 97.51, Quantity: 10}},
	)
	_, err = e.GetSnapshot(ctx, "BTCUSDT")
	require.NoError(t, err)

	got, err = e.GetOrderStatus(ctx, stop.OrderID)
	require.NoError(t, err)
	assert.Equal(t, exchange.OrderStatusFilled, got.Status)
	assert.InDelta(t, 97.49, got.AverageFillPrice, 1e-9)

	pos, err := e.GetPosition(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Nil(t, pos)
}

func TestReduceOnlyCancelledWithoutPosition(t *testing.T) {
	src := &staticSource{snap: tightSnap(t)}
	e := newTestEngine(t, src, Config{StartingEquity: 10000})
	ctx := context.Background()

	_, err := e.SubmitOrder(ctx, mustOrder(t, exchange.OrderSideBuy, 1))
	require.NoError(t, err)
	stopReq, err := exchange.NewOrderRequest("BTCUSDT", exchange.OrderSideSell, exchange.OrderTypeStopMarket, 1,
		exchange.WithStopPrice(98), exchange.WithReduceOnly())
	require.NoError(t, err)
	stop, err := e.SubmitOrder(ctx, stopReq)
	require.NoError(t, err)

	// 手动平仓后仓位消失，reduce-only 挂单在下一次快照被取消而不是反向开仓
	_, err = e.SubmitOrder(ctx, mustOrder(t, exchange.OrderSideSell, 1))
	require.NoError(t, err)
	src.snap = snapWithBook(t,
		[]market.BookLevel{{Price: 97.49, Quantity: 10}},
		[]market.BookLevel{{Price: 97.51, Quantity: 10}},
	)
	_, err = e.GetSnapshot(ctx, "BTCUSDT")
	require.NoError(t, err)

	got, err := e.GetOrderStatus(ctx, stop.OrderID)
	require.NoError(t, err)
	assert.Equal(t, exchange.OrderStatusCancelled, got.Status)
	pos, err := e.GetPosition(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Nil(t, pos)
}

func TestStopTriggered(t *testing.T) {
	mk := func(side exchange.OrderSide, typ exchange.OrderType, stop float64) exchange.OrderRequest {
		req, err := exchange.NewOrderRequest("BTCUSDT", side, typ, 1, exchange.WithStopPrice(stop))
		require.NoError(t, err)
		return req
	}
	// 多头止损：跌破触发
	assert.True(t, stopTriggered(mk(exchange.OrderSideSell, exchange.OrderTypeStopMarket, 98), 97.5))
	assert.False(t, stopTriggered(mk(exchange.OrderSideSell, exchange.OrderTypeStopMarket, 98), 99))
	// 多头止盈：涨破触发
	assert.True(t, stopTriggered(mk(exchange.OrderSideSell, exchange.OrderTypeTakeProfit, 105), 106))
	assert.False(t, stopTriggered(mk(exchange.OrderSideSell, exchange.OrderTypeTakeProfit, 105), 104))
	// 空头止损：涨破触发
	assert.True(t, stopTriggered(mk(exchange.OrderSideBuy, exchange.OrderTypeStopMarket, 102), 103))
	// 空头止盈：跌破触发
	assert.True(t, stopTriggered(mk(exchange.OrderSideBuy, exchange.OrderTypeTakeProfit, 95), 94))
	// 无标记价不触发
	assert.False(t, stopTriggered(mk(exchange.OrderSideSell, exchange.OrderTypeStopMarket, 98), 0))
}
