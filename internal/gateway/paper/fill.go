package paper

import (
	"fmt"

	"zion/internal/gateway/exchange"
	"zion/internal/market"

	"github.com/shopspring/decimal"
)

// fill 吃单模拟的结果。
type fill struct {
	Quantity decimal.Decimal
	AvgPrice decimal.Decimal
	Worst    decimal.Decimal
}

// simulateFill 沿订单簿逐档吃单。流动性不足时按可用量部分成交。
func simulateFill(book *market.OrderBook, side exchange.OrderSide, quantity float64) (fill, error) {
	if book == nil {
		return fill{}, fmt.Errorf("paper: orderbook unavailable")
	}
	levels := book.Asks
	if side == exchange.OrderSideSell {
		levels = book.Bids
	}
	if len(levels) == 0 {
		return fill{}, fmt.Errorf("paper: no liquidity on %s side", side)
	}

	remaining := decimal.NewFromFloat(quantity)
	filled := decimal.Zero
	notional := decimal.Zero
	worst := decimal.Zero
	for _, lv := range levels {
		if remaining.IsZero() {
			break
		}
		qty := decimal.NewFromFloat(lv.Quantity)
		if qty.GreaterThan(remaining) {
			qty = remaining
		}
		price := decimal.NewFromFloat(lv.Price)
		filled = filled.Add(qty)
		notional = notional.Add(qty.Mul(price))
		remaining = remaining.Sub(qty)
		worst = price
	}
	if filled.IsZero() {
		return fill{}, fmt.Errorf("paper: no fillable quantity on %s side", side)
	}
	return fill{
		Quantity: filled,
		AvgPrice: notional.Div(filled),
		Worst:    worst,
	}, nil
}

// impactBps 平均成交价相对中间价的偏移（基点，带方向归一为不利方向为正）。
func impactBps(avg decimal.Decimal, mid float64, side exchange.OrderSide) float64 {
	if mid <= 0 {
		return 0
	}
	midDec := decimal.NewFromFloat(mid)
	diff := avg.Sub(midDec)
	if side == exchange.OrderSideSell {
		diff = diff.Neg()
	}
	bps, _ := diff.Div(midDec).Mul(decimal.NewFromInt(10000)).Float64()
	return bps
}

// liquidityProfile 从订单簿抽样若干 size 档位的价格冲击。
func liquidityProfile(book *market.OrderBook, side exchange.OrderSide, samples int) *exchange.Liquidity {
	if book == nil {
		return nil
	}
	depth := market.DepthFromBook(book)
	liq := &exchange.Liquidity{
		Asset:  book.Asset,
		Spread: book.Spread(),
	}
	for _, lv := range depth.BidDepth {
		liq.BidLiquidity = lv.CumVolume
	}
	for _, lv := range depth.AskDepth {
		liq.AskLiquidity = lv.CumVolume
	}
	total := liq.AskLiquidity
	sideStr := market.TradeSideBuy
	if side == exchange.OrderSideSell {
		total = liq.BidLiquidity
		sideStr = market.TradeSideSell
	}
	if samples <= 0 || total <= 0 {
		return liq
	}
	mid := book.MidPrice()
	for i := 1; i <= samples; i++ {
		size := total * float64(i) / float64(samples)
		px := depth.ImpactPrice(size, sideStr)
		if px <= 0 || mid <= 0 {
			continue
		}
		bps := (px - mid) / mid * 10000
		if side == exchange.OrderSideSell {
			bps = -bps
		}
		liq.DepthImpact = append(liq.DepthImpact, exchange.ImpactPoint{Size: size, ImpactBps: bps})
	}
	return liq
}
