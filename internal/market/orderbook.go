package market

import (
	"fmt"
	"sort"
	"time"
)

// 中文说明：
// 订单簿快照：构造时完成排序与校验，之后只读。
// bids 按价格降序、asks 按价格升序；双边非空时 spread 不为负。

// BookLevel 订单簿单档。
type BookLevel struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
	Orders   int     `json:"orders,omitempty"`
}

// OrderBook 单币种订单簿快照。
type OrderBook struct {
	Asset     string      `json:"asset"`
	Timestamp time.Time   `json:"timestamp"`
	Bids      []BookLevel `json:"bids"`
	Asks      []BookLevel `json:"asks"`
}

// DefaultImbalanceDepth 计算 imbalance 时默认取前 10 档。
const DefaultImbalanceDepth = 10

func NewOrderBook(asset string, ts time.Time, bids, asks []BookLevel) (*OrderBook, error) {
	if asset == "" {
		return nil, fmt.Errorf("orderbook: asset is required")
	}
	for _, lv := range bids {
		if err := validateLevel("bid", lv); err != nil {
			return nil, err
		}
	}
	for _, lv := range asks {
		if err := validateLevel("ask", lv); err != nil {
			return nil, err
		}
	}
	b := make([]BookLevel, len(bids))
	copy(b, bids)
	a := make([]BookLevel, len(asks))
	copy(a, asks)
	sort.Slice(b, func(i, j int) bool { return b[i].Price > b[j].Price })
	sort.Slice(a, func(i, j int) bool { return a[i].Price < a[j].Price })
	if len(b) > 0 && len(a) > 0 && a[0].Price < b[0].Price {
		return nil, fmt.Errorf("orderbook: crossed book for %s (best_bid=%.8f best_ask=%.8f)", asset, b[0].Price, a[0].Price)
	}
	return &OrderBook{Asset: asset, Timestamp: ts, Bids: b, Asks: a}, nil
}

func validateLevel(side string, lv BookLevel) error {
	if lv.Price <= 0 {
		return fmt.Errorf("orderbook: %s level price must be > 0, got %.8f", side, lv.Price)
	}
	if lv.Quantity < 0 {
		return fmt.Errorf("orderbook: %s level quantity must be >= 0, got %.8f", side, lv.Quantity)
	}
	return nil
}

func (ob *OrderBook) BestBid() (BookLevel, bool) {
	if ob == nil || len(ob.Bids) == 0 {
		return BookLevel{}, false
	}
	return ob.Bids[0], true
}

func (ob *OrderBook) BestAsk() (BookLevel, bool) {
	if ob == nil || len(ob.Asks) == 0 {
		return BookLevel{}, false
	}
	return ob.Asks[0], true
}

// Spread 双边非空时返回 best_ask - best_bid，否则 0。
func (ob *OrderBook) Spread() float64 {
	bid, okB := ob.BestBid()
	ask, okA := ob.BestAsk()
	if !okB || !okA {
		return 0
	}
	return ask.Price - bid.Price
}

func (ob *OrderBook) MidPrice() float64 {
	bid, okB := ob.BestBid()
	ask, okA := ob.BestAsk()
	if !okB || !okA {
		return 0
	}
	return (ask.Price + bid.Price) / 2
}

// Imbalance 前 depth 档的买卖量失衡度：(bidVol-askVol)/(bidVol+askVol)。
// 双边总量为 0 时返回 0。depth<=0 时使用 DefaultImbalanceDepth。
func (ob *OrderBook) Imbalance(depth int) float64 {
	if ob == nil {
		return 0
	}
	if depth <= 0 {
		depth = DefaultImbalanceDepth
	}
	var bidVol, askVol float64
	for i, lv := range ob.Bids {
		if i >= depth {
			break
		}
		bidVol += lv.Quantity
	}
	for i, lv := range ob.Asks {
		if i >= depth {
			break
		}
		askVol += lv.Quantity
	}
	total := bidVol + askVol
	if total == 0 {
		return 0
	}
	return (bidVol - askVol) / total
}
