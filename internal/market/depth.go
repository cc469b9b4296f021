package market

import (
	"sort"
	"time"
)

// 中文说明：
// 深度视图：按价格累积的流动性，用于估算吃单的价格冲击。

// DepthLevel 单档累积深度：到该价格为止的累计量。
type DepthLevel struct {
	Price     float64 `json:"price"`
	CumVolume float64 `json:"cum_volume"`
}

// Depth 按方向累积的市场深度。
type Depth struct {
	Asset     string       `json:"asset"`
	Timestamp time.Time    `json:"timestamp"`
	BidDepth  []DepthLevel `json:"bid_depth"` // 价格降序
	AskDepth  []DepthLevel `json:"ask_depth"` // 价格升序
}

// DepthFromBook 从订单簿构造累积深度。
func DepthFromBook(ob *OrderBook) *Depth {
	if ob == nil {
		return nil
	}
	d := &Depth{Asset: ob.Asset, Timestamp: ob.Timestamp}
	var cum float64
	for _, lv := range ob.Bids {
		cum += lv.Quantity
		d.BidDepth = append(d.BidDepth, DepthLevel{Price: lv.Price, CumVolume: cum})
	}
	cum = 0
	for _, lv := range ob.Asks {
		cum += lv.Quantity
		d.AskDepth = append(d.AskDepth, DepthLevel{Price: lv.Price, CumVolume: cum})
	}
	return d
}

// ImpactPrice 估算以 size 吃单后的成交价：返回首个累计量覆盖 size 的档位价格。
// size 超过全部流动性时返回最差档价格；无深度时返回 0。
func (d *Depth) ImpactPrice(size float64, side string) float64 {
	if d == nil || size <= 0 {
		return 0
	}
	levels := d.AskDepth
	if side == "sell" {
		levels = d.BidDepth
	}
	if len(levels) == 0 {
		return 0
	}
	idx := sort.Search(len(levels), func(i int) bool { return levels[i].CumVolume >= size })
	if idx == len(levels) {
		idx = len(levels) - 1
	}
	return levels[idx].Price
}
