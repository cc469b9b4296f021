package market

import (
	"fmt"
	"time"
)

// Snapshot 单轮决策周期使用的市场快照。构造后只读，周期间替换而非修改。
type Snapshot struct {
	Asset      string            `json:"asset"`
	Timestamp  time.Time         `json:"timestamp"`
	Book       *OrderBook        `json:"orderbook,omitempty"`
	Trades     []Trade           `json:"trades,omitempty"`
	Funding    *FundingRate      `json:"funding,omitempty"`
	Mark       *MarkPrice        `json:"mark,omitempty"`
	Indicators *IndicatorSummary `json:"indicators,omitempty"`
}

func NewSnapshot(asset string, ts time.Time) (*Snapshot, error) {
	if asset == "" {
		return nil, fmt.Errorf("snapshot: asset is required")
	}
	return &Snapshot{Asset: asset, Timestamp: ts}, nil
}

// Price 返回参考价：优先标记价，其次订单簿中间价，最后最新成交价。
func (s *Snapshot) Price() float64 {
	if s == nil {
		return 0
	}
	if s.Mark != nil && s.Mark.Price > 0 {
		return s.Mark.Price
	}
	if s.Book != nil {
		if mid := s.Book.MidPrice(); mid > 0 {
			return mid
		}
	}
	if n := len(s.Trades); n > 0 {
		return s.Trades[n-1].Price
	}
	return 0
}
