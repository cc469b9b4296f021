package market

import "time"

// MarkPrice 标记价/指数价快照。
type MarkPrice struct {
	Asset      string    `json:"asset"`
	Timestamp  time.Time `json:"timestamp"`
	Price      float64   `json:"price"`
	IndexPrice float64   `json:"index_price,omitempty"`
}

// Premium 标记价相对指数价的溢价比例；无指数价时返回 0。
func (m *MarkPrice) Premium() float64 {
	if m == nil || m.IndexPrice <= 0 {
		return 0
	}
	return (m.Price - m.IndexPrice) / m.IndexPrice
}
