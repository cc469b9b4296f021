package market

import (
	"fmt"
	"strings"
	"time"
)

const (
	TradeSideBuy  = "buy"
	TradeSideSell = "sell"
)

// Trade 单笔成交记录。
type Trade struct {
	Asset       string    `json:"asset"`
	Timestamp   time.Time `json:"timestamp"`
	Price       float64   `json:"price"`
	Quantity    float64   `json:"quantity"`
	Side        string    `json:"side"` // "buy" | "sell"
	Liquidation bool      `json:"liquidation,omitempty"`
	Maker       bool      `json:"maker,omitempty"`
	Fee         float64   `json:"fee,omitempty"`
}

func NewTrade(asset string, ts time.Time, price, quantity float64, side string) (Trade, error) {
	side = strings.ToLower(strings.TrimSpace(side))
	if side != "buy" && side != "sell" {
		return Trade{}, fmt.Errorf("trade: side must be buy or sell, got %q", side)
	}
	if price <= 0 {
		return Trade{}, fmt.Errorf("trade: price must be > 0, got %.8f", price)
	}
	if quantity <= 0 {
		return Trade{}, fmt.Errorf("trade: quantity must be > 0, got %.8f", quantity)
	}
	return Trade{Asset: asset, Timestamp: ts, Price: price, Quantity: quantity, Side: side}, nil
}
