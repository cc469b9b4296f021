package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustBook(t *testing.T, bids, asks []BookLevel) *OrderBook {
	t.Helper()
	ob, err := NewOrderBook("BTCUSDT", time.Now().UTC(), bids, asks)
	require.NoError(t, err)
	return ob
}

func TestNewOrderBookSortsSides(t *testing.T) {
	ob := mustBook(t,
		[]BookLevel{{Price: 99, Quantity: 1}, {Price: 100, Quantity: 2}},
		[]BookLevel{{Price: 102, Quantity: 1}, {Price: 101, Quantity: 3}},
	)
	assert.Equal(t, 100.0, ob.Bids[0].Price)
	assert.Equal(t, 101.0, ob.Asks[0].Price)

	bid, ok := ob.BestBid()
	require.True(t, ok)
	assert.Equal(t, 2.0, bid.Quantity)
	ask, ok := ob.BestAsk()
	require.True(t, ok)
	assert.Equal(t, 3.0, ask.Quantity)

	assert.InDelta(t, 1.0, ob.Spread(), 1e-9)
	assert.InDelta(t, 100.5, ob.MidPrice(), 1e-9)
}

func TestNewOrderBookRejectsBadInput(t *testing.T) {
	_, err := NewOrderBook("", time.Now(), nil, nil)
	assert.Error(t, err)

	_, err = NewOrderBook("BTCUSDT", time.Now(),
		[]BookLevel{{Price: 0, Quantity: 1}}, nil)
	assert.Error(t, err)

	_, err = NewOrderBook("BTCUSDT", time.Now(),
		[]BookLevel{{Price: 100, Quantity: -1}}, nil)
	assert.Error(t, err)

	// 交叉盘口
	_, err = NewOrderBook("BTCUSDT", time.Now(),
		[]BookLevel{{Price: 102, Quantity: 1}},
		[]BookLevel{{Price: 101, Quantity: 1}})
	assert.Error(t, err)
}

func TestImbalance(t *testing.T) {
	ob := mustBook(t,
		[]BookLevel{{Price: 100, Quantity: 6}},
		[]BookLevel{{Price: 101, Quantity: 2}},
	)
	// (6-2)/(6+2) = 0.5
	assert.InDelta(t, 0.5, ob.Imbalance(DefaultImbalanceDepth), 1e-9)

	// depth<=0 回落到默认档数
	assert.InDelta(t, 0.5, ob.Imbalance(0), 1e-9)

	balanced := mustBook(t,
		[]BookLevel{{Price: 100, Quantity: 5}},
		[]BookLevel{{Price: 101, Quantity: 5}},
	)
	assert.Zero(t, balanced.Imbalance(10))

	onlyBids := mustBook(t, []BookLevel{{Price: 100, Quantity: 10}}, nil)
	assert.InDelta(t, 1.0, onlyBids.Imbalance(10), 1e-9)

	empty := &OrderBook{Asset: "BTCUSDT"}
	assert.Zero(t, empty.Imbalance(10))
}

func TestImbalanceRespectsDepthLimit(t *testing.T) {
	bids := make([]BookLevel, 0, 12)
	for i := 0; i < 12; i++ {
		bids = append(bids, BookLevel{Price: 100 - float64(i), Quantity: 1})
	}
	ob := mustBook(t, bids, []BookLevel{{Price: 101, Quantity: 10}})
	// 前 10 档 bids 共 10，asks 共 10
	assert.Zero(t, ob.Imbalance(10))
}
