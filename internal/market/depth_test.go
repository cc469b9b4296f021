package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepthFromBook(t *testing.T) {
	ob := mustBook(t,
		[]BookLevel{{Price: 100, Quantity: 2}, {Price: 99, Quantity: 3}},
		[]BookLevel{{Price: 101, Quantity: 1}, {Price: 102, Quantity: 4}},
	)
	d := DepthFromBook(ob)
	require.NotNil(t, d)
	require.Len(t, d.BidDepth, 2)
	assert.Equal(t, 2.0, d.BidDepth[0].CumVolume)
	assert.Equal(t, 5.0, d.BidDepth[1].CumVolume)
	assert.Equal(t, 1.0, d.AskDepth[0].CumVolume)
	assert.Equal(t, 5.0, d.AskDepth[1].CumVolume)

	assert.Nil(t, DepthFromBook(nil))
}

func TestImpactPrice(t *testing.T) {
	ob := mustBook(t,
		[]BookLevel{{Price: 100, Quantity: 2}, {Price: 99, Quantity: 3}},
		[]BookLevel{{Price: 101, Quantity: 1}, {Price: 102, Quantity: 4}},
	)
	d := DepthFromBook(ob)

	// 买入 1 → 第一档就够
	assert.Equal(t, 101.0, d.ImpactPrice(1, TradeSideBuy))
	// 买入 3 → 吃到第二档
	assert.Equal(t, 102.0, d.ImpactPrice(3, TradeSideBuy))
	// 卖出 4 → 吃到第二档 bids
	assert.Equal(t, 99.0, d.ImpactPrice(4, TradeSideSell))
	// 超过全部流动性 → 最差档
	assert.Equal(t, 102.0, d.ImpactPrice(100, TradeSideBuy))
	// 非法 size
	assert.Zero(t, d.ImpactPrice(0, TradeSideBuy))
}

func TestFundingRateBound(t *testing.T) {
	now := time.Now().UTC()
	fr, err := NewFundingRate("BTCUSDT", now, 0.0001, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0001, fr.Rate)

	_, err = NewFundingRate("BTCUSDT", now, 0.02, 0)
	assert.Error(t, err)
	_, err = NewFundingRate("BTCUSDT", now, -0.011, 0)
	assert.Error(t, err)
	_, err = NewFundingRate("BTCUSDT", now, 0.0001, 0.02)
	assert.Error(t, err)
}

func TestSnapshotPricePreference(t *testing.T) {
	now := time.Now().UTC()
	snap, err := NewSnapshot("BTCUSDT", now)
	require.NoError(t, err)
	assert.Zero(t, snap.Price())

	trade, err := NewTrade("BTCUSDT", now, 99.5, 1, TradeSideBuy)
	require.NoError(t, err)
	snap.Trades = []Trade{trade}
	assert.Equal(t, 99.5, snap.Price())

	snap.Book = mustBook(t,
		[]BookLevel{{Price: 100, Quantity: 1}},
		[]BookLevel{{Price: 101, Quantity: 1}},
	)
	assert.InDelta(t, 100.5, snap.Price(), 1e-9)

	snap.Mark = &MarkPrice{Asset: "BTCUSDT", Timestamp: now, Price: 100.2}
	assert.Equal(t, 100.2, snap.Price())
}
