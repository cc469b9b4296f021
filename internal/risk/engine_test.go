package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionSize(t *testing.T) {
	// 10000 * 0.1 / 50000 = 0.02
	assert.InDelta(t, 0.02, PositionSize("BTCUSDT", 50000, 10000, 0.1), 1e-9)

	// 非法输入一律返回 0，不 panic
	assert.Zero(t, PositionSize("BTCUSDT", 0, 10000, 0.1))
	assert.Zero(t, PositionSize("BTCUSDT", -1, 10000, 0.1))
	assert.Zero(t, PositionSize("BTCUSDT", 50000, 0, 0.1))
	assert.Zero(t, PositionSize("BTCUSDT", 50000, -5, 0.1))
	assert.Zero(t, PositionSize("BTCUSDT", 50000, 10000, 0))
	assert.Zero(t, PositionSize("BTCUSDT", 50000, 10000, 1.5))
}

func TestClassify(t *testing.T) {
	// 杠杆/回撤触发硬性升级
	assert.Equal(t, LevelExtreme, Classify(LevelLow, 6, 0))
	assert.Equal(t, LevelExtreme, Classify(LevelLow, 0, 0.11))
	assert.Equal(t, LevelHigh, Classify(LevelLow, 4, 0))
	assert.Equal(t, LevelHigh, Classify(LevelLow, 0, 0.06))

	// 阈值本身不触发更高级
	assert.Equal(t, LevelHigh, Classify(LevelLow, 5, 0.10))
	assert.Equal(t, LevelLow, Classify(LevelLow, 3, 0.05))

	// 单调：建议等级高于推导等级时保留建议值
	assert.Equal(t, LevelExtreme, Classify(LevelExtreme, 1, 0))
	assert.Equal(t, LevelHigh, Classify(LevelHigh, 4, 0))
	assert.Equal(t, LevelMedium, Classify(LevelMedium, 1, 0.01))
}

func TestMarginRatio(t *testing.T) {
	assert.InDelta(t, 0.5, MarginRatio(5000, 10000), 1e-9)
	assert.Zero(t, MarginRatio(0, 0))
	assert.Equal(t, 1.0, MarginRatio(100, 0))
	assert.Equal(t, 1.0, MarginRatio(100, -5))
	assert.Zero(t, MarginRatio(-10, 10000))
}

func TestIsMarginSafe(t *testing.T) {
	assert.True(t, IsMarginSafe(0.79))
	assert.False(t, IsMarginSafe(0.8)) // 阈值本身不安全
	assert.False(t, IsMarginSafe(0.95))
	assert.True(t, IsMarginSafe(0))
}

func TestMetricsHighestLevel(t *testing.T) {
	var m *Metrics
	assert.Equal(t, LevelLow, m.HighestLevel())

	empty := &Metrics{}
	assert.Equal(t, LevelLow, empty.HighestLevel())

	withPos := &Metrics{Positions: map[string]PositionRisk{
		"BTCUSDT": NewPositionRisk("BTCUSDT", 1, 100, 100, 2, 0, 0, LevelLow),
		"ETHUSDT": NewPositionRisk("ETHUSDT", 1, 100, 100, 6, 0, 0, LevelLow),
	}}
	assert.Equal(t, LevelExtreme, withPos.HighestLevel())
}

func TestNewPositionRiskDerivesLevel(t *testing.T) {
	pos := NewPositionRisk("BTCUSDT", 1, 100, 95, 4, -5, 0.05, LevelLow)
	assert.Equal(t, LevelHigh, pos.Level)

	clamped := NewPositionRisk("BTCUSDT", 1, 100, 100, -3, 0, 0, LevelLow)
	assert.Zero(t, clamped.Leverage)
}
