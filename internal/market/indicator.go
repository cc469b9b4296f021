package market

import (
	"fmt"
	"math"

	talib "github.com/markcheno/go-talib"
)

// 中文说明：
// 对最近 K 线计算一组常用指标，作为市场分析阶段的结构化输入。

// IndicatorSummary 指标摘要（取各序列最新值）。
type IndicatorSummary struct {
	RSI        float64 `json:"rsi"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	MACDHist   float64 `json:"macd_hist"`
	EMAFast    float64 `json:"ema_fast"`
	EMASlow    float64 `json:"ema_slow"`
	ATR        float64 `json:"atr"`
	Samples    int     `json:"samples"`
}

const (
	rsiPeriod     = 14
	emaFastPeriod = 20
	emaSlowPeriod = 60
	atrPeriod     = 14
	minSamples    = 70 // 慢线周期 + 预热余量
)

// ComputeIndicators 基于收盘序列计算指标摘要。样本不足时返回错误。
func ComputeIndicators(candles []Candle) (*IndicatorSummary, error) {
	if len(candles) < minSamples {
		return nil, fmt.Errorf("indicator: need at least %d candles, got %d", minSamples, len(candles))
	}
	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}
	macd, signal, hist := talib.Macd(closes, 12, 26, 9)
	summary := &IndicatorSummary{
		RSI:        lastFinite(talib.Rsi(closes, rsiPeriod)),
		MACD:       lastFinite(macd),
		MACDSignal: lastFinite(signal),
		MACDHist:   lastFinite(hist),
		EMAFast:    lastFinite(talib.Ema(closes, emaFastPeriod)),
		EMASlow:    lastFinite(talib.Ema(closes, emaSlowPeriod)),
		ATR:        lastFinite(talib.Atr(highs, lows, closes, atrPeriod)),
		Samples:    len(candles),
	}
	return summary, nil
}

func lastFinite(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		v := series[i]
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v
		}
	}
	return 0
}
