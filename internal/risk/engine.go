package risk

import (
	"zion/internal/logger"
)

// 中文说明：
// 纯函数风控引擎：所有输入显式传入，无隐藏状态。
// 前置条件不满足时返回零值并记录告警，绝不向调用方抛错中断周期。

// MarginSafetyThreshold 保证金占用安全线：used/total < 0.8 视为安全。
const MarginSafetyThreshold = 0.8

// 分级阈值：杠杆或最大回撤任一越线即升级。
const (
	extremeLeverage = 5.0
	extremeDrawdown = 0.10
	highLeverage    = 3.0
	highDrawdown    = 0.05
)

// PositionSize 计算建议仓位：equity * riskPct / price。
// 任一输入非正时返回 0。
func PositionSize(asset string, price, totalEquity, riskPct float64) float64 {
	if price <= 0 || totalEquity <= 0 || riskPct <= 0 {
		logger.Warnf("risk: invalid position size inputs asset=%s price=%.8f equity=%.2f risk_pct=%.4f",
			asset, price, totalEquity, riskPct)
		return 0
	}
	return totalEquity * riskPct / price
}

// Classify 按杠杆与最大回撤推导风险等级。
// 单调：杠杆或回撤增大只会升级，不会降级低于 proposed。
func Classify(proposed Level, leverage, maxDrawdown float64) Level {
	switch {
	case leverage > extremeLeverage || maxDrawdown > extremeDrawdown:
		return LevelExtreme
	case leverage > highLeverage || maxDrawdown > highDrawdown:
		if proposed > LevelHigh {
			return proposed
		}
		return LevelHigh
	default:
		return proposed
	}
}

// MarginRatio used/total；equity 非正时返回 1（视为完全占用）。
func MarginRatio(usedMargin, totalEquity float64) float64 {
	if totalEquity <= 0 {
		if usedMargin <= 0 {
			return 0
		}
		logger.Warnf("risk: margin ratio with non-positive equity used=%.2f equity=%.2f", usedMargin, totalEquity)
		return 1
	}
	if usedMargin < 0 {
		usedMargin = 0
	}
	return usedMargin / totalEquity
}

// IsMarginSafe ratio < 0.8 为安全；0.8 本身不安全。
func IsMarginSafe(ratio float64) bool {
	return ratio < MarginSafetyThreshold
}
