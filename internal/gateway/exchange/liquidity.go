package exchange

import "sort"

// 中文说明：
// 流动性分析：size→预期价格冲击 的映射，用于在冲击上限内选最大可执行量。

// ImpactPoint 一个 size 档位及其预期冲击（基点）。
type ImpactPoint struct {
	Size      float64 `json:"size"`
	ImpactBps float64 `json:"impact_bps"`
}

// Liquidity 某资产当前的可执行流动性画像。
type Liquidity struct {
	Asset        string        `json:"asset"`
	BidLiquidity float64       `json:"bid_liquidity"`
	AskLiquidity float64       `json:"ask_liquidity"`
	Spread       float64       `json:"spread"`
	DepthImpact  []ImpactPoint `json:"depth_impact"` // size 升序
}

// OptimalSize 返回冲击不超过 maxImpactBps 的最大档位。
// 所有档位都在上限内时返回对应方向的全部可用流动性；无档位数据时返回 0。
func (l *Liquidity) OptimalSize(side OrderSide, maxImpactBps float64) float64 {
	if l == nil || len(l.DepthImpact) == 0 {
		return 0
	}
	points := make([]ImpactPoint, len(l.DepthImpact))
	copy(points, l.DepthImpact)
	sort.Slice(points, func(i, j int) bool { return points[i].Size < points[j].Size })

	best := 0.0
	for _, p := range points {
		if p.ImpactBps > maxImpactBps {
			return best
		}
		best = p.Size
	}
	if side == OrderSideBuy {
		return l.AskLiquidity
	}
	return l.BidLiquidity
}
