package decision

import (
	"context"

	"zion/internal/market"
	"zion/internal/risk"
)

// Provider 是编排器消费的外部推理边界。
// 每个方法对应流水线的一个阶段，返回已通过 schema 校验的类型化结果；
// 输出不合法时返回 *SchemaError，调用方按可恢复失败处理。
type Provider interface {
	// AnalyzeMarket 基于市场快照产出预测与摘要。
	AnalyzeMarket(ctx context.Context, snapshot *market.Snapshot) (*MarketContext, error)

	// GenerateSignal 基于市场分析产出方向信号。
	GenerateSignal(ctx context.Context, asset string, mc *MarketContext) (*Signal, error)

	// AssessRisk 对信号做 go/no-go 裁决。suggestedSize 来自风控引擎，
	// equity/riskPct 为用于审计的输入参数。
	AssessRisk(ctx context.Context, sig *Signal, position *risk.PositionRisk, suggestedSize, equity, riskPct float64) (*RiskAssessment, error)

	// ReportExecution 对订单结果做执行汇报（尽力而为，失败不影响周期结果）。
	ReportExecution(ctx context.Context, summary string) (*ExecutionReport, error)
}
