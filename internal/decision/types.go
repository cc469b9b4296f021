package decision

import (
	"fmt"
	"strings"
)

// 中文说明：
// 决策边界的类型定义。外部推理器（LLM）的自由文本输出在此处一次性
// 解析校验为四种结构化结果之一，编排器内部只见类型化的值。

// Role 决策角色，沿用系统的矩阵命名。
type Role string

const (
	RoleOracle   Role = "oracle"   // 市场分析
	RoleNeo      Role = "neo"      // 信号生成
	RoleMorpheus Role = "morpheus" // 风险评审
	RoleTrinity  Role = "trinity"  // 执行汇报
)

// Action 信号方向。
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// ParseAction 大小写不敏感解析；未知动作视为 HOLD（fail closed）。
func ParseAction(s string) Action {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return ActionBuy
	case "SELL":
		return ActionSell
	default:
		return ActionHold
	}
}

// Verdict 风控裁决。
type Verdict string

const (
	VerdictGo   Verdict = "GO"
	VerdictNoGo Verdict = "NO_GO"
)

// ParseVerdict 兼容 "GO"/"NO-GO"/"NO_GO"；未知裁决一律视为 NO_GO。
func ParseVerdict(s string) Verdict {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GO":
		return VerdictGo
	default:
		return VerdictNoGo
	}
}

// MarketContext 市场分析阶段输出。
type MarketContext struct {
	Prediction string  `json:"prediction"`
	Summary    string  `json:"summary"`
	Confidence float64 `json:"confidence"`
}

// Signal 信号阶段输出。HasConfidence 标记 confidence 字段是否存在且可解析，
// 缺失时编排器直接转 HELD。
type Signal struct {
	Asset         string  `json:"asset"`
	Action        Action  `json:"signal"`
	Confidence    float64 `json:"confidence"`
	HasConfidence bool    `json:"-"`
	Reasoning     string  `json:"reasoning"`
	Timeframe     string  `json:"timeframe,omitempty"`
}

// RiskAssessment 风控阶段输出。GO 必须伴随 PositionSize > 0，
// 解码时不满足则降级为 NO_GO。
type RiskAssessment struct {
	Assessment   string  `json:"risk_assessment"`
	PositionSize float64 `json:"position_size"`
	Decision     Verdict `json:"decision"`
	Equity       float64 `json:"equity,omitempty"`
	RiskPct      float64 `json:"risk_pct,omitempty"`
}

// ExecutionReport 执行汇报阶段输出。
type ExecutionReport struct {
	Status  string `json:"status"`
	OrderID string `json:"order_id"`
	Details string `json:"details"`
}

// SchemaError 表示提供方输出不符合预期 schema。
// 属于可恢复的阶段失败：SIGNAL/RISK_GATE 遇到它转 HELD，绝不默认 GO。
type SchemaError struct {
	Role   Role
	Reason string
	Raw    string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("decision schema error (role=%s): %s", e.Role, e.Reason)
}

func newSchemaError(role Role, raw, format string, v ...any) *SchemaError {
	return &SchemaError{Role: role, Reason: fmt.Sprintf(format, v...), Raw: raw}
}
