package risk

import "time"

// 中文说明：
// 风险数据模型：单仓位风险与组合级风险指标。
// risk_level 只能由杠杆/回撤推导（见 Classify），不允许独立设值。

// Level 风险等级，顺序代表严重程度。
type Level int

const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
	LevelExtreme
)

func (l Level) String() string {
	switch l {
	case LevelLow:
		return "LOW"
	case LevelMedium:
		return "MEDIUM"
	case LevelHigh:
		return "HIGH"
	case LevelExtreme:
		return "EXTREME"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel 解析等级名（大小写不敏感），未知时返回 LevelMedium。
func ParseLevel(s string) Level {
	switch s {
	case "LOW", "low":
		return LevelLow
	case "MEDIUM", "medium":
		return LevelMedium
	case "HIGH", "high":
		return LevelHigh
	case "EXTREME", "extreme":
		return LevelExtreme
	default:
		return LevelMedium
	}
}

// PositionRisk 单仓位风险快照。Level 由 NewPositionRisk 推导。
type PositionRisk struct {
	Asset            string    `json:"asset"`
	Size             float64   `json:"size"`
	EntryPrice       float64   `json:"entry_price"`
	CurrentPrice     float64   `json:"current_price"`
	Leverage         float64   `json:"leverage"`
	UnrealizedPnL    float64   `json:"unrealized_pnl"`
	LiquidationPrice float64   `json:"liquidation_price,omitempty"`
	Level            Level     `json:"risk_level"`
	MaxDrawdown      float64   `json:"max_drawdown"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewPositionRisk 构造仓位风险并推导等级；proposed 为调用方建议的基础等级。
func NewPositionRisk(asset string, size, entry, current, leverage, unrealized, maxDrawdown float64, proposed Level) PositionRisk {
	if leverage < 0 {
		leverage = 0
	}
	return PositionRisk{
		Asset:         asset,
		Size:          size,
		EntryPrice:    entry,
		CurrentPrice:  current,
		Leverage:      leverage,
		UnrealizedPnL: unrealized,
		MaxDrawdown:   maxDrawdown,
		Level:         Classify(proposed, leverage, maxDrawdown),
		UpdatedAt:     time.Now().UTC(),
	}
}

// Metrics 组合级风险指标。
type Metrics struct {
	Timestamp       time.Time               `json:"timestamp"`
	TotalEquity     float64                 `json:"total_equity"`
	UsedMargin      float64                 `json:"used_margin"`
	AvailableMargin float64                 `json:"available_margin"`
	MarginRatio     float64                 `json:"margin_ratio"`
	DailyPnL        float64                 `json:"daily_pnl"`
	Positions       map[string]PositionRisk `json:"positions"`
}

// HighestLevel 所有仓位中的最高风险等级；无仓位时为 LOW。
func (m *Metrics) HighestLevel() Level {
	highest := LevelLow
	if m == nil {
		return highest
	}
	for _, pos := range m.Positions {
		if pos.Level > highest {
			highest = pos.Level
		}
	}
	return highest
}

// IsMarginSafe 保证金占用是否在安全线内（<0.8，0.8 本身视为不安全）。
func (m *Metrics) IsMarginSafe() bool {
	if m == nil {
		return true
	}
	return IsMarginSafe(m.MarginRatio)
}
