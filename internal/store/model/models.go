package model

import (
	"gorm.io/datatypes"
)

// CycleRecord 单个决策周期的审计记录。JSON 列保存各阶段原始产物，
// 便于事后回放一整轮决策。
type CycleRecord struct {
	ID             int64          `gorm:"column:id;primaryKey"`
	CycleID        string         `gorm:"column:cycle_id;uniqueIndex"`
	Asset          string         `gorm:"column:asset;index"`
	State          string         `gorm:"column:state"`
	Action         string         `gorm:"column:action"`
	Verdict        string         `gorm:"column:verdict"`
	Reason         string         `gorm:"column:reason"`
	Equity         float64        `gorm:"column:equity"`
	ContextJSON    datatypes.JSON `gorm:"column:context_json;type:TEXT"`
	SignalJSON     datatypes.JSON `gorm:"column:signal_json;type:TEXT"`
	AssessmentJSON datatypes.JSON `gorm:"column:assessment_json;type:TEXT"`
	ReportJSON     datatypes.JSON `gorm:"column:report_json;type:TEXT"`
	DurationMs     int64          `gorm:"column:duration_ms"`
	StartedAtUnix  int64          `gorm:"column:started_at"`
	FinishedAtUnix int64          `gorm:"column:finished_at"`
	CreatedAtUnix  int64          `gorm:"column:created_at;autoCreateTime"`
}

func (CycleRecord) TableName() string { return "cycles" }

// OrderRecord 单笔订单的审计记录。
type OrderRecord struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	CycleID       string         `gorm:"column:cycle_id;index"`
	OrderID       string         `gorm:"column:order_id;uniqueIndex"`
	Asset         string         `gorm:"column:asset"`
	Side          string         `gorm:"column:side"`
	Type          string         `gorm:"column:type"`
	Quantity      float64        `gorm:"column:quantity"`
	Price         float64        `gorm:"column:price"`
	StopPrice     float64        `gorm:"column:stop_price"`
	Status        string         `gorm:"column:status"`
	FilledQty     float64        `gorm:"column:filled_qty"`
	AvgFillPrice  float64        `gorm:"column:avg_fill_price"`
	Fees          float64        `gorm:"column:fees"`
	ErrorMessage  string         `gorm:"column:error_message"`
	QualityJSON   datatypes.JSON `gorm:"column:quality_json;type:TEXT"`
	CreatedAtUnix int64          `gorm:"column:created_at;autoCreateTime"`
}

func (OrderRecord) TableName() string { return "orders" }
