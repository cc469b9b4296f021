package store

import (
	"context"

	"zion/internal/store/model"
)

// Journal 审计日志存储：每个交易周期落一条记录，订单单独成表。
// Write-heavy，读取只服务状态接口的回看。
type Journal interface {
	SaveCycle(ctx context.Context, rec *model.CycleRecord) error
	SaveOrder(ctx context.Context, rec *model.OrderRecord) error

	RecentCycles(ctx context.Context, limit int) ([]model.CycleRecord, error)
	CycleByID(ctx context.Context, cycleID string) (*model.CycleRecord, error)
	OrdersByCycle(ctx context.Context, cycleID string) ([]model.OrderRecord, error)

	Close() error
}
