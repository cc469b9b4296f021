package engine

import (
	"context"
	"encoding/json"

	"zion/internal/gateway/notifier"
	"zion/internal/logger"
	"zion/internal/store/model"

	"gorm.io/datatypes"
)

// persist 落审计记录。存储失败不影响周期结果，只告警。
func (e *CycleEngine) persist(ctx context.Context, result *CycleResult) {
	if e.journal == nil {
		return
	}
	rec := &model.CycleRecord{
		CycleID:        result.CycleID,
		Asset:          result.Asset,
		State:          string(result.Outcome),
		Reason:         result.Reason,
		Equity:         result.Equity,
		ContextJSON:    toJSON(result.Context),
		SignalJSON:     toJSON(result.Signal),
		AssessmentJSON: toJSON(result.Assessment),
		ReportJSON:     toJSON(result.Report),
		DurationMs:     result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		StartedAtUnix:  result.StartedAt.Unix(),
		FinishedAtUnix: result.FinishedAt.Unix(),
	}
	if result.Signal != nil {
		rec.Action = string(result.Signal.Action)
	}
	if result.Assessment != nil {
		rec.Verdict = string(result.Assessment.Decision)
	}
	if err := e.journal.SaveCycle(ctx, rec); err != nil {
		logger.Warnf("engine: persist cycle %s: %v", result.CycleID, err)
	}

	if result.Order == nil {
		return
	}
	order := result.Order
	orec := &model.OrderRecord{
		CycleID:      result.CycleID,
		OrderID:      order.OrderID,
		Asset:        order.Request.Asset,
		Side:         string(order.Request.Side),
		Type:         string(order.Request.Type),
		Quantity:     order.Request.Quantity,
		Price:        order.Request.Price,
		StopPrice:    order.Request.StopPrice,
		Status:       string(order.Status),
		FilledQty:    order.FilledQuantity,
		AvgFillPrice: order.AverageFillPrice,
		Fees:         order.Fees,
		ErrorMessage: order.ErrorMessage,
		QualityJSON:  toJSON(order.Quality),
	}
	if err := e.journal.SaveOrder(ctx, orec); err != nil {
		logger.Warnf("engine: persist order %s: %v", order.OrderID, err)
	}
}

// announce 推送周期结果。HELD 不打扰，只推有动作或异常的轮次。
func (e *CycleEngine) announce(result *CycleResult) {
	if result.Outcome == OutcomeHeld {
		return
	}
	msg := notifier.CycleMessage{
		Asset:     result.Asset,
		State:     string(result.Outcome),
		Reason:    result.Reason,
		Timestamp: result.FinishedAt,
	}
	if result.Signal != nil {
		msg.Action = string(result.Signal.Action)
	}
	if result.Order != nil {
		msg.Size = result.Order.FilledQuantity
		msg.Price = result.Order.AverageFillPrice
	}
	text := msg.RenderMarkdown()
	go func() {
		if err := e.notify.SendText(text); err != nil {
			logger.Warnf("engine: notify cycle %s: %v", result.CycleID, err)
		}
	}()
}

func toJSON(v any) datatypes.JSON {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
