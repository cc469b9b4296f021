package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"zion/internal/decision"
	"zion/internal/gateway/exchange"
	"zion/internal/gateway/notifier"
	"zion/internal/logger"
	"zion/internal/market"
	"zion/internal/pkg/circuit"
	"zion/internal/risk"
	"zion/internal/store"

	"github.com/google/uuid"
)

// 中文说明：
// 周期引擎：感知 → 信号 → 风控闸门 → 执行 的单轮状态机。
// 同一时刻最多一轮在跑；重叠触发直接丢弃。取消只在阶段边界生效，
// 已提交的订单绝不回滚。

// Stage 周期内的阶段。
type Stage string

const (
	StageAnalyze  Stage = "ANALYZE"
	StageSignal   Stage = "SIGNAL"
	StageRiskGate Stage = "RISK_GATE"
	StageExecute  Stage = "EXECUTE"
)

// Outcome 周期终态。
type Outcome string

const (
	OutcomeFilledOrOpen Outcome = "FILLED_OR_OPEN"
	OutcomeRejected     Outcome = "REJECTED"
	OutcomeHeld         Outcome = "HELD"
	OutcomeError        Outcome = "ERROR"
)

// CycleResult 单轮运行的完整产物。
type CycleResult struct {
	CycleID    string                   `json:"cycle_id"`
	Asset      string                   `json:"asset"`
	Outcome    Outcome                  `json:"outcome"`
	Stage      Stage                    `json:"stage"`
	Reason     string                   `json:"reason,omitempty"`
	Equity     float64                  `json:"equity"`
	Context    *decision.MarketContext  `json:"context,omitempty"`
	Signal     *decision.Signal         `json:"signal,omitempty"`
	Assessment *decision.RiskAssessment `json:"assessment,omitempty"`
	Order      *exchange.OrderResult    `json:"order,omitempty"`
	Report     *decision.ExecutionReport `json:"report,omitempty"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
}

type Config struct {
	Asset           string
	RiskPct         float64
	MaxLeverage     float64
	StopLossPct     float64
	TakeProfitPct   float64
	MaxPositionSize float64
	FallbackEquity  float64
}

// CycleEngine 把各网关协调成一条决策流水线。
type CycleEngine struct {
	cfg      Config
	exch     exchange.Service
	provider decision.Provider
	journal  store.Journal
	notify   notifier.TextNotifier
	breaker  *circuit.Breaker

	// OnFatal 在网关返回不可恢复错误时调用，用于触发进程关停。
	OnFatal func(error)

	running atomic.Bool

	mu   sync.Mutex
	last *CycleResult
}

func NewCycleEngine(cfg Config, exch exchange.Service, provider decision.Provider, journal store.Journal, notify notifier.TextNotifier) (*CycleEngine, error) {
	if exch == nil {
		return nil, fmt.Errorf("engine: exchange service is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("engine: decision provider is required")
	}
	if cfg.Asset == "" {
		return nil, fmt.Errorf("engine: asset is required")
	}
	if cfg.FallbackEquity <= 0 {
		return nil, fmt.Errorf("engine: fallback equity must be > 0")
	}
	if notify == nil {
		notify = notifier.Nop{}
	}
	return &CycleEngine{
		cfg:      cfg,
		exch:     exch,
		provider: provider,
		journal:  journal,
		notify:   notify,
		breaker:  circuit.NewBreaker("decision-model", 3, 2*time.Minute),
	}, nil
}

// LastResult 最近一轮的结果，供状态接口读取。
func (e *CycleEngine) LastResult() *CycleResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last == nil {
		return nil
	}
	cp := *e.last
	return &cp
}

// Running 当前是否有周期在跑。
func (e *CycleEngine) Running() bool {
	return e.running.Load()
}

// RunCycle 跑一轮完整周期。已有周期在跑时丢弃本次触发并返回 nil。
func (e *CycleEngine) RunCycle(ctx context.Context) *CycleResult {
	if !e.running.CompareAndSwap(false, true) {
		logger.Warnf("engine: cycle already in progress, drop trigger")
		return nil
	}
	defer e.running.Store(false)

	result := &CycleResult{
		CycleID:   uuid.NewString(),
		Asset:     e.cfg.Asset,
		Stage:     StageAnalyze,
		StartedAt: time.Now().UTC(),
	}
	logger.Infof("engine: cycle %s start asset=%s", result.CycleID, result.Asset)

	e.run(ctx, result)

	result.FinishedAt = time.Now().UTC()
	logger.Infof("engine: cycle %s done outcome=%s stage=%s reason=%q elapsed=%s",
		result.CycleID, result.Outcome, result.Stage, result.Reason,
		result.FinishedAt.Sub(result.StartedAt).Truncate(time.Millisecond))

	// 审计落库不吃周期取消，被取消的轮次同样要留痕
	e.persist(context.WithoutCancel(ctx), result)
	e.announce(result)

	e.mu.Lock()
	e.last = result
	e.mu.Unlock()
	return result
}

func (e *CycleEngine) run(ctx context.Context, result *CycleResult) {
	// ---- ANALYZE ----
	if cancelled(ctx, result) {
		return
	}
	snapshot, err := e.exch.GetSnapshot(ctx, e.cfg.Asset)
	if err != nil {
		e.fail(result, err, "market snapshot failed")
		return
	}
	mc, err := e.callAnalyze(ctx, snapshot)
	if err != nil {
		// ANALYZE 阶段任何失败（含 schema 不合规）都算 ERROR，
		// fail-closed 的 HELD 从 SIGNAL 阶段才开始
		if errors.Is(err, errBreakerOpen) {
			e.hold(result, "market analysis skipped: "+errBreakerOpen.Error())
		} else {
			e.fail(result, err, "market analysis failed")
		}
		return
	}
	result.Context = mc

	// ---- SIGNAL ----
	result.Stage = StageSignal
	if cancelled(ctx, result) {
		return
	}
	sig, err := e.callSignal(ctx, mc)
	if err != nil {
		e.holdOrFail(result, err, "signal generation")
		return
	}
	result.Signal = sig
	if sig.Action == decision.ActionHold {
		e.hold(result, "signal action is HOLD")
		return
	}
	if !sig.HasConfidence {
		e.hold(result, "signal confidence missing")
		return
	}

	// ---- RISK_GATE ----
	result.Stage = StageRiskGate
	if cancelled(ctx, result) {
		return
	}
	equity, metrics := e.resolveEquity(ctx)
	result.Equity = equity
	if metrics != nil && !metrics.IsMarginSafe() {
		e.hold(result, fmt.Sprintf("margin ratio %.2f not safe", metrics.MarginRatio))
		return
	}
	position, err := e.exch.GetPosition(ctx, e.cfg.Asset)
	if err != nil {
		e.fail(result, err, "position lookup failed")
		return
	}
	price := snapshot.Price()
	suggested := risk.PositionSize(e.cfg.Asset, price, equity, e.cfg.RiskPct)
	assessment, err := e.callAssess(ctx, sig, position, suggested, equity)
	if err != nil {
		e.holdOrFail(result, err, "risk assessment")
		return
	}
	result.Assessment = assessment
	if assessment.Decision != decision.VerdictGo {
		e.hold(result, "risk gate verdict NO_GO: "+assessment.Assessment)
		return
	}
	size := assessment.PositionSize
	if e.cfg.MaxPositionSize > 0 && size > e.cfg.MaxPositionSize {
		logger.Warnf("engine: clamp position size %.6f -> %.6f", size, e.cfg.MaxPositionSize)
		size = e.cfg.MaxPositionSize
	}
	if size <= 0 {
		e.hold(result, "risk gate produced non-positive size")
		return
	}

	// ---- EXECUTE ----
	result.Stage = StageExecute
	if cancelled(ctx, result) {
		return
	}
	order, err := e.execute(ctx, sig, size, price)
	if err != nil {
		e.fail(result, err, "order execution failed")
		return
	}
	result.Order = order
	if order.Status == exchange.OrderStatusRejected {
		result.Outcome = OutcomeRejected
		result.Reason = order.ErrorMessage
	} else {
		result.Outcome = OutcomeFilledOrOpen
		e.placeProtection(ctx, sig, order)
	}

	// 执行汇报尽力而为，失败只记日志
	summary := fmt.Sprintf("order %s status=%s filled=%.6f avg=%.2f",
		order.OrderID, order.Status, order.FilledQuantity, order.AverageFillPrice)
	if report, rerr := e.provider.ReportExecution(ctx, summary); rerr != nil {
		logger.Warnf("engine: execution report failed: %v", rerr)
	} else {
		result.Report = report
	}
}

func (e *CycleEngine) execute(ctx context.Context, sig *decision.Signal, size, price float64) (*exchange.OrderResult, error) {
	side := exchange.OrderSideBuy
	if sig.Action == decision.ActionSell {
		side = exchange.OrderSideSell
	}
	opts := []exchange.OrderOption{}
	if e.cfg.MaxLeverage > 0 {
		opts = append(opts, exchange.WithLeverage(e.cfg.MaxLeverage))
	}
	req, err := exchange.NewOrderRequest(e.cfg.Asset, side, exchange.OrderTypeMarket, size, opts...)
	if err != nil {
		return nil, fmt.Errorf("engine: build order: %w", err)
	}
	// 提交一旦发起就必须跑完，取消只在阶段边界生效
	return e.exch.SubmitOrder(context.WithoutCancel(ctx), req)
}

// placeProtection 成交后挂保护单：reduce-only 的止损与止盈。
func (e *CycleEngine) placeProtection(ctx context.Context, sig *decision.Signal, order *exchange.OrderResult) {
	if e.cfg.StopLossPct <= 0 && e.cfg.TakeProfitPct <= 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	entry := order.AverageFillPrice
	qty := order.FilledQuantity
	if entry <= 0 || qty <= 0 {
		return
	}
	exitSide := exchange.OrderSideSell
	dir := 1.0
	if sig.Action == decision.ActionSell {
		exitSide = exchange.OrderSideBuy
		dir = -1.0
	}
	if e.cfg.StopLossPct > 0 {
		stop := entry * (1 - dir*e.cfg.StopLossPct)
		req, err := exchange.NewOrderRequest(e.cfg.Asset, exitSide, exchange.OrderTypeStopMarket, qty,
			exchange.WithStopPrice(roundPrice(stop)), exchange.WithReduceOnly())
		if err != nil {
			logger.Warnf("engine: build stop-loss: %v", err)
		} else if _, err := e.exch.SubmitOrder(ctx, req); err != nil {
			logger.Warnf("engine: place stop-loss: %v", err)
		}
	}
	if e.cfg.TakeProfitPct > 0 {
		target := entry * (1 + dir*e.cfg.TakeProfitPct)
		req, err := exchange.NewOrderRequest(e.cfg.Asset, exitSide, exchange.OrderTypeTakeProfit, qty,
			exchange.WithStopPrice(roundPrice(target)), exchange.WithReduceOnly())
		if err != nil {
			logger.Warnf("engine: build take-profit: %v", err)
		} else if _, err := e.exch.SubmitOrder(ctx, req); err != nil {
			logger.Warnf("engine: place take-profit: %v", err)
		}
	}
}

// resolveEquity 从账户指标取净值；不可得时退回配置的 fallback。
func (e *CycleEngine) resolveEquity(ctx context.Context) (float64, *risk.Metrics) {
	metrics, err := e.exch.GetMetrics(ctx)
	if err != nil || metrics == nil || metrics.TotalEquity <= 0 {
		if err != nil {
			logger.Warnf("engine: account metrics unavailable, fallback equity %.2f: %v", e.cfg.FallbackEquity, err)
		} else {
			logger.Warnf("engine: account equity non-positive, fallback equity %.2f", e.cfg.FallbackEquity)
		}
		return e.cfg.FallbackEquity, nil
	}
	return metrics.TotalEquity, metrics
}

func (e *CycleEngine) callAnalyze(ctx context.Context, snapshot *market.Snapshot) (*decision.MarketContext, error) {
	if !e.breaker.Allow() {
		return nil, errBreakerOpen
	}
	mc, err := e.provider.AnalyzeMarket(ctx, snapshot)
	e.trackModelErr(err)
	return mc, err
}

func (e *CycleEngine) callSignal(ctx context.Context, mc *decision.MarketContext) (*decision.Signal, error) {
	if !e.breaker.Allow() {
		return nil, errBreakerOpen
	}
	sig, err := e.provider.GenerateSignal(ctx, e.cfg.Asset, mc)
	e.trackModelErr(err)
	return sig, err
}

func (e *CycleEngine) callAssess(ctx context.Context, sig *decision.Signal, position *risk.PositionRisk, suggested, equity float64) (*decision.RiskAssessment, error) {
	if !e.breaker.Allow() {
		return nil, errBreakerOpen
	}
	assessment, err := e.provider.AssessRisk(ctx, sig, position, suggested, equity, e.cfg.RiskPct)
	e.trackModelErr(err)
	return assessment, err
}

var errBreakerOpen = errors.New("decision model circuit open")

// trackModelErr schema 错误算模型正常响应，不计入熔断。
func (e *CycleEngine) trackModelErr(err error) {
	var schemaErr *decision.SchemaError
	if err == nil || errors.As(err, &schemaErr) {
		e.breaker.RecordSuccess()
		return
	}
	e.breaker.RecordFailure()
}

// holdOrFail 用于 SIGNAL/RISK_GATE：schema 失败与熔断降级为 HELD（fail closed），
// 其余算 ERROR。
func (e *CycleEngine) holdOrFail(result *CycleResult, err error, what string) {
	var schemaErr *decision.SchemaError
	if errors.As(err, &schemaErr) {
		e.hold(result, fmt.Sprintf("%s schema invalid: %s", what, schemaErr.Reason))
		return
	}
	if errors.Is(err, errBreakerOpen) {
		e.hold(result, what+" skipped: "+errBreakerOpen.Error())
		return
	}
	e.fail(result, err, what+" failed")
}

func (e *CycleEngine) hold(result *CycleResult, reason string) {
	result.Outcome = OutcomeHeld
	result.Reason = reason
	logger.Infof("engine: cycle %s held at %s: %s", result.CycleID, result.Stage, reason)
}

func (e *CycleEngine) fail(result *CycleResult, err error, what string) {
	result.Outcome = OutcomeError
	result.Reason = fmt.Sprintf("%s: %v", what, err)
	logger.Errorf("engine: cycle %s error at %s: %s: %v", result.CycleID, result.Stage, what, err)
	if errors.Is(err, exchange.ErrFatal) && e.OnFatal != nil {
		e.OnFatal(err)
	}
}

func cancelled(ctx context.Context, result *CycleResult) bool {
	if err := ctx.Err(); err != nil {
		result.Outcome = OutcomeError
		result.Reason = "cycle cancelled at stage boundary: " + err.Error()
		return true
	}
	return false
}

func roundPrice(p float64) float64 {
	return math.Round(p*100) / 100
}
