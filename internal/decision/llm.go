package decision

import (
	"context"
	"fmt"
	"strings"

	"zion/internal/gateway/provider"
	"zion/internal/logger"
	"zion/internal/market"
	"zion/internal/prompt"
	"zion/internal/risk"
)

// 中文说明：
// LLMProvider 把 Provider 契约落到一个聊天模型上：
// 渲染阶段上下文 → 调模型 → 边界处解析校验为类型化结果。

type LLMProvider struct {
	Model   provider.ModelProvider
	Prompts *prompt.Registry
}

func NewLLMProvider(model provider.ModelProvider, prompts *prompt.Registry) *LLMProvider {
	return &LLMProvider{Model: model, Prompts: prompts}
}

func (p *LLMProvider) call(ctx context.Context, role Role, user string) (string, error) {
	system := p.Prompts.SystemPrompt(string(role))
	logger.LogDecisionRequest(string(role), system, user)
	raw, err := p.Model.Call(ctx, provider.ChatPayload{
		System:     system,
		User:       user,
		ExpectJSON: true,
	})
	if err != nil {
		return "", fmt.Errorf("decision provider call failed (role=%s): %w", role, err)
	}
	logger.LogDecisionResponse(string(role), raw)
	return raw, nil
}

func (p *LLMProvider) AnalyzeMarket(ctx context.Context, snapshot *market.Snapshot) (*MarketContext, error) {
	user := fmt.Sprintf(
		"Analyze the current market conditions for %s.\n\n%s",
		snapshot.Asset, RenderSnapshot(snapshot),
	)
	raw, err := p.call(ctx, RoleOracle, user)
	if err != nil {
		return nil, err
	}
	return DecodeMarketContext(raw)
}

func (p *LLMProvider) GenerateSignal(ctx context.Context, asset string, mc *MarketContext) (*Signal, error) {
	user := fmt.Sprintf(
		"Market analysis for %s is as follows: %s\nPrediction: %s\n"+
			"Identify patterns and generate a clear, actionable trading signal (BUY, SELL, or HOLD) with a confidence score.",
		asset, mc.Summary, mc.Prediction,
	)
	raw, err := p.call(ctx, RoleNeo, user)
	if err != nil {
		return nil, err
	}
	return DecodeSignal(asset, raw)
}

func (p *LLMProvider) AssessRisk(ctx context.Context, sig *Signal, position *risk.PositionRisk, suggestedSize, equity, riskPct float64) (*RiskAssessment, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Current portfolio equity is $%.2f.\n", equity)
	fmt.Fprintf(&b, "Trading signal: %s %s (confidence %.2f). Reasoning: %s\n",
		sig.Action, sig.Asset, sig.Confidence, sig.Reasoning)
	fmt.Fprintf(&b, "Risk parameter: %.2f%% of equity per trade. Suggested position size: %.8f.\n",
		riskPct*100, suggestedSize)
	if position != nil {
		fmt.Fprintf(&b, "Current position for %s: size=%.8f entry=%.4f current=%.4f leverage=%.1fx unrealized_pnl=%.2f risk_level=%s.\n",
			position.Asset, position.Size, position.EntryPrice, position.CurrentPrice,
			position.Leverage, position.UnrealizedPnL, position.Level)
	} else {
		fmt.Fprintf(&b, "No open position for %s.\n", sig.Asset)
	}
	b.WriteString("Assess the risk and decide GO or NO_GO.")

	raw, err := p.call(ctx, RoleMorpheus, b.String())
	if err != nil {
		return nil, err
	}
	ra, derr := DecodeRiskAssessment(raw)
	if derr != nil {
		return nil, derr
	}
	ra.Equity = equity
	ra.RiskPct = riskPct
	return ra, nil
}

func (p *LLMProvider) ReportExecution(ctx context.Context, summary string) (*ExecutionReport, error) {
	raw, err := p.call(ctx, RoleTrinity, "Report on the executed trade: "+summary)
	if err != nil {
		return nil, err
	}
	return DecodeExecutionReport(raw)
}

// RenderSnapshot 把市场快照渲染为紧凑的提示词片段。
func RenderSnapshot(s *market.Snapshot) string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "asset: %s\nsampled_at: %s\n", s.Asset, s.Timestamp.UTC().Format("2006-01-02T15:04:05Z"))
	if s.Mark != nil {
		fmt.Fprintf(&b, "mark_price: %.4f", s.Mark.Price)
		if s.Mark.IndexPrice > 0 {
			fmt.Fprintf(&b, " (index %.4f, premium %.4f%%)", s.Mark.IndexPrice, s.Mark.Premium()*100)
		}
		b.WriteString("\n")
	}
	if s.Book != nil {
		if bid, ok := s.Book.BestBid(); ok {
			fmt.Fprintf(&b, "best_bid: %.4f x %.4f\n", bid.Price, bid.Quantity)
		}
		if ask, ok := s.Book.BestAsk(); ok {
			fmt.Fprintf(&b, "best_ask: %.4f x %.4f\n", ask.Price, ask.Quantity)
		}
		fmt.Fprintf(&b, "spread: %.6f\nbook_imbalance_top%d: %.4f\n",
			s.Book.Spread(), market.DefaultImbalanceDepth, s.Book.Imbalance(0))
	}
	if s.Funding != nil {
		fmt.Fprintf(&b, "funding_rate_hourly: %.6f\n", s.Funding.Rate)
	}
	if n := len(s.Trades); n > 0 {
		var buyVol, sellVol float64
		for _, t := range s.Trades {
			if t.Side == "buy" {
				buyVol += t.Quantity
			} else {
				sellVol += t.Quantity
			}
		}
		fmt.Fprintf(&b, "recent_trades: %d (buy_vol %.4f / sell_vol %.4f, last %.4f)\n",
			n, buyVol, sellVol, s.Trades[n-1].Price)
	}
	if ind := s.Indicators; ind != nil {
		fmt.Fprintf(&b, "rsi14: %.2f\nmacd: %.4f (signal %.4f, hist %.4f)\nema20/ema60: %.4f / %.4f\natr14: %.4f\n",
			ind.RSI, ind.MACD, ind.MACDSignal, ind.MACDHist, ind.EMAFast, ind.EMASlow, ind.ATR)
	}
	return b.String()
}
