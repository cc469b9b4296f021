package config

import (
	"fmt"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Trading.validate(); err != nil {
		return err
	}
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Model.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	if err := c.Execution.validate(); err != nil {
		return err
	}
	return nil
}

func (t *TradingConfig) validate() error {
	if strings.TrimSpace(t.Asset) == "" {
		return fmt.Errorf("trading.asset is required")
	}
	if t.RiskPct <= 0 || t.RiskPct > 1 {
		return fmt.Errorf("trading.risk_pct must be in (0,1], got %.4f", t.RiskPct)
	}
	if t.MaxLeverage < 1 {
		return fmt.Errorf("trading.max_leverage must be >= 1, got %.2f", t.MaxLeverage)
	}
	if t.CycleIntervalSeconds < 5 {
		return fmt.Errorf("trading.cycle_interval_seconds must be >= 5, got %d", t.CycleIntervalSeconds)
	}
	if t.FallbackEquity <= 0 {
		return fmt.Errorf("trading.fallback_equity must be > 0, got %.2f", t.FallbackEquity)
	}
	return nil
}

func (m *MarketConfig) validate() error {
	if strings.TrimSpace(m.RESTBaseURL) == "" {
		return fmt.Errorf("market.rest_base_url is required")
	}
	if m.Proxy.Enabled && strings.TrimSpace(m.Proxy.RESTURL) == "" {
		return fmt.Errorf("market.proxy enabled but no rest_url configured")
	}
	return nil
}

func (m *ModelConfig) validate() error {
	if strings.TrimSpace(m.Model) == "" {
		return fmt.Errorf("model.model is required")
	}
	if strings.TrimSpace(m.APIURL) == "" {
		return fmt.Errorf("model.api_url is required")
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	tg := n.Telegram
	if tg.Enabled && (strings.TrimSpace(tg.BotToken) == "" || strings.TrimSpace(tg.ChatID) == "") {
		return fmt.Errorf("notify.telegram enabled but bot_token/chat_id missing")
	}
	return nil
}

func (e *ExecutionConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(e.Mode)) {
	case "paper":
		return nil
	case "live":
		if strings.TrimSpace(e.APIKey) == "" || strings.TrimSpace(e.APISecret) == "" {
			return fmt.Errorf("execution.mode=live requires api_key and api_secret")
		}
		return nil
	default:
		return fmt.Errorf("execution.mode must be paper or live, got %q", e.Mode)
	}
}
