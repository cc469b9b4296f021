package config

// 默认值常量
const (
	defaultAppEnv          = "dev"
	defaultAppLogLevel     = "info"
	defaultAppHTTPAddr     = ":9991"
	defaultTradingAsset    = "BTCUSDT"
	defaultCycleInterval   = 60
	defaultRiskPct         = 0.1
	defaultMaxLeverage     = 3.0
	defaultStopLossPct     = 0.02
	defaultTakeProfitPct   = 0.04
	defaultMaxPositionSize = 5.0
	// 原型系统在无持仓时假定 10000 账户净值；这里作为显式配置默认值保留。
	defaultFallbackEquity = 10000.0
	defaultMarketSource   = "binance"
	defaultMarketREST     = "https://fapi.binance.com"
	defaultHTTPTimeout    = 10
	defaultInterval       = "1m"
	defaultHistoryLimit   = 120
	defaultDepthLimit     = 50
	defaultTradesLimit    = 100
	defaultModelTimeout   = 60
	defaultStorePath      = "data/zion.db"
	defaultExecutionMode  = "paper"
	defaultFeeRate        = 0.0005
	defaultMaxImpactBps   = 25.0
)

// applyDefaults 为缺省字段补默认值。
func (c *Config) applyDefaults() {
	c.App.applyDefaults()
	c.Trading.applyDefaults()
	c.Market.applyDefaults()
	c.Model.applyDefaults()
	c.Store.applyDefaults()
	c.Execution.applyDefaults()
}

func (a *AppConfig) applyDefaults() {
	if a.Env == "" {
		a.Env = defaultAppEnv
	}
	if a.LogLevel == "" {
		a.LogLevel = defaultAppLogLevel
	}
	if a.HTTPAddr == "" {
		a.HTTPAddr = defaultAppHTTPAddr
	}
}

func (t *TradingConfig) applyDefaults() {
	if t.Asset == "" {
		t.Asset = defaultTradingAsset
	}
	if t.CycleIntervalSeconds <= 0 {
		t.CycleIntervalSeconds = defaultCycleInterval
	}
	if t.RiskPct <= 0 {
		t.RiskPct = defaultRiskPct
	}
	if t.MaxLeverage <= 0 {
		t.MaxLeverage = defaultMaxLeverage
	}
	if t.StopLossPct <= 0 {
		t.StopLossPct = defaultStopLossPct
	}
	if t.TakeProfitPct <= 0 {
		t.TakeProfitPct = defaultTakeProfitPct
	}
	if t.MaxPositionSize <= 0 {
		t.MaxPositionSize = defaultMaxPositionSize
	}
	if t.FallbackEquity <= 0 {
		t.FallbackEquity = defaultFallbackEquity
	}
}

func (m *MarketConfig) applyDefaults() {
	if m.Source == "" {
		m.Source = defaultMarketSource
	}
	if m.RESTBaseURL == "" {
		m.RESTBaseURL = defaultMarketREST
	}
	if m.HTTPTimeoutSeconds <= 0 {
		m.HTTPTimeoutSeconds = defaultHTTPTimeout
	}
	if m.Interval == "" {
		m.Interval = defaultInterval
	}
	if m.HistoryLimit <= 0 {
		m.HistoryLimit = defaultHistoryLimit
	}
	if m.DepthLimit <= 0 {
		m.DepthLimit = defaultDepthLimit
	}
	if m.TradesLimit <= 0 {
		m.TradesLimit = defaultTradesLimit
	}
}

func (m *ModelConfig) applyDefaults() {
	if m.TimeoutSeconds <= 0 {
		m.TimeoutSeconds = defaultModelTimeout
	}
	if m.MaxRetries <= 0 {
		m.MaxRetries = 2
	}
}

func (s *StoreConfig) applyDefaults() {
	if s.Path == "" {
		s.Path = defaultStorePath
	}
}

func (e *ExecutionConfig) applyDefaults() {
	if e.Mode == "" {
		e.Mode = defaultExecutionMode
	}
	if e.FeeRate <= 0 {
		e.FeeRate = defaultFeeRate
	}
	if e.MaxImpactBps <= 0 {
		e.MaxImpactBps = defaultMaxImpactBps
	}
}
