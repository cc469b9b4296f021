package config

// Config 是 zion 的主配置载体。启动时加载一次，进程生命周期内只读。
type Config struct {
	App       AppConfig       `toml:"app"`
	Trading   TradingConfig   `toml:"trading"`
	Market    MarketConfig    `toml:"market"`
	Model     ModelConfig     `toml:"model"`
	Prompt    PromptConfig    `toml:"prompt"`
	Store     StoreConfig     `toml:"store"`
	Notify    NotifyConfig    `toml:"notify"`
	Execution ExecutionConfig `toml:"execution"`
}

type AppConfig struct {
	Env             string `toml:"env"`
	LogLevel        string `toml:"log_level"`
	HTTPAddr        string `toml:"http_addr"`
	LogPath         string `toml:"log_path"`
	DecisionLogPath string `toml:"decision_log_path"`
}

// TradingConfig 周期与风控参数。
type TradingConfig struct {
	Asset                string  `toml:"asset"`
	CycleIntervalSeconds int     `toml:"cycle_interval_seconds"`
	RunImmediately       bool    `toml:"run_immediately"`
	RiskPct              float64 `toml:"risk_pct"`       // 单笔风险占净值比例 0~1
	MaxLeverage          float64 `toml:"max_leverage"`   // 允许的最大杠杆
	StopLossPct          float64 `toml:"stop_loss_pct"`  // 默认止损比例
	TakeProfitPct        float64 `toml:"take_profit_pct"`// 默认止盈比例
	MaxPositionSize      float64 `toml:"max_position_size"`
	// FallbackEquity：无持仓且无法从交易所取净值时使用的显式默认净值。
	// 这是一个有意暴露的配置项，不是隐藏的硬编码。
	FallbackEquity float64 `toml:"fallback_equity"`
}

type MarketConfig struct {
	Source             string      `toml:"source"`
	RESTBaseURL        string      `toml:"rest_base_url"`
	HTTPTimeoutSeconds int         `toml:"http_timeout_seconds"`
	Interval           string      `toml:"interval"`
	HistoryLimit       int         `toml:"history_limit"`
	DepthLimit         int         `toml:"depth_limit"`
	TradesLimit        int         `toml:"trades_limit"`
	Proxy              ProxyConfig `toml:"proxy"`
}

type ProxyConfig struct {
	Enabled bool   `toml:"enabled"`
	RESTURL string `toml:"rest_url"`
}

// ModelConfig 决策模型连接配置（OpenAI 兼容接口）。
type ModelConfig struct {
	Name           string  `toml:"name"`
	APIURL         string  `toml:"api_url"`
	APIKey         string  `toml:"api_key"`
	Model          string  `toml:"model"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	MaxRetries     int     `toml:"max_retries"`
}

type PromptConfig struct {
	Path string `toml:"path"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

// ExecutionConfig 执行通道：paper（默认）对着实时行情模拟成交，live 直连交易所。
type ExecutionConfig struct {
	Mode         string  `toml:"mode"` // "paper" | "live"
	FeeRate      float64 `toml:"fee_rate"`
	MaxImpactBps float64 `toml:"max_impact_bps"`
	// live 模式必填
	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"`
}
