package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"zion/internal/agent/engine"
	zcfg "zion/internal/config"
	"zion/internal/decision"
	"zion/internal/gateway/binance"
	"zion/internal/gateway/exchange"
	"zion/internal/gateway/notifier"
	"zion/internal/gateway/paper"
	"zion/internal/gateway/provider"
	"zion/internal/logger"
	"zion/internal/prompt"
	"zion/internal/store"
	"zion/internal/store/sqlite"
	livehttp "zion/internal/transport/http/live"
)

// AppBuilder 把配置装配成可运行的 App。各构建函数可被测试替换。
type AppBuilder struct {
	cfg *zcfg.Config

	promptsFn  func(string) (*prompt.Registry, error)
	providerFn func(*zcfg.Config, *prompt.Registry) (decision.Provider, error)
	exchangeFn func(*zcfg.Config) (exchange.Service, error)
	journalFn  func(*zcfg.Config) (store.Journal, error)
	notifierFn func(*zcfg.Config) notifier.TextNotifier
}

type AppBuilderOption func(*AppBuilder)

// WithExchange 替换交易所服务（测试用）。
func WithExchange(svc exchange.Service) AppBuilderOption {
	return func(b *AppBuilder) {
		b.exchangeFn = func(*zcfg.Config) (exchange.Service, error) { return svc, nil }
	}
}

// WithProvider 替换决策提供方（测试用）。
func WithProvider(p decision.Provider) AppBuilderOption {
	return func(b *AppBuilder) {
		b.providerFn = func(*zcfg.Config, *prompt.Registry) (decision.Provider, error) { return p, nil }
	}
}

// WithJournal 替换审计存储（测试用）。
func WithJournal(j store.Journal) AppBuilderOption {
	return func(b *AppBuilder) {
		b.journalFn = func(*zcfg.Config) (store.Journal, error) { return j, nil }
	}
}

func NewAppBuilder(cfg *zcfg.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		promptsFn:  prompt.NewRegistry,
		providerFn: buildDecisionProvider,
		exchangeFn: buildExchangeService,
		journalFn:  buildJournal,
		notifierFn: buildNotifier,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	prompts, err := b.promptsFn(cfg.Prompt.Path)
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	logger.Infof("✓ 提示词已加载 path=%s", cfg.Prompt.Path)

	decider, err := b.providerFn(cfg, prompts)
	if err != nil {
		return nil, fmt.Errorf("build decision provider: %w", err)
	}

	exch, err := b.exchangeFn(cfg)
	if err != nil {
		return nil, fmt.Errorf("build exchange service: %w", err)
	}
	logger.Infof("✓ 执行通道 mode=%s asset=%s", cfg.Execution.Mode, cfg.Trading.Asset)

	journal, err := b.journalFn(cfg)
	if err != nil {
		return nil, fmt.Errorf("build journal: %w", err)
	}

	eng, err := engine.NewCycleEngine(engine.Config{
		Asset:           cfg.Trading.Asset,
		RiskPct:         cfg.Trading.RiskPct,
		MaxLeverage:     cfg.Trading.MaxLeverage,
		StopLossPct:     cfg.Trading.StopLossPct,
		TakeProfitPct:   cfg.Trading.TakeProfitPct,
		MaxPositionSize: cfg.Trading.MaxPositionSize,
		FallbackEquity:  cfg.Trading.FallbackEquity,
	}, exch, decider, journal, b.notifierFn(cfg))
	if err != nil {
		return nil, err
	}

	router := livehttp.NewRouter(cfg.Trading.Asset, eng, journal, exch)
	liveHTTP, err := livehttp.NewServer(livehttp.ServerConfig{
		Addr:   cfg.App.HTTPAddr,
		Router: router,
	})
	if err != nil {
		return nil, fmt.Errorf("build live http: %w", err)
	}

	return &App{
		cfg:      cfg,
		engine:   eng,
		prompts:  prompts,
		journal:  journal,
		liveHTTP: liveHTTP,
		fatalCh:  make(chan error, 1),
	}, nil
}

func buildDecisionProvider(cfg *zcfg.Config, prompts *prompt.Registry) (decision.Provider, error) {
	model := &provider.OpenAIChatClient{
		Name:        cfg.Model.Name,
		BaseURL:     cfg.Model.APIURL,
		APIKey:      cfg.Model.APIKey,
		Model:       cfg.Model.Model,
		Temperature: cfg.Model.Temperature,
		Timeout:     time.Duration(cfg.Model.TimeoutSeconds) * time.Second,
		MaxRetries:  cfg.Model.MaxRetries,
	}
	return decision.NewLLMProvider(model, prompts), nil
}

func buildExchangeService(cfg *zcfg.Config) (exchange.Service, error) {
	source, err := binance.New(binance.Config{
		RESTBaseURL:  cfg.Market.RESTBaseURL,
		HTTPTimeout:  time.Duration(cfg.Market.HTTPTimeoutSeconds) * time.Second,
		APIKey:       cfg.Execution.APIKey,
		APISecret:    cfg.Execution.APISecret,
		ProxyEnabled: cfg.Market.Proxy.Enabled,
		RESTProxyURL: cfg.Market.Proxy.RESTURL,
		Interval:     cfg.Market.Interval,
		HistoryLimit: cfg.Market.HistoryLimit,
		DepthLimit:   cfg.Market.DepthLimit,
		TradesLimit:  cfg.Market.TradesLimit,
	})
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(cfg.Execution.Mode, "live") {
		return binance.NewLive(source)
	}
	return paper.NewEngine(source, paper.Config{
		StartingEquity: cfg.Trading.FallbackEquity,
		FeeRate:        cfg.Execution.FeeRate,
		MaxImpactBps:   cfg.Execution.MaxImpactBps,
	})
}

func buildJournal(cfg *zcfg.Config) (store.Journal, error) {
	return sqlite.NewSqliteJournal(cfg.Store.Path)
}

func buildNotifier(cfg *zcfg.Config) notifier.TextNotifier {
	tg := cfg.Notify.Telegram
	if tg.Enabled && tg.BotToken != "" && tg.ChatID != "" {
		return notifier.NewTelegram(tg.BotToken, tg.ChatID)
	}
	return notifier.Nop{}
}
