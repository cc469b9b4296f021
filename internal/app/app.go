package app

import (
	"context"
	"fmt"
	"time"

	"zion/internal/agent/engine"
	zcfg "zion/internal/config"
	"zion/internal/logger"
	"zion/internal/prompt"
	"zion/internal/scheduler"
	"zion/internal/store"
	livehttp "zion/internal/transport/http/live"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→驱动交易周期与 HTTP 服务。
type App struct {
	cfg      *zcfg.Config
	engine   *engine.CycleEngine
	prompts  *prompt.Registry
	journal  store.Journal
	liveHTTP *livehttp.Server

	fatalCh chan error
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *zcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run 启动周期调度与 HTTP 服务，直到 ctx 取消或出现致命错误。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.engine == nil {
		return fmt.Errorf("cycle engine not initialized")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 致命网关错误直接触发关停
	a.engine.OnFatal = func(err error) {
		logger.Errorf("app: fatal gateway error, shutting down: %v", err)
		select {
		case a.fatalCh <- err:
		default:
		}
		cancel()
	}

	if a.prompts != nil {
		if err := a.prompts.Watch(); err != nil {
			logger.Warnf("app: prompt hot reload unavailable: %v", err)
		}
		defer a.prompts.Close()
	}
	if a.journal != nil {
		defer a.journal.Close()
	}

	group, groupCtx := errgroup.WithContext(runCtx)

	if a.liveHTTP != nil {
		group.Go(func() error {
			logger.Infof("app: live http listening on %s", a.liveHTTP.Addr())
			if err := a.liveHTTP.Start(groupCtx); err != nil {
				return fmt.Errorf("live http server error: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		interval := time.Duration(a.cfg.Trading.CycleIntervalSeconds) * time.Second
		sched := scheduler.NewCycleScheduler(groupCtx, interval)
		sched.RunImmediately = a.cfg.Trading.RunImmediately
		sched.Start(func() {
			a.engine.RunCycle(groupCtx)
		})
		return nil
	})

	err := group.Wait()
	select {
	case fatal := <-a.fatalCh:
		if err == nil {
			err = fatal
		}
	default:
	}
	return err
}

// Engine exposes the cycle engine (for testing/replay harnesses).
func (a *App) Engine() *engine.CycleEngine {
	if a == nil {
		return nil
	}
	return a.engine
}
