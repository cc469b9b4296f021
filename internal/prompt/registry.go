package prompt

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"zion/internal/logger"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// 中文说明：
// 决策角色提示词登记表：内置默认提示词，可用 yaml 文件覆盖，
// 文件变更时热加载（不重启进程即可调提示词）。

// defaultPrompts 各角色的内置 system prompt。
var defaultPrompts = map[string]string{
	"oracle": "You are the Oracle, a quantitative financial analyst. Your sole purpose is to analyze " +
		"market data to generate price predictions and a comprehensive market summary. Respond only " +
		"with a JSON object containing 'prediction', 'summary', and 'confidence' keys.",
	"neo": "You are Neo, an expert in technical analysis and pattern recognition. Based on the market " +
		"analysis provided to you, identify trading patterns and generate a clear, actionable trading " +
		"signal (BUY, SELL, or HOLD) with a confidence score between 0 and 1. Respond only with a JSON " +
		"object containing 'signal', 'confidence', and 'reasoning' keys.",
	"morpheus": "You are Morpheus, a strict risk management officer. Given a trading signal and current " +
		"portfolio state, assess the risk. Validate the proposed position size against the portfolio's " +
		"risk parameters and decide GO or NO_GO. Respond only with a JSON object containing " +
		"'risk_assessment', 'position_size', and 'decision' keys.",
	"trinity": "You are Trinity, a trade execution specialist. You receive the outcome of an executed " +
		"order and report back on the execution details. Respond only with a JSON object containing " +
		"'status', 'order_id', and 'details' keys.",
}

type fileConfig struct {
	Prompts map[string]string `yaml:"prompts"`
}

// Registry 管理角色提示词。并发安全。
type Registry struct {
	path string

	mu        sync.RWMutex
	overrides map[string]string
	watcher   *fsnotify.Watcher
}

// NewRegistry 构造登记表；path 为空时只用内置默认值。
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{path: strings.TrimSpace(path)}
	if r.path == "" {
		return r, nil
	}
	if err := r.reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Watch 启动文件监听，变更时热加载；ctx 取消由调用方关闭 watcher。
func (r *Registry) Watch() error {
	if r.path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("prompt registry watcher: %w", err)
	}
	if err := w.Add(r.path); err != nil {
		w.Close()
		return fmt.Errorf("prompt registry watch %s: %w", r.path, err)
	}
	r.watcher = w
	go func() {
		for {
			select {
			case evt, ok := <-w.Events:
				if !ok {
					return
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := r.reload(); err != nil {
					logger.Errorf("prompt registry reload failed: %v", err)
					continue
				}
				logger.Infof("prompt registry reloaded from %s", r.path)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warnf("prompt registry watch error: %v", err)
			}
		}
	}()
	return nil
}

func (r *Registry) Close() error {
	if r == nil || r.watcher == nil {
		return nil
	}
	return r.watcher.Close()
}

func (r *Registry) reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read prompt file: %w", err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse prompt file: %w", err)
	}
	overrides := make(map[string]string, len(cfg.Prompts))
	for role, text := range cfg.Prompts {
		role = strings.ToLower(strings.TrimSpace(role))
		text = strings.TrimSpace(text)
		if role == "" || text == "" {
			continue
		}
		if _, known := defaultPrompts[role]; !known {
			logger.Warnf("prompt registry: unknown role %q ignored", role)
			continue
		}
		overrides[role] = text
	}
	r.mu.Lock()
	r.overrides = overrides
	r.mu.Unlock()
	return nil
}

// SystemPrompt 返回角色的 system prompt（覆盖优先，缺省回退内置）。
func (r *Registry) SystemPrompt(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	if r != nil {
		r.mu.RLock()
		text, ok := r.overrides[role]
		r.mu.RUnlock()
		if ok {
			return text
		}
	}
	return defaultPrompts[role]
}
