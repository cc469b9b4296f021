package binance

import (
	"strings"
	"time"
)

type Config struct {
	RESTBaseURL string
	HTTPTimeout time.Duration

	APIKey    string
	APISecret string

	ProxyEnabled bool
	RESTProxyURL string

	Interval     string
	HistoryLimit int
	DepthLimit   int
	TradesLimit  int
}

func (c *Config) withDefaults() Config {
	out := *c
	out.RESTBaseURL = strings.TrimSpace(out.RESTBaseURL)
	if out.RESTBaseURL == "" {
		out.RESTBaseURL = "https://fapi.binance.com"
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 15 * time.Second
	}
	out.RESTProxyURL = strings.TrimSpace(out.RESTProxyURL)
	out.Interval = strings.ToLower(strings.TrimSpace(out.Interval))
	if out.Interval == "" {
		out.Interval = "1m"
	}
	if out.HistoryLimit <= 0 {
		out.HistoryLimit = 120
	}
	if out.DepthLimit <= 0 {
		out.DepthLimit = 50
	}
	if out.TradesLimit <= 0 {
		out.TradesLimit = 100
	}
	return out
}
