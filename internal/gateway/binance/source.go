package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"zion/internal/logger"
	"zion/internal/market"
	symbolpkg "zion/internal/pkg/symbol"
	"zion/internal/scheduler"

	"github.com/adshao/go-binance/v2/futures"
	"golang.org/x/sync/errgroup"
)

const maxHistoryLimit = 1500

// fundingIntervalHours 币安永续合约资金费率按 8 小时结算。
const fundingIntervalHours = 8

// Source 基于 go-binance SDK 拉取行情并组装市场快照。
type Source struct {
	cfg    Config
	client *futures.Client
}

func New(cfg Config) (*Source, error) {
	final := cfg.withDefaults()
	client := futures.NewClient(final.APIKey, final.APISecret)
	client.BaseURL = strings.TrimSpace(final.RESTBaseURL)
	httpClient := &http.Client{Timeout: final.HTTPTimeout}
	if final.ProxyEnabled && final.RESTProxyURL != "" {
		proxyURL, err := url.Parse(final.RESTProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REST proxy url: %w", err)
		}
		baseTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok || baseTransport == nil {
			return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
		}
		transport := baseTransport.Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		httpClient.Transport = transport
	}
	client.HTTPClient = httpClient
	return &Source{
		cfg:    final,
		client: client,
	}, nil
}

// Client exposes the underlying futures client for the live order gateway.
func (s *Source) Client() *futures.Client {
	if s == nil {
		return nil
	}
	return s.client
}

// Snapshot 并发拉取订单簿、成交、标记价与 K 线，组装一份快照。
// 订单簿或 K 线失败会让整个快照失败；资金费率脏数据则降级为缺省。
func (s *Source) Snapshot(ctx context.Context, asset string) (*market.Snapshot, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("binance source not initialized")
	}
	snap, err := market.NewSnapshot(asset, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	var candles []market.Candle
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		book, err := s.FetchDepth(gctx, asset, s.cfg.DepthLimit)
		if err != nil {
			return fmt.Errorf("depth: %w", err)
		}
		snap.Book = book
		return nil
	})
	g.Go(func() error {
		trades, err := s.FetchTrades(gctx, asset, s.cfg.TradesLimit)
		if err != nil {
			return fmt.Errorf("trades: %w", err)
		}
		snap.Trades = trades
		return nil
	})
	g.Go(func() error {
		mark, funding, err := s.FetchPremium(gctx, asset)
		if err != nil {
			return fmt.Errorf("premium: %w", err)
		}
		snap.Mark = mark
		snap.Funding = funding
		return nil
	})
	g.Go(func() error {
		kls, err := s.FetchHistory(gctx, asset, s.cfg.Interval, s.cfg.HistoryLimit)
		if err != nil {
			return fmt.Errorf("klines: %w", err)
		}
		candles = kls
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	indicators, err := market.ComputeIndicators(candles)
	if err != nil {
		logger.Warnf("[binance] indicators unavailable for %s: %v", asset, err)
	} else {
		snap.Indicators = indicators
	}
	return snap, nil
}

func (s *Source) FetchHistory(ctx context.Context, asset, interval string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	sym := symbolpkg.ToExchange(asset)
	if sym == "" {
		return nil, fmt.Errorf("asset is required")
	}
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return nil, fmt.Errorf("interval is required")
	}
	svc := s.client.NewKlinesService().Symbol(sym).Interval(interval).Limit(limit)
	kls, err := svc.Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     parseFloat(kl.Close),
			Volume:    parseFloat(kl.Volume),
			Trades:    kl.TradeNum,
		})
	}
	if dur, ok := scheduler.ParseIntervalDuration(interval); ok {
		out = scheduler.DropUnclosedKline(out, dur)
	}
	return out, nil
}

func (s *Source) FetchDepth(ctx context.Context, asset string, limit int) (*market.OrderBook, error) {
	sym := symbolpkg.ToExchange(asset)
	if sym == "" {
		return nil, fmt.Errorf("asset is required")
	}
	res, err := s.client.NewDepthService().Symbol(sym).Limit(limit).Do(ctx)
	if err != nil {
		return nil, err
	}
	bids := make([]market.BookLevel, 0, len(res.Bids))
	for _, lv := range res.Bids {
		bids = append(bids, market.BookLevel{Price: parseFloat(lv.Price), Quantity: parseFloat(lv.Quantity)})
	}
	asks := make([]market.BookLevel, 0, len(res.Asks))
	for _, lv := range res.Asks {
		asks = append(asks, market.BookLevel{Price: parseFloat(lv.Price), Quantity: parseFloat(lv.Quantity)})
	}
	return market.NewOrderBook(asset, time.UnixMilli(res.Time).UTC(), bids, asks)
}

func (s *Source) FetchTrades(ctx context.Context, asset string, limit int) ([]market.Trade, error) {
	sym := symbolpkg.ToExchange(asset)
	if sym == "" {
		return nil, fmt.Errorf("asset is required")
	}
	res, err := s.client.NewAggTradesService().Symbol(sym).Limit(limit).Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]market.Trade, 0, len(res))
	for _, t := range res {
		if t == nil {
			continue
		}
		// 买方为 maker 说明主动方是卖单
		side := market.TradeSideBuy
		if t.IsBuyerMaker {
			side = market.TradeSideSell
		}
		trade, err := market.NewTrade(asset, time.UnixMilli(t.Timestamp).UTC(), parseFloat(t.Price), parseFloat(t.Quantity), side)
		if err != nil {
			logger.Warnf("[binance] drop malformed trade for %s: %v", asset, err)
			continue
		}
		out = append(out, trade)
	}
	return out, nil
}

// FetchPremium 返回标记价与小时化的资金费率。费率越界视为脏数据，
// 返回 nil funding 而不是失败。
func (s *Source) FetchPremium(ctx context.Context, asset string) (*market.MarkPrice, *market.FundingRate, error) {
	sym := symbolpkg.ToExchange(asset)
	if sym == "" {
		return nil, nil, fmt.Errorf("asset is required")
	}
	res, err := s.client.NewPremiumIndexService().Symbol(sym).Do(ctx)
	if err != nil {
		return nil, nil, err
	}
	var entry *futures.PremiumIndex
	for _, item := range res {
		if item != nil && strings.EqualFold(item.Symbol, sym) {
			entry = item
			break
		}
	}
	if entry == nil && len(res) > 0 {
		entry = res[0]
	}
	if entry == nil {
		return nil, nil, fmt.Errorf("premium index not available for %s", asset)
	}
	ts := time.UnixMilli(entry.Time).UTC()
	mark := &market.MarkPrice{
		Asset:      asset,
		Timestamp:  ts,
		Price:      parseFloat(entry.MarkPrice),
		IndexPrice: parseFloat(entry.IndexPrice),
	}
	hourly := parseFloat(entry.LastFundingRate) / fundingIntervalHours
	funding, err := market.NewFundingRate(asset, ts, hourly, 0)
	if err != nil {
		logger.Warnf("[binance] funding rate rejected for %s: %v", asset, err)
		return mark, nil, nil
	}
	return mark, funding, nil
}

func parseFloat(v string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return f
}
