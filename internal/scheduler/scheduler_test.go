package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zion/internal/market"
)

func TestParseIntervalDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"15m", 15 * time.Minute, true},
		{"1h", time.Hour, true},
		{"4h", 4 * time.Hour, true},
		{"1d", 24 * time.Hour, true},
		{"1w", 7 * 24 * time.Hour, true},
		{" 1H ", time.Hour, true},
		{"", 0, false},
		{"m", 0, false},
		{"0m", 0, false},
		{"-5m", 0, false},
		{"15s", 0, false},
		{"abc", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseIntervalDuration(c.in)
		assert.Equal(t, c.ok, ok, "input %q", c.in)
		assert.Equal(t, c.want, got, "input %q", c.in)
	}
}

func TestDropUnclosedKline(t *testing.T) {
	interval := time.Hour
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	klines := []market.Candle{
		{OpenTime: base.Add(-2 * time.Hour).UnixMilli(), Close: 100},
		{OpenTime: base.Add(-1 * time.Hour).UnixMilli(), Close: 101},
		{OpenTime: base.UnixMilli(), Close: 102},
	}

	// 最后一根还没收盘（刚开 5 分钟）
	got := dropUnclosedKlineAt(klines, interval, base.Add(5*time.Minute), DefaultKlineGrace)
	require.Len(t, got, 2)
	assert.Equal(t, 101.0, got[1].Close)

	// 宽限期内也算未收盘
	got = dropUnclosedKlineAt(klines, interval, base.Add(interval+5*time.Second), DefaultKlineGrace)
	assert.Len(t, got, 2)

	// 宽限期过后保留
	got = dropUnclosedKlineAt(klines, interval, base.Add(interval+15*time.Second), DefaultKlineGrace)
	assert.Len(t, got, 3)

	// 空切片与非法间隔原样返回
	assert.Empty(t, dropUnclosedKlineAt(nil, interval, base, DefaultKlineGrace))
	assert.Len(t, dropUnclosedKlineAt(klines, 0, base, DefaultKlineGrace), 3)
}

func TestCycleSchedulerRunsTask(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewCycleScheduler(ctx, 20*time.Millisecond)

	ran := make(chan struct{}, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Start(func() { ran <- struct{}{} })
	}()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on cancel")
	}
}

func TestCycleSchedulerRunImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewCycleScheduler(ctx, time.Hour)
	s.RunImmediately = true

	ran := make(chan struct{}, 1)
	go s.Start(func() {
		ran <- struct{}{}
		cancel()
	})

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("immediate run did not happen")
	}
}

func TestCycleSchedulerInvalidInterval(t *testing.T) {
	s := NewCycleScheduler(context.Background(), 0)
	done := make(chan struct{})
	go func() {
		s.Start(func() { t.Error("task must not run with invalid interval") })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler with zero interval should return immediately")
	}
}
