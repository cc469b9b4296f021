package scheduler

import (
	"context"
	"time"

	"zion/internal/logger"
)

// CycleScheduler 以固定间隔驱动交易周期。任务同步执行：
// 上一轮没跑完之前不会开启下一轮，超过间隔的 tick 直接丢弃。
type CycleScheduler struct {
	Interval       time.Duration
	RunImmediately bool

	ctx   context.Context
	nowFn func() time.Time
}

func NewCycleScheduler(ctx context.Context, interval time.Duration) *CycleScheduler {
	if ctx == nil {
		ctx = context.Background()
	}
	return &CycleScheduler{
		Interval: interval,
		ctx:      ctx,
		nowFn:    time.Now,
	}
}

// Start blocks until ctx is cancelled, invoking task once per interval.
func (s *CycleScheduler) Start(task func()) {
	if s == nil {
		return
	}
	if task == nil {
		logger.Warnf("CycleScheduler: task is nil, exit")
		return
	}
	if s.Interval <= 0 {
		logger.Warnf("CycleScheduler: invalid interval=%s, exit", s.Interval)
		return
	}
	if s.ctx == nil {
		s.ctx = context.Background()
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}

	startAt := s.nowFn().UTC()
	logger.Infof("CycleScheduler: started interval=%s run_immediately=%v at=%s",
		s.Interval, s.RunImmediately, startAt.Format(time.RFC3339))

	if s.RunImmediately {
		logger.Infof("CycleScheduler: RunImmediately=true, execute once before interval loop")
		task()
	}

	next := s.nowFn().UTC().Add(s.Interval)
	for {
		now := s.nowFn().UTC()
		wait := next.Sub(now)
		if wait <= 0 {
			// 上一轮跑穿了间隔，丢掉错过的 tick，从当前时间重新起算。
			missed := 1 + int(-wait/s.Interval)
			logger.Warnf("CycleScheduler: previous cycle overran interval, dropped %d tick(s)", missed)
			next = now.Add(s.Interval)
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			logger.Infof("CycleScheduler: ctx done, exit | uptime=%s",
				s.nowFn().UTC().Sub(startAt).Truncate(time.Second))
			return
		case <-timer.C:
		}

		next = next.Add(s.Interval)
		task()
	}
}
