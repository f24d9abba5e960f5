package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wolfitem/news-collector/internal/domain/model"
	"github.com/wolfitem/news-collector/internal/infrastructure/logger"
)

// DefaultTimezone 未配置时区时使用
const DefaultTimezone = "Asia/Kolkata"

// Job 一次定时任务
type Job func(ctx context.Context) model.RunSummary

// SchedulerOption 调度器选项
type SchedulerOption func(*Scheduler)

// WithAfterRun 每次运行结束后调用，例如清理过期文件
func WithAfterRun(fn func(ctx context.Context, summary model.RunSummary)) SchedulerOption {
	return func(s *Scheduler) { s.afterRun = fn }
}

// WithSchedulerClock 替换时钟
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

type clockTime struct {
	hour, minute int
}

// Scheduler 在每天固定时刻触发采集，同一时间最多一个运行
type Scheduler struct {
	times    []clockTime
	loc      *time.Location
	job      Job
	afterRun func(ctx context.Context, summary model.RunSummary)
	now      func() time.Time

	running sync.Mutex
}

// NewScheduler 解析每日执行时间和时区
func NewScheduler(cfg model.ScheduleConfig, job Job, opts ...SchedulerOption) (*Scheduler, error) {
	if len(cfg.Times) == 0 {
		return nil, fmt.Errorf("未配置定时执行时间")
	}

	tz := cfg.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("加载时区失败: %w", err)
	}

	s := &Scheduler{loc: loc, job: job, now: time.Now}
	for _, v := range cfg.Times {
		t, err := time.Parse("15:04", strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("无效的执行时间 %q: %w", v, err)
		}
		s.times = append(s.times, clockTime{hour: t.Hour(), minute: t.Minute()})
	}
	sort.Slice(s.times, func(i, j int) bool {
		if s.times[i].hour != s.times[j].hour {
			return s.times[i].hour < s.times[j].hour
		}
		return s.times[i].minute < s.times[j].minute
	})

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Next 返回严格晚于from的下一次触发时间
func (s *Scheduler) Next(from time.Time) time.Time {
	local := from.In(s.loc)
	for day := 0; day <= 1; day++ {
		for _, ct := range s.times {
			t := time.Date(local.Year(), local.Month(), local.Day()+day, ct.hour, ct.minute, 0, 0, s.loc)
			if t.After(local) {
				return t
			}
		}
	}
	// 不会走到这里：第二天最早的时刻总是晚于from
	return time.Time{}
}

// Run 阻塞等待触发时间并执行任务，ctx取消时返回
func (s *Scheduler) Run(ctx context.Context) error {
	logger.Info("调度器启动", "timezone", s.loc.String(), "times", len(s.times))
	for {
		next := s.Next(s.now())
		wait := next.Sub(s.now())
		logger.Info("等待下一次采集", "next_run", next.Format(time.RFC3339), "wait", wait.Round(time.Second))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("调度器停止")
			return nil
		case <-timer.C:
		}

		if _, ok := s.RunNow(ctx); !ok {
			logger.Warn("上一次采集仍在运行，跳过本次触发")
		}
	}
}

// RunNow 立即执行一次；已有运行时返回false
func (s *Scheduler) RunNow(ctx context.Context) (model.RunSummary, bool) {
	if !s.running.TryLock() {
		return model.RunSummary{}, false
	}
	defer s.running.Unlock()

	summary := s.job(ctx)
	if s.afterRun != nil {
		s.afterRun(ctx, summary)
	}
	return summary, true
}
