package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/wolfitem/news-collector/internal/domain/model"
	"github.com/wolfitem/news-collector/internal/domain/service"
	"github.com/wolfitem/news-collector/internal/infrastructure/logger"
	"github.com/wolfitem/news-collector/internal/middleware"
)

// GroupSource 在每次运行开始时提供关键词分组
type GroupSource func() ([]model.KeywordGroup, error)

// StaticGroups 返回固定分组的GroupSource
func StaticGroups(groups []model.KeywordGroup) GroupSource {
	return func() ([]model.KeywordGroup, error) { return groups, nil }
}

// ResultStore 采集结果的存储
type ResultStore interface {
	Store(result model.FeedResult) (model.StoreStats, error)
	WriteKeywordStats(query string, stats model.StoreStats) error
}

// CollectorService 采集编排服务
type CollectorService interface {
	// RunCollection 执行一次完整采集，总是返回汇总而不返回错误
	RunCollection(ctx context.Context) model.RunSummary
	// Progress 返回当前运行进度
	Progress() model.RunProgress
}

// CollectorOption 采集服务选项
type CollectorOption func(*collectorService)

// WithPauseSleeper 替换关键词与分组间暂停的等待函数
func WithPauseSleeper(sleep middleware.SleepFunc) CollectorOption {
	return func(s *collectorService) { s.sleep = sleep }
}

// WithCollectorClock 替换时钟
func WithCollectorClock(now func() time.Time) CollectorOption {
	return func(s *collectorService) { s.now = now }
}

// WithCollectorMetrics 设置指标收集器
func WithCollectorMetrics(metrics *middleware.MetricsCollector) CollectorOption {
	return func(s *collectorService) { s.metrics = metrics }
}

type collectorService struct {
	cfg     model.NetworkConfig
	groups  GroupSource
	fetcher service.Fetcher
	parser  service.FeedParser
	store   ResultStore

	sleep   middleware.SleepFunc
	now     func() time.Time
	metrics *middleware.MetricsCollector

	mu       sync.Mutex
	progress model.RunProgress
}

// NewCollectorService 创建采集编排服务
func NewCollectorService(cfg model.NetworkConfig, groups GroupSource, fetcher service.Fetcher, parser service.FeedParser, store ResultStore, opts ...CollectorOption) CollectorService {
	s := &collectorService{
		cfg:      cfg,
		groups:   groups,
		fetcher:  fetcher,
		parser:   parser,
		store:    store,
		sleep:    middleware.Sleep,
		now:      time.Now,
		progress: model.RunProgress{State: model.RunStateIdle},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Progress 返回当前运行进度
func (s *collectorService) Progress() model.RunProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

func (s *collectorService) setProgress(p model.RunProgress) {
	s.mu.Lock()
	s.progress = p
	s.mu.Unlock()
}

// RunCollection 按配置顺序处理所有分组和关键词
func (s *collectorService) RunCollection(ctx context.Context) (summary model.RunSummary) {
	summary = model.RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: s.now(),
		State:     model.RunStateRunning,
	}
	log := logger.With("run_id", summary.RunID)
	log.Info("开始采集")
	defer logger.TimeTrack("RunCollection")()
	logger.LogMemStatsOnce()

	s.setProgress(model.RunProgress{State: model.RunStateRunning})

	defer func() {
		if r := recover(); r != nil {
			log.Error("采集过程中发生panic", "panic", r)
			summary.Errors++
			summary.State = model.RunStateFailed
		}
		summary = summary.Finish(s.now())
		s.setProgress(model.RunProgress{State: summary.State})
		s.metrics.RecordRun()
		middleware.LogMetrics(s.metrics)
		log.Info("采集完成",
			"state", summary.State,
			"total_keywords", summary.KeywordsProcessed,
			"total_articles", summary.TotalArticles,
			"total_new_articles", summary.NewArticles,
			"total_duplicates", summary.Duplicates,
			"errors", summary.Errors,
			"success_rate", fmt.Sprintf("%.1f%%", summary.SuccessRate),
			"duration_seconds", summary.DurationSeconds,
			"interrupted", summary.Interrupted,
		)
	}()

	groups, err := s.groups()
	if err != nil {
		log.Error("加载关键词分组失败", "error", err)
		summary.Errors = 1
		summary.State = model.RunStateFailed
		return summary
	}

	for gi, group := range groups {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}
		glog := log.With("group", group.Name)
		glog.Info("开始处理分组", "keywords", len(group.Terms))

		var interrupted bool
		if s.cfg.Concurrency > 1 {
			summary, interrupted = s.runGroupConcurrent(ctx, gi, group, summary)
		} else {
			summary, interrupted = s.runGroupSequential(ctx, gi, group, summary)
		}
		if interrupted {
			summary.Interrupted = true
			break
		}

		if gi < len(groups)-1 && len(group.Terms) > 0 && s.cfg.GroupPause() > 0 {
			glog.Info("分组间暂停", "pause", s.cfg.GroupPause())
			if err := s.sleep(ctx, s.cfg.GroupPause()); err != nil {
				summary.Interrupted = true
				break
			}
		}
	}

	if summary.Interrupted {
		log.Warn("采集被中断，已写入的数据保留")
	}
	summary.State = model.RunStateCompleted
	return summary
}

// runGroupSequential 逐个关键词执行抓取、解析和存储
func (s *collectorService) runGroupSequential(ctx context.Context, gi int, group model.KeywordGroup, summary model.RunSummary) (model.RunSummary, bool) {
	for ki, keyword := range group.Terms {
		if ctx.Err() != nil {
			return summary, true
		}
		s.setProgress(model.RunProgress{State: model.RunStateRunning, GroupIndex: gi, KeywordIndex: ki})

		feed, duration, err := s.fetchAndParse(ctx, keyword)
		result := s.storeResult(keyword, feed, err)
		result.FetchDuration = duration
		summary = summary.Add(result)

		if ki < len(group.Terms)-1 && s.cfg.KeywordPause() > 0 {
			if err := s.sleep(ctx, s.cfg.KeywordPause()); err != nil {
				return summary, true
			}
		}
	}
	return summary, false
}

type fetchOutcome struct {
	feed     model.FeedResult
	duration time.Duration
	err      error
}

// runGroupConcurrent 并发抓取和解析，存储和汇总按关键词顺序串行执行
func (s *collectorService) runGroupConcurrent(ctx context.Context, gi int, group model.KeywordGroup, summary model.RunSummary) (model.RunSummary, bool) {
	outcomes := make([]fetchOutcome, len(group.Terms))
	p := pool.New().WithMaxGoroutines(s.cfg.Concurrency)
	for ki, keyword := range group.Terms {
		ki, keyword := ki, keyword
		p.Go(func() {
			if ctx.Err() != nil {
				outcomes[ki].err = ctx.Err()
				return
			}
			feed, duration, err := s.fetchAndParse(ctx, keyword)
			outcomes[ki] = fetchOutcome{feed: feed, duration: duration, err: err}
		})
	}
	p.Wait()

	for ki, keyword := range group.Terms {
		if ctx.Err() != nil {
			return summary, true
		}
		s.setProgress(model.RunProgress{State: model.RunStateRunning, GroupIndex: gi, KeywordIndex: ki})
		result := s.storeResult(keyword, outcomes[ki].feed, outcomes[ki].err)
		result.FetchDuration = outcomes[ki].duration
		summary = summary.Add(result)
	}
	return summary, false
}

// fetchAndParse 抓取并解析单个关键词
func (s *collectorService) fetchAndParse(ctx context.Context, keyword string) (feed model.FeedResult, duration time.Duration, err error) {
	start := s.now()
	defer func() {
		duration = s.now().Sub(start)
		if r := recover(); r != nil {
			err = fmt.Errorf("处理关键词时发生panic: %v", r)
		}
	}()

	raw, err := s.fetcher.Fetch(ctx, keyword)
	if err != nil {
		return model.FeedResult{}, 0, err
	}
	return s.parser.Parse(raw, keyword), 0, nil
}

// storeResult 存储一个关键词的结果并生成KeywordResult
func (s *collectorService) storeResult(keyword string, feed model.FeedResult, fetchErr error) (result model.KeywordResult) {
	log := logger.With("query", keyword)
	result.Keyword = keyword

	defer func() {
		if r := recover(); r != nil {
			log.Error("存储关键词结果时发生panic", "panic", r)
			result.Err = fmt.Errorf("存储关键词结果时发生panic: %v", r)
		}
	}()

	if fetchErr != nil {
		log.Error("抓取关键词失败", "error", fetchErr)
		result.Err = fetchErr
		return result
	}

	if len(feed.Articles) == 0 {
		log.Info("没有有效文章，跳过存储")
		result.SkippedEmpty = true
		s.metrics.RecordKeyword(0, 0, 0)
		return result
	}

	stats, err := s.store.Store(feed)
	if err != nil {
		log.Error("存储失败", "error", err)
		s.metrics.RecordStoreFailure()
		result.Err = fmt.Errorf("存储关键词结果失败: %w", err)
		return result
	}

	if err := s.store.WriteKeywordStats(keyword, stats); err != nil {
		log.Warn("写入关键词统计失败", "error", err)
	}

	result.Fetched = len(feed.Articles)
	result.NewArticles = stats.NewArticles
	result.Duplicates = stats.DuplicatesFound
	s.metrics.RecordKeyword(result.Fetched, result.NewArticles, result.Duplicates)
	log.Info("关键词处理完成", "fetched", result.Fetched, "new_articles", result.NewArticles, "duplicates", result.Duplicates)
	return result
}
