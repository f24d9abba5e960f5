package middleware

import (
	"fmt"
	"sync"
	"time"

	"github.com/wolfitem/news-collector/internal/infrastructure/logger"
)

// MetricsCollector 收集进程级别的采集指标，跨多次运行累计
type MetricsCollector struct {
	mu sync.RWMutex

	startTime time.Time

	// 抓取统计
	fetchCalls     int64
	fetchFailures  int64
	fetchAttempts  int64
	fetchDurations []time.Duration

	// 采集统计
	runs          int64
	keywords      int64
	fetched       int64
	newArticles   int64
	duplicates    int64
	storeFailures int64
}

// NewMetricsCollector 创建新的性能监控器
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		startTime:      time.Now(),
		fetchDurations: make([]time.Duration, 0, 1000),
	}
}

// RecordFetch 记录一次关键词抓取
func (m *MetricsCollector) RecordFetch(duration time.Duration, attempts int, success bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fetchCalls++
	m.fetchAttempts += int64(attempts)
	if !success {
		m.fetchFailures++
	}

	m.fetchDurations = append(m.fetchDurations, duration)
	if len(m.fetchDurations) > 1000 {
		m.fetchDurations = m.fetchDurations[1:]
	}
}

// RecordKeyword 记录关键词的存储结果
func (m *MetricsCollector) RecordKeyword(fetched, newArticles, duplicates int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.keywords++
	m.fetched += int64(fetched)
	m.newArticles += int64(newArticles)
	m.duplicates += int64(duplicates)
}

// RecordStoreFailure 记录存储失败
func (m *MetricsCollector) RecordStoreFailure() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.storeFailures++
}

// RecordRun 记录一次完整运行
func (m *MetricsCollector) RecordRun() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs++
}

// GetReport 获取性能报告
func (m *MetricsCollector) GetReport() Report {
	m.mu.RLock()
	defer m.mu.RUnlock()

	upTime := time.Since(m.startTime)

	return Report{
		RuntimeInfo: RuntimeInfo{
			StartTime:  m.startTime,
			Uptime:     upTime,
			ProcessSec: int64(upTime.Seconds()),
			Runs:       m.runs,
		},
		FetchStats: FetchStats{
			TotalCalls:     m.fetchCalls,
			Successful:     m.fetchCalls - m.fetchFailures,
			Failed:         m.fetchFailures,
			Attempts:       m.fetchAttempts,
			SuccessRate:    m.calculateSuccessRate(),
			AverageLatency: m.getAverageFetchDuration().Milliseconds(),
		},
		StoreStats: StoreStats{
			Keywords:    m.keywords,
			Fetched:     m.fetched,
			NewArticles: m.newArticles,
			Duplicates:  m.duplicates,
			Failures:    m.storeFailures,
		},
	}
}

// getAverageFetchDuration 获取平均抓取耗时
func (m *MetricsCollector) getAverageFetchDuration() time.Duration {
	if len(m.fetchDurations) == 0 {
		return 0
	}

	var total time.Duration
	for _, d := range m.fetchDurations {
		total += d
	}
	return total / time.Duration(len(m.fetchDurations))
}

// calculateSuccessRate 计算抓取成功率
func (m *MetricsCollector) calculateSuccessRate() float64 {
	if m.fetchCalls == 0 {
		return 100.0
	}
	return float64(m.fetchCalls-m.fetchFailures) / float64(m.fetchCalls) * 100
}

// Report 运行时报告
type Report struct {
	RuntimeInfo RuntimeInfo
	FetchStats  FetchStats
	StoreStats  StoreStats
}

// RuntimeInfo 运行时信息
type RuntimeInfo struct {
	StartTime  time.Time
	Uptime     time.Duration
	ProcessSec int64
	Runs       int64
}

// FetchStats 抓取统计信息
type FetchStats struct {
	TotalCalls     int64
	Successful     int64
	Failed         int64
	Attempts       int64
	SuccessRate    float64
	AverageLatency int64
}

// StoreStats 存储统计
type StoreStats struct {
	Keywords    int64
	Fetched     int64
	NewArticles int64
	Duplicates  int64
	Failures    int64
}

// LogMetrics 记录指标到日志
func LogMetrics(metrics *MetricsCollector) {
	if metrics == nil {
		return
	}
	report := metrics.GetReport()
	logger.Info("📊 采集指标上报",
		"start_time", report.RuntimeInfo.StartTime,
		"uptime", report.RuntimeInfo.Uptime,
		"runs", report.RuntimeInfo.Runs,
		"fetch_calls", report.FetchStats.TotalCalls,
		"fetch_attempts", report.FetchStats.Attempts,
		"fetch_success_rate", fmt.Sprintf("%.2f%%", report.FetchStats.SuccessRate),
		"fetch_avg_latency", fmt.Sprintf("%dms", report.FetchStats.AverageLatency),
		"keywords", report.StoreStats.Keywords,
		"articles_fetched", report.StoreStats.Fetched,
		"articles_new", report.StoreStats.NewArticles,
		"articles_duplicate", report.StoreStats.Duplicates,
		"store_failures", report.StoreStats.Failures,
	)
}
