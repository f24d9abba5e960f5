package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wolfitem/news-collector/internal/infrastructure/logger"
)

func TestMetricsCollector_Report(t *testing.T) {
	m := NewMetricsCollector()
	m.RecordFetch(100*time.Millisecond, 1, true)
	m.RecordFetch(300*time.Millisecond, 3, false)
	m.RecordKeyword(5, 3, 2)
	m.RecordKeyword(0, 0, 0)
	m.RecordStoreFailure()
	m.RecordRun()

	r := m.GetReport()
	assert.EqualValues(t, 2, r.FetchStats.TotalCalls)
	assert.EqualValues(t, 1, r.FetchStats.Successful)
	assert.EqualValues(t, 1, r.FetchStats.Failed)
	assert.EqualValues(t, 4, r.FetchStats.Attempts)
	assert.InDelta(t, 50.0, r.FetchStats.SuccessRate, 0.001)
	assert.EqualValues(t, 200, r.FetchStats.AverageLatency)

	assert.EqualValues(t, 2, r.StoreStats.Keywords)
	assert.EqualValues(t, 5, r.StoreStats.Fetched)
	assert.EqualValues(t, 3, r.StoreStats.NewArticles)
	assert.EqualValues(t, 2, r.StoreStats.Duplicates)
	assert.EqualValues(t, 1, r.StoreStats.Failures)
	assert.EqualValues(t, 1, r.RuntimeInfo.Runs)
}

func TestMetricsCollector_NilSafe(t *testing.T) {
	var m *MetricsCollector
	assert.NotPanics(t, func() {
		m.RecordFetch(time.Second, 1, true)
		m.RecordKeyword(1, 1, 0)
		m.RecordStoreFailure()
		m.RecordRun()
		LogMetrics(m)
	})
}

func TestLogMetrics(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	defer logger.ReplaceCore(core)()

	m := NewMetricsCollector()
	m.RecordKeyword(2, 1, 1)
	LogMetrics(m)

	entries := logs.FilterMessage("📊 采集指标上报").All()
	if assert.Len(t, entries, 1) {
		assert.EqualValues(t, 1, entries[0].ContextMap()["articles_new"])
	}
}
