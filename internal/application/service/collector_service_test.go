package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfitem/news-collector/internal/domain/model"
	"github.com/wolfitem/news-collector/internal/domain/service"
	"github.com/wolfitem/news-collector/internal/infrastructure/storage"
	"github.com/wolfitem/news-collector/internal/middleware"
)

var collectNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.Local)

// fakeFetcher 按关键词返回预置的feed内容
type fakeFetcher struct {
	mu      sync.Mutex
	feeds   map[string]string
	errs    map[string]error
	calls   []string
	onFetch func(keyword string)
}

func (f *fakeFetcher) Fetch(ctx context.Context, keyword string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, keyword)
	f.mu.Unlock()
	if f.onFetch != nil {
		f.onFetch(keyword)
	}
	if err, ok := f.errs[keyword]; ok {
		return "", err
	}
	return f.feeds[keyword], nil
}

type pauseRecorder struct {
	mu     sync.Mutex
	pauses []time.Duration
}

func (p *pauseRecorder) sleep(ctx context.Context, d time.Duration) error {
	p.mu.Lock()
	p.pauses = append(p.pauses, d)
	p.mu.Unlock()
	return ctx.Err()
}

func rssWith(items ...string) string {
	return `<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>t</title><link>https://news.google.com/</link>` +
		strings.Join(items, "") + `</channel></rss>`
}

func rssItem(title, link string) string {
	return fmt.Sprintf(`<item><title>%s</title><link>%s</link><pubDate>Tue, 10 Jun 2025 10:30:00 GMT</pubDate></item>`, title, link)
}

func newTestCollector(t *testing.T, cfg model.NetworkConfig, groups GroupSource, fetcher service.Fetcher, opts ...CollectorOption) (CollectorService, *storage.DailyStore, *pauseRecorder) {
	t.Helper()
	store, err := storage.NewDailyStore(model.StorageConfig{BaseDir: t.TempDir()},
		storage.WithClock(func() time.Time { return collectNow }))
	require.NoError(t, err)

	pauses := &pauseRecorder{}
	opts = append([]CollectorOption{WithPauseSleeper(pauses.sleep)}, opts...)
	return NewCollectorService(cfg, groups, fetcher, service.NewFeedParser(), store, opts...), store, pauses
}

func TestRunCollection_EndToEnd(t *testing.T) {
	fetcher := &fakeFetcher{feeds: map[string]string{
		"quantum computing": rssWith(
			rssItem("Quantum chips scale up", "https://example.com/q1"),
			rssItem("N/A", "https://example.com/q2"),
		),
	}}
	groups := StaticGroups([]model.KeywordGroup{{Name: "Tech", Terms: []string{"quantum computing"}}})
	metrics := middleware.NewMetricsCollector()

	collector, store, _ := newTestCollector(t, model.NetworkConfig{}, groups, fetcher, WithCollectorMetrics(metrics))
	summary := collector.RunCollection(context.Background())

	assert.Equal(t, 1, summary.TotalArticles)
	assert.Equal(t, 1, summary.NewArticles)
	assert.Equal(t, 0, summary.Errors)
	assert.Equal(t, 1, summary.KeywordsProcessed)
	assert.Equal(t, model.RunStateCompleted, summary.State)
	assert.InDelta(t, 100.0, summary.SuccessRate, 0.001)
	assert.NotEmpty(t, summary.RunID)
	assert.False(t, summary.Interrupted)

	feeds := store.Load(collectNow)
	require.Len(t, feeds, 1)
	assert.Equal(t, "quantum computing", feeds[0].Query)
	require.Len(t, feeds[0].Articles, 1)
	assert.Equal(t, "Quantum chips scale up", feeds[0].Articles[0].Title)

	assert.Equal(t, model.RunProgress{State: model.RunStateCompleted}, collector.Progress())
	assert.EqualValues(t, 1, metrics.GetReport().RuntimeInfo.Runs)
}

func TestRunCollection_SecondRunFindsDuplicates(t *testing.T) {
	fetcher := &fakeFetcher{feeds: map[string]string{
		"ai": rssWith(rssItem("Artificial intelligence news", "https://example.com/ai")),
	}}
	groups := StaticGroups([]model.KeywordGroup{{Name: "Tech", Terms: []string{"ai"}}})
	collector, store, _ := newTestCollector(t, model.NetworkConfig{}, groups, fetcher)

	first := collector.RunCollection(context.Background())
	second := collector.RunCollection(context.Background())

	assert.Equal(t, 1, first.NewArticles)
	assert.Equal(t, 0, second.NewArticles)
	assert.Equal(t, 1, second.Duplicates)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Len(t, store.Load(collectNow), 1)
}

func TestRunCollection_GroupLoadFailure(t *testing.T) {
	fetcher := &fakeFetcher{}
	groups := func() ([]model.KeywordGroup, error) { return nil, errors.New("config unreadable") }

	collector, _, _ := newTestCollector(t, model.NetworkConfig{}, groups, fetcher)
	summary := collector.RunCollection(context.Background())

	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 0, summary.TotalArticles)
	assert.Equal(t, 0, summary.KeywordsProcessed)
	assert.Equal(t, model.RunStateFailed, summary.State)
	assert.Equal(t, 0.0, summary.SuccessRate)
	assert.Empty(t, fetcher.calls)
}

func TestRunCollection_KeywordFailureDoesNotAbort(t *testing.T) {
	fetcher := &fakeFetcher{
		feeds: map[string]string{"good": rssWith(rssItem("A perfectly good headline", "https://example.com/g"))},
		errs:  map[string]error{"bad": errors.New("connection reset")},
	}
	groups := StaticGroups([]model.KeywordGroup{{Name: "G", Terms: []string{"bad", "good", "empty"}}})

	collector, _, _ := newTestCollector(t, model.NetworkConfig{}, groups, fetcher)
	summary := collector.RunCollection(context.Background())

	assert.Equal(t, []string{"bad", "good", "empty"}, fetcher.calls)
	assert.Equal(t, 3, summary.KeywordsProcessed)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 1, summary.TotalArticles)
	assert.InDelta(t, 66.666, summary.SuccessRate, 0.01)
	assert.Equal(t, model.RunStateCompleted, summary.State)
}

func TestRunCollection_PanicIsContained(t *testing.T) {
	fetcher := &fakeFetcher{
		feeds:   map[string]string{"ok": rssWith(rssItem("Headline after the panic", "https://example.com/ok"))},
		onFetch: func(k string) {
			if k == "explode" {
				panic("boom")
			}
		},
	}
	groups := StaticGroups([]model.KeywordGroup{{Name: "G", Terms: []string{"explode", "ok"}}})

	collector, _, _ := newTestCollector(t, model.NetworkConfig{}, groups, fetcher)
	summary := collector.RunCollection(context.Background())

	assert.Equal(t, 2, summary.KeywordsProcessed)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 1, summary.NewArticles)
}

func TestRunCollection_Pauses(t *testing.T) {
	fetcher := &fakeFetcher{}
	groups := StaticGroups([]model.KeywordGroup{
		{Name: "A", Terms: []string{"a1", "a2", "a3"}},
		{Name: "B", Terms: []string{"b1"}},
		{Name: "C", Terms: []string{"c1", "c2"}},
	})
	cfg := model.NetworkConfig{KeywordPauseSeconds: 2, GroupPauseMinutes: 1}

	collector, _, pauses := newTestCollector(t, cfg, groups, fetcher)
	summary := collector.RunCollection(context.Background())

	assert.Equal(t, 6, summary.KeywordsProcessed)
	assert.Equal(t, []time.Duration{
		2 * time.Second, 2 * time.Second, // a1, a2
		time.Minute, // A -> B
		time.Minute, // B -> C
		2 * time.Second, // c1
	}, pauses.pauses)
}

func TestRunCollection_EmptyGroupHasNoPause(t *testing.T) {
	fetcher := &fakeFetcher{}
	groups := StaticGroups([]model.KeywordGroup{
		{Name: "A", Terms: []string{"a1"}},
		{Name: "Empty"},
		{Name: "C", Terms: []string{"c1"}},
	})
	cfg := model.NetworkConfig{KeywordPauseSeconds: 2, GroupPauseMinutes: 1}

	collector, _, pauses := newTestCollector(t, cfg, groups, fetcher)
	summary := collector.RunCollection(context.Background())

	assert.Equal(t, 2, summary.KeywordsProcessed)
	assert.Equal(t, []time.Duration{time.Minute}, pauses.pauses)
}

func TestRunCollection_InterruptedBetweenKeywords(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := &fakeFetcher{
		feeds:   map[string]string{"first": rssWith(rssItem("First keyword headline", "https://example.com/1"))},
		onFetch: func(string) { cancel() },
	}
	groups := StaticGroups([]model.KeywordGroup{
		{Name: "A", Terms: []string{"first", "second"}},
		{Name: "B", Terms: []string{"third"}},
	})

	collector, store, _ := newTestCollector(t, model.NetworkConfig{}, groups, fetcher)
	summary := collector.RunCollection(ctx)

	assert.True(t, summary.Interrupted)
	assert.Equal(t, []string{"first"}, fetcher.calls)
	assert.Equal(t, 1, summary.KeywordsProcessed)
	assert.Len(t, store.Load(collectNow), 1, "partial progress is kept")
}

func TestRunCollection_Concurrent(t *testing.T) {
	terms := []string{"k1", "k2", "k3", "k4", "k5"}
	feeds := make(map[string]string)
	for i, k := range terms {
		feeds[k] = rssWith(rssItem(fmt.Sprintf("Headline for keyword %d", i), fmt.Sprintf("https://example.com/%d", i)))
	}
	fetcher := &fakeFetcher{feeds: feeds, errs: map[string]error{"k3": errors.New("timeout")}}
	groups := StaticGroups([]model.KeywordGroup{{Name: "A", Terms: terms}})

	collector, store, pauses := newTestCollector(t, model.NetworkConfig{Concurrency: 3, KeywordPauseSeconds: 5}, groups, fetcher)
	summary := collector.RunCollection(context.Background())

	assert.Equal(t, 5, summary.KeywordsProcessed)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 4, summary.NewArticles)
	assert.Len(t, fetcher.calls, 5)
	assert.Empty(t, pauses.pauses)

	var order []string
	for _, f := range store.Load(collectNow) {
		order = append(order, f.Query)
	}
	assert.Equal(t, []string{"k1", "k2", "k4", "k5"}, order, "results are stored in keyword order")
}

type failingStore struct{}

func (failingStore) Store(model.FeedResult) (model.StoreStats, error) {
	return model.StoreStats{}, errors.New("disk full")
}

func (failingStore) WriteKeywordStats(string, model.StoreStats) error { return nil }

func TestRunCollection_StoreFailureIsCounted(t *testing.T) {
	fetcher := &fakeFetcher{feeds: map[string]string{
		"k": rssWith(rssItem("Headline that cannot be saved", "https://example.com/x")),
	}}
	metrics := middleware.NewMetricsCollector()
	collector := NewCollectorService(model.NetworkConfig{},
		StaticGroups([]model.KeywordGroup{{Name: "G", Terms: []string{"k"}}}),
		fetcher, service.NewFeedParser(), failingStore{},
		WithCollectorMetrics(metrics))

	summary := collector.RunCollection(context.Background())
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 0, summary.TotalArticles)
	assert.EqualValues(t, 1, metrics.GetReport().StoreStats.Failures)
}

func TestProgress_Idle(t *testing.T) {
	collector, _, _ := newTestCollector(t, model.NetworkConfig{}, StaticGroups(nil), &fakeFetcher{})
	assert.Equal(t, model.RunStateIdle, collector.Progress().State)
}
