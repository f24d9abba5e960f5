package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wolfitem/news-collector/internal/domain/model"
	"github.com/wolfitem/news-collector/internal/infrastructure/logger"
	"github.com/wolfitem/news-collector/internal/middleware"
)

const (
	defaultUserAgent      = "Mozilla/5.0 (compatible; NewsCollector/1.0)"
	defaultAcceptLanguage = "en-US,en;q=0.9"
	acceptFeeds           = "application/rss+xml, application/xml, text/xml, */*"

	// 响应体大小上限
	maxBodySize = 10 * 1024 * 1024

	retryJitter = 0.1
)

var (
	// ErrEmptyResponse 响应体为空
	ErrEmptyResponse = errors.New("响应内容为空")
	// ErrNotFeedContent 响应内容不是RSS/XML
	ErrNotFeedContent = errors.New("响应内容不是RSS/XML")
)

// StatusError 非2xx响应
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("服务器返回状态码 %d", e.StatusCode)
}

// FetchError 重试耗尽后的抓取失败
type FetchError struct {
	Keyword  string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("抓取关键词 %q 失败（共尝试%d次）: %v", e.Keyword, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher 按关键词抓取原始feed内容
type Fetcher interface {
	Fetch(ctx context.Context, keyword string) (string, error)
}

// FetcherOption 抓取器选项
type FetcherOption func(*httpFetcher)

// WithHTTPClient 使用自定义HTTP客户端
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *httpFetcher) { f.client = client }
}

// WithSleeper 替换等待函数
func WithSleeper(sleep middleware.SleepFunc) FetcherOption {
	return func(f *httpFetcher) { f.sleep = sleep }
}

// WithRand 替换随机数来源
func WithRand(random func() float64) FetcherOption {
	return func(f *httpFetcher) { f.random = random }
}

// WithURLBuilder 替换地址构造函数
func WithURLBuilder(build func(keyword string) string) FetcherOption {
	return func(f *httpFetcher) { f.buildURL = build }
}

// WithRateLimiter 设置请求速率限制
func WithRateLimiter(limiter *middleware.RateLimiter) FetcherOption {
	return func(f *httpFetcher) { f.limiter = limiter }
}

// WithMetrics 记录抓取指标
func WithMetrics(metrics *middleware.MetricsCollector) FetcherOption {
	return func(f *httpFetcher) { f.metrics = metrics }
}

// httpFetcher 基于HTTP的抓取实现，除共享只读的client外无可变状态
type httpFetcher struct {
	cfg      model.NetworkConfig
	client   *http.Client
	sleep    middleware.SleepFunc
	random   func() float64
	buildURL func(keyword string) string
	limiter  *middleware.RateLimiter
	metrics  *middleware.MetricsCollector
}

// NewFetcher 创建抓取器
func NewFetcher(cfg model.NetworkConfig, opts ...FetcherOption) Fetcher {
	f := &httpFetcher{
		cfg:    cfg,
		sleep:  middleware.Sleep,
		random: rand.Float64,
	}
	f.buildURL = func(keyword string) string {
		return BuildURL(keyword, cfg.Language, cfg.Country)
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = newHTTPClient(cfg)
	}
	return f
}

func newHTTPClient(cfg model.NetworkConfig) *http.Client {
	// 基于默认Transport，保留环境代理(NO_PROXY)与HTTP/2
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSHandshakeTimeout = 15 * time.Second
	transport.ResponseHeaderTimeout = cfg.Timeout()
	transport.MaxIdleConnsPerHost = 4
	transport.IdleConnTimeout = 90 * time.Second
	if cfg.ProxyURL != "" {
		if proxy, err := url.Parse(cfg.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(proxy)
		} else {
			logger.Warn("代理地址无效，忽略代理配置", "proxy", cfg.ProxyURL, "error", err)
		}
	}
	return &http.Client{
		Timeout:   cfg.Timeout(),
		Transport: transport,
	}
}

// Fetch 抓取关键词对应的feed，失败时按指数退避重试
func (f *httpFetcher) Fetch(ctx context.Context, keyword string) (string, error) {
	feedURL := f.buildURL(keyword)
	log := logger.With("keyword", keyword)
	log.Info("开始抓取RSS", "url", feedURL)

	// 请求前随机延迟，避免请求过于集中
	if delay := f.requestDelay(); delay > 0 {
		log.Debug("请求前等待", "delay_ms", delay.Milliseconds())
		if err := f.sleep(ctx, delay); err != nil {
			return "", err
		}
	}

	start := time.Now()
	var content string
	policy := middleware.RetryPolicy{
		MaxRetries:    f.cfg.MaxRetries,
		InitialDelay:  f.cfg.InitialBackoff(),
		BackoffFactor: f.cfg.BackoffFactor,
		Jitter:        retryJitter,
		Sleep:         f.sleep,
		Rand:          f.random,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			log.Warn("抓取失败，准备重试", "attempt", attempt, "backoff_ms", delay.Milliseconds(), "error", err)
		},
	}
	attempts, err := middleware.RetryWithBackoff(ctx, policy, func(int) error {
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}
		body, err := f.fetchOnce(ctx, feedURL)
		if err != nil {
			return err
		}
		content = body
		return nil
	})
	f.metrics.RecordFetch(time.Since(start), attempts, err == nil)

	if err != nil {
		log.Error("抓取RSS失败，已达到最大重试次数", "attempts", attempts, "error", err)
		return "", &FetchError{Keyword: keyword, Attempts: attempts, Err: err}
	}

	log.Info("成功抓取RSS", "attempts", attempts, "content_length", len(content))
	return content, nil
}

func (f *httpFetcher) requestDelay() time.Duration {
	lo, hi := f.cfg.RequestDelayMinSeconds, f.cfg.RequestDelayMaxSeconds
	if hi < lo {
		hi = lo
	}
	return time.Duration((lo + f.random()*(hi-lo)) * float64(time.Second))
}

// fetchOnce 发起一次GET请求并校验响应
func (f *httpFetcher) fetchOnce(ctx context.Context, feedURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}

	userAgent := f.cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	acceptLanguage := f.cfg.AcceptLanguage
	if acceptLanguage == "" {
		acceptLanguage = defaultAcceptLanguage
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptFeeds)
	req.Header.Set("Accept-Language", acceptLanguage)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// 读完响应体以便复用连接
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return "", &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("读取响应失败: %w", err)
	}
	if err := validateFeedContent(resp.Header.Get("Content-Type"), body); err != nil {
		return "", err
	}
	return string(body), nil
}

// validateFeedContent 检查响应是否像RSS/XML
func validateFeedContent(contentType string, body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ErrEmptyResponse
	}

	contentType = strings.ToLower(contentType)
	if strings.Contains(contentType, "xml") || strings.Contains(contentType, "rss") {
		return nil
	}

	// 内容类型不符时，根据内容开头判断
	for _, prefix := range []string{"<?xml", "<rss", "<feed"} {
		if bytes.HasPrefix(trimmed, []byte(prefix)) {
			return nil
		}
	}
	return fmt.Errorf("%w (Content-Type: %s)", ErrNotFeedContent, contentType)
}
