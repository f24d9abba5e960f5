package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/wolfitem/news-collector/internal/domain/model"
	"github.com/wolfitem/news-collector/internal/domain/service"
	"github.com/wolfitem/news-collector/internal/infrastructure/logger"
)

// ArticleIndex 新文章的镜像索引（可选），不参与去重判断
type ArticleIndex interface {
	SaveArticles(date string, result model.FeedResult) (int, error)
}

// Option DailyStore选项
type Option func(*DailyStore)

// WithClock 替换时钟，测试中用于固定日期
func WithClock(now func() time.Time) Option {
	return func(s *DailyStore) { s.now = now }
}

// WithArticleIndex 新文章写入存储后同步写入索引
func WithArticleIndex(index ArticleIndex) Option {
	return func(s *DailyStore) { s.index = index }
}

// DailyStore 按天存储FeedResult，每次写入都完整重写当天文件
type DailyStore struct {
	baseDir      string
	jsonlDir     string
	outputDir    string
	createJSONL  bool
	statsEnabled bool

	now   func() time.Time
	index ArticleIndex

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewDailyStore 创建存储并确保目录存在
func NewDailyStore(cfg model.StorageConfig, opts ...Option) (*DailyStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, service.ErrNoStorageDir
	}
	s := &DailyStore{
		baseDir:      cfg.BaseDir,
		jsonlDir:     cfg.JSONLDir,
		outputDir:    cfg.OutputDir,
		createJSONL:  cfg.CreateJSONL,
		statsEnabled: cfg.StatsEnabled,
		now:          time.Now,
		locks:        make(map[string]*sync.Mutex),
	}
	if s.jsonlDir == "" {
		s.jsonlDir = s.baseDir
	}
	if s.outputDir == "" {
		s.outputDir = s.baseDir
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, dir := range s.dirs() {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("创建存储目录失败: %w", err)
		}
	}
	logger.Debug("每日存储初始化完成", "base_dir", s.baseDir, "jsonl_dir", s.jsonlDir, "output_dir", s.outputDir)
	return s, nil
}

// dirs 返回去重后的存储目录
func (s *DailyStore) dirs() []string {
	var dirs []string
	seen := make(map[string]bool)
	for _, dir := range []string{s.baseDir, s.jsonlDir, s.outputDir} {
		clean := filepath.Clean(dir)
		if !seen[clean] {
			seen[clean] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// lockFor 返回某一天文件的互斥锁，不同日期互不影响
func (s *DailyStore) lockFor(date string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[date]
	if !ok {
		l = &sync.Mutex{}
		s.locks[date] = l
	}
	return l
}

// DailyFilePath 返回某天的存储文件路径
func (s *DailyStore) DailyFilePath(date time.Time) string {
	return filepath.Join(s.baseDir, date.Format(model.DateLayout)+".json")
}

// Store 去重后追加当天数据，并完整重写当天文件
func (s *DailyStore) Store(result model.FeedResult) (model.StoreStats, error) {
	today := s.now()
	date := today.Format(model.DateLayout)
	log := logger.With("query", result.Query, "date", date)

	lock := s.lockFor(date)
	lock.Lock()
	defer lock.Unlock()

	existing := s.load(today)
	filtered := service.Filter(result.Articles, existing)
	stats := model.StoreStats{
		NewArticles:     len(filtered.New),
		DuplicatesFound: len(filtered.Duplicates),
		TotalArticles:   len(result.Articles),
	}
	for _, dup := range filtered.Duplicates {
		log.Debug("发现重复文章", "title", dup.Title)
	}

	if len(filtered.New) > 0 {
		entry := model.FeedResult{
			FetchedAt: result.FetchedAt,
			Query:     result.Query,
			SourceURL: result.SourceURL,
			Articles:  filtered.New,
		}
		if entry.FetchedAt == "" {
			entry.FetchedAt = today.UTC().Format(model.TimestampLayout)
		}

		if err := s.save(append(existing, entry), today); err != nil {
			log.Error("保存每日数据失败", "error", err)
			return stats, err
		}

		if s.createJSONL {
			if err := s.appendJSONL(filtered.New, result.Query, today); err != nil {
				log.Error("写入JSONL失败", "error", err)
			}
		}
		if s.index != nil {
			if _, err := s.index.SaveArticles(date, entry); err != nil {
				log.Error("写入文章索引失败", "error", err)
			}
		}
	}

	log.Info("存储统计", "new_articles", stats.NewArticles, "duplicates_found", stats.DuplicatesFound, "total_articles", stats.TotalArticles)
	return stats, nil
}

// Load 读取某天的全部数据
func (s *DailyStore) Load(date time.Time) []model.FeedResult {
	lock := s.lockFor(date.Format(model.DateLayout))
	lock.Lock()
	defer lock.Unlock()
	return s.load(date)
}

// load 读取当天文件；文件不存在或内容损坏时返回空
func (s *DailyStore) load(date time.Time) []model.FeedResult {
	path := s.DailyFilePath(date)

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Error("读取每日数据失败，按空数据处理", "file", path, "error", err)
		}
		return nil
	}

	var feeds []model.FeedResult
	if err := json.Unmarshal(data, &feeds); err != nil {
		logger.Warn("每日数据文件格式无效，按空数据处理，下次写入将覆盖原文件", "file", path, "error", err)
		return nil
	}
	logger.Debug("读取已有数据", "file", path, "feeds", len(feeds))
	return feeds
}

// save 通过临时文件加重命名完整重写当天文件
func (s *DailyStore) save(feeds []model.FeedResult, date time.Time) error {
	path := s.DailyFilePath(date)

	data, err := marshalIndent(feeds)
	if err != nil {
		return fmt.Errorf("序列化每日数据失败: %w", err)
	}

	tmp, err := os.CreateTemp(s.baseDir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("同步临时文件失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("关闭临时文件失败: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("替换每日数据文件失败: %w", err)
	}

	logger.Debug("保存每日数据", "file", path, "feeds", len(feeds))
	return nil
}

// appendJSONL 追加新文章到JSONL文件（每行一篇）
func (s *DailyStore) appendJSONL(articles []model.Article, query string, date time.Time) error {
	path := s.JSONLPath(query, date)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, article := range articles {
		if err := enc.Encode(article); err != nil {
			return fmt.Errorf("序列化文章失败: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("打开JSONL文件失败: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("写入JSONL文件失败: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("关闭JSONL文件失败: %w", err)
	}

	logger.Debug("写入JSONL", "file", path, "articles", len(articles))
	return nil
}

// JSONLPath 返回关键词当天的JSONL路径
func (s *DailyStore) JSONLPath(query string, date time.Time) string {
	return filepath.Join(s.jsonlDir, fmt.Sprintf("%s_%s.jsonl", date.Format(model.DateLayout), SafeName(query)))
}

// StatsPath 返回关键词当天的统计文件路径
func (s *DailyStore) StatsPath(query string, date time.Time) string {
	return filepath.Join(s.outputDir, fmt.Sprintf("%s__%s_stats.json", date.Format(model.DateLayout), SafeName(query)))
}

// keywordStats 关键词统计文件内容
type keywordStats struct {
	Timestamp string `json:"timestamp"`
	Query     string `json:"query"`
	model.StoreStats
}

// WriteKeywordStats 写入关键词的统计文件；未启用时不做任何事
func (s *DailyStore) WriteKeywordStats(query string, stats model.StoreStats) error {
	if !s.statsEnabled {
		return nil
	}
	now := s.now()
	data, err := marshalIndent(keywordStats{
		Timestamp:  now.UTC().Format(model.TimestampLayout),
		Query:      query,
		StoreStats: stats,
	})
	if err != nil {
		return fmt.Errorf("序列化统计失败: %w", err)
	}
	if err := os.WriteFile(s.StatsPath(query, now), data, 0644); err != nil {
		return fmt.Errorf("写入统计文件失败: %w", err)
	}
	return nil
}

// SafeName 将关键词转换为可用于文件名的形式
func SafeName(query string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(query))
}

func marshalIndent(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
