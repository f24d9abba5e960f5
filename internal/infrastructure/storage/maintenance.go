package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/wolfitem/news-collector/internal/domain/model"
	"github.com/wolfitem/news-collector/internal/infrastructure/logger"
)

// DailyStats 返回某天的统计
func (s *DailyStore) DailyStats(date time.Time) model.DailyStats {
	feeds := s.Load(date)
	stats := model.DailyStats{
		Date:       date.Format(model.DateLayout),
		TotalFeeds: len(feeds),
	}
	for _, feed := range feeds {
		stats.TotalArticles += len(feed.Articles)
	}
	return stats
}

// ListDates 列出所有存在每日数据文件的日期，按升序排列
func (s *DailyStore) ListDates() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("读取存储目录失败: %w", err)
	}

	var dates []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasSuffix(name, "_stats.json") {
			continue
		}
		date := strings.TrimSuffix(name, ".json")
		if _, err := time.Parse(model.DateLayout, date); err != nil {
			continue
		}
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates, nil
}

// Cleanup 删除超过保留天数的数据文件，返回删除数量
// 截止点为今天零点减去daysToKeep天，日期正好等于截止日的文件会保留
func (s *DailyStore) Cleanup(daysToKeep int) (int, error) {
	now := s.now()
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -daysToKeep)
	removed := 0

	for _, dir := range s.dirs() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			logger.Error("读取目录失败", "dir", dir, "error", err)
			return removed, fmt.Errorf("读取目录失败: %w", err)
		}

		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !(strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".jsonl")) {
				continue
			}
			fileDate, ok := dateFromFileName(name, now.Location())
			if !ok || !fileDate.Before(cutoff) {
				continue
			}
			path := filepath.Join(dir, name)
			if err := os.Remove(path); err != nil {
				logger.Warn("删除过期文件失败", "file", path, "error", err)
				continue
			}
			removed++
			logger.Debug("删除过期文件", "file", path)
		}
	}

	logger.Info("清理完成", "removed", removed, "days_to_keep", daysToKeep)
	return removed, nil
}

// dateFromFileName 文件名以 YYYY-MM-DD 开头
func dateFromFileName(name string, loc *time.Location) (time.Time, bool) {
	if len(name) < len(model.DateLayout) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(model.DateLayout, name[:len(model.DateLayout)], loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
