package service

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/wolfitem/news-collector/internal/domain/model"
)

// MinTitleLength 标题的最小有效长度
const MinTitleLength = 10

var (
	// ErrNoKeywords 关键词列表为空
	ErrNoKeywords = errors.New("关键词列表不能为空")
	// ErrNoStorageDir 未配置存储目录
	ErrNoStorageDir = errors.New("存储目录不能为空")
)

// IsValidArticle 检查文章是否包含最少的必要信息
func IsValidArticle(article model.Article) bool {
	title := strings.TrimSpace(article.Title)
	if utf8.RuneCountInString(title) < MinTitleLength {
		return false
	}

	// 必须有链接，或者有足够生成摘要的内容
	if strings.TrimSpace(article.Link) != "" {
		return true
	}
	return strings.TrimSpace(article.Published) != ""
}

// ValidateConfig 校验采集配置，任何错误都应在运行开始前终止程序
func ValidateConfig(cfg model.CollectorConfig) error {
	var errs []error

	if err := ValidateKeywordGroups(cfg.KeywordGroups); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(cfg.Storage.BaseDir) == "" {
		errs = append(errs, ErrNoStorageDir)
	}
	if cfg.Storage.CleanupDays < 0 {
		errs = append(errs, fmt.Errorf("保留天数不能为负数: %d", cfg.Storage.CleanupDays))
	}

	n := cfg.Network
	if n.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("超时时间必须大于0: %d", n.TimeoutSeconds))
	}
	if n.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("重试次数不能为负数: %d", n.MaxRetries))
	}
	if n.BackoffFactor < 1 {
		errs = append(errs, fmt.Errorf("退避倍数不能小于1: %v", n.BackoffFactor))
	}
	if n.InitialBackoffSeconds < 0 || n.KeywordPauseSeconds < 0 || n.GroupPauseMinutes < 0 {
		errs = append(errs, errors.New("等待与暂停时间不能为负数"))
	}
	if n.RequestDelayMinSeconds < 0 || n.RequestDelayMaxSeconds < n.RequestDelayMinSeconds {
		errs = append(errs, fmt.Errorf("请求延迟范围无效: [%v, %v]", n.RequestDelayMinSeconds, n.RequestDelayMaxSeconds))
	}

	for _, t := range cfg.Schedule.Times {
		if _, err := time.Parse("15:04", strings.TrimSpace(t)); err != nil {
			errs = append(errs, fmt.Errorf("无效的定时时间 %q: %w", t, err))
		}
	}

	return errors.Join(errs...)
}

// ValidateKeywordGroups 至少需要一个非空关键词
func ValidateKeywordGroups(groups []model.KeywordGroup) error {
	for _, group := range groups {
		for _, term := range group.Terms {
			if strings.TrimSpace(term) != "" {
				return nil
			}
		}
	}
	return ErrNoKeywords
}
