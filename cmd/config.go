package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/wolfitem/news-collector/internal/domain/model"
	"github.com/wolfitem/news-collector/internal/domain/service"
	"github.com/wolfitem/news-collector/internal/infrastructure/config"
)

// loadCollectorConfig 从viper读取完整配置并校验
func loadCollectorConfig(v *viper.Viper) (model.CollectorConfig, error) {
	cfg := model.CollectorConfig{
		Network: model.NetworkConfig{
			TimeoutSeconds:         v.GetInt("networking.timeout_seconds"),
			MaxRetries:             maxRetries(v),
			BackoffFactor:          v.GetFloat64("networking.backoff_factor"),
			InitialBackoffSeconds:  v.GetFloat64("networking.initial_backoff_seconds"),
			KeywordPauseSeconds:    v.GetFloat64("networking.keyword_pause_seconds"),
			GroupPauseMinutes:      v.GetFloat64("networking.group_pause_minutes"),
			RequestDelayMinSeconds: v.GetFloat64("networking.request_delay_min_seconds"),
			RequestDelayMaxSeconds: v.GetFloat64("networking.request_delay_max_seconds"),
			UserAgent:              v.GetString("networking.user_agent"),
			AcceptLanguage:         v.GetString("networking.accept_language"),
			ProxyURL:               strings.TrimSpace(v.GetString("networking.proxy_url")),
			Language:               v.GetString("networking.language"),
			Country:                v.GetString("networking.country"),
			Concurrency:            v.GetInt("networking.concurrency"),
			RequestsPerMinute:      v.GetInt("networking.requests_per_minute"),
		},
		Storage: model.StorageConfig{
			BaseDir:      v.GetString("storage.base_dir"),
			JSONLDir:     v.GetString("storage.jsonl_dir"),
			OutputDir:    v.GetString("storage.output_dir"),
			CleanupDays:  v.GetInt("storage.cleanup_days"),
			CreateJSONL:  v.GetBool("storage.create_jsonl"),
			StatsEnabled: v.GetBool("storage.stats_enabled"),
		},
		Database: model.DatabaseConfig{
			Enabled:  v.GetBool("database.enabled"),
			FilePath: v.GetString("database.file_path"),
		},
		Schedule: model.ScheduleConfig{
			Times:          cast.ToStringSlice(v.Get("schedule.times")),
			Timezone:       v.GetString("schedule.timezone"),
			CleanupEnabled: v.GetBool("schedule.cleanup_enabled"),
		},
		FeedsFile: v.GetString("feeds.file"),
	}

	groups, err := keywordGroups(v, cfg.FeedsFile)
	if err != nil {
		return cfg, err
	}
	cfg.KeywordGroups = groups

	if err := service.ValidateConfig(cfg); err != nil {
		return cfg, fmt.Errorf("配置无效: %w", err)
	}
	return cfg, nil
}

// maxRetries 兼容旧配置项 retry_attempts
func maxRetries(v *viper.Viper) int {
	if v.IsSet("networking.retry_attempts") && !v.InConfig("networking.max_retries") {
		return v.GetInt("networking.retry_attempts")
	}
	return v.GetInt("networking.max_retries")
}

// keywordGroups 优先使用配置文件中内联的 keyword_groups，否则读取 feeds.file
func keywordGroups(v *viper.Viper, feedsFile string) ([]model.KeywordGroup, error) {
	if v.IsSet("keyword_groups") {
		return inlineGroups(v.Get("keyword_groups"))
	}
	groups, err := config.LoadKeywordGroups(feedsFile)
	if err != nil {
		return nil, fmt.Errorf("加载关键词文件失败: %w", err)
	}
	return groups, nil
}

// inlineGroups 将viper读取的松散结构转换为分组，每项可以是字符串或 {name, terms}
func inlineGroups(raw interface{}) ([]model.KeywordGroup, error) {
	items, err := cast.ToSliceE(raw)
	if err != nil {
		return nil, fmt.Errorf("keyword_groups 必须是列表: %w", err)
	}

	groups := make([]model.KeywordGroup, 0, len(items))
	for i, item := range items {
		if s, ok := item.(string); ok {
			groups = append(groups, model.KeywordGroup{Name: s, Terms: []string{s}})
			continue
		}
		m, err := cast.ToStringMapE(item)
		if err != nil {
			return nil, fmt.Errorf("keyword_groups 第%d项格式无效: %w", i+1, err)
		}
		groups = append(groups, model.KeywordGroup{
			Name:  cast.ToString(m["name"]),
			Terms: cast.ToStringSlice(m["terms"]),
		})
	}
	return config.NormalizeGroups(groups), nil
}
