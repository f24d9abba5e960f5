package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfitem/news-collector/internal/domain/model"
)

func TestIsValidArticle(t *testing.T) {
	assert.False(t, IsValidArticle(model.Article{Title: "Hi", Link: "https://example.com/a"}))
	assert.True(t, IsValidArticle(model.Article{Title: "Fifteen chars!!", Link: "https://example.com/a"}))
	assert.True(t, IsValidArticle(model.Article{Title: "Title without link", Published: "2025-06-10T05:00:00Z"}))
	assert.False(t, IsValidArticle(model.Article{Title: "Title without anything"}))
	assert.False(t, IsValidArticle(model.Article{Title: "   short   ", Link: "https://example.com/a"}))
	assert.True(t, IsValidArticle(model.Article{Title: "量子计算取得重大突破消息", Link: "https://example.com/a"}))
}

func validConfig() model.CollectorConfig {
	return model.CollectorConfig{
		Network: model.NetworkConfig{
			TimeoutSeconds:         30,
			MaxRetries:             3,
			BackoffFactor:          2,
			InitialBackoffSeconds:  1,
			KeywordPauseSeconds:    5,
			GroupPauseMinutes:      1,
			RequestDelayMinSeconds: 1,
			RequestDelayMaxSeconds: 3,
		},
		Storage:       model.StorageConfig{BaseDir: "data", CleanupDays: 30},
		Schedule:      model.ScheduleConfig{Times: []string{"05:00", "14:00"}},
		KeywordGroups: []model.KeywordGroup{{Name: "Tech", Terms: []string{"quantum computing"}}},
	}
}

func TestValidateConfig(t *testing.T) {
	require.NoError(t, ValidateConfig(validConfig()))

	cfg := validConfig()
	cfg.KeywordGroups = []model.KeywordGroup{{Name: "Empty", Terms: []string{"  "}}}
	assert.True(t, errors.Is(ValidateConfig(cfg), ErrNoKeywords))

	cfg = validConfig()
	cfg.Storage.BaseDir = ""
	assert.True(t, errors.Is(ValidateConfig(cfg), ErrNoStorageDir))

	cfg = validConfig()
	cfg.Network.TimeoutSeconds = 0
	cfg.Network.MaxRetries = -1
	cfg.Network.RequestDelayMaxSeconds = 0
	cfg.Schedule.Times = []string{"25:99"}
	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "超时时间")
	assert.Contains(t, err.Error(), "重试次数")
	assert.Contains(t, err.Error(), "请求延迟范围")
	assert.Contains(t, err.Error(), "25:99")
}

func TestValidateKeywordGroups(t *testing.T) {
	assert.ErrorIs(t, ValidateKeywordGroups(nil), ErrNoKeywords)
	assert.NoError(t, ValidateKeywordGroups([]model.KeywordGroup{{Terms: []string{"", "ai"}}}))
}
