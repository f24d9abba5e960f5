package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	appservice "github.com/wolfitem/news-collector/internal/application/service"
	"github.com/wolfitem/news-collector/internal/domain/model"
	"github.com/wolfitem/news-collector/internal/domain/service"
	"github.com/wolfitem/news-collector/internal/infrastructure/config"
	"github.com/wolfitem/news-collector/internal/infrastructure/database"
	"github.com/wolfitem/news-collector/internal/infrastructure/logger"
	"github.com/wolfitem/news-collector/internal/infrastructure/storage"
	"github.com/wolfitem/news-collector/internal/middleware"
)

// app 一次命令执行所需的全部组件
type app struct {
	cfg       model.CollectorConfig
	store     *storage.DailyStore
	collector appservice.CollectorService
	db        database.Database
}

// newApp 读取配置并组装采集流程
func newApp() (*app, error) {
	cfg, err := loadCollectorConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}

	var storeOpts []storage.Option
	if cfg.Database.Enabled {
		db := database.NewSQLiteDatabase(cfg.Database.FilePath)
		if err := db.Init(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("初始化数据库失败: %w", err)
		}
		a.db = db
		storeOpts = append(storeOpts, storage.WithArticleIndex(database.NewSQLiteArticleRepository(db)))
	}

	store, err := storage.NewDailyStore(cfg.Storage, storeOpts...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("初始化存储失败: %w", err)
	}
	a.store = store

	metrics := middleware.NewMetricsCollector()
	fetcher := service.NewFetcher(cfg.Network,
		service.WithRateLimiter(middleware.NewRateLimiter(cfg.Network.RequestsPerMinute, time.Minute)),
		service.WithMetrics(metrics),
	)

	// 每次运行重新读取关键词文件，定时任务无需重启即可生效
	groups := appservice.StaticGroups(cfg.KeywordGroups)
	if !viper.IsSet("keyword_groups") && cfg.FeedsFile != "" {
		groups = func() ([]model.KeywordGroup, error) {
			loaded, err := config.LoadKeywordGroups(cfg.FeedsFile)
			if err != nil {
				return nil, err
			}
			if err := service.ValidateKeywordGroups(loaded); err != nil {
				return nil, err
			}
			return loaded, nil
		}
	}

	a.collector = appservice.NewCollectorService(cfg.Network, groups, fetcher, service.NewFeedParser(), store,
		appservice.WithCollectorMetrics(metrics),
	)
	return a, nil
}

// Close 释放数据库连接
func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logger.Warn("关闭数据库失败", "error", err)
		}
	}
}
