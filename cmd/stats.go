package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wolfitem/news-collector/internal/domain/model"
	"github.com/wolfitem/news-collector/internal/infrastructure/database"
	"github.com/wolfitem/news-collector/internal/infrastructure/storage"
)

var listDates bool

// statsCmd 显示某天的存储统计
var statsCmd = &cobra.Command{
	Use:   "stats [date]",
	Short: "显示某天（默认今天）的采集统计",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.NewDailyStore(storageConfig())
		if err != nil {
			return err
		}

		if listDates {
			dates, err := store.ListDates()
			if err != nil {
				return err
			}
			for _, d := range dates {
				fmt.Println(d)
			}
			return nil
		}

		date := time.Now()
		if len(args) == 1 {
			date, err = time.ParseInLocation(model.DateLayout, args[0], time.Local)
			if err != nil {
				return fmt.Errorf("日期格式应为 YYYY-MM-DD: %w", err)
			}
		}

		var index database.ArticleRepository
		if viper.GetBool("database.enabled") {
			db := database.NewSQLiteDatabase(viper.GetString("database.file_path"))
			if err := db.Init(); err != nil {
				return fmt.Errorf("初始化数据库失败: %w", err)
			}
			defer db.Close()
			index = database.NewSQLiteArticleRepository(db)
		}

		report, err := buildDailyReport(store, index, date)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("序列化统计失败: %w", err)
		}
		fmt.Println(string(data))
		return nil
	},
}

// dailyReport 每日统计，启用索引库时附带索引文章数
type dailyReport struct {
	model.DailyStats
	IndexedArticles *int `json:"indexed_articles,omitempty"`
}

func buildDailyReport(store *storage.DailyStore, index database.ArticleRepository, date time.Time) (dailyReport, error) {
	report := dailyReport{DailyStats: store.DailyStats(date)}
	if index == nil {
		return report, nil
	}
	count, err := index.CountByDate(report.Date)
	if err != nil {
		return report, err
	}
	report.IndexedArticles = &count
	return report, nil
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().BoolVar(&listDates, "list", false, "列出所有有数据的日期")
}
