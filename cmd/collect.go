package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wolfitem/news-collector/internal/domain/model"
	"github.com/wolfitem/news-collector/internal/infrastructure/logger"
)

// collectCmd 执行一次采集
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "立即执行一次新闻采集",
	Long: `按配置的关键词分组依次查询 Google News RSS，解析、去重后写入当天的数据文件，
结束时输出本次运行的汇总。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			logger.Error("初始化采集失败", "error", err)
			return err
		}
		defer a.Close()

		summary := a.collector.RunCollection(cmd.Context())
		if err := printSummary(summary); err != nil {
			return err
		}
		if summary.State == model.RunStateFailed {
			return fmt.Errorf("采集失败，错误数: %d", summary.Errors)
		}
		return nil
	},
}

func printSummary(summary model.RunSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化运行汇总失败: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func init() {
	rootCmd.AddCommand(collectCmd)
}
