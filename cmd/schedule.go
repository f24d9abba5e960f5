package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	appservice "github.com/wolfitem/news-collector/internal/application/service"
	"github.com/wolfitem/news-collector/internal/domain/model"
	"github.com/wolfitem/news-collector/internal/infrastructure/logger"
)

var runNow bool

// scheduleCmd 常驻进程，按每日固定时刻采集
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "按计划时间定时采集",
	Long:  `常驻运行，在 schedule.times 指定的每日时刻执行采集，收到中断信号后在关键词之间退出。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			logger.Error("初始化采集失败", "error", err)
			return err
		}
		defer a.Close()

		var opts []appservice.SchedulerOption
		if a.cfg.Schedule.CleanupEnabled {
			opts = append(opts, appservice.WithAfterRun(func(ctx context.Context, summary model.RunSummary) {
				if _, err := a.store.Cleanup(a.cfg.Storage.CleanupDays); err != nil {
					logger.Error("清理过期文件失败", "error", err)
				}
			}))
		}

		scheduler, err := appservice.NewScheduler(a.cfg.Schedule, a.collector.RunCollection, opts...)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		logger.NewMemStatsMonitor(time.Duration(viper.GetInt("schedule.memstats_interval_minutes")) * time.Minute).Start(ctx)

		if runNow {
			summary, _ := scheduler.RunNow(ctx)
			if err := printSummary(summary); err != nil {
				return err
			}
		}
		return scheduler.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().BoolVar(&runNow, "run-now", false, "启动后立即执行一次采集")
}
