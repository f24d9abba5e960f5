package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wolfitem/news-collector/internal/domain/model"
	"github.com/wolfitem/news-collector/internal/infrastructure/storage"
)

var cleanupDays int

// cleanupCmd 删除过期的数据文件
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "删除超过保留天数的数据文件",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.NewDailyStore(storageConfig())
		if err != nil {
			return err
		}

		days := viper.GetInt("storage.cleanup_days")
		if cmd.Flags().Changed("days") {
			days = cleanupDays
		}
		if days < 0 {
			return fmt.Errorf("保留天数不能为负数: %d", days)
		}

		removed, err := store.Cleanup(days)
		if err != nil {
			return err
		}
		fmt.Printf("已删除 %d 个过期文件\n", removed)
		return nil
	},
}

// storageConfig 只读取存储配置，维护命令不需要关键词配置
func storageConfig() model.StorageConfig {
	return model.StorageConfig{
		BaseDir:   viper.GetString("storage.base_dir"),
		JSONLDir:  viper.GetString("storage.jsonl_dir"),
		OutputDir: viper.GetString("storage.output_dir"),
	}
}

func init() {
	rootCmd.AddCommand(cleanupCmd)

	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 0, "保留天数（默认使用 storage.cleanup_days）")
}
