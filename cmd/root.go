package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wolfitem/news-collector/internal/infrastructure/logger"
)

var (
	cfgFile string
	debug   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "news-collector",
	Short: "Google News关键词新闻采集工具",
	Long: `news-collector 按配置的关键词分组定时查询 Google News RSS 搜索，
将解析后的文章去重后按天保存为 JSON/JSONL 文件。`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogger(cmd.Context())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// 中断信号取消命令的context，采集在关键词之间停止
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	stop()
	// 程序退出前同步日志
	_ = logger.Sync()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// 全局标志
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径 (默认为 ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "输出调试日志")
}

// setDefaults 为所有配置项设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("networking.timeout_seconds", 30)
	v.SetDefault("networking.max_retries", 3)
	v.SetDefault("networking.backoff_factor", 2.0)
	v.SetDefault("networking.initial_backoff_seconds", 1.0)
	v.SetDefault("networking.keyword_pause_seconds", 5.0)
	v.SetDefault("networking.group_pause_minutes", 1.0)
	v.SetDefault("networking.request_delay_min_seconds", 1.0)
	v.SetDefault("networking.request_delay_max_seconds", 3.0)
	v.SetDefault("networking.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	v.SetDefault("networking.accept_language", "en-US,en;q=0.9")
	v.SetDefault("networking.language", "en")
	v.SetDefault("networking.country", "IN")
	v.SetDefault("networking.concurrency", 1)
	v.SetDefault("networking.requests_per_minute", 0)

	v.SetDefault("storage.base_dir", "data")
	v.SetDefault("storage.jsonl_dir", "")
	v.SetDefault("storage.output_dir", "")
	v.SetDefault("storage.cleanup_days", 30)
	v.SetDefault("storage.create_jsonl", true)
	v.SetDefault("storage.stats_enabled", false)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.file_path", "data/articles.db")

	v.SetDefault("schedule.times", []string{"05:00", "14:00"})
	v.SetDefault("schedule.timezone", "Asia/Kolkata")
	v.SetDefault("schedule.cleanup_enabled", true)
	v.SetDefault("schedule.memstats_interval_minutes", 30)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.console", true)
	v.SetDefault("logger.file_path", "logs/news-collector.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.rotation", "size")

	v.SetDefault("feeds.file", "feeds.yaml")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	setDefaults(viper.GetViper())

	if cfgFile != "" {
		// 使用指定的配置文件
		viper.SetConfigFile(cfgFile)
	} else {
		// 在当前目录中查找配置文件
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// 读取环境变量，networking.timeout_seconds 对应 NEWS_NETWORKING_TIMEOUT_SECONDS
	viper.SetEnvPrefix("news")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	// 代理只在这里读取一次
	_ = viper.BindEnv("networking.proxy_url", "HTTPS_PROXY", "HTTP_PROXY", "https_proxy", "http_proxy")

	// 读取配置文件
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("使用配置文件:", viper.ConfigFileUsed())
	} else {
		fmt.Printf("无法读取配置文件，使用默认配置: %v\n", err)
	}
}

// initLogger 初始化日志系统
func initLogger(ctx context.Context) error {
	var logConfig logger.Config
	if err := viper.UnmarshalKey("logger", &logConfig); err != nil {
		return fmt.Errorf("读取日志配置失败: %w", err)
	}
	if debug {
		logConfig.Level = "debug"
	}

	if err := logger.Init(logConfig); err != nil {
		return fmt.Errorf("初始化日志系统失败: %w", err)
	}
	if logConfig.Rotation == "daily" && ctx != nil {
		logger.StartDailyRotation(ctx)
	}
	return nil
}
