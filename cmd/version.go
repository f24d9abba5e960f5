package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version 变量将在编译时通过 -ldflags 注入
var Version string

// versionCmd 表示 version 命令
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示程序版本信息",
	// 不需要初始化日志
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		v := Version
		if v == "" {
			v = "开发版本"
		}
		fmt.Printf("news-collector 版本: %s (%s)\n", v, runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
