package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	logconfig "github.com/deadblackclover/wevm/internal/config/log"
	"github.com/deadblackclover/wevm/internal/core/infrastructure/log"
)

// GlobalFlags 全局标志
type GlobalFlags struct {
	LogLevel string // 日志级别
	LogFile  string // 日志文件路径（为空则不写文件）
	Verbose  bool   // 详细模式（控制台输出）
}

var globalFlags GlobalFlags

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "wevm",
	Short: "WEVM WebAssembly合约执行环境",
	Long: `WEVM - 沙箱化WebAssembly智能合约虚拟机

在确定性资源预算（燃料 + 调用深度）下执行WASM合约字节码,
为guest提供版本化的宿主函数集(env0):参数暂存、支付声明、
合约间调用与字节/字符串工具。`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, err := log.New(logconfig.New(&logconfig.LogOptions{
			Level:     globalFlags.LogLevel,
			ToConsole: globalFlags.Verbose,
			FilePath:  globalFlags.LogFile,
		}))
		if err != nil {
			return fmt.Errorf("初始化日志: %w", err)
		}
		log.SetLogger(logger)
		return nil
	},
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalFlags.LogLevel, "log-level", "info", "日志级别 (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.LogFile, "log-file", "", "日志文件路径")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "控制台输出日志")

	rootCmd.AddCommand(runCmd)
}
