// Package log 提供日志配置选项
package log

// LogOptions 日志配置选项
// 专注于基础设施核心功能的简化配置
type LogOptions struct {
	// === 基础配置 ===
	Level     string `json:"level"`      // 日志级别 (debug, info, warn, error)
	ToConsole bool   `json:"to_console"` // 是否输出到控制台
	FilePath  string `json:"file_path"`  // 日志文件路径（为空则不写文件）

	// === 基础轮转配置 ===
	MaxSize    int  `json:"max_size"`    // 单个日志文件最大大小(MB)
	MaxBackups int  `json:"max_backups"` // 最大备份文件数
	MaxAge     int  `json:"max_age"`     // 日志文件最大保留天数
	Compress   bool `json:"compress"`    // 是否压缩历史日志文件
}

// New 创建日志配置
//
// 先生成完整默认配置，再用用户配置覆盖非零字段。
func New(userOptions *LogOptions) *LogOptions {
	options := &LogOptions{
		Level:      "info",
		ToConsole:  true,
		FilePath:   "",
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     7,
		Compress:   false,
	}

	if userOptions == nil {
		return options
	}

	if userOptions.Level != "" {
		options.Level = userOptions.Level
	}
	options.ToConsole = userOptions.ToConsole
	if userOptions.FilePath != "" {
		options.FilePath = userOptions.FilePath
	}
	if userOptions.MaxSize > 0 {
		options.MaxSize = userOptions.MaxSize
	}
	if userOptions.MaxBackups > 0 {
		options.MaxBackups = userOptions.MaxBackups
	}
	if userOptions.MaxAge > 0 {
		options.MaxAge = userOptions.MaxAge
	}
	options.Compress = userOptions.Compress

	return options
}
