// Package vm 提供虚拟机执行环境的配置选项
package vm

// Options 虚拟机配置选项
//
// 控制单次顶层调用的资源预算与运行时行为。
type Options struct {
	// FuelLimit 燃料预算（指令成本计数器，顶层声明）
	FuelLimit uint64 `json:"fuel_limit"`

	// MaxCallDepth 最大调用栈深度
	//
	// 燃料本身无法阻止浅层零成本的无界递归模式，
	// 深度上限是必需的防御性检查而非可选项。
	MaxCallDepth int `json:"max_call_depth"`

	// MaxMemoryPages 最大内存页数（每页64KB）
	MaxMemoryPages int `json:"max_memory_pages"`

	// UseCompiler 编译模式：true使用编译器模式（高性能），false使用解释器模式（兼容性）
	UseCompiler bool `json:"use_compiler"`
}

// 默认值（FuelLimit 与原生测试环境保持一致）
const (
	DefaultFuelLimit      = 1024
	DefaultMaxCallDepth   = 128
	DefaultMaxMemoryPages = 1024
)

// New 创建虚拟机配置
//
// 先生成完整默认配置，再用用户配置覆盖非零字段。
func New(userOptions *Options) *Options {
	options := &Options{
		FuelLimit:      DefaultFuelLimit,
		MaxCallDepth:   DefaultMaxCallDepth,
		MaxMemoryPages: DefaultMaxMemoryPages,
		UseCompiler:    false,
	}

	if userOptions == nil {
		return options
	}

	if userOptions.FuelLimit > 0 {
		options.FuelLimit = userOptions.FuelLimit
	}
	if userOptions.MaxCallDepth > 0 {
		options.MaxCallDepth = userOptions.MaxCallDepth
	}
	if userOptions.MaxMemoryPages > 0 {
		options.MaxMemoryPages = userOptions.MaxMemoryPages
	}
	options.UseCompiler = userOptions.UseCompiler

	return options
}
