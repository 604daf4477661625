// Package stack 提供合约调用栈与调用协议实现
//
// 🎯 **核心职责**：维护当前正在执行的合约调用链，实现合约间调用协议
//
// 📋 **设计特点**：
// - 帧生命周期：调用派发时创建、返回时销毁，严格后进先出
// - 资源隔离：每个帧独占自己的执行上下文与线性内存，帧间互不别名
// - 确定性资源预算：燃料计量 + 显式调用深度上限
// - 编译缓存：按字节码哈希缓存已编译模块，重复调用同一合约不重复编译
//
// 🔗 **依赖关系**：
// - wazero：WebAssembly运行时引擎
// - registry.BytecodeService：外部字节码注册中心（resolve/settle）
// - env：宿主函数目录（构造时注册到运行时）
//
// ⚠️ **并发约束**：
// 执行是单线程协作式的：一条guest指令流运行至完成（或资源耗尽），
// 一个Stack实例归一次顶层调用独占，绝不跨调用共享。
package stack

import (
	stdcontext "context"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	vmconfig "github.com/deadblackclover/wevm/internal/config/vm"
	vmcontext "github.com/deadblackclover/wevm/internal/core/vm/context"
	"github.com/deadblackclover/wevm/internal/core/vm/env"
	"github.com/deadblackclover/wevm/internal/core/vm/interfaces"
	"github.com/deadblackclover/wevm/internal/core/vm/memory"
	"github.com/deadblackclover/wevm/pkg/interfaces/infrastructure/log"
	"github.com/deadblackclover/wevm/pkg/interfaces/registry"
	"github.com/deadblackclover/wevm/pkg/types"
)

// EntryFunction guest字节码必须导出的程序入口点
const EntryFunction = "_constructor"

// heapBaseGlobal 堆基址导出全局名
const heapBaseGlobal = "__heap_base"

// Frame 调用栈上的一个活跃合约调用
type Frame struct {
	// ContractID 合约标识（顶层帧可为nil）
	ContractID []byte

	// Module 实例化的guest模块
	Module api.Module

	ec *vmcontext.ExecutionContext
}

// Context 返回帧的执行上下文
func (f *Frame) Context() *vmcontext.ExecutionContext {
	return f.ec
}

// Stack 合约调用栈
type Stack struct {
	logger   log.Logger
	options  *vmconfig.Options
	runtime  wazero.Runtime
	registry registry.BytecodeService

	rootBytecode []byte
	frames       []*Frame
	fuel         *FuelMeter

	// fatal 资源类致命错误（燃料/深度）
	//
	// 一经置位，整条调用链随之展开；每一层都优先返回该错误，
	// 保证任何帧触发的资源耗尽在顶层呈现为同一哨兵码。
	fatal error

	// 已编译模块缓存（按字节码SHA-256）
	compiled map[[32]byte]wazero.CompiledModule
}

// 确保Stack实现interfaces.CallStack接口
var _ interfaces.CallStack = (*Stack)(nil)

// New 创建调用栈
//
// 📋 **参数说明**：
//   - ctx: 创建上下文
//   - bytecode: 顶层合约字节码
//   - service: 外部字节码注册中心
//   - options: 资源预算配置（nil使用默认值）
//   - logger: 日志服务（可为nil）
//   - extra: 附加宿主函数（测试导入用）
func New(
	ctx stdcontext.Context,
	bytecode []byte,
	service registry.BytecodeService,
	options *vmconfig.Options,
	logger log.Logger,
	extra ...env.Function,
) (*Stack, error) {
	options = vmconfig.New(options)

	config := wazero.NewRuntimeConfigInterpreter()
	if options.UseCompiler {
		config = wazero.NewRuntimeConfig()
	}
	config = config.WithMemoryLimitPages(uint32(options.MaxMemoryPages))

	runtime := wazero.NewRuntimeWithConfig(ctx, config)

	if err := env.Instantiate(ctx, runtime, extra...); err != nil {
		_ = runtime.Close(ctx)
		return nil, err
	}

	return &Stack{
		logger:       logger,
		options:      options,
		runtime:      runtime,
		registry:     service,
		rootBytecode: bytecode,
		fuel:         NewFuelMeter(options.FuelLimit),
		compiled:     make(map[[32]byte]wazero.CompiledModule),
	}, nil
}

// Close 关闭调用栈，释放运行时资源
func (s *Stack) Close(ctx stdcontext.Context) error {
	return s.runtime.Close(ctx)
}

// Run 执行顶层调用
//
// 以线格式编码的输入数据调用顶层合约的导出函数（通常是 _constructor）。
// 顶层结果按原样返回（任意元数），单i32协议只约束合约间调用路径。
func (s *Stack) Run(ctx stdcontext.Context, funcName string, inputData []byte) ([]uint64, error) {
	if s.logger != nil {
		s.logger.Debugf("顶层调用开始: func=%s, fuel=%d", funcName, s.fuel.Remaining())
	}

	results, _, err := s.invoke(ctx, nil, s.rootBytecode, funcName, inputData)
	if err != nil {
		if s.logger != nil {
			s.logger.Debugf("顶层调用失败: %v", err)
		}
		return nil, err
	}
	return results, nil
}

// Depth 返回当前活跃帧数
func (s *Stack) Depth() int {
	return len(s.frames)
}

// Fatal 返回资源类致命错误（未触发时为nil）
func (s *Stack) Fatal() error {
	return s.fatal
}

// FuelRemaining 返回剩余燃料预算
func (s *Stack) FuelRemaining() uint64 {
	return s.fuel.Remaining()
}

// ConsumeFuel 实现interfaces.CallStack：扣除燃料成本
func (s *Stack) ConsumeFuel(cost uint64) error {
	if s.fatal != nil {
		return s.fatal
	}
	if err := s.fuel.Consume(cost); err != nil {
		s.fatal = err
		return err
	}
	return nil
}

// GetBytecode 实现interfaces.CallStack：通过注册中心解析字节码
//
// 注册中心错误原样透传：携带哨兵码的错误按其数值转发，
// 未携带的归入 BytecodeNotFound。
func (s *Stack) GetBytecode(ctx stdcontext.Context, contractID []byte) ([]byte, error) {
	bytecode, err := s.registry.GetBytecode(ctx, contractID)
	if err != nil {
		var re *types.RuntimeError
		if errors.As(err, &re) {
			return nil, err
		}
		return nil, types.WrapError(types.ErrBytecodeNotFound, "%s", err)
	}
	return bytecode, nil
}

// AddPayments 实现interfaces.CallStack：经结算钩子应用暂存支付
//
// 无暂存支付时传递空账本；结算失败原样透传（同GetBytecode的归类规则）。
func (s *Stack) AddPayments(ctx stdcontext.Context, contractID []byte, payments []types.Payment) error {
	if err := s.registry.AddPayments(ctx, contractID, payments); err != nil {
		var re *types.RuntimeError
		if errors.As(err, &re) {
			return err
		}
		return types.WrapError(types.ErrSettlementError, "%s", err)
	}
	return nil
}

// Call 实现interfaces.CallStack：派发一次合约间调用
//
// 深度防护在燃料之外显式存在：燃料本身无法阻止浅层零成本的
// 无界递归模式。被调用方必须恰好返回一个i32结果，否则 InvalidResult。
func (s *Stack) Call(ctx stdcontext.Context, contractID []byte, bytecode []byte, funcName string, inputData []byte) (int32, error) {
	if len(s.frames) >= s.options.MaxCallDepth {
		s.fatal = types.WrapError(types.ErrCallDepthExceeded, "depth=%d", len(s.frames))
		return 0, s.fatal
	}
	if err := s.ConsumeFuel(frameCost); err != nil {
		return 0, err
	}

	results, resultTypes, err := s.invoke(ctx, contractID, bytecode, funcName, inputData)
	if err != nil {
		return 0, err
	}

	if len(results) != 1 || len(resultTypes) != 1 || resultTypes[0] != api.ValueTypeI32 {
		return 0, types.WrapError(types.ErrInvalidResult,
			"func=%s results=%d", funcName, len(results))
	}
	return api.DecodeI32(results[0]), nil
}

// invoke 压入新帧并执行guest函数（Run与Call共用的派发路径）
//
// 📋 **执行流程**：编译（带缓存）→ 实例化 → 读取堆基址 → 解码输入数据
// → 编组参数 → 压帧 → 调用 → 弹帧（defer，成败皆然）
func (s *Stack) invoke(
	ctx stdcontext.Context,
	contractID []byte,
	bytecode []byte,
	funcName string,
	inputData []byte,
) ([]uint64, []api.ValueType, error) {
	compiled, err := s.compile(ctx, bytecode)
	if err != nil {
		return nil, nil, err
	}

	// 匿名实例化：同一编译模块可在递归调用中多次实例化
	mod, err := s.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, nil, types.WrapError(types.ErrInvalidBytecode, "instantiation failed: %s", err)
	}
	defer mod.Close(ctx)

	fn := mod.ExportedFunction(funcName)
	if fn == nil {
		return nil, nil, types.WrapError(types.ErrInvalidBytecode, "function %q not exported", funcName)
	}

	frame := &Frame{
		ContractID: contractID,
		Module:     mod,
		ec:         vmcontext.New(s),
	}
	if g := mod.ExportedGlobal(heapBaseGlobal); g != nil {
		frame.ec.SetHeapBase(uint32(g.Get()))
	}

	entries, err := types.DeserializeEntries(inputData)
	if err != nil {
		return nil, nil, err
	}
	params, err := s.marshalParams(frame, mod, fn.Definition().ParamTypes(), entries)
	if err != nil {
		return nil, nil, err
	}

	s.frames = append(s.frames, frame)
	defer func() {
		s.frames = s.frames[:len(s.frames)-1]
	}()

	callCtx := vmcontext.WithExecutionContext(ctx, frame.ec)
	results, err := fn.Call(callCtx, params...)

	// 资源类致命错误优先：无论哪一帧触发，整条链都以同一哨兵码收场
	if s.fatal != nil {
		return nil, nil, s.fatal
	}
	if err != nil {
		var re *types.RuntimeError
		if errors.As(err, &re) {
			return nil, nil, err
		}
		return nil, nil, types.WrapError(types.ErrExecutionError, "%s", err)
	}

	return results, fn.Definition().ResultTypes(), nil
}

// compile 编译字节码，带按哈希的进程内缓存
func (s *Stack) compile(ctx stdcontext.Context, bytecode []byte) (wazero.CompiledModule, error) {
	key := sha256.Sum256(bytecode)
	if cached, ok := s.compiled[key]; ok {
		return cached, nil
	}

	compiled, err := s.runtime.CompileModule(ctx, bytecode)
	if err != nil {
		return nil, types.WrapError(types.ErrInvalidBytecode, "compilation failed: %s", err)
	}
	s.compiled[key] = compiled

	if s.logger != nil {
		s.logger.Debugf("字节码编译成功: hash=%x, size=%d", key[:8], len(bytecode))
	}
	return compiled, nil
}

// marshalParams 将解码后的数据条目编组为guest函数参数
//
// Integer → 一个i64参数；Boolean → 一个i32参数；
// Binary/String → 写入被调用方堆基址，传递 (offset, length) 两个i32参数。
// 参数形状不匹配（数量或类型，含浮点）视为 InvalidBytecode。
func (s *Stack) marshalParams(
	frame *Frame,
	mod api.Module,
	paramTypes []api.ValueType,
	entries []types.DataEntry,
) ([]uint64, error) {
	acc := memory.NewAccessor(mod.Memory())
	params := make([]uint64, 0, len(paramTypes))
	idx := 0

	expect := func(vt api.ValueType) error {
		if idx >= len(paramTypes) {
			return types.WrapError(types.ErrInvalidBytecode,
				"too many arguments: function takes %d parameters", len(paramTypes))
		}
		if paramTypes[idx] != vt {
			return types.WrapError(types.ErrInvalidBytecode,
				"parameter %d: expected %s", idx, api.ValueTypeName(vt))
		}
		return nil
	}

	for _, e := range entries {
		switch e.Type {
		case types.EntryInteger:
			if err := expect(api.ValueTypeI64); err != nil {
				return nil, err
			}
			params = append(params, uint64(e.Integer))
			idx++
		case types.EntryBoolean:
			if err := expect(api.ValueTypeI32); err != nil {
				return nil, err
			}
			params = append(params, api.EncodeI32(e.Boolean))
			idx++
		case types.EntryBinary, types.EntryString:
			if err := expect(api.ValueTypeI32); err != nil {
				return nil, err
			}
			offset := frame.ec.HeapBase()
			if err := acc.Write(offset, e.Value); err != nil {
				return nil, err
			}
			frame.ec.AdvanceHeap(uint32(len(e.Value)))
			params = append(params, uint64(offset))
			idx++
			if err := expect(api.ValueTypeI32); err != nil {
				return nil, err
			}
			params = append(params, uint64(len(e.Value)))
			idx++
		default:
			return nil, types.WrapError(types.ErrInvalidBytecode, "unknown entry type 0x%02x", byte(e.Type))
		}
	}

	if idx != len(paramTypes) {
		return nil, types.WrapError(types.ErrInvalidBytecode,
			"argument count mismatch: function takes %d parameters, got %d", len(paramTypes), idx)
	}
	return params, nil
}

// String 返回调用栈的可读描述（日志用）
func (s *Stack) String() string {
	return fmt.Sprintf("Stack{depth=%d, fuel=%d}", len(s.frames), s.fuel.Remaining())
}
