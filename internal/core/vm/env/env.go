// Package env 提供guest字节码可导入的宿主函数目录
//
// 🎯 **核心职责**：以显式注册表的形式定义 (命名空间, 函数名, 版本) → 处理器 的映射
//
// 📋 **设计特点**：
// - 显式注册：注册表在启动时一次构建，导入解析期间查找，不依赖代码生成
// - 版本化命名空间：命名空间 "env" + 版本标签拼成wasm导入模块名（如 "env0"）
// - 动态上下文：env模块在运行时中只实例化一次，处理器从 context.Context
//   中提取当前帧的执行上下文，绝不以闭包捕获帧状态
//
// 🔗 **依赖关系**：
// - memory.Accessor：guest内存的边界检查访问
// - context.ExecutionContext：参数队列、支付账本、堆基址
// - interfaces.CallStack：合约间调用派发与燃料计量
package env

import (
	stdcontext "context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	vmcontext "github.com/deadblackclover/wevm/internal/core/vm/context"
	"github.com/deadblackclover/wevm/internal/core/vm/memory"
	"github.com/deadblackclover/wevm/pkg/types"
)

// Namespace 宿主函数导入命名空间（与版本标签拼接为wasm模块名）
const Namespace = "env"

// hostFunctionCost 每次宿主函数入口的燃料成本
const hostFunctionCost = 1

// Function 宿主函数描述符
//
// 参数/返回形状 + 实现，按 (命名空间, 函数名, 版本) 寻址。
type Function struct {
	// Name 导入函数名（snake_case）
	Name string

	// Version 版本标签
	Version uint32

	// Params 参数形状
	Params []api.ValueType

	// Results 返回形状
	Results []api.ValueType

	// Handler 实现
	Handler api.GoModuleFunc
}

// ModuleName 返回该函数所属的wasm导入模块名（如 "env0"）
func (f Function) ModuleName() string {
	return fmt.Sprintf("%s%d", Namespace, f.Version)
}

// Functions 返回宿主函数目录（版本0全集）
func Functions() []Function {
	i32 := api.ValueTypeI32
	i64 := api.ValueTypeI64
	return []Function{
		{Name: "call_arg_int", Version: 0, Params: []api.ValueType{i64}, Results: nil, Handler: callArgInt},
		{Name: "call_arg_bool", Version: 0, Params: []api.ValueType{i32}, Results: nil, Handler: callArgBool},
		{Name: "call_arg_binary", Version: 0, Params: []api.ValueType{i32, i32}, Results: []api.ValueType{i32}, Handler: callArgBinary},
		{Name: "call_arg_string", Version: 0, Params: []api.ValueType{i32, i32}, Results: []api.ValueType{i32}, Handler: callArgString},
		{Name: "call_payment", Version: 0, Params: []api.ValueType{i32, i32, i64}, Results: []api.ValueType{i32}, Handler: callPayment},
		{Name: "call_contract", Version: 0, Params: []api.ValueType{i32, i32, i32, i32}, Results: []api.ValueType{i32}, Handler: callContract},
		{Name: "base_58", Version: 0, Params: []api.ValueType{i32, i32}, Results: []api.ValueType{i32, i32, i32}, Handler: base58Decode},
		{Name: "to_base_58_string", Version: 0, Params: []api.ValueType{i32, i32}, Results: []api.ValueType{i32, i32, i32}, Handler: toBase58String},
		{Name: "bytes_equals", Version: 0, Params: []api.ValueType{i32, i32, i32, i32}, Results: []api.ValueType{i32, i32}, Handler: bytesEquals},
		{Name: "string_equals", Version: 0, Params: []api.ValueType{i32, i32, i32, i32}, Results: []api.ValueType{i32, i32}, Handler: stringEquals},
		{Name: "concat", Version: 0, Params: []api.ValueType{i32, i32, i32, i32}, Results: []api.ValueType{i32, i32, i32}, Handler: concat},
	}
}

// Lookup 按 (模块名, 函数名) 查找目录中的描述符
func Lookup(moduleName, name string, catalogue []Function) (Function, bool) {
	for _, f := range catalogue {
		if f.ModuleName() == moduleName && f.Name == name {
			return f, true
		}
	}
	return Function{}, false
}

// Instantiate 将宿主函数目录注册到wazero运行时
//
// 按模块名分组构建宿主模块并实例化。同一运行时只能调用一次：
// wazero不允许重复实例化同名模块。extra 用于附加测试导入。
func Instantiate(ctx stdcontext.Context, runtime wazero.Runtime, extra ...Function) error {
	byModule := make(map[string][]Function)
	var order []string
	for _, f := range append(Functions(), extra...) {
		name := f.ModuleName()
		if _, ok := byModule[name]; !ok {
			order = append(order, name)
		}
		byModule[name] = append(byModule[name], f)
	}

	for _, moduleName := range order {
		builder := runtime.NewHostModuleBuilder(moduleName)
		for _, f := range byModule[moduleName] {
			builder.NewFunctionBuilder().
				WithGoModuleFunction(f.Handler, f.Params, f.Results).
				Export(f.Name)
		}
		if _, err := builder.Instantiate(ctx); err != nil {
			return fmt.Errorf("host module %s instantiation failed: %w", moduleName, err)
		}
	}
	return nil
}

// ============================================================================
//                              处理器公共部分
// ============================================================================

// prologue 提取当前帧的执行上下文并扣除宿主函数入口燃料
//
// 燃料耗尽通过panic中止当前guest指令流（wazero会将宿主panic转为trap），
// 保证资源类错误不会被guest当作哨兵码观察到。
func prologue(ctx stdcontext.Context, m api.Module) (*vmcontext.ExecutionContext, *memory.Accessor) {
	ec := vmcontext.FromContext(ctx)
	if ec == nil {
		panic(types.WrapError(types.ErrExecutionError, "no execution context for module %s", m.Name()))
	}
	if err := ec.Stack().ConsumeFuel(hostFunctionCost); err != nil {
		panic(err)
	}
	return ec, memory.NewAccessor(m.Memory())
}

// writeResult 按写入协议将宿主产生的值写入guest内存
//
// 从当前堆基址写入，成功后由执行上下文推进堆基址，
// 返回 (写入偏移, 字节长度)。
func writeResult(ec *vmcontext.ExecutionContext, acc *memory.Accessor, data []byte) (uint32, uint32, error) {
	offset := ec.HeapBase()
	if err := acc.Write(offset, data); err != nil {
		return 0, 0, err
	}
	ec.AdvanceHeap(uint32(len(data)))
	return offset, uint32(len(data)), nil
}
