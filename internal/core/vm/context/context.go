// Package context 提供单次合约调用的执行上下文
//
// 🎯 **核心职责**：承载一次在途调用的可变状态
//
// 📋 **设计特点**：
// - 参数队列：按调用顺序追加，派发时原子取走
// - 支付账本：为下一次合约调用累积，派发时与参数一起取走
// - 调用栈回引：仅用于派发调用与解析字节码，不拥有调用栈
// - 堆基址：宿主写入协议的推进由本层负责，访问器只做写入
//
// ⚠️ **隔离约束**：
// 执行上下文归单个在途调用独占；暂存状态绝不跨越调用边界，
// 任何调用都不会隐式继承前一次调用暂存的参数或支付。
package context

import (
	stdcontext "context"

	"github.com/deadblackclover/wevm/internal/core/vm/interfaces"
	"github.com/deadblackclover/wevm/pkg/types"
)

// ExecutionContext 单次调用的执行上下文
type ExecutionContext struct {
	args     []types.DataEntry
	payments *types.PaymentLedger
	stack    interfaces.CallStack
	heapBase uint32
}

// New 创建执行上下文
func New(stack interfaces.CallStack) *ExecutionContext {
	return &ExecutionContext{
		payments: types.NewPaymentLedger(),
		stack:    stack,
	}
}

// PushArg 追加一个参数条目（按调用顺序）
func (ec *ExecutionContext) PushArg(entry types.DataEntry) {
	ec.args = append(ec.args, entry)
}

// AddPayment 为下一次合约调用累积一笔支付声明
func (ec *ExecutionContext) AddPayment(assetID []byte, amount int64) {
	ec.payments.Add(assetID, amount)
}

// Drain 原子取走暂存的参数与支付
//
// 这是暂存状态被消费的唯一入口：每次 CallContract 派发恰好调用一次，
// 取走后上下文回到空暂存状态。
func (ec *ExecutionContext) Drain() ([]types.DataEntry, []types.Payment) {
	args := ec.args
	payments := ec.payments.Entries()
	ec.args = nil
	ec.payments = types.NewPaymentLedger()
	return args, payments
}

// ArgCount 返回当前暂存的参数数量
func (ec *ExecutionContext) ArgCount() int {
	return len(ec.args)
}

// PaymentCount 返回当前暂存的不同资产数量
func (ec *ExecutionContext) PaymentCount() int {
	return ec.payments.Len()
}

// Stack 返回调用栈回引
func (ec *ExecutionContext) Stack() interfaces.CallStack {
	return ec.stack
}

// HeapBase 返回当前堆基址（宿主可写入的起始地址）
func (ec *ExecutionContext) HeapBase() uint32 {
	return ec.heapBase
}

// SetHeapBase 设置堆基址（帧创建时从 __heap_base 导出全局读取）
func (ec *ExecutionContext) SetHeapBase(offset uint32) {
	ec.heapBase = offset
}

// AdvanceHeap 写入完成后推进堆基址
func (ec *ExecutionContext) AdvanceHeap(length uint32) {
	ec.heapBase += length
}

// ============================================================================
//                 Go context 传递（宿主函数动态提取执行上下文）
// ============================================================================
//
// env模块在wazero运行时中只实例化一次，宿主函数不能以闭包捕获
// 某个帧的执行上下文，而是从每次调用传入的 context.Context 中动态提取。

type ctxKey struct{}

// WithExecutionContext 将执行上下文注入Go context
func WithExecutionContext(parent stdcontext.Context, ec *ExecutionContext) stdcontext.Context {
	return stdcontext.WithValue(parent, ctxKey{}, ec)
}

// FromContext 从Go context提取执行上下文，未注入时返回nil
func FromContext(ctx stdcontext.Context) *ExecutionContext {
	ec, _ := ctx.Value(ctxKey{}).(*ExecutionContext)
	return ec
}
