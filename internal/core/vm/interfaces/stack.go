// Package interfaces 定义虚拟机内部组件之间的接口
//
// 📋 **接口性质**：纯内部接口，供宿主函数集与执行上下文引用调用栈，
// 避免 env/context 与 stack 之间的循环依赖。
package interfaces

import (
	"context"

	"github.com/deadblackclover/wevm/pkg/types"
)

// CallStack 调用栈接口
//
// 📋 **对应实现**：internal/core/vm/stack/
//
// 表示当前正在执行的合约调用链。宿主函数通过本接口
// 解析字节码、结算支付并派发合约间调用；帧的生命周期
// （压入/弹出）由实现内部维护，严格后进先出。
type CallStack interface {
	// GetBytecode 通过外部注册中心解析合约字节码
	GetBytecode(ctx context.Context, contractID []byte) ([]byte, error)

	// AddPayments 将暂存支付结算到目标合约
	AddPayments(ctx context.Context, contractID []byte, payments []types.Payment) error

	// Call 派发一次合约间调用
	//
	// 压入新帧，以线格式编码的输入数据实例化并调用目标函数，
	// 校验其返回恰好一个i32结果，弹出帧后返回该结果。
	// 返回的int32是被调用方自报的状态码，不是数据返回值。
	Call(ctx context.Context, contractID []byte, bytecode []byte, funcName string, inputData []byte) (int32, error)

	// ConsumeFuel 从燃料预算中扣除指定成本
	//
	// 预算耗尽返回 ErrFuelExhausted，同时调用栈进入致命状态，
	// 整条调用链都必须随之展开。
	ConsumeFuel(cost uint64) error

	// Depth 返回当前活跃帧数
	Depth() int
}
