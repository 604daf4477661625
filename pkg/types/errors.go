// Package types 提供WEVM对外共享的核心类型定义
//
// 📋 **错误码目录 (Runtime Error Catalogue)**
//
// 本文件定义了宿主函数边界上的错误码目录，专注于：
// - 封闭、稳定的哨兵码枚举（合约字节码按具体数值编译）
// - 内部错误的类型化表示（Go error），仅在边界处转换为哨兵码
// - 注册中心/结算层错误的原样透传
//
// 🎯 **设计原则**
// - 封闭枚举：哨兵码一经发布不得变更数值
// - 类型内聚：宿主侧始终以 error 传递，guest侧只见 i32 哨兵码
// - 全函数化：宿主函数永不中止进程，所有失败都编码为guest可观察的值
package types

import (
	"errors"
	"fmt"
)

// 哨兵码定义（冻结ABI，全部为负值，与合法结果域不相交）
const (
	// CodeSuccess 成功
	CodeSuccess int32 = 0

	// CodeExecutionError 未归类的执行失败（guest trap等）
	CodeExecutionError int32 = -100

	// CodeMemoryNotFound 线性内存未挂载或访问越界
	CodeMemoryNotFound int32 = -101

	// CodeUtf8Error UTF-8解码失败
	CodeUtf8Error int32 = -102

	// CodeBase58Error base58解码失败
	CodeBase58Error int32 = -103

	// CodeInvalidResult 被调用合约返回了错误的结果形状（必须恰好一个i32）
	CodeInvalidResult int32 = -104

	// CodeInvalidBytecode 字节码非法（编译失败或参数形状不支持）
	CodeInvalidBytecode int32 = -105

	// CodeBytecodeNotFound 注册中心未找到合约字节码
	CodeBytecodeNotFound int32 = -106

	// CodeSettlementError 支付结算失败
	CodeSettlementError int32 = -107

	// CodeFuelExhausted 燃料耗尽（资源类错误，必须展开整条调用链）
	CodeFuelExhausted int32 = -108

	// CodeCallDepthExceeded 调用栈深度超限（资源类错误，必须展开整条调用链）
	CodeCallDepthExceeded int32 = -109
)

// RuntimeError 运行时错误
//
// 🎯 **核心职责**：内部错误枚举与边界哨兵码之间的桥梁
//
// 宿主侧内部以 *RuntimeError 传递（支持 errors.Is/As 与 %w 包装），
// 只有在写回guest指令流时才取 Code 转为 i32 哨兵码。
type RuntimeError struct {
	// Code 边界哨兵码（冻结数值）
	Code int32

	// Name 稳定的错误名称
	Name string
}

// Error 实现error接口
func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s (%d)", e.Name, e.Code)
}

// Is 支持 errors.Is 按哨兵码比较
func (e *RuntimeError) Is(target error) bool {
	t, ok := target.(*RuntimeError)
	return ok && t.Code == e.Code
}

// 预定义错误值（与哨兵码一一对应）
var (
	// ErrExecutionError 未归类的执行失败
	ErrExecutionError = &RuntimeError{Code: CodeExecutionError, Name: "execution error"}

	// ErrMemoryNotFound 线性内存未挂载或访问越界
	ErrMemoryNotFound = &RuntimeError{Code: CodeMemoryNotFound, Name: "memory not found"}

	// ErrUtf8Error UTF-8解码失败
	ErrUtf8Error = &RuntimeError{Code: CodeUtf8Error, Name: "invalid utf-8"}

	// ErrBase58Error base58解码失败
	ErrBase58Error = &RuntimeError{Code: CodeBase58Error, Name: "invalid base58"}

	// ErrInvalidResult 结果形状非法
	ErrInvalidResult = &RuntimeError{Code: CodeInvalidResult, Name: "invalid result"}

	// ErrInvalidBytecode 字节码非法
	ErrInvalidBytecode = &RuntimeError{Code: CodeInvalidBytecode, Name: "invalid bytecode"}

	// ErrBytecodeNotFound 合约字节码未找到
	ErrBytecodeNotFound = &RuntimeError{Code: CodeBytecodeNotFound, Name: "bytecode not found"}

	// ErrSettlementError 支付结算失败
	ErrSettlementError = &RuntimeError{Code: CodeSettlementError, Name: "settlement error"}

	// ErrFuelExhausted 燃料耗尽
	ErrFuelExhausted = &RuntimeError{Code: CodeFuelExhausted, Name: "fuel exhausted"}

	// ErrCallDepthExceeded 调用栈深度超限
	ErrCallDepthExceeded = &RuntimeError{Code: CodeCallDepthExceeded, Name: "call depth exceeded"}
)

// WrapError 为运行时错误附加上下文信息
//
// 包装后 errors.Is(wrapped, base) 仍然成立，CodeOf 仍可提取哨兵码。
func WrapError(base *RuntimeError, format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{base}, args...)...)
}

// CodeOf 提取错误对应的边界哨兵码
//
// 未携带 *RuntimeError 的错误一律归入 CodeExecutionError。
// err 为 nil 时返回 CodeSuccess。
func CodeOf(err error) int32 {
	if err == nil {
		return CodeSuccess
	}
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code
	}
	return CodeExecutionError
}

// IsResourceError 判断是否为资源类错误（燃料/深度）
//
// 资源类错误必须展开整条活跃调用链，而不是只报告给最内层帧：
// 若某个guest捕获燃料耗尽信号并返回"成功"，副本间的确定性保证将被破坏。
func IsResourceError(err error) bool {
	code := CodeOf(err)
	return code == CodeFuelExhausted || code == CodeCallDepthExceeded
}
