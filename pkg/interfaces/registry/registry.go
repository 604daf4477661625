// Package registry 定义外部字节码注册中心的协作接口
//
// 📋 **外部协作者接口 (External Collaborator Interface)**
//
// 调用栈通过本接口解析合约字节码并结算支付，专注于：
// - 同步、可失败的两操作契约（resolve / settle）
// - 对实现方式零假设（文件系统、网络调用、进程内查找均可）
// - 错误原样透传：携带 *types.RuntimeError 的错误按其哨兵码转发
//
// ⚠️ **使用约束**：
//   - 核心不做本地恢复，不隐式重试失败的解析或结算
//   - 未携带哨兵码的错误分别归入 BytecodeNotFound / SettlementError
package registry

import (
	"context"

	"github.com/deadblackclover/wevm/pkg/types"
)

// BytecodeService 字节码注册中心接口
type BytecodeService interface {
	// GetBytecode 按合约标识解析字节码
	GetBytecode(ctx context.Context, contractID []byte) ([]byte, error)

	// AddPayments 将暂存支付结算到目标合约
	AddPayments(ctx context.Context, contractID []byte, payments []types.Payment) error
}
