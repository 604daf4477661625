// 燃料计量
//
// 📋 **资源模型**：
// 每次顶层调用对照一个预先声明的燃料预算执行。指令级的逐条扣减
// 属于底层字节码引擎（外部协作者）；本层的契约是预算本身与耗尽语义：
// 帧的压入与每次宿主函数入口都计费，耗尽后确定性地中止整条调用链，
// 而不是可恢复的挂起。
package stack

import (
	"github.com/deadblackclover/wevm/pkg/types"
)

// 燃料成本常量
const (
	// frameCost 每次帧压入的成本（合约间调用派发）
	frameCost = 16
)

// FuelMeter 燃料计量器
//
// 非并发安全：执行是单线程协作式的，计量器归一个调用栈独占。
type FuelMeter struct {
	remaining uint64
}

// NewFuelMeter 以给定预算创建计量器
func NewFuelMeter(limit uint64) *FuelMeter {
	return &FuelMeter{remaining: limit}
}

// Consume 扣除指定成本，预算不足返回 ErrFuelExhausted
func (m *FuelMeter) Consume(cost uint64) error {
	if cost > m.remaining {
		m.remaining = 0
		return types.WrapError(types.ErrFuelExhausted, "cost=%d", cost)
	}
	m.remaining -= cost
	return nil
}

// Remaining 返回剩余预算
func (m *FuelMeter) Remaining() uint64 {
	return m.remaining
}
