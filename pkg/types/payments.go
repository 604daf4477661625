// Package types 提供WEVM对外共享的核心类型定义
//
// 📋 **支付账本 (Payment Ledger)**
//
// 本文件定义了合约间调用前暂存的支付账本，专注于：
// - 按资产标识累加金额（同一资产多次声明求和，不覆盖）
// - 确定性遍历顺序（按首次声明顺序）
// - 原子消费（与参数队列一起在调用派发时一次性取走）
package types

// Payment 单笔支付条目（资产标识 + 有符号金额）
//
// 负数或零金额由外部结算层裁决，账本本身不做拒绝。
type Payment struct {
	// AssetID 资产标识
	AssetID []byte

	// Amount 有符号金额
	Amount int64
}

// PaymentLedger 支付账本
//
// 🎯 **核心职责**：为下一次合约调用累积支付声明
//
// 同一资产的多次声明按金额累加；遍历顺序为首次声明顺序，
// 保证跨副本的确定性。非并发安全：账本归单个执行上下文独占。
type PaymentLedger struct {
	entries []Payment
	index   map[string]int
}

// NewPaymentLedger 创建空支付账本
func NewPaymentLedger() *PaymentLedger {
	return &PaymentLedger{index: make(map[string]int)}
}

// Add 累加一笔支付声明
func (l *PaymentLedger) Add(assetID []byte, amount int64) {
	key := string(assetID)
	if i, ok := l.index[key]; ok {
		l.entries[i].Amount += amount
		return
	}
	id := make([]byte, len(assetID))
	copy(id, assetID)
	l.index[key] = len(l.entries)
	l.entries = append(l.entries, Payment{AssetID: id, Amount: amount})
}

// Entries 返回账本条目（首次声明顺序）
func (l *PaymentLedger) Entries() []Payment {
	return l.entries
}

// Len 返回不同资产的数量
func (l *PaymentLedger) Len() int {
	return len(l.entries)
}
