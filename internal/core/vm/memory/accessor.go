// Package memory 提供guest线性内存的边界检查访问器
//
// 🎯 **核心职责**：将不受信任的 (offset, length) 对转换为字节切片或UTF-8字符串
//
// 📋 **设计特点**：
// - 显式越界检查：guest提供的偏移/长度永不直接解引用
// - 失败即类型化错误：未挂载内存与越界访问都映射到 MemoryNotFound 哨兵码
// - 写入协议：宿主产生的值从堆基址向上写入，必要时按页扩容
//
// ⚠️ **共享资源约束**：
// 访问器只在单次宿主函数调用期间可变借用guest内存，
// 不跨调用持有引用；堆基址的推进由执行上下文负责，不在本层。
package memory

import (
	"unicode/utf8"

	"github.com/tetratelabs/wazero/api"

	"github.com/deadblackclover/wevm/pkg/types"
)

// wasm页大小（64KB）
const pageSize = 65536

// Accessor guest线性内存访问器
type Accessor struct {
	mem api.Memory
}

// NewAccessor 创建内存访问器
//
// mem 可以为nil（当前帧未挂载内存），此时所有访问返回 MemoryNotFound。
func NewAccessor(mem api.Memory) *Accessor {
	return &Accessor{mem: mem}
}

// Attached 返回当前帧是否挂载了线性内存
func (a *Accessor) Attached() bool {
	return a.mem != nil
}

// Size 返回内存当前字节大小
func (a *Accessor) Size() uint32 {
	if a.mem == nil {
		return 0
	}
	return a.mem.Size()
}

// Read 读取 [offset, offset+length) 的字节切片
//
// 返回的是拷贝：guest在宿主函数返回后可能覆写同一区域。
func (a *Accessor) Read(offset, length uint32) ([]byte, error) {
	if a.mem == nil {
		return nil, types.WrapError(types.ErrMemoryNotFound, "no linear memory attached")
	}
	if uint64(offset)+uint64(length) > uint64(a.mem.Size()) {
		return nil, types.WrapError(types.ErrMemoryNotFound,
			"out of bounds: offset=%d length=%d size=%d", offset, length, a.mem.Size())
	}
	view, ok := a.mem.Read(offset, length)
	if !ok {
		return nil, types.WrapError(types.ErrMemoryNotFound,
			"read failed: offset=%d length=%d", offset, length)
	}
	value := make([]byte, length)
	copy(value, view)
	return value, nil
}

// ReadString 读取并按UTF-8解码 [offset, offset+length)
func (a *Accessor) ReadString(offset, length uint32) (string, error) {
	value, err := a.Read(offset, length)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(value) {
		return "", types.WrapError(types.ErrUtf8Error, "offset=%d length=%d", offset, length)
	}
	return string(value), nil
}

// Write 从offset起写入data，必要时扩容
func (a *Accessor) Write(offset uint32, data []byte) error {
	if a.mem == nil {
		return types.WrapError(types.ErrMemoryNotFound, "no linear memory attached")
	}
	end := uint64(offset) + uint64(len(data))
	if end > uint64(a.mem.Size()) {
		needed := end - uint64(a.mem.Size())
		pages := uint32((needed + pageSize - 1) / pageSize)
		if _, ok := a.mem.Grow(pages); !ok {
			return types.WrapError(types.ErrMemoryNotFound,
				"grow failed: offset=%d length=%d size=%d", offset, len(data), a.mem.Size())
		}
	}
	if !a.mem.Write(offset, data) {
		return types.WrapError(types.ErrMemoryNotFound,
			"write failed: offset=%d length=%d", offset, len(data))
	}
	return nil
}
