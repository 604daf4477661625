// Package types 提供WEVM对外共享的核心类型定义
//
// 📋 **数据条目模型 (Data Entry Model)**
//
// 本文件定义了跨越宿主/guest边界的参数与返回值表示，专注于：
// - 带类型标签的联合体（整数/布尔/二进制/字符串）
// - 版本化的字节级编码（跨越独立编译合约之间的信任边界，布局必须稳定）
// - 入口处的UTF-8校验（String条目在进入宿主侧时即校验）
//
// 🎯 **设计原则**
// - 顺序敏感：条目按压入顺序编码，被调用方按同一顺序解码
// - 不可变：条目一经压入不再修改
// - 封闭标签：类型标签一经发布不得变更数值
package types

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// EntryType 数据条目类型标签（线格式版本0，冻结数值）
type EntryType byte

const (
	// EntryInteger 64位有符号整数
	EntryInteger EntryType = 0x00

	// EntryBoolean 32位布尔值
	EntryBoolean EntryType = 0x01

	// EntryBinary 原始字节序列
	EntryBinary EntryType = 0x02

	// EntryString UTF-8字节序列（入口处校验）
	EntryString EntryType = 0x03
)

// DataEntry 跨边界的单个参数或返回值
//
// 🎯 **核心职责**：以带标签联合体的形式承载一次调用的一个参数
//
// 同一时刻只有与 Type 对应的字段有效。
type DataEntry struct {
	// Type 类型标签
	Type EntryType

	// Integer 整数值（Type == EntryInteger 时有效）
	Integer int64

	// Boolean 布尔值（Type == EntryBoolean 时有效）
	Boolean int32

	// Value 字节内容（Type == EntryBinary/EntryString 时有效）
	Value []byte
}

// NewIntegerEntry 创建整数条目
func NewIntegerEntry(value int64) DataEntry {
	return DataEntry{Type: EntryInteger, Integer: value}
}

// NewBooleanEntry 创建布尔条目
func NewBooleanEntry(value int32) DataEntry {
	return DataEntry{Type: EntryBoolean, Boolean: value}
}

// NewBinaryEntry 创建二进制条目（不做内容校验）
func NewBinaryEntry(value []byte) DataEntry {
	return DataEntry{Type: EntryBinary, Value: value}
}

// NewStringEntry 创建字符串条目
//
// 在入口处校验UTF-8编码，非法编码返回 ErrUtf8Error。
func NewStringEntry(value []byte) (DataEntry, error) {
	if !utf8.Valid(value) {
		return DataEntry{}, WrapError(ErrUtf8Error, "string entry is not valid utf-8")
	}
	return DataEntry{Type: EntryString, Value: value}, nil
}

// ============================================================================
//                          线格式编解码（版本0）
// ============================================================================
//
// 记录布局（大端序）：
//   0x00 Integer  标签 + 8字节
//   0x01 Boolean  标签 + 4字节
//   0x02 Binary   标签 + u32长度 + 字节
//   0x03 String   标签 + u32长度 + UTF-8字节
//
// 输入数据为若干记录的直接拼接，无总数前缀。

// SerializeEntries 将条目序列编码为版本0线格式
func SerializeEntries(entries []DataEntry) []byte {
	var buf []byte
	for _, e := range entries {
		buf = append(buf, byte(e.Type))
		switch e.Type {
		case EntryInteger:
			var tmp [8]byte
			binary.BigEndian.PutUint64(tmp[:], uint64(e.Integer))
			buf = append(buf, tmp[:]...)
		case EntryBoolean:
			var tmp [4]byte
			binary.BigEndian.PutUint32(tmp[:], uint32(e.Boolean))
			buf = append(buf, tmp[:]...)
		case EntryBinary, EntryString:
			var tmp [4]byte
			binary.BigEndian.PutUint32(tmp[:], uint32(len(e.Value)))
			buf = append(buf, tmp[:]...)
			buf = append(buf, e.Value...)
		}
	}
	return buf
}

// DeserializeEntries 解码版本0线格式
//
// 输入来自不受信任的调用方，所有长度字段都显式校验；
// 任何截断、未知标签或非法UTF-8都返回 ErrInvalidBytecode / ErrUtf8Error。
func DeserializeEntries(data []byte) ([]DataEntry, error) {
	var entries []DataEntry
	pos := 0
	for pos < len(data) {
		tag := EntryType(data[pos])
		pos++
		switch tag {
		case EntryInteger:
			if pos+8 > len(data) {
				return nil, WrapError(ErrInvalidBytecode, "truncated integer entry at offset %d", pos)
			}
			entries = append(entries, NewIntegerEntry(int64(binary.BigEndian.Uint64(data[pos:pos+8]))))
			pos += 8
		case EntryBoolean:
			if pos+4 > len(data) {
				return nil, WrapError(ErrInvalidBytecode, "truncated boolean entry at offset %d", pos)
			}
			entries = append(entries, NewBooleanEntry(int32(binary.BigEndian.Uint32(data[pos:pos+4]))))
			pos += 4
		case EntryBinary, EntryString:
			if pos+4 > len(data) {
				return nil, WrapError(ErrInvalidBytecode, "truncated length prefix at offset %d", pos)
			}
			length := int(binary.BigEndian.Uint32(data[pos : pos+4]))
			pos += 4
			if pos+length > len(data) {
				return nil, WrapError(ErrInvalidBytecode, "truncated value: declared %d bytes at offset %d", length, pos)
			}
			value := make([]byte, length)
			copy(value, data[pos:pos+length])
			pos += length
			if tag == EntryString {
				entry, err := NewStringEntry(value)
				if err != nil {
					return nil, err
				}
				entries = append(entries, entry)
			} else {
				entries = append(entries, NewBinaryEntry(value))
			}
		default:
			return nil, WrapError(ErrInvalidBytecode, "unknown entry tag 0x%02x", byte(tag))
		}
	}
	return entries, nil
}

// String 返回条目的可读表示（日志用）
func (e DataEntry) String() string {
	switch e.Type {
	case EntryInteger:
		return fmt.Sprintf("Integer(%d)", e.Integer)
	case EntryBoolean:
		return fmt.Sprintf("Boolean(%d)", e.Boolean)
	case EntryBinary:
		return fmt.Sprintf("Binary(%d bytes)", len(e.Value))
	case EntryString:
		return fmt.Sprintf("String(%q)", string(e.Value))
	default:
		return fmt.Sprintf("Unknown(0x%02x)", byte(e.Type))
	}
}
