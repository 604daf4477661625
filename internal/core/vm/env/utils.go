// 字节/字符串工具类宿主函数实现
//
// 📋 **写入协议**：
// 产生新值的函数共享输出形状 (status, offset, length)：
// 字节从当前堆基址写入，status=0时 (offset, length) 定位写入的负载；
// status≠0 时 offset/length 为0，guest不得读取。
package env

import (
	"bytes"
	stdcontext "context"

	"github.com/mr-tron/base58"
	"github.com/tetratelabs/wazero/api"

	"github.com/deadblackclover/wevm/pkg/types"
)

// base58Decode (offset, length) -> (i32, i32, i32)
//
// 将内存中的base58 ASCII字符串解码为原始字节并按写入协议写回。
func base58Decode(ctx stdcontext.Context, m api.Module, stack []uint64) {
	ec, acc := prologue(ctx, m)

	value, err := acc.ReadString(uint32(stack[0]), uint32(stack[1]))
	if err != nil {
		stack[0], stack[1], stack[2] = api.EncodeI32(types.CodeOf(err)), 0, 0
		return
	}

	decoded, err := base58.Decode(value)
	if err != nil {
		stack[0], stack[1], stack[2] = api.EncodeI32(types.CodeBase58Error), 0, 0
		return
	}

	offset, length, err := writeResult(ec, acc, decoded)
	if err != nil {
		stack[0], stack[1], stack[2] = api.EncodeI32(types.CodeOf(err)), 0, 0
		return
	}
	stack[0], stack[1], stack[2] = api.EncodeI32(types.CodeSuccess), uint64(offset), uint64(length)
}

// toBase58String (offset, length) -> (i32, i32, i32)
//
// 将内存中的原始字节编码为base58 ASCII并按写入协议写回。
func toBase58String(ctx stdcontext.Context, m api.Module, stack []uint64) {
	ec, acc := prologue(ctx, m)

	value, err := acc.Read(uint32(stack[0]), uint32(stack[1]))
	if err != nil {
		stack[0], stack[1], stack[2] = api.EncodeI32(types.CodeOf(err)), 0, 0
		return
	}

	encoded := []byte(base58.Encode(value))

	offset, length, err := writeResult(ec, acc, encoded)
	if err != nil {
		stack[0], stack[1], stack[2] = api.EncodeI32(types.CodeOf(err)), 0, 0
		return
	}
	stack[0], stack[1], stack[2] = api.EncodeI32(types.CodeSuccess), uint64(offset), uint64(length)
}

// bytesEquals (offset_left, length_left, offset_right, length_right) -> (i32, i32)
//
// 两个内存区域的字节级精确比较；内容永不失败，只有内存访问会失败。
func bytesEquals(ctx stdcontext.Context, m api.Module, stack []uint64) {
	_, acc := prologue(ctx, m)

	left, err := acc.Read(uint32(stack[0]), uint32(stack[1]))
	if err != nil {
		stack[0], stack[1] = api.EncodeI32(types.CodeOf(err)), 0
		return
	}
	right, err := acc.Read(uint32(stack[2]), uint32(stack[3]))
	if err != nil {
		stack[0], stack[1] = api.EncodeI32(types.CodeOf(err)), 0
		return
	}

	stack[0] = api.EncodeI32(types.CodeSuccess)
	stack[1] = api.EncodeI32(boolToI32(bytes.Equal(left, right)))
}

// stringEquals (offset_left, length_left, offset_right, length_right) -> (i32, i32)
//
// UTF-8字符串精确比较；任一侧非法UTF-8返回 Utf8Error。
func stringEquals(ctx stdcontext.Context, m api.Module, stack []uint64) {
	_, acc := prologue(ctx, m)

	left, err := acc.ReadString(uint32(stack[0]), uint32(stack[1]))
	if err != nil {
		stack[0], stack[1] = api.EncodeI32(types.CodeOf(err)), 0
		return
	}
	right, err := acc.ReadString(uint32(stack[2]), uint32(stack[3]))
	if err != nil {
		stack[0], stack[1] = api.EncodeI32(types.CodeOf(err)), 0
		return
	}

	stack[0] = api.EncodeI32(types.CodeSuccess)
	stack[1] = api.EncodeI32(boolToI32(left == right))
}

// concat (offset_left, length_left, offset_right, length_right) -> (i32, i32, i32)
//
// 两个内存区域的字节级拼接（left||right，保序），按写入协议写回。
func concat(ctx stdcontext.Context, m api.Module, stack []uint64) {
	ec, acc := prologue(ctx, m)

	left, err := acc.Read(uint32(stack[0]), uint32(stack[1]))
	if err != nil {
		stack[0], stack[1], stack[2] = api.EncodeI32(types.CodeOf(err)), 0, 0
		return
	}
	right, err := acc.Read(uint32(stack[2]), uint32(stack[3]))
	if err != nil {
		stack[0], stack[1], stack[2] = api.EncodeI32(types.CodeOf(err)), 0, 0
		return
	}

	result := make([]byte, 0, len(left)+len(right))
	result = append(result, left...)
	result = append(result, right...)

	offset, length, err := writeResult(ec, acc, result)
	if err != nil {
		stack[0], stack[1], stack[2] = api.EncodeI32(types.CodeOf(err)), 0, 0
		return
	}
	stack[0], stack[1], stack[2] = api.EncodeI32(types.CodeSuccess), uint64(offset), uint64(length)
}

func boolToI32(v bool) int32 {
	if v {
		return 1
	}
	return 0
}
