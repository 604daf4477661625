// 参数暂存、支付声明与合约间调用的宿主函数实现
//
// 📋 **失败编码约定**：
// 每个宿主函数都是全函数——绝不中止嵌入进程，所有失败都以
// i32哨兵码写回guest指令流；是否重试、中止或忽略由guest自行裁决。
// 唯一例外是资源类错误（燃料/深度），它们通过trap展开整条调用链。
package env

import (
	stdcontext "context"

	"github.com/tetratelabs/wazero/api"

	"github.com/deadblackclover/wevm/pkg/types"
)

// callArgInt (value: i64) — 追加一个整数参数条目，无失败模式
func callArgInt(ctx stdcontext.Context, m api.Module, stack []uint64) {
	ec, _ := prologue(ctx, m)
	ec.PushArg(types.NewIntegerEntry(int64(stack[0])))
}

// callArgBool (value: i32) — 追加一个布尔参数条目，无失败模式
func callArgBool(ctx stdcontext.Context, m api.Module, stack []uint64) {
	ec, _ := prologue(ctx, m)
	ec.PushArg(types.NewBooleanEntry(api.DecodeI32(stack[0])))
}

// callArgBinary (offset, length) -> i32 — 读取内存区域并追加为二进制条目
func callArgBinary(ctx stdcontext.Context, m api.Module, stack []uint64) {
	ec, acc := prologue(ctx, m)

	value, err := acc.Read(uint32(stack[0]), uint32(stack[1]))
	if err != nil {
		stack[0] = api.EncodeI32(types.CodeOf(err))
		return
	}

	ec.PushArg(types.NewBinaryEntry(value))
	stack[0] = api.EncodeI32(types.CodeSuccess)
}

// callArgString (offset, length) -> i32 — 读取内存区域并追加为字符串条目（入口校验UTF-8）
func callArgString(ctx stdcontext.Context, m api.Module, stack []uint64) {
	ec, acc := prologue(ctx, m)

	value, err := acc.Read(uint32(stack[0]), uint32(stack[1]))
	if err != nil {
		stack[0] = api.EncodeI32(types.CodeOf(err))
		return
	}
	entry, err := types.NewStringEntry(value)
	if err != nil {
		stack[0] = api.EncodeI32(types.CodeOf(err))
		return
	}

	ec.PushArg(entry)
	stack[0] = api.EncodeI32(types.CodeSuccess)
}

// callPayment (offset_asset_id, length_asset_id, amount: i64) -> i32
//
// 按资产标识向支付账本累加金额；同一资产的多次声明求和而非覆盖。
func callPayment(ctx stdcontext.Context, m api.Module, stack []uint64) {
	ec, acc := prologue(ctx, m)

	assetID, err := acc.Read(uint32(stack[0]), uint32(stack[1]))
	if err != nil {
		stack[0] = api.EncodeI32(types.CodeOf(err))
		return
	}

	ec.AddPayment(assetID, int64(stack[2]))
	stack[0] = api.EncodeI32(types.CodeSuccess)
}

// callContract (offset_contract_id, length_contract_id, offset_func_name, length_func_name) -> i32
//
// 合约间调用协议：
//  1. 从内存解析被调用合约标识
//  2. 通过外部注册中心解析字节码（注册中心错误按其哨兵码透传）
//  3. UTF-8解码函数名
//  4. 原子取走暂存的参数与支付——暂存状态被消费的唯一时点
//  5. 通过调用栈的结算钩子对被调用合约应用支付
//  6. 压入新帧，以线格式编码的参数调用目标函数
//  7. 被调用方必须恰好返回一个i32结果；该值即为本函数的返回值
//     （被调用方自报的状态码，guest函数不能经此路径返回数据）
//  8. 无论成败都弹出帧，栈深度严格递减
func callContract(ctx stdcontext.Context, m api.Module, stack []uint64) {
	ec, acc := prologue(ctx, m)

	contractID, err := acc.Read(uint32(stack[0]), uint32(stack[1]))
	if err != nil {
		stack[0] = api.EncodeI32(types.CodeOf(err))
		return
	}

	bytecode, err := ec.Stack().GetBytecode(ctx, contractID)
	if err != nil {
		stack[0] = api.EncodeI32(types.CodeOf(err))
		return
	}

	funcName, err := acc.ReadString(uint32(stack[2]), uint32(stack[3]))
	if err != nil {
		stack[0] = api.EncodeI32(types.CodeOf(err))
		return
	}

	args, payments := ec.Drain()

	if err := ec.Stack().AddPayments(ctx, contractID, payments); err != nil {
		stack[0] = api.EncodeI32(types.CodeOf(err))
		return
	}

	code, err := ec.Stack().Call(ctx, contractID, bytecode, funcName, types.SerializeEntries(args))
	if err != nil {
		// 资源类错误必须展开整条调用链，不能作为哨兵码报告给当前guest
		if types.IsResourceError(err) {
			panic(err)
		}
		stack[0] = api.EncodeI32(types.CodeOf(err))
		return
	}

	stack[0] = api.EncodeI32(code)
}
