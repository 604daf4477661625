package env

import (
	stdcontext "context"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	vmcontext "github.com/deadblackclover/wevm/internal/core/vm/context"
	"github.com/deadblackclover/wevm/internal/core/vm/testutil"
	"github.com/deadblackclover/wevm/pkg/types"
)

// ============================================================================
//                              测试替身与夹具
// ============================================================================

type recordedCall struct {
	ContractID []byte
	FuncName   string
	InputData  []byte
}

type recordedSettlement struct {
	ContractID []byte
	Payments   []types.Payment
}

// fakeStack 受控的调用栈替身：预置返回值，记录派发与结算
type fakeStack struct {
	fuel        uint64
	bytecode    map[string][]byte
	getErr      error
	settleErr   error
	callCode    int32
	callErr     error
	calls       []recordedCall
	settlements []recordedSettlement
}

func newFakeStack() *fakeStack {
	return &fakeStack{fuel: 1024, bytecode: make(map[string][]byte)}
}

func (f *fakeStack) GetBytecode(_ stdcontext.Context, contractID []byte) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	bc, ok := f.bytecode[string(contractID)]
	if !ok {
		return nil, types.WrapError(types.ErrBytecodeNotFound, "contract %x", contractID)
	}
	return bc, nil
}

func (f *fakeStack) AddPayments(_ stdcontext.Context, contractID []byte, payments []types.Payment) error {
	if f.settleErr != nil {
		return f.settleErr
	}
	f.settlements = append(f.settlements, recordedSettlement{ContractID: contractID, Payments: payments})
	return nil
}

func (f *fakeStack) Call(_ stdcontext.Context, contractID, _ []byte, funcName string, inputData []byte) (int32, error) {
	f.calls = append(f.calls, recordedCall{ContractID: contractID, FuncName: funcName, InputData: inputData})
	return f.callCode, f.callErr
}

func (f *fakeStack) ConsumeFuel(cost uint64) error {
	if cost > f.fuel {
		f.fuel = 0
		return types.WrapError(types.ErrFuelExhausted, "cost=%d", cost)
	}
	f.fuel -= cost
	return nil
}

func (f *fakeStack) Depth() int { return 1 }

// newHandlerTest 准备带线性内存的guest模块、执行上下文与注入好的Go context
func newHandlerTest(t *testing.T) (stdcontext.Context, api.Module, *vmcontext.ExecutionContext, *fakeStack) {
	t.Helper()

	builder := testutil.NewModuleBuilder()
	builder.Memory(1, 2)

	ctx := stdcontext.Background()
	runtime := wazero.NewRuntime(ctx)
	t.Cleanup(func() { _ = runtime.Close(ctx) })

	mod, err := runtime.Instantiate(ctx, builder.Build())
	require.NoError(t, err)

	fake := newFakeStack()
	ec := vmcontext.New(fake)
	ec.SetHeapBase(4096)
	return vmcontext.WithExecutionContext(ctx, ec), mod, ec, fake
}

func writeGuest(t *testing.T, m api.Module, offset uint32, data []byte) {
	t.Helper()
	require.True(t, m.Memory().Write(offset, data))
}

// ============================================================================
//                              目录与注册
// ============================================================================

// TestFunction_ModuleName 命名空间与版本拼接为导入模块名
func TestFunction_ModuleName(t *testing.T) {
	assert.Equal(t, "env0", Function{Name: "concat", Version: 0}.ModuleName())
	assert.Equal(t, "env1", Function{Name: "concat", Version: 1}.ModuleName())
}

// TestLookup 按 (模块名, 函数名) 精确寻址
func TestLookup(t *testing.T) {
	catalogue := Functions()

	f, ok := Lookup("env0", "call_contract", catalogue)
	require.True(t, ok)
	assert.Len(t, f.Params, 4)
	assert.Equal(t, []api.ValueType{api.ValueTypeI32}, f.Results)

	_, ok = Lookup("env1", "call_contract", catalogue)
	assert.False(t, ok)
	_, ok = Lookup("env0", "no_such_function", catalogue)
	assert.False(t, ok)
}

// TestInstantiate 目录成功注册为宿主模块，重复注册报错
func TestInstantiate(t *testing.T) {
	ctx := stdcontext.Background()
	runtime := wazero.NewRuntime(ctx)
	t.Cleanup(func() { _ = runtime.Close(ctx) })

	require.NoError(t, Instantiate(ctx, runtime))
	assert.Error(t, Instantiate(ctx, runtime))
}

// ============================================================================
//                              参数与支付暂存
// ============================================================================

// TestCallArg_StagesEntriesInOrder 参数按调用顺序进入暂存队列
func TestCallArg_StagesEntriesInOrder(t *testing.T) {
	ctx, m, ec, _ := newHandlerTest(t)

	callArgInt(ctx, m, []uint64{api.EncodeI64(-7)})
	callArgBool(ctx, m, []uint64{api.EncodeI32(1)})

	writeGuest(t, m, 0, []byte{0xCA, 0xFE})
	st := []uint64{0, 2}
	callArgBinary(ctx, m, st)
	assert.Equal(t, types.CodeSuccess, api.DecodeI32(st[0]))

	writeGuest(t, m, 8, []byte("ok"))
	st = []uint64{8, 2}
	callArgString(ctx, m, st)
	assert.Equal(t, types.CodeSuccess, api.DecodeI32(st[0]))

	args, _ := ec.Drain()
	require.Len(t, args, 4)
	assert.Equal(t, int64(-7), args[0].Integer)
	assert.Equal(t, int32(1), args[1].Boolean)
	assert.Equal(t, []byte{0xCA, 0xFE}, args[2].Value)
	assert.Equal(t, types.EntryString, args[3].Type)
	assert.Equal(t, "ok", string(args[3].Value))
}

// TestCallArgBinary_OutOfBounds 越界读取报 MemoryNotFound 且不追加条目
func TestCallArgBinary_OutOfBounds(t *testing.T) {
	ctx, m, ec, _ := newHandlerTest(t)

	st := []uint64{1 << 20, 4}
	callArgBinary(ctx, m, st)
	assert.Equal(t, types.CodeMemoryNotFound, api.DecodeI32(st[0]))
	assert.Zero(t, ec.ArgCount())
}

// TestCallArgString_InvalidUtf8 非法UTF-8在入口处被拒绝
func TestCallArgString_InvalidUtf8(t *testing.T) {
	ctx, m, ec, _ := newHandlerTest(t)

	writeGuest(t, m, 0, []byte{0xFF, 0xFE})
	st := []uint64{0, 2}
	callArgString(ctx, m, st)
	assert.Equal(t, types.CodeUtf8Error, api.DecodeI32(st[0]))
	assert.Zero(t, ec.ArgCount())
}

// TestCallPayment_Accumulates 同一资产多次声明累加
func TestCallPayment_Accumulates(t *testing.T) {
	ctx, m, ec, _ := newHandlerTest(t)

	writeGuest(t, m, 0, []byte("X"))
	st := []uint64{0, 1, uint64(int64(3))}
	callPayment(ctx, m, st)
	assert.Equal(t, types.CodeSuccess, api.DecodeI32(st[0]))

	st = []uint64{0, 1, uint64(int64(4))}
	callPayment(ctx, m, st)
	assert.Equal(t, types.CodeSuccess, api.DecodeI32(st[0]))

	_, payments := ec.Drain()
	require.Len(t, payments, 1)
	assert.Equal(t, int64(7), payments[0].Amount)
}

// ============================================================================
//                              合约间调用协议
// ============================================================================

// TestCallContract_DrainsAndSettlesBeforeDispatch 派发前原子取走暂存并结算支付
func TestCallContract_DrainsAndSettlesBeforeDispatch(t *testing.T) {
	ctx, m, ec, fake := newHandlerTest(t)
	fake.bytecode["two"] = []byte{0x00, 0x61, 0x73, 0x6D}
	fake.callCode = 0

	ec.PushArg(types.NewIntegerEntry(2))
	ec.AddPayment([]byte("X"), 7)

	writeGuest(t, m, 0, []byte("two"))
	writeGuest(t, m, 16, []byte("sum"))

	st := []uint64{0, 3, 16, 3}
	callContract(ctx, m, st)
	assert.Equal(t, types.CodeSuccess, api.DecodeI32(st[0]))

	require.Len(t, fake.calls, 1)
	assert.Equal(t, []byte("two"), fake.calls[0].ContractID)
	assert.Equal(t, "sum", fake.calls[0].FuncName)
	assert.Equal(t, types.SerializeEntries([]types.DataEntry{types.NewIntegerEntry(2)}), fake.calls[0].InputData)

	require.Len(t, fake.settlements, 1)
	assert.Equal(t, []byte("two"), fake.settlements[0].ContractID)
	require.Len(t, fake.settlements[0].Payments, 1)
	assert.Equal(t, int64(7), fake.settlements[0].Payments[0].Amount)

	// 暂存状态已被消费
	assert.Zero(t, ec.ArgCount())
	assert.Zero(t, ec.PaymentCount())
}

// TestCallContract_ForwardsCalleeCode 被调用方自报的状态码原样透传
func TestCallContract_ForwardsCalleeCode(t *testing.T) {
	ctx, m, _, fake := newHandlerTest(t)
	fake.bytecode["two"] = []byte{1}
	fake.callCode = types.CodeBase58Error

	writeGuest(t, m, 0, []byte("two"))
	writeGuest(t, m, 16, []byte("f"))
	st := []uint64{0, 3, 16, 1}
	callContract(ctx, m, st)
	assert.Equal(t, types.CodeBase58Error, api.DecodeI32(st[0]))
}

// TestCallContract_UnknownContract 注册中心错误按哨兵码报告，不派发调用
func TestCallContract_UnknownContract(t *testing.T) {
	ctx, m, ec, fake := newHandlerTest(t)

	ec.PushArg(types.NewIntegerEntry(1))

	writeGuest(t, m, 0, []byte("nope"))
	writeGuest(t, m, 16, []byte("f"))
	st := []uint64{0, 4, 16, 1}
	callContract(ctx, m, st)
	assert.Equal(t, types.CodeBytecodeNotFound, api.DecodeI32(st[0]))
	assert.Empty(t, fake.calls)

	// 解析失败发生在 Drain 之前，暂存保持不变
	assert.Equal(t, 1, ec.ArgCount())
}

// TestCallContract_SettlementError 结算失败不派发调用
func TestCallContract_SettlementError(t *testing.T) {
	ctx, m, _, fake := newHandlerTest(t)
	fake.bytecode["two"] = []byte{1}
	fake.settleErr = types.WrapError(types.ErrSettlementError, "insufficient balance")

	writeGuest(t, m, 0, []byte("two"))
	writeGuest(t, m, 16, []byte("f"))
	st := []uint64{0, 3, 16, 1}
	callContract(ctx, m, st)
	assert.Equal(t, types.CodeSettlementError, api.DecodeI32(st[0]))
	assert.Empty(t, fake.calls)
}

// TestCallContract_ResourceErrorUnwinds 资源类错误以panic展开而非哨兵码
func TestCallContract_ResourceErrorUnwinds(t *testing.T) {
	ctx, m, _, fake := newHandlerTest(t)
	fake.bytecode["two"] = []byte{1}
	fake.callErr = types.WrapError(types.ErrFuelExhausted, "budget spent")

	writeGuest(t, m, 0, []byte("two"))
	writeGuest(t, m, 16, []byte("f"))
	st := []uint64{0, 3, 16, 1}
	assert.Panics(t, func() { callContract(ctx, m, st) })
}

// TestPrologue_ChargesFuelPerEntry 每次宿主函数入口扣除燃料，耗尽时panic
func TestPrologue_ChargesFuelPerEntry(t *testing.T) {
	ctx, m, _, fake := newHandlerTest(t)
	fake.fuel = 2

	callArgInt(ctx, m, []uint64{1})
	assert.Equal(t, uint64(1), fake.fuel)
	callArgInt(ctx, m, []uint64{2})
	assert.Equal(t, uint64(0), fake.fuel)

	assert.Panics(t, func() { callArgInt(ctx, m, []uint64{3}) })
}

// TestPrologue_MissingExecutionContext 缺失执行上下文必须trap而非静默
func TestPrologue_MissingExecutionContext(t *testing.T) {
	_, m, _, _ := newHandlerTest(t)
	assert.Panics(t, func() { callArgInt(stdcontext.Background(), m, []uint64{1}) })
}

// ============================================================================
//                              工具函数与写入协议
// ============================================================================

// TestBase58_RoundTrip 解码与编码互逆，写入协议推进堆基址
func TestBase58_RoundTrip(t *testing.T) {
	ctx, m, ec, _ := newHandlerTest(t)

	raw := []byte{0x00, 0x01, 0xFF, 0x42}
	encoded := base58.Encode(raw)
	writeGuest(t, m, 0, []byte(encoded))

	st := []uint64{0, uint64(len(encoded)), 0, 0}
	base58Decode(ctx, m, st)
	require.Equal(t, types.CodeSuccess, api.DecodeI32(st[0]))
	offset, length := uint32(st[1]), uint32(st[2])
	assert.Equal(t, uint32(4096), offset)
	assert.Equal(t, uint32(len(raw)), length)

	decoded, ok := m.Memory().Read(offset, length)
	require.True(t, ok)
	assert.Equal(t, raw, decoded)

	// 堆基址被推进，下一次写入不会覆盖本次结果
	assert.Equal(t, offset+length, ec.HeapBase())

	st = []uint64{uint64(offset), uint64(length), 0, 0}
	toBase58String(ctx, m, st)
	require.Equal(t, types.CodeSuccess, api.DecodeI32(st[0]))
	reencoded, ok := m.Memory().Read(uint32(st[1]), uint32(st[2]))
	require.True(t, ok)
	assert.Equal(t, encoded, string(reencoded))
}

// TestBase58Decode_InvalidAlphabet 非法字符报 Base58Error
func TestBase58Decode_InvalidAlphabet(t *testing.T) {
	ctx, m, _, _ := newHandlerTest(t)

	writeGuest(t, m, 0, []byte("0OIl"))
	st := []uint64{0, 4, 0, 0}
	base58Decode(ctx, m, st)
	assert.Equal(t, types.CodeBase58Error, api.DecodeI32(st[0]))
	assert.Zero(t, st[1])
	assert.Zero(t, st[2])
}

// TestBytesEquals 字节级精确比较
func TestBytesEquals(t *testing.T) {
	ctx, m, _, _ := newHandlerTest(t)

	writeGuest(t, m, 0, []byte("abc"))
	writeGuest(t, m, 8, []byte("abc"))
	writeGuest(t, m, 16, []byte("abd"))

	st := []uint64{0, 3, 8, 3}
	bytesEquals(ctx, m, st)
	assert.Equal(t, types.CodeSuccess, api.DecodeI32(st[0]))
	assert.Equal(t, int32(1), api.DecodeI32(st[1]))

	st = []uint64{0, 3, 16, 3}
	bytesEquals(ctx, m, st)
	assert.Equal(t, types.CodeSuccess, api.DecodeI32(st[0]))
	assert.Equal(t, int32(0), api.DecodeI32(st[1]))

	// 长度不同不相等
	st = []uint64{0, 3, 8, 2}
	bytesEquals(ctx, m, st)
	assert.Equal(t, int32(0), api.DecodeI32(st[1]))
}

// TestStringEquals UTF-8比较，任一侧非法UTF-8失败
func TestStringEquals(t *testing.T) {
	ctx, m, _, _ := newHandlerTest(t)

	writeGuest(t, m, 0, []byte("héllo"))
	writeGuest(t, m, 16, []byte("héllo"))
	writeGuest(t, m, 32, []byte{0xFF, 0xFE})

	st := []uint64{0, 6, 16, 6}
	stringEquals(ctx, m, st)
	assert.Equal(t, types.CodeSuccess, api.DecodeI32(st[0]))
	assert.Equal(t, int32(1), api.DecodeI32(st[1]))

	st = []uint64{0, 6, 32, 2}
	stringEquals(ctx, m, st)
	assert.Equal(t, types.CodeUtf8Error, api.DecodeI32(st[0]))
}

// TestConcat 保序拼接并按写入协议返回
func TestConcat(t *testing.T) {
	ctx, m, ec, _ := newHandlerTest(t)

	writeGuest(t, m, 0, []byte("foo"))
	writeGuest(t, m, 8, []byte("bar"))

	st := []uint64{0, 3, 8, 3}
	concat(ctx, m, st)
	require.Equal(t, types.CodeSuccess, api.DecodeI32(st[0]))

	value, ok := m.Memory().Read(uint32(st[1]), uint32(st[2]))
	require.True(t, ok)
	assert.Equal(t, []byte("foobar"), value)
	assert.Equal(t, uint32(4096+6), ec.HeapBase())
}
