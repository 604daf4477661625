// Package testutil 提供测试用的wasm字节码构造器
//
// 🎯 **核心职责**：在测试中直接装配最小wasm二进制模块
//
// 测试合约体量极小（个位数指令），直接产出二进制段比引入
// 文本格式编译链更可控；构造器覆盖测试所需的段子集：
// type/import/function/memory/global/export/code/data。
package testutil

// 值类型编码
const (
	I32 byte = 0x7F
	I64 byte = 0x7E
	F32 byte = 0x7D
)

// 常用操作码
const (
	OpEnd        byte = 0x0B
	OpCall       byte = 0x10
	OpDrop       byte = 0x1A
	OpLocalGet   byte = 0x20
	OpI32Const   byte = 0x41
	OpI64Const   byte = 0x42
	OpI32Ne      byte = 0x47
	OpI32Add     byte = 0x6A
	OpI64Add     byte = 0x7C
	OpI32WrapI64 byte = 0xA7
)

type importEntry struct {
	module, name string
	typeIdx      uint32
}

type funcEntry struct {
	typeIdx uint32
	body    []byte
}

type exportEntry struct {
	name  string
	kind  byte
	index uint32
}

type globalEntry struct {
	value int32
}

type dataEntry struct {
	offset int32
	data   []byte
}

// ModuleBuilder wasm二进制模块构造器
type ModuleBuilder struct {
	types   [][]byte
	imports []importEntry
	funcs   []funcEntry
	hasMem  bool
	memMin  uint32
	memMax  uint32
	globals []globalEntry
	exports []exportEntry
	datas   []dataEntry
}

// NewModuleBuilder 创建空模块构造器
func NewModuleBuilder() *ModuleBuilder {
	return &ModuleBuilder{}
}

// typeIndex 登记函数类型，返回类型索引
func (b *ModuleBuilder) typeIndex(params, results []byte) uint32 {
	enc := []byte{0x60}
	enc = append(enc, uleb(uint64(len(params)))...)
	enc = append(enc, params...)
	enc = append(enc, uleb(uint64(len(results)))...)
	enc = append(enc, results...)
	for i, t := range b.types {
		if string(t) == string(enc) {
			return uint32(i)
		}
	}
	b.types = append(b.types, enc)
	return uint32(len(b.types) - 1)
}

// ImportFunc 导入宿主函数，返回函数索引
//
// 必须在所有 AddFunc 之前调用（导入函数占据索引空间前段）。
func (b *ModuleBuilder) ImportFunc(module, name string, params, results []byte) uint32 {
	if len(b.funcs) > 0 {
		panic("testutil: imports must be declared before defined functions")
	}
	b.imports = append(b.imports, importEntry{module: module, name: name, typeIdx: b.typeIndex(params, results)})
	return uint32(len(b.imports) - 1)
}

// AddFunc 定义函数，body为不含终结end的指令序列，返回函数索引
func (b *ModuleBuilder) AddFunc(params, results []byte, body ...byte) uint32 {
	b.funcs = append(b.funcs, funcEntry{typeIdx: b.typeIndex(params, results), body: body})
	return uint32(len(b.imports) + len(b.funcs) - 1)
}

// ExportFunc 导出函数
func (b *ModuleBuilder) ExportFunc(name string, funcIdx uint32) {
	b.exports = append(b.exports, exportEntry{name: name, kind: 0x00, index: funcIdx})
}

// Memory 声明线性内存（页数）并导出为 "memory"
func (b *ModuleBuilder) Memory(min, max uint32) {
	b.hasMem = true
	b.memMin = min
	b.memMax = max
	b.exports = append(b.exports, exportEntry{name: "memory", kind: 0x02, index: 0})
}

// HeapBaseGlobal 声明并导出 __heap_base 全局
func (b *ModuleBuilder) HeapBaseGlobal(value int32) {
	b.globals = append(b.globals, globalEntry{value: value})
	b.exports = append(b.exports, exportEntry{name: "__heap_base", kind: 0x03, index: uint32(len(b.globals) - 1)})
}

// Data 声明数据段
func (b *ModuleBuilder) Data(offset int32, data []byte) {
	b.datas = append(b.datas, dataEntry{offset: offset, data: data})
}

// Build 产出wasm二进制
func (b *ModuleBuilder) Build() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}

	// type section (1)
	if len(b.types) > 0 {
		var body []byte
		body = append(body, uleb(uint64(len(b.types)))...)
		for _, t := range b.types {
			body = append(body, t...)
		}
		out = appendSection(out, 1, body)
	}

	// import section (2)
	if len(b.imports) > 0 {
		var body []byte
		body = append(body, uleb(uint64(len(b.imports)))...)
		for _, imp := range b.imports {
			body = append(body, name(imp.module)...)
			body = append(body, name(imp.name)...)
			body = append(body, 0x00)
			body = append(body, uleb(uint64(imp.typeIdx))...)
		}
		out = appendSection(out, 2, body)
	}

	// function section (3)
	if len(b.funcs) > 0 {
		var body []byte
		body = append(body, uleb(uint64(len(b.funcs)))...)
		for _, f := range b.funcs {
			body = append(body, uleb(uint64(f.typeIdx))...)
		}
		out = appendSection(out, 3, body)
	}

	// memory section (5)
	if b.hasMem {
		body := []byte{0x01, 0x01}
		body = append(body, uleb(uint64(b.memMin))...)
		body = append(body, uleb(uint64(b.memMax))...)
		out = appendSection(out, 5, body)
	}

	// global section (6)
	if len(b.globals) > 0 {
		var body []byte
		body = append(body, uleb(uint64(len(b.globals)))...)
		for _, g := range b.globals {
			body = append(body, I32, 0x00, OpI32Const)
			body = append(body, sleb(int64(g.value))...)
			body = append(body, OpEnd)
		}
		out = appendSection(out, 6, body)
	}

	// export section (7)
	if len(b.exports) > 0 {
		var body []byte
		body = append(body, uleb(uint64(len(b.exports)))...)
		for _, e := range b.exports {
			body = append(body, name(e.name)...)
			body = append(body, e.kind)
			body = append(body, uleb(uint64(e.index))...)
		}
		out = appendSection(out, 7, body)
	}

	// code section (10)
	if len(b.funcs) > 0 {
		var body []byte
		body = append(body, uleb(uint64(len(b.funcs)))...)
		for _, f := range b.funcs {
			code := []byte{0x00} // 无局部变量
			code = append(code, f.body...)
			code = append(code, OpEnd)
			body = append(body, uleb(uint64(len(code)))...)
			body = append(body, code...)
		}
		out = appendSection(out, 10, body)
	}

	// data section (11)
	if len(b.datas) > 0 {
		var body []byte
		body = append(body, uleb(uint64(len(b.datas)))...)
		for _, d := range b.datas {
			body = append(body, 0x00, OpI32Const)
			body = append(body, sleb(int64(d.offset))...)
			body = append(body, OpEnd)
			body = append(body, uleb(uint64(len(d.data)))...)
			body = append(body, d.data...)
		}
		out = appendSection(out, 11, body)
	}

	return out
}

// ============================================================================
//                              指令编码辅助
// ============================================================================

// I32Const 编码 i32.const 指令
func I32Const(v int32) []byte {
	return append([]byte{OpI32Const}, sleb(int64(v))...)
}

// I64Const 编码 i64.const 指令
func I64Const(v int64) []byte {
	return append([]byte{OpI64Const}, sleb(v)...)
}

// LocalGet 编码 local.get 指令
func LocalGet(i uint32) []byte {
	return append([]byte{OpLocalGet}, uleb(uint64(i))...)
}

// Call 编码 call 指令
func Call(funcIdx uint32) []byte {
	return append([]byte{OpCall}, uleb(uint64(funcIdx))...)
}

// Instrs 拼接指令序列
func Instrs(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func appendSection(out []byte, id byte, body []byte) []byte {
	out = append(out, id)
	out = append(out, uleb(uint64(len(body)))...)
	return append(out, body...)
}

func name(s string) []byte {
	return append(uleb(uint64(len(s))), []byte(s)...)
}

func uleb(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			return append(out, b)
		}
	}
}

func sleb(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}
