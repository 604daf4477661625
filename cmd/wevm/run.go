package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tetratelabs/wazero/api"

	vmconfig "github.com/deadblackclover/wevm/internal/config/vm"
	"github.com/deadblackclover/wevm/internal/core/infrastructure/log"
	"github.com/deadblackclover/wevm/internal/core/vm/registry"
	"github.com/deadblackclover/wevm/internal/core/vm/stack"
	"github.com/deadblackclover/wevm/pkg/types"
)

var (
	runFuncName     string
	runInputHex     string
	runArgs         []string
	runFuelLimit    uint64
	runMaxCallDepth int
	runContractsDir string
	runUseCompiler  bool
)

// runCmd 执行一次顶层合约调用
var runCmd = &cobra.Command{
	Use:   "run <wasm-file>",
	Short: "执行合约字节码",
	Long: `加载WASM合约字节码并执行一次顶层调用。

输入数据可通过 --input 以十六进制线格式给出,
或通过重复的 --arg 按类型前缀构造:
  --arg int:42  --arg bool:1  --arg str:hello  --arg bin:cafe`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bytecode, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("读取WASM文件失败: %w", err)
		}

		inputData, err := buildInputData()
		if err != nil {
			return err
		}

		ctx := context.Background()
		service := registry.NewFileService(runContractsDir, log.GetLogger())

		s, err := stack.New(ctx, bytecode, service, &vmconfig.Options{
			FuelLimit:    runFuelLimit,
			MaxCallDepth: runMaxCallDepth,
			UseCompiler:  runUseCompiler,
		}, log.GetLogger())
		if err != nil {
			return fmt.Errorf("创建执行环境失败: %w", err)
		}
		defer s.Close(ctx)

		results, err := s.Run(ctx, runFuncName, inputData)
		if err != nil {
			return fmt.Errorf("执行失败 (code=%d): %w", types.CodeOf(err), err)
		}

		for i, v := range results {
			fmt.Printf("result[%d] = %d (i32) / %d (raw)\n", i, api.DecodeI32(v), v)
		}
		fmt.Printf("fuel remaining: %d\n", s.FuelRemaining())
		return nil
	},
}

// buildInputData 从 --input 或 --arg 构造线格式输入数据
func buildInputData() ([]byte, error) {
	if runInputHex != "" {
		if len(runArgs) > 0 {
			return nil, fmt.Errorf("--input 与 --arg 不能同时使用")
		}
		data, err := hex.DecodeString(runInputHex)
		if err != nil {
			return nil, fmt.Errorf("解析 --input 失败: %w", err)
		}
		return data, nil
	}

	entries := make([]types.DataEntry, 0, len(runArgs))
	for _, arg := range runArgs {
		entry, err := parseArg(arg)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return types.SerializeEntries(entries), nil
}

// parseArg 解析 "type:value" 形式的参数描述
func parseArg(arg string) (types.DataEntry, error) {
	kind, value, ok := strings.Cut(arg, ":")
	if !ok {
		return types.DataEntry{}, fmt.Errorf("无效的参数描述 %q (期望 type:value)", arg)
	}

	switch kind {
	case "int":
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return types.DataEntry{}, fmt.Errorf("解析整数参数 %q: %w", value, err)
		}
		return types.NewIntegerEntry(v), nil
	case "bool":
		v, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return types.DataEntry{}, fmt.Errorf("解析布尔参数 %q: %w", value, err)
		}
		return types.NewBooleanEntry(int32(v)), nil
	case "bin":
		v, err := hex.DecodeString(value)
		if err != nil {
			return types.DataEntry{}, fmt.Errorf("解析二进制参数 %q: %w", value, err)
		}
		return types.NewBinaryEntry(v), nil
	case "str":
		return types.NewStringEntry([]byte(value))
	default:
		return types.DataEntry{}, fmt.Errorf("未知的参数类型 %q (支持 int/bool/bin/str)", kind)
	}
}

func init() {
	runCmd.Flags().StringVar(&runFuncName, "func", stack.EntryFunction, "要调用的导出函数名")
	runCmd.Flags().StringVar(&runInputHex, "input", "", "十六进制线格式输入数据")
	runCmd.Flags().StringArrayVar(&runArgs, "arg", nil, "参数描述 type:value (可重复,按声明顺序)")
	runCmd.Flags().Uint64Var(&runFuelLimit, "fuel", vmconfig.DefaultFuelLimit, "燃料预算")
	runCmd.Flags().IntVar(&runMaxCallDepth, "max-depth", vmconfig.DefaultMaxCallDepth, "最大调用深度")
	runCmd.Flags().StringVar(&runContractsDir, "contracts-dir", ".", "合约字节码目录 (<base58(id)>.wasm)")
	runCmd.Flags().BoolVar(&runUseCompiler, "compiler", false, "使用编译器模式 (默认解释器)")
}
