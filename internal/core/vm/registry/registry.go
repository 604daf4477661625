// Package registry 提供字节码注册中心的内置实现
//
// 🎯 **核心职责**：以两种方式实现 registry.BytecodeService 契约
//
// 📋 **实现说明**：
// - FileService：从目录按合约标识加载 .wasm 文件（文件名为标识的base58编码）
// - MemoryService：进程内映射，测试与嵌入场景用，可记录结算历史
//
// 核心对注册中心的实现方式零假设，只依赖其同步、可失败的契约。
package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mr-tron/base58"

	"github.com/deadblackclover/wevm/pkg/interfaces/infrastructure/log"
	"github.com/deadblackclover/wevm/pkg/interfaces/registry"
	"github.com/deadblackclover/wevm/pkg/types"
)

// ============================================================================
//                              文件注册中心
// ============================================================================

// FileService 基于目录的字节码注册中心
//
// 合约标识的base58编码作为文件名，扩展名 .wasm。
// 结算只记录日志：文件注册中心没有账户体系，金额裁决留给外部结算层。
type FileService struct {
	dir    string
	logger log.Logger
}

// 确保FileService实现registry.BytecodeService接口
var _ registry.BytecodeService = (*FileService)(nil)

// NewFileService 创建文件注册中心
func NewFileService(dir string, logger log.Logger) *FileService {
	return &FileService{dir: dir, logger: logger}
}

// GetBytecode 按合约标识加载字节码文件
func (s *FileService) GetBytecode(_ context.Context, contractID []byte) ([]byte, error) {
	name := base58.Encode(contractID) + ".wasm"
	path := filepath.Join(s.dir, name)

	bytecode, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.WrapError(types.ErrBytecodeNotFound, "contract %s", name)
		}
		return nil, fmt.Errorf("read contract file %s: %w", path, err)
	}

	if s.logger != nil {
		s.logger.Debugf("合约字节码加载成功: %s (%d bytes)", name, len(bytecode))
	}
	return bytecode, nil
}

// AddPayments 记录结算请求（文件注册中心不做金额裁决）
func (s *FileService) AddPayments(_ context.Context, contractID []byte, payments []types.Payment) error {
	if s.logger != nil {
		for _, p := range payments {
			s.logger.Infof("结算: contract=%s asset=%x amount=%d",
				base58.Encode(contractID), p.AssetID, p.Amount)
		}
	}
	return nil
}

// ============================================================================
//                             进程内注册中心
// ============================================================================

// Settlement 一次结算调用的记录
type Settlement struct {
	ContractID []byte
	Payments   []types.Payment
}

// MemoryService 进程内字节码注册中心
//
// 非并发安全：归单次顶层调用（及其测试）独占。
type MemoryService struct {
	contracts map[string][]byte

	// Settlements 结算调用历史（按发生顺序）
	Settlements []Settlement

	// SettleErr 非nil时 AddPayments 返回该错误（注入结算失败用）
	SettleErr error
}

// 确保MemoryService实现registry.BytecodeService接口
var _ registry.BytecodeService = (*MemoryService)(nil)

// NewMemoryService 创建进程内注册中心
func NewMemoryService() *MemoryService {
	return &MemoryService{contracts: make(map[string][]byte)}
}

// Register 注册一个合约
func (s *MemoryService) Register(contractID []byte, bytecode []byte) {
	s.contracts[string(contractID)] = bytecode
}

// GetBytecode 按合约标识查找字节码
func (s *MemoryService) GetBytecode(_ context.Context, contractID []byte) ([]byte, error) {
	bytecode, ok := s.contracts[string(contractID)]
	if !ok {
		return nil, types.WrapError(types.ErrBytecodeNotFound, "contract %x", contractID)
	}
	return bytecode, nil
}

// AddPayments 记录结算调用
func (s *MemoryService) AddPayments(_ context.Context, contractID []byte, payments []types.Payment) error {
	if s.SettleErr != nil {
		return s.SettleErr
	}
	id := make([]byte, len(contractID))
	copy(id, contractID)
	s.Settlements = append(s.Settlements, Settlement{ContractID: id, Payments: payments})
	return nil
}
