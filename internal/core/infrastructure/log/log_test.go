package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logconfig "github.com/deadblackclover/wevm/internal/config/log"
)

// TestNew_FileOutput 文件输出写入JSON日志行
func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wevm.log")

	logger, err := New(&logconfig.LogOptions{
		Level:     "debug",
		ToConsole: false,
		FilePath:  path,
	})
	require.NoError(t, err)

	logger.Infof("合约调用: contract=%s", "two")
	require.NoError(t, logger.Sync())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "合约调用")
	assert.Contains(t, string(content), "INFO")
}

// TestNew_NoOutputFallsBackToNop 无输出目标时退化为Nop，调用不panic
func TestNew_NoOutputFallsBackToNop(t *testing.T) {
	logger, err := New(&logconfig.LogOptions{Level: "info", ToConsole: false})
	require.NoError(t, err)

	logger.Debug("dropped")
	logger.With("k", "v").Warnf("dropped %d", 1)
	assert.NotNil(t, logger.GetZapLogger())
}

// TestGlobalLogger 全局实例的设置与获取
func TestGlobalLogger(t *testing.T) {
	original := GetLogger()
	t.Cleanup(func() { SetLogger(original) })

	logger, err := New(nil)
	require.NoError(t, err)
	SetLogger(logger)
	assert.Same(t, logger, GetLogger())
}
