package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSerializeEntries_RoundTripPreservesOrder 确认编解码保持条目顺序与内容
func TestSerializeEntries_RoundTripPreservesOrder(t *testing.T) {
	str, err := NewStringEntry([]byte("hello"))
	require.NoError(t, err)

	entries := []DataEntry{
		NewIntegerEntry(-42),
		NewBooleanEntry(1),
		NewBinaryEntry([]byte{0xDE, 0xAD, 0xBE, 0xEF}),
		str,
		NewIntegerEntry(1 << 40),
	}

	decoded, err := DeserializeEntries(SerializeEntries(entries))
	require.NoError(t, err)
	require.Len(t, decoded, len(entries))

	assert.Equal(t, int64(-42), decoded[0].Integer)
	assert.Equal(t, int32(1), decoded[1].Boolean)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, decoded[2].Value)
	assert.Equal(t, "hello", string(decoded[3].Value))
	assert.Equal(t, EntryString, decoded[3].Type)
	assert.Equal(t, int64(1<<40), decoded[4].Integer)
}

// TestDeserializeEntries_EmptyInput 空输入解码为空序列
func TestDeserializeEntries_EmptyInput(t *testing.T) {
	entries, err := DeserializeEntries(nil)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// TestDeserializeEntries_Truncated 截断的记录返回 InvalidBytecode
func TestDeserializeEntries_Truncated(t *testing.T) {
	cases := map[string][]byte{
		"integer missing bytes": {byte(EntryInteger), 0x00, 0x01},
		"boolean missing bytes": {byte(EntryBoolean), 0x00},
		"binary missing length": {byte(EntryBinary), 0x00, 0x00},
		"binary missing value":  {byte(EntryBinary), 0x00, 0x00, 0x00, 0x05, 0x01},
	}
	for label, data := range cases {
		_, err := DeserializeEntries(data)
		assert.ErrorIs(t, err, ErrInvalidBytecode, label)
	}
}

// TestDeserializeEntries_UnknownTag 未知标签返回 InvalidBytecode
func TestDeserializeEntries_UnknownTag(t *testing.T) {
	_, err := DeserializeEntries([]byte{0x7F})
	assert.ErrorIs(t, err, ErrInvalidBytecode)
}

// TestNewStringEntry_InvalidUtf8 非法UTF-8在入口处被拒绝
func TestNewStringEntry_InvalidUtf8(t *testing.T) {
	_, err := NewStringEntry([]byte{0xFF, 0xFE})
	assert.ErrorIs(t, err, ErrUtf8Error)

	// 线格式中的字符串记录同样在解码时校验
	bad := []byte{byte(EntryString), 0x00, 0x00, 0x00, 0x02, 0xFF, 0xFE}
	_, err = DeserializeEntries(bad)
	assert.ErrorIs(t, err, ErrUtf8Error)
}
