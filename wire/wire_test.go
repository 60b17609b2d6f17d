package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRead(t *testing.T) {
	var w Writer
	w.WriteU8(7)
	w.WriteU32(0xDEADBEEF)
	w.WriteU64(1<<40 + 3)
	w.WriteI32(-5)
	w.WriteString("hello")
	w.WriteString("")
	w.WriteRaw([]byte("tail"))

	r := NewReader(w.Bytes())

	u8, err := r.ReadU8()
	require.NoError(t, err)
	assert.Equal(t, uint8(7), u8)

	u32, err := r.ReadU32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), u32)

	u64, err := r.ReadU64()
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<40+3), u64)

	i32, err := r.ReadI32()
	require.NoError(t, err)
	assert.Equal(t, int32(-5), i32)

	s, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	s, err = r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "", s)

	assert.Equal(t, "tail", string(r.Tail()))
	assert.Zero(t, r.Remaining())
}

func TestLittleEndianLayout(t *testing.T) {
	var w Writer
	w.WriteU32(0x01020304)
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, w.Bytes())
}

func TestShortBuffer(t *testing.T) {
	r := NewReader([]byte{1, 2})
	_, err := r.ReadU32()
	assert.ErrorIs(t, err, ErrShortBuffer)

	_, err = NewReader(nil).ReadU8()
	assert.ErrorIs(t, err, ErrShortBuffer)

	_, err = NewReader([]byte{1, 2, 3}).ReadU64()
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func TestUnterminatedString(t *testing.T) {
	_, err := NewReader([]byte("no-nul")).ReadString()
	assert.ErrorIs(t, err, ErrMissingNul)
}

func TestReadCount(t *testing.T) {
	var w Writer
	w.WriteU32(3)
	w.WriteRaw(make([]byte, 30))

	n, err := NewReader(w.Bytes()).ReadCount(10)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), n)

	_, err = NewReader(w.Bytes()).ReadCount(11)
	assert.ErrorIs(t, err, ErrCountTooLarge)

	var huge Writer
	huge.WriteU32(0xFFFFFFFF)
	_, err = NewReader(huge.Bytes()).ReadCount(1)
	assert.ErrorIs(t, err, ErrCountTooLarge)
}
