package l1records

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func putFloat(buf []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
}

func TestDecodeRecord_RoundTripXYZ(t *testing.T) {
	buf := make([]byte, 16)
	putFloat(buf, 0, 1.0)
	putFloat(buf, 4, 2.0)
	putFloat(buf, 8, 3.0)
	copy(buf[12:], []byte{10, 20, 30, 99})

	p, err := DecodeRecord(buf, Resolve(xyzrgb()))
	require.NoError(t, err)

	assert.Equal(t, float32(1.0), p.X)
	assert.Equal(t, float32(2.0), p.Y)
	assert.Equal(t, float32(3.0), p.Z)
	assert.True(t, p.HasColor)
	assert.Equal(t, [3]uint8{10, 20, 30}, p.RGB, "bytes past the third must be ignored")
}

func TestDecodeRecord_OffsetsFromDescriptors(t *testing.T) {
	// z first, then rgb, then x and y, with padding in between.
	fields := []FieldDescriptor{
		{Name: "z", ByteOffset: 0, RepeatCount: 1},
		{Name: "rgb", ByteOffset: 4, RepeatCount: 1},
		{Name: "x", ByteOffset: 12, RepeatCount: 1},
		{Name: "y", ByteOffset: 20, RepeatCount: 1},
	}
	buf := make([]byte, 24)
	putFloat(buf, 0, -7.5)
	copy(buf[4:], []byte{1, 2, 3})
	putFloat(buf, 12, 0.25)
	putFloat(buf, 20, 1e6)

	p, err := DecodeRecord(buf, Resolve(fields))
	require.NoError(t, err)
	assert.Equal(t, PointRecord{X: 0.25, Y: 1e6, Z: -7.5, RGB: [3]uint8{1, 2, 3}, HasColor: true}, p)
}

func TestDecodeRecord_NoColor(t *testing.T) {
	buf := make([]byte, 12)
	putFloat(buf, 0, 4)

	p, err := DecodeRecord(buf, Resolve(xyzrgb()[:3]))
	require.NoError(t, err)
	assert.False(t, p.HasColor)
	assert.Equal(t, [3]uint8{}, p.RGB)
	assert.Equal(t, "xyz=(4, 0, 0) rgb=(none)", p.String())
}

func TestDecodeRecord_MalformedPositionWidth(t *testing.T) {
	fields := []FieldDescriptor{{Name: "y", ByteOffset: 0, RepeatCount: 3}}
	_, err := DecodeRecord(make([]byte, 16), Resolve(fields))
	assert.True(t, errors.Is(err, ErrMalformedFieldWidth), "got %v", err)
}

func TestDecodeRecord_ShortRecord(t *testing.T) {
	_, err := DecodeRecord(make([]byte, 10), Resolve(xyzrgb()))
	assert.ErrorIs(t, err, ErrFieldOutOfRange)
}

func TestDecodeRecord_UnknownFieldsIgnored(t *testing.T) {
	fields := append(xyzrgb(), FieldDescriptor{Name: "normal_x", ByteOffset: 100, RepeatCount: 9})
	buf := make([]byte, 16)
	putFloat(buf, 8, 5)

	p, err := DecodeRecord(buf, Resolve(fields))
	require.NoError(t, err)
	assert.Equal(t, float32(5), p.Z)
}

func TestEncodeRecord_InverseOfDecode(t *testing.T) {
	layout := Resolve(xyzrgb())
	in := PointRecord{X: -1.5, Y: 2.25, Z: 1e-3, RGB: [3]uint8{0, 128, 255}, HasColor: true}

	buf, err := EncodeRecord(in, layout, 16)
	require.NoError(t, err)
	require.Len(t, buf, 16)

	out, err := DecodeRecord(buf, layout)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, "xyz=(-1.5, 2.25, 0.001) rgb=(0, 128, 255)", out.String())
}

func TestEncodeRecord_RejectsBadLayout(t *testing.T) {
	_, err := EncodeRecord(PointRecord{}, Resolve(xyzrgb()), 8)
	assert.ErrorIs(t, err, ErrFieldOutOfRange)
}
