package l2frames

import (
	"encoding/binary"
	"math"

	"github.com/Lab-CORO/VR-Robotic-Manipulation/internal/cloud/l1records"
)

var xyzrgbFields = []l1records.FieldDescriptor{
	{Name: "x", ByteOffset: 0, RepeatCount: 1},
	{Name: "y", ByteOffset: 4, RepeatCount: 1},
	{Name: "z", ByteOffset: 8, RepeatCount: 1},
	{Name: "rgb", ByteOffset: 12, RepeatCount: 1},
}

// record encodes one 16-byte x,y,z,rgb record. rgb is in stored order.
func record(x, y, z float32, rgb [3]uint8) []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(x))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(y))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(z))
	copy(buf[12:], rgb[:])
	return buf
}
