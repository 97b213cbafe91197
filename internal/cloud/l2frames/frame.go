package l2frames

import "github.com/Lab-CORO/VR-Robotic-Manipulation/internal/cloud/l1records"

// Frame is one inbound message describing a batch of points.
type Frame struct {
	Topic        string
	Sequence     uint32
	RecordStride uint32
	Payload      []byte
	Fields       []l1records.FieldDescriptor
}

// RecordCount returns the number of whole records in the payload.
func (f *Frame) RecordCount() int {
	if f.RecordStride == 0 {
		return 0
	}
	return len(f.Payload) / int(f.RecordStride)
}

// Remainder returns the number of trailing bytes that do not form a record.
func (f *Frame) Remainder() int {
	if f.RecordStride == 0 {
		return len(f.Payload)
	}
	return len(f.Payload) % int(f.RecordStride)
}

// Record returns the byte range of record i. i must be < RecordCount().
func (f *Frame) Record(i int) []byte {
	stride := int(f.RecordStride)
	return f.Payload[i*stride : i*stride+stride]
}
