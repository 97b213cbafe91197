// Package network delivers point cloud frames from the wire to a frame
// handler: a UDP listener for live producers and a PCAP reader for replay.
package network

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Lab-CORO/VR-Robotic-Manipulation/internal/cloud/l1records"
	"github.com/Lab-CORO/VR-Robotic-Manipulation/internal/cloud/l2frames"
)

/*
Frame datagram layout (little-endian):

	offset  size  field
	0       4     magic 0x43425043 ("CPBC")
	4       1     version (1)
	5       1     reserved
	6       2     topic length T
	8       T     topic (UTF-8)
	8+T     4     sequence
	12+T    4     record stride
	16+T    2     field count F
	        F ×   { name length u8 | name | byte offset u32 | repeat count u32 }
	        4     payload length P
	        P     payload

The payload is carried verbatim; its length need not be a multiple of the
stride (trailing bytes are discarded by the assembler).
*/
const (
	frameMagic   uint32 = 0x43425043
	frameVersion uint8  = 1

	// MaxDatagramSize is the largest UDP payload the listener accepts.
	MaxDatagramSize = 65507
)

var (
	ErrBadMagic           = errors.New("frame: bad magic")
	ErrUnsupportedVersion = errors.New("frame: unsupported version")
	ErrShortFrame         = errors.New("frame: truncated datagram")
)

// EncodeFrame serialises f into a datagram.
func EncodeFrame(f *l2frames.Frame) ([]byte, error) {
	if len(f.Topic) > 0xFFFF {
		return nil, fmt.Errorf("frame: topic too long (%d bytes)", len(f.Topic))
	}
	if len(f.Fields) > 0xFFFF {
		return nil, fmt.Errorf("frame: too many fields (%d)", len(f.Fields))
	}

	size := 8 + len(f.Topic) + 4 + 4 + 2 + 4 + len(f.Payload)
	for _, fd := range f.Fields {
		if len(fd.Name) > 0xFF {
			return nil, fmt.Errorf("frame: field name %q too long", fd.Name)
		}
		size += 1 + len(fd.Name) + 8
	}

	buf := make([]byte, 0, size)
	buf = binary.LittleEndian.AppendUint32(buf, frameMagic)
	buf = append(buf, frameVersion, 0)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(f.Topic)))
	buf = append(buf, f.Topic...)
	buf = binary.LittleEndian.AppendUint32(buf, f.Sequence)
	buf = binary.LittleEndian.AppendUint32(buf, f.RecordStride)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(f.Fields)))
	for _, fd := range f.Fields {
		buf = append(buf, uint8(len(fd.Name)))
		buf = append(buf, fd.Name...)
		buf = binary.LittleEndian.AppendUint32(buf, fd.ByteOffset)
		buf = binary.LittleEndian.AppendUint32(buf, fd.RepeatCount)
	}
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(f.Payload)))
	buf = append(buf, f.Payload...)
	return buf, nil
}

// DecodeFrame parses a datagram. The returned frame's payload aliases data,
// so callers that reuse their read buffer must copy it first.
func DecodeFrame(data []byte) (*l2frames.Frame, error) {
	r := reader{buf: data}

	magic, ok := r.u32()
	if !ok {
		return nil, ErrShortFrame
	}
	if magic != frameMagic {
		return nil, ErrBadMagic
	}
	version, ok := r.u8()
	if !ok {
		return nil, ErrShortFrame
	}
	if version != frameVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	r.u8() // reserved

	f := &l2frames.Frame{}
	topicLen, ok := r.u16()
	if !ok {
		return nil, ErrShortFrame
	}
	topic, ok := r.bytes(int(topicLen))
	if !ok {
		return nil, fmt.Errorf("%w: topic", ErrShortFrame)
	}
	f.Topic = string(topic)

	if f.Sequence, ok = r.u32(); !ok {
		return nil, fmt.Errorf("%w: sequence", ErrShortFrame)
	}
	if f.RecordStride, ok = r.u32(); !ok {
		return nil, fmt.Errorf("%w: stride", ErrShortFrame)
	}
	count, ok := r.u16()
	if !ok {
		return nil, fmt.Errorf("%w: field count", ErrShortFrame)
	}

	f.Fields = make([]l1records.FieldDescriptor, 0, count)
	for i := 0; i < int(count); i++ {
		nameLen, ok := r.u8()
		if !ok {
			return nil, fmt.Errorf("%w: field %d", ErrShortFrame, i)
		}
		name, ok := r.bytes(int(nameLen))
		if !ok {
			return nil, fmt.Errorf("%w: field %d name", ErrShortFrame, i)
		}
		offset, ok1 := r.u32()
		repeat, ok2 := r.u32()
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("%w: field %d location", ErrShortFrame, i)
		}
		f.Fields = append(f.Fields, l1records.FieldDescriptor{Name: string(name), ByteOffset: offset, RepeatCount: repeat})
	}

	payloadLen, ok := r.u32()
	if !ok {
		return nil, fmt.Errorf("%w: payload length", ErrShortFrame)
	}
	if f.Payload, ok = r.bytes(int(payloadLen)); !ok {
		return nil, fmt.Errorf("%w: payload (%d of %d bytes)", ErrShortFrame, r.remaining(), payloadLen)
	}
	return f, nil
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() int { return len(r.buf) - r.off }

func (r *reader) bytes(n int) ([]byte, bool) {
	if n < 0 || r.remaining() < n {
		return nil, false
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, true
}

func (r *reader) u8() (uint8, bool) {
	b, ok := r.bytes(1)
	if !ok {
		return 0, false
	}
	return b[0], true
}

func (r *reader) u16() (uint16, bool) {
	b, ok := r.bytes(2)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint16(b), true
}

func (r *reader) u32() (uint32, bool) {
	b, ok := r.bytes(4)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b), true
}
