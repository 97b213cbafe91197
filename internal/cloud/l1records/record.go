package l1records

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// PointRecord is one decoded record. RGB holds the raw bytes in stored order
// and is only meaningful when HasColor is true.
type PointRecord struct {
	X, Y, Z  float32
	RGB      [3]uint8
	HasColor bool
}

// String renders the record for debug logs.
func (p PointRecord) String() string {
	if !p.HasColor {
		return fmt.Sprintf("xyz=(%g, %g, %g) rgb=(none)", p.X, p.Y, p.Z)
	}
	return fmt.Sprintf("xyz=(%g, %g, %g) rgb=(%d, %d, %d)", p.X, p.Y, p.Z, p.RGB[0], p.RGB[1], p.RGB[2])
}

// DecodeRecord decodes a single record. The layout must already have passed
// Validate for len(record); DecodeRecord only guards against short slices.
//
// Floats are IEEE-754 little-endian regardless of host byte order. Fields
// other than x, y, z and rgb are ignored.
func DecodeRecord(record []byte, layout Layout) (PointRecord, error) {
	var p PointRecord
	var err error

	if p.X, err = readFloat(record, layout, FieldX); err != nil {
		return PointRecord{}, err
	}
	if p.Y, err = readFloat(record, layout, FieldY); err != nil {
		return PointRecord{}, err
	}
	if p.Z, err = readFloat(record, layout, FieldZ); err != nil {
		return PointRecord{}, err
	}

	if s, ok := layout.Lookup(FieldRGB); ok {
		end := int(s.ByteOffset) + rgbBytes
		if s.Width() < rgbBytes || end > len(record) {
			return PointRecord{}, fmt.Errorf("field %q: %w", FieldRGB, ErrFieldOutOfRange)
		}
		copy(p.RGB[:], record[s.ByteOffset:end])
		p.HasColor = true
	}
	return p, nil
}

func readFloat(record []byte, layout Layout, name string) (float32, error) {
	s, ok := layout.Lookup(name)
	if !ok {
		return 0, nil
	}
	if s.RepeatCount != 1 {
		return 0, fmt.Errorf("field %q repeat count %d: %w", name, s.RepeatCount, ErrMalformedFieldWidth)
	}
	end := int(s.ByteOffset) + BytesPerCount
	if end > len(record) {
		return 0, fmt.Errorf("field %q: %w", name, ErrFieldOutOfRange)
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(record[s.ByteOffset:end])), nil
}

// EncodeRecord writes p into a record of the given stride using layout. It is
// the inverse of DecodeRecord and is used by producers and tests.
func EncodeRecord(p PointRecord, layout Layout, stride uint32) ([]byte, error) {
	if err := layout.Validate(stride); err != nil && !errors.Is(err, ErrMissingColorField) {
		return nil, err
	}
	buf := make([]byte, stride)
	for name, v := range map[string]float32{FieldX: p.X, FieldY: p.Y, FieldZ: p.Z} {
		if s, ok := layout.Lookup(name); ok {
			binary.LittleEndian.PutUint32(buf[s.ByteOffset:], math.Float32bits(v))
		}
	}
	if s, ok := layout.Lookup(FieldRGB); ok && p.HasColor {
		copy(buf[s.ByteOffset:], p.RGB[:])
	}
	return buf, nil
}
