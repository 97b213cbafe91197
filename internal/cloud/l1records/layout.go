package l1records

import "fmt"

// Well-known field names. Anything else is resolved but ignored.
const (
	FieldX   = "x"
	FieldY   = "y"
	FieldZ   = "z"
	FieldRGB = "rgb"

	// BytesPerCount is the width of one repeat of a field.
	BytesPerCount = 4

	// rgbBytes is the number of raw intensity bytes read from the rgb slice.
	rgbBytes = 3
)

// FieldDescriptor locates a named attribute inside one record.
type FieldDescriptor struct {
	Name        string
	ByteOffset  uint32
	RepeatCount uint32
}

// Width returns the slice width in bytes.
func (f FieldDescriptor) Width() uint32 {
	return f.RepeatCount * BytesPerCount
}

// FieldSlot is the resolved location of a field.
type FieldSlot struct {
	ByteOffset  uint32
	RepeatCount uint32
}

// Width returns the slot width in bytes.
func (s FieldSlot) Width() uint32 {
	return s.RepeatCount * BytesPerCount
}

// Layout maps field names to their location within a record.
// It is immutable after Resolve and safe for concurrent readers.
type Layout struct {
	slots map[string]FieldSlot
}

// Resolve builds a Layout from descriptors. Order does not matter; when a name
// repeats, the last descriptor wins.
func Resolve(fields []FieldDescriptor) Layout {
	slots := make(map[string]FieldSlot, len(fields))
	for _, f := range fields {
		slots[f.Name] = FieldSlot{ByteOffset: f.ByteOffset, RepeatCount: f.RepeatCount}
	}
	return Layout{slots: slots}
}

// Lookup returns the slot for name, if present.
func (l Layout) Lookup(name string) (FieldSlot, bool) {
	s, ok := l.slots[name]
	return s, ok
}

// Validate checks every known field against the record stride. It is run once
// per frame so that DecodeRecord can slice without re-checking bounds.
//
// A missing rgb field yields ErrMissingColorField; callers decide whether that
// is fatal. All other errors reject the frame.
func (l Layout) Validate(stride uint32) error {
	if stride == 0 {
		return ErrZeroStride
	}
	for _, name := range []string{FieldX, FieldY, FieldZ} {
		s, ok := l.slots[name]
		if !ok {
			continue
		}
		if s.RepeatCount != 1 {
			return fmt.Errorf("field %q repeat count %d: %w", name, s.RepeatCount, ErrMalformedFieldWidth)
		}
		if err := checkRange(name, s, stride, s.Width()); err != nil {
			return err
		}
	}
	rgb, ok := l.slots[FieldRGB]
	if !ok {
		return ErrMissingColorField
	}
	if rgb.Width() < rgbBytes {
		return fmt.Errorf("field %q width %d bytes: %w", FieldRGB, rgb.Width(), ErrMalformedFieldWidth)
	}
	// Only the leading colour bytes are read, so a declared width running
	// past the record is tolerated as long as those bytes fit.
	return checkRange(FieldRGB, FieldSlot{ByteOffset: rgb.ByteOffset}, stride, rgbBytes)
}

func checkRange(name string, s FieldSlot, stride, width uint32) error {
	// uint64 so that offset+width cannot wrap.
	if uint64(s.ByteOffset)+uint64(width) > uint64(stride) {
		return fmt.Errorf("field %q at offset %d width %d, stride %d: %w",
			name, s.ByteOffset, width, stride, ErrFieldOutOfRange)
	}
	return nil
}
