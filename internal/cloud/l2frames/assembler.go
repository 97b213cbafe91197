package l2frames

import (
	"errors"
	"fmt"

	"github.com/Lab-CORO/VR-Robotic-Manipulation/internal/cloud/l1records"
)

// AssemblerOptions configures an Assembler.
type AssemblerOptions struct {
	// DefaultColor is used for every point when the layout has no rgb field.
	// The zero value selects White.
	DefaultColor Color

	// UsePool draws output slices from a shared pool. Callers must then
	// Release the buffer once it has been consumed.
	UsePool bool
}

// Assembler turns frames into FrameBuffers. It holds no per-frame state and
// is safe for concurrent use.
type Assembler struct {
	defaultColor Color
	usePool      bool
}

// NewAssembler creates an Assembler.
func NewAssembler(opts AssemblerOptions) *Assembler {
	c := opts.DefaultColor
	if c == (Color{}) {
		c = White
	}
	return &Assembler{defaultColor: c, usePool: opts.UsePool}
}

// DefaultColor returns the colour substituted for missing rgb fields.
func (a *Assembler) DefaultColor() Color {
	return a.defaultColor
}

// Assemble decodes every whole record in frame. Trailing bytes are discarded
// and reported in TruncatedBytes. A layout error rejects the whole frame;
// a missing rgb field does not.
func (a *Assembler) Assemble(frame *Frame) (*FrameBuffer, error) {
	layout := l1records.Resolve(frame.Fields)

	colorDefaulted := false
	if err := layout.Validate(frame.RecordStride); err != nil {
		if !errors.Is(err, l1records.ErrMissingColorField) {
			return nil, fmt.Errorf("frame %d on %q: %w", frame.Sequence, frame.Topic, err)
		}
		colorDefaulted = true
	}

	n := frame.RecordCount()
	buf := &FrameBuffer{
		Topic:          frame.Topic,
		Sequence:       frame.Sequence,
		ColorDefaulted: colorDefaulted,
		TruncatedBytes: frame.Remainder(),
	}
	if a.usePool {
		buf.Positions = getPositions(n)
		buf.Colors = getColors(n)
		buf.pooled = true
	} else {
		buf.Positions = make([]Vector3, n)
		buf.Colors = make([]Color, n)
	}

	for i := 0; i < n; i++ {
		rec, err := l1records.DecodeRecord(frame.Record(i), layout)
		if err != nil {
			buf.Release()
			return nil, fmt.Errorf("frame %d record %d: %w", frame.Sequence, i, err)
		}
		buf.Positions[i] = RemapPosition(rec)
		if rec.HasColor {
			buf.Colors[i] = NormalizeColor(rec.RGB)
		} else {
			buf.Colors[i] = a.defaultColor
		}
	}
	return buf, nil
}
