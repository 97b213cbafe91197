package l2frames

// FrameBuffer holds the index-aligned output of one assembled frame.
// It has a single owner at a time; ownership moves from the assembler to the
// gate and then to the publisher.
type FrameBuffer struct {
	Topic     string
	Sequence  uint32
	Positions []Vector3
	Colors    []Color

	// ColorDefaulted is set when the layout had no rgb field.
	ColorDefaulted bool
	// TruncatedBytes counts trailing payload bytes that were discarded.
	TruncatedBytes int

	pooled bool
}

// Len returns the number of points.
func (b *FrameBuffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Positions)
}

// Release returns pooled slices. The buffer must not be used afterwards.
// Unpooled buffers are left to the garbage collector.
func (b *FrameBuffer) Release() {
	if b == nil || !b.pooled {
		return
	}
	putPositions(b.Positions)
	putColors(b.Colors)
	b.Positions = nil
	b.Colors = nil
	b.pooled = false
}
