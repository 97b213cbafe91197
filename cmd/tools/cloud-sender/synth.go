package main

import (
	"encoding/binary"
	"math"

	"github.com/Lab-CORO/VR-Robotic-Manipulation/internal/cloud/l1records"
	"github.com/Lab-CORO/VR-Robotic-Manipulation/internal/cloud/l2frames"
)

const recordStride = 16

// generator produces a rotating sphere of coloured points.
type generator struct {
	topic   string
	points  int
	radius  float64
	noColor bool
	seq     uint32
}

func (g *generator) fields() []l1records.FieldDescriptor {
	fields := []l1records.FieldDescriptor{
		{Name: l1records.FieldX, ByteOffset: 0, RepeatCount: 1},
		{Name: l1records.FieldY, ByteOffset: 4, RepeatCount: 1},
		{Name: l1records.FieldZ, ByteOffset: 8, RepeatCount: 1},
	}
	if !g.noColor {
		fields = append(fields, l1records.FieldDescriptor{Name: l1records.FieldRGB, ByteOffset: 12, RepeatCount: 1})
	}
	return fields
}

// next returns the frame for the given phase in radians.
func (g *generator) next(phase float64) *l2frames.Frame {
	g.seq++
	payload := make([]byte, g.points*recordStride)

	// Fibonacci lattice gives an even spread without clustering at the poles.
	golden := math.Pi * (3 - math.Sqrt(5))
	for i := 0; i < g.points; i++ {
		z := 1 - 2*(float64(i)+0.5)/float64(g.points)
		r := math.Sqrt(1 - z*z)
		theta := golden*float64(i) + phase

		rec := payload[i*recordStride : (i+1)*recordStride]
		binary.LittleEndian.PutUint32(rec[0:], math.Float32bits(float32(g.radius*r*math.Cos(theta))))
		binary.LittleEndian.PutUint32(rec[4:], math.Float32bits(float32(g.radius*r*math.Sin(theta))))
		binary.LittleEndian.PutUint32(rec[8:], math.Float32bits(float32(g.radius*z)))

		// Stored order is blue, green, red: red at the top, blue at the bottom.
		h := (z + 1) / 2
		rec[12] = uint8(255 * (1 - h))
		rec[13] = 64
		rec[14] = uint8(255 * h)
	}

	return &l2frames.Frame{
		Topic:        g.topic,
		Sequence:     g.seq,
		RecordStride: recordStride,
		Payload:      payload,
		Fields:       g.fields(),
	}
}
