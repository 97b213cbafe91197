package visualiser

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Lab-CORO/VR-Robotic-Manipulation/internal/cloud/l2frames"
)

// Geometry wire format, little-endian:
//
//	magic u32 | version u8 | visible u8 | topic_len u16 | topic
//	sequence u32 | geometry_version u64 | published_unix_nanos i64
//	pose 7×f64 (px py pz qw qx qy qz) | bounds 6×f64 (min xyz, max xyz)
//	count u32 | positions count×3×f32 | colors count×4×f32
//
// Indices are implicit (one per point) and rebuilt on decode.
const (
	geometryMagic   uint32 = 0x4d474243 // "CBGM"
	geometryVersion uint8  = 1

	// maxGeometryPoints bounds allocations when decoding untrusted input.
	maxGeometryPoints = 4 << 20
)

var (
	ErrGeometryMagic   = errors.New("geometry: bad magic")
	ErrGeometryVersion = errors.New("geometry: unsupported version")
	ErrGeometryTooBig  = errors.New("geometry: point count too large")
)

type geometryHeader struct {
	Magic    uint32
	Version  uint8
	Visible  uint8
	TopicLen uint16
}

type geometryMeta struct {
	Sequence        uint32
	GeometryVersion uint64
	PublishedAt     int64
	Pose            [7]float64
	Bounds          [6]float64
	Count           uint32
}

// EncodeGeometry serialises g for the render stream.
func EncodeGeometry(g *Geometry) ([]byte, error) {
	if len(g.Topic) > 0xFFFF {
		return nil, fmt.Errorf("geometry: topic too long (%d bytes)", len(g.Topic))
	}
	if len(g.Colors) != len(g.Positions) {
		return nil, fmt.Errorf("geometry: %d positions but %d colors", len(g.Positions), len(g.Colors))
	}

	var buf bytes.Buffer
	buf.Grow(64 + len(g.Topic) + len(g.Positions)*28)

	hdr := geometryHeader{Magic: geometryMagic, Version: geometryVersion, TopicLen: uint16(len(g.Topic))}
	if g.Visible {
		hdr.Visible = 1
	}
	o := g.Pose.Orientation
	meta := geometryMeta{
		Sequence:        g.Sequence,
		GeometryVersion: g.Version,
		Pose:            [7]float64{g.Pose.Position.X, g.Pose.Position.Y, g.Pose.Position.Z, o.Real, o.Imag, o.Jmag, o.Kmag},
		Bounds:          [6]float64{g.Bounds.Min.X, g.Bounds.Min.Y, g.Bounds.Min.Z, g.Bounds.Max.X, g.Bounds.Max.Y, g.Bounds.Max.Z},
		Count:           uint32(len(g.Positions)),
	}
	if !g.PublishedAt.IsZero() {
		meta.PublishedAt = g.PublishedAt.UnixNano()
	}

	// Writes to a bytes.Buffer cannot fail for fixed-size data.
	_ = binary.Write(&buf, binary.LittleEndian, hdr)
	buf.WriteString(g.Topic)
	_ = binary.Write(&buf, binary.LittleEndian, meta)
	_ = binary.Write(&buf, binary.LittleEndian, g.Positions)
	_ = binary.Write(&buf, binary.LittleEndian, g.Colors)
	return buf.Bytes(), nil
}

// DecodeGeometry parses data produced by EncodeGeometry.
func DecodeGeometry(data []byte) (*Geometry, error) {
	r := bytes.NewReader(data)

	var hdr geometryHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("geometry header: %w", err)
	}
	if hdr.Magic != geometryMagic {
		return nil, ErrGeometryMagic
	}
	if hdr.Version != geometryVersion {
		return nil, fmt.Errorf("%w: %d", ErrGeometryVersion, hdr.Version)
	}

	topic := make([]byte, hdr.TopicLen)
	if _, err := io.ReadFull(r, topic); err != nil {
		return nil, fmt.Errorf("geometry topic: %w", err)
	}

	var meta geometryMeta
	if err := binary.Read(r, binary.LittleEndian, &meta); err != nil {
		return nil, fmt.Errorf("geometry meta: %w", err)
	}
	if meta.Count > maxGeometryPoints {
		return nil, fmt.Errorf("%w: %d", ErrGeometryTooBig, meta.Count)
	}
	if want := int(meta.Count) * 28; r.Len() < want {
		return nil, fmt.Errorf("geometry: %d bytes of point data, want %d", r.Len(), want)
	}

	g := &Geometry{
		Version:   meta.GeometryVersion,
		Topic:     string(topic),
		Sequence:  meta.Sequence,
		Visible:   hdr.Visible != 0,
		Positions: make([]l2frames.Vector3, meta.Count),
		Colors:    make([]l2frames.Color, meta.Count),
		Indices:   pointIndices(int(meta.Count)),
		Pose: AnchorPose{
			Position:    r3.Vec{X: meta.Pose[0], Y: meta.Pose[1], Z: meta.Pose[2]},
			Orientation: quat.Number{Real: meta.Pose[3], Imag: meta.Pose[4], Jmag: meta.Pose[5], Kmag: meta.Pose[6]},
		},
		Bounds: r3.Box{
			Min: r3.Vec{X: meta.Bounds[0], Y: meta.Bounds[1], Z: meta.Bounds[2]},
			Max: r3.Vec{X: meta.Bounds[3], Y: meta.Bounds[4], Z: meta.Bounds[5]},
		},
	}
	if meta.PublishedAt != 0 {
		g.PublishedAt = time.Unix(0, meta.PublishedAt)
	}
	if err := binary.Read(r, binary.LittleEndian, g.Positions); err != nil {
		return nil, fmt.Errorf("geometry positions: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, g.Colors); err != nil {
		return nil, fmt.Errorf("geometry colors: %w", err)
	}
	return g, nil
}
