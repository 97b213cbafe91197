package network

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Lab-CORO/VR-Robotic-Manipulation/internal/cloud/l1records"
	"github.com/Lab-CORO/VR-Robotic-Manipulation/internal/cloud/l2frames"
)

func sampleFrame() *l2frames.Frame {
	return &l2frames.Frame{
		Topic:        "/camera/depth/color/points",
		Sequence:     41,
		RecordStride: 16,
		Payload:      []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17},
		Fields: []l1records.FieldDescriptor{
			{Name: "x", ByteOffset: 0, RepeatCount: 1},
			{Name: "y", ByteOffset: 4, RepeatCount: 1},
			{Name: "z", ByteOffset: 8, RepeatCount: 1},
			{Name: "rgb", ByteOffset: 12, RepeatCount: 1},
		},
	}
}

func TestFrameCodec_RoundTrip(t *testing.T) {
	in := sampleFrame()
	data, err := EncodeFrame(in)
	if err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}
	out, err := DecodeFrame(data)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeFrame_Errors(t *testing.T) {
	good, err := EncodeFrame(sampleFrame())
	if err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}

	badMagic := append([]byte(nil), good...)
	badMagic[1] = 0
	if _, err := DecodeFrame(badMagic); !errors.Is(err, ErrBadMagic) {
		t.Errorf("expected ErrBadMagic, got %v", err)
	}

	badVersion := append([]byte(nil), good...)
	badVersion[4] = 2
	if _, err := DecodeFrame(badVersion); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("expected ErrUnsupportedVersion, got %v", err)
	}

	// Every strict prefix is truncated.
	for n := 0; n < len(good); n++ {
		if _, err := DecodeFrame(good[:n]); !errors.Is(err, ErrShortFrame) {
			t.Fatalf("prefix %d: expected ErrShortFrame, got %v", n, err)
		}
	}
}

func TestEncodeFrame_Limits(t *testing.T) {
	f := sampleFrame()
	f.Fields = append(f.Fields, l1records.FieldDescriptor{Name: string(make([]byte, 256))})
	if _, err := EncodeFrame(f); err == nil {
		t.Error("expected error for long field name")
	}
}
