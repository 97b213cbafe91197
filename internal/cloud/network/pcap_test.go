package network

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeCapture writes one Ethernet/IPv4/UDP packet per payload.
func writeCapture(t *testing.T, port int, payloads ...[]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frames.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w, err := NewCaptureWriter(f, port)
	require.NoError(t, err)
	for i, payload := range payloads {
		require.NoError(t, w.WriteDatagram(time.Unix(1700000000, int64(i)), payload))
	}
	require.Equal(t, len(payloads), w.Count())
	return path
}

func TestReplayPCAP(t *testing.T) {
	frame, err := EncodeFrame(sampleFrame())
	require.NoError(t, err)

	path := writeCapture(t, 9870, frame, []byte("garbage"), frame)
	other := writeCapture(t, 1234, frame)

	col := &collector{}
	stats, err := ReplayPCAP(context.Background(), path, 9870, col)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Packets)
	assert.Equal(t, 2, stats.Frames)
	assert.Equal(t, 1, stats.Invalid)
	assert.Equal(t, 2, col.len())
	assert.Equal(t, sampleFrame().Fields, col.frames[1].Fields)

	stats, err = ReplayPCAP(context.Background(), other, 9870, col)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Frames, "packets to other ports must be skipped")
}

func TestReplayPCAP_Cancelled(t *testing.T) {
	frame, err := EncodeFrame(sampleFrame())
	require.NoError(t, err)
	path := writeCapture(t, 9870, frame)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ReplayPCAP(ctx, path, 9870, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReplayPCAP_MissingFile(t *testing.T) {
	_, err := ReplayPCAP(context.Background(), filepath.Join(t.TempDir(), "missing.pcap"), 9870, nil)
	assert.Error(t, err)
}
