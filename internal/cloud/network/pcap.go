package network

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// ReplayStats summarises a PCAP replay.
type ReplayStats struct {
	Packets int
	Frames  int
	Invalid int
	Elapsed time.Duration
}

// ReplayPCAP reads frame datagrams sent to udpPort from a capture file and
// delivers them to handler as fast as they can be decoded. Packets to other
// ports and non-UDP packets are skipped.
func ReplayPCAP(ctx context.Context, path string, udpPort int, handler FrameHandler) (ReplayStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return ReplayStats{}, fmt.Errorf("failed to open PCAP file %s: %w", path, err)
	}
	defer f.Close()

	r, err := pcapgo.NewReader(f)
	if err != nil {
		return ReplayStats{}, fmt.Errorf("failed to read PCAP header: %w", err)
	}

	var stats ReplayStats
	start := time.Now()
	for {
		if err := ctx.Err(); err != nil {
			log.Printf("PCAP replay stopping due to context cancellation (processed %d packets)", stats.Packets)
			return stats, err
		}

		data, _, err := r.ReadPacketData()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("failed to read packet %d: %w", stats.Packets+1, err)
		}
		stats.Packets++

		packet := gopacket.NewPacket(data, r.LinkType(), gopacket.NoCopy)
		udp, ok := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
		if !ok || int(udp.DstPort) != udpPort || len(udp.Payload) == 0 {
			continue
		}

		frame, err := DecodeFrame(udp.Payload)
		if err != nil {
			stats.Invalid++
			continue
		}
		stats.Frames++
		if handler != nil {
			handler.HandleFrame(frame)
		}
	}

	stats.Elapsed = time.Since(start)
	log.Printf("PCAP replay complete: %d packets, %d frames, %d invalid in %v",
		stats.Packets, stats.Frames, stats.Invalid, stats.Elapsed)
	return stats, nil
}

// CaptureWriter records frame datagrams as Ethernet/IPv4/UDP packets in
// pcap format, producing captures that ReplayPCAP can read back.
type CaptureWriter struct {
	w       *pcapgo.Writer
	srcPort layers.UDPPort
	dstPort layers.UDPPort
	srcIP   net.IP
	dstIP   net.IP
	count   int
}

// NewCaptureWriter writes a pcap file header to w and returns a writer for
// datagrams addressed to dstPort.
func NewCaptureWriter(w io.Writer, dstPort int) (*CaptureWriter, error) {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("failed to write PCAP header: %w", err)
	}
	return &CaptureWriter{
		w:       pw,
		srcPort: 40000,
		dstPort: layers.UDPPort(dstPort),
		srcIP:   net.IPv4(192, 168, 1, 10),
		dstIP:   net.IPv4(192, 168, 1, 20),
	}, nil
}

// WriteDatagram appends one packet carrying payload, stamped ts.
func (c *CaptureWriter) WriteDatagram(ts time.Time, payload []byte) error {
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0, 1, 2, 3, 4, 5},
		DstMAC:       net.HardwareAddr{0, 1, 2, 3, 4, 6},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    c.srcIP,
		DstIP:    c.dstIP,
	}
	udp := &layers.UDP{SrcPort: c.srcPort, DstPort: c.dstPort}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		return err
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)); err != nil {
		return fmt.Errorf("failed to serialise packet: %w", err)
	}

	data := buf.Bytes()
	ci := gopacket.CaptureInfo{
		Timestamp:     ts,
		CaptureLength: len(data),
		Length:        len(data),
	}
	if err := c.w.WritePacket(ci, data); err != nil {
		return fmt.Errorf("failed to write packet %d: %w", c.count+1, err)
	}
	c.count++
	return nil
}

// Count returns the number of packets written.
func (c *CaptureWriter) Count() int {
	return c.count
}
