// Command cloud-sender emits synthetic point cloud frames for exercising a
// cloudbridge without a real sensor.
//
// Usage:
//
//	go run ./cmd/tools/cloud-sender [flags]
//
// Flags:
//
//	-addr      Destination UDP address (default: localhost:5700)
//	-rate      Frame rate in Hz (default: 30)
//	-points    Points per frame (default: 2000)
//	-frames    Number of frames to send, 0 for unlimited (default: 0)
//	-no-color  Omit the rgb field
//	-pcap-out  Write frames to a PCAP capture instead of sending them
package main

import (
	"context"
	"flag"
	"log"
	"math"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Lab-CORO/VR-Robotic-Manipulation/internal/cloud/network"
)

// Leaves room for the frame header and field table.
const maxPoints = (network.MaxDatagramSize - 256) / recordStride

func main() {
	addr := flag.String("addr", "localhost:5700", "Destination UDP address")
	rate := flag.Float64("rate", 30, "Frame rate in Hz")
	points := flag.Int("points", 2000, "Points per frame")
	frames := flag.Int("frames", 0, "Number of frames to send (0 = unlimited)")
	topic := flag.String("topic", "/synthetic/points", "Topic name carried in each frame")
	noColor := flag.Bool("no-color", false, "Omit the rgb field")
	pcapOut := flag.String("pcap-out", "", "Write frames to this PCAP file instead of sending")
	pcapPort := flag.Int("pcap-port", 5700, "UDP destination port recorded in the PCAP")
	flag.Parse()

	if *points > maxPoints {
		log.Printf("Clamping points from %d to %d to fit one datagram", *points, maxPoints)
		*points = maxPoints
	}
	if *rate <= 0 {
		log.Fatal("rate must be positive")
	}

	gen := &generator{topic: *topic, points: *points, radius: 1.5, noColor: *noColor}
	period := time.Duration(float64(time.Second) / *rate)

	if *pcapOut != "" {
		n := *frames
		if n == 0 {
			n = int(*rate) * 10
		}
		if err := writeCapture(*pcapOut, *pcapPort, gen, n, period); err != nil {
			log.Fatalf("failed to write capture: %v", err)
		}
		log.Printf("Wrote %d frames to %s", n, *pcapOut)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := net.Dial("udp", *addr)
	if err != nil {
		log.Fatalf("failed to dial %s: %v", *addr, err)
	}
	defer conn.Close()

	log.Printf("Sending %d points at %.1f Hz to %s", *points, *rate, *addr)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	start := time.Now()
	sent := 0
	for *frames == 0 || sent < *frames {
		select {
		case <-ctx.Done():
			log.Printf("Stopped after %d frames", sent)
			return
		case <-ticker.C:
		}

		phase := math.Mod(time.Since(start).Seconds(), 2*math.Pi)
		data, err := network.EncodeFrame(gen.next(phase))
		if err != nil {
			log.Fatalf("failed to encode frame: %v", err)
		}
		if _, err := conn.Write(data); err != nil {
			log.Printf("send failed: %v", err)
			continue
		}
		sent++
		if sent%int(math.Max(*rate*10, 1)) == 0 {
			log.Printf("Sent %d frames", sent)
		}
	}
	log.Printf("Sent %d frames", sent)
}

func writeCapture(path string, port int, gen *generator, n int, period time.Duration) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := network.NewCaptureWriter(f, port)
	if err != nil {
		return err
	}
	ts := time.Now()
	for i := 0; i < n; i++ {
		data, err := network.EncodeFrame(gen.next(float64(i) * 0.05))
		if err != nil {
			return err
		}
		if err := w.WriteDatagram(ts.Add(time.Duration(i)*period), data); err != nil {
			return err
		}
	}
	return f.Sync()
}
