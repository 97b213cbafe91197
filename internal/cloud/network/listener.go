package network

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync/atomic"
	"time"

	"github.com/Lab-CORO/VR-Robotic-Manipulation/internal/cloud/l2frames"
)

// FrameHandler receives decoded frames. It is the subscription callback of
// the pipeline and must not block for long.
type FrameHandler interface {
	HandleFrame(f *l2frames.Frame)
}

// FrameHandlerFunc adapts a function to FrameHandler.
type FrameHandlerFunc func(f *l2frames.Frame)

func (fn FrameHandlerFunc) HandleFrame(f *l2frames.Frame) { fn(f) }

// UDPListener receives frame datagrams and hands them to a FrameHandler.
type UDPListener struct {
	address     string
	rcvBuf      int
	logInterval time.Duration
	handler     FrameHandler

	conn atomic.Pointer[net.UDPConn]

	datagrams atomic.Uint64
	bytes     atomic.Uint64
	invalid   atomic.Uint64
}

// UDPListenerConfig contains configuration options for the UDP listener.
type UDPListenerConfig struct {
	Address     string
	RcvBuf      int
	LogInterval time.Duration
	Handler     FrameHandler
}

// NewUDPListener creates a new UDP listener with the provided configuration.
func NewUDPListener(config UDPListenerConfig) *UDPListener {
	logInterval := config.LogInterval
	if logInterval == 0 {
		logInterval = time.Minute
	}
	return &UDPListener{
		address:     config.Address,
		rcvBuf:      config.RcvBuf,
		logInterval: logInterval,
		handler:     config.Handler,
	}
}

// Start listens until ctx is cancelled.
func (l *UDPListener) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	l.conn.Store(conn)
	defer conn.Close()

	if l.rcvBuf > 0 {
		if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
			log.Printf("Warning: Failed to set UDP receive buffer size to %d: %v", l.rcvBuf, err)
		}
	}
	log.Printf("UDP frame listener started on %s", conn.LocalAddr())

	go l.logStats(ctx)

	buffer := make([]byte, MaxDatagramSize)
	for {
		select {
		case <-ctx.Done():
			log.Print("UDP frame listener stopping due to context cancellation")
			return ctx.Err()
		default:
		}

		// Short deadline so cancellation is noticed.
		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, from, err := conn.ReadFromUDP(buffer)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("UDP read error: %v", err)
			continue
		}

		if err := l.handleDatagram(buffer[:n]); err != nil {
			log.Printf("Dropping datagram from %v: %v", from, err)
		}
	}
}

// LocalAddr returns the bound address once Start has opened the socket.
func (l *UDPListener) LocalAddr() net.Addr {
	conn := l.conn.Load()
	if conn == nil {
		return nil
	}
	return conn.LocalAddr()
}

func (l *UDPListener) handleDatagram(datagram []byte) error {
	l.datagrams.Add(1)
	l.bytes.Add(uint64(len(datagram)))

	frame, err := DecodeFrame(datagram)
	if err != nil {
		l.invalid.Add(1)
		return err
	}
	// The read buffer is reused for the next datagram.
	frame.Payload = append([]byte(nil), frame.Payload...)
	if l.handler != nil {
		l.handler.HandleFrame(frame)
	}
	return nil
}

func (l *UDPListener) logStats(ctx context.Context) {
	ticker := time.NewTicker(l.logInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := l.Stats()
			log.Printf("UDP frame listener: datagrams=%d bytes=%d invalid=%d", s.Datagrams, s.Bytes, s.Invalid)
		}
	}
}

// ListenerStats holds listener counters.
type ListenerStats struct {
	Datagrams uint64
	Bytes     uint64
	Invalid   uint64
}

// Stats returns the current counters.
func (l *UDPListener) Stats() ListenerStats {
	return ListenerStats{
		Datagrams: l.datagrams.Load(),
		Bytes:     l.bytes.Load(),
		Invalid:   l.invalid.Load(),
	}
}
