// Package bridge receives range-image frames from the vendor SDK bridge
// over UDP and reassembles them into components.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/corten-vision/range.view/internal/monitoring"
	"github.com/corten-vision/range.view/internal/rangeimage"
	"github.com/corten-vision/range.view/internal/sensor"
)

// Config contains configuration options for the bridge listener.
type Config struct {
	Address     string        // UDP bind address, e.g. ":5577"
	RcvBuf      int           // socket receive buffer size in bytes
	LogInterval time.Duration // periodic stats logging interval (0 disables)
	FrameExpiry time.Duration // incomplete-frame expiry passed to the decoder
	Stats       *sensor.FrameStats
	FrameBuffer int // capacity of the delivery channel (default 4)
}

// Listener binds a UDP socket, feeds datagrams through the wire decoder and
// delivers completed components on a channel. It implements
// sensor.FrameSource.
type Listener struct {
	cfg     Config
	decoder *rangeimage.Decoder
	frames  chan *rangeimage.Component
	buffer  []byte

	mu        sync.Mutex
	boundAddr net.Addr
}

// NewListener creates a listener with the provided configuration.
func NewListener(cfg Config) *Listener {
	if cfg.Stats == nil {
		cfg.Stats = sensor.NewFrameStats()
	}
	if cfg.FrameBuffer <= 0 {
		cfg.FrameBuffer = 4
	}
	return &Listener{
		cfg:     cfg,
		decoder: rangeimage.NewDecoder(cfg.FrameExpiry),
		frames:  make(chan *rangeimage.Component, cfg.FrameBuffer),
		buffer:  make([]byte, 2048), // one wire chunk plus headroom
	}
}

// Frames returns the delivery channel. It is closed when Start returns.
func (l *Listener) Frames() <-chan *rangeimage.Component {
	return l.frames
}

// BoundAddr returns the local address of the UDP socket once Start has
// bound it, or nil before that. Useful with ":0" addresses in tests.
func (l *Listener) BoundAddr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.boundAddr
}

// Close is part of sensor.FrameSource. The socket is owned by Start and
// released there; nothing is held outside it.
func (l *Listener) Close() error { return nil }

// Start receives datagrams until the context is cancelled or an
// unrecoverable socket error occurs.
func (l *Listener) Start(ctx context.Context) error {
	defer close(l.frames)

	addr, err := net.ResolveUDPAddr("udp", l.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %v", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP: %v", err)
	}
	defer conn.Close()

	l.mu.Lock()
	l.boundAddr = conn.LocalAddr()
	l.mu.Unlock()

	if l.cfg.RcvBuf > 0 {
		if err := conn.SetReadBuffer(l.cfg.RcvBuf); err != nil {
			log.Printf("Warning: failed to set UDP receive buffer to %d bytes: %v (some OSes clamp buffer sizes)",
				l.cfg.RcvBuf, err)
		}
	}
	log.Printf("Listening for bridge frames on %s", l.cfg.Address)

	if l.cfg.LogInterval > 0 {
		go l.statsLoop(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("bridge listener shutting down")
			return ctx.Err()
		default:
			// Short read deadline so context cancellation is noticed.
			if err := conn.SetReadDeadline(time.Now().Add(1 * time.Second)); err != nil {
				log.Printf("Error setting read deadline: %v", err)
				continue
			}
			n, _, err := conn.ReadFromUDP(l.buffer)
			if err != nil {
				var nerr net.Error
				if errors.As(err, &nerr) && nerr.Timeout() {
					// Idle tick: sweep frames that will never complete.
					if dropped := l.decoder.Expire(); dropped > 0 {
						l.cfg.Stats.AddDropped(dropped)
					}
					continue
				}
				return fmt.Errorf("UDP read failed: %v", err)
			}

			l.cfg.Stats.AddPacket(n)
			packet := make([]byte, n)
			copy(packet, l.buffer[:n])

			comp, err := l.decoder.Add(packet)
			if err != nil {
				// Per-packet path; keep it on the muteable logger.
				monitoring.Logf("bridge frame decode failed: %v", err)
				continue
			}
			if comp == nil {
				continue
			}
			l.cfg.Stats.AddFrame(comp.NonzeroCount())
			if dropped := l.decoder.Expire(); dropped > 0 {
				l.cfg.Stats.AddDropped(dropped)
			}

			select {
			case l.frames <- comp:
			case <-ctx.Done():
				log.Println("bridge listener shutting down")
				return ctx.Err()
			}
		}
	}
}

// statsLoop logs throughput once per interval and sweeps expired frames.
func (l *Listener) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.LogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := l.cfg.Stats.GetAndReset()
			if s.Packets == 0 && s.Dropped == 0 {
				continue
			}
			mbPerSec := float64(s.Bytes) / s.Duration.Seconds() / (1024 * 1024)
			msg := fmt.Sprintf("Bridge stats (/sec): %.1f MB, %.1f frames, %.0f points",
				mbPerSec, s.FramesPerSecond(), s.PointsPerSecond())
			if s.Dropped > 0 {
				msg += fmt.Sprintf(", %d incomplete frames dropped", s.Dropped)
			}
			monitoring.Logf("%s", msg)
		}
	}
}
