// Command bridge-sim stands in for the vendor SDK bridge: it synthesizes
// range-image frames and publishes them over UDP in the bridge wire format,
// so the viewer's bridge source can be exercised without sensor hardware.
//
// Usage:
//
//	bridge-sim -target 127.0.0.1:5577 -rate 10
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/corten-vision/range.view/internal/rangeimage"
	"github.com/corten-vision/range.view/internal/sensor/sim"
)

var (
	target  = flag.String("target", "127.0.0.1:5577", "UDP address of the bridge listener")
	rate    = flag.Float64("rate", 10, "Frames per second")
	width   = flag.Int("width", 1024, "Grid columns")
	height  = flag.Int("height", 16, "Grid rows")
	seed    = flag.Int64("seed", 0, "Dropout randomness seed")
	dropout = flag.Float64("dropout", 0.05, "Fraction of pixels with no return")
)

// framePeriod converts a frames-per-second rate to a ticker period.
func framePeriod(rate float64) (time.Duration, error) {
	if rate <= 0 {
		return 0, fmt.Errorf("rate must be positive, got %g", rate)
	}
	return time.Duration(float64(time.Second) / rate), nil
}

func main() {
	flag.Parse()

	period, err := framePeriod(*rate)
	if err != nil {
		log.Fatalf("invalid -rate: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr, err := net.ResolveUDPAddr("udp", *target)
	if err != nil {
		log.Fatalf("resolving %s: %v", *target, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		log.Fatalf("dialing %s: %v", *target, err)
	}
	defer conn.Close()

	src := sim.NewSource(sim.Config{
		Width:       *width,
		Height:      *height,
		Seed:        *seed,
		DropoutRate: *dropout,
	})

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	log.Printf("Publishing %dx%d frames to %s at %.1f Hz", *width, *height, *target, *rate)

	sent := 0
	for {
		select {
		case <-ctx.Done():
			log.Printf("Stopped after %d frames", sent)
			return
		case <-ticker.C:
			comp := src.NextFrame()
			packets, err := rangeimage.EncodeFrame(comp)
			if err != nil {
				log.Fatalf("encoding frame %d: %v", comp.FrameID, err)
			}
			for _, pkt := range packets {
				if _, err := conn.Write(pkt); err != nil {
					log.Printf("sending frame %d: %v", comp.FrameID, err)
					break
				}
			}
			sent++
			if sent%100 == 0 {
				log.Printf("Sent %d frames", sent)
			}
		}
	}
}
