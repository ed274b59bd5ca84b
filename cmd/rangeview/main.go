// Command rangeview runs the acquisition/display loop: it pulls range-image
// frames from a frame source (the vendor SDK bridge, the simulator, or a
// recorded session), converts each into a point cloud, and serves a live 2D
// view over HTTP until 'q' is pressed.
//
// Usage:
//
//	rangeview -source sim
//	rangeview -source bridge -udp-addr :5577 -record -db frames.db
//	rangeview -source replay -db frames.db -session <uuid> -loop
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/corten-vision/range.view/internal/config"
	"github.com/corten-vision/range.view/internal/pointcloud"
	"github.com/corten-vision/range.view/internal/sensor"
	"github.com/corten-vision/range.view/internal/sensor/bridge"
	"github.com/corten-vision/range.view/internal/sensor/replay"
	"github.com/corten-vision/range.view/internal/sensor/sim"
	"github.com/corten-vision/range.view/internal/store"
	"github.com/corten-vision/range.view/internal/trigger"
	"github.com/corten-vision/range.view/internal/viewer"
)

var (
	sourceName  = flag.String("source", "sim", "Frame source: bridge, sim or replay")
	listen      = flag.String("listen", ":8080", "Viewer HTTP listen address")
	udpAddr     = flag.String("udp-addr", ":5577", "UDP bind address for the bridge source")
	rcvBuf      = flag.Int("rcvbuf", 4<<20, "UDP receive buffer size in bytes (default 4MB)")
	logInterval = flag.Int("log-interval", 2, "Statistics logging interval in seconds")
	dbFile      = flag.String("db", "frames.db", "Path to the SQLite frame store")
	record      = flag.Bool("record", false, "Record received frames into the store")
	notes       = flag.String("notes", "", "Notes attached to the recording session")
	sessionID   = flag.String("session", "", "Session to replay (replay source)")
	speed       = flag.Float64("replay-speed", 1.0, "Replay speed multiplier")
	loop        = flag.Bool("loop", false, "Loop replay at end of session")
	configFile  = flag.String("config", "", "Acquisition config JSON (optional)")
	triggerPort = flag.String("trigger-port", "", "Serial port of the trigger box (optional; free-running without it)")
)

func main() {
	flag.Parse()

	if err := run(); err != nil && err != context.Canceled {
		log.Fatalf("rangeview: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional frame store: required for replay, opt-in for recording.
	var st *store.Store
	if *record || *sourceName == "replay" {
		var err error
		st, err = store.Open(*dbFile)
		if err != nil {
			return fmt.Errorf("opening frame store: %w", err)
		}
		defer st.Close()
	}

	src, err := buildSource(st)
	if err != nil {
		return err
	}
	defer src.Close()

	// Trigger box configuration happens before the first frame so the head
	// never acquires with stale settings.
	if *triggerPort != "" {
		acq := config.DefaultAcquisitionConfig()
		if *configFile != "" {
			if acq, err = config.LoadAcquisitionConfig(*configFile); err != nil {
				return err
			}
		}
		tc, err := trigger.Open(*triggerPort)
		if err != nil {
			return err
		}
		defer func() {
			if err := tc.Arm(false); err != nil {
				log.Printf("disarming trigger: %v", err)
			}
			tc.Close()
		}()
		if err := tc.Apply(acq); err != nil {
			return err
		}
	} else if *configFile != "" {
		log.Printf("Warning: -config given without -trigger-port; acquisition config not applied")
	}

	var recordSession string
	if *record {
		if recordSession, err = st.StartSession(*sourceName, *notes); err != nil {
			return err
		}
		log.Printf("Recording to session %s", recordSession)
		defer func() {
			if err := st.EndSession(recordSession); err != nil {
				log.Printf("ending session: %v", err)
			}
		}()
	}

	view := viewer.NewServer(viewer.Config{Address: *listen, Source: *sourceName})
	go view.Start(ctx)

	srcErr := make(chan error, 1)
	go func() { srcErr <- src.Start(ctx) }()

	keys := watchKeys(ctx)

	log.Printf("Ready to acquire (viewer on %s, press 'q' to quit)", *listen)

	// The loop is strictly sequential: acquire, convert, publish/record,
	// check for exit.
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-srcErr:
			if err != nil && err != context.Canceled {
				return fmt.Errorf("frame source failed: %w", err)
			}
			log.Println("frame source finished")
			return nil
		case key := <-keys:
			if key == 'q' {
				log.Println("'q' pressed, stopping")
				stop()
				return nil
			}
		case comp, ok := <-src.Frames():
			if !ok {
				continue // Start's return arrives on srcErr
			}
			cloud, err := pointcloud.FromRangeImage(comp)
			if err != nil {
				return fmt.Errorf("frame %d: %w", comp.FrameID, err)
			}
			view.Publish(comp.FrameID, comp.Captured, cloud, pointcloud.Summarize(cloud))
			if *record {
				if err := st.RecordFrame(recordSession, comp, len(cloud)); err != nil {
					return err
				}
			}
		}
	}
}

// buildSource constructs the frame source selected by -source.
func buildSource(st *store.Store) (sensor.FrameSource, error) {
	switch *sourceName {
	case "bridge":
		return bridge.NewListener(bridge.Config{
			Address:     *udpAddr,
			RcvBuf:      *rcvBuf,
			LogInterval: time.Duration(*logInterval) * time.Second,
			Stats:       sensor.NewFrameStats(),
		}), nil
	case "sim":
		return sim.NewSource(sim.Config{}), nil
	case "replay":
		if *sessionID == "" {
			return nil, fmt.Errorf("-session is required with -source replay")
		}
		return replay.NewSource(st, replay.Config{
			SessionID: *sessionID,
			Speed:     *speed,
			Loop:      *loop,
		}), nil
	default:
		return nil, fmt.Errorf("unknown source %q (want bridge, sim or replay)", *sourceName)
	}
}

// watchKeys delivers single-character commands typed on stdin. The terminal
// is line-buffered, so the operator types 'q' and Enter; reads happen on
// their own goroutine and never stall the acquisition loop.
func watchKeys(ctx context.Context) <-chan byte {
	keys := make(chan byte, 1)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			select {
			case keys <- line[0]:
			case <-ctx.Done():
				return
			}
		}
	}()
	return keys
}
