package bridge

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/corten-vision/range.view/internal/monitoring"
	"github.com/corten-vision/range.view/internal/rangeimage"
	"github.com/corten-vision/range.view/internal/sensor"
)

func startListener(t *testing.T) (*Listener, net.Addr, context.CancelFunc, chan error) {
	t.Helper()

	l := NewListener(Config{
		Address: "127.0.0.1:0",
		Stats:   sensor.NewFrameStats(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for l.BoundAddr() == nil {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("listener never bound its socket")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return l, l.BoundAddr(), cancel, errCh
}

func TestListenerDeliversFrame(t *testing.T) {
	l, addr, cancel, errCh := startListener(t)
	defer cancel()

	want := &rangeimage.Component{
		FrameID:  7,
		Captured: time.Unix(1700000000, 0).UTC(),
		Width:    64, Height: 4,
		OffsetX: -8, OffsetZ: 120,
		ScaleX: 0.5, ScaleY: 1, ScaleZ: 0.01,
		Raw: make([]uint16, 64*4),
	}
	for i := range want.Raw {
		want.Raw[i] = uint16(i)
	}
	packets, err := rangeimage.EncodeFrame(want)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}

	conn, err := net.Dial("udp", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	for _, pkt := range packets {
		if _, err := conn.Write(pkt); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	select {
	case got := <-l.Frames():
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("delivered frame mismatch (-want +got):\n%s", diff)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no frame delivered")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("Start returned %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestListenerIgnoresGarbage(t *testing.T) {
	orig := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = orig })

	l, addr, cancel, _ := startListener(t)
	defer cancel()

	conn, err := net.Dial("udp", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Garbage first, then a valid frame; the listener must keep going.
	if _, err := conn.Write([]byte("not a frame chunk")); err != nil {
		t.Fatalf("send garbage: %v", err)
	}

	want := &rangeimage.Component{
		FrameID: 1, Width: 2, Height: 2,
		ScaleX: 1, ScaleY: 1, ScaleZ: 1,
		Captured: time.Unix(0, 0).UTC(),
		Raw:      []uint16{0, 5, 3, 0},
	}
	packets, err := rangeimage.EncodeFrame(want)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	for _, pkt := range packets {
		if _, err := conn.Write(pkt); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	select {
	case got := <-l.Frames():
		if got.FrameID != 1 {
			t.Errorf("FrameID = %d, want 1", got.FrameID)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no frame delivered after garbage packet")
	}
}
