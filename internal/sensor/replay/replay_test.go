package replay

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/corten-vision/range.view/internal/rangeimage"
	"github.com/corten-vision/range.view/internal/store"
)

func recordSession(t *testing.T, frames int) (*store.Store, string) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "replay.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	id, err := st.StartSession("sim", "replay test")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	for i := 0; i < frames; i++ {
		c := &rangeimage.Component{
			FrameID:  uint32(i + 1),
			Captured: time.Unix(1700000000, int64(i)*int64(time.Millisecond)).UTC(),
			Width:    4, Height: 1,
			ScaleX: 1, ScaleY: 1, ScaleZ: 1,
			Raw: []uint16{1, 2, 3, 4},
		}
		if err := st.RecordFrame(id, c, 4); err != nil {
			t.Fatalf("RecordFrame: %v", err)
		}
	}
	return st, id
}

func TestReplay_DeliversInOrder(t *testing.T) {
	st, id := recordSession(t, 3)
	src := NewSource(st, Config{SessionID: id, Speed: 100})

	errCh := make(chan error, 1)
	go func() { errCh <- src.Start(context.Background()) }()

	var got []uint32
	for c := range src.Frames() {
		got = append(got, c.FrameID)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Start: %v", err)
	}
	want := []uint32{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("replayed %d frames, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("frame %d: ID = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestReplay_UnknownSession(t *testing.T) {
	st, _ := recordSession(t, 1)
	src := NewSource(st, Config{SessionID: "missing"})
	if err := src.Start(context.Background()); err == nil {
		t.Fatal("expected error for unknown session")
	}
}

func TestReplay_LoopStopsOnCancel(t *testing.T) {
	st, id := recordSession(t, 2)
	src := NewSource(st, Config{SessionID: id, Speed: 1000, Loop: true})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- src.Start(ctx) }()

	// Consume more frames than were recorded to prove looping.
	for i := 0; i < 5; i++ {
		select {
		case <-src.Frames():
		case <-time.After(2 * time.Second):
			t.Fatal("looped replay stalled")
		}
	}
	cancel()
	go func() {
		for range src.Frames() {
		}
	}()
	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("Start returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not stop after cancel")
	}
}
