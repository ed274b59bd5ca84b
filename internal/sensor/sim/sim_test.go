package sim

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestNextFrame_Valid(t *testing.T) {
	s := NewSource(Config{Seed: 1})
	c := s.NextFrame()
	if err := c.Validate(); err != nil {
		t.Fatalf("simulated frame invalid: %v", err)
	}
	if c.FrameID != 1 {
		t.Errorf("FrameID = %d, want 1", c.FrameID)
	}
	if c.NonzeroCount() == 0 {
		t.Error("simulated frame has no returns")
	}
	if c.NonzeroCount() == c.Width*c.Height {
		t.Error("simulated frame has no dropouts")
	}
}

func TestNextFrame_Deterministic(t *testing.T) {
	a := NewSource(Config{Seed: 42})
	b := NewSource(Config{Seed: 42})
	ca, cb := a.NextFrame(), b.NextFrame()
	if diff := cmp.Diff(ca.Raw, cb.Raw); diff != "" {
		t.Errorf("same seed produced different grids (-a +b):\n%s", diff)
	}
}

func TestNewSource_ZeroConfigDefaults(t *testing.T) {
	// A zero-value Config is what the acquisition loop passes for the
	// default sim source; every field must pick up its default, dropout
	// included.
	s := NewSource(Config{})
	def := DefaultConfig()
	c := s.NextFrame()
	if c.Width != def.Width || c.Height != def.Height {
		t.Errorf("grid = %dx%d, want %dx%d", c.Width, c.Height, def.Width, def.Height)
	}
	if c.OffsetX != def.OffsetX || c.ScaleZ != def.ScaleZ {
		t.Errorf("calibration not defaulted: OffsetX=%v ScaleZ=%v", c.OffsetX, c.ScaleZ)
	}
	if c.NonzeroCount() == c.Width*c.Height {
		t.Error("zero-value config produced no dropouts")
	}
}

func TestNewSource_KeepsCallerCalibration(t *testing.T) {
	// Any nonzero calibration field keeps the whole block as given; the
	// caller's offsets must not be overwritten by defaults.
	s := NewSource(Config{Seed: 1, OffsetX: 5})
	c := s.NextFrame()
	if c.OffsetX != 5 {
		t.Errorf("OffsetX = %v, want 5", c.OffsetX)
	}
	if c.ScaleX != 0 || c.OffsetZ != 0 {
		t.Errorf("calibration partially defaulted: ScaleX=%v OffsetZ=%v", c.ScaleX, c.OffsetZ)
	}
}

func TestNextFrame_SequentialIDs(t *testing.T) {
	s := NewSource(Config{Seed: 1})
	for want := uint32(1); want <= 3; want++ {
		if got := s.NextFrame().FrameID; got != want {
			t.Errorf("FrameID = %d, want %d", got, want)
		}
	}
}

func TestStart_DeliversAndStops(t *testing.T) {
	s := NewSource(Config{Width: 32, Height: 2, FramePeriod: 5 * time.Millisecond, Seed: 1})
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(ctx) }()

	select {
	case c := <-s.Frames():
		if c == nil {
			t.Fatal("nil frame delivered")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no frame delivered")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("Start returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not stop after cancel")
	}

	// Channel closes once the loop exits.
	for range s.Frames() {
	}
}
