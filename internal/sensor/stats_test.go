package sensor

import (
	"sync"
	"testing"
)

func TestFrameStats_GetAndReset(t *testing.T) {
	fs := NewFrameStats()
	fs.AddPacket(1400)
	fs.AddPacket(600)
	fs.AddFrame(5000)
	fs.AddDropped(2)

	s := fs.GetAndReset()
	if s.Packets != 2 || s.Bytes != 2000 {
		t.Errorf("packets/bytes = %d/%d, want 2/2000", s.Packets, s.Bytes)
	}
	if s.Frames != 1 || s.Points != 5000 {
		t.Errorf("frames/points = %d/%d, want 1/5000", s.Frames, s.Points)
	}
	if s.Dropped != 2 {
		t.Errorf("dropped = %d, want 2", s.Dropped)
	}

	// Counters cleared after reset.
	s = fs.GetAndReset()
	if s.Frames != 0 || s.Packets != 0 || s.Bytes != 0 || s.Points != 0 || s.Dropped != 0 {
		t.Errorf("counters not reset: %+v", s)
	}
}

func TestFrameStats_Concurrent(t *testing.T) {
	fs := NewFrameStats()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				fs.AddPacket(100)
				fs.AddFrame(10)
			}
		}()
	}
	wg.Wait()

	s := fs.GetAndReset()
	if s.Packets != 800 || s.Frames != 800 || s.Points != 8000 {
		t.Errorf("counters = %+v, want 800 packets, 800 frames, 8000 points", s)
	}
}

func TestSnapshotRates_ZeroDuration(t *testing.T) {
	s := Snapshot{Frames: 10, Points: 100}
	if got := s.FramesPerSecond(); got != 0 {
		t.Errorf("FramesPerSecond() = %v with zero duration, want 0", got)
	}
	if got := s.PointsPerSecond(); got != 0 {
		t.Errorf("PointsPerSecond() = %v with zero duration, want 0", got)
	}
}
