package sensor

import (
	"sync"
	"time"
)

// FrameStats tracks acquisition throughput for periodic rate logging and
// the viewer status endpoint. Safe for concurrent use.
type FrameStats struct {
	mu           sync.Mutex
	frameCount   int64
	packetCount  int64
	byteCount    int64
	pointCount   int64
	droppedCount int64
	lastReset    time.Time
}

// NewFrameStats returns stats with the rate window starting now.
func NewFrameStats() *FrameStats {
	return &FrameStats{lastReset: time.Now()}
}

// AddPacket records one received datagram.
func (fs *FrameStats) AddPacket(bytes int) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.packetCount++
	fs.byteCount += int64(bytes)
}

// AddFrame records one completed component and its surviving point count.
func (fs *FrameStats) AddFrame(points int) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.frameCount++
	fs.pointCount += int64(points)
}

// AddDropped records incomplete frames discarded by the decoder.
func (fs *FrameStats) AddDropped(n int) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.droppedCount += int64(n)
}

// Snapshot is one rate window's worth of counters.
type Snapshot struct {
	Frames   int64
	Packets  int64
	Bytes    int64
	Points   int64
	Dropped  int64
	Duration time.Duration
}

// GetAndReset returns the counters accumulated since the last reset and
// starts a new window.
func (fs *FrameStats) GetAndReset() Snapshot {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	now := time.Now()
	s := Snapshot{
		Frames:   fs.frameCount,
		Packets:  fs.packetCount,
		Bytes:    fs.byteCount,
		Points:   fs.pointCount,
		Dropped:  fs.droppedCount,
		Duration: now.Sub(fs.lastReset),
	}
	fs.frameCount = 0
	fs.packetCount = 0
	fs.byteCount = 0
	fs.pointCount = 0
	fs.droppedCount = 0
	fs.lastReset = now
	return s
}

// FramesPerSecond converts the snapshot to a frame rate.
func (s Snapshot) FramesPerSecond() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Frames) / s.Duration.Seconds()
}

// PointsPerSecond converts the snapshot to a point rate.
func (s Snapshot) PointsPerSecond() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Points) / s.Duration.Seconds()
}
