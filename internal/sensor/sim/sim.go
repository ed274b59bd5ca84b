// Package sim generates synthetic range-image frames for development and
// testing without sensor hardware. The surface is a traveling sinusoidal
// ridge with a pseudo-random dropout band, deterministic for a given seed.
package sim

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/corten-vision/range.view/internal/rangeimage"
)

// Config describes the simulated sensor geometry and cadence.
type Config struct {
	Width       int           // grid columns (default 1024)
	Height      int           // grid rows (default 16)
	FramePeriod time.Duration // time between frames (default 100ms)
	Seed        int64         // dropout randomness seed
	DropoutRate float64       // fraction of pixels with no return (default 0.05)

	OffsetX, OffsetY, OffsetZ float64
	ScaleX, ScaleY, ScaleZ    float64
}

// DefaultConfig mimics a 1024-column laser-line profiler scanning at 10 Hz.
func DefaultConfig() Config {
	return Config{
		Width:       1024,
		Height:      16,
		FramePeriod: 100 * time.Millisecond,
		DropoutRate: 0.05,
		OffsetX:     -128.0,
		OffsetZ:     250.0,
		ScaleX:      0.25,
		ScaleY:      0.5,
		ScaleZ:      0.0125,
	}
}

// Source produces synthetic components. Implements sensor.FrameSource.
type Source struct {
	cfg    Config
	frames chan *rangeimage.Component
	rng    *rand.Rand
	phase  float64
	nextID uint32
}

// NewSource creates a simulator from cfg; zero fields fall back to
// DefaultConfig values. A zero DropoutRate also defaults (a no-dropout run
// cannot be requested), and the six calibration fields default as a block
// only when all of them are zero.
func NewSource(cfg Config) *Source {
	def := DefaultConfig()
	if cfg.Width <= 0 {
		cfg.Width = def.Width
	}
	if cfg.Height <= 0 {
		cfg.Height = def.Height
	}
	if cfg.FramePeriod <= 0 {
		cfg.FramePeriod = def.FramePeriod
	}
	if cfg.DropoutRate <= 0 || cfg.DropoutRate >= 1 {
		cfg.DropoutRate = def.DropoutRate
	}
	if cfg.OffsetX == 0 && cfg.OffsetY == 0 && cfg.OffsetZ == 0 &&
		cfg.ScaleX == 0 && cfg.ScaleY == 0 && cfg.ScaleZ == 0 {
		cfg.OffsetX, cfg.OffsetY, cfg.OffsetZ = def.OffsetX, def.OffsetY, def.OffsetZ
		cfg.ScaleX, cfg.ScaleY, cfg.ScaleZ = def.ScaleX, def.ScaleY, def.ScaleZ
	}
	return &Source{
		cfg:    cfg,
		frames: make(chan *rangeimage.Component, 1),
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		nextID: 1,
	}
}

// Frames returns the delivery channel. It is closed when Start returns.
func (s *Source) Frames() <-chan *rangeimage.Component {
	return s.frames
}

// Close is part of sensor.FrameSource; the simulator holds no handles.
func (s *Source) Close() error { return nil }

// Start emits one frame per period until the context is cancelled.
func (s *Source) Start(ctx context.Context) error {
	defer close(s.frames)

	ticker := time.NewTicker(s.cfg.FramePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			comp := s.NextFrame()
			select {
			case s.frames <- comp:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// NextFrame synthesizes the next component. Exported so tests and the
// bridge simulator can pull frames without the ticker loop.
func (s *Source) NextFrame() *rangeimage.Component {
	c := &rangeimage.Component{
		FrameID:  s.nextID,
		Captured: time.Now().UTC(),
		Width:    s.cfg.Width,
		Height:   s.cfg.Height,
		OffsetX:  s.cfg.OffsetX,
		OffsetY:  s.cfg.OffsetY,
		OffsetZ:  s.cfg.OffsetZ,
		ScaleX:   s.cfg.ScaleX,
		ScaleY:   s.cfg.ScaleY,
		ScaleZ:   s.cfg.ScaleZ,
		Raw:      make([]uint16, s.cfg.Width*s.cfg.Height),
	}
	s.nextID++

	// Raw counts centered mid-range with a ridge traveling across the
	// grid; dropouts knock pixels to 0 the way specular surfaces do.
	const mid = 2048.0
	const amp = 1024.0
	for row := 0; row < c.Height; row++ {
		for col := 0; col < c.Width; col++ {
			if s.rng.Float64() < s.cfg.DropoutRate {
				continue
			}
			u := float64(col)/float64(c.Width)*4*math.Pi + s.phase
			v := float64(row) / float64(max(c.Height-1, 1))
			raw := mid + amp*math.Sin(u)*(0.5+0.5*v)
			if raw < 1 {
				raw = 1 // keep simulated returns valid
			}
			c.Raw[row*c.Width+col] = uint16(raw)
		}
	}
	s.phase += 0.2
	return c
}
