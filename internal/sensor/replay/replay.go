// Package replay streams a recorded session from the frame store at its
// original cadence, standing in for the live sensor bridge.
package replay

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/corten-vision/range.view/internal/rangeimage"
	"github.com/corten-vision/range.view/internal/store"
)

// Config selects what to replay and how fast.
type Config struct {
	SessionID string
	Speed     float64 // playback speed multiplier (default 1.0)
	Loop      bool    // restart from the first frame at the end
}

// Source replays recorded frames. Implements sensor.FrameSource.
type Source struct {
	st     *store.Store
	cfg    Config
	frames chan *rangeimage.Component
}

// NewSource creates a replayer over an open store.
func NewSource(st *store.Store, cfg Config) *Source {
	if cfg.Speed <= 0 {
		cfg.Speed = 1.0
	}
	return &Source{
		st:     st,
		cfg:    cfg,
		frames: make(chan *rangeimage.Component, 1),
	}
}

// Frames returns the delivery channel. It is closed when Start returns.
func (s *Source) Frames() <-chan *rangeimage.Component {
	return s.frames
}

// Close is part of sensor.FrameSource; the store is owned by the caller.
func (s *Source) Close() error { return nil }

// Start replays the session until it ends (or forever with Loop) or the
// context is cancelled.
func (s *Source) Start(ctx context.Context) error {
	defer close(s.frames)

	// Load the whole session up front; recorded sessions are short demo
	// runs, and pacing from memory keeps the cadence accurate.
	var recorded []*rangeimage.Component
	err := s.st.SessionFrames(s.cfg.SessionID, func(c *rangeimage.Component) error {
		recorded = append(recorded, c)
		return nil
	})
	if err != nil {
		return fmt.Errorf("loading session %q: %w", s.cfg.SessionID, err)
	}
	log.Printf("Replaying session %s: %d frames at %gx speed", s.cfg.SessionID, len(recorded), s.cfg.Speed)

	for {
		for i, c := range recorded {
			if i > 0 {
				gap := c.Captured.Sub(recorded[i-1].Captured)
				if gap > 0 {
					wait := time.Duration(float64(gap) / s.cfg.Speed)
					select {
					case <-ctx.Done():
						return ctx.Err()
					case <-time.After(wait):
					}
				}
			}
			select {
			case s.frames <- c:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if !s.cfg.Loop {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}
