// Package rangeimage defines the range-image component data model and the
// chunked UDP wire format used by the sensor bridge.
//
// A component is one acquired grid of per-pixel range samples plus the
// per-axis offset/scale metadata needed to map grid indices and raw counts
// into physical units. A raw sample of 0 is the sensor's convention for
// "no return at this pixel".
package rangeimage

import (
	"fmt"
	"time"
)

// Component is one acquired range-image grid with its calibration metadata.
// It is created by a frame source per acquisition cycle and is read-only
// downstream; nothing retains it across cycles.
type Component struct {
	FrameID  uint32    // bridge-assigned sequential frame number
	Captured time.Time // acquisition timestamp reported by the bridge

	Width  int // grid columns
	Height int // grid rows

	// Physical offsets applied before scaling, in world units (mm).
	OffsetX float64
	OffsetY float64
	OffsetZ float64

	// Physical units per grid step (X, Y) and per raw count (Z).
	ScaleX float64
	ScaleY float64
	ScaleZ float64

	// Raw holds Height*Width samples in row-major order.
	Raw []uint16
}

// Validate checks the component's structural invariants: positive grid
// dimensions and a raw slice of exactly Height*Width samples. Scale values
// are not checked; a zero scale degenerates an axis to a constant, which the
// sensor can legitimately report for untriggered axes.
func (c *Component) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid grid dimensions %dx%d", c.Width, c.Height)
	}
	if len(c.Raw) != c.Width*c.Height {
		return fmt.Errorf("raw grid has %d samples, want %d (%dx%d)",
			len(c.Raw), c.Width*c.Height, c.Width, c.Height)
	}
	return nil
}

// At returns the raw sample at (row, col). The caller is responsible for
// bounds; this is a hot-loop accessor with no checks.
func (c *Component) At(row, col int) uint16 {
	return c.Raw[row*c.Width+col]
}

// NonzeroCount returns the number of valid (nonzero) samples in the grid.
func (c *Component) NonzeroCount() int {
	n := 0
	for _, v := range c.Raw {
		if v != 0 {
			n++
		}
	}
	return n
}
