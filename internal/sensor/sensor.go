// Package sensor defines the frame-source boundary between the acquisition
// loop and whatever produces range-image components: the vendor SDK bridge
// over UDP, the synthetic simulator, or a recorded-session replay.
package sensor

import (
	"context"

	"github.com/corten-vision/range.view/internal/rangeimage"
)

// FrameSource produces range-image components, one per acquisition cycle.
//
// Start runs the source until the context is cancelled or an unrecoverable
// acquisition error occurs; callers run it in its own goroutine. Completed
// components are delivered on Frames; the channel is closed when Start
// returns. Each delivered component is freshly allocated and owned by the
// receiver.
type FrameSource interface {
	Start(ctx context.Context) error
	Frames() <-chan *rangeimage.Component
	Close() error
}
