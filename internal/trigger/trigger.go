// Package trigger drives the external trigger/illumination box over a
// serial line. The box speaks a line-oriented text protocol: each command
// is answered with "OK" or "ERR <reason>".
package trigger

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strings"

	"go.bug.st/serial"

	"github.com/corten-vision/range.view/internal/config"
)

// Porter is the minimal serial interface the controller needs. Production
// code passes a serial.Port; tests pass a MockPort.
type Porter interface {
	io.ReadWriter
	io.Closer
}

// Controller sends commands to the trigger box and checks its replies.
type Controller struct {
	port   Porter
	reader *bufio.Reader
}

// Open opens the serial port at path (115200 8N1, the box's fixed mode)
// and wraps it in a Controller.
func Open(path string) (*Controller, error) {
	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: 1,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("opening trigger port %s: %w", path, err)
	}
	return NewController(port), nil
}

// NewController wraps an already-open port.
func NewController(port Porter) *Controller {
	return &Controller{
		port:   port,
		reader: bufio.NewReader(port),
	}
}

// Close releases the serial port.
func (c *Controller) Close() error {
	return c.port.Close()
}

// send writes one command line and waits for the box's reply.
func (c *Controller) send(command string) error {
	if _, err := c.port.Write([]byte(command + "\r\n")); err != nil {
		return fmt.Errorf("writing %q: %w", command, err)
	}
	reply, err := c.reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading reply to %q: %w", command, err)
	}
	reply = strings.TrimSpace(reply)
	switch {
	case reply == "OK":
		return nil
	case strings.HasPrefix(reply, "ERR"):
		return fmt.Errorf("trigger box rejected %q: %s", command, reply)
	default:
		return fmt.Errorf("unexpected reply to %q: %q", command, reply)
	}
}

// SetExposure sets the camera exposure in microseconds on both sources.
func (c *Controller) SetExposure(micros float64) error {
	for source := 0; source < 2; source++ {
		if err := c.send(fmt.Sprintf("SOURCE %d", source)); err != nil {
			return err
		}
		if err := c.send(fmt.Sprintf("EXPOSURE %g", micros)); err != nil {
			return err
		}
	}
	return nil
}

// SetLaserBrightness sets the line laser power percentage.
func (c *Controller) SetLaserBrightness(percent int) error {
	return c.send(fmt.Sprintf("LASER %d", percent))
}

// SetTriggerLine selects the encoder input line.
func (c *Controller) SetTriggerLine(line int) error {
	return c.send(fmt.Sprintf("LINE %d", line))
}

// Arm enables or disables line triggering; disabled means free-running.
func (c *Controller) Arm(enabled bool) error {
	if enabled {
		return c.send("TRIGGER ON")
	}
	return c.send("TRIGGER OFF")
}

// Apply pushes every non-nil field of cfg to the box, arming the trigger
// last so the head never runs with half-applied settings.
func (c *Controller) Apply(cfg *config.AcquisitionConfig) error {
	if cfg == nil {
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.ExposureMicros != nil {
		if err := c.SetExposure(*cfg.ExposureMicros); err != nil {
			return err
		}
	}
	if cfg.LaserBrightness != nil {
		if err := c.SetLaserBrightness(*cfg.LaserBrightness); err != nil {
			return err
		}
	}
	if cfg.TriggerLine != nil {
		if err := c.SetTriggerLine(*cfg.TriggerLine); err != nil {
			return err
		}
	}
	if cfg.TriggerEnabled != nil {
		if err := c.Arm(*cfg.TriggerEnabled); err != nil {
			return err
		}
	}
	log.Println("trigger box configured")
	return nil
}
