package trigger

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/corten-vision/range.view/internal/config"
)

func TestApply_SendsAllCommands(t *testing.T) {
	port := &MockPort{}
	c := NewController(port)
	defer c.Close()

	if err := c.Apply(config.DefaultAcquisitionConfig()); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	want := []string{
		"SOURCE 0",
		"EXPOSURE 500",
		"SOURCE 1",
		"EXPOSURE 500",
		"LASER 100",
		"LINE 0",
		"TRIGGER ON",
	}
	if diff := cmp.Diff(want, port.Commands); diff != "" {
		t.Errorf("command sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestApply_NilAndEmptyConfig(t *testing.T) {
	port := &MockPort{}
	c := NewController(port)

	if err := c.Apply(nil); err != nil {
		t.Fatalf("Apply(nil): %v", err)
	}
	if err := c.Apply(&config.AcquisitionConfig{}); err != nil {
		t.Fatalf("Apply(empty): %v", err)
	}
	if len(port.Commands) != 0 {
		t.Errorf("empty config sent commands: %v", port.Commands)
	}
}

func TestSend_ErrReply(t *testing.T) {
	port := &MockPort{Reply: func(command string) string {
		if strings.HasPrefix(command, "LASER") {
			return "ERR brightness locked"
		}
		return "OK"
	}}
	c := NewController(port)

	if err := c.SetLaserBrightness(50); err == nil {
		t.Fatal("expected error from ERR reply")
	}
	if err := c.Arm(false); err != nil {
		t.Errorf("Arm after ERR: %v", err)
	}
	if got := port.Commands[len(port.Commands)-1]; got != "TRIGGER OFF" {
		t.Errorf("last command = %q, want TRIGGER OFF", got)
	}
}

func TestSend_UnexpectedReply(t *testing.T) {
	port := &MockPort{Reply: func(string) string { return "BUSY" }}
	c := NewController(port)
	if err := c.SetTriggerLine(1); err == nil {
		t.Fatal("expected error for unexpected reply")
	}
}

func TestApply_RejectsInvalidConfig(t *testing.T) {
	port := &MockPort{}
	c := NewController(port)
	bad := &config.AcquisitionConfig{LaserBrightness: func() *int { v := 200; return &v }()}
	if err := c.Apply(bad); err == nil {
		t.Fatal("expected validation error")
	}
	if len(port.Commands) != 0 {
		t.Errorf("invalid config still sent commands: %v", port.Commands)
	}
}
