package rangeimage

import (
	"testing"
	"time"
)

func testComponent(width, height int) *Component {
	return &Component{
		FrameID:  1,
		Captured: time.Unix(1700000000, 0).UTC(),
		Width:    width,
		Height:   height,
		ScaleX:   1, ScaleY: 1, ScaleZ: 1,
		Raw: make([]uint16, width*height),
	}
}

func TestValidate(t *testing.T) {
	c := testComponent(4, 3)
	if err := c.Validate(); err != nil {
		t.Fatalf("valid component rejected: %v", err)
	}
}

func TestValidate_DimensionMismatch(t *testing.T) {
	c := testComponent(4, 3)
	c.Raw = c.Raw[:10]
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for short raw grid")
	}
}

func TestValidate_BadDimensions(t *testing.T) {
	for _, tc := range []struct{ w, h int }{{0, 3}, {4, 0}, {-1, 3}} {
		c := &Component{Width: tc.w, Height: tc.h}
		if err := c.Validate(); err == nil {
			t.Errorf("dimensions %dx%d: expected error", tc.w, tc.h)
		}
	}
}

func TestAt(t *testing.T) {
	c := testComponent(3, 2)
	c.Raw = []uint16{1, 2, 3, 4, 5, 6}
	if got := c.At(0, 2); got != 3 {
		t.Errorf("At(0,2) = %d, want 3", got)
	}
	if got := c.At(1, 0); got != 4 {
		t.Errorf("At(1,0) = %d, want 4", got)
	}
}

func TestNonzeroCount(t *testing.T) {
	c := testComponent(2, 2)
	c.Raw = []uint16{0, 5, 3, 0}
	if got := c.NonzeroCount(); got != 2 {
		t.Errorf("NonzeroCount() = %d, want 2", got)
	}
}
