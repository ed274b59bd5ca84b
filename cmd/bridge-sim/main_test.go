package main

import (
	"testing"
	"time"
)

func TestFramePeriod(t *testing.T) {
	p, err := framePeriod(10)
	if err != nil {
		t.Fatalf("framePeriod(10): %v", err)
	}
	if p != 100*time.Millisecond {
		t.Errorf("framePeriod(10) = %v, want 100ms", p)
	}

	for _, rate := range []float64{0, -5} {
		if _, err := framePeriod(rate); err == nil {
			t.Errorf("framePeriod(%g): expected error", rate)
		}
	}
}
