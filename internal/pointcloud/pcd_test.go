package pointcloud

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

func pcdCloud() Cloud {
	return Cloud{
		{X: 100, Y: 200, Z: 300},
		{X: -50, Y: 0, Z: 425.5},
		{X: 0, Y: 0, Z: 0},
	}
}

func approxEqual(a, b Cloud, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i].X-b[i].X) > tol ||
			math.Abs(a[i].Y-b[i].Y) > tol ||
			math.Abs(a[i].Z-b[i].Z) > tol {
			return false
		}
	}
	return true
}

func TestPCDHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := ToPCD(pcdCloud(), &buf, PCDAscii); err != nil {
		t.Fatalf("ToPCD: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"VERSION .7", "FIELDS x y z", "POINTS 3", "DATA ascii"} {
		if !strings.Contains(out, want) {
			t.Errorf("PCD output missing %q:\n%s", want, out)
		}
	}
}

func TestPCDAsciiRoundTrip(t *testing.T) {
	want := pcdCloud()
	var buf bytes.Buffer
	if err := ToPCD(want, &buf, PCDAscii); err != nil {
		t.Fatalf("ToPCD: %v", err)
	}
	got, err := ReadPCD(&buf)
	if err != nil {
		t.Fatalf("ReadPCD: %v", err)
	}
	// Ascii %f keeps six decimals of metres, so ~1e-3 mm.
	if !approxEqual(want, got, 1e-2) {
		t.Errorf("roundtrip mismatch:\nwant %v\ngot  %v", want, got)
	}
}

func TestPCDBinaryRoundTrip(t *testing.T) {
	want := pcdCloud()
	var buf bytes.Buffer
	if err := ToPCD(want, &buf, PCDBinary); err != nil {
		t.Fatalf("ToPCD: %v", err)
	}
	got, err := ReadPCD(&buf)
	if err != nil {
		t.Fatalf("ReadPCD: %v", err)
	}
	// float32 precision at these magnitudes.
	if !approxEqual(want, got, 1e-3) {
		t.Errorf("roundtrip mismatch:\nwant %v\ngot  %v", want, got)
	}
}

func TestReadPCD_RejectsUnknownFields(t *testing.T) {
	in := "VERSION .7\nFIELDS x y z rgb\nWIDTH 0\nPOINTS 0\nDATA ascii\n"
	if _, err := ReadPCD(strings.NewReader(in)); err == nil {
		t.Fatal("expected error for unsupported fields")
	}
}

func TestToPCD_UnknownType(t *testing.T) {
	if err := ToPCD(pcdCloud(), &bytes.Buffer{}, PCDType(99)); err == nil {
		t.Fatal("expected error for unknown output type")
	}
}
