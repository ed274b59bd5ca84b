package pointcloud

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Summary describes one cloud for the viewer status page.
type Summary struct {
	Points   int     `json:"points"`
	MinX     float64 `json:"min_x"`
	MaxX     float64 `json:"max_x"`
	MinY     float64 `json:"min_y"`
	MaxY     float64 `json:"max_y"`
	MinZ     float64 `json:"min_z"`
	MaxZ     float64 `json:"max_z"`
	Centroid Point   `json:"centroid"`
	MeanZ    float64 `json:"mean_z"`
	StdDevZ  float64 `json:"stddev_z"`
}

// Summarize computes bounds, centroid and z distribution for a cloud.
// An empty cloud yields a zero Summary.
func Summarize(cloud Cloud) Summary {
	if len(cloud) == 0 {
		return Summary{}
	}

	s := Summary{
		Points: len(cloud),
		MinX:   math.Inf(1), MaxX: math.Inf(-1),
		MinY: math.Inf(1), MaxY: math.Inf(-1),
		MinZ: math.Inf(1), MaxZ: math.Inf(-1),
	}

	zs := make([]float64, len(cloud))
	var sumX, sumY, sumZ float64
	for i, p := range cloud {
		s.MinX = math.Min(s.MinX, p.X)
		s.MaxX = math.Max(s.MaxX, p.X)
		s.MinY = math.Min(s.MinY, p.Y)
		s.MaxY = math.Max(s.MaxY, p.Y)
		s.MinZ = math.Min(s.MinZ, p.Z)
		s.MaxZ = math.Max(s.MaxZ, p.Z)
		sumX += p.X
		sumY += p.Y
		sumZ += p.Z
		zs[i] = p.Z
	}

	n := float64(len(cloud))
	s.Centroid = Point{X: sumX / n, Y: sumY / n, Z: sumZ / n}
	s.MeanZ, s.StdDevZ = stat.MeanStdDev(zs, nil)
	if math.IsNaN(s.StdDevZ) { // single point
		s.StdDevZ = 0
	}
	return s
}
