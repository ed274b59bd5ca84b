// Package pointcloud converts range-image components into 3D point clouds
// and provides cloud statistics and PCD file export.
package pointcloud

import (
	"fmt"

	"github.com/corten-vision/range.view/internal/rangeimage"
)

// Point is one 3D sample in physical units (mm).
type Point struct {
	X float64
	Y float64
	Z float64
}

// Cloud is a dense point sequence in row-major scan order of the surviving
// grid cells. The order carries no meaning beyond that. A cloud is fully
// detached from the component it was built from.
type Cloud []Point

// FromRangeImage converts one range-image component into a point cloud.
//
// Grid indices and raw counts map to physical coordinates through the
// component's per-axis offset and scale. Cells with a raw sample of 0 carry
// no measurement and are dropped. The filter is on the raw grid value, not
// the computed z: a legitimate surface point whose z happens to land on 0
// (offsetZ = -raw*scaleZ) is kept.
func FromRangeImage(c *rangeimage.Component) (Cloud, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("range image: %w", err)
	}

	cloud := make(Cloud, 0, c.NonzeroCount())
	for row := 0; row < c.Height; row++ {
		base := row * c.Width
		y := c.OffsetY + float64(row)*c.ScaleY
		for col := 0; col < c.Width; col++ {
			raw := c.Raw[base+col]
			if raw == 0 {
				continue
			}
			cloud = append(cloud, Point{
				X: c.OffsetX + float64(col)*c.ScaleX,
				Y: y,
				Z: c.OffsetZ + float64(raw)*c.ScaleZ,
			})
		}
	}
	return cloud, nil
}
