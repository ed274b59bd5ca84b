package viewer

import (
	"fmt"
	"image/color"
	"net/http"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// handlePlotPNG renders the current cloud's x/z projection as a static PNG,
// for saving or embedding where the echarts page is too heavy.
func (s *Server) handlePlotPNG(w http.ResponseWriter, r *http.Request) {
	cloud, summary, frameID, _ := s.snapshot()
	if len(cloud) == 0 {
		s.writeJSONError(w, http.StatusNotFound, "no frame published yet")
		return
	}

	stride := 1
	if len(cloud) > s.cfg.MaxPlotPoints {
		stride = (len(cloud) + s.cfg.MaxPlotPoints - 1) / s.cfg.MaxPlotPoints
	}
	pts := make(plotter.XYs, 0, len(cloud)/stride+1)
	for i := 0; i < len(cloud); i += stride {
		pts = append(pts, plotter.XY{X: cloud[i].X, Y: cloud[i].Z})
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("frame %d (%d points)", frameID, summary.Points)
	p.X.Label.Text = "X (mm)"
	p.Y.Label.Text = "Z (mm)"

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to build scatter: %v", err))
		return
	}
	scatter.GlyphStyle.Radius = vg.Points(1)
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	scatter.GlyphStyle.Color = color.RGBA{R: 220, G: 40, B: 40, A: 255}
	p.Add(scatter)

	wt, err := p.WriterTo(10*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render plot: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := wt.WriteTo(w); err != nil {
		// Client went away mid-write; nothing useful to do.
		return
	}
}
