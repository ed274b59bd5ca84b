package viewer

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// refreshSeconds is how often the scatter page reloads itself. The
// acquisition cadence is typically 10 Hz; 1s refresh keeps the page light
// while still feeling live.
const refreshSeconds = 1

// handleScatter renders the current cloud as an x/z scatter, the same
// projection an operator uses to eyeball a laser-line profile.
func (s *Server) handleScatter(w http.ResponseWriter, r *http.Request) {
	cloud, summary, frameID, _ := s.snapshot()
	if len(cloud) == 0 {
		s.writeJSONError(w, http.StatusNotFound, "no frame published yet")
		return
	}

	// Downsample by stride to stay within the point budget.
	stride := 1
	if len(cloud) > s.cfg.MaxPlotPoints {
		stride = (len(cloud) + s.cfg.MaxPlotPoints - 1) / s.cfg.MaxPlotPoints
	}
	data := make([]opts.ScatterData, 0, len(cloud)/stride+1)
	for i := 0; i < len(cloud); i += stride {
		p := cloud[i]
		data = append(data, opts.ScatterData{Value: []interface{}{p.X, p.Z, p.Y}})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "range.view scatter",
			Theme:     "dark",
			Width:     "1200px",
			Height:    "700px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Profile x/z scatter",
			Subtitle: fmt.Sprintf("frame=%d points=%d stride=%d", frameID, summary.Points, stride),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: summary.MinX, Max: summary.MaxX, Name: "X (mm)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: summary.MinZ, Max: summary.MaxZ, Name: "Z (mm)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(summary.MinY),
			Max:        float32(summary.MaxY),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#31688e", "#35b779", "#fde725"}},
		}),
	)
	scatter.AddSeries("profile", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<meta http-equiv=\"refresh\" content=\"%d\">\n", refreshSeconds)
	_, _ = w.Write(buf.Bytes())
}
