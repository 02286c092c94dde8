// Package report renders visual summaries of a tuning table: an HTML page
// of interactive charts and a static PNG of the map-point layout.
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/awbmap/internal/awb"
	"github.com/banshee-data/awbmap/internal/awb/field"
)

// Options controls report rendering.
type Options struct {
	// Title heads the HTML page. Empty falls back to the source path.
	Title string

	// Theme is the ECharts theme name ("dark", "white", ...).
	Theme string
}

func (o Options) title(cfg *awb.MapConfiguration) string {
	if o.Title != "" {
		return o.Title
	}
	if cfg.SourcePath != "" {
		return cfg.SourcePath
	}
	return "AWB Map"
}

// RenderHTML writes an HTML report for cfg to w: the map points in the
// RpG/BpG ratio plane (weight mapped to colour) and a weight bar chart.
func RenderHTML(cfg *awb.MapConfiguration, w io.Writer, o Options) error {
	if cfg == nil {
		return fmt.Errorf("render report: nil configuration")
	}

	page := components.NewPage()
	page.PageTitle = o.title(cfg)
	page.AddCharts(scatterChart(cfg, o), weightChart(cfg, o))

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// RenderHTMLFile writes the HTML report to path.
func RenderHTMLFile(cfg *awb.MapConfiguration, path string, o Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()
	return RenderHTML(cfg, f, o)
}

// scatterChart plots each entry's representative coordinate in the ratio
// plane. Region-shaped entries appear at their polygon centroid; the base
// boundary is a separate series so it stands out.
func scatterChart(cfg *awb.MapConfiguration, o Options) components.Charter {
	maxWeight := 0.0
	data := make([]opts.ScatterData, 0, len(cfg.Points))
	for _, pt := range cfg.Points {
		x, y := pt.Representative()
		weight := pt.Float(field.Weight)
		if weight > maxWeight {
			maxWeight = weight
		}
		data = append(data, opts.ScatterData{
			Name:  pt.Alias,
			Value: []interface{}{x, y, weight},
		})
	}
	if maxWeight == 0 {
		maxWeight = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: o.title(cfg), Theme: o.Theme, Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Map points (RpG x BpG)",
			Subtitle: fmt.Sprintf("device=%s entries=%d", cfg.DeviceLabel, len(cfg.Points)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "RpG", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "BpG", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxWeight),
			Dimension:  "2",
		}),
	)
	scatter.AddSeries("map points", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))

	base := []opts.ScatterData{{
		Name:  awb.BaseBoundaryTag,
		Value: []interface{}{cfg.Boundary.RpG, cfg.Boundary.BpG, maxWeight},
	}}
	scatter.AddSeries("base boundary", base, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 14}))
	return scatter
}

// weightChart shows per-entry weights in current slice order.
func weightChart(cfg *awb.MapConfiguration, o Options) components.Charter {
	names := make([]string, 0, len(cfg.Points))
	values := make([]opts.BarData, 0, len(cfg.Points))
	for _, pt := range cfg.Points {
		names = append(names, pt.Alias)
		values = append(values, opts.BarData{Value: pt.Float(field.Weight)})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: o.Theme, Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Entry weights"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: 45}}),
	)
	bar.SetXAxis(names)
	bar.AddSeries("weight", values)
	return bar
}
