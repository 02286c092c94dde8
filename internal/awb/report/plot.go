package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/awbmap/internal/awb"
)

// SavePNG renders the map layout in the RpG/BpG plane to a PNG at path.
// Polygon entries are drawn as closed outlines, point entries as markers,
// and the base boundary as a distinct marker.
func SavePNG(cfg *awb.MapConfiguration, path string) error {
	if cfg == nil {
		return fmt.Errorf("save plot: nil configuration")
	}

	p := plot.New()
	p.Title.Text = "AWB map points"
	if cfg.DeviceLabel != "" {
		p.Title.Text = fmt.Sprintf("AWB map points (%s)", cfg.DeviceLabel)
	}
	p.X.Label.Text = "RpG"
	p.Y.Label.Text = "BpG"

	colors := plotColors(len(cfg.Points))

	pts := make(plotter.XYs, 0, len(cfg.Points))
	for i, mp := range cfg.Points {
		if len(mp.Polygon) >= 3 {
			outline := make(plotter.XYs, 0, len(mp.Polygon)+1)
			for _, v := range mp.Polygon {
				outline = append(outline, plotter.XY{X: v.RpG, Y: v.BpG})
			}
			outline = append(outline, outline[0])

			line, err := plotter.NewLine(outline)
			if err != nil {
				return fmt.Errorf("polygon %s: %w", mp.Alias, err)
			}
			line.Color = colors[i]
			line.Width = vg.Points(1)
			p.Add(line)
			p.Legend.Add(mp.Alias, line)
			continue
		}
		x, y := mp.Representative()
		pts = append(pts, plotter.XY{X: x, Y: y})
	}

	if len(pts) > 0 {
		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("map points: %w", err)
		}
		scatter.GlyphStyle.Radius = vg.Points(3)
		p.Add(scatter)
		p.Legend.Add("points", scatter)
	}

	base := plotter.XYs{{X: cfg.Boundary.RpG, Y: cfg.Boundary.BpG}}
	baseScatter, err := plotter.NewScatter(base)
	if err != nil {
		return fmt.Errorf("base boundary: %w", err)
	}
	baseScatter.GlyphStyle.Radius = vg.Points(5)
	baseScatter.GlyphStyle.Color = color.RGBA{R: 220, A: 255}
	p.Add(baseScatter)
	p.Legend.Add(awb.BaseBoundaryTag, baseScatter)

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}

// plotColors spreads n hues across the palette used for polygon outlines.
func plotColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	out := make([]color.Color, n)
	for i := range out {
		h := float64(i) / float64(n)
		r, g, b := hsvToRGB(h, 0.75, 0.85)
		out[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return out
}

func hsvToRGB(h, s, v float64) (uint8, uint8, uint8) {
	i := int(h * 6)
	f := h*6 - float64(i)
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)

	var r, g, b float64
	switch i % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}
	return uint8(r * 255), uint8(g * 255), uint8(b * 255)
}
