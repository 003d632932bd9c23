package chart

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"f1telemetrybot/pkg/comparison"
	"f1telemetrybot/pkg/config"
	"f1telemetrybot/pkg/model"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var ErrNoTelemetry = errors.New("no telemetry samples to draw")

// panel heights relative to the speed panel
var heightRatios = []float64{1, 0.25, 0.15, 0.25}

const (
	cornerGuideMargin = 20
	cornerLabelOffset = 30
)

type Style struct {
	Width      vg.Length
	Height     vg.Length
	LineWidth  vg.Length
	FontSize   vg.Length
	Background color.Color
	Foreground color.Color
	Grid       color.Color
	Drivers    [2]color.Color
	Delta      color.Color
}

func DefaultStyle() Style {
	return NewStyle(config.ChartsConfig{Width: 50, Height: 25, LineWidth: 1.5, FontSize: 12, Dark: true})
}

func NewStyle(cfg config.ChartsConfig) Style {
	s := Style{
		Width:     vg.Length(cfg.Width) * vg.Centimeter,
		Height:    vg.Length(cfg.Height) * vg.Centimeter,
		LineWidth: vg.Points(cfg.LineWidth),
		FontSize:  vg.Points(cfg.FontSize),
		Drivers: [2]color.Color{
			color.RGBA{R: 0x00, G: 0xd2, B: 0xbe, A: 0xff},
			color.RGBA{R: 0xff, G: 0x87, B: 0x00, A: 0xff},
		},
		Grid: color.Gray{Y: 0x80},
	}
	if cfg.Dark {
		s.Background = color.RGBA{R: 0x29, G: 0x29, B: 0x29, A: 0xff}
		s.Foreground = color.White
		s.Delta = color.White
	} else {
		s.Background = color.White
		s.Foreground = color.Black
		s.Delta = color.Black
	}
	return s
}

type Renderer struct {
	Style Style
}

func NewRenderer(style Style) *Renderer {
	return &Renderer{Style: style}
}

// Render draws the four comparison panels stacked on the distance axis and
// returns the PNG bytes.
func (r *Renderer) Render(c *comparison.Comparison) ([]byte, error) {
	if !c.HasExtrema {
		return nil, ErrNoTelemetry
	}

	speed, err := r.speedPlot(c)
	if err != nil {
		return nil, errors.Wrap(err, "speed panel")
	}
	throttle, err := r.throttlePlot(c)
	if err != nil {
		return nil, errors.Wrap(err, "throttle panel")
	}
	drs, err := r.drsPlot(c)
	if err != nil {
		return nil, errors.Wrap(err, "drs panel")
	}
	delta, err := r.deltaPlot(c)
	if err != nil {
		return nil, errors.Wrap(err, "delta panel")
	}

	img := vgimg.New(r.Style.Width, r.Style.Height)
	dc := draw.New(img)
	dc.SetColor(r.Style.Background)
	dc.Fill(dc.Rectangle.Path())

	panels := []*plot.Plot{speed, throttle, drs, delta}
	for i, p := range panels {
		p.X.Min = 0
		p.X.Max = c.MaxDistance
		p.Draw(panelCanvas(dc, r.Style.Height, i))
	}

	var b bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(&b); err != nil {
		return nil, errors.Wrap(err, "encoding png")
	}
	return b.Bytes(), nil
}

func panelCanvas(dc draw.Canvas, height vg.Length, idx int) draw.Canvas {
	total := 0.0
	for _, h := range heightRatios {
		total += h
	}
	offset := 0.0
	for _, h := range heightRatios[:idx] {
		offset += h
	}
	top := height * vg.Length(offset/total)
	panel := height * vg.Length(heightRatios[idx]/total)
	return draw.Crop(dc, 0, 0, height-top-panel, -top)
}

func (r *Renderer) newPlot() *plot.Plot {
	p := plot.New()
	fg := r.Style.Foreground
	p.BackgroundColor = color.Transparent
	p.Title.TextStyle.Color = fg
	p.Title.TextStyle.Font.Size = r.Style.FontSize * 1.4
	p.Legend.TextStyle.Color = fg
	p.Legend.TextStyle.Font.Size = r.Style.FontSize
	for _, a := range []*plot.Axis{&p.X, &p.Y} {
		a.LineStyle.Color = fg
		a.Label.TextStyle.Color = fg
		a.Label.TextStyle.Font.Size = r.Style.FontSize
		a.Tick.LineStyle.Color = fg
		a.Tick.Label.Color = fg
	}

	grid := plotter.NewGrid()
	grid.Vertical.Color = r.Style.Grid
	grid.Horizontal.Color = r.Style.Grid
	p.Add(grid)
	return p
}

func (r *Renderer) line(xys plotter.XYs, c color.Color) (*plotter.Line, error) {
	l, err := plotter.NewLine(xys)
	if err != nil {
		return nil, err
	}
	l.LineStyle.Width = r.Style.LineWidth
	l.LineStyle.Color = c
	return l, nil
}

func series(tel model.Telemetry, value func(model.Sample) float64) plotter.XYs {
	distances := tel.Distances()
	xys := make(plotter.XYs, len(distances))
	for i, s := range tel.Samples {
		xys[i].X = distances[i]
		xys[i].Y = value(s)
	}
	return xys
}

func (r *Renderer) speedPlot(c *comparison.Comparison) (*plot.Plot, error) {
	p := r.newPlot()
	p.Title.Text = c.Title()
	p.Y.Label.Text = "Speed [Km/h]"
	p.Y.Min = c.MinSpeed - cornerLabelOffset - 10
	p.Y.Max = c.MaxSpeed + cornerGuideMargin
	p.X.Tick.Label.Color = color.Transparent
	p.Legend.Top = true

	guides := make(plotter.XYs, 0, len(c.Corners))
	labels := make([]string, 0, len(c.Corners))
	for _, corner := range c.Corners {
		l, err := r.line(plotter.XYs{
			{X: corner.Distance, Y: c.MinSpeed - cornerGuideMargin},
			{X: corner.Distance, Y: c.MaxSpeed + cornerGuideMargin},
		}, r.Style.Grid)
		if err != nil {
			return nil, err
		}
		l.LineStyle.Dashes = []vg.Length{vg.Points(2), vg.Points(4)}
		p.Add(l)
		guides = append(guides, plotter.XY{X: corner.Distance, Y: c.MinSpeed - cornerLabelOffset})
		labels = append(labels, corner.String())
	}
	if len(labels) > 0 {
		cl, err := plotter.NewLabels(plotter.XYLabels{XYs: guides, Labels: labels})
		if err != nil {
			return nil, err
		}
		for i := range cl.TextStyle {
			cl.TextStyle[i].Color = r.Style.Foreground
			cl.TextStyle[i].Font.Size = r.Style.FontSize
			cl.TextStyle[i].XAlign = draw.XCenter
		}
		p.Add(cl)
	}

	for i, tel := range c.Telemetry {
		l, err := r.line(series(tel, func(s model.Sample) float64 { return s.Speed }), r.Style.Drivers[i])
		if err != nil {
			return nil, err
		}
		p.Add(l)
		p.Legend.Add(c.Laps[i].Label(), l)
	}
	return p, nil
}

func (r *Renderer) throttlePlot(c *comparison.Comparison) (*plot.Plot, error) {
	p := r.newPlot()
	p.Y.Label.Text = "Throttle %"
	p.Y.Min, p.Y.Max = 0, 105
	p.Y.Tick.Marker = plot.ConstantTicks([]plot.Tick{{Value: 0, Label: "0"}, {Value: 50, Label: "50"}, {Value: 100, Label: "100"}})
	p.X.Tick.Label.Color = color.Transparent

	for i, tel := range c.Telemetry {
		l, err := r.line(series(tel, func(s model.Sample) float64 { return s.Throttle }), r.Style.Drivers[i])
		if err != nil {
			return nil, err
		}
		p.Add(l)
	}
	return p, nil
}

func (r *Renderer) drsPlot(c *comparison.Comparison) (*plot.Plot, error) {
	p := r.newPlot()
	p.Y.Label.Text = "DRS"
	p.Y.Min, p.Y.Max = -0.1, 1.1
	p.Y.Tick.Marker = plot.ConstantTicks([]plot.Tick{{Value: 0, Label: "0"}, {Value: 1, Label: "1"}})
	p.X.Tick.Label.Color = color.Transparent

	for i, tel := range c.Telemetry {
		xys := make(plotter.XYs, len(tel.Samples))
		for j, s := range tel.Samples {
			xys[j].X = s.Distance
			if j < len(c.DRS[i]) && c.DRS[i][j] {
				xys[j].Y = 1
			}
		}
		l, err := r.line(xys, r.Style.Drivers[i])
		if err != nil {
			return nil, err
		}
		p.Add(l)
	}
	return p, nil
}

func (r *Renderer) deltaPlot(c *comparison.Comparison) (*plot.Plot, error) {
	p := r.newPlot()
	p.Y.Label.Text = c.DeltaLabel()
	p.X.Label.Text = "Distance [m]"

	if len(c.Delta) == 0 {
		return p, nil
	}
	xys := make(plotter.XYs, len(c.Delta))
	for i, d := range c.Delta {
		xys[i].X = d.Distance
		xys[i].Y = d.Seconds
	}
	l, err := r.line(xys, r.Style.Delta)
	if err != nil {
		return nil, err
	}
	p.Add(l)
	return p, nil
}

// SavePath is <outputDir>/<event>/<d0>_<d1>_<label>.png.
func SavePath(outputDir, event, d0, d1, label string) string {
	return filepath.Join(outputDir, event, fmt.Sprintf("%s_%s_%s.png", d0, d1, label))
}

// Save writes png to path. The parent directory must already exist.
func Save(path string, png []byte) error {
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return errors.Wrapf(err, "saving chart to %s", path)
	}
	return nil
}
