package layout

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"

	"f1telemetrybot/pkg/model"

	"github.com/golang/freetype/truetype"
	"github.com/llgcode/draw2d"
	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/llgcode/draw2d/draw2dkit"
	"github.com/llgcode/draw2d/draw2dsvg"
	"github.com/pkg/errors"
	"golang.org/x/image/font/gofont/goregular"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Layout is the outline of a circuit as driven on one lap plus its corners.
type Layout struct {
	Points  []Point
	Corners []model.Corner
}

const (
	margin       = 60
	trackWidth   = 14
	cornerRadius = 9
	fontSize     = 14
)

var (
	mu       = sync.Mutex{}
	fontData = draw2d.FontData{Name: "goregular", Family: draw2d.FontFamilySans, Style: draw2d.FontStyleNormal}
	fontOnce sync.Once
	fontErr  error
)

var ErrNoPositions = errors.New("no position samples")

func FromTelemetry(tel model.Telemetry, corners []model.Corner) Layout {
	l := Layout{Corners: corners}
	for _, s := range tel.Samples {
		if s.X == 0 && s.Y == 0 {
			continue
		}
		l.Points = append(l.Points, Point{X: s.X, Y: s.Y})
	}
	return l
}

// Metadata describes how circuit coordinates map onto the image so clients
// can place markers on top of it.
type Metadata struct {
	MinX   float64 `json:"minX"`
	MaxX   float64 `json:"maxX"`
	MinY   float64 `json:"minY"`
	MaxY   float64 `json:"maxY"`
	Scale  float64 `json:"scale"`
	Rotate bool    `json:"rotate"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Project maps circuit coordinates onto the image. Y grows downwards.
func (m Metadata) Project(x, y float64) (float64, float64) {
	px := (x - m.MinX) * m.Scale
	py := (y - m.MinY) * m.Scale
	if m.Rotate {
		px, py = py, (m.MaxX-x)*m.Scale
	}
	return px + margin, m.Height - margin - py
}

// size fits the layout into width pixels, turning portrait circuits to
// landscape.
func size(l Layout, width float64) Metadata {
	m := Metadata{
		MinX: math.Inf(1), MaxX: math.Inf(-1),
		MinY: math.Inf(1), MaxY: math.Inf(-1),
	}
	for _, p := range l.Points {
		m.MinX = math.Min(m.MinX, p.X)
		m.MaxX = math.Max(m.MaxX, p.X)
		m.MinY = math.Min(m.MinY, p.Y)
		m.MaxY = math.Max(m.MaxY, p.Y)
	}

	spanX := m.MaxX - m.MinX
	spanY := m.MaxY - m.MinY
	if spanX < spanY {
		m.Rotate = true
		spanX, spanY = spanY, spanX
	}
	if spanX <= 0 {
		spanX = 1
	}
	m.Scale = (width - 2*margin) / spanX
	m.Width = width
	m.Height = spanY*m.Scale + 2*margin
	return m
}

func loadFont() error {
	fontOnce.Do(func() {
		f, err := truetype.Parse(goregular.TTF)
		if err != nil {
			fontErr = err
			return
		}
		draw2d.RegisterFont(fontData, f)
	})
	return fontErr
}

func BuildLayoutPNG(l Layout, width int) ([]byte, error) {
	if len(l.Points) == 0 {
		return nil, ErrNoPositions
	}
	if err := loadFont(); err != nil {
		return nil, errors.Wrap(err, "loading font")
	}
	mu.Lock()
	defer mu.Unlock()

	m := size(l, float64(width))
	dest := image.NewRGBA(image.Rect(0, 0, int(m.Width), int(m.Height)))
	gc := draw2dimg.NewGraphicContext(dest)
	gc.SetFillColor(color.White)
	draw2dkit.Rectangle(gc, 0, 0, m.Width, m.Height)
	gc.Fill()

	drawImage(gc, l, m)

	var b bytes.Buffer
	if err := png.Encode(&b, dest); err != nil {
		return nil, errors.Wrap(err, "encoding layout")
	}
	return b.Bytes(), nil
}

// BuildLayoutSVG renders the layout as svg with its Metadata appended as a
// trailing xml comment.
func BuildLayoutSVG(l Layout, width int) ([]byte, error) {
	if len(l.Points) == 0 {
		return nil, ErrNoPositions
	}
	if err := loadFont(); err != nil {
		return nil, errors.Wrap(err, "loading font")
	}
	mu.Lock()
	defer mu.Unlock()

	m := size(l, float64(width))
	dest := draw2dsvg.NewSvg()
	gc := draw2dsvg.NewGraphicContext(dest)

	drawImage(gc, l, m)

	var b bytes.Buffer
	b.WriteString(xml.Header)
	encoder := xml.NewEncoder(&b)
	encoder.Indent("", "\t")
	if err := encoder.Encode(dest); err != nil {
		return nil, errors.Wrap(err, "encoding layout")
	}

	jsonBytes, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	b.WriteString("\n<!--\n")
	b.Write(jsonBytes)
	b.WriteString("\n-->")
	return b.Bytes(), nil
}

func drawImage(gc draw2d.GraphicContext, l Layout, m Metadata) {
	drawTrack(gc, l, m)
	drawCorners(gc, l, m)
}

func drawTrack(gc draw2d.GraphicContext, l Layout, m Metadata) {
	gc.Save()
	defer gc.Restore()

	gc.SetStrokeColor(color.RGBA{0x00, 0x00, 0x00, 0xff})
	gc.SetLineWidth(trackWidth)
	for i, p := range l.Points {
		x, y := m.Project(p.X, p.Y)
		if i == 0 {
			gc.MoveTo(x, y)
		} else {
			gc.LineTo(x, y)
		}
	}
	gc.Close()
	gc.Stroke()

	// start line
	x, y := m.Project(l.Points[0].X, l.Points[0].Y)
	gc.SetStrokeColor(color.RGBA{0xe1, 0x06, 0x00, 0xff})
	gc.SetLineWidth(trackWidth / 2)
	gc.MoveTo(x-trackWidth, y)
	gc.LineTo(x+trackWidth, y)
	gc.Stroke()
}

func drawCorners(gc draw2d.GraphicContext, l Layout, m Metadata) {
	gc.Save()
	defer gc.Restore()

	gc.SetFontData(fontData)
	gc.SetFontSize(fontSize)
	for _, c := range l.Corners {
		x, y := m.Project(c.X, c.Y)
		// labels sit outside the track, away from the centre of the image
		dx, dy := x-m.Width/2, y-m.Height/2
		norm := math.Hypot(dx, dy)
		if norm > 0 {
			dx, dy = dx/norm, dy/norm
		}
		lx, ly := x+dx*3*cornerRadius, y+dy*3*cornerRadius

		gc.SetFillColor(color.RGBA{0x88, 0x88, 0x88, 0xff})
		draw2dkit.Circle(gc, lx, ly, cornerRadius+2)
		gc.Fill()

		gc.SetFillColor(color.White)
		label := c.String()
		left, top, right, bottom := gc.GetStringBounds(label)
		gc.FillStringAt(label, lx-(left+right)/2, ly-(top+bottom)/2)
	}
}
