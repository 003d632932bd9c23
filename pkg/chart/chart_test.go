package chart

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"f1telemetrybot/pkg/comparison"
	"f1telemetrybot/pkg/config"
	"f1telemetrybot/pkg/model"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func testComparison() *comparison.Comparison {
	tels := [2]model.Telemetry{}
	for d := 0; d < 2; d++ {
		for i := 0; i < 50; i++ {
			tels[d].Samples = append(tels[d].Samples, model.Sample{
				Distance:  float64(i) * 100,
				Time:      time.Duration(i) * time.Second,
				TimeValid: true,
				Speed:     200 + float64((i*7+d*3)%100),
				Throttle:  float64((i * 13) % 101),
				DRS:       (i % 14),
			})
		}
	}
	c := &comparison.Comparison{
		Session: model.Session{Year: 2023, Round: 5, Kind: model.Qualifying, EventName: "Miami Grand Prix"},
		Drivers: [2]string{"VER", "PER"},
		Laps: [2]model.Lap{
			{Driver: "VER", LapNumber: 12, LapTime: 86 * time.Second, Compound: "SOFT"},
			{Driver: "PER", LapNumber: 14, LapTime: 87 * time.Second, Compound: "SOFT"},
		},
		Telemetry:   tels,
		Corners:     []model.Corner{{Distance: 500, Number: 1}, {Distance: 1200, Number: 2, Letter: "a"}},
		MaxSpeed:    299,
		MinSpeed:    200,
		MaxDistance: 4900,
		HasExtrema:  true,
	}
	for i := range tels {
		c.DRS[i] = comparison.DRSActive(tels[i].DRSStatus())
	}
	c.Delta = comparison.Delta(tels[0], tels[1])
	return c
}

func smallStyle() Style {
	return NewStyle(config.ChartsConfig{Width: 10, Height: 6, LineWidth: 1, FontSize: 6, Dark: true})
}

func TestRender_PNG(t *testing.T) {
	r := NewRenderer(smallStyle())
	png, err := r.Render(testComparison())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !bytes.HasPrefix(png, pngMagic) {
		t.Error("Output is not a png")
	}
}

func TestRender_LightStyle(t *testing.T) {
	style := NewStyle(config.ChartsConfig{Width: 10, Height: 6, LineWidth: 1, FontSize: 6})
	if style.Background == smallStyle().Background {
		t.Error("Light style should not share the dark background")
	}
	if _, err := NewRenderer(style).Render(testComparison()); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
}

func TestRender_NoTelemetry(t *testing.T) {
	c := testComparison()
	c.HasExtrema = false
	if _, err := NewRenderer(smallStyle()).Render(c); err != ErrNoTelemetry {
		t.Errorf("Expected ErrNoTelemetry, got %v", err)
	}
}

func TestSavePath(t *testing.T) {
	got := SavePath("/out", "Miami Grand Prix", "VER", "PER", "Qualifying")
	want := filepath.Join("/out", "Miami Grand Prix", "VER_PER_Qualifying.png")
	if got != want {
		t.Errorf("SavePath = %q, expected %q", got, want)
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chart.png")
	if err := Save(path, pngMagic); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || !bytes.Equal(data, pngMagic) {
		t.Errorf("Unexpected file content: %v %v", data, err)
	}
}

func TestSave_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Unknown Grand Prix", "chart.png")
	if err := Save(path, pngMagic); err == nil {
		t.Error("Expected error when the event directory does not exist")
	}
}

func TestSeries_UsesDistanceAxis(t *testing.T) {
	tel := testComparison().Telemetry[0]
	xys := series(tel, func(s model.Sample) float64 { return s.Speed })
	if len(xys) != tel.Len() {
		t.Fatalf("Expected %d points, got %d", tel.Len(), len(xys))
	}
	for i, s := range tel.Samples {
		if xys[i].X != s.Distance || xys[i].Y != s.Speed {
			t.Errorf("Point %d = %v, expected (%v, %v)", i, xys[i], s.Distance, s.Speed)
		}
	}
	if got := series(model.Telemetry{}, func(s model.Sample) float64 { return s.Speed }); len(got) != 0 {
		t.Errorf("Expected no points for empty telemetry, got %d", len(got))
	}
}
