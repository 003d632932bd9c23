package grapher

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"f1telemetrybot/pkg/chart"
	"f1telemetrybot/pkg/comparison"
	"f1telemetrybot/pkg/config"
	"f1telemetrybot/pkg/model"
	"f1telemetrybot/pkg/provider"
	"f1telemetrybot/pkg/pubsub"

	"github.com/pkg/errors"
)

type fakeSource struct {
	laps []model.Lap
}

func (f *fakeSource) Session(ctx context.Context, year, round int, kind model.SessionKind) (model.Session, error) {
	return model.Session{Year: year, Round: round, Kind: kind, EventName: "Spanish Grand Prix"}, nil
}

func (f *fakeSource) Laps(ctx context.Context, session model.Session, q provider.LapQuery) ([]model.Lap, error) {
	return q.Filter(f.laps), nil
}

func (f *fakeSource) Telemetry(ctx context.Context, lap model.Lap) (model.Telemetry, error) {
	tel := model.Telemetry{Driver: lap.Driver, Lap: lap.LapNumber}
	for i := 0; i < 60; i++ {
		a := float64(i) / 60 * 2 * math.Pi
		tel.Samples = append(tel.Samples, model.Sample{
			Distance:  float64(i) * 75,
			Time:      time.Duration(i) * lap.LapTime / 60,
			TimeValid: true,
			Speed:     180 + 100*math.Abs(math.Sin(a)),
			Throttle:  100 * math.Abs(math.Cos(a)),
			DRS:       i % 13,
			X:         2000 * math.Cos(a),
			Y:         800*math.Sin(a) + 10,
		})
	}
	return tel, nil
}

func (f *fakeSource) Corners(ctx context.Context, session model.Session) ([]model.Corner, error) {
	return []model.Corner{{Distance: 600, Number: 1, X: 2000, Y: 10}, {Distance: 2100, Number: 2, X: -2000, Y: 10}}, nil
}

var session = model.Session{Year: 2023, Round: 7, Kind: model.Qualifying, EventName: "Spanish Grand Prix"}

func newTestGrapher(t *testing.T, outputDir string) (*Grapher, <-chan Rendered) {
	src := &fakeSource{laps: []model.Lap{
		{Driver: "ALO", LapNumber: 5, LapTime: 73 * time.Second, Compound: "SOFT", Accurate: true},
		{Driver: "VER", LapNumber: 8, LapTime: 72 * time.Second, Compound: "SOFT", Accurate: true},
	}}
	style := chart.NewStyle(config.ChartsConfig{Width: 10, Height: 6, LineWidth: 1, FontSize: 6, Dark: true})
	events := pubsub.NewPubSub[Rendered]()
	ch := events.Subscribe(TopicRendered)
	return New(src, chart.NewRenderer(style), outputDir, events), ch
}

func TestTelemetryGraph_InMemory(t *testing.T) {
	dir := t.TempDir()
	g, events := newTestGrapher(t, dir)

	graph, err := g.TelemetryGraph(context.Background(), session, [2]string{"ALO", "VER"}, false)
	if err != nil {
		t.Fatalf("TelemetryGraph failed: %v", err)
	}
	if graph.ID == "" {
		t.Error("Expected graph id")
	}
	if graph.Drivers != [2]string{"VER", "ALO"} {
		t.Errorf("Expected faster driver first, got %v", graph.Drivers)
	}
	if !bytes.HasPrefix(graph.PNG, []byte("\x89PNG")) {
		t.Error("Expected png in memory")
	}
	if graph.Path != "" {
		t.Errorf("Nothing should be saved, got %s", graph.Path)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("Output dir should stay empty, got %d entries", len(entries))
	}

	select {
	case ev := <-events:
		if ev.ID != graph.ID || ev.Kind != "telemetry" {
			t.Errorf("Unexpected event: %+v", ev)
		}
	default:
		t.Error("Expected a rendered event")
	}
}

func TestTelemetryGraph_Save(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, session.EventName), 0o755); err != nil {
		t.Fatal(err)
	}
	g, _ := newTestGrapher(t, dir)

	graph, err := g.TelemetryGraph(context.Background(), session, [2]string{"ALO", "VER"}, true)
	if err != nil {
		t.Fatalf("TelemetryGraph failed: %v", err)
	}
	want := filepath.Join(dir, "Spanish Grand Prix", "VER_ALO_Qualifying.png")
	if graph.Path != want {
		t.Errorf("Expected %s, got %s", want, graph.Path)
	}
	data, err := os.ReadFile(want)
	if err != nil || !bytes.Equal(data, graph.PNG) {
		t.Errorf("Saved file does not match the rendered chart: %v", err)
	}
}

func TestTelemetryGraph_SaveWithoutEventDirectory(t *testing.T) {
	g, events := newTestGrapher(t, t.TempDir())
	if _, err := g.TelemetryGraph(context.Background(), session, [2]string{"ALO", "VER"}, true); err == nil {
		t.Fatal("Expected error when the event directory is missing")
	}
	if len(events) != 0 {
		t.Error("No event expected for a failed graph")
	}
}

func TestTelemetryGraph_MissingDriver(t *testing.T) {
	g, events := newTestGrapher(t, t.TempDir())
	_, err := g.TelemetryGraph(context.Background(), session, [2]string{"ALO", "HAM"}, false)
	if !errors.Is(err, comparison.ErrMissingDriverData) {
		t.Errorf("Expected ErrMissingDriverData, got %v", err)
	}
	if len(events) != 0 {
		t.Error("No event expected for a failed graph")
	}
}

func TestTrackMap(t *testing.T) {
	g, events := newTestGrapher(t, t.TempDir())
	tm, err := g.TrackMap(context.Background(), session, "VER")
	if err != nil {
		t.Fatalf("TrackMap failed: %v", err)
	}
	if tm.Lap.LapNumber != 8 || !bytes.HasPrefix(tm.PNG, []byte("\x89PNG")) {
		t.Errorf("Unexpected track map: lap %d, %d bytes", tm.Lap.LapNumber, len(tm.PNG))
	}
	ev := <-events
	if ev.Kind != "map" || fmt.Sprint(ev.Drivers) != "[VER]" {
		t.Errorf("Unexpected event: %+v", ev)
	}

	if _, err := g.TrackMap(context.Background(), session, "HAM"); !errors.Is(err, comparison.ErrMissingDriverData) {
		t.Errorf("Expected ErrMissingDriverData, got %v", err)
	}
}

func TestTrackMapSVG(t *testing.T) {
	g, events := newTestGrapher(t, t.TempDir())
	svg, err := g.TrackMapSVG(context.Background(), session, "ALO")
	if err != nil {
		t.Fatalf("TrackMapSVG failed: %v", err)
	}
	if !bytes.Contains(svg, []byte("<svg")) || !bytes.Contains(svg, []byte(`"scale"`)) {
		t.Error("Expected svg with projection metadata")
	}
	if len(events) != 0 {
		t.Error("Svg maps are not announced")
	}
}
