package grapher

import (
	"context"
	"time"

	"f1telemetrybot/pkg/chart"
	"f1telemetrybot/pkg/comparison"
	"f1telemetrybot/pkg/layout"
	"f1telemetrybot/pkg/logger"
	"f1telemetrybot/pkg/model"
	"f1telemetrybot/pkg/provider"
	"f1telemetrybot/pkg/pubsub"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	TopicRendered = "grapher.rendered"

	trackMapWidth = 1200
)

type Graph struct {
	ID         string                 `json:"id"`
	Session    model.Session          `json:"session"`
	Drivers    [2]string              `json:"drivers"`
	Laps       [2]model.Lap           `json:"laps"`
	Title      string                 `json:"title"`
	Path       string                 `json:"path,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
	PNG        []byte                 `json:"-"`
	Comparison *comparison.Comparison `json:"-"`
}

// Rendered is published on TopicRendered for every chart produced.
type Rendered struct {
	ID      string    `json:"id"`
	Kind    string    `json:"kind"`
	Title   string    `json:"title"`
	Session string    `json:"session"`
	Drivers []string  `json:"drivers"`
	Path    string    `json:"path,omitempty"`
	At      time.Time `json:"at"`
}

type Grapher struct {
	src       provider.Source
	renderer  *chart.Renderer
	outputDir string
	events    *pubsub.PubSub[Rendered]
}

func New(src provider.Source, renderer *chart.Renderer, outputDir string, events *pubsub.PubSub[Rendered]) *Grapher {
	return &Grapher{
		src:       src,
		renderer:  renderer,
		outputDir: outputDir,
		events:    events,
	}
}

// TelemetryGraph compares the fastest laps of both drivers in session. The
// chart is always kept on the returned Graph and also written under the
// event directory of the output dir when save is set.
func (g *Grapher) TelemetryGraph(ctx context.Context, session model.Session, drivers [2]string, save bool) (*Graph, error) {
	pair, err := comparison.Select(ctx, g.src, session, drivers)
	if err != nil {
		return nil, err
	}
	c, err := comparison.Build(ctx, g.src, session, pair)
	if err != nil {
		return nil, err
	}
	png, err := g.renderer.Render(c)
	if err != nil {
		return nil, errors.Wrap(err, "rendering comparison")
	}

	graph := &Graph{
		ID:         uuid.NewString(),
		Session:    session,
		Drivers:    pair.Drivers,
		Laps:       pair.Laps,
		Title:      c.Title(),
		CreatedAt:  time.Now(),
		PNG:        png,
		Comparison: c,
	}
	if save {
		path := chart.SavePath(g.outputDir, session.EventName, pair.Drivers[0], pair.Drivers[1], session.Label())
		if err := chart.Save(path, png); err != nil {
			return nil, err
		}
		graph.Path = path
		logger.Info("Saved %s", path)
	}

	g.publish(Rendered{
		ID:      graph.ID,
		Kind:    "telemetry",
		Title:   graph.Title,
		Session: session.String(),
		Drivers: pair.Drivers[:],
		Path:    graph.Path,
		At:      graph.CreatedAt,
	})
	return graph, nil
}

type TrackMap struct {
	ID      string
	Session model.Session
	Lap     model.Lap
	PNG     []byte
}

func (g *Grapher) trackLayout(ctx context.Context, session model.Session, driver string) (layout.Layout, model.Lap, error) {
	laps, err := g.src.Laps(ctx, session, provider.LapQuery{Driver: driver, AccurateOnly: true, ExcludeDeleted: true})
	if err != nil {
		return layout.Layout{}, model.Lap{}, errors.Wrapf(err, "loading laps of %s", driver)
	}
	lap := model.Fastest(laps)
	if lap.Driver != driver {
		logger.Warn("%s data does not exist", driver)
		return layout.Layout{}, model.Lap{}, &comparison.MissingDriverError{Driver: driver}
	}
	tel, err := g.src.Telemetry(ctx, lap)
	if err != nil {
		return layout.Layout{}, model.Lap{}, err
	}
	corners, err := g.src.Corners(ctx, session)
	if err != nil {
		return layout.Layout{}, model.Lap{}, err
	}
	return layout.FromTelemetry(tel, corners), lap, nil
}

// TrackMap draws the circuit as driven on the driver's fastest lap.
func (g *Grapher) TrackMap(ctx context.Context, session model.Session, driver string) (*TrackMap, error) {
	l, lap, err := g.trackLayout(ctx, session, driver)
	if err != nil {
		return nil, err
	}
	png, err := layout.BuildLayoutPNG(l, trackMapWidth)
	if err != nil {
		return nil, errors.Wrap(err, "drawing track map")
	}

	tm := &TrackMap{ID: uuid.NewString(), Session: session, Lap: lap, PNG: png}
	g.publish(Rendered{
		ID:      tm.ID,
		Kind:    "map",
		Title:   lap.Label(),
		Session: session.String(),
		Drivers: []string{driver},
		At:      time.Now(),
	})
	return tm, nil
}

// TrackMapSVG is TrackMap as svg, with the projection metadata embedded so
// clients can place markers on it.
func (g *Grapher) TrackMapSVG(ctx context.Context, session model.Session, driver string) ([]byte, error) {
	l, _, err := g.trackLayout(ctx, session, driver)
	if err != nil {
		return nil, err
	}
	svg, err := layout.BuildLayoutSVG(l, trackMapWidth)
	if err != nil {
		return nil, errors.Wrap(err, "drawing track map")
	}
	return svg, nil
}

func (g *Grapher) publish(r Rendered) {
	if g.events == nil {
		return
	}
	g.events.Publish(TopicRendered, r)
}
