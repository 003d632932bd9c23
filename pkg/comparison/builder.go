package comparison

import (
	"context"
	"fmt"

	"f1telemetrybot/pkg/helper"
	"f1telemetrybot/pkg/model"
	"f1telemetrybot/pkg/provider"

	"github.com/pkg/errors"
)

// DRS status codes above this value mean the flap is open.
const DRSActiveThreshold = 9

type DeltaPoint struct {
	Distance float64 `json:"distance"`
	Seconds  float64 `json:"seconds"`
}

// Comparison is everything the chart needs for two laps of one session.
type Comparison struct {
	Session   model.Session
	Drivers   [2]string
	Laps      [2]model.Lap
	Telemetry [2]model.Telemetry
	DRS       [2][]bool
	Delta     []DeltaPoint
	Corners   []model.Corner

	MaxSpeed    float64
	MinSpeed    float64
	MaxDistance float64
	// false when neither lap carried samples
	HasExtrema bool
}

func Build(ctx context.Context, src provider.Source, session model.Session, pair Pair) (*Comparison, error) {
	c := &Comparison{
		Session: session,
		Drivers: pair.Drivers,
		Laps:    pair.Laps,
	}

	for i, lap := range pair.Laps {
		tel, err := src.Telemetry(ctx, lap)
		if err != nil {
			return nil, errors.Wrapf(err, "building comparison for %s", lap.Driver)
		}
		c.Telemetry[i] = tel
		c.DRS[i] = DRSActive(tel.DRSStatus())
		c.updateExtrema(tel)
	}
	c.Delta = Delta(c.Telemetry[0], c.Telemetry[1])

	corners, err := src.Corners(ctx, session)
	if err != nil {
		return nil, errors.Wrap(err, "loading corners")
	}
	c.Corners = corners
	return c, nil
}

func (c *Comparison) updateExtrema(tel model.Telemetry) {
	for _, s := range tel.Samples {
		if !c.HasExtrema {
			c.MaxSpeed, c.MinSpeed, c.MaxDistance = s.Speed, s.Speed, s.Distance
			c.HasExtrema = true
			continue
		}
		if s.Speed > c.MaxSpeed {
			c.MaxSpeed = s.Speed
		}
		if s.Speed < c.MinSpeed {
			c.MinSpeed = s.Speed
		}
		if s.Distance > c.MaxDistance {
			c.MaxDistance = s.Distance
		}
	}
}

func DRSActive(status []int) []bool {
	active := make([]bool, len(status))
	for i, code := range status {
		active[i] = code > DRSActiveThreshold
	}
	return active
}

// Delta is the time gap of second against first along the distance of the
// shorter series. Indexes where either sample has no time are dropped.
func Delta(first, second model.Telemetry) []DeltaPoint {
	shorter := first
	if second.Len() < first.Len() {
		shorter = second
	}
	n := shorter.Len()

	points := make([]DeltaPoint, 0, n)
	for i := 0; i < n; i++ {
		a, b := first.Samples[i], second.Samples[i]
		if !a.TimeValid || !b.TimeValid {
			continue
		}
		points = append(points, DeltaPoint{
			Distance: shorter.Samples[i].Distance,
			Seconds:  (b.Time - a.Time).Seconds(),
		})
	}
	return points
}

func (c *Comparison) Title() string {
	return fmt.Sprintf("%s\n%s %s vs %s %s",
		c.Session,
		c.Drivers[0], helper.FormatLapTime(c.Laps[0].LapTime),
		c.Drivers[1], helper.FormatLapTime(c.Laps[1].LapTime))
}

// DeltaLabel is the y axis caption of the delta panel.
func (c *Comparison) DeltaLabel() string {
	return fmt.Sprintf("<-- %s | %s -->", c.Drivers[1], c.Drivers[0])
}
