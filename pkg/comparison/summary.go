package comparison

import (
	"bytes"
	"fmt"

	"f1telemetrybot/pkg/helper"
	"f1telemetrybot/pkg/model"

	"github.com/jedib0t/go-pretty/v6/table"
)

const (
	tableDriver   = "Driver"
	tableLap      = "Lap"
	tableCompound = "Tyre"
	tableTime     = "Time"
	tableTopSpeed = "Top Speed"
	tableGap      = "Gap"
)

// Summary renders a small table of both laps, fastest first.
func (c *Comparison) Summary() string {
	var b bytes.Buffer
	t := table.NewWriter()
	t.SetOutputMirror(&b)
	t.SetStyle(table.StyleRounded)
	t.AppendSeparator()

	t.AppendHeader(table.Row{tableDriver, tableLap, tableCompound, tableTime, tableTopSpeed, tableGap})
	for i, lap := range c.Laps {
		gap := (lap.LapTime - c.Laps[0].LapTime).Seconds()
		t.AppendRow([]interface{}{
			c.Drivers[i],
			fmt.Sprintf("%d", lap.LapNumber),
			lap.Compound,
			helper.FormatLapTime(lap.LapTime),
			fmt.Sprintf("%.1f", topSpeed(c.Telemetry[i])),
			helper.SecondsToDiff(gap),
		})
	}
	t.Render()
	return b.String()
}

func topSpeed(tel model.Telemetry) float64 {
	top := 0.0
	for _, s := range tel.Samples {
		if s.Speed > top {
			top = s.Speed
		}
	}
	return top
}
