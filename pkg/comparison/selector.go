package comparison

import (
	"context"
	"fmt"

	"f1telemetrybot/pkg/logger"
	"f1telemetrybot/pkg/model"
	"f1telemetrybot/pkg/provider"

	"github.com/pkg/errors"
)

var ErrMissingDriverData = errors.New("driver data does not exist")

type MissingDriverError struct {
	Driver string
}

func (e *MissingDriverError) Error() string {
	return fmt.Sprintf("%s data does not exist", e.Driver)
}

func (e *MissingDriverError) Is(target error) bool {
	return target == ErrMissingDriverData
}

// Pair holds the fastest valid lap of each driver, fastest first.
type Pair struct {
	Drivers [2]string
	Laps    [2]model.Lap
}

// Select picks the fastest accurate, not deleted lap of both drivers in the
// session. The result is ordered by lap time; drivers is left untouched.
func Select(ctx context.Context, src provider.Source, session model.Session, drivers [2]string) (Pair, error) {
	pair := Pair{Drivers: drivers}
	for i, driver := range drivers {
		q := provider.LapQuery{Driver: driver, AccurateOnly: true, ExcludeDeleted: true}
		laps, err := src.Laps(ctx, session, q)
		if err != nil {
			return Pair{}, errors.Wrapf(err, "selecting laps of %s", driver)
		}
		lap := model.Fastest(laps)
		if lap.Driver != driver {
			logger.Warn("%s data does not exist", driver)
			return Pair{}, &MissingDriverError{Driver: driver}
		}
		pair.Laps[i] = lap
	}

	if pair.Laps[1].LapTime < pair.Laps[0].LapTime {
		pair.Laps[0], pair.Laps[1] = pair.Laps[1], pair.Laps[0]
		pair.Drivers[0], pair.Drivers[1] = pair.Drivers[1], pair.Drivers[0]
	}
	return pair, nil
}
