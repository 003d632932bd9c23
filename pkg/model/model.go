package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type SessionKind string

const (
	Qualifying     SessionKind = "Q"
	Race           SessionKind = "R"
	SprintShootout SessionKind = "SS"
	Sprint         SessionKind = "S"
)

var SessionKinds = []SessionKind{Qualifying, Race, SprintShootout, Sprint}

func (k SessionKind) Label() string {
	switch k {
	case Qualifying:
		return "Qualifying"
	case Race:
		return "Race"
	case SprintShootout:
		return "Sprint Shootout"
	case Sprint:
		return "Sprint"
	}
	return string(k)
}

func (k SessionKind) IsSprint() bool {
	return k == SprintShootout || k == Sprint
}

// ParseSessionKind accepts a kind code or label in any case.
func ParseSessionKind(s string) (SessionKind, bool) {
	for _, k := range SessionKinds {
		if strings.EqualFold(string(k), s) || strings.EqualFold(k.Label(), s) {
			return k, true
		}
	}
	return "", false
}

// Session is a handle to one timed event of a round. It is owned by the
// data provider; laps and telemetry are fetched through it on demand.
type Session struct {
	Year      int         `json:"year"`
	Round     int         `json:"round"`
	Kind      SessionKind `json:"kind"`
	EventName string      `json:"eventName"`
	Date      time.Time   `json:"date"`
}

func (s Session) Label() string {
	return s.Kind.Label()
}

// Key identifies the session in provider urls and cache entries.
func (s Session) Key() string {
	return fmt.Sprintf("%d/%d/%s", s.Year, s.Round, s.Kind)
}

func (s Session) String() string {
	return fmt.Sprintf("%d Season Round %d: %s - %s", s.Year, s.Round, s.EventName, s.Label())
}

type Lap struct {
	Session   string        `json:"session"`
	Driver    string        `json:"driver"`
	LapNumber int           `json:"lapNumber"`
	LapTime   time.Duration `json:"lapTime"`
	Compound  string        `json:"compound"`
	Deleted   bool          `json:"deleted"`
	Accurate  bool          `json:"accurate"`
}

func (l Lap) IsZero() bool {
	return l.Driver == "" && l.LapNumber == 0 && l.LapTime == 0
}

// Label is the legend entry of the lap in charts.
func (l Lap) Label() string {
	return fmt.Sprintf("%s Lap %d %s", l.Driver, l.LapNumber, l.Compound)
}

// Fastest returns the lap with the smallest lap time. Laps without a time
// are ignored. An empty list yields the zero Lap.
func Fastest(laps []Lap) Lap {
	fastest := Lap{}
	for _, lap := range laps {
		if lap.LapTime <= 0 {
			continue
		}
		if fastest.IsZero() || lap.LapTime < fastest.LapTime {
			fastest = lap
		}
	}
	return fastest
}

// FastestPerDriver keeps the fastest timed lap of every driver, ordered by
// lap time.
func FastestPerDriver(laps []Lap) []Lap {
	byDriver := map[string][]Lap{}
	for _, lap := range laps {
		byDriver[lap.Driver] = append(byDriver[lap.Driver], lap)
	}
	best := []Lap{}
	for _, driverLaps := range byDriver {
		if lap := Fastest(driverLaps); !lap.IsZero() {
			best = append(best, lap)
		}
	}
	sort.Slice(best, func(i, j int) bool {
		if best[i].LapTime == best[j].LapTime {
			return best[i].Driver < best[j].Driver
		}
		return best[i].LapTime < best[j].LapTime
	})
	return best
}

type Sample struct {
	Distance  float64       `json:"distance"`
	Time      time.Duration `json:"time"`
	TimeValid bool          `json:"timeValid"`
	Speed     float64       `json:"speed"`
	Throttle  float64       `json:"throttle"`
	DRS       int           `json:"drs"`
	X         float64       `json:"x"`
	Y         float64       `json:"y"`
}

type Telemetry struct {
	Driver  string   `json:"driver"`
	Lap     int      `json:"lap"`
	Samples []Sample `json:"samples"`
}

func (t Telemetry) Len() int {
	return len(t.Samples)
}

func (t Telemetry) Distances() []float64 {
	ds := make([]float64, len(t.Samples))
	for i, s := range t.Samples {
		ds[i] = s.Distance
	}
	return ds
}

func (t Telemetry) DRSStatus() []int {
	status := make([]int, len(t.Samples))
	for i, s := range t.Samples {
		status[i] = s.DRS
	}
	return status
}

type Corner struct {
	Distance float64 `json:"distance"`
	Number   int     `json:"number"`
	Letter   string  `json:"letter"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

func (c Corner) String() string {
	return fmt.Sprintf("%d%s", c.Number, c.Letter)
}

// RoundSchedule is one entry of a season calendar.
type RoundSchedule struct {
	Season     int       `json:"season"`
	Round      int       `json:"round"`
	RaceName   string    `json:"raceName"`
	RaceDate   time.Time `json:"raceDate"`
	SprintDate time.Time `json:"sprintDate"`
}

func (r RoundSchedule) HasSprint() bool {
	return !r.SprintDate.IsZero()
}

func (r RoundSchedule) String() string {
	return fmt.Sprintf("Round %d: %s (%s)", r.Round, r.RaceName, r.RaceDate.Format("2006-01-02"))
}
