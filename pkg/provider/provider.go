package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"f1telemetrybot/pkg/model"

	"github.com/pkg/errors"
)

// Source is everything the comparison core needs from a data provider.
type Source interface {
	Session(ctx context.Context, year, round int, kind model.SessionKind) (model.Session, error)
	Laps(ctx context.Context, session model.Session, q LapQuery) ([]model.Lap, error)
	Telemetry(ctx context.Context, lap model.Lap) (model.Telemetry, error)
	Corners(ctx context.Context, session model.Session) ([]model.Corner, error)
}

type Scheduler interface {
	Schedule(ctx context.Context, year int) ([]model.RoundSchedule, error)
}

// LapQuery filters the lap table of a session. A zero query returns every lap.
type LapQuery struct {
	Driver         string
	AccurateOnly   bool
	ExcludeDeleted bool
}

func (q LapQuery) Match(lap model.Lap) bool {
	if q.Driver != "" && lap.Driver != q.Driver {
		return false
	}
	if q.AccurateOnly && !lap.Accurate {
		return false
	}
	if q.ExcludeDeleted && lap.Deleted {
		return false
	}
	return true
}

func (q LapQuery) Filter(laps []model.Lap) []model.Lap {
	filtered := []model.Lap{}
	for _, lap := range laps {
		if q.Match(lap) {
			filtered = append(filtered, lap)
		}
	}
	return filtered
}

func (q LapQuery) values() url.Values {
	v := url.Values{}
	if q.Driver != "" {
		v.Set("driver", q.Driver)
	}
	if q.AccurateOnly {
		v.Set("accurate", "true")
	}
	if q.ExcludeDeleted {
		v.Set("deleted", "false")
	}
	return v
}

// Key identifies the query in cache entries.
func (q LapQuery) Key() string {
	return q.values().Encode()
}

type Client struct {
	baseURL     string
	scheduleURL string
	httpClient  *http.Client
}

func NewClient(baseURL, scheduleURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		scheduleURL: strings.TrimSuffix(scheduleURL, "/"),
		httpClient:  &http.Client{Timeout: timeout},
	}
}

type sessionPayload struct {
	Year      int    `json:"year"`
	Round     int    `json:"round"`
	Kind      string `json:"kind"`
	EventName string `json:"eventName"`
	Date      string `json:"date"`
}

type lapPayload struct {
	Driver    string   `json:"driver"`
	LapNumber int      `json:"lapNumber"`
	LapTime   *float64 `json:"lapTime"`
	Compound  string   `json:"compound"`
	Deleted   bool     `json:"deleted"`
	Accurate  bool     `json:"accurate"`
}

type samplePayload struct {
	Distance float64  `json:"distance"`
	Time     *float64 `json:"time"`
	Speed    float64  `json:"speed"`
	Throttle float64  `json:"throttle"`
	DRS      int      `json:"drs"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
}

type telemetryPayload struct {
	Driver  string          `json:"driver"`
	Lap     int             `json:"lap"`
	Samples []samplePayload `json:"samples"`
}

type circuitPayload struct {
	Corners []model.Corner `json:"corners"`
}

func (c *Client) sessionURL(key string) string {
	return fmt.Sprintf("%s/v1/sessions/%s", c.baseURL, key)
}

func (c *Client) Session(ctx context.Context, year, round int, kind model.SessionKind) (model.Session, error) {
	key := model.Session{Year: year, Round: round, Kind: kind}.Key()
	var p sessionPayload
	if err := c.getJSON(ctx, c.sessionURL(key), &p); err != nil {
		return model.Session{}, errors.Wrapf(err, "loading session %s", key)
	}
	s := model.Session{
		Year:      year,
		Round:     round,
		Kind:      kind,
		EventName: p.EventName,
	}
	if p.Date != "" {
		date, err := time.Parse(time.RFC3339, p.Date)
		if err != nil {
			return model.Session{}, errors.Wrapf(err, "parsing date of session %s", key)
		}
		s.Date = date
	}
	return s, nil
}

func (c *Client) Laps(ctx context.Context, session model.Session, q LapQuery) ([]model.Lap, error) {
	u := c.sessionURL(session.Key()) + "/laps"
	if v := q.values(); len(v) > 0 {
		u += "?" + v.Encode()
	}
	var ps []lapPayload
	if err := c.getJSON(ctx, u, &ps); err != nil {
		return nil, errors.Wrapf(err, "loading laps of %s", session.Key())
	}

	laps := make([]model.Lap, 0, len(ps))
	for _, p := range ps {
		lap := model.Lap{
			Session:   session.Key(),
			Driver:    p.Driver,
			LapNumber: p.LapNumber,
			Compound:  p.Compound,
			Deleted:   p.Deleted,
			Accurate:  p.Accurate,
		}
		if p.LapTime != nil {
			lap.LapTime = secondsToDuration(*p.LapTime)
		}
		laps = append(laps, lap)
	}
	// the server may ignore unknown filters
	return q.Filter(laps), nil
}

func (c *Client) Telemetry(ctx context.Context, lap model.Lap) (model.Telemetry, error) {
	u := fmt.Sprintf("%s/laps/%s/%d/telemetry", c.sessionURL(lap.Session), url.PathEscape(lap.Driver), lap.LapNumber)
	var p telemetryPayload
	if err := c.getJSON(ctx, u, &p); err != nil {
		return model.Telemetry{}, errors.Wrapf(err, "loading telemetry of %s lap %d", lap.Driver, lap.LapNumber)
	}

	t := model.Telemetry{
		Driver:  lap.Driver,
		Lap:     lap.LapNumber,
		Samples: make([]model.Sample, len(p.Samples)),
	}
	for i, s := range p.Samples {
		t.Samples[i] = model.Sample{
			Distance: s.Distance,
			Speed:    s.Speed,
			Throttle: s.Throttle,
			DRS:      s.DRS,
			X:        s.X,
			Y:        s.Y,
		}
		if s.Time != nil {
			t.Samples[i].Time = secondsToDuration(*s.Time)
			t.Samples[i].TimeValid = true
		}
	}
	return t, nil
}

func (c *Client) Corners(ctx context.Context, session model.Session) ([]model.Corner, error) {
	var p circuitPayload
	if err := c.getJSON(ctx, c.sessionURL(session.Key())+"/circuit", &p); err != nil {
		return nil, errors.Wrapf(err, "loading circuit of %s", session.Key())
	}
	return p.Corners, nil
}

type ergastResponse struct {
	MRData struct {
		RaceTable struct {
			Races []ergastRace `json:"Races"`
		} `json:"RaceTable"`
	} `json:"MRData"`
}

type ergastDate struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type ergastRace struct {
	Season   string      `json:"season"`
	Round    string      `json:"round"`
	RaceName string      `json:"raceName"`
	Date     string      `json:"date"`
	Time     string      `json:"time"`
	Sprint   *ergastDate `json:"Sprint"`
}

// Schedule reads the season calendar from an Ergast-compatible api.
func (c *Client) Schedule(ctx context.Context, year int) ([]model.RoundSchedule, error) {
	var resp ergastResponse
	u := fmt.Sprintf("%s/%d.json?limit=100", c.scheduleURL, year)
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, errors.Wrapf(err, "loading %d schedule", year)
	}

	rounds := make([]model.RoundSchedule, 0, len(resp.MRData.RaceTable.Races))
	for _, race := range resp.MRData.RaceTable.Races {
		round, err := strconv.Atoi(race.Round)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid round %q", race.Round)
		}
		raceDate, err := parseErgastDate(race.Date, race.Time)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid date of %s", race.RaceName)
		}
		rs := model.RoundSchedule{
			Season:   year,
			Round:    round,
			RaceName: race.RaceName,
			RaceDate: raceDate,
		}
		if race.Sprint != nil {
			sprintDate, err := parseErgastDate(race.Sprint.Date, race.Sprint.Time)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid sprint date of %s", race.RaceName)
			}
			rs.SprintDate = sprintDate
		}
		rounds = append(rounds, rs)
	}
	return rounds, nil
}

func parseErgastDate(date, clock string) (time.Time, error) {
	if clock == "" {
		return time.Parse("2006-01-02", date)
	}
	return time.Parse(time.RFC3339, date+"T"+clock)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s (%s)", resp.Status, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}
