// Package season loads the session handles of every round already run in a
// championship season and serves them by round index.
package season

import (
	"context"
	"fmt"
	"sync"
	"time"

	"f1telemetrybot/pkg/logger"
	"f1telemetrybot/pkg/model"
	"f1telemetrybot/pkg/provider"
	"f1telemetrybot/pkg/pubsub"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const TopicRoundLoaded = "season.round-loaded"

// LatestRound selects the last loaded round in every getter.
const LatestRound = -1

var (
	ErrRoundNotFound   = errors.New("round does not exist")
	ErrSessionNotFound = errors.New("session does not exist")
)

// Round holds the sessions of one loaded round. Sprint sessions are nil on
// weekends without a sprint.
type Round struct {
	Schedule model.RoundSchedule
	Sessions map[model.SessionKind]*model.Session
}

func (r Round) kinds() []model.SessionKind {
	if r.Schedule.HasSprint() {
		return model.SessionKinds
	}
	return []model.SessionKind{model.Qualifying, model.Race}
}

// RoundLoaded is published on TopicRoundLoaded for rounds that become
// available after the first load.
type RoundLoaded struct {
	Year      int       `json:"year"`
	Round     int       `json:"round"`
	RaceName  string    `json:"raceName"`
	HasSprint bool      `json:"hasSprint"`
	LoadedAt  time.Time `json:"loadedAt"`
}

type Manager struct {
	mu          sync.Mutex
	year        int
	src         provider.Source
	scheduler   provider.Scheduler
	concurrency int
	pw          progress.Writer
	events      *pubsub.PubSub[RoundLoaded]
	rounds      []Round
	loaded      bool
}

func NewManager(year int, src provider.Source, scheduler provider.Scheduler, concurrency int, events *pubsub.PubSub[RoundLoaded]) *Manager {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Manager{
		year:        year,
		src:         src,
		scheduler:   scheduler,
		concurrency: concurrency,
		events:      events,
	}
}

// SetProgress reports every loaded round as a tracker on pw.
func (m *Manager) SetProgress(pw progress.Writer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pw = pw
}

func (m *Manager) Year() int {
	return m.year
}

// Load fetches the schedule and the sessions of every round raced before
// now. It returns the rounds that were not loaded before.
func (m *Manager) Load(ctx context.Context, now time.Time) ([]Round, error) {
	schedule, err := m.scheduler.Schedule(ctx, m.year)
	if err != nil {
		return nil, errors.Wrap(err, "loading season schedule")
	}

	rounds := []Round{}
	for _, rs := range schedule {
		if !now.After(rs.RaceDate) {
			logger.Info("Did not load %s", rs.RaceName)
			continue
		}
		rounds = append(rounds, Round{Schedule: rs, Sessions: map[model.SessionKind]*model.Session{}})
	}

	m.mu.Lock()
	pw := m.pw
	m.mu.Unlock()

	type result struct {
		round   int
		kind    model.SessionKind
		session model.Session
	}
	var (
		resMu   sync.Mutex
		results []result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i := range rounds {
		r := rounds[i]
		kinds := r.kinds()
		var tracker *progress.Tracker
		if pw != nil {
			tracker = &progress.Tracker{Message: r.Schedule.RaceName, Total: int64(len(kinds)), Units: progress.UnitsDefault}
			pw.AppendTracker(tracker)
		}
		logger.Info("Loading %s...", r.Schedule.RaceName)
		for _, kind := range kinds {
			idx, kind := i, kind
			g.Go(func() error {
				s, err := m.src.Session(gctx, m.year, r.Schedule.Round, kind)
				if err != nil {
					if tracker != nil {
						tracker.MarkAsErrored()
					}
					return errors.Wrapf(err, "loading %s %s", r.Schedule.RaceName, kind.Label())
				}
				resMu.Lock()
				results = append(results, result{round: idx, kind: kind, session: s})
				resMu.Unlock()
				if tracker != nil {
					tracker.Increment(1)
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, res := range results {
		s := res.session
		rounds[res.round].Sessions[res.kind] = &s
	}
	for i := range rounds {
		if !rounds[i].Schedule.HasSprint() {
			rounds[i].Sessions[model.SprintShootout] = nil
			rounds[i].Sessions[model.Sprint] = nil
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	fresh := []Round{}
	if len(rounds) > len(m.rounds) {
		fresh = rounds[len(m.rounds):]
	}
	m.rounds = rounds
	m.loaded = true
	return fresh, nil
}

// Sync reloads the season on every tick and publishes the rounds that became
// available since the previous load.
func (m *Manager) Sync(ctx context.Context, ticker *time.Ticker, exitChan chan bool) {
	m.doSync(ctx, time.Now(), false)
	go func() {
		for {
			select {
			case <-exitChan:
				return
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				m.doSync(ctx, t, true)
			}
		}
	}()
}

func (m *Manager) doSync(ctx context.Context, t time.Time, notify bool) {
	logger.Info("Refreshing %d season: %s", m.year, t.Format(time.RFC3339))
	fresh, err := m.Load(ctx, t)
	if err != nil {
		logger.Error("Refreshing season failed: %s", err)
		return
	}
	if !notify || m.events == nil {
		return
	}
	for _, r := range fresh {
		m.events.Publish(TopicRoundLoaded, RoundLoaded{
			Year:      m.year,
			Round:     r.Schedule.Round,
			RaceName:  r.Schedule.RaceName,
			HasSprint: r.Schedule.HasSprint(),
			LoadedAt:  t,
		})
	}
}

func (m *Manager) Rounds() []Round {
	m.mu.Lock()
	defer m.mu.Unlock()
	rounds := make([]Round, len(m.rounds))
	copy(rounds, m.rounds)
	return rounds
}

// Sessions returns the sessions of kind across all loaded rounds. Missing
// sprint sessions are only listed, as nil, when includeMissing is set.
func (m *Manager) Sessions(kind model.SessionKind, includeMissing bool) []*model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	sessions := []*model.Session{}
	for _, r := range m.rounds {
		s := r.Sessions[kind]
		if s == nil && !includeMissing {
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions
}

func (m *Manager) round(rnd int) (Round, error) {
	if rnd < LatestRound || rnd >= len(m.rounds) || len(m.rounds) == 0 {
		logger.Warn("Round %d does not exist", rnd)
		return Round{}, errors.Wrapf(ErrRoundNotFound, "round %d", rnd)
	}
	if rnd == LatestRound {
		rnd = len(m.rounds) - 1
	}
	return m.rounds[rnd], nil
}

// Round returns the sessions of the round at index rnd, qualifying and race
// first then sprint shootout and sprint when the weekend had them.
func (m *Manager) Round(rnd int) ([]model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.round(rnd)
	if err != nil {
		return nil, err
	}
	sessions := []model.Session{}
	for _, kind := range r.kinds() {
		if s := r.Sessions[kind]; s != nil {
			sessions = append(sessions, *s)
		}
	}
	return sessions, nil
}

func (m *Manager) Session(rnd int, kind model.SessionKind) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.round(rnd)
	if err != nil {
		return model.Session{}, err
	}
	s := r.Sessions[kind]
	if s == nil {
		logger.Warn("%s Session %d does not exist", kind.Label(), rnd)
		return model.Session{}, errors.Wrapf(ErrSessionNotFound, "%s of round %d", kind.Label(), rnd)
	}
	return *s, nil
}

// Laps returns every lap of a session, optionally restricted to accurate and
// not deleted laps.
func (m *Manager) Laps(ctx context.Context, rnd int, kind model.SessionKind, accurate, notDeleted bool) ([]model.Lap, error) {
	s, err := m.Session(rnd, kind)
	if err != nil {
		return nil, err
	}
	laps, err := m.src.Laps(ctx, s, provider.LapQuery{AccurateOnly: accurate, ExcludeDeleted: notDeleted})
	if err != nil {
		return nil, errors.Wrapf(err, "loading laps of %s", s)
	}
	return laps, nil
}

// Find resolves a championship round number (as shown to users) to the
// loaded index accepted by the getters.
func (m *Manager) Find(round int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rounds {
		if r.Schedule.Round == round {
			return i, nil
		}
	}
	return 0, errors.Wrapf(ErrRoundNotFound, "round %d", round)
}

func (r Round) String() string {
	kinds := []string{}
	for _, k := range r.kinds() {
		kinds = append(kinds, string(k))
	}
	return fmt.Sprintf("%s %v", r.Schedule, kinds)
}
