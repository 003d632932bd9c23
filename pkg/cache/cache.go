// Package cache keeps provider responses in SQLite so sessions already
// fetched are served without hitting the telemetry service again.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"f1telemetrybot/pkg/caster"
	"f1telemetrybot/pkg/logger"
	"f1telemetrybot/pkg/model"
	"f1telemetrybot/pkg/provider"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

type Store struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000", path))
	if err != nil {
		return nil, errors.Wrap(err, "opening cache database")
	}
	if _, err := db.Exec(buildCreateCacheTable()); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initialising cache database")
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func (s *Store) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query, read := buildSelectEntryCommand()
	rows, err := s.db.Query(query, key)
	if err != nil {
		return "", false, err
	}
	return read(rows)
}

func (s *Store) Put(key, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(buildUpsertEntryCommand(), key, payload, s.now().Unix())
	return err
}

func (s *Store) Len() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.db.QueryRow(buildCountEntriesCommand()).Scan(&n)
	return n, err
}

// Prune drops entries older than maxAge and returns how many were removed.
func (s *Store) Prune(maxAge time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(buildDeleteOlderThanCommand(), s.now().Add(-maxAge).Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Source serves provider calls from the Store, falling back to the wrapped
// provider on a miss. Cache failures are logged and never fail a call.
type Source struct {
	next  provider.Source
	store *Store

	sessionCaster   caster.Caster[model.Session]
	lapsCaster      caster.Caster[[]model.Lap]
	telemetryCaster caster.Caster[model.Telemetry]
	cornersCaster   caster.Caster[[]model.Corner]
}

// payloadVersion is bumped whenever a cached model type changes shape.
const payloadVersion = 1

func NewSource(next provider.Source, store *Store) *Source {
	return &Source{
		next:            next,
		store:           store,
		sessionCaster:   caster.JSONCaster[model.Session]{Version: payloadVersion},
		lapsCaster:      caster.JSONCaster[[]model.Lap]{Version: payloadVersion},
		telemetryCaster: caster.JSONCaster[model.Telemetry]{Version: payloadVersion},
		cornersCaster:   caster.JSONCaster[[]model.Corner]{Version: payloadVersion},
	}
}

func cached[T any](s *Store, c caster.Caster[T], key string, load func() (T, error)) (T, error) {
	if payload, ok, err := s.Get(key); err != nil {
		logger.Warn("cache read %s failed: %s", key, err)
	} else if ok {
		v, err := c.Decode(payload)
		if err == nil {
			logger.Debug("cache hit %s", key)
			return v, nil
		}
		logger.Warn("cache entry %s is corrupt: %s", key, err)
	}

	v, err := load()
	if err != nil {
		return v, err
	}
	payload, err := c.Encode(v)
	if err != nil {
		logger.Warn("cache encode %s failed: %s", key, err)
		return v, nil
	}
	if err := s.Put(key, payload); err != nil {
		logger.Warn("cache write %s failed: %s", key, err)
	}
	return v, nil
}

func (s *Source) Session(ctx context.Context, year, round int, kind model.SessionKind) (model.Session, error) {
	key := "session:" + model.Session{Year: year, Round: round, Kind: kind}.Key()
	return cached(s.store, s.sessionCaster, key, func() (model.Session, error) {
		return s.next.Session(ctx, year, round, kind)
	})
}

func (s *Source) Laps(ctx context.Context, session model.Session, q provider.LapQuery) ([]model.Lap, error) {
	key := fmt.Sprintf("laps:%s?%s", session.Key(), q.Key())
	return cached(s.store, s.lapsCaster, key, func() ([]model.Lap, error) {
		return s.next.Laps(ctx, session, q)
	})
}

func (s *Source) Telemetry(ctx context.Context, lap model.Lap) (model.Telemetry, error) {
	key := fmt.Sprintf("telemetry:%s/%s/%d", lap.Session, lap.Driver, lap.LapNumber)
	return cached(s.store, s.telemetryCaster, key, func() (model.Telemetry, error) {
		return s.next.Telemetry(ctx, lap)
	})
}

func (s *Source) Corners(ctx context.Context, session model.Session) ([]model.Corner, error) {
	key := "corners:" + session.Key()
	return cached(s.store, s.cornersCaster, key, func() ([]model.Corner, error) {
		return s.next.Corners(ctx, session)
	})
}
