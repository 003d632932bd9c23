package webserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"f1telemetrybot/pkg/comparison"
	"f1telemetrybot/pkg/grapher"
	"f1telemetrybot/pkg/logger"
	"f1telemetrybot/pkg/model"
	"f1telemetrybot/pkg/pubsub"
	"f1telemetrybot/pkg/queues"
	"f1telemetrybot/pkg/season"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

var upgrader = websocket.Upgrader{} // use default options

const historySize = 20

type Seasoner interface {
	Rounds() []season.Round
	Find(round int) (int, error)
	Session(rnd int, kind model.SessionKind) (model.Session, error)
}

type Charter interface {
	TelemetryGraph(ctx context.Context, session model.Session, drivers [2]string, save bool) (*grapher.Graph, error)
	TrackMap(ctx context.Context, session model.Session, driver string) (*grapher.TrackMap, error)
	TrackMapSVG(ctx context.Context, session model.Session, driver string) ([]byte, error)
}

type Manager struct {
	r         *mux.Router
	season    Seasoner
	charter   Charter
	outputDir string
	events    *pubsub.PubSub[grapher.Rendered]

	mu      sync.Mutex
	history *queues.Queue[grapher.Rendered]
}

func NewManager(s Seasoner, charter Charter, outputDir string, events *pubsub.PubSub[grapher.Rendered]) *Manager {
	m := &Manager{
		r:         mux.NewRouter(),
		season:    s,
		charter:   charter,
		outputDir: outputDir,
		events:    events,
		history:   queues.NewQueue[grapher.Rendered](),
	}

	m.rootHandlers()
	return m
}

func (m *Manager) Handler() http.Handler {
	return m.r
}

func (m *Manager) rootHandlers() {
	api := m.r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/rounds", m.roundsHandler()).Methods(http.MethodGet)
	api.HandleFunc("/compare/{rnd}/{kind}/{d0}/{d1}", m.compareHandler()).Methods(http.MethodGet)
	api.HandleFunc("/map/{rnd}/{kind}/{driver}", m.mapHandler()).Methods(http.MethodGet)
	api.HandleFunc("/map/{rnd}/{kind}/{driver}/svg", m.mapSVGHandler()).Methods(http.MethodGet)
	api.HandleFunc("/rendered", m.renderedHandler()).Methods(http.MethodGet)

	if m.events != nil {
		m.r.HandleFunc("/ws", m.websocketHandler())
	}

	if m.outputDir != "" {
		fs := http.FileServer(http.Dir(m.outputDir))
		chartsStr := "/charts/"
		m.r.PathPrefix(chartsStr).Handler(http.StripPrefix(chartsStr, fs))
	}
}

// Debug logs every registered route.
func (m *Manager) Debug() {
	_ = m.r.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}
		logger.Debug("ROUTE: %s [%s]", pathTemplate, strings.Join(methods, ","))
		return nil
	})
}

// Serve listens on addr until ctx is cancelled.
func (m *Manager) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      m.r,
	}

	if m.events != nil {
		go m.recordRendered(ctx)
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("webserver listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("webserver shutting down")
	return srv.Shutdown(shutdownCtx)
}

type roundResponse struct {
	Round     int       `json:"round"`
	RaceName  string    `json:"raceName"`
	RaceDate  time.Time `json:"raceDate"`
	HasSprint bool      `json:"hasSprint"`
	Sessions  []string  `json:"sessions"`
}

func (m *Manager) roundsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := []roundResponse{}
		for _, rnd := range m.season.Rounds() {
			rr := roundResponse{
				Round:     rnd.Schedule.Round,
				RaceName:  rnd.Schedule.RaceName,
				RaceDate:  rnd.Schedule.RaceDate,
				HasSprint: rnd.Schedule.HasSprint(),
				Sessions:  []string{},
			}
			for _, k := range model.SessionKinds {
				if rnd.Sessions[k] != nil {
					rr.Sessions = append(rr.Sessions, string(k))
				}
			}
			resp = append(resp, rr)
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("encoding rounds: %s", err)
		}
	}
}

func (m *Manager) session(vars map[string]string) (model.Session, error) {
	kind, ok := model.ParseSessionKind(vars["kind"])
	if !ok {
		return model.Session{}, errors.Wrapf(season.ErrSessionNotFound, "unknown kind %q", vars["kind"])
	}
	idx := season.LatestRound
	if vars["rnd"] != "last" {
		n, err := strconv.Atoi(vars["rnd"])
		if err != nil {
			return model.Session{}, errors.Wrapf(season.ErrRoundNotFound, "invalid round %q", vars["rnd"])
		}
		if idx, err = m.season.Find(n); err != nil {
			return model.Session{}, err
		}
	}
	return m.season.Session(idx, kind)
}

func (m *Manager) compareHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		session, err := m.session(vars)
		if err != nil {
			writeError(w, err)
			return
		}
		drivers := [2]string{strings.ToUpper(vars["d0"]), strings.ToUpper(vars["d1"])}
		save := r.URL.Query().Get("save") == "true"
		graph, err := m.charter.TelemetryGraph(r.Context(), session, drivers, save)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("X-Graph-Id", graph.ID)
		_, _ = w.Write(graph.PNG)
	}
}

func (m *Manager) mapHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		session, err := m.session(vars)
		if err != nil {
			writeError(w, err)
			return
		}
		tm, err := m.charter.TrackMap(r.Context(), session, strings.ToUpper(vars["driver"]))
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(tm.PNG)
	}
}

func (m *Manager) mapSVGHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		session, err := m.session(vars)
		if err != nil {
			writeError(w, err)
			return
		}
		svg, err := m.charter.TrackMapSVG(r.Context(), session, strings.ToUpper(vars["driver"]))
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = w.Write(svg)
	}
}

// recordRendered keeps the latest rendered charts for /api/rendered.
func (m *Manager) recordRendered(ctx context.Context) {
	events := m.events.Subscribe(grapher.TopicRendered)
	defer m.events.Unsubscribe(grapher.TopicRendered, events)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			m.mu.Lock()
			m.history.PushBounded(e, historySize)
			m.mu.Unlock()
		}
	}
}

func (m *Manager) renderedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		items := m.history.Items()
		m.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(items); err != nil {
			logger.Error("encoding rendered charts: %s", err)
		}
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, season.ErrRoundNotFound),
		errors.Is(err, season.ErrSessionNotFound),
		errors.Is(err, comparison.ErrMissingDriverData):
		status = http.StatusNotFound
	default:
		logger.Error("webserver: %s", err)
	}
	http.Error(w, err.Error(), status)
}

// websocketHandler pushes every rendered chart to the client as JSON until
// either side closes the connection.
func (m *Manager) websocketHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("upgrade: %s", err)
			return
		}
		defer c.Close()

		events := m.events.Subscribe(grapher.TopicRendered)
		defer m.events.Unsubscribe(grapher.TopicRendered, events)

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case e, ok := <-events:
				if !ok {
					return
				}
				if err := c.WriteJSON(e); err != nil {
					logger.Warn("write: %s", err)
					return
				}
			case <-closed:
				return
			case <-r.Context().Done():
				return
			}
		}
	}
}
