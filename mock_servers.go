package main

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"f1telemetrybot/pkg/logger"
	"f1telemetrybot/pkg/model"

	"github.com/gorilla/mux"
)

// The mock server answers the provider and schedule apis with synthetic
// data so the bot can run without the telemetry service.

const (
	mockLapLength = 5000.0
	mockSamples   = 250
)

var (
	mockDrivers = []string{"VER", "PER", "HAM", "LEC", "NOR", "ALO"}
	mockRounds  = []struct {
		name   string
		sprint bool
	}{
		{"Bahrain Grand Prix", false},
		{"Saudi Arabian Grand Prix", false},
		{"Australian Grand Prix", false},
		{"Azerbaijan Grand Prix", true},
		{"Miami Grand Prix", false},
	}
)

func CreateMockServer(addr string) *http.Server {
	r := mux.NewRouter()
	r.HandleFunc("/ergast/{year:[0-9]+}.json", handleMockSchedule)
	s := r.PathPrefix("/v1/sessions/{year:[0-9]+}/{round:[0-9]+}/{kind}").Subrouter()
	s.HandleFunc("", handleMockSession)
	s.HandleFunc("/laps", handleMockLaps)
	s.HandleFunc("/laps/{driver}/{lap:[0-9]+}/telemetry", handleMockTelemetry)
	s.HandleFunc("/circuit", handleMockCircuit)

	srv := &http.Server{Addr: addr, Handler: r, ReadTimeout: 15 * time.Second}
	go func() {
		logger.Info("Starting mock server in %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("mock server: %s", err)
		}
	}()
	return srv
}

func writeMockJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func mockVars(r *http.Request) (year, round int, kind model.SessionKind, ok bool) {
	vars := mux.Vars(r)
	year, _ = strconv.Atoi(vars["year"])
	round, _ = strconv.Atoi(vars["round"])
	kind, ok = model.ParseSessionKind(vars["kind"])
	if round < 1 || round > len(mockRounds) {
		return year, round, kind, false
	}
	if kind.IsSprint() && !mockRounds[round-1].sprint {
		return year, round, kind, false
	}
	return year, round, kind, ok
}

func handleMockSchedule(w http.ResponseWriter, r *http.Request) {
	year, _ := strconv.Atoi(mux.Vars(r)["year"])
	races := []map[string]any{}
	for i, rnd := range mockRounds {
		date := time.Date(year, time.March, 5, 15, 0, 0, 0, time.UTC).AddDate(0, 0, 14*i)
		race := map[string]any{
			"season":   strconv.Itoa(year),
			"round":    strconv.Itoa(i + 1),
			"raceName": rnd.name,
			"date":     date.Format("2006-01-02"),
			"time":     date.Format("15:04:05Z"),
		}
		if rnd.sprint {
			sprint := date.AddDate(0, 0, -1)
			race["Sprint"] = map[string]string{"date": sprint.Format("2006-01-02"), "time": sprint.Format("15:04:05Z")}
		}
		races = append(races, race)
	}
	writeMockJSON(w, map[string]any{"MRData": map[string]any{"RaceTable": map[string]any{"Races": races}}})
}

func handleMockSession(w http.ResponseWriter, r *http.Request) {
	year, round, kind, ok := mockVars(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeMockJSON(w, map[string]any{
		"year":      year,
		"round":     round,
		"kind":      string(kind),
		"eventName": mockRounds[round-1].name,
	})
}

func mockLapTime(driver, lap int) float64 {
	return 88 + float64(driver)*0.35 + float64((lap*7)%5)*0.2
}

func handleMockLaps(w http.ResponseWriter, r *http.Request) {
	if _, _, _, ok := mockVars(r); !ok {
		http.NotFound(w, r)
		return
	}
	laps := []map[string]any{}
	for d, driver := range mockDrivers {
		for lap := 1; lap <= 5; lap++ {
			lapTime := mockLapTime(d, lap)
			laps = append(laps, map[string]any{
				"driver":    driver,
				"lapNumber": lap,
				"lapTime":   lapTime,
				"compound":  "SOFT",
				"deleted":   lap == 5,
				"accurate":  lap != 1,
			})
		}
	}
	writeMockJSON(w, laps)
}

// mockPosition places a distance on an oval circuit.
func mockPosition(distance float64) (float64, float64) {
	a := distance / mockLapLength * 2 * math.Pi
	return 4000 * math.Cos(a), 1800 * math.Sin(a)
}

func handleMockTelemetry(w http.ResponseWriter, r *http.Request) {
	if _, _, _, ok := mockVars(r); !ok {
		http.NotFound(w, r)
		return
	}
	vars := mux.Vars(r)
	lap, _ := strconv.Atoi(vars["lap"])
	d := 0
	for i, driver := range mockDrivers {
		if driver == vars["driver"] {
			d = i
		}
	}

	lapTime := mockLapTime(d, lap)
	samples := make([]map[string]any, mockSamples)
	for i := range samples {
		distance := float64(i) * mockLapLength / float64(mockSamples-1)
		progress := distance / mockLapLength
		x, y := mockPosition(distance)
		drs := 1
		if progress < 0.2 {
			drs = 12
		}
		samples[i] = map[string]any{
			"distance": distance,
			"time":     progress * lapTime,
			"speed":    220 + 90*math.Sin(progress*6*math.Pi+float64(d)/4),
			"throttle": math.Max(0, math.Min(100, 60+60*math.Sin(progress*6*math.Pi))),
			"drs":      drs,
			"x":        x,
			"y":        y,
		}
	}
	writeMockJSON(w, map[string]any{"driver": vars["driver"], "lap": lap, "samples": samples})
}

func handleMockCircuit(w http.ResponseWriter, r *http.Request) {
	if _, _, _, ok := mockVars(r); !ok {
		http.NotFound(w, r)
		return
	}
	corners := []model.Corner{}
	for i := 0; i < 6; i++ {
		distance := 600 + float64(i)*mockLapLength/7
		x, y := mockPosition(distance)
		c := model.Corner{Distance: distance, Number: i + 1, X: x, Y: y}
		if i >= 3 {
			c.Number = i
		}
		if i == 3 {
			c.Letter = "a"
		}
		corners = append(corners, c)
	}
	writeMockJSON(w, map[string]any{"corners": corners})
}

func mockURLs(addr string) (string, string) {
	base := fmt.Sprintf("http://localhost%s", addr)
	return base, base + "/ergast"
}
