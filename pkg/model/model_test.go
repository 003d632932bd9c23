package model

import (
	"testing"
	"time"
)

func TestParseSessionKind(t *testing.T) {
	tests := []struct {
		in   string
		want SessionKind
		ok   bool
	}{
		{"Q", Qualifying, true},
		{"R", Race, true},
		{"SS", SprintShootout, true},
		{"Sprint", Sprint, true},
		{"q", Qualifying, true},
		{"race", Race, true},
		{"FP1", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseSessionKind(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseSessionKind(%q) = %q, %v", tt.in, got, ok)
		}
	}
}

func TestSessionString(t *testing.T) {
	s := Session{Year: 2023, Round: 5, Kind: Qualifying, EventName: "Miami Grand Prix"}
	if s.String() != "2023 Season Round 5: Miami Grand Prix - Qualifying" {
		t.Errorf("Unexpected string: %q", s.String())
	}
	if s.Key() != "2023/5/Q" {
		t.Errorf("Unexpected key: %q", s.Key())
	}
}

func TestFastest(t *testing.T) {
	laps := []Lap{
		{Driver: "VER", LapNumber: 1, LapTime: 0},
		{Driver: "VER", LapNumber: 2, LapTime: 91 * time.Second},
		{Driver: "VER", LapNumber: 3, LapTime: 90 * time.Second},
	}
	if got := Fastest(laps); got.LapNumber != 3 {
		t.Errorf("Expected lap 3, got %d", got.LapNumber)
	}
	if got := Fastest(nil); !got.IsZero() || got.Driver != "" {
		t.Errorf("Expected zero lap, got %+v", got)
	}
	if got := Fastest(laps[:1]); !got.IsZero() {
		t.Errorf("Laps without time should be ignored, got %+v", got)
	}
}

func TestFastestPerDriver(t *testing.T) {
	laps := []Lap{
		{Driver: "HAM", LapNumber: 1, LapTime: 92 * time.Second},
		{Driver: "VER", LapNumber: 2, LapTime: 91 * time.Second},
		{Driver: "HAM", LapNumber: 3, LapTime: 90 * time.Second},
		{Driver: "SAR", LapNumber: 4},
	}
	best := FastestPerDriver(laps)
	if len(best) != 2 {
		t.Fatalf("Expected 2 drivers, got %d", len(best))
	}
	if best[0].Driver != "HAM" || best[0].LapNumber != 3 || best[1].Driver != "VER" {
		t.Errorf("Unexpected order: %+v", best)
	}
}

func TestTelemetryChannels(t *testing.T) {
	tel := Telemetry{Samples: []Sample{{Distance: 1, DRS: 8}, {Distance: 2, DRS: 12}}}
	if d := tel.Distances(); d[1] != 2 {
		t.Errorf("Unexpected distances: %v", d)
	}
	if s := tel.DRSStatus(); s[0] != 8 || s[1] != 12 {
		t.Errorf("Unexpected drs status: %v", s)
	}
}
