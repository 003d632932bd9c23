package helper

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FormatLapTime renders a lap time as minutes:seconds with the seconds rounded
// to milliseconds, e.g. 1:23.456 or 0:59.0.
func FormatLapTime(d time.Duration) string {
	millis := int64(math.Round(d.Seconds() * 1000))
	minutes := millis / 60000
	seconds := float64(millis%60000) / 1000
	s := strconv.FormatFloat(seconds, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return fmt.Sprintf("%d:%s", minutes, s)
}

// SecondsToDiff renders a signed gap right aligned to 9 characters.
func SecondsToDiff(seconds float64) string {
	diff := fmt.Sprintf("%+.3fs", seconds)
	chars := len(diff)
	if chars < 9 {
		// add spaces to the left
		diff = strings.Repeat(" ", 9-chars) + diff
	}
	return diff
}

// DriverCode turns user input into the three letter code used by the
// provider. Full names are shortened the broadcast way: first letter of the
// name and the first two letters of the surname.
func DriverCode(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	words := strings.Fields(name)
	if len(words) == 1 {
		if len(words[0]) <= 3 {
			return strings.ToUpper(words[0])
		}
		return strings.ToUpper(words[0][:3])
	}
	code := string(words[0][0])
	if len(words[1]) > 2 {
		code += words[1][:2]
	} else {
		code += words[1]
	}
	return strings.ToUpper(code)
}
