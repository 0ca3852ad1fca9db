// Package tape models the cassette program: track durations, two-sided
// tracklists, and the tape-length designations derived from them.
package tape

import (
	"fmt"
	"strconv"
	"strings"
)

// Standard per-side tape lengths in minutes. Program material is snapped
// up to the smallest standard length it fits on; anything over an hour
// per side is treated as a custom-length tape.
const (
	TapeLength30 = 30
	TapeLength45 = 45
	TapeLength60 = 60
)

// ParseDuration converts a "M:SS" or "H:MM:SS" duration string to seconds.
// Malformed input never fails: an empty string or a shape with the wrong
// number of segments parses to 0, and non-numeric segments count as 0 so
// a single bad track can't poison a side total.
func ParseDuration(s string) int {
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 2:
		return atoiSoft(parts[0])*60 + atoiSoft(parts[1])
	case 3:
		return atoiSoft(parts[0])*3600 + atoiSoft(parts[1])*60 + atoiSoft(parts[2])
	default:
		return 0
	}
}

// FormatDuration renders seconds as "M:SS". Durations of an hour or more
// keep accumulating minutes rather than switching to a 3-part form.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// StandardTapeLength returns the per-side tape length in minutes that
// fits a program of totalSeconds: 30, 45 or 60 for anything up to an
// hour, otherwise the exact ceiling-minute count.
func StandardTapeLength(totalSeconds int) int {
	minutes := (totalSeconds + 59) / 60
	switch {
	case minutes <= TapeLength30:
		return TapeLength30
	case minutes <= TapeLength45:
		return TapeLength45
	case minutes <= TapeLength60:
		return TapeLength60
	default:
		return minutes
	}
}

// atoiSoft parses a duration segment, treating anything non-numeric as 0.
func atoiSoft(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
