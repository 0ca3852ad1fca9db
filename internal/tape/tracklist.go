package tape

import "strconv"

// Side identifies one of the two program sides of a cassette.
type Side int

const (
	SideA Side = iota
	SideB
)

// String returns the side letter as used in payloads and labels.
func (s Side) String() string {
	if s == SideB {
		return "b"
	}
	return "a"
}

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

// ParseSide maps a payload value ("a", "B", "sideA", ...) to a Side.
func ParseSide(s string) (Side, bool) {
	switch s {
	case "a", "A", "sideA", "side_a":
		return SideA, true
	case "b", "B", "sideB", "side_b":
		return SideB, true
	}
	return SideA, false
}

// Track is one entry on a side of the program. Duration keeps its
// original "M:SS" / "H:MM:SS" string form; it is parsed on demand.
type Track struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Duration string `json:"duration"`
}

// Tracklist is the two-sided program of the cassette. Track order is
// significant: it defines how a track index maps to a tape position.
// The transport reads it but never changes it; the whole value may be
// replaced at any time by whoever owns the program.
type Tracklist struct {
	SideA []Track `json:"sideA"`
	SideB []Track `json:"sideB"`
}

// Tracks returns the ordered tracks of one side.
func (tl Tracklist) Tracks(side Side) []Track {
	if side == SideB {
		return tl.SideB
	}
	return tl.SideA
}

// SideDuration sums a side's track durations in seconds. It is cheap
// enough to recompute on every read, which keeps it correct across
// wholesale tracklist replacement.
func (tl Tracklist) SideDuration(side Side) int {
	total := 0
	for _, t := range tl.Tracks(side) {
		total += ParseDuration(t.Duration)
	}
	return total
}

// LongerSideDuration returns the duration in seconds of the fuller side.
func (tl Tracklist) LongerSideDuration() int {
	a := tl.SideDuration(SideA)
	b := tl.SideDuration(SideB)
	if b > a {
		return b
	}
	return a
}

// TapeDuration returns the playable seconds the transport should assume
// for a side. An empty (or degenerate) side falls back to the standard
// tape length bucket of the fuller side, so a blank tape still winds at
// a believable rate.
func (tl Tracklist) TapeDuration(side Side) int {
	d := tl.SideDuration(side)
	if d <= 0 {
		d = StandardTapeLength(tl.LongerSideDuration()) * 60
	}
	return d
}

// Label returns the cassette length designation, e.g. "C-60". A C-60
// holds 30 minutes per side, so the label is twice the per-side bucket
// of the fuller side.
func (tl Tracklist) Label() string {
	return "C-" + strconv.Itoa(2*StandardTapeLength(tl.LongerSideDuration()))
}
