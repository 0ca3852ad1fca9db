package deck

import "github.com/inquiredu/hi-fi-cassette-physics/internal/tape"

// flipEpsilon tolerates floating-point accumulation from per-frame
// advances: a side within 1% of its end counts as fully wound.
const flipEpsilon = 0.99

// ActiveProgress returns the progress fraction of the loaded side.
func (s Snapshot) ActiveProgress() float64 {
	if s.Side == tape.SideB {
		return s.SideBProgress
	}
	return s.SideAProgress
}

// CanFlip reports whether the cassette may be turned over: only when the
// loaded side is fully wound to either end.
func (s Snapshot) CanFlip() bool {
	p := s.ActiveProgress()
	return p >= flipEpsilon || p == 0
}

// SeekTargetProgress maps a track index on a side to the tape fraction
// where that track starts. A fixed one-second lead keeps playback off the
// exact track boundary, and the result is capped just short of the end so
// a seek never lands on the auto-stop point. Out-of-range indexes clamp
// to the nearest valid position.
func SeekTargetProgress(side tape.Side, trackIndex int, tl tape.Tracklist) float64 {
	tracks := tl.Tracks(side)
	if trackIndex < 0 {
		trackIndex = 0
	}
	if trackIndex > len(tracks) {
		trackIndex = len(tracks)
	}

	offset := 1 // seconds; avoids starting exactly on a boundary
	for _, t := range tracks[:trackIndex] {
		offset += tape.ParseDuration(t.Duration)
	}

	fraction := float64(offset) / float64(tl.TapeDuration(side))
	if fraction > flipEpsilon {
		fraction = flipEpsilon
	}
	return fraction
}
