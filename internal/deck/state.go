// Package deck implements the tape transport: a finite-state machine over
// the playback modes plus the progress simulation that winds the tape.
package deck

import (
	"math"
	"sync"
	"time"

	"github.com/inquiredu/hi-fi-cassette-physics/internal/tape"
)

// Mode is the transport mode. Exactly one mode is active at any instant;
// rewind and fast-forward are modes of their own, not flags on top of
// playing.
type Mode int

const (
	ModeStopped Mode = iota
	ModePlaying
	ModePaused
	ModeRewinding
	ModeFastForwarding
)

// String returns the mode name as pushed to clients.
func (m Mode) String() string {
	switch m {
	case ModePlaying:
		return "playing"
	case ModePaused:
		return "paused"
	case ModeRewinding:
		return "rewinding"
	case ModeFastForwarding:
		return "fastforwarding"
	default:
		return "stopped"
	}
}

// windSpeed is the rewind/fast-forward multiplier relative to play speed.
// The transport contract is "what fraction of the side has been traversed";
// reel-radius physics stay in the renderer.
const windSpeed = 5.0

// ModeListener receives mode-change notifications. Listeners observe only;
// they have no write path back into the transport.
type ModeListener func(old, next Mode)

// State is the authoritative transport record: mode, loaded side, and one
// progress fraction per side. The side not currently loaded keeps its
// fraction frozen, the way a real cassette holds its position while the
// other side plays. It is safe for concurrent access; all mutation goes
// through the command methods and the engine's advance.
type State struct {
	mu        sync.RWMutex
	mode      Mode
	side      tape.Side
	progress  [2]float64 // indexed by tape.Side, always within [0,1]
	listeners []ModeListener
}

// Snapshot is a point-in-time copy of the transport record, read each
// frame by renderers and pushed to clients.
type Snapshot struct {
	Mode          Mode
	Side          tape.Side
	SideAProgress float64
	SideBProgress float64
}

// NewState creates a transport at rest: stopped, side A loaded, both
// sides fully rewound.
func NewState() *State {
	return &State{}
}

// OnModeChange registers a listener for mode transitions. Listeners are
// invoked after the transition is committed, outside the state lock.
func (s *State) OnModeChange(fn ModeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Snapshot returns a copy of the current transport record.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Mode:          s.mode,
		Side:          s.side,
		SideAProgress: s.progress[tape.SideA],
		SideBProgress: s.progress[tape.SideB],
	}
}

// Play engages playback from the current position.
func (s *State) Play() {
	s.transition(func() Mode { return ModePlaying })
}

// Pause holds the tape in place without unloading it.
func (s *State) Pause() {
	s.transition(func() Mode { return ModePaused })
}

// Stop halts the transport and fully rewinds the loaded side. The other
// side keeps its position.
func (s *State) Stop() {
	s.transition(func() Mode {
		s.progress[s.side] = 0
		return ModeStopped
	})
}

// StartRewind engages the rewind motor.
func (s *State) StartRewind() {
	s.transition(func() Mode { return ModeRewinding })
}

// EndRewind releases the rewind button. It is a no-op unless the
// transport is still rewinding, so a stale release after an intervening
// command can't clobber an unrelated mode.
func (s *State) EndRewind() {
	s.transition(func() Mode {
		if s.mode != ModeRewinding {
			return s.mode
		}
		return ModeStopped
	})
}

// StartFastForward engages the fast-forward motor.
func (s *State) StartFastForward() {
	s.transition(func() Mode { return ModeFastForwarding })
}

// EndFastForward releases the fast-forward button, guarded like EndRewind.
func (s *State) EndFastForward() {
	s.transition(func() Mode {
		if s.mode != ModeFastForwarding {
			return s.mode
		}
		return ModeStopped
	})
}

// Flip turns the cassette over. A tape can only be flipped at either end
// of the loaded side; flipping mid-side is rejected and the state is left
// untouched. Both sides keep their progress across a flip. Reports
// whether the flip happened.
func (s *State) Flip() bool {
	flipped := false
	s.transition(func() Mode {
		if !s.snapshotLocked().CanFlip() {
			return s.mode
		}
		s.side = s.side.Other()
		flipped = true
		return ModeStopped
	})
	return flipped
}

// Seek drops the tape at a fraction of the given side and starts playing.
// Seeking to the side not currently loaded flips to it first; the flip is
// implicit and skips the end-of-side eligibility check, since a seek
// stands for physically reloading the cassette. Out-of-range fractions
// clamp silently.
func (s *State) Seek(side tape.Side, fraction float64) {
	s.transition(func() Mode {
		s.side = side
		s.progress[side] = clampFraction(fraction)
		return ModePlaying
	})
}

// Restore replaces the whole transport record from a saved snapshot.
// Fractions are clamped on the way in so a tampered snapshot can't put
// the transport out of range. This is the session-restore path; normal
// operation never calls it.
func (s *State) Restore(snap Snapshot) {
	s.transition(func() Mode {
		s.side = snap.Side
		s.progress[tape.SideA] = clampFraction(snap.SideAProgress)
		s.progress[tape.SideB] = clampFraction(snap.SideBProgress)
		return snap.Mode
	})
}

// advance runs one frame of tape movement. durationOf resolves the loaded
// side's playable seconds and is called under the lock so the duration
// always matches the side being advanced. Auto-stop fires when play or
// fast-forward reaches the end of the side; rewind holds at the start
// without stopping, because reaching the start is not finishing a side.
func (s *State) advance(delta time.Duration, durationOf func(tape.Side) int) {
	s.transition(func() Mode {
		durationSeconds := durationOf(s.side)
		if durationSeconds <= 0 {
			return s.mode
		}
		step := delta.Seconds() / float64(durationSeconds)

		switch s.mode {
		case ModePlaying:
			s.progress[s.side] += step
			if s.progress[s.side] >= 1 {
				s.progress[s.side] = 1
				return ModeStopped
			}
		case ModeRewinding:
			s.progress[s.side] -= windSpeed * step
			if s.progress[s.side] < 0 {
				s.progress[s.side] = 0
			}
		case ModeFastForwarding:
			s.progress[s.side] += windSpeed * step
			if s.progress[s.side] >= 1 {
				s.progress[s.side] = 1
				return ModeStopped
			}
		}
		return s.mode
	})
}

// transition applies a mutation under the lock and notifies listeners of
// any mode change after the lock is released.
func (s *State) transition(apply func() Mode) {
	s.mu.Lock()
	old := s.mode
	s.mode = apply()
	next := s.mode
	var notify []ModeListener
	if next != old {
		notify = append(notify, s.listeners...)
	}
	s.mu.Unlock()

	for _, fn := range notify {
		fn(old, next)
	}
}

// snapshotLocked builds a Snapshot while already holding the lock.
func (s *State) snapshotLocked() Snapshot {
	return Snapshot{
		Mode:          s.mode,
		Side:          s.side,
		SideAProgress: s.progress[tape.SideA],
		SideBProgress: s.progress[tape.SideB],
	}
}

func clampFraction(f float64) float64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
