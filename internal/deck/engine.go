package deck

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/inquiredu/hi-fi-cassette-physics/internal/tape"
)

// TracklistProvider supplies the current program. The engine reads it
// fresh on every tick, so a wholesale tracklist replacement takes effect
// on the next frame without any cache invalidation.
type TracklistProvider interface {
	Tracklist() tape.Tracklist
}

// TracklistFunc adapts a function to the TracklistProvider interface.
type TracklistFunc func() tape.Tracklist

// Tracklist calls fn.
func (fn TracklistFunc) Tracklist() tape.Tracklist {
	return fn()
}

// DefaultTickInterval is the engine's frame cadence when none is
// configured. Deltas are measured wall-clock, so a late tick advances
// the tape by however long it actually waited.
const DefaultTickInterval = 50 * time.Millisecond

// Engine owns the transport state and winds it forward against the
// current tracklist. Commands are issued directly on State and take
// effect before the next tick observes the mode.
type Engine struct {
	state    *State
	program  TracklistProvider
	interval time.Duration
}

// NewEngine creates an engine around an existing transport state.
// A zero interval falls back to DefaultTickInterval.
func NewEngine(state *State, program TracklistProvider, interval time.Duration) *Engine {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Engine{
		state:    state,
		program:  program,
		interval: interval,
	}
}

// State exposes the transport record for commands and snapshots.
func (e *Engine) State() *State {
	return e.state
}

// Tick runs one per-frame update with the given elapsed wall-clock time.
func (e *Engine) Tick(delta time.Duration) {
	tl := e.program.Tracklist()
	e.state.advance(delta, tl.TapeDuration)
}

// SeekTrack drops the tape at the start of a track on the given side and
// begins playback, flipping to that side first if needed.
func (e *Engine) SeekTrack(side tape.Side, trackIndex int) {
	tl := e.program.Tracklist()
	e.state.Seek(side, SeekTargetProgress(side, trackIndex, tl))
}

// Run ticks the engine until the context is cancelled. It never blocks
// on anything but the ticker; commands land between ticks.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", e.interval).Msg("Transport engine started")

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Transport engine stopped")
			return
		case now := <-ticker.C:
			e.Tick(now.Sub(last))
			last = now
		}
	}
}
