// Package audio derives the deck's motor-sound state from transport mode
// changes. It is a one-way observer: playback of the mechanism loop is
// best-effort and nothing here feeds back into the transport.
package audio

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/inquiredu/hi-fi-cassette-physics/internal/deck"
)

// MotorState describes what the deck mechanism should sound like.
type MotorState struct {
	Running bool `json:"running"` // True while any motor is turning
	Speed   int  `json:"speed"`   // 1 for play speed, 5 for wind speed
	Reverse bool `json:"reverse"` // True while rewinding
}

// MotorPlayer plays the mechanism noise loop on some audio backend.
// Implementations must tolerate being called redundantly.
type MotorPlayer interface {
	StartLoop() error
	StopLoop() error
}

// Controller tracks motor state across mode changes and drives an
// optional MotorPlayer. A nil player leaves the controller as a pure
// state holder for clients that render their own sound.
type Controller struct {
	mu     sync.RWMutex
	state  MotorState
	player MotorPlayer
}

// NewController creates a motor controller. player may be nil.
func NewController(player MotorPlayer) *Controller {
	return &Controller{player: player}
}

// State returns the current motor state.
func (c *Controller) State() MotorState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// OnModeChange updates the motor state for a transport mode transition.
// It matches deck.ModeListener so it can be registered directly on the
// transport state. Player failures are logged and swallowed.
func (c *Controller) OnModeChange(old, next deck.Mode) {
	c.mu.Lock()
	prev := c.state
	state := motorStateFor(next)
	c.state = state
	c.mu.Unlock()

	if state == prev {
		return
	}

	log.Debug().
		Str("mode", next.String()).
		Bool("running", state.Running).
		Int("speed", state.Speed).
		Msg("Motor state changed")

	if c.player == nil {
		return
	}
	if state.Running {
		if err := c.player.StartLoop(); err != nil {
			log.Warn().Err(err).Msg("Motor loop start failed")
		}
	} else {
		if err := c.player.StopLoop(); err != nil {
			log.Warn().Err(err).Msg("Motor loop stop failed")
		}
	}
}

// motorStateFor maps a transport mode to mechanism sound.
func motorStateFor(m deck.Mode) MotorState {
	switch m {
	case deck.ModePlaying:
		return MotorState{Running: true, Speed: 1}
	case deck.ModeRewinding:
		return MotorState{Running: true, Speed: 5, Reverse: true}
	case deck.ModeFastForwarding:
		return MotorState{Running: true, Speed: 5}
	default:
		return MotorState{}
	}
}
