package audio_test

import (
	"errors"
	"testing"

	"github.com/inquiredu/hi-fi-cassette-physics/internal/audio"
	"github.com/inquiredu/hi-fi-cassette-physics/internal/deck"
)

// MockMotorPlayer records loop start/stop calls for testing.
type MockMotorPlayer struct {
	StartCalls int
	StopCalls  int
	StartError error
	StopError  error
}

func (m *MockMotorPlayer) StartLoop() error {
	m.StartCalls++
	return m.StartError
}

func (m *MockMotorPlayer) StopLoop() error {
	m.StopCalls++
	return m.StopError
}

func TestNewController(t *testing.T) {
	ctrl := audio.NewController(nil)
	state := ctrl.State()

	if state.Running {
		t.Error("expected motor to be idle initially")
	}
	if state.Speed != 0 {
		t.Errorf("expected speed 0, got %d", state.Speed)
	}
}

func TestOnModeChange(t *testing.T) {
	tests := []struct {
		name          string
		mode          deck.Mode
		expectRunning bool
		expectSpeed   int
		expectReverse bool
	}{
		{"playing runs at play speed", deck.ModePlaying, true, 1, false},
		{"rewinding runs backward at wind speed", deck.ModeRewinding, true, 5, true},
		{"fast-forwarding runs at wind speed", deck.ModeFastForwarding, true, 5, false},
		{"paused is silent", deck.ModePaused, false, 0, false},
		{"stopped is silent", deck.ModeStopped, false, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := audio.NewController(nil)
			ctrl.OnModeChange(deck.ModeStopped, tt.mode)

			state := ctrl.State()
			if state.Running != tt.expectRunning {
				t.Errorf("running = %v, want %v", state.Running, tt.expectRunning)
			}
			if state.Speed != tt.expectSpeed {
				t.Errorf("speed = %d, want %d", state.Speed, tt.expectSpeed)
			}
			if state.Reverse != tt.expectReverse {
				t.Errorf("reverse = %v, want %v", state.Reverse, tt.expectReverse)
			}
		})
	}
}

func TestOnModeChangeDrivesPlayer(t *testing.T) {
	player := &MockMotorPlayer{}
	ctrl := audio.NewController(player)

	ctrl.OnModeChange(deck.ModeStopped, deck.ModePlaying)
	if player.StartCalls != 1 {
		t.Errorf("start calls = %d, want 1", player.StartCalls)
	}

	// Playing -> fast-forwarding keeps the motor running but changes
	// speed, so the loop restarts.
	ctrl.OnModeChange(deck.ModePlaying, deck.ModeFastForwarding)
	if player.StartCalls != 2 {
		t.Errorf("start calls = %d, want 2 after speed change", player.StartCalls)
	}

	ctrl.OnModeChange(deck.ModeFastForwarding, deck.ModeStopped)
	if player.StopCalls != 1 {
		t.Errorf("stop calls = %d, want 1", player.StopCalls)
	}
}

func TestOnModeChangeSwallowsPlayerErrors(t *testing.T) {
	player := &MockMotorPlayer{
		StartError: errors.New("mpd unreachable"),
		StopError:  errors.New("mpd unreachable"),
	}
	ctrl := audio.NewController(player)

	// Neither call may panic or affect the derived state.
	ctrl.OnModeChange(deck.ModeStopped, deck.ModePlaying)
	if !ctrl.State().Running {
		t.Error("motor state should update even when the player fails")
	}

	ctrl.OnModeChange(deck.ModePlaying, deck.ModeStopped)
	if ctrl.State().Running {
		t.Error("motor state should update even when the player fails")
	}
}

func TestOnModeChangeIgnoresRedundantTransitions(t *testing.T) {
	player := &MockMotorPlayer{}
	ctrl := audio.NewController(player)

	// Paused and stopped map to the same silent motor state; no player
	// calls should happen for a transition between them.
	ctrl.OnModeChange(deck.ModeStopped, deck.ModePaused)
	if player.StartCalls != 0 || player.StopCalls != 0 {
		t.Errorf("player called for silent-to-silent transition: %+v", player)
	}
}
