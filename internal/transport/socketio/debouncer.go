package socketio

import (
	"sync"
	"time"
)

// Broadcast kinds accepted by the debouncer.
const (
	// EventState marks a transport snapshot change.
	EventState = "state"
	// EventProgram marks a tracklist change. Program edits also move the
	// tape geometry (durations, label), so they imply a state push too.
	EventProgram = "program"
)

// BroadcastDebouncer collapses rapid edit bursts into batched broadcasts.
// Multiple triggers within the debounce window result in a single
// broadcast for each affected kind.
type BroadcastDebouncer struct {
	window          time.Duration
	stateCallback   func()
	programCallback func()

	mu             sync.Mutex
	pendingState   bool
	pendingProgram bool
	timer          *time.Timer
	stopped        bool
}

// NewBroadcastDebouncer creates a debouncer with the given window duration.
// stateCallback fires for transport snapshot changes, programCallback for
// tracklist changes.
func NewBroadcastDebouncer(window time.Duration, stateCallback, programCallback func()) *BroadcastDebouncer {
	return &BroadcastDebouncer{
		window:          window,
		stateCallback:   stateCallback,
		programCallback: programCallback,
	}
}

// Trigger records that the given kind of broadcast is due. The actual
// callbacks are deferred until the debounce window elapses without
// further triggers.
func (d *BroadcastDebouncer) Trigger(kind string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	switch kind {
	case EventState:
		d.pendingState = true
	case EventProgram:
		d.pendingState = true
		d.pendingProgram = true
	}

	// Reset the timer
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// flush fires callbacks for any pending flags and resets them.
func (d *BroadcastDebouncer) flush() {
	d.mu.Lock()
	doState := d.pendingState
	doProgram := d.pendingProgram
	d.pendingState = false
	d.pendingProgram = false
	d.mu.Unlock()

	if doState && d.stateCallback != nil {
		d.stateCallback()
	}
	if doProgram && d.programCallback != nil {
		d.programCallback()
	}
}

// Stop prevents any further callbacks from firing.
func (d *BroadcastDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pendingState = false
	d.pendingProgram = false
}
