package events

import "bankchain/core/types"

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, reporters).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Recorder captures emitted events in order so callers can return them
// alongside an operation's result or assert on them in tests.
type Recorder struct {
	captured []*types.Event
}

// Emit implements the Emitter interface.
func (r *Recorder) Emit(evt Event) {
	if r == nil || evt == nil {
		return
	}
	if rendered := evt.Event(); rendered != nil {
		r.captured = append(r.captured, rendered)
	}
}

// Events returns the recorded events in emission order.
func (r *Recorder) Events() []*types.Event {
	if r == nil {
		return nil
	}
	return r.captured
}

// Reset discards previously recorded events.
func (r *Recorder) Reset() {
	if r == nil {
		return
	}
	r.captured = nil
}
