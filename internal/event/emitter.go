package event

// Emitter accepts events for delivery. Implementations must not block the
// caller for long and must be safe for concurrent use.
type Emitter interface {
	Emit(ev Event)
}

// EmitterFunc is a function adapter for Emitter.
type EmitterFunc func(Event)

func (f EmitterFunc) Emit(ev Event) {
	f(ev)
}

// Fanout delivers every event to each emitter in order.
type Fanout []Emitter

func (f Fanout) Emit(ev Event) {
	for _, e := range f {
		if e != nil {
			e.Emit(ev)
		}
	}
}

// Discard drops every event.
var Discard Emitter = EmitterFunc(func(Event) {})
