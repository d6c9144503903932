package events

// Event represents a structured state change emitted by the node.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC stream,
// receipt index).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events.
// Components take it as the default so event wiring stays optional.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// MultiEmitter fans a single emission out to several subscribers in order.
type MultiEmitter struct {
	emitters []Emitter
}

// NewMultiEmitter wires the provided subscribers, skipping nil entries.
func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	filtered := make([]Emitter, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			filtered = append(filtered, e)
		}
	}
	return &MultiEmitter{emitters: filtered}
}

// Add appends a subscriber to the fan-out.
func (m *MultiEmitter) Add(e Emitter) {
	if m == nil || e == nil {
		return
	}
	m.emitters = append(m.emitters, e)
}

// Emit implements the Emitter interface.
func (m *MultiEmitter) Emit(evt Event) {
	if m == nil {
		return
	}
	for _, e := range m.emitters {
		e.Emit(evt)
	}
}
