package types

// Event is a typed notification emitted by a state-changing operation. The
// attribute map carries string-rendered fields so downstream consumers (RPC
// stream, receipt index) never need package imports to decode payloads.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Copy returns a deep copy so emitters can hand events to multiple
// subscribers without sharing the attribute map.
func (e *Event) Copy() *Event {
	if e == nil {
		return nil
	}
	attrs := make(map[string]string, len(e.Attributes))
	for k, v := range e.Attributes {
		attrs[k] = v
	}
	return &Event{Type: e.Type, Attributes: attrs}
}
