package registry

// EventKind names the registry mutation a Notifier is told about.
type EventKind string

const (
	EventClaim       EventKind = "claim"
	EventRelease     EventKind = "release"
	EventSetStatus   EventKind = "set_status"
	EventSetEndpoint EventKind = "set_endpoint"
	EventCleanup     EventKind = "cleanup"
)

// Event is published after a mutating operation commits successfully. It is
// the in-process shape that internal/httpapi's websocket event stream
// serializes to JSON for connected clients.
type Event struct {
	Kind EventKind `json:"kind"`
	// ID is the service identity the event concerns; empty for release and
	// cleanup events, which can affect multiple records.
	ID string `json:"id,omitempty"`
	// Port is the relevant port, when applicable.
	Port int `json:"port,omitempty"`
	// Count is the number of records affected (release, cleanup).
	Count int `json:"count,omitempty"`
}

// Notifier is invoked after each successful mutation. Registry never blocks
// on it for long — callers should make it non-blocking (e.g. a buffered
// channel send with a default case) if they care about registry latency.
type Notifier func(Event)

func (r *Registry) notify(e Event) {
	if r.notifier != nil {
		r.notifier(e)
	}
}
