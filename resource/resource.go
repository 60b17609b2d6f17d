// Package resource implements a path-deduped, reference-counted resource
// manager. File reads happen on worker goroutines; parsing and observer
// notification happen synchronously inside Poll on the calling thread, so
// consumers never observe state changes off their own thread.
package resource

import "errors"

type State uint8

const (
	// StateEmpty means no data is loaded.
	StateEmpty State = iota
	// StateLoading means a read is in flight.
	StateLoading
	// StateReady means the asset parsed its data successfully.
	StateReady
	// StateFailed means the read or parse failed.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

var ErrUnknownResource = errors.New("resource: unknown path")

// Asset is the payload a Resource manages. Load parses raw bytes; Unload
// releases whatever Load acquired. Both are called on the Poll thread.
type Asset interface {
	Load(data []byte) error
	Unload()
}

// Observer receives state transitions for one resource.
type Observer func(old, new State, res *Resource)

// Resource is one ref-counted, path-addressed entry owned by a Manager.
type Resource struct {
	path      string
	state     State
	refs      int
	asset     Asset
	failure   error
	observers map[int]Observer
	nextObs   int
}

func (r *Resource) Path() string { return r.path }

func (r *Resource) State() State { return r.state }

func (r *Resource) Ready() bool { return r.state == StateReady }

// Failure returns the error behind StateFailed, or nil.
func (r *Resource) Failure() error { return r.failure }

func (r *Resource) Asset() Asset { return r.asset }

// Subscribe registers an observer and returns its subscription id.
func (r *Resource) Subscribe(fn Observer) int {
	if r.observers == nil {
		r.observers = map[int]Observer{}
	}
	r.nextObs++
	r.observers[r.nextObs] = fn
	return r.nextObs
}

func (r *Resource) Unsubscribe(id int) {
	delete(r.observers, id)
}

func (r *Resource) setState(next State) {
	old := r.state
	if old == next {
		return
	}
	r.state = next
	// Copy so an observer may unsubscribe itself mid-notification.
	obs := make([]Observer, 0, len(r.observers))
	for _, fn := range r.observers {
		obs = append(obs, fn)
	}
	for _, fn := range obs {
		fn(old, next, r)
	}
}
