// Package render defines the contract between the fetch orchestrator and
// the tile source engine that produces raster bytes.
package render

// State is the lifecycle of a single tile resource.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateEmpty
	StateError
)

// Terminal reports whether the resource has finished loading, successfully
// or not.
func (s State) Terminal() bool {
	switch s {
	case StateLoaded, StateEmpty, StateError:
		return true
	}
	return false
}

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateEmpty:
		return "empty"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Resource is one tile acquisition in progress. Subscribe returns a channel
// that receives a signal on every state change plus a cancel func that must
// be called when the caller stops waiting, so abandoned waits do not leak
// listeners.
type Resource interface {
	State() State
	// Load starts the acquisition. Calling it on a resource that is not
	// idle is a no-op.
	Load()
	Subscribe() (<-chan State, func())
	// Bytes returns the raster payload once the resource is loaded. It is
	// nil for empty resources.
	Bytes() []byte
	// Err is non-nil once the resource is in the error state.
	Err() error
}

// Engine produces tile resources. The orchestrator treats engines as
// replaceable: the lifecycle manager swaps in a fresh instance on every
// cache reset.
type Engine interface {
	Resource(z, x, y int, format string) Resource
	Close()
}
