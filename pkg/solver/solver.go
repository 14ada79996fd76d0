package solver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/skizzehq/skizze/pkg/common"
)

var (
	// ErrUnknownBackend is returned when a strategy chain names a back-end
	// the registry does not hold.
	ErrUnknownBackend = errors.New("solver: unknown back-end")
	// ErrDuplicateBackend is returned when a back-end name is registered twice.
	ErrDuplicateBackend = errors.New("solver: duplicate back-end")
)

// Built-in back-end names. Strategy chains reference back-ends by name.
const (
	BackendTemplate = "template"
	BackendRelax    = "relax"
	BackendSymbolic = "symbolic"
)

// Request is the input to one back-end invocation. Fixed holds positions
// pinned by earlier back-ends in the chain; a back-end must never move a
// pinned entity and the orchestrator discards any returned position for one.
type Request struct {
	Entities    []common.Node
	Constraints []common.Constraint
	Fixed       map[string]common.Position
	Domain      common.Domain
}

// Free returns the entities the request still needs positions for, in input
// order.
func (r Request) Free() []common.Node {
	var free []common.Node
	for _, entity := range r.Entities {
		if _, pinned := r.Fixed[entity.ID]; !pinned {
			free = append(free, entity)
		}
	}
	return free
}

// Backend is a layout solver. Solve returns the positions it produced and
// whether the request was satisfiable; the deadline on ctx is the enforced
// budget and must be observed cooperatively. Partial placement is valid:
// entities a back-end cannot place stay absent from the result.
type Backend interface {
	Name() string
	Solve(ctx context.Context, req Request) (map[string]common.Position, bool, error)
}

// Registry holds the available back-ends by name. Strategy chains are
// resolved against it, never via runtime probing.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

// DefaultRegistry returns a registry with the built-in back-ends registered.
func DefaultRegistry() *Registry {
	registry := NewRegistry()
	for _, backend := range []Backend{
		NewTemplateBackend(),
		NewRelaxBackend(),
		NewSymbolicBackend(),
	} {
		if err := registry.Register(backend); err != nil {
			panic(err)
		}
	}
	return registry
}

// Register adds a back-end under its name.
func (r *Registry) Register(backend Backend) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := backend.Name()
	if _, exists := r.backends[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateBackend, name)
	}
	r.backends[name] = backend
	return nil
}

// Get resolves a back-end by name.
func (r *Registry) Get(name string) (Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	backend, ok := r.backends[name]
	return backend, ok
}

// Names returns the registered back-end names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Chain returns the ordered back-end chain for a strategy. HEURISTIC runs no
// solver at all; the heuristic layout stage places everything downstream.
func Chain(strategy common.Strategy) []string {
	switch strategy {
	case common.StrategyDirect:
		return []string{BackendTemplate}
	case common.StrategyConstraintSolver:
		return []string{BackendRelax}
	case common.StrategySymbolicPhysics:
		return []string{BackendSymbolic}
	case common.StrategyHybrid:
		return []string{BackendSymbolic, BackendRelax, BackendTemplate}
	}
	return nil
}
