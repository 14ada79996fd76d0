package extract

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/skizzehq/skizze/pkg/common"
)

var (
	// ErrUnknownExtractor is returned when a requested extractor name has no
	// registration.
	ErrUnknownExtractor = errors.New("unknown extractor")
	// ErrDuplicateExtractor is returned when a name is registered twice.
	ErrDuplicateExtractor = errors.New("extractor already registered")
)

// Extractor pulls entities and relations out of one statement. Extract must
// honor ctx cancellation and return a zero-valued Extraction on failure.
// Implementations are registered under a stable name that also serves as the
// provenance source name during fusion.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, text string) (common.Extraction, error)
}

// Registry maps extractor names to implementations.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]Extractor
}

// NewRegistry returns an empty extractor registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string]Extractor)}
}

// DefaultRegistry returns a registry preloaded with the dependency-free
// built-in extractors. Model-backed extractors are registered by the caller
// once a client is configured.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(NewLexical())
	return r
}

// Register adds an extractor under its name.
func (r *Registry) Register(e Extractor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.extractors[e.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateExtractor, e.Name())
	}
	r.extractors[e.Name()] = e
	return nil
}

// Get returns the extractor registered under name.
func (r *Registry) Get(name string) (Extractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.extractors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownExtractor, name)
	}
	return e, nil
}

// Resolve maps a list of names to their extractors, failing on the first
// unknown name. A misspelled active set is a configuration error, not a
// degradable source failure.
func (r *Registry) Resolve(names []string) ([]Extractor, error) {
	out := make([]Extractor, 0, len(names))
	for _, name := range names {
		e, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Names returns the registered extractor names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.extractors))
	for name := range r.extractors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
