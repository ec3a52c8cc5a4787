package predicates

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/Mindburn-Labs/hoc/pkg/contract"
)

// Registry maps predicate names to flat contracts. Names are compared in
// Unicode NFC so that visually identical names resolve identically.
type Registry struct {
	mu    sync.RWMutex
	flats map[string]*contract.Flat
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{flats: make(map[string]*contract.Flat)}
}

// Builtins returns a registry preloaded with All().
func Builtins() *Registry {
	r := NewRegistry()
	for _, f := range All() {
		r.flats[norm.NFC.String(f.Name())] = f
	}
	return r
}

// Register adds f under its own name.
func (r *Registry) Register(f *contract.Flat) error {
	return r.RegisterAs(f.Name(), f)
}

// RegisterAs adds f under name. Names cannot be rebound.
func (r *Registry) RegisterAs(name string, f *contract.Flat) error {
	if name == "" {
		return fmt.Errorf("predicates: empty name")
	}
	key := norm.NFC.String(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.flats[key]; exists {
		return fmt.Errorf("predicates: %q already registered", name)
	}
	r.flats[key] = f
	return nil
}

// Lookup resolves a name.
func (r *Registry) Lookup(name string) (*contract.Flat, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.flats[norm.NFC.String(name)]
	return f, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.flats))
	for n := range r.flats {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
