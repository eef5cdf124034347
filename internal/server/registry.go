package server

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Registry tracks the names of live channels. It is touched only during
// allocation and teardown; the handler loops never share it.
type Registry struct {
	mu    sync.Mutex
	names map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{names: map[string]struct{}{}}
}

// Allocate reserves a fresh unique channel name.
func (r *Registry) Allocate() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		name := fmt.Sprintf("data-%.8s", uuid.NewString())
		if _, taken := r.names[name]; !taken {
			r.names[name] = struct{}{}
			return name
		}
	}
}

// Reserve claims a well-known name, reporting whether it was free.
func (r *Registry) Reserve(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.names[name]; taken {
		return false
	}
	r.names[name] = struct{}{}
	return true
}

// Release frees a name after its channel is torn down or its allocation
// failed part-way.
func (r *Registry) Release(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.names, name)
}

// Active returns the live names in stable order.
func (r *Registry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.names))
	for name := range r.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
