package tools

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/leixiaohui-1974/HydroResources/pkg/llm"
)

var (
	ErrInvalidToolSpec = errors.New("invalid tool spec")
	ErrToolNotFound    = errors.New("tool not found")
)

// ExecutionMode selects how a registered tool is dispatched. It is fixed
// at registration time rather than re-derived per call.
type ExecutionMode string

const (
	ModeMock        ExecutionMode = "mock"
	ModeRemoteSync  ExecutionMode = "remote-sync"
	ModeRemoteAsync ExecutionMode = "remote-async"
)

// Spec describes one callable tool. Parameters is a JSON Schema object in
// the shape function-calling providers expect.
type Spec struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
	Mode        ExecutionMode
	Endpoint    string
}

// Registry is the tool catalog. Reads are frequent (every provider call
// projects the catalog); writes happen at startup. Re-registering a name
// replaces the previous spec.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]Spec
}

func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]Spec)}
}

func (r *Registry) Register(spec Spec) error {
	if spec.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidToolSpec)
	}
	if spec.Parameters == nil {
		return fmt.Errorf("%w: parameter schema is required for %q", ErrInvalidToolSpec, spec.Name)
	}
	if spec.Mode == "" {
		spec.Mode = ModeMock
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[spec.Name] = spec
	return nil
}

func (r *Registry) Lookup(name string) (Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[name]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	return spec, nil
}

// List returns all registered specs sorted by name.
func (r *Registry) List() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]Spec, 0, len(r.specs))
	for _, spec := range r.specs {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// ProviderTools projects the catalog into the provider function-calling
// format.
func (r *Registry) ProviderTools() []llm.Tool {
	specs := r.List()
	providerTools := make([]llm.Tool, 0, len(specs))
	for _, spec := range specs {
		providerTools = append(providerTools, llm.Tool{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  spec.Parameters,
		})
	}
	return providerTools
}
