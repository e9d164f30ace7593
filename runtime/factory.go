package runtime

import (
	"fmt"
	"slices"
	"sync"
)

// DefaultRuntime is used when no runtime type is configured.
const DefaultRuntime = "wazero"

// Factory is a function that creates a new Runtime
type Factory func(config any) (Runtime, error)

var (
	factoriesMu      sync.RWMutex
	runtimeFactories = make(map[string]Factory)
)

// Register registers a runtime factory. It panics if name is taken.
func Register(name string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if _, exists := runtimeFactories[name]; exists {
		panic(fmt.Sprintf("runtime %s already registered", name))
	}
	runtimeFactories[name] = factory
}

// NewRuntime creates a new Runtime by name and config
func NewRuntime(runtimeType string, config any) (Runtime, error) {
	if runtimeType == "" {
		runtimeType = DefaultRuntime
	}

	factoriesMu.RLock()
	factory, ok := runtimeFactories[runtimeType]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown runtime type: %s: %w", runtimeType, ErrRuntimeNotFound)
	}

	return factory(config)
}

// List returns all registered runtime types, sorted
func List() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	types := make([]string, 0, len(runtimeFactories))
	for t := range runtimeFactories {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
