package executor

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds an Executor from an implementation-specific config map.
type Factory func(cfg map[string]any) (Executor, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a factory available under the given name. Implementations
// call this from init(); registering the same name twice is a programming
// error.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("executor %q registered twice", name))
	}
	factories[name] = factory
}

// Get looks up a registered factory by name.
func Get(name string) (Factory, bool) {
	mu.RLock()
	defer mu.RUnlock()

	f, ok := factories[name]
	return f, ok
}

// Available lists registered executor names, sorted for stable output in
// error messages.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
