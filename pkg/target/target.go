// Package target defines the consumers of a parsed document and a registry
// to look them up by name.
package target

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/leapstack-labs/querybinder/pkg/ast"
)

// Target renders a successfully parsed document.
type Target interface {
	// Name is the registry name of the target.
	Name() string
	// Generate writes the output for doc, parsed from input, to w.
	Generate(w io.Writer, file string, input []byte, doc *ast.Document) error
}

// Options configures a target instance.
type Options struct {
	// Color enables ANSI colors for targets that support them.
	Color bool
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func(Options) Target)
)

// Register adds a target factory to the registry.
// Called by target implementations in their init() functions.
func Register(name string, factory func(Options) Target) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get retrieves a target factory by name.
func Get(name string) (func(Options) Target, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// New creates a target by name.
func New(name string, opts Options) (Target, error) {
	factory, ok := Get(name)
	if !ok {
		return nil, &UnknownTargetError{Name: name, Available: List()}
	}
	return factory(opts), nil
}

// List returns all registered target names (sorted).
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownTargetError is returned when an unknown target is requested.
type UnknownTargetError struct {
	Name      string
	Available []string
}

func (e *UnknownTargetError) Error() string {
	return fmt.Sprintf("unknown target %q\nAvailable targets: %v", e.Name, e.Available)
}
