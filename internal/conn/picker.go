package conn

import (
	"sync"

	"fdfs/types"
)

// Picker chooses which candidate endpoint a new connection dials.
type Picker interface {
	Pick([]types.Endpoint) types.Endpoint
	Tag() string
}

// DefaultPickerTag names the picker used when none is requested.
var DefaultPickerTag = "random"

var registry = struct {
	mu sync.Mutex
	re map[string]func() Picker
}{re: make(map[string]func() Picker)}

// Register adds a picker constructor under its tag. Pickers register
// themselves from init; a duplicate tag is a programming error.
func Register(tag string, mk func() Picker) error {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, ok := registry.re[tag]; ok {
		return types.NewConfigError("picker %q already registered", tag)
	}
	registry.re[tag] = mk
	return nil
}

// Use builds a fresh picker instance by tag, nil when unknown. Each
// pool gets its own instance so stateful pickers (round-robin) do not
// share counters.
func Use(tag string) Picker {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	mk := registry.re[tag]
	if mk == nil {
		return nil
	}
	return mk()
}
