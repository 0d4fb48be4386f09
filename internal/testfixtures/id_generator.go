package testfixtures

import (
	"fmt"
	"sync"
)

// IDGenerator yields deterministic "<prefix>-<n>" identifiers.
type IDGenerator struct {
	mu      sync.Mutex
	prefix  string
	counter uint64
	issued  []string
}

// NewIDGenerator constructs a generator for prefix, defaulting to "id".
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	id := fmt.Sprintf("%s-%d", g.prefix, g.counter)
	g.issued = append(g.issued, id)
	return id
}

// NextFunc exposes Next for constructor injection.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// Issued returns every identifier handed out so far.
func (g *IDGenerator) Issued() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.issued...)
}
