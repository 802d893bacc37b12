package testfixtures

import (
	"fmt"
	"sync"
)

// IDGenerator hands out zero-padded sequential identifiers such as
// "checklist-007". It is safe for concurrent use.
type IDGenerator struct {
	mu      sync.Mutex
	prefix  string
	counter int
}

// NewIDGenerator constructs a generator for prefix. When prefix is empty, "id"
// is used.
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

// Next returns the next identifier in the sequence.
func (g *IDGenerator) Next() string {
	_, id := g.next()
	return id
}

// NextFunc exposes Next as a function suitable for service constructors.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// Reset restarts the sequence at 1.
func (g *IDGenerator) Reset() {
	g.mu.Lock()
	g.counter = 0
	g.mu.Unlock()
}

func (g *IDGenerator) next() (int, string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return g.counter, fmt.Sprintf("%s-%03d", g.prefix, g.counter)
}
