package testfixtures

import (
	"strconv"
	"sync/atomic"
)

// IDGenerator hands out record ids of the form "<prefix>-<n>" so tests can
// predict what the store assigns.
type IDGenerator struct {
	prefix string
	issued atomic.Uint64
}

// NewIDGenerator returns a generator for prefix, "id" when empty.
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

func (g *IDGenerator) Next() string {
	return g.format(g.issued.Add(1))
}

// Peek returns the id the next call to Next will yield.
func (g *IDGenerator) Peek() string {
	return g.format(g.issued.Load() + 1)
}

// Issued reports how many ids were handed out.
func (g *IDGenerator) Issued() int {
	return int(g.issued.Load())
}

// NextFunc adapts the generator to StoreConfig.IDGenerator.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

func (g *IDGenerator) format(n uint64) string {
	return g.prefix + "-" + strconv.FormatUint(n, 10)
}
