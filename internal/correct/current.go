package correct

import (
	"context"
	"sync/atomic"
)

// Current holds the pipeline in effect. A configuration reload or a custom
// dictionary change builds a new [Pipeline] and stores it; requests already
// running keep the pipeline they loaded.
type Current struct {
	p atomic.Pointer[Pipeline]
}

// NewCurrent returns a Current holding p.
func NewCurrent(p *Pipeline) *Current {
	c := &Current{}
	c.p.Store(p)
	return c
}

// Load returns the pipeline in effect.
func (c *Current) Load() *Pipeline { return c.p.Load() }

// Store replaces the pipeline in effect.
func (c *Current) Store(p *Pipeline) { c.p.Store(p) }

// Correct runs the pipeline in effect.
func (c *Current) Correct(ctx context.Context, raw []byte) (*Result, error) {
	return c.p.Load().Correct(ctx, raw)
}
