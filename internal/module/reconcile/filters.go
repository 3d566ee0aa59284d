package reconcile

import (
	"sync"

	"github.com/orderlink/server/internal/module/order"
	"github.com/orderlink/server/internal/module/resource"
)

// StatusFilter lets surrounding code override the target status of a
// transition before it commits. Returning the target unchanged passes
// it through.
type StatusFilter func(o *order.Order, target order.Status, res *resource.Remote) order.Status

// filterChain holds the plugin-wide and per-method filter hooks.
type filterChain struct {
	mu        sync.RWMutex
	global    []StatusFilter
	perMethod map[string][]StatusFilter
}

func newFilterChain() *filterChain {
	return &filterChain{perMethod: make(map[string][]StatusFilter)}
}

func (c *filterChain) registerGlobal(f StatusFilter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.global = append(c.global, f)
}

func (c *filterChain) registerMethod(method string, f StatusFilter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.perMethod[method] = append(c.perMethod[method], f)
}

// apply runs the plugin-wide filters then the per-method filters, in
// registration order.
func (c *filterChain) apply(o *order.Order, target order.Status, res *resource.Remote) order.Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, f := range c.global {
		target = f(o, target, res)
	}
	for _, f := range c.perMethod[res.Method()] {
		target = f(o, target, res)
	}
	return target
}
