package cell

// Cell is a writable reactive value. Reads inside a running computation
// subscribe that computation; writes that change the value (by the cell's
// equality) mark direct observers dirty and everything downstream as
// possibly stale.
type Cell[T any] struct {
	g      *Graph
	value  T
	equals func(a, b T) bool
	subs   *subscribers
}

// Signal creates a cell compared with ==.
func Signal[T comparable](g *Graph, initial T) *Cell[T] {
	return SignalEq(g, initial, func(a, b T) bool { return a == b })
}

// SignalEq creates a cell with a custom equality. A nil equals means every
// write counts as a change.
func SignalEq[T any](g *Graph, initial T, equals func(a, b T) bool) *Cell[T] {
	return &Cell[T]{g: g, value: initial, equals: equals, subs: newSubscribers()}
}

// Value returns the current value and subscribes the running computation.
func (c *Cell[T]) Value() T {
	c.g.recordRead(c)
	return c.value
}

// Peek returns the current value without subscribing anything.
func (c *Cell[T]) Peek() T {
	return c.value
}

// SetValue stores v. If the cell's equality reports no change the write is
// absorbed and no observer hears about it.
func (c *Cell[T]) SetValue(v T) {
	if c.equals != nil && c.equals(c.value, v) {
		return
	}
	c.value = v
	for _, o := range c.subs.snapshot() {
		o.markStale(cacheDirty)
	}
}

// Update applies fn to the current value and writes the result back, with
// the same equality suppression as SetValue.
func (c *Cell[T]) Update(fn func(old T) T) {
	c.SetValue(fn(c.value))
}

func (c *Cell[T]) attach(o observer) { c.subs.add(o) }
func (c *Cell[T]) detach(o observer) { c.subs.remove(o) }
func (c *Cell[T]) refresh()          {}
