package cell

// Derived is a lazily recomputed cell. It is an observer of the sources its
// getter reads and a source for whoever reads it. Staleness is graded: a
// direct dependency write makes it dirty, a transitive one only makes it
// check, and a check node pulls its parents before deciding whether its own
// getter has to run at all.
type Derived[T any] struct {
	computation
	getter func(old T) (T, error)
	value  T
	equals func(a, b T) bool
	subs   *subscribers
	ran    bool
}

// Computed creates a derived cell compared with ==.
func Computed[T comparable](g *Graph, getter func(old T) (T, error)) *Derived[T] {
	return ComputedEq(g, getter, func(a, b T) bool { return a == b })
}

// ComputedEq creates a derived cell with a custom equality. The getter
// receives the previous value, which lets reducers fold over their own
// output.
func ComputedEq[T any](g *Graph, getter func(old T) (T, error), equals func(a, b T) bool) *Derived[T] {
	d := &Derived[T]{
		computation: computation{g: g, state: cacheDirty},
		getter:      getter,
		equals:      equals,
		subs:        newSubscribers(),
	}
	return d
}

// Value brings the cell up to date if needed, subscribes the running
// computation and returns the cached value.
func (d *Derived[T]) Value() T {
	d.refresh()
	d.g.recordRead(d)
	return d.value
}

// Peek brings the cell up to date without subscribing anything.
func (d *Derived[T]) Peek() T {
	d.refresh()
	return d.value
}

// markStale raises the staleness grade. Observers only hear check: whether
// this node's value actually changes is not known until it recomputes.
func (d *Derived[T]) markStale(s cacheState) {
	if d.state >= s {
		return
	}
	wasClean := d.state == cacheClean
	d.state = s
	if !wasClean {
		return
	}
	for _, o := range d.subs.snapshot() {
		o.markStale(cacheCheck)
	}
}

// refresh settles a possibly stale node. A check node pulls its parents
// first; if none of them actually changed, the getter never runs and the
// node goes back to clean for free.
func (d *Derived[T]) refresh() {
	if d.state == cacheCheck {
		d.refreshSources()
	}
	if d.state == cacheDirty {
		d.recompute()
	}
	d.state = cacheClean
}

func (d *Derived[T]) recompute() {
	old := d.value
	var next T
	reads, err := d.g.capture(func() error {
		var gerr error
		next, gerr = d.getter(old)
		return gerr
	})
	d.relink(reads, d)
	if err != nil {
		d.g.onError(err)
		return
	}
	changed := !d.ran || d.equals == nil || !d.equals(old, next)
	d.ran = true
	if !changed {
		return
	}
	d.value = next
	for _, o := range d.subs.snapshot() {
		o.markStale(cacheDirty)
	}
}

func (d *Derived[T]) attach(o observer) { d.subs.add(o) }
func (d *Derived[T]) detach(o observer) { d.subs.remove(o) }
