package loop

// Deferred is the pending half of an asynchronous result: a producer settles
// it exactly once, consumers register continuations with Then. Continuations
// never run inline; they are posted to the loop so settlement always lands on
// a later cooperative turn, even when the producer resolves synchronously.
type Deferred[T any] struct {
	l       *Loop
	settled bool
	value   T
	err     error
	waiters []func(T, error)
}

func NewDeferred[T any](l *Loop) *Deferred[T] {
	return &Deferred[T]{l: l}
}

func (d *Deferred[T]) Resolve(v T) {
	if d.settled {
		return
	}
	d.settled = true
	d.value = v
	d.dispatch()
}

func (d *Deferred[T]) Reject(err error) {
	if d.settled {
		return
	}
	d.settled = true
	d.err = err
	d.dispatch()
}

// Then registers a continuation. Registering after settlement still works;
// the continuation is posted on the spot.
func (d *Deferred[T]) Then(fn func(T, error)) {
	if fn == nil {
		return
	}
	if d.settled {
		d.l.Post(func() { fn(d.value, d.err) })
		return
	}
	d.waiters = append(d.waiters, fn)
}

func (d *Deferred[T]) dispatch() {
	waiters := d.waiters
	d.waiters = nil
	for _, fn := range waiters {
		fn := fn
		d.l.Post(func() { fn(d.value, d.err) })
	}
}
