package cell

// EffectFn is an effect body. The returned cleanup, if any, runs before the
// next rerun and on dispose.
type EffectFn func() (CleanupFn, error)

// effect is an eager computation: it runs once on creation and is enqueued
// for a rerun whenever a dependency may have changed. Reruns go through the
// graph's scheduler, so a burst of writes costs one rerun.
type effect struct {
	computation
	fn      EffectFn
	cleanup CleanupFn
}

// Effect registers fn, runs it once immediately and returns a dispose
// function that unsubscribes it from everything it read.
func Effect(g *Graph, fn EffectFn) DisposeFn {
	e := &effect{computation: computation{g: g}, fn: fn}
	e.run()
	return e.dispose
}

func (e *effect) markStale(s cacheState) {
	if e.disposed || e.state >= s {
		return
	}
	wasClean := e.state == cacheClean
	e.state = s
	if wasClean {
		e.g.sched.enqueue(e)
	}
}

// rerun settles the effect when the scheduler flushes. A check effect pulls
// its sources first; if no derived dependency actually changed the body is
// skipped entirely.
func (e *effect) rerun() {
	if e.disposed {
		return
	}
	if e.state == cacheCheck {
		e.refreshSources()
	}
	if e.state == cacheDirty {
		e.run()
	}
	e.state = cacheClean
}

func (e *effect) run() {
	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}
	var cleanup CleanupFn
	reads, err := e.g.capture(func() error {
		var ferr error
		cleanup, ferr = e.fn()
		return ferr
	})
	e.relink(reads, e)
	e.cleanup = cleanup
	if err != nil {
		e.g.onError(err)
	}
}

func (e *effect) dispose() {
	if e.disposed {
		return
	}
	e.disposed = true
	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}
	e.detachAll(e)
}
