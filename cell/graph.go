// Package cell is a fine-grained reactive dependency graph. Cells hold
// values, computations (effects and derived cells) re-run when the cells
// they actually read change, and reruns triggered by a synchronous burst of
// writes collapse into a single flush on the next loop turn.
package cell

import (
	"log"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/reflowui/reflow/loop"
)

type (
	CleanupFn   func()
	DisposeFn   func()
	OnErrorFunc func(err error)
)

type cacheState uint8

const (
	cacheClean cacheState = iota // value is valid, nothing to do
	cacheCheck                   // a transitive dependency changed, pull parents to decide
	cacheDirty                   // a direct dependency changed, must recompute
)

// observer is a node that depends on sources and can be marked stale.
type observer interface {
	markStale(s cacheState)
}

// source is a node that can be depended on. refresh pulls a derived source
// up to date before its value is trusted; it is a no-op for plain cells.
type source interface {
	attach(o observer)
	detach(o observer)
	refresh()
}

// Graph owns the tracking frame stack, the rerun scheduler and the error
// sink. Multiple graphs can coexist in one process; nothing here is global.
type Graph struct {
	loop    *loop.Loop
	sched   *scheduler
	active  *frame
	onError OnErrorFunc
}

// frame records which sources the currently running computation read.
type frame struct {
	reads []source
}

func New(lp *loop.Loop, onError OnErrorFunc) *Graph {
	if onError == nil {
		onError = func(err error) { log.Printf("cell: %v", err) }
	}
	g := &Graph{loop: lp, onError: onError}
	g.sched = newScheduler(g)
	return g
}

func (g *Graph) Loop() *loop.Loop {
	return g.loop
}

func (g *Graph) recordRead(s source) {
	if g.active != nil {
		g.active.reads = append(g.active.reads, s)
	}
}

// capture runs fn under a fresh tracking frame, stack-disciplined so nested
// computations restore their parent's frame, and returns the sources read up
// to the point fn returned or failed.
func (g *Graph) capture(fn func() error) ([]source, error) {
	prev := g.active
	g.active = &frame{}
	err := fn()
	reads := g.active.reads
	g.active = prev
	return reads, err
}

// Untrack runs fn with dependency tracking suspended: cells read inside do
// not subscribe the surrounding computation.
func Untrack[T any](g *Graph, fn func() T) T {
	prev := g.active
	g.active = nil
	v := fn()
	g.active = prev
	return v
}

// Batch runs fn and then immediately drains the loop, so a caller that wants
// its write burst applied before continuing does not have to reach for the
// loop itself. Writes inside fn still coalesce into one flush.
func (g *Graph) Batch(fn func()) {
	fn()
	g.loop.Drain()
}

// subscribers is an insertion-ordered set of observers. The set side keeps
// duplicate links out (a cell read twice in one run subscribes once), the
// slice side keeps notification order deterministic.
type subscribers struct {
	set     mapset.Set[observer]
	ordered []observer
}

func newSubscribers() *subscribers {
	return &subscribers{set: mapset.NewThreadUnsafeSet[observer]()}
}

func (s *subscribers) add(o observer) {
	if !s.set.Add(o) {
		return
	}
	s.ordered = append(s.ordered, o)
}

func (s *subscribers) remove(o observer) {
	if !s.set.Contains(o) {
		return
	}
	s.set.Remove(o)
	for i, existing := range s.ordered {
		if existing == o {
			s.ordered = append(s.ordered[:i], s.ordered[i+1:]...)
			break
		}
	}
}

// snapshot copies the current membership so observers added or removed while
// marking stale do not disturb the iteration.
func (s *subscribers) snapshot() []observer {
	if len(s.ordered) == 0 {
		return nil
	}
	out := make([]observer, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// computation is the shared dependency-holding half of effects and derived
// cells.
type computation struct {
	g        *Graph
	sources  []source
	state    cacheState
	disposed bool
}

// relink drops every stale subscription and installs the deduplicated set of
// sources read by the latest run.
func (c *computation) relink(reads []source, self observer) {
	for _, s := range c.sources {
		s.detach(self)
	}
	c.sources = c.sources[:0]
	seen := mapset.NewThreadUnsafeSet[source]()
	for _, s := range reads {
		if !seen.Add(s) {
			continue
		}
		s.attach(self)
		c.sources = append(c.sources, s)
	}
}

// refreshSources pulls parents up to date when the computation is only
// possibly stale. A parent that actually changed marks us dirty, at which
// point there is no reason to pull the rest.
func (c *computation) refreshSources() {
	for _, s := range c.sources {
		s.refresh()
		if c.state == cacheDirty {
			break
		}
	}
}

func (c *computation) detachAll(self observer) {
	for _, s := range c.sources {
		s.detach(self)
	}
	c.sources = nil
}
