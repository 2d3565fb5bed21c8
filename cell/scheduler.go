package cell

import mapset "github.com/deckarep/golang-set/v2"

// rerunner is anything the scheduler can flush. Only effects implement it;
// derived cells stay lazy and are pulled by whoever reads them.
type rerunner interface {
	rerun()
}

// scheduler collects the effects invalidated by a synchronous burst of
// writes and reruns each exactly once on the next loop turn.
type scheduler struct {
	g       *Graph
	pending []rerunner
	seen    mapset.Set[rerunner]
	queued  bool
}

func newScheduler(g *Graph) *scheduler {
	return &scheduler{g: g, seen: mapset.NewThreadUnsafeSet[rerunner]()}
}

func (s *scheduler) enqueue(r rerunner) {
	if !s.seen.Add(r) {
		return
	}
	s.pending = append(s.pending, r)
	if s.queued {
		return
	}
	s.queued = true
	s.g.loop.Post(s.flush)
}

// flush reruns the pending effects in insertion order. Effects invalidated
// during the flush land in a fresh batch and a fresh loop task, so each
// flush observes one consistent generation of the graph.
func (s *scheduler) flush() {
	batch := s.pending
	s.pending = nil
	s.seen.Clear()
	s.queued = false
	for _, r := range batch {
		r.rerun()
	}
}
