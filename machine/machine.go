package machine

import (
	"github.com/reflowui/reflow/cell"
	"github.com/reflowui/reflow/view"
)

// Machine is a running instance of a Table. Its current state lives in a
// reactive cell, so a committed transition invalidates whatever effect read
// the state and the re-render rides the graph's scheduler like any other
// write. One table can back many machines; each machine owns its own state
// and pending queue.
type Machine struct {
	table    *Table
	g        *cell.Graph
	state    *cell.Cell[State]
	inFlight bool
	pending  []State
}

// New starts a machine in the table's initial state.
func New(g *cell.Graph, t *Table) *Machine {
	return &Machine{
		table: t,
		g:     g,
		state: cell.Signal(g, t.initial),
	}
}

// Table returns the declaration this machine runs off.
func (m *Machine) Table() *Table {
	return m.table
}

// States returns the declared state labels, sorted.
func (m *Machine) States() []State {
	return m.table.States()
}

// State reads the current state reactively: an effect calling this
// subscribes to transitions.
func (m *Machine) State() State {
	return m.state.Value()
}

// Current reads the current state without subscribing.
func (m *Machine) Current() State {
	return m.state.Peek()
}

// Send dispatches an event. A state with an event map dispatches by event
// name, and an event with no entry is a silent no-op. A state with an auto
// handler runs it regardless of the event name. A terminal state (no
// handlers at all) ignores everything.
func (m *Machine) Send(event Event, payload any) {
	node, ok := m.table.nodes[m.state.Peek()]
	if !ok {
		return
	}
	if !node.Auto.zero() {
		m.exec(node.Auto, payload)
		return
	}
	h, ok := node.On[event]
	if !ok {
		return
	}
	m.exec(h, payload)
}

// exec evaluates a handler and settles its step.
func (m *Machine) exec(h Handler, payload any) {
	switch {
	case h.target != "":
		m.apply(h.target)
	case h.fn != nil:
		m.settle(h.fn(payload))
	case h.chain != nil:
		m.settle(m.runChain(h.chain, payload))
	}
}

// runChain threads a next continuation through the links. A link that
// returns without calling next short-circuits; a chain that runs past its
// end resolves to the current state, a no-op rather than an error.
func (m *Machine) runChain(links []Middleware, payload any) Step {
	var call func(i int) Step
	call = func(i int) Step {
		if i >= len(links) {
			return To(m.state.Peek())
		}
		return links[i](payload, func() Step { return call(i + 1) })
	}
	return call(0)
}

func (m *Machine) settle(step Step) {
	switch {
	case step.deferred != nil:
		step.deferred.Then(func(s State, err error) {
			if err != nil {
				m.table.warnf("async transition abandoned: %v", err)
				return
			}
			m.apply(s)
		})
	case step.stay:
	default:
		m.apply(step.target)
	}
}

// apply is the commit algorithm. An empty or same-state target is a no-op.
// If a commit is already in flight the target queues behind it, so sends
// issued from inside a guard or a transition's own side effects serialize
// in request order instead of interleaving. Guards and the allow-list run
// inside the in-flight window for the same reason. The drain loop pops
// every queued target even when one of them no-ops against the state it
// finds, so nothing queued during a commit outlives that commit.
func (m *Machine) apply(next State) {
	if next == "" || next == m.state.Peek() {
		return
	}
	if m.inFlight {
		m.pending = append(m.pending, next)
		return
	}
	m.inFlight = true
	for {
		current := m.state.Peek()
		if next != "" && next != current && m.admit(current, next) {
			m.state.SetValue(next)
		}
		if len(m.pending) == 0 {
			break
		}
		next = m.pending[0]
		m.pending = m.pending[1:]
	}
	m.inFlight = false
}

// admit enforces the source state's allow-list and guard rules, plus the
// table-wide requirement that targets are declared states. Rejections warn
// and leave the state untouched.
func (m *Machine) admit(current, next State) bool {
	if _, ok := m.table.nodes[next]; !ok {
		m.table.warnf("rejected %s -> %s: target not declared", current, next)
		return false
	}
	node := m.table.nodes[current]
	if len(node.Next) > 0 {
		allowed := false
		for _, s := range node.Next {
			if s == next {
				allowed = true
				break
			}
		}
		if !allowed {
			m.table.warnf("rejected %s -> %s: not in allowed next states", current, next)
			return false
		}
	}
	for _, guard := range node.Rules {
		if !guard(current, next) {
			m.table.warnf("rejected %s -> %s: guard declined", current, next)
			return false
		}
	}
	return true
}

// Render resolves the current state against vt, then walks auto
// transitions: while the active state declares an auto handler that
// synchronously lands somewhere new, re-resolve there. The walk is bounded;
// exceeding the bound warns and returns the last resolved view. An auto
// handler that goes async ends the walk, and its eventual commit triggers
// the next render through the state cell.
func (m *Machine) Render(vt *view.Table) (view.View, error) {
	steps := 0
	for {
		state := m.state.Value()
		v, err := vt.Resolve(string(state))
		if err != nil {
			return nil, err
		}
		node := m.table.nodes[state]
		if node.Auto.zero() {
			return v, nil
		}
		if steps >= m.table.maxAutoSteps {
			m.table.warnf("auto-step bound of %d exceeded at %s, halting", m.table.maxAutoSteps, state)
			return v, nil
		}
		steps++
		m.exec(node.Auto, nil)
		if m.state.Peek() == state {
			return v, nil
		}
	}
}
