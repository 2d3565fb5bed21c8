// Package machine is a guarded finite-state transition engine. A Table
// declares the states, their handlers and their guard rules up front;
// Define validates the whole declaration once, so a running machine never
// discovers a dangling target at dispatch time. The running half lives in
// machine.go.
package machine

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/reflowui/reflow/loop"
)

type (
	// State is a state label. Dotted labels ("load.user") are plain
	// strings here; the dot only matters to view pattern matching.
	State string
	// Event names a message sent to the machine.
	Event string
)

// Guard decides whether a proposed transition out of current may commit.
// Every guard on the source state must agree.
type Guard func(current, proposed State) bool

// WarnFunc receives non-fatal diagnostics: guard rejections, abandoned
// async transitions, auto-step runaways.
type WarnFunc func(format string, args ...any)

// Step is the outcome of a handler: a target state, an instruction to stay
// put, or a deferred result that settles later on the loop.
type Step struct {
	target   State
	stay     bool
	deferred *loop.Deferred[State]
}

// To commits a transition to s.
func To(s State) Step {
	return Step{target: s}
}

// Stay leaves the machine in its current state without a re-render.
func Stay() Step {
	return Step{stay: true}
}

// Await defers the commit until d settles. A resolution commits the yielded
// state through the usual guard path; a rejection abandons the transition.
func Await(d *loop.Deferred[State]) Step {
	return Step{deferred: d}
}

// HandlerFn is a computed transition. It receives the event payload and
// returns where to go.
type HandlerFn func(payload any) Step

// Middleware is one link of a handler chain. It may return its own Step or
// delegate by calling next; a chain that runs past its last link resolves
// to the current state.
type Middleware func(payload any, next func() Step) Step

// Handler is a closed set of transition behaviors. Exactly one of Target,
// Func and Chain is in play per handler.
type Handler struct {
	target State
	fn     HandlerFn
	chain  []Middleware
}

// Target is a literal next-state handler.
func Target(s State) Handler {
	return Handler{target: s}
}

// Func wraps a computed handler.
func Func(fn HandlerFn) Handler {
	return Handler{fn: fn}
}

// Chain builds a middleware handler. Links run in order; the first one that
// returns without calling next short-circuits the rest.
func Chain(links ...Middleware) Handler {
	return Handler{chain: links}
}

func (h Handler) zero() bool {
	return h.target == "" && h.fn == nil && h.chain == nil
}

// Node is one state's declaration. A state dispatches either by event map
// (On) or unconditionally (Auto), never both. Next, when non-empty, is the
// allow-list of states this state may transition to; Rules are guard
// predicates that must all pass for any transition out of this state.
type Node struct {
	On    map[Event]Handler
	Auto  Handler
	Next  []State
	Rules []Guard
}

var (
	ErrUnknownInitial = errors.New("machine: initial state not declared")
	ErrUnknownTarget  = errors.New("machine: handler targets undeclared state")
	ErrAmbiguousNode  = errors.New("machine: state declares both an event map and an auto handler")
)

// Table is a validated transition declaration. It is immutable after
// Define; any number of machines can run off one table.
type Table struct {
	nodes        map[State]Node
	initial      State
	maxAutoSteps int
	warn         WarnFunc
	fingerprint  uint64
}

// DefaultMaxAutoSteps bounds consecutive auto transitions per render before
// the machine assumes a loop and halts with a warning.
const DefaultMaxAutoSteps = 10

type Option func(*Table)

// WithMaxAutoSteps overrides the auto-transition bound.
func WithMaxAutoSteps(n int) Option {
	return func(t *Table) {
		if n > 0 {
			t.maxAutoSteps = n
		}
	}
}

// WithWarnFunc routes diagnostics somewhere other than the standard logger.
func WithWarnFunc(warn WarnFunc) Option {
	return func(t *Table) {
		if warn != nil {
			t.warn = warn
		}
	}
}

// Define validates the declaration and returns a table. Every literal
// target and every allow-list entry must name a declared state, the initial
// state must exist, and no state may declare both dispatch styles.
func Define(initial State, nodes map[State]Node, opts ...Option) (*Table, error) {
	t := &Table{
		nodes:        nodes,
		initial:      initial,
		maxAutoSteps: DefaultMaxAutoSteps,
		warn:         log.Printf,
	}
	for _, opt := range opts {
		opt(t)
	}
	if _, ok := nodes[initial]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownInitial, initial)
	}
	for state, node := range nodes {
		if len(node.On) > 0 && !node.Auto.zero() {
			return nil, fmt.Errorf("%w: %q", ErrAmbiguousNode, state)
		}
		for event, h := range node.On {
			if err := t.checkTarget(h); err != nil {
				return nil, fmt.Errorf("%w (state %q, event %q)", err, state, event)
			}
		}
		if !node.Auto.zero() {
			if err := t.checkTarget(node.Auto); err != nil {
				return nil, fmt.Errorf("%w (state %q, auto)", err, state)
			}
		}
		for _, next := range node.Next {
			if _, ok := nodes[next]; !ok {
				return nil, fmt.Errorf("%w: %q (allowed from %q)", ErrUnknownTarget, next, state)
			}
		}
	}
	t.fingerprint = fingerprint(initial, nodes)
	return t, nil
}

func (t *Table) checkTarget(h Handler) error {
	if h.target == "" {
		return nil
	}
	if _, ok := t.nodes[h.target]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTarget, h.target)
	}
	return nil
}

// Initial returns the state a fresh machine starts in.
func (t *Table) Initial() State {
	return t.initial
}

// States returns the declared state labels, sorted.
func (t *Table) States() []State {
	out := make([]State, 0, len(t.nodes))
	for s := range t.nodes {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// warnf prefixes diagnostics with the table fingerprint so hosts running
// several machines can tell the warnings apart.
func (t *Table) warnf(format string, args ...any) {
	t.warn("machine[%016x]: "+format, append([]any{t.fingerprint}, args...)...)
}

// Fingerprint is a stable hash of the declaration shape: state names,
// event names, literal targets and allow-lists. Two tables with the same
// topology hash the same regardless of map iteration order.
func (t *Table) Fingerprint() uint64 {
	return t.fingerprint
}

func fingerprint(initial State, nodes map[State]Node) uint64 {
	var sb strings.Builder
	sb.WriteString(string(initial))
	sb.WriteByte('\n')
	states := make([]string, 0, len(nodes))
	for s := range nodes {
		states = append(states, string(s))
	}
	sort.Strings(states)
	for _, s := range states {
		node := nodes[State(s)]
		sb.WriteString(s)
		sb.WriteByte(':')
		events := make([]string, 0, len(node.On))
		for e := range node.On {
			events = append(events, string(e))
		}
		sort.Strings(events)
		for _, e := range events {
			sb.WriteString(e)
			h := node.On[Event(e)]
			if h.target != "" {
				sb.WriteByte('>')
				sb.WriteString(string(h.target))
			}
			sb.WriteByte(',')
		}
		if !node.Auto.zero() {
			sb.WriteString("auto")
			if node.Auto.target != "" {
				sb.WriteByte('>')
				sb.WriteString(string(node.Auto.target))
			}
		}
		sb.WriteByte(';')
		for _, next := range node.Next {
			sb.WriteString(string(next))
			sb.WriteByte(',')
		}
		sb.WriteByte('\n')
	}
	return xxhash.Sum64String(sb.String())
}
