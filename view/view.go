// Package view maps state labels to view factories through an ordered
// pattern policy. Patterns are a closed set of variants compiled once when
// they are added; resolution is a walk over the variants in fixed priority
// order, so a table's behavior never depends on registration order within a
// priority tier beyond first-added-wins.
package view

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
)

// View is whatever the host renders. The resolver never inspects it.
type View = any

// Factory produces a view for the state that matched its pattern.
type Factory func(state string) View

// WarnFunc receives non-fatal diagnostics, such as a pattern that failed to
// compile.
type WarnFunc func(format string, args ...any)

// ErrNoView is returned when no pattern matches a state. It is the one
// fatal resolver condition: a reachable state with no view is a
// configuration bug the host must hear about.
var ErrNoView = errors.New("view: no pattern matches state")

type exactEntry struct {
	key     string
	factory Factory
}

type altEntry struct {
	members []string
	factory Factory
}

type prefixEntry struct {
	prefix  string
	factory Factory
}

type regexEntry struct {
	re      *regexp.Regexp
	factory Factory
}

// Table is an ordered view table. Within each variant tier, entries match
// in the order they were added.
type Table struct {
	exacts   []exactEntry
	alts     []altEntry
	prefixes []prefixEntry
	regexes  []regexEntry
	catchAll Factory
	warn     WarnFunc
}

func NewTable(warn WarnFunc) *Table {
	if warn == nil {
		warn = log.Printf
	}
	return &Table{warn: warn}
}

// Add registers a pattern. The variant is decided by the pattern's shape:
// "*" is the catch-all, "/re/" is a regex, "a|b" is an alternation,
// "prefix.*" matches every state starting with "prefix.", and anything else
// is an exact key. Invalid regexes are skipped with a warning rather than
// poisoning the table.
func (t *Table) Add(pattern string, factory Factory) *Table {
	switch {
	case pattern == "*":
		if t.catchAll != nil {
			t.warn("view: ignoring duplicate catch-all pattern")
			return t
		}
		t.catchAll = factory
	case len(pattern) > 1 && strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/"):
		expr := pattern[1 : len(pattern)-1]
		re, err := regexp.Compile(expr)
		if err != nil {
			t.warn("view: skipping pattern %q: %v", pattern, err)
			return t
		}
		t.regexes = append(t.regexes, regexEntry{re: re, factory: factory})
	case strings.Contains(pattern, "|"):
		members := strings.Split(pattern, "|")
		t.alts = append(t.alts, altEntry{members: members, factory: factory})
	case strings.HasSuffix(pattern, ".*"):
		prefix := strings.TrimSuffix(pattern, "*")
		t.prefixes = append(t.prefixes, prefixEntry{prefix: prefix, factory: factory})
	default:
		t.exacts = append(t.exacts, exactEntry{key: pattern, factory: factory})
	}
	return t
}

// Resolve finds the factory for state and invokes it. Priority: exact,
// alternation, dotted prefix, regex, catch-all. First match wins.
func (t *Table) Resolve(state string) (View, error) {
	for _, e := range t.exacts {
		if e.key == state {
			return e.factory(state), nil
		}
	}
	for _, e := range t.alts {
		for _, m := range e.members {
			if m == state {
				return e.factory(state), nil
			}
		}
	}
	for _, e := range t.prefixes {
		if strings.HasPrefix(state, e.prefix) {
			return e.factory(state), nil
		}
	}
	for _, e := range t.regexes {
		if e.re.MatchString(state) {
			return e.factory(state), nil
		}
	}
	if t.catchAll != nil {
		return t.catchAll(state), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNoView, state)
}
