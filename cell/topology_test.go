package cell_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reflowui/reflow/cell"
)

func TestTopologyDiamondRecomputesOnce(t *testing.T) {
	_, g := newGraph(t)

	// "D" must recompute once per write to "A", not once per path.
	//     A
	//   /   \
	//  B     C
	//   \   /
	//     D
	a := cell.Signal(g, "a")
	b := cell.Computed(g, func(oldValue string) (string, error) {
		return a.Value(), nil
	})
	c := cell.Computed(g, func(oldValue string) (string, error) {
		return a.Value(), nil
	})

	callCount := 0
	d := cell.Computed(g, func(oldValue string) (string, error) {
		callCount++
		return b.Value() + " " + c.Value(), nil
	})

	assert.Equal(t, "a a", d.Value())
	assert.Equal(t, 1, callCount)
	callCount = 0

	a.SetValue("aa")
	assert.Equal(t, "aa aa", d.Value())
	assert.Equal(t, 1, callCount)
}

func TestTopologyDiamondEffectRerunsOnce(t *testing.T) {
	lp, g := newGraph(t)

	//     A
	//   /   \
	//  B     C
	//   \   /
	//   effect
	a := cell.Signal(g, 1)
	b := cell.Computed(g, func(oldValue int) (int, error) {
		return a.Value() * 2, nil
	})
	c := cell.Computed(g, func(oldValue int) (int, error) {
		return a.Value() * 3, nil
	})

	calls := 0
	var sum int
	cell.Effect(g, func() (cell.CleanupFn, error) {
		calls++
		sum = b.Value() + c.Value()
		return nil, nil
	})
	require.Equal(t, 1, calls)
	require.Equal(t, 5, sum)

	a.SetValue(2)
	lp.Drain()
	assert.Equal(t, 2, calls)
	assert.Equal(t, 10, sum)
}

func TestTopologyDropAbaUpdates(t *testing.T) {
	_, g := newGraph(t)

	//     A
	//   / |
	//  B  |
	//   \ |
	//     C
	//     |
	//     D
	a := cell.Signal(g, 2)
	b := cell.Computed(g, func(oldValue int) (int, error) {
		return a.Value() - 1, nil
	})
	c := cell.Computed(g, func(oldValue int) (int, error) {
		return a.Value() + b.Value(), nil
	})

	callCount := 0
	d := cell.Computed(g, func(oldValue string) (string, error) {
		callCount++
		return fmt.Sprintf("d: %d", c.Value()), nil
	})

	assert.Equal(t, "d: 3", d.Value())
	assert.Equal(t, 1, callCount)

	a.SetValue(4)
	d.Value()
	assert.Equal(t, 2, callCount)
}

func TestTopologyUnchangedMiddleLayerStopsPropagation(t *testing.T) {
	lp, g := newGraph(t)

	// A change to "A" that leaves "B" equal must not rerun the effect.
	//  A
	//  |
	//  B  (bool: A > 0)
	//  |
	//  effect
	a := cell.Signal(g, 1)
	b := cell.Computed(g, func(oldValue bool) (bool, error) {
		return a.Value() > 0, nil
	})

	calls := 0
	cell.Effect(g, func() (cell.CleanupFn, error) {
		calls++
		b.Value()
		return nil, nil
	})
	require.Equal(t, 1, calls)

	a.SetValue(5)
	lp.Drain()
	assert.Equal(t, 1, calls)

	a.SetValue(-1)
	lp.Drain()
	assert.Equal(t, 2, calls)
}

func TestTopologyDeepChainSingleRerun(t *testing.T) {
	lp, g := newGraph(t)

	src := cell.Signal(g, 0)
	last := func() int { return src.Value() }
	for i := 0; i < 50; i++ {
		prev := last
		d := cell.Computed(g, func(oldValue int) (int, error) {
			return prev() + 1, nil
		})
		last = func() int { return d.Value() }
	}

	calls := 0
	var leaf int
	cell.Effect(g, func() (cell.CleanupFn, error) {
		calls++
		leaf = last()
		return nil, nil
	})
	require.Equal(t, 1, calls)
	require.Equal(t, 50, leaf)

	src.SetValue(10)
	lp.Drain()
	assert.Equal(t, 2, calls)
	assert.Equal(t, 60, leaf)
}
