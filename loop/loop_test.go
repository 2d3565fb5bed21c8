package loop_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reflowui/reflow/loop"
)

func TestLoopRunsTasksInPostOrder(t *testing.T) {
	lp := loop.New()

	var order []int
	lp.Post(func() { order = append(order, 1) })
	lp.Post(func() { order = append(order, 2) })
	lp.Post(func() { order = append(order, 3) })

	require.Equal(t, 3, lp.Len())
	assert.True(t, lp.Turn())
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, 0, lp.Len())
	assert.False(t, lp.Turn())
}

func TestLoopTasksPostedDuringTurnWaitForNextTurn(t *testing.T) {
	lp := loop.New()

	var order []string
	lp.Post(func() {
		order = append(order, "first")
		lp.Post(func() { order = append(order, "second") })
	})

	lp.Turn()
	assert.Equal(t, []string{"first"}, order)

	lp.Turn()
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestLoopDrainCountsTurns(t *testing.T) {
	lp := loop.New()

	depth := 0
	var chain func()
	chain = func() {
		depth++
		if depth < 4 {
			lp.Post(chain)
		}
	}
	lp.Post(chain)

	assert.Equal(t, 4, lp.Drain())
	assert.Equal(t, 4, depth)
	assert.Equal(t, 0, lp.Drain())
}

func TestDeferredResolveSettlesOnLaterTurn(t *testing.T) {
	lp := loop.New()
	d := loop.NewDeferred[int](lp)

	var got int
	seen := false
	d.Then(func(v int, err error) {
		require.NoError(t, err)
		got = v
		seen = true
	})

	d.Resolve(42)
	assert.False(t, seen, "continuation must not run inline")

	lp.Drain()
	assert.True(t, seen)
	assert.Equal(t, 42, got)
}

func TestDeferredSettlesExactlyOnce(t *testing.T) {
	lp := loop.New()
	d := loop.NewDeferred[string](lp)

	var results []string
	d.Then(func(v string, err error) {
		results = append(results, v)
	})

	d.Resolve("first")
	d.Resolve("second")
	d.Reject(errors.New("late"))
	lp.Drain()

	assert.Equal(t, []string{"first"}, results)
}

func TestDeferredThenAfterSettlement(t *testing.T) {
	lp := loop.New()
	d := loop.NewDeferred[int](lp)

	d.Reject(errors.New("boom"))
	lp.Drain()

	var gotErr error
	d.Then(func(v int, err error) { gotErr = err })
	lp.Drain()

	require.Error(t, gotErr)
	assert.Equal(t, "boom", gotErr.Error())
}
