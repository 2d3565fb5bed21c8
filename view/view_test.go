package view_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reflowui/reflow/view"
)

func named(name string) view.Factory {
	return func(state string) view.View { return name }
}

func TestResolvePriorityOrder(t *testing.T) {
	vt := view.NewTable(nil).
		Add("*", named("catchall")).
		Add("/^err/", named("regex")).
		Add("load.*", named("prefix")).
		Add("a|b|c", named("alt")).
		Add("loading", named("exact"))

	cases := []struct {
		state string
		want  string
	}{
		{"loading", "exact"},
		{"b", "alt"},
		{"load.user", "prefix"},
		{"load.posts.page", "prefix"},
		{"errored", "regex"},
		{"anything else", "catchall"},
	}
	for _, tc := range cases {
		t.Run(tc.state, func(t *testing.T) {
			v, err := vt.Resolve(tc.state)
			require.NoError(t, err)
			assert.Equal(t, tc.want, v)
		})
	}
}

func TestExactBeatsPrefixForDottedLookalikes(t *testing.T) {
	vt := view.NewTable(nil).
		Add("load.*", named("prefix")).
		Add("loading", named("exact"))

	v, err := vt.Resolve("loading")
	require.NoError(t, err)
	assert.Equal(t, "exact", v, "\"loading\" has no \"load.\" prefix and owns an exact entry")

	// Without the dot the prefix variant never fires.
	_, err = vt.Resolve("loader")
	assert.ErrorIs(t, err, view.ErrNoView)
}

func TestFactoryReceivesMatchedState(t *testing.T) {
	vt := view.NewTable(nil).
		Add("on|off", func(state string) view.View { return "switch:" + state })

	v, err := vt.Resolve("off")
	require.NoError(t, err)
	assert.Equal(t, "switch:off", v)
}

func TestInvalidRegexSkippedWithWarning(t *testing.T) {
	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	vt := view.NewTable(warn).
		Add("/[unclosed/", named("bad")).
		Add("/^ok$/", named("good"))

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "skipping pattern")

	// The bad pattern is gone, the rest of the table still works.
	v, err := vt.Resolve("ok")
	require.NoError(t, err)
	assert.Equal(t, "good", v)

	_, err = vt.Resolve("unclosed")
	assert.ErrorIs(t, err, view.ErrNoView)
}

func TestNoMatchIsFatal(t *testing.T) {
	vt := view.NewTable(nil).Add("known", named("known"))

	_, err := vt.Resolve("unknown")
	require.Error(t, err)
	assert.ErrorIs(t, err, view.ErrNoView)
	assert.Contains(t, err.Error(), `"unknown"`)
}

func TestFirstAddedWinsWithinTier(t *testing.T) {
	vt := view.NewTable(nil).
		Add("a|b", named("first")).
		Add("b|c", named("second"))

	v, err := vt.Resolve("b")
	require.NoError(t, err)
	assert.Equal(t, "first", v)
}

func TestDuplicateCatchAllIsIgnoredWithWarning(t *testing.T) {
	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	vt := view.NewTable(warn).
		Add("*", named("first")).
		Add("*", named("second"))

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "duplicate catch-all")

	v, err := vt.Resolve("anything")
	require.NoError(t, err)
	assert.Equal(t, "first", v)
}
