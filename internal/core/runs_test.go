package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRegistry(t *testing.T) {
	reg := NewRunRegistry()

	t.Run("abort without a run is a no-op", func(t *testing.T) {
		assert.False(t, reg.Abort("job-1"))
	})

	t.Run("begin, abort, end", func(t *testing.T) {
		state, ok := reg.Begin("job-1")
		require.True(t, ok)
		require.NotNil(t, state)
		assert.False(t, state.Aborted())
		assert.True(t, reg.Active("job-1"))

		assert.True(t, reg.Abort("job-1"))
		assert.True(t, state.Aborted())

		reg.End("job-1", state)
		assert.False(t, reg.Active("job-1"))
		assert.False(t, reg.Abort("job-1"))
		reg.End("job-1", state)
	})

	t.Run("begin while a run is in flight is refused", func(t *testing.T) {
		live, ok := reg.Begin("job-2")
		require.True(t, ok)

		second, ok := reg.Begin("job-2")
		assert.False(t, ok)
		assert.Nil(t, second)

		// The live run stays visible and abortable.
		assert.True(t, reg.Active("job-2"))
		assert.True(t, reg.Abort("job-2"))
		assert.True(t, live.Aborted())
		reg.End("job-2", live)
	})

	t.Run("end only removes its own run", func(t *testing.T) {
		first, ok := reg.Begin("job-3")
		require.True(t, ok)
		reg.End("job-3", first)

		second, ok := reg.Begin("job-3")
		require.True(t, ok)

		// A stale End from the finished run must not evict the live one.
		reg.End("job-3", first)
		assert.True(t, reg.Active("job-3"))

		reg.End("job-3", second)
		assert.False(t, reg.Active("job-3"))
	})

	t.Run("ids lists in-flight runs", func(t *testing.T) {
		assert.Empty(t, reg.IDs())
		reg.Begin("a")
		reg.Begin("b")
		assert.ElementsMatch(t, []string{"a", "b"}, reg.IDs())
	})
}
