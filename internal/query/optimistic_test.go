package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bump(v int) int { return v + 5 }

func TestOptimistic_ApplyCommit(t *testing.T) {
	c := New[int](16, time.Minute)
	c.Set("k", 50)

	op := Begin(c, "k")
	require.True(t, op.Apply(bump))
	v, _ := c.Get("k")
	assert.Equal(t, 55, v, "applied immediately")

	op.Commit()
	op.Revert()
	v, _ = c.Get("k")
	assert.Equal(t, 55, v, "revert after commit is a no-op")
}

func TestOptimistic_RevertRestoresSnapshot(t *testing.T) {
	c := New[int](16, time.Minute)
	c.Set("k", 50)

	op := Begin(c, "k")
	op.Apply(bump)
	op.Revert()

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 50, v)

	prev, had := op.Snapshot()
	assert.True(t, had)
	assert.Equal(t, 50, prev)
}

func TestOptimistic_NoEntry(t *testing.T) {
	c := New[int](16, time.Minute)

	op := Begin(c, "k")
	assert.False(t, op.Apply(bump))
	_, ok := c.Get("k")
	assert.False(t, ok)

	op.Revert()
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestOptimistic_DoesNotTouchOtherKeys(t *testing.T) {
	c := New[int](16, time.Minute)
	c.Set("a", 10)
	c.Set("b", 20)

	opA := Begin(c, "a")
	opB := Begin(c, "b")
	opA.Apply(bump)
	opB.Apply(bump)
	opA.Revert()
	opB.Commit()

	a, _ := c.Get("a")
	b, _ := c.Get("b")
	assert.Equal(t, 10, a)
	assert.Equal(t, 25, b)
}
