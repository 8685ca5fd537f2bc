package golisp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternIdempotent(t *testing.T) {
	h := newHeap(NewConfig().Heap)
	tab := newSymbolTable(h)

	a, err := tab.Intern("foo")
	require.NoError(t, err)
	b, err := tab.Intern("foo")
	require.NoError(t, err)
	assert.Same(t, a, b, "interning the same name twice must return the same Symbol pointer")

	c, err := tab.Intern("bar")
	require.NoError(t, err)
	assert.NotSame(t, a, c)
}

func TestInternSurvivesCollection(t *testing.T) {
	h := newHeap(NewConfig().Heap)
	tab := newSymbolTable(h)
	root, err := h.AllocFrame(nil, nil)
	require.NoError(t, err)
	h.SetRootFrame(root)

	sym, err := tab.Intern("alive")
	require.NoError(t, err)
	h.Collect()

	again, err := tab.Intern("alive")
	require.NoError(t, err)
	assert.Same(t, sym, again, "an interned symbol must be permanently rooted, not swept")
}
