package golisp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHeapCollectSweepsUnrooted allocates a batch of cons cells, roots only
// a handful of them, and asserts that after Collect exactly the rooted
// closure (and nothing else) survives.
func TestHeapCollectSweepsUnrooted(t *testing.T) {
	cfg := HeapConfig{PageSize: 8, WatermarkBytes: 1 << 30, CeilingBytes: 1 << 30}
	h := newHeap(cfg)
	root, err := h.AllocFrame(nil, nil)
	require.NoError(t, err)
	h.SetRootFrame(root)

	const total = 20
	const rooted = 3
	var cells []*Cons
	for i := 0; i < total; i++ {
		c, err := h.AllocCons(nil, nil)
		require.NoError(t, err)
		cells = append(cells, c)
	}
	for i := 0; i < rooted; i++ {
		h.Root(cells[i])
	}

	stats := h.Collect()
	assert.Equal(t, rooted, stats.LiveCells["cons"])

	for i := 0; i < rooted; i++ {
		assert.True(t, cells[i].allocated)
	}
	for i := rooted; i < total; i++ {
		assert.False(t, cells[i].allocated)
	}
}

// TestHeapRootRefcountPairs checks that rooting the same value from two call
// sites requires two Unroots before it becomes collectible.
func TestHeapRootRefcountPairs(t *testing.T) {
	cfg := HeapConfig{PageSize: 8, WatermarkBytes: 1 << 30, CeilingBytes: 1 << 30}
	h := newHeap(cfg)
	root, err := h.AllocFrame(nil, nil)
	require.NoError(t, err)
	h.SetRootFrame(root)

	c, err := h.AllocCons(nil, nil)
	require.NoError(t, err)
	h.Root(c)
	h.Root(c)
	h.Unroot(c)

	h.Collect()
	assert.True(t, c.allocated, "one remaining root reference must keep the cell alive")

	h.Unroot(c)
	h.Collect()
	assert.False(t, c.allocated, "the cell must be reclaimed once every root reference is gone")
}

// TestHeapCeilingExhaustion checks that allocation past the ceiling, even
// after a collection frees nothing useful, fails with HeapExhausted.
func TestHeapCeilingExhaustion(t *testing.T) {
	// One env page (for the root frame) plus exactly one cons page fits
	// under the ceiling; a second cons page does not.
	cfg := HeapConfig{PageSize: 1, WatermarkBytes: 1, CeilingBytes: envCellBytes + consCellBytes}
	h := newHeap(cfg)
	root, err := h.AllocFrame(nil, nil)
	require.NoError(t, err)
	h.SetRootFrame(root)

	first, err := h.AllocCons(nil, nil)
	require.NoError(t, err)
	h.Root(first)

	_, err = h.AllocCons(nil, nil)
	require.Error(t, err)
	var exhausted HeapExhausted
	assert.ErrorAs(t, err, &exhausted)
}

// TestEvalSurvivesAutoCollectMidRecursion forces Collect to fire repeatedly
// in the middle of a tail-recursive evaluation (a tiny watermark, unlike
// the pure-heap cases above that set WatermarkBytes: 1<<30 precisely to
// keep a Collect from happening mid-test) and checks that the in-flight
// activation frames and accumulator value survive intact rather than being
// swept as unreachable.
func TestEvalSurvivesAutoCollectMidRecursion(t *testing.T) {
	cfg := NewConfig()
	cfg.Heap = HeapConfig{PageSize: 4, WatermarkBytes: 512, CeilingBytes: 1 << 24}
	in, err := NewInterpreter(cfg)
	require.NoError(t, err)

	evalSrc(t, in, "(def accum (\\ (n s) (if (= n 0) s (accum (- n 1) (+ s n)))))")
	got := evalSrc(t, in, "(accum 2000 0)")

	assert.Equal(t, "2001000", Display(got))
	assert.Greater(t, in.Heap().Stats().Collections, 0, "a 512-byte watermark over 2000 iterations must trigger at least one auto-collect")
}

func TestMarkBreaksCycles(t *testing.T) {
	cfg := HeapConfig{PageSize: 8, WatermarkBytes: 1 << 30, CeilingBytes: 1 << 30}
	h := newHeap(cfg)
	root, err := h.AllocFrame(nil, nil)
	require.NoError(t, err)
	h.SetRootFrame(root)

	a, err := h.AllocCons(nil, nil)
	require.NoError(t, err)
	b, err := h.AllocCons(a, nil)
	require.NoError(t, err)
	a.Cdr = b // a -> b -> a cycle

	h.Root(a)
	assert.NotPanics(t, func() { h.Collect() })
	assert.True(t, a.allocated)
	assert.True(t, b.allocated)
}
