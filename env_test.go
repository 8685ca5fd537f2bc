package golisp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLexicalVsDynamic(t *testing.T) {
	in, err := NewInterpreter(nil)
	require.NoError(t, err)

	xSym, err := in.Intern("x")
	require.NoError(t, err)
	ySym, err := in.Intern("y")
	require.NoError(t, err)
	rootVal, err := in.heap.AllocInt(1)
	require.NoError(t, err)

	// x is a special (dynamic) variable: bound directly in root.
	in.root.Bind(xSym, rootVal)

	// A closure's frame (closureFrame) captures a binding for y that a call
	// frame (callFrame), whose outer chain does not include closureFrame,
	// should still see lexically, but not dynamically.
	closureFrame, err := in.heap.AllocFrame(in.root, in.root)
	require.NoError(t, err)
	yVal, err := in.heap.AllocInt(99)
	require.NoError(t, err)
	closureFrame.Bind(ySym, yVal)
	closureFrame.closed = true

	callFrame, err := in.heap.AllocFrame(in.root, closureFrame)
	require.NoError(t, err)

	got, ok := resolve(in, callFrame, ySym)
	require.True(t, ok)
	assert.Same(t, yVal, got, "y must resolve lexically through callFrame.Lex")

	env := dynamicResolveEnv(callFrame, ySym)
	assert.Nil(t, env, "y must not be visible on the dynamic (Outer) chain alone")

	got, ok = resolve(in, callFrame, xSym)
	require.True(t, ok)
	assert.Same(t, rootVal, got, "x is special, so it resolves via the dynamic chain")
}

func TestFrameMergeAdoptsLexAndBindings(t *testing.T) {
	in, err := NewInterpreter(nil)
	require.NoError(t, err)

	nSym, err := in.Intern("n")
	require.NoError(t, err)
	lex, err := in.heap.AllocFrame(in.root, in.root)
	require.NoError(t, err)

	caller, err := in.heap.AllocFrame(in.root, in.root)
	require.NoError(t, err)
	fresh, err := in.heap.AllocFrame(caller, lex)
	require.NoError(t, err)
	v, err := in.heap.AllocInt(5)
	require.NoError(t, err)
	fresh.Bind(nSym, v)

	caller.merge(fresh)

	got, ok := caller.localLookup(nSym)
	require.True(t, ok)
	assert.Same(t, v, got)
	assert.Same(t, lex, caller.Lex, "merge must adopt the merged frame's lexical parent")
}

func TestBindRebindsInPlace(t *testing.T) {
	in, err := NewInterpreter(nil)
	require.NoError(t, err)
	sym, err := in.Intern("z")
	require.NoError(t, err)
	f, err := in.heap.AllocFrame(nil, nil)
	require.NoError(t, err)

	one, _ := in.heap.AllocInt(1)
	two, _ := in.heap.AllocInt(2)
	f.Bind(sym, one)
	f.Bind(sym, two)

	assert.Len(t, f.bindings, 1, "rebinding the same symbol must not grow the binding list")
	v, _ := f.localLookup(sym)
	assert.Same(t, two, v)
}
