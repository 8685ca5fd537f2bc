package golisp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustExpand(t *testing.T, in *Interp, src string) Value {
	t.Helper()
	form, err := in.Read(NewReader(src))
	require.NoError(t, err)
	expanded, err := in.MacroexpandAll(form)
	require.NoError(t, err)
	return expanded
}

func TestMacroexpandQuoteShortCircuits(t *testing.T) {
	in, err := NewInterpreter(nil)
	require.NoError(t, err)

	evalSrc(t, in, "(def ignore-me (macro (x) 999))")
	got := mustExpand(t, in, "(quote (ignore-me 1))")
	assert.Equal(t, "(quote (ignore-me 1))", ReadableString(got), "quote must suppress expansion of its own contents")
}

func TestMacroexpandRecursesIntoChildren(t *testing.T) {
	in, err := NewInterpreter(nil)
	require.NoError(t, err)

	evalSrc(t, in, "(def dbl (macro (x) (list (quote *) x 2)))")
	got := mustExpand(t, in, "(+ 1 (dbl 5))")
	assert.Equal(t, "(+ 1 (* 5 2))", ReadableString(got))
}

func TestMacroexpandToFixpoint(t *testing.T) {
	in, err := NewInterpreter(nil)
	require.NoError(t, err)

	// m1 expands to a call of m2, which must itself be expanded before
	// macroexpandAll returns.
	evalSrc(t, in, "(def m2 (macro (x) (list (quote +) x 1)))")
	evalSrc(t, in, "(def m1 (macro (x) (list (quote m2) x)))")
	got := mustExpand(t, in, "(m1 10)")
	assert.Equal(t, "(+ 10 1)", ReadableString(got))
}

func TestMacroBuiltinMacroexpandAll(t *testing.T) {
	in, err := NewInterpreter(nil)
	require.NoError(t, err)

	evalSrc(t, in, "(def dbl (macro (x) (list (quote *) x 2)))")
	got := evalSrc(t, in, "(macroexpand-all (quote (dbl 5)))")
	assert.Equal(t, "(* 5 2)", ReadableString(got))
}
