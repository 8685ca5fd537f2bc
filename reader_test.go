package golisp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRead(t *testing.T, in *Interp, src string) Value {
	t.Helper()
	v, err := in.Read(NewReader(src))
	require.NoError(t, err)
	return v
}

func TestReadSelfEvaluatingAtoms(t *testing.T) {
	in, err := NewInterpreter(nil)
	require.NoError(t, err)

	tests := []struct {
		name string
		src  string
	}{
		{"positive int", "42"},
		{"negative int", "-7"},
		{"symbol", "foo-bar?"},
		{"nested list", "(1 (2 3) 4)"},
		{"dotted pair", "(1 . 2)"},
		{"string literal", `"hello"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := mustRead(t, in, tt.src)
			require.NotNil(t, v)
		})
	}
}

// TestReadReadableRoundTrip checks read(readable_print(v)) = v for the
// value shapes the reader and printer both handle, testable property 2.
func TestReadReadableRoundTrip(t *testing.T) {
	in, err := NewInterpreter(nil)
	require.NoError(t, err)

	srcs := []string{
		"123",
		"-45",
		"sym",
		`"a string with \"quotes\" and a \n newline"`,
		"(1 2 3)",
		"(1 . 2)",
		"(a (b c) . d)",
	}
	for _, src := range srcs {
		t.Run(src, func(t *testing.T) {
			v := mustRead(t, in, src)
			printed := ReadableString(v)
			v2 := mustRead(t, in, printed)
			assert.Equal(t, ReadableString(v), ReadableString(v2))
		})
	}
}

func TestReadDottedListRequiresCloseParen(t *testing.T) {
	in, err := NewInterpreter(nil)
	require.NoError(t, err)

	_, err = in.Read(NewReader("(1 . 2 3)"))
	require.Error(t, err)
	pe, ok := err.(ParseError)
	require.True(t, ok)
	assert.False(t, pe.Incomplete)
}

func TestReadIncompleteInputIsMarked(t *testing.T) {
	in, err := NewInterpreter(nil)
	require.NoError(t, err)

	tests := []string{
		"(1 2",
		`"unterminated`,
		`"bad escape \`,
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			_, err := in.Read(NewReader(src))
			require.Error(t, err)
			pe, ok := err.(ParseError)
			require.True(t, ok)
			assert.True(t, pe.Incomplete, "ran-out-of-input errors must be marked Incomplete so the REPL keeps reading")
		})
	}
}

func TestReadUnexpectedCloseParenIsNotIncomplete(t *testing.T) {
	in, err := NewInterpreter(nil)
	require.NoError(t, err)

	_, err = in.Read(NewReader(")"))
	require.Error(t, err)
	pe, ok := err.(ParseError)
	require.True(t, ok)
	assert.False(t, pe.Incomplete, "a structurally-impossible parse must terminate the REPL, not accumulate more input")
}

func TestReadAllReadsEveryTopLevelForm(t *testing.T) {
	in, err := NewInterpreter(nil)
	require.NoError(t, err)

	forms, release, err := in.ReadAll(strings.NewReader("(+ 1 2) ; comment\n\"two\"\n3"))
	defer release()
	require.NoError(t, err)
	require.Len(t, forms, 3)
	assert.True(t, IsCons(forms[0]))
	assert.True(t, IsString(forms[1]))
	assert.True(t, IsInt(forms[2]))
}
