package golisp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"parse error", ParseError{Message: "boom"}, "ParseError"},
		{"unbound symbol", UnboundSymbol{Name: "x"}, "UnboundSymbol"},
		{"bad form", BadForm{Form: "if", Message: "boom"}, "BadForm"},
		{"bad apply", BadApply{Message: "boom"}, "BadApply"},
		{"div by zero", DivByZero{}, "DivByZero"},
		{"heap exhausted", HeapExhausted{Pool: "cons"}, "HeapExhausted"},
		{"unrecognized error falls back to its own text", errors.New("custom"), "custom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ErrorKind(tt.err))
		})
	}
}

func TestErrorMessagesIncludeContext(t *testing.T) {
	assert.Contains(t, UnboundSymbol{Name: "foo"}.Error(), "foo")
	assert.Contains(t, BadForm{Form: "let", Message: "bad bindings"}.Error(), "let")
	assert.Contains(t, HeapExhausted{Pool: "symbol"}.Error(), "symbol")
}
