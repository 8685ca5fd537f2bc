package golisp

import (
	"io"
	"strconv"
	"strings"
)

// Reader is a rune-cursor lexer/parser over a fully-buffered input,
// grounded on the teacher's base_parser.go (Peek/Any/cursor-advance shape)
// but trimmed of Location/span/stacktrace bookkeeping, since
// source-location tracking is an explicit non-goal here.
type Reader struct {
	src []rune
	pos int
}

// NewReader wraps a string for reading.
func NewReader(s string) *Reader {
	return &Reader{src: []rune(s)}
}

// NewReaderFromIO slurps r fully and wraps it for reading. load (through
// ReadAll) and the read builtin's stdin reader both read one expression at
// a time from a Reader built this way.
func NewReaderFromIO(r io.Reader) (*Reader, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return NewReader(string(b)), nil
}

func (r *Reader) peek() (rune, bool) {
	if r.pos >= len(r.src) {
		return 0, false
	}
	return r.src[r.pos], true
}

func (r *Reader) peekAt(off int) (rune, bool) {
	i := r.pos + off
	if i >= len(r.src) {
		return 0, false
	}
	return r.src[i], true
}

func (r *Reader) advance() rune {
	c := r.src[r.pos]
	r.pos++
	return c
}

func (r *Reader) eof() bool {
	return r.pos >= len(r.src)
}

func isWhitespace(c rune) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isSymbolChar(c rune) bool {
	return !isWhitespace(c) && c != '(' && c != ')' && c != 0
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

// skipAtmosphere skips whitespace and ;-to-end-of-line comments between
// tokens.
func (r *Reader) skipAtmosphere() {
	for {
		c, ok := r.peek()
		if !ok {
			return
		}
		if c == ';' {
			for {
				c, ok := r.peek()
				if !ok || c == '\n' {
					break
				}
				r.advance()
			}
			continue
		}
		if isWhitespace(c) {
			r.advance()
			continue
		}
		return
	}
}

// Read consumes exactly one expression from r, failing with ParseError on
// malformed input and returning io.EOF once the remaining input is
// entirely atmosphere.
func (in *Interp) Read(r *Reader) (Value, error) {
	r.skipAtmosphere()
	if r.eof() {
		return nil, io.EOF
	}
	return readExpr(in, r)
}

// ReadAll repeatedly reads top-level forms from src until a clean EOF,
// the shape load needs to evaluate an entire file. Each form is rooted as
// it's read and stays rooted until the caller is done with the whole
// batch -- an earlier form sitting in out is otherwise invisible to the
// collector while a later one is still being parsed.
func (in *Interp) ReadAll(src io.Reader) (out []Value, release func(), err error) {
	release = func() {
		for _, v := range out {
			in.heap.Unroot(v)
		}
	}
	r, readerErr := NewReaderFromIO(src)
	if readerErr != nil {
		return nil, release, readerErr
	}
	for {
		r.skipAtmosphere()
		if r.eof() {
			return out, release, nil
		}
		v, exprErr := readExpr(in, r)
		if exprErr != nil {
			release()
			return nil, func() {}, exprErr
		}
		in.heap.Root(v)
		out = append(out, v)
	}
}

func readExpr(in *Interp, r *Reader) (Value, error) {
	r.skipAtmosphere()
	if r.eof() {
		return nil, ParseError{Message: "unexpected end of input", Incomplete: true}
	}
	c, _ := r.peek()
	switch c {
	case '(':
		r.advance()
		return readList(in, r)
	case '"':
		r.advance()
		return readString(in, r)
	case ')':
		return nil, ParseError{Message: "unexpected ')'"}
	default:
		return readAtom(in, r)
	}
}

func readList(in *Interp, r *Reader) (Value, error) {
	var items []Value
	release := func() {
		for _, v := range items {
			in.heap.Unroot(v)
		}
	}
	defer release()
	for {
		r.skipAtmosphere()
		if r.eof() {
			return nil, ParseError{Message: "unexpected end of input inside list", Incomplete: true}
		}
		c, _ := r.peek()
		if c == ')' {
			r.advance()
			return in.sliceToList(items)
		}
		if c == '.' {
			nxt, hasNxt := r.peekAt(1)
			loneDot := !hasNxt || isWhitespace(nxt) || nxt == '(' || nxt == ')'
			if loneDot {
				r.advance()
				tail, err := readExpr(in, r)
				if err != nil {
					return nil, err
				}
				in.heap.Root(tail)
				defer in.heap.Unroot(tail)
				r.skipAtmosphere()
				if r.eof() {
					return nil, ParseError{Message: "unexpected end of input after dotted tail", Incomplete: true}
				}
				cc, _ := r.peek()
				if cc != ')' {
					return nil, ParseError{Message: "expected ')' after dotted tail"}
				}
				r.advance()
				return in.sliceToDottedList(items, tail)
			}
		}
		// item isn't attached anywhere until this list is fully consed
		// above; protect it across whatever the rest of the list reads.
		item, err := readExpr(in, r)
		if err != nil {
			return nil, err
		}
		in.heap.Root(item)
		items = append(items, item)
	}
}

func readString(in *Interp, r *Reader) (Value, error) {
	var b strings.Builder
	for {
		c, ok := r.peek()
		if !ok {
			return nil, ParseError{Message: "unterminated string literal", Incomplete: true}
		}
		if c == '"' {
			r.advance()
			return in.heap.AllocString(b.String())
		}
		if c == '\\' {
			r.advance()
			ec, ok := r.peek()
			if !ok {
				return nil, ParseError{Message: "unterminated escape in string literal", Incomplete: true}
			}
			r.advance()
			switch ec {
			case 'n':
				b.WriteByte('\n')
			case 'f':
				b.WriteByte('\f')
			case 'b':
				b.WriteByte('\b')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case '\'':
				b.WriteByte('\'')
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			case '\n':
				// backslash-newline is a line continuation: no character.
			default:
				return nil, ParseError{Message: "invalid string escape"}
			}
			continue
		}
		r.advance()
		b.WriteRune(c)
	}
}

// readAtom reads a maximal run of symbol-chars and classifies it as an Int
// (matches '-'? digit+) or a Symbol.
func readAtom(in *Interp, r *Reader) (Value, error) {
	start := r.pos
	for {
		c, ok := r.peek()
		if !ok || !isSymbolChar(c) {
			break
		}
		r.advance()
	}
	text := string(r.src[start:r.pos])
	if text == "" {
		return nil, ParseError{Message: "empty token"}
	}
	if n, ok := parseIntLiteral(text); ok {
		return in.heap.AllocInt(n)
	}
	return in.symtab.Intern(text)
}

func parseIntLiteral(s string) (int64, bool) {
	i := 0
	if s[0] == '-' {
		i = 1
	}
	if i >= len(s) {
		return 0, false
	}
	for j := i; j < len(s); j++ {
		if !isDigit(rune(s[j])) {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
