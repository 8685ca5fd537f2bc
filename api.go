package golisp

import (
	"io"
	"os"
	"time"
)

// wellKnownSymbols caches the handful of interned symbols the engine
// itself needs to compare against by identity, avoiding a map lookup on
// every hot-path check (e.g. IsNil-equivalent dispatch, quote detection).
type wellKnownSymbols struct {
	nilSym   *Symbol
	tSym     *Symbol
	exitSym  *Symbol
	quoteSym *Symbol
	doSym    *Symbol
}

// Interp is a single interpreter instance: its own heap, symbol table,
// root frame, and configuration. Nothing here is a package-level global,
// so multiple interpreters can coexist in one process (useful for tests).
type Interp struct {
	heap   *Heap
	symtab *SymbolTable
	root   *Frame
	cfg    *Config
	syms   wellKnownSymbols

	gensymCounter int
	startedAt     time.Time

	out   io.Writer
	stdin *Reader
}

// NewInterpreter builds a ready-to-use interpreter: heap, symbol table,
// root frame with every bootstrap symbol, special form, and built-in
// procedure installed, per §4.3's bootstrap list and §4.7/§4.8.
func NewInterpreter(cfg *Config) (*Interp, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	in := &Interp{
		cfg:       cfg,
		startedAt: time.Now(),
	}
	in.heap = newHeap(cfg.Heap)
	in.symtab = newSymbolTable(in.heap)

	root, err := in.heap.AllocFrame(nil, nil)
	if err != nil {
		return nil, err
	}
	in.root = root
	in.heap.SetRootFrame(root)

	bootstrap := []string{
		"nil", "t", "exit", "quote", "if", "do", "def", "set!", "let", "let*", "\\", "macro",
	}
	for _, name := range bootstrap {
		if _, err := in.symtab.Intern(name); err != nil {
			return nil, err
		}
	}

	nilSym, _ := in.symtab.Intern("nil")
	tSym, _ := in.symtab.Intern("t")
	exitSym, _ := in.symtab.Intern("exit")
	quoteSym, _ := in.symtab.Intern("quote")
	doSym, _ := in.symtab.Intern("do")
	in.syms = wellKnownSymbols{nilSym: nilSym, tSym: tSym, exitSym: exitSym, quoteSym: quoteSym, doSym: doSym}

	// nil, t, and exit are pre-bound to themselves in the root frame,
	// restoring original_source/lisp.cpp's Env::Env() bindings (§4.3).
	in.root.Bind(nilSym, nilSym)
	in.root.Bind(tSym, tSym)
	in.root.Bind(exitSym, exitSym)

	if err := in.registerSpecialForms(); err != nil {
		return nil, err
	}
	if err := registerBuiltins(in); err != nil {
		return nil, err
	}
	return in, nil
}

func (in *Interp) registerSpecialForms() error {
	forms := []struct {
		name string
		fn   SpecialFormFn
	}{
		{"if", sfIf},
		{"quote", sfQuote},
		{"do", sfDo},
		{"def", sfDef},
		{"set!", sfSet},
		{"let", sfLet},
		{"let*", sfLetStar},
		{"\\", sfLambda},
		{"macro", sfMacroForm},
	}
	for _, f := range forms {
		sym, err := in.symtab.Intern(f.name)
		if err != nil {
			return err
		}
		sf, err := in.heap.AllocSpecialForm(f.name, f.fn)
		if err != nil {
			return err
		}
		in.root.Bind(sym, sf)
	}
	return nil
}

// Intern interns name in this interpreter's symbol table.
func (in *Interp) Intern(name string) (*Symbol, error) {
	return in.symtab.Intern(name)
}

// MacroexpandAll expands form in the root environment, per §4.6.
func (in *Interp) MacroexpandAll(form Value) (Value, error) {
	return macroexpandAll(in, form, in.root)
}

// Eval macroexpands and then evaluates form at top level, the composition
// the data-flow diagram in §2 describes between the macro expander and the
// evaluator.
func (in *Interp) Eval(form Value) (Value, error) {
	// form comes straight from the reader and isn't reachable from
	// anywhere else; root it across macro expansion's own allocations.
	in.heap.Root(form)
	defer in.heap.Unroot(form)
	expanded, err := in.MacroexpandAll(form)
	if err != nil {
		return nil, err
	}
	return in.eval(expanded, in.root, false)
}

// ExitSymbol returns the interned exit symbol so a driver can compare a
// top-level result against it by identity (§6's "returning exit ends the
// REPL cleanly").
func (in *Interp) ExitSymbol() *Symbol {
	return in.syms.exitSym
}

// Heap exposes the interpreter's heap, for a driver's diagnostics or a
// test asserting GC safety.
func (in *Interp) Heap() *Heap {
	return in.heap
}

// SetOutput redirects print/println/load's diagnostics away from
// os.Stdout, for tests.
func (in *Interp) SetOutput(w io.Writer) {
	in.out = w
}

func (in *Interp) stdout() io.Writer {
	if in.out != nil {
		return in.out
	}
	return os.Stdout
}

func (in *Interp) stdinReader() (*Reader, error) {
	if in.stdin == nil {
		r, err := NewReaderFromIO(os.Stdin)
		if err != nil {
			return nil, err
		}
		in.stdin = r
	}
	return in.stdin, nil
}
