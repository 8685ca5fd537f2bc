package golisp

import (
	"github.com/davecgh/go-spew/spew"
)

// Approximate per-cell byte costs used only to evaluate the watermark and
// ceiling trigger policy; these are deliberately rough (the struct sizes
// dominated by pointer-width fields) rather than computed via reflection.
const (
	consCellBytes        = 32
	symbolCellBytes      = 40
	intCellBytes         = 24
	stringCellBytes      = 32
	specialFormCellBytes = 40
	procedureCellBytes   = 48
	builtinProcCellBytes = 40
	macroCellBytes       = 48
	envCellBytes         = 64
)

// HeapStats is the snapshot returned by Stats and rendered by DebugDump.
type HeapStats struct {
	Collections     int
	BytesAllocated  int
	BytesReclaimed  int
	Watermark       int
	Ceiling         int
	LiveCells       map[string]int
}

// Heap owns one pool per Value variant plus the environment pool, the root
// set, and the watermark/ceiling trigger policy described in §4.1.
type Heap struct {
	cfg HeapConfig

	cons         *pool[*Cons]
	symbols      *pool[*Symbol]
	ints         *pool[*Int]
	strings      *pool[*String]
	specialForms *pool[*SpecialForm]
	procs        *pool[*Procedure]
	builtins     *pool[*BuiltinProc]
	macros       *pool[*Macro]
	envs         *pool[*Frame]

	rootCounts      map[Value]int
	rootFrameCounts map[*Frame]int
	rootFrame       *Frame

	watermark     int
	collections   int
	lastReclaimed int
}

func newHeap(cfg HeapConfig) *Heap {
	return &Heap{
		cfg:             cfg,
		cons:            newPool("cons", cfg.PageSize, consCellBytes, func() *Cons { return &Cons{} }),
		symbols:         newPool("symbol", cfg.PageSize, symbolCellBytes, func() *Symbol { return &Symbol{} }),
		ints:            newPool("int", cfg.PageSize, intCellBytes, func() *Int { return &Int{} }),
		strings:         newPool("string", cfg.PageSize, stringCellBytes, func() *String { return &String{} }),
		specialForms:    newPool("special-form", cfg.PageSize, specialFormCellBytes, func() *SpecialForm { return &SpecialForm{} }),
		procs:           newPool("procedure", cfg.PageSize, procedureCellBytes, func() *Procedure { return &Procedure{} }),
		builtins:        newPool("builtin", cfg.PageSize, builtinProcCellBytes, func() *BuiltinProc { return &BuiltinProc{} }),
		macros:          newPool("macro", cfg.PageSize, macroCellBytes, func() *Macro { return &Macro{} }),
		envs:            newPool("env", cfg.PageSize, envCellBytes, func() *Frame { return &Frame{} }),
		rootCounts:      make(map[Value]int),
		rootFrameCounts: make(map[*Frame]int),
		watermark:       cfg.WatermarkBytes,
	}
}

func (h *Heap) totalBytes() int {
	return h.cons.bytesAllocated() + h.symbols.bytesAllocated() + h.ints.bytesAllocated() +
		h.strings.bytesAllocated() + h.specialForms.bytesAllocated() + h.procs.bytesAllocated() +
		h.builtins.bytesAllocated() + h.macros.bytesAllocated() + h.envs.bytesAllocated()
}

// allocateFrom implements the trigger policy from §4.1: before extending a
// pool that has no free cell, collect if doing so would cross the
// watermark; if the pool is still out of cells afterward, extend it (and,
// when a collection ran first, raise the watermark by the extension),
// unless that would exceed the hard ceiling, in which case allocation
// fails with HeapExhausted.
func allocateFrom[T cell](h *Heap, p *pool[T], poolName string) (T, error) {
	var zero T
	if !p.hasFree() {
		pageBytes := p.pageSize * p.cellBytes
		collected := false
		if h.totalBytes()+pageBytes >= h.watermark {
			h.Collect()
			collected = true
		}
		if !p.hasFree() {
			if h.totalBytes()+pageBytes > h.cfg.CeilingBytes {
				return zero, HeapExhausted{Pool: poolName}
			}
			p.extend()
			if collected {
				h.watermark += pageBytes
			}
		}
	}
	return p.allocate(), nil
}

func (h *Heap) AllocCons(car, cdr Value) (*Cons, error) {
	c, err := allocateFrom(h, h.cons, "cons")
	if err != nil {
		return nil, err
	}
	c.Car, c.Cdr = car, cdr
	return c, nil
}

func (h *Heap) AllocSymbol(name string) (*Symbol, error) {
	s, err := allocateFrom(h, h.symbols, "symbol")
	if err != nil {
		return nil, err
	}
	s.Name = name
	return s, nil
}

func (h *Heap) AllocInt(n int64) (*Int, error) {
	v, err := allocateFrom(h, h.ints, "int")
	if err != nil {
		return nil, err
	}
	v.Val = n
	return v, nil
}

func (h *Heap) AllocString(s string) (*String, error) {
	v, err := allocateFrom(h, h.strings, "string")
	if err != nil {
		return nil, err
	}
	v.Val = s
	return v, nil
}

func (h *Heap) AllocSpecialForm(name string, fn SpecialFormFn) (*SpecialForm, error) {
	v, err := allocateFrom(h, h.specialForms, "special-form")
	if err != nil {
		return nil, err
	}
	v.Name, v.Fn = name, fn
	return v, nil
}

func (h *Heap) AllocProcedure(params, body Value, env *Frame) (*Procedure, error) {
	v, err := allocateFrom(h, h.procs, "procedure")
	if err != nil {
		return nil, err
	}
	v.Params, v.Body, v.Env = params, body, env
	return v, nil
}

func (h *Heap) AllocBuiltinProc(name string, fn BuiltinFn) (*BuiltinProc, error) {
	v, err := allocateFrom(h, h.builtins, "builtin")
	if err != nil {
		return nil, err
	}
	v.Name, v.Fn = name, fn
	return v, nil
}

func (h *Heap) AllocMacro(params, body Value, env *Frame) (*Macro, error) {
	v, err := allocateFrom(h, h.macros, "macro")
	if err != nil {
		return nil, err
	}
	v.Params, v.Body, v.Env = params, body, env
	return v, nil
}

func (h *Heap) AllocFrame(outer, lex *Frame) (*Frame, error) {
	f, err := allocateFrom(h, h.envs, "env")
	if err != nil {
		return nil, err
	}
	f.Outer, f.Lex, f.closed = outer, lex, false
	f.bindings = f.bindings[:0]
	return f, nil
}

// SetRootFrame registers the process-global root frame so Collect marks it
// on every pass; it is always reachable and never swept.
func (h *Heap) SetRootFrame(f *Frame) {
	h.rootFrame = f
}

// Root adds a strong, reference-counted root. Rooting the same value twice
// from two call sites keeps it alive until both are unrooted.
func (h *Heap) Root(v Value) {
	if v == nil {
		return
	}
	h.rootCounts[v]++
}

// Unroot removes one root reference; it is a no-op once the count reaches
// zero, so unrooting an already-unrooted value is safe.
func (h *Heap) Unroot(v Value) {
	if v == nil {
		return
	}
	if n, ok := h.rootCounts[v]; ok {
		if n <= 1 {
			delete(h.rootCounts, v)
		} else {
			h.rootCounts[v] = n - 1
		}
	}
}

// RootFrame adds a strong, reference-counted root on an environment frame
// that is not yet (or no longer) reachable from rootFrame -- an in-flight
// activation frame the evaluator is still building or using. Mirrors Root,
// but keyed on *Frame since Frame is not itself a Value.
func (h *Heap) RootFrame(f *Frame) {
	if f == nil {
		return
	}
	h.rootFrameCounts[f]++
}

// UnrootFrame removes one root reference added by RootFrame; a no-op once
// the count reaches zero.
func (h *Heap) UnrootFrame(f *Frame) {
	if f == nil {
		return
	}
	if n, ok := h.rootFrameCounts[f]; ok {
		if n <= 1 {
			delete(h.rootFrameCounts, f)
		} else {
			h.rootFrameCounts[f] = n - 1
		}
	}
}

// Collect marks from the root frame, every rooted value, and every rooted
// in-flight frame, then sweeps every pool, returning the post-collection
// stats.
func (h *Heap) Collect() HeapStats {
	for v := range h.rootCounts {
		mark(v)
	}
	for f := range h.rootFrameCounts {
		markFrame(f)
	}
	markFrame(h.rootFrame)

	reclaimed := h.cons.sweep()*h.cons.cellBytes + h.symbols.sweep()*h.symbols.cellBytes +
		h.ints.sweep()*h.ints.cellBytes + h.strings.sweep()*h.strings.cellBytes +
		h.specialForms.sweep()*h.specialForms.cellBytes + h.procs.sweep()*h.procs.cellBytes +
		h.builtins.sweep()*h.builtins.cellBytes + h.macros.sweep()*h.macros.cellBytes +
		h.envs.sweep()*h.envs.cellBytes

	h.collections++
	h.lastReclaimed = reclaimed
	return h.Stats()
}

// Stats reports cumulative collection count, current byte occupancy and
// live-cell counts per pool, for diagnostics (DebugDump) and for tests
// asserting GC safety.
func (h *Heap) Stats() HeapStats {
	return HeapStats{
		Collections:    h.collections,
		BytesAllocated: h.totalBytes(),
		BytesReclaimed: h.lastReclaimed,
		Watermark:      h.watermark,
		Ceiling:        h.cfg.CeilingBytes,
		LiveCells: map[string]int{
			"cons":         h.cons.liveCount(),
			"symbol":       h.symbols.liveCount(),
			"int":          h.ints.liveCount(),
			"string":       h.strings.liveCount(),
			"special-form": h.specialForms.liveCount(),
			"procedure":    h.procs.liveCount(),
			"builtin":      h.builtins.liveCount(),
			"macro":        h.macros.liveCount(),
			"env":          h.envs.liveCount(),
		},
	}
}

// DebugDump renders the heap's current stats with go-spew; the REPL driver
// prints it alongside its HeapExhausted diagnostic.
func (h *Heap) DebugDump() string {
	return spew.Sdump(h.Stats())
}

// mark walks a Value's traced edges (Cons->car,cdr; Procedure/Macro->
// params,body,env; everything else is a leaf), stopping at an
// already-marked cell to break cycles.
func mark(v Value) {
	if v == nil {
		return
	}
	switch x := v.(type) {
	case *Cons:
		if x.marked {
			return
		}
		x.marked = true
		mark(x.Car)
		mark(x.Cdr)
	case *Procedure:
		if x.marked {
			return
		}
		x.marked = true
		mark(x.Params)
		mark(x.Body)
		markFrame(x.Env)
	case *Macro:
		if x.marked {
			return
		}
		x.marked = true
		mark(x.Params)
		mark(x.Body)
		markFrame(x.Env)
	case *Symbol:
		x.marked = true
	case *Int:
		x.marked = true
	case *String:
		x.marked = true
	case *SpecialForm:
		x.marked = true
	case *BuiltinProc:
		x.marked = true
	case *tailCall:
		// never reachable from a root; included only to keep the switch
		// exhaustive against the Value interface.
	}
}

// markFrame walks Environment->outer,lex,bindings as specified.
func markFrame(f *Frame) {
	if f == nil || f.marked {
		return
	}
	f.marked = true
	markFrame(f.Outer)
	markFrame(f.Lex)
	for _, b := range f.bindings {
		mark(b.Sym)
		mark(b.Val)
	}
}
