package golisp

// SymbolTable is the process-wide (here: per-Interp) intern map from name
// to Symbol, grounded on original_source/lisp.cpp's symbolMap/intern().
// Every interned Symbol is permanently rooted: once created it lives for
// the interpreter's lifetime, per §4.3's invariant.
type SymbolTable struct {
	heap  *Heap
	names map[string]*Symbol
}

func newSymbolTable(heap *Heap) *SymbolTable {
	return &SymbolTable{heap: heap, names: make(map[string]*Symbol)}
}

// Intern returns the existing Symbol for name, or allocates, roots, and
// installs a new one. Intern(s) is reference-equal to Intern(s) for any
// name s (testable property 1).
func (t *SymbolTable) Intern(name string) (*Symbol, error) {
	if s, ok := t.names[name]; ok {
		return s, nil
	}
	s, err := t.heap.AllocSymbol(name)
	if err != nil {
		return nil, err
	}
	t.heap.Root(s)
	t.names[name] = s
	return s, nil
}
