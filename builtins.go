package golisp

import (
	"fmt"
	"io"
	"os"
	"time"
)

func (in *Interp) boolValue(b bool) Value {
	if b {
		return in.syms.tSym
	}
	return in.syms.nilSym
}

func registerBuiltins(in *Interp) error {
	builtins := []struct {
		name string
		fn   BuiltinFn
	}{
		{"nil?", biNilP},
		{"cons?", biConsP},
		{"list?", biListP},
		{"symbol?", biSymbolP},
		{"int?", biIntP},
		{"string?", biStringP},
		{"proc?", biProcP},
		{"bound?", biBoundP},
		{"not", biNot},
		{"car", biCar},
		{"cdr", biCdr},
		{"cons", biCons},
		{"eq?", biEq},
		{"list", biList},
		{"apply", biApply},
		{"+", biAdd},
		{"-", biSub},
		{"*", biMul},
		{"/", biDiv},
		{"mod", biMod},
		{"=", biNumEq},
		{"<", biLess},
		{"print", biPrint},
		{"println", biPrintln},
		{"print-to-string", biPrintToString},
		{"read", biRead},
		{"eval", biEval},
		{"macroexpand-all", biMacroexpandAll},
		{"gensym", biGensym},
		{"load", biLoad},
		{"get-time", biGetTime},
	}
	for _, b := range builtins {
		sym, err := in.symtab.Intern(b.name)
		if err != nil {
			return err
		}
		bp, err := in.heap.AllocBuiltinProc(b.name, b.fn)
		if err != nil {
			return err
		}
		in.root.Bind(sym, bp)
	}
	return nil
}

// --- Type predicates ---

func biNilP(in *Interp, env *Frame, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, BadApply{Message: "nil? expects 1 argument"}
	}
	return in.boolValue(IsNil(args[0])), nil
}

func biConsP(in *Interp, env *Frame, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, BadApply{Message: "cons? expects 1 argument"}
	}
	return in.boolValue(IsCons(args[0])), nil
}

func biListP(in *Interp, env *Frame, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, BadApply{Message: "list? expects 1 argument"}
	}
	return in.boolValue(IsList(args[0])), nil
}

func biSymbolP(in *Interp, env *Frame, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, BadApply{Message: "symbol? expects 1 argument"}
	}
	return in.boolValue(IsSymbol(args[0])), nil
}

func biIntP(in *Interp, env *Frame, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, BadApply{Message: "int? expects 1 argument"}
	}
	return in.boolValue(IsInt(args[0])), nil
}

func biStringP(in *Interp, env *Frame, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, BadApply{Message: "string? expects 1 argument"}
	}
	return in.boolValue(IsString(args[0])), nil
}

func biProcP(in *Interp, env *Frame, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, BadApply{Message: "proc? expects 1 argument"}
	}
	return in.boolValue(IsProc(args[0])), nil
}

func biBoundP(in *Interp, env *Frame, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, BadApply{Message: "bound? expects 1 argument"}
	}
	sym, ok := args[0].(*Symbol)
	if !ok {
		return nil, BadApply{Message: "bound? expects a symbol"}
	}
	_, found := resolve(in, env, sym)
	return in.boolValue(found), nil
}

func biNot(in *Interp, env *Frame, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, BadApply{Message: "not expects 1 argument"}
	}
	return in.boolValue(IsNil(args[0])), nil
}

// --- Structural ---

func biCar(in *Interp, env *Frame, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, BadApply{Message: "car expects 1 argument"}
	}
	c, ok := args[0].(*Cons)
	if !ok {
		return nil, BadApply{Message: "car expects a cons argument"}
	}
	return c.Car, nil
}

func biCdr(in *Interp, env *Frame, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, BadApply{Message: "cdr expects 1 argument"}
	}
	c, ok := args[0].(*Cons)
	if !ok {
		return nil, BadApply{Message: "cdr expects a cons argument"}
	}
	return c.Cdr, nil
}

func biCons(in *Interp, env *Frame, args []Value) (Value, error) {
	if len(args) != 2 {
		return nil, BadApply{Message: "cons expects 2 arguments"}
	}
	return in.heap.AllocCons(args[0], args[1])
}

func biEq(in *Interp, env *Frame, args []Value) (Value, error) {
	if len(args) != 2 {
		return nil, BadApply{Message: "eq? expects 2 arguments"}
	}
	return in.boolValue(Eq(args[0], args[1])), nil
}

func biList(in *Interp, env *Frame, args []Value) (Value, error) {
	return in.sliceToList(args)
}

func biApply(in *Interp, env *Frame, args []Value) (Value, error) {
	if len(args) != 2 {
		return nil, BadApply{Message: "apply expects a procedure and a list of arguments"}
	}
	argVals, err := listToSlice(args[1])
	if err != nil {
		return nil, BadApply{Message: "apply's second argument must be a proper list"}
	}
	switch callee := args[0].(type) {
	case *BuiltinProc:
		return callee.Fn(in, env, argVals)
	case *Procedure:
		frame, err := in.heap.AllocFrame(env, callee.Env)
		if err != nil {
			return nil, err
		}
		// frame isn't reachable from anywhere until eval takes it over.
		in.heap.RootFrame(frame)
		defer in.heap.UnrootFrame(frame)
		if err := in.bindParams(frame, callee.Params, argVals); err != nil {
			return nil, err
		}
		return in.eval(callee.Body, frame, false)
	default:
		return nil, BadApply{Message: "apply's first argument is not callable"}
	}
}

// --- Arithmetic / compare ---

func intArgs(name string, args []Value) ([]int64, error) {
	out := make([]int64, len(args))
	for i, a := range args {
		n, ok := a.(*Int)
		if !ok {
			return nil, BadApply{Message: fmt.Sprintf("%s expects integer arguments", name)}
		}
		out[i] = n.Val
	}
	return out, nil
}

func biAdd(in *Interp, env *Frame, args []Value) (Value, error) {
	ns, err := intArgs("+", args)
	if err != nil {
		return nil, err
	}
	var sum int64
	for _, n := range ns {
		sum += n
	}
	return in.heap.AllocInt(sum)
}

func biSub(in *Interp, env *Frame, args []Value) (Value, error) {
	ns, err := intArgs("-", args)
	if err != nil {
		return nil, err
	}
	if len(ns) == 0 {
		return nil, BadApply{Message: "- expects at least 1 argument"}
	}
	if len(ns) == 1 {
		return in.heap.AllocInt(-ns[0])
	}
	result := ns[0]
	for _, n := range ns[1:] {
		result -= n
	}
	return in.heap.AllocInt(result)
}

func biMul(in *Interp, env *Frame, args []Value) (Value, error) {
	ns, err := intArgs("*", args)
	if err != nil {
		return nil, err
	}
	var prod int64 = 1
	for _, n := range ns {
		prod *= n
	}
	return in.heap.AllocInt(prod)
}

func biDiv(in *Interp, env *Frame, args []Value) (Value, error) {
	ns, err := intArgs("/", args)
	if err != nil {
		return nil, err
	}
	if len(ns) == 0 {
		return nil, BadApply{Message: "/ expects at least 1 argument"}
	}
	if len(ns) == 1 {
		if ns[0] == 0 {
			return nil, DivByZero{}
		}
		return in.heap.AllocInt(1 / ns[0])
	}
	result := ns[0]
	for _, n := range ns[1:] {
		if n == 0 {
			return nil, DivByZero{}
		}
		result /= n
	}
	return in.heap.AllocInt(result)
}

func biMod(in *Interp, env *Frame, args []Value) (Value, error) {
	ns, err := intArgs("mod", args)
	if err != nil {
		return nil, err
	}
	if len(ns) != 2 {
		return nil, BadApply{Message: "mod expects 2 arguments"}
	}
	if ns[1] == 0 {
		return nil, DivByZero{}
	}
	return in.heap.AllocInt(ns[0] % ns[1])
}

func biNumEq(in *Interp, env *Frame, args []Value) (Value, error) {
	ns, err := intArgs("=", args)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(ns); i++ {
		if ns[i] != ns[0] {
			return in.syms.nilSym, nil
		}
	}
	return in.syms.tSym, nil
}

func biLess(in *Interp, env *Frame, args []Value) (Value, error) {
	ns, err := intArgs("<", args)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(ns); i++ {
		if !(ns[i-1] < ns[i]) {
			return in.syms.nilSym, nil
		}
	}
	return in.syms.tSym, nil
}

// --- I/O ---

func biPrint(in *Interp, env *Frame, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, BadApply{Message: "print expects 1 argument"}
	}
	fmt.Fprint(in.stdout(), Display(args[0]))
	return args[0], nil
}

func biPrintln(in *Interp, env *Frame, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, BadApply{Message: "println expects 1 argument"}
	}
	fmt.Fprintln(in.stdout(), Display(args[0]))
	return args[0], nil
}

func biPrintToString(in *Interp, env *Frame, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, BadApply{Message: "print-to-string expects 1 argument"}
	}
	return in.heap.AllocString(ReadableString(args[0]))
}

func biRead(in *Interp, env *Frame, args []Value) (Value, error) {
	if len(args) != 0 {
		return nil, BadApply{Message: "read expects no arguments"}
	}
	r, err := in.stdinReader()
	if err != nil {
		return nil, err
	}
	v, err := in.Read(r)
	if err != nil {
		if err == io.EOF {
			return in.syms.nilSym, nil
		}
		return nil, ParseError{Message: err.Error()}
	}
	return v, nil
}

// --- Meta ---

func biEval(in *Interp, env *Frame, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, BadApply{Message: "eval expects 1 argument"}
	}
	return in.eval(args[0], env, false)
}

func biMacroexpandAll(in *Interp, env *Frame, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, BadApply{Message: "macroexpand-all expects 1 argument"}
	}
	return macroexpandAll(in, args[0], env)
}

func biGensym(in *Interp, env *Frame, args []Value) (Value, error) {
	if len(args) > 1 {
		return nil, BadApply{Message: "gensym expects 0 or 1 arguments"}
	}
	prefix := "g"
	if len(args) == 1 {
		s, ok := args[0].(*String)
		if !ok {
			return nil, BadApply{Message: "gensym's argument must be a string"}
		}
		prefix = s.Val
	}
	in.gensymCounter++
	return in.symtab.Intern(fmt.Sprintf("%s%d", prefix, in.gensymCounter))
}

func biGetTime(in *Interp, env *Frame, args []Value) (Value, error) {
	if len(args) != 0 {
		return nil, BadApply{Message: "get-time expects no arguments"}
	}
	return in.heap.AllocInt(time.Since(in.startedAt).Milliseconds())
}

func biLoad(in *Interp, env *Frame, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, BadApply{Message: "load expects 1 argument"}
	}
	path, ok := args[0].(*String)
	if !ok {
		return nil, BadApply{Message: "load expects a string path"}
	}
	return in.loadFile(path.Val), nil
}

// loadFile implements §4.8/§7's load: it reads and evaluates every form in
// the named file, closing the handle on every exit path, and per §7's
// propagation policy never lets an internal error escape -- it prints
// "Load failed." and returns nil instead.
func (in *Interp) loadFile(path string) Value {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintln(in.stdout(), "Load failed.")
		return in.syms.nilSym
	}
	defer f.Close()

	forms, release, err := in.ReadAll(f)
	defer release()
	if err != nil {
		fmt.Fprintln(in.stdout(), "Load failed.")
		return in.syms.nilSym
	}
	for _, form := range forms {
		if _, err := in.Eval(form); err != nil {
			fmt.Fprintln(in.stdout(), "Load failed.")
			return in.syms.nilSym
		}
	}
	return in.syms.tSym
}
