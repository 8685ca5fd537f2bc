package golisp

// macroexpandAll implements §4.6's bottom-up rewrite: quote short-circuits,
// a cons whose head resolves to a Macro is repeatedly expanded to a
// fixpoint, and everything else has its children expanded recursively.
func macroexpandAll(in *Interp, form Value, env *Frame) (Value, error) {
	cons, ok := form.(*Cons)
	if !ok {
		return form, nil
	}

	if headSym, ok := cons.Car.(*Symbol); ok && headSym == in.syms.quoteSym {
		return form, nil
	}

	// cons is replaced repeatedly by the fixpoint loop below and each
	// replacement is itself a fresh, not-yet-attached expansion result;
	// keep it rooted across every applyMacro call until we're done with it.
	in.heap.Root(cons)
	defer func() { in.heap.Unroot(cons) }()

	for {
		headSym, ok := cons.Car.(*Symbol)
		if !ok {
			break
		}
		v, found := resolve(in, env, headSym)
		if !found {
			break
		}
		m, ok := v.(*Macro)
		if !ok {
			break
		}
		expanded, err := applyMacro(in, m, cons.Cdr, env)
		if err != nil {
			return nil, err
		}
		next, ok := expanded.(*Cons)
		if !ok {
			in.heap.Root(expanded)
			defer in.heap.Unroot(expanded)
			return macroexpandAll(in, expanded, env)
		}
		if headSym, ok := next.Car.(*Symbol); ok && headSym == in.syms.quoteSym {
			return next, nil
		}
		// next is about to take over as cons; protect it before releasing
		// the hold on the value it replaces.
		in.heap.Root(next)
		in.heap.Unroot(cons)
		cons = next
	}

	carExp, err := macroexpandAll(in, cons.Car, env)
	if err != nil {
		return nil, err
	}
	in.heap.Root(carExp)
	defer in.heap.Unroot(carExp)
	cdrExp, err := macroexpandAll(in, cons.Cdr, env)
	if err != nil {
		return nil, err
	}
	in.heap.Root(cdrExp)
	defer in.heap.Unroot(cdrExp)
	return in.heap.AllocCons(carExp, cdrExp)
}

// applyMacro builds a macro-application frame (outer: the expansion-site
// frame, lexical parent: the macro's captured frame), binds its parameters
// to the raw unevaluated argument forms, and evaluates its body to produce
// the next form to expand.
func applyMacro(in *Interp, m *Macro, argsForm Value, callerEnv *Frame) (Value, error) {
	frame, err := in.heap.AllocFrame(callerEnv, m.Env)
	if err != nil {
		return nil, err
	}
	// frame isn't reachable from anywhere until eval takes it over below;
	// protect it across bindMacroParams and the body's own evaluation.
	in.heap.RootFrame(frame)
	defer in.heap.UnrootFrame(frame)
	if err := in.bindMacroParams(frame, m.Params, argsForm); err != nil {
		return nil, err
	}
	return in.eval(m.Body, frame, true)
}
