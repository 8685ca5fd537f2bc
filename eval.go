package golisp

import "fmt"

// eval dispatches on form's variant per §4.7. The outer shell is a for
// loop: whenever the next step to perform is itself in tail position
// (a tail sub-form of if/do/let/let*, or a tail call to a Procedure), the
// loop reassigns form/env/tail and continues instead of recursing, giving
// tail recursion constant host-stack depth. Non-tail sub-evaluations
// (argument forms, a let binding's value, a non-tail do form) recurse
// through eval normally.
// eval roots both form and env for its entire run: either may be reachable
// from nothing but this Go call's own locals (a freshly built, not-yet-bound
// closure invoked immediately, or a fresh application frame not yet linked
// from anywhere), and a Collect triggered by an allocation deeper in the
// loop must not sweep them out from under it. setState is the single place
// that advances the trampoline, so every transition keeps that invariant.
func (in *Interp) eval(form Value, env *Frame, tail bool) (Value, error) {
	in.heap.Root(form)
	in.heap.RootFrame(env)
	defer func() {
		in.heap.Unroot(form)
		in.heap.UnrootFrame(env)
	}()

	setState := func(newForm Value, newEnv *Frame) {
		in.heap.Root(newForm)
		in.heap.RootFrame(newEnv)
		in.heap.Unroot(form)
		in.heap.UnrootFrame(env)
		form, env = newForm, newEnv
	}

	for {
		switch x := form.(type) {
		case *Symbol:
			v, ok := resolve(in, env, x)
			if !ok {
				return nil, UnboundSymbol{Name: x.Name}
			}
			return v, nil

		case *Int:
			return x, nil

		case *String:
			return x, nil

		case *Cons:
			if sym, ok := x.Car.(*Symbol); ok {
				if v, ok2 := resolve(in, env, sym); ok2 {
					if sf, ok3 := v.(*SpecialForm); ok3 {
						res, err := sf.Fn(in, x.Cdr, env, tail)
						if err != nil {
							return nil, err
						}
						if tc, ok4 := res.(*tailCall); ok4 {
							// A special form's tail sub-form (if's branch,
							// do's last form, let's body) inherits this
							// call's own tail status unchanged -- it is not
							// a new activation, just a continuation of the
							// same one.
							setState(tc.form, tc.env)
							continue
						}
						return res, nil
					}
				}
			}

			headVal, err := in.eval(x.Car, env, false)
			if err != nil {
				return nil, err
			}
			// headVal may be a freshly built, not-yet-bound callable (an
			// immediately-invoked lambda, or a closure just returned from
			// another call): protect it across the allocations that bind
			// and apply it below.
			in.heap.Root(headVal)

			switch callee := headVal.(type) {
			case *Procedure:
				newFrame, err := in.bindCall(callee.Params, x.Cdr, env, callee.Env)
				if err != nil {
					in.heap.Unroot(headVal)
					return nil, err
				}
				if tail && !env.closed {
					env.merge(newFrame)
					setState(callee.Body, env)
					in.heap.Unroot(headVal)
					tail = true
					continue
				}
				setState(callee.Body, newFrame)
				in.heap.Unroot(headVal)
				tail = true
				continue

			case *BuiltinProc:
				argVals, release, err := in.evalArgList(x.Cdr, env)
				if err != nil {
					release()
					in.heap.Unroot(headVal)
					return nil, err
				}
				result, err := callee.Fn(in, env, argVals)
				release()
				in.heap.Unroot(headVal)
				return result, err

			default:
				in.heap.Unroot(headVal)
				return nil, BadApply{Message: "head of call is not callable"}
			}

		default:
			return form, nil
		}
	}
}

// listToSlice flattens a proper list's top level into a Go slice, one
// element per cons cell's car, without descending into children.
func listToSlice(v Value) ([]Value, error) {
	var out []Value
	for {
		if IsNil(v) {
			return out, nil
		}
		c, ok := v.(*Cons)
		if !ok {
			return nil, fmt.Errorf("improper list")
		}
		out = append(out, c.Car)
		v = c.Cdr
	}
}

// evalArgList evaluates a proper list of argument forms left to right,
// rooting each result as it is produced. An evaluated argument is otherwise
// held only in the out slice below, invisible to the collector, until it is
// bound into a frame or consumed by a builtin; release must be called
// exactly once the caller is done with the returned values.
func (in *Interp) evalArgList(argsForm Value, env *Frame) (out []Value, release func(), err error) {
	release = func() {
		for _, v := range out {
			in.heap.Unroot(v)
		}
	}
	v := argsForm
	for {
		if IsNil(v) {
			return out, release, nil
		}
		c, ok := v.(*Cons)
		if !ok {
			release()
			return nil, func() {}, BadApply{Message: "improper argument list"}
		}
		val, evalErr := in.eval(c.Car, env, false)
		if evalErr != nil {
			release()
			return nil, func() {}, evalErr
		}
		in.heap.Root(val)
		out = append(out, val)
		v = c.Cdr
	}
}

// bindCall evaluates a Procedure call's argument forms in the caller's
// frame, then builds and populates the application frame.
func (in *Interp) bindCall(params, argsForm Value, callerEnv, lexEnv *Frame) (*Frame, error) {
	argVals, release, err := in.evalArgList(argsForm, callerEnv)
	if err != nil {
		release()
		return nil, err
	}
	defer release()

	frame, err := in.heap.AllocFrame(callerEnv, lexEnv)
	if err != nil {
		return nil, err
	}
	// frame isn't reachable from anywhere until the caller adopts it as
	// the next environment; protect it across bindParams' own allocations
	// (a variadic tail gets re-consed into a fresh list).
	in.heap.RootFrame(frame)
	defer in.heap.UnrootFrame(frame)
	if err := in.bindParams(frame, params, argVals); err != nil {
		return nil, err
	}
	return frame, nil
}

// bindParams walks params against already-evaluated argVals in lockstep,
// binding a trailing non-nil tail symbol to the remaining arguments
// rebuilt as a list. Shared by Procedure application and apply.
func (in *Interp) bindParams(frame *Frame, params Value, argVals []Value) error {
	p := params
	i := 0
	for {
		pc, ok := p.(*Cons)
		if !ok {
			break
		}
		sym, ok := pc.Car.(*Symbol)
		if !ok {
			return BadForm{Form: "params", Message: "parameter must be a symbol"}
		}
		if i >= len(argVals) {
			return BadApply{Message: "too few arguments"}
		}
		frame.Bind(sym, argVals[i])
		i++
		p = pc.Cdr
	}
	if IsNil(p) {
		return nil
	}
	tailSym, ok := p.(*Symbol)
	if !ok {
		return BadForm{Form: "params", Message: "tail parameter must be a symbol"}
	}
	rest, err := in.sliceToList(argVals[i:])
	if err != nil {
		return err
	}
	frame.Bind(tailSym, rest)
	return nil
}

// bindMacroParams mirrors bindParams but binds the raw, unevaluated
// argument forms (including the raw tail form), per §4.6/§9 Open Question
// (b).
func (in *Interp) bindMacroParams(frame *Frame, params, argsForm Value) error {
	p, a := params, argsForm
	for {
		pc, ok := p.(*Cons)
		if !ok {
			break
		}
		sym, ok := pc.Car.(*Symbol)
		if !ok {
			return BadForm{Form: "params", Message: "parameter must be a symbol"}
		}
		ac, ok := a.(*Cons)
		if !ok {
			return BadApply{Message: "too few arguments"}
		}
		frame.Bind(sym, ac.Car)
		p, a = pc.Cdr, ac.Cdr
	}
	if IsNil(p) {
		return nil
	}
	tailSym, ok := p.(*Symbol)
	if !ok {
		return BadForm{Form: "params", Message: "tail parameter must be a symbol"}
	}
	frame.Bind(tailSym, a)
	return nil
}

// sliceToList builds a freshly-consed, nil-terminated list from vals,
// rooting the in-progress tail across each allocation per the root
// discipline in §9's design notes.
func (in *Interp) sliceToList(vals []Value) (Value, error) {
	return in.sliceToDottedList(vals, in.syms.nilSym)
}

func (in *Interp) sliceToDottedList(vals []Value, tail Value) (Value, error) {
	result := tail
	in.heap.Root(result)
	defer in.heap.Unroot(result)
	for i := len(vals) - 1; i >= 0; i-- {
		c, err := in.heap.AllocCons(vals[i], result)
		if err != nil {
			return nil, err
		}
		in.heap.Unroot(result)
		result = c
		in.heap.Root(result)
	}
	return result, nil
}

// wrapBody folds zero or more body forms (from \, macro, let, let*) into a
// single body Value, wrapping multiple forms in a (do ...) the same way
// let's own body is specified to behave.
func (in *Interp) wrapBody(forms []Value) (Value, error) {
	switch len(forms) {
	case 0:
		return in.syms.nilSym, nil
	case 1:
		return forms[0], nil
	default:
		full := append([]Value{in.syms.doSym}, forms...)
		return in.sliceToList(full)
	}
}

// --- Special forms ---

func sfQuote(in *Interp, args Value, env *Frame, tail bool) (Value, error) {
	a, err := listToSlice(args)
	if err != nil || len(a) != 1 {
		return nil, BadForm{Form: "quote", Message: "expected exactly 1 argument"}
	}
	return a[0], nil
}

func sfIf(in *Interp, args Value, env *Frame, tail bool) (Value, error) {
	a, err := listToSlice(args)
	if err != nil {
		return nil, BadForm{Form: "if", Message: "improper argument list"}
	}
	if len(a) != 2 && len(a) != 3 {
		return nil, BadForm{Form: "if", Message: "expected (if c t) or (if c t e)"}
	}
	cond, err := in.eval(a[0], env, false)
	if err != nil {
		return nil, err
	}
	if !IsNil(cond) {
		return &tailCall{form: a[1], env: env}, nil
	}
	if len(a) == 3 {
		return &tailCall{form: a[2], env: env}, nil
	}
	return in.syms.nilSym, nil
}

func sfDo(in *Interp, args Value, env *Frame, tail bool) (Value, error) {
	forms, err := listToSlice(args)
	if err != nil {
		return nil, BadForm{Form: "do", Message: "improper argument list"}
	}
	if len(forms) == 0 {
		return in.syms.nilSym, nil
	}
	for _, f := range forms[:len(forms)-1] {
		if _, err := in.eval(f, env, false); err != nil {
			return nil, err
		}
	}
	return &tailCall{form: forms[len(forms)-1], env: env}, nil
}

func sfDef(in *Interp, args Value, env *Frame, tail bool) (Value, error) {
	a, err := listToSlice(args)
	if err != nil || len(a) != 2 {
		return nil, BadForm{Form: "def", Message: "expected (def sym val)"}
	}
	sym, ok := a[0].(*Symbol)
	if !ok {
		return nil, BadForm{Form: "def", Message: "first argument must be a symbol"}
	}
	v, err := in.eval(a[1], env, false)
	if err != nil {
		return nil, err
	}
	// Always binds in the root frame regardless of the current lexical
	// frame -- §9 Open Question (a), kept per the source.
	in.root.Bind(sym, v)
	return sym, nil
}

func sfSet(in *Interp, args Value, env *Frame, tail bool) (Value, error) {
	a, err := listToSlice(args)
	if err != nil || len(a) != 2 {
		return nil, BadForm{Form: "set!", Message: "expected (set! sym val)"}
	}
	sym, ok := a[0].(*Symbol)
	if !ok {
		return nil, BadForm{Form: "set!", Message: "first argument must be a symbol"}
	}
	v, err := in.eval(a[1], env, false)
	if err != nil {
		return nil, err
	}
	target := resolveEnv(in, env, sym)
	if target == nil {
		target = in.root
	}
	target.Bind(sym, v)
	return v, nil
}

func sfLambda(in *Interp, args Value, env *Frame, tail bool) (Value, error) {
	parts, err := listToSlice(args)
	if err != nil || len(parts) < 1 {
		return nil, BadForm{Form: "\\", Message: "expected parameters and a body"}
	}
	body, err := in.wrapBody(parts[1:])
	if err != nil {
		return nil, err
	}
	// a multi-form body is a fresh (do ...) list reachable from nothing yet.
	in.heap.Root(body)
	defer in.heap.Unroot(body)
	env.closed = true
	return in.heap.AllocProcedure(parts[0], body, env)
}

func sfMacroForm(in *Interp, args Value, env *Frame, tail bool) (Value, error) {
	parts, err := listToSlice(args)
	if err != nil || len(parts) < 1 {
		return nil, BadForm{Form: "macro", Message: "expected parameters and a body"}
	}
	body, err := in.wrapBody(parts[1:])
	if err != nil {
		return nil, err
	}
	in.heap.Root(body)
	defer in.heap.Unroot(body)
	env.closed = true
	return in.heap.AllocMacro(parts[0], body, env)
}

func sfLet(in *Interp, args Value, env *Frame, tail bool) (Value, error) {
	return evalLet(in, args, env, tail, false)
}

func sfLetStar(in *Interp, args Value, env *Frame, tail bool) (Value, error) {
	return evalLet(in, args, env, tail, true)
}

func evalLet(in *Interp, args Value, env *Frame, tail bool, sequential bool) (Value, error) {
	formName := "let"
	if sequential {
		formName = "let*"
	}
	parts, err := listToSlice(args)
	if err != nil || len(parts) < 1 {
		return nil, BadForm{Form: formName, Message: "expected bindings and a body"}
	}
	bindingList, err := listToSlice(parts[0])
	if err != nil {
		return nil, BadForm{Form: formName, Message: "bindings must be a proper list"}
	}

	newFrame, err := in.heap.AllocFrame(env, env)
	if err != nil {
		return nil, err
	}
	// newFrame isn't reachable from anywhere until it becomes the body's
	// environment below; protect it across every binding's evaluation.
	in.heap.RootFrame(newFrame)
	defer in.heap.UnrootFrame(newFrame)

	if sequential {
		for _, bf := range bindingList {
			kv, err := listToSlice(bf)
			if err != nil || len(kv) != 2 {
				return nil, BadForm{Form: formName, Message: "each binding must be (sym val)"}
			}
			sym, ok := kv[0].(*Symbol)
			if !ok {
				return nil, BadForm{Form: formName, Message: "binding name must be a symbol"}
			}
			v, err := in.eval(kv[1], newFrame, false)
			if err != nil {
				return nil, err
			}
			// newFrame is rooted, so v is protected the instant it's bound.
			newFrame.Bind(sym, v)
		}
	} else {
		type pendingBinding struct {
			sym *Symbol
			val Value
		}
		pendings := make([]pendingBinding, 0, len(bindingList))
		releasePendings := func() {
			for _, p := range pendings {
				in.heap.Unroot(p.val)
			}
		}
		defer releasePendings()
		for _, bf := range bindingList {
			kv, err := listToSlice(bf)
			if err != nil || len(kv) != 2 {
				return nil, BadForm{Form: formName, Message: "each binding must be (sym val)"}
			}
			sym, ok := kv[0].(*Symbol)
			if !ok {
				return nil, BadForm{Form: formName, Message: "binding name must be a symbol"}
			}
			// let (unlike let*) evaluates every binding's value in the
			// outer env before any of them are visible to each other; each
			// value sits unreachable in pendings until the second loop
			// below binds it, so it needs its own root in the meantime.
			v, err := in.eval(kv[1], env, false)
			if err != nil {
				return nil, err
			}
			in.heap.Root(v)
			pendings = append(pendings, pendingBinding{sym, v})
		}
		for _, p := range pendings {
			newFrame.Bind(p.sym, p.val)
		}
	}

	bodyForm, err := in.wrapBody(parts[1:])
	if err != nil {
		return nil, err
	}

	if tail && !env.closed {
		env.merge(newFrame)
		return &tailCall{form: bodyForm, env: env}, nil
	}
	return &tailCall{form: bodyForm, env: newFrame}, nil
}
