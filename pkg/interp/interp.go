// Package interp is a reference tree-walking interpreter over the surface
// AST, used to state and test the compiler's central correctness property:
// decoding Rax after running the compiled program must match evaluating the
// same tree directly (testable property 1).
package interp

import (
	"fmt"

	"github.com/dionysusliu/snake-compiler/pkg/surface"
	"github.com/dionysusliu/snake-compiler/pkg/utils"
)

// Value is a Snake runtime value: either an integer or a boolean, the same
// two-case universe CodeGen's tag bit distinguishes.
type Value struct {
	IsBool bool
	Num    int64
	Bool   bool
}

func NumVal(n int64) Value  { return Value{Num: n} }
func BoolVal(b bool) Value  { return Value{IsBool: true, Bool: b} }

func (v Value) String() string {
	if v.IsBool {
		return fmt.Sprintf("%t", v.Bool)
	}
	return fmt.Sprintf("%d", v.Num)
}

// RuntimeError mirrors the fixed English messages the compiled runtime traps
// with (runtime/stub.rs), so a test can assert the interpreter and the
// compiled binary fail identically.
type RuntimeError struct {
	Kind    string
	Message string
}

func (e *RuntimeError) Error() string { return e.Message }

func typeErr(kind, verb, expected string, v Value) error {
	return &RuntimeError{Kind: kind, Message: fmt.Sprintf("%s expected a %s but got a %s %s", verb, expected, otherType(expected), v)}
}

func otherType(expected string) string {
	if expected == "number" {
		return "boolean"
	}
	return "number"
}

func overflowErr() error {
	return &RuntimeError{Kind: "overflow", Message: "overflow"}
}

// Env binds names to values in the current lexical scope.
type Env map[string]Value

func (e Env) extend(name string, v Value) Env {
	next := make(Env, len(e)+1)
	for k, val := range e {
		next[k] = val
	}
	next[name] = v
	return next
}

// Interp evaluates a Checked-and-Uniquified surface tree. It tracks an
// explicit call stack — not for evaluation (Go's own call stack already
// recurses), but to count how deeply calls are nested, so that evaluation
// stops with an error once that depth exceeds 1,000,000 calls.
type Interp struct {
	funcs     map[string]surface.FunDecl
	callStack utils.Stack[string]
}

// NewInterp returns an Interp with no functions registered yet. A FunDefs
// node registers its own declarations when it is evaluated; call LoadDecls
// before Run only for declarations that sit outside the tree, such as the
// top-level declarations Lift returns.
func NewInterp() *Interp {
	return &Interp{funcs: map[string]surface.FunDecl{}}
}

// LoadDecls registers every function so later Call nodes can resolve by
// name, mirroring the flat namespace Lift eventually produces.
func (in *Interp) LoadDecls(decls []surface.FunDecl) {
	for _, d := range decls {
		in.funcs[d.Name] = d
	}
}

// Run evaluates main in the empty environment.
func (in *Interp) Run(main surface.Exp) (Value, error) {
	return in.Eval(main, Env{})
}

// Eval walks e, dispatching on node type exactly like every other pass in
// this pipeline.
func (in *Interp) Eval(e surface.Exp, env Env) (Value, error) {
	switch n := e.(type) {
	case surface.Num:
		return NumVal(n.Value), nil

	case surface.Bool:
		return BoolVal(n.Value), nil

	case surface.Var:
		v, ok := env[n.Name]
		if !ok {
			return Value{}, fmt.Errorf("interp: unbound variable %q reached eval (Check should have rejected this)", n.Name)
		}
		return v, nil

	case surface.Prim:
		return in.evalPrim(n, env)

	case surface.Let:
		cur := env
		for _, b := range n.Bindings {
			v, err := in.Eval(b.Value, cur)
			if err != nil {
				return Value{}, err
			}
			cur = cur.extend(b.Name, v)
		}
		return in.Eval(n.Body, cur)

	case surface.If:
		cond, err := in.Eval(n.Cond, env)
		if err != nil {
			return Value{}, err
		}
		if !cond.IsBool {
			return Value{}, typeErr("if_error", "if", "boolean", cond)
		}
		if cond.Bool {
			return in.Eval(n.Then, env)
		}
		return in.Eval(n.Else, env)

	case surface.FunDefs:
		in.LoadDecls(n.Decls)
		return in.Eval(n.Body, env)

	case surface.Call:
		return in.evalCall(n.Name, n.Args, env)

	case surface.InternalTailCall:
		return in.evalCall(n.Name, n.Args, env)

	case surface.ExternalCall:
		return in.evalCall(n.Name, n.Args, env)

	default:
		return Value{}, fmt.Errorf("interp: Eval encountered an unrecognized node type %T", e)
	}
}

func (in *Interp) evalCall(name string, argExps []surface.Exp, env Env) (Value, error) {
	fn, ok := in.funcs[name]
	if !ok {
		return Value{}, fmt.Errorf("interp: call to undefined function %q (Check should have rejected this)", name)
	}

	args := make([]Value, len(argExps))
	for i, a := range argExps {
		v, err := in.Eval(a, env)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}

	in.callStack.Push(name)
	defer in.callStack.Pop()
	if in.callStack.Count() > 1_000_000 {
		return Value{}, fmt.Errorf("interp: call depth exceeded 1000000 frames at %q", name)
	}

	// Binder names are unique after Uniquify, and every call site lies inside
	// the scope of the variables its callee captures, so starting from the
	// caller's environment makes those captured variables visible.
	callEnv := make(Env, len(env)+len(fn.Parameters))
	for k, val := range env {
		callEnv[k] = val
	}
	for i, p := range fn.Parameters {
		callEnv[p] = args[i]
	}
	return in.Eval(fn.Body, callEnv)
}

func (in *Interp) evalPrim(n surface.Prim, env Env) (Value, error) {
	if n.Op.Arity1() {
		v, err := in.Eval(n.Args[0], env)
		if err != nil {
			return Value{}, err
		}
		return evalPrim1(n.Op, v)
	}

	lhs, err := in.Eval(n.Args[0], env)
	if err != nil {
		return Value{}, err
	}
	rhs, err := in.Eval(n.Args[1], env)
	if err != nil {
		return Value{}, err
	}
	return evalPrim2(n.Op, lhs, rhs)
}

func evalPrim1(op surface.PrimOp, v Value) (Value, error) {
	switch op {
	case surface.Add1:
		if v.IsBool {
			return Value{}, typeErr("arith_error", "arithmetic", "number", v)
		}
		return checkedNum(v.Num + 1)
	case surface.Sub1:
		if v.IsBool {
			return Value{}, typeErr("arith_error", "arithmetic", "number", v)
		}
		return checkedNum(v.Num - 1)
	case surface.Not:
		if !v.IsBool {
			return Value{}, typeErr("logic_error", "logic", "boolean", v)
		}
		return BoolVal(!v.Bool), nil
	case surface.Print:
		fmt.Println(v.String())
		return v, nil
	case surface.IsNum:
		return BoolVal(!v.IsBool), nil
	case surface.IsBool:
		return BoolVal(v.IsBool), nil
	default:
		return Value{}, fmt.Errorf("interp: evalPrim1 given a non-unary op %q", op)
	}
}

func evalPrim2(op surface.PrimOp, a, b Value) (Value, error) {
	switch op {
	case surface.Add, surface.Sub, surface.Mul:
		if a.IsBool {
			return Value{}, typeErr("arith_error", "arithmetic", "number", a)
		}
		if b.IsBool {
			return Value{}, typeErr("arith_error", "arithmetic", "number", b)
		}
		switch op {
		case surface.Add:
			return checkedNum(a.Num + b.Num)
		case surface.Sub:
			return checkedNum(a.Num - b.Num)
		default:
			return checkedNum(a.Num * b.Num)
		}

	case surface.And, surface.Or:
		if !a.IsBool {
			return Value{}, typeErr("logic_error", "logic", "boolean", a)
		}
		if !b.IsBool {
			return Value{}, typeErr("logic_error", "logic", "boolean", b)
		}
		if op == surface.And {
			return BoolVal(a.Bool && b.Bool), nil
		}
		return BoolVal(a.Bool || b.Bool), nil

	case surface.Lt, surface.Gt, surface.Le, surface.Ge:
		if a.IsBool {
			return Value{}, typeErr("cmp_error", "comparison", "number", a)
		}
		if b.IsBool {
			return Value{}, typeErr("cmp_error", "comparison", "number", b)
		}
		switch op {
		case surface.Lt:
			return BoolVal(a.Num < b.Num), nil
		case surface.Gt:
			return BoolVal(a.Num > b.Num), nil
		case surface.Le:
			return BoolVal(a.Num <= b.Num), nil
		default:
			return BoolVal(a.Num >= b.Num), nil
		}

	case surface.Eq, surface.Neq:
		// Eq/Neq compare the raw encoded representation, untyped — the
		// compiled lowering never runtime-checks these operands (a value of
		// one tag can never equal a value of the other).
		eq := a.IsBool == b.IsBool && ((a.IsBool && a.Bool == b.Bool) || (!a.IsBool && a.Num == b.Num))
		if op == surface.Eq {
			return BoolVal(eq), nil
		}
		return BoolVal(!eq), nil

	default:
		return Value{}, fmt.Errorf("interp: evalPrim2 given an unrecognized op %q", op)
	}
}

func checkedNum(n int64) (Value, error) {
	if n < surface.MinInt || n > surface.MaxInt {
		return Value{}, overflowErr()
	}
	return NumVal(n), nil
}
