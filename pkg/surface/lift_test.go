package surface_test

import (
	"testing"

	"github.com/dionysusliu/snake-compiler/pkg/surface"
)

func TestLiftLeavesNonRecursiveLocalFunctionInPlace(t *testing.T) {
	lifter := surface.NewLifter()

	// def double(x): x + x; double(3)   — called only in tail position of its
	// own FunDefs body, so it should stay local (InternalTailCall, not lifted).
	prog := surface.FunDefs{
		Decls: []surface.FunDecl{
			{Name: "double", Parameters: []string{"x"}, Body: surface.Prim{Op: surface.Add, Args: []surface.Exp{surface.Var{Name: "x"}, surface.Var{Name: "x"}}}},
		},
		Body: surface.Call{Name: "double", Args: []surface.Exp{surface.Num{Value: 3}}},
	}

	decls, main := lifter.Lift(prog)
	if len(decls) != 0 {
		t.Fatalf("expected no top-level lifted declarations, got %d", len(decls))
	}

	body, ok := main.(surface.FunDefs)
	if !ok {
		t.Fatalf("expected the kept-local function to remain wrapped in a FunDefs, got %T", main)
	}
	if _, ok := body.Body.(surface.InternalTailCall); !ok {
		t.Fatalf("expected the call site to become an InternalTailCall, got %T", body.Body)
	}
}

func TestLiftPromotesNonTailRecursiveFunction(t *testing.T) {
	lifter := surface.NewLifter()

	// def fact(n): if n < 2: 1 else: n * fact(n - 1); fact(5)
	// fact(n-1) is an operand of '*', a non-tail position, so fact is lifted.
	factBody := surface.If{
		Cond: surface.Prim{Op: surface.Lt, Args: []surface.Exp{surface.Var{Name: "n"}, surface.Num{Value: 2}}},
		Then: surface.Num{Value: 1},
		Else: surface.Prim{Op: surface.Mul, Args: []surface.Exp{
			surface.Var{Name: "n"},
			surface.Call{Name: "fact", Args: []surface.Exp{surface.Prim{Op: surface.Sub, Args: []surface.Exp{surface.Var{Name: "n"}, surface.Num{Value: 1}}}}},
		}},
	}
	prog := surface.FunDefs{
		Decls: []surface.FunDecl{{Name: "fact", Parameters: []string{"n"}, Body: factBody}},
		Body:  surface.Call{Name: "fact", Args: []surface.Exp{surface.Num{Value: 5}}},
	}

	decls, main := lifter.Lift(prog)
	if len(decls) != 1 {
		t.Fatalf("expected fact to be lifted to the top level, got %d decls", len(decls))
	}
	if decls[0].Name != "fact" {
		t.Fatalf("expected lifted decl named fact, got %q", decls[0].Name)
	}

	call, ok := main.(surface.ExternalCall)
	if !ok {
		t.Fatalf("expected the outer call site to become an ExternalCall, got %T", main)
	}
	// The whole program's own result position is itself a tail position, so
	// this top-level call site is tail even though the recursive fact(n-1)
	// buried inside fact's own body (an operand of '*') is what forced lifting.
	if call.Name != "fact" || !call.IsTail {
		t.Fatalf("expected a tail ExternalCall to fact at the program's own tail position, got %+v", call)
	}
}

func TestLiftExtendsParametersWithCapturedVariables(t *testing.T) {
	lifter := surface.NewLifter()

	// let y = 10 in (def addY(x): x + y; addY(addY(1)))  — addY captures y and
	// is called from a non-tail position (the inner addY(1)), so it is lifted
	// and both addY's declaration and every call site gain a "y" parameter.
	inner := surface.FunDefs{
		Decls: []surface.FunDecl{
			{Name: "addY", Parameters: []string{"x"}, Body: surface.Prim{Op: surface.Add, Args: []surface.Exp{surface.Var{Name: "x"}, surface.Var{Name: "y"}}}},
		},
		Body: surface.Call{Name: "addY", Args: []surface.Exp{surface.Call{Name: "addY", Args: []surface.Exp{surface.Num{Value: 1}}}}},
	}
	prog := surface.Let{
		Bindings: []surface.Binding{{Name: "y", Value: surface.Num{Value: 10}}},
		Body:     inner,
	}

	decls, _ := lifter.Lift(prog)
	if len(decls) != 1 {
		t.Fatalf("expected addY to be lifted, got %d decls", len(decls))
	}
	got := decls[0].Parameters
	want := []string{"y", "x"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("expected captured variable y prepended to the parameter list, got %v", got)
	}
}

func TestLiftRemovesEveryCallNode(t *testing.T) {
	lifter := surface.NewLifter()

	prog := surface.FunDefs{
		Decls: []surface.FunDecl{{Name: "f", Parameters: []string{"x"}, Body: surface.Call{Name: "f", Args: []surface.Exp{surface.Var{Name: "x"}}}}},
		Body:  surface.Call{Name: "f", Args: []surface.Exp{surface.Num{Value: 1}}},
	}

	decls, main := lifter.Lift(prog)
	var walk func(e surface.Exp)
	walk = func(e surface.Exp) {
		switch n := e.(type) {
		case surface.Call:
			t.Fatalf("no surface.Call node should survive Lift, found one targeting %q", n.Name)
		case surface.Prim:
			for _, a := range n.Args {
				walk(a)
			}
		case surface.Let:
			for _, b := range n.Bindings {
				walk(b.Value)
			}
			walk(n.Body)
		case surface.If:
			walk(n.Cond)
			walk(n.Then)
			walk(n.Else)
		case surface.FunDefs:
			for _, d := range n.Decls {
				walk(d.Body)
			}
			walk(n.Body)
		case surface.InternalTailCall:
			for _, a := range n.Args {
				walk(a)
			}
		case surface.ExternalCall:
			for _, a := range n.Args {
				walk(a)
			}
		}
	}

	walk(main)
	for _, d := range decls {
		walk(d.Body)
	}
}
