package surface_test

import (
	"testing"

	"github.com/dionysusliu/snake-compiler/pkg/surface"
)

// tagUint32 annotates e directly with a uint32, short-circuiting a full Tag
// pass when the test only needs one fixed tag value for a Let/FunDefs node.
func tagUint32(e surface.Exp, tag uint32) surface.Exp {
	return surface.WithAnn(e, tag)
}

func TestUniquifyRenamesShadowedBindings(t *testing.T) {
	u := surface.NewUniquifier()

	// let x = 1 in let x = 2 in x   (inner x shadows outer x)
	inner := tagUint32(surface.Let{
		Bindings: []surface.Binding{{Name: "x", Value: surface.Num{Value: 2}}},
		Body:     surface.Var{Name: "x"},
	}, 2)
	outer := tagUint32(surface.Let{
		Bindings: []surface.Binding{{Name: "x", Value: surface.Num{Value: 1}}},
		Body:     inner,
	}, 1)

	got := u.Uniquify(outer)
	outerLet, ok := got.(surface.Let)
	if !ok {
		t.Fatalf("expected surface.Let at top level, got %T", got)
	}
	innerLet, ok := outerLet.Body.(surface.Let)
	if !ok {
		t.Fatalf("expected surface.Let as body, got %T", outerLet.Body)
	}

	if outerLet.Bindings[0].Name == innerLet.Bindings[0].Name {
		t.Fatalf("shadowed binders must get distinct names, both came back %q", outerLet.Bindings[0].Name)
	}

	innerBody, ok := innerLet.Body.(surface.Var)
	if !ok {
		t.Fatalf("expected surface.Var as innermost body, got %T", innerLet.Body)
	}
	if innerBody.Name != innerLet.Bindings[0].Name {
		t.Fatalf("innermost reference to x should resolve to the inner binder %q, got %q", innerLet.Bindings[0].Name, innerBody.Name)
	}
}

func TestUniquifyFunDefsSeesRenamedNamesForRecursion(t *testing.T) {
	u := surface.NewUniquifier()

	prog := tagUint32(surface.FunDefs{
		Decls: []surface.FunDecl{
			{Name: "loop", Parameters: []string{"n"}, Body: tagUint32(surface.Call{Name: "loop", Args: []surface.Exp{surface.Var{Name: "n"}}}, 2)},
		},
		Body: tagUint32(surface.Call{Name: "loop", Args: []surface.Exp{surface.Num{Value: 0}}}, 2),
	}, 1)

	got, ok := u.Uniquify(prog).(surface.FunDefs)
	if !ok {
		t.Fatalf("expected surface.FunDefs, got %T", u.Uniquify(prog))
	}

	decl := got.Decls[0]
	recCall, ok := decl.Body.(surface.Call)
	if !ok {
		t.Fatalf("expected surface.Call in the recursive body, got %T", decl.Body)
	}
	if recCall.Name != decl.Name {
		t.Fatalf("recursive call should resolve to the renamed declaration name %q, got %q", decl.Name, recCall.Name)
	}

	outerCall, ok := got.Body.(surface.Call)
	if !ok {
		t.Fatalf("expected surface.Call as the outer body, got %T", got.Body)
	}
	if outerCall.Name != decl.Name {
		t.Fatalf("outer call should resolve to the same renamed name %q, got %q", decl.Name, outerCall.Name)
	}
}
