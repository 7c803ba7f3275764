// Package seq defines the A-normal-form (ANF) tree produced by
// Sequentialize: the same shape as the surface tree, restricted so that
// every operand of a primitive or call is immediate.
package seq

import "github.com/dionysusliu/snake-compiler/pkg/surface"

// ImmExp is an immediate operand: a literal or a variable reference. Nothing
// else may appear as an operand of Prim or a call after sequentialization.
type ImmExp interface{ isImm() }

type ImmNum struct{ Value int64 }
type ImmBool struct{ Value bool }
type ImmVar struct{ Name string }

func (ImmNum) isImm()  {}
func (ImmBool) isImm() {}
func (ImmVar) isImm()  {}

// SeqExp is the ANF expression tree.
type SeqExp interface{}

type Imm struct {
	Value ImmExp
	Ann   any
}

type Prim struct {
	Op   surface.PrimOp
	Args []ImmExp
	Ann  any
}

// Let binds a single name — sequentialization always splits a surface
// multi-binding Let into nested single-binding Lets.
type Let struct {
	Var      string
	BoundExp SeqExp
	Body     SeqExp
	Ann      any
}

type If struct {
	Cond       ImmExp
	Then, Else SeqExp
	Ann        any
}

// FunDecl mirrors surface.FunDecl but with a SeqExp body.
type FunDecl struct {
	Name       string
	Parameters []string
	Body       SeqExp
	Ann        any
}

type FunDefs struct {
	Decls []FunDecl
	Body  SeqExp
	Ann   any
}

type InternalTailCall struct {
	Name string
	Args []ImmExp
	Ann  any
}

type ExternalCall struct {
	Name   string
	Args   []ImmExp
	IsTail bool
	Ann    any
}

// SeqProg is a whole sequentialized program: its top-level declarations plus
// a main expression.
type SeqProg struct {
	Funs []FunDecl
	Main SeqExp
	Ann  any
}

// Ann extracts the annotation carried by any SeqExp node.
func Ann(e SeqExp) any {
	switch n := e.(type) {
	case Imm:
		return n.Ann
	case Prim:
		return n.Ann
	case Let:
		return n.Ann
	case If:
		return n.Ann
	case FunDefs:
		return n.Ann
	case InternalTailCall:
		return n.Ann
	case ExternalCall:
		return n.Ann
	default:
		panic("seq: Ann called on unrecognized node type")
	}
}
