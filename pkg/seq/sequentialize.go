package seq

import (
	"fmt"

	"github.com/dionysusliu/snake-compiler/pkg/surface"
)

// Sequentializer performs A-normalization (section 4.4): every compound
// sub-expression is let-bound to a fresh name derived from its node's tag,
// then referenced as an immediate at its use site.
type Sequentializer struct{}

// NewSequentializer returns a ready-to-use Sequentializer.
func NewSequentializer() *Sequentializer { return &Sequentializer{} }

// Program sequentializes a lifted-and-tagged (decls, main) pair into a
// SeqProg, matching seq_prog.
func (s *Sequentializer) Program(decls []surface.FunDecl, main surface.Exp) SeqProg {
	funs := make([]FunDecl, len(decls))
	for i, d := range decls {
		funs[i] = FunDecl{Name: d.Name, Parameters: d.Parameters, Body: s.Sequentialize(d.Body), Ann: nil}
	}
	return SeqProg{Funs: funs, Main: s.Sequentialize(main), Ann: nil}
}

func tagOf(ann any) uint32 {
	t, ok := ann.(uint32)
	if !ok {
		panic(fmt.Sprintf("seq: Sequentialize invoked on a tree not annotated with uint32 tags (got %T)", ann))
	}
	return t
}

// Sequentialize rewrites a single tagged surface expression to ANF.
func (s *Sequentializer) Sequentialize(e surface.Exp) SeqExp {
	switch n := e.(type) {
	case surface.Num:
		return Imm{Value: ImmNum{Value: n.Value}}
	case surface.Bool:
		return Imm{Value: ImmBool{Value: n.Value}}
	case surface.Var:
		return Imm{Value: ImmVar{Name: n.Name}}

	case surface.Prim:
		tag := tagOf(n.Ann)
		if n.Op.Arity1() {
			bound := s.Sequentialize(n.Args[0])
			name := fmt.Sprintf("#prim1_%d", tag)
			return Let{
				Var:      name,
				BoundExp: bound,
				Body:     Prim{Op: n.Op, Args: []ImmExp{ImmVar{Name: name}}},
			}
		}
		bound1 := s.Sequentialize(n.Args[0])
		bound2 := s.Sequentialize(n.Args[1])
		name1 := fmt.Sprintf("#prim2_1_%d", tag)
		name2 := fmt.Sprintf("#prim2_2_%d", tag)
		return Let{
			Var:      name1,
			BoundExp: bound1,
			Body: Let{
				Var:      name2,
				BoundExp: bound2,
				Body:     Prim{Op: n.Op, Args: []ImmExp{ImmVar{Name: name1}, ImmVar{Name: name2}}},
			},
		}

	case surface.Let:
		body := s.Sequentialize(n.Body)
		for i := len(n.Bindings) - 1; i >= 0; i-- {
			b := n.Bindings[i]
			body = Let{Var: b.Name, BoundExp: s.Sequentialize(b.Value), Body: body}
		}
		return body

	case surface.If:
		tag := tagOf(n.Ann)
		condName := fmt.Sprintf("#if_cond_%d", tag)
		return Let{
			Var:      condName,
			BoundExp: s.Sequentialize(n.Cond),
			Body: If{
				Cond: ImmVar{Name: condName},
				Then: s.Sequentialize(n.Then),
				Else: s.Sequentialize(n.Else),
			},
		}

	case surface.FunDefs:
		decls := make([]FunDecl, len(n.Decls))
		for i, d := range n.Decls {
			decls[i] = FunDecl{Name: d.Name, Parameters: d.Parameters, Body: s.Sequentialize(d.Body)}
		}
		return FunDefs{Decls: decls, Body: s.Sequentialize(n.Body)}

	case surface.Call:
		panic("seq: Call must not occur at Sequentialize stage (Lift should have removed it)")

	case surface.InternalTailCall:
		tag := tagOf(n.Ann)
		return s.sequentializeCall(n.Args, tag, func(args []ImmExp) SeqExp {
			return InternalTailCall{Name: n.Name, Args: args}
		})

	case surface.ExternalCall:
		tag := tagOf(n.Ann)
		return s.sequentializeCall(n.Args, tag, func(args []ImmExp) SeqExp {
			return ExternalCall{Name: n.Name, Args: args, IsTail: n.IsTail}
		})

	default:
		panic("seq: Sequentialize encountered an unrecognized node type")
	}
}

// sequentializeCall let-binds each argument to a fresh tag-derived name in
// positional order before building the call itself, preserving left-to-right
// evaluation.
func (s *Sequentializer) sequentializeCall(args []surface.Exp, tag uint32, build func([]ImmExp) SeqExp) SeqExp {
	names := make([]string, len(args))
	imms := make([]ImmExp, len(args))
	for i := range args {
		names[i] = fmt.Sprintf("#function_%d_arg_%d", tag, i)
		imms[i] = ImmVar{Name: names[i]}
	}

	body := build(imms)
	for i := len(args) - 1; i >= 0; i-- {
		body = Let{Var: names[i], BoundExp: s.Sequentialize(args[i]), Body: body}
	}
	return body
}
