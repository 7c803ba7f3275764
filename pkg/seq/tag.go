package seq

// Tagger assigns a strictly increasing uint32 to every SeqExp node, the
// Tag₃ pass: CodeGen needs fresh per-node tags to mint unique labels
// (if/else branches, comparison short-circuit labels) independently of the
// tags minted during earlier passes.
type Tagger struct {
	next uint32
}

// NewTagger returns a Tagger whose counter starts at zero.
func NewTagger() *Tagger { return &Tagger{} }

// Tag retags every node of e.
func (t *Tagger) Tag(e SeqExp) SeqExp {
	t.next++
	cur := t.next
	switch n := e.(type) {
	case Imm:
		return Imm{Value: n.Value, Ann: cur}
	case Prim:
		return Prim{Op: n.Op, Args: n.Args, Ann: cur}
	case Let:
		return Let{Var: n.Var, BoundExp: t.Tag(n.BoundExp), Body: t.Tag(n.Body), Ann: cur}
	case If:
		return If{Cond: n.Cond, Then: t.Tag(n.Then), Else: t.Tag(n.Else), Ann: cur}
	case FunDefs:
		decls := make([]FunDecl, len(n.Decls))
		for i, d := range n.Decls {
			declTag := t.next
			decls[i] = FunDecl{Name: d.Name, Parameters: d.Parameters, Body: t.Tag(d.Body), Ann: declTag}
		}
		return FunDefs{Decls: decls, Body: t.Tag(n.Body), Ann: cur}
	case InternalTailCall:
		return InternalTailCall{Name: n.Name, Args: n.Args, Ann: cur}
	case ExternalCall:
		return ExternalCall{Name: n.Name, Args: n.Args, IsTail: n.IsTail, Ann: cur}
	default:
		panic("seq: Tag encountered an unrecognized node type")
	}
}

// TagProgram retags a whole SeqProg in one counter scope (funs, then main),
// matching tag_sprog: the counter starts at 1 and the program-level Ann is
// left at 0 (the program itself is never referenced by a label).
func TagProgram(p SeqProg) SeqProg {
	t := &Tagger{next: 1}
	funs := make([]FunDecl, len(p.Funs))
	for i, fn := range p.Funs {
		declTag := t.next
		funs[i] = FunDecl{Name: fn.Name, Parameters: fn.Parameters, Body: t.Tag(fn.Body), Ann: declTag}
	}
	main := t.Tag(p.Main)
	return SeqProg{Funs: funs, Main: main, Ann: uint32(0)}
}
