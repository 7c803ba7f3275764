package surface

// Tagger assigns a strictly increasing uint32 to every node of a tree,
// scoped to one pass invocation, so that later passes can mint unique
// assembly labels without threading a counter through every type (section 9,
// "Tag threading").
type Tagger struct {
	next uint32
}

// NewTagger returns a Tagger whose counter starts at zero.
func NewTagger() *Tagger { return &Tagger{} }

// Tag retags every node of e, replacing its annotation with a fresh tag.
func (t *Tagger) Tag(e Exp) Exp {
	t.next++
	cur := t.next
	switch n := e.(type) {
	case Num:
		return Num{Value: n.Value, Ann: cur}
	case Bool:
		return Bool{Value: n.Value, Ann: cur}
	case Var:
		return Var{Name: n.Name, Ann: cur}
	case Prim:
		args := make([]Exp, len(n.Args))
		for i, a := range n.Args {
			args[i] = t.Tag(a)
		}
		return Prim{Op: n.Op, Args: args, Ann: cur}
	case Let:
		bindings := make([]Binding, len(n.Bindings))
		for i, b := range n.Bindings {
			bindings[i] = Binding{Name: b.Name, Value: t.Tag(b.Value)}
		}
		return Let{Bindings: bindings, Body: t.Tag(n.Body), Ann: cur}
	case If:
		return If{Cond: t.Tag(n.Cond), Then: t.Tag(n.Then), Else: t.Tag(n.Else), Ann: cur}
	case FunDefs:
		decls := make([]FunDecl, len(n.Decls))
		for i, d := range n.Decls {
			decls[i] = FunDecl{Name: d.Name, Parameters: d.Parameters, Body: t.Tag(d.Body), Ann: cur}
		}
		return FunDefs{Decls: decls, Body: t.Tag(n.Body), Ann: cur}
	case Call:
		args := make([]Exp, len(n.Args))
		for i, a := range n.Args {
			args[i] = t.Tag(a)
		}
		return Call{Name: n.Name, Args: args, Ann: cur}
	case InternalTailCall:
		args := make([]Exp, len(n.Args))
		for i, a := range n.Args {
			args[i] = t.Tag(a)
		}
		return InternalTailCall{Name: n.Name, Args: args, Ann: cur}
	case ExternalCall:
		args := make([]Exp, len(n.Args))
		for i, a := range n.Args {
			args[i] = t.Tag(a)
		}
		return ExternalCall{Name: n.Name, Args: args, IsTail: n.IsTail, Ann: cur}
	default:
		panic("surface: Tag encountered an unrecognized node type")
	}
}

// TagDecls tags every top-level declaration's body and returns the tagged
// declarations. Each declaration's own ann is the counter value reached
// after its body is tagged (tag_fundecl's tag-after-body semantics), i.e. the
// last tag its body used.
func (t *Tagger) TagDecls(decls []FunDecl) []FunDecl {
	out := make([]FunDecl, len(decls))
	for i, d := range decls {
		body := t.Tag(d.Body)
		out[i] = FunDecl{Name: d.Name, Parameters: d.Parameters, Body: body, Ann: t.next}
	}
	return out
}

// TagProgram retags a lifted (decls, main) pair in one counter scope:
// declarations first, then main — mirroring tag_prog.
func TagProgram(decls []FunDecl, main Exp) ([]FunDecl, Exp) {
	t := NewTagger()
	taggedDecls := t.TagDecls(decls)
	taggedMain := t.Tag(main)
	return taggedDecls, taggedMain
}
