package surface

import "fmt"

// Uniquifier renames every binder by appending the tag of the binding node
// (assigned by a prior Tag pass) as a suffix. Let bindings and function
// names come out globally unique; parameters take their FunDefs group's tag,
// so two declarations of one group that use the same parameter name still
// share one renamed parameter name. It
// threads two substitution maps — variables and functions — that are
// extended at each binder and consulted at each reference, matching
// uniquify_helper's clone-and-extend discipline: a map handed to a subtree is
// never mutated by a sibling subtree.
type Uniquifier struct{}

// NewUniquifier returns a ready-to-use Uniquifier.
func NewUniquifier() *Uniquifier { return &Uniquifier{} }

// Uniquify renames e (annotated with uint32 tags) to a tree with all binders
// globally unique; the result carries no further-meaningful annotation.
func (u *Uniquifier) Uniquify(e Exp) Exp {
	return u.uniquify(e, map[string]string{}, map[string]string{})
}

func cloneStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func tagOf(ann any) uint32 {
	t, ok := ann.(uint32)
	if !ok {
		panic(fmt.Sprintf("surface: Uniquify invoked on a tree not annotated with uint32 tags (got %T)", ann))
	}
	return t
}

func (u *Uniquifier) uniquify(e Exp, varMap, funMap map[string]string) Exp {
	switch n := e.(type) {
	case Num:
		return Num{Value: n.Value, Ann: nil}
	case Bool:
		return Bool{Value: n.Value, Ann: nil}
	case Var:
		renamed, ok := varMap[n.Name]
		if !ok {
			panic(fmt.Sprintf("surface: Uniquify found unbound variable %q (Check should have rejected this)", n.Name))
		}
		return Var{Name: renamed, Ann: nil}
	case Prim:
		args := make([]Exp, len(n.Args))
		for i, a := range n.Args {
			args[i] = u.uniquify(a, varMap, funMap)
		}
		return Prim{Op: n.Op, Args: args, Ann: nil}
	case Let:
		suffix := tagOf(n.Ann)
		nextVarMap := cloneStringMap(varMap)
		bindings := make([]Binding, len(n.Bindings))
		for i, b := range n.Bindings {
			value := u.uniquify(b.Value, nextVarMap, funMap)
			renamed := fmt.Sprintf("%s#%d", b.Name, suffix)
			nextVarMap[b.Name] = renamed
			bindings[i] = Binding{Name: renamed, Value: value}
		}
		body := u.uniquify(n.Body, nextVarMap, funMap)
		return Let{Bindings: bindings, Body: body, Ann: nil}
	case If:
		return If{
			Cond: u.uniquify(n.Cond, varMap, funMap),
			Then: u.uniquify(n.Then, varMap, funMap),
			Else: u.uniquify(n.Else, varMap, funMap),
			Ann:  nil,
		}
	case FunDefs:
		suffix := tagOf(n.Ann)
		nextFunMap := cloneStringMap(funMap)
		for _, d := range n.Decls {
			nextFunMap[d.Name] = fmt.Sprintf("%s#%d", d.Name, suffix)
		}

		decls := make([]FunDecl, len(n.Decls))
		for i, d := range n.Decls {
			bodyVarMap := cloneStringMap(varMap)
			params := make([]string, len(d.Parameters))
			for j, p := range d.Parameters {
				renamed := fmt.Sprintf("%s#%d", p, suffix)
				bodyVarMap[p] = renamed
				params[j] = renamed
			}
			decls[i] = FunDecl{
				Name:       nextFunMap[d.Name],
				Parameters: params,
				Body:       u.uniquify(d.Body, bodyVarMap, nextFunMap),
				Ann:        nil,
			}
		}
		body := u.uniquify(n.Body, varMap, nextFunMap)
		return FunDefs{Decls: decls, Body: body, Ann: nil}
	case Call:
		renamed, ok := funMap[n.Name]
		if !ok {
			panic(fmt.Sprintf("surface: Uniquify found undefined function %q (Check should have rejected this)", n.Name))
		}
		args := make([]Exp, len(n.Args))
		for i, a := range n.Args {
			args[i] = u.uniquify(a, varMap, funMap)
		}
		return Call{Name: renamed, Args: args, Ann: nil}
	case InternalTailCall:
		panic("surface: InternalTailCall must not occur before Lift")
	case ExternalCall:
		panic("surface: ExternalCall must not occur before Lift")
	default:
		panic("surface: Uniquify encountered an unrecognized node type")
	}
}
