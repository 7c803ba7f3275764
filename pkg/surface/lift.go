package surface

import (
	"fmt"

	"github.com/dionysusliu/snake-compiler/pkg/utils"
)

// Lifter implements section 4.3: classify every locally-declared function as
// lifted or kept local, then rewrite the tree so every lifted function
// becomes a top-level declaration whose parameter list is extended with its
// captured free variables, and every Call becomes an InternalTailCall or
// ExternalCall.
type Lifter struct{}

// NewLifter returns a ready-to-use Lifter.
func NewLifter() *Lifter { return &Lifter{} }

// Lift runs the full lambda-lifting rewrite over e (which must carry no
// meaningful annotation — the output of Uniquify) and returns the lifted
// top-level declarations plus the rewritten main expression.
func (lf *Lifter) Lift(e Exp) ([]FunDecl, Exp) {
	funToLift := lf.shouldLift(e)

	unextendedDecls, unextendedMain := lf.extendAndLift(e, utils.NewOrderedSet[string](), funToLift, true)

	nameParamMapping := funDeclsToParamExprs(unextendedDecls)
	extendedMain := extendFunCalls(unextendedMain, nameParamMapping)
	extendedDecls := extendFunDecls(unextendedDecls, nameParamMapping)

	globalDecls := make([]FunDecl, 0, len(extendedDecls))
	for _, d := range extendedDecls {
		if _, lift := funToLift[d.Name]; lift {
			globalDecls = append(globalDecls, d)
		}
	}

	return globalDecls, extendedMain
}

// --- classification (should_lift) -------------------------------------

// shouldLift returns the set of function names that must be promoted to the
// top level: called from a non-tail position anywhere, or co-declared in a
// FunDefs group with a function that must be lifted.
func (lf *Lifter) shouldLift(p Exp) map[string]struct{} {
	nonTail := collectNonTailCalls(p, true)
	return expandLiftedGroups(p, map[string]struct{}{}, nonTail)
}

func mergeInto(dst, src map[string]struct{}) {
	for k := range src {
		dst[k] = struct{}{}
	}
}

// collectNonTailCalls mirrors should_lift_helper: collects every function
// name invoked by a Call from a non-tail position.
func collectNonTailCalls(p Exp, isTail bool) map[string]struct{} {
	out := map[string]struct{}{}
	switch n := p.(type) {
	case Num, Bool, Var:
		// no calls
	case Prim:
		for _, a := range n.Args {
			mergeInto(out, collectNonTailCalls(a, false))
		}
	case Let:
		mergeInto(out, collectNonTailCalls(n.Body, isTail))
		for _, b := range n.Bindings {
			mergeInto(out, collectNonTailCalls(b.Value, false))
		}
	case If:
		mergeInto(out, collectNonTailCalls(n.Then, isTail))
		mergeInto(out, collectNonTailCalls(n.Else, isTail))
		mergeInto(out, collectNonTailCalls(n.Cond, false))
	case FunDefs:
		for _, d := range n.Decls {
			mergeInto(out, collectNonTailCalls(d.Body, true))
		}
		mergeInto(out, collectNonTailCalls(n.Body, isTail))
	case Call:
		if !isTail {
			out[n.Name] = struct{}{}
		}
		for _, a := range n.Args {
			mergeInto(out, collectNonTailCalls(a, false))
		}
	case InternalTailCall:
		panic("surface: InternalTailCall must not occur before Lift")
	case ExternalCall:
		panic("surface: ExternalCall must not occur before Lift")
	default:
		panic("surface: shouldLift encountered an unrecognized node type")
	}
	return out
}

// expandLiftedGroups mirrors lift_other_fun_in_scope: as soon as any member
// of a FunDefs group is in the lifted set built so far, every function in
// scope at that group — its own members and those of enclosing groups — is
// added to the set (nonTail is the fixed base classification; nested recursion always consults
// this original set, not the growing accumulator, so group-closure is a
// single pass, not a fixed point).
func expandLiftedGroups(p Exp, funInScope map[string]struct{}, nonTail map[string]struct{}) map[string]struct{} {
	out := map[string]struct{}{}
	mergeInto(out, nonTail)

	switch n := p.(type) {
	case Num, Bool, Var, InternalTailCall, ExternalCall:
		// leaves contribute nothing beyond the base set

	case Prim:
		for _, a := range n.Args {
			mergeInto(out, expandLiftedGroups(a, funInScope, nonTail))
		}

	case Let:
		mergeInto(out, expandLiftedGroups(n.Body, funInScope, nonTail))
		for _, b := range n.Bindings {
			mergeInto(out, expandLiftedGroups(b.Value, funInScope, nonTail))
		}

	case If:
		mergeInto(out, expandLiftedGroups(n.Then, funInScope, nonTail))
		mergeInto(out, expandLiftedGroups(n.Else, funInScope, nonTail))
		mergeInto(out, expandLiftedGroups(n.Cond, funInScope, nonTail))

	case FunDefs:
		groupScope := map[string]struct{}{}
		for k := range funInScope {
			groupScope[k] = struct{}{}
		}
		for _, d := range n.Decls {
			groupScope[d.Name] = struct{}{}
		}

		for _, d := range n.Decls {
			mergeInto(out, expandLiftedGroups(d.Body, groupScope, nonTail))
			if _, lifted := out[d.Name]; lifted {
				mergeInto(out, groupScope)
			}
		}
		mergeInto(out, expandLiftedGroups(n.Body, groupScope, nonTail))

	case Call:
		for _, a := range n.Args {
			mergeInto(out, expandLiftedGroups(a, funInScope, nonTail))
		}

	default:
		panic("surface: expandLiftedGroups encountered an unrecognized node type")
	}
	return out
}

// --- rewrite (lambda_lift) ---------------------------------------------

// extendAndLift does three things in one traversal: records, for every
// declaration, the set of variables lexically in scope at its point of
// declaration (env); prepends that set to the declaration's parameter list
// (not yet reflected at call sites — that is extendFunCalls/extendFunDecls'
// job); and rewrites every Call into an InternalTailCall or ExternalCall.
// It returns every declaration seen (lifted or not) plus the rewritten
// expression, in which not-yet-lifted declarations remain as a local
// FunDefs wrapping the continuation.
func (lf *Lifter) extendAndLift(p Exp, env utils.OrderedSet[string], funToLift map[string]struct{}, isTail bool) ([]FunDecl, Exp) {
	switch n := p.(type) {
	case Num:
		return nil, Num{Value: n.Value, Ann: nil}
	case Bool:
		return nil, Bool{Value: n.Value, Ann: nil}
	case Var:
		return nil, Var{Name: n.Name, Ann: nil}

	case Prim:
		var allDecls []FunDecl
		args := make([]Exp, len(n.Args))
		for i, a := range n.Args {
			decls, body := lf.extendAndLift(a, env, funToLift, false)
			allDecls = append(allDecls, decls...)
			args[i] = body
		}
		return allDecls, Prim{Op: n.Op, Args: args, Ann: nil}

	case Let:
		var allDecls []FunDecl
		curEnv := env.Clone()
		bindings := make([]Binding, len(n.Bindings))
		for i, b := range n.Bindings {
			decls, body := lf.extendAndLift(b.Value, curEnv, funToLift, false)
			allDecls = append(allDecls, decls...)
			curEnv.Add(b.Name)
			bindings[i] = Binding{Name: b.Name, Value: body}
		}
		bodyDecls, bodyExpr := lf.extendAndLift(n.Body, curEnv, funToLift, isTail)
		allDecls = append(allDecls, bodyDecls...)
		return allDecls, Let{Bindings: bindings, Body: bodyExpr, Ann: nil}

	case If:
		var allDecls []FunDecl
		condDecls, condBody := lf.extendAndLift(n.Cond, env, funToLift, false)
		allDecls = append(allDecls, condDecls...)
		thenDecls, thenBody := lf.extendAndLift(n.Then, env, funToLift, isTail)
		allDecls = append(allDecls, thenDecls...)
		elseDecls, elseBody := lf.extendAndLift(n.Else, env, funToLift, isTail)
		allDecls = append(allDecls, elseDecls...)
		return allDecls, If{Cond: condBody, Then: thenBody, Else: elseBody, Ann: nil}

	case FunDefs:
		var allDecls []FunDecl
		var notLifted []FunDecl

		for _, d := range n.Decls {
			newEnv := env.Clone()
			for _, param := range d.Parameters {
				newEnv.Add(param)
			}

			innerDecls, bodyExpr := lf.extendAndLift(d.Body, newEnv, funToLift, true)

			captured := env.Slice()
			newParams := make([]string, 0, len(captured)+len(d.Parameters))
			newParams = append(newParams, captured...)
			newParams = append(newParams, d.Parameters...)

			newDecl := FunDecl{Name: d.Name, Parameters: newParams, Body: bodyExpr, Ann: nil}

			if _, lift := funToLift[d.Name]; !lift {
				notLifted = append(notLifted, newDecl)
			}
			allDecls = append(allDecls, newDecl)
			allDecls = append(allDecls, innerDecls...)
		}

		bodyDecls, mainBodyExpr := lf.extendAndLift(n.Body, env, funToLift, isTail)
		allDecls = append(allDecls, bodyDecls...)

		if len(notLifted) > 0 {
			return allDecls, FunDefs{Decls: notLifted, Body: mainBodyExpr, Ann: nil}
		}
		return allDecls, mainBodyExpr

	case Call:
		var allDecls []FunDecl
		args := make([]Exp, len(n.Args))
		for i, a := range n.Args {
			decls, body := lf.extendAndLift(a, env, funToLift, false)
			allDecls = append(allDecls, decls...)
			args[i] = body
		}
		if _, lift := funToLift[n.Name]; lift {
			return allDecls, ExternalCall{Name: n.Name, Args: args, IsTail: isTail, Ann: nil}
		}
		return allDecls, InternalTailCall{Name: n.Name, Args: args, Ann: nil}

	case InternalTailCall:
		panic("surface: InternalTailCall must not occur before Lift")
	case ExternalCall:
		panic("surface: ExternalCall must not occur before Lift")
	default:
		panic("surface: Lift encountered an unrecognized node type")
	}
}

// funDeclsToParamExprs builds the name -> (extended parameter list, as Var
// references) mapping used to extend every call site's argument list.
func funDeclsToParamExprs(decls []FunDecl) map[string][]Exp {
	m := make(map[string][]Exp, len(decls))
	for _, d := range decls {
		args := make([]Exp, len(d.Parameters))
		for i, p := range d.Parameters {
			args[i] = Var{Name: p, Ann: nil}
		}
		m[d.Name] = args
	}
	return m
}

// extendFunCalls prepends each call's captured-variable prefix (looked up by
// target name in nameParamMapping) to its existing argument list.
func extendFunCalls(e Exp, nameParamMapping map[string][]Exp) Exp {
	switch n := e.(type) {
	case Num, Bool, Var:
		return e

	case Prim:
		args := make([]Exp, len(n.Args))
		for i, a := range n.Args {
			args[i] = extendFunCalls(a, nameParamMapping)
		}
		return Prim{Op: n.Op, Args: args, Ann: n.Ann}

	case Let:
		bindings := make([]Binding, len(n.Bindings))
		for i, b := range n.Bindings {
			bindings[i] = Binding{Name: b.Name, Value: extendFunCalls(b.Value, nameParamMapping)}
		}
		return Let{Bindings: bindings, Body: extendFunCalls(n.Body, nameParamMapping), Ann: n.Ann}

	case If:
		return If{
			Cond: extendFunCalls(n.Cond, nameParamMapping),
			Then: extendFunCalls(n.Then, nameParamMapping),
			Else: extendFunCalls(n.Else, nameParamMapping),
			Ann:  n.Ann,
		}

	case FunDefs:
		decls := make([]FunDecl, len(n.Decls))
		for i, d := range n.Decls {
			decls[i] = FunDecl{Name: d.Name, Parameters: d.Parameters, Body: extendFunCalls(d.Body, nameParamMapping), Ann: n.Ann}
		}
		return FunDefs{Decls: decls, Body: extendFunCalls(n.Body, nameParamMapping), Ann: n.Ann}

	case Call:
		panic("surface: Call must not occur at extendFunCalls stage")

	case InternalTailCall:
		args := make([]Exp, len(n.Args))
		for i, a := range n.Args {
			args[i] = extendFunCalls(a, nameParamMapping)
		}
		return InternalTailCall{Name: n.Name, Args: prependCaptured(n.Name, args, nameParamMapping), Ann: n.Ann}

	case ExternalCall:
		args := make([]Exp, len(n.Args))
		for i, a := range n.Args {
			args[i] = extendFunCalls(a, nameParamMapping)
		}
		return ExternalCall{Name: n.Name, Args: prependCaptured(n.Name, args, nameParamMapping), IsTail: n.IsTail, Ann: n.Ann}

	default:
		panic("surface: extendFunCalls encountered an unrecognized node type")
	}
}

// prependCaptured prepends the captured-variable prefix of fn's extended
// parameter list to args, which already hold the call's original arguments.
func prependCaptured(fn string, args []Exp, nameParamMapping map[string][]Exp) []Exp {
	extended, ok := nameParamMapping[fn]
	if !ok {
		panic(fmt.Sprintf("surface: %q not found while extending call sites", fn))
	}
	prefix := extended[:len(extended)-len(args)]
	out := make([]Exp, 0, len(extended))
	out = append(out, prefix...)
	out = append(out, args...)
	return out
}

// extendFunDecls applies the same captured-variable prefix to each
// declaration's own parameter list and rewrites its body's call sites.
func extendFunDecls(decls []FunDecl, nameParamMapping map[string][]Exp) []FunDecl {
	out := make([]FunDecl, len(decls))
	for i, d := range decls {
		extended, ok := nameParamMapping[d.Name]
		if !ok {
			panic(fmt.Sprintf("surface: %q not found while extending declarations", d.Name))
		}
		prefixExprs := extended[:len(extended)-len(d.Parameters)]
		prefix := make([]string, len(prefixExprs))
		for j, e := range prefixExprs {
			v, ok := e.(Var)
			if !ok {
				panic("surface: captured-variable prefix must consist of Var references")
			}
			prefix[j] = v.Name
		}
		params := make([]string, 0, len(extended))
		params = append(params, prefix...)
		params = append(params, d.Parameters...)

		out[i] = FunDecl{
			Name:       d.Name,
			Parameters: params,
			Body:       extendFunCalls(d.Body, nameParamMapping),
			Ann:        d.Ann,
		}
	}
	return out
}
