package surface

// Checker performs the well-formedness pass described in section 4.1: a
// single traversal threading a set of in-scope variables and a mapping from
// in-scope function name to its parameter list, reporting the first
// violation encountered in traversal order.
type Checker struct{}

// NewChecker returns a ready-to-use Checker.
func NewChecker() *Checker { return &Checker{} }

// Check reports the first well-formedness violation in prog, or nil if prog
// is well-formed. prog must be annotated with Span (the parser's output).
func (c *Checker) Check(prog Exp) error {
	return c.check(prog, map[string]struct{}{}, map[string][]string{})
}

func cloneVarEnv(env map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(env))
	for k := range env {
		out[k] = struct{}{}
	}
	return out
}

func cloneFunEnv(env map[string][]string) map[string][]string {
	out := make(map[string][]string, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}

func (c *Checker) check(e Exp, varEnv map[string]struct{}, funEnv map[string][]string) error {
	switch n := e.(type) {
	case Num:
		if n.Value > MaxInt || n.Value < MinInt {
			return &CheckError{Kind: ErrOverflow, Span: spanOf(e), Num: n.Value}
		}
		return nil

	case Bool:
		return nil

	case Var:
		if _, ok := varEnv[n.Name]; ok {
			return nil
		}
		if _, ok := funEnv[n.Name]; ok {
			return &CheckError{Kind: ErrFunctionUsedAsValue, Span: spanOf(e), Name: n.Name}
		}
		return &CheckError{Kind: ErrUnboundVariable, Span: spanOf(e), Name: n.Name}

	case Prim:
		for _, arg := range n.Args {
			if err := c.check(arg, varEnv, funEnv); err != nil {
				return err
			}
		}
		return nil

	case Let:
		thisGroup := map[string]struct{}{}
		nextVarEnv := cloneVarEnv(varEnv)
		for _, b := range n.Bindings {
			if _, dup := thisGroup[b.Name]; dup {
				return &CheckError{Kind: ErrDuplicateBinding, Span: spanOf(e), Name: b.Name}
			}
			thisGroup[b.Name] = struct{}{}
			if err := c.check(b.Value, nextVarEnv, funEnv); err != nil {
				return err
			}
			nextVarEnv[b.Name] = struct{}{}
		}
		return c.check(n.Body, nextVarEnv, funEnv)

	case If:
		if err := c.check(n.Cond, varEnv, funEnv); err != nil {
			return err
		}
		if err := c.check(n.Then, varEnv, funEnv); err != nil {
			return err
		}
		return c.check(n.Else, varEnv, funEnv)

	case FunDefs:
		nextFunEnv := cloneFunEnv(funEnv)
		seenNames := map[string]struct{}{}
		for _, decl := range n.Decls {
			if _, dup := seenNames[decl.Name]; dup {
				return &CheckError{Kind: ErrDuplicateFunName, Span: spanFromAnn(decl.Ann), Name: decl.Name}
			}
			seenNames[decl.Name] = struct{}{}

			seenArgs := map[string]struct{}{}
			for _, arg := range decl.Parameters {
				if _, dup := seenArgs[arg]; dup {
					return &CheckError{Kind: ErrDuplicateArgName, Span: spanFromAnn(decl.Ann), Name: arg}
				}
				seenArgs[arg] = struct{}{}
			}
			nextFunEnv[decl.Name] = decl.Parameters
		}

		for _, decl := range n.Decls {
			bodyVarEnv := cloneVarEnv(varEnv)
			for _, arg := range decl.Parameters {
				bodyVarEnv[arg] = struct{}{}
			}
			if err := c.check(decl.Body, bodyVarEnv, nextFunEnv); err != nil {
				return err
			}
		}
		return c.check(n.Body, varEnv, nextFunEnv)

	case Call:
		if _, ok := varEnv[n.Name]; ok {
			return &CheckError{Kind: ErrValueUsedAsFunction, Span: spanOf(e), Name: n.Name}
		}
		params, ok := funEnv[n.Name]
		if !ok {
			return &CheckError{Kind: ErrUndefinedFunction, Span: spanOf(e), Name: n.Name}
		}
		if len(n.Args) != len(params) {
			return &CheckError{
				Kind: ErrFunctionCalledWrongArity, Span: spanOf(e), Name: n.Name,
				Expected: len(params), Got: len(n.Args),
			}
		}
		for _, arg := range n.Args {
			if err := c.check(arg, varEnv, funEnv); err != nil {
				return err
			}
		}
		return nil

	case InternalTailCall:
		panic("surface: InternalTailCall must not occur before Lift")

	case ExternalCall:
		panic("surface: ExternalCall must not occur before Lift")

	default:
		panic("surface: Check encountered an unrecognized node type")
	}
}
