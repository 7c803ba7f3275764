package x86

import (
	"fmt"

	"github.com/dionysusliu/snake-compiler/pkg/seq"
)

func tagOf(ann any) uint32 {
	t, ok := ann.(uint32)
	if !ok {
		panic(fmt.Sprintf("x86: CodeGen invoked on a tree not annotated with uint32 tags (got %T)", ann))
	}
	return t
}

// lower is compile_to_instrs_help: it walks a tagged SeqExp, threading the
// variable-to-offset environment, the function's total frame size (space),
// and emitting runtime checks before every operation that assumes a tag.
func (cg *CodeGenerator) lower(e seq.SeqExp, env map[string]int32, space int32) []Instr {
	switch n := e.(type) {
	case seq.Imm:
		return []Instr{Mov{MovToReg{Dst: Rax, Src: compileImmToArg(n.Value, env)}}}

	case seq.Prim:
		if n.Op.Arity1() {
			is := []Instr{
				Comment{"prim1"},
				Mov{MovToReg{Dst: Rax, Src: compileImmToArg(n.Args[0], env)}},
			}
			is = append(is, runtimePrim1Check(Rax, n.Op)...)
			is = append(is, compilePrim1ToInstr(n.Op, space)...)
			return is
		}
		is := []Instr{
			Comment{"prim2"},
			Mov{MovToReg{Dst: Rax, Src: compileImmToArg(n.Args[0], env)}},
		}
		is = append(is, runtimePrim2Check(Rax, n.Op)...)
		is = append(is, Mov{MovToReg{Dst: R10, Src: compileImmToArg(n.Args[1], env)}})
		is = append(is, runtimePrim2Check(R10, n.Op)...)
		is = append(is, compilePrim2ToInstr(n.Op, tagOf(n.Ann))...)
		return is

	case seq.Let:
		is := cg.lower(n.BoundExp, env, space)
		is = append(is, Comment{fmt.Sprintf("let var: %s", n.Var)})
		next := cloneEnv(env)
		next[n.Var] = -8 * (int32(len(env)) + 1)
		is = append(is, Mov{MovToMem{Dst: MemRef{Reg: Rsp, Offset: getOffset(n.Var, next)}, Src: Rax}})
		is = append(is, cg.lower(n.Body, next, space)...)
		return is

	case seq.If:
		tag := tagOf(n.Ann)
		elseLabel := fmt.Sprintf("if_false#%d", tag)
		doneLabel := fmt.Sprintf("done#%d", tag)

		is := []Instr{
			Comment{"if"},
			Mov{MovToReg{Dst: Rax, Src: compileImmToArg(n.Cond, env)}},
		}
		is = append(is, runtimeIfCheck(Rax)...)
		is = append(is,
			Mov{MovToReg{Dst: R10, Src: Arg64Unsigned(SnakeFalse)}},
			Cmp{BinArgs{Dst: Rax, Src: Arg32Reg{Reg: R10}}},
			Je{elseLabel},
		)
		is = append(is, cg.lower(n.Then, env, space)...)
		is = append(is, Jmp{doneLabel}, Label{elseLabel})
		is = append(is, cg.lower(n.Else, env, space)...)
		is = append(is, Label{doneLabel})
		return is

	case seq.FunDefs:
		tag := tagOf(n.Ann)
		is := []Instr{Comment{fmt.Sprintf("fundefs%d_body", tag)}}
		is = append(is, cg.lower(n.Body, env, space)...)
		is = append(is, Ret{})

		is = append(is, Comment{fmt.Sprintf("fundefs%d_decls", tag)})
		for _, d := range n.Decls {
			is = append(is, Label{d.Name})

			thisEnv := cloneEnv(env)
			for _, param := range d.Parameters {
				if _, exists := thisEnv[param]; !exists {
					thisEnv[param] = -8 * (int32(len(thisEnv)) + 1)
				}
			}

			is = append(is, cg.lower(d.Body, thisEnv, space)...)
			is = append(is, Ret{})
		}
		return is

	case seq.InternalTailCall:
		return cg.lowerTailShuffle(n.Args, n.Name, env, space)

	case seq.ExternalCall:
		is := []Instr{Comment{"excall"}}
		count := int32(16)
		for _, arg := range n.Args {
			is = append(is,
				Mov{MovToReg{Dst: Rax, Src: compileImmToArg(arg, env)}},
				Mov{MovToMem{Dst: MemRef{Reg: Rsp, Offset: -space - count}, Src: Rax}},
			)
			count += 8
		}

		if n.IsTail {
			is = append(is, cg.shuffleDownToCurrentFrame(len(n.Args), space)...)
			is = append(is, Jmp{n.Name})
		} else {
			is = append(is,
				Sub{BinArgs{Dst: Rsp, Src: Arg32Signed(space)}},
				Call{n.Name},
				Add{BinArgs{Dst: Rsp, Src: Arg32Signed(space)}},
			)
		}
		return is

	default:
		panic("x86: lower encountered an unrecognized node type")
	}
}

// lowerTailShuffle materializes args below the current frame, then shuffles
// them up into this frame's own parameter slots before jumping — the
// frame-reuse trick that keeps tail recursion in bounded stack space.
func (cg *CodeGenerator) lowerTailShuffle(args []seq.ImmExp, target string, env map[string]int32, space int32) []Instr {
	is := []Instr{Comment{"incall"}}
	count := int32(16)
	for _, arg := range args {
		is = append(is,
			Mov{MovToReg{Dst: Rax, Src: compileImmToArg(arg, env)}},
			Mov{MovToMem{Dst: MemRef{Reg: Rsp, Offset: -space - count}, Src: Rax}},
		)
		count += 8
	}
	is = append(is, cg.shuffleDownToCurrentFrame(len(args), space)...)
	is = append(is, Jmp{target})
	return is
}

// shuffleDownToCurrentFrame copies argCount materialized arguments (staged
// below the callee's intended frame) up into this frame's own parameter
// slots, overwriting the caller's own parameters — the step that makes a
// tail call free of a new stack frame.
func (cg *CodeGenerator) shuffleDownToCurrentFrame(argCount int, space int32) []Instr {
	var is []Instr
	argIdx := int32(8)
	for n := 0; n < argCount; n++ {
		is = append(is,
			Mov{MovToReg{Dst: Rax, Src: Arg64Mem{Mem: MemRef{Reg: Rsp, Offset: -space - argIdx - 8}}}},
			Mov{MovToMem{Dst: MemRef{Reg: Rsp, Offset: -argIdx}, Src: Rax}},
		)
		argIdx += 8
	}
	return is
}

// Generate lowers a whole tagged SeqProg to the full instruction list:
// start_here's call into main, main's body, every lifted function, and the
// shared snake_err trap.
func (cg *CodeGenerator) Generate(p seq.SeqProg) []Instr {
	var instrs []Instr
	instrs = append(instrs, Call{"main"}, Ret{})

	instrs = append(instrs, Label{"main"})
	instrs = append(instrs, cg.lower(p.Main, map[string]int32{}, spaceNeeded(p.Main, 0))...)
	instrs = append(instrs, Ret{})

	instrs = append(instrs, Comment{"global fundecls"})
	for _, fn := range p.Funs {
		instrs = append(instrs, Label{fn.Name})
		env := map[string]int32{}
		for i, param := range fn.Parameters {
			env[param] = -8 * (int32(i) + 1)
		}
		numParams := int32(len(fn.Parameters))
		instrs = append(instrs, cg.lower(fn.Body, env, spaceNeeded(fn.Body, numParams))...)
		instrs = append(instrs, Ret{})
	}

	instrs = append(instrs, Label{"snake_err"}, Call{"snake_error"})
	return instrs
}
