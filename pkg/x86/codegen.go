package x86

import (
	"fmt"

	"github.com/dionysusliu/snake-compiler/pkg/seq"
	"github.com/dionysusliu/snake-compiler/pkg/surface"
)

// CodeGenerator lowers a tagged SeqProg to a flat instruction list, following
// section 4.5: a 64-bit tagged value representation, a stack frame anchored
// at Rsp, and runtime tag checks before every operation that assumes one.
type CodeGenerator struct{}

// NewCodeGenerator returns a ready-to-use CodeGenerator.
func NewCodeGenerator() *CodeGenerator { return &CodeGenerator{} }

func cloneEnv(env map[string]int32) map[string]int32 {
	out := make(map[string]int32, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}

func getOffset(varName string, env map[string]int32) int32 {
	offset, ok := env[varName]
	if !ok {
		panic(fmt.Sprintf("x86: variable %q should be in scope (env has %d entries)", varName, len(env)))
	}
	return offset
}

func compileImmToArg(i seq.ImmExp, env map[string]int32) Arg64 {
	switch n := i.(type) {
	case seq.ImmNum:
		return Arg64Signed(n.Value << 1)
	case seq.ImmBool:
		if n.Value {
			return Arg64Unsigned(SnakeTrue)
		}
		return Arg64Unsigned(SnakeFalse)
	case seq.ImmVar:
		return Arg64Mem{Mem: MemRef{Reg: Rsp, Offset: getOffset(n.Name, env)}}
	default:
		panic("x86: compileImmToArg encountered an unrecognized ImmExp type")
	}
}

func runtimeOverflowCheck() []Instr {
	return []Instr{
		Comment{"check overflow"},
		Mov{MovToReg{Dst: Rdi, Src: Arg64Unsigned(uint64(OvflError))}},
		Mov{MovToReg{Dst: Rsi, Src: Arg64Reg{Reg: Rax}}},
		Jo{"snake_err"},
	}
}

func checkTypeNum(reg Reg, code ErrorCode) []Instr {
	return []Instr{
		Comment{"check whether num"},
		Mov{MovToReg{Dst: Rdi, Src: Arg64Unsigned(uint64(code))}},
		Mov{MovToReg{Dst: Rsi, Src: Arg64Reg{Reg: reg}}},
		Mov{MovToReg{Dst: Rbx, Src: Arg64Unsigned(TagMask)}},
		Test{BinArgs{Dst: Rbx, Src: Arg32Reg{Reg: reg}}},
		Jnz{"snake_err"},
	}
}

func checkTypeBool(reg Reg, code ErrorCode) []Instr {
	return []Instr{
		Comment{"check whether bool"},
		Mov{MovToReg{Dst: Rdi, Src: Arg64Unsigned(uint64(code))}},
		Mov{MovToReg{Dst: Rsi, Src: Arg64Reg{Reg: reg}}},
		Mov{MovToReg{Dst: Rbx, Src: Arg64Unsigned(TagMask)}},
		Test{BinArgs{Dst: Rbx, Src: Arg32Reg{Reg: reg}}},
		Jz{"snake_err"},
	}
}

func runtimePrim1Check(reg Reg, op surface.PrimOp) []Instr {
	switch op {
	case surface.Add1, surface.Sub1:
		return checkTypeNum(reg, ArithError)
	case surface.Not:
		return checkTypeBool(reg, LogicError)
	default:
		return nil
	}
}

func runtimePrim2Check(reg Reg, op surface.PrimOp) []Instr {
	switch op {
	case surface.Add, surface.Sub, surface.Mul:
		return checkTypeNum(reg, ArithError)
	case surface.And, surface.Or:
		return checkTypeBool(reg, LogicError)
	case surface.Lt, surface.Gt, surface.Le, surface.Ge:
		return checkTypeNum(reg, CmpError)
	default:
		return nil
	}
}

func runtimeIfCheck(reg Reg) []Instr {
	return checkTypeBool(reg, IfError)
}

func compilePrim1ToInstr(op surface.PrimOp, space int32) []Instr {
	switch op {
	case surface.Add1:
		return append([]Instr{
			Comment{"add1"},
			Add{BinArgs{Dst: Rax, Src: Arg32Signed(1 << 1)}},
		}, runtimeOverflowCheck()...)
	case surface.Sub1:
		return append([]Instr{
			Comment{"sub1"},
			Sub{BinArgs{Dst: Rax, Src: Arg32Signed(1 << 1)}},
		}, runtimeOverflowCheck()...)
	case surface.Not:
		return []Instr{
			Comment{"not"},
			Mov{MovToReg{Dst: R10, Src: Arg64Unsigned(NotMask)}},
			Xor{BinArgs{Dst: Rax, Src: Arg32Reg{Reg: R10}}},
		}
	case surface.Print:
		return []Instr{
			Comment{"print"},
			Mov{MovToReg{Dst: Rdi, Src: Arg64Reg{Reg: Rax}}},
			Sub{BinArgs{Dst: Rsp, Src: Arg32Signed(space + 8)}},
			Call{"print_snake_val"},
			Add{BinArgs{Dst: Rsp, Src: Arg32Signed(space + 8)}},
		}
	case surface.IsNum:
		return []Instr{
			Comment{"isnum"},
			Mov{MovToReg{Dst: R10, Src: Arg64Unsigned(TagMask)}},
			And{BinArgs{Dst: Rax, Src: Arg32Reg{Reg: R10}}},
			Shl{BinArgs{Dst: Rax, Src: Arg32Unsigned(63)}},
			Mov{MovToReg{Dst: R10, Src: Arg64Unsigned(SnakeTrue)}},
			Xor{BinArgs{Dst: Rax, Src: Arg32Reg{Reg: R10}}},
		}
	case surface.IsBool:
		return []Instr{
			Comment{"isbool"},
			Mov{MovToReg{Dst: R10, Src: Arg64Unsigned(TagMask)}},
			And{BinArgs{Dst: Rax, Src: Arg32Reg{Reg: R10}}},
			Shl{BinArgs{Dst: Rax, Src: Arg32Unsigned(63)}},
			Mov{MovToReg{Dst: R10, Src: Arg64Unsigned(SnakeFalse)}},
			Or{BinArgs{Dst: Rax, Src: Arg32Reg{Reg: R10}}},
		}
	default:
		panic(fmt.Sprintf("x86: compilePrim1ToInstr given a non-unary op %q", op))
	}
}

func compilePrim2ToInstr(op surface.PrimOp, tag uint32) []Instr {
	switch op {
	case surface.Add:
		return append([]Instr{
			Comment{"add"},
			Add{BinArgs{Dst: Rax, Src: Arg32Reg{Reg: R10}}},
		}, runtimeOverflowCheck()...)
	case surface.Sub:
		return append([]Instr{
			Comment{"sub"},
			Sub{BinArgs{Dst: Rax, Src: Arg32Reg{Reg: R10}}},
		}, runtimeOverflowCheck()...)
	case surface.Mul:
		return append([]Instr{
			Comment{"mul"},
			Sar{BinArgs{Dst: Rax, Src: Arg32Unsigned(1)}},
			IMul{BinArgs{Dst: Rax, Src: Arg32Reg{Reg: R10}}},
		}, runtimeOverflowCheck()...)
	case surface.And:
		return []Instr{And{BinArgs{Dst: Rax, Src: Arg32Reg{Reg: R10}}}}
	case surface.Or:
		return []Instr{Or{BinArgs{Dst: Rax, Src: Arg32Reg{Reg: R10}}}}
	default:
		label := comparisonLabel(op, tag)
		jump := comparisonJump(op, label)
		return []Instr{
			Comment{"compare"},
			Cmp{BinArgs{Dst: Rax, Src: Arg32Reg{Reg: R10}}},
			Mov{MovToReg{Dst: Rax, Src: Arg64Unsigned(SnakeTrue)}},
			jump,
			Mov{MovToReg{Dst: Rax, Src: Arg64Unsigned(SnakeFalse)}},
			Label{label},
		}
	}
}

func comparisonLabel(op surface.PrimOp, tag uint32) string {
	switch op {
	case surface.Lt:
		return fmt.Sprintf("less_than#%d", tag)
	case surface.Gt:
		return fmt.Sprintf("greater_than#%d", tag)
	case surface.Le:
		return fmt.Sprintf("less_equal#%d", tag)
	case surface.Ge:
		return fmt.Sprintf("greater_equal#%d", tag)
	case surface.Eq:
		return fmt.Sprintf("equal#%d", tag)
	case surface.Neq:
		return fmt.Sprintf("unequal#%d", tag)
	default:
		panic(fmt.Sprintf("x86: comparisonLabel given a non-comparison op %q", op))
	}
}

func comparisonJump(op surface.PrimOp, label string) Instr {
	switch op {
	case surface.Lt:
		return Jl{label}
	case surface.Gt:
		return Jg{label}
	case surface.Le:
		return Jle{label}
	case surface.Ge:
		return Jge{label}
	case surface.Eq:
		return Je{label}
	case surface.Neq:
		return Jne{label}
	default:
		panic(fmt.Sprintf("x86: comparisonJump given a non-comparison op %q", op))
	}
}

// spaceNeededHelper computes the maximum number of simultaneously-live
// bindings over all nested lets/ifs/fundefs in e.
func spaceNeededHelper(e seq.SeqExp) int32 {
	switch n := e.(type) {
	case seq.Imm, seq.Prim, seq.InternalTailCall, seq.ExternalCall:
		return 0
	case seq.Let:
		bound := spaceNeededHelper(n.BoundExp)
		body := 1 + spaceNeededHelper(n.Body)
		if bound > body {
			return bound
		}
		return body
	case seq.If:
		thn := spaceNeededHelper(n.Then)
		els := spaceNeededHelper(n.Else)
		if thn > els {
			return thn
		}
		return els
	case seq.FunDefs:
		var maxSpace int32
		for _, d := range n.Decls {
			if s := spaceNeededHelper(d.Body); s > maxSpace {
				maxSpace = s
			}
		}
		return maxSpace + spaceNeededHelper(n.Body)
	default:
		panic("x86: spaceNeededHelper encountered an unrecognized node type")
	}
}

// spaceNeeded is the frame size in bytes for e given argNum parameters
// already occupying slots, padded to keep 16-byte alignment at every call.
func spaceNeeded(e seq.SeqExp, argNum int32) int32 {
	varNum := spaceNeededHelper(e) + argNum
	if varNum%2 == 0 {
		return 8 * (varNum + 1)
	}
	return 8 * varNum
}
