package x86

import (
	"fmt"
	"strings"
)

// Emit renders a flat instruction list as Intel-syntax assembly text, with
// the section header the runtime's linker script expects (section 6):
// a .text section exporting start_here and importing the two runtime
// symbols every program calls into.
func Emit(instrs []Instr) string {
	var b strings.Builder
	b.WriteString("section .text\n")
	b.WriteString("\tglobal start_here\n")
	b.WriteString("\textern snake_error\n")
	b.WriteString("\textern print_snake_val\n")
	b.WriteString("start_here:\n")

	for _, instr := range instrs {
		switch n := instr.(type) {
		case Label:
			fmt.Fprintf(&b, "%s:\n", n.Name)
		case Comment:
			fmt.Fprintf(&b, "  ; %s\n", n.Text)
		default:
			fmt.Fprintf(&b, "  %s\n", emitInstr(instr))
		}
	}
	return b.String()
}

func emitInstr(instr Instr) string {
	switch n := instr.(type) {
	case Mov:
		return fmt.Sprintf("mov %s", emitMovArgs(n.Args))
	case Add:
		return fmt.Sprintf("add %s", emitBinArgs(n.Args))
	case Sub:
		return fmt.Sprintf("sub %s", emitBinArgs(n.Args))
	case IMul:
		return fmt.Sprintf("imul %s", emitBinArgs(n.Args))
	case Sar:
		return fmt.Sprintf("sar %s", emitBinArgs(n.Args))
	case Shl:
		return fmt.Sprintf("shl %s", emitBinArgs(n.Args))
	case And:
		return fmt.Sprintf("and %s", emitBinArgs(n.Args))
	case Or:
		return fmt.Sprintf("or %s", emitBinArgs(n.Args))
	case Xor:
		return fmt.Sprintf("xor %s", emitBinArgs(n.Args))
	case Cmp:
		return fmt.Sprintf("cmp %s", emitBinArgs(n.Args))
	case Test:
		return fmt.Sprintf("test %s", emitBinArgs(n.Args))
	case Jmp:
		return fmt.Sprintf("jmp %s", n.Label)
	case Je:
		return fmt.Sprintf("je %s", n.Label)
	case Jne:
		return fmt.Sprintf("jne %s", n.Label)
	case Jl:
		return fmt.Sprintf("jl %s", n.Label)
	case Jg:
		return fmt.Sprintf("jg %s", n.Label)
	case Jle:
		return fmt.Sprintf("jle %s", n.Label)
	case Jge:
		return fmt.Sprintf("jge %s", n.Label)
	case Jz:
		return fmt.Sprintf("jz %s", n.Label)
	case Jnz:
		return fmt.Sprintf("jnz %s", n.Label)
	case Jo:
		return fmt.Sprintf("jo %s", n.Label)
	case Call:
		return fmt.Sprintf("call %s", n.Label)
	case Ret:
		return "ret"
	default:
		panic(fmt.Sprintf("x86: emitInstr encountered an unrecognized instruction %T", instr))
	}
}

func emitMovArgs(args MovArgs) string {
	switch n := args.(type) {
	case MovToReg:
		return fmt.Sprintf("%s, %s", n.Dst, emitArg64(n.Src))
	case MovToMem:
		return fmt.Sprintf("%s, %s", emitMemRef(n.Dst), n.Src)
	default:
		panic(fmt.Sprintf("x86: emitMovArgs encountered an unrecognized operand pair %T", args))
	}
}

func emitBinArgs(args BinArgs) string {
	return fmt.Sprintf("%s, %s", args.Dst, emitArg32(args.Src))
}

func emitArg32(a Arg32) string {
	switch n := a.(type) {
	case Arg32Signed:
		return fmt.Sprintf("%d", int32(n))
	case Arg32Unsigned:
		return fmt.Sprintf("%d", uint32(n))
	case Arg32Reg:
		return string(n.Reg)
	default:
		panic(fmt.Sprintf("x86: emitArg32 encountered an unrecognized operand %T", a))
	}
}

func emitArg64(a Arg64) string {
	switch n := a.(type) {
	case Arg64Signed:
		return fmt.Sprintf("%d", int64(n))
	case Arg64Unsigned:
		return fmt.Sprintf("%d", uint64(n))
	case Arg64Reg:
		return string(n.Reg)
	case Arg64Mem:
		return emitMemRef(n.Mem)
	default:
		panic(fmt.Sprintf("x86: emitArg64 encountered an unrecognized operand %T", a))
	}
}

func emitMemRef(m MemRef) string {
	if m.Offset < 0 {
		return fmt.Sprintf("QWORD [%s - %d]", m.Reg, -m.Offset)
	}
	return fmt.Sprintf("QWORD [%s + %d]", m.Reg, m.Offset)
}
