package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dionysusliu/snake-compiler/pkg/seq"
	"github.com/dionysusliu/snake-compiler/pkg/surface"
	"github.com/dionysusliu/snake-compiler/pkg/x86"

	"github.com/teris-io/cli"
)

var Description = strings.ReplaceAll(`
The Snake/Garter Compiler lowers a single .garter source file to x86-64
assembly text (System V calling convention), ready to be assembled and
linked against the runtime archive.
`, "\n", " ")

var SnakeCompiler = cli.New(Description).
	WithArg(cli.NewArg("input", "The source (.garter) file to be compiled").WithType(cli.TypeString)).
	WithOption(cli.NewOption("out", "Output path for the generated assembly (defaults to <input>.s)").
		WithType(cli.TypeString)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Printf("ERROR: Not enough arguments provided, use --help\n")
		return -1
	}
	input := args[0]
	if filepath.Ext(input) != ".garter" {
		fmt.Printf("ERROR: Expected a '.garter' source file, got '%s'\n", input)
		return -1
	}

	content, err := os.ReadFile(input)
	if err != nil {
		fmt.Printf("ERROR: Unable to open input file: %s\n", err)
		return -1
	}

	asm, err := CompileToString(content)
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		return -1
	}

	outPath, ok := options["out"]
	if !ok {
		outPath = strings.TrimSuffix(input, ".garter") + ".s"
	}
	if err := os.WriteFile(outPath, []byte(asm), 0644); err != nil {
		fmt.Printf("ERROR: Unable to write output file: %s\n", err)
		return -1
	}

	return 0
}

// CompileToString runs the whole pipeline — Parse, Check, Tag, Uniquify,
// Lift, Tag, Sequentialize, Tag, CodeGen, Emit — over one source buffer and
// returns the emitted assembly text.
func CompileToString(source []byte) (string, error) {
	parser := surface.NewParser(bytes.NewReader(source))
	prog, err := parser.Parse()
	if err != nil {
		return "", fmt.Errorf("unable to complete 'parsing' pass: %s", err)
	}

	checker := surface.NewChecker()
	if err := checker.Check(prog); err != nil {
		return "", fmt.Errorf("unable to complete 'check' pass: %s", err)
	}

	tagged := surface.NewTagger().Tag(prog)
	uniqued := surface.NewUniquifier().Uniquify(tagged)
	defs, main := surface.NewLifter().Lift(uniqued)
	taggedDefs, taggedMain := surface.TagProgram(defs, main)

	sprog := seq.NewSequentializer().Program(taggedDefs, taggedMain)
	sprog = seq.TagProgram(sprog)

	instrs := x86.NewCodeGenerator().Generate(sprog)
	return x86.Emit(instrs), nil
}

func main() { os.Exit(SnakeCompiler.Run(os.Args, os.Stdout)) }
