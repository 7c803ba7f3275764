package main

import (
	"strings"
	"testing"
)

// These scenarios mirror the worked examples used to state the compiler's
// testable properties: each program should lower to assembly containing the
// instruction shapes its evaluated result implies, without ever invoking an
// assembler — this package only emits text.
func TestCompileToStringOnWorkedExamples(t *testing.T) {
	test := func(src string, checks ...string) {
		asm, err := CompileToString([]byte(src))
		if err != nil {
			t.Fatalf("CompileToString(%q) failed: %s", src, err)
		}
		for _, c := range checks {
			if !strings.Contains(asm, c) {
				t.Errorf("CompileToString(%q): expected assembly to contain %q, got:\n%s", src, c, asm)
			}
		}
	}

	t.Run("integer literal", func(t *testing.T) {
		test("5", "mov rax, 10")
	})

	t.Run("nested unary prims", func(t *testing.T) {
		test("add1(sub1(3))", "add1", "sub1")
	})

	t.Run("let and print", func(t *testing.T) {
		test("let x = 10 in print(x)", "call print_snake_val")
	})

	t.Run("if/else lowers to a conditional branch", func(t *testing.T) {
		test("if true: 1 else: 2", "je if_false")
	})

	t.Run("recursive function is lifted to its own label", func(t *testing.T) {
		// The whole program's result is itself a tail position, so even this
		// outermost call into fact lowers to a frame-reusing jmp, not a call;
		// it's the buried fact(n-1) inside the multiplication that forced
		// fact to be lifted at all. Uniquify renames fact with the tag of its
		// FunDefs node, the program's root (tag 1), so its label is fact#1.
		test("def fact(n): if n < 2: 1 else: n * fact(n - 1); fact(5)", "fact#1:", "jmp fact#1")
	})

	t.Run("tail-recursive loop reuses its frame instead of calling", func(t *testing.T) {
		src := "def loop(n, acc): if n < 1: acc else: loop(n - 1, acc); loop(1000000, 0)"
		asm, err := CompileToString([]byte(src))
		if err != nil {
			t.Fatalf("CompileToString failed: %s", err)
		}
		if strings.Contains(asm, "call loop") {
			t.Fatalf("the self-tail-call inside loop must lower to a jmp, not a call:\n%s", asm)
		}
		if !strings.Contains(asm, "jmp loop") {
			t.Fatalf("expected a jmp into loop's own label, got:\n%s", asm)
		}
	})
}

func TestCompileToStringRejectsIllFormedSource(t *testing.T) {
	test := func(src string) {
		if _, err := CompileToString([]byte(src)); err == nil {
			t.Fatalf("CompileToString(%q) should have failed", src)
		}
	}

	t.Run("unbound variable is rejected by the check pass", func(t *testing.T) {
		test("x + 1")
	})

	t.Run("malformed syntax is rejected by the parse pass", func(t *testing.T) {
		test("let x = in x")
	})
}

func TestHandlerRejectsNonGarterInput(t *testing.T) {
	status := Handler([]string{"program.txt"}, map[string]string{})
	if status == 0 {
		t.Fatal("Handler should reject a non-.garter input file")
	}
}

func TestHandlerRejectsMissingArgument(t *testing.T) {
	status := Handler(nil, map[string]string{})
	if status == 0 {
		t.Fatal("Handler should reject an invocation with no input argument")
	}
}
