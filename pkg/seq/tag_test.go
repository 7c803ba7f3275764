package seq_test

import (
	"testing"

	"github.com/dionysusliu/snake-compiler/pkg/seq"
)

func TestSeqTagProgramCounterStartsAtOneAndOrdersDeclsBeforeMain(t *testing.T) {
	prog := seq.SeqProg{
		Funs: []seq.FunDecl{
			{Name: "f", Parameters: []string{"x"}, Body: seq.Imm{Value: seq.ImmVar{Name: "x"}}},
		},
		Main: seq.Imm{Value: seq.ImmNum{Value: 0}},
	}

	got := seq.TagProgram(prog)

	declTag := got.Funs[0].Ann.(uint32)
	declBodyTag := seq.Ann(got.Funs[0].Body).(uint32)
	mainTag := seq.Ann(got.Main).(uint32)

	if declTag != 1 {
		t.Fatalf("the very first tag assigned should be 1 (tag_sprog starts its counter at 1), got %d", declTag)
	}
	if declTag >= declBodyTag {
		t.Fatalf("a decl's own tag is captured fresh before tagging its body, so it must be strictly less than the body's tag; got decl=%d body=%d", declTag, declBodyTag)
	}
	if mainTag <= declTag {
		t.Fatalf("main must be tagged strictly after every top-level declaration (decl tag %d, main tag %d)", declTag, mainTag)
	}
}

func TestSeqTagFunDefsGivesEachDeclItsOwnFreshTag(t *testing.T) {
	prog := seq.SeqProg{
		Main: seq.FunDefs{
			Decls: []seq.FunDecl{
				{Name: "f", Parameters: []string{"x"}, Body: seq.Imm{Value: seq.ImmVar{Name: "x"}}},
				{Name: "g", Parameters: []string{"y"}, Body: seq.Imm{Value: seq.ImmVar{Name: "y"}}},
			},
			Body: seq.Imm{Value: seq.ImmNum{Value: 0}},
		},
	}

	got := seq.TagProgram(prog)
	defs := got.Main.(seq.FunDefs)

	fTag := defs.Decls[0].Ann.(uint32)
	gTag := defs.Decls[1].Ann.(uint32)
	if fTag == gTag {
		t.Fatalf("each decl in a FunDefs group gets its own freshly-captured tag (unlike the pre-lift Tag pass), got the same tag %d for both", fTag)
	}
}
