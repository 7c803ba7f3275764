package utils_test

import (
	"testing"

	"github.com/dionysusliu/snake-compiler/pkg/utils"
)

func TestOrderedSetInsertionOrder(t *testing.T) {
	test := func(insert []string, expected []string) {
		s := utils.NewOrderedSet[string]()
		for _, e := range insert {
			s.Add(e)
		}
		got := s.Slice()
		if len(got) != len(expected) {
			t.Fatalf("Slice() = %v, want %v", got, expected)
		}
		for i := range expected {
			if got[i] != expected[i] {
				t.Fatalf("Slice() = %v, want %v", got, expected)
			}
		}
	}

	t.Run("First-seen order is preserved", func(t *testing.T) {
		test([]string{"a", "b", "c"}, []string{"a", "b", "c"})
		test([]string{"z", "a", "m"}, []string{"z", "a", "m"})
	})

	t.Run("Duplicate inserts keep the first position", func(t *testing.T) {
		test([]string{"a", "b", "a", "c", "b"}, []string{"a", "b", "c"})
	})
}

func TestOrderedSetCloneIsIndependent(t *testing.T) {
	base := utils.NewOrderedSet[string]()
	base.Add("x")
	base.Add("y")

	clone := base.Clone()
	clone.Add("z")

	if base.Contains("z") {
		t.Fatal("mutating a clone must not affect the original set")
	}
	if !clone.Contains("x") || !clone.Contains("y") || !clone.Contains("z") {
		t.Fatal("clone should contain every element of the original plus its own additions")
	}
	if base.Len() != 2 {
		t.Fatalf("base.Len() = %d, want 2", base.Len())
	}
}

func TestOrderedSetAddAllPreservesOtherOrder(t *testing.T) {
	a := utils.NewOrderedSet[string]()
	a.Add("p")
	a.Add("q")

	b := utils.NewOrderedSet[string]()
	b.Add("r")
	b.AddAll(a)

	got := b.Slice()
	want := []string{"r", "p", "q"}
	if len(got) != len(want) {
		t.Fatalf("Slice() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Slice() = %v, want %v", got, want)
		}
	}
}
