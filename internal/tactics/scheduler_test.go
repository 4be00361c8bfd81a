package tactics

import (
	"math/rand/v2"
	"testing"
)

func testPools() map[Category][]string {
	return map[Category][]string{
		Confusion:      {"c1", "c2", "c3", "c4", "c5", "c6"},
		Skeptical:      {"s1", "s2", "s3", "s4", "s5", "s6"},
		SlowCompliance: {"w1", "w2", "w3", "w4", "w5", "w6"},
	}
}

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func TestNextCategory_NeverRepeats(t *testing.T) {
	s := NewScheduler(testPools(), seeded(7))
	last := Category("")
	for i := 0; i < 200; i++ {
		c := s.NextCategory(last)
		if c == last {
			t.Fatalf("iteration %d repeated category %s", i, c)
		}
		last = c
	}
}

func TestNextCategory_FirstPickCoversAll(t *testing.T) {
	s := NewScheduler(testPools(), seeded(1))
	seen := map[Category]bool{}
	for i := 0; i < 100; i++ {
		seen[s.NextCategory("")] = true
	}
	if len(seen) != len(Categories) {
		t.Errorf("expected every category to be eligible first, saw %v", seen)
	}
}

func TestNext_NineTurns(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		s := NewScheduler(testPools(), seeded(seed))
		texts := map[string]bool{}
		var prev Category
		for i := 0; i < 9; i++ {
			r := s.Next()
			if r.Category == prev {
				t.Fatalf("seed %d: adjacent repeat of %s at turn %d", seed, r.Category, i)
			}
			if texts[r.Text] {
				t.Fatalf("seed %d: text %q repeated at turn %d", seed, r.Text, i)
			}
			texts[r.Text] = true
			prev = r.Category
		}
		if len(s.History()) != 9 {
			t.Errorf("seed %d: expected 9 history records, got %d", seed, len(s.History()))
		}
	}
}

func TestChoose_ResetAvoidsPreviousText(t *testing.T) {
	pools := map[Category][]string{Confusion: {"a", "b"}}
	s := NewScheduler(pools, seeded(3))

	first := s.Choose(Confusion)
	s.Record(Confusion, first)
	second := s.Choose(Confusion)
	if second == first {
		t.Fatalf("expected unused line, got %q twice", first)
	}
	s.Record(Confusion, second)

	// Pool exhausted: the next pick may reuse, but never the line just said.
	for i := 0; i < 20; i++ {
		if got := s.Choose(Confusion); got == second {
			t.Fatalf("reset pool returned the previous line %q", got)
		}
	}
}

func TestChoose_EmptyPool(t *testing.T) {
	s := NewScheduler(map[Category][]string{}, seeded(1))
	if got := s.Choose(Skeptical); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestStateRestore(t *testing.T) {
	s := NewScheduler(testPools(), seeded(9))
	s.Next()
	s.Next()

	other := NewScheduler(testPools(), seeded(9))
	other.Restore(s.State())

	last, _ := s.Last()
	got, ok := other.Last()
	if !ok || got != last {
		t.Errorf("restored last = %+v, want %+v", got, last)
	}
	if next := other.Next(); next.Category == last.Category {
		t.Errorf("restored scheduler repeated category %s", next.Category)
	}
}
