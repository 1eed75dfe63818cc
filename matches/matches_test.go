package matches_test

import (
	"testing"

	"github.com/grailbio/gem3/matches"
)

func TestAddTraceCountersAndDedup(t *testing.T) {
	s := matches.NewStore()
	if !s.AddTrace(matches.Trace{Begin: 10, End: 18, EditDistance: 1, SWGScore: 4}) {
		t.Fatalf("first AddTrace should report net insertion")
	}
	if s.Counters[1] != 1 {
		t.Errorf("Counters[1] = %d, want 1", s.Counters[1])
	}

	// Overlaps begin position with a strictly better match: replaces in
	// place, not a net insertion, and counters move from the old bucket
	// to the new one.
	if s.AddTrace(matches.Trace{Begin: 10, End: 20, EditDistance: 0, SWGScore: 8}) {
		t.Errorf("replacing AddTrace should not report a net insertion")
	}
	if len(s.Traces) != 1 {
		t.Fatalf("len(Traces) = %d, want 1 (replaced in place)", len(s.Traces))
	}
	if s.Counters[1] != 0 || s.Counters[0] != 1 {
		t.Errorf("Counters = %+v, want {0:1}", s.Counters)
	}

	// A strictly worse match at the same begin is dropped entirely.
	if s.AddTrace(matches.Trace{Begin: 10, End: 25, EditDistance: 3, SWGScore: 1}) {
		t.Errorf("worse AddTrace at a duplicate position should not insert")
	}
	if len(s.Traces) != 1 {
		t.Fatalf("len(Traces) = %d, want 1 (worse match dropped)", len(s.Traces))
	}

	// A distinct position is a genuine net insertion.
	if !s.AddTrace(matches.Trace{Begin: 100, End: 108, EditDistance: 2, SWGScore: 3}) {
		t.Fatalf("distinct-position AddTrace should report net insertion")
	}
	if len(s.Traces) != 2 {
		t.Fatalf("len(Traces) = %d, want 2", len(s.Traces))
	}
}

func TestPrimaryAndSubdominant(t *testing.T) {
	s := matches.NewStore()
	s.AddTrace(matches.Trace{Begin: 1, End: 9, EditDistance: 2, SWGScore: 5})
	s.AddTrace(matches.Trace{Begin: 50, End: 58, EditDistance: 0, SWGScore: 8})
	s.AddTrace(matches.Trace{Begin: 100, End: 108, EditDistance: 1, SWGScore: 6})

	primary, ok := s.Primary()
	if !ok || primary.EditDistance != 0 {
		t.Fatalf("Primary() = %+v, ok=%v, want EditDistance=0", primary, ok)
	}
	sub, ok := s.Subdominant()
	if !ok || sub.EditDistance != 1 {
		t.Fatalf("Subdominant() = %+v, ok=%v, want EditDistance=1", sub, ok)
	}
}

func TestSortByChromosomePosition(t *testing.T) {
	s := matches.NewStore()
	s.AddTrace(matches.Trace{Begin: 1, End: 9, Chromosome: "chr2", Position: 5})
	s.AddTrace(matches.Trace{Begin: 50, End: 58, Chromosome: "chr1", Position: 50})
	s.AddTrace(matches.Trace{Begin: 100, End: 108, Chromosome: "chr1", Position: 10})

	s.Sort(matches.ByChromosomePosition)
	want := []string{"chr1", "chr1", "chr2"}
	for i, c := range want {
		if s.Traces[i].Chromosome != c {
			t.Errorf("Traces[%d].Chromosome = %s, want %s", i, s.Traces[i].Chromosome, c)
		}
	}
	if s.Traces[0].Position != 10 || s.Traces[1].Position != 50 {
		t.Errorf("chr1 entries not sorted by position: %+v", s.Traces[:2])
	}
}
