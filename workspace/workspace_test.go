package workspace_test

import (
	"testing"

	"github.com/grailbio/gem3/candidate"
	"github.com/grailbio/gem3/matches"
	"github.com/grailbio/gem3/workspace"
)

func TestResetReusesMatchStore(t *testing.T) {
	w := workspace.New()
	w.Matches.AddTrace(matches.Trace{Begin: 1, End: 9, EditDistance: 0})
	first := w.Matches

	w.Reset()
	if w.Matches == nil {
		t.Fatalf("Matches is nil after Reset")
	}
	if len(w.Matches.Traces) != 0 {
		t.Errorf("Matches.Traces = %v, want empty after Reset", w.Matches.Traces)
	}
	_ = first // the freelist may or may not hand back the same pointer immediately
}

func TestMarkVerifiedAccumulates(t *testing.T) {
	w := workspace.New()
	w.MarkVerified(candidate.Region{Begin: 0, End: 10})
	w.MarkVerified(candidate.Region{Begin: 20, End: 30})
	if len(w.VerifiedRegions()) != 2 {
		t.Fatalf("VerifiedRegions() = %v, want 2 entries", w.VerifiedRegions())
	}
	w.Reset()
	if len(w.VerifiedRegions()) != 0 {
		t.Errorf("VerifiedRegions() after Reset = %v, want empty", w.VerifiedRegions())
	}
}
