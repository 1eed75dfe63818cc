// Package workspace holds the per-worker, per-read scratch state the search
// pipeline (C8) reuses across reads: one goroutine owns one Workspace for its
// whole lifetime, so none of this needs synchronization. The shape follows
// fusion.Stitcher's freePool pattern (NewStitcher/allocFragment/FreeFragment):
// a worker-owned struct with private scratch slices that are reset and
// reused rather than reallocated per read.
package workspace

import (
	"github.com/grailbio/gem3/candidate"
	"github.com/grailbio/gem3/matches"
	"github.com/grailbio/gem3/region"
	"github.com/grailbio/gem3/seq"
)

// Workspace is one worker's private scratch space: a compiled pattern
// (reused by re-encoding into the same backing array when possible), a
// region profile, a candidate-generation result, and a matches store.
// Nothing here is safe to share across goroutines; each gem3-mapper worker
// creates and owns its own Workspace values.
type Workspace struct {
	Pattern   *seq.Pattern
	Profile   *region.Profile
	Candidate candidate.Result
	Matches   *matches.Store

	// verifiedRegions accumulates the candidate.Region spans that have
	// already been BPM/SWG-verified for the current read, so a later
	// candidate wholly inside one can be skipped (4.4's dedup-against-
	// verified contract).
	verifiedRegions []candidate.Region

	freeStores []*matches.Store
}

// New returns an empty, ready-to-use Workspace.
func New() *Workspace {
	return &Workspace{Matches: matches.NewStore()}
}

// Reset clears all per-read state so the Workspace can be reused for the
// next read without reallocating its backing slices.
func (w *Workspace) Reset() {
	w.Pattern = nil
	w.Profile = nil
	w.Candidate = candidate.Result{
		Regions:   w.Candidate.Regions[:0],
		Discarded: w.Candidate.Discarded[:0],
	}
	w.verifiedRegions = w.verifiedRegions[:0]
	w.freeMatchStore(w.Matches)
	w.Matches = w.allocMatchStore()
}

// VerifiedRegions returns the regions verified so far for the current read.
func (w *Workspace) VerifiedRegions() []candidate.Region { return w.verifiedRegions }

// MarkVerified records r as verified, so future candidate generation for
// this read can dedup against it.
func (w *Workspace) MarkVerified(r candidate.Region) {
	w.verifiedRegions = append(w.verifiedRegions, r)
}

// allocMatchStore and freeMatchStore mirror fusion.Stitcher's
// allocFragment/FreeFragment: reuse a previous read's Store (cleared) rather
// than allocate a new one, capped at a small freelist depth since a worker
// only ever needs one at a time but benefits from not reallocating the
// backing maps every read.
func (w *Workspace) allocMatchStore() *matches.Store {
	if l := len(w.freeStores); l > 0 {
		s := w.freeStores[l-1]
		w.freeStores = w.freeStores[:l-1]
		return s
	}
	return matches.NewStore()
}

func (w *Workspace) freeMatchStore(s *matches.Store) {
	if s == nil || len(w.freeStores) > 4 {
		return
	}
	s.Reset()
	w.freeStores = append(w.freeStores, s)
}
