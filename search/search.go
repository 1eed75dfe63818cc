// Package search implements the approximate-search state machine (component
// C8): region profiling, candidate generation, BPM verification, and SWG
// alignment, driven either synchronously (Run) or through the stepwise
// (generate, copy, retrieve) triplet (StepwiseXxx methods) that lets a
// single-threaded driver pipeline many reads over a GPU backend. States,
// sub-states, and the stepwise split follow
// approximate_search_stepwise.c verbatim in shape; function names are
// translated to Go methods (StepRegionProfileGenerate/Copy/Retrieve, etc.)
package search

import (
	"github.com/grailbio/gem3/archive"
	"github.com/grailbio/gem3/bpm"
	"github.com/grailbio/gem3/candidate"
	"github.com/grailbio/gem3/config"
	"github.com/grailbio/gem3/matches"
	"github.com/grailbio/gem3/region"
	"github.com/grailbio/gem3/seq"
	"github.com/grailbio/gem3/swg"
	"github.com/grailbio/gem3/workspace"
)

// Stage is the coarse search_stage discriminator from the original state
// machine: begin, the main filtering-adaptive loop, the two fallback modes
// (unimplemented here; a read that needs them is reported unmapped, per
// SPEC_FULL.md's scope), and end.
type Stage int

const (
	StageBegin Stage = iota
	StageFilteringAdaptive
	StageReadRecovery
	StageNeighborhood
	StageEnd
)

// ProcessingState is the fine-grained asearch_processing_state_t from the
// original state machine: where exactly a read is within one Stage.
type ProcessingState int

const (
	StateNoRegions ProcessingState = iota
	StateExactMatches
	StateRegionPartitioned
	StateRegionProfiled
	StateCandidatesProcessed
	StateCandidatesVerified
)

// Status is what the public search entry point returns: the search never
// throws, it always reports a populated (possibly empty) matches container
// plus a status, per 4.7's error-handling policy.
type Status int

const (
	StatusMapped Status = iota
	StatusUnmapped
)

// UnmappedReason explains a StatusUnmapped result, reported alongside the
// read per 6's output contract.
type UnmappedReason int

const (
	ReasonNone UnmappedReason = iota
	ReasonNoRegions
	ReasonAllN
	ReasonNoCandidatesSurvivedVerification
)

// ArchiveSearch is one read's (or one strand of one read's) search state: it
// owns no data the caller doesn't hand it, borrowing the archive, the
// config, and a per-worker Workspace for its scratch state (4's arena +
// indices design note), so ArchiveSearch itself can be a small value reused
// across reads by zeroing its Stage/ProcessingState fields.
type ArchiveSearch struct {
	Archive archive.Archive
	Config  config.Config
	Pattern *seq.Pattern
	Strand  matches.Strand
	WS      *workspace.Workspace

	Stage           Stage
	ProcessingState ProcessingState
	// Reason explains the most recent StatusUnmapped result; it is left at
	// its zero value (ReasonNone) whenever Finish reports StatusMapped.
	Reason UnmappedReason

	pendingSeeds []seedSpan
}

type seedSpan struct {
	begin, end int
}

// New starts a fresh search for pattern, on the given strand, against idx,
// using ws for scratch state (the caller resets ws between reads).
func New(idx archive.Archive, p *seq.Pattern, strand matches.Strand, cfg config.Config, ws *workspace.Workspace) *ArchiveSearch {
	return &ArchiveSearch{
		Archive: idx,
		Config:  cfg,
		Pattern: p,
		Strand:  strand,
		WS:      ws,
		Stage:   StageBegin,
	}
}

// Run drives the whole search synchronously (the non-GPU, non-pipelined
// path): region profiling, candidate generation, BPM verification, and SWG
// alignment, writing every accepted trace into s.WS.Matches.
func (s *ArchiveSearch) Run() Status {
	if s.Pattern.NumNonCanonicalBases >= s.Pattern.Length() {
		s.Stage = StageEnd
		s.ProcessingState = StateNoRegions
		s.Reason = ReasonAllN
		return StatusUnmapped
	}

	s.WS.Profile = region.Profile(s.Archive, s.Pattern.Key, s.Config.RegionConfig())
	s.Stage = StageFilteringAdaptive

	switch s.WS.Profile.Classification {
	case region.NoRegions:
		s.ProcessingState = StateNoRegions
		s.Stage = StageEnd
		s.Reason = ReasonNoRegions
		return StatusUnmapped
	case region.Exact:
		s.ProcessingState = StateExactMatches
		s.reportExact()
	default:
		s.ProcessingState = StateRegionProfiled
		s.generateAndVerifyCandidates()
		s.ProcessingState = StateCandidatesVerified
	}
	return s.Finish()
}

// reportExact handles region.Exact classification: the whole read matched
// the index exactly, zero or more times; every occurrence in the interval
// (bounded by MaxCandidatesPerSeed, per 4.4's interval-too-large discard
// rule) becomes a zero-distance trace with no BPM/SWG work needed.
func (s *ArchiveSearch) reportExact() {
	r := s.WS.Profile.Regions[0]
	if r.Interval.Size() > s.Config.MaxCandidatesPerSeed {
		return
	}
	m := s.Pattern.Length()
	for i := r.Interval.Lo; i < r.Interval.Hi; i++ {
		pos := s.Archive.SA(i)
		s.emitMatch(pos, 0, exactCigar(m), pos, pos+int64(m))
	}
}

func exactCigar(m int) []swg.CigarOp {
	return []swg.CigarOp{{Op: swg.OpMatch, Length: m}}
}

// generateAndVerifyCandidates handles region.Partitioned: cluster candidate
// regions, BPM-filter each, SWG-align the survivors, and record every
// accepted trace, per 4.4-4.6.
func (s *ArchiveSearch) generateAndVerifyCandidates() {
	cfg := s.Config.CandidateConfig(s.Pattern)
	result := candidate.Generate(s.Archive, s.WS.Profile, cfg, s.WS.VerifiedRegions())
	s.WS.Candidate = result

	for _, cr := range result.Regions {
		bpmResult := bpm.Verify(s.Archive, s.Pattern, cr.Anchor, s.Config.BPMMaxError())
		if !bpmResult.Accepted {
			continue
		}
		text := s.Archive.Text(bpmResult.TextBegin, bpmResult.TextEnd)
		align := swg.Align(s.Pattern.Key, text, bpmResult.BestColumn, s.Config.MaxBandwidth, s.Config.SWG)
		if align.EditDistance > s.Config.MaxError {
			continue
		}
		textBegin := bpmResult.TextBegin + int64(align.TextBegin)
		textEnd := bpmResult.TextBegin + int64(align.TextEnd)
		s.emitMatch(textBegin, align.EditDistance, align.Cigar, textBegin, textEnd)
		s.WS.MarkVerified(candidate.Region{Begin: textBegin, End: textEnd})
	}
}

// emitMatch resolves a global text position to a chromosome-relative
// position and records the trace, per 6's output contract.
func (s *ArchiveSearch) emitMatch(pos int64, distance int, cigar []swg.CigarOp, begin, end int64) {
	name, local, strand := s.Archive.LocateChromosome(pos)
	if name == "" {
		return
	}
	score := swgScore(cigar, s.Config.SWG)
	s.WS.Matches.AddTrace(matches.Trace{
		Chromosome:   name,
		Position:     local,
		Strand:       matches.Strand(strand),
		EditDistance: distance,
		SWGScore:     score,
		Cigar:        cigar,
		Begin:        begin,
		End:          end,
	})
}

func swgScore(cigar []swg.CigarOp, p swg.Params) int {
	score := 0
	for _, op := range cigar {
		switch op.Op {
		case swg.OpMatch:
			score += op.Length * p.Match
		case swg.OpMismatch:
			score += op.Length * p.Mismatch
		case swg.OpInsert, swg.OpDelete:
			score += p.GapOpen + op.Length*p.GapExtend
		}
	}
	return score
}

// Finish runs the asearch_control_next_state_filtering_adaptive /
// approximate_search_stepwise_finish sequence: assigns MAPQ now that every
// candidate for this read has been verified, and settles the final status.
func (s *ArchiveSearch) Finish() Status {
	AssignMAPQ(s.WS.Matches, s.Config.MAPQMax)
	s.Stage = StageEnd
	if len(s.WS.Matches.Traces) == 0 {
		s.Reason = ReasonNoCandidatesSurvivedVerification
		return StatusUnmapped
	}
	s.Reason = ReasonNone
	return StatusMapped
}

// AssignMAPQ scores the traces in m using the gap between the best and
// second-best observed edit distance, per 4.7/4.9's MAPQ contract: a read
// with a single, clearly-better placement gets a high score; one with a
// near-tied runner-up gets a low one. Only the best trace gets that score;
// every other trace gets 0.
func AssignMAPQ(m *matches.Store, maxMAPQ int) {
	if len(m.Traces) == 0 {
		return
	}
	m.Sort(matches.ByDistanceAsc)
	best := m.Traces[0]
	for i := range m.Traces {
		t := &m.Traces[i]
		if i == 0 {
			t.MAPQ = mapqFor(best, m.Metrics, maxMAPQ)
		} else {
			t.MAPQ = 0
		}
	}
}

func mapqFor(best matches.Trace, metrics matches.Metrics, maxMAPQ int) int {
	if metrics.Min2EditDistance < 0 {
		return maxMAPQ
	}
	gap := metrics.Min2EditDistance - metrics.Min1EditDistance
	if gap <= 0 {
		return 0
	}
	q := gap * 10
	if q > maxMAPQ {
		q = maxMAPQ
	}
	return q
}
