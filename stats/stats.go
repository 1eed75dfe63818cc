// Package stats implements thread-local profiling counters (the ambient
// stack's stats collaborator): each worker accumulates its own Stats value
// with no locking, and the driver merges every worker's counters together at
// shutdown, the same shape fusion.Stats uses for bio-fusion's stage1 run.
package stats

// Stats is one worker's (or, after Merge, the whole run's) counters over the
// reads it processed.
type Stats struct {
	// Reads is the total number of reads processed.
	Reads int
	// Mapped is the number of reads that produced at least one trace.
	Mapped int
	// Unmapped is the number of reads reported unmapped, broken down by why.
	UnmappedNoRegions                int
	UnmappedAllN                     int
	UnmappedNoCandidatesSurvived     int
	// CandidatesGenerated/CandidatesDiscarded count candidate.Region
	// decisions across every read.
	CandidatesGenerated int
	CandidatesDiscarded int
	// BPMAccepted/BPMRejected count bpm.Verify outcomes.
	BPMAccepted int
	BPMRejected int
	// SWGAligned counts how many BPM-accepted candidates went on to SWG
	// alignment (a subset of BPMAccepted, since a SWG result can still be
	// rejected for exceeding max_error after alignment).
	SWGAligned int
	// PairsRescued counts paired-end rescue-by-extension successes (C9).
	PairsRescued int
	// EditDistanceHistogram[d] is the number of reported traces with edit
	// distance d; index len-1 absorbs every distance at or beyond it.
	EditDistanceHistogram [8]int
}

// Merge adds o's counters into a copy of s and returns it, the same
// value-receiver shape fusion.Stats.Merge uses so a driver can fold per-
// worker Stats together without synchronization during the run itself.
func (s Stats) Merge(o Stats) Stats {
	s.Reads += o.Reads
	s.Mapped += o.Mapped
	s.UnmappedNoRegions += o.UnmappedNoRegions
	s.UnmappedAllN += o.UnmappedAllN
	s.UnmappedNoCandidatesSurvived += o.UnmappedNoCandidatesSurvived
	s.CandidatesGenerated += o.CandidatesGenerated
	s.CandidatesDiscarded += o.CandidatesDiscarded
	s.BPMAccepted += o.BPMAccepted
	s.BPMRejected += o.BPMRejected
	s.SWGAligned += o.SWGAligned
	s.PairsRescued += o.PairsRescued
	for i, n := range o.EditDistanceHistogram {
		s.EditDistanceHistogram[i] += n
	}
	return s
}

// RecordDistance bumps the edit-distance histogram bucket for d, clamping
// into the last bucket for any distance at or beyond its width.
func (s *Stats) RecordDistance(d int) {
	if d < 0 {
		return
	}
	if d >= len(s.EditDistanceHistogram) {
		d = len(s.EditDistanceHistogram) - 1
	}
	s.EditDistanceHistogram[d]++
}
