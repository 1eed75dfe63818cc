// Package matches implements the matches store and metrics (component C7):
// trace-match deduplication by begin/end position, distance counters, sort
// variants, and the aggregated metrics MAPQ assignment consumes.
package matches

import (
	"sort"

	"github.com/grailbio/gem3/swg"
)

// Strand is the orientation a trace-match was found on.
type Strand byte

const (
	Forward Strand = '+'
	Reverse Strand = '-'
)

// Trace is a concrete alignment: a complete record of one reported hit.
type Trace struct {
	Chromosome   string
	Position     int64 // local position within Chromosome
	Strand       Strand
	EditDistance int
	SWGScore     int
	MAPQ         int
	Cigar        []swg.CigarOp
	// Begin/End are the trace's [begin, end) span in the shared,
	// cross-chromosome text coordinate space: the keys dedup indexes on.
	Begin, End int64
	// Extended marks a paired-end rescue-by-extension trace (C9).
	Extended bool
}

// Store owns every match found so far for one read (or one end of a pair):
// the trace-match list, the per-distance counters, and the begin/end dedup
// indices, per 4.7 and the Matches container in the data model. It keeps no
// separate interval-match list.
type Store struct {
	Traces   []Trace
	Counters map[int]int // counters[distance] = count of net-inserted traces at that distance

	beginIndex map[int64]int // Trace.Begin -> index into Traces
	endIndex   map[int64]int // Trace.End -> index into Traces

	// Metrics, updated incrementally as traces are added.
	Metrics Metrics
}

// Metrics aggregates the best/second-best observations MAPQ classification
// needs, per 4.7's "metrics" attribute.
type Metrics struct {
	Min1EditDistance, Min2EditDistance int
	Max1SWGScore, Max2SWGScore         int
	MCS                                int
}

// NewStore returns an empty matches store.
func NewStore() *Store {
	return &Store{
		Counters:   map[int]int{},
		beginIndex: map[int64]int{},
		endIndex:   map[int64]int{},
		Metrics:    Metrics{Min1EditDistance: -1, Min2EditDistance: -1},
	}
}

// Reset clears s back to the empty state NewStore produces, reusing its
// backing maps and slice so a worker can recycle one Store across reads
// instead of allocating a fresh one per read.
func (s *Store) Reset() {
	s.Traces = s.Traces[:0]
	for k := range s.Counters {
		delete(s.Counters, k)
	}
	for k := range s.beginIndex {
		delete(s.beginIndex, k)
	}
	for k := range s.endIndex {
		delete(s.endIndex, k)
	}
	s.Metrics = Metrics{Min1EditDistance: -1, Min2EditDistance: -1}
}

// AddTrace inserts m, deduplicating by begin and end position: if an
// existing trace shares m's begin or end, the better-scoring of the two
// survives (replacing in place on a tie, per 4.7's "worse or equal"
// language so the newest observation wins ties deterministically).
// Returns true if m caused a net insertion (new trace, not a replacement),
// the condition under which counters[distance] is incremented.
func (s *Store) AddTrace(m Trace) bool {
	if idx, ok := s.lookupDup(m); ok {
		existing := s.Traces[idx]
		if m.betterThan(existing) || m.equalScore(existing) {
			s.Counters[existing.EditDistance]--
			s.Traces[idx] = m
			s.reindex(idx)
			s.Counters[m.EditDistance]++
			s.updateMetrics(m)
		}
		return false
	}
	s.Traces = append(s.Traces, m)
	idx := len(s.Traces) - 1
	s.beginIndex[m.Begin] = idx
	s.endIndex[m.End] = idx
	s.Counters[m.EditDistance]++
	s.updateMetrics(m)
	return true
}

func (s *Store) lookupDup(m Trace) (int, bool) {
	if idx, ok := s.beginIndex[m.Begin]; ok {
		return idx, true
	}
	if idx, ok := s.endIndex[m.End]; ok {
		return idx, true
	}
	return 0, false
}

func (s *Store) reindex(idx int) {
	m := s.Traces[idx]
	s.beginIndex[m.Begin] = idx
	s.endIndex[m.End] = idx
}

// betterThan reports whether a strictly dominates b: lower edit distance,
// or equal distance and higher SWG score.
func (a Trace) betterThan(b Trace) bool {
	if a.EditDistance != b.EditDistance {
		return a.EditDistance < b.EditDistance
	}
	return a.SWGScore > b.SWGScore
}

func (a Trace) equalScore(b Trace) bool {
	return a.EditDistance == b.EditDistance && a.SWGScore == b.SWGScore
}

func (s *Store) updateMetrics(m Trace) {
	s.Metrics.Min1EditDistance, s.Metrics.Min2EditDistance = updateMin2(s.Metrics.Min1EditDistance, s.Metrics.Min2EditDistance, m.EditDistance)
	s.Metrics.Max1SWGScore, s.Metrics.Max2SWGScore = updateMax2(s.Metrics.Max1SWGScore, s.Metrics.Max2SWGScore, m.SWGScore)
}

func updateMin2(min1, min2, v int) (int, int) {
	if min1 < 0 || v < min1 {
		return v, min1
	}
	if min2 < 0 || v < min2 {
		return min1, v
	}
	return min1, min2
}

func updateMax2(max1, max2, v int) (int, int) {
	if v > max1 {
		return v, max1
	}
	if v > max2 {
		return max1, v
	}
	return max1, max2
}

// SortOrder selects one of the stable sort variants 4.7 names.
type SortOrder int

const (
	ByDistanceAsc SortOrder = iota
	BySWGDesc
	ByMAPQDesc
	ByChromosomePosition
)

// Sort stably reorders s.Traces in place by order.
func (s *Store) Sort(order SortOrder) {
	less := func(i, j int) bool {
		a, b := s.Traces[i], s.Traces[j]
		switch order {
		case ByDistanceAsc:
			return a.EditDistance < b.EditDistance
		case BySWGDesc:
			return a.SWGScore > b.SWGScore
		case ByMAPQDesc:
			return a.MAPQ > b.MAPQ
		case ByChromosomePosition:
			if a.Chromosome != b.Chromosome {
				return a.Chromosome < b.Chromosome
			}
			return a.Position < b.Position
		}
		return false
	}
	sort.SliceStable(s.Traces, less)
}

// Primary returns the minimum-distance / maximum-score entry after a
// ByDistanceAsc sort, and Subdominant returns the next distinct entry (by
// distance or score), per 4.7. Both return ok=false on an empty store.
func (s *Store) Primary() (Trace, bool) {
	if len(s.Traces) == 0 {
		return Trace{}, false
	}
	s.Sort(ByDistanceAsc)
	return s.Traces[0], true
}

func (s *Store) Subdominant() (Trace, bool) {
	if len(s.Traces) < 2 {
		return Trace{}, false
	}
	s.Sort(ByDistanceAsc)
	primary := s.Traces[0]
	for _, t := range s.Traces[1:] {
		if t.EditDistance != primary.EditDistance || t.SWGScore != primary.SWGScore {
			return t, true
		}
	}
	return Trace{}, false
}
