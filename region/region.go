// Package region implements the region profiler (component C3): it
// partitions a compiled pattern into seeds, profiles each seed's exact
// match against the FM-index, and classifies the read as no-regions, exact,
// or partitioned. Candidate generation (package candidate) consumes the
// resulting Profile.
package region

import (
	"github.com/grailbio/gem3/fmindex"
	"github.com/grailbio/gem3/seq"
)

// Region is one seed's profile: its span within the read and the SA
// interval its exact match resolved to. All regions produced by this
// package are exact matches of their read span, so MaxError is always 0 —
// error budget is distributed downstream, during candidate verification,
// not during profiling.
type Region struct {
	Begin, End int // half-open span within the read
	Interval   fmindex.Interval
	MaxError   int
}

// Classification buckets a profiled read the way the search state machine
// (C8) needs to pick its next transition.
type Classification int

const (
	// NoRegions means the filter produced no usable regions at all (every
	// candidate seed's interval was empty): the read cannot be placed by
	// seed-and-extend and must fall back to neighborhood search or be
	// reported unmapped.
	NoRegions Classification = iota
	// Exact means a single seed covered the entire read with a non-empty
	// interval: the read matches the reference exactly, zero or more
	// times, with no need for BPM/SWG verification.
	Exact
	// Partitioned is the common case: more than one region, to be handed
	// to candidate generation for clustering and verification.
	Partitioned
)

// Profile is the output of region profiling for one pattern (and, for
// paired/bidirectional search, one strand of one pattern).
type Profile struct {
	Regions        []Region
	Classification Classification
	// MCS is the minimum complete stratum: a lower bound on the number of
	// errors any alignment of this read must have, computed here as the
	// count of regions with MaxError == 0 (all of them, since this
	// profiler only emits exact seeds).
	MCS int
}

// Config parameterizes adaptive and fixed profiling.
type Config struct {
	// MaxCandidatesPerSeed bounds how large a seed's SA interval may grow
	// before candidate decoding becomes too expensive; SamplingRate scales
	// that bound into the adaptive stopping threshold.
	MaxCandidatesPerSeed int64
	SamplingRate         float64
	// MaxSeedLength caps how long any one seed may grow, independent of
	// its interval size.
	MaxSeedLength int
	// MinSeedLength is the equal seed width fixed profiling falls back to.
	MinSeedLength int
	// MinRegionsForStratum is the number of regions adaptive profiling
	// must produce for the read's configured error stratum; falling short
	// triggers the fixed-width fallback.
	MinRegionsForStratum int
}

func (cfg Config) decodeThreshold() int64 {
	t := int64(cfg.SamplingRate * float64(cfg.MaxCandidatesPerSeed))
	if t < 1 {
		t = 1
	}
	return t
}

// Profile profiles key (a pattern's encoded read, or its reverse
// complement) against idx, running adaptive profiling first and falling
// back to fixed-width profiling if adaptive did not produce enough regions
// for the configured stratum.
func Profile(idx fmindex.Index, key []seq.Code, cfg Config) *Profile {
	p := profileAdaptive(idx, key, cfg)
	if len(p.Regions) < cfg.MinRegionsForStratum && cfg.MinSeedLength > 0 {
		fixed := profileFixed(idx, key, cfg)
		if len(fixed.Regions) > len(p.Regions) {
			p = fixed
		}
	}
	Classify(p, len(key))
	return p
}

// Classify computes MCS and Classification for a Profile whose Regions were
// produced some other way (e.g. a GPU-buffered stepwise retrieve instead of
// profileAdaptive/profileFixed): exported so package search can classify a
// profile it assembled itself from gpu.FMSearchBuffer results without
// duplicating this logic.
func Classify(p *Profile, m int) { classify(p, m) }

// profileAdaptive scans left to right, opening a new seed at the current
// position and growing it one symbol at a time until either its SA
// interval shrinks to the decode-cheap threshold or it reaches
// MaxSeedLength, per 4.3. Backward search only extends a match leftward, so
// each grown seed key[pos:end+1] is searched afresh.
func profileAdaptive(idx fmindex.Index, key []seq.Code, cfg Config) *Profile {
	p := &Profile{}
	threshold := cfg.decodeThreshold()
	m := len(key)
	pos := 0
	for pos < m {
		end := pos
		iv := fmindex.Full(idx)
		maxLen := cfg.MaxSeedLength
		if maxLen <= 0 || pos+maxLen > m {
			maxLen = m - pos
		}
		for end < pos+maxLen {
			next, _ := fmindex.BackwardSearch(idx, key[pos:end+1])
			if next.Empty() {
				break
			}
			iv = next
			end++
			if iv.Size() <= threshold {
				break
			}
		}
		if end == pos {
			// Even a single symbol failed to extend the interval: advance
			// past it so profiling makes progress instead of looping.
			end = pos + 1
			iv = fmindex.Interval{}
		}
		p.Regions = append(p.Regions, Region{Begin: pos, End: end, Interval: iv})
		pos = end
	}
	return p
}

// profileFixed partitions key into equal-width, non-overlapping seeds of
// MinSeedLength (the last seed absorbs any remainder), each searched
// independently. Used when adaptive profiling cannot produce enough
// regions for the read's error stratum.
func profileFixed(idx fmindex.Index, key []seq.Code, cfg Config) *Profile {
	p := &Profile{}
	m := len(key)
	width := cfg.MinSeedLength
	if width <= 0 {
		width = m
	}
	for pos := 0; pos < m; pos += width {
		end := pos + width
		if end > m || m-end < width {
			end = m
		}
		iv, consumed := fmindex.BackwardSearch(idx, key[pos:end])
		if consumed < end-pos {
			iv = fmindex.Interval{}
		}
		p.Regions = append(p.Regions, Region{Begin: pos, End: end, Interval: iv})
		if end == m {
			break
		}
	}
	return p
}

func classify(p *Profile, m int) {
	p.MCS = 0
	nonEmpty := 0
	for _, r := range p.Regions {
		if r.MaxError == 0 {
			p.MCS++
		}
		if !r.Interval.Empty() {
			nonEmpty++
		}
	}
	switch {
	case nonEmpty == 0:
		p.Classification = NoRegions
	case len(p.Regions) == 1 && p.Regions[0].Begin == 0 && p.Regions[0].End == m && !p.Regions[0].Interval.Empty():
		p.Classification = Exact
	default:
		p.Classification = Partitioned
	}
}
