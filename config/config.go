// Package config holds the mapper's tunable parameters, grouped by the
// pipeline stage that consumes them, in the same flat-Opts-plus-DefaultOpts shape
// fusion.Opts/fusion.DefaultOpts uses: a single struct the CLI layer fills in
// from flags, and every other package takes as a plain value, never a global.
package config

import (
	"github.com/grailbio/gem3/candidate"
	"github.com/grailbio/gem3/region"
	"github.com/grailbio/gem3/seq"
	"github.com/grailbio/gem3/swg"
)

// Config collects every tunable the search pipeline (component C8) needs,
// split by the stage that consumes it.
type Config struct {
	// MaxError is the maximum edit distance a reported match may have.
	MaxError int
	// MaxBandwidth bounds the SWG alignment's diagonal band radius.
	MaxBandwidth int

	// MinSeedLength/MaxSeedLength/MaxCandidatesPerSeed/SamplingRate/
	// MinRegionsForStratum feed region.Config (seed profiling, C3).
	MinSeedLength         int
	MaxSeedLength         int
	MaxCandidatesPerSeed  int64
	SamplingRate          float64
	MinRegionsForStratum  int

	// SeedK is the k-mer length the archive's seed index was built with.
	SeedK int

	// KmerThreshold/KmerFilterK parameterize the candidate generator's
	// k-mer filter (4.4): a candidate region is discarded unless its
	// decoded reference window shares at least KmerThreshold k-mers
	// (measured at width KmerFilterK) with the pattern's own k-mer
	// histogram. KmerThreshold <= 0 disables the filter.
	KmerThreshold int
	KmerFilterK   int

	// NumThreads is the worker-pool width (0 means runtime.NumCPU()).
	NumThreads int

	// MaxMatchesReported caps how many alignments are kept per read after
	// sorting, per 4.7/4.9's "report up to N" contract.
	MaxMatchesReported int

	// MAPQ model parameters: the gap between best and second-best score
	// used to scale confidence, per 4.9.
	MAPQMax int

	SWG swg.Params

	// PairMin/PairMax bound the template window a paired-end coordinator
	// (C9) cross-filters candidate regions against; PairOrientations lists
	// which of the four relative-strand orientations (FR/RF/FF/RR) are
	// accepted.
	PairMin          int
	PairMax          int
	PairOrientations []Orientation
}

// Orientation is one of the four relative mate-strand arrangements a
// paired-end template may be required to have.
type Orientation int

const (
	// FR: mate1 forward, mate2 reverse, mate1 upstream of mate2 — the
	// standard Illumina paired-end orientation.
	FR Orientation = iota
	RF
	FF
	RR
)

func (o Orientation) String() string {
	switch o {
	case FR:
		return "FR"
	case RF:
		return "RF"
	case FF:
		return "FF"
	case RR:
		return "RR"
	default:
		return "?"
	}
}

// ParseOrientation maps one of the four orientation names back to its
// Orientation value, for decoding the CLI's comma-separated
// -pair-orientations flag.
func ParseOrientation(s string) (Orientation, bool) {
	switch s {
	case "FR":
		return FR, true
	case "RF":
		return RF, true
	case "FF":
		return FF, true
	case "RR":
		return RR, true
	default:
		return 0, false
	}
}

// DefaultConfig mirrors a typical short-read run: short seeds, a handful of
// percent-identity errors tolerated, affine-gap scoring tuned for mostly
// exact matches with occasional single-base events.
var DefaultConfig = Config{
	MaxError:             4,
	MaxBandwidth:          8,
	MinSeedLength:        8,
	MaxSeedLength:        20,
	MaxCandidatesPerSeed: 200,
	SamplingRate:         1.0,
	MinRegionsForStratum: 1,
	SeedK:                16,
	KmerThreshold:        0,
	KmerFilterK:          4,
	NumThreads:           0,
	MaxMatchesReported:   10,
	MAPQMax:              60,
	SWG:                  swg.DefaultParams(),
	PairMin:              0,
	PairMax:              1000,
	PairOrientations:     []Orientation{FR},
}

// RegionConfig projects the subset of Config region.Profile needs.
func (c Config) RegionConfig() region.Config {
	return region.Config{
		MaxCandidatesPerSeed: c.MaxCandidatesPerSeed,
		SamplingRate:         c.SamplingRate,
		MaxSeedLength:        c.MaxSeedLength,
		MinSeedLength:        c.MinSeedLength,
		MinRegionsForStratum: c.MinRegionsForStratum,
	}
}

// CandidateConfig projects the subset of Config candidate.Generate needs for
// p, including the k-mer filter's pattern-side histogram (built lazily, and
// cached on p, the first time the filter is enabled for this pattern).
func (c Config) CandidateConfig(p *seq.Pattern) candidate.Config {
	if c.KmerThreshold > 0 && (p.Kmers == nil || p.Kmers.K != c.KmerFilterK) {
		p.Kmers = seq.BuildKmerHistogramCodes(p.Key, c.KmerFilterK)
	}
	return candidate.Config{
		MaxCandidatesPerSeed: c.MaxCandidatesPerSeed,
		PatternLength:        p.Length(),
		MaxError:             c.MaxError,
		KmerThreshold:        c.KmerThreshold,
		KmerK:                c.KmerFilterK,
		PatternKmers:         p.Kmers,
	}
}

// BPMMaxError is split out so search can shrink the BPM error budget per
// candidate region (4.1's per-region max_error_tile accounting) without
// touching the rest of Config.
func (c Config) BPMMaxError() int { return c.MaxError }
