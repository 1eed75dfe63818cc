// Package candidate implements the candidate generator (component C4): it
// decodes region profiles' SA intervals into reference positions, clusters
// them into filtering regions, and deduplicates against a growing
// verified-regions set. The clustering sweep and the verified-set
// containment check both run over sorted-endpoint representations, the
// idiom the interval package uses for interval-union membership tests.
package candidate

import (
	"fmt"
	"sort"

	"github.com/grailbio/gem3/interval"
	"github.com/grailbio/gem3/region"
	"github.com/grailbio/gem3/seq"
)

// Seed is one supporting seed of a filtering region: the region it was
// decoded from plus the projected candidate read-start position it
// contributed.
type Seed struct {
	RegionBegin, RegionEnd int // seed span within the read
	Position               int64
}

// Region is one filtering region: a cluster of decoded, read-start-aligned
// positions that are mutually compatible with a single alignment, plus the
// seeds that produced them. Begin/End describe the position span the
// cluster covers in the reference text; Anchor is the single position
// within that span to actually verify from — the most-voted projected
// position, not just the span's minimum, so that a cluster containing a
// few frame-shifted seeds (an internal tandem repeat voting for a slightly
// different start) still verifies from the position most seeds agree on.
type Region struct {
	Begin, End int64
	Anchor     int64
	Seeds      []Seed
}

// Discarded records a region the generator decided not to keep, along with
// why: first-class bookkeeping per the expanded spec, distinct from a
// region that was simply never generated.
type Discarded struct {
	Region Region
	Reason string
}

// Result is the candidate generator's output for one profile.
type Result struct {
	Regions   []Region
	Discarded []Discarded
}

// Config parameterizes candidate generation.
type Config struct {
	// MaxCandidatesPerSeed caps hi-lo for a region to be decoded at all;
	// larger intervals are too expensive to enumerate and are discarded.
	MaxCandidatesPerSeed int64
	// PatternLength and MaxError together set the clustering distance: two
	// projected positions join the same region iff they are within
	// PatternLength+MaxError of each other.
	PatternLength int
	MaxError      int

	// KmerThreshold, KmerK, and PatternKmers parameterize the supplemented
	// k-mer filter (4.4): a candidate region is discarded before
	// BPM/SWG verification unless its decoded reference window shares at
	// least KmerThreshold k-mers (counted by seq.SharedKmers, at width
	// KmerK) with the pattern's own histogram. KmerThreshold <= 0 disables
	// the filter entirely (PatternKmers may be left nil in that case).
	KmerThreshold int
	KmerK         int
	PatternKmers  *seq.KmerHistogram
}

func (cfg Config) clusterDistance() int64 {
	return int64(cfg.PatternLength + cfg.MaxError)
}

// Decoder is the archive surface candidate generation needs: looking up
// where the i'th suffix-array entry actually sits in the reference text,
// and (only when the k-mer filter is enabled) reading back a candidate
// window's symbols to score against the pattern's k-mer histogram.
type Decoder interface {
	SA(i int64) int64
	Text(i, j int64) []seq.Code
}

// Generate decodes every seedable region of p against idx and clusters the
// results, skipping any region whose interval is already fully covered by
// verified (a sorted, non-overlapping set of previously verified spans, in
// ascending order).
func Generate(idx Decoder, p *region.Profile, cfg Config, verified []Region) Result {
	var res Result

	type projected struct {
		pos    int64
		seed   Seed
	}
	var all []projected

	for _, r := range p.Regions {
		if r.Interval.Empty() {
			continue
		}
		if r.Interval.Size() > cfg.MaxCandidatesPerSeed {
			res.Discarded = append(res.Discarded, Discarded{
				Region: Region{Seeds: []Seed{{RegionBegin: r.Begin, RegionEnd: r.End}}},
				Reason: "interval exceeds max_candidates_per_seed",
			})
			continue
		}
		for i := r.Interval.Lo; i < r.Interval.Hi; i++ {
			pos := idx.SA(i) - int64(r.Begin)
			all = append(all, projected{
				pos: pos,
				seed: Seed{RegionBegin: r.Begin, RegionEnd: r.End, Position: pos},
			})
		}
	}

	// Tie-break on cluster boundaries: deterministic by (position,
	// seed-offset) ascending, per 4.4.
	sort.Slice(all, func(i, j int) bool {
		if all[i].pos != all[j].pos {
			return all[i].pos < all[j].pos
		}
		return all[i].seed.RegionBegin < all[j].seed.RegionBegin
	})

	dist := cfg.clusterDistance()
	var votes []map[int64]int
	var clusters []Region
	for _, pr := range all {
		if n := len(clusters); n > 0 && pr.pos-clusters[n-1].End <= dist {
			c := &clusters[n-1]
			c.Seeds = append(c.Seeds, pr.seed)
			if pr.pos > c.End {
				c.End = pr.pos
			}
			votes[n-1][pr.pos]++
		} else {
			clusters = append(clusters, Region{Begin: pr.pos, End: pr.pos, Seeds: []Seed{pr.seed}})
			votes = append(votes, map[int64]int{pr.pos: 1})
		}
	}
	for i := range clusters {
		clusters[i].Anchor = modePosition(votes[i])
	}

	endpoints := verifiedEndpoints(verified)
	for _, c := range clusters {
		if coveredByVerified(c, endpoints) {
			res.Discarded = append(res.Discarded, Discarded{Region: c, Reason: "fully covered by a verified region"})
			continue
		}
		if reason, ok := cfg.kmerFilterReject(idx, c); ok {
			res.Discarded = append(res.Discarded, Discarded{Region: c, Reason: reason})
			continue
		}
		res.Regions = append(res.Regions, c)
	}
	return res
}

// kmerFilterReject applies the supplemented k-mer filter (4.4): it decodes
// c's candidate window and discards the region if the window shares fewer
// than KmerThreshold k-mers with the pattern. A larger KmerThreshold is a
// stricter filter (it demands more shared k-mer support before trusting a
// candidate), so raising it can turn an accepted region into a discarded
// one for the same read and candidate window.
func (cfg Config) kmerFilterReject(idx Decoder, c Region) (string, bool) {
	if cfg.KmerThreshold <= 0 || cfg.PatternKmers == nil {
		return "", false
	}
	window := idx.Text(c.Begin, c.Begin+int64(cfg.PatternLength))
	windowKmers := seq.BuildKmerHistogramCodes(window, cfg.KmerK)
	shared := seq.SharedKmers(cfg.PatternKmers, windowKmers)
	if shared < cfg.KmerThreshold {
		return fmt.Sprintf("k-mer filter: %d shared k-mers < threshold %d", shared, cfg.KmerThreshold), true
	}
	return "", false
}

// modePosition picks the most-voted position in a cluster, breaking ties
// toward the smallest position for determinism.
func modePosition(votes map[int64]int) int64 {
	var best int64
	bestCount := -1
	for pos, count := range votes {
		if count > bestCount || (count == bestCount && pos < best) {
			best, bestCount = pos, count
		}
	}
	return best
}

// verifiedEndpoints builds the sorted-endpoint interval-union
// representation the interval package's UnionScanner expects, from a set of
// already-verified (and therefore non-overlapping, by construction of this
// package's own output) regions.
func verifiedEndpoints(verified []Region) []interval.PosType {
	sorted := append([]Region(nil), verified...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Begin < sorted[j].Begin })
	endpoints := make([]interval.PosType, 0, 2*len(sorted))
	for _, r := range sorted {
		endpoints = append(endpoints, interval.PosType(r.Begin), interval.PosType(r.End+1))
	}
	return endpoints
}

// coveredByVerified reports whether c.Begin and c.End both fall inside the
// same verified interval, i.e. the candidate is wholly redundant.
func coveredByVerified(c Region, endpoints []interval.PosType) bool {
	if len(endpoints) == 0 {
		return false
	}
	beginIdx := interval.NewEndpointIndex(interval.PosType(c.Begin), endpoints)
	if !beginIdx.Contained() {
		return false
	}
	endIdx := interval.NewEndpointIndex(interval.PosType(c.End), endpoints)
	return endIdx.Contained() && endIdx.Begin() == beginIdx.Begin()
}
