// Package paired implements the paired-end coordinator (component C9):
// run C8 independently on each mate, cross-filter the resulting matches by
// template window and orientation, and rescue a mate left unmapped by
// extending a BPM scan from the other mate's confident matches.
//
// Pair bookkeeping (which end is "left"/"right", matching by position) is
// grounded on markduplicates/read_pair.go's left/right pair model, and
// rescue-by-extension's either-direction scan is grounded on
// encoding/bampair's distant-mate resolution idiom, generalized from "find
// this read's mate in another shard" to "find this mate's rescue window in
// the archive".
package paired

import (
	"sort"

	"github.com/grailbio/gem3/archive"
	"github.com/grailbio/gem3/bpm"
	"github.com/grailbio/gem3/config"
	"github.com/grailbio/gem3/matches"
	"github.com/grailbio/gem3/search"
	"github.com/grailbio/gem3/seq"
	"github.com/grailbio/gem3/swg"
	"github.com/grailbio/gem3/workspace"
)

// Template is one candidate pairing of a mate1 trace with a mate2 trace
// that survives the template-window/orientation cross-filter.
type Template struct {
	Mate1, Mate2   matches.Trace
	Orientation    config.Orientation
	ObservedInsert int64
	MAPQ           int
	// Mate1Leftmost reports whether mate1's forward-genomic span starts at
	// or before mate2's, the sign SAM's TLEN column needs (positive for the
	// leftmost segment of a template, negative for the other).
	Mate1Leftmost bool
}

// Result is the outcome of searching one read pair: each end's own traces
// (after any rescue), the search status each end reached independently,
// and the cross-filtered templates built from them.
type Result struct {
	Mate1, Mate2   []matches.Trace
	Status1        search.Status
	Status2        search.Status
	Templates      []Template
}

// ExtensionCandidate describes one rescue-by-extension scan: the confident
// mate match it anchors from, and which strand copy to widen that anchor's
// window into. Naming the field SearchOnward (rather than e.g. a bare
// bool) mirrors filtering_candidates_extend_match's search_onward/
// candidate_end parameters, which the original uses to let one rescue scan
// cover either direction from its anchor; here the "direction" that
// matters is which of the chromosome's two strand copies the rescued mate
// is expected on, not a text offset, since GEM3's dual-strand archive
// already makes direction-from-anchor a strand choice rather than a
// coordinate-arithmetic one.
type ExtensionCandidate struct {
	Anchor       matches.Trace
	SearchOnward bool
}

// Search runs C8 on each mate independently, then applies cross-filtering
// and rescue-by-extension per 4.9.
func Search(idx archive.Archive, p1, p2 *seq.Pattern, cfg config.Config, ws1, ws2 *workspace.Workspace) Result {
	s1 := search.New(idx, p1, matches.Forward, cfg, ws1)
	status1 := s1.Run()
	s2 := search.New(idx, p2, matches.Forward, cfg, ws2)
	status2 := s2.Run()

	switch {
	case status1 == search.StatusMapped && status2 == search.StatusUnmapped:
		rescue(idx, p2, ws1.Matches.Traces, ws2.Matches, cfg)
		if len(ws2.Matches.Traces) > 0 {
			search.AssignMAPQ(ws2.Matches, cfg.MAPQMax)
			status2 = search.StatusMapped
		}
	case status2 == search.StatusMapped && status1 == search.StatusUnmapped:
		rescue(idx, p1, ws2.Matches.Traces, ws1.Matches, cfg)
		if len(ws1.Matches.Traces) > 0 {
			search.AssignMAPQ(ws1.Matches, cfg.MAPQMax)
			status1 = search.StatusMapped
		}
	}

	result := Result{
		Mate1:   ws1.Matches.Traces,
		Mate2:   ws2.Matches.Traces,
		Status1: status1,
		Status2: status2,
	}
	result.Templates = crossFilter(idx, result.Mate1, result.Mate2, cfg)
	AssignJointMAPQ(result.Templates, cfg.MAPQMax)
	return result
}

// crossFilter keeps every (mate1, mate2) pairing whose observed insert size
// falls within [cfg.PairMin, cfg.PairMax] and whose relative orientation is
// one of cfg.PairOrientations, per 4.9, sorted by joint SWG, then joint
// edit distance, then closeness to the expected insert size.
func crossFilter(idx archive.Archive, mate1, mate2 []matches.Trace, cfg config.Config) []Template {
	var templates []Template
	for _, t1 := range mate1 {
		for _, t2 := range mate2 {
			if t1.Chromosome != t2.Chromosome {
				continue
			}
			fb1, fe1 := forwardSpan(idx, t1)
			fb2, fe2 := forwardSpan(idx, t2)
			insert := observedInsert(fb1, fe1, fb2, fe2)
			if insert < int64(cfg.PairMin) || insert > int64(cfg.PairMax) {
				continue
			}
			o := orientationOf(t1, t2, fb1, fb2)
			if !allowedOrientation(cfg, o) {
				continue
			}
			templates = append(templates, Template{
				Mate1: t1, Mate2: t2, Orientation: o, ObservedInsert: insert,
				Mate1Leftmost: fb1 <= fb2,
			})
		}
	}
	expected := int64(cfg.PairMin+cfg.PairMax) / 2
	sort.SliceStable(templates, func(i, j int) bool {
		a, b := templates[i], templates[j]
		if sa, sb := jointSWG(a), jointSWG(b); sa != sb {
			return sa > sb
		}
		if da, db := jointDistance(a), jointDistance(b); da != db {
			return da < db
		}
		return absInt64(a.ObservedInsert-expected) < absInt64(b.ObservedInsert-expected)
	})
	return templates
}

// forwardSpan translates a trace's strand-relative local span into
// forward-genomic coordinates: a forward-strand trace's span is already
// forward-relative; a reverse-strand trace's local offset is measured from
// the start of the chromosome's reverse-complement copy, so it is mirrored
// back across the chromosome length.
func forwardSpan(idx archive.Archive, t matches.Trace) (begin, end int64) {
	length := t.End - t.Begin
	if t.Strand == matches.Forward {
		return t.Position, t.Position + length
	}
	_, _, chrLen := idx.ChromosomeBounds(t.Chromosome)
	return chrLen - (t.Position + length), chrLen - t.Position
}

// globalSpan is forwardSpan's inverse: given a forward-genomic interval on
// chromosome name, it returns the global text-space interval covering that
// same interval on the requested strand copy, clamped to the chromosome's
// bounds.
func globalSpan(idx archive.Archive, name string, begin, end int64, strand matches.Strand) (int64, int64, bool) {
	fwdStart, revStart, chrLen := idx.ChromosomeBounds(name)
	if chrLen == 0 {
		return 0, 0, false
	}
	if begin < 0 {
		begin = 0
	}
	if end > chrLen {
		end = chrLen
	}
	if begin >= end {
		return 0, 0, false
	}
	if strand == matches.Forward {
		return fwdStart + begin, fwdStart + end, true
	}
	return revStart + (chrLen - end), revStart + (chrLen - begin), true
}

func observedInsert(fb1, fe1, fb2, fe2 int64) int64 {
	lo, hi := fb1, fe2
	if fb2 < lo {
		lo = fb2
	}
	if fe1 > hi {
		hi = fe1
	}
	return hi - lo
}

// orientationOf classifies the relative strand/order of a mate pair into
// one of the four template orientations 4.9 names (FR/RF/FF/RR), ordering
// by forward-genomic coordinate rather than strand-local coordinate so a
// pair spanning both strand copies of the archive is judged the same way a
// pair entirely within one copy would be.
func orientationOf(t1, t2 matches.Trace, fb1, fb2 int64) config.Orientation {
	switch {
	case t1.Strand == matches.Forward && t2.Strand == matches.Reverse:
		if fb1 <= fb2 {
			return config.FR
		}
		return config.RF
	case t1.Strand == matches.Reverse && t2.Strand == matches.Forward:
		if fb2 <= fb1 {
			return config.FR
		}
		return config.RF
	case t1.Strand == matches.Forward && t2.Strand == matches.Forward:
		return config.FF
	default:
		return config.RR
	}
}

func allowedOrientation(cfg config.Config, o config.Orientation) bool {
	for _, a := range cfg.PairOrientations {
		if a == o {
			return true
		}
	}
	return false
}

func jointSWG(t Template) int      { return t.Mate1.SWGScore + t.Mate2.SWGScore }
func jointDistance(t Template) int { return t.Mate1.EditDistance + t.Mate2.EditDistance }

func absInt64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// AssignJointMAPQ scores every Template by the gap between the best and
// second-best joint edit distance, the same shape search.AssignMAPQ uses
// for single-end traces, per 4.9's "MAPQ is computed jointly".
func AssignJointMAPQ(templates []Template, maxMAPQ int) {
	if len(templates) == 0 {
		return
	}
	if len(templates) == 1 {
		templates[0].MAPQ = maxMAPQ
		return
	}
	gap := jointDistance(templates[1]) - jointDistance(templates[0])
	q := 0
	if gap > 0 {
		q = gap * 10
		if q > maxMAPQ {
			q = maxMAPQ
		}
	}
	templates[0].MAPQ = q
	for i := 1; i < len(templates); i++ {
		templates[i].MAPQ = 0
	}
}

// rescue implements rescue-by-extension: for each confident match of the
// mapped end, widen a [anchor-PairMax, anchor+PairMax] window in
// forward-genomic coordinates and scan it with the BPM scanner using the
// unmapped end's pattern, per 4.9. The window is scanned on both strand
// copies of the chromosome (ExtensionCandidate.SearchOnward false/true),
// since an FR/RF pair's rescued mate is expected on the anchor's opposite
// strand copy while an FF/RR pair's is expected on the same one, and
// rescue does not know the true orientation in advance — that is exactly
// what it is trying to recover. SWG-aligns any accepted scan and records
// the result as an Extended trace on target.
func rescue(idx archive.Archive, p *seq.Pattern, anchors []matches.Trace, target *matches.Store, cfg config.Config) {
	for _, anchor := range anchors {
		fb, fe := forwardSpan(idx, anchor)
		slack := int64(cfg.PairMax)
		for _, cand := range []ExtensionCandidate{
			{Anchor: anchor, SearchOnward: false},
			{Anchor: anchor, SearchOnward: true},
		} {
			strand := anchor.Strand
			if cand.SearchOnward {
				strand = oppositeStrand(anchor.Strand)
			}
			textBegin, textEnd, ok := globalSpan(idx, anchor.Chromosome, fb-slack, fe+slack, strand)
			if !ok || textEnd-textBegin < int64(p.Length()) {
				continue
			}
			tryRescue(idx, p, textBegin, textEnd, target, cfg)
		}
	}
}

func oppositeStrand(s matches.Strand) matches.Strand {
	if s == matches.Forward {
		return matches.Reverse
	}
	return matches.Forward
}

// tryRescue runs the BPM scan and, on acceptance, the SWG alignment and
// trace bookkeeping shared by both of rescue's per-anchor scan windows.
func tryRescue(idx archive.Archive, p *seq.Pattern, windowBegin, windowEnd int64, target *matches.Store, cfg config.Config) {
	text := idx.Text(windowBegin, windowEnd)
	scanResult := bpm.Scan(p, text, cfg.MaxError)
	if !scanResult.Accepted {
		return
	}
	align := swg.Align(p.Key, text, scanResult.Column, cfg.MaxBandwidth, cfg.SWG)
	if align.EditDistance > cfg.MaxError {
		return
	}
	textBegin := windowBegin + int64(align.TextBegin)
	textEnd := windowBegin + int64(align.TextEnd)
	name, local, strand := idx.LocateChromosome(textBegin)
	if name == "" {
		return
	}
	target.AddTrace(matches.Trace{
		Chromosome:   name,
		Position:     local,
		Strand:       matches.Strand(strand),
		EditDistance: align.EditDistance,
		SWGScore:     align.Score,
		Cigar:        align.Cigar,
		Begin:        textBegin,
		End:          textEnd,
		Extended:     true,
	})
}
