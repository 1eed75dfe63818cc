// Package fmindex implements exact backward search over an archive.Archive
// (component C2). It is a thin layer: all the succinct-index machinery
// (rank/occ, the suffix array) belongs to the archive collaborator, and this
// package only drives the backward-search recurrence and exposes the SA
// interval result to the region profiler (C3).
package fmindex

import "github.com/grailbio/gem3/seq"

// Interval is a half-open range [Lo, Hi) in the reference suffix array: all
// suffixes in this range share the search pattern as a prefix. An empty
// interval (Lo == Hi) is a first-class "no hit" result, not an error.
type Interval struct {
	Lo, Hi int64
}

// Empty reports whether the interval contains no suffixes.
func (iv Interval) Empty() bool { return iv.Lo >= iv.Hi }

// Size returns the number of suffixes (and therefore occurrences) the
// interval covers.
func (iv Interval) Size() int64 { return iv.Hi - iv.Lo }

// Index is the minimal archive surface backward search needs: a text length
// and a rank query. It is satisfied by archive.Archive.
type Index interface {
	N() int64
	Rank(c seq.Code, pos int64) int64
}

// Full returns the interval spanning the entire indexed text, the starting
// point of every backward search.
func Full(idx Index) Interval {
	return Interval{Lo: 0, Hi: idx.N()}
}

// Extend narrows iv by one symbol c, prepended to the pattern already
// matched by iv (backward search walks the pattern right to left). The
// result is empty iff c does not extend any suffix currently in iv.
//
// This is the single rank/occ step the FM-index backward-search recurrence
// is built from: countLess(c) counts symbols that sort before c (the C[c]
// array in the classic formulation). No C[c] lookup happens here: Rank
// already adds it to the occurrence count, so its values at iv's endpoints
// are the new interval's bounds.
func Extend(idx Index, iv Interval, c seq.Code) Interval {
	if iv.Empty() {
		return iv
	}
	return Interval{
		Lo: idx.Rank(c, iv.Lo),
		Hi: idx.Rank(c, iv.Hi),
	}
}

// BackwardSearch runs exact backward search for the full symbol sequence
// key, right to left, short-circuiting as soon as the interval becomes
// empty (GEM3 calls this the seed's SA interval). It returns the number of
// symbols actually consumed before the interval emptied (or len(key) on a
// full match) alongside the resulting interval, so callers can tell an
// "empty from the start" (first symbol already absent) from a "matched a
// prefix, then failed" outcome — the region profiler needs the latter to
// decide where a seed's match against the genome gave out.
func BackwardSearch(idx Index, key []seq.Code) (Interval, int) {
	iv := Full(idx)
	for i := len(key) - 1; i >= 0; i-- {
		next := Extend(idx, iv, key[i])
		if next.Empty() {
			return next, len(key) - 1 - i
		}
		iv = next
	}
	return iv, len(key)
}
