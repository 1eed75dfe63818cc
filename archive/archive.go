// Package archive defines the reference-archive collaborator consumed by the
// search core (C2 onward) and provides an in-memory reference implementation
// of it. The on-disk archive format and its loader are explicitly out of
// scope for the search core: C2 through C9 only ever see the Archive
// interface below, never a concrete file layout. The implementation in this
// package exists so the search core has something real to run against in
// tests and in the single-process command; a production deployment would
// swap it for an archive backed by a prebuilt, memory-mapped index.
package archive

import "github.com/grailbio/gem3/seq"

// Archive is the read-only reference collaborator. It is shared across
// workspaces; every method must be safe for concurrent use by many
// goroutines, since each search worker holds its own borrowed handle to the
// same archive.
type Archive interface {
	// N returns the length of the indexed text, in symbols. The indexed text
	// is the concatenation of every chromosome's forward strand, its
	// reverse complement, and separators; N is the size of that
	// concatenation, not the sum of chromosome lengths.
	N() int64

	// Text returns symbols [i, j) of the indexed text.
	Text(i, j int64) []seq.Code

	// Rank returns C[c] + Occ(c, pos): the number of text symbols
	// lexicographically smaller than c, plus the number of occurrences of c
	// in the indexed text's BWT at positions [0, pos). This is the rank/occ
	// primitive the FM-index backward search step (C2) is built on; with
	// C[c] already folded in, one step is Interval{Rank(c,lo), Rank(c,hi)}.
	Rank(c seq.Code, pos int64) int64

	// SA returns the suffix-array value at index i: the text offset of the
	// suffix ranked i'th among all suffixes.
	SA(i int64) int64

	// LocateChromosome maps a text position back to chromosome coordinates.
	// strand is '+' if pos falls within a chromosome's forward strand and
	// '-' if it falls within the embedded reverse complement.
	LocateChromosome(pos int64) (name string, offset int64, strand byte)

	// SeedPositions returns candidate genome positions for a canonical
	// k-mer, using the auxiliary seed index (see seedindex.go) rather than
	// an FM-index backward search. It is an optional acceleration path for
	// C3/C4: a nil/empty result does not mean the k-mer is absent from the
	// text, only that it is absent from (or was capped out of) the seed
	// index, and the caller must fall back to backward search.
	SeedPositions(kmer seq.Kmer) []int64

	// ChromosomeBounds returns the named chromosome's forward-strand
	// length and the global text-space offsets its forward and
	// reverse-complement copies start at, or all zero if no chromosome by
	// that name was indexed. The paired-end coordinator (C9) uses this to
	// translate between forward-genomic coordinates and whichever strand
	// copy a trace actually landed in, both when computing observed insert
	// size and when widening a rescue-by-extension scan window onto the
	// copy the rescued mate is expected to appear in.
	ChromosomeBounds(name string) (fwdStart, revStart, length int64)

	// Chromosomes lists every indexed chromosome's name and forward-strand
	// length, in load order, so a caller can build a SAM header (the
	// reference dictionary) without re-reading the input FASTA.
	Chromosomes() []ChromosomeInfo
}

// ChromosomeInfo names one indexed chromosome and its forward-strand
// length, as returned by Archive.Chromosomes.
type ChromosomeInfo struct {
	Name   string
	Length int64
}
