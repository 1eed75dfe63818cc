package archive

import (
	"io"
	"sort"

	"github.com/grailbio/gem3/encoding/fasta"
	"github.com/grailbio/gem3/seq"
	"github.com/pkg/errors"
)

// chromosome records where one input sequence's forward and reverse
// complement strands land in the concatenated index text.
type chromosome struct {
	name        string
	fwdStart    int64
	length      int64
	revStart    int64 // offset of this chromosome's reverse complement
}

const checkpointStride = 64

// reference is an in-memory Archive built by loading a FASTA file in full.
// It indexes the forward strand of every input sequence plus its reverse
// complement, separated by a sentinel symbol so that no suffix can span two
// chromosomes undetected; this mirrors GEM3's convention of searching a
// single concatenated text for both strands rather than re-running the
// search per strand.
//
// Rank is answered by sampling a cumulative per-symbol count every
// checkpointStride positions and scanning the remainder linearly: adequate
// for an in-memory reference/test archive, at the cost of the wavelet-tree
// or bitvector-rank structure a production FM-index would use.
type reference struct {
	text        []seq.Code
	chrs        []chromosome
	sa          []int64
	bwt         []seq.Code
	cntLess     [NumCodesConst]int64      // cntLess[c] = # symbols in text lexicographically < c
	checkpoints [][NumCodesConst]int64 // checkpoints[k][c] = occurrences of c in bwt[0:k*checkpointStride)
	seeds       *seedIndex
}

// NumCodesConst mirrors seq.NumCodes() as a compile-time array bound.
const NumCodesConst = 5

// Load reads every sequence from a FASTA reader and builds an in-memory
// Archive over their forward and reverse-complement strands.
func Load(r io.Reader, seedK int) (Archive, error) {
	f, err := fasta.New(r)
	if err != nil {
		return nil, errors.Wrap(err, "archive: parsing fasta")
	}
	ref := &reference{}
	var text []seq.Code
	for _, name := range f.SeqNames() {
		n, err := f.Len(name)
		if err != nil {
			return nil, errors.Wrapf(err, "archive: length of %s", name)
		}
		s, err := f.Get(name, 0, n)
		if err != nil {
			return nil, errors.Wrapf(err, "archive: sequence %s", name)
		}
		fwdStart := int64(len(text))
		fwdCodes := seq.Encode([]byte(s))
		text = append(text, fwdCodes...)
		text = append(text, seq.CodeN) // sentinel between strands/chromosomes

		revStart := int64(len(text))
		revCodes := seq.Encode(seq.ReverseComplement([]byte(s)))
		text = append(text, revCodes...)
		text = append(text, seq.CodeN)

		ref.chrs = append(ref.chrs, chromosome{
			name:     name,
			fwdStart: fwdStart,
			length:   int64(len(fwdCodes)),
			revStart: revStart,
		})
	}
	ref.text = text
	ref.buildSuffixArray()
	ref.buildBWT()
	ref.buildCheckpoints()
	ref.seeds = buildSeedIndex(ref, seedK)
	return ref, nil
}

func (r *reference) N() int64 { return int64(len(r.text)) }

func (r *reference) Text(i, j int64) []seq.Code {
	if i < 0 {
		i = 0
	}
	if j > int64(len(r.text)) {
		j = int64(len(r.text))
	}
	if i >= j {
		return nil
	}
	return r.text[i:j]
}

func (r *reference) SA(i int64) int64 { return r.sa[i] }

// Rank implements the FM-index backward-search primitive: the number of
// suffixes that, extended leftward by symbol c, would sort before position
// pos of the current SA interval. Per convention this bakes the C[c] table
// (symbols lexicographically less than c) into the result, so a caller can
// derive a new interval as Interval{Rank(c,lo), Rank(c,hi)} with no separate
// C[] lookup, matching GEM3's rank(c, pos) contract.
func (r *reference) Rank(c seq.Code, pos int64) int64 {
	return r.cntLess[c] + r.occBWT(c, pos)
}

// occBWT counts occurrences of c in bwt[0:pos), by sampling a cumulative
// count every checkpointStride positions and scanning the remainder
// linearly.
func (r *reference) occBWT(c seq.Code, pos int64) int64 {
	if pos <= 0 {
		return 0
	}
	if pos > int64(len(r.bwt)) {
		pos = int64(len(r.bwt))
	}
	base := pos / checkpointStride
	count := r.checkpoints[base][c]
	for i := base * checkpointStride; i < pos; i++ {
		if r.bwt[i] == c {
			count++
		}
	}
	return count
}

func (r *reference) LocateChromosome(pos int64) (string, int64, byte) {
	for _, c := range r.chrs {
		if pos >= c.fwdStart && pos < c.fwdStart+c.length {
			return c.name, pos - c.fwdStart, '+'
		}
		if pos >= c.revStart && pos < c.revStart+c.length {
			return c.name, pos - c.revStart, '-'
		}
	}
	return "", 0, 0
}

func (r *reference) ChromosomeBounds(name string) (fwdStart, revStart, length int64) {
	for _, c := range r.chrs {
		if c.name == name {
			return c.fwdStart, c.revStart, c.length
		}
	}
	return 0, 0, 0
}

func (r *reference) Chromosomes() []ChromosomeInfo {
	infos := make([]ChromosomeInfo, len(r.chrs))
	for i, c := range r.chrs {
		infos[i] = ChromosomeInfo{Name: c.name, Length: c.length}
	}
	return infos
}

func (r *reference) SeedPositions(kmer seq.Kmer) []int64 {
	if r.seeds == nil {
		return nil
	}
	return r.seeds.get(kmer)
}

// buildSuffixArray computes the suffix array of r.text by straightforward
// comparison sort. An in-memory reference archive favors clarity over the
// DC3/SA-IS construction a production FM-index builder would use.
func (r *reference) buildSuffixArray() {
	n := len(r.text)
	sa := make([]int64, n)
	for i := range sa {
		sa[i] = int64(i)
	}
	text := r.text
	sort.Slice(sa, func(i, j int) bool {
		a, b := sa[i], sa[j]
		for a < int64(n) && b < int64(n) {
			if text[a] != text[b] {
				return text[a] < text[b]
			}
			a++
			b++
		}
		return a == int64(n) && b != int64(n)
	})
	r.sa = sa
}

// buildBWT derives the Burrows-Wheeler transform of r.text from the already
// computed suffix array: bwt[i] is the symbol immediately preceding the
// i'th suffix in sorted order (wrapping to the text's own end-sentinel
// symbol for the suffix starting at position 0).
func (r *reference) buildBWT() {
	n := len(r.text)
	bwt := make([]seq.Code, n)
	for i, sa := range r.sa {
		if sa == 0 {
			bwt[i] = seq.CodeN
			continue
		}
		bwt[i] = r.text[sa-1]
	}
	r.bwt = bwt

	var total [NumCodesConst]int64
	for _, c := range r.text {
		total[c]++
	}
	var running int64
	for c := 0; c < NumCodesConst; c++ {
		r.cntLess[c] = running
		running += total[c]
	}
}

func (r *reference) buildCheckpoints() {
	n := len(r.bwt)
	numCheckpoints := n/checkpointStride + 2
	cps := make([][NumCodesConst]int64, numCheckpoints)
	var running [NumCodesConst]int64
	for i := 0; i < n; i++ {
		if i%checkpointStride == 0 {
			cps[i/checkpointStride] = running
		}
		running[r.bwt[i]]++
	}
	if n%checkpointStride == 0 {
		cps[n/checkpointStride] = running
	}
	cps[len(cps)-1] = running
	r.checkpoints = cps
}
