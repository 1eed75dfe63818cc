package gpu

import (
	"github.com/grailbio/gem3/archive"
	"github.com/grailbio/gem3/bpm"
	"github.com/grailbio/gem3/fmindex"
	"github.com/grailbio/gem3/seq"
)

// FakeBackend implements Backend entirely on the CPU, against an in-memory
// archive.Archive. It is the test double for package gpu and the backend
// search's stepwise tests drive; no real GPU binding exists in this module,
// since SPEC_FULL.md scopes one out.
type FakeBackend struct {
	Archive archive.Archive
}

func NewFakeBackend(a archive.Archive) *FakeBackend {
	return &FakeBackend{Archive: a}
}

func (b *FakeBackend) NewFMSearchBuffer() FMSearchBuffer {
	return &fakeFMSearchBuffer{archive: b.Archive}
}
func (b *FakeBackend) NewFMDecodeBuffer() FMDecodeBuffer {
	return &fakeFMDecodeBuffer{archive: b.Archive}
}
func (b *FakeBackend) NewAlignBPMBuffer() AlignBPMBuffer {
	return &fakeAlignBPMBuffer{archive: b.Archive}
}

type fakeFMSearchBuffer struct {
	archive archive.Archive
	pending [][]seq.Code
	results []fmindex.Interval
}

func (b *fakeFMSearchBuffer) Reserve(n int)          { b.pending = make([][]seq.Code, 0, n) }
func (b *fakeFMSearchBuffer) Push(seed []seq.Code)   { b.pending = append(b.pending, seed) }
func (b *fakeFMSearchBuffer) Submit() {
	b.results = b.results[:0]
	for _, seed := range b.pending {
		iv, consumed := fmindex.BackwardSearch(b.archive, seed)
		if consumed < len(seed) {
			iv = fmindex.Interval{}
		}
		b.results = append(b.results, iv)
	}
}
func (b *fakeFMSearchBuffer) Wait()                    {}
func (b *fakeFMSearchBuffer) Pull() []fmindex.Interval  { return b.results }

type fakeFMDecodeBuffer struct {
	archive archive.Archive
	pending []int64
	results []int64
}

func (b *fakeFMDecodeBuffer) Reserve(n int)       { b.pending = make([]int64, 0, n) }
func (b *fakeFMDecodeBuffer) Push(saIndex int64)  { b.pending = append(b.pending, saIndex) }
func (b *fakeFMDecodeBuffer) Submit() {
	b.results = b.results[:0]
	for _, i := range b.pending {
		b.results = append(b.results, b.archive.SA(i))
	}
}
func (b *fakeFMDecodeBuffer) Wait()         {}
func (b *fakeFMDecodeBuffer) Pull() []int64 { return b.results }

type fakeAlignBPMBuffer struct {
	archive archive.Archive
	pending []struct {
		q QryEntry
		c CandInfo
	}
	results []BPMResult
}

func (b *fakeAlignBPMBuffer) Reserve(n int) {
	b.pending = make([]struct {
		q QryEntry
		c CandInfo
	}, 0, n)
}
func (b *fakeAlignBPMBuffer) Push(q QryEntry, c CandInfo) {
	b.pending = append(b.pending, struct {
		q QryEntry
		c CandInfo
	}{q, c})
}
func (b *fakeAlignBPMBuffer) Submit() {
	b.results = b.results[:0]
	for _, p := range b.pending {
		text := b.archive.Text(p.c.TextBegin, p.c.TextEnd)
		peq := unpackPeq(p.q)
		r := bpm.ScanWord(peq, int(p.q.Length), text, int(p.c.MaxError))
		b.results = append(b.results, BPMResult{Score: r.Score, Column: r.Column, Accepted: r.Accepted})
	}
}
func (b *fakeAlignBPMBuffer) Wait()             {}
func (b *fakeAlignBPMBuffer) Pull() []BPMResult { return b.results }

// unpackPeq reassembles a seq.Pattern-style [5]uint64 Peq table from a
// QryEntry's split 128-bit (PeqLo/PeqHi) wire representation. Patterns this
// backend handles are always <= seq.WordBits bases, so only PeqLo is
// populated; PeqHi exists purely to match the real device's 128-bit lane
// layout and is reserved for a future wider-word kernel.
func unpackPeq(q QryEntry) [5]uint64 {
	return q.PeqLo
}
