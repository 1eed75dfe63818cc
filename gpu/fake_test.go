package gpu_test

import (
	"strings"
	"testing"

	"github.com/grailbio/gem3/archive"
	"github.com/grailbio/gem3/fmindex"
	"github.com/grailbio/gem3/gpu"
	"github.com/grailbio/gem3/seq"
)

func loadTestArchive(t *testing.T, fasta string) archive.Archive {
	t.Helper()
	a, err := archive.Load(strings.NewReader(fasta), 4)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	return a
}

func TestFakeFMSearchBufferMatchesBackwardSearch(t *testing.T) {
	a := loadTestArchive(t, ">chr1\nACGTACGTACGTACGT\n")
	backend := gpu.NewFakeBackend(a)
	buf := backend.NewFMSearchBuffer()

	seed := seq.Encode([]byte("ACGT"))
	buf.Reserve(1)
	buf.Push(seed)
	buf.Submit()
	buf.Wait()
	got := buf.Pull()
	want, consumed := fmindex.BackwardSearch(a, seed)
	if consumed != len(seed) {
		t.Fatalf("BackwardSearch() consumed %d, want %d", consumed, len(seed))
	}
	if len(got) != 1 || got[0] != want {
		t.Fatalf("Pull() = %+v, want [%+v]", got, want)
	}
}

func TestFakeFMDecodeBufferMatchesSA(t *testing.T) {
	a := loadTestArchive(t, ">chr1\nACGTACGTACGTACGT\n")
	backend := gpu.NewFakeBackend(a)
	buf := backend.NewFMDecodeBuffer()
	buf.Reserve(1)
	buf.Push(0)
	buf.Submit()
	got := buf.Pull()
	if len(got) != 1 || got[0] != a.SA(0) {
		t.Fatalf("Pull() = %v, want [%d]", got, a.SA(0))
	}
}

func TestFakeAlignBPMBufferAcceptsExactMatch(t *testing.T) {
	a := loadTestArchive(t, ">chr1\nACGTACGTACGTACGT\n")
	backend := gpu.NewFakeBackend(a)
	buf := backend.NewAlignBPMBuffer()

	p := seq.Compile([]byte("ACGT"), 0, 4)
	buf.Reserve(1)
	buf.Push(gpu.QryEntry{PeqLo: p.GlobalPeq, Length: uint32(p.Length())},
		gpu.CandInfo{TextBegin: 0, TextEnd: 4, MaxError: 0})
	buf.Submit()
	results := buf.Pull()
	if len(results) != 1 || !results[0].Accepted || results[0].Score != 0 {
		t.Fatalf("Pull() = %+v, want a single accepted, zero-score result", results)
	}
}
