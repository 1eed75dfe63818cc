// Package gpu models the GPU offload surface the stepwise search state
// machine (package search) can target: three staging-buffer interfaces
// (FM-index search, FM-index decode, BPM alignment) plus an in-process fake
// Backend that implements all three on the CPU. Field names follow
// gpu_bpm_primitives.h's gpu_bpm_cand_info_t/gpu_bpm_qry_entry_t, translated
// to Go as CandInfo/QryEntry; data-plane structs assume little-endian,
// 32-bit indices, and 128-bit (two uint64) Peq words, matching the real
// GPU wire format even though this backend never leaves the process.
package gpu

import (
	"github.com/grailbio/gem3/fmindex"
	"github.com/grailbio/gem3/seq"
)

// CandInfo mirrors gpu_bpm_cand_info_t: one BPM candidate's text window.
type CandInfo struct {
	TextBegin int64
	TextEnd   int64
	QueryIdx  uint32
	MaxError  uint32
}

// QryEntry mirrors gpu_bpm_qry_entry_t: one pattern tile's Peq words, laid
// out as a 128-bit (two uint64) vector per symbol the way the real GPU
// kernel's SSE/AVX register packing does.
type QryEntry struct {
	PeqLo, PeqHi [5]uint64
	Length       uint32
}

// FMSearchBuffer stages whole fixed-width seed backward searches for batched
// GPU execution: region_partition_fixed's seeds are independent of any
// previous rank result, so a batch of them is exactly what the real
// fmi_search device kernel searches in one dispatch. Reserve pre-sizes the
// buffer for n pending seeds; Push enqueues one seed's backward search;
// Submit hands the batch to the device; Wait blocks for completion; Pull
// drains the resulting intervals in push order.
type FMSearchBuffer interface {
	Reserve(n int)
	Push(seed []seq.Code)
	Submit()
	Wait()
	Pull() []fmindex.Interval
}

// FMDecodeBuffer stages suffix-array lookups (SA(i) -> genome position).
type FMDecodeBuffer interface {
	Reserve(n int)
	Push(saIndex int64)
	Submit()
	Wait()
	Pull() []int64
}

// AlignBPMBuffer stages BPM candidate verification.
type AlignBPMBuffer interface {
	Reserve(n int)
	Push(q QryEntry, c CandInfo)
	Submit()
	Wait()
	Pull() []BPMResult
}

// BPMResult is one AlignBPMBuffer verification outcome.
type BPMResult struct {
	Score    int
	Column   int
	Accepted bool
}

// Backend is the full GPU offload surface: it creates the three buffer kinds
// that search's stepwise methods push work into. The in-process FakeBackend
// below satisfies it; a real GPU binding is not implemented here (out of
// scope, per SPEC_FULL.md).
type Backend interface {
	NewFMSearchBuffer() FMSearchBuffer
	NewFMDecodeBuffer() FMDecodeBuffer
	NewAlignBPMBuffer() AlignBPMBuffer
}
