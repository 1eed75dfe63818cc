package archive

import (
	"unsafe"

	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/base/log"
	"github.com/grailbio/gem3/seq"
	"golang.org/x/sys/unix"
)

// This file adapts the fusion package's kmer->genelist index
// (fusion/kmer_index.go) to a kmer->genome-position index: a genome-wide
// precomputed table of where every seedK-mer occurs, used by candidate
// generation (C3/C4) as a cheaper alternative to an FM-index backward
// search for short, highly repetitive seeds. The physical layout is
// unchanged: 256 shards picked by the low byte of farmhash(kmer), each shard
// a linear-probing hash table over an anonymous, huge-page-backed mmap
// region, with up to two positions inlined in the entry and any further
// positions spilled into an outlined slice.

const (
	nSeedIndexShard   = 256
	maxSeedCollisions = 64
	seedEntrySize     = unsafe.Sizeof(seedIndexEntry{})
)

type seedIndexEntry struct {
	kmer    seq.Kmer
	inlined [2]int64
}

const invalidSeedKmer = seq.Kmer(1) << 63

type seedIndexShard struct {
	nShift     uint32
	tableStart unsafe.Pointer
	tableLimit unsafe.Pointer
	outlined   unsafe.Pointer
}

// seedIndex is the genome-wide kmer -> []position map.
type seedIndex struct {
	k       int
	maxHits int
	shards  [nSeedIndexShard]seedIndexShard
}

func hashSeedKmer(k seq.Kmer) uint64 {
	return farm.Hash64WithSeed(nil, uint64(k))
}

// buildSeedIndex scans the reference text for every occurrence of every
// canonical seedK-mer and builds the sharded index. k-mers occurring more
// than maxHitsPerKmer times are dropped: in a repeat-heavy genome they carry
// no useful candidate-generation signal and would only bloat the outlined
// overflow array, so callers must treat a dropped kmer the same as a
// not-found one and fall back to FM-index backward search.
func buildSeedIndex(r *reference, k int) *seedIndex {
	if k <= 0 || k > 31 {
		return nil
	}
	const maxHitsPerKmer = 200

	byShard := make([]map[seq.Kmer][]int64, nSeedIndexShard)
	for i := range byShard {
		byShard[i] = make(map[seq.Kmer][]int64)
	}

	mask := seq.Kmer(1)<<uint(2*k) - 1
	var fwd, rc seq.Kmer
	valid := 0
	baseBits := func(c seq.Code) (int64, bool) {
		switch c {
		case seq0, seq1, seq2, seq3:
			return int64(c), true
		default:
			return 0, false
		}
	}
	for i := 0; i < len(r.text); i++ {
		b, ok := baseBits(r.text[i])
		if !ok {
			valid = 0
			fwd, rc = 0, 0
			continue
		}
		fwd = ((fwd << 2) | seq.Kmer(b)) & mask
		rc = (rc >> 2) | (seq.Kmer(3-b) << uint(2*(k-1)))
		valid++
		if valid >= k {
			km := fwd
			if rc < fwd {
				km = rc
			}
			pos := int64(i - k + 1)
			shard := hashSeedKmer(km) & (nSeedIndexShard - 1)
			byShard[shard][km] = append(byShard[shard][km], pos)
		}
	}

	idx := &seedIndex{k: k, maxHits: maxHitsPerKmer}
	for shard := range byShard {
		idx.initShard(shard, byShard[shard], maxHitsPerKmer)
	}
	return idx
}

// seq0..seq3 name the four canonical codes without importing seq's
// unexported alphabet table; they must match seq.CodeA..seq.CodeT.
const (
	seq0 = seq.CodeA
	seq1 = seq.CodeC
	seq2 = seq.CodeG
	seq3 = seq.CodeT
)

func (idx *seedIndex) initShard(shard int, input map[seq.Kmer][]int64, maxHits int) {
	const (
		hugePageSize = 2 << 20
		loadFactor   = 4
	)
	minSize := int((float64(len(input) + 1)) * loadFactor)
	size := 1
	shift := 0
	for size < minSize {
		size *= 2
		shift++
	}
	sizeShift := 64 - shift
	if sizeShift > 64 {
		sizeShift = 64
	}

	tableData, err := unix.Mmap(-1, 0, size*int(seedEntrySize)+hugePageSize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		log.Panic(err)
	}
	if err := unix.Madvise(tableData, unix.MADV_HUGEPAGE); err != nil {
		log.Error(err) // hugepages are an optimization, not a correctness requirement.
	}
	tableStart := ((uintptr(unsafe.Pointer(&tableData[0]))-1)/hugePageSize + 1) * hugePageSize
	tableLimit := tableStart + uintptr(size)*seedEntrySize

	for i := 0; i < size; i++ {
		ent := (*seedIndexEntry)(unsafe.Pointer(tableStart + seedEntrySize*uintptr(i)))
		ent.kmer = invalidSeedKmer
	}

	var outlined []int64
	for kmer, positions := range input {
		if len(positions) > maxHits {
			continue
		}
		h := hashSeedKmer(kmer)
		entPtr := tableStart + seedEntrySize*uintptr(h>>uint(sizeShift))
		var ent *seedIndexEntry
		for iter := 0; ; iter++ {
			ent = (*seedIndexEntry)(unsafe.Pointer(entPtr))
			if ent.kmer == invalidSeedKmer {
				break
			}
			if iter > maxSeedCollisions {
				log.Panicf("seed index: too many collisions building shard %d (size %d)", shard, size)
			}
			entPtr += seedEntrySize
			if entPtr >= tableLimit {
				entPtr = tableStart
			}
		}
		ent.kmer = kmer
		switch len(positions) {
		case 1:
			ent.inlined[0] = positions[0] + 1 // +1 so 0 is still distinguishable from "absent"
			ent.inlined[1] = 0
		case 2:
			ent.inlined[0] = positions[0] + 1
			ent.inlined[1] = positions[1] + 1
		default:
			ent.inlined[0] = -int64(len(outlined)) - 1
			ent.inlined[1] = -int64(len(outlined)+len(positions)) - 1
			outlined = append(outlined, positions...)
		}
	}
	var outlinedPtr unsafe.Pointer
	if len(outlined) > 0 {
		outlinedPtr = unsafe.Pointer(&outlined[0])
	}
	idx.shards[shard] = seedIndexShard{
		nShift:     uint32(sizeShift),
		tableStart: unsafe.Pointer(tableStart),
		tableLimit: unsafe.Pointer(tableLimit),
		outlined:   outlinedPtr,
	}
}

// get returns every indexed genome position for kmer, or nil if kmer was
// never seen or was dropped for exceeding maxHitsPerKmer.
func (idx *seedIndex) get(kmer seq.Kmer) []int64 {
	h := hashSeedKmer(kmer)
	shard := idx.shards[h&(nSeedIndexShard-1)]
	if shard.tableStart == nil {
		return nil
	}
	tableStart := uintptr(shard.tableStart)
	tableLimit := uintptr(shard.tableLimit)
	entPtr := tableStart + seedEntrySize*uintptr(h>>shard.nShift)
	for iter := 0; iter <= maxSeedCollisions; iter++ {
		ent := (*seedIndexEntry)(unsafe.Pointer(entPtr))
		if ent.kmer == kmer {
			return decodeSeedEntry(ent, shard.outlined)
		}
		if ent.kmer == invalidSeedKmer {
			return nil
		}
		entPtr += seedEntrySize
		if entPtr >= tableLimit {
			entPtr = tableStart
		}
	}
	return nil
}

func decodeSeedEntry(ent *seedIndexEntry, outlined unsafe.Pointer) []int64 {
	if ent.inlined[0] > 0 {
		if ent.inlined[1] > 0 {
			return []int64{ent.inlined[0] - 1, ent.inlined[1] - 1}
		}
		return []int64{ent.inlined[0] - 1}
	}
	start := -ent.inlined[0] - 1
	limit := -ent.inlined[1] - 1
	out := make([]int64, 0, limit-start)
	const posSize = unsafe.Sizeof(int64(0))
	for i := start; i < limit; i++ {
		p := unsafe.Pointer(uintptr(outlined) + posSize*uintptr(i))
		out = append(out, *(*int64)(p))
	}
	return out
}
