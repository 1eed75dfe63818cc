package seq

import "math"

// WordBits is the tile width in bases: one machine word of Peq bits per
// tile, matching Myers' bit-parallel algorithm's natural unit of work and
// the GPU module's GPU_BPM_PEQ_LENGTH_PER_CUDA_THREAD convention (a fixed,
// word-sized chunk of the pattern gets its own Peq table and error budget).
const WordBits = 64

// Tile is one fixed-length (<=WordBits) sub-pattern of a compiled Pattern,
// the basic unit of the BPM filter (the spec's "Tile").
type Tile struct {
	// Offset and Length locate this tile within the pattern's Key.
	Offset, Length int
	// MaxError is ceil(e * tile_length / m): the share of the global error
	// budget this tile must stay within. The tile filter is only a valid
	// lower bound on global edit distance because the sum of per-tile
	// budgets is guaranteed >= the global budget (see Compile).
	MaxError int
	// Peq[c] has bit i set iff Key[Offset+i] == c, for i < Length. Bits
	// [Length, WordBits) are always zero.
	Peq [numCodes]uint64
}

// Pattern is the immutable, per-read compiled form consumed by the BPM
// filter (C5) and SWG aligner (C6). It is recompiled only when MaxError
// changes (e.g., a read requalified from exact to approximate search).
type Pattern struct {
	// Read is the original ASCII sequence, kept for CIGAR rendering and
	// logging.
	Read []byte
	// Key is the 2-bit-with-N encoded read, length m.
	Key []Code
	// MaxError is the global edit-distance budget e.
	MaxError int
	// MaxBandwidth is the caller-supplied ceiling on the SWG band radius.
	MaxBandwidth int
	// NumNonCanonicalBases is the N-count, used by the search state machine
	// to report all-N reads unmapped before profiling.
	NumNonCanonicalBases int
	// GlobalPeq[c] has bit i set iff Key[i] == c, for i < m (m <= WordBits).
	// Populated only when m <= WordBits; for longer reads, use Tiles.
	GlobalPeq [numCodes]uint64
	// Tiles partitions Key into ceil(m/WordBits) fixed-width tiles, each
	// with its own Peq sub-table and error budget.
	Tiles []Tile
	// Kmers is the optional k-mer counting prefilter (nil if not built).
	Kmers *KmerHistogram
}

// Length returns m, the pattern length in bases.
func (p *Pattern) Length() int { return len(p.Key) }

// TileBudget returns the error budget assigned to the i'th tile.
func (p *Pattern) TileBudget(i int) int { return p.Tiles[i].MaxError }

// Compile builds a Pattern from an ASCII read and an error budget. It
// partitions the read into ceil(m/WordBits) tiles and builds a Peq bitmap
// per tile (and, for short reads, one global Peq table as well), per the
// spec's C1 contract. maxBandwidth is a caller-supplied ceiling on the SWG
// band radius (independent of maxError, since callers may want to cap
// memory use on pathological long reads).
func Compile(ascii []byte, maxError, maxBandwidth int) *Pattern {
	codes := Encode(ascii)
	m := len(codes)

	p := &Pattern{
		Read:                 ascii,
		Key:                  codes,
		MaxError:             maxError,
		MaxBandwidth:         maxBandwidth,
		NumNonCanonicalBases: CountN(codes),
	}

	if m <= WordBits {
		for i, c := range codes {
			p.GlobalPeq[c] |= 1 << uint(i)
		}
	}

	numTiles := (m + WordBits - 1) / WordBits
	if numTiles == 0 {
		numTiles = 1
	}
	p.Tiles = make([]Tile, 0, numTiles)
	for t := 0; t < numTiles; t++ {
		offset := t * WordBits
		length := WordBits
		if offset+length > m {
			length = m - offset
		}
		tile := Tile{Offset: offset, Length: length}
		if m > 0 {
			// ceil(e * tileLength / m), summed over tiles this is >= e: a
			// necessary condition for the per-tile filter to lower-bound the
			// global edit distance (spec 4.1).
			tile.MaxError = int(math.Ceil(float64(maxError*length) / float64(m)))
		}
		for i := 0; i < length; i++ {
			c := codes[offset+i]
			tile.Peq[c] |= 1 << uint(i)
		}
		p.Tiles = append(p.Tiles, tile)
	}
	return p
}

// Recompile rebuilds the pattern for a new error budget, per the C1
// contract ("recompilation is only triggered when max_error changes").
// The Peq tables are unaffected by max_error, so only tile budgets change.
func (p *Pattern) Recompile(maxError int) *Pattern {
	return Compile(p.Read, maxError, p.MaxBandwidth)
}
