// Package seq implements the read-encoding half of the pattern compiler
// (component C1): ASCII<->2-bit-with-N symbol conversion, and the
// reverse-complement strand used to search both orientations of a read.
package seq

import (
	"github.com/grailbio/gem3/biosimd"
	"github.com/pkg/errors"
)

// Code is the 3-bit symbol alphabet used throughout the search core:
// A, C, G, T, N. Using a distinct code (rather than overloading 0..3) lets
// the BPM compiler build a 5-row Peq table without a special case for Ns.
type Code uint8

// Alphabet symbols, in the order used to index Peq tables.
const (
	CodeA Code = iota
	CodeC
	CodeG
	CodeT
	CodeN
	numCodes = int(CodeN) + 1
)

var asciiToCode [256]Code

func init() {
	for i := range asciiToCode {
		asciiToCode[i] = CodeN
	}
	asciiToCode['A'], asciiToCode['a'] = CodeA, CodeA
	asciiToCode['C'], asciiToCode['c'] = CodeC, CodeC
	asciiToCode['G'], asciiToCode['g'] = CodeG, CodeG
	asciiToCode['T'], asciiToCode['t'] = CodeT, CodeT
}

var codeToASCII = [numCodes]byte{'A', 'C', 'G', 'T', 'N'}

// NumCodes returns the size of the symbol alphabet (5: A, C, G, T, N).
func NumCodes() int { return numCodes }

// ErrInvalidBase is returned by Validate when a read contains a byte outside
// {A,C,G,T,N,a,c,g,t,n}. Per the error-handling design, the caller treats
// this as an invalid-input condition: the read is emitted unmapped, logged,
// and the worker continues.
var ErrInvalidBase = errors.New("seq: invalid base in read")

// Validate reports whether every byte of ascii is a recognized base
// character (upper or lower case ACGTN). GEM3's archive-loader alphabet is
// narrower than general IUPAC ambiguity codes, so anything else is rejected
// at the boundary rather than silently folded to N.
func Validate(ascii []byte) error {
	for _, b := range ascii {
		switch b {
		case 'A', 'C', 'G', 'T', 'N', 'a', 'c', 'g', 't', 'n':
		default:
			return errors.Wrapf(ErrInvalidBase, "byte %q", b)
		}
	}
	return nil
}

// Encode converts an ASCII read into its Code sequence. The caller must have
// already called Validate (Encode maps unrecognized bytes to CodeN, matching
// the archive loader's convention of treating unknown bytes as N).
func Encode(ascii []byte) []Code {
	codes := make([]Code, len(ascii))
	for i, b := range ascii {
		codes[i] = asciiToCode[b]
	}
	return codes
}

// Decode converts a Code sequence back to ASCII, for logging and CIGAR
// rendering against the decoded reference text.
func Decode(codes []Code) []byte {
	ascii := make([]byte, len(codes))
	for i, c := range codes {
		ascii[i] = codeToASCII[c]
	}
	return ascii
}

// CountN returns the number of CodeN symbols, used by the search state
// machine to report all-N reads unmapped.
func CountN(codes []Code) int {
	n := 0
	for _, c := range codes {
		if c == CodeN {
			n++
		}
	}
	return n
}

// ReverseComplement returns the reverse-complement of an ASCII read, used to
// search the opposite strand. Delegates to biosimd's copying revcomp.
func ReverseComplement(ascii []byte) []byte {
	out := make([]byte, len(ascii))
	biosimd.ReverseComp8NoValidate(out, ascii)
	return out
}
