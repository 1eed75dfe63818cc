package seq_test

import (
	"testing"

	"github.com/grailbio/gem3/seq"
)

func TestValidate(t *testing.T) {
	if err := seq.Validate([]byte("ACGTNacgtn")); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
	if err := seq.Validate([]byte("ACGTX")); err == nil {
		t.Errorf("Validate() = nil, want error for invalid base")
	}
}

func TestEncodeDecode(t *testing.T) {
	in := []byte("ACGTN")
	codes := seq.Encode(in)
	want := []seq.Code{seq.CodeA, seq.CodeC, seq.CodeG, seq.CodeT, seq.CodeN}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("Encode()[%d] = %v, want %v", i, codes[i], want[i])
		}
	}
	if got := string(seq.Decode(codes)); got != "ACGTN" {
		t.Errorf("Decode() = %q, want ACGTN", got)
	}
}

func TestKmerHistogramSkipsN(t *testing.T) {
	h := seq.BuildKmerHistogram([]byte("ACGTNACGT"), 4)
	if len(h.Count) == 0 {
		t.Fatalf("expected some k-mers")
	}
	if h.MaxFrequency() < 1 {
		t.Errorf("MaxFrequency() = %d, want >= 1", h.MaxFrequency())
	}
}
