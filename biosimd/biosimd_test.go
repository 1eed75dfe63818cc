// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package biosimd

import "testing"

func TestCleanASCIISeqInplace(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"acgt", "ACGT"},
		{"ACGTN", "ACGTN"},
		{"acgtxyz", "ACGTNNN"},
	}
	for _, tc := range tests {
		b := []byte(tc.in)
		CleanASCIISeqInplace(b)
		if string(b) != tc.want {
			t.Errorf("CleanASCIISeqInplace(%q) = %q, want %q", tc.in, string(b), tc.want)
		}
	}
}

func TestASCIIToSeq8Inplace(t *testing.T) {
	b := []byte("ACGTacgtN")
	ASCIIToSeq8Inplace(b)
	want := []byte{1, 2, 4, 8, 1, 2, 4, 8, 15}
	for i, v := range want {
		if b[i] != v {
			t.Errorf("ASCIIToSeq8Inplace()[%d] = %d, want %d", i, b[i], v)
		}
	}
}
