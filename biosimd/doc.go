// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package biosimd provides portable byte-array transforms used when loading
// and searching reference sequence: reverse-complementing a read, cleaning a
// raw FASTA line to ACGTN, and packing ASCII bases into 4-bit codes.
package biosimd
