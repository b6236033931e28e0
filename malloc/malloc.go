/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package malloc implements boundary-tag dynamic storage allocators over
// a memx heap region.
//
// Two allocators are provided. ListAllocator keeps one explicit free
// list and writes a footer on every block. SegAllocator keeps 24
// segregated free lists and elides the footer of allocated blocks by
// tracking the predecessor's state in a header bit, trading a little
// bookkeeping for four bytes per live allocation.
//
// Both hand out 8-byte-aligned payloads as slices of the underlying
// region. A payload must be passed back to Free or Realloc exactly as it
// was returned; reslicing it first corrupts the block-offset recovery.
// The allocators are not safe for concurrent use.
package malloc

import (
	"io"
)

const (
	wordSize  = 4  // header/footer word
	dwordSize = 8  // payload alignment
	minBlock  = 16 // smallest block, metadata included

	allocBit     = uint32(0x1) // this block is allocated
	prevAllocBit = uint32(0x2) // the physically previous block is allocated
	sizeMask     = ^uint32(0x7)
)

const (
	// ListChunkSize is the default heap-extension quantum of
	// ListAllocator.
	ListChunkSize = 1<<9 + 1<<8 + 1<<7

	// SegChunkSize is the default heap-extension quantum of
	// SegAllocator. Smaller than ListChunkSize: segregated lists keep
	// fragmentation low enough that eager growth doesn't pay.
	SegChunkSize = 1<<8 - 1<<5

	listClasses = 1
	segClasses  = 24
)

// segClassBounds holds the inclusive upper bound of segregated classes
// 0..22; class 23 is unbounded. A block belongs to the first class whose
// bound holds its size. Note 40000 precedes 1<<15: the table is scanned
// in order, so class 17 never receives a block.
var segClassBounds = [segClasses - 1]int{
	1 << 4,
	24,
	48,
	1 << 7,
	1 << 8,
	1 << 9,
	1 << 10,
	1 << 11,
	1 << 12,
	9200,
	12000,
	16000,
	20000,
	24000,
	28000,
	32000,
	40000,
	1 << 15,
	1 << 16,
	1 << 17,
	1 << 18,
	1 << 19,
	1 << 20,
}

// classIndex returns the segregated free-list index for a block size.
func classIndex(size int) int {
	for i, bound := range segClassBounds {
		if size <= bound {
			return i
		}
	}
	return segClasses - 1
}

// Config carries optional allocator tuning. The zero value selects each
// allocator's defaults.
type Config struct {
	// ChunkSize overrides the heap-extension quantum. It is rounded up
	// to a doubleword multiple and must cover at least one block.
	ChunkSize int

	// NextFit replaces the first-fit search with a rover that resumes
	// scanning the physical block sequence where the previous search
	// stopped.
	NextFit bool

	// DebugWriter receives verbose Check output. Defaults to os.Stdout.
	DebugWriter io.Writer
}
