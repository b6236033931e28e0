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

package malloc

import (
	"github.com/cloudwego/heapx/memx"
)

// SegAllocator manages a heap region with 24 segregated free lists and
// footer elision: allocated blocks carry only a header, and each header
// records the allocation state of the physically previous block in a
// spare bit, so coalescing never has to read an allocated predecessor's
// footer. Free blocks still carry footers, through which coalescing
// locates a free predecessor.
//
// A request enters the first class whose upper bound holds its adjusted
// size and searches upward, so the first hit always fits without
// sorting within a class. Freed blocks are pushed LIFO onto the head of
// their class.
type SegAllocator struct {
	h heap
}

// NewSegAllocator initializes an allocator over m with its default
// tuning. m must be fresh; the allocator owns it from here on.
func NewSegAllocator(m *memx.Memory) (*SegAllocator, error) {
	return NewSegAllocatorWithConfig(m, Config{})
}

// NewSegAllocatorWithConfig is NewSegAllocator with tuning knobs.
func NewSegAllocatorWithConfig(m *memx.Memory, cfg Config) (*SegAllocator, error) {
	a := &SegAllocator{}
	if err := a.h.init(m, true, cfg); err != nil {
		return nil, err
	}
	return a, nil
}

// Malloc allocates n bytes and returns the payload as a slice with len
// n and cap the usable block size, 8-byte aligned. Returns nil when n
// is not positive or the region is exhausted.
func (a *SegAllocator) Malloc(n int) []byte { return a.h.malloc(n) }

// Free returns a payload to the allocator. b must be the slice handed
// out by Malloc (not resliced); nil is a no-op. Freeing a foreign or
// already-freed slice corrupts the heap.
func (a *SegAllocator) Free(b []byte) { a.h.free(b) }

// Realloc resizes a payload by allocate-copy-free. A nil b behaves as
// Malloc, n <= 0 as Free. On allocation failure the original block is
// left untouched and nil returned.
func (a *SegAllocator) Realloc(b []byte, n int) []byte { return a.h.realloc(b, n) }

// Calloc allocates count*size bytes and zeroes the payload. Returns nil
// when either argument is not positive or the product overflows.
func (a *SegAllocator) Calloc(count, size int) []byte { return a.h.calloc(count, size) }

// Check audits the heap invariants, the prev-alloc bits included,
// returning nil when consistent. Verbose mode writes a per-block dump
// to Config.DebugWriter.
func (a *SegAllocator) Check(verbose bool) error { return a.h.check(verbose) }

// Available returns the total usable bytes of all free blocks.
func (a *SegAllocator) Available() int { return a.h.available() }

// Allocs returns the number of successful Malloc calls.
func (a *SegAllocator) Allocs() int { return a.h.allocs }

// Frees returns the number of effective Free calls.
func (a *SegAllocator) Frees() int { return a.h.frees }

// Extends returns the number of heap growths, the initial one included.
func (a *SegAllocator) Extends() int { return a.h.extends }

// HeapLo returns the lowest heap offset.
func (a *SegAllocator) HeapLo() int { return a.h.mem.HeapLo() }

// HeapHi returns the highest in-use heap offset.
func (a *SegAllocator) HeapHi() int { return a.h.mem.HeapHi() }
