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

// ListAllocator manages a heap region with one explicit free list and
// boundary tags on every block: each block carries its size and
// allocation state in both a header and a footer word, which makes
// merging with either physical neighbor a constant-time operation.
//
// Placement is first fit over the free list (or next fit over the
// physical block sequence, see Config.NextFit), splitting the chosen
// block whenever the remainder still makes a minimum-size block.
type ListAllocator struct {
	h heap
}

// NewListAllocator initializes an allocator over m with its default
// tuning. m must be fresh; the allocator owns it from here on.
func NewListAllocator(m *memx.Memory) (*ListAllocator, error) {
	return NewListAllocatorWithConfig(m, Config{})
}

// NewListAllocatorWithConfig is NewListAllocator with tuning knobs.
func NewListAllocatorWithConfig(m *memx.Memory, cfg Config) (*ListAllocator, error) {
	a := &ListAllocator{}
	if err := a.h.init(m, false, cfg); err != nil {
		return nil, err
	}
	return a, nil
}

// Malloc allocates n bytes and returns the payload as a slice with len
// n and cap the usable block size, 8-byte aligned. Returns nil when n
// is not positive or the region is exhausted.
func (a *ListAllocator) Malloc(n int) []byte { return a.h.malloc(n) }

// Free returns a payload to the allocator. b must be the slice handed
// out by Malloc (not resliced); nil is a no-op. Freeing a foreign or
// already-freed slice corrupts the heap.
func (a *ListAllocator) Free(b []byte) { a.h.free(b) }

// Realloc resizes a payload by allocate-copy-free. A nil b behaves as
// Malloc, n <= 0 as Free. On allocation failure the original block is
// left untouched and nil returned.
func (a *ListAllocator) Realloc(b []byte, n int) []byte { return a.h.realloc(b, n) }

// Calloc allocates count*size bytes and zeroes the payload. Returns nil
// when either argument is not positive or the product overflows.
func (a *ListAllocator) Calloc(count, size int) []byte { return a.h.calloc(count, size) }

// Check audits the heap invariants, returning nil when consistent.
// Verbose mode writes a per-block dump to Config.DebugWriter.
func (a *ListAllocator) Check(verbose bool) error { return a.h.check(verbose) }

// Available returns the total usable bytes of all free blocks.
func (a *ListAllocator) Available() int { return a.h.available() }

// Allocs returns the number of successful Malloc calls.
func (a *ListAllocator) Allocs() int { return a.h.allocs }

// Frees returns the number of effective Free calls.
func (a *ListAllocator) Frees() int { return a.h.frees }

// Extends returns the number of heap growths, the initial one included.
func (a *ListAllocator) Extends() int { return a.h.extends }

// HeapLo returns the lowest heap offset.
func (a *ListAllocator) HeapLo() int { return a.h.mem.HeapLo() }

// HeapHi returns the highest in-use heap offset.
func (a *ListAllocator) HeapHi() int { return a.h.mem.HeapHi() }
