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
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"unsafe"

	"github.com/cznic/mathutil"

	"github.com/cloudwego/heapx/memx"
)

// heap is the engine shared by ListAllocator and SegAllocator. Blocks
// are identified by their payload offset bp; the header sits at bp-4.
// Free-list links are 32-bit offsets relative to the prologue block
// pointer, 0 meaning none.
type heap struct {
	mem  *memx.Memory
	base unsafe.Pointer // address of heap offset 0, stable

	start    int // block pointer of the prologue block
	listBase int // offset of the first free-list head word
	classes  int // 1 (single list) or 24 (segregated)
	seg      bool

	chunk   int
	nextFit bool
	rover   int

	allocs  int
	frees   int
	extends int

	cw io.Writer
}

func (h *heap) init(m *memx.Memory, seg bool, cfg Config) error {
	if m == nil {
		return errors.New("malloc: nil memory")
	}
	if m.Size() != 0 {
		return errors.New("malloc: memory already in use")
	}

	h.mem = m
	h.seg = seg
	h.classes = listClasses
	h.chunk = ListChunkSize
	if seg {
		h.classes = segClasses
		h.chunk = SegChunkSize
	}
	if cfg.ChunkSize < 0 {
		return fmt.Errorf("malloc: negative chunk size %d", cfg.ChunkSize)
	}
	if cfg.ChunkSize > 0 {
		h.chunk = align(cfg.ChunkSize, dwordSize)
		if h.chunk < minBlock {
			return fmt.Errorf("malloc: chunk size %d below minimum block size", cfg.ChunkSize)
		}
	}
	h.nextFit = cfg.NextFit
	h.cw = cfg.DebugWriter
	if h.cw == nil {
		h.cw = os.Stdout
	}

	// Alignment pad, the list head words, prologue header and footer,
	// epilogue header. An extra pad word keeps the prologue payload
	// doubleword-aligned when the head count is odd.
	words := 4 + h.classes
	if h.classes%2 == 1 {
		words++
	}
	if _, err := m.Sbrk(words * wordSize); err != nil {
		return err
	}
	h.base = m.Base()
	h.listBase = wordSize

	// The region arrives dirty; every bootstrap word is written.
	h.put(0, 0)
	for i := 0; i < words-3-1; i++ {
		h.put(h.listBase+i*wordSize, 0)
	}
	proHdr := (words - 3) * wordSize
	h.start = proHdr + wordSize
	h.put(proHdr, pack(dwordSize, allocBit))
	h.put(h.start, pack(dwordSize, allocBit))
	epi := h.start + wordSize
	if seg {
		h.put(epi, pack(0, allocBit)|prevAllocBit)
	} else {
		h.put(epi, pack(0, allocBit))
	}
	h.rover = h.start

	if _, err := h.extend(h.chunk / wordSize); err != nil {
		return err
	}
	return nil
}

// if n%m != 0 { n += m-n%m }. m must be a power of 2.
func align(n, m int) int { return (n + m - 1) &^ (m - 1) }

func pack(size int, bits uint32) uint32 { return uint32(size) | bits }

func (h *heap) get(off int) uint32    { return *(*uint32)(unsafe.Add(h.base, off)) }
func (h *heap) put(off int, v uint32) { *(*uint32)(unsafe.Add(h.base, off)) = v }

// putHdr writes a header word. Under footer elision the resident
// prev-alloc bit is carried through the write.
func (h *heap) putHdr(off int, v uint32) {
	if h.seg {
		v |= h.get(off) & prevAllocBit
	}
	h.put(off, v)
}

func hdr(bp int) int { return bp - wordSize }

// size reads the size field of the header or footer word at off.
func (h *heap) size(off int) int       { return int(h.get(off) & sizeMask) }
func (h *heap) allocated(off int) bool { return h.get(off)&allocBit != 0 }

func (h *heap) blockSize(bp int) int  { return h.size(hdr(bp)) }
func (h *heap) blockFree(bp int) bool { return !h.allocated(hdr(bp)) }

// prevAllocated reports the prev-alloc header bit of bp (segregated
// layout only; the bit is never set elsewhere).
func (h *heap) prevAllocated(bp int) bool { return h.get(hdr(bp))&prevAllocBit != 0 }

func (h *heap) setPrevAlloc(bp int)   { h.put(hdr(bp), h.get(hdr(bp))|prevAllocBit) }
func (h *heap) clearPrevAlloc(bp int) { h.put(hdr(bp), h.get(hdr(bp))&^prevAllocBit) }

func (h *heap) ftr(bp int) int  { return bp + h.blockSize(bp) - dwordSize }
func (h *heap) next(bp int) int { return bp + h.blockSize(bp) }

// prev locates the physically previous block through its footer. Valid
// only when that footer exists: always in the single-list layout, only
// for free predecessors under footer elision.
func (h *heap) prev(bp int) int { return bp - h.size(bp-dwordSize) }

// overhead is the metadata cost of an allocated block.
func (h *heap) overhead() int {
	if h.seg {
		return wordSize
	}
	return dwordSize
}

// adjust converts a request size to a block size: alignment plus
// overhead, never below the minimum block.
func (h *heap) adjust(n int) int {
	if n <= dwordSize {
		return minBlock
	}
	return dwordSize * ((n + h.overhead() + dwordSize - 1) / dwordSize)
}

// malloc services an allocation request, growing the heap when the free
// lists cannot. Returns nil when n is not positive or the region is
// exhausted.
func (h *heap) malloc(n int) []byte {
	if n <= 0 {
		return nil
	}
	asize := h.adjust(n)
	bp := h.findFit(asize)
	if bp == 0 {
		var err error
		bp, err = h.extend(mathutil.Max(asize, h.chunk) / wordSize)
		if err != nil {
			return nil
		}
	}
	h.place(bp, asize)
	h.allocs++
	return h.payload(bp, n)
}

// payload builds the caller-facing slice: len is the requested size,
// cap the usable block bytes.
func (h *heap) payload(bp, n int) []byte {
	usable := h.blockSize(bp) - h.overhead()
	return unsafe.Slice((*byte)(unsafe.Add(h.base, bp)), usable)[:n]
}

// blockOf recovers the block pointer from a payload slice.
func (h *heap) blockOf(b []byte) int {
	data := *(*uintptr)(unsafe.Pointer(&b))
	return int(data - uintptr(h.base))
}

func (h *heap) free(b []byte) {
	if b == nil {
		return
	}
	bp := h.blockOf(b)
	size := h.blockSize(bp)
	h.putHdr(hdr(bp), pack(size, 0))
	h.put(h.ftr(bp), pack(size, 0))
	if h.seg {
		h.clearPrevAlloc(h.next(bp))
	}
	h.frees++
	h.coalesce(bp)
}

func (h *heap) realloc(b []byte, n int) []byte {
	if n <= 0 {
		h.free(b)
		return nil
	}
	if b == nil {
		return h.malloc(n)
	}
	bp := h.blockOf(b)
	old := h.blockSize(bp) - h.overhead()
	nb := h.malloc(n)
	if nb == nil {
		return nil
	}
	copy(nb, unsafe.Slice((*byte)(unsafe.Add(h.base, bp)), mathutil.Min(n, old)))
	h.free(b)
	return nb
}

func (h *heap) calloc(count, size int) []byte {
	if count <= 0 || size <= 0 || count > math.MaxInt/size {
		return nil
	}
	b := h.malloc(count * size)
	for i := range b {
		b[i] = 0
	}
	return b
}

// extend grows the heap by the given word count (rounded up to keep
// alignment) and plants a free block over the former epilogue. The new
// block absorbs a free left neighbor before being published.
func (h *heap) extend(words int) (int, error) {
	if words%2 != 0 {
		words++
	}
	size := words * wordSize
	bp, err := h.mem.Sbrk(size)
	if err != nil {
		return 0, err
	}
	h.extends++

	// The new block's header overlays the old epilogue word, so under
	// footer elision it inherits the prev-alloc bit of the former tail.
	h.putHdr(hdr(bp), pack(size, 0))
	h.put(h.ftr(bp), pack(size, 0))
	// Fresh epilogue; its predecessor is the new free block.
	h.put(hdr(h.next(bp)), pack(0, allocBit))

	return h.coalesce(bp), nil
}

// coalesce merges bp with free physical neighbors, reinserts the result
// into its free list, and returns its (possibly relocated) block
// pointer.
func (h *heap) coalesce(bp int) int {
	var prevAlloc bool
	if h.seg {
		prevAlloc = h.prevAllocated(bp)
	} else {
		prevAlloc = h.allocated(bp - dwordSize)
	}
	nextBp := h.next(bp)
	nextAlloc := h.allocated(hdr(nextBp))
	size := h.blockSize(bp)

	switch {
	case prevAlloc && nextAlloc:

	case prevAlloc && !nextAlloc:
		h.remove(nextBp)
		size += h.blockSize(nextBp)
		h.putHdr(hdr(bp), pack(size, 0))
		h.put(h.ftr(bp), pack(size, 0))

	case !prevAlloc && nextAlloc:
		pb := h.prev(bp)
		h.remove(pb)
		size += h.blockSize(pb)
		h.put(h.ftr(bp), pack(size, 0))
		h.putHdr(hdr(pb), pack(size, 0))
		bp = pb

	default:
		pb := h.prev(bp)
		h.remove(pb)
		h.remove(nextBp)
		size += h.blockSize(pb) + h.blockSize(nextBp)
		h.put(h.ftr(nextBp), pack(size, 0))
		h.putHdr(hdr(pb), pack(size, 0))
		bp = pb
	}

	// Keep the rover out of the merged region.
	if h.nextFit && h.rover > bp && h.rover < h.next(bp) {
		h.rover = bp
	}

	h.insert(bp)
	return bp
}

// place unlinks the target free block and marks its low asize bytes
// allocated, splitting off the remainder when it still makes a block.
func (h *heap) place(bp, asize int) {
	csize := h.blockSize(bp)
	h.remove(bp)

	if csize-asize >= minBlock {
		h.putHdr(hdr(bp), pack(asize, allocBit))
		if !h.seg {
			h.put(h.ftr(bp), pack(asize, allocBit))
		}
		rem := h.next(bp)
		if h.seg {
			h.put(hdr(rem), pack(csize-asize, 0)|prevAllocBit)
			h.put(h.ftr(rem), pack(csize-asize, 0))
			h.clearPrevAlloc(h.next(rem))
		} else {
			h.put(hdr(rem), pack(csize-asize, 0))
			h.put(h.ftr(rem), pack(csize-asize, 0))
		}
		h.insert(rem)
		return
	}

	h.putHdr(hdr(bp), pack(csize, allocBit))
	if h.seg {
		h.setPrevAlloc(h.next(bp))
	} else {
		h.put(h.ftr(bp), pack(csize, allocBit))
	}
}

// findFit returns the block pointer of a free block of at least asize
// bytes, or 0 when none is available.
func (h *heap) findFit(asize int) int {
	if h.nextFit {
		return h.nextFitSearch(asize)
	}
	if h.classes == 1 {
		return h.findInList(h.listBase, asize)
	}
	// Entering at the request's class guarantees every hit satisfies
	// the size without sorting within a class.
	for c := classIndex(asize); c < h.classes; c++ {
		if bp := h.findInList(h.listBase+c*wordSize, asize); bp != 0 {
			return bp
		}
	}
	return 0
}

// nextFitSearch walks the physical block sequence from the rover to the
// epilogue, wrapping to the prologue.
func (h *heap) nextFitSearch(asize int) int {
	old := h.rover
	for bp := h.rover; h.blockSize(bp) > 0; bp = h.next(bp) {
		if h.blockFree(bp) && h.blockSize(bp) >= asize {
			h.rover = bp
			return bp
		}
	}
	for bp := h.start; bp < old; bp = h.next(bp) {
		if h.blockFree(bp) && h.blockSize(bp) >= asize {
			h.rover = bp
			return bp
		}
	}
	return 0
}
