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
)

// check audits the whole heap against the layout invariants. It never
// mutates and never aborts: every finding is collected and the joined
// result returned, nil when the heap is clean. Verbose mode writes a
// per-block description to the debug writer.
func (h *heap) check(verbose bool) error {
	var errs []error
	bad := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf("malloc: "+format, args...))
	}

	if verbose {
		fmt.Fprintf(h.cw, "heap [%d, %d], base block %d:\n", h.mem.HeapLo(), h.mem.HeapHi(), h.start)
	}

	if h.blockSize(h.start) != dwordSize || !h.allocated(hdr(h.start)) {
		bad("bad prologue header %#x", h.get(hdr(h.start)))
	}
	if h.size(h.start) != dwordSize || !h.allocated(h.start) {
		bad("bad prologue footer %#x", h.get(h.start))
	}

	freeBlocks := 0
	prevFree := false
	prevAlloc := true // the prologue
	bp := h.next(h.start)
	for {
		if hdr(bp) < 0 || hdr(bp)+wordSize > h.mem.Size() {
			bad("block walk escaped the heap at %d", bp)
			return errors.Join(errs...)
		}
		if h.blockSize(bp) == 0 {
			break
		}
		if verbose {
			h.printBlock(bp)
		}
		size := h.blockSize(bp)
		free := h.blockFree(bp)
		if bp%dwordSize != 0 {
			bad("block %d is not doubleword aligned", bp)
		}
		if size%dwordSize != 0 {
			bad("block %d size %d is not a doubleword multiple", bp, size)
		}
		if size < minBlock {
			bad("block %d size %d below minimum", bp, size)
		}
		if free || !h.seg {
			if hv, fv := h.get(hdr(bp))&^prevAllocBit, h.get(h.ftr(bp))&^prevAllocBit; hv != fv {
				bad("block %d header %#x does not match footer %#x", bp, hv, fv)
			}
		}
		if free && prevFree {
			bad("blocks %d and %d are both free", h.prev(bp), bp)
		}
		if h.seg && h.prevAllocated(bp) != prevAlloc {
			bad("block %d prev-alloc bit disagrees with predecessor", bp)
		}
		if free {
			freeBlocks++
		}
		prevFree = free
		prevAlloc = !free
		bp = h.next(bp)
	}
	if verbose {
		h.printBlock(bp)
	}

	if h.blockSize(bp) != 0 || !h.allocated(hdr(bp)) {
		bad("bad epilogue header %#x", h.get(hdr(bp)))
	}
	if hdr(bp) != h.mem.HeapHi()+1-wordSize {
		bad("epilogue header at %d, want %d", hdr(bp), h.mem.HeapHi()+1-wordSize)
	}
	if h.seg && h.prevAllocated(bp) != prevAlloc {
		bad("epilogue prev-alloc bit disagrees with the tail block")
	}

	// Free-list audit: membership, class placement, link symmetry.
	listed := make(map[int]int, freeBlocks)
	for c := 0; c < h.classes; c++ {
		wantPrev := uint32(0)
		for off := h.get(h.listHead(c)); off != 0; off = h.get(h.atOffset(off)) {
			fp := h.atOffset(off)
			if prior, dup := listed[fp]; dup {
				bad("block %d reached twice on free lists %d and %d", fp, prior, c)
				return errors.Join(errs...)
			}
			listed[fp] = c
			if !h.blockFree(fp) {
				bad("allocated block %d is on free list %d", fp, c)
			}
			if want := h.classFor(h.blockSize(fp)); want != c {
				bad("block %d of size %d on list %d, want %d", fp, h.blockSize(fp), c, want)
			}
			if got := h.get(fp + wordSize); got != wantPrev {
				bad("block %d prev link %d, want %d", fp, got, wantPrev)
			}
			wantPrev = off
		}
	}
	if len(listed) != freeBlocks {
		bad("%d free blocks on the heap, %d on the free lists", freeBlocks, len(listed))
	}

	return errors.Join(errs...)
}

func (h *heap) printBlock(bp int) {
	state := func(alloc bool) byte {
		if alloc {
			return 'a'
		}
		return 'f'
	}
	if h.blockSize(bp) == 0 {
		fmt.Fprintf(h.cw, "%d: EOL\n", bp)
		return
	}
	halloc := h.allocated(hdr(bp))
	if h.seg && halloc {
		fmt.Fprintf(h.cw, "%d: header [%d:%c]\n", bp, h.blockSize(bp), state(halloc))
		return
	}
	fmt.Fprintf(h.cw, "%d: header [%d:%c] footer [%d:%c]\n",
		bp, h.blockSize(bp), state(halloc), h.size(h.ftr(bp)), state(h.allocated(h.ftr(bp))))
}
