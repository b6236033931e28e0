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

// Free blocks carry their list links in the first two payload words:
// next offset, then prev offset. Offsets are relative to the prologue
// block pointer; 0 means none, which is safe because no real block can
// sit at the prologue.

func (h *heap) offsetOf(bp int) uint32  { return uint32(bp - h.start) }
func (h *heap) atOffset(off uint32) int { return int(off) + h.start }

// listHead returns the heap offset of the head word for class c.
func (h *heap) listHead(c int) int { return h.listBase + c*wordSize }

// classFor maps a block size to its free-list index.
func (h *heap) classFor(size int) int {
	if h.classes == 1 {
		return 0
	}
	return classIndex(size)
}

// insert pushes bp onto the head of its class list.
func (h *heap) insert(bp int) {
	head := h.listHead(h.classFor(h.blockSize(bp)))
	first := h.get(head)
	h.put(bp, first)
	h.put(bp+wordSize, 0)
	if first != 0 {
		h.put(h.atOffset(first)+wordSize, h.offsetOf(bp))
	}
	h.put(head, h.offsetOf(bp))
}

// remove unlinks bp from its class list.
func (h *heap) remove(bp int) {
	head := h.listHead(h.classFor(h.blockSize(bp)))
	next := h.get(bp)
	prev := h.get(bp + wordSize)
	switch {
	case next == 0 && prev == 0: // only member
		h.put(head, 0)
	case next == 0: // tail
		h.put(h.atOffset(prev), 0)
	case prev == 0: // head
		h.put(h.atOffset(next)+wordSize, 0)
		h.put(head, next)
	default: // interior
		h.put(h.atOffset(prev), next)
		h.put(h.atOffset(next)+wordSize, prev)
	}
}

// findInList first-fit scans one list.
func (h *heap) findInList(head, asize int) int {
	for off := h.get(head); off != 0; off = h.get(h.atOffset(off)) {
		bp := h.atOffset(off)
		if h.blockSize(bp) >= asize {
			return bp
		}
	}
	return 0
}

// available sums the usable bytes of every listed free block.
func (h *heap) available() int {
	total := 0
	for c := 0; c < h.classes; c++ {
		for off := h.get(h.listHead(c)); off != 0; off = h.get(h.atOffset(off)) {
			total += h.blockSize(h.atOffset(off)) - h.overhead()
		}
	}
	return total
}
