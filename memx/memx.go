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

// Package memx provides the virtual-memory substrate used by the heapx
// allocators: a single contiguous region reserved once at construction
// that grows monotonically and is never returned to the OS.
//
// Addresses are byte offsets from the start of the region. The region
// never moves, so slices carved out of it stay valid for the life of
// the Memory.
package memx

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/bytedance/gopkg/lang/dirtmake"
)

const (
	// DefaultLimit is the reserved region size used when no explicit
	// limit is given (20MB, enough for the standard allocator traces).
	DefaultLimit = 20 << 20

	// MaxLimit bounds the reserved region so that 32-bit offsets stored
	// inside free blocks can address any byte of the heap.
	MaxLimit = 1 << 31
)

// ErrOutOfMemory is returned by Sbrk when growing the region would
// exceed the reserved limit.
var ErrOutOfMemory = errors.New("memx: out of memory")

// Memory is a contiguous, monotonically growing heap region.
// The zero value is not usable; use New.
type Memory struct {
	buf []byte // reserved up front, never reallocated
	brk int    // first unused byte
}

// New reserves a region of limit bytes. The bytes are not zeroed;
// callers own initialization of everything they map into the region.
func New(limit int) (*Memory, error) {
	if limit <= 0 || limit > MaxLimit {
		return nil, fmt.Errorf("memx: limit must be in (0, %d], got %d", MaxLimit, limit)
	}
	return &Memory{buf: dirtmake.Bytes(limit, limit)}, nil
}

// Sbrk grows the in-use region by incr bytes and returns the offset of
// the first new byte. incr must be positive.
func (m *Memory) Sbrk(incr int) (int, error) {
	if incr <= 0 {
		return 0, fmt.Errorf("memx: non-positive sbrk increment %d", incr)
	}
	if m.brk+incr > len(m.buf) {
		return 0, ErrOutOfMemory
	}
	old := m.brk
	m.brk += incr
	return old, nil
}

// HeapLo returns the offset of the first heap byte.
func (m *Memory) HeapLo() int { return 0 }

// HeapHi returns the offset of the last in-use heap byte, or -1 when
// nothing has been mapped yet.
func (m *Memory) HeapHi() int { return m.brk - 1 }

// Size returns the number of in-use bytes.
func (m *Memory) Size() int { return m.brk }

// Limit returns the reserved region size.
func (m *Memory) Limit() int { return len(m.buf) }

// Bytes returns the in-use region. The slice aliases the heap; it is
// invalidated only by Reset, never by growth.
func (m *Memory) Bytes() []byte { return m.buf[:m.brk] }

// Base returns the address of offset 0. The region is reserved once at
// construction, so the address is stable for the life of the Memory.
func (m *Memory) Base() unsafe.Pointer { return unsafe.Pointer(&m.buf[0]) }

// Reset discards the in-use region. Payloads handed out by an
// allocator on top of m become invalid. Intended for tests.
func (m *Memory) Reset() { m.brk = 0 }
