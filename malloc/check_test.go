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
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/heapx/memx"
)

func TestCheckCleanHeap(t *testing.T) {
	la := newTestListAllocator(t, 1<<20)
	require.NoError(t, la.Check(false))

	sa := newTestSegAllocator(t, 1<<20)
	require.NoError(t, sa.Check(false))
}

func TestCheckDetectsFooterMismatch(t *testing.T) {
	a := newTestListAllocator(t, 1<<20)

	p := a.Malloc(24)
	q := a.Malloc(24)
	require.NotNil(t, q)
	fp := a.h.blockOf(p)
	a.Free(p)

	// smash the free block's footer
	a.h.put(a.h.ftr(fp), pack(64, 0))
	err := a.Check(false)
	require.Error(t, err)
	assert.ErrorContains(t, err, "does not match footer")
}

func TestCheckDetectsFreeListDamage(t *testing.T) {
	a := newTestListAllocator(t, 1<<20)

	p := a.Malloc(24)
	q := a.Malloc(24)
	require.NotNil(t, q)
	fp := a.h.blockOf(p)
	a.Free(p)

	t.Run("asymmetric_links", func(t *testing.T) {
		saved := a.h.get(fp + wordSize)
		a.h.put(fp+wordSize, 999)
		err := a.Check(false)
		require.Error(t, err)
		assert.ErrorContains(t, err, "prev link")
		a.h.put(fp+wordSize, saved)
		require.NoError(t, a.Check(false))
	})

	t.Run("allocated_block_listed", func(t *testing.T) {
		saved := a.h.get(hdr(fp))
		a.h.put(hdr(fp), pack(32, allocBit))
		err := a.Check(false)
		require.Error(t, err)
		assert.ErrorContains(t, err, "on free list")
		a.h.put(hdr(fp), saved)
		require.NoError(t, a.Check(false))
	})
}

func TestCheckDetectsPrevAllocDamage(t *testing.T) {
	a := newTestSegAllocator(t, 1<<20)

	p := a.Malloc(24)
	q := a.Malloc(24)
	require.NotNil(t, p)
	qp := a.h.blockOf(q)

	// claim q's predecessor is free while p is still allocated
	a.h.clearPrevAlloc(qp)
	err := a.Check(false)
	require.Error(t, err)
	assert.ErrorContains(t, err, "prev-alloc")

	a.h.setPrevAlloc(qp)
	require.NoError(t, a.Check(false))
}

func TestCheckVerbose(t *testing.T) {
	var buf bytes.Buffer
	m, err := memx.New(1 << 20)
	require.NoError(t, err)
	a, err := NewListAllocatorWithConfig(m, Config{DebugWriter: &buf})
	require.NoError(t, err)

	p := a.Malloc(24)
	require.NotNil(t, p)
	require.NoError(t, a.Check(true))

	out := buf.String()
	assert.Contains(t, out, "heap [0,")
	assert.Contains(t, out, "header")
	assert.Contains(t, out, "EOL")
}
