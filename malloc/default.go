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

// The package-level functions delegate to a process-wide SegAllocator
// over a DefaultLimit region, created on first use. Like the allocator
// types themselves they are not safe for concurrent use.
var std *SegAllocator

// Init creates the default allocator. It is idempotent: once a heap
// exists, further calls are no-ops. Calling it up front is optional;
// the allocation functions initialize lazily.
func Init() error {
	if std != nil {
		return nil
	}
	m, err := memx.New(memx.DefaultLimit)
	if err != nil {
		return err
	}
	a, err := NewSegAllocator(m)
	if err != nil {
		return err
	}
	std = a
	return nil
}

// Malloc allocates n bytes from the default allocator.
func Malloc(n int) []byte {
	if std == nil && Init() != nil {
		return nil
	}
	return std.Malloc(n)
}

// Free returns a payload to the default allocator.
func Free(b []byte) {
	if std == nil {
		return
	}
	std.Free(b)
}

// Realloc resizes a payload from the default allocator.
func Realloc(b []byte, n int) []byte {
	if std == nil && Init() != nil {
		return nil
	}
	return std.Realloc(b, n)
}

// Calloc allocates zeroed memory from the default allocator.
func Calloc(count, size int) []byte {
	if std == nil && Init() != nil {
		return nil
	}
	return std.Calloc(count, size)
}

// CheckHeap audits the default allocator's heap.
func CheckHeap(verbose bool) error {
	if std == nil {
		if err := Init(); err != nil {
			return err
		}
	}
	return std.Check(verbose)
}
