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
	"fmt"
	"testing"

	"github.com/bytedance/gopkg/lang/mcache"

	"github.com/cloudwego/heapx/memx"
)

var benchSizes = []int{16, 256, 4096}

func BenchmarkListMallocFree(b *testing.B) {
	for _, sz := range benchSizes {
		b.Run(fmt.Sprintf("size_%d", sz), func(b *testing.B) {
			m, _ := memx.New(64 << 20)
			a, err := NewListAllocator(m)
			if err != nil {
				b.Fatal(err)
			}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				p := a.Malloc(sz)
				if p != nil {
					a.Free(p)
				}
			}
		})
	}
}

func BenchmarkSegMallocFree(b *testing.B) {
	for _, sz := range benchSizes {
		b.Run(fmt.Sprintf("size_%d", sz), func(b *testing.B) {
			m, _ := memx.New(64 << 20)
			a, err := NewSegAllocator(m)
			if err != nil {
				b.Fatal(err)
			}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				p := a.Malloc(sz)
				if p != nil {
					a.Free(p)
				}
			}
		})
	}
}

// BenchmarkMcacheMallocFree is the mcache baseline for the same
// request sizes, for comparison only.
func BenchmarkMcacheMallocFree(b *testing.B) {
	for _, sz := range benchSizes {
		b.Run(fmt.Sprintf("size_%d", sz), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				p := mcache.Malloc(sz)
				mcache.Free(p)
			}
		})
	}
}

func BenchmarkSegCheck(b *testing.B) {
	m, _ := memx.New(64 << 20)
	a, err := NewSegAllocator(m)
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < 1000; i++ {
		a.Malloc(1 + i%512)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := a.Check(false); err != nil {
			b.Fatal(err)
		}
	}
}
