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

package malloc_test

import (
	"fmt"

	"github.com/cloudwego/heapx/malloc"
	"github.com/cloudwego/heapx/memx"
)

func ExampleSegAllocator() {
	m, err := memx.New(1 << 20)
	if err != nil {
		panic(err)
	}
	a, err := malloc.NewSegAllocator(m)
	if err != nil {
		panic(err)
	}

	b := a.Malloc(64)
	copy(b, "hello")
	fmt.Println(len(b), cap(b))

	b = a.Realloc(b, 128)
	fmt.Println(string(b[:5]))

	a.Free(b)
	fmt.Println(a.Check(false) == nil)

	// Output:
	// 64 68
	// hello
	// true
}

func ExampleListAllocator() {
	m, err := memx.New(1 << 20)
	if err != nil {
		panic(err)
	}
	a, err := malloc.NewListAllocator(m)
	if err != nil {
		panic(err)
	}

	b := a.Calloc(8, 4)
	fmt.Println(len(b), b[0]|b[31])

	a.Free(b)
	fmt.Println(a.Available())

	// Output:
	// 32 0
	// 888
}
