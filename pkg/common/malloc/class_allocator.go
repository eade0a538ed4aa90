// Copyright 2024 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package malloc

import (
	"sync/atomic"
)

const (
	minClassSize    = 128
	maxClassSize    = 1 * MB
	classSizeFactor = 1.5
)

// ClassAllocator buckets requests into size classes and keeps a bounded
// freelist per class. Requests above the largest class go straight to the
// Go heap and are reclaimed by the GC.
type ClassAllocator struct {
	classSizes      []uint64
	pools           []classPool
	deallocatorPool *ClosureDeallocatorPool[classDeallocatorArgs]
}

type classPool struct {
	numAlloc atomic.Int64
	numFree  atomic.Int64
	ch       chan []byte
}

type classDeallocatorArgs struct {
	buf   []byte
	class int
}

func NewClassAllocator(bufferedBytes uint64) *ClassAllocator {
	classSizes := func() (ret []uint64) {
		for size := uint64(minClassSize); size <= maxClassSize; size = uint64(float64(size) * classSizeFactor) {
			ret = append(ret, size)
		}
		return
	}()

	classSumSize := func() (ret uint64) {
		for _, size := range classSizes {
			ret += size
		}
		return
	}()

	bufferedObjectsPerClass := int(bufferedBytes / classSumSize)

	pools := make([]classPool, len(classSizes))
	for i := range pools {
		pools[i].ch = make(chan []byte, bufferedObjectsPerClass)
	}

	ret := &ClassAllocator{
		classSizes: classSizes,
		pools:      pools,
	}
	ret.deallocatorPool = NewClosureDeallocatorPool(
		func(hints Hints, args *classDeallocatorArgs) {
			select {
			case ret.pools[args.class].ch <- args.buf:
				ret.pools[args.class].numFree.Add(1)
			default:
				// freelist full, let the GC take it
			}
		},
	)
	return ret
}

var _ Allocator = new(ClassAllocator)

func (c *ClassAllocator) requestSizeToClass(size uint64) int {
	for class, classSize := range c.classSizes {
		if classSize >= size {
			return class
		}
	}
	return -1
}

func (c *ClassAllocator) Allocate(size uint64, hints Hints) ([]byte, Deallocator, error) {
	if size == 0 {
		return nil, NoopDeallocator, nil
	}
	class := c.requestSizeToClass(size)
	if class == -1 {
		return make([]byte, size), NoopDeallocator, nil
	}

	var buf []byte
	select {
	case buf = <-c.pools[class].ch:
		c.pools[class].numAlloc.Add(1)
		if hints&NoClear == 0 {
			clear(buf[:size])
		}
	default:
		buf = make([]byte, c.classSizes[class])
	}

	return buf[:size], c.deallocatorPool.Get(classDeallocatorArgs{
		buf:   buf[:cap(buf)],
		class: class,
	}), nil
}
