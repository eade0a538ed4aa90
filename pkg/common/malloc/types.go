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

import "sync"

const (
	KB = 1 << 10
	MB = 1 << 20
	GB = 1 << 30
)

type Hints uint32

const (
	NoHints Hints = 0
	// NoClear skips zeroing of reused memory. Callers must not read
	// before writing.
	NoClear Hints = 1 << (iota - 1)
)

// Allocator hands out byte buffers of at least the requested size together
// with the Deallocator that returns them.
type Allocator interface {
	Allocate(size uint64, hints Hints) ([]byte, Deallocator, error)
}

type Deallocator interface {
	Deallocate(hints Hints)
}

type noopDeallocator struct{}

func (noopDeallocator) Deallocate(Hints) {}

// NoopDeallocator is for buffers whose memory is reclaimed by the GC.
var NoopDeallocator Deallocator = noopDeallocator{}

// ClosureDeallocatorPool recycles deallocators carrying per-allocation
// arguments, so a Deallocate call does not itself allocate.
type ClosureDeallocatorPool[A any] struct {
	fn   func(hints Hints, args *A)
	pool sync.Pool
}

type closureDeallocator[A any] struct {
	args A
	pool *ClosureDeallocatorPool[A]
}

func (c *closureDeallocator[A]) Deallocate(hints Hints) {
	c.pool.fn(hints, &c.args)
	c.pool.pool.Put(c)
}

func NewClosureDeallocatorPool[A any](
	fn func(hints Hints, args *A),
) *ClosureDeallocatorPool[A] {
	ret := &ClosureDeallocatorPool[A]{
		fn: fn,
	}
	ret.pool.New = func() any {
		return &closureDeallocator[A]{
			pool: ret,
		}
	}
	return ret
}

func (p *ClosureDeallocatorPool[A]) Get(args A) Deallocator {
	dec := p.pool.Get().(*closureDeallocator[A])
	dec.args = args
	return dec
}
