// Copyright 2022 - 2024 Matrix Origin
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

package containers

import (
	"unsafe"

	"github.com/matrixorigin/mostl/pkg/common/moerr"
	"github.com/matrixorigin/mostl/pkg/common/mpool"
	"github.com/matrixorigin/mostl/pkg/stl"
)

// Block owns raw slots for a fixed number of T values and nothing more:
// it never constructs or destroys elements, that is the owning vector's
// job. Pointer-free payloads live in pool memory reinterpreted as []T;
// payloads the GC must scan live on the Go heap instead.
//
// A block belongs to exactly one vector. It changes hands only through
// swap and move, which leave the source empty; there is deliberately no
// way to copy one, since only the owner knows which slots hold live
// elements.
type Block[T any] struct {
	pool  *mpool.MPool
	buf   []byte // pool memory, nil in heap mode
	slice []T    // full capacity window
}

// allocBlock reserves capacity uninitialized (zeroed) slots. A zero
// capacity yields an empty block without touching the pool. Allocation
// failure propagates with nothing allocated.
func allocBlock[T any](capacity int, pool *mpool.MPool) (Block[T], error) {
	blk := Block[T]{pool: pool}
	if capacity == 0 {
		return blk, nil
	}
	if stl.Sizeof[T]() > 0 && stl.CanUseRawStorage[T]() {
		buf, err := pool.Alloc(stl.SizeOfMany[T](capacity))
		if err != nil {
			return Block[T]{pool: pool}, err
		}
		blk.buf = buf
		blk.slice = unsafe.Slice(
			(*T)(unsafe.Pointer(unsafe.SliceData(buf))),
			capacity,
		)
	} else {
		blk.slice = make([]T, capacity)
	}
	return blk, nil
}

func (blk *Block[T]) capacity() int {
	return len(blk.slice)
}

// window exposes all capacity slots, live or not.
func (blk *Block[T]) window() []T {
	return blk.slice
}

func (blk *Block[T]) slot(i int) *T {
	if i < 0 || i >= len(blk.slice) {
		panic(moerr.NewOutOfRange(i, len(blk.slice)))
	}
	return &blk.slice[i]
}

// allocated reports owned bytes, either pool-charged or heap-resident.
func (blk *Block[T]) allocated() int {
	if blk.buf != nil {
		return len(blk.buf)
	}
	return stl.SizeOfMany[T](len(blk.slice))
}

func (blk *Block[T]) swap(other *Block[T]) {
	*blk, *other = *other, *blk
}

// move transfers ownership, leaving the receiver empty with capacity 0.
func (blk *Block[T]) move() Block[T] {
	moved := *blk
	*blk = Block[T]{pool: blk.pool}
	return moved
}

// free releases the storage. A no-op on an empty block; safe to call
// again after.
func (blk *Block[T]) free() {
	if blk.buf != nil {
		blk.pool.Free(blk.buf)
	}
	*blk = Block[T]{pool: blk.pool}
}
