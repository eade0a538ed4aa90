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
	"fmt"

	"github.com/matrixorigin/mostl/pkg/common/moerr"
	"github.com/matrixorigin/mostl/pkg/common/mpool"
	"github.com/matrixorigin/mostl/pkg/stl"
)

// Vector is a contiguous growable sequence of T with value semantics.
// Slots [0, length) of its block hold live elements, slots [length,
// capacity) are spare and always zero. An instance is single-owner and
// not synchronized; distinct vectors may share a pool freely.
//
// Operations that have to relocate elements to new storage pick one of
// two transfer modes, resolved once per payload type at construction:
// payloads implementing stl.Cloner are duplicated element-wise and a
// mid-way failure leaves the vector untouched; all other payloads are
// relocated by plain value copy, which cannot fail partway.
type Vector[T any] struct {
	data    Block[T]
	length  int
	pool    *mpool.MPool
	capHint int
	dup     bool
}

// New builds an empty vector: length 0, capacity 0, no allocation.
func New[T any](opts ...Options) *Vector[T] {
	var opt Options
	if len(opts) > 0 {
		opt = opts[0]
	}
	pool := opt.pool()
	return &Vector[T]{
		data:    Block[T]{pool: pool},
		pool:    pool,
		capHint: opt.Capacity,
		dup:     stl.IsCloner[T](),
	}
}

// NewWithLength builds a vector holding n zero-value elements, with
// capacity exactly n.
func NewWithLength[T any](n int, opts ...Options) (*Vector[T], error) {
	vec := New[T](opts...)
	if err := vec.Resize(n); err != nil {
		return nil, err
	}
	return vec, nil
}

func (vec *Vector[T]) Length() int   { return vec.length }
func (vec *Vector[T]) Capacity() int { return vec.data.capacity() }

// Allocated reports the bytes owned by the vector's storage.
func (vec *Vector[T]) Allocated() int {
	return vec.data.allocated()
}

func (vec *Vector[T]) GetAllocator() *mpool.MPool {
	return vec.pool
}

func (vec *Vector[T]) checkIndex(i int) {
	if i < 0 || i >= vec.length {
		panic(moerr.NewOutOfRange(i, vec.length))
	}
}

func (vec *Vector[T]) Get(i int) T {
	vec.checkIndex(i)
	return vec.data.slice[i]
}

// GetPtr returns the live slot itself. The pointer is invalidated by any
// operation that grows or shifts the vector.
func (vec *Vector[T]) GetPtr(i int) *T {
	vec.checkIndex(i)
	return vec.data.slot(i)
}

func (vec *Vector[T]) Update(i int, v T) {
	vec.checkIndex(i)
	vec.data.slice[i] = v
}

// Slice returns the live range [0, length) as a fresh view over current
// storage. It stays valid until the next reallocating operation.
func (vec *Vector[T]) Slice() []T {
	return vec.data.window()[:vec.length]
}

// SliceWindow returns the sub-view [offset, offset+length).
func (vec *Vector[T]) SliceWindow(offset, length int) []T {
	if offset < 0 || length < 0 || offset+length > vec.length {
		panic(moerr.NewInvalidArg("slice window", fmt.Sprintf("[%d,%d)", offset, offset+length)))
	}
	return vec.data.window()[offset : offset+length]
}

// Data returns the live elements as raw bytes. Heap-backed payloads have
// no byte representation.
func (vec *Vector[T]) Data() []byte {
	if vec.data.buf == nil && vec.Capacity() > 0 {
		panic("not support")
	}
	return vec.data.buf[:stl.SizeOfMany[T](vec.length)]
}

// Foreach visits the live elements in order, stopping at the first error.
func (vec *Vector[T]) Foreach(op func(i int, v T) error) error {
	for i, v := range vec.Slice() {
		if err := op(i, v); err != nil {
			return err
		}
	}
	return nil
}

// Swap exchanges storage, length and pool of two vectors in O(1). It is
// also the move-assignment of this package: swap with a throwaway source.
// The sizing hint stays with its vector, it describes the owner, not the
// contents.
func (vec *Vector[T]) Swap(other *Vector[T]) {
	vec.data.swap(&other.data)
	vec.length, other.length = other.length, vec.length
	vec.pool, other.pool = other.pool, vec.pool
}

// Move transfers storage and length into a fresh vector, leaving the
// receiver at length 0, capacity 0.
func (vec *Vector[T]) Move() *Vector[T] {
	moved := &Vector[T]{
		data:    vec.data.move(),
		length:  vec.length,
		pool:    vec.pool,
		capHint: vec.capHint,
		dup:     vec.dup,
	}
	vec.length = 0
	return moved
}

// Clone deep-copies the live elements into a new vector with capacity ==
// length. Cloner payloads propagate their duplication failure; in that
// case nothing is leaked and the receiver is untouched.
func (vec *Vector[T]) Clone(opts ...Options) (*Vector[T], error) {
	opt := Options{Allocator: vec.pool}
	if len(opts) > 0 && opts[0].Allocator != nil {
		opt.Allocator = opts[0].Allocator
	}
	cloned := New[T](opt)
	if vec.length == 0 {
		return cloned, nil
	}
	if err := cloned.Reserve(vec.length); err != nil {
		return nil, err
	}
	if err := vec.copyElements(cloned.data.window(), 0, vec.Slice()); err != nil {
		cloned.Close()
		return nil, err
	}
	cloned.length = vec.length
	return cloned, nil
}

// Assign replaces the receiver's contents with a deep copy of src.
// When src does not fit the current capacity the copy is built aside and
// swapped in, so a failure leaves the receiver exactly as it was.
// Otherwise existing storage is reused: the overlapping prefix is
// overwritten, the excess of the longer side destroyed, and any new tail
// constructed into spare slots. A duplication failure while overwriting
// live slots keeps the slots assigned so far and the old length, the
// vector stays valid but partially assigned, like Erase.
func (vec *Vector[T]) Assign(src *Vector[T]) error {
	if vec == src {
		return nil
	}
	if src.length > vec.Capacity() {
		rebuilt, err := src.Clone(Options{Allocator: vec.pool})
		if err != nil {
			return err
		}
		vec.Swap(rebuilt)
		rebuilt.Close()
		return nil
	}

	window := vec.data.window()
	overlap := min(vec.length, src.length)
	if err := vec.assignElements(window, src.Slice()[:overlap]); err != nil {
		return err
	}
	if src.length < vec.length {
		vec.destroyRange(src.length, vec.length)
	} else if err := vec.copyElements(window, overlap, src.Slice()[overlap:]); err != nil {
		return err
	}
	vec.length = src.length
	return nil
}

// Reserve grows capacity to exactly n. It is a no-op when n already
// fits; element values survive, element addresses do not.
func (vec *Vector[T]) Reserve(n int) error {
	if n <= vec.Capacity() {
		return nil
	}
	return vec.regrow(n)
}

// Resize shrinks by destroying the tail or grows by zero-constructing
// newly exposed slots.
func (vec *Vector[T]) Resize(n int) error {
	if n < 0 {
		panic(moerr.NewInvalidArg("resize length", n))
	}
	switch {
	case n < vec.length:
		vec.destroyRange(n, vec.length)
		vec.length = n
	case n > vec.length:
		if err := vec.Reserve(n); err != nil {
			return err
		}
		// spare slots are kept zero, nothing to construct
		vec.length = n
	}
	return nil
}

// Append adds v at the end: amortized O(1) through geometric growth.
func (vec *Vector[T]) Append(v T) error {
	_, err := vec.Insert(vec.length, v)
	return err
}

func (vec *Vector[T]) AppendMany(vs ...T) error {
	for _, v := range vs {
		if err := vec.Append(v); err != nil {
			return err
		}
	}
	return nil
}

// PopBack destroys and returns the last element. Popping an empty vector
// is a programming error.
func (vec *Vector[T]) PopBack() T {
	if vec.length == 0 {
		panic(moerr.NewEmptyVector())
	}
	deleted := vec.data.slice[vec.length-1]
	vec.destroyRange(vec.length-1, vec.length)
	vec.length--
	return deleted
}

// Insert places v at offset i, 0 <= i <= length, shifting later elements
// one slot back. It returns the slot of the new element. The value is
// captured before any slot moves, so v may safely alias an element of
// this same vector.
func (vec *Vector[T]) Insert(i int, v T) (*T, error) {
	if i < 0 || i > vec.length {
		panic(moerr.NewOutOfRange(i, vec.length+1))
	}
	if vec.length == vec.Capacity() {
		return vec.insertRegrow(i, v)
	}
	window := vec.data.window()
	if i < vec.length {
		tmp := v
		copy(window[i+1:vec.length+1], window[i:vec.length])
		window[i] = tmp
	} else {
		window[i] = v
	}
	vec.length++
	return &window[i], nil
}

// insertRegrow is the reallocating branch: the new element is constructed
// directly in its final slot of the new block, then the old prefix and
// suffix are transferred around it.
func (vec *Vector[T]) insertRegrow(i int, v T) (*T, error) {
	newData, err := allocBlock[T](vec.grownCapacity(vec.length+1), vec.pool)
	if err != nil {
		return nil, err
	}
	window := newData.window()
	window[i] = v

	old := vec.Slice()
	if err := vec.copyElements(window, 0, old[:i]); err != nil {
		clear(window[i : i+1])
		newData.free()
		return nil, err
	}
	if err := vec.copyElements(window, i+1, old[i:]); err != nil {
		clear(window[:i+1])
		newData.free()
		return nil, err
	}

	vec.destroyRange(0, vec.length)
	vec.data.swap(&newData)
	newData.free()
	vec.length++
	return vec.data.slot(i), nil
}

// Erase removes the element at i, shifting later elements one slot
// forward, and returns the removed value. For Cloner payloads the shift
// duplicates element-wise and a mid-way failure leaves the vector valid
// but partially shifted.
func (vec *Vector[T]) Erase(i int) (T, error) {
	vec.checkIndex(i)
	window := vec.data.window()
	deleted := window[i]
	if !vec.dup {
		copy(window[i:vec.length-1], window[i+1:vec.length])
	} else {
		for j := i; j < vec.length-1; j++ {
			cloned, err := any(window[j+1]).(stl.Cloner[T]).Clone()
			if err != nil {
				var zero T
				return zero, err
			}
			window[j] = cloned
		}
	}
	vec.destroyRange(vec.length-1, vec.length)
	vec.length--
	return deleted, nil
}

// Reset destroys all live elements but keeps the storage.
func (vec *Vector[T]) Reset() {
	vec.destroyRange(0, vec.length)
	vec.length = 0
}

// Close destroys all live elements and releases the storage. Safe to
// call more than once.
func (vec *Vector[T]) Close() {
	vec.Reset()
	vec.data.free()
}

func (vec *Vector[T]) Desc() string {
	return fmt.Sprintf("Vector:Len=%d[Rows];Cap=%d[Rows];Allocated:%d[Bytes]",
		vec.Length(),
		vec.Capacity(),
		vec.Allocated())
}

func (vec *Vector[T]) String() string {
	s := vec.Desc()
	end := 100
	if vec.Length() < end {
		end = vec.Length()
	}
	if end == 0 {
		return s
	}
	data := ""
	for i := 0; i < end; i++ {
		data = fmt.Sprintf("%s %v", data, vec.Get(i))
	}
	return fmt.Sprintf("%s %s", s, data)
}

// grownCapacity doubles, floors at one slot, and honors the sizing hint.
func (vec *Vector[T]) grownCapacity(target int) int {
	newCap := max(1, vec.Capacity()*2)
	newCap = max(newCap, vec.capHint)
	return max(newCap, target)
}

// regrow moves the live range into a fresh block of exactly newCap slots
// under the transfer policy, destroying the originals only after every
// transfer succeeded.
func (vec *Vector[T]) regrow(newCap int) error {
	newData, err := allocBlock[T](newCap, vec.pool)
	if err != nil {
		return err
	}
	if err := vec.copyElements(newData.window(), 0, vec.Slice()); err != nil {
		newData.free()
		return err
	}
	vec.destroyRange(0, vec.length)
	vec.data.swap(&newData)
	newData.free()
	return nil
}

// assignElements overwrites live slots with duplicates of src. Unlike
// copyElements the destination already holds elements, so a mid-way
// failure must not roll anything back: slots written so far keep their
// new value, the rest keep their old one.
func (vec *Vector[T]) assignElements(dst []T, src []T) error {
	if !vec.dup {
		copy(dst, src)
		return nil
	}
	for i, v := range src {
		cloned, err := any(v).(stl.Cloner[T]).Clone()
		if err != nil {
			return err
		}
		dst[i] = cloned
	}
	return nil
}

// copyElements transfers src into uninitialized dst slots starting at
// dstOff. Cloner payloads duplicate element-wise; on failure the partial
// writes are destroyed, restoring the all-spare-slots-are-zero invariant.
// Everything else is a plain value copy that cannot fail.
func (vec *Vector[T]) copyElements(dst []T, dstOff int, src []T) error {
	if !vec.dup {
		copy(dst[dstOff:], src)
		return nil
	}
	for i, v := range src {
		cloned, err := any(v).(stl.Cloner[T]).Clone()
		if err != nil {
			clear(dst[dstOff : dstOff+i])
			return err
		}
		dst[dstOff+i] = cloned
	}
	return nil
}

// destroyRange zeroes [from, to), upholding the all-spare-slots-are-zero
// invariant and dropping references for heap-backed payloads.
func (vec *Vector[T]) destroyRange(from, to int) {
	clear(vec.data.window()[from:to])
}
