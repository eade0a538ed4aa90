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

package stl

import (
	"reflect"
	"unsafe"
)

func Sizeof[T any]() int {
	var v T
	return int(unsafe.Sizeof(v))
}

func SizeOfMany[T any](cnt int) int {
	var v T
	return int(unsafe.Sizeof(v)) * cnt
}

// Cloner is implemented by payloads whose duplication is an explicit
// operation that may fail. A vector of such a payload duplicates elements
// through Clone whenever they have to be transferred to new storage, and
// reports a partial failure without touching the original elements.
//
// Payloads without Cloner are transferred by plain value copy, which cannot
// fail partway. That assumption is what makes the relocating path exempt
// from the rebuild-then-swap discipline.
type Cloner[T any] interface {
	Clone() (T, error)
}

// IsCloner is resolved once per payload type when a vector is created.
func IsCloner[T any]() bool {
	var v T
	_, ok := any(v).(Cloner[T])
	return ok
}

// CanUseRawStorage reports whether T values may live in pool memory that
// the garbage collector does not scan. Any pointer-carrying payload must
// stay on the Go heap.
func CanUseRawStorage[T any]() bool {
	var v T
	return !typeHasPointers(reflect.TypeOf(&v).Elem())
}

func typeHasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Chan,
		reflect.Func, reflect.Interface, reflect.String, reflect.Slice:
		return true
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if typeHasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	case reflect.Array:
		return t.Len() > 0 && typeHasPointers(t.Elem())
	default:
		return false
	}
}
