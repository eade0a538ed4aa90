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
	"github.com/matrixorigin/mostl/pkg/common/mpool"
)

// DefaultAllocator charges vectors created without an explicit pool.
var DefaultAllocator = mpool.GlobalPool()

type Options struct {
	// Capacity is a sizing hint: the vector still starts without storage,
	// but its first growth jumps straight to at least this many slots.
	Capacity int
	// Allocator selects the accounting pool to charge. Nil means
	// DefaultAllocator.
	Allocator *mpool.MPool
}

func (opts Options) pool() *mpool.MPool {
	if opts.Allocator != nil {
		return opts.Allocator
	}
	return DefaultAllocator
}
