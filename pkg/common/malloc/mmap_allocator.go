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
	"os"
)

// MmapAllocator serves large allocations from anonymous mappings, keeping
// them out of the Go heap so releasing one returns pages to the OS
// immediately.
type MmapAllocator struct {
	deallocatorPool *ClosureDeallocatorPool[mmapDeallocatorArgs]
}

type mmapDeallocatorArgs struct {
	mapped []byte
}

var pageSize = uint64(os.Getpagesize())

func NewMmapAllocator() *MmapAllocator {
	return &MmapAllocator{
		deallocatorPool: NewClosureDeallocatorPool(
			func(hints Hints, args *mmapDeallocatorArgs) {
				mmapFree(args.mapped)
			},
		),
	}
}

var _ Allocator = new(MmapAllocator)

func (m *MmapAllocator) Allocate(size uint64, hints Hints) ([]byte, Deallocator, error) {
	if size == 0 {
		return nil, NoopDeallocator, nil
	}
	length := (size + pageSize - 1) / pageSize * pageSize
	mapped, err := mmapAlloc(int(length))
	if err != nil {
		return nil, nil, err
	}
	// fresh anonymous pages are already zeroed, NoClear is implied
	return mapped[:size], m.deallocatorPool.Get(mmapDeallocatorArgs{
		mapped: mapped,
	}), nil
}
