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
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/matrixorigin/mostl/pkg/logutil"
)

const (
	// requests above this size bypass the class freelists
	largeSizeThreshold = maxClassSize

	defaultBufferedBytes = 256 * MB
)

// thresholdAllocator routes requests to the small or large upstream by size.
type thresholdAllocator struct {
	threshold uint64
	small     Allocator
	large     Allocator
}

var _ Allocator = thresholdAllocator{}

func (t thresholdAllocator) Allocate(size uint64, hints Hints) ([]byte, Deallocator, error) {
	if size > t.threshold {
		return t.large.Allocate(size, hints)
	}
	return t.small.Allocate(size, hints)
}

var defaultAllocator Allocator
var defaultAllocatorOnce sync.Once

// Default returns the process-wide allocator: per-P sharded class freelists
// for small requests, anonymous mappings for large ones.
func Default() Allocator {
	defaultAllocatorOnce.Do(func() {
		degree := runtime.GOMAXPROCS(0)
		defaultAllocator = thresholdAllocator{
			threshold: largeSizeThreshold,
			small: NewShardedAllocator(degree, func() Allocator {
				return NewClassAllocator(defaultBufferedBytes / uint64(degree))
			}),
			large: NewMmapAllocator(),
		}
		logutil.Info("malloc",
			zap.Int("shards", degree),
			zap.Uint64("min class size", minClassSize),
			zap.Uint64("max class size", maxClassSize),
			zap.Uint64("large threshold", largeSizeThreshold),
			zap.Uint64("buffered bytes", defaultBufferedBytes),
		)
	})
	return defaultAllocator
}
