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
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestClassAllocator(t *testing.T) {
	allocator := NewClassAllocator(16 * MB)
	for i := 1; i < 1024; i += 7 {
		buf, dec, err := allocator.Allocate(uint64(i), NoHints)
		require.NoError(t, err)
		require.Equal(t, i, len(buf))
		for j := range buf {
			require.Equal(t, byte(0), buf[j], "allocation not zeroed")
			buf[j] = 0xAB
		}
		dec.Deallocate(NoHints)
	}
}

func TestClassAllocatorReuse(t *testing.T) {
	allocator := NewClassAllocator(16 * MB)
	buf, dec, err := allocator.Allocate(200, NoHints)
	require.NoError(t, err)
	buf[0] = 0xFF
	dec.Deallocate(NoHints)

	// the reused buffer must come back zeroed
	buf2, dec2, err := allocator.Allocate(200, NoHints)
	require.NoError(t, err)
	require.Equal(t, byte(0), buf2[0])
	dec2.Deallocate(NoHints)
}

func TestClassAllocatorOversize(t *testing.T) {
	allocator := NewClassAllocator(16 * MB)
	buf, dec, err := allocator.Allocate(maxClassSize+1, NoHints)
	require.NoError(t, err)
	require.Equal(t, maxClassSize+1, len(buf))
	dec.Deallocate(NoHints)
}

func TestClassAllocatorZeroSize(t *testing.T) {
	allocator := NewClassAllocator(16 * MB)
	buf, dec, err := allocator.Allocate(0, NoHints)
	require.NoError(t, err)
	require.Equal(t, 0, len(buf))
	dec.Deallocate(NoHints)
}

func TestMmapAllocator(t *testing.T) {
	allocator := NewMmapAllocator()
	buf, dec, err := allocator.Allocate(2*MB+3, NoHints)
	require.NoError(t, err)
	require.Equal(t, 2*MB+3, len(buf))
	buf[0] = 0x1
	buf[len(buf)-1] = 0x2
	dec.Deallocate(NoHints)
}

func TestShardedAllocator(t *testing.T) {
	allocator := NewShardedAllocator(4, func() Allocator {
		return NewClassAllocator(4 * MB)
	})
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				buf, dec, err := allocator.Allocate(512, NoHints)
				if err != nil {
					panic(err)
				}
				buf[0] = byte(j)
				dec.Deallocate(NoHints)
			}
		}()
	}
	wg.Wait()
}

func TestDefaultRouting(t *testing.T) {
	allocator := Default()

	small, dec, err := allocator.Allocate(1*KB, NoHints)
	require.NoError(t, err)
	require.Equal(t, 1*KB, len(small))
	dec.Deallocate(NoHints)

	large, dec, err := allocator.Allocate(4*MB, NoHints)
	require.NoError(t, err)
	require.Equal(t, 4*MB, len(large))
	dec.Deallocate(NoHints)
}

func TestMetricsAllocator(t *testing.T) {
	allocateBytes := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_allocate_bytes"})
	inuseBytes := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_inuse_bytes"})
	allocateObjects := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_allocate_objects"})
	inuseObjects := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_inuse_objects"})

	allocator := NewMetricsAllocator(
		NewClassAllocator(4*MB),
		allocateBytes,
		inuseBytes,
		allocateObjects,
		inuseObjects,
	)

	buf, dec, err := allocator.Allocate(1000, NoHints)
	require.NoError(t, err)
	require.Equal(t, 1000, len(buf))
	require.Equal(t, float64(1000), testutil.ToFloat64(allocateBytes))
	require.Equal(t, float64(1000), testutil.ToFloat64(inuseBytes))
	require.Equal(t, float64(1), testutil.ToFloat64(allocateObjects))
	require.Equal(t, float64(1), testutil.ToFloat64(inuseObjects))

	dec.Deallocate(NoHints)
	require.Equal(t, float64(1000), testutil.ToFloat64(allocateBytes))
	require.Equal(t, float64(0), testutil.ToFloat64(inuseBytes))
	require.Equal(t, float64(0), testutil.ToFloat64(inuseObjects))
}

func BenchmarkDefaultAllocator(b *testing.B) {
	allocator := Default()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			buf, dec, err := allocator.Allocate(512, NoHints)
			if err != nil {
				b.Fatal(err)
			}
			_ = buf
			dec.Deallocate(NoHints)
		}
	})
}
