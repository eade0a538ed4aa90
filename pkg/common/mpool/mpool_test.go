// Copyright 2021 - 2024 Matrix Origin
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

package mpool

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/mostl/pkg/common/moerr"
)

func TestMPool(t *testing.T) {
	m, err := NewMPool("test-mpool-small", 0)
	require.True(t, err == nil, "new mpool failed %v", err)
	defer DeleteMPool(m)

	nb0 := m.CurrNB()
	nalloc0 := m.Stats().NumAlloc.Load()
	nfree0 := m.Stats().NumFree.Load()

	require.True(t, nalloc0 == 0, "bad nalloc")
	require.True(t, nfree0 == 0, "bad nfree")

	for i := 1; i <= 1000; i++ {
		a, err := m.Alloc(i * 10)
		require.True(t, err == nil, "alloc failure, %v", err)
		require.True(t, len(a) == i*10, "allocation size error")
		a[0] = 0xF0
		require.True(t, a[1] == 0, "allocation result not zeroed")
		a[i*10-1] = 0xBA
		a, err = m.Realloc(a, i*20)
		require.True(t, err == nil, "realloc failure %v", err)
		require.True(t, len(a) == i*20, "reallocation size error")
		require.True(t, a[0] == 0xF0, "reallocation not copied")
		require.True(t, a[i*10-1] == 0xBA, "reallocation not copied")
		require.True(t, a[i*10] == 0, "reallocation not zeroed")
		require.True(t, a[i*20-1] == 0, "reallocation not zeroed")
		m.Free(a)
	}

	require.True(t, nb0 == m.CurrNB(), "leak")
	require.True(t, m.Stats().NumAlloc.Load() == m.Stats().NumFree.Load(), "alloc/free unbalanced")
	require.True(t, m.Stats().HighWaterMark.Load() >= 1000*30, "hw")
}

func TestMPoolCap(t *testing.T) {
	m, err := NewMPool("test-mpool-capped", 1024)
	require.NoError(t, err)
	defer DeleteMPool(m)

	a, err := m.Alloc(1000)
	require.NoError(t, err)

	// 24 bytes of budget left
	_, err = m.Alloc(100)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrOOM), "want OOM, got %v", err)

	// a failed alloc must not leak budget
	require.Equal(t, int64(1000), m.CurrNB())

	m.Free(a)
	require.Equal(t, int64(0), m.CurrNB())

	b, err := m.Alloc(1024)
	require.NoError(t, err)
	m.Free(b)
}

func TestMPoolBadInput(t *testing.T) {
	m := MustNewMPool("test-mpool-bad", 0)
	defer DeleteMPool(m)

	_, err := m.Alloc(-1)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidArg))

	_, err = m.Alloc(MaxAllocSize + 1)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrLengthTooLong))

	buf, err := m.Alloc(0)
	require.NoError(t, err)
	require.Nil(t, buf)
	m.Free(buf)

	require.Panics(t, func() {
		m.Free(make([]byte, 16))
	})
}

func TestReportMemUsage(t *testing.T) {
	m, err := NewMPool("test-mpool-json", 0)
	require.True(t, err == nil, "new mpool failed %v", err)
	m.EnableDetailRecording()

	mem, err := m.Alloc(1000000)
	require.True(t, err == nil, "mpool alloc failed %v", err)

	report := ReportMemUsage("test-mpool-json")
	var usages []poolUsage
	require.NoError(t, json.Unmarshal([]byte(report), &usages))
	require.Equal(t, 1, len(usages))
	require.Equal(t, int64(1000000), usages[0].CurrBytes)
	require.Equal(t, int64(1), usages[0].Details[1000000])

	m.Free(mem)
	report = ReportMemUsage("test-mpool-json")
	require.NoError(t, json.Unmarshal([]byte(report), &usages))
	require.Equal(t, int64(0), usages[0].CurrBytes)

	DeleteMPool(m)
	report = ReportMemUsage("test-mpool-json")
	require.Equal(t, "[]", report)
}

func TestMPoolConcurrent(t *testing.T) {
	m := MustNewMPool("test-mpool-concurrent", 0)
	defer DeleteMPool(m)

	workers, err := ants.NewPool(32)
	require.NoError(t, err)
	defer workers.Release()

	var wg sync.WaitGroup
	for i := 0; i < 800; i++ {
		wg.Add(1)
		err := workers.Submit(func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				buf, err := m.Alloc(10)
				if err != nil {
					panic(err)
				}
				m.Free(buf)
			}
		})
		require.NoError(t, err)
	}
	wg.Wait()

	require.Equal(t, int64(0), m.CurrNB(), "leak")
}

func TestConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mpool.toml")
	content := "global-cap = 4096\ndetail-recording = true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := DecodeConfigFile(path)
	require.NoError(t, err)
	require.Equal(t, int64(4096), cfg.GlobalCap)
	require.True(t, cfg.DetailRecording)

	_, err = DecodeConfigFile(filepath.Join(dir, "missing.toml"))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))

	var nilCfg *Config
	require.NotNil(t, nilCfg.FillDefaults())
}

func TestGlobalPool(t *testing.T) {
	p := GlobalPool()
	require.NotNil(t, p)
	require.True(t, p == GlobalPool(), "global pool must be a singleton")
	require.Equal(t, "global", p.Tag())
}

func BenchmarkMPoolAlloc(b *testing.B) {
	m := MustNewMPool("bench-mpool", 0)
	defer DeleteMPool(m)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf, err := m.Alloc(64)
		if err != nil {
			b.Fatal(err)
		}
		m.Free(buf)
	}
}
