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
	"sync"
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"

	"github.com/matrixorigin/mostl/pkg/common/malloc"
	"github.com/matrixorigin/mostl/pkg/common/moerr"
	"github.com/matrixorigin/mostl/pkg/logutil"
)

const (
	// single allocation cap, far beyond any sane request
	MaxAllocSize = 1 << 40

	numShards = 16
)

// Stats counts pool activity. All fields are atomics so that many vectors
// can share one pool.
type Stats struct {
	NumAlloc      atomic.Int64
	NumFree       atomic.Int64
	NumCurrBytes  atomic.Int64
	HighWaterMark atomic.Int64
}

// charge reserves sz bytes against cap. It fails without side effects when
// the capacity would be exceeded.
func (s *Stats) charge(sz int64, capacity int64) error {
	for {
		curr := s.NumCurrBytes.Load()
		next := curr + sz
		if capacity > 0 && next > capacity {
			return moerr.NewOOM()
		}
		if s.NumCurrBytes.CompareAndSwap(curr, next) {
			break
		}
	}
	s.NumAlloc.Add(1)
	for {
		curr := s.NumCurrBytes.Load()
		hw := s.HighWaterMark.Load()
		if curr <= hw || s.HighWaterMark.CompareAndSwap(hw, curr) {
			break
		}
	}
	return nil
}

func (s *Stats) uncharge(sz int64) {
	s.NumAlloc.Add(-1)
	s.NumCurrBytes.Add(-sz)
}

func (s *Stats) RecordFree(sz int64) {
	s.NumFree.Add(1)
	s.NumCurrBytes.Add(-sz)
}

type liveShard struct {
	sync.Mutex
	entries map[unsafe.Pointer]liveEntry
}

type liveEntry struct {
	dec  malloc.Deallocator
	size int64
}

// MPool is a named accounting pool. It charges every allocation against an
// optional capacity and remembers the deallocator of each live buffer.
type MPool struct {
	id    int64
	tag   string
	cap   int64 // 0 means unlimited
	stats Stats
	live  [numShards]liveShard

	detailMu sync.Mutex
	details  map[int64]int64 // size -> live count, nil unless recording
}

var nextPoolID atomic.Int64
var globalPools sync.Map // id -> *MPool

// NewMPool creates a pool and registers it for ReportMemUsage. cap == 0
// means no capacity limit.
func NewMPool(tag string, cap int64) (*MPool, error) {
	if cap < 0 {
		return nil, moerr.NewInvalidArg("mpool cap", cap)
	}
	m := &MPool{
		id:  nextPoolID.Add(1),
		tag: tag,
		cap: cap,
	}
	for i := range m.live {
		m.live[i].entries = make(map[unsafe.Pointer]liveEntry)
	}
	globalPools.Store(m.id, m)
	logutil.Debug("mpool create",
		zap.String("tag", tag),
		zap.Int64("id", m.id),
		zap.Int64("cap", cap),
	)
	return m, nil
}

// MustNewMPool is for tests and package-level defaults.
func MustNewMPool(tag string, cap int64) *MPool {
	m, err := NewMPool(tag, cap)
	if err != nil {
		panic(err)
	}
	return m
}

// DeleteMPool unregisters the pool. Leaked bytes are logged, not reclaimed.
func DeleteMPool(m *MPool) {
	if m == nil {
		return
	}
	if curr := m.stats.NumCurrBytes.Load(); curr != 0 {
		logutil.Error("mpool deleted with live bytes",
			zap.String("tag", m.tag),
			zap.Int64("id", m.id),
			zap.Int64("bytes", curr),
		)
	}
	globalPools.Delete(m.id)
}

func (m *MPool) Tag() string { return m.tag }

func (m *MPool) Cap() int64 { return m.cap }

// CurrNB returns the net number of live bytes.
func (m *MPool) CurrNB() int64 {
	return m.stats.NumCurrBytes.Load()
}

func (m *MPool) Stats() *Stats {
	return &m.stats
}

// EnableDetailRecording turns on the per-size live-allocation histogram.
func (m *MPool) EnableDetailRecording() {
	m.detailMu.Lock()
	defer m.detailMu.Unlock()
	if m.details == nil {
		m.details = make(map[int64]int64)
	}
}

func (m *MPool) recordDetail(sz int64, delta int64) {
	m.detailMu.Lock()
	defer m.detailMu.Unlock()
	if m.details == nil {
		return
	}
	m.details[sz] += delta
	if m.details[sz] == 0 {
		delete(m.details, sz)
	}
}

func (m *MPool) shardOf(p unsafe.Pointer) *liveShard {
	return &m.live[(uintptr(p)>>4)%numShards]
}

// Alloc returns a zeroed buffer of exactly sz bytes, or ErrOOM when the
// pool capacity would be exceeded.
func (m *MPool) Alloc(sz int) ([]byte, error) {
	if sz < 0 {
		return nil, moerr.NewInvalidArg("alloc size", sz)
	}
	if sz == 0 {
		return nil, nil
	}
	if sz > MaxAllocSize {
		return nil, moerr.NewLengthTooLong(sz, MaxAllocSize)
	}

	// reserve budget before touching the allocator
	if err := m.stats.charge(int64(sz), m.cap); err != nil {
		return nil, err
	}

	buf, dec, err := malloc.Default().Allocate(uint64(sz), malloc.NoHints)
	if err != nil {
		m.stats.uncharge(int64(sz))
		return nil, err
	}

	p := unsafe.Pointer(unsafe.SliceData(buf))
	shard := m.shardOf(p)
	shard.Lock()
	shard.entries[p] = liveEntry{dec: dec, size: int64(sz)}
	shard.Unlock()

	m.recordDetail(int64(sz), 1)
	return buf, nil
}

// Free releases a buffer obtained from Alloc or Realloc. Freeing nil is a
// no-op; freeing a foreign buffer is a programming error.
func (m *MPool) Free(buf []byte) {
	if len(buf) == 0 {
		return
	}
	p := unsafe.Pointer(unsafe.SliceData(buf))
	shard := m.shardOf(p)
	shard.Lock()
	entry, ok := shard.entries[p]
	if ok {
		delete(shard.entries, p)
	}
	shard.Unlock()
	if !ok {
		panic(moerr.NewInternalError("free of buffer not owned by mpool %s", m.tag))
	}

	entry.dec.Deallocate(malloc.NoHints)
	m.stats.RecordFree(entry.size)
	m.recordDetail(entry.size, -1)
}

// Realloc grows a buffer to sz bytes, preserving contents and zeroing the
// extension. The old buffer is freed.
func (m *MPool) Realloc(old []byte, sz int) ([]byte, error) {
	if sz <= len(old) {
		return old[:sz], nil
	}
	buf, err := m.Alloc(sz)
	if err != nil {
		return nil, err
	}
	copy(buf, old)
	m.Free(old)
	return buf, nil
}

type poolUsage struct {
	Tag           string `json:"tag"`
	ID            int64  `json:"id"`
	Cap           int64  `json:"cap"`
	CurrBytes     int64  `json:"curr_bytes"`
	HighWaterMark int64  `json:"high_water_mark"`
	NumAlloc      int64  `json:"num_alloc"`
	NumFree       int64  `json:"num_free"`

	Details map[int64]int64 `json:"details,omitempty"`
}

func (m *MPool) usage() poolUsage {
	u := poolUsage{
		Tag:           m.tag,
		ID:            m.id,
		Cap:           m.cap,
		CurrBytes:     m.stats.NumCurrBytes.Load(),
		HighWaterMark: m.stats.HighWaterMark.Load(),
		NumAlloc:      m.stats.NumAlloc.Load(),
		NumFree:       m.stats.NumFree.Load(),
	}
	m.detailMu.Lock()
	if m.details != nil {
		u.Details = make(map[int64]int64, len(m.details))
		for k, v := range m.details {
			u.Details[k] = v
		}
	}
	m.detailMu.Unlock()
	return u
}

// ReportMemUsage returns a JSON report of registered pools. An empty tag
// selects all pools.
func ReportMemUsage(tag string) string {
	usages := []poolUsage{}
	globalPools.Range(func(_, v any) bool {
		m := v.(*MPool)
		if tag == "" || m.tag == tag {
			usages = append(usages, m.usage())
		}
		return true
	})
	b, err := json.Marshal(usages)
	if err != nil {
		return "[]"
	}
	return string(b)
}
