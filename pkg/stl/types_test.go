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
	"testing"

	"github.com/stretchr/testify/require"
)

type point struct {
	X, Y int32
}

type node struct {
	Val  int64
	Next *node
}

type handle struct {
	ID int64
}

func (h handle) Clone() (handle, error) {
	return handle{ID: h.ID}, nil
}

func TestSizeof(t *testing.T) {
	require.Equal(t, 8, Sizeof[int64]())
	require.Equal(t, 8, Sizeof[point]())
	require.Equal(t, 80, SizeOfMany[int64](10))
	require.Equal(t, 0, SizeOfMany[struct{}](10))
}

func TestCanUseRawStorage(t *testing.T) {
	require.True(t, CanUseRawStorage[int64]())
	require.True(t, CanUseRawStorage[point]())
	require.True(t, CanUseRawStorage[[4]point]())
	require.True(t, CanUseRawStorage[[0]string]())

	require.False(t, CanUseRawStorage[string]())
	require.False(t, CanUseRawStorage[[]byte]())
	require.False(t, CanUseRawStorage[*point]())
	require.False(t, CanUseRawStorage[node]())
	require.False(t, CanUseRawStorage[map[int]int]())
	require.False(t, CanUseRawStorage[any]())
	require.False(t, CanUseRawStorage[[3]*node]())
}

func TestIsCloner(t *testing.T) {
	require.True(t, IsCloner[handle]())
	require.False(t, IsCloner[int64]())
	require.False(t, IsCloner[point]())
}
