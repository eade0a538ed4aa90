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
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/matrixorigin/mostl/pkg/common/moerr"
)

// Config tunes the global pool. Zero values mean defaults.
type Config struct {
	// GlobalCap limits the global pool in bytes, 0 is unlimited.
	GlobalCap int64 `toml:"global-cap"`
	// DetailRecording enables the per-size histogram on the global pool.
	DetailRecording bool `toml:"detail-recording"`
}

func (c *Config) FillDefaults() *Config {
	if c == nil {
		c = &Config{}
	}
	return c
}

// DecodeConfigFile reads a Config from a toml file.
func DecodeConfigFile(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, moerr.NewInvalidInput("bad mpool config %s: %s", path, err)
	}
	return cfg.FillDefaults(), nil
}

var globalPool *MPool
var globalOnce sync.Once

// InitGlobal applies cfg to the global pool. It is effective only before
// the first GlobalPool call.
func InitGlobal(cfg *Config) {
	globalOnce.Do(func() {
		cfg = cfg.FillDefaults()
		globalPool = MustNewMPool("global", cfg.GlobalCap)
		if cfg.DetailRecording {
			globalPool.EnableDetailRecording()
		}
	})
}

// GlobalPool returns the process-wide pool, creating it with defaults when
// InitGlobal was never called.
func GlobalPool() *MPool {
	InitGlobal(nil)
	return globalPool
}
