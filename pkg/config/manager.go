// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/exp/maps"

	"github.com/xige-16/stream-write/pkg/log"
)

// Manager merges configuration sources and serves lookups. Overrides set
// through Save take precedence over every source.
type Manager struct {
	sync.RWMutex
	sources   []Source
	overrides map[string]string
}

func NewManager(sources ...Source) *Manager {
	m := &Manager{
		sources:   sources,
		overrides: make(map[string]string),
	}
	// high priority sources consulted first
	sort.SliceStable(m.sources, func(i, j int) bool {
		return m.sources[i].GetPriority() < m.sources[j].GetPriority()
	})
	for _, s := range m.sources {
		if _, err := s.GetConfigurations(); err != nil {
			log.Warn("load config source failed", zap.String("source", s.GetSourceName()), zap.Error(err))
		}
	}
	return m
}

// GetConfigurationByKey looks a key up across overrides and sources.
func (m *Manager) GetConfigurationByKey(key string) (string, error) {
	formatted := formatKey(key)

	m.RLock()
	if v, ok := m.overrides[formatted]; ok {
		m.RUnlock()
		return v, nil
	}
	sources := m.sources
	m.RUnlock()

	for _, s := range sources {
		if v, err := s.GetConfigurationByKey(formatted); err == nil {
			return v, nil
		}
	}
	return "", ErrKeyNotFound
}

// GetConfigs returns a merged snapshot of all sources and overrides.
func (m *Manager) GetConfigs() map[string]string {
	merged := make(map[string]string)

	m.RLock()
	defer m.RUnlock()
	// low priority first so high priority wins on conflict
	for i := len(m.sources) - 1; i >= 0; i-- {
		configs, err := m.sources[i].GetConfigurations()
		if err != nil {
			continue
		}
		maps.Copy(merged, configs)
	}
	maps.Copy(merged, m.overrides)
	return merged
}

// Save sets a runtime override, mainly used by tests.
func (m *Manager) Save(key, value string) {
	m.Lock()
	defer m.Unlock()
	m.overrides[formatKey(key)] = value
}

// Reset removes a runtime override.
func (m *Manager) Reset(key string) {
	m.Lock()
	defer m.Unlock()
	delete(m.overrides, formatKey(key))
}

func (m *Manager) Close() {
	m.RLock()
	defer m.RUnlock()
	for _, s := range m.sources {
		s.Close()
	}
}
