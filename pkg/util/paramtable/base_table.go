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

package paramtable

import (
	"os"
	"path"

	"github.com/xige-16/stream-write/pkg/config"
)

const configEnvKey = "STREAMWRITE_CONFIG_PATH"

var defaultYaml = "stream-write.yaml"

// BaseTable holds the raw configuration manager behind every ParamItem.
type BaseTable struct {
	mgr *config.Manager
}

type baseTableConfig struct {
	yamlFiles []string
	skipEnv   bool
}

type Option func(*baseTableConfig)

func Files(files ...string) Option {
	return func(c *baseTableConfig) {
		c.yamlFiles = files
	}
}

func SkipEnv(skip bool) Option {
	return func(c *baseTableConfig) {
		c.skipEnv = skip
	}
}

func NewBaseTable(opts ...Option) *BaseTable {
	c := &baseTableConfig{
		yamlFiles: []string{defaultConfPath()},
	}
	for _, opt := range opts {
		opt(c)
	}

	sources := []config.Source{config.NewFileSource(c.yamlFiles...)}
	if !c.skipEnv {
		sources = append(sources, config.NewEnvSource())
	}
	return &BaseTable{mgr: config.NewManager(sources...)}
}

func defaultConfPath() string {
	if p := os.Getenv(configEnvKey); p != "" {
		return p
	}
	return path.Join("configs", defaultYaml)
}

// Manager exposes the underlying config manager.
func (bt *BaseTable) Manager() *config.Manager {
	return bt.mgr
}

// Save sets a runtime override, mainly used by tests.
func (bt *BaseTable) Save(key, value string) {
	bt.mgr.Save(key, value)
}

// Reset removes a runtime override.
func (bt *BaseTable) Reset(key string) {
	bt.mgr.Reset(key)
}
