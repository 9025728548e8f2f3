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
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/maps"
)

// EnvSource exposes process environment variables as configuration.
// Environment keys override file keys.
type EnvSource struct {
	configs map[string]string
}

func NewEnvSource() *EnvSource {
	es := &EnvSource{
		configs: make(map[string]string),
	}
	for _, value := range os.Environ() {
		rs := []rune(value)
		in := strings.Index(value, "=")
		key := string(rs[0:in])
		value := string(rs[in+1:])
		es.configs[key] = value
		es.configs[formatKey(key)] = value
	}
	return es
}

// GetConfigurationByKey implements Source
func (es *EnvSource) GetConfigurationByKey(key string) (string, error) {
	v, ok := es.configs[key]
	if !ok {
		return "", errors.Wrap(ErrKeyNotFound, key)
	}
	return v, nil
}

// GetConfigurations implements Source
func (es *EnvSource) GetConfigurations() (map[string]string, error) {
	configMap := make(map[string]string)
	maps.Copy(configMap, es.configs)
	return configMap, nil
}

// GetPriority implements Source
func (es *EnvSource) GetPriority() int {
	return HighPriority
}

// GetSourceName implements Source
func (es *EnvSource) GetSourceName() string {
	return "EnvironmentSource"
}

func (es *EnvSource) Close() {
}
