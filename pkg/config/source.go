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
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	HighPriority = 1
	LowPriority  = 10
)

var ErrKeyNotFound = errors.New("key not found")

// Source supplies configuration key/value pairs. Sources with a lower
// priority value win on conflicting keys.
type Source interface {
	GetConfigurationByKey(key string) (string, error)
	GetConfigurations() (map[string]string, error)
	GetPriority() int
	GetSourceName() string
	Close()
}

// formatKey normalizes keys so lookups ignore case and separators.
func formatKey(key string) string {
	ret := strings.ToLower(key)
	ret = strings.ReplaceAll(ret, "/", "")
	ret = strings.ReplaceAll(ret, "_", "")
	ret = strings.ReplaceAll(ret, ".", "")
	return ret
}
