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
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/xige-16/stream-write/pkg/config"
)

// ParamItem is a single typed configuration entry resolved through the
// config manager, falling back to DefaultValue.
type ParamItem struct {
	Key          string
	Version      string
	DefaultValue string
	Doc          string
	Export       bool

	Formatter func(value string) string

	mgr *config.Manager
}

func (pi *ParamItem) Init(mgr *config.Manager) {
	pi.mgr = mgr
}

func (pi *ParamItem) GetValue() string {
	v, err := pi.mgr.GetConfigurationByKey(pi.Key)
	if err != nil {
		v = pi.DefaultValue
	}
	if pi.Formatter != nil {
		v = pi.Formatter(v)
	}
	return v
}

func (pi *ParamItem) GetAsStrings() []string {
	value := pi.GetValue()
	if value == "" {
		return nil
	}
	items := strings.Split(value, ",")
	for i := range items {
		items[i] = strings.TrimSpace(items[i])
	}
	return items
}

func (pi *ParamItem) GetAsInt() int {
	return cast.ToInt(pi.GetValue())
}

func (pi *ParamItem) GetAsInt64() int64 {
	return cast.ToInt64(pi.GetValue())
}

func (pi *ParamItem) GetAsBool() bool {
	return cast.ToBool(pi.GetValue())
}

func (pi *ParamItem) GetAsFloat() float64 {
	return cast.ToFloat64(pi.GetValue())
}

// GetAsDuration interprets the raw value as a number of the given unit.
func (pi *ParamItem) GetAsDuration(unit time.Duration) time.Duration {
	return time.Duration(cast.ToFloat64(pi.GetValue()) * float64(unit))
}
