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

package typeutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConcurrentMap(t *testing.T) {
	m := NewConcurrentMap[int64, string]()
	assert.Equal(t, 0, m.Len())

	m.Insert(1, "one")
	m.Insert(1, "one again")
	assert.Equal(t, 1, m.Len())

	v, ok := m.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "one again", v)

	stored, loaded := m.GetOrInsert(1, "never")
	assert.True(t, loaded)
	assert.Equal(t, "one again", stored)

	stored, loaded = m.GetOrInsert(2, "two")
	assert.False(t, loaded)
	assert.Equal(t, "two", stored)
	assert.Equal(t, 2, m.Len())
	assert.True(t, m.Contain(2))

	removed, ok := m.GetAndRemove(1)
	assert.True(t, ok)
	assert.Equal(t, "one again", removed)
	assert.Equal(t, 1, m.Len())

	_, ok = m.GetAndRemove(1)
	assert.False(t, ok)

	m.Remove(2)
	assert.Equal(t, 0, m.Len())
	assert.Empty(t, m.Keys())
}
