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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComponentParamDefaults(t *testing.T) {
	var p ComponentParam
	p.init(NewBaseTable(Files("/non/existent.yaml"), SkipEnv(true)))

	assert.EqualValues(t, 4194304, p.SegmentWriterCfg.FlushThresholdSize.GetAsInt64())
	assert.Equal(t, 30*time.Second, p.SegmentWriterCfg.FlushThresholdInterval.GetAsDuration(time.Second))
	assert.EqualValues(t, 16777216, p.SegmentWriterCfg.MaxFlushSize.GetAsInt64())
	assert.Equal(t, time.Minute, p.SegmentWriterCfg.FlushTimeout.GetAsDuration(time.Second))

	assert.Equal(t, "minio", p.ObjectStorageCfg.Provider.GetValue())
	assert.False(t, p.ObjectStorageCfg.UseSSL.GetAsBool())
	assert.Equal(t, "stream-write", p.ObjectStorageCfg.BucketName.GetValue())

	assert.Equal(t, "info", p.LogCfg.Level.GetValue())
	assert.True(t, p.LogCfg.Stdout.GetAsBool())
}

func TestComponentParamOverride(t *testing.T) {
	var p ComponentParam
	p.init(NewBaseTable(Files("/non/existent.yaml"), SkipEnv(true)))

	p.Save(p.SegmentWriterCfg.MaxFlushSize.Key, "1024")
	defer p.Reset(p.SegmentWriterCfg.MaxFlushSize.Key)
	assert.EqualValues(t, 1024, p.SegmentWriterCfg.MaxFlushSize.GetAsInt64())
}
