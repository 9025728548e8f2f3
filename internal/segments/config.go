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

package segments

import (
	"time"

	"github.com/xige-16/stream-write/pkg/util/paramtable"
)

// Config bounds the flush behavior of one segment aggregator.
type Config struct {
	// FlushThresholdSize is the outstanding byte count that forces a flush.
	FlushThresholdSize int64
	// FlushThresholdInterval is the age since the last flush that forces a
	// flush.
	FlushThresholdInterval time.Duration
	// MaxFlushSize bounds a single storage write and a single append.
	MaxFlushSize int64
}

// NewConfigFromParams reads the segmentWriter section of the param table.
func NewConfigFromParams(params *paramtable.ComponentParam) Config {
	cfg := &params.SegmentWriterCfg
	return Config{
		FlushThresholdSize:     cfg.FlushThresholdSize.GetAsInt64(),
		FlushThresholdInterval: cfg.FlushThresholdInterval.GetAsDuration(time.Second),
		MaxFlushSize:           cfg.MaxFlushSize.GetAsInt64(),
	}
}

// WriterConfig bounds the segment writer driver.
type WriterConfig struct {
	Aggregator Config
	// FlushTimeout is the deadline granted to one flush invocation.
	FlushTimeout time.Duration
	// FlushCheckInterval is the poll interval of the per-segment loop.
	FlushCheckInterval time.Duration
}

// NewWriterConfigFromParams reads the segmentWriter section of the param
// table.
func NewWriterConfigFromParams(params *paramtable.ComponentParam) WriterConfig {
	cfg := &params.SegmentWriterCfg
	return WriterConfig{
		Aggregator:         NewConfigFromParams(params),
		FlushTimeout:       cfg.FlushTimeout.GetAsDuration(time.Second),
		FlushCheckInterval: cfg.FlushCheckInterval.GetAsDuration(time.Second),
	}
}
