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

package timerecord

import (
	"time"

	"go.uber.org/zap"

	"github.com/xige-16/stream-write/pkg/log"
)

// TimeRecorder provides methods to record time duration of an operation.
type TimeRecorder struct {
	header string
	start  time.Time
	last   time.Time
}

func NewTimeRecorder(header string) *TimeRecorder {
	now := time.Now()
	return &TimeRecorder{
		header: header,
		start:  now,
		last:   now,
	}
}

// RecordSpan returns the duration since the last record.
func (tr *TimeRecorder) RecordSpan() time.Duration {
	now := time.Now()
	span := now.Sub(tr.last)
	tr.last = now
	return span
}

// ElapseSpan returns the duration since the recorder was created.
func (tr *TimeRecorder) ElapseSpan() time.Duration {
	now := time.Now()
	span := now.Sub(tr.start)
	tr.last = now
	return span
}

// Elapse logs the total elapsed duration with the given message.
func (tr *TimeRecorder) Elapse(msg string) time.Duration {
	span := tr.ElapseSpan()
	log.Debug(tr.header, zap.String("msg", msg), zap.Duration("duration", span))
	return span
}
