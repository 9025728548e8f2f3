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

package merr

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	t.Run("usage", func(t *testing.T) {
		err := WrapErrAggregatorClosed("segment-1")
		assert.ErrorIs(t, err, ErrAggregatorClosed)
		assert.True(t, IsUsage(err))
		assert.False(t, IsCorruption(err))
		assert.False(t, IsRetryable(err))
	})

	t.Run("corruption", func(t *testing.T) {
		err := WrapErrSegmentCorrupted("segment-1", "offset gap")
		assert.ErrorIs(t, err, ErrSegmentCorrupted)
		assert.True(t, IsCorruption(err))
		assert.False(t, IsUsage(err))
		assert.False(t, IsRetryable(err))
	})

	t.Run("transient", func(t *testing.T) {
		err := WrapErrOffsetMismatch("segment-1", 10, 20)
		assert.ErrorIs(t, err, ErrOffsetMismatch)
		assert.True(t, IsRetryable(err))

		assert.True(t, IsRetryable(WrapErrTimeout("flush")))
		assert.True(t, IsRetryable(errors.New("some driver error")))
	})

	t.Run("io failure keeps the cause chain", func(t *testing.T) {
		err := WrapErrIoFailed("segment-1", context.DeadlineExceeded)
		assert.ErrorIs(t, err, ErrIoFailed)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("nil is not retryable", func(t *testing.T) {
		assert.False(t, IsRetryable(nil))
	})
}

func TestCombine(t *testing.T) {
	assert.NoError(t, Combine(nil, nil))

	first := errors.New("first")
	second := errors.New("second")
	combined := Combine(nil, first, second)
	assert.ErrorIs(t, combined, first)
}
