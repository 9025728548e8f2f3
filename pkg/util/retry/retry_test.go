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

package retry

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestDo(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds after retries", func(t *testing.T) {
		attempts := 0
		err := Do(ctx, func() error {
			attempts++
			if attempts < 3 {
				return errors.New("flaky")
			}
			return nil
		}, Attempts(5), Sleep(time.Millisecond))
		assert.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("exhausts attempts", func(t *testing.T) {
		boom := errors.New("boom")
		attempts := 0
		err := Do(ctx, func() error {
			attempts++
			return boom
		}, Attempts(3), Sleep(time.Millisecond))
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 3, attempts)
	})

	t.Run("unretryable stops immediately", func(t *testing.T) {
		fatal := errors.New("fatal")
		attempts := 0
		err := Do(ctx, func() error {
			attempts++
			return fatal
		}, Attempts(5), Sleep(time.Millisecond), RetryErr(func(err error) bool {
			return !errors.Is(err, fatal)
		}))
		assert.ErrorIs(t, err, fatal)
		assert.Equal(t, 1, attempts)
	})

	t.Run("context cancellation stops the loop", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		boom := errors.New("boom")
		err := Do(cancelled, func() error {
			return boom
		}, Attempts(10), Sleep(50*time.Millisecond))
		assert.ErrorIs(t, err, context.Canceled)
		assert.ErrorIs(t, err, boom)
	})
}
