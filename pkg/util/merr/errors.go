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
	"github.com/cockroachdb/errors"
)

// The write path distinguishes three disjoint error kinds. Usage errors are
// caller contract violations, the aggregator state is undefined after one
// escapes. Corruption errors mean metadata, storage and the operation stream
// disagree; the expected driver response is to halt the container. Transient
// errors leave the queue untouched and the same flush may be retried.
var (
	// usage errors
	ErrAggregatorClosed      = errors.New("aggregator is closed")
	ErrAggregatorNotInit     = errors.New("aggregator not initialized")
	ErrAggregatorInitialized = errors.New("aggregator already initialized")
	ErrInvalidRouting        = errors.New("operation routed to wrong segment")
	ErrOversizedAppend       = errors.New("append exceeds max flush size")
	ErrSegmentSealed         = errors.New("segment has a pending seal")
	ErrParameterInvalid      = errors.New("invalid parameter")

	// corruption errors
	ErrSegmentCorrupted = errors.New("segment data corruption")

	// transient errors
	ErrTimeout        = errors.New("deadline exceeded")
	ErrOffsetMismatch = errors.New("write offset does not match storage tail")
	ErrNoSuchSegment  = errors.New("segment not found in storage")
	ErrIoFailed       = errors.New("storage io failed")
)

var usageErrors = []error{
	ErrAggregatorClosed,
	ErrAggregatorNotInit,
	ErrAggregatorInitialized,
	ErrInvalidRouting,
	ErrOversizedAppend,
	ErrSegmentSealed,
	ErrParameterInvalid,
}

// IsUsage reports whether err is a caller contract violation.
func IsUsage(err error) bool {
	for _, usage := range usageErrors {
		if errors.Is(err, usage) {
			return true
		}
	}
	return false
}

// IsCorruption reports whether err carries the corruption kind.
func IsCorruption(err error) bool {
	return errors.Is(err, ErrSegmentCorrupted)
}

// IsRetryable reports whether err is a transient failure worth retrying.
// Usage and corruption errors are never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !IsUsage(err) && !IsCorruption(err)
}

// Combine returns an error that wraps all non-nil inputs.
func Combine(errs ...error) error {
	var combined error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if combined == nil {
			combined = err
			continue
		}
		combined = errors.WithSecondaryError(combined, err)
	}
	return combined
}
