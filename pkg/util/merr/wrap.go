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

func WrapErrAggregatorClosed(segment string) error {
	return errors.Wrapf(ErrAggregatorClosed, "segment=%s", segment)
}

func WrapErrAggregatorNotInit(segment string) error {
	return errors.Wrapf(ErrAggregatorNotInit, "segment=%s", segment)
}

func WrapErrAggregatorInitialized(segment string) error {
	return errors.Wrapf(ErrAggregatorInitialized, "segment=%s", segment)
}

func WrapErrInvalidRouting(segment string, want, got int64) error {
	return errors.Wrapf(ErrInvalidRouting, "segment=%s, expected id=%d, got id=%d", segment, want, got)
}

func WrapErrOversizedAppend(segment string, length, limit int64) error {
	return errors.Wrapf(ErrOversizedAppend, "segment=%s, length=%d, max=%d", segment, length, limit)
}

func WrapErrSegmentSealed(segment string) error {
	return errors.Wrapf(ErrSegmentSealed, "segment=%s", segment)
}

// WrapErrSegmentCorrupted records the observed inconsistency. detail should
// name the two sources of truth that disagree and both observed values.
func WrapErrSegmentCorrupted(segment string, detail string) error {
	return errors.Wrapf(ErrSegmentCorrupted, "segment=%s: %s", segment, detail)
}

func WrapErrTimeout(op string) error {
	return errors.Wrapf(ErrTimeout, "operation=%s", op)
}

func WrapErrOffsetMismatch(segment string, want, got int64) error {
	return errors.Wrapf(ErrOffsetMismatch, "segment=%s, write offset=%d, storage tail=%d", segment, want, got)
}

func WrapErrNoSuchSegment(segment string) error {
	return errors.Wrapf(ErrNoSuchSegment, "segment=%s", segment)
}

// WrapErrIoFailed marks err as a storage io failure, keeping the original
// chain intact so callers can still detect context cancellation.
func WrapErrIoFailed(segment string, err error) error {
	if err == nil {
		return errors.Wrapf(ErrIoFailed, "segment=%s", segment)
	}
	return errors.Mark(errors.Wrapf(err, "segment=%s: storage io failed", segment), ErrIoFailed)
}
