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

package storage

import (
	"context"
	"io"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/xige-16/stream-write/pkg/util/merr"
)

type memorySegment struct {
	data   []byte
	sealed bool
}

// MemorySegmentStorage is an in-process SegmentStorage enforcing the same
// contract as the remote tiers. Used by tests and local development.
type MemorySegmentStorage struct {
	mu       sync.Mutex
	segments map[string]*memorySegment
}

var _ SegmentStorage = (*MemorySegmentStorage)(nil)

func NewMemorySegmentStorage() *MemorySegmentStorage {
	return &MemorySegmentStorage{
		segments: make(map[string]*memorySegment),
	}
}

// GetInfo implements SegmentStorage.
func (mss *MemorySegmentStorage) GetInfo(ctx context.Context, name string) (SegmentInfo, error) {
	if err := ctx.Err(); err != nil {
		return SegmentInfo{}, merr.WrapErrIoFailed(name, err)
	}
	mss.mu.Lock()
	defer mss.mu.Unlock()

	seg, ok := mss.segments[name]
	if !ok {
		return SegmentInfo{}, nil
	}
	return SegmentInfo{Length: int64(len(seg.data)), Sealed: seg.sealed}, nil
}

// Write implements SegmentStorage.
func (mss *MemorySegmentStorage) Write(ctx context.Context, name string, offset int64, r io.Reader, length int64) error {
	if err := ctx.Err(); err != nil {
		return merr.WrapErrIoFailed(name, err)
	}
	payload, err := io.ReadAll(io.LimitReader(r, length))
	if err != nil {
		return merr.WrapErrIoFailed(name, err)
	}
	if int64(len(payload)) != length {
		return merr.WrapErrIoFailed(name, errors.Newf("short payload: want %d bytes, got %d", length, len(payload)))
	}

	mss.mu.Lock()
	defer mss.mu.Unlock()

	seg, ok := mss.segments[name]
	if !ok {
		seg = &memorySegment{}
		mss.segments[name] = seg
	}
	if seg.sealed {
		return merr.WrapErrIoFailed(name, errors.New("segment is sealed in storage"))
	}
	if tail := int64(len(seg.data)); offset != tail {
		return merr.WrapErrOffsetMismatch(name, offset, tail)
	}
	seg.data = append(seg.data, payload...)
	return nil
}

// Concat implements SegmentStorage.
func (mss *MemorySegmentStorage) Concat(ctx context.Context, parent, child string) error {
	if err := ctx.Err(); err != nil {
		return merr.WrapErrIoFailed(parent, err)
	}
	mss.mu.Lock()
	defer mss.mu.Unlock()

	childSeg, ok := mss.segments[child]
	if !ok {
		return merr.WrapErrNoSuchSegment(child)
	}
	parentSeg, ok := mss.segments[parent]
	if !ok {
		parentSeg = &memorySegment{}
		mss.segments[parent] = parentSeg
	}
	if parentSeg.sealed {
		return merr.WrapErrIoFailed(parent, errors.New("segment is sealed in storage"))
	}
	parentSeg.data = append(parentSeg.data, childSeg.data...)
	delete(mss.segments, child)
	return nil
}

// Seal implements SegmentStorage.
func (mss *MemorySegmentStorage) Seal(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return merr.WrapErrIoFailed(name, err)
	}
	mss.mu.Lock()
	defer mss.mu.Unlock()

	seg, ok := mss.segments[name]
	if !ok {
		seg = &memorySegment{}
		mss.segments[name] = seg
	}
	seg.sealed = true
	return nil
}

// Bytes returns a copy of the segment's content, for assertions.
func (mss *MemorySegmentStorage) Bytes(name string) []byte {
	mss.mu.Lock()
	defer mss.mu.Unlock()

	seg, ok := mss.segments[name]
	if !ok {
		return nil
	}
	out := make([]byte, len(seg.data))
	copy(out, seg.data)
	return out
}

// Exists reports whether a segment is present, for assertions.
func (mss *MemorySegmentStorage) Exists(name string) bool {
	mss.mu.Lock()
	defer mss.mu.Unlock()
	_, ok := mss.segments[name]
	return ok
}

// Put seeds a segment's content directly, for test setup.
func (mss *MemorySegmentStorage) Put(name string, data []byte, sealed bool) {
	mss.mu.Lock()
	defer mss.mu.Unlock()
	mss.segments[name] = &memorySegment{data: append([]byte(nil), data...), sealed: sealed}
}
