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
	"context"
	"io"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/xige-16/stream-write/internal/storage"
)

// MockSegmentStorage is a testify mock of storage.SegmentStorage for
// error injection.
type MockSegmentStorage struct {
	mock.Mock
}

var _ storage.SegmentStorage = (*MockSegmentStorage)(nil)

func (m *MockSegmentStorage) GetInfo(ctx context.Context, name string) (storage.SegmentInfo, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(storage.SegmentInfo), args.Error(1)
}

func (m *MockSegmentStorage) Write(ctx context.Context, name string, offset int64, r io.Reader, length int64) error {
	args := m.Called(ctx, name, offset, r, length)
	return args.Error(0)
}

func (m *MockSegmentStorage) Concat(ctx context.Context, parent, child string) error {
	args := m.Called(ctx, parent, child)
	return args.Error(0)
}

func (m *MockSegmentStorage) Seal(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

// recordingStorage wraps a SegmentStorage and records the size of every
// write, so tests can assert how a flush was split.
type recordingStorage struct {
	storage.SegmentStorage

	mu     sync.Mutex
	writes []int64
}

func newRecordingStorage(inner storage.SegmentStorage) *recordingStorage {
	return &recordingStorage{SegmentStorage: inner}
}

func (rs *recordingStorage) Write(ctx context.Context, name string, offset int64, r io.Reader, length int64) error {
	err := rs.SegmentStorage.Write(ctx, name, offset, r, length)
	if err == nil {
		rs.mu.Lock()
		rs.writes = append(rs.writes, length)
		rs.mu.Unlock()
	}
	return err
}

func (rs *recordingStorage) Writes() []int64 {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]int64, len(rs.writes))
	copy(out, rs.writes)
	return out
}
