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
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/xige-16/stream-write/internal/storage"
	"github.com/xige-16/stream-write/pkg/util/merr"
	"github.com/xige-16/stream-write/pkg/util/typeutil"
)

func TestSegmentWriterSuite(t *testing.T) {
	suite.Run(t, new(SegmentWriterSuite))
}

type SegmentWriterSuite struct {
	suite.Suite

	ctx    context.Context
	ds     *MemoryDataSource
	mem    *storage.MemorySegmentStorage
	writer *SegmentWriter
}

func (s *SegmentWriterSuite) SetupTest() {
	s.ctx = context.Background()
	s.ds = NewMemoryDataSource(testContainerID)
	s.mem = storage.NewMemorySegmentStorage()
	s.writer = NewSegmentWriter(s.ds, s.mem, WriterConfig{
		Aggregator: Config{
			FlushThresholdSize:     64,
			FlushThresholdInterval: time.Hour,
			MaxFlushSize:           1024,
		},
		FlushTimeout:       5 * time.Second,
		FlushCheckInterval: 10 * time.Millisecond,
	})
}

func (s *SegmentWriterSuite) TearDownTest() {
	s.writer.Stop()
}

func (s *SegmentWriterSuite) openSegment(id typeutil.UniqueID, name string, parentID typeutil.UniqueID) *SegmentMeta {
	meta := NewSegmentMeta(id, testContainerID, name, parentID)
	s.ds.RegisterSegment(meta)
	s.Require().NoError(s.writer.OpenSegment(s.ctx, meta))
	return meta
}

func (s *SegmentWriterSuite) TestOpenSegment() {
	meta := s.openSegment(1, "segment-1", typeutil.NoneUniqueID)
	s.Equal([]typeutil.UniqueID{typeutil.UniqueID(1)}, s.writer.ActiveSegments())

	err := s.writer.OpenSegment(s.ctx, meta)
	s.Error(err)
}

func (s *SegmentWriterSuite) TestAddUnknownSegment() {
	err := s.writer.Add(NewAppendOp(42, 0, 0, []byte("abc")))
	s.ErrorIs(err, merr.ErrInvalidRouting)
}

func (s *SegmentWriterSuite) TestBackgroundFlush() {
	meta := s.openSegment(1, "segment-1", typeutil.NoneUniqueID)

	payload := bytes.Repeat([]byte{'w'}, 100)
	meta.SetDurableLogLength(100)
	s.Require().NoError(s.writer.Add(NewAppendOp(1, 0, 0, payload)))

	s.Eventually(func() bool {
		return meta.StorageLength() == 100
	}, 5*time.Second, 10*time.Millisecond)
	s.Equal(payload, s.mem.Bytes("segment-1"))
	s.EqualValues(0, s.writer.PendingBytes())
}

func (s *SegmentWriterSuite) TestSealRetiresAggregator() {
	meta := s.openSegment(1, "segment-1", typeutil.NoneUniqueID)

	meta.SetDurableLogLength(10)
	s.Require().NoError(s.writer.Add(NewAppendOp(1, 0, 0, make([]byte, 10))))
	meta.MarkSealed()
	s.Require().NoError(s.writer.Add(NewSealOp(1, 1, 10)))

	s.Eventually(func() bool {
		return meta.IsSealedInStorage() && len(s.writer.ActiveSegments()) == 0
	}, 5*time.Second, 10*time.Millisecond)
	s.False(s.writer.IsHalted())
}

func (s *SegmentWriterSuite) TestMergeThroughWriter() {
	parent := s.openSegment(1, "segment-1", typeutil.NoneUniqueID)
	child := s.openSegment(2, "segment-2", 1)

	// child receives its data and seals
	child.SetDurableLogLength(40)
	s.Require().NoError(s.writer.Add(NewAppendOp(2, 0, 0, bytes.Repeat([]byte{'c'}, 40))))
	child.MarkSealed()
	s.Require().NoError(s.writer.Add(NewSealOp(2, 1, 40)))

	// the merge waits until the child is drained, then folds it in
	parent.SetDurableLogLength(40)
	s.Require().NoError(s.writer.Add(NewMergeBatchOp(1, 2, 0, 0, 40)))

	s.Eventually(func() bool {
		return parent.StorageLength() == 40 && child.IsDeleted()
	}, 5*time.Second, 10*time.Millisecond)
	s.True(s.ds.MergeCompleted(1, 2))
	s.True(s.ds.SegmentDeleted("segment-2"))
	s.Equal(bytes.Repeat([]byte{'c'}, 40), s.mem.Bytes("segment-1"))
}

func (s *SegmentWriterSuite) TestCorruptionHaltsWriter() {
	meta := s.openSegment(1, "segment-1", typeutil.NoneUniqueID)

	// cached append whose payload was never put, with a seal to force the
	// drain path
	meta.SetDurableLogLength(20)
	s.Require().NoError(s.writer.Add(NewCachedAppendOp(1, 0, 0, 20, "lost-key")))
	meta.MarkSealed()
	s.Require().NoError(s.writer.Add(NewSealOp(1, 1, 20)))

	s.Eventually(func() bool {
		return s.writer.IsHalted()
	}, 5*time.Second, 10*time.Millisecond)
	s.EqualValues(0, meta.StorageLength())
}

func (s *SegmentWriterSuite) TestCloseSegmentDropsBuffered() {
	meta := s.openSegment(1, "segment-1", typeutil.NoneUniqueID)

	meta.SetDurableLogLength(10)
	s.Require().NoError(s.writer.Add(NewAppendOp(1, 0, 0, make([]byte, 10))))
	s.writer.CloseSegment(1)

	s.Empty(s.writer.ActiveSegments())
	err := s.writer.Add(NewAppendOp(1, 1, 10, nil))
	s.ErrorIs(err, merr.ErrInvalidRouting)
}
