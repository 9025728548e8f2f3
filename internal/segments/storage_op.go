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
	"github.com/xige-16/stream-write/pkg/util/typeutil"
)

// StorageOp is one ordered operation consumed from the durable log. The
// concrete type is the tag; the validator and planner dispatch on it.
type StorageOp interface {
	// SegmentID is the segment this operation is routed to. For a merge
	// this is the target (parent) segment.
	SegmentID() typeutil.UniqueID
	// SeqNum is the durable log sequence number that produced the op.
	SeqNum() int64
	// Offset is the stream offset the operation applies at.
	Offset() int64
	// Length is the number of bytes the operation contributes to the
	// segment's stream. Seals contribute zero; merges contribute the
	// child's recorded length.
	Length() int64
}

// AppendOp carries its payload inline.
type AppendOp struct {
	segmentID typeutil.UniqueID
	seqNum    int64
	offset    int64
	data      []byte
}

func NewAppendOp(segmentID typeutil.UniqueID, seqNum, offset int64, data []byte) *AppendOp {
	return &AppendOp{
		segmentID: segmentID,
		seqNum:    seqNum,
		offset:    offset,
		data:      data,
	}
}

func (op *AppendOp) SegmentID() typeutil.UniqueID { return op.segmentID }
func (op *AppendOp) SeqNum() int64                { return op.seqNum }
func (op *AppendOp) Offset() int64                { return op.offset }
func (op *AppendOp) Length() int64                { return int64(len(op.data)) }

// CachedAppendOp references its payload through the append cache; the
// payload must still be resident when the op is flushed.
type CachedAppendOp struct {
	segmentID typeutil.UniqueID
	seqNum    int64
	offset    int64
	length    int64
	cacheKey  string
}

func NewCachedAppendOp(segmentID typeutil.UniqueID, seqNum, offset, length int64, cacheKey string) *CachedAppendOp {
	return &CachedAppendOp{
		segmentID: segmentID,
		seqNum:    seqNum,
		offset:    offset,
		length:    length,
		cacheKey:  cacheKey,
	}
}

func (op *CachedAppendOp) SegmentID() typeutil.UniqueID { return op.segmentID }
func (op *CachedAppendOp) SeqNum() int64                { return op.seqNum }
func (op *CachedAppendOp) Offset() int64                { return op.offset }
func (op *CachedAppendOp) Length() int64                { return op.length }
func (op *CachedAppendOp) CacheKey() string             { return op.cacheKey }

// MergeBatchOp merges a sealed child segment into the target at offset.
// length is the child's contribution as recorded by the durable log; it
// advances offsets but never counts as outstanding append bytes.
type MergeBatchOp struct {
	targetID typeutil.UniqueID
	childID  typeutil.UniqueID
	seqNum   int64
	offset   int64
	length   int64
}

func NewMergeBatchOp(targetID, childID typeutil.UniqueID, seqNum, offset, length int64) *MergeBatchOp {
	return &MergeBatchOp{
		targetID: targetID,
		childID:  childID,
		seqNum:   seqNum,
		offset:   offset,
		length:   length,
	}
}

func (op *MergeBatchOp) SegmentID() typeutil.UniqueID { return op.targetID }
func (op *MergeBatchOp) ChildID() typeutil.UniqueID   { return op.childID }
func (op *MergeBatchOp) SeqNum() int64                { return op.seqNum }
func (op *MergeBatchOp) Offset() int64                { return op.offset }
func (op *MergeBatchOp) Length() int64                { return op.length }

// SealOp closes the segment at offset, which must equal the durable log
// length. Terminal; nothing may follow it.
type SealOp struct {
	segmentID typeutil.UniqueID
	seqNum    int64
	offset    int64
}

func NewSealOp(segmentID typeutil.UniqueID, seqNum, offset int64) *SealOp {
	return &SealOp{
		segmentID: segmentID,
		seqNum:    seqNum,
		offset:    offset,
	}
}

func (op *SealOp) SegmentID() typeutil.UniqueID { return op.segmentID }
func (op *SealOp) SeqNum() int64                { return op.seqNum }
func (op *SealOp) Offset() int64                { return op.offset }
func (op *SealOp) Length() int64                { return 0 }

// isAppendOp reports whether op carries append bytes.
func isAppendOp(op StorageOp) bool {
	switch op.(type) {
	case *AppendOp, *CachedAppendOp:
		return true
	}
	return false
}
