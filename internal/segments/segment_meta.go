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
	"go.uber.org/atomic"

	"github.com/xige-16/stream-write/pkg/util/typeutil"
)

// SegmentMeta is the shared metadata handle for one segment. It is owned by
// the container metadata store and read concurrently by other subsystems,
// so every mutable field is atomic.
//
// Field ownership is split: durableLogLength and sealed are advanced by the
// durable log; storageLength, sealedInStorage and deleted are advanced by
// the segment aggregator.
type SegmentMeta struct {
	id          typeutil.UniqueID
	containerID typeutil.UniqueID
	name        string
	parentID    typeutil.UniqueID

	durableLogLength *atomic.Int64
	storageLength    *atomic.Int64
	sealed           *atomic.Bool
	sealedInStorage  *atomic.Bool
	deleted          *atomic.Bool
}

// NewSegmentMeta creates a metadata handle whose storage length is unknown
// until the aggregator reconciles it against the storage tier.
func NewSegmentMeta(id, containerID typeutil.UniqueID, name string, parentID typeutil.UniqueID) *SegmentMeta {
	return &SegmentMeta{
		id:          id,
		containerID: containerID,
		name:        name,
		parentID:    parentID,

		durableLogLength: atomic.NewInt64(0),
		storageLength:    atomic.NewInt64(-1),
		sealed:           atomic.NewBool(false),
		sealedInStorage:  atomic.NewBool(false),
		deleted:          atomic.NewBool(false),
	}
}

func (m *SegmentMeta) ID() typeutil.UniqueID {
	return m.id
}

func (m *SegmentMeta) ContainerID() typeutil.UniqueID {
	return m.containerID
}

func (m *SegmentMeta) Name() string {
	return m.name
}

func (m *SegmentMeta) ParentID() typeutil.UniqueID {
	return m.parentID
}

// IsStandalone reports whether the segment has no parent. Only stand-alone
// segments accept merge operations.
func (m *SegmentMeta) IsStandalone() bool {
	return m.parentID == typeutil.NoneUniqueID
}

func (m *SegmentMeta) DurableLogLength() int64 {
	return m.durableLogLength.Load()
}

// SetDurableLogLength advances the accepted high-water mark. Called by the
// durable log only; the value never decreases.
func (m *SegmentMeta) SetDurableLogLength(length int64) {
	for {
		current := m.durableLogLength.Load()
		if length <= current {
			return
		}
		if m.durableLogLength.CompareAndSwap(current, length) {
			return
		}
	}
}

// StorageLength returns bytes confirmed durable in storage, -1 before the
// first reconciliation.
func (m *SegmentMeta) StorageLength() int64 {
	return m.storageLength.Load()
}

// SetStorageLength records bytes confirmed durable. Called by the
// aggregator only.
func (m *SegmentMeta) SetStorageLength(length int64) {
	m.storageLength.Store(length)
}

func (m *SegmentMeta) IsSealed() bool {
	return m.sealed.Load()
}

// MarkSealed records that the durable log accepted a seal.
func (m *SegmentMeta) MarkSealed() {
	m.sealed.Store(true)
}

func (m *SegmentMeta) IsSealedInStorage() bool {
	return m.sealedInStorage.Load()
}

// MarkSealedInStorage records the storage tier's seal acknowledgement.
// Called by the aggregator only.
func (m *SegmentMeta) MarkSealedInStorage() {
	m.sealed.Store(true)
	m.sealedInStorage.Store(true)
}

func (m *SegmentMeta) IsDeleted() bool {
	return m.deleted.Load()
}

// MarkDeleted retires a merged child segment.
func (m *SegmentMeta) MarkDeleted() {
	m.deleted.Store(true)
}
