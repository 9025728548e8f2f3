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

// MemoryDataSource is an in-process DataSource backed by concurrent maps.
// It serves tests and the storage smoke tool; a production container wires
// its metadata store and append cache instead.
type MemoryDataSource struct {
	containerID typeutil.UniqueID

	payloads *typeutil.ConcurrentMap[string, []byte]
	metas    *typeutil.ConcurrentMap[typeutil.UniqueID, *SegmentMeta]

	deletedSegments *typeutil.ConcurrentMap[string, struct{}]
	completedMerges *typeutil.ConcurrentMap[typeutil.UniqueID, typeutil.UniqueID]
}

var _ DataSource = (*MemoryDataSource)(nil)

func NewMemoryDataSource(containerID typeutil.UniqueID) *MemoryDataSource {
	return &MemoryDataSource{
		containerID:     containerID,
		payloads:        typeutil.NewConcurrentMap[string, []byte](),
		metas:           typeutil.NewConcurrentMap[typeutil.UniqueID, *SegmentMeta](),
		deletedSegments: typeutil.NewConcurrentMap[string, struct{}](),
		completedMerges: typeutil.NewConcurrentMap[typeutil.UniqueID, typeutil.UniqueID](),
	}
}

// ContainerID implements DataSource.
func (ds *MemoryDataSource) ContainerID() typeutil.UniqueID {
	return ds.containerID
}

// AppendPayload implements DataSource.
func (ds *MemoryDataSource) AppendPayload(cacheKey string) ([]byte, bool) {
	return ds.payloads.Get(cacheKey)
}

// SegmentMeta implements DataSource.
func (ds *MemoryDataSource) SegmentMeta(segmentID typeutil.UniqueID) (*SegmentMeta, bool) {
	return ds.metas.Get(segmentID)
}

// DeleteSegment implements DataSource.
func (ds *MemoryDataSource) DeleteSegment(name string) {
	ds.deletedSegments.Insert(name, struct{}{})
}

// CompleteMerge implements DataSource.
func (ds *MemoryDataSource) CompleteMerge(parentID, childID typeutil.UniqueID) {
	ds.completedMerges.Insert(childID, parentID)
}

// PutPayload seeds the append cache.
func (ds *MemoryDataSource) PutPayload(cacheKey string, payload []byte) {
	ds.payloads.Insert(cacheKey, payload)
}

// DropPayload evicts a cache entry.
func (ds *MemoryDataSource) DropPayload(cacheKey string) {
	ds.payloads.Remove(cacheKey)
}

// RegisterSegment registers a metadata handle.
func (ds *MemoryDataSource) RegisterSegment(meta *SegmentMeta) {
	ds.metas.Insert(meta.ID(), meta)
}

// SegmentDeleted reports whether DeleteSegment was called for name.
func (ds *MemoryDataSource) SegmentDeleted(name string) bool {
	return ds.deletedSegments.Contain(name)
}

// MergeCompleted reports whether CompleteMerge was called for the pair.
func (ds *MemoryDataSource) MergeCompleted(parentID, childID typeutil.UniqueID) bool {
	parent, ok := ds.completedMerges.Get(childID)
	return ok && parent == parentID
}
