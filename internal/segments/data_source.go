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

// DataSource is the container-side collaborator of the write path: the
// append cache, the metadata store, and the merge notification sink.
// Implementations must be safe for concurrent use, the notifications may
// mutate other aggregators' views.
type DataSource interface {
	// ContainerID identifies the owning container.
	ContainerID() typeutil.UniqueID
	// AppendPayload resolves a cached append payload. A miss on a payload
	// still referenced by the queue is data corruption, the caller decides.
	AppendPayload(cacheKey string) ([]byte, bool)
	// SegmentMeta resolves the metadata handle of any segment in the
	// container.
	SegmentMeta(segmentID typeutil.UniqueID) (*SegmentMeta, bool)
	// DeleteSegment tells the metadata store a merged child is gone from
	// storage.
	DeleteSegment(name string)
	// CompleteMerge tells the container a merge finished so the child's
	// aggregator can be retired.
	CompleteMerge(parentID, childID typeutil.UniqueID)
}
