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

	"github.com/cockroachdb/errors"

	"github.com/xige-16/stream-write/pkg/util/merr"
)

const (
	ProviderMinio  = "minio"
	ProviderAWS    = "aws"
	ProviderGCP    = "gcp"
	ProviderAliyun = "aliyun"
	ProviderAzure  = "azure"
)

// SegmentInfo is the storage tier's view of one segment. A segment that
// was never written reports zero length and not sealed.
type SegmentInfo struct {
	Length int64
	Sealed bool
}

// SegmentStorage is the narrow storage contract the segment write path
// consumes. Implementations must be safe for concurrent calls from
// independent single-threaded owners.
type SegmentStorage interface {
	// GetInfo returns the durable length and seal state of a segment.
	GetInfo(ctx context.Context, name string) (SegmentInfo, error)
	// Write appends length bytes from r at offset. The write fails with
	// merr.ErrOffsetMismatch unless offset equals the current durable
	// length (append-only at tail).
	Write(ctx context.Context, name string, offset int64, r io.Reader, length int64) error
	// Concat appends child's full contents at parent's current tail and
	// removes child.
	Concat(ctx context.Context, parent, child string) error
	// Seal closes a segment for writes. Idempotent.
	Seal(ctx context.Context, name string) error
}

// NewSegmentStorage builds the SegmentStorage for the configured provider.
func NewSegmentStorage(ctx context.Context, cfg *Config) (SegmentStorage, error) {
	switch cfg.Provider {
	case ProviderAzure:
		return newAzureSegmentStorage(ctx, cfg)
	case ProviderMinio, ProviderAWS, ProviderGCP, ProviderAliyun:
		return newMinioSegmentStorage(ctx, cfg)
	}
	return nil, errors.Wrapf(merr.ErrParameterInvalid, "unknown storage provider %q", cfg.Provider)
}
