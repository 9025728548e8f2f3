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
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/streaming"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/appendblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/xige-16/stream-write/pkg/log"
	"github.com/xige-16/stream-write/pkg/metrics"
	"github.com/xige-16/stream-write/pkg/util/merr"
	"github.com/xige-16/stream-write/pkg/util/timerecord"
)

// AzureSegmentStorage keeps each segment as an append blob. Appends use the
// native append-position precondition, seal uses the native blob seal, so no
// marker objects are needed.
type AzureSegmentStorage struct {
	client   *container.Client
	rootPath string
}

var _ SegmentStorage = (*AzureSegmentStorage)(nil)

func newAzureSegmentStorage(ctx context.Context, cfg *Config) (*AzureSegmentStorage, error) {
	// AccessKeyID doubles as the storage account name, Address may override
	// the public endpoint for azurite and private deployments.
	endpoint := cfg.Address
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.blob.core.windows.net", cfg.AccessKeyID)
	} else if cfg.UseSSL {
		endpoint = "https://" + endpoint
	} else {
		endpoint = "http://" + endpoint
	}

	cred, err := container.NewSharedKeyCredential(cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, errors.Wrap(err, "init azure credential failed")
	}
	client, err := container.NewClientWithSharedKeyCredential(
		fmt.Sprintf("%s/%s", endpoint, cfg.BucketName), cred, nil)
	if err != nil {
		return nil, errors.Wrap(err, "init azure container client failed")
	}

	ass := &AzureSegmentStorage{
		client:   client,
		rootPath: cfg.RootPath,
	}
	if cfg.CreateBucket {
		if _, err := client.Create(ctx, nil); err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			return nil, errors.Wrap(err, "create container failed")
		}
	}
	log.Info("azure segment storage init success",
		zap.String("endpoint", endpoint),
		zap.String("container", cfg.BucketName),
		zap.String("rootPath", cfg.RootPath))
	return ass, nil
}

func (ass *AzureSegmentStorage) blobClient(name string) *appendblob.Client {
	return ass.client.NewAppendBlobClient(path.Join(ass.rootPath, name))
}

// GetInfo implements SegmentStorage.
func (ass *AzureSegmentStorage) GetInfo(ctx context.Context, name string) (SegmentInfo, error) {
	info, exists, err := ass.getProperties(ctx, name)
	if err != nil {
		return SegmentInfo{}, merr.WrapErrIoFailed(name, err)
	}
	if !exists {
		return SegmentInfo{}, nil
	}
	return info, nil
}

// Write implements SegmentStorage. Blocks larger than the append blob
// block cap are split, each block carrying its own position precondition.
func (ass *AzureSegmentStorage) Write(ctx context.Context, name string, offset int64, r io.Reader, length int64) error {
	blobClient := ass.blobClient(name)

	if offset == 0 {
		// create-if-absent keeps replayed first writes append-only
		tr := timerecord.NewTimeRecorder("createAppendBlob")
		_, err := blobClient.Create(ctx, &appendblob.CreateOptions{
			AccessConditions: &blob.AccessConditions{
				ModifiedAccessConditions: &blob.ModifiedAccessConditions{
					IfNoneMatch: to.Ptr(azcore.ETagAny),
				},
			},
		})
		if err != nil && !bloberror.HasCode(err, bloberror.BlobAlreadyExists, bloberror.ConditionNotMet) {
			ass.recordOp(metrics.DataPutLabel, tr, err)
			return merr.WrapErrIoFailed(name, err)
		}
		ass.recordOp(metrics.DataPutLabel, tr, nil)
	}

	data, err := io.ReadAll(io.LimitReader(r, length))
	if err != nil {
		return merr.WrapErrIoFailed(name, err)
	}
	if int64(len(data)) != length {
		return merr.WrapErrIoFailed(name, errors.Newf("short payload: want %d bytes, got %d", length, len(data)))
	}

	pos := offset
	for len(data) > 0 {
		block := data
		if len(block) > appendblob.MaxAppendBlockBytes {
			block = block[:appendblob.MaxAppendBlockBytes]
		}
		tr := timerecord.NewTimeRecorder("appendBlock")
		_, err := blobClient.AppendBlock(ctx, streaming.NopCloser(bytes.NewReader(block)), &appendblob.AppendBlockOptions{
			AppendPositionAccessConditions: &appendblob.AppendPositionAccessConditions{
				AppendPosition: to.Ptr(pos),
			},
		})
		ass.recordOp(metrics.DataPutLabel, tr, err)
		if err != nil {
			if bloberror.HasCode(err, bloberror.AppendPositionConditionNotMet) {
				info, _, statErr := ass.getProperties(ctx, name)
				if statErr != nil {
					return merr.WrapErrIoFailed(name, statErr)
				}
				return merr.WrapErrOffsetMismatch(name, pos, info.Length)
			}
			if bloberror.HasCode(err, bloberror.BlobNotFound) {
				info, _, _ := ass.getProperties(ctx, name)
				return merr.WrapErrOffsetMismatch(name, pos, info.Length)
			}
			return merr.WrapErrIoFailed(name, err)
		}
		pos += int64(len(block))
		data = data[len(block):]
	}
	return nil
}

// Concat implements SegmentStorage. Azure has no server-side blob concat,
// the child is streamed onto the parent's tail block by block and removed.
func (ass *AzureSegmentStorage) Concat(ctx context.Context, parent, child string) error {
	childClient := ass.blobClient(child)
	parentClient := ass.blobClient(parent)

	childInfo, childExists, err := ass.getProperties(ctx, child)
	if err != nil {
		return merr.WrapErrIoFailed(child, err)
	}
	if !childExists {
		return merr.WrapErrNoSuchSegment(child)
	}

	parentInfo, parentExists, err := ass.getProperties(ctx, parent)
	if err != nil {
		return merr.WrapErrIoFailed(parent, err)
	}
	if !parentExists {
		tr := timerecord.NewTimeRecorder("createAppendBlob")
		_, err := parentClient.Create(ctx, nil)
		ass.recordOp(metrics.DataPutLabel, tr, err)
		if err != nil {
			return merr.WrapErrIoFailed(parent, err)
		}
	}

	tr := timerecord.NewTimeRecorder("downloadChild")
	resp, err := childClient.BlobClient().DownloadStream(ctx, nil)
	ass.recordOp(metrics.DataGetLabel, tr, err)
	if err != nil {
		return merr.WrapErrIoFailed(child, err)
	}
	defer resp.Body.Close()

	pos := parentInfo.Length
	remaining := childInfo.Length
	buf := make([]byte, appendblob.MaxAppendBlockBytes)
	for remaining > 0 {
		n := int64(len(buf))
		if n > remaining {
			n = remaining
		}
		if _, err := io.ReadFull(resp.Body, buf[:n]); err != nil {
			return merr.WrapErrIoFailed(child, err)
		}
		tr := timerecord.NewTimeRecorder("appendBlock")
		_, err := parentClient.AppendBlock(ctx, streaming.NopCloser(bytes.NewReader(buf[:n])), &appendblob.AppendBlockOptions{
			AppendPositionAccessConditions: &appendblob.AppendPositionAccessConditions{
				AppendPosition: to.Ptr(pos),
			},
		})
		ass.recordOp(metrics.DataPutLabel, tr, err)
		if err != nil {
			return merr.WrapErrIoFailed(parent, err)
		}
		pos += n
		remaining -= n
	}

	tr = timerecord.NewTimeRecorder("removeChild")
	_, err = childClient.BlobClient().Delete(ctx, nil)
	ass.recordOp(metrics.DataRemoveLabel, tr, err)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return merr.WrapErrIoFailed(child, err)
	}
	return nil
}

// Seal implements SegmentStorage.
func (ass *AzureSegmentStorage) Seal(ctx context.Context, name string) error {
	info, exists, err := ass.getProperties(ctx, name)
	if err != nil {
		return merr.WrapErrIoFailed(name, err)
	}
	if !exists {
		// a segment that never received bytes still seals
		tr := timerecord.NewTimeRecorder("createAppendBlob")
		if _, err := ass.blobClient(name).Create(ctx, nil); err != nil {
			ass.recordOp(metrics.DataPutLabel, tr, err)
			return merr.WrapErrIoFailed(name, err)
		}
		ass.recordOp(metrics.DataPutLabel, tr, nil)
	}
	if info.Sealed {
		return nil
	}

	tr := timerecord.NewTimeRecorder("sealSegment")
	_, err = ass.blobClient(name).Seal(ctx, nil)
	ass.recordOp(metrics.DataSealLabel, tr, err)
	if err != nil {
		return merr.WrapErrIoFailed(name, err)
	}
	return nil
}

// getProperties returns (info, exists). A missing blob is not an error.
func (ass *AzureSegmentStorage) getProperties(ctx context.Context, name string) (SegmentInfo, bool, error) {
	tr := timerecord.NewTimeRecorder("getProperties")
	props, err := ass.blobClient(name).BlobClient().GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			ass.recordOp(metrics.DataStatLabel, tr, nil)
			return SegmentInfo{}, false, nil
		}
		ass.recordOp(metrics.DataStatLabel, tr, err)
		return SegmentInfo{}, false, err
	}
	ass.recordOp(metrics.DataStatLabel, tr, nil)

	info := SegmentInfo{}
	if props.ContentLength != nil {
		info.Length = *props.ContentLength
	}
	if props.IsSealed != nil {
		info.Sealed = *props.IsSealed
	}
	return info, true, nil
}

func (ass *AzureSegmentStorage) recordOp(op string, tr *timerecord.TimeRecorder, err error) {
	metrics.PersistentDataOpCounter.WithLabelValues(op, metrics.TotalLabel).Inc()
	if err == nil {
		metrics.PersistentDataRequestLatency.WithLabelValues(op).Observe(float64(tr.ElapseSpan().Milliseconds()))
		metrics.PersistentDataOpCounter.WithLabelValues(op, metrics.SuccessLabel).Inc()
	} else {
		metrics.PersistentDataOpCounter.WithLabelValues(op, metrics.FailLabel).Inc()
	}
}
