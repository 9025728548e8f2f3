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
	"io"
	"path"

	"github.com/cockroachdb/errors"
	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/xige-16/stream-write/pkg/log"
	"github.com/xige-16/stream-write/pkg/metrics"
	"github.com/xige-16/stream-write/pkg/util/merr"
	"github.com/xige-16/stream-write/pkg/util/timerecord"
)

const (
	sealMarkerSuffix = ".sealed"
	stagingSuffix    = ".staging"
)

// MinioSegmentStorage keeps each segment as a single object. Appends put a
// staging object and fold it into the segment with a server-side compose;
// seal state is a marker object next to the segment.
type MinioSegmentStorage struct {
	client     *minio.Client
	bucketName string
	rootPath   string
}

var _ SegmentStorage = (*MinioSegmentStorage)(nil)

func newMinioSegmentStorage(ctx context.Context, cfg *Config) (*MinioSegmentStorage, error) {
	client, err := minio.New(cfg.Address, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init minio client failed")
	}

	mss := &MinioSegmentStorage{
		client:     client,
		bucketName: cfg.BucketName,
		rootPath:   cfg.RootPath,
	}
	if cfg.CreateBucket {
		exists, err := client.BucketExists(ctx, cfg.BucketName)
		if err != nil {
			return nil, errors.Wrap(err, "check bucket failed")
		}
		if !exists {
			if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
				return nil, errors.Wrap(err, "create bucket failed")
			}
		}
	}
	log.Info("minio segment storage init success",
		zap.String("address", cfg.Address),
		zap.String("bucket", cfg.BucketName),
		zap.String("rootPath", cfg.RootPath))
	return mss, nil
}

func (mss *MinioSegmentStorage) segmentPath(name string) string {
	return path.Join(mss.rootPath, name)
}

// GetInfo implements SegmentStorage. A segment with no object yet reports
// zero length.
func (mss *MinioSegmentStorage) GetInfo(ctx context.Context, name string) (SegmentInfo, error) {
	length, _, err := mss.statObject(ctx, mss.segmentPath(name))
	if err != nil {
		return SegmentInfo{}, merr.WrapErrIoFailed(name, err)
	}

	_, sealed, err := mss.statObject(ctx, mss.segmentPath(name)+sealMarkerSuffix)
	if err != nil {
		return SegmentInfo{}, merr.WrapErrIoFailed(name, err)
	}
	return SegmentInfo{Length: length, Sealed: sealed}, nil
}

// Write implements SegmentStorage.
func (mss *MinioSegmentStorage) Write(ctx context.Context, name string, offset int64, r io.Reader, length int64) error {
	segment := mss.segmentPath(name)

	_, sealed, err := mss.statObject(ctx, segment+sealMarkerSuffix)
	if err != nil {
		return merr.WrapErrIoFailed(name, err)
	}
	if sealed {
		return merr.WrapErrIoFailed(name, errors.New("segment is sealed in storage"))
	}

	tail, exists, err := mss.statObject(ctx, segment)
	if err != nil {
		return merr.WrapErrIoFailed(name, err)
	}
	if offset != tail {
		return merr.WrapErrOffsetMismatch(name, offset, tail)
	}

	if !exists {
		if err := mss.putObject(ctx, segment, r, length); err != nil {
			return merr.WrapErrIoFailed(name, err)
		}
		return nil
	}

	// existing tail: stage the new bytes, then fold them in with a
	// server-side compose so the segment stays a single object
	staging := segment + stagingSuffix
	if err := mss.putObject(ctx, staging, r, length); err != nil {
		return merr.WrapErrIoFailed(name, err)
	}
	if err := mss.composeObjects(ctx, segment, segment, staging); err != nil {
		return merr.WrapErrIoFailed(name, err)
	}
	if err := mss.removeObject(ctx, staging); err != nil {
		log.Warn("failed to remove staging object after compose",
			zap.String("segment", name), zap.Error(err))
	}
	return nil
}

// Concat implements SegmentStorage.
func (mss *MinioSegmentStorage) Concat(ctx context.Context, parent, child string) error {
	parentPath := mss.segmentPath(parent)
	childPath := mss.segmentPath(child)

	_, parentExists, err := mss.statObject(ctx, parentPath)
	if err != nil {
		return merr.WrapErrIoFailed(parent, err)
	}

	if parentExists {
		if err := mss.composeObjects(ctx, parentPath, parentPath, childPath); err != nil {
			return merr.WrapErrIoFailed(parent, err)
		}
	} else {
		// parent never flushed, the child becomes the parent's content
		src := minio.CopySrcOptions{Bucket: mss.bucketName, Object: childPath}
		dst := minio.CopyDestOptions{Bucket: mss.bucketName, Object: parentPath}
		tr := timerecord.NewTimeRecorder("copyObject")
		_, err := mss.client.CopyObject(ctx, dst, src)
		mss.recordOp(metrics.DataConcatLabel, tr, err)
		if err != nil {
			return merr.WrapErrIoFailed(parent, err)
		}
	}

	if err := mss.removeObject(ctx, childPath); err != nil {
		return merr.WrapErrIoFailed(child, err)
	}
	if err := mss.removeObject(ctx, childPath+sealMarkerSuffix); err != nil {
		log.Warn("failed to remove child seal marker after concat",
			zap.String("child", child), zap.Error(err))
	}
	return nil
}

// Seal implements SegmentStorage. Re-sealing an already sealed segment
// rewrites the marker, which is a no-op.
func (mss *MinioSegmentStorage) Seal(ctx context.Context, name string) error {
	marker := mss.segmentPath(name) + sealMarkerSuffix
	tr := timerecord.NewTimeRecorder("sealSegment")
	_, err := mss.client.PutObject(ctx, mss.bucketName, marker,
		bytes.NewReader(nil), 0, minio.PutObjectOptions{})
	mss.recordOp(metrics.DataSealLabel, tr, err)
	if err != nil {
		return merr.WrapErrIoFailed(name, err)
	}
	return nil
}

// statObject returns (length, exists). A missing key is not an error.
func (mss *MinioSegmentStorage) statObject(ctx context.Context, objectName string) (int64, bool, error) {
	tr := timerecord.NewTimeRecorder("statObject")
	info, err := mss.client.StatObject(ctx, mss.bucketName, objectName, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			mss.recordOp(metrics.DataStatLabel, tr, nil)
			return 0, false, nil
		}
		mss.recordOp(metrics.DataStatLabel, tr, err)
		return 0, false, err
	}
	mss.recordOp(metrics.DataStatLabel, tr, nil)
	return info.Size, true, nil
}

func (mss *MinioSegmentStorage) putObject(ctx context.Context, objectName string, r io.Reader, length int64) error {
	tr := timerecord.NewTimeRecorder("putObject")
	_, err := mss.client.PutObject(ctx, mss.bucketName, objectName, r, length, minio.PutObjectOptions{})
	mss.recordOp(metrics.DataPutLabel, tr, err)
	return err
}

func (mss *MinioSegmentStorage) composeObjects(ctx context.Context, dstName string, srcNames ...string) error {
	srcs := make([]minio.CopySrcOptions, 0, len(srcNames))
	for _, src := range srcNames {
		srcs = append(srcs, minio.CopySrcOptions{Bucket: mss.bucketName, Object: src})
	}
	dst := minio.CopyDestOptions{Bucket: mss.bucketName, Object: dstName}
	tr := timerecord.NewTimeRecorder("composeObject")
	_, err := mss.client.ComposeObject(ctx, dst, srcs...)
	mss.recordOp(metrics.DataConcatLabel, tr, err)
	return err
}

func (mss *MinioSegmentStorage) removeObject(ctx context.Context, objectName string) error {
	tr := timerecord.NewTimeRecorder("removeObject")
	err := mss.client.RemoveObject(ctx, mss.bucketName, objectName, minio.RemoveObjectOptions{})
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		err = nil
	}
	mss.recordOp(metrics.DataRemoveLabel, tr, err)
	return err
}

func (mss *MinioSegmentStorage) recordOp(op string, tr *timerecord.TimeRecorder, err error) {
	metrics.PersistentDataOpCounter.WithLabelValues(op, metrics.TotalLabel).Inc()
	if err == nil {
		metrics.PersistentDataRequestLatency.WithLabelValues(op).Observe(float64(tr.ElapseSpan().Milliseconds()))
		metrics.PersistentDataOpCounter.WithLabelValues(op, metrics.SuccessLabel).Inc()
	} else {
		metrics.PersistentDataOpCounter.WithLabelValues(op, metrics.FailLabel).Inc()
	}
}
