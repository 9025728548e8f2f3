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
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/xige-16/stream-write/internal/storage"
	"github.com/xige-16/stream-write/pkg/log"
	"github.com/xige-16/stream-write/pkg/metrics"
	"github.com/xige-16/stream-write/pkg/util/merr"
	"github.com/xige-16/stream-write/pkg/util/timerecord"
	"github.com/xige-16/stream-write/pkg/util/typeutil"
)

// SegmentAggregator buffers the ordered storage operations of one segment
// and flushes them durably to the storage tier, preserving strict offset
// contiguity and at-most-once effects.
//
// The aggregator is single-threaded cooperative: the owning driver
// serializes every entry point, so no internal locking is used. Flush and
// Initialize block on storage io; Add and MustFlush never do. The queue is
// only trimmed after the corresponding storage call succeeds, so a failed
// or cancelled flush leaves the aggregator in a consistent, retryable
// state.
type SegmentAggregator struct {
	meta   *SegmentMeta
	ds     DataSource
	store  storage.SegmentStorage
	cfg    Config
	logger *zap.Logger

	// ops is the FIFO of pending operations. outstandingSize tracks the
	// queued append bytes; merges and seals contribute zero.
	ops             []StorageOp
	outstandingSize int64
	// lastAddedOffset is the next expected operation offset, -1 until
	// Initialize reconciles against storage.
	lastAddedOffset int64
	mergeBatchCount int
	sealPending     bool
	lastFlushAt     time.Time
	closed          bool
}

// NewSegmentAggregator creates an aggregator for the given segment. The
// metadata handle stays owned by the caller; the aggregator only mutates
// its storage-side fields.
func NewSegmentAggregator(meta *SegmentMeta, ds DataSource, store storage.SegmentStorage, cfg Config) *SegmentAggregator {
	return &SegmentAggregator{
		meta:  meta,
		ds:    ds,
		store: store,
		cfg:   cfg,
		logger: log.With(
			zap.Int64("containerID", meta.ContainerID()),
			zap.Int64("segmentID", meta.ID()),
			zap.String("segment", meta.Name())),
		lastAddedOffset: -1,
	}
}

// Initialize reconciles the metadata's storage view against the storage
// tier and arms the aggregator. Must be called exactly once before Add or
// Flush.
func (a *SegmentAggregator) Initialize(ctx context.Context) error {
	if a.closed {
		return merr.WrapErrAggregatorClosed(a.meta.Name())
	}
	if a.lastAddedOffset >= 0 {
		return merr.WrapErrAggregatorInitialized(a.meta.Name())
	}

	info, err := a.store.GetInfo(ctx, a.meta.Name())
	if err != nil {
		return a.classifyStorageErr(err, "getInfo")
	}

	if metaLength := a.meta.StorageLength(); metaLength != info.Length {
		if metaLength >= 0 {
			// the durable log may have been replayed past a flush, the
			// storage tier holds the truth
			a.logger.Warn("storage length mismatch on initialize, adopting storage value",
				zap.Int64("metaLength", metaLength),
				zap.Int64("storageLength", info.Length))
		}
		a.meta.SetStorageLength(info.Length)
	}

	if info.Sealed {
		if !a.meta.IsSealed() {
			// storage cannot seal on its own
			return merr.WrapErrSegmentCorrupted(a.meta.Name(),
				"storage reports sealed but metadata does not")
		}
		a.meta.MarkSealedInStorage()
	}

	a.lastAddedOffset = info.Length
	a.lastFlushAt = time.Now()
	a.logger.Info("segment aggregator initialized",
		zap.Int64("storageLength", info.Length),
		zap.Bool("sealedInStorage", info.Sealed))
	return nil
}

// Add validates and enqueues one storage operation. Synchronous; never
// blocks on io.
func (a *SegmentAggregator) Add(op StorageOp) error {
	if err := a.checkValidOperation(op); err != nil {
		return err
	}

	switch op.(type) {
	case *AppendOp, *CachedAppendOp:
		a.outstandingSize += op.Length()
	case *MergeBatchOp:
		a.mergeBatchCount++
	case *SealOp:
		a.sealPending = true
	default:
		return errors.AssertionFailedf("unknown storage operation type %T", op)
	}
	a.ops = append(a.ops, op)
	a.lastAddedOffset += op.Length()
	return nil
}

// checkValidOperation enforces the admission contract. The first failing
// check wins; routing and sizing violations are usage errors, ordering
// violations are corruption.
func (a *SegmentAggregator) checkValidOperation(op StorageOp) error {
	if a.closed {
		return merr.WrapErrAggregatorClosed(a.meta.Name())
	}
	if a.lastAddedOffset < 0 {
		return merr.WrapErrAggregatorNotInit(a.meta.Name())
	}

	if _, isMerge := op.(*MergeBatchOp); isMerge {
		if !a.meta.IsStandalone() {
			return errors.Wrapf(merr.ErrInvalidRouting,
				"segment=%s: merge target is itself a child segment", a.meta.Name())
		}
		if op.SegmentID() != a.meta.ID() {
			return merr.WrapErrInvalidRouting(a.meta.Name(), a.meta.ID(), op.SegmentID())
		}
	} else if op.SegmentID() != a.meta.ID() {
		return merr.WrapErrInvalidRouting(a.meta.Name(), a.meta.ID(), op.SegmentID())
	}

	if a.sealPending {
		return merr.WrapErrSegmentSealed(a.meta.Name())
	}
	if op.Offset() < 0 || op.Length() < 0 {
		return errors.Wrapf(merr.ErrParameterInvalid,
			"segment=%s: offset=%d, length=%d", a.meta.Name(), op.Offset(), op.Length())
	}
	if op.Offset() != a.lastAddedOffset {
		return merr.WrapErrSegmentCorrupted(a.meta.Name(), fmt.Sprintf(
			"operation offset %d breaks contiguity, expected %d", op.Offset(), a.lastAddedOffset))
	}
	if end := op.Offset() + op.Length(); end > a.meta.DurableLogLength() {
		return merr.WrapErrSegmentCorrupted(a.meta.Name(), fmt.Sprintf(
			"operation end offset %d exceeds durable log length %d", end, a.meta.DurableLogLength()))
	}
	if _, isSeal := op.(*SealOp); isSeal {
		if op.Offset() != a.meta.DurableLogLength() || !a.meta.IsSealed() {
			return merr.WrapErrSegmentCorrupted(a.meta.Name(), fmt.Sprintf(
				"seal at offset %d does not match durable log length %d or metadata is not sealed",
				op.Offset(), a.meta.DurableLogLength()))
		}
	}
	if isAppendOp(op) && op.Length() > a.cfg.MaxFlushSize {
		return merr.WrapErrOversizedAppend(a.meta.Name(), op.Length(), a.cfg.MaxFlushSize)
	}
	return nil
}

// MustFlush reports whether the driver should invoke Flush now. Pure
// function of the aggregator state.
func (a *SegmentAggregator) MustFlush() bool {
	if a.closed || a.lastAddedOffset < 0 {
		return false
	}
	return a.exceedsThresholds() || a.sealPending || a.mergeBatchCount > 0
}

func (a *SegmentAggregator) exceedsThresholds() bool {
	return a.outstandingSize >= a.cfg.FlushThresholdSize ||
		time.Since(a.lastFlushAt) >= a.cfg.FlushThresholdInterval
}

// Flush pushes buffered operations to storage within the context deadline.
// With a merge or seal pending it drains every head append first, then
// attempts the merge, then the seal. Otherwise it writes while the flush
// thresholds remain exceeded.
//
// A transient failure returns the work committed so far together with the
// error; the queue keeps everything uncommitted and the same call may be
// retried.
func (a *SegmentAggregator) Flush(ctx context.Context) (FlushResult, error) {
	result := FlushResult{}
	if a.closed {
		return result, merr.WrapErrAggregatorClosed(a.meta.Name())
	}
	if a.lastAddedOffset < 0 {
		return result, merr.WrapErrAggregatorNotInit(a.meta.Name())
	}

	tr := timerecord.NewTimeRecorder("flush")
	var err error
	if a.sealPending || a.mergeBatchCount > 0 {
		if err = a.drainAppends(ctx, &result); err == nil {
			if err = a.mergeIfNecessary(ctx, &result); err == nil {
				err = a.sealIfNecessary(ctx)
			}
		}
	} else {
		err = a.flushExcess(ctx, &result)
	}
	if err != nil {
		return result, err
	}

	// an empty flush is trivially successful, refreshing here keeps the
	// time threshold from re-firing on an idle segment
	a.lastFlushAt = time.Now()
	metrics.SegmentFlushLatency.Observe(float64(tr.ElapseSpan().Milliseconds()))
	return result, nil
}

// drainAppends flushes head appends regardless of thresholds until the
// head is a merge or seal, or the queue empties.
func (a *SegmentAggregator) drainAppends(ctx context.Context, result *FlushResult) error {
	for len(a.ops) > 0 && isAppendOp(a.ops[0]) {
		if err := a.checkDeadline(ctx); err != nil {
			return err
		}
		flushed, err := a.flushOnce(ctx)
		if err != nil {
			return err
		}
		result.FlushedBytes += flushed
	}
	return nil
}

// flushExcess flushes head appends only while the thresholds are exceeded.
func (a *SegmentAggregator) flushExcess(ctx context.Context, result *FlushResult) error {
	for a.exceedsThresholds() && len(a.ops) > 0 && isAppendOp(a.ops[0]) {
		if err := a.checkDeadline(ctx); err != nil {
			return err
		}
		flushed, err := a.flushOnce(ctx)
		if err != nil {
			return err
		}
		result.FlushedBytes += flushed
	}
	return nil
}

type flushPlan struct {
	payloads [][]byte
	count    int
	length   int64
}

// planFlush walks the queue head collecting contiguous append payloads up
// to the max flush size. The first append is always included; admission
// guarantees it fits.
func (a *SegmentAggregator) planFlush() (flushPlan, error) {
	plan := flushPlan{}
	for _, op := range a.ops {
		if !isAppendOp(op) {
			break
		}
		if plan.count > 0 && plan.length+op.Length() > a.cfg.MaxFlushSize {
			break
		}

		var payload []byte
		switch op := op.(type) {
		case *AppendOp:
			payload = op.data
		case *CachedAppendOp:
			cached, ok := a.ds.AppendPayload(op.CacheKey())
			if !ok || cached == nil {
				return flushPlan{}, merr.WrapErrSegmentCorrupted(a.meta.Name(), fmt.Sprintf(
					"append cache lost payload %q still referenced at offset %d", op.CacheKey(), op.Offset()))
			}
			if int64(len(cached)) != op.Length() {
				return flushPlan{}, merr.WrapErrSegmentCorrupted(a.meta.Name(), fmt.Sprintf(
					"cached payload %q holds %d bytes, operation recorded %d", op.CacheKey(), len(cached), op.Length()))
			}
			payload = cached
		}
		plan.payloads = append(plan.payloads, payload)
		plan.count++
		plan.length += op.Length()
	}
	return plan, nil
}

// flushOnce executes one planned write and trims the committed prefix.
func (a *SegmentAggregator) flushOnce(ctx context.Context) (int64, error) {
	plan, err := a.planFlush()
	if err != nil {
		return 0, err
	}
	if plan.count == 0 {
		return 0, nil
	}

	startOffset := a.meta.StorageLength()
	if plan.length > 0 {
		readers := make([]io.Reader, 0, len(plan.payloads))
		for _, payload := range plan.payloads {
			readers = append(readers, bytes.NewReader(payload))
		}
		if err := a.store.Write(ctx, a.meta.Name(), startOffset, io.MultiReader(readers...), plan.length); err != nil {
			return 0, a.classifyStorageErr(err, "write")
		}
	}

	for i := 0; i < plan.count; i++ {
		if !isAppendOp(a.ops[i]) {
			return 0, errors.AssertionFailedf("planned operation %d is %T, not an append", i, a.ops[i])
		}
	}
	a.ops = a.ops[plan.count:]
	a.meta.SetStorageLength(startOffset + plan.length)
	a.outstandingSize -= plan.length
	a.lastFlushAt = time.Now()

	metrics.SegmentFlushedBytes.WithLabelValues(metrics.FlushedLabel).Add(float64(plan.length))
	a.logger.Debug("flushed appends",
		zap.Int("count", plan.count),
		zap.Int64("bytes", plan.length),
		zap.Int64("storageLength", a.meta.StorageLength()))
	return plan.length, nil
}

// mergeIfNecessary executes the head merge, if any. A child that is not
// yet fully drained and sealed is left queued for a later flush cycle; at
// most one merge is processed per Flush invocation.
func (a *SegmentAggregator) mergeIfNecessary(ctx context.Context, result *FlushResult) error {
	if !a.meta.IsStandalone() || len(a.ops) == 0 {
		return nil
	}
	op, ok := a.ops[0].(*MergeBatchOp)
	if !ok {
		return nil
	}
	if err := a.checkDeadline(ctx); err != nil {
		return err
	}

	child, ok := a.ds.SegmentMeta(op.ChildID())
	if !ok {
		return merr.WrapErrSegmentCorrupted(a.meta.Name(), fmt.Sprintf(
			"merge references unknown child segment %d", op.ChildID()))
	}
	if child.IsDeleted() {
		return merr.WrapErrSegmentCorrupted(a.meta.Name(), fmt.Sprintf(
			"merge references deleted child segment %s", child.Name()))
	}
	if !child.IsSealedInStorage() || child.DurableLogLength() > child.StorageLength() {
		a.logger.Debug("merge child not yet drained, will retry",
			zap.String("child", child.Name()),
			zap.Bool("sealedInStorage", child.IsSealedInStorage()),
			zap.Int64("childDurableLogLength", child.DurableLogLength()),
			zap.Int64("childStorageLength", child.StorageLength()))
		return nil
	}

	childLength := child.StorageLength()
	childInfo, err := a.store.GetInfo(ctx, child.Name())
	if err != nil {
		return a.classifyStorageErr(err, "getInfo")
	}
	if childInfo.Length != childLength {
		return merr.WrapErrSegmentCorrupted(child.Name(), fmt.Sprintf(
			"child storage length %d disagrees with metadata %d", childInfo.Length, childLength))
	}

	if err := a.store.Concat(ctx, a.meta.Name(), child.Name()); err != nil {
		return a.classifyStorageErr(err, "concat")
	}

	parentInfo, err := a.store.GetInfo(ctx, a.meta.Name())
	if err != nil {
		return a.classifyStorageErr(err, "getInfo")
	}
	if expected := a.meta.StorageLength() + childLength; parentInfo.Length != expected {
		return merr.WrapErrSegmentCorrupted(a.meta.Name(), fmt.Sprintf(
			"parent length %d after concat, expected %d", parentInfo.Length, expected))
	}

	a.ops = a.ops[1:]
	a.mergeBatchCount--
	a.meta.SetStorageLength(parentInfo.Length)
	if parentInfo.Sealed {
		a.meta.MarkSealedInStorage()
	}

	child.MarkDeleted()
	a.ds.DeleteSegment(child.Name())
	a.ds.CompleteMerge(a.meta.ID(), child.ID())
	a.lastFlushAt = time.Now()

	result.MergedBytes += childLength
	metrics.SegmentFlushedBytes.WithLabelValues(metrics.MergedLabel).Add(float64(childLength))
	a.logger.Info("merged child segment",
		zap.String("child", child.Name()),
		zap.Int64("mergedBytes", childLength),
		zap.Int64("storageLength", parentInfo.Length))
	return nil
}

// sealIfNecessary finalizes the segment when the head is the pending seal.
// On success the aggregator is terminal.
func (a *SegmentAggregator) sealIfNecessary(ctx context.Context) error {
	if !a.sealPending || len(a.ops) == 0 {
		return nil
	}
	if _, ok := a.ops[0].(*SealOp); !ok {
		return nil
	}
	if err := a.checkDeadline(ctx); err != nil {
		return err
	}

	if err := a.store.Seal(ctx, a.meta.Name()); err != nil {
		return a.classifyStorageErr(err, "seal")
	}

	a.meta.MarkSealedInStorage()
	a.ops = a.ops[1:]
	if len(a.ops) != 0 {
		return errors.AssertionFailedf("%d operations queued after a seal", len(a.ops))
	}
	a.sealPending = false
	a.closed = true
	a.logger.Info("segment sealed in storage, aggregator closed",
		zap.Int64("storageLength", a.meta.StorageLength()))
	return nil
}

// Close makes the aggregator terminal and releases the queue. Idempotent.
// The metadata handle is externally owned and keeps its last state.
func (a *SegmentAggregator) Close() {
	if a.closed {
		return
	}
	a.closed = true
	a.ops = nil
	a.outstandingSize = 0
	a.mergeBatchCount = 0
	a.sealPending = false
	a.logger.Info("segment aggregator closed")
}

// IsClosed reports whether the aggregator is terminal.
func (a *SegmentAggregator) IsClosed() bool {
	return a.closed
}

// Meta returns the segment's metadata handle.
func (a *SegmentAggregator) Meta() *SegmentMeta {
	return a.meta
}

// LowestUncommittedSeqNum returns the sequence number of the head queue
// entry, or typeutil.NoneSequenceNum when the queue is empty.
func (a *SegmentAggregator) LowestUncommittedSeqNum() int64 {
	if len(a.ops) == 0 {
		return typeutil.NoneSequenceNum
	}
	return a.ops[0].SeqNum()
}

// ElapsedSinceLastFlush returns the age of the most recent successful
// flush (or of initialization).
func (a *SegmentAggregator) ElapsedSinceLastFlush() time.Duration {
	return time.Since(a.lastFlushAt)
}

// OutstandingSize returns the queued append bytes.
func (a *SegmentAggregator) OutstandingSize() int64 {
	return a.outstandingSize
}

// checkDeadline fails fast with a Timeout before starting another storage
// round trip whose budget is already spent.
func (a *SegmentAggregator) checkDeadline(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return merr.WrapErrTimeout("flush")
	}
	if deadline, ok := ctx.Deadline(); ok && !deadline.After(time.Now()) {
		return merr.WrapErrTimeout("flush")
	}
	return nil
}

// classifyStorageErr surfaces context expiry as Timeout and leaves every
// other storage error unchanged.
func (a *SegmentAggregator) classifyStorageErr(err error, op string) error {
	if errors.IsAny(err, context.DeadlineExceeded, context.Canceled) {
		return merr.Combine(merr.WrapErrTimeout(op), err)
	}
	return err
}
