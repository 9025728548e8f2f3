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
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xige-16/stream-write/internal/storage"
	"github.com/xige-16/stream-write/pkg/log"
	"github.com/xige-16/stream-write/pkg/metrics"
	"github.com/xige-16/stream-write/pkg/util/merr"
	"github.com/xige-16/stream-write/pkg/util/retry"
	"github.com/xige-16/stream-write/pkg/util/typeutil"
)

// aggregatorRunner serializes every entry point of one aggregator between
// the durable log feeding it and the background flush loop.
type aggregatorRunner struct {
	mu  sync.Mutex
	agg *SegmentAggregator
}

// SegmentWriter owns the aggregators of one container and drives their
// flush cycles. Corruption reported by any aggregator halts the whole
// writer; transient failures are retried on the next cycle.
type SegmentWriter struct {
	ds    DataSource
	store storage.SegmentStorage
	cfg   WriterConfig

	runners *typeutil.ConcurrentMap[typeutil.UniqueID, *aggregatorRunner]

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
	halted *atomic.Bool
}

func NewSegmentWriter(ds DataSource, store storage.SegmentStorage, cfg WriterConfig) *SegmentWriter {
	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)
	return &SegmentWriter{
		ds:      ds,
		store:   store,
		cfg:     cfg,
		runners: typeutil.NewConcurrentMap[typeutil.UniqueID, *aggregatorRunner](),
		ctx:     ctx,
		cancel:  cancel,
		group:   group,
		halted:  atomic.NewBool(false),
	}
}

// OpenSegment creates, initializes and starts driving an aggregator for
// the segment. Opening an already open segment is an error.
func (w *SegmentWriter) OpenSegment(ctx context.Context, meta *SegmentMeta) error {
	if w.halted.Load() {
		return errors.New("segment writer is halted")
	}

	runner := &aggregatorRunner{
		agg: NewSegmentAggregator(meta, w.ds, w.store, w.cfg.Aggregator),
	}
	if _, loaded := w.runners.GetOrInsert(meta.ID(), runner); loaded {
		return errors.Newf("segment %d is already open", meta.ID())
	}

	runner.mu.Lock()
	err := runner.agg.Initialize(ctx)
	runner.mu.Unlock()
	if err != nil {
		w.runners.Remove(meta.ID())
		return err
	}

	metrics.SegmentWriterAggregatorNum.Inc()
	w.group.Go(func() error {
		w.flushLoop(runner)
		return nil
	})
	return nil
}

// Add routes one durable log operation to its segment's aggregator.
func (w *SegmentWriter) Add(op StorageOp) error {
	runner, ok := w.runners.Get(op.SegmentID())
	if !ok {
		return errors.Wrapf(merr.ErrInvalidRouting, "segment %d is not open", op.SegmentID())
	}
	runner.mu.Lock()
	defer runner.mu.Unlock()
	return runner.agg.Add(op)
}

// flushLoop polls one aggregator until it is closed or the writer stops.
func (w *SegmentWriter) flushLoop(runner *aggregatorRunner) {
	segmentID := runner.agg.Meta().ID()
	logger := log.With(zap.Int64("segmentID", segmentID), zap.String("segment", runner.agg.Meta().Name()))

	ticker := time.NewTicker(w.cfg.FlushCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.ctx.Done():
			logger.Info("segment writer stopping, flush loop exits")
			return
		case <-ticker.C:
		}

		runner.mu.Lock()
		mustFlush := runner.agg.MustFlush()
		closed := runner.agg.IsClosed()
		runner.mu.Unlock()
		if closed {
			w.retire(segmentID, logger)
			return
		}
		if !mustFlush {
			continue
		}

		err := retry.Do(w.ctx, func() error {
			flushCtx, cancel := context.WithTimeout(w.ctx, w.cfg.FlushTimeout)
			defer cancel()

			runner.mu.Lock()
			defer runner.mu.Unlock()
			result, err := runner.agg.Flush(flushCtx)
			if err == nil && !result.IsEmpty() {
				logger.Debug("flush cycle done",
					zap.Int64("flushedBytes", result.FlushedBytes),
					zap.Int64("mergedBytes", result.MergedBytes))
			}
			return err
		}, retry.Attempts(3), retry.RetryErr(merr.IsRetryable))
		if err != nil {
			if !merr.IsRetryable(err) {
				logger.Error("flush failed with unrecoverable error, halting writer", zap.Error(err))
				w.Halt()
				return
			}
			logger.Warn("flush failed, will retry next cycle", zap.Error(err))
		}

		runner.mu.Lock()
		closed = runner.agg.IsClosed()
		runner.mu.Unlock()
		if closed {
			w.retire(segmentID, logger)
			return
		}
	}
}

// retire removes a finished aggregator from the dispatch map, tolerating a
// concurrent CloseSegment.
func (w *SegmentWriter) retire(segmentID typeutil.UniqueID, logger *zap.Logger) {
	if _, ok := w.runners.GetAndRemove(segmentID); ok {
		metrics.SegmentWriterAggregatorNum.Dec()
		logger.Info("aggregator retired")
	}
}

// CloseSegment shuts a single aggregator down without flushing. Buffered
// operations are dropped; the durable log replays them on reopen.
func (w *SegmentWriter) CloseSegment(segmentID typeutil.UniqueID) {
	runner, ok := w.runners.GetAndRemove(segmentID)
	if !ok {
		return
	}
	runner.mu.Lock()
	runner.agg.Close()
	runner.mu.Unlock()
	metrics.SegmentWriterAggregatorNum.Dec()
}

// ActiveSegments returns the ids of the currently driven segments.
func (w *SegmentWriter) ActiveSegments() []typeutil.UniqueID {
	return w.runners.Keys()
}

// PendingBytes sums the outstanding append bytes across all aggregators.
func (w *SegmentWriter) PendingBytes() int64 {
	runners := make([]*aggregatorRunner, 0, w.runners.Len())
	w.runners.Range(func(_ typeutil.UniqueID, runner *aggregatorRunner) bool {
		runners = append(runners, runner)
		return true
	})
	return lo.SumBy(runners, func(runner *aggregatorRunner) int64 {
		runner.mu.Lock()
		defer runner.mu.Unlock()
		return runner.agg.OutstandingSize()
	})
}

// Halt stops the writer because of unrecoverable corruption. The container
// owner is expected to tear the process down.
func (w *SegmentWriter) Halt() {
	if w.halted.CompareAndSwap(false, true) {
		log.Error("segment writer halted on unrecoverable error")
		w.cancel()
	}
}

// IsHalted reports whether corruption stopped the writer.
func (w *SegmentWriter) IsHalted() bool {
	return w.halted.Load()
}

// Stop terminates every flush loop and closes the remaining aggregators.
func (w *SegmentWriter) Stop() {
	w.cancel()
	_ = w.group.Wait()

	ids := w.runners.Keys()
	for _, id := range ids {
		w.CloseSegment(id)
	}
	log.Info("segment writer stopped", zap.Int64s("segments", ids))
}
