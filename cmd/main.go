package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xige-16/stream-write/internal/segments"
	"github.com/xige-16/stream-write/internal/storage"
	"github.com/xige-16/stream-write/pkg/log"
	"github.com/xige-16/stream-write/pkg/metrics"
	"github.com/xige-16/stream-write/pkg/util/paramtable"
	"github.com/xige-16/stream-write/pkg/util/typeutil"
)

// stream-write smoke tool: drives the full write path (append, batch
// merge, seal) against the configured object storage and verifies the
// durable lengths afterwards.
func main() {
	configPath := flag.String("config", "", "config file path, defaults to configs/stream-write.yaml")
	containerID := flag.Int64("container_id", 1, "container id")
	segmentName := flag.String("segment_name", "", "target segment name, required")
	appendCount := flag.Int("appends", 100, "number of appends to push")
	appendSize := flag.Int("append_size", 4096, "bytes per append")
	withMerge := flag.Bool("with_merge", true, "route half of the data through a batch segment merge")
	flag.Parse()

	if len(*segmentName) == 0 {
		panic("empty segment name!")
	}

	var opts []paramtable.Option
	if *configPath != "" {
		opts = append(opts, paramtable.Files(*configPath))
	}
	paramtable.Init(opts...)
	Params := paramtable.Get()

	log.Init(log.Config{
		Level:  Params.LogCfg.Level.GetValue(),
		Format: Params.LogCfg.Format.GetValue(),
		Stdout: Params.LogCfg.Stdout.GetAsBool(),
		File: log.FileConfig{
			RootPath:   Params.LogCfg.RootPath.GetValue(),
			MaxSizeMB:  Params.LogCfg.MaxSize.GetAsInt(),
			MaxDays:    Params.LogCfg.MaxAge.GetAsInt(),
			MaxBackups: Params.LogCfg.MaxBackups.GetAsInt(),
		},
	})
	metrics.Register(prometheus.DefaultRegisterer)

	log.Info("parse args done",
		zap.String("config", *configPath),
		zap.Int64("containerID", *containerID),
		zap.String("segmentName", *segmentName),
		zap.Int("appends", *appendCount),
		zap.Int("appendSize", *appendSize),
		zap.Bool("withMerge", *withMerge))

	ctx := context.Background()
	store, err := storage.NewSegmentStorage(ctx, storage.NewConfigFromParams(Params))
	if err != nil {
		panic("init segment storage failed!, " + err.Error())
	}

	ds := segments.NewMemoryDataSource(*containerID)
	writer := segments.NewSegmentWriter(ds, store, segments.NewWriterConfigFromParams(Params))
	defer writer.Stop()

	run := time.Now().UnixNano()
	parentID := typeutil.UniqueID(1)
	parent := segments.NewSegmentMeta(parentID, *containerID, fmt.Sprintf("%s-%d", *segmentName, run), typeutil.NoneUniqueID)
	ds.RegisterSegment(parent)
	if err := writer.OpenSegment(ctx, parent); err != nil {
		panic("open parent segment failed!, " + err.Error())
	}

	directAppends := *appendCount
	if *withMerge {
		directAppends = *appendCount / 2
	}

	var seqNum, offset int64
	pushAppend := func(meta *segments.SegmentMeta, off int64, seq int64) int64 {
		payload := make([]byte, *appendSize)
		rand.Read(payload)
		meta.SetDurableLogLength(off + int64(len(payload)))
		if seq%2 == 0 {
			if err := writer.Add(segments.NewAppendOp(meta.ID(), seq, off, payload)); err != nil {
				panic("add append failed!, " + err.Error())
			}
		} else {
			key := fmt.Sprintf("%d/%d/%d", meta.ID(), seq, off)
			ds.PutPayload(key, payload)
			if err := writer.Add(segments.NewCachedAppendOp(meta.ID(), seq, off, int64(len(payload)), key)); err != nil {
				panic("add cached append failed!, " + err.Error())
			}
		}
		return off + int64(len(payload))
	}

	for i := 0; i < directAppends; i++ {
		offset = pushAppend(parent, offset, seqNum)
		seqNum++
	}

	if *withMerge {
		child := segments.NewSegmentMeta(2, *containerID, fmt.Sprintf("%s-%d-batch", *segmentName, run), parentID)
		ds.RegisterSegment(child)
		if err := writer.OpenSegment(ctx, child); err != nil {
			panic("open batch segment failed!, " + err.Error())
		}

		var childOffset, childSeq int64
		for i := directAppends; i < *appendCount; i++ {
			childOffset = pushAppend(child, childOffset, childSeq)
			childSeq++
		}
		child.MarkSealed()
		if err := writer.Add(segments.NewSealOp(child.ID(), childSeq, childOffset)); err != nil {
			panic("seal batch segment failed!, " + err.Error())
		}

		parent.SetDurableLogLength(offset + childOffset)
		if err := writer.Add(segments.NewMergeBatchOp(parentID, child.ID(), seqNum, offset, childOffset)); err != nil {
			panic("add merge failed!, " + err.Error())
		}
		seqNum++
		offset += childOffset
	}

	parent.MarkSealed()
	if err := writer.Add(segments.NewSealOp(parentID, seqNum, offset)); err != nil {
		panic("seal segment failed!, " + err.Error())
	}

	deadline := time.Now().Add(5 * time.Minute)
	for !parent.IsSealedInStorage() {
		if writer.IsHalted() {
			panic("writer halted during smoke run!")
		}
		if time.Now().After(deadline) {
			panic("smoke run did not drain in time!")
		}
		time.Sleep(100 * time.Millisecond)
	}

	info, err := store.GetInfo(ctx, parent.Name())
	if err != nil {
		panic("verify segment failed!, " + err.Error())
	}
	if info.Length != offset || !info.Sealed {
		panic(fmt.Sprintf("verification mismatch! storage length=%d sealed=%t, expected length=%d sealed",
			info.Length, info.Sealed, offset))
	}

	log.Info("smoke run done!",
		zap.String("segment", parent.Name()),
		zap.Int64("bytes", info.Length),
		zap.Bool("sealed", info.Sealed))
}
