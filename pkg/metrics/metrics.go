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

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "streamwrite"

	TotalLabel   = "total"
	SuccessLabel = "success"
	FailLabel    = "fail"

	DataGetLabel    = "get"
	DataPutLabel    = "put"
	DataStatLabel   = "stat"
	DataConcatLabel = "concat"
	DataSealLabel   = "seal"
	DataRemoveLabel = "remove"

	FlushedLabel = "flushed"
	MergedLabel  = "merged"
)

var (
	// SegmentFlushedBytes counts bytes committed to storage per kind
	// (flushed appends vs merged children).
	SegmentFlushedBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "segmentwriter",
			Name:      "flushed_bytes_total",
			Help:      "bytes committed durably to the storage tier",
		}, []string{"kind"})

	// SegmentFlushLatency observes wall time of a full flush invocation.
	SegmentFlushLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "segmentwriter",
			Name:      "flush_latency_milliseconds",
			Help:      "latency of segment aggregator flush calls",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 30000},
		})

	// PersistentDataOpCounter counts storage tier calls per op and status.
	PersistentDataOpCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "op_count",
			Help:      "count of persistent data operations",
		}, []string{"op", "status"})

	// PersistentDataRequestLatency observes storage tier call latency per op.
	PersistentDataRequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "request_latency_milliseconds",
			Help:      "latency of persistent data operations",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 30000},
		}, []string{"op"})

	// SegmentWriterAggregatorNum tracks live aggregators owned by the writer.
	SegmentWriterAggregatorNum = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "segmentwriter",
			Name:      "aggregator_num",
			Help:      "number of active segment aggregators",
		})
)

var registerOnce sync.Once

// Register registers all collectors with the given registry.
func Register(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(SegmentFlushedBytes)
		r.MustRegister(SegmentFlushLatency)
		r.MustRegister(PersistentDataOpCounter)
		r.MustRegister(PersistentDataRequestLatency)
		r.MustRegister(SegmentWriterAggregatorNum)
	})
}
