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

package paramtable

import (
	"sync"
)

var (
	params    ComponentParam
	paramOnce sync.Once
)

// Init loads the global param table once.
func Init(opts ...Option) {
	paramOnce.Do(func() {
		params.init(NewBaseTable(opts...))
	})
}

// Get returns the global param table. Init must have been called.
func Get() *ComponentParam {
	return &params
}

// ComponentParam groups every component's configuration.
type ComponentParam struct {
	baseTable *BaseTable

	SegmentWriterCfg segmentWriterConfig
	ObjectStorageCfg objectStorageConfig
	LogCfg           logConfig
}

func (p *ComponentParam) init(bt *BaseTable) {
	p.baseTable = bt
	p.SegmentWriterCfg.init(bt)
	p.ObjectStorageCfg.init(bt)
	p.LogCfg.init(bt)
}

// Save sets a runtime override, mainly used by tests.
func (p *ComponentParam) Save(key, value string) {
	p.baseTable.Save(key, value)
}

// Reset removes a runtime override.
func (p *ComponentParam) Reset(key string) {
	p.baseTable.Reset(key)
}

// /////////////////////////////////////////////////////////////////////////////
// --- segmentWriter ---
type segmentWriterConfig struct {
	FlushThresholdSize     ParamItem `refreshable:"false"`
	FlushThresholdInterval ParamItem `refreshable:"false"`
	MaxFlushSize           ParamItem `refreshable:"false"`
	FlushTimeout           ParamItem `refreshable:"false"`
	FlushCheckInterval     ParamItem `refreshable:"false"`
}

func (p *segmentWriterConfig) init(base *BaseTable) {
	p.FlushThresholdSize = ParamItem{
		Key:          "segmentWriter.flushThresholdSize",
		Version:      "0.1.0",
		DefaultValue: "4194304",
		Doc:          "outstanding bytes that force a flush, 4MB by default",
		Export:       true,
	}
	p.FlushThresholdSize.Init(base.Manager())

	p.FlushThresholdInterval = ParamItem{
		Key:          "segmentWriter.flushThresholdInterval",
		Version:      "0.1.0",
		DefaultValue: "30",
		Doc:          "seconds since the last flush after which a flush is forced",
		Export:       true,
	}
	p.FlushThresholdInterval.Init(base.Manager())

	p.MaxFlushSize = ParamItem{
		Key:          "segmentWriter.maxFlushSize",
		Version:      "0.1.0",
		DefaultValue: "16777216",
		Doc:          "upper bound of a single storage write and of a single append, 16MB by default",
		Export:       true,
	}
	p.MaxFlushSize.Init(base.Manager())

	p.FlushTimeout = ParamItem{
		Key:          "segmentWriter.flushTimeout",
		Version:      "0.1.0",
		DefaultValue: "60",
		Doc:          "seconds granted to one flush invocation, storage calls share the budget",
		Export:       true,
	}
	p.FlushTimeout.Init(base.Manager())

	p.FlushCheckInterval = ParamItem{
		Key:          "segmentWriter.flushCheckInterval",
		Version:      "0.1.0",
		DefaultValue: "1",
		Doc:          "seconds between flush condition polls per segment",
		Export:       true,
	}
	p.FlushCheckInterval.Init(base.Manager())
}

// /////////////////////////////////////////////////////////////////////////////
// --- objectStorage ---
type objectStorageConfig struct {
	Provider        ParamItem `refreshable:"false"`
	Address         ParamItem `refreshable:"false"`
	UseSSL          ParamItem `refreshable:"false"`
	AccessKeyID     ParamItem `refreshable:"false"`
	SecretAccessKey ParamItem `refreshable:"false"`
	BucketName      ParamItem `refreshable:"false"`
	RootPath        ParamItem `refreshable:"false"`
	Region          ParamItem `refreshable:"false"`
	CreateBucket    ParamItem `refreshable:"false"`
	RequestTimeout  ParamItem `refreshable:"false"`
}

func (p *objectStorageConfig) init(base *BaseTable) {
	p.Provider = ParamItem{
		Key:          "objectStorage.provider",
		Version:      "0.1.0",
		DefaultValue: "minio",
		Doc:          "object storage provider, available values are [minio, aws, gcp, aliyun, azure]",
		Export:       true,
	}
	p.Provider.Init(base.Manager())

	p.Address = ParamItem{
		Key:          "objectStorage.address",
		Version:      "0.1.0",
		DefaultValue: "localhost:9000",
		Export:       true,
	}
	p.Address.Init(base.Manager())

	p.UseSSL = ParamItem{
		Key:          "objectStorage.useSSL",
		Version:      "0.1.0",
		DefaultValue: "false",
		Export:       true,
	}
	p.UseSSL.Init(base.Manager())

	p.AccessKeyID = ParamItem{
		Key:     "objectStorage.accessKeyID",
		Version: "0.1.0",
		Export:  true,
	}
	p.AccessKeyID.Init(base.Manager())

	p.SecretAccessKey = ParamItem{
		Key:     "objectStorage.secretAccessKey",
		Version: "0.1.0",
		Export:  true,
	}
	p.SecretAccessKey.Init(base.Manager())

	p.BucketName = ParamItem{
		Key:          "objectStorage.bucketName",
		Version:      "0.1.0",
		DefaultValue: "stream-write",
		Export:       true,
	}
	p.BucketName.Init(base.Manager())

	p.RootPath = ParamItem{
		Key:          "objectStorage.rootPath",
		Version:      "0.1.0",
		DefaultValue: "segments",
		Doc:          "prefix under which all segment objects live",
		Export:       true,
	}
	p.RootPath.Init(base.Manager())

	p.Region = ParamItem{
		Key:     "objectStorage.region",
		Version: "0.1.0",
		Export:  true,
	}
	p.Region.Init(base.Manager())

	p.CreateBucket = ParamItem{
		Key:          "objectStorage.createBucket",
		Version:      "0.1.0",
		DefaultValue: "false",
		Doc:          "create the bucket at startup when missing",
		Export:       true,
	}
	p.CreateBucket.Init(base.Manager())

	p.RequestTimeout = ParamItem{
		Key:          "objectStorage.requestTimeout",
		Version:      "0.1.0",
		DefaultValue: "10000",
		Doc:          "ms",
		Export:       true,
	}
	p.RequestTimeout.Init(base.Manager())
}

// /////////////////////////////////////////////////////////////////////////////
// --- log ---
type logConfig struct {
	Level      ParamItem `refreshable:"false"`
	Format     ParamItem `refreshable:"false"`
	Stdout     ParamItem `refreshable:"false"`
	RootPath   ParamItem `refreshable:"false"`
	MaxSize    ParamItem `refreshable:"false"`
	MaxAge     ParamItem `refreshable:"false"`
	MaxBackups ParamItem `refreshable:"false"`
}

func (l *logConfig) init(base *BaseTable) {
	l.Level = ParamItem{
		Key:          "log.level",
		DefaultValue: "info",
		Version:      "0.1.0",
		Doc:          "Only supports debug, info, warn, error, panic, or fatal. Default 'info'.",
		Export:       true,
	}
	l.Level.Init(base.Manager())

	l.Format = ParamItem{
		Key:          "log.format",
		DefaultValue: "text",
		Version:      "0.1.0",
		Doc:          "text or json",
		Export:       true,
	}
	l.Format.Init(base.Manager())

	l.Stdout = ParamItem{
		Key:          "log.stdout",
		DefaultValue: "true",
		Version:      "0.1.0",
		Export:       true,
	}
	l.Stdout.Init(base.Manager())

	l.RootPath = ParamItem{
		Key:     "log.file.rootPath",
		Version: "0.1.0",
		Doc:     "root dir path to put logs, default \"\" means no log file will print",
		Export:  true,
	}
	l.RootPath.Init(base.Manager())

	l.MaxSize = ParamItem{
		Key:          "log.file.maxSize",
		DefaultValue: "300",
		Version:      "0.1.0",
		Doc:          "MB",
		Export:       true,
	}
	l.MaxSize.Init(base.Manager())

	l.MaxAge = ParamItem{
		Key:          "log.file.maxAge",
		DefaultValue: "10",
		Version:      "0.1.0",
		Doc:          "Maximum time for log retention in day.",
		Export:       true,
	}
	l.MaxAge.Init(base.Manager())

	l.MaxBackups = ParamItem{
		Key:          "log.file.maxBackups",
		DefaultValue: "20",
		Version:      "0.1.0",
		Export:       true,
	}
	l.MaxBackups.Init(base.Manager())
}
