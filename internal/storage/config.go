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
	"strings"

	"github.com/xige-16/stream-write/pkg/util/paramtable"
)

// Config carries the object storage connection settings.
type Config struct {
	Provider        string
	Address         string
	UseSSL          bool
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	RootPath        string
	Region          string
	CreateBucket    bool
}

// NewConfigFromParams reads the objectStorage section of the param table.
func NewConfigFromParams(params *paramtable.ComponentParam) *Config {
	cfg := &params.ObjectStorageCfg
	return &Config{
		Provider:        cfg.Provider.GetValue(),
		Address:         cfg.Address.GetValue(),
		UseSSL:          cfg.UseSSL.GetAsBool(),
		AccessKeyID:     cfg.AccessKeyID.GetValue(),
		SecretAccessKey: cfg.SecretAccessKey.GetValue(),
		BucketName:      cfg.BucketName.GetValue(),
		RootPath:        strings.TrimLeft(cfg.RootPath.GetValue(), "/"),
		Region:          cfg.Region.GetValue(),
		CreateBucket:    cfg.CreateBucket.GetAsBool(),
	}
}
