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

package config

import (
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"

	"github.com/xige-16/stream-write/pkg/log"
)

// FileSource loads configuration from yaml files. Missing files are
// skipped so default config paths work out of the box.
type FileSource struct {
	sync.RWMutex
	files   []string
	configs map[string]string
}

func NewFileSource(files ...string) *FileSource {
	return &FileSource{
		files:   files,
		configs: make(map[string]string),
	}
}

// GetConfigurationByKey implements Source
func (fs *FileSource) GetConfigurationByKey(key string) (string, error) {
	fs.RLock()
	v, ok := fs.configs[key]
	fs.RUnlock()
	if !ok {
		return "", errors.Wrap(ErrKeyNotFound, key)
	}
	return v, nil
}

// GetConfigurations implements Source
func (fs *FileSource) GetConfigurations() (map[string]string, error) {
	if err := fs.loadFromFile(); err != nil {
		return nil, err
	}

	configMap := make(map[string]string)
	fs.RLock()
	maps.Copy(configMap, fs.configs)
	fs.RUnlock()
	return configMap, nil
}

// GetPriority implements Source
func (fs *FileSource) GetPriority() int {
	return LowPriority
}

// GetSourceName implements Source
func (fs *FileSource) GetSourceName() string {
	return "FileSource"
}

func (fs *FileSource) Close() {
}

func (fs *FileSource) loadFromFile() error {
	newConfig := make(map[string]string)

	fs.RLock()
	configFiles := fs.files
	fs.RUnlock()

	for _, configFile := range configFiles {
		if _, err := os.Stat(configFile); err != nil {
			continue
		}

		yamlReader := viper.New()
		yamlReader.SetConfigFile(configFile)
		if err := yamlReader.ReadInConfig(); err != nil {
			return errors.Wrap(err, "read config failed: "+configFile)
		}

		for _, key := range yamlReader.AllKeys() {
			val := yamlReader.Get(key)
			str, err := cast.ToStringE(val)
			if err != nil {
				sl, ok := val.([]any)
				if !ok {
					log.Warn("config value is not castable, skipped", zap.String("key", key), zap.Any("value", val))
					continue
				}
				strs := make([]string, 0, len(sl))
				for _, v := range sl {
					ss, err := cast.ToStringE(v)
					if err != nil {
						log.Warn("cast to string failed", zap.Any("value", v))
						continue
					}
					strs = append(strs, ss)
				}
				str = joinComma(strs)
			}
			newConfig[key] = str
			newConfig[formatKey(key)] = str
		}
	}

	fs.Lock()
	defer fs.Unlock()
	fs.configs = newConfig
	return nil
}

func joinComma(strs []string) string {
	out := ""
	for _, s := range strs {
		if out == "" {
			out = s
			continue
		}
		out = out + "," + s
	}
	return out
}
