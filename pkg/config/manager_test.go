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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestYaml(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	file := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))
	return file
}

func TestFileSource(t *testing.T) {
	file := writeTestYaml(t, `
segmentWriter:
  maxFlushSize: 1024
log:
  level: debug
`)
	fs := NewFileSource(file)
	configs, err := fs.GetConfigurations()
	require.NoError(t, err)
	assert.Equal(t, "1024", configs["segmentwriter.maxflushsize"])

	v, err := fs.GetConfigurationByKey(formatKey("segmentWriter.maxFlushSize"))
	require.NoError(t, err)
	assert.Equal(t, "1024", v)

	_, err = fs.GetConfigurationByKey("segmentwriter.unknown")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestFileSourceMissingFile(t *testing.T) {
	fs := NewFileSource(filepath.Join(t.TempDir(), "absent.yaml"))
	configs, err := fs.GetConfigurations()
	require.NoError(t, err)
	assert.Empty(t, configs)
}

func TestManager(t *testing.T) {
	file := writeTestYaml(t, `
log:
  level: warn
`)

	t.Run("file lookup", func(t *testing.T) {
		mgr := NewManager(NewFileSource(file))
		v, err := mgr.GetConfigurationByKey("log.level")
		require.NoError(t, err)
		assert.Equal(t, "warn", v)
	})

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "error")
		mgr := NewManager(NewFileSource(file), NewEnvSource())
		v, err := mgr.GetConfigurationByKey("log.level")
		require.NoError(t, err)
		assert.Equal(t, "error", v)
	})

	t.Run("save and reset override everything", func(t *testing.T) {
		mgr := NewManager(NewFileSource(file))
		mgr.Save("log.level", "debug")
		v, err := mgr.GetConfigurationByKey("log.level")
		require.NoError(t, err)
		assert.Equal(t, "debug", v)

		mgr.Reset("log.level")
		v, err = mgr.GetConfigurationByKey("log.level")
		require.NoError(t, err)
		assert.Equal(t, "warn", v)
	})

	t.Run("unknown key", func(t *testing.T) {
		mgr := NewManager(NewFileSource(file))
		_, err := mgr.GetConfigurationByKey("does.not.exist")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})
}
