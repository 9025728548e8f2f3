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

package log

import (
	"os"
	"path"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config configures the global logger.
type Config struct {
	// Level is one of debug, info, warn, error, panic, fatal.
	Level string
	// Format is text or json.
	Format string
	// Stdout enables console output.
	Stdout bool
	// File enables rotated file output when RootPath is set.
	File FileConfig
}

type FileConfig struct {
	RootPath   string
	Filename   string
	MaxSizeMB  int
	MaxDays    int
	MaxBackups int
}

var global = atomic.NewPointer(
	zap.New(newCore(Config{Level: "info", Format: "text", Stdout: true}), zap.AddCallerSkip(1), zap.AddCaller()))

// Init replaces the global logger. Call once at process start.
func Init(cfg Config) {
	global.Store(zap.New(newCore(cfg), zap.AddCallerSkip(1), zap.AddCaller()))
}

func newCore(cfg Config) zapcore.Core {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var enc zapcore.Encoder
	if cfg.Format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	level := zapcore.InfoLevel
	if err := level.Set(cfg.Level); err != nil {
		level = zapcore.InfoLevel
	}

	var syncers []zapcore.WriteSyncer
	if cfg.Stdout {
		syncers = append(syncers, zapcore.AddSync(os.Stdout))
	}
	if cfg.File.RootPath != "" {
		filename := cfg.File.Filename
		if filename == "" {
			filename = "stream-write.log"
		}
		syncers = append(syncers, zapcore.AddSync(&lumberjack.Logger{
			Filename:   path.Join(cfg.File.RootPath, filename),
			MaxSize:    cfg.File.MaxSizeMB,
			MaxAge:     cfg.File.MaxDays,
			MaxBackups: cfg.File.MaxBackups,
		}))
	}
	if len(syncers) == 0 {
		syncers = append(syncers, zapcore.AddSync(os.Stdout))
	}

	return zapcore.NewCore(enc, zapcore.NewMultiWriteSyncer(syncers...), level)
}

// L returns the global logger without the wrapper's caller skip.
func L() *zap.Logger {
	return global.Load().WithOptions(zap.AddCallerSkip(-1))
}

// With creates a child logger with the given fields attached.
func With(fields ...zap.Field) *zap.Logger {
	return L().With(fields...)
}

func Debug(msg string, fields ...zap.Field) {
	global.Load().Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	global.Load().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	global.Load().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	global.Load().Error(msg, fields...)
}

func Panic(msg string, fields ...zap.Field) {
	global.Load().Panic(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	global.Load().Fatal(msg, fields...)
}
