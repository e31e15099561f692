// Copyright © 2025 Kaleido, Inc.
//
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
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
	"context"
	"math"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/kaleido-io/curio/internal/confutil"
)

type Config struct {
	// the logging level
	Level *string `yaml:"level"`
	// the format ('simple', 'detailed', 'json')
	Format *string `yaml:"format"`
	// the output location ('stdout','stderr','file')
	Output *string `yaml:"output"`
	// forces color to be enabled, even if we do not detect a TTY
	ForceColor *bool `yaml:"forceColor"`
	// forces color to be disabled, even if we detect a TTY
	DisableColor *bool `yaml:"disableColor"`
	// string format for timestamps
	TimeFormat *string `yaml:"timeFormat"`
	// sets log timestamps to the UTC timezone
	UTC *bool `yaml:"utc"`
	// configure file based logging
	File FileConfig `yaml:"file"`
	// configure json based logging
	JSON JSONConfig `yaml:"json"`
}

type FileConfig struct {
	// sets the log filename prefix
	Filename *string `yaml:"filename"`
	// sets the size to roll logs at a given size
	MaxSize *string `yaml:"maxSize"`
	// sets the maximum number of old files to keep
	MaxBackups *int `yaml:"maxBackups"`
	// sets the maximum age at which to roll
	MaxAge *string `yaml:"maxAge"`
	// Compress sets whether to compress backups
	Compress *bool `yaml:"compress"`
}

type JSONConfig struct {
	// configures the JSON key containing the timestamp of the log
	TimestampField *string `yaml:"timestampField"`
	// configures the JSON key containing the log level
	LevelField *string `yaml:"levelField"`
	// configures the JSON key containing the log message
	MessageField *string `yaml:"messageField"`
	// configures the JSON key containing the calling function
	FuncField *string `yaml:"funcField"`
	// configures the JSON key containing the calling file
	FileField *string `yaml:"fileField"`
}

var Defaults = &Config{
	Level:        confutil.P("info"),
	Format:       confutil.P("simple"),
	Output:       confutil.P("stderr"),
	ForceColor:   confutil.P(false),
	DisableColor: confutil.P(false),
	TimeFormat:   confutil.P("2006-01-02T15:04:05.000Z07:00"),
	UTC:          confutil.P(false),
	File: FileConfig{
		Filename:   confutil.P("curio.log"),
		MaxSize:    confutil.P("100Mb"),
		MaxBackups: confutil.P(2),
		MaxAge:     confutil.P("24h"),
		Compress:   confutil.P(true),
	},
	JSON: JSONConfig{
		TimestampField: confutil.P("@timestamp"),
		LevelField:     confutil.P("level"),
		MessageField:   confutil.P("message"),
		FuncField:      confutil.P("func"),
		FileField:      confutil.P("file"),
	},
}

var (
	rootLogger = logrus.NewEntry(logrus.StandardLogger())

	// L accesses the current logger from the context
	L = loggerFromContext

	initAtLeastOnce atomic.Bool
)

type (
	ctxLogKey struct{}
)

func InitConfig(conf *Config) {
	initAtLeastOnce.Store(true) // must store before SetLevel

	level := confutil.StringNotEmpty(conf.Level, *Defaults.Level)
	SetLevel(level)

	output := confutil.StringNotEmpty(conf.Output, *Defaults.Output)
	switch output {
	case "file":
		filename := confutil.StringNotEmpty(conf.File.Filename, *Defaults.File.Filename)
		rootLogger.Infof("Logs diverted to %s", filename)
		maxSizeBytes := confutil.ByteSize(conf.File.MaxSize, 0, *Defaults.File.MaxSize)
		maxAgeDuration := confutil.DurationMin(conf.File.MaxAge, 0, *Defaults.File.MaxAge)
		lumberjack := &lumberjack.Logger{
			Filename:   filename,
			MaxSize:    int(math.Ceil(float64(maxSizeBytes) / 1024 / 1024)), /* round up in megabytes */
			MaxBackups: confutil.IntMin(conf.File.MaxBackups, 0, *Defaults.File.MaxBackups),
			MaxAge:     int(math.Ceil(float64(maxAgeDuration) / float64(time.Hour) / 24)), /* round up in days */
			Compress:   confutil.Bool(conf.File.Compress, *Defaults.File.Compress),
		}
		logrus.SetOutput(lumberjack)
	case "stderr":
		logrus.SetOutput(os.Stderr)
	case "stdout":
		logrus.SetOutput(os.Stdout)
		fallthrough
	default:
	}

	setFormatting(&Formatting{
		Format:             confutil.StringNotEmpty(conf.Format, *Defaults.Format),
		DisableColor:       confutil.Bool(conf.DisableColor, *Defaults.DisableColor),
		ForceColor:         confutil.Bool(conf.ForceColor, *Defaults.ForceColor),
		TimestampFormat:    confutil.StringNotEmpty(conf.TimeFormat, *Defaults.TimeFormat),
		UTC:                confutil.Bool(conf.UTC, *Defaults.UTC),
		JSONTimestampField: confutil.StringNotEmpty(conf.JSON.TimestampField, *Defaults.JSON.TimestampField),
		JSONLevelField:     confutil.StringNotEmpty(conf.JSON.LevelField, *Defaults.JSON.LevelField),
		JSONMessageField:   confutil.StringNotEmpty(conf.JSON.MessageField, *Defaults.JSON.MessageField),
		JSONFuncField:      confutil.StringNotEmpty(conf.JSON.FuncField, *Defaults.JSON.FuncField),
		JSONFileField:      confutil.StringNotEmpty(conf.JSON.FileField, *Defaults.JSON.FileField),
	})
}

func IsDebugEnabled() bool {
	return logrus.IsLevelEnabled(logrus.DebugLevel)
}

func IsTraceEnabled() bool {
	return logrus.IsLevelEnabled(logrus.TraceLevel)
}

func EnsureInit() {
	// Called at a couple of strategic points to check we get log initialize in things like unit tests
	// However NOT guaranteed to be called because we can't afford to do atomic load on every log line
	if !initAtLeastOnce.Load() {
		InitConfig(&Config{})
	}
}

// WithLogger adds the specified logger to the context
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	EnsureInit()
	return context.WithValue(ctx, ctxLogKey{}, logger)
}

// WithLogField adds the specified field to the logger in the context
func WithLogField(ctx context.Context, key, value string) context.Context {
	EnsureInit()
	if len(value) > 61 {
		value = value[0:61] + "..."
	}
	return WithLogger(ctx, loggerFromContext(ctx).WithField(key, value))
}

// LoggerFromContext returns the logger for the current context, or no logger if there is no context
func loggerFromContext(ctx context.Context) *logrus.Entry {
	logger := ctx.Value(ctxLogKey{})
	if logger == nil {
		return rootLogger
	}
	return logger.(*logrus.Entry)
}

func GetLevel() string {
	switch logrus.GetLevel() {
	case logrus.ErrorLevel:
		return "error"
	case logrus.WarnLevel:
		return "warn"
	case logrus.DebugLevel:
		return "debug"
	case logrus.TraceLevel:
		return "trace"
	default:
		return "info"
	}
}

func SetLevel(level string) {
	var l logrus.Level
	switch strings.ToLower(level) {
	case "error":
		l = logrus.ErrorLevel
	case "warn", "warning":
		l = logrus.WarnLevel
	case "debug":
		l = logrus.DebugLevel
	case "trace":
		l = logrus.TraceLevel
	default:
		l = logrus.InfoLevel
	}
	logrus.SetLevel(l)
}

type Formatting struct {
	Format             string
	DisableColor       bool
	ForceColor         bool
	TimestampFormat    string
	UTC                bool
	JSONTimestampField string
	JSONLevelField     string
	JSONMessageField   string
	JSONFuncField      string
	JSONFileField      string
}

type utcFormat struct {
	f logrus.Formatter
}

func (utc *utcFormat) Format(e *logrus.Entry) ([]byte, error) {
	e.Time = e.Time.UTC()
	return utc.f.Format(e)
}

func setFormatting(format *Formatting) {
	var formatter logrus.Formatter
	switch format.Format {
	case "json":
		formatter = &logrus.JSONFormatter{
			TimestampFormat: format.TimestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  format.JSONTimestampField,
				logrus.FieldKeyLevel: format.JSONLevelField,
				logrus.FieldKeyMsg:   format.JSONMessageField,
				logrus.FieldKeyFunc:  format.JSONFuncField,
				logrus.FieldKeyFile:  format.JSONFileField,
			},
		}
	case "detailed":
		formatter = &logrus.TextFormatter{
			DisableColors:   format.DisableColor,
			ForceColors:     format.ForceColor,
			TimestampFormat: format.TimestampFormat,
			DisableSorting:  false,
			FullTimestamp:   true,
		}
		logrus.SetReportCaller(true)
	case "simple":
		fallthrough
	default:
		formatter = &prefixed.TextFormatter{
			DisableColors:   format.DisableColor,
			ForceColors:     format.ForceColor,
			TimestampFormat: format.TimestampFormat,
			DisableSorting:  false,
			ForceFormatting: true,
			FullTimestamp:   true,
		}
	}
	if format.UTC {
		formatter = &utcFormat{f: formatter}
	}
	logrus.SetFormatter(formatter)
}
