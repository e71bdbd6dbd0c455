/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package log

import (
	"github.com/awslabs/operatorpkg/serrors"
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ecsautoscaler/ecs-autoscaler/pkg/utils/env"
)

// NopLogger is used to throw away logs when we don't actually want to log in
// certain portions of the code since logging would be too noisy
var NopLogger = zapr.NewLogger(zap.NewNop())

const (
	Unknown = "unknown"
	Commit  = "commit"
)

func DefaultZapConfig(level string) zap.Config {
	logLevel := zap.NewAtomicLevelAt(zap.InfoLevel)
	if level != "" {
		logLevel = lo.Must(zap.ParseAtomicLevel(level))
	}
	return zap.Config{
		Level:             logLevel,
		Development:       false,
		DisableCaller:     level != "debug",
		DisableStacktrace: true,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding: "json",
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:     "message",
			LevelKey:       "level",
			TimeKey:        "time",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
}

// NewLogger returns a logr.Logger backed by zap. Errors wrapped with serrors have their values
// logged as structured keys.
func NewLogger(level string, component string) logr.Logger {
	return serrors.NewLogger(zapr.NewLogger(WithCommit(lo.Must(DefaultZapConfig(level).Build())).Named(component)))
}

func WithCommit(logger *zap.Logger) *zap.Logger {
	revision := env.GetRevision()
	if revision == Unknown {
		return logger
	}
	return logger.With(zap.String(Commit, revision))
}
