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

package options

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/awslabs/operatorpkg/serrors"
	"go.uber.org/multierr"

	v1 "github.com/ecsautoscaler/ecs-autoscaler/pkg/apis/v1"
	autoscalingerrors "github.com/ecsautoscaler/ecs-autoscaler/pkg/errors"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/utils/env"
)

type CooldownStoreType string

const (
	CooldownStoreS3     CooldownStoreType = "s3"
	CooldownStoreMemory CooldownStoreType = "memory"
)

type MetricsEmitterType string

const (
	MetricsEmitterPrometheus MetricsEmitterType = "prometheus"
	MetricsEmitterCloudWatch MetricsEmitterType = "cloudwatch"
)

// Options contains all CLI flags / env vars for the autoscaler.
type Options struct {
	maxContainersToScaleDownRaw string
	MaxContainersToScaleDown    int64

	S3BucketName           string
	CooldownStore          string
	CooldownScopeByCluster bool

	MetricsEmitter   string
	MetricsNamespace string
	MetricsPort      int

	ScheduleFile string
	Interval     time.Duration
	Concurrency  int

	LogLevel  string
	AWSRegion string
}

type FlagSet struct {
	*flag.FlagSet

	envErrs error
}

// BoolVarWithEnv defines a bool flag with a specified name, default value, usage string, and fallback environment
// variable.
func (fs *FlagSet) BoolVarWithEnv(p *bool, name string, envVar string, val bool, usage string) {
	*p = val
	fs.BoolFunc(name, usage, func(val string) error {
		if val != "true" && val != "false" {
			return fmt.Errorf("%q is not a valid value, must be true or false", val)
		}
		*p = (val) == "true"
		return nil
	})
	fs.setFromEnv(name, envVar)
}

// IntVarWithEnv defines an int flag with a fallback environment variable. A malformed environment value is
// reported by Parse rather than replaced by the default.
func (fs *FlagSet) IntVarWithEnv(p *int, name string, envVar string, val int, usage string) {
	fs.IntVar(p, name, val, usage)
	fs.setFromEnv(name, envVar)
}

// DurationVarWithEnv defines a duration flag with a fallback environment variable. A malformed environment
// value is reported by Parse rather than replaced by the default.
func (fs *FlagSet) DurationVarWithEnv(p *time.Duration, name string, envVar string, val time.Duration, usage string) {
	fs.DurationVar(p, name, val, usage)
	fs.setFromEnv(name, envVar)
}

func (fs *FlagSet) setFromEnv(name string, envVar string) {
	val, ok := os.LookupEnv(envVar)
	if !ok {
		return
	}
	if err := fs.Set(name, val); err != nil {
		fs.envErrs = multierr.Append(fs.envErrs, serrors.Wrap(fmt.Errorf("parsing environment variable, %w", err), "env", envVar))
	}
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{FlagSet: flag.NewFlagSet(name, flag.ContinueOnError)}
}

func (o *Options) AddFlags(fs *FlagSet) {
	fs.StringVar(&o.maxContainersToScaleDownRaw, "max-containers-to-scale-down", env.WithDefaultString("MAX_CONTAINERS_TO_SCALE_DOWN", ""), "[REQUIRED] The most tasks a single cycle may remove from a service.")
	fs.StringVar(&o.S3BucketName, "s3-bucket-name", env.WithDefaultString("S3_BUCKET_NAME", ""), "The bucket that holds the scale down cooldown records. Required when the cooldown store is s3.")
	fs.StringVar(&o.CooldownStore, "cooldown-store", env.WithDefaultString("COOLDOWN_STORE", string(CooldownStoreS3)), "Where cooldown records are kept, one of s3 or memory.")
	fs.BoolVarWithEnv(&o.CooldownScopeByCluster, "cooldown-scope-by-cluster", "COOLDOWN_SCOPE_BY_CLUSTER", false, "Prefix cooldown record keys with the cluster name.")
	fs.StringVar(&o.MetricsEmitter, "metrics-emitter", env.WithDefaultString("METRICS_EMITTER", string(MetricsEmitterPrometheus)), "Where desired count metrics are published, one of prometheus or cloudwatch.")
	fs.StringVar(&o.MetricsNamespace, "metrics-namespace", env.WithDefaultString("METRICS_NAMESPACE", "ECSAutoscaler"), "The CloudWatch namespace used by the cloudwatch metrics emitter.")
	fs.IntVarWithEnv(&o.MetricsPort, "metrics-port", "METRICS_PORT", 8080, "The port the metric endpoint binds to for operating metrics about the autoscaler itself.")
	fs.StringVar(&o.ScheduleFile, "schedule-file", env.WithDefaultString("SCHEDULE_FILE", ""), "Path to a YAML, JSON or TOML file listing the services the controller manages.")
	fs.DurationVarWithEnv(&o.Interval, "interval", "INTERVAL", time.Minute, "How often the controller runs a scaling cycle for every scheduled service.")
	fs.IntVarWithEnv(&o.Concurrency, "concurrency", "CONCURRENCY", 10, "The most services the controller scales at the same time.")
	fs.StringVar(&o.LogLevel, "log-level", env.WithDefaultString("LOG_LEVEL", "info"), "Log verbosity level. Can be one of 'debug', 'info', or 'error'.")
	fs.StringVar(&o.AWSRegion, "aws-region", env.WithDefaultString("AWS_REGION", ""), "The AWS region. Discovered from the instance metadata service when unset.")
}

// Parse reads flags over their environment defaults and validates the result. Any failure is a
// ConfigurationError.
func (o *Options) Parse(fs *FlagSet, args ...string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return autoscalingerrors.NewConfigurationError(fmt.Errorf("parsing flags, %w", err))
	}
	if fs.envErrs != nil {
		return autoscalingerrors.NewConfigurationError(fs.envErrs)
	}
	if o.maxContainersToScaleDownRaw == "" {
		return autoscalingerrors.NewConfigurationError(fmt.Errorf("missing field, max-containers-to-scale-down"))
	}
	maxContainers, err := (&v1.IntOrString{Raw: o.maxContainersToScaleDownRaw}).Int64()
	if err != nil {
		return autoscalingerrors.NewConfigurationError(fmt.Errorf("parsing max-containers-to-scale-down, %w", err))
	}
	o.MaxContainersToScaleDown = maxContainers
	if err := o.Validate(); err != nil {
		return autoscalingerrors.NewConfigurationError(fmt.Errorf("validating cli flags / env vars, %w", err))
	}
	return nil
}

// DefaultMetricsEmitter replaces the default emitter for processes that are never scraped. An emitter chosen by
// flag or environment variable is kept. Call it after Parse.
func (o *Options) DefaultMetricsEmitter(fs *FlagSet, emitter MetricsEmitterType) error {
	if _, ok := os.LookupEnv("METRICS_EMITTER"); ok {
		return nil
	}
	if isSet(fs, "metrics-emitter") {
		return nil
	}
	o.MetricsEmitter = string(emitter)
	if err := o.Validate(); err != nil {
		return autoscalingerrors.NewConfigurationError(fmt.Errorf("validating cli flags / env vars, %w", err))
	}
	return nil
}

func isSet(fs *FlagSet, name string) (set bool) {
	fs.Visit(func(f *flag.Flag) {
		set = set || f.Name == name
	})
	return set
}
