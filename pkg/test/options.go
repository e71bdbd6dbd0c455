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

package test

import (
	"fmt"
	"time"

	"github.com/imdario/mergo"

	"github.com/ecsautoscaler/ecs-autoscaler/pkg/operator/options"
)

// Options returns valid options for tests. Fields set on the overrides win.
func Options(overrides ...options.Options) *options.Options {
	opts := options.Options{}
	for _, override := range overrides {
		if err := mergo.Merge(&opts, override, mergo.WithOverride); err != nil {
			panic(fmt.Sprintf("Failed to merge options: %s", err))
		}
	}
	if opts.MaxContainersToScaleDown == 0 {
		opts.MaxContainersToScaleDown = 2
	}
	if opts.CooldownStore == "" {
		opts.CooldownStore = string(options.CooldownStoreS3)
	}
	if opts.S3BucketName == "" {
		opts.S3BucketName = fmt.Sprintf("%s-cooldown", RandomName())
	}
	if opts.MetricsEmitter == "" {
		opts.MetricsEmitter = string(options.MetricsEmitterPrometheus)
	}
	if opts.MetricsNamespace == "" {
		opts.MetricsNamespace = "ECSAutoscaler"
	}
	if opts.MetricsPort == 0 {
		opts.MetricsPort = 8080
	}
	if opts.Interval == 0 {
		opts.Interval = time.Minute
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = 10
	}
	if opts.LogLevel == "" {
		opts.LogLevel = "info"
	}
	return &opts
}
