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
	"fmt"
	"strings"

	"github.com/awslabs/operatorpkg/serrors"
	"go.uber.org/multierr"
	"k8s.io/utils/set"
)

var (
	validCooldownStores  = set.New(string(CooldownStoreS3), string(CooldownStoreMemory))
	validMetricsEmitters = set.New(string(MetricsEmitterPrometheus), string(MetricsEmitterCloudWatch))
	validLogLevels       = set.New("debug", "info", "error")
)

func (o *Options) Validate() error {
	return multierr.Combine(
		o.validateMaxContainersToScaleDown(),
		o.validateCooldownStore(),
		o.validateMetrics(),
		o.validateController(),
		o.validateLogLevel(),
	)
}

func (o *Options) validateMaxContainersToScaleDown() error {
	if o.MaxContainersToScaleDown <= 0 {
		return serrors.Wrap(fmt.Errorf("max-containers-to-scale-down must be positive"), "max-containers-to-scale-down", o.MaxContainersToScaleDown)
	}
	return nil
}

func (o *Options) validateCooldownStore() error {
	if !validCooldownStores.Has(o.CooldownStore) {
		return fmt.Errorf("invalid cooldown-store %q, valid values are: [%s]", o.CooldownStore, strings.Join(validCooldownStores.SortedList(), ", "))
	}
	if CooldownStoreType(o.CooldownStore) == CooldownStoreS3 && o.S3BucketName == "" {
		return fmt.Errorf("missing field, s3-bucket-name")
	}
	return nil
}

func (o *Options) validateMetrics() (errs error) {
	if !validMetricsEmitters.Has(o.MetricsEmitter) {
		errs = multierr.Append(errs, fmt.Errorf("invalid metrics-emitter %q, valid values are: [%s]", o.MetricsEmitter, strings.Join(validMetricsEmitters.SortedList(), ", ")))
	}
	if MetricsEmitterType(o.MetricsEmitter) == MetricsEmitterCloudWatch && o.MetricsNamespace == "" {
		errs = multierr.Append(errs, fmt.Errorf("missing field, metrics-namespace"))
	}
	if o.MetricsPort <= 0 || o.MetricsPort > 65535 {
		errs = multierr.Append(errs, serrors.Wrap(fmt.Errorf("metrics-port is out of range"), "metrics-port", o.MetricsPort))
	}
	return errs
}

func (o *Options) validateController() (errs error) {
	if o.Interval <= 0 {
		errs = multierr.Append(errs, serrors.Wrap(fmt.Errorf("interval must be positive"), "interval", o.Interval))
	}
	if o.Concurrency <= 0 {
		errs = multierr.Append(errs, serrors.Wrap(fmt.Errorf("concurrency must be positive"), "concurrency", o.Concurrency))
	}
	return errs
}

func (o *Options) validateLogLevel() error {
	if !validLogLevels.Has(o.LogLevel) {
		return fmt.Errorf("invalid log-level %q, valid values are: [%s]", o.LogLevel, strings.Join(validLogLevels.SortedList(), ", "))
	}
	return nil
}
