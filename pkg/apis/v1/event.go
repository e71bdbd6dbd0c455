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

package v1

import (
	"fmt"
	"math"
	"time"

	"github.com/awslabs/operatorpkg/serrors"
	"go.uber.org/multierr"

	autoscalingerrors "github.com/ecsautoscaler/ecs-autoscaler/pkg/errors"
)

// Event is a single invocation of the autoscaler for one ECS service. It is the payload delivered by the
// scheduled trigger and the unit that the controller's schedule file is made of.
type Event struct {
	Cluster      string `json:"cluster"`
	Service      string `json:"service"`
	LoadBalancer string `json:"load_balancer"`
	TargetGroup  string `json:"target_group"`

	Minimum                 IntOrString `json:"minimum"`
	Maximum                 IntOrString `json:"maximum"`
	Threshold               IntOrString `json:"threshold"`
	ScaleDownDelayInSeconds IntOrString `json:"scale_down_delay_in_seconds"`
	// MaxContainersToScaleDown overrides the deployment wide cap for this service only.
	MaxContainersToScaleDown *IntOrString `json:"max_containers_to_scale_down,omitempty"`
}

// PolicyConfig is the validated, immutable policy for a single cycle.
type PolicyConfig struct {
	Minimum                          int64
	Maximum                          int64
	Threshold                        int64
	ScaleDownDelaySeconds            int64
	MaxContainersToScaleDownPerCycle int64
}

func (p PolicyConfig) ScaleDownDelay() time.Duration {
	return time.Duration(p.ScaleDownDelaySeconds) * time.Second
}

func (e *Event) ServiceKey() ServiceKey {
	return ServiceKey{Cluster: e.Cluster, Service: e.Service}
}

func (e *Event) Target() Target {
	return Target{LoadBalancer: e.LoadBalancer, TargetGroup: e.TargetGroup}
}

// Policy validates the event and resolves it into a PolicyConfig. maxContainersToScaleDown is the deployment
// level cap, used unless the event carries its own. Any problem is returned as a ConfigurationError.
func (e *Event) Policy(maxContainersToScaleDown int64) (PolicyConfig, error) {
	var errs error
	errs = multierr.Append(errs, e.validateRequiredFields())

	policy := PolicyConfig{MaxContainersToScaleDownPerCycle: maxContainersToScaleDown}
	errs = multierr.Append(errs, parseInto(&policy.Minimum, "minimum", e.Minimum))
	errs = multierr.Append(errs, parseInto(&policy.Maximum, "maximum", e.Maximum))
	errs = multierr.Append(errs, parseInto(&policy.Threshold, "threshold", e.Threshold))
	errs = multierr.Append(errs, parseInto(&policy.ScaleDownDelaySeconds, "scale_down_delay_in_seconds", e.ScaleDownDelayInSeconds))
	if e.MaxContainersToScaleDown != nil && !e.MaxContainersToScaleDown.IsZero() {
		if err := parseInto(&policy.MaxContainersToScaleDownPerCycle, "max_containers_to_scale_down", *e.MaxContainersToScaleDown); err != nil {
			errs = multierr.Append(errs, err)
		} else if policy.MaxContainersToScaleDownPerCycle <= 0 {
			errs = multierr.Append(errs, serrors.Wrap(fmt.Errorf("max_containers_to_scale_down must be positive"), "max-containers-to-scale-down", policy.MaxContainersToScaleDownPerCycle))
		}
	}
	if errs != nil {
		return PolicyConfig{}, autoscalingerrors.NewConfigurationError(errs)
	}
	if err := policy.Validate(); err != nil {
		return PolicyConfig{}, autoscalingerrors.NewConfigurationError(err)
	}
	return policy, nil
}

func (e *Event) validateRequiredFields() (errs error) {
	for _, field := range []struct{ name, value string }{
		{"cluster", e.Cluster},
		{"service", e.Service},
		{"load_balancer", e.LoadBalancer},
		{"target_group", e.TargetGroup},
	} {
		if field.value == "" {
			errs = multierr.Append(errs, fmt.Errorf("missing field, %s", field.name))
		}
	}
	return errs
}

func parseInto(dst *int64, field string, value IntOrString) error {
	if value.IsZero() {
		return fmt.Errorf("missing field, %s", field)
	}
	v, err := value.Int64()
	if err != nil {
		return serrors.Wrap(fmt.Errorf("parsing %s, %w", field, err), "field", field)
	}
	*dst = v
	return nil
}

// Validate checks the relationships between policy fields. A minimum above the maximum is a policy violation
// and is reported like any other configuration problem.
func (p PolicyConfig) Validate() error {
	return multierr.Combine(
		p.validateBounds(),
		p.validateThreshold(),
		p.validateScaleDown(),
	)
}

func (p PolicyConfig) validateBounds() error {
	if p.Minimum < 0 {
		return serrors.Wrap(fmt.Errorf("minimum cannot be negative"), "minimum", p.Minimum)
	}
	if p.Maximum > math.MaxInt32 {
		return serrors.Wrap(fmt.Errorf("maximum exceeds the largest ECS desired count"), "maximum", p.Maximum)
	}
	if p.Minimum > p.Maximum {
		return serrors.Wrap(fmt.Errorf("minimum must not be greater than maximum"), "minimum", p.Minimum, "maximum", p.Maximum)
	}
	return nil
}

func (p PolicyConfig) validateThreshold() error {
	if p.Threshold <= 0 {
		return serrors.Wrap(fmt.Errorf("threshold must be positive"), "threshold", p.Threshold)
	}
	return nil
}

func (p PolicyConfig) validateScaleDown() (errs error) {
	if p.ScaleDownDelaySeconds < 0 {
		errs = multierr.Append(errs, serrors.Wrap(fmt.Errorf("scale_down_delay_in_seconds cannot be negative"), "scale-down-delay-in-seconds", p.ScaleDownDelaySeconds))
	}
	if p.MaxContainersToScaleDownPerCycle < 0 {
		errs = multierr.Append(errs, serrors.Wrap(fmt.Errorf("max_containers_to_scale_down cannot be negative"), "max-containers-to-scale-down", p.MaxContainersToScaleDownPerCycle))
	}
	return errs
}
