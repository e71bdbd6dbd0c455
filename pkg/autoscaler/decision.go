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

package autoscaler

import (
	"fmt"

	"github.com/samber/lo"

	v1 "github.com/ecsautoscaler/ecs-autoscaler/pkg/apis/v1"
)

// DeadZone is how far the load may exceed the threshold before a scale-up is considered.
const DeadZone = 30

type DecisionKind string

const (
	NoChange  DecisionKind = "NoChange"
	ScaleUp   DecisionKind = "ScaleUp"
	ScaleDown DecisionKind = "ScaleDown"
)

// Decision is the outcome of Decide. Count is only meaningful for ScaleUp and ScaleDown, and is always within
// the policy's bounds.
type Decision struct {
	Kind  DecisionKind `json:"kind"`
	Count int64        `json:"count,omitempty"`
}

func (d Decision) String() string {
	if d.Kind == NoChange {
		return string(d.Kind)
	}
	return fmt.Sprintf("%s(%d)", d.Kind, d.Count)
}

// Decide computes the next desired count for a service from its current load. It is a pure function.
//
// Above the threshold, the desired count grows in proportion to the overshoot, less whatever is already pending.
// At or below it, the count shrinks in proportion to the shortfall, capped per cycle, regardless of pending
// tasks. The result is clamped to [minimum, maximum] and labeled by the direction of change relative to the
// current desired count, so a clamp that pulls an out of bounds service back in still goes through the cooldown
// when it shrinks the service.
func Decide(load, desired, pending int64, policy v1.PolicyConfig) Decision {
	if overshoot := load - policy.Threshold; overshoot >= 0 && overshoot < DeadZone {
		return Decision{Kind: NoChange}
	}
	if load > policy.Threshold {
		return decideScaleUp(load, desired, pending, policy)
	}
	return decideScaleDown(load, desired, policy)
}

func decideScaleUp(load, desired, pending int64, policy v1.PolicyConfig) Decision {
	up := (load - policy.Threshold) * desired / policy.Threshold

	var proposed int64
	switch {
	case pending == 0:
		proposed = desired + up
	case up > pending:
		proposed = desired + (up - pending)
	default:
		// the scale-up already in flight covers the deficit
		return Decision{Kind: NoChange}
	}
	count := lo.Clamp(proposed, policy.Minimum, policy.Maximum)
	if count < desired {
		return Decision{Kind: ScaleDown, Count: count}
	}
	// Applied even when count == desired, e.g. when pinned at the maximum
	return Decision{Kind: ScaleUp, Count: count}
}

func decideScaleDown(load, desired int64, policy v1.PolicyConfig) Decision {
	down := (policy.Threshold - load) * desired / policy.Threshold
	down = min(down, policy.MaxContainersToScaleDownPerCycle)

	count := lo.Clamp(desired-down, policy.Minimum, policy.Maximum)
	switch {
	case count == desired:
		return Decision{Kind: NoChange}
	case count > desired:
		return Decision{Kind: ScaleUp, Count: count}
	default:
		return Decision{Kind: ScaleDown, Count: count}
	}
}
