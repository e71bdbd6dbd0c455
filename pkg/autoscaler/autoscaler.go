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
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"k8s.io/utils/clock"

	v1 "github.com/ecsautoscaler/ecs-autoscaler/pkg/apis/v1"
	autoscalingerrors "github.com/ecsautoscaler/ecs-autoscaler/pkg/errors"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/metrics"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/providers/cooldown"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/providers/requestcount"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/providers/service"
)

const (
	MetricSourceDependency = "metric-source"
	OrchestratorDependency = "orchestrator"
)

// Result summarizes one cycle for a single service.
type Result struct {
	Cluster      string        `json:"cluster"`
	Service      string        `json:"service"`
	Load         int64         `json:"load"`
	DesiredCount int64         `json:"desired_count"`
	PendingCount int64         `json:"pending_count"`
	Decision     Decision      `json:"decision"`
	Cooldown     CooldownState `json:"cooldown,omitempty"`
	// Applied is true when the service's desired count was updated.
	Applied bool `json:"applied"`
}

// Autoscaler runs the scaling cycle for one service at a time. It holds no per service state; everything is
// read fresh from its collaborators on every cycle.
type Autoscaler struct {
	clk                  clock.PassiveClock
	requestCountProvider requestcount.Provider
	serviceProvider      service.Provider
	governor             *Governor
	emitter              metrics.Emitter

	maxContainersToScaleDown int64
}

func New(clk clock.PassiveClock, requestCountProvider requestcount.Provider, serviceProvider service.Provider,
	store cooldown.Store, emitter metrics.Emitter, maxContainersToScaleDown int64) *Autoscaler {
	return &Autoscaler{
		clk:                      clk,
		requestCountProvider:     requestCountProvider,
		serviceProvider:          serviceProvider,
		governor:                 NewGovernor(clk, store),
		emitter:                  emitter,
		maxContainersToScaleDown: maxContainersToScaleDown,
	}
}

// Reconcile executes one scaling cycle for the service named by the event. Collaborator failures abort the
// cycle and are returned as DependencyErrors. Nothing is retried.
func (a *Autoscaler) Reconcile(ctx context.Context, event *v1.Event) (result Result, err error) {
	start := a.clk.Now()
	defer func() {
		CycleDuration.Observe(a.clk.Since(start).Seconds())
		CyclesTotal.WithLabelValues(autoscalingerrors.Reason(err)).Inc()
	}()
	ctx = logr.NewContext(ctx, logr.FromContextOrDiscard(ctx).WithValues("cluster", event.Cluster, "service", event.Service, "cycle-id", uuid.NewString()))
	result = Result{Cluster: event.Cluster, Service: event.Service}

	// 1. Resolve the policy before any external call
	policy, err := event.Policy(a.maxContainersToScaleDown)
	if err != nil {
		return result, err
	}
	key := event.ServiceKey()

	// 2. Select the current load from the trailing window
	samples, err := a.requestCountProvider.GetSamples(ctx, event.Target())
	if err != nil {
		return result, autoscalingerrors.NewDependencyError(MetricSourceDependency, err)
	}
	if result.Load, err = SelectLoad(samples); err != nil {
		return result, err
	}

	// 3. Read the service's replica state
	state, err := a.serviceProvider.Describe(ctx, key)
	if err != nil {
		return result, autoscalingerrors.NewDependencyError(OrchestratorDependency, err)
	}
	result.DesiredCount, result.PendingCount = state.DesiredCount, state.PendingCount

	// 4. Decide and apply
	result.Decision = Decide(result.Load, state.DesiredCount, state.PendingCount, policy)
	log := logr.FromContextOrDiscard(ctx).WithValues("load", result.Load, "threshold", policy.Threshold, "desired-count", state.DesiredCount, "pending-count", state.PendingCount)
	switch result.Decision.Kind {
	case NoChange:
		log.Info("no scaling required")
	case ScaleUp:
		log.Info("scaling up", "new-desired-count", result.Decision.Count)
		if err = a.apply(ctx, key, metrics.DirectionUp, result.Decision.Count); err != nil {
			return result, err
		}
		result.Applied = true
	case ScaleDown:
		log.Info("scaling down", "new-desired-count", result.Decision.Count)
		result.Cooldown, err = a.governor.Gate(ctx, key, policy.ScaleDownDelay(), func(ctx context.Context) error {
			return a.apply(ctx, key, metrics.DirectionDown, result.Decision.Count)
		})
		if err != nil {
			return result, err
		}
		result.Applied = result.Cooldown == CooldownExpired
	default:
		return result, fmt.Errorf("unknown decision %q", result.Decision.Kind)
	}
	return result, nil
}

func (a *Autoscaler) apply(ctx context.Context, key v1.ServiceKey, direction string, count int64) error {
	a.emitter.Emit(ctx, metrics.DesiredCount, float64(count), metrics.Tags{
		Service:   key.Service,
		Cluster:   key.Cluster,
		Direction: direction,
	})
	if err := a.serviceProvider.Update(ctx, key, count); err != nil {
		return autoscalingerrors.NewDependencyError(OrchestratorDependency, err)
	}
	return nil
}
