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
	"time"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"

	v1 "github.com/ecsautoscaler/ecs-autoscaler/pkg/apis/v1"
	autoscalingerrors "github.com/ecsautoscaler/ecs-autoscaler/pkg/errors"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/providers/cooldown"
)

const CooldownStoreDependency = "cooldown-store"

type CooldownState string

const (
	// NoRecord means no scale-down was ever attempted for the service. The cooldown starts now.
	NoRecord CooldownState = "NoRecord"
	// WithinCooldown means the last scale-down is more recent than the configured delay.
	WithinCooldown CooldownState = "WithinCooldown"
	// CooldownExpired means a scale-down may be applied.
	CooldownExpired CooldownState = "CooldownExpired"
)

// Governor gates scale-downs behind a persisted per service cooldown.
type Governor struct {
	clk   clock.PassiveClock
	store cooldown.Store
}

func NewGovernor(clk clock.PassiveClock, store cooldown.Store) *Governor {
	return &Governor{clk: clk, store: store}
}

// State derives the cooldown state of a service from its record. Elapsed time is measured in whole seconds.
func (g *Governor) State(ctx context.Context, key v1.ServiceKey, delay time.Duration) (CooldownState, error) {
	lookup, err := g.store.Get(ctx, key)
	if err != nil {
		return "", autoscalingerrors.NewDependencyError(CooldownStoreDependency, err)
	}
	if !lookup.Found {
		return NoRecord, nil
	}
	elapsed := g.clk.Now().Unix() - lookup.LastScaleDown.Unix()
	logr.FromContextOrDiscard(ctx).V(1).Info("evaluated cooldown", "elapsed-seconds", elapsed, "delay-seconds", int64(delay.Seconds()))
	if elapsed < int64(delay.Seconds()) {
		return WithinCooldown, nil
	}
	return CooldownExpired, nil
}

// Gate runs apply only when the cooldown has expired, and restarts the cooldown once it succeeds. When there is
// no record yet, one is written and apply is skipped. Within the cooldown the record is left untouched.
func (g *Governor) Gate(ctx context.Context, key v1.ServiceKey, delay time.Duration, apply func(context.Context) error) (CooldownState, error) {
	state, err := g.State(ctx, key, delay)
	if err != nil {
		return "", err
	}
	switch state {
	case NoRecord:
		if err := g.store.Put(ctx, key, g.clk.Now()); err != nil {
			return state, autoscalingerrors.NewDependencyError(CooldownStoreDependency, err)
		}
		logr.FromContextOrDiscard(ctx).Info("started scale down cooldown")
	case WithinCooldown:
		logr.FromContextOrDiscard(ctx).Info("skipping scale down, last scale down is within the cooldown", "delay", delay)
	case CooldownExpired:
		if err := apply(ctx); err != nil {
			return state, fmt.Errorf("applying scale down, %w", err)
		}
		if err := g.store.Put(ctx, key, g.clk.Now()); err != nil {
			return state, autoscalingerrors.NewDependencyError(CooldownStoreDependency, err)
		}
	}
	return state, nil
}
