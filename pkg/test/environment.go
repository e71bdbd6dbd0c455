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
	"context"
	"time"

	clock "k8s.io/utils/clock/testing"

	"github.com/ecsautoscaler/ecs-autoscaler/pkg/autoscaler"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/fake"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/operator"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/operator/options"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/providers/cooldown"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/providers/requestcount"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/providers/service"
)

type Environment struct {
	// Mock
	Clock   *clock.FakeClock
	Emitter *fake.Emitter

	// API
	CloudWatchAPI *fake.CloudWatchAPI
	ECSAPI        *fake.ECSAPI
	S3API         *fake.S3API

	// Providers
	RequestCountProvider *requestcount.DefaultProvider
	ServiceProvider      *service.DefaultProvider
	CooldownStore        cooldown.Store

	Options    *options.Options
	Autoscaler *autoscaler.Autoscaler
}

// NewEnvironment wires an autoscaler over fake AWS APIs and a fake clock. Metrics go to a recording emitter.
func NewEnvironment(ctx context.Context, opts *options.Options) *Environment {
	// Mock
	clk := clock.NewFakeClock(time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC))
	emitter := fake.NewEmitter()

	// API
	cloudwatchapi := fake.NewCloudWatchAPI()
	ecsapi := fake.NewECSAPI()
	s3api := fake.NewS3API()

	// Providers
	requestCountProvider := requestcount.NewDefaultProvider(clk, cloudwatchapi)
	serviceProvider := service.NewDefaultProvider(ecsapi)
	cooldownStore := operator.NewCooldownStore(opts, s3api)

	return &Environment{
		Clock:   clk,
		Emitter: emitter,

		CloudWatchAPI: cloudwatchapi,
		ECSAPI:        ecsapi,
		S3API:         s3api,

		RequestCountProvider: requestCountProvider,
		ServiceProvider:      serviceProvider,
		CooldownStore:        cooldownStore,

		Options:    opts,
		Autoscaler: autoscaler.New(clk, requestCountProvider, serviceProvider, cooldownStore, emitter, opts.MaxContainersToScaleDown),
	}
}

func (env *Environment) Reset() {
	env.CloudWatchAPI.Reset()
	env.ECSAPI.Reset()
	env.S3API.Reset()
	env.Emitter.Reset()
	if _, ok := env.CooldownStore.(*cooldown.MemoryStore); ok {
		env.CooldownStore = cooldown.NewMemoryStore()
		env.Autoscaler = autoscaler.New(env.Clock, env.RequestCountProvider, env.ServiceProvider, env.CooldownStore, env.Emitter, env.Options.MaxContainersToScaleDown)
	}
}

// SetLoad publishes a request count window in which the second most recent bucket holds load. The most recent
// bucket holds a partial count, as it would while still aggregating.
func (env *Environment) SetLoad(load float64) {
	now := env.Clock.Now()
	env.CloudWatchAPI.GetMetricStatisticsBehavior.Output.Set(fake.Datapoints(map[time.Time]float64{
		now.Add(-5 * time.Minute): load * 2,
		now.Add(-4 * time.Minute): load * 3,
		now.Add(-3 * time.Minute): load / 2,
		now.Add(-2 * time.Minute): load,
		now.Add(-1 * time.Minute): load / 10,
	}))
}
