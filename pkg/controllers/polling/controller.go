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

package polling

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/awslabs/operatorpkg/serrors"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	v1 "github.com/ecsautoscaler/ecs-autoscaler/pkg/apis/v1"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/autoscaler"
)

type Reconciler interface {
	Reconcile(context.Context, *v1.Event) (autoscaler.Result, error)
}

// Controller runs a scaling cycle for every scheduled service once per interval. Cycles for different services
// run in parallel up to the configured concurrency; a failed cycle is logged and counted but never stops the loop.
// Controller also has an active flag that can be enabled or disabled. While inactive, ticks are ignored.
type Controller struct {
	clk         clock.WithTicker
	r           Reconciler
	events      []v1.Event
	interval    time.Duration
	concurrency int

	active   bool
	activeMu sync.RWMutex
	healthy  atomic.Bool

	trigger chan struct{}
	once    sync.Once
	cancels sync.Map

	OnHealthy   func(context.Context)
	OnUnhealthy func(context.Context)
}

func NewController(clk clock.WithTicker, r Reconciler, events []v1.Event, interval time.Duration, concurrency int) *Controller {
	return &Controller{
		clk:         clk,
		r:           r,
		events:      events,
		interval:    interval,
		concurrency: concurrency,
		trigger:     make(chan struct{}, 1),
	}
}

// Start is an idempotent call to activate the controller and kick-off an immediate cycle. The polling loop runs
// until ctx is done.
func (t *Controller) Start(ctx context.Context) {
	logr.FromContextOrDiscard(ctx).Info("starting polling controller", "interval", t.interval, "services", len(t.events))
	t.once.Do(func() {
		go t.run(ctx)
	})
	t.activeMu.Lock()
	if !t.active {
		t.setActive(true)
		t.activeMu.Unlock()
		t.Trigger()
	} else {
		t.activeMu.Unlock()
	}
}

// Trigger requests an immediate cycle. Triggers that arrive while one is already pending are coalesced.
func (t *Controller) Trigger() {
	TriggerCount.Inc()
	select {
	case t.trigger <- struct{}{}:
	default:
	}
}

// Stop deactivates the controller and cancels any cycles that are in flight
func (t *Controller) Stop(ctx context.Context) {
	logr.FromContextOrDiscard(ctx).Info("stopping polling controller")
	t.activeMu.Lock()
	t.setActive(false)
	t.activeMu.Unlock()
	t.cancels.Range(func(_ any, c any) bool {
		c.(context.CancelFunc)()
		return true
	})
}

// Active gets whether the controller is active right now
func (t *Controller) Active() bool {
	t.activeMu.RLock()
	defer t.activeMu.RUnlock()
	return t.active
}

// Healthy is true when the last cycle of every scheduled service succeeded
func (t *Controller) Healthy() bool {
	return t.healthy.Load()
}

func (t *Controller) setActive(active bool) {
	t.active = active
	if active {
		Active.Set(1)
	} else {
		Active.Set(0)
	}
}

func (t *Controller) run(ctx context.Context) {
	ticker := t.clk.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
		case <-t.trigger:
		}
		if !t.Active() {
			continue
		}
		if err := t.Tick(ctx); err != nil {
			logr.FromContextOrDiscard(ctx).Error(err, "failed scaling one or more services")
		}
	}
}

// Tick runs one cycle for every scheduled service and returns the combined errors of the cycles that failed
func (t *Controller) Tick(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	// Store the cancel function for the duration of the tick, so we can cancel on a Stop() call
	cancelID := uuid.New()
	t.cancels.Store(cancelID, cancel)
	defer t.cancels.Delete(cancelID)

	var mu sync.Mutex
	var errs error
	g := &errgroup.Group{}
	g.SetLimit(t.concurrency)
	for i := range t.events {
		event := &t.events[i]
		g.Go(func() error {
			if _, err := t.r.Reconcile(ctx, event); err != nil {
				ServiceFailures.WithLabelValues(event.Cluster, event.Service).Inc()
				mu.Lock()
				errs = multierr.Append(errs, serrors.Wrap(err, "cluster", event.Cluster, "service", event.Service))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	t.setHealthy(ctx, errs == nil)
	return errs
}

func (t *Controller) setHealthy(ctx context.Context, healthy bool) {
	if healthy {
		if t.OnHealthy != nil {
			t.OnHealthy(ctx)
		}
		Healthy.Set(1)
	} else {
		if t.OnUnhealthy != nil {
			t.OnUnhealthy(ctx)
		}
		Healthy.Set(0)
	}
	t.healthy.Store(healthy)
}
