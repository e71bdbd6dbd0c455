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

package autoscaler_test

import (
	"fmt"
	"time"

	"github.com/aws/smithy-go"
	"github.com/prometheus/client_golang/prometheus/testutil"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	v1 "github.com/ecsautoscaler/ecs-autoscaler/pkg/apis/v1"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/autoscaler"
	autoscalingerrors "github.com/ecsautoscaler/ecs-autoscaler/pkg/errors"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/fake"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/metrics"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/providers/cooldown"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/test"
)

var _ = Describe("Reconcile", func() {
	var event *v1.Event
	var key v1.ServiceKey

	BeforeEach(func() {
		event = test.Event()
		key = event.ServiceKey()
	})

	seedCooldown := func(t time.Time) {
		env.S3API.SetObject(env.Options.S3BucketName, key.ObjectKey(), []byte(cooldown.FormatTimestamp(t)))
	}

	Context("Scale Up", func() {
		It("should scale up immediately and emit the new count", func() {
			env.SetLoad(150)
			env.ECSAPI.SetService(key.Cluster, key.Service, 10, 0)

			result, err := env.Autoscaler.Reconcile(ctx, event)
			Expect(err).ToNot(HaveOccurred())
			Expect(result).To(Equal(autoscaler.Result{
				Cluster:      key.Cluster,
				Service:      key.Service,
				Load:         150,
				DesiredCount: 10,
				Decision:     autoscaler.Decision{Kind: autoscaler.ScaleUp, Count: 15},
				Applied:      true,
			}))
			test.ExpectDesiredCount(env.ECSAPI, key, 15)
			Expect(env.Emitter.Emissions()).To(ConsistOf(fake.Emission{
				Name:  metrics.DesiredCount,
				Value: 15,
				Tags:  metrics.Tags{Service: key.Service, Cluster: key.Cluster, Direction: metrics.DirectionUp},
			}))
			Expect(env.S3API.GetObjectCalls()).To(Equal(0))
			Expect(env.S3API.PutObjectCalls()).To(Equal(0))
		})
		It("should bypass an active cooldown", func() {
			seedCooldown(env.Clock.Now())
			env.SetLoad(150)
			env.ECSAPI.SetService(key.Cluster, key.Service, 10, 0)

			_, err := env.Autoscaler.Reconcile(ctx, event)
			Expect(err).ToNot(HaveOccurred())
			test.ExpectDesiredCount(env.ECSAPI, key, 15)
		})
		It("should reconcile against pending tasks", func() {
			env.SetLoad(150)
			env.ECSAPI.SetService(key.Cluster, key.Service, 10, 2)

			_, err := env.Autoscaler.Reconcile(ctx, event)
			Expect(err).ToNot(HaveOccurred())
			test.ExpectDesiredCount(env.ECSAPI, key, 13)
		})
		It("should not update when pending tasks cover the deficit", func() {
			env.SetLoad(150)
			env.ECSAPI.SetService(key.Cluster, key.Service, 10, 5)

			result, err := env.Autoscaler.Reconcile(ctx, event)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Decision.Kind).To(Equal(autoscaler.NoChange))
			Expect(env.ECSAPI.UpdateServiceBehavior.Calls()).To(Equal(0))
		})
		It("should update even when pinned at the maximum", func() {
			event = test.Event(v1.Event{Cluster: key.Cluster, Service: key.Service, Maximum: v1.NewIntOrString(12)})
			env.SetLoad(200)
			env.ECSAPI.SetService(key.Cluster, key.Service, 12, 0)

			result, err := env.Autoscaler.Reconcile(ctx, event)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Decision).To(Equal(autoscaler.Decision{Kind: autoscaler.ScaleUp, Count: 12}))
			Expect(result.Applied).To(BeTrue())
			Expect(env.ECSAPI.UpdateServiceBehavior.Calls()).To(Equal(1))
			test.ExpectDesiredCount(env.ECSAPI, key, 12)
		})
	})
	Context("No Change", func() {
		It("should not touch the service inside the dead zone", func() {
			env.SetLoad(110)
			env.ECSAPI.SetService(key.Cluster, key.Service, 10, 0)

			result, err := env.Autoscaler.Reconcile(ctx, event)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Decision.Kind).To(Equal(autoscaler.NoChange))
			Expect(result.Applied).To(BeFalse())
			Expect(env.ECSAPI.UpdateServiceBehavior.Calls()).To(Equal(0))
			Expect(env.Emitter.Emissions()).To(BeEmpty())
			Expect(env.S3API.GetObjectCalls()).To(Equal(0))
		})
	})
	Context("Scale Down", func() {
		BeforeEach(func() {
			env.SetLoad(80)
			env.ECSAPI.SetService(key.Cluster, key.Service, 10, 0)
		})

		It("should only start the cooldown when there is no record", func() {
			result, err := env.Autoscaler.Reconcile(ctx, event)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Decision).To(Equal(autoscaler.Decision{Kind: autoscaler.ScaleDown, Count: 8}))
			Expect(result.Cooldown).To(Equal(autoscaler.NoRecord))
			Expect(result.Applied).To(BeFalse())

			Expect(env.ECSAPI.UpdateServiceBehavior.Calls()).To(Equal(0))
			Expect(env.Emitter.Emissions()).To(BeEmpty())
			Expect(test.ExpectCooldownRecord(env.S3API, env.Options.S3BucketName, key)).To(BeTemporally("==", env.Clock.Now()))
		})
		It("should not scale down within the cooldown", func() {
			recorded := env.Clock.Now().Add(-299 * time.Second)
			seedCooldown(recorded)

			result, err := env.Autoscaler.Reconcile(ctx, event)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Cooldown).To(Equal(autoscaler.WithinCooldown))
			Expect(env.ECSAPI.UpdateServiceBehavior.Calls()).To(Equal(0))
			Expect(env.S3API.PutObjectCalls()).To(Equal(0))
			Expect(test.ExpectCooldownRecord(env.S3API, env.Options.S3BucketName, key)).To(BeTemporally("==", recorded))
		})
		It("should scale down and restart the cooldown once it has expired", func() {
			seedCooldown(env.Clock.Now().Add(-300 * time.Second))

			result, err := env.Autoscaler.Reconcile(ctx, event)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Cooldown).To(Equal(autoscaler.CooldownExpired))
			Expect(result.Applied).To(BeTrue())
			test.ExpectDesiredCount(env.ECSAPI, key, 8)
			Expect(env.Emitter.Emissions()).To(ConsistOf(fake.Emission{
				Name:  metrics.DesiredCount,
				Value: 8,
				Tags:  metrics.Tags{Service: key.Service, Cluster: key.Cluster, Direction: metrics.DirectionDown},
			}))
			Expect(test.ExpectCooldownRecord(env.S3API, env.Options.S3BucketName, key)).To(BeTemporally("==", env.Clock.Now()))
		})
		It("should apply at most one scale down across two cycles starting without a record", func() {
			for range 2 {
				_, err := env.Autoscaler.Reconcile(ctx, event)
				Expect(err).ToNot(HaveOccurred())
				env.Clock.Step(time.Minute)
			}
			Expect(env.ECSAPI.UpdateServiceBehavior.Calls()).To(Equal(0))
			test.ExpectDesiredCount(env.ECSAPI, key, 10)
		})
		It("should scale down one cap per cooldown", func() {
			env.SetLoad(0)
			_, err := env.Autoscaler.Reconcile(ctx, event)
			Expect(err).ToNot(HaveOccurred())
			for _, expected := range []int32{8, 6} {
				env.Clock.Step(5 * time.Minute)
				_, err = env.Autoscaler.Reconcile(ctx, event)
				Expect(err).ToNot(HaveOccurred())
				test.ExpectDesiredCount(env.ECSAPI, key, expected)
			}
		})
		It("should not restart the cooldown when the update fails", func() {
			recorded := env.Clock.Now().Add(-time.Hour)
			seedCooldown(recorded)
			env.ECSAPI.UpdateServiceBehavior.Error.Set(fmt.Errorf("service is draining"))

			_, err := env.Autoscaler.Reconcile(ctx, event)
			Expect(autoscalingerrors.IsDependencyError(err)).To(BeTrue())
			Expect(test.ExpectCooldownRecord(env.S3API, env.Options.S3BucketName, key)).To(BeTemporally("==", recorded))
		})
		It("should fail when the cooldown record cannot be read", func() {
			env.S3API.GetObjectError.Set(&smithy.GenericAPIError{Code: "AccessDenied"})

			_, err := env.Autoscaler.Reconcile(ctx, event)
			Expect(autoscalingerrors.IsDependencyError(err)).To(BeTrue())
			Expect(autoscalingerrors.IsAccessDenied(err)).To(BeTrue())
			Expect(env.ECSAPI.UpdateServiceBehavior.Calls()).To(Equal(0))
		})
	})
	Context("Failures", func() {
		It("should abort before any call on configuration errors", func() {
			event.Threshold = v1.IntOrString{Raw: "lots"}

			_, err := env.Autoscaler.Reconcile(ctx, event)
			Expect(autoscalingerrors.IsConfigurationError(err)).To(BeTrue())
			Expect(env.CloudWatchAPI.GetMetricStatisticsBehavior.Calls()).To(Equal(0))
			Expect(env.ECSAPI.DescribeServicesBehavior.Calls()).To(Equal(0))
		})
		It("should report a minimum above the maximum as a configuration error", func() {
			event.Minimum = v1.NewIntOrString(5)
			event.Maximum = v1.NewIntOrString(4)

			_, err := env.Autoscaler.Reconcile(ctx, event)
			Expect(autoscalingerrors.IsConfigurationError(err)).To(BeTrue())
			Expect(env.CloudWatchAPI.GetMetricStatisticsBehavior.Calls()).To(Equal(0))
		})
		It("should fail without scaling when there are fewer than two samples", func() {
			before := testutil.ToFloat64(autoscaler.CyclesTotal.WithLabelValues("insufficient_data"))
			env.CloudWatchAPI.GetMetricStatisticsBehavior.Output.Set(fake.Datapoints(map[time.Time]float64{env.Clock.Now(): 400}))
			env.ECSAPI.SetService(key.Cluster, key.Service, 10, 0)

			_, err := env.Autoscaler.Reconcile(ctx, event)
			Expect(autoscalingerrors.IsInsufficientData(err)).To(BeTrue())
			Expect(env.ECSAPI.DescribeServicesBehavior.Calls()).To(Equal(0))
			Expect(env.ECSAPI.UpdateServiceBehavior.Calls()).To(Equal(0))
			Expect(testutil.ToFloat64(autoscaler.CyclesTotal.WithLabelValues("insufficient_data"))).To(Equal(before + 1))
		})
		It("should fail when the metric source fails", func() {
			env.CloudWatchAPI.GetMetricStatisticsBehavior.Error.Set(&smithy.GenericAPIError{Code: "Throttling"})

			_, err := env.Autoscaler.Reconcile(ctx, event)
			Expect(autoscalingerrors.IsDependencyError(err)).To(BeTrue())
			Expect(autoscalingerrors.IsThrottling(err)).To(BeTrue())
			Expect(err).To(MatchError(HavePrefix(autoscaler.MetricSourceDependency)))
			Expect(env.ECSAPI.DescribeServicesBehavior.Calls()).To(Equal(0))
		})
		It("should fail when the service cannot be described", func() {
			env.SetLoad(150)

			_, err := env.Autoscaler.Reconcile(ctx, event)
			Expect(autoscalingerrors.IsDependencyError(err)).To(BeTrue())
			Expect(err).To(MatchError(HavePrefix(autoscaler.OrchestratorDependency)))
			Expect(env.ECSAPI.UpdateServiceBehavior.Calls()).To(Equal(0))
		})
		It("should fail when the update fails", func() {
			env.SetLoad(150)
			env.ECSAPI.SetService(key.Cluster, key.Service, 10, 0)
			env.ECSAPI.UpdateServiceBehavior.Error.Set(fmt.Errorf("service is draining"))

			result, err := env.Autoscaler.Reconcile(ctx, event)
			Expect(autoscalingerrors.IsDependencyError(err)).To(BeTrue())
			Expect(result.Applied).To(BeFalse())
			test.ExpectDesiredCount(env.ECSAPI, key, 10)
		})
	})
})
