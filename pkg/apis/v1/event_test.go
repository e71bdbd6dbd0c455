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

package v1_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	v1 "github.com/ecsautoscaler/ecs-autoscaler/pkg/apis/v1"
	autoscalingerrors "github.com/ecsautoscaler/ecs-autoscaler/pkg/errors"
)

var _ = Describe("Event", func() {
	var event *v1.Event
	BeforeEach(func() {
		event = &v1.Event{
			Cluster:                 "production",
			Service:                 "web",
			LoadBalancer:            "app/web/50dc6c495c0c9188",
			TargetGroup:             "targetgroup/web/73e2d6bc24d8a067",
			Minimum:                 v1.NewIntOrString(2),
			Maximum:                 v1.NewIntOrString(20),
			Threshold:               v1.NewIntOrString(100),
			ScaleDownDelayInSeconds: v1.NewIntOrString(300),
		}
	})

	Context("Decoding", func() {
		It("should accept numeric fields as strings or numbers", func() {
			Expect(json.Unmarshal([]byte(`{
				"cluster": "production",
				"service": "web",
				"load_balancer": "app/web/50dc6c495c0c9188",
				"target_group": "targetgroup/web/73e2d6bc24d8a067",
				"minimum": "2",
				"maximum": 20,
				"threshold": "100",
				"scale_down_delay_in_seconds": 300
			}`), event)).To(Succeed())
			policy, err := event.Policy(3)
			Expect(err).ToNot(HaveOccurred())
			Expect(policy).To(Equal(v1.PolicyConfig{
				Minimum:                          2,
				Maximum:                          20,
				Threshold:                        100,
				ScaleDownDelaySeconds:            300,
				MaxContainersToScaleDownPerCycle: 3,
			}))
		})
		It("should accept integral floating point values", func() {
			Expect(json.Unmarshal([]byte(`{"minimum": 2.0, "maximum": "20.0"}`), event)).To(Succeed())
			policy, err := event.Policy(1)
			Expect(err).ToNot(HaveOccurred())
			Expect(policy.Minimum).To(BeNumerically("==", 2))
			Expect(policy.Maximum).To(BeNumerically("==", 20))
		})
		It("should reject values that are neither strings nor numbers", func() {
			Expect(json.Unmarshal([]byte(`{"minimum": [1]}`), event)).ToNot(Succeed())
		})
		It("should treat null as a missing value", func() {
			Expect(json.Unmarshal([]byte(`{"threshold": null}`), event)).To(Succeed())
			_, err := event.Policy(1)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("missing field, threshold"))
		})
		It("should marshal parsed values as numbers", func() {
			data, err := json.Marshal(event)
			Expect(err).ToNot(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`"minimum":2`))
			Expect(string(data)).ToNot(ContainSubstring("max_containers_to_scale_down"))
		})
	})

	Context("Policy", func() {
		It("should use the deployment cap when the event does not carry one", func() {
			policy, err := event.Policy(4)
			Expect(err).ToNot(HaveOccurred())
			Expect(policy.MaxContainersToScaleDownPerCycle).To(BeNumerically("==", 4))
		})
		It("should prefer the event's cap over the deployment cap", func() {
			event.MaxContainersToScaleDown = &v1.IntOrString{Raw: "1"}
			policy, err := event.Policy(4)
			Expect(err).ToNot(HaveOccurred())
			Expect(policy.MaxContainersToScaleDownPerCycle).To(BeNumerically("==", 1))
		})
		DescribeTable("should reject an event cap that is not positive",
			func(raw string) {
				event.MaxContainersToScaleDown = &v1.IntOrString{Raw: raw}
				_, err := event.Policy(4)
				Expect(autoscalingerrors.IsConfigurationError(err)).To(BeTrue())
				Expect(err.Error()).To(ContainSubstring("max_containers_to_scale_down must be positive"))
			},
			Entry("zero", "0"),
			Entry("negative", "-2"),
		)
		It("should convert the scale down delay to a duration", func() {
			policy, err := event.Policy(4)
			Expect(err).ToNot(HaveOccurred())
			Expect(policy.ScaleDownDelay()).To(Equal(5 * time.Minute))
		})
		It("should fail with a configuration error for missing fields", func() {
			event.Cluster = ""
			event.TargetGroup = ""
			_, err := event.Policy(1)
			Expect(autoscalingerrors.IsConfigurationError(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("missing field, cluster"))
			Expect(err.Error()).To(ContainSubstring("missing field, target_group"))
		})
		It("should fail with a configuration error for malformed numbers", func() {
			event.Threshold = v1.IntOrString{Raw: "one hundred"}
			_, err := event.Policy(1)
			Expect(autoscalingerrors.IsConfigurationError(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("parsing threshold"))
		})
		It("should fail with a configuration error for fractional numbers", func() {
			event.Minimum = v1.IntOrString{Raw: "1.5"}
			_, err := event.Policy(1)
			Expect(autoscalingerrors.IsConfigurationError(err)).To(BeTrue())
		})
		It("should fail when minimum is greater than maximum", func() {
			event.Minimum = v1.NewIntOrString(21)
			_, err := event.Policy(1)
			Expect(autoscalingerrors.IsConfigurationError(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("minimum must not be greater than maximum"))
		})
		It("should fail when the threshold is not positive", func() {
			event.Threshold = v1.NewIntOrString(0)
			_, err := event.Policy(1)
			Expect(autoscalingerrors.IsConfigurationError(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("threshold must be positive"))
		})
		It("should fail when the minimum or delay are negative", func() {
			event.Minimum = v1.NewIntOrString(-1)
			event.ScaleDownDelayInSeconds = v1.NewIntOrString(-1)
			_, err := event.Policy(1)
			Expect(autoscalingerrors.IsConfigurationError(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("minimum cannot be negative"))
			Expect(err.Error()).To(ContainSubstring("scale_down_delay_in_seconds cannot be negative"))
		})
		It("should fail when the maximum exceeds what ECS accepts", func() {
			event.Maximum = v1.NewIntOrString(1 << 40)
			_, err := event.Policy(1)
			Expect(autoscalingerrors.IsConfigurationError(err)).To(BeTrue())
		})
	})

	Context("ServiceKey", func() {
		It("should name the cooldown record after the service", func() {
			Expect(event.ServiceKey().ObjectKey()).To(Equal("web-scale-down-delay.txt"))
		})
		It("should scope the cooldown record by cluster", func() {
			Expect(event.ServiceKey().ClusterScopedObjectKey()).To(Equal("production/web-scale-down-delay.txt"))
		})
		It("should render as cluster/service", func() {
			Expect(event.ServiceKey().String()).To(Equal("production/web"))
		})
	})
})
