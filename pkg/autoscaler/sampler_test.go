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
	"math/rand"
	"time"

	"github.com/samber/lo"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	v1 "github.com/ecsautoscaler/ecs-autoscaler/pkg/apis/v1"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/autoscaler"
	autoscalingerrors "github.com/ecsautoscaler/ecs-autoscaler/pkg/errors"
)

var _ = Describe("SelectLoad", func() {
	now := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
	window := func(sums ...float64) []v1.MetricSample {
		return lo.Map(sums, func(sum float64, i int) v1.MetricSample {
			return v1.MetricSample{Timestamp: now.Add(-time.Duration(len(sums)-i) * time.Minute), Sum: sum}
		})
	}

	It("should return the second most recent sample", func() {
		load, err := autoscaler.SelectLoad(window(10, 20, 30, 40, 5))
		Expect(err).ToNot(HaveOccurred())
		Expect(load).To(BeNumerically("==", 40))
	})
	It("should return the older sample when there are exactly two", func() {
		load, err := autoscaler.SelectLoad(window(70, 3))
		Expect(err).ToNot(HaveOccurred())
		Expect(load).To(BeNumerically("==", 70))
	})
	It("should truncate the sum", func() {
		load, err := autoscaler.SelectLoad(window(0, 149.9, 1))
		Expect(err).ToNot(HaveOccurred())
		Expect(load).To(BeNumerically("==", 149))
	})
	It("should not depend on input order", func() {
		samples := window(11, 22, 33, 44, 55, 66)
		r := rand.New(rand.NewSource(GinkgoRandomSeed()))
		for range 20 {
			shuffled := append([]v1.MetricSample{}, samples...)
			r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
			load, err := autoscaler.SelectLoad(shuffled)
			Expect(err).ToNot(HaveOccurred())
			Expect(load).To(BeNumerically("==", 55))
		}
	})
	It("should not modify the input", func() {
		samples := []v1.MetricSample{
			{Timestamp: now.Add(-3 * time.Minute), Sum: 1},
			{Timestamp: now.Add(-1 * time.Minute), Sum: 3},
			{Timestamp: now.Add(-2 * time.Minute), Sum: 2},
		}
		original := append([]v1.MetricSample{}, samples...)
		_, err := autoscaler.SelectLoad(samples)
		Expect(err).ToNot(HaveOccurred())
		Expect(samples).To(Equal(original))
	})
	DescribeTable("should fail with fewer than two samples",
		func(samples []v1.MetricSample) {
			_, err := autoscaler.SelectLoad(samples)
			Expect(autoscalingerrors.IsInsufficientData(err)).To(BeTrue())
		},
		Entry("nil", nil),
		Entry("empty", []v1.MetricSample{}),
		Entry("one", []v1.MetricSample{{Timestamp: now, Sum: 100}}),
	)
})
