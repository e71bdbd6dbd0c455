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
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive,stylecheck
	. "github.com/onsi/gomega"    //nolint:revive,stylecheck

	v1 "github.com/ecsautoscaler/ecs-autoscaler/pkg/apis/v1"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/fake"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/providers/cooldown"
)

func ExpectDesiredCount(ecsapi *fake.ECSAPI, key v1.ServiceKey, expected int32) {
	GinkgoHelper()
	count, ok := ecsapi.DesiredCount(key.Cluster, key.Service)
	Expect(ok).To(BeTrue(), "service %s does not exist", key)
	Expect(count).To(Equal(expected))
}

// ExpectCooldownRecord returns the time stored in the service's cooldown object
func ExpectCooldownRecord(s3api *fake.S3API, bucket string, key v1.ServiceKey) time.Time {
	GinkgoHelper()
	body, ok := s3api.Object(bucket, key.ObjectKey())
	Expect(ok).To(BeTrue(), "no cooldown record for %s", key)
	t, err := cooldown.ParseTimestamp(string(body))
	Expect(err).ToNot(HaveOccurred())
	return t
}

func ExpectNoCooldownRecord(s3api *fake.S3API, bucket string, key v1.ServiceKey) {
	GinkgoHelper()
	_, ok := s3api.Object(bucket, key.ObjectKey())
	Expect(ok).To(BeFalse(), "unexpected cooldown record for %s", key)
}
