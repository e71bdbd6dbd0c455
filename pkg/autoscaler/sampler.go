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
	"slices"

	v1 "github.com/ecsautoscaler/ecs-autoscaler/pkg/apis/v1"
	autoscalingerrors "github.com/ecsautoscaler/ecs-autoscaler/pkg/errors"
)

// MinSamples is the fewest samples SelectLoad accepts: the newest is discarded, so at least one more must remain.
const MinSamples = 2

// SelectLoad returns the sum of the second most recent sample, truncated to an integer. The most recent bucket
// may still be aggregating and understate the load, so it is never used. Input order doesn't matter and the
// input slice is not modified.
func SelectLoad(samples []v1.MetricSample) (int64, error) {
	if len(samples) < MinSamples {
		return 0, autoscalingerrors.InsufficientDataError{Samples: len(samples), Required: MinSamples}
	}
	sorted := slices.Clone(samples)
	slices.SortStableFunc(sorted, func(a, b v1.MetricSample) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return int64(sorted[1].Sum), nil
}
