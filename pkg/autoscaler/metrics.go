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
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ecsautoscaler/ecs-autoscaler/pkg/metrics"
)

const cycleSubsystem = "cycle"

var (
	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: cycleSubsystem,
			Name:      "duration_seconds",
			Help:      "Duration of a single service scaling cycle in seconds.",
			Buckets:   metrics.DurationBuckets(),
		},
	)
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Name:      "cycles_total",
			Help:      "Number of scaling cycles run, labeled by result.",
		},
		[]string{metrics.ResultLabel},
	)
)

func init() {
	metrics.Registry.MustRegister(CycleDuration, CyclesTotal)
}
