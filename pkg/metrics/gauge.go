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

package metrics

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
)

var invalidMetricNameChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// PrometheusEmitter exposes each emitted name as a gauge, labeled by service, cluster and direction. Gauge
// vectors are created and registered on first use.
type PrometheusEmitter struct {
	registerer prometheus.Registerer

	mu     sync.Mutex
	gauges map[string]*prometheus.GaugeVec
}

func NewPrometheusEmitter(registerer prometheus.Registerer) *PrometheusEmitter {
	return &PrometheusEmitter{
		registerer: registerer,
		gauges:     map[string]*prometheus.GaugeVec{},
	}
}

func (p *PrometheusEmitter) Emit(ctx context.Context, name string, value float64, tags Tags) {
	vec, err := p.gaugeVec(name)
	if err != nil {
		logr.FromContextOrDiscard(ctx).Error(err, "failed registering metric", "metric", name)
		return
	}
	vec.With(prometheus.Labels{
		ServiceLabel:   tags.Service,
		ClusterLabel:   tags.Cluster,
		DirectionLabel: tags.Direction,
	}).Set(value)
}

func (p *PrometheusEmitter) gaugeVec(name string) (*prometheus.GaugeVec, error) {
	name = SanitizeName(name)
	p.mu.Lock()
	defer p.mu.Unlock()
	if vec, ok := p.gauges[name]; ok {
		return vec, nil
	}
	vec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      name,
			Help:      "Value emitted by the autoscaler, labeled by the service, cluster and scaling direction it applies to.",
		}, []string{ServiceLabel, ClusterLabel, DirectionLabel},
	)
	if err := p.registerer.Register(vec); err != nil {
		are, ok := lo.ErrorsAs[prometheus.AlreadyRegisteredError](err)
		if !ok {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.GaugeVec)
		if !ok {
			return nil, err
		}
		vec = existing
	}
	p.gauges[name] = vec
	return vec, nil
}

// SanitizeName maps an arbitrary metric name onto the prometheus name charset
func SanitizeName(name string) string {
	return strings.ToLower(invalidMetricNameChars.ReplaceAllString(name, "_"))
}
