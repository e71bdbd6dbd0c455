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
	"fmt"
	"strings"

	"github.com/Pallinder/go-randomdata"
	"github.com/imdario/mergo"

	v1 "github.com/ecsautoscaler/ecs-autoscaler/pkg/apis/v1"
)

// RandomName returns a lower case name that is safe to use for clusters, services and load balancers
func RandomName() string {
	return strings.ToLower(randomdata.SillyName())
}

// Event returns a valid event for a randomly named service. Fields set on the overrides win.
func Event(overrides ...v1.Event) *v1.Event {
	event := v1.Event{}
	for _, override := range overrides {
		if err := mergo.Merge(&event, override, mergo.WithOverride); err != nil {
			panic(fmt.Sprintf("Failed to merge event: %s", err))
		}
	}
	if event.Cluster == "" {
		event.Cluster = RandomName()
	}
	if event.Service == "" {
		event.Service = RandomName()
	}
	if event.LoadBalancer == "" {
		event.LoadBalancer = fmt.Sprintf("app/%s/%d", RandomName(), randomdata.Number(100000, 999999))
	}
	if event.TargetGroup == "" {
		event.TargetGroup = fmt.Sprintf("targetgroup/%s/%d", RandomName(), randomdata.Number(100000, 999999))
	}
	if event.Minimum.IsZero() {
		event.Minimum = v1.NewIntOrString(1)
	}
	if event.Maximum.IsZero() {
		event.Maximum = v1.NewIntOrString(20)
	}
	if event.Threshold.IsZero() {
		event.Threshold = v1.NewIntOrString(100)
	}
	if event.ScaleDownDelayInSeconds.IsZero() {
		event.ScaleDownDelayInSeconds = v1.NewIntOrString(300)
	}
	return &event
}
