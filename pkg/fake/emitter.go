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

package fake

import (
	"context"
	"sync"

	"github.com/ecsautoscaler/ecs-autoscaler/pkg/metrics"
)

type Emission struct {
	Name  string
	Value float64
	Tags  metrics.Tags
}

var _ metrics.Emitter = (*Emitter)(nil)

// Emitter records every emitted value
type Emitter struct {
	mu        sync.RWMutex
	emissions []Emission
}

func NewEmitter() *Emitter {
	return &Emitter{}
}

func (e *Emitter) Emit(_ context.Context, name string, value float64, tags metrics.Tags) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.emissions = append(e.emissions, Emission{Name: name, Value: value, Tags: tags})
}

func (e *Emitter) Emissions() []Emission {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Emission{}, e.emissions...)
}

func (e *Emitter) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.emissions = nil
}
