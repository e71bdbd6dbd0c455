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

package cooldown

import (
	"context"
	"time"

	v1 "github.com/ecsautoscaler/ecs-autoscaler/pkg/apis/v1"
)

// Lookup is the result of reading a cooldown record. A missing record is a valid result, not an error.
type Lookup struct {
	Found         bool
	LastScaleDown time.Time
}

func Found(t time.Time) Lookup {
	return Lookup{Found: true, LastScaleDown: t}
}

func NotFound() Lookup {
	return Lookup{}
}

// Store persists the time of the last applied scale-down per service. Writes are last-writer-wins; two cycles
// racing on the same service may both observe an expired cooldown.
type Store interface {
	Get(context.Context, v1.ServiceKey) (Lookup, error)
	Put(context.Context, v1.ServiceKey, time.Time) error
}
