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
)

const (
	// DesiredCount is emitted with the new desired count each time a scaling update is about to be applied.
	DesiredCount = "desired_count"

	DirectionUp   = "up"
	DirectionDown = "down"
)

// Tags are the dimensions attached to every emitted value.
type Tags struct {
	Service   string
	Cluster   string
	Direction string
}

// Emitter publishes a named value. Emission is fire-and-forget: implementations log failures and never fail
// the caller.
type Emitter interface {
	Emit(ctx context.Context, name string, value float64, tags Tags)
}
