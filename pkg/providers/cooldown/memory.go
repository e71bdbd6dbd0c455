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

	"github.com/patrickmn/go-cache"

	v1 "github.com/ecsautoscaler/ecs-autoscaler/pkg/apis/v1"
)

// MemoryStore keeps cooldown records for the life of the process. Records never expire.
type MemoryStore struct {
	cache *cache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: cache.New(cache.NoExpiration, cache.NoExpiration),
	}
}

func (m *MemoryStore) Get(_ context.Context, key v1.ServiceKey) (Lookup, error) {
	if t, ok := m.cache.Get(key.String()); ok {
		return Found(t.(time.Time)), nil
	}
	return NotFound(), nil
}

func (m *MemoryStore) Put(_ context.Context, key v1.ServiceKey, t time.Time) error {
	m.cache.Set(key.String(), t, cache.NoExpiration)
	return nil
}
