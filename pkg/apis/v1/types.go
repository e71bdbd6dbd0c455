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

package v1

import (
	"fmt"
	"time"
)

// ServiceKey identifies a managed ECS service. It is the identity that cooldown records are stored under.
type ServiceKey struct {
	Cluster string
	Service string
}

func (k ServiceKey) String() string {
	return fmt.Sprintf("%s/%s", k.Cluster, k.Service)
}

// ObjectKey is the object name of the service's cooldown record. The layout matches records written by
// earlier deployments so that existing cooldowns carry over.
func (k ServiceKey) ObjectKey() string {
	return fmt.Sprintf("%s-scale-down-delay.txt", k.Service)
}

// ClusterScopedObjectKey namespaces the cooldown record by cluster, for accounts that run services with the
// same name in more than one cluster.
func (k ServiceKey) ClusterScopedObjectKey() string {
	return fmt.Sprintf("%s/%s", k.Cluster, k.ObjectKey())
}

// CooldownObjectKey is the object name the cooldown store uses for the service
func (k ServiceKey) CooldownObjectKey(scopeByCluster bool) string {
	if scopeByCluster {
		return k.ClusterScopedObjectKey()
	}
	return k.ObjectKey()
}

// Target is the load balancer target group whose request rate drives the scaling decision.
type Target struct {
	LoadBalancer string
	TargetGroup  string
}

// MetricSample is one aggregation bucket of the request count per target.
type MetricSample struct {
	Timestamp time.Time
	Sum       float64
}

// ServiceState is the replica state of a service as reported by ECS. It is read fresh on every cycle.
type ServiceState struct {
	DesiredCount int64
	PendingCount int64
}
