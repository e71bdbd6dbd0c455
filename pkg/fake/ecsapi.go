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
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/samber/lo"

	sdk "github.com/ecsautoscaler/ecs-autoscaler/pkg/aws"
)

// ECSBehavior must be reset between tests otherwise tests will
// pollute each other.
type ECSBehavior struct {
	DescribeServicesBehavior MockedFunction[ecs.DescribeServicesInput, ecs.DescribeServicesOutput]
	UpdateServiceBehavior    MockedFunction[ecs.UpdateServiceInput, ecs.UpdateServiceOutput]
}

// ECSAPI keeps an in-memory view of services so that UpdateService is visible to later DescribeServices calls
type ECSAPI struct {
	sdk.ECSAPI
	ECSBehavior

	mu       sync.RWMutex
	services map[string]ecstypes.Service
}

func NewECSAPI() *ECSAPI {
	return &ECSAPI{services: map[string]ecstypes.Service{}}
}

// Reset must be called between tests otherwise tests will pollute
// each other.
func (e *ECSAPI) Reset() {
	e.DescribeServicesBehavior.Reset()
	e.UpdateServiceBehavior.Reset()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.services = map[string]ecstypes.Service{}
}

// SetService creates or replaces a service in the fake cluster
func (e *ECSAPI) SetService(cluster, service string, desired, pending int32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.services[serviceID(cluster, service)] = ecstypes.Service{
		ClusterArn:   aws.String(fmt.Sprintf("arn:aws:ecs:us-east-1:000000000000:cluster/%s", cluster)),
		ServiceArn:   aws.String(fmt.Sprintf("arn:aws:ecs:us-east-1:000000000000:service/%s/%s", cluster, service)),
		ServiceName:  aws.String(service),
		Status:       aws.String("ACTIVE"),
		DesiredCount: desired,
		PendingCount: pending,
		RunningCount: desired - pending,
	}
}

// DesiredCount returns the current desired count of a service and whether it exists
func (e *ECSAPI) DesiredCount(cluster, service string) (int32, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	svc, ok := e.services[serviceID(cluster, service)]
	return svc.DesiredCount, ok
}

func (e *ECSAPI) DescribeServices(_ context.Context, input *ecs.DescribeServicesInput, _ ...func(*ecs.Options)) (*ecs.DescribeServicesOutput, error) {
	return e.DescribeServicesBehavior.Invoke(input, func(input *ecs.DescribeServicesInput) (*ecs.DescribeServicesOutput, error) {
		e.mu.RLock()
		defer e.mu.RUnlock()
		out := &ecs.DescribeServicesOutput{}
		for _, name := range input.Services {
			svc, ok := e.services[serviceID(aws.ToString(input.Cluster), name)]
			if !ok {
				out.Failures = append(out.Failures, ecstypes.Failure{
					Arn:    aws.String(name),
					Reason: aws.String("MISSING"),
				})
				continue
			}
			out.Services = append(out.Services, svc)
		}
		return out, nil
	})
}

func (e *ECSAPI) UpdateService(_ context.Context, input *ecs.UpdateServiceInput, _ ...func(*ecs.Options)) (*ecs.UpdateServiceOutput, error) {
	return e.UpdateServiceBehavior.Invoke(input, func(input *ecs.UpdateServiceInput) (*ecs.UpdateServiceOutput, error) {
		e.mu.Lock()
		defer e.mu.Unlock()
		id := serviceID(aws.ToString(input.Cluster), aws.ToString(input.Service))
		svc, ok := e.services[id]
		if !ok {
			return nil, &ecstypes.ServiceNotFoundException{Message: aws.String("Service not found.")}
		}
		if input.DesiredCount != nil {
			svc.DesiredCount = lo.FromPtr(input.DesiredCount)
		}
		e.services[id] = svc
		return &ecs.UpdateServiceOutput{Service: &svc}, nil
	})
}

func serviceID(cluster, service string) string {
	return cluster + "/" + service
}
