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

package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/awslabs/operatorpkg/serrors"
	"github.com/go-logr/logr"
	"github.com/samber/lo"

	sdk "github.com/ecsautoscaler/ecs-autoscaler/pkg/aws"
	v1 "github.com/ecsautoscaler/ecs-autoscaler/pkg/apis/v1"
)

type Provider interface {
	Describe(context.Context, v1.ServiceKey) (v1.ServiceState, error)
	Update(context.Context, v1.ServiceKey, int64) error
}

type DefaultProvider struct {
	ecsapi sdk.ECSAPI
}

func NewDefaultProvider(ecsapi sdk.ECSAPI) *DefaultProvider {
	return &DefaultProvider{
		ecsapi: ecsapi,
	}
}

// Describe reads the desired and pending task counts of the service. A service that ECS reports as a failure or
// omits from the response is an error.
func (p *DefaultProvider) Describe(ctx context.Context, key v1.ServiceKey) (v1.ServiceState, error) {
	out, err := p.ecsapi.DescribeServices(ctx, &ecs.DescribeServicesInput{
		Cluster:  aws.String(key.Cluster),
		Services: []string{key.Service},
	})
	if err != nil {
		return v1.ServiceState{}, fmt.Errorf("describing service, %w", err)
	}
	if len(out.Failures) > 0 {
		return v1.ServiceState{}, serrors.Wrap(fmt.Errorf("describing service, %s", failureReasons(out.Failures)), "service", key.String())
	}
	svc, ok := lo.Find(out.Services, func(s ecstypes.Service) bool {
		return aws.ToString(s.ServiceName) == key.Service || strings.HasSuffix(aws.ToString(s.ServiceArn), "/"+key.Service)
	})
	if !ok {
		return v1.ServiceState{}, serrors.Wrap(fmt.Errorf("describing service, service not found"), "service", key.String())
	}
	return v1.ServiceState{
		DesiredCount: int64(svc.DesiredCount),
		PendingCount: int64(svc.PendingCount),
	}, nil
}

// Update sets the desired count of the service. The call is not conditional on the previously observed count.
func (p *DefaultProvider) Update(ctx context.Context, key v1.ServiceKey, count int64) error {
	if count < 0 || count > math.MaxInt32 {
		return serrors.Wrap(fmt.Errorf("desired count out of range"), "desired-count", count)
	}
	if _, err := p.ecsapi.UpdateService(ctx, &ecs.UpdateServiceInput{
		Cluster:      aws.String(key.Cluster),
		Service:      aws.String(key.Service),
		DesiredCount: aws.Int32(int32(count)),
	}); err != nil {
		return fmt.Errorf("updating service, %w", err)
	}
	logr.FromContextOrDiscard(ctx).Info("updated service desired count", "desired-count", count)
	return nil
}

func failureReasons(failures []ecstypes.Failure) string {
	return strings.Join(lo.Map(failures, func(f ecstypes.Failure, _ int) string {
		return fmt.Sprintf("%s: %s", aws.ToString(f.Arn), aws.ToString(f.Reason))
	}), ", ")
}
