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

package requestcount

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cloudwatchtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/go-logr/logr"
	"github.com/samber/lo"
	"k8s.io/utils/clock"

	sdk "github.com/ecsautoscaler/ecs-autoscaler/pkg/aws"
	v1 "github.com/ecsautoscaler/ecs-autoscaler/pkg/apis/v1"
)

const (
	Namespace  = "AWS/ApplicationELB"
	MetricName = "RequestCountPerTarget"

	// Window is how far back each query reaches. Five one minute buckets leaves room to discard the bucket
	// that is still being filled.
	Window = 5 * time.Minute
	Period = time.Minute
)

type Provider interface {
	GetSamples(context.Context, v1.Target) ([]v1.MetricSample, error)
}

type DefaultProvider struct {
	clk           clock.PassiveClock
	cloudwatchapi sdk.CloudWatchAPI
}

func NewDefaultProvider(clk clock.PassiveClock, cloudwatchapi sdk.CloudWatchAPI) *DefaultProvider {
	return &DefaultProvider{
		clk:           clk,
		cloudwatchapi: cloudwatchapi,
	}
}

// GetSamples returns the per minute request count sums for the target group over the trailing window. Samples
// are returned in the order CloudWatch reports them, which is unspecified.
func (p *DefaultProvider) GetSamples(ctx context.Context, target v1.Target) ([]v1.MetricSample, error) {
	out, err := p.cloudwatchapi.GetMetricStatistics(ctx, p.input(target))
	if err != nil {
		return nil, fmt.Errorf("getting metric statistics, %w", err)
	}
	samples := lo.FilterMap(out.Datapoints, func(dp cloudwatchtypes.Datapoint, _ int) (v1.MetricSample, bool) {
		if dp.Timestamp == nil || dp.Sum == nil {
			return v1.MetricSample{}, false
		}
		return v1.MetricSample{Timestamp: *dp.Timestamp, Sum: *dp.Sum}, true
	})
	logr.FromContextOrDiscard(ctx).V(1).Info("discovered request count samples", "target-group", target.TargetGroup, "count", len(samples))
	return samples, nil
}

func (p *DefaultProvider) input(target v1.Target) *cloudwatch.GetMetricStatisticsInput {
	end := p.clk.Now()
	return &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String(Namespace),
		MetricName: aws.String(MetricName),
		Dimensions: []cloudwatchtypes.Dimension{
			{Name: aws.String("LoadBalancer"), Value: aws.String(target.LoadBalancer)},
			{Name: aws.String("TargetGroup"), Value: aws.String(target.TargetGroup)},
		},
		StartTime:  aws.Time(end.Add(-Window)),
		EndTime:    aws.Time(end),
		Period:     aws.Int32(int32(Period.Seconds())),
		Statistics: []cloudwatchtypes.Statistic{cloudwatchtypes.StatisticSum},
	}
}
