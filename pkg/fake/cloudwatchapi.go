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
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cloudwatchtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/samber/lo"

	sdk "github.com/ecsautoscaler/ecs-autoscaler/pkg/aws"
)

// CloudWatchBehavior must be reset between tests otherwise tests will
// pollute each other.
type CloudWatchBehavior struct {
	GetMetricStatisticsBehavior MockedFunction[cloudwatch.GetMetricStatisticsInput, cloudwatch.GetMetricStatisticsOutput]
	PutMetricDataBehavior       MockedFunction[cloudwatch.PutMetricDataInput, cloudwatch.PutMetricDataOutput]
}

type CloudWatchAPI struct {
	sdk.CloudWatchAPI
	CloudWatchBehavior
}

func NewCloudWatchAPI() *CloudWatchAPI {
	return &CloudWatchAPI{}
}

// Reset must be called between tests otherwise tests will pollute
// each other.
func (c *CloudWatchAPI) Reset() {
	c.GetMetricStatisticsBehavior.Reset()
	c.PutMetricDataBehavior.Reset()
}

// Returns no datapoints unless an Output is pinned
func (c *CloudWatchAPI) GetMetricStatistics(_ context.Context, input *cloudwatch.GetMetricStatisticsInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error) {
	return c.GetMetricStatisticsBehavior.Invoke(input, func(_ *cloudwatch.GetMetricStatisticsInput) (*cloudwatch.GetMetricStatisticsOutput, error) {
		return &cloudwatch.GetMetricStatisticsOutput{Label: input.MetricName}, nil
	})
}

func (c *CloudWatchAPI) PutMetricData(_ context.Context, input *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	return c.PutMetricDataBehavior.Invoke(input, func(_ *cloudwatch.PutMetricDataInput) (*cloudwatch.PutMetricDataOutput, error) {
		return &cloudwatch.PutMetricDataOutput{}, nil
	})
}

// Datapoints builds a GetMetricStatistics output holding one Sum datapoint per entry, keyed by timestamp
func Datapoints(sums map[time.Time]float64) *cloudwatch.GetMetricStatisticsOutput {
	return &cloudwatch.GetMetricStatisticsOutput{
		Label: aws.String("RequestCountPerTarget"),
		Datapoints: lo.MapToSlice(sums, func(ts time.Time, sum float64) cloudwatchtypes.Datapoint {
			return cloudwatchtypes.Datapoint{
				Timestamp: aws.Time(ts),
				Sum:       aws.Float64(sum),
				Unit:      cloudwatchtypes.StandardUnitCount,
			}
		}),
	}
}
