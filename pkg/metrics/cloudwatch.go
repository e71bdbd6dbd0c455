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

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cloudwatchtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/go-logr/logr"
	"k8s.io/utils/clock"

	sdk "github.com/ecsautoscaler/ecs-autoscaler/pkg/aws"
)

const DefaultCloudWatchNamespace = "ECSAutoscaler"

// CloudWatchEmitter publishes each value as a custom CloudWatch metric with service, cluster and direction
// dimensions.
type CloudWatchEmitter struct {
	clk           clock.PassiveClock
	cloudwatchapi sdk.CloudWatchAPI
	namespace     string
}

func NewCloudWatchEmitter(clk clock.PassiveClock, cloudwatchapi sdk.CloudWatchAPI, namespace string) *CloudWatchEmitter {
	if namespace == "" {
		namespace = DefaultCloudWatchNamespace
	}
	return &CloudWatchEmitter{
		clk:           clk,
		cloudwatchapi: cloudwatchapi,
		namespace:     namespace,
	}
}

func (c *CloudWatchEmitter) Emit(ctx context.Context, name string, value float64, tags Tags) {
	if _, err := c.cloudwatchapi.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(c.namespace),
		MetricData: []cloudwatchtypes.MetricDatum{{
			MetricName: aws.String(name),
			Value:      aws.Float64(value),
			Timestamp:  aws.Time(c.clk.Now()),
			Unit:       cloudwatchtypes.StandardUnitCount,
			Dimensions: []cloudwatchtypes.Dimension{
				{Name: aws.String(ServiceLabel), Value: aws.String(tags.Service)},
				{Name: aws.String(ClusterLabel), Value: aws.String(tags.Cluster)},
				{Name: aws.String(DirectionLabel), Value: aws.String(tags.Direction)},
			},
		}},
	}); err != nil {
		logr.FromContextOrDiscard(ctx).Error(err, "failed emitting metric", "metric", name, "namespace", c.namespace)
	}
}
