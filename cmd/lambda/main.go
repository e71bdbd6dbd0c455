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

package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/go-logr/logr"
	"github.com/samber/lo"

	v1 "github.com/ecsautoscaler/ecs-autoscaler/pkg/apis/v1"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/autoscaler"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/operator"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/operator/options"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/utils/log"
)

// The function is configured entirely through its environment; every invocation scales the one service named in
// its payload.
func main() {
	opts := &options.Options{}
	fs := options.NewFlagSet("ecs-autoscaler-lambda")
	opts.AddFlags(fs)
	lo.Must0(opts.Parse(fs))
	// nothing scrapes a function, so desired counts go to CloudWatch unless configured otherwise
	lo.Must0(opts.DefaultMetricsEmitter(fs, options.MetricsEmitterCloudWatch))

	logger := log.NewLogger(opts.LogLevel, "lambda")
	ctx := logr.NewContext(context.Background(), logger)
	op := operator.NewOperator(ctx, opts)
	lambda.StartWithOptions(handler(op.Autoscaler), lambda.WithContext(ctx))
}

func handler(a *autoscaler.Autoscaler) func(context.Context, v1.Event) (autoscaler.Result, error) {
	return func(ctx context.Context, event v1.Event) (autoscaler.Result, error) {
		log := logr.FromContextOrDiscard(ctx).WithValues("cluster", event.Cluster, "service", event.Service)
		log.Info("starting autoscaling")
		result, err := a.Reconcile(ctx, &event)
		if err != nil {
			log.Error(err, "failed autoscaling")
			return result, err
		}
		log.Info("finished autoscaling", "decision", result.Decision.String(), "applied", result.Applied)
		return result, nil
	}
}
