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

package operator

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/awslabs/operatorpkg/aws/middleware"
	"github.com/go-logr/logr"
	prometheusv2 "github.com/jonathan-innis/aws-sdk-go-prometheus/v2"
	"github.com/samber/lo"
	"k8s.io/utils/clock"

	sdk "github.com/ecsautoscaler/ecs-autoscaler/pkg/aws"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/autoscaler"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/metrics"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/operator/options"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/providers/cooldown"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/providers/requestcount"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/providers/service"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/utils/env"
)

// Operator holds the AWS clients and providers shared by every scaling cycle
type Operator struct {
	Options *options.Options
	Clock   clock.WithTicker
	Config  aws.Config

	CloudWatchAPI sdk.CloudWatchAPI
	ECSAPI        sdk.ECSAPI
	S3API         sdk.S3API

	RequestCountProvider requestcount.Provider
	ServiceProvider      service.Provider
	CooldownStore        cooldown.Store
	Emitter              metrics.Emitter
	Autoscaler           *autoscaler.Autoscaler
}

func NewOperator(ctx context.Context, opts *options.Options) *Operator {
	cfg := prometheusv2.WithPrometheusMetrics(WithUserAgent(lo.Must(config.LoadDefaultConfig(ctx, loadOptions(opts)...))), metrics.Registry)
	cfg.APIOptions = append(cfg.APIOptions, middleware.StructuredErrorHandler)
	if cfg.Region == "" {
		logr.FromContextOrDiscard(ctx).V(1).Info("retrieving region from IMDS")
		region := lo.Must(imds.NewFromConfig(cfg).GetRegion(ctx, nil))
		cfg.Region = region.Region
	}
	logr.FromContextOrDiscard(ctx).WithValues("region", cfg.Region).V(1).Info("discovered region")

	op := NewOperatorFromAPIs(ctx, opts, clock.RealClock{},
		cloudwatch.NewFromConfig(cfg),
		ecs.NewFromConfig(cfg),
		s3.NewFromConfig(cfg),
	)
	op.Config = cfg
	return op
}

// NewOperatorFromAPIs builds the providers and the autoscaler over already constructed AWS clients
func NewOperatorFromAPIs(ctx context.Context, opts *options.Options, clk clock.WithTicker,
	cloudwatchapi sdk.CloudWatchAPI, ecsapi sdk.ECSAPI, s3api sdk.S3API) *Operator {
	requestCountProvider := requestcount.NewDefaultProvider(clk, cloudwatchapi)
	serviceProvider := service.NewDefaultProvider(ecsapi)
	cooldownStore := NewCooldownStore(opts, s3api)
	emitter := NewEmitter(opts, clk, cloudwatchapi)
	logr.FromContextOrDiscard(ctx).V(1).Info("configured autoscaler",
		"cooldown-store", opts.CooldownStore,
		"metrics-emitter", opts.MetricsEmitter,
		"max-containers-to-scale-down", opts.MaxContainersToScaleDown,
	)
	return &Operator{
		Options:              opts,
		Clock:                clk,
		CloudWatchAPI:        cloudwatchapi,
		ECSAPI:               ecsapi,
		S3API:                s3api,
		RequestCountProvider: requestCountProvider,
		ServiceProvider:      serviceProvider,
		CooldownStore:        cooldownStore,
		Emitter:              emitter,
		Autoscaler: autoscaler.New(
			clk,
			requestCountProvider,
			serviceProvider,
			cooldownStore,
			emitter,
			opts.MaxContainersToScaleDown,
		),
	}
}

func NewCooldownStore(opts *options.Options, s3api sdk.S3API) cooldown.Store {
	if options.CooldownStoreType(opts.CooldownStore) == options.CooldownStoreMemory {
		return cooldown.NewMemoryStore()
	}
	return cooldown.NewS3Store(s3api, opts.S3BucketName, opts.CooldownScopeByCluster)
}

func NewEmitter(opts *options.Options, clk clock.PassiveClock, cloudwatchapi sdk.CloudWatchAPI) metrics.Emitter {
	if options.MetricsEmitterType(opts.MetricsEmitter) == options.MetricsEmitterCloudWatch {
		return metrics.NewCloudWatchEmitter(clk, cloudwatchapi, opts.MetricsNamespace)
	}
	return metrics.NewPrometheusEmitter(metrics.Registry)
}

// WithUserAgent adds an autoscaler specific user-agent string to AWS session
func WithUserAgent(cfg aws.Config) aws.Config {
	cfg.APIOptions = append(cfg.APIOptions, awsmiddleware.AddUserAgentKeyValue("ecs-autoscaler", env.GetRevision()))
	return cfg
}

func loadOptions(opts *options.Options) []func(*config.LoadOptions) error {
	if opts.AWSRegion == "" {
		return nil
	}
	return []func(*config.LoadOptions) error{config.WithRegion(opts.AWSRegion)}
}
