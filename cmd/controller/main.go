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
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"

	v1 "github.com/ecsautoscaler/ecs-autoscaler/pkg/apis/v1"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/controllers/polling"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/metrics"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/operator"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/operator/options"
	"github.com/ecsautoscaler/ecs-autoscaler/pkg/utils/log"
)

func main() {
	opts := &options.Options{}
	fs := options.NewFlagSet("ecs-autoscaler")
	opts.AddFlags(fs)
	if err := opts.Parse(fs, os.Args[1:]...); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		panic(err)
	}
	if opts.ScheduleFile == "" {
		panic("missing field, schedule-file")
	}
	logger := log.NewLogger(opts.LogLevel, "controller")
	ctx, stop := signal.NotifyContext(logr.NewContext(context.Background(), logger), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	schedule := lo.Must(v1.LoadSchedule(opts.ScheduleFile))
	// the memory store keys records by cluster and service
	scopeByCluster := opts.CooldownScopeByCluster || options.CooldownStoreType(opts.CooldownStore) == options.CooldownStoreMemory
	events := lo.Must(schedule.Events(scopeByCluster))
	op := operator.NewOperator(ctx, opts)

	controller := polling.NewController(op.Clock, op.Autoscaler, events, opts.Interval, opts.Concurrency)
	server := newServer(opts.MetricsPort, controller)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "metrics server failed")
			stop()
		}
	}()

	controller.Start(ctx)
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(logr.NewContext(context.Background(), logger), 10*time.Second)
	defer cancel()
	controller.Stop(shutdownCtx)
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "failed shutting down metrics server")
	}
}

func newServer(port int, controller *polling.Controller) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !controller.Active() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
