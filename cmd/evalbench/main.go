//
// Tencent is pleased to support the open source community by making trpc-evalbench-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-evalbench-go is licensed under the Apache License Version 2.0.
//
//

// evalbench runs the evaluation and benchmarking orchestration server.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/loaddriver"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/metric"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/process"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/record"
	recordinmemory "trpc.group/trpc-go/trpc-evalbench-go/evaluation/record/inmemory"
	recordmongo "trpc.group/trpc-go/trpc-evalbench-go/evaluation/record/mongo"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/report"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/service"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/service/local"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/similarity"
	"trpc.group/trpc-go/trpc-evalbench-go/log"
	"trpc.group/trpc-go/trpc-evalbench-go/server/api"
	"trpc.group/trpc-go/trpc-evalbench-go/storage/mongodb"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "evalbench.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Log.Level != "" {
		log.SetLevel(cfg.Log.Level)
	}

	ctx := context.Background()
	managers, cleanup, err := buildManagers(ctx, cfg)
	if err != nil {
		log.Fatalf("build record managers: %v", err)
	}
	defer cleanup()

	registry := process.NewRegistry()
	defer registry.Close()

	engineOpts := []metric.EngineOption{}
	if cfg.Similarity.BaseURL != "" {
		scorer, err := similarity.NewClient(cfg.Similarity.BaseURL)
		if err != nil {
			log.Fatalf("create similarity client: %v", err)
		}
		engineOpts = append(engineOpts, metric.WithScorer(scorer))
	}

	svc, err := local.New(
		service.WithRegistry(registry),
		service.WithStatusManager(managers.status),
		service.WithResultManager(managers.result),
		service.WithMetricManager(managers.metric),
		service.WithConfigManager(managers.config),
		service.WithDriver(loaddriver.New()),
		service.WithEngine(metric.NewEngine(engineOpts...)),
		service.WithReporter(report.New(report.WithDir(cfg.Report.Dir))),
		service.WithResolver(baseURLResolver(cfg.Endpoint.BaseURL)),
	)
	if err != nil {
		log.Fatalf("create orchestration service: %v", err)
	}

	httpServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: api.New(svc).Handler(),
	}
	go func() {
		log.Infof("evalbench listening on %s", cfg.Server.Address)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Infof("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("http shutdown: %v", err)
	}
	if err := svc.Close(); err != nil {
		log.Errorf("service close: %v", err)
	}
}

// managerSet groups the four record managers regardless of backend.
type managerSet struct {
	status record.StatusManager
	result record.ResultManager
	metric record.MetricManager
	config record.ConfigManager
}

// buildManagers selects the Mongo-backed managers when a URI is configured and
// falls back to the in-memory ones otherwise.
func buildManagers(ctx context.Context, cfg *Config) (*managerSet, func(), error) {
	if cfg.Mongo.URI == "" {
		log.Warnf("mongo uri not configured, using in-memory record managers")
		return &managerSet{
			status: recordinmemory.NewStatusManager(),
			result: recordinmemory.NewResultManager(),
			metric: recordinmemory.NewMetricManager(),
			config: recordinmemory.NewConfigManager(),
		}, func() {}, nil
	}
	client, err := mongodb.NewClient(ctx, mongodb.WithClientBuilderDSN(cfg.Mongo.URI))
	if err != nil {
		return nil, nil, err
	}
	managers, err := recordmongo.NewManagers(client, recordmongo.WithDatabase(cfg.Mongo.Database))
	if err != nil {
		client.Disconnect(ctx)
		return nil, nil, err
	}
	cleanup := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Errorf("mongodb disconnect: %v", err)
		}
	}
	return &managerSet{
		status: managers.Status,
		result: managers.Result,
		metric: managers.Metric,
		config: managers.Config,
	}, cleanup, nil
}

// baseURLResolver joins the endpoint base URL with the model id.
func baseURLResolver(baseURL string) service.EndpointResolver {
	return func(model process.ModelRef) string {
		return strings.TrimRight(baseURL, "/") + "/" + model.ModelID
	}
}
