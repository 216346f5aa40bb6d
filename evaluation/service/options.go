//
// Tencent is pleased to support the open source community by making trpc-evalbench-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-evalbench-go is licensed under the Apache License Version 2.0.
//
//

package service

import (
	"net/http"
	"time"

	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/loaddriver"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/metric"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/process"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/record"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/report"
)

// Defaults for the orchestration options.
const (
	DefaultModelParallelism = 4
	DefaultItemParallelism  = 10
	DefaultPollInterval     = 2 * time.Second
	DefaultPollMaxAttempts  = 150
)

// Options configures an orchestration service implementation.
type Options struct {
	// Registry is the in-memory process registry (fast status path).
	Registry *process.Registry
	// StatusManager persists status records (system of record).
	StatusManager record.StatusManager
	// ResultManager persists result records.
	ResultManager record.ResultManager
	// MetricManager persists metric records.
	MetricManager record.MetricManager
	// ConfigManager persists submitted configurations.
	ConfigManager record.ConfigManager
	// Driver executes benchmark workloads.
	Driver *loaddriver.Driver
	// Engine computes metrics.
	Engine *metric.Engine
	// Reporter generates spreadsheet artifacts.
	Reporter *report.Generator
	// Resolver maps models to endpoint URLs.
	Resolver EndpointResolver
	// HTTPClient issues the per-item evaluation requests.
	HTTPClient *http.Client
	// ModelParallelism bounds concurrently evaluated models in evaluate mode.
	ModelParallelism int
	// ItemParallelism bounds concurrent per-item requests within one model.
	ItemParallelism int
	// PollInterval is the delay between job-status polls.
	PollInterval time.Duration
	// PollMaxAttempts bounds the job-status polling loop; exhaustion is a
	// terminal timeout error for the item.
	PollMaxAttempts int
}

// Option configures Options.
type Option func(*Options)

// NewOptions applies the options over the defaults.
func NewOptions(opt ...Option) *Options {
	opts := &Options{
		HTTPClient:       &http.Client{Timeout: 30 * time.Second},
		ModelParallelism: DefaultModelParallelism,
		ItemParallelism:  DefaultItemParallelism,
		PollInterval:     DefaultPollInterval,
		PollMaxAttempts:  DefaultPollMaxAttempts,
	}
	for _, o := range opt {
		o(opts)
	}
	return opts
}

// WithRegistry sets the process registry.
func WithRegistry(r *process.Registry) Option {
	return func(o *Options) { o.Registry = r }
}

// WithStatusManager sets the durable status manager.
func WithStatusManager(m record.StatusManager) Option {
	return func(o *Options) { o.StatusManager = m }
}

// WithResultManager sets the durable result manager.
func WithResultManager(m record.ResultManager) Option {
	return func(o *Options) { o.ResultManager = m }
}

// WithMetricManager sets the durable metric manager.
func WithMetricManager(m record.MetricManager) Option {
	return func(o *Options) { o.MetricManager = m }
}

// WithConfigManager sets the durable config manager.
func WithConfigManager(m record.ConfigManager) Option {
	return func(o *Options) { o.ConfigManager = m }
}

// WithDriver sets the load driver.
func WithDriver(d *loaddriver.Driver) Option {
	return func(o *Options) { o.Driver = d }
}

// WithEngine sets the metric engine.
func WithEngine(e *metric.Engine) Option {
	return func(o *Options) { o.Engine = e }
}

// WithReporter sets the report generator.
func WithReporter(r *report.Generator) Option {
	return func(o *Options) { o.Reporter = r }
}

// WithResolver sets the endpoint resolver.
func WithResolver(r EndpointResolver) Option {
	return func(o *Options) { o.Resolver = r }
}

// WithHTTPClient sets the per-item request client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) {
		if c != nil {
			o.HTTPClient = c
		}
	}
}

// WithModelParallelism bounds concurrently evaluated models.
func WithModelParallelism(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.ModelParallelism = n
		}
	}
}

// WithItemParallelism bounds concurrent per-item requests within one model.
func WithItemParallelism(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.ItemParallelism = n
		}
	}
}

// WithPollInterval sets the job-status polling interval.
func WithPollInterval(interval time.Duration) Option {
	return func(o *Options) {
		if interval > 0 {
			o.PollInterval = interval
		}
	}
}

// WithPollMaxAttempts bounds the job-status polling loop.
func WithPollMaxAttempts(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.PollMaxAttempts = n
		}
	}
}
