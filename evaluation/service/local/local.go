//
// Tencent is pleased to support the open source community by making trpc-evalbench-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-evalbench-go is licensed under the Apache License Version 2.0.
//
//

// Package local provides the local implementation of the orchestration service.
package local

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/panjf2000/ants/v2"

	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/loaddriver"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/metric"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/payload"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/process"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/record"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/report"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/service"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/status"
	"trpc.group/trpc-go/trpc-evalbench-go/log"
)

// persistTimeout bounds terminal persistence after the run context is gone.
const persistTimeout = 30 * time.Second

// local is the local implementation of service.Service.
type local struct {
	registry  *process.Registry
	statusMgr record.StatusManager
	resultMgr record.ResultManager
	metricMgr record.MetricManager
	configMgr record.ConfigManager
	driver    *loaddriver.Driver
	engine    *metric.Engine
	reporter  *report.Generator
	resolver  service.EndpointResolver

	httpClient      *http.Client
	itemParallelism int
	pollInterval    time.Duration
	pollMaxAttempts int

	modelPool *ants.PoolWithFunc
	running   sync.WaitGroup
}

// New returns a new local orchestration service.
func New(opt ...service.Option) (service.Service, error) {
	opts := service.NewOptions(opt...)
	if opts.Registry == nil {
		return nil, errors.New("process registry is nil")
	}
	if opts.StatusManager == nil {
		return nil, errors.New("status manager is nil")
	}
	if opts.ResultManager == nil {
		return nil, errors.New("result manager is nil")
	}
	if opts.MetricManager == nil {
		return nil, errors.New("metric manager is nil")
	}
	if opts.ConfigManager == nil {
		return nil, errors.New("config manager is nil")
	}
	if opts.Driver == nil {
		return nil, errors.New("load driver is nil")
	}
	if opts.Engine == nil {
		return nil, errors.New("metric engine is nil")
	}
	if opts.Reporter == nil {
		return nil, errors.New("report generator is nil")
	}
	if opts.Resolver == nil {
		return nil, errors.New("endpoint resolver is nil")
	}
	s := &local{
		registry:        opts.Registry,
		statusMgr:       opts.StatusManager,
		resultMgr:       opts.ResultManager,
		metricMgr:       opts.MetricManager,
		configMgr:       opts.ConfigManager,
		driver:          opts.Driver,
		engine:          opts.Engine,
		reporter:        opts.Reporter,
		resolver:        opts.Resolver,
		httpClient:      opts.HTTPClient,
		itemParallelism: opts.ItemParallelism,
		pollInterval:    opts.PollInterval,
		pollMaxAttempts: opts.PollMaxAttempts,
	}
	pool, err := createModelRunPool(opts.ModelParallelism)
	if err != nil {
		return nil, fmt.Errorf("create model run pool: %w", err)
	}
	s.modelPool = pool
	return s, nil
}

// Close cancels running processes and releases owned resources.
func (s *local) Close() error {
	s.registry.CancelAll()
	s.running.Wait()
	if s.modelPool != nil {
		s.modelPool.Release()
	}
	return nil
}

// Submit implements service.Service.Submit.
func (s *local) Submit(ctx context.Context, req *service.SubmitRequest) (*service.SubmitResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: submit request is nil", service.ErrInvalidRequest)
	}
	if err := validateSubmit(req); err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrInvalidRequest, err)
	}
	configType, err := status.ParseConfigType(req.ConfigType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrInvalidRequest, err)
	}
	set, err := payload.Load(req.PayloadFilePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrInvalidRequest, err)
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("%w: payload file contains no payload groups", service.ErrInvalidRequest)
	}

	// Duplicate ongoing task is rejected before any state is created. The
	// durable store covers tasks from before a restart.
	if s.registry.HasOngoing(req.UserID) {
		return nil, service.ErrDuplicateTask
	}
	ongoing, err := s.statusMgr.HasOngoing(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("check ongoing tasks: %w", err)
	}
	if ongoing {
		return nil, service.ErrDuplicateTask
	}

	totalRequests := req.TotalRequests
	if totalRequests <= 0 {
		totalRequests = 10
	}
	proc := &process.Process{
		ProcessID:        process.NewProcessID(),
		ProcessName:      req.ProcessName,
		OrgID:            req.OrgID,
		UserID:           req.UserID,
		SessionID:        req.SessionID,
		ConfigType:       configType,
		Models:           req.Models,
		PayloadReference: req.PayloadFilePath,
		ClientAPIKey:     req.ClientAPIKey,
		TotalRequests:    totalRequests,
		CreatedAt:        time.Now(),
	}
	if err := s.configMgr.Save(ctx, &record.ConfigRecord{
		ProcessID: proc.ProcessID,
		OrgID:     proc.OrgID,
		Process:   proc,
		CreatedAt: proc.CreatedAt,
	}); err != nil {
		return nil, fmt.Errorf("save config record: %w", err)
	}

	statusRec := process.NewStatusRecord(proc)
	if err := s.statusMgr.Save(ctx, statusRec); err != nil {
		return nil, fmt.Errorf("save status record: %w", err)
	}
	if err := s.resultMgr.Save(ctx, &record.ResultRecord{
		ProcessID:   proc.ProcessID,
		OrgID:       proc.OrgID,
		UserID:      proc.UserID,
		ProcessName: proc.ProcessName,
		ConfigType:  proc.ConfigType,
		Timestamp:   proc.CreatedAt.Format("2006-01-02 15:04:05"),
	}); err != nil {
		return nil, fmt.Errorf("save result record: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	if err := s.registry.Register(statusRec, cancel); err != nil {
		cancel()
		return nil, fmt.Errorf("register process: %w", err)
	}
	run := &processRun{
		svc:  s,
		proc: proc,
		set:  set,
		mode: req.Mode,
		rec:  statusRec.Clone(),
	}
	s.running.Add(1)
	go run.execute(runCtx)
	log.Infof("process %s submitted: %d models, mode %s", proc.ProcessID, len(proc.Models), req.Mode)
	return &service.SubmitResponse{ProcessID: proc.ProcessID}, nil
}

// validateSubmit checks required submission fields.
func validateSubmit(req *service.SubmitRequest) error {
	var result *multierror.Error
	if strings.TrimSpace(req.OrgID) == "" {
		result = multierror.Append(result, errors.New("org id is empty"))
	}
	if strings.TrimSpace(req.UserID) == "" {
		result = multierror.Append(result, errors.New("user id is empty"))
	}
	if strings.TrimSpace(req.ProcessName) == "" {
		result = multierror.Append(result, errors.New("process name is empty"))
	}
	if len(req.Models) == 0 {
		result = multierror.Append(result, errors.New("model list is empty"))
	}
	if strings.TrimSpace(req.PayloadFilePath) == "" {
		result = multierror.Append(result, errors.New("payload file path is empty"))
	}
	if req.Mode != service.ModeBenchmark && req.Mode != service.ModeEvaluate {
		result = multierror.Append(result, fmt.Errorf("invalid mode: %q", req.Mode))
	}
	return result.ErrorOrNil()
}

// Status implements service.Service.Status. The registry is the fast path;
// the durable store is authoritative after restarts.
func (s *local) Status(ctx context.Context, processID string) (*process.StatusRecord, error) {
	if rec, ok := s.registry.Get(processID); ok {
		return rec, nil
	}
	return s.statusMgr.Get(ctx, processID)
}

// Stop implements service.Service.Stop.
func (s *local) Stop(ctx context.Context, req *service.StopRequest) error {
	if req == nil || strings.TrimSpace(req.ProcessID) == "" {
		return errors.New("process id is empty")
	}
	if err := s.registry.Cancel(req.ProcessID); err != nil {
		return err
	}
	log.Infof("process %s stop requested", req.ProcessID)
	return nil
}

// Results implements service.Service.Results.
func (s *local) Results(ctx context.Context, userID string, page, pageSize int) (*service.ResultsPage, error) {
	records, count, err := s.resultMgr.ListByUser(ctx, userID, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return &service.ResultsPage{Results: records, DocCount: count}, nil
}

// CalculateMetrics implements service.Service.CalculateMetrics.
func (s *local) CalculateMetrics(ctx context.Context, req *service.MetricsRequest) (*service.MetricsResponse, error) {
	if req == nil {
		return nil, errors.New("metrics request is nil")
	}
	if len(req.Metrics) == 0 {
		return nil, errors.New("metric list is empty")
	}
	statusRec, err := s.Status(ctx, req.ProcessID)
	if err != nil {
		return nil, err
	}
	if !statusRec.OverallStatus.Terminal() {
		return nil, service.ErrProcessNotCompleted
	}
	resultRec, err := s.resultMgr.Get(ctx, req.ProcessID)
	if err != nil {
		return nil, err
	}
	if len(resultRec.Models) == 0 {
		return nil, errors.New("process has no model results")
	}

	models := make([]record.ModelMetrics, 0, len(resultRec.Models))
	for _, modelResult := range resultRec.Models {
		pairs := metric.PairsFromModelResult(modelResult)
		results, err := s.engine.Calculate(ctx, req.Metrics, pairs)
		if err != nil {
			// No partial metrics: one metric's failure aborts the whole calculation.
			return nil, err
		}
		models = append(models, record.ModelMetrics{ModelID: modelResult.ModelID, MetricsResults: results})
	}
	metricRec := &record.MetricRecord{
		MetricID:    strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		OrgID:       req.OrgID,
		ProcessID:   req.ProcessID,
		ProcessName: req.ProcessName,
		Ranges:      record.DefaultScoreRanges(),
		Models:      models,
		CreatedAt:   time.Now(),
	}
	if err := s.metricMgr.Save(ctx, metricRec); err != nil {
		return nil, fmt.Errorf("save metric record: %w", err)
	}
	return &service.MetricsResponse{MetricID: metricRec.MetricID}, nil
}

// Metric implements service.Service.Metric.
func (s *local) Metric(ctx context.Context, metricID string) (*record.MetricRecord, error) {
	return s.metricMgr.Get(ctx, metricID)
}

// UpdateMetricRanges implements service.Service.UpdateMetricRanges.
func (s *local) UpdateMetricRanges(ctx context.Context, metricID string, ranges []record.ScoreRange) error {
	if len(ranges) == 0 {
		return errors.New("score ranges are empty")
	}
	return s.metricMgr.UpdateRanges(ctx, metricID, ranges)
}

// ListMetrics implements service.Service.ListMetrics.
func (s *local) ListMetrics(ctx context.Context, orgID string, page, pageSize int) ([]*record.MetricRecord, int64, error) {
	return s.metricMgr.List(ctx, orgID, page, pageSize)
}

// ReportPath implements service.Service.ReportPath.
func (s *local) ReportPath(ctx context.Context, processID string) (string, error) {
	rec, err := s.resultMgr.Get(ctx, processID)
	if err != nil {
		return "", err
	}
	if rec.ResultsPath == "" {
		return "", service.ErrNoReport
	}
	return rec.ResultsPath, nil
}
