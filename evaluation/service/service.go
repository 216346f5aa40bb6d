//
// Tencent is pleased to support the open source community by making trpc-evalbench-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-evalbench-go is licensed under the Apache License Version 2.0.
//
//

// Package service defines the orchestration service interface: process
// submission, status, cancellation, results, and metric calculation.
package service

import (
	"context"
	"errors"

	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/process"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/record"
)

// Service errors surfaced to API handlers.
var (
	// ErrInvalidRequest marks submission errors caused by the request itself,
	// as opposed to store or infrastructure failures.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrDuplicateTask is returned when the user already has an ongoing process.
	ErrDuplicateTask = errors.New("user already has an ongoing task")
	// ErrProcessNotCompleted is returned when metrics are requested for a
	// process that has not completed.
	ErrProcessNotCompleted = errors.New("process is not completed")
	// ErrNoReport is returned when no spreadsheet artifact has been generated yet.
	ErrNoReport = errors.New("no report generated for process")
)

// Mode selects the orchestration flavor.
type Mode string

const (
	// ModeBenchmark processes models sequentially; the first failure stops the run.
	ModeBenchmark Mode = "benchmark"
	// ModeEvaluate attempts every model concurrently; failures are isolated per model.
	ModeEvaluate Mode = "evaluate"
)

// SubmitRequest is a validated process submission.
type SubmitRequest struct {
	OrgID           string             `json:"org_id"`
	ProcessName     string             `json:"process_name"`
	UserID          string             `json:"user_id"`
	SessionID       string             `json:"session_id"`
	ConfigType      string             `json:"config_type"`
	Models          []process.ModelRef `json:"models"`
	PayloadFilePath string             `json:"payload_file_path"`
	ClientAPIKey    string             `json:"client_api_key"`
	TotalRequests   int                `json:"total_requests"`
	Mode            Mode               `json:"-"`
}

// SubmitResponse acknowledges an accepted submission. The caller never blocks
// on completion.
type SubmitResponse struct {
	ProcessID string `json:"process_id"`
}

// StopRequest cancels a running process.
type StopRequest struct {
	ProcessID string `json:"process_id"`
	Service   string `json:"service"`
	OrgID     string `json:"orgId"`
}

// MetricsRequest asks for metric calculation over a completed process.
type MetricsRequest struct {
	OrgID       string   `json:"org_id"`
	ProcessID   string   `json:"process_id"`
	ProcessName string   `json:"process_name"`
	Metrics     []string `json:"metrics"`
}

// MetricsResponse acknowledges a stored metric record.
type MetricsResponse struct {
	MetricID string `json:"metric_id"`
}

// ResultsPage is one page of a user's result records.
type ResultsPage struct {
	Results  []*record.ResultRecord `json:"result"`
	DocCount int64                  `json:"doc_count"`
}

// Service orchestrates evaluation and benchmark processes.
type Service interface {
	// Submit validates the request, launches the background orchestration
	// task, and returns the generated process id immediately.
	Submit(ctx context.Context, req *SubmitRequest) (*SubmitResponse, error)
	// Status returns the status record, registry first, durable store as fallback.
	Status(ctx context.Context, processID string) (*process.StatusRecord, error)
	// Stop cooperatively cancels a running process.
	Stop(ctx context.Context, req *StopRequest) error
	// Results returns one page of the user's result records.
	Results(ctx context.Context, userID string, page, pageSize int) (*ResultsPage, error)
	// CalculateMetrics computes the named metrics over a completed process.
	CalculateMetrics(ctx context.Context, req *MetricsRequest) (*MetricsResponse, error)
	// Metric returns a stored metric record.
	Metric(ctx context.Context, metricID string) (*record.MetricRecord, error)
	// UpdateMetricRanges replaces the score bands of a metric record.
	UpdateMetricRanges(ctx context.Context, metricID string, ranges []record.ScoreRange) error
	// ListMetrics returns one page of the organization's metric records.
	ListMetrics(ctx context.Context, orgID string, page, pageSize int) ([]*record.MetricRecord, int64, error)
	// ReportPath returns the generated spreadsheet path for a process.
	ReportPath(ctx context.Context, processID string) (string, error)
	// Close releases owned resources and cancels running processes.
	Close() error
}

// EndpointResolver maps a model to its serving endpoint URL.
type EndpointResolver func(model process.ModelRef) string
