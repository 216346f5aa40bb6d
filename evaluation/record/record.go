//
// Tencent is pleased to support the open source community by making trpc-evalbench-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-evalbench-go is licensed under the Apache License Version 2.0.
//
//

// Package record defines the durable record kinds of the result store — config,
// status, result, and metric records — and the manager interfaces over them.
package record

import (
	"context"
	"errors"
	"time"

	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/process"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/status"
)

// ErrNotFound is returned when no record matches the given key.
var ErrNotFound = errors.New("record not found")

// Row is one per-request result produced by the load driver or the evaluation path.
type Row struct {
	TestID     string  `json:"test_id" bson:"test_id"`
	RequestID  string  `json:"request_id" bson:"request_id"`
	UniqueID   string  `json:"unique_id" bson:"unique_id"`
	UserID     string  `json:"user_id" bson:"user_id"`
	Query      string  `json:"query" bson:"query"`
	Response   string  `json:"response" bson:"response"`
	Answer     string  `json:"answer,omitempty" bson:"answer,omitempty"`
	Latency    float64 `json:"latency" bson:"latency"`
	StatusCode int     `json:"status_code" bson:"status_code"`
	// Status is the HTTP status phrase, or the transport error class on failure.
	Status string `json:"status" bson:"status"`
}

// GroupResult holds all rows of one payload group together with the group's
// aggregate throughput and latency percentiles.
type GroupResult struct {
	Name string `json:"name" bson:"name"`
	Rows []Row  `json:"rows" bson:"rows"`
	// Throughput is requests per wall-clock second for this group.
	Throughput float64 `json:"throughput" bson:"throughput"`
	// Percentiles maps "50", "75", "90.5", "95", "99" to latency in seconds.
	Percentiles map[string]float64 `json:"percentiles" bson:"percentiles"`
}

// ModelResult is the raw structured output of one model's run.
type ModelResult struct {
	ModelID   string        `json:"model_id" bson:"model_id"`
	ModelName string        `json:"model_name" bson:"model_name"`
	Groups    []GroupResult `json:"groups" bson:"groups"`
}

// ResultRecord is the per-process result document. Created empty at process
// start, appended to per model as each completes.
type ResultRecord struct {
	ProcessID   string            `json:"process_id" bson:"process_id"`
	OrgID       string            `json:"org_id" bson:"org_id"`
	UserID      string            `json:"user_id" bson:"user_id"`
	ProcessName string            `json:"process_name" bson:"process_name"`
	ConfigType  status.ConfigType `json:"config_type" bson:"config_type"`
	Timestamp   string            `json:"timestamp" bson:"timestamp"`
	Models      []ModelResult     `json:"models" bson:"models"`
	// ResultsPath is the generated spreadsheet artifact, set once at completion.
	ResultsPath string `json:"results_path,omitempty" bson:"results_path,omitempty"`
}

// ScoreRange is one user-editable score band of a metric record.
type ScoreRange struct {
	Label string  `json:"label" bson:"label"`
	Min   float64 `json:"min" bson:"min"`
	Max   float64 `json:"max" bson:"max"`
}

// DefaultScoreRanges returns the default score bands attached to new metric records.
func DefaultScoreRanges() []ScoreRange {
	return []ScoreRange{
		{Label: "Excellent", Min: 90, Max: 100},
		{Label: "Good", Min: 70, Max: 89},
		{Label: "Average", Min: 40, Max: 69},
		{Label: "Poor", Min: 0, Max: 39},
	}
}

// ModelMetrics holds the metric engine output for one model.
type ModelMetrics struct {
	ModelID        string         `json:"model_id" bson:"model_id"`
	MetricsResults map[string]any `json:"metrics_results" bson:"metrics_results"`
}

// MetricRecord is one metric-calculation result over a completed process.
type MetricRecord struct {
	MetricID    string         `json:"metric_id" bson:"metric_id"`
	OrgID       string         `json:"organization_id" bson:"org_id"`
	ProcessID   string         `json:"process_id" bson:"process_id"`
	ProcessName string         `json:"process_name" bson:"process_name"`
	Ranges      []ScoreRange   `json:"ranges" bson:"ranges"`
	Models      []ModelMetrics `json:"models" bson:"models"`
	CreatedAt   time.Time      `json:"created_at" bson:"created_at"`
}

// ConfigRecord persists the submitted process configuration for auditability
// and restart-safe duplicate-task checks.
type ConfigRecord struct {
	ProcessID string           `json:"process_id" bson:"process_id"`
	OrgID     string           `json:"org_id" bson:"org_id"`
	Process   *process.Process `json:"process" bson:"process"`
	CreatedAt time.Time        `json:"created_at" bson:"created_at"`
}

// StatusManager persists status records. The durable store is the system of
// record; it is always written before the in-memory registry is refreshed.
type StatusManager interface {
	// Save upserts the status record keyed by process id.
	Save(ctx context.Context, rec *process.StatusRecord) error
	// Get returns the status record for a process.
	Get(ctx context.Context, processID string) (*process.StatusRecord, error)
	// HasOngoing reports whether the user has a non-terminal process on record.
	HasOngoing(ctx context.Context, userID string) (bool, error)
}

// ResultManager persists result records.
type ResultManager interface {
	// Save upserts the whole result record keyed by process id.
	Save(ctx context.Context, rec *ResultRecord) error
	// Get returns the result record for a process.
	Get(ctx context.Context, processID string) (*ResultRecord, error)
	// AppendModelResult appends one model's result to the record.
	AppendModelResult(ctx context.Context, processID string, result ModelResult) error
	// SetResultsPath stores the generated spreadsheet path.
	SetResultsPath(ctx context.Context, processID, path string) error
	// ListByUser returns one page of the user's result records plus the total count.
	ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*ResultRecord, int64, error)
}

// MetricManager persists metric records.
type MetricManager interface {
	// Save stores a new metric record keyed by metric id.
	Save(ctx context.Context, rec *MetricRecord) error
	// Get returns the metric record for a metric id.
	Get(ctx context.Context, metricID string) (*MetricRecord, error)
	// UpdateRanges replaces the score bands of a metric record.
	UpdateRanges(ctx context.Context, metricID string, ranges []ScoreRange) error
	// List returns one page of the organization's metric records plus the total count.
	List(ctx context.Context, orgID string, page, pageSize int) ([]*MetricRecord, int64, error)
}

// ConfigManager persists config records.
type ConfigManager interface {
	// Save stores the submitted configuration keyed by process id.
	Save(ctx context.Context, rec *ConfigRecord) error
	// Get returns the config record for a process.
	Get(ctx context.Context, processID string) (*ConfigRecord, error)
}
