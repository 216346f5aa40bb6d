//
// Tencent is pleased to support the open source community by making trpc-evalbench-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-evalbench-go is licensed under the Apache License Version 2.0.
//
//

// Package loaddriver executes a weighted workload of requests against one model
// endpoint with bounded concurrency and collects timing and outcome data.
package loaddriver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/payload"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/record"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/status"
	"trpc.group/trpc-go/trpc-evalbench-go/log"
)

const (
	// defaultConcurrency bounds in-flight requests per run.
	defaultConcurrency = 50
	// defaultRequestTimeout is deliberately generous: model endpoints under
	// load can take minutes per completion.
	defaultRequestTimeout = 5 * time.Minute
	// timestampLayout formats the run timestamp stored on result records.
	timestampLayout = "2006-01-02 15:04:05"
)

// PercentileLevels are the latency percentiles reported per group.
var PercentileLevels = []float64{50, 75, 90.5, 95, 99}

// RunParams identifies the target and the session issuing the workload.
type RunParams struct {
	// Target is the model endpoint URL.
	Target string
	// Service selects the request body shape.
	Service status.ConfigType
	// TotalRequests is the per-group request count target.
	TotalRequests int
	// ClientAPIKey is forwarded on every request.
	ClientAPIKey string
	// DeployID identifies the model deployment.
	DeployID string
	// UserID and SessionID tag every result row.
	UserID    string
	SessionID string
}

// Driver fires weighted request workloads with bounded concurrency.
type Driver struct {
	httpClient  *http.Client
	concurrency int
	progress    func(completed, total int)
	rng         *rand.Rand
}

// Option configures a Driver.
type Option func(*Driver)

// WithConcurrency sets the concurrent request bound.
func WithConcurrency(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Driver) {
		if c != nil {
			d.httpClient = c
		}
	}
}

// WithProgress installs a progress callback invoked as requests complete.
func WithProgress(fn func(completed, total int)) Option {
	return func(d *Driver) { d.progress = fn }
}

// WithRand sets a deterministic source for workload shuffling, used by tests.
func WithRand(rng *rand.Rand) Option {
	return func(d *Driver) { d.rng = rng }
}

// New creates a load driver.
func New(opt ...Option) *Driver {
	d := &Driver{
		httpClient:  &http.Client{Timeout: defaultRequestTimeout},
		concurrency: defaultConcurrency,
	}
	for _, o := range opt {
		o(d)
	}
	return d
}

// Run executes the workload of every payload group against the target and
// returns per-group results plus the run timestamp. A single request's failure
// never aborts the run; a distribution-sum mismatch aborts the whole group's
// generation before any request is sent.
func (d *Driver) Run(ctx context.Context, set payload.Set, params RunParams) ([]record.GroupResult, string, error) {
	timestamp := time.Now().Format(timestampLayout)
	groups := make([]record.GroupResult, 0, len(set))
	for _, group := range set {
		result, err := d.runGroup(ctx, group, params)
		if err != nil {
			return nil, "", err
		}
		groups = append(groups, result)
	}
	return groups, timestamp, nil
}

// runGroup expands one group's weighted workload and drains it through the pool.
func (d *Driver) runGroup(ctx context.Context, group payload.Group, params RunParams) (record.GroupResult, error) {
	workload, err := group.ExpandWorkload(params.TotalRequests, d.rng)
	if err != nil {
		return record.GroupResult{}, err
	}

	// completedCh drains finished request ids and feeds the progress signal.
	// It is observability only; correctness never depends on it.
	completedCh := make(chan string, len(workload))
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		completed := 0
		for range completedCh {
			completed++
			log.Debugf("group %s: %d/%d completed", group.Name, completed, len(workload))
			if d.progress != nil {
				d.progress(completed, len(workload))
			}
		}
	}()

	pool, err := ants.NewPool(d.concurrency)
	if err != nil {
		return record.GroupResult{}, fmt.Errorf("create request pool: %w", err)
	}
	defer pool.Release()

	rows := make([]record.Row, len(workload))
	var wg sync.WaitGroup
	start := time.Now()
	for i, item := range workload {
		i, item := i, item
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			rows[i] = d.execute(ctx, group.Name, item, params)
			completedCh <- rows[i].RequestID
		}); err != nil {
			// Pool submission only fails once the pool is released; emit the
			// row anyway so every queued request has a result.
			rows[i] = failedRow(group.Name, item, params, "pool submit: "+err.Error())
			wg.Done()
		}
	}
	wg.Wait()
	elapsed := time.Since(start).Seconds()
	close(completedCh)
	<-drained

	latencies := make([]float64, len(rows))
	for i, row := range rows {
		latencies[i] = row.Latency
	}
	throughput := 0.0
	if elapsed > 0 {
		throughput = float64(len(rows)) / elapsed
	}
	return record.GroupResult{
		Name:        group.Name,
		Rows:        rows,
		Throughput:  throughput,
		Percentiles: Percentiles(latencies, PercentileLevels),
	}, nil
}

// execute issues one request and always returns a result row.
func (d *Driver) execute(ctx context.Context, testID string, item payload.Item, params RunParams) record.Row {
	body, err := json.Marshal(requestBody(item, params))
	if err != nil {
		return failedRow(testID, item, params, "marshal request: "+err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, params.Target, bytes.NewReader(body))
	if err != nil {
		return failedRow(testID, item, params, "build request: "+err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	if params.ClientAPIKey != "" {
		req.Header.Set("X-Api-Key", params.ClientAPIKey)
	}

	row := record.Row{
		TestID:    testID,
		RequestID: uuid.NewString(),
		UniqueID:  params.SessionID,
		UserID:    params.UserID,
		Query:     item.Prompt,
		Answer:    item.Answer,
	}
	start := time.Now()
	resp, err := d.httpClient.Do(req)
	row.Latency = time.Since(start).Seconds()
	if err != nil {
		// Transport failure: the row is still emitted with an empty response.
		row.Status = "transport error: " + err.Error()
		return row
	}
	defer resp.Body.Close()
	row.StatusCode = resp.StatusCode
	row.Status = http.StatusText(resp.StatusCode)
	if resp.StatusCode != http.StatusOK {
		return row
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		row.Status = "read response: " + err.Error()
		return row
	}
	row.Response = ParseResponse(data, params.Service)
	return row
}

// failedRow emits the mandatory result row for a request that never ran.
func failedRow(testID string, item payload.Item, params RunParams, reason string) record.Row {
	return record.Row{
		TestID:    testID,
		RequestID: uuid.NewString(),
		UniqueID:  params.SessionID,
		UserID:    params.UserID,
		Query:     item.Prompt,
		Answer:    item.Answer,
		Status:    reason,
	}
}

// requestBody builds the service-shaped request payload.
func requestBody(item payload.Item, params RunParams) map[string]any {
	body := map[string]any{
		"deployId": params.DeployID,
		"userId":   params.UserID,
		"uniqueId": params.SessionID,
	}
	switch params.Service {
	case status.ConfigTypeSTT:
		body["input_file"] = item.InputFile
	case status.ConfigTypeLLM, status.ConfigTypeRAG:
		body["inputData"] = map[string]any{"question": item.Prompt}
	default:
		body["query"] = item.Prompt
	}
	return body
}

// Percentiles computes nearest-rank percentiles over the latencies, keyed by
// the percentile level ("50", "90.5", ...).
func Percentiles(latencies []float64, levels []float64) map[string]float64 {
	result := make(map[string]float64, len(levels))
	if len(latencies) == 0 {
		for _, level := range levels {
			result[formatLevel(level)] = 0
		}
		return result
	}
	sorted := append([]float64(nil), latencies...)
	sort.Float64s(sorted)
	for _, level := range levels {
		rank := int(math.Ceil(level / 100 * float64(len(sorted))))
		if rank < 1 {
			rank = 1
		}
		if rank > len(sorted) {
			rank = len(sorted)
		}
		result[formatLevel(level)] = sorted[rank-1]
	}
	return result
}

// formatLevel renders a percentile level without trailing zeros ("90.5", "95").
func formatLevel(level float64) string {
	if level == math.Trunc(level) {
		return fmt.Sprintf("%.0f", level)
	}
	return fmt.Sprintf("%g", level)
}
