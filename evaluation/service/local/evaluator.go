//
// Tencent is pleased to support the open source community by making trpc-evalbench-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-evalbench-go is licensed under the Apache License Version 2.0.
//
//

package local

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/loaddriver"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/payload"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/process"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/record"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/status"
	"trpc.group/trpc-go/trpc-evalbench-go/log"
)

// jobStatus is the downstream job document returned while polling.
type jobStatus struct {
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Downstream job states.
const (
	jobStateCompleted = "completed"
	jobStateFailed    = "failed"
	jobStateCancelled = "cancelled"
)

// evaluateGroup issues one request per payload item with bounded concurrency
// and aggregates the group's timing figures.
func (r *processRun) evaluateGroup(ctx context.Context, target, deployID string, group payload.Group) record.GroupResult {
	pool, err := ants.NewPool(r.svc.itemParallelism)
	if err != nil {
		log.Errorf("process %s: create item pool: %v", r.proc.ProcessID, err)
		return record.GroupResult{Name: group.Name, Percentiles: loaddriver.Percentiles(nil, loaddriver.PercentileLevels)}
	}
	defer pool.Release()

	rows := make([]record.Row, len(group.Items))
	var wg sync.WaitGroup
	start := time.Now()
	for i, item := range group.Items {
		i, item := i, item
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			rows[i] = r.evaluateItem(ctx, target, deployID, group.Name, item)
		}); err != nil {
			rows[i] = record.Row{
				TestID:    group.Name,
				RequestID: uuid.NewString(),
				UniqueID:  r.proc.SessionID,
				UserID:    r.proc.UserID,
				Query:     item.Prompt,
				Answer:    item.Answer,
				Status:    "pool submit: " + err.Error(),
			}
			wg.Done()
		}
	}
	wg.Wait()
	elapsed := time.Since(start).Seconds()

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
		Percentiles: loaddriver.Percentiles(latencies, loaddriver.PercentileLevels),
	}
}

// evaluateItem issues one evaluation request and always returns a result row.
// LLM and RAG endpoints hand back a job id that is polled to completion; the
// row's latency spans dispatch through the final poll.
func (r *processRun) evaluateItem(ctx context.Context, target, deployID, testID string, item payload.Item) record.Row {
	row := record.Row{
		TestID:    testID,
		RequestID: uuid.NewString(),
		UniqueID:  r.proc.SessionID,
		UserID:    r.proc.UserID,
		Query:     item.Prompt,
		Answer:    item.Answer,
	}
	body, err := json.Marshal(itemRequestBody(item, deployID, r.proc))
	if err != nil {
		row.Status = "marshal request: " + err.Error()
		return row
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		row.Status = "build request: " + err.Error()
		return row
	}
	req.Header.Set("Content-Type", "application/json")
	if r.proc.ClientAPIKey != "" {
		req.Header.Set("X-Api-Key", r.proc.ClientAPIKey)
	}

	start := time.Now()
	resp, err := r.svc.httpClient.Do(req)
	if err != nil {
		row.Latency = time.Since(start).Seconds()
		row.Status = "transport error: " + err.Error()
		return row
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	row.StatusCode = resp.StatusCode
	row.Status = http.StatusText(resp.StatusCode)
	if err != nil {
		row.Latency = time.Since(start).Seconds()
		row.Status = "read response: " + err.Error()
		row.StatusCode = 0
		return row
	}
	if resp.StatusCode != http.StatusOK {
		row.Latency = time.Since(start).Seconds()
		return row
	}

	switch r.proc.ConfigType {
	case status.ConfigTypeLLM, status.ConfigTypeRAG:
		var job jobStatus
		if unmarshalErr := json.Unmarshal(data, &job); unmarshalErr == nil && job.JobID != "" {
			response, pollErr := r.pollJob(ctx, target, job.JobID)
			row.Latency = time.Since(start).Seconds()
			if pollErr != nil {
				row.StatusCode = 0
				row.Status = pollErr.Error()
				return row
			}
			row.Response = loaddriver.ExtractAssistant(response)
			return row
		}
		// Synchronous endpoint: the body already carries the answer.
		row.Latency = time.Since(start).Seconds()
		row.Response = loaddriver.ParseResponse(data, r.proc.ConfigType)
	default:
		row.Latency = time.Since(start).Seconds()
		row.Response = loaddriver.ParseResponse(data, r.proc.ConfigType)
	}
	return row
}

// pollJob polls the downstream job until it terminates. The loop is bounded:
// exhausting the attempt budget is a terminal timeout error for the item.
func (r *processRun) pollJob(ctx context.Context, target, jobID string) (string, error) {
	url := strings.TrimRight(target, "/") + "/jobs/" + jobID
	for attempt := 0; attempt < r.svc.pollMaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(r.svc.pollInterval):
		}
		job, err := r.fetchJob(ctx, url)
		if err != nil {
			log.Debugf("process %s: poll job %s: %v", r.proc.ProcessID, jobID, err)
			continue
		}
		switch job.Status {
		case jobStateCompleted:
			return job.Response, nil
		case jobStateFailed:
			if job.Error != "" {
				return "", fmt.Errorf("job %s failed: %s", jobID, job.Error)
			}
			return "", fmt.Errorf("job %s failed", jobID)
		case jobStateCancelled:
			return "", fmt.Errorf("job %s cancelled downstream", jobID)
		}
	}
	return "", fmt.Errorf("job %s did not finish within %d polls", jobID, r.svc.pollMaxAttempts)
}

// fetchJob retrieves the downstream job document once.
func (r *processRun) fetchJob(ctx context.Context, url string) (*jobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if r.proc.ClientAPIKey != "" {
		req.Header.Set("X-Api-Key", r.proc.ClientAPIKey)
	}
	resp, err := r.svc.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("job status %d", resp.StatusCode)
	}
	var job jobStatus
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, err
	}
	return &job, nil
}

// itemRequestBody builds the service-shaped evaluation request payload.
func itemRequestBody(item payload.Item, deployID string, proc *process.Process) map[string]any {
	body := map[string]any{
		"deployId": deployID,
		"userId":   proc.UserID,
		"uniqueId": proc.SessionID,
	}
	switch proc.ConfigType {
	case status.ConfigTypeSTT:
		body["input_file"] = item.InputFile
	case status.ConfigTypeLLM, status.ConfigTypeRAG:
		body["inputData"] = map[string]any{"question": item.Prompt}
	default:
		body["query"] = item.Prompt
	}
	return body
}
