//
// Tencent is pleased to support the open source community by making trpc-evalbench-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-evalbench-go is licensed under the Apache License Version 2.0.
//
//

package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/process"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/record"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/service"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/status"
)

// stubService is a scripted service.Service used by handler tests.
type stubService struct {
	mu sync.Mutex

	submitResp *service.SubmitResponse
	submitErr  error
	lastMode   service.Mode

	statusRecs []*process.StatusRecord
	statusIdx  int
	statusErr  error

	stopErr error

	resultsPage *service.ResultsPage

	metricsResp *service.MetricsResponse
	metricsErr  error
	metricRec   *record.MetricRecord

	reportPath string
	reportErr  error
}

func (s *stubService) Submit(ctx context.Context, req *service.SubmitRequest) (*service.SubmitResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastMode = req.Mode
	return s.submitResp, s.submitErr
}

func (s *stubService) Status(ctx context.Context, processID string) (*process.StatusRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	rec := s.statusRecs[s.statusIdx]
	if s.statusIdx < len(s.statusRecs)-1 {
		s.statusIdx++
	}
	return rec, nil
}

func (s *stubService) Stop(ctx context.Context, req *service.StopRequest) error { return s.stopErr }

func (s *stubService) Results(ctx context.Context, userID string, page, pageSize int) (*service.ResultsPage, error) {
	return s.resultsPage, nil
}

func (s *stubService) CalculateMetrics(ctx context.Context, req *service.MetricsRequest) (*service.MetricsResponse, error) {
	return s.metricsResp, s.metricsErr
}

func (s *stubService) Metric(ctx context.Context, metricID string) (*record.MetricRecord, error) {
	if s.metricRec == nil {
		return nil, record.ErrNotFound
	}
	return s.metricRec, nil
}

func (s *stubService) UpdateMetricRanges(ctx context.Context, metricID string, ranges []record.ScoreRange) error {
	return nil
}

func (s *stubService) ListMetrics(ctx context.Context, orgID string, page, pageSize int) ([]*record.MetricRecord, int64, error) {
	if s.metricRec == nil {
		return nil, 0, nil
	}
	return []*record.MetricRecord{s.metricRec}, 1, nil
}

func (s *stubService) ReportPath(ctx context.Context, processID string) (string, error) {
	return s.reportPath, s.reportErr
}

func (s *stubService) Close() error { return nil }

func statusRec(overall status.ProcessStatus) *process.StatusRecord {
	return &process.StatusRecord{
		ProcessID:     "abcd1234",
		UserID:        "user1",
		OverallStatus: overall,
		Models: []process.ModelStatus{
			{ModelID: "m1", ModelName: "one", Status: overall},
		},
	}
}

func TestHandleSubmitModes(t *testing.T) {
	stub := &stubService{submitResp: &service.SubmitResponse{ProcessID: "abcd1234"}}
	srv := httptest.NewServer(New(stub).Handler())
	defer srv.Close()

	body := `{"org_id":"org1","user_id":"user1","process_name":"p","config_type":"LLM"}`
	resp, err := http.Post(srv.URL+"/api/v1/evaluations", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, service.ModeEvaluate, stub.lastMode)

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "abcd1234", payload["process_id"])

	resp, err = http.Post(srv.URL+"/api/v1/benchmarks", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, service.ModeBenchmark, stub.lastMode)
}

func TestHandleSubmitErrorClasses(t *testing.T) {
	stub := &stubService{submitErr: fmt.Errorf("%w: user id is empty", service.ErrInvalidRequest)}
	srv := httptest.NewServer(New(stub).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/evaluations", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// A store failure is not the caller's fault.
	stub.submitErr = errors.New("save status record: write concern not satisfied")
	resp, err = http.Post(srv.URL+"/api/v1/evaluations", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestHandleSubmitDuplicate(t *testing.T) {
	stub := &stubService{submitErr: service.ErrDuplicateTask}
	srv := httptest.NewServer(New(stub).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/evaluations", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHandleStatus(t *testing.T) {
	stub := &stubService{statusRecs: []*process.StatusRecord{statusRec(status.StatusInProgress)}}
	srv := httptest.NewServer(New(stub).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/processes/abcd1234/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "In Progress", payload["overall_status"])
	assert.Len(t, payload["models"], 1)
}

func TestHandleStatusNotFound(t *testing.T) {
	stub := &stubService{statusErr: record.ErrNotFound}
	srv := httptest.NewServer(New(stub).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/processes/missing/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleStatusStreamClosesOnTerminal(t *testing.T) {
	stub := &stubService{statusRecs: []*process.StatusRecord{
		statusRec(status.StatusInProgress),
		statusRec(status.StatusCompleted),
	}}
	srv := httptest.NewServer(New(stub, WithStreamInterval(10*time.Millisecond)).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/processes/abcd1234/status/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	var frames []string
	deadline := time.After(5 * time.Second)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			if strings.HasPrefix(line, "data: ") {
				frames = append(frames, strings.TrimSpace(strings.TrimPrefix(line, "data: ")))
			}
		}
	}()
	select {
	case <-done:
	case <-deadline:
		t.Fatal("stream did not close after terminal status")
	}

	require.Len(t, frames, 2)
	var first, last map[string]any
	require.NoError(t, json.Unmarshal([]byte(frames[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(frames[1]), &last))
	assert.Equal(t, "In Progress", first["overall_status"])
	assert.Equal(t, "Completed", last["overall_status"])
}

func TestHandleStop(t *testing.T) {
	stub := &stubService{}
	srv := httptest.NewServer(New(stub).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/processes/stop", "application/json",
		strings.NewReader(`{"process_id":"abcd1234","service":"LLM","orgId":"org1"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	stub.stopErr = process.ErrProcessNotRunning
	resp, err = http.Post(srv.URL+"/api/v1/processes/stop", "application/json",
		strings.NewReader(`{"process_id":"abcd1234"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHandleResults(t *testing.T) {
	stub := &stubService{resultsPage: &service.ResultsPage{
		Results:  []*record.ResultRecord{{ProcessID: "abcd1234"}},
		DocCount: 1,
	}}
	srv := httptest.NewServer(New(stub).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/results?user_id=user1&page=1&page_size=10")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Results  []*record.ResultRecord `json:"result"`
		DocCount int64                  `json:"doc_count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.EqualValues(t, 1, payload.DocCount)
	require.Len(t, payload.Results, 1)

	// user_id is mandatory.
	resp, err = http.Get(srv.URL + "/api/v1/results")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleMetricsEndpoints(t *testing.T) {
	stub := &stubService{
		metricsResp: &service.MetricsResponse{MetricID: "feedc0de"},
		metricRec: &record.MetricRecord{
			MetricID: "feedc0de",
			OrgID:    "org1",
			Ranges:   record.DefaultScoreRanges(),
		},
	}
	srv := httptest.NewServer(New(stub).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/metrics", "application/json",
		strings.NewReader(`{"org_id":"org1","process_id":"abcd1234","metrics":["Exact Match"]}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "feedc0de", payload["metric_id"])

	resp, err = http.Get(srv.URL + "/api/v1/metrics/feedc0de")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/v1/metrics/feedc0de/ranges",
		bytes.NewReader([]byte(`{"ranges":[{"label":"Pass","min":50,"max":100}]}`)))
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/v1/metrics?org_id=org1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandleMetricsNotCompleted(t *testing.T) {
	stub := &stubService{metricsErr: service.ErrProcessNotCompleted}
	srv := httptest.NewServer(New(stub).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/metrics", "application/json",
		strings.NewReader(`{"process_id":"abcd1234","metrics":["Exact Match"]}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHandleReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "abcd1234.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("workbook-bytes"), 0o600))

	stub := &stubService{reportPath: path}
	srv := httptest.NewServer(New(stub).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/processes/abcd1234/report")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "abcd1234.xlsx")

	data := make([]byte, 64)
	n, _ := resp.Body.Read(data)
	assert.Equal(t, "workbook-bytes", string(data[:n]))

	// The stored artifact survives the transfer.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestHandleReportMissing(t *testing.T) {
	stub := &stubService{reportErr: service.ErrNoReport}
	srv := httptest.NewServer(New(stub).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/processes/abcd1234/report")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	srv := httptest.NewServer(New(&stubService{}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
