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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/process"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/record"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/service"
	"trpc.group/trpc-go/trpc-evalbench-go/log"
)

func (s *Server) handleSubmitEvaluation(w http.ResponseWriter, r *http.Request) {
	s.handleSubmit(w, r, service.ModeEvaluate)
}

func (s *Server) handleSubmitBenchmark(w http.ResponseWriter, r *http.Request) {
	s.handleSubmit(w, r, service.ModeBenchmark)
}

// handleSubmit accepts a submission and returns the process id immediately;
// the orchestration task runs in the background.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request, mode service.Mode) {
	var req service.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	defer r.Body.Close()
	req.Mode = mode

	resp, err := s.svc.Submit(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateTask):
			s.writeError(w, http.StatusConflict, err)
		case errors.Is(err, service.ErrInvalidRequest):
			s.writeError(w, http.StatusBadRequest, err)
		default:
			// Store and infrastructure failures are not the caller's fault.
			s.writeError(w, statusCode(err), err)
		}
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"status_code": http.StatusAccepted,
		"process_id":  resp.ProcessID,
		"message":     "process accepted",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	processID := mux.Vars(r)["process_id"]
	rec, err := s.svc.Status(r.Context(), processID)
	if err != nil {
		s.writeError(w, statusCode(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, statusPayload(rec))
}

// handleStatusStream emits the status record as SSE data frames on a fixed
// interval and closes the stream once the status turns terminal.
func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	processID := mux.Vars(r)["process_id"]
	rec, err := s.svc.Status(r.Context(), processID)
	if err != nil {
		s.writeError(w, statusCode(err), err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(s.streamInterval)
	defer ticker.Stop()
	for {
		data, err := json.Marshal(statusPayload(rec))
		if err != nil {
			log.Errorf("marshal status stream frame: %v", err)
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
		if rec.OverallStatus.Terminal() {
			return
		}
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
		if rec, err = s.svc.Status(r.Context(), processID); err != nil {
			log.Errorf("status stream for %s: %v", processID, err)
			return
		}
	}
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	var req service.StopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	defer r.Body.Close()
	if err := s.svc.Stop(r.Context(), &req); err != nil {
		s.writeError(w, statusCode(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status_code": http.StatusOK,
		"message":     "stop requested",
	})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("user_id is required"))
		return
	}
	page, pageSize := pagination(r)
	resp, err := s.svc.Results(r.Context(), userID, page, pageSize)
	if err != nil {
		s.writeError(w, statusCode(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCalculateMetrics(w http.ResponseWriter, r *http.Request) {
	var req service.MetricsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	defer r.Body.Close()
	resp, err := s.svc.CalculateMetrics(r.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrProcessNotCompleted) {
			s.writeError(w, http.StatusConflict, err)
			return
		}
		s.writeError(w, statusCode(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"metric_id": resp.MetricID,
		"detail":    "metrics calculated",
	})
}

func (s *Server) handleGetMetric(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.Metric(r.Context(), mux.Vars(r)["metric_id"])
	if err != nil {
		s.writeError(w, statusCode(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleUpdateMetricRanges(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ranges []record.ScoreRange `json:"ranges"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	defer r.Body.Close()
	if err := s.svc.UpdateMetricRanges(r.Context(), mux.Vars(r)["metric_id"], req.Ranges); err != nil {
		s.writeError(w, statusCode(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status_code": http.StatusOK,
		"message":     "ranges updated",
	})
}

func (s *Server) handleListMetrics(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get("org_id")
	if orgID == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("org_id is required"))
		return
	}
	page, pageSize := pagination(r)
	records, count, err := s.svc.ListMetrics(r.Context(), orgID, page, pageSize)
	if err != nil {
		s.writeError(w, statusCode(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"result":    records,
		"doc_count": count,
	})
}

// handleReport streams the spreadsheet artifact as an attachment. The artifact
// is served from a temporary copy that is removed after the transfer.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	processID := mux.Vars(r)["process_id"]
	path, err := s.svc.ReportPath(r.Context(), processID)
	if err != nil {
		s.writeError(w, statusCode(err), err)
		return
	}
	tmp, err := copyToTemp(path)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	defer func() {
		if err := os.Remove(tmp); err != nil {
			log.Errorf("remove report copy %s: %v", tmp, err)
		}
	}()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, tmp)
}

// copyToTemp duplicates the artifact so the served copy can be deleted without
// touching the stored one.
func copyToTemp(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open report: %w", err)
	}
	defer src.Close()
	dst, err := os.CreateTemp("", "report-*.xlsx")
	if err != nil {
		return "", fmt.Errorf("create report copy: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("copy report: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("close report copy: %w", err)
	}
	return dst.Name(), nil
}

// statusPayload shapes a status record for API responses.
func statusPayload(rec *process.StatusRecord) map[string]any {
	return map[string]any{
		"process_id":     rec.ProcessID,
		"overall_status": rec.OverallStatus,
		"models":         rec.Models,
	}
}

// pagination reads page/page_size query parameters with defaults.
func pagination(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 {
		pageSize = 10
	}
	return page, pageSize
}

// statusCode maps service errors to HTTP status codes.
func statusCode(err error) int {
	switch {
	case errors.Is(err, record.ErrNotFound),
		errors.Is(err, process.ErrProcessNotFound),
		errors.Is(err, service.ErrNoReport):
		return http.StatusNotFound
	case errors.Is(err, process.ErrProcessNotRunning):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
