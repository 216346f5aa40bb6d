//
// Tencent is pleased to support the open source community by making trpc-evalbench-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-evalbench-go is licensed under the Apache License Version 2.0.
//
//

// Package api exposes the evaluation orchestration service over HTTP: process
// submission, status polling and streaming, results, metrics, and reports.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/service"
)

// defaultStreamInterval is how often the status stream emits a snapshot.
const defaultStreamInterval = 2 * time.Second

// Server routes HTTP requests to the orchestration service.
type Server struct {
	svc            service.Service
	router         *mux.Router
	streamInterval time.Duration
}

// Option configures the Server instance.
type Option func(*Server)

// WithStreamInterval overrides the status stream emission interval.
func WithStreamInterval(interval time.Duration) Option {
	return func(s *Server) {
		if interval > 0 {
			s.streamInterval = interval
		}
	}
}

// New creates an API server over the orchestration service.
func New(svc service.Service, opts ...Option) *Server {
	s := &Server{
		svc:            svc,
		router:         mux.NewRouter(),
		streamInterval: defaultStreamInterval,
	}
	for _, opt := range opts {
		opt(s)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Length", "Content-Type", "Content-Disposition"},
	})
	s.router.Use(c.Handler)
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for mounting or testing.
func (s *Server) Handler() http.Handler { return s.router }

// registerRoutes sets up all REST endpoints.
func (s *Server) registerRoutes() {
	s.router.HandleFunc("/api/v1/evaluations", s.handleSubmitEvaluation).Methods(http.MethodPost)
	s.router.HandleFunc("/api/v1/benchmarks", s.handleSubmitBenchmark).Methods(http.MethodPost)

	// Process APIs.
	s.router.HandleFunc("/api/v1/processes/{process_id}/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/processes/{process_id}/status/stream", s.handleStatusStream).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/processes/{process_id}/report", s.handleReport).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/processes/stop", s.handleStop).Methods(http.MethodPost)

	// Result and metric APIs.
	s.router.HandleFunc("/api/v1/results", s.handleResults).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/metrics", s.handleCalculateMetrics).Methods(http.MethodPost)
	s.router.HandleFunc("/api/v1/metrics", s.handleListMetrics).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/metrics/{metric_id}", s.handleGetMetric).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/metrics/{metric_id}/ranges", s.handleUpdateMetricRanges).Methods(http.MethodPut)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	// OPTIONS handlers to allow CORS pre-flight.
	preflight := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
	s.router.HandleFunc("/api/v1/evaluations", preflight).Methods(http.MethodOptions)
	s.router.HandleFunc("/api/v1/benchmarks", preflight).Methods(http.MethodOptions)
	s.router.HandleFunc("/api/v1/metrics", preflight).Methods(http.MethodOptions)
	s.router.HandleFunc("/api/v1/processes/stop", preflight).Methods(http.MethodOptions)
}

// writeJSON writes v as the JSON response body.
func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a uniform JSON error body.
func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	s.writeJSON(w, code, map[string]any{
		"status_code": code,
		"message":     err.Error(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
