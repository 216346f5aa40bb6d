//
// Tencent is pleased to support the open source community by making trpc-evalbench-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-evalbench-go is licensed under the Apache License Version 2.0.
//
//

// Package process defines the unit of orchestration work and its status record.
package process

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/status"
)

// processIDLength is the number of hex characters in a generated process id.
const processIDLength = 8

// ModelRef identifies one model configured for a process.
type ModelRef struct {
	ModelID   string `json:"model_id" bson:"model_id"`
	ModelName string `json:"model_name" bson:"model_name"`
}

// Process is the unit of orchestration work. It is immutable after creation;
// progress is tracked by the derived StatusRecord.
type Process struct {
	ProcessID        string            `json:"process_id" bson:"process_id"`
	ProcessName      string            `json:"process_name" bson:"process_name"`
	OrgID            string            `json:"org_id" bson:"org_id"`
	UserID           string            `json:"user_id" bson:"user_id"`
	SessionID        string            `json:"session_id" bson:"session_id"`
	ConfigType       status.ConfigType `json:"config_type" bson:"config_type"`
	Models           []ModelRef        `json:"models" bson:"models"`
	PayloadReference string            `json:"payload_reference" bson:"payload_reference"`
	ClientAPIKey     string            `json:"client_api_key" bson:"client_api_key"`
	TotalRequests    int               `json:"total_requests" bson:"total_requests"`
	CreatedAt        time.Time         `json:"created_at" bson:"created_at"`
}

// NewProcessID generates an 8-hex-char process identifier.
func NewProcessID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:processIDLength]
}

// ModelStatus is the status of one model within a process.
type ModelStatus struct {
	ModelID   string               `json:"model_id" bson:"model_id"`
	ModelName string               `json:"model_name" bson:"model_name"`
	Status    status.ProcessStatus `json:"status" bson:"status"`
}

// StatusRecord tracks per-model and overall progress of one process.
// It is mutated exclusively by the orchestrator.
type StatusRecord struct {
	ProcessID     string               `json:"process_id" bson:"process_id"`
	OrgID         string               `json:"org_id" bson:"org_id"`
	UserID        string               `json:"user_id" bson:"user_id"`
	OverallStatus status.ProcessStatus `json:"overall_status" bson:"overall_status"`
	Models        []ModelStatus        `json:"models" bson:"models"`
	StartTime     time.Time            `json:"start_time" bson:"start_time"`
	EndTime       *time.Time           `json:"end_time,omitempty" bson:"end_time,omitempty"`
}

// NewStatusRecord builds the initial status record for a process: every model
// Not Started, overall In Progress.
func NewStatusRecord(p *Process) *StatusRecord {
	models := make([]ModelStatus, len(p.Models))
	for i, m := range p.Models {
		models[i] = ModelStatus{ModelID: m.ModelID, ModelName: m.ModelName, Status: status.StatusNotStarted}
	}
	return &StatusRecord{
		ProcessID:     p.ProcessID,
		OrgID:         p.OrgID,
		UserID:        p.UserID,
		OverallStatus: status.StatusInProgress,
		Models:        models,
		StartTime:     time.Now(),
	}
}

// SetModelStatus updates the status of one model entry. Unknown model ids are ignored.
func (r *StatusRecord) SetModelStatus(modelID string, st status.ProcessStatus) {
	for i := range r.Models {
		if r.Models[i].ModelID == modelID {
			r.Models[i].Status = st
			return
		}
	}
}

// ModelStatusOf returns the status of one model entry.
func (r *StatusRecord) ModelStatusOf(modelID string) (status.ProcessStatus, bool) {
	for i := range r.Models {
		if r.Models[i].ModelID == modelID {
			return r.Models[i].Status, true
		}
	}
	return "", false
}

// Finalize derives the overall status from the model entries and stamps the end time.
// Overall is Completed only if every model completed; Cancelled if any model was
// cancelled; otherwise Failed.
func (r *StatusRecord) Finalize() {
	overall := status.StatusCompleted
	for _, m := range r.Models {
		switch m.Status {
		case status.StatusCancelled:
			overall = status.StatusCancelled
		case status.StatusCompleted:
		default:
			if overall != status.StatusCancelled {
				overall = status.StatusFailed
			}
		}
	}
	r.OverallStatus = overall
	now := time.Now()
	r.EndTime = &now
}

// CancelRemaining marks every non-completed model Cancelled and sets the
// overall status to Cancelled.
func (r *StatusRecord) CancelRemaining() {
	for i := range r.Models {
		if r.Models[i].Status != status.StatusCompleted {
			r.Models[i].Status = status.StatusCancelled
		}
	}
	r.OverallStatus = status.StatusCancelled
	now := time.Now()
	r.EndTime = &now
}

// Clone returns a deep copy so concurrent readers never observe partial writes.
func (r *StatusRecord) Clone() *StatusRecord {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Models = make([]ModelStatus, len(r.Models))
	copy(clone.Models, r.Models)
	if r.EndTime != nil {
		end := *r.EndTime
		clone.EndTime = &end
	}
	return &clone
}
