//
// Tencent is pleased to support the open source community by making trpc-evalbench-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-evalbench-go is licensed under the Apache License Version 2.0.
//
//

// Package status defines process and model status values shared across the evaluation packages.
package status

import "fmt"

// ProcessStatus represents the lifecycle state of a process or of one model within a process.
type ProcessStatus string

const (
	// StatusNotStarted means the model has not been picked up by the orchestrator yet.
	// It is never used as an overall process status.
	StatusNotStarted ProcessStatus = "Not Started"
	// StatusInProgress means the process or model is currently being executed.
	StatusInProgress ProcessStatus = "In Progress"
	// StatusCompleted means execution finished successfully.
	StatusCompleted ProcessStatus = "Completed"
	// StatusFailed means execution stopped with an error.
	StatusFailed ProcessStatus = "Failed"
	// StatusCancelled means execution was stopped by an explicit stop request.
	StatusCancelled ProcessStatus = "Cancelled"
)

// Terminal reports whether the status is a terminal state.
func (s ProcessStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// ConfigType identifies the kind of model workload a process drives.
type ConfigType string

const (
	// ConfigTypeLLM drives chat completion models.
	ConfigTypeLLM ConfigType = "LLM"
	// ConfigTypeRAG drives retrieval-augmented models. Request and polling
	// semantics are identical to LLM.
	ConfigTypeRAG ConfigType = "RAG"
	// ConfigTypeSTT drives speech-to-text models.
	ConfigTypeSTT ConfigType = "STT"
)

// ParseConfigType validates and returns the config type for a submitted string.
func ParseConfigType(s string) (ConfigType, error) {
	switch ConfigType(s) {
	case ConfigTypeLLM, ConfigTypeRAG, ConfigTypeSTT:
		return ConfigType(s), nil
	default:
		return "", fmt.Errorf("invalid config type: %q", s)
	}
}
