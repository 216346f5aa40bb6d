//
// Tencent is pleased to support the open source community by making trpc-evalbench-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-evalbench-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides in-memory record managers for tests and single-node development.
package inmemory

import (
	"context"
	"sort"
	"sync"

	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/process"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/record"
)

// StatusManager implements record.StatusManager with an in-process map.
type StatusManager struct {
	mu      sync.RWMutex
	records map[string]*process.StatusRecord
}

// NewStatusManager creates an in-memory status manager.
func NewStatusManager() *StatusManager {
	return &StatusManager{records: make(map[string]*process.StatusRecord)}
}

// Save implements record.StatusManager.Save.
func (m *StatusManager) Save(ctx context.Context, rec *process.StatusRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ProcessID] = rec.Clone()
	return nil
}

// Get implements record.StatusManager.Get.
func (m *StatusManager) Get(ctx context.Context, processID string) (*process.StatusRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[processID]
	if !ok {
		return nil, record.ErrNotFound
	}
	return rec.Clone(), nil
}

// HasOngoing implements record.StatusManager.HasOngoing.
func (m *StatusManager) HasOngoing(ctx context.Context, userID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.records {
		if rec.UserID == userID && !rec.OverallStatus.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

// ResultManager implements record.ResultManager with an in-process map.
type ResultManager struct {
	mu      sync.RWMutex
	records map[string]*record.ResultRecord
	order   []string
}

// NewResultManager creates an in-memory result manager.
func NewResultManager() *ResultManager {
	return &ResultManager{records: make(map[string]*record.ResultRecord)}
}

// Save implements record.ResultManager.Save.
func (m *ResultManager) Save(ctx context.Context, rec *record.ResultRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.ProcessID]; !ok {
		m.order = append(m.order, rec.ProcessID)
	}
	clone := *rec
	clone.Models = append([]record.ModelResult(nil), rec.Models...)
	m.records[rec.ProcessID] = &clone
	return nil
}

// Get implements record.ResultManager.Get.
func (m *ResultManager) Get(ctx context.Context, processID string) (*record.ResultRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[processID]
	if !ok {
		return nil, record.ErrNotFound
	}
	clone := *rec
	clone.Models = append([]record.ModelResult(nil), rec.Models...)
	return &clone, nil
}

// AppendModelResult implements record.ResultManager.AppendModelResult.
func (m *ResultManager) AppendModelResult(ctx context.Context, processID string, result record.ModelResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[processID]
	if !ok {
		return record.ErrNotFound
	}
	rec.Models = append(rec.Models, result)
	return nil
}

// SetResultsPath implements record.ResultManager.SetResultsPath.
func (m *ResultManager) SetResultsPath(ctx context.Context, processID, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[processID]
	if !ok {
		return record.ErrNotFound
	}
	rec.ResultsPath = path
	return nil
}

// ListByUser implements record.ResultManager.ListByUser.
func (m *ResultManager) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*record.ResultRecord, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []*record.ResultRecord
	for _, id := range m.order {
		rec := m.records[id]
		if rec.UserID == userID {
			clone := *rec
			clone.Models = append([]record.ModelResult(nil), rec.Models...)
			matched = append(matched, &clone)
		}
	}
	return paginate(matched, page, pageSize), int64(len(matched)), nil
}

// MetricManager implements record.MetricManager with an in-process map.
type MetricManager struct {
	mu      sync.RWMutex
	records map[string]*record.MetricRecord
}

// NewMetricManager creates an in-memory metric manager.
func NewMetricManager() *MetricManager {
	return &MetricManager{records: make(map[string]*record.MetricRecord)}
}

// Save implements record.MetricManager.Save.
func (m *MetricManager) Save(ctx context.Context, rec *record.MetricRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *rec
	m.records[rec.MetricID] = &clone
	return nil
}

// Get implements record.MetricManager.Get.
func (m *MetricManager) Get(ctx context.Context, metricID string) (*record.MetricRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[metricID]
	if !ok {
		return nil, record.ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

// UpdateRanges implements record.MetricManager.UpdateRanges.
func (m *MetricManager) UpdateRanges(ctx context.Context, metricID string, ranges []record.ScoreRange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[metricID]
	if !ok {
		return record.ErrNotFound
	}
	rec.Ranges = append([]record.ScoreRange(nil), ranges...)
	return nil
}

// List implements record.MetricManager.List.
func (m *MetricManager) List(ctx context.Context, orgID string, page, pageSize int) ([]*record.MetricRecord, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []*record.MetricRecord
	for _, rec := range m.records {
		if rec.OrgID == orgID {
			clone := *rec
			matched = append(matched, &clone)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })
	return paginate(matched, page, pageSize), int64(len(matched)), nil
}

// ConfigManager implements record.ConfigManager with an in-process map.
type ConfigManager struct {
	mu      sync.RWMutex
	records map[string]*record.ConfigRecord
}

// NewConfigManager creates an in-memory config manager.
func NewConfigManager() *ConfigManager {
	return &ConfigManager{records: make(map[string]*record.ConfigRecord)}
}

// Save implements record.ConfigManager.Save.
func (m *ConfigManager) Save(ctx context.Context, rec *record.ConfigRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *rec
	m.records[rec.ProcessID] = &clone
	return nil
}

// Get implements record.ConfigManager.Get.
func (m *ConfigManager) Get(ctx context.Context, processID string) (*record.ConfigRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[processID]
	if !ok {
		return nil, record.ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

// paginate slices one 1-indexed page out of the matched records.
func paginate[T any](items []T, page, pageSize int) []T {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return nil
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
