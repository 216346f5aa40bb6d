//
// Tencent is pleased to support the open source community by making trpc-evalbench-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-evalbench-go is licensed under the Apache License Version 2.0.
//
//

// Package mongo provides MongoDB-backed record managers. The Mongo collections
// are the system of record across process restarts.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/process"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/record"
	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/status"
	"trpc.group/trpc-go/trpc-evalbench-go/storage/mongodb"
)

// Collection names.
const (
	collStatus  = "status_records"
	collResult  = "result_records"
	collMetric  = "metric_records"
	collConfig  = "config_records"
	defaultDB   = "evalbench"
	fieldID     = "process_id"
	fieldMetric = "metric_id"
)

// Options configure the Mongo managers.
type Options struct {
	Database string
}

// Option configures Options.
type Option func(*Options)

// WithDatabase sets the database name.
func WithDatabase(name string) Option {
	return func(o *Options) {
		if name != "" {
			o.Database = name
		}
	}
}

// Managers bundles the four Mongo-backed record managers sharing one client.
type Managers struct {
	Status *StatusManager
	Result *ResultManager
	Metric *MetricManager
	Config *ConfigManager
}

// NewManagers creates the record managers over a shared client.
func NewManagers(client mongodb.Client, opt ...Option) (*Managers, error) {
	if client == nil {
		return nil, errors.New("mongodb client is nil")
	}
	opts := &Options{Database: defaultDB}
	for _, o := range opt {
		o(opts)
	}
	return &Managers{
		Status: &StatusManager{client: client, db: opts.Database},
		Result: &ResultManager{client: client, db: opts.Database},
		Metric: &MetricManager{client: client, db: opts.Database},
		Config: &ConfigManager{client: client, db: opts.Database},
	}, nil
}

// StatusManager implements record.StatusManager over MongoDB.
type StatusManager struct {
	client mongodb.Client
	db     string
}

// Save implements record.StatusManager.Save.
func (m *StatusManager) Save(ctx context.Context, rec *process.StatusRecord) error {
	filter := bson.M{fieldID: rec.ProcessID}
	update := bson.M{"$set": rec}
	if _, err := m.client.UpdateOne(ctx, m.db, collStatus, filter, update,
		options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("save status record: %w", err)
	}
	return nil
}

// Get implements record.StatusManager.Get.
func (m *StatusManager) Get(ctx context.Context, processID string) (*process.StatusRecord, error) {
	rec := &process.StatusRecord{}
	err := m.client.FindOne(ctx, m.db, collStatus, bson.M{fieldID: processID}).Decode(rec)
	if errors.Is(err, driver.ErrNoDocuments) {
		return nil, record.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get status record: %w", err)
	}
	return rec, nil
}

// HasOngoing implements record.StatusManager.HasOngoing.
func (m *StatusManager) HasOngoing(ctx context.Context, userID string) (bool, error) {
	filter := bson.M{
		"user_id":        userID,
		"overall_status": status.StatusInProgress,
	}
	count, err := m.client.CountDocuments(ctx, m.db, collStatus, filter)
	if err != nil {
		return false, fmt.Errorf("count ongoing processes: %w", err)
	}
	return count > 0, nil
}

// ResultManager implements record.ResultManager over MongoDB.
type ResultManager struct {
	client mongodb.Client
	db     string
}

// Save implements record.ResultManager.Save.
func (m *ResultManager) Save(ctx context.Context, rec *record.ResultRecord) error {
	filter := bson.M{fieldID: rec.ProcessID}
	update := bson.M{"$set": rec}
	if _, err := m.client.UpdateOne(ctx, m.db, collResult, filter, update,
		options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("save result record: %w", err)
	}
	return nil
}

// Get implements record.ResultManager.Get.
func (m *ResultManager) Get(ctx context.Context, processID string) (*record.ResultRecord, error) {
	rec := &record.ResultRecord{}
	err := m.client.FindOne(ctx, m.db, collResult, bson.M{fieldID: processID}).Decode(rec)
	if errors.Is(err, driver.ErrNoDocuments) {
		return nil, record.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get result record: %w", err)
	}
	return rec, nil
}

// AppendModelResult implements record.ResultManager.AppendModelResult.
func (m *ResultManager) AppendModelResult(ctx context.Context, processID string, result record.ModelResult) error {
	filter := bson.M{fieldID: processID}
	update := bson.M{"$push": bson.M{"models": result}}
	res, err := m.client.UpdateOne(ctx, m.db, collResult, filter, update)
	if err != nil {
		return fmt.Errorf("append model result: %w", err)
	}
	if res.MatchedCount == 0 {
		return record.ErrNotFound
	}
	return nil
}

// SetResultsPath implements record.ResultManager.SetResultsPath.
func (m *ResultManager) SetResultsPath(ctx context.Context, processID, path string) error {
	filter := bson.M{fieldID: processID}
	update := bson.M{"$set": bson.M{"results_path": path}}
	res, err := m.client.UpdateOne(ctx, m.db, collResult, filter, update)
	if err != nil {
		return fmt.Errorf("set results path: %w", err)
	}
	if res.MatchedCount == 0 {
		return record.ErrNotFound
	}
	return nil
}

// ListByUser implements record.ResultManager.ListByUser.
func (m *ResultManager) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*record.ResultRecord, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	filter := bson.M{"user_id": userID}
	count, err := m.client.CountDocuments(ctx, m.db, collResult, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count result records: %w", err)
	}
	findOpts := options.Find().
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize)).
		SetSort(bson.D{{Key: "timestamp", Value: -1}})
	cursor, err := m.client.Find(ctx, m.db, collResult, filter, findOpts)
	if err != nil {
		return nil, 0, fmt.Errorf("list result records: %w", err)
	}
	defer cursor.Close(ctx)
	var recs []*record.ResultRecord
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, 0, fmt.Errorf("decode result records: %w", err)
	}
	return recs, count, nil
}

// MetricManager implements record.MetricManager over MongoDB.
type MetricManager struct {
	client mongodb.Client
	db     string
}

// Save implements record.MetricManager.Save.
func (m *MetricManager) Save(ctx context.Context, rec *record.MetricRecord) error {
	if _, err := m.client.InsertOne(ctx, m.db, collMetric, rec); err != nil {
		return fmt.Errorf("save metric record: %w", err)
	}
	return nil
}

// Get implements record.MetricManager.Get.
func (m *MetricManager) Get(ctx context.Context, metricID string) (*record.MetricRecord, error) {
	rec := &record.MetricRecord{}
	err := m.client.FindOne(ctx, m.db, collMetric, bson.M{fieldMetric: metricID}).Decode(rec)
	if errors.Is(err, driver.ErrNoDocuments) {
		return nil, record.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get metric record: %w", err)
	}
	return rec, nil
}

// UpdateRanges implements record.MetricManager.UpdateRanges.
func (m *MetricManager) UpdateRanges(ctx context.Context, metricID string, ranges []record.ScoreRange) error {
	filter := bson.M{fieldMetric: metricID}
	update := bson.M{"$set": bson.M{"ranges": ranges}}
	res, err := m.client.UpdateOne(ctx, m.db, collMetric, filter, update)
	if err != nil {
		return fmt.Errorf("update metric ranges: %w", err)
	}
	if res.MatchedCount == 0 {
		return record.ErrNotFound
	}
	return nil
}

// List implements record.MetricManager.List.
func (m *MetricManager) List(ctx context.Context, orgID string, page, pageSize int) ([]*record.MetricRecord, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	filter := bson.M{"org_id": orgID}
	count, err := m.client.CountDocuments(ctx, m.db, collMetric, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count metric records: %w", err)
	}
	findOpts := options.Find().
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize)).
		SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := m.client.Find(ctx, m.db, collMetric, filter, findOpts)
	if err != nil {
		return nil, 0, fmt.Errorf("list metric records: %w", err)
	}
	defer cursor.Close(ctx)
	var recs []*record.MetricRecord
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, 0, fmt.Errorf("decode metric records: %w", err)
	}
	return recs, count, nil
}

// ConfigManager implements record.ConfigManager over MongoDB.
type ConfigManager struct {
	client mongodb.Client
	db     string
}

// Save implements record.ConfigManager.Save.
func (m *ConfigManager) Save(ctx context.Context, rec *record.ConfigRecord) error {
	if _, err := m.client.InsertOne(ctx, m.db, collConfig, rec); err != nil {
		return fmt.Errorf("save config record: %w", err)
	}
	return nil
}

// Get implements record.ConfigManager.Get.
func (m *ConfigManager) Get(ctx context.Context, processID string) (*record.ConfigRecord, error) {
	rec := &record.ConfigRecord{}
	err := m.client.FindOne(ctx, m.db, collConfig, bson.M{fieldID: processID}).Decode(rec)
	if errors.Is(err, driver.ErrNoDocuments) {
		return nil, record.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get config record: %w", err)
	}
	return rec, nil
}
