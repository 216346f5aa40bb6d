//
// Tencent is pleased to support the open source community by making trpc-evalbench-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-evalbench-go is licensed under the Apache License Version 2.0.
//
//

package report

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/record"
)

func testRecord() *record.ResultRecord {
	return &record.ResultRecord{
		ProcessID: "abcd1234",
		UserID:    "user1",
		Timestamp: "2025-01-02 03:04:05",
		Models: []record.ModelResult{{
			ModelID:   "m1",
			ModelName: "model one",
			Groups: []record.GroupResult{{
				Name: "Payload1",
				Rows: []record.Row{
					{TestID: "Payload1", RequestID: "r1", Query: "q1", Response: "a1", Answer: "a1", Latency: 0.5, StatusCode: 200, Status: "OK"},
					{TestID: "Payload1", RequestID: "r2", Query: "q1", Response: "a1", Answer: "a1", Latency: 0.7, StatusCode: 200, Status: "OK"},
					{TestID: "Payload1", RequestID: "r3", Query: "q2", Response: "a2", Answer: "a2", Latency: 0.6, StatusCode: 200, Status: "OK"},
				},
				Throughput: 4.2,
				Percentiles: map[string]float64{
					"50": 0.6, "75": 0.7, "90.5": 0.7, "95": 0.7, "99": 0.7,
				},
			}},
		}},
	}
}

func TestGenerateWritesAllSheets(t *testing.T) {
	g := New(WithDir(t.TempDir()))
	path, err := g.Generate(testRecord(), true)
	require.NoError(t, err)
	assert.Equal(t, "abcd1234.xlsx", filepath.Base(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Contains(t, sheets, "Input Details")
	assert.Contains(t, sheets, "Response Details")
	assert.Contains(t, sheets, "Performance")
	assert.Contains(t, sheets, "Organized")
	assert.NotContains(t, sheets, "Sheet1")

	rows, err := f.GetRows("Response Details")
	require.NoError(t, err)
	// Header plus one row per request.
	require.Len(t, rows, 4)
	assert.Equal(t, "Test ID", rows[0][0])
	assert.Equal(t, "r1", rows[1][2])

	perf, err := f.GetRows("Performance")
	require.NoError(t, err)
	require.Len(t, perf, 2)
	assert.Equal(t, "Payload1", perf[1][0])
}

func TestGenerateSkipsOrganizedForBenchmark(t *testing.T) {
	g := New(WithDir(t.TempDir()))
	path, err := g.Generate(testRecord(), false)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.NotContains(t, f.GetSheetList(), "Organized")
}

func TestGenerateAppendsWithGap(t *testing.T) {
	dir := t.TempDir()
	g := New(WithDir(dir))

	_, err := g.Generate(testRecord(), false)
	require.NoError(t, err)
	path, err := g.Generate(testRecord(), false)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Response Details")
	require.NoError(t, err)
	// Header + 3 rows + blank gap + 3 appended rows.
	require.Len(t, rows, 8)
	assert.Empty(t, rows[4])
	assert.Equal(t, "r1", rows[5][2])
}

func TestGenerateInputSheetPromptCounts(t *testing.T) {
	g := New(WithDir(t.TempDir()))
	path, err := g.Generate(testRecord(), false)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Input Details")
	require.NoError(t, err)
	// Header plus one row per distinct prompt.
	require.Len(t, rows, 3)
	assert.Equal(t, "q1", rows[1][3])
	assert.Equal(t, "2", rows[1][4])
	assert.Equal(t, "q2", rows[2][3])
}

func TestGenerateNilRecord(t *testing.T) {
	g := New()
	_, err := g.Generate(nil, false)
	require.Error(t, err)
}
