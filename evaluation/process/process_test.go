//
// Tencent is pleased to support the open source community by making trpc-evalbench-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-evalbench-go is licensed under the Apache License Version 2.0.
//
//

package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-evalbench-go/evaluation/status"
)

func newTestProcess() *Process {
	return &Process{
		ProcessID: NewProcessID(),
		OrgID:     "org1",
		UserID:    "user1",
		Models: []ModelRef{
			{ModelID: "m1", ModelName: "model one"},
			{ModelID: "m2", ModelName: "model two"},
		},
	}
}

func TestNewProcessID(t *testing.T) {
	id := NewProcessID()
	require.Len(t, id, 8)
	for _, c := range id {
		assert.True(t, (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f'), "unexpected char %c", c)
	}
	assert.NotEqual(t, id, NewProcessID())
}

func TestNewStatusRecord(t *testing.T) {
	rec := NewStatusRecord(newTestProcess())
	assert.Equal(t, status.StatusInProgress, rec.OverallStatus)
	require.Len(t, rec.Models, 2)
	for _, m := range rec.Models {
		assert.Equal(t, status.StatusNotStarted, m.Status)
	}
	assert.False(t, rec.StartTime.IsZero())
	assert.Nil(t, rec.EndTime)
}

func TestSetModelStatus(t *testing.T) {
	rec := NewStatusRecord(newTestProcess())
	rec.SetModelStatus("m1", status.StatusInProgress)
	st, ok := rec.ModelStatusOf("m1")
	require.True(t, ok)
	assert.Equal(t, status.StatusInProgress, st)

	// Unknown ids are ignored.
	rec.SetModelStatus("missing", status.StatusFailed)
	_, ok = rec.ModelStatusOf("missing")
	assert.False(t, ok)
}

func TestFinalizeAllCompleted(t *testing.T) {
	rec := NewStatusRecord(newTestProcess())
	rec.SetModelStatus("m1", status.StatusCompleted)
	rec.SetModelStatus("m2", status.StatusCompleted)
	rec.Finalize()
	assert.Equal(t, status.StatusCompleted, rec.OverallStatus)
	require.NotNil(t, rec.EndTime)
}

func TestFinalizeAnyFailure(t *testing.T) {
	rec := NewStatusRecord(newTestProcess())
	rec.SetModelStatus("m1", status.StatusCompleted)
	rec.SetModelStatus("m2", status.StatusFailed)
	rec.Finalize()
	assert.Equal(t, status.StatusFailed, rec.OverallStatus)
}

func TestFinalizeNotStartedCountsAsFailed(t *testing.T) {
	rec := NewStatusRecord(newTestProcess())
	rec.SetModelStatus("m1", status.StatusFailed)
	rec.Finalize()
	assert.Equal(t, status.StatusFailed, rec.OverallStatus)
}

func TestFinalizeCancelledWins(t *testing.T) {
	rec := NewStatusRecord(newTestProcess())
	rec.SetModelStatus("m1", status.StatusCancelled)
	rec.SetModelStatus("m2", status.StatusFailed)
	rec.Finalize()
	assert.Equal(t, status.StatusCancelled, rec.OverallStatus)
}

func TestCancelRemaining(t *testing.T) {
	rec := NewStatusRecord(newTestProcess())
	rec.SetModelStatus("m1", status.StatusCompleted)
	rec.CancelRemaining()
	assert.Equal(t, status.StatusCancelled, rec.OverallStatus)
	st, _ := rec.ModelStatusOf("m1")
	assert.Equal(t, status.StatusCompleted, st)
	st, _ = rec.ModelStatusOf("m2")
	assert.Equal(t, status.StatusCancelled, st)
	require.NotNil(t, rec.EndTime)
}

func TestCloneIsDeep(t *testing.T) {
	rec := NewStatusRecord(newTestProcess())
	clone := rec.Clone()
	clone.SetModelStatus("m1", status.StatusFailed)
	st, _ := rec.ModelStatusOf("m1")
	assert.Equal(t, status.StatusNotStarted, st)
}
